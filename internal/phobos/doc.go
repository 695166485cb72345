// Package phobos decrypts containers produced by the Phobos ransomware
// family. Each container carries a fixed-layout trailing metadata record
// holding the CBC initialization vector, an RSA-wrapped AES-256 key, and the
// footer geometry. Keys are resolved against an offline keystore table of
// (wrapped key, AES key) pairs. Two encryption modes exist: a scattered-chunk
// mode whose decrypted payload travels inside the footer itself, and a
// single-stream mode covering the whole file body.
package phobos
