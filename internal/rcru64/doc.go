// Package rcru64 decrypts containers produced by the RCRU64 ransomware
// family. Metadata is marker-delimited rather than fixed-layout: a bounded
// trailing window is searched for the metadata marker, optionally after
// stripping a fixed end tag. The wrapped AES key and base nonce are recovered
// by RSA unwrap and textual marker scanning. Four mutually exclusive modes
// exist — chunked with a deterministic per-chunk nonce sequencer, full
// decryption of small files in one or several blocks, and a fast variant that
// only ever touched the head and tail of big files. The format applies
// AES-GCM without tag verification, so the keystream is reproduced directly.
package rcru64
