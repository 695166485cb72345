// Package commands provides the command-line interface for the ransomdec
// tool.
//
// It implements commands for:
//   - Phobos container decryption (keystore-based)
//   - RCRU64 container decryption (private-key-based)
//   - container inspection
//   - victim ID generation
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands
