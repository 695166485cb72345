// Package engine runs family-specific file decryptors over a batch of files
// with bounded parallelism, collecting per-file results through a printer
// goroutine. Failures are reported per file and never abort the batch early.
package engine
