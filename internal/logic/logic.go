// Package logic implements the core business logic shared by the decryption
// commands: file resolution, batch processing, and the stats summary.
package logic

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/forensix/ransomdec/internal/config"
	"github.com/forensix/ransomdec/internal/engine"
	"github.com/forensix/ransomdec/internal/filter"
)

// Run resolves the configured files and processes each of them with the
// family-specific decrypt function.
func Run(cfg *config.Config, decrypt engine.DecryptFunc) error {
	start := time.Now()

	files, scanned, err := filter.Resolve(cfg.Files, cfg.Include, cfg.Exclude)
	if err != nil {
		return fmt.Errorf("resolving files: %w", err)
	}

	excluded := scanned - len(files)
	cfg.Files = files

	processed, errored, totalSize, err := engine.New(cfg, decrypt).ProcessFiles()

	if cfg.Stats {
		printStats(scanned, excluded, processed, errored, totalSize, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("running logic: %w", err)
	}

	return nil
}

func printStats(scanned, excluded, processed, errored int, totalSize int64, duration time.Duration) {
	fmt.Fprintf(os.Stderr, "\nStats\n")
	fmt.Fprintf(os.Stderr, "  Scanned:   %d\n", scanned)
	fmt.Fprintf(os.Stderr, "  Excluded:  %d\n", excluded)
	fmt.Fprintf(os.Stderr, "  Processed: %d\n", processed)
	fmt.Fprintf(os.Stderr, "  Errors:    %d\n", errored)
	//nolint:gosec // totalSize is always non-negative (sum of file sizes)
	fmt.Fprintf(os.Stderr, "  Size:      %s\n", humanize.IBytes(uint64(max(0, totalSize))))
	fmt.Fprintf(os.Stderr, "  Duration:  %s\n", duration.Round(time.Millisecond))
}
