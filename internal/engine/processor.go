package engine

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/forensix/ransomdec/internal/config"
)

// DecryptFunc decrypts one container file and returns the written output
// path and its final size. Implementations must be safe for concurrent use
// across distinct files; shared key material is read-only.
type DecryptFunc func(path string) (outPath string, size int64, err error)

// Processor drives the per-file decryption function over all configured
// files.
type Processor struct {
	// cfg contains runtime configuration options
	cfg *config.Config

	// decrypt is the family-specific per-file engine
	decrypt DecryptFunc

	// results channels processing outcomes to the printer goroutine
	results chan Result
}

// New creates a Processor for the given configuration and per-file engine.
func New(cfg *config.Config, decrypt DecryptFunc) *Processor {
	return &Processor{
		cfg:     cfg,
		decrypt: decrypt,
		results: make(chan Result, len(cfg.Files)),
	}
}

// ProcessFiles concurrently processes all files specified in the
// configuration. Each file gets its own engine invocation; nothing but the
// read-only key material is shared between them.
//
//nolint:cyclop,gocognit
func (p *Processor) ProcessFiles() (processed, errored int, totalSize int64, err error) {
	group := errgroup.Group{}
	group.SetLimit(p.cfg.Parallel)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for result := range p.results {
			if result.Error != nil {
				errored++

				fmt.Fprintf(os.Stderr, "Error processing %q: %v\n", result.Input, result.Error)
			} else {
				processed++

				totalSize += result.OutputSize

				if !p.cfg.Quiet {
					fmt.Printf("Processed %q -> %q\n", result.Input, result.Output) //nolint:forbidigo
				}
			}

			if p.cfg.Delete && result.Error == nil {
				if err := os.Remove(result.Input); err != nil {
					fmt.Fprintf(os.Stderr, "Error deleting %q: %v\n", result.Input, err)
				} else if !p.cfg.Quiet {
					fmt.Printf("Deleted %q\n", result.Input) //nolint:forbidigo
				}
			}
		}
	}()

	for _, file := range p.cfg.Files {
		file := file

		group.Go(func() error {
			outPath, size, err := p.decrypt(file)
			if err != nil {
				p.results <- Result{Input: file, Error: err}

				return err
			}

			p.results <- Result{Input: file, Output: outPath, OutputSize: size}

			return nil
		})
	}

	err = group.Wait()

	close(p.results)

	<-done // Wait for printer to finish

	if err != nil {
		return processed, errored, totalSize, fmt.Errorf("processing files: %w", err)
	}

	return processed, errored, totalSize, nil
}
