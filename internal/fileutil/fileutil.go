// Package fileutil provides shared file operation helpers.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempContext holds state for an atomic file write operation.
type TempContext struct {
	SrcInfo os.FileInfo
	TmpFile *os.File
	TmpName string
}

// NewTempContext stats the source file and creates a temp file for atomic
// writing next to the output path. Caller must defer CleanupOnError.
func NewTempContext(filename, outPath string) (*TempContext, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("getting file info for %q: %w", filename, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(outPath), ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}

	return &TempContext{
		SrcInfo: info,
		TmpFile: tmpFile,
		TmpName: tmpFile.Name(),
	}, nil
}

// CleanupOnError closes the temp file and removes it if the write failed.
func (tc *TempContext) CleanupOnError(errp *error) {
	tc.TmpFile.Close() //nolint:gosec // best-effort cleanup

	if *errp != nil {
		os.Remove(tc.TmpName) //nolint:gosec // best-effort cleanup
	}
}

// CopyFile copies src to dst, carrying over the source permission bits.
// dst is replaced if it already exists.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("opening %q: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %q: %w", dst, err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %q: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %q to %q: %w", src, dst, err)
	}

	return nil
}

// OutputSize stats outPath and returns its size.
func OutputSize(outPath string) (int64, error) {
	info, err := os.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("stat output %q: %w", outPath, err)
	}

	return info.Size(), nil
}
