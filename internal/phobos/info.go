package phobos

import (
	"fmt"
	"os"
	"path/filepath"
)

// Info summarizes the recoverable container parameters without decrypting.
// The end block stays encrypted here, so mode and original name are not part
// of the summary.
type Info struct {
	AttackerID   []byte
	FooterSize   uint32
	EndBlockSize int64
	PaddingSize  uint32
}

// Inspect reads the trailing metadata of an encrypted container and reports
// its parameters. No key material is required.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("getting file info: %w", err)
	}

	md, err := readMetadata(f, stat.Size())
	if err != nil {
		return nil, err
	}

	endBlockSize, err := md.endBlockSize()
	if err != nil {
		return nil, err
	}

	return &Info{
		AttackerID:   md.attackerID,
		FooterSize:   md.footerSize,
		EndBlockSize: endBlockSize,
		PaddingSize:  md.paddingSize,
	}, nil
}
