package phobos

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/forensix/ransomdec/internal/fileutil"
)

// encBlockSize is the streaming granularity used by the single-stream mode.
const encBlockSize = 0xD0000

//nolint:gochecknoglobals
var streamBufPool = sync.Pool{
	New: func() any {
		return make([]byte, encBlockSize)
	},
}

// DecryptFile recovers the plaintext of a single encrypted container. The
// output file is written next to the input under the original name stored in
// the container metadata. Returns the output path and its final size.
func DecryptFile(path string, ks *Keystore) (outPath string, size int64, err error) {
	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", 0, fmt.Errorf("opening input file: %w", err)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("getting file info: %w", err)
	}

	fileSize := stat.Size()

	md, err := readMetadata(in, fileSize)
	if err != nil {
		return "", 0, err
	}

	key, err := ks.Lookup(md.wrappedKey)
	if err != nil {
		return "", 0, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", 0, fmt.Errorf("creating cipher: %w", err)
	}

	endBlock, err := md.readEndBlock(in, fileSize)
	if err != nil {
		return "", 0, err
	}

	cipher.NewCBCDecrypter(block, md.iv).CryptBlocks(endBlock, endBlock)

	info, err := parseEncInfo(endBlock)
	if err != nil {
		return "", 0, err
	}

	logrus.WithFields(logrus.Fields{
		"file":        path,
		"attacker_id": hex.EncodeToString(md.attackerID),
		"mode":        info.mode,
		"footer_size": md.footerSize,
		"padding":     md.paddingSize,
		"orig_name":   info.origName,
	}).Debug("container metadata recovered")

	outPath = filepath.Join(filepath.Dir(path), info.origName)

	switch info.mode {
	case 1:
		size, err = decryptScattered(path, outPath, fileSize, md, info)
	case 2:
		size, err = decryptStream(in, path, outPath, fileSize, block, md)
	}

	if err != nil {
		return "", 0, err
	}

	return outPath, size, nil
}

// decryptScattered handles mode 1: the end block carries a placement table
// and an already-decrypted contiguous payload. The payload CRC32 is verified
// before the copy is patched, so a corrupt container never produces output.
// The table alone decides placement; processing order is irrelevant.
func decryptScattered(path, outPath string, fileSize int64, md *metadata, info *encInfo) (int64, error) {
	if crc32.ChecksumIEEE(info.chunkData) != info.chunkCRC {
		return 0, ErrIntegrityFailure
	}

	if err := fileutil.CopyFile(path, outPath); err != nil {
		return 0, fmt.Errorf("copying input: %w", err)
	}

	out, err := os.OpenFile(outPath, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("opening output file: %w", err)
	}
	defer out.Close()

	chunkSize := int64(info.chunkSize)

	for i, pos := range info.chunkPos {
		chunk := info.chunkData[int64(i)*chunkSize : int64(i+1)*chunkSize]

		if _, err := out.WriteAt(chunk, int64(pos)); err != nil {
			out.Close()
			os.Remove(outPath)

			return 0, fmt.Errorf("writing chunk at %#x: %w", pos, err)
		}
	}

	finalSize := fileSize - int64(md.footerSize)

	if err := out.Truncate(finalSize); err != nil {
		return 0, fmt.Errorf("removing footer: %w", err)
	}

	return finalSize, nil
}

// decryptStream handles mode 2: one CBC stream over the whole body. The final
// read is decrypted only up to the last block boundary; a misaligned tail is
// appended plaintext in this format and is copied through untouched. Footer
// and padding are dropped by truncating the finished output.
func decryptStream(in *os.File, path, outPath string, fileSize int64, block cipher.Block, md *metadata) (size int64, err error) {
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewinding input: %w", err)
	}

	tc, err := fileutil.NewTempContext(path, outPath)
	if err != nil {
		return 0, fmt.Errorf("preparing atomic write: %w", err)
	}

	defer tc.CleanupOnError(&err)

	cbc := cipher.NewCBCDecrypter(block, md.iv)

	buf := streamBufPool.Get().([]byte)
	defer streamBufPool.Put(buf) //nolint:staticcheck // fixed-size buffer reuse

	for {
		n, err := io.ReadFull(in, buf)

		if n == encBlockSize {
			cbc.CryptBlocks(buf, buf)

			if _, err := tc.TmpFile.Write(buf); err != nil {
				return 0, fmt.Errorf("writing decrypted block: %w", err)
			}

			continue
		}

		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("reading input: %w", err)
		}

		aligned := n &^ (aes.BlockSize - 1)
		cbc.CryptBlocks(buf[:aligned], buf[:aligned])

		if _, err := tc.TmpFile.Write(buf[:n]); err != nil {
			return 0, fmt.Errorf("writing final block: %w", err)
		}

		break
	}

	finalSize := fileSize - int64(md.footerSize) - int64(md.paddingSize)
	if finalSize < 0 {
		return 0, fmt.Errorf("%w: footer and padding exceed file size", ErrTruncated)
	}

	if err := tc.TmpFile.Truncate(finalSize); err != nil {
		return 0, fmt.Errorf("removing footer: %w", err)
	}

	if err := tc.TmpFile.Close(); err != nil {
		return 0, fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(tc.TmpName, outPath); err != nil {
		return 0, fmt.Errorf("renaming output file: %w", err)
	}

	return finalSize, nil
}
