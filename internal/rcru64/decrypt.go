package rcru64

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forensix/ransomdec/internal/fileutil"
	"github.com/forensix/ransomdec/internal/gcmstream"
)

// ransomExtPrefix starts the ransom extension appended to victim file names.
const ransomExtPrefix = "_[ID-"

// GCM nonce lengths per decryption mode.
const (
	fullNonceSize1 = 12
	fullNonceSize2 = 32
	fastNonceSize  = 32
)

// decryptMode is chosen once from the recovered metadata and never
// re-inferred mid-run.
type decryptMode int

const (
	modeChunked decryptMode = iota + 1
	modeSmallMultiBlock
	modeSmallSingleBlock
	modeFastBig
)

func (m decryptMode) String() string {
	switch m {
	case modeChunked:
		return "chunked"
	case modeSmallMultiBlock:
		return "full, small file, some blocks"
	case modeSmallSingleBlock:
		return "full, small file, single block"
	case modeFastBig:
		return "fast, big file"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// selectMode classifies the container. Chunked containers announce themselves
// through the chunk-geometry marker; the rest tier on the plaintext-region
// size: below the big-file threshold decryption covered the whole file (one
// block or several), at or above it only the head and tail regions.
func selectMode(md *metadata) decryptMode {
	switch {
	case md.chunked:
		return modeChunked
	case md.fileSize >= minBigFileSize:
		return modeFastBig
	case md.fileSize > encBlockSize:
		return modeSmallMultiBlock
	default:
		return modeSmallSingleBlock
	}
}

// DecryptFile recovers the plaintext of one container. The input is copied to
// the output path first and all decryption mutates the copy in place, so the
// original stays untouched; a failure after mutation began removes the copy.
// fastNonce is the externally recovered static nonce for big-file containers
// and may be nil when none is available.
func DecryptFile(path string, priv *rsa.PrivateKey, fastNonce []byte) (outPath string, size int64, err error) {
	outPath = outputPath(path)

	if err := fileutil.CopyFile(path, outPath); err != nil {
		return "", 0, fmt.Errorf("copying input: %w", err)
	}

	size, err = decryptCopy(outPath, priv, fastNonce)
	if err != nil {
		os.Remove(outPath) //nolint:gosec // best-effort cleanup of the failed copy

		return "", 0, err
	}

	return outPath, size, nil
}

// outputPath derives the decrypted name by cutting the ransom extension at
// its ID prefix, falling back to a .dec suffix for renamed samples.
func outputPath(path string) string {
	if idx := strings.Index(filepath.Base(path), ransomExtPrefix); idx >= 0 {
		return filepath.Join(filepath.Dir(path), filepath.Base(path)[:idx])
	}

	return path + ".dec"
}

// decryptCopy runs the whole engine against the working copy.
func decryptCopy(path string, priv *rsa.PrivateKey, fastNonce []byte) (int64, error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("opening working copy: %w", err)
	}
	defer f.Close()

	md, err := locateMetadata(f)
	if err != nil {
		return 0, err
	}

	key, baseNonce, err := unwrapKeyBlob(md.keyBlob, priv)
	if err != nil {
		return 0, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, fmt.Errorf("%w: AES key: %v", ErrMalformedKeyBlob, err)
	}

	mode := selectMode(md)

	logrus.WithFields(logrus.Fields{
		"file":        path,
		"mode":        mode.String(),
		"size":        md.fileSize,
		"chunk_size":  md.chunkSize,
		"chunk_space": md.chunkSpace,
		"enc_size":    md.encSize,
	}).Debug("container metadata recovered")

	switch mode {
	case modeChunked:
		err = decryptChunked(f, block, baseNonce, md)
	case modeSmallMultiBlock:
		err = decryptSmallMultiBlock(f, block, baseNonce, md)
	case modeSmallSingleBlock:
		err = decryptSmallSingleBlock(f, block, baseNonce, md)
	case modeFastBig:
		err = decryptFastBig(f, block, baseNonce, fastNonce, md)
	}

	if err != nil {
		return 0, err
	}

	// Finalize only after every write in the chosen mode succeeded.
	finalSize := md.fileSize - additionalDataSize

	if err := f.Truncate(finalSize); err != nil {
		return 0, fmt.Errorf("removing footer: %w", err)
	}

	return finalSize, nil
}

// decryptRegion reads up to limit bytes at offset, XORs the GCM keystream for
// nonce over them, and writes the result back in place.
func decryptRegion(f *os.File, block cipher.Block, nonce []byte, offset, limit int64) error {
	if limit <= 0 {
		return nil
	}

	buf := make([]byte, limit)

	n, err := f.ReadAt(buf, offset)
	if n == 0 && err != nil {
		return fmt.Errorf("reading region at %#x: %w", offset, err)
	}

	buf = buf[:n]

	if err := gcmstream.XORKeyStream(block, nonce, buf, buf); err != nil {
		return err
	}

	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("writing region at %#x: %w", offset, err)
	}

	return nil
}

// sliceNonce bounds-checks the base nonce before slicing a mode's prefix.
func sliceNonce(nonce []byte, size int) ([]byte, error) {
	if len(nonce) < size {
		return nil, fmt.Errorf("%w: nonce is %d bytes, mode needs %d", ErrMalformedKeyBlob, len(nonce), size)
	}

	return nonce[:size], nil
}

// decryptChunked walks fixed-size chunks at a stride of chunk size plus chunk
// space, up to the recorded encrypted size. The first chunk's nonce comes
// straight from the key blob; every later chunk consumes one generator step,
// each seeded from the previous step's output.
func decryptChunked(f *os.File, block cipher.Block, baseNonce []byte, md *metadata) error {
	nonce, err := sliceNonce(baseNonce, chunkNonceSize)
	if err != nil {
		return err
	}

	first := md.encSize
	if first > md.chunkSize {
		first = md.chunkSize
	}

	if err := decryptRegion(f, block, nonce, 0, first); err != nil {
		return err
	}

	stride := md.chunkSize + md.chunkSpace
	state := rnd64InitState

	for pos := stride; pos < md.encSize; pos += stride {
		length := md.encSize - pos
		if length > md.chunkSize {
			length = md.chunkSize
		}

		state = rnd64Next(state)

		if err := decryptRegion(f, block, chunkNonce(state), pos, length); err != nil {
			return err
		}
	}

	return nil
}

// decryptSmallMultiBlock covers small files spanning several processing
// blocks: sequential blocks from offset zero, first block keyed by the blob
// nonce, later blocks by the sequencer, then the end marker is dropped.
func decryptSmallMultiBlock(f *os.File, block cipher.Block, baseNonce []byte, md *metadata) error {
	nonce, err := sliceNonce(baseNonce, fullNonceSize1)
	if err != nil {
		return err
	}

	encSize := md.fileSize - additionalDataSize - 1

	first := encSize
	if first > encBlockSize {
		first = encBlockSize
	}

	if err := decryptRegion(f, block, nonce, 0, first); err != nil {
		return err
	}

	state := rnd64InitState

	for pos := int64(encBlockSize); pos < encSize; pos += encBlockSize {
		length := encSize - pos
		if length > encBlockSize {
			length = encBlockSize
		}

		state = rnd64Next(state)

		if err := decryptRegion(f, block, chunkNonce(state), pos, length); err != nil {
			return err
		}
	}

	return stripEndMarker(f, md, smallFileEndMarker1)
}

// decryptSmallSingleBlock covers files below one processing block: a single
// decryption with the long nonce, then one of two known end markers locates
// the exact original size.
func decryptSmallSingleBlock(f *os.File, block cipher.Block, baseNonce []byte, md *metadata) error {
	nonce, err := sliceNonce(baseNonce, fullNonceSize2)
	if err != nil {
		return err
	}

	encSize := md.fileSize - gcmstream.BlockSize

	if err := decryptRegion(f, block, nonce, 0, encSize); err != nil {
		return err
	}

	return stripEndMarker(f, md, smallFileEndMarker1, smallFileEndMarker2)
}

// stripEndMarker searches the tail of the plaintext region for the first of
// the given markers and shrinks the recorded region end to where it starts.
// Absence is not an error; the region end then stays as located.
func stripEndMarker(f *os.File, md *metadata, markers ...[]byte) error {
	window := 0
	for _, m := range markers {
		if len(m) > window {
			window = len(m)
		}
	}

	if int64(window) > md.fileSize {
		return nil
	}

	tail := make([]byte, window)

	n, err := f.ReadAt(tail, md.fileSize-int64(window))
	if n == 0 && err != nil {
		return fmt.Errorf("reading end marker window: %w", err)
	}

	tail = tail[:n]

	for _, m := range markers {
		if idx := bytes.Index(tail, m); idx >= 0 {
			md.fileSize -= int64(window - idx)

			break
		}
	}

	return nil
}

// decryptFastBig reproduces the intentionally partial big-file coverage: the
// head region under one static nonce from the key blob and the trailing
// region under the externally recovered fast nonce. Everything in between was
// never encrypted and must stay untouched.
func decryptFastBig(f *os.File, block cipher.Block, baseNonce, fastNonce []byte, md *metadata) error {
	if len(fastNonce) == 0 {
		return ErrFastNonceRequired
	}

	nonce, err := sliceNonce(baseNonce, fastNonceSize)
	if err != nil {
		return err
	}

	encSize := md.fileSize

	head := encSize
	if head > firstEncBlockSize-gcmstream.BlockSize {
		head = firstEncBlockSize - gcmstream.BlockSize
	}

	if err := decryptRegion(f, block, nonce, 0, head); err != nil {
		return err
	}

	tail := encSize
	if tail > encBlockSize-gcmstream.BlockSize {
		tail = encBlockSize - gcmstream.BlockSize
	}

	return decryptRegion(f, block, fastNonce, encSize-encBlockSize, tail)
}
