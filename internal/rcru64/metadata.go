package rcru64

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
)

// Markers delimiting the trailing metadata. The region has no length fields;
// everything is located by searching a bounded window at the end of the file.
var (
	metadataMarker = []byte("wenf=")
	endTagMarker   = []byte("&4r*3d")

	chunkSizeMarker  = []byte("P7A1s")
	chunkSpaceMarker = []byte(":")
	chunkEndMarker   = []byte("$f1;")
	encSizeMarker    = []byte("Fs1z3")

	smallFileEndMarker1 = []byte("nqpso5938fh71jfu")
	smallFileEndMarker2 = []byte("qpso5938fh71jf")
)

const (
	// rsaKeySize is the RSA-2048 wrapped key blob length.
	rsaKeySize = 256

	maxMetadataSize    = 0x12C
	additionalDataSize = 1

	// minBigFileSize splits full decryption from the fast head/tail variant.
	minBigFileSize = 0x1F4000
	// encBlockSize is the processing block for full and fast variants, and
	// the tail region size of the fast variant.
	encBlockSize = 0x7D000
	// firstEncBlockSize bounds the fast variant's head region.
	firstEncBlockSize = 0x2D2A8

	// blockUnit scales the fractional chunk-size and chunk-space fields.
	blockUnit = 1024000
)

var minMetadataSize = int64(rsaKeySize + len(metadataMarker))

// metadata is the parsed trailing region of one container.
type metadata struct {
	// fileSize is the adjusted plaintext-region end: the container size with
	// the metadata window remainder and the optional end tag excluded.
	fileSize int64

	// keyBlob is the raw wrapped-key material following the marker.
	keyBlob []byte

	chunked    bool
	chunkSize  int64
	chunkSpace int64
	encSize    int64
}

// locateMetadata finds the trailing metadata in f, which must be the working
// copy opened read-write: an optional fixed end tag is stripped from the copy
// as a side effect, exactly as the original size bookkeeping demands.
func locateMetadata(f *os.File) (*metadata, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("getting file info: %w", err)
	}

	size := stat.Size()

	if size < int64(len(endTagMarker)) {
		return nil, ErrTooSmall
	}

	tag := make([]byte, len(endTagMarker))
	if _, err := f.ReadAt(tag, size-int64(len(endTagMarker))); err != nil {
		return nil, fmt.Errorf("reading end tag: %w", err)
	}

	if bytes.Equal(tag, endTagMarker) {
		size -= int64(len(endTagMarker))

		if err := f.Truncate(size); err != nil {
			return nil, fmt.Errorf("stripping end tag: %w", err)
		}
	}

	if size < minMetadataSize {
		return nil, ErrTooSmall
	}

	window := size
	if window > maxMetadataSize {
		window = maxMetadataSize
	}

	buf := make([]byte, window)
	if _, err := f.ReadAt(buf, size-window); err != nil {
		return nil, fmt.Errorf("reading metadata window: %w", err)
	}

	idx := bytes.Index(buf, metadataMarker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q absent in trailing window", ErrMarkerNotFound, metadataMarker)
	}

	md := &metadata{
		fileSize: size - (window - int64(idx)),
	}

	rest := buf[idx+len(metadataMarker):]

	if err := md.parseChunkInfo(rest); err != nil {
		return nil, err
	}

	return md, nil
}

// parseChunkInfo classifies the container as chunked or full/fast. Chunked
// containers append textual chunk geometry after the wrapped key; its absence
// means the whole remainder is key material.
func (md *metadata) parseChunkInfo(rest []byte) error {
	pos := bytes.Index(rest, chunkSizeMarker)
	if pos < 0 {
		md.keyBlob = rest

		return nil
	}

	md.chunked = true
	md.keyBlob = rest[:pos]

	rest = rest[pos+len(chunkSizeMarker):]

	chunkSize, rest, err := scaledField(rest, chunkSpaceMarker)
	if err != nil {
		return err
	}

	chunkSpace, rest, err := scaledField(rest, chunkEndMarker)
	if err != nil {
		return err
	}

	sizePos := bytes.Index(rest, encSizeMarker)
	if sizePos < 0 {
		return fmt.Errorf("%w: %q absent in chunk info", ErrMarkerNotFound, encSizeMarker)
	}

	encSize, err := strconv.ParseInt(string(bytes.TrimSpace(rest[sizePos+len(encSizeMarker):])), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: encrypted size: %v", ErrMarkerNotFound, err)
	}

	md.chunkSize = chunkSize
	md.chunkSpace = chunkSpace
	md.encSize = encSize

	return nil
}

// scaledField parses the decimal field preceding delim and scales it by the
// block unit, truncating like the source format does.
func scaledField(data []byte, delim []byte) (int64, []byte, error) {
	end := bytes.Index(data, delim)
	if end < 0 {
		return 0, nil, fmt.Errorf("%w: %q absent in chunk info", ErrMarkerNotFound, delim)
	}

	value, err := strconv.ParseFloat(string(bytes.TrimSpace(data[:end])), 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: chunk field: %v", ErrMarkerNotFound, err)
	}

	return int64(value * blockUnit), data[end+len(delim):], nil
}
