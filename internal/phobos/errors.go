package phobos

import "errors"

var (
	// ErrTooSmall is returned when the file cannot hold the trailing metadata record.
	ErrTooSmall = errors.New("file too small for metadata")
	// ErrTruncated is returned when a footer field points past the available data.
	ErrTruncated = errors.New("footer truncated")
	// ErrKeyNotFound is returned when no keystore entry matches the wrapped key.
	ErrKeyNotFound = errors.New("wrapped key not found in keystore")
	// ErrInvalidMode is returned for an unknown mode code or a magic mismatch.
	ErrInvalidMode = errors.New("invalid encryption mode")
	// ErrIntegrityFailure is returned when the chunk payload CRC32 does not match.
	ErrIntegrityFailure = errors.New("chunk data checksum mismatch")
	// ErrInvalidKeystore is returned when the keystore header or CRC32 is inconsistent.
	ErrInvalidKeystore = errors.New("invalid keystore data")
	// ErrBadFilename is returned when the original-filename field is unterminated.
	ErrBadFilename = errors.New("malformed original filename")
)
