package rcru64

import "errors"

var (
	// ErrTooSmall is returned when the file cannot hold the minimum metadata.
	ErrTooSmall = errors.New("file too small for metadata")
	// ErrMarkerNotFound is returned when a required metadata marker is absent.
	ErrMarkerNotFound = errors.New("metadata marker not found")
	// ErrInvalidPrivateKey is returned when RSA unwrap of the key blob fails.
	ErrInvalidPrivateKey = errors.New("private key does not unwrap key blob")
	// ErrMalformedKeyBlob is returned when the decrypted key blob lacks its
	// delimiting markers or yields unusable key material.
	ErrMalformedKeyBlob = errors.New("malformed key blob")
	// ErrFastNonceRequired is returned when a big file needs the externally
	// recovered fast-mode nonce and none was supplied.
	ErrFastNonceRequired = errors.New("fast-mode nonce required for big file")
)
