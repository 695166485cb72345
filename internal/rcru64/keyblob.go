package rcru64

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Textual markers delimiting the key and nonce inside the unwrapped blob.
var (
	keyDataMarker1 = []byte("d7j3")
	keyDataMarker2 = []byte("y9a0")
	keyDataMarker3 = []byte("m5ha")
)

// unwrapKeyBlob decrypts the wrapped key blob with the recovered RSA private
// key and extracts the AES key and base nonce between their markers.
func unwrapKeyBlob(blob []byte, priv *rsa.PrivateKey) (key, nonce []byte, err error) {
	if len(blob) < rsaKeySize {
		return nil, nil, fmt.Errorf("%w: wrapped blob is %d bytes, want at least %d",
			ErrMalformedKeyBlob, len(blob), rsaKeySize)
	}

	plain, err := rsa.DecryptPKCS1v15(nil, priv, blob[:rsaKeySize])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	key, rest, err := delimitedField(plain, keyDataMarker1, keyDataMarker2)
	if err != nil {
		return nil, nil, err
	}

	nonce, _, err = delimitedField(rest, nil, keyDataMarker3)
	if err != nil {
		return nil, nil, err
	}

	return key, nonce, nil
}

// delimitedField returns the bytes between the end of start and the beginning
// of end. A nil start means the field begins at the start of data.
func delimitedField(data, start, end []byte) (field, rest []byte, err error) {
	if start != nil {
		idx := bytes.Index(data, start)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %q absent", ErrMalformedKeyBlob, start)
		}

		data = data[idx+len(start):]
	}

	idx := bytes.Index(data, end)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: %q absent", ErrMalformedKeyBlob, end)
	}

	return data[:idx], data[idx+len(end):], nil
}

// LoadPrivateKey reads an RSA private key file. Accepts PEM, bare base64 of
// DER (the layout recovered key dumps usually use), or raw DER, in either
// PKCS#1 or PKCS#8 encoding.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	der := raw

	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	} else if decoded, err := base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(raw), nil))); err == nil {
		der = decoded
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parsing private key: not an RSA key")
	}

	return key, nil
}
