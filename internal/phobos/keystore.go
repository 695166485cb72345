package phobos

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
)

const (
	// WrappedKeySize is the length of an RSA-wrapped AES key in a keystore entry.
	WrappedKeySize = 128
	// AESKeySize is the length of the recovered AES-256 key.
	AESKeySize = 32

	keyEntrySize      = WrappedKeySize + AESKeySize
	keystoreHeaderLen = 8
	keystoreXOR       = 0x17F31AAB
)

// KeyEntry pairs a wrapped key with the AES key it decrypts to.
type KeyEntry struct {
	Wrapped []byte
	Key     []byte
}

// Keystore is the recovered wrapped-key → AES-key table. It is loaded once
// and read-only afterwards, so it may be shared across concurrent files.
type Keystore struct {
	entries []KeyEntry
}

// LoadKeystore reads and parses a base64-encoded keystore file.
func LoadKeystore(path string) (*Keystore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keystore: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(string(bytes.Join(bytes.Fields(raw), nil)))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidKeystore, err)
	}

	return ParseKeystore(decoded)
}

// ParseKeystore parses decoded keystore bytes. The 8-byte header carries the
// entry count and a CRC32 of the entry payload, both XOR-obfuscated with a
// fixed constant. The CRC must match or the whole keystore is rejected.
func ParseKeystore(data []byte) (*Keystore, error) {
	if len(data) < keystoreHeaderLen {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidKeystore)
	}

	count := binary.LittleEndian.Uint32(data[0:4]) ^ keystoreXOR
	sum := binary.LittleEndian.Uint32(data[4:8]) ^ keystoreXOR

	payloadLen := int(count) * keyEntrySize
	if len(data)-keystoreHeaderLen < payloadLen {
		return nil, fmt.Errorf("%w: %d entries but only %d payload bytes",
			ErrInvalidKeystore, count, len(data)-keystoreHeaderLen)
	}

	payload := data[keystoreHeaderLen : keystoreHeaderLen+payloadLen]

	if crc32.ChecksumIEEE(payload) != sum {
		return nil, fmt.Errorf("%w: payload CRC32 mismatch", ErrInvalidKeystore)
	}

	ks := &Keystore{entries: make([]KeyEntry, 0, count)}

	for off := 0; off < payloadLen; off += keyEntrySize {
		ks.entries = append(ks.entries, KeyEntry{
			Wrapped: payload[off : off+WrappedKeySize],
			Key:     payload[off+WrappedKeySize : off+keyEntrySize],
		})
	}

	return ks, nil
}

// Len returns the number of entries.
func (k *Keystore) Len() int { return len(k.entries) }

// Lookup returns the AES key of the first entry whose wrapped-key field is
// byte-equal to wrapped. On duplicate wrapped keys the first entry wins.
func (k *Keystore) Lookup(wrapped []byte) ([]byte, error) {
	for _, entry := range k.entries {
		if bytes.Equal(entry.Wrapped, wrapped) {
			return entry.Key, nil
		}
	}

	return nil, ErrKeyNotFound
}
