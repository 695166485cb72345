package phobos

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
)

// Trailing metadata record layout. All offsets are fixed and relative to the
// start of the 0xB2-byte record at the very end of the file.
const (
	metadataSize = 0xB2

	ivPos          = 0x14
	ivSize         = 16
	paddingSizePos = 0x24
	wrappedKeyPos  = 0x28
	footerSizePos  = 0xA8
	attackerIDPos  = 0xAC
	attackerIDSize = 6
)

// Decrypted end-block layout (encryption info preceding the metadata record).
const (
	encModePos      = 4
	chunkInfoPos    = 0x0C
	chunkTablePos   = 0x20
	origFilenamePos = 0x18

	mode1Magic = 0xAF77BC0F
	mode2Magic = 0xF0A75E12
)

// metadata is the fixed-offset trailing record.
type metadata struct {
	iv          []byte
	wrappedKey  []byte
	paddingSize uint32
	footerSize  uint32
	attackerID  []byte
}

// readMetadata extracts the trailing metadata record. fileSize is the current
// size of f.
func readMetadata(f *os.File, fileSize int64) (*metadata, error) {
	if fileSize < metadataSize {
		return nil, ErrTooSmall
	}

	raw := make([]byte, metadataSize)
	if _, err := f.ReadAt(raw, fileSize-metadataSize); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	md := &metadata{
		iv:          raw[ivPos : ivPos+ivSize],
		wrappedKey:  raw[wrappedKeyPos : wrappedKeyPos+WrappedKeySize],
		paddingSize: binary.LittleEndian.Uint32(raw[paddingSizePos:]),
		footerSize:  binary.LittleEndian.Uint32(raw[footerSizePos:]),
		attackerID:  raw[attackerIDPos : attackerIDPos+attackerIDSize],
	}

	if md.footerSize <= metadataSize {
		return nil, fmt.Errorf("%w: footer size %#x not larger than metadata", ErrTruncated, md.footerSize)
	}

	if int64(md.footerSize) > fileSize {
		return nil, fmt.Errorf("%w: footer size %#x exceeds file size", ErrTruncated, md.footerSize)
	}

	return md, nil
}

// endBlockSize is the length of the encrypted encryption-info block that sits
// between the ciphertext body and the metadata record. It must be AES-aligned.
func (md *metadata) endBlockSize() (int64, error) {
	size := int64(md.footerSize) - metadataSize
	if size&0xF != 0 {
		return 0, fmt.Errorf("%w: end block size %#x not block-aligned", ErrTruncated, size)
	}

	return size, nil
}

// readEndBlock reads the raw (still encrypted) encryption-info block.
func (md *metadata) readEndBlock(f *os.File, fileSize int64) ([]byte, error) {
	size, err := md.endBlockSize()
	if err != nil {
		return nil, err
	}

	block := make([]byte, size)
	if _, err := f.ReadAt(block, fileSize-int64(md.footerSize)); err != nil {
		return nil, fmt.Errorf("reading end block: %w", err)
	}

	return block, nil
}

// encInfo is the decrypted encryption-info block.
type encInfo struct {
	mode     uint32
	origName string

	// mode 1 only
	numChunks uint32
	chunkSize uint32
	chunkCRC  uint32
	chunkPos  []uint64
	chunkData []byte
}

// parseEncInfo validates the mode code against its magic constant and pulls
// out the original file name plus, for scattered-chunk files, the placement
// table and payload.
func parseEncInfo(block []byte) (*encInfo, error) {
	if len(block) < origFilenamePos+4 {
		return nil, fmt.Errorf("%w: end block too short", ErrTruncated)
	}

	info := &encInfo{
		mode: binary.LittleEndian.Uint32(block[encModePos:]),
	}

	magic := binary.LittleEndian.Uint32(block[encModePos+4:])

	switch info.mode {
	case 1:
		if magic != mode1Magic {
			return nil, fmt.Errorf("%w: mode 1 magic %#x", ErrInvalidMode, magic)
		}
	case 2:
		if magic != mode2Magic {
			return nil, fmt.Errorf("%w: mode 2 magic %#x", ErrInvalidMode, magic)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidMode, info.mode)
	}

	name, err := parseOrigName(block)
	if err != nil {
		return nil, err
	}

	info.origName = name

	if info.mode == 1 {
		if err := info.parseChunkTable(block); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// parseOrigName decodes the UTF-16LE original file name and keeps only the
// component after the last backslash.
func parseOrigName(block []byte) (string, error) {
	pos := binary.LittleEndian.Uint32(block[origFilenamePos:])
	if int(pos) >= len(block) {
		return "", fmt.Errorf("%w: name offset %#x out of range", ErrBadFilename, pos)
	}

	end := -1

	for i := int(pos); i+1 < len(block); i += 2 {
		if block[i] == 0 && block[i+1] == 0 {
			end = i

			break
		}
	}

	if end < 0 {
		return "", fmt.Errorf("%w: missing terminator", ErrBadFilename)
	}

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

	name, err := decoder.Bytes(block[pos:end])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadFilename, err)
	}

	decoded := string(name)
	if i := bytes.LastIndexByte(name, '\\'); i >= 0 {
		decoded = decoded[i+1:]
	}

	if decoded == "" {
		return "", fmt.Errorf("%w: empty name", ErrBadFilename)
	}

	return decoded, nil
}

// parseChunkTable extracts the scattered-chunk placement table: a count, a
// uniform chunk size, the payload CRC32, destination offsets, and the
// contiguous decrypted payload that follows them.
func (info *encInfo) parseChunkTable(block []byte) error {
	info.numChunks = binary.LittleEndian.Uint32(block[chunkInfoPos:])
	info.chunkSize = binary.LittleEndian.Uint32(block[chunkInfoPos+4:])
	info.chunkCRC = binary.LittleEndian.Uint32(block[chunkInfoPos+8:])

	tableEnd := chunkTablePos + int64(info.numChunks)*8
	dataEnd := tableEnd + int64(info.numChunks)*int64(info.chunkSize)

	if dataEnd > int64(len(block)) {
		return fmt.Errorf("%w: chunk table needs %d bytes, end block has %d", ErrTruncated, dataEnd, len(block))
	}

	info.chunkPos = make([]uint64, info.numChunks)
	for i := range info.chunkPos {
		info.chunkPos[i] = binary.LittleEndian.Uint64(block[chunkTablePos+int64(i)*8:])
	}

	info.chunkData = block[tableEnd:dataEnd]

	return nil
}
