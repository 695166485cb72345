package rcru64

import (
	"encoding/binary"
	"math/bits"
)

// The per-chunk nonce generator is a fixed add-rotate-xor network seeded from
// its own previous output. Every constant and rotation amount below is part
// of the file format: a single deviation desynchronizes the nonce stream and
// every chunk after the first decrypts to garbage.
const (
	rnd64Const1 = 0xDEADBEEFDEADBEEF
	rnd64Const2 = 0xE6ADBEEFDEADBEEF

	rnd64A1 = 4815
	rnd64A2 = 4815
)

// rnd64InitState seeds the generator before the first sequenced chunk.
var rnd64InitState = []byte("sxuojgdg")

// chunkNonceSize is the GCM nonce length used by sequenced chunks.
const chunkNonceSize = 12

// rnd64Seed runs the ARX network once. It returns the output word and the
// follow-on internal word; callers that thread state through bytes only use
// the first.
func rnd64Seed(state, a1, a2 uint64) (out, next uint64) {
	x1 := state + rnd64Const1
	y1 := bits.RotateLeft64(x1, 15)
	x2 := (x1 ^ rnd64Const2) + y1
	y2 := bits.RotateLeft64(x2, -12)
	x3 := (a1 ^ x2) + y2
	y3 := bits.RotateLeft64(x3, 26)
	x4 := (a2 ^ x3) + y3
	y4 := bits.RotateLeft64(x4, -13)
	x5 := (y1 ^ x4) + y4
	y5 := bits.RotateLeft64(x5, 28)
	x6 := (y2 ^ x5) + y5
	y6 := bits.RotateLeft64(x6, 9)
	x7 := (y3 ^ x6) + y6
	y7 := bits.RotateLeft64(x7, -17)
	x8 := (y4 ^ x7) + y7
	y8 := bits.RotateLeft64(x8, -10)
	x9 := (y5 ^ x8) + y8
	x10 := (y6 ^ x9) + bits.RotateLeft64(x9, -32)
	x11 := (y7 ^ x10) + bits.RotateLeft64(x10, 25)
	y12 := bits.RotateLeft64(x11, -1)
	x12 := (y8 ^ x11) + y12

	return y12, x12
}

// rnd64Next advances the byte-level state: the input is read little-endian,
// the output word is serialized big-endian. The returned bytes double as both
// nonce material and the next state.
func rnd64Next(state []byte) []byte {
	word := binary.LittleEndian.Uint64(state[:8])
	out, _ := rnd64Seed(word, rnd64A1, rnd64A2)

	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, out)

	return next
}

// chunkNonce builds the 12-byte GCM nonce for one sequenced chunk from the
// 8-byte generator output: the output followed by its own last four bytes.
func chunkNonce(state []byte) []byte {
	nonce := make([]byte, 0, chunkNonceSize)
	nonce = append(nonce, state[:8]...)
	nonce = append(nonce, state[4:8]...)

	return nonce
}
