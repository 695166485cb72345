package rcru64

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
)

// The family brands each victim with a short ID and a random ransom
// extension, both drawn from a 32-bit Mersenne Twister over a biased charset
// (note the missing 'E' and the cap at index 50 — faithfully reproduced).
const (
	victimIDLen  = 5
	ransomExtLen = 3

	idChars        = "0123456789abcdefghijklmnopqrstuvwxyzABCDFGHIJKLMNOPQRSTUVWXYZ"
	idCharMaxIndex = 50
)

const twisterLen = 624

// twister is the untempered-array Mersenne Twister variant the sample ships.
type twister struct {
	state [twisterLen]uint32
	index int
}

func newTwister(seed uint32) *twister {
	tw := &twister{}
	tw.state[0] = seed

	for i := uint32(1); i < twisterLen; i++ {
		prev := tw.state[i-1]
		tw.state[i] = 0x6C078965*(prev^(prev>>30)) + i
	}

	return tw
}

// generate refills the state array with untempered values.
func (tw *twister) generate() {
	for i := 0; i < twisterLen; i++ {
		v := (tw.state[i] & 0x80000000) + (tw.state[(i+1)%twisterLen] & 0x7FFFFFFF)
		tw.state[i] = tw.state[(i+397)%twisterLen] ^ (v >> 1)

		if v&1 != 0 {
			tw.state[i] ^= 0x9908B0DF
		}
	}
}

// next returns one tempered output.
func (tw *twister) next() uint32 {
	if tw.index == 0 {
		tw.generate()
	}

	v := tw.state[tw.index]
	v ^= v >> 11
	v ^= (v << 7) & 0x9D2C5680
	v ^= (v << 15) & 0xEFC60000
	v ^= v >> 18

	tw.index = (tw.index + 1) % twisterLen

	return v
}

// randomString draws length characters from the biased charset and
// upper-cases the result, matching the sample's ID generator.
func (tw *twister) randomString(length int) string {
	var sb strings.Builder

	for i := 0; i < length; i++ {
		sb.WriteByte(idChars[tw.next()%(idCharMaxIndex+1)])
	}

	return strings.ToUpper(sb.String())
}

// GenerateID produces a victim ID and ransom extension the way an infection
// would, seeded from the system entropy source.
func GenerateID() (victimID, ransomExt string, err error) {
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", "", fmt.Errorf("seeding generator: %w", err)
	}

	tw := newTwister(binary.LittleEndian.Uint32(seed[:]))

	return tw.randomString(victimIDLen), "." + tw.randomString(ransomExtLen), nil
}
