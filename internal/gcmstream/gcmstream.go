// Package gcmstream produces the raw AES-GCM keystream for arbitrary nonce
// lengths. The ransomware formats handled by this tool run GCM purely as a
// stream cipher and never verify an authentication tag, so decryption cannot
// go through cipher.AEAD.Open. This package derives the pre-counter block J0
// exactly as NIST SP 800-38D does (direct construction for 96-bit nonces,
// GHASH for every other length) and then applies the 32-bit wrapping counter
// mode GCM uses internally.
package gcmstream

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// BlockSize is the AES block size in bytes.
const BlockSize = 16

// XORKeyStream decrypts (or encrypts, the operation is symmetric) src into
// dst using the GCM keystream of block under nonce. dst and src may be the
// same slice. The nonce may have any non-zero length.
func XORKeyStream(block cipher.Block, nonce, dst, src []byte) error {
	if block.BlockSize() != BlockSize {
		return fmt.Errorf("gcmstream: cipher block size %d, want %d", block.BlockSize(), BlockSize)
	}

	if len(nonce) == 0 {
		return fmt.Errorf("gcmstream: empty nonce")
	}

	if len(dst) < len(src) {
		return fmt.Errorf("gcmstream: dst shorter than src")
	}

	counter := deriveJ0(block, nonce)

	var keystream [BlockSize]byte

	for i := 0; i < len(src); i += BlockSize {
		inc32(&counter)
		block.Encrypt(keystream[:], counter[:])

		n := len(src) - i
		if n > BlockSize {
			n = BlockSize
		}

		for j := 0; j < n; j++ {
			dst[i+j] = src[i+j] ^ keystream[j]
		}
	}

	return nil
}

// deriveJ0 computes the pre-counter block for the given nonce.
// For 96-bit nonces J0 = nonce || 0x00000001; otherwise
// J0 = GHASH_H(nonce zero-padded to a block boundary || [64-bit 0, bit length]).
func deriveJ0(block cipher.Block, nonce []byte) [BlockSize]byte {
	var j0 [BlockSize]byte

	if len(nonce) == 12 {
		copy(j0[:], nonce)
		j0[BlockSize-1] = 1

		return j0
	}

	var h [BlockSize]byte

	block.Encrypt(h[:], h[:])

	hashKey := loadFieldElement(h[:])

	var acc fieldElement

	rest := nonce
	for len(rest) > 0 {
		n := len(rest)
		if n > BlockSize {
			n = BlockSize
		}

		var chunk [BlockSize]byte

		copy(chunk[:], rest[:n])
		acc = gfMul(acc.xor(loadFieldElement(chunk[:])), hashKey)

		rest = rest[n:]
	}

	var lengths [BlockSize]byte

	binary.BigEndian.PutUint64(lengths[8:], uint64(len(nonce))*8)

	acc = gfMul(acc.xor(loadFieldElement(lengths[:])), hashKey)

	binary.BigEndian.PutUint64(j0[:8], acc.hi)
	binary.BigEndian.PutUint64(j0[8:], acc.lo)

	return j0
}

// inc32 increments the rightmost 32 bits of the counter, wrapping without
// carry into the upper 96 bits.
func inc32(counter *[BlockSize]byte) {
	ctr := binary.BigEndian.Uint32(counter[BlockSize-4:])
	binary.BigEndian.PutUint32(counter[BlockSize-4:], ctr+1)
}

// fieldElement is a GF(2^128) element in GCM's bit-reflected representation,
// hi holding the first eight bytes of the block.
type fieldElement struct {
	hi, lo uint64
}

func loadFieldElement(b []byte) fieldElement {
	return fieldElement{
		hi: binary.BigEndian.Uint64(b[:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

func (e fieldElement) xor(o fieldElement) fieldElement {
	return fieldElement{hi: e.hi ^ o.hi, lo: e.lo ^ o.lo}
}

// gfMul multiplies x by y in GF(2^128) modulo the GCM polynomial. Bit-serial,
// which is plenty: it only ever runs over a handful of nonce blocks per file.
func gfMul(x, y fieldElement) fieldElement {
	var z fieldElement

	v := y

	for i := 0; i < 128; i++ {
		var bit uint64
		if i < 64 {
			bit = (x.hi >> (63 - i)) & 1
		} else {
			bit = (x.lo >> (127 - i)) & 1
		}

		if bit == 1 {
			z = z.xor(v)
		}

		carry := v.lo & 1
		v.lo = v.lo>>1 | v.hi<<63
		v.hi >>= 1

		if carry == 1 {
			v.hi ^= 0xe100000000000000
		}
	}

	return z
}
