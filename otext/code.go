//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otext

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/markkurossi/otpsi/ot"
	"github.com/zeebo/blake3"
)

// block512 holds one code word. Bit j is bit j%64 of word j/64.
type block512 [codeWords]uint64

func (b *block512) xor(o *block512) {
	for i := range b {
		b[i] ^= o[i]
	}
}

func (b *block512) and(o *block512) {
	for i := range b {
		b[i] &= o[i]
	}
}

func (b *block512) bit(j int) uint {
	return uint(b[j/64]>>(j%64)) & 1
}

func (b *block512) putBytes(buf []byte) {
	for i, w := range b {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
}

func (b *block512) setBytes(buf []byte) {
	for i := range b {
		b[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
}

// transpose512 converts the CodeBits columns of rowBytes bytes into m
// code word rows.
func transpose512(cols []byte, rowBytes, m int) []block512 {
	rows := make([]block512, m)
	for j := 0; j < CodeBits; j++ {
		col := cols[j*rowBytes : (j+1)*rowBytes]
		word := j / 64
		bit := uint64(1) << (j % 64)
		for i := 0; i < m; i++ {
			if (col[i/8]>>(i%8))&1 == 1 {
				rows[i][word] |= bit
			}
		}
	}
	return rows
}

// padHash hashes the code word of the instance idx into an output
// pad.
func padHash(idx int, v *block512) ot.Label {
	var buf [8 + codeBytes]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(idx))
	v.putBytes(buf[8:])

	sum := blake3.Sum256(buf[:])

	var l ot.Label
	l.SetBytes(sum[:16])
	return l
}

// code maps the extension inputs to code words.
type code interface {
	encode(x ot.Label) block512
}

func newCode(variant Variant, seed ot.Label, inputBits int) code {
	switch variant {
	case OOS:
		return newLinearCode(seed, inputBits)
	default:
		return newPseudorandomCode(seed)
	}
}

// pseudorandomCode encodes inputs with four AES keys. Each key
// produces one 128-bit quarter of the code word.
type pseudorandomCode struct {
	ciphers [codeWords / 2]cipher.Block
}

func newPseudorandomCode(seed ot.Label) *pseudorandomCode {
	prng := ot.NewPRNG(seed)
	c := new(pseudorandomCode)

	var ld ot.LabelData
	for i := range c.ciphers {
		key := prng.Label()
		block, err := aes.NewCipher(key.Bytes(&ld))
		if err != nil {
			// The key size is always valid.
			panic(err)
		}
		c.ciphers[i] = block
	}
	return c
}

func (c *pseudorandomCode) encode(x ot.Label) block512 {
	var in, out ot.LabelData
	var result block512

	x.GetData(&in)
	for i, blk := range c.ciphers {
		blk.Encrypt(out[:], in[:])
		result[2*i] = binary.BigEndian.Uint64(out[0:8])
		result[2*i+1] = binary.BigEndian.Uint64(out[8:16])
	}
	return result
}

// linearCode encodes inputs with a random generator matrix. The code
// is linear: C(x) ⊕ C(y) = C(x ⊕ y).
type linearCode struct {
	rows []block512
}

func newLinearCode(seed ot.Label, inputBits int) *linearCode {
	prng := ot.NewPRNG(seed)
	c := &linearCode{
		rows: make([]block512, inputBits),
	}
	for i := range c.rows {
		for j := range c.rows[i] {
			c.rows[i][j] = prng.Uint64()
		}
	}
	return c
}

func (c *linearCode) encode(x ot.Label) block512 {
	var result block512
	for i := range c.rows {
		if x.Bit(i) == 1 {
			result.xor(&c.rows[i])
		}
	}
	return result
}
