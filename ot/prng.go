//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
)

var (
	_ io.Reader = &PRNG{}
)

// PRNG implements a seeded pseudorandom generator. Two PRNGs created
// from the same seed produce the same output stream.
type PRNG struct {
	stream *chacha20.Cipher
	buf    [16]byte
}

// NewPRNG creates a new PRNG from the seed.
func NewPRNG(seed Label) *PRNG {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte

	binary.BigEndian.PutUint64(key[0:8], seed.D0)
	binary.BigEndian.PutUint64(key[8:16], seed.D1)

	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// Key and nonce have fixed valid sizes.
		panic(err)
	}
	return &PRNG{
		stream: stream,
	}
}

// NewRandomPRNG creates a new PRNG with a seed from rand.
func NewRandomPRNG(rand io.Reader) (*PRNG, error) {
	seed, err := NewLabel(rand)
	if err != nil {
		return nil, err
	}
	return NewPRNG(seed), nil
}

// Read implements io.Reader.
func (prng *PRNG) Read(p []byte) (int, error) {
	clear(p)
	prng.stream.XORKeyStream(p, p)
	return len(p), nil
}

// Label returns the next label from the stream.
func (prng *PRNG) Label() Label {
	var l Label
	prng.Read(prng.buf[:])
	l.SetBytes(prng.buf[:])
	return l
}

// Labels fills the labels from the stream.
func (prng *PRNG) Labels(labels []Label) {
	for i := range labels {
		labels[i] = prng.Label()
	}
}

// Uint64 returns the next 64 bit value from the stream.
func (prng *PRNG) Uint64() uint64 {
	prng.Read(prng.buf[:8])
	return binary.BigEndian.Uint64(prng.buf[:8])
}

// Intn returns a value in the range [0,n). The function panics if
// n <= 0.
func (prng *PRNG) Intn(n int) int {
	if n <= 0 {
		panic("invalid argument to Intn")
	}
	limit := ^uint64(0) - ^uint64(0)%uint64(n)
	for {
		v := prng.Uint64()
		if v < limit {
			return int(v % uint64(n))
		}
	}
}

// Shuffle pseudo-randomizes the order of n elements using the swap
// function.
func (prng *PRNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := prng.Intn(i + 1)
		swap(i, j)
	}
}
