//
// co.go
//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//
// Chou Orlandi OT - The Simplest Protocol for Oblivious Transfer.
//  - https://eprint.iacr.org/2015/267.pdf

package ot

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/bwesterb/go-ristretto"
	"github.com/zeebo/blake3"

	"github.com/markkurossi/otpsi/env"
)

// coGroup names the group the CO OT runs in. The peers compare names
// in the init handshake.
const coGroup = "ristretto255"

const pointSize = 32

var (
	_ OT = &CO{}
)

// xor xors b into a and returns the first min(len(a), len(b)) bytes
// of a.
func xor(a, b []byte) []byte {
	l := min(len(a), len(b))
	for i := 0; i < l; i++ {
		a[i] ^= b[i]
	}
	return a[:l]
}

// coKey derives the transfer key of the OT instance idx from the
// shared point.
func coKey(p *ristretto.Point, idx int) LabelData {
	var buf [pointSize + 8]byte
	p.BytesInto((*[pointSize]byte)(buf[:pointSize]))
	binary.BigEndian.PutUint64(buf[pointSize:], uint64(idx))

	sum := blake3.Sum256(buf[:])

	var key LabelData
	copy(key[:], sum[:])
	return key
}

// CO implements CO OT as the OT interface.
type CO struct {
	rand io.Reader
	io   IO
}

// NewCO creates a new CO OT implementing the OT interface. The r is
// the source of entropy for the OT secrets. If r is nil, the OT uses
// crypto/rand.Reader.
func NewCO(r io.Reader) *CO {
	if r == nil {
		r = rand.Reader
	}
	return &CO{
		rand: r,
	}
}

func (co *CO) scalar() (*ristretto.Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(co.rand, buf[:]); err != nil {
		return nil, err
	}
	return new(ristretto.Scalar).SetReduced(&buf), nil
}

// InitSender initializes the OT sender.
func (co *CO) InitSender(io IO) error {
	co.io = io
	if err := SendString(io, coGroup); err != nil {
		return err
	}
	return io.Flush()
}

// InitReceiver initializes the OT receiver.
func (co *CO) InitReceiver(io IO) error {
	co.io = io

	name, err := ReceiveString(io)
	if err != nil {
		return err
	}
	if name != coGroup {
		return env.ProtocolErrorf("invalid group %s, expected %s",
			name, coGroup)
	}
	return nil
}

// Send sends the wire labels with OT.
func (co *CO) Send(wires []Wire) error {
	// A = aG
	a, err := co.scalar()
	if err != nil {
		return err
	}
	A := new(ristretto.Point).ScalarMultBase(a)
	if err := co.io.SendData(A.Bytes()); err != nil {
		return err
	}
	if err := co.io.Flush(); err != nil {
		return err
	}
	// T = aA
	T := new(ristretto.Point).ScalarMult(A, a)

	data, err := co.io.ReceiveData()
	if err != nil {
		return err
	}
	if len(data) != len(wires)*pointSize {
		return env.ProtocolErrorf("CO: invalid point data size %d", len(data))
	}

	var B, k0, k1 ristretto.Point
	var pb [pointSize]byte
	var ld LabelData

	out := make([]byte, 0, len(wires)*2*len(ld))
	for i := range wires {
		copy(pb[:], data[i*pointSize:])
		if !B.SetBytes(&pb) {
			return env.ProtocolErrorf("CO: invalid point %d", i)
		}
		// k0 = aB, k1 = a(B-A)
		k0.ScalarMult(&B, a)
		k1.Sub(&k0, T)

		e := coKey(&k0, i)
		wires[i].L0.GetData(&ld)
		out = append(out, xor(e[:], ld[:])...)

		e = coKey(&k1, i)
		wires[i].L1.GetData(&ld)
		out = append(out, xor(e[:], ld[:])...)
	}
	if err := co.io.SendData(out); err != nil {
		return err
	}
	return co.io.Flush()
}

// Receive receives the wire labels with OT based on the flag values.
func (co *CO) Receive(flags []bool, result []Label) error {
	data, err := co.io.ReceiveData()
	if err != nil {
		return err
	}
	if len(data) != pointSize {
		return env.ProtocolErrorf("CO: invalid sender point size %d",
			len(data))
	}
	var pb [pointSize]byte
	var A ristretto.Point

	copy(pb[:], data)
	if !A.SetBytes(&pb) {
		return env.ProtocolErrorf("CO: invalid sender point")
	}

	bs := make([]*ristretto.Scalar, len(flags))
	points := make([]byte, len(flags)*pointSize)

	var B ristretto.Point
	for i := range flags {
		bs[i], err = co.scalar()
		if err != nil {
			return err
		}
		// B = bG or B = A + bG
		B.ScalarMultBase(bs[i])
		if flags[i] {
			B.Add(&A, &B)
		}
		B.BytesInto((*[pointSize]byte)(points[i*pointSize:]))
	}
	if err := co.io.SendData(points); err != nil {
		return err
	}
	if err := co.io.Flush(); err != nil {
		return err
	}

	data, err = co.io.ReceiveData()
	if err != nil {
		return err
	}
	const ctLen = len(LabelData{})
	if len(data) != len(flags)*2*ctLen {
		return env.ProtocolErrorf("CO: invalid ciphertext size %d", len(data))
	}

	var k ristretto.Point
	for i, flag := range flags {
		k.ScalarMult(&A, bs[i])
		key := coKey(&k, i)

		ofs := 2 * i * ctLen
		if flag {
			ofs += ctLen
		}
		result[i].SetBytes(xor(key[:], data[ofs:ofs+ctLen]))
	}
	return nil
}
