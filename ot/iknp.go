//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// IKNP OT Extension:
//
// Extending oblivious transfers efficiently
//  - https://www.iacr.org/archive/crypto2003/27290145/27290145.pdf
//
// More Efficient Oblivious Transfer and Extensions for Faster Secure
// Computation
//  - https://eprint.iacr.org/2013/552.pdf
//
// Better Concrete Security for Half-Gates Garbling (in the
// Multi-Instance Setting)
//  - https://eprint.iacr.org/2019/1168.pdf
//
// Actively Secure OT Extension with Optimal Overhead
//  - https://eprint.iacr.org/2015/546.pdf

/*

This implementation is derived from the EMP Toolkit's ikmp.h and cot.h
(https://github.com/emp-toolkit/emp-ot/blob/master/emp-ot/{ikmp,cot}.h)
with original license as follows:

MIT License

Copyright (c) 2018 Xiao Wang (wangxiao1254@gmail.com)

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.

Enquiries about further applications and development opportunities are welcome.

*/

package ot

import (
	"io"

	"github.com/markkurossi/otpsi/env"
)

const (
	// K defines the IKNP security parameter; the number of IKNP base
	// OTs.
	K = 128

	// kosRows defines the number of random rows the malicious
	// extension adds for the consistency check.
	kosRows = 256
)

// IKNPSender implements the random correlated OT sender.
type IKNPSender struct {
	// Delta defines the correlation delta: b1 = b0 ⊕ Δ
	Delta Label
	io    IO
	rand  io.Reader
	g     [K]*PRNG
}

// NewIKNPSender creates a new sender. The d is an optional delta. If
// unset, the function creates a random delta.
func NewIKNPSender(base OT, io IO, r io.Reader, d *Label) (*IKNPSender, error) {
	var delta Label
	var err error
	if d == nil {
		delta, err = NewLabel(r)
		if err != nil {
			return nil, err
		}
	} else {
		delta = *d
	}

	s := &IKNPSender{
		Delta: delta,
		io:    io,
		rand:  r,
	}

	var flags [K]bool
	for i := 0; i < K; i++ {
		flags[i] = delta.Bit(i) == 1
	}

	var k0 [K]Label
	err = base.Receive(flags[:], k0[:])
	if err != nil {
		return nil, err
	}
	for i := 0; i < K; i++ {
		s.g[i] = NewPRNG(k0[i])
	}

	return s, nil
}

// Send sends n labels. The function returns the b0 labels. The b1
// labels are b0[i] ⊕ s.Delta.
func (s *IKNPSender) Send(n int, malicious bool) ([]Label, error) {
	m := n
	if malicious {
		m += kosRows
	}
	rowBytes := (m + 7) / 8

	// The receiver sends the K*rowBytes-byte columns.
	u, err := s.io.ReceiveData()
	if err != nil {
		return nil, err
	}
	if len(u) != K*rowBytes {
		return nil, env.ProtocolErrorf("invalid column data size: %v", len(u))
	}
	q := make([]byte, K*rowBytes)
	for i := 0; i < K; i++ {
		col := q[i*rowBytes : (i+1)*rowBytes]
		s.g[i].Read(col)
		if s.Delta.Bit(i) == 1 {
			xor(col, u[i*rowBytes:])
		}
	}
	result := transpose(q, rowBytes, m)

	if !malicious {
		return result, nil
	}

	// Challenge the receiver after it has committed to its
	// columns.
	seed, err := NewLabel(s.rand)
	if err != nil {
		return nil, err
	}
	var ld LabelData
	if err := s.io.SendLabel(seed, &ld); err != nil {
		return nil, err
	}
	if err := s.io.Flush(); err != nil {
		return nil, err
	}
	chi := make([]Label, m)
	NewPRNG(seed).Labels(chi)

	var x, t0, t1 Label
	if err := s.io.ReceiveLabel(&x, &ld); err != nil {
		return nil, err
	}
	if err := s.io.ReceiveLabel(&t0, &ld); err != nil {
		return nil, err
	}
	if err := s.io.ReceiveLabel(&t1, &ld); err != nil {
		return nil, err
	}

	q0, q1 := vectorInnPrdtSumNoRed(chi, result)
	r0, r1 := mul128(x, s.Delta)
	t0.Xor(r0)
	t1.Xor(r1)

	if !q0.Equal(t0) || !q1.Equal(t1) {
		return nil, env.ProtocolErrorf("OT extension check failed")
	}

	return result[:n], nil
}

// IKNPReceiver implements the random correlated OT receiver.
type IKNPReceiver struct {
	io   IO
	rand io.Reader
	g0   [K]*PRNG
	g1   [K]*PRNG
}

// NewIKNPReceiver creates a new receiver.
func NewIKNPReceiver(base OT, io IO, rand io.Reader) (*IKNPReceiver, error) {
	var wires [K]Wire
	for i := 0; i < K; i++ {
		l0, err := NewLabel(rand)
		if err != nil {
			return nil, err
		}
		l1, err := NewLabel(rand)
		if err != nil {
			return nil, err
		}
		wires[i] = Wire{
			L0: l0,
			L1: l1,
		}
	}
	err := base.Send(wires[:])
	if err != nil {
		return nil, err
	}

	r := &IKNPReceiver{
		io:   io,
		rand: rand,
	}
	for i := 0; i < K; i++ {
		r.g0[i] = NewPRNG(wires[i].L0)
		r.g1[i] = NewPRNG(wires[i].L1)
	}

	return r, nil
}

// Receive labels based on the selection flags b. The returned labels
// implement the correlation: br[i] = b0[i] ⊕ b[i]*s.Delta. The
// function panics if b and result have different lengths.
func (r *IKNPReceiver) Receive(b []bool, result []Label, malicious bool) error {
	if len(b) != len(result) {
		panic("len(b) != len(result)")
	}
	m := len(b)
	if malicious {
		m += kosRows
	}
	rowBytes := (m + 7) / 8

	choices := make([]byte, rowBytes)
	for i, f := range b {
		if f {
			choices[i/8] |= 1 << (i % 8)
		}
	}
	if malicious {
		// Random choices for the check rows.
		var pad [kosRows / 8]byte
		if _, err := io.ReadFull(r.rand, pad[:]); err != nil {
			return err
		}
		for i := 0; i < kosRows; i++ {
			if (pad[i/8]>>(i%8))&1 == 1 {
				row := len(b) + i
				choices[row/8] |= 1 << (row % 8)
			}
		}
	}

	t := make([]byte, K*rowBytes)
	u := make([]byte, K*rowBytes)
	for i := 0; i < K; i++ {
		col := t[i*rowBytes : (i+1)*rowBytes]
		ucol := u[i*rowBytes : (i+1)*rowBytes]

		r.g0[i].Read(col)
		r.g1[i].Read(ucol)
		xor(ucol, col)
		xor(ucol, choices)
	}
	if err := r.io.SendData(u); err != nil {
		return err
	}
	if err := r.io.Flush(); err != nil {
		return err
	}
	rows := transpose(t, rowBytes, m)
	copy(result, rows)

	if !malicious {
		return nil
	}

	// Compute the receiver checksum and correlation tags.
	var seed Label
	var ld LabelData
	if err := r.io.ReceiveLabel(&seed, &ld); err != nil {
		return err
	}
	chi := make([]Label, m)
	NewPRNG(seed).Labels(chi)

	var x Label
	for i := 0; i < m; i++ {
		if (choices[i/8]>>(i%8))&1 == 1 {
			x.Xor(chi[i])
		}
	}
	t0, t1 := vectorInnPrdtSumNoRed(chi, rows)

	if err := r.io.SendLabel(x, &ld); err != nil {
		return err
	}
	if err := r.io.SendLabel(t0, &ld); err != nil {
		return err
	}
	if err := r.io.SendLabel(t1, &ld); err != nil {
		return err
	}
	return r.io.Flush()
}

// transpose converts the K columns of rowBytes bytes into m row
// labels. The bit i of column j becomes the bit j of row i.
func transpose(cols []byte, rowBytes, m int) []Label {
	rows := make([]Label, m)
	for j := 0; j < K; j++ {
		col := cols[j*rowBytes : (j+1)*rowBytes]
		for i := 0; i < m; i++ {
			if (col[i/8]>>(i%8))&1 == 1 {
				rows[i].SetBit(j, 1)
			}
		}
	}
	return rows
}
