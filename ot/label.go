//
// label.go
//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Wire implements a wire with 0 and 1 labels.
type Wire struct {
	L0 Label
	L1 Label
}

func (w Wire) String() string {
	return fmt.Sprintf("%s/%s", w.L0, w.L1)
}

// Label implements a 128 bit block. The D0 holds the high and D1 the
// low 64 bits of the block.
type Label struct {
	D0 uint64
	D1 uint64
}

// LabelData contains lable data as byte array.
type LabelData [16]byte

func (l Label) String() string {
	return fmt.Sprintf("%016x%016x", l.D0, l.D1)
}

// Equal test if the labels are equal.
func (l Label) Equal(o Label) bool {
	return l.D0 == o.D0 && l.D1 == o.D1
}

// NewLabel creates a new random label.
func NewLabel(rand io.Reader) (Label, error) {
	var buf LabelData
	var label Label

	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return label, err
	}
	label.SetData(&buf)
	return label, nil
}

// Bit returns the label bit i. Bits 0-63 are in D1 and bits 64-127
// in D0.
func (l Label) Bit(i int) uint {
	if i < 64 {
		return uint(l.D1>>i) & 1
	}
	return uint(l.D0>>(i-64)) & 1
}

// SetBit sets the label bit i to the value v.
func (l *Label) SetBit(i int, v uint) {
	if i < 64 {
		l.D1 &^= 1 << i
		l.D1 |= uint64(v&1) << i
	} else {
		l.D0 &^= 1 << (i - 64)
		l.D0 |= uint64(v&1) << (i - 64)
	}
}

// Xor xors the label with the argument label.
func (l *Label) Xor(o Label) {
	l.D0 ^= o.D0
	l.D1 ^= o.D1
}

// And ands the label with the argument label.
func (l *Label) And(o Label) {
	l.D0 &= o.D0
	l.D1 &= o.D1
}

// Mask clears all but the low bits of the label.
func (l *Label) Mask(bits int) {
	switch {
	case bits >= 128:
	case bits > 64:
		l.D0 &= (1 << (bits - 64)) - 1
	case bits == 64:
		l.D0 = 0
	default:
		l.D0 = 0
		l.D1 &= (1 << bits) - 1
	}
}

// GetData gets the labels as label data.
func (l Label) GetData(buf *LabelData) {
	binary.BigEndian.PutUint64(buf[0:8], l.D0)
	binary.BigEndian.PutUint64(buf[8:16], l.D1)
}

// SetData sets the labels from label data.
func (l *Label) SetData(data *LabelData) {
	l.D0 = binary.BigEndian.Uint64((*data)[0:8])
	l.D1 = binary.BigEndian.Uint64((*data)[8:16])
}

// Bytes returns the label data as bytes.
func (l Label) Bytes(buf *LabelData) []byte {
	l.GetData(buf)
	return buf[:]
}

// SetBytes sets the label data from bytes.
func (l *Label) SetBytes(data []byte) {
	l.D0 = binary.BigEndian.Uint64(data[0:8])
	l.D1 = binary.BigEndian.Uint64(data[8:16])
}

// Pair holds a 128 bit block as two 64 bit integers. It is the
// interchange format for hosts that pass blocks as integer pairs.
type Pair struct {
	First  uint64
	Second uint64
}

// Label converts the pair to a label. The first integer becomes the
// high and the second the low half of the label.
func (p Pair) Label() Label {
	return Label{
		D0: p.First,
		D1: p.Second,
	}
}

// Pair converts the label to a pair.
func (l Label) Pair() Pair {
	return Pair{
		First:  l.D0,
		Second: l.D1,
	}
}

// PairsToLabels converts the pairs to labels.
func PairsToLabels(pairs []Pair) []Label {
	result := make([]Label, len(pairs))
	for i, p := range pairs {
		result[i] = p.Label()
	}
	return result
}

// LabelsToPairs converts the labels to pairs.
func LabelsToPairs(labels []Label) []Pair {
	result := make([]Pair, len(labels))
	for i, l := range labels {
		result[i] = l.Pair()
	}
	return result
}
