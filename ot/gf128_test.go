//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"math/rand"
	"testing"
)

func mul128Ref(a, b Label) (lo, hi Label) {
	var r [256]uint

	for i := 0; i < 128; i++ {
		if a.Bit(i) == 0 {
			continue
		}
		for j := 0; j < 128; j++ {
			r[i+j] ^= b.Bit(j)
		}
	}
	for i := 0; i < 128; i++ {
		lo.SetBit(i, r[i])
		hi.SetBit(i, r[128+i])
	}
	return
}

func TestMul128Basic(t *testing.T) {
	var zero Label
	one := Label{D1: 1}

	// 0 * x = 0
	lo, hi := mul128(zero, Label{D0: 0xdeadbeef, D1: 0x12345678})
	if lo != zero || hi != zero {
		t.Fatal("0*x != 0")
	}

	// 1 * x = x
	x := Label{D0: 0x1234, D1: 0xabcdef}
	lo, hi = mul128(one, x)
	if lo != x || hi != zero {
		t.Fatal("1*x != x")
	}

	// x * x = x^2
	a := Label{D1: 2}
	lo, hi = mul128(a, a)
	if lo.D1 != 4 || lo.D0 != 0 || hi != zero {
		t.Fatal("x*x != x^2")
	}
}

func TestMul128Cross(t *testing.T) {
	// x^63 * x^63 = x^126
	a := Label{D1: 1 << 63}

	lo, hi := mul128(a, a)

	expLo := Label{D0: 1 << 62}
	if lo != expLo || hi != (Label{}) {
		t.Fatalf("got lo=%v hi=%v, expected lo=%v", lo, hi, expLo)
	}
}

func TestMul128Random(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a := Label{D0: rng.Uint64(), D1: rng.Uint64()}
		b := Label{D0: rng.Uint64(), D1: rng.Uint64()}

		lo1, hi1 := mul128(a, b)
		lo2, hi2 := mul128Ref(a, b)

		if lo1 != lo2 || hi1 != hi2 {
			t.Fatalf("mismatch on %v * %v", a, b)
		}
	}
}

func TestInnerProductLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := make([]Label, 16)
	b := make([]Label, 16)
	for i := range a {
		a[i] = Label{D0: rng.Uint64(), D1: rng.Uint64()}
		b[i] = Label{D0: rng.Uint64(), D1: rng.Uint64()}
	}
	lo, hi := vectorInnPrdtSumNoRed(a, b)

	var elo, ehi Label
	for i := range a {
		l, h := mul128Ref(b[i], a[i])
		elo.Xor(l)
		ehi.Xor(h)
	}
	if lo != elo || hi != ehi {
		t.Errorf("inner product mismatch")
	}
}

func BenchmarkMul128(b *testing.B) {
	var b0, b1 Label

	for b.Loop() {
		lo, hi := mul128(b0, b1)
		_ = lo
		_ = hi
	}
}
