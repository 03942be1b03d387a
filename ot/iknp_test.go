//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/env"
)

// tamperIO flips the lowest bit of the first SendData payload after
// it is armed.
type tamperIO struct {
	IO
	armed bool
}

func (t *tamperIO) SendData(val []byte) error {
	if t.armed && len(val) > 0 {
		t.armed = false
		val = append([]byte(nil), val...)
		val[0] ^= 1
	}
	return t.IO.SendData(val)
}

type iknpRun struct {
	n         int
	malicious bool
	delta     *Label
	tamper    bool
}

type iknpResult struct {
	flags []bool
	sent  []Label
	rcvd  []Label
	delta Label
	errS  error
	errR  error
}

func runIKNP(run iknpRun) iknpResult {
	c0, c1 := NewPipe()
	tio := &tamperIO{IO: c1}

	result := iknpResult{
		flags: randomBools(run.n),
		rcvd:  make([]Label, run.n),
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer c1.Close()

		base := NewCO(rand.Reader)
		if err := base.InitReceiver(c1); err != nil {
			result.errR = err
			return
		}
		r, err := NewIKNPReceiver(base, tio, rand.Reader)
		if err != nil {
			result.errR = err
			return
		}
		tio.armed = run.tamper
		result.errR = r.Receive(result.flags, result.rcvd, run.malicious)
	}()

	go func() {
		defer wg.Done()
		defer c0.Close()

		base := NewCO(rand.Reader)
		if err := base.InitSender(c0); err != nil {
			result.errS = err
			return
		}
		s, err := NewIKNPSender(base, c0, rand.Reader, run.delta)
		if err != nil {
			result.errS = err
			return
		}
		result.delta = s.Delta
		result.sent, result.errS = s.Send(run.n, run.malicious)
	}()

	wg.Wait()
	return result
}

func (r iknpResult) verify() error {
	if r.errS != nil {
		return fmt.Errorf("sender: %v", r.errS)
	}
	if r.errR != nil {
		return fmt.Errorf("receiver: %v", r.errR)
	}
	if len(r.sent) != len(r.rcvd) {
		return fmt.Errorf("len(sent)=%v != len(rcvd)=%v",
			len(r.sent), len(r.rcvd))
	}
	for i, b0 := range r.sent {
		b1 := b0
		if r.flags[i] {
			b1.Xor(r.delta)
		}
		if !r.rcvd[i].Equal(b1) {
			return fmt.Errorf("OT[%d] mismatch: %v != %v", i, r.rcvd[i], b1)
		}
	}
	return nil
}

func TestIKNPSizes(t *testing.T) {
	for _, n := range []int{1, 7, 8, 127, 128, 129, 1000, 2049} {
		for _, malicious := range []bool{false, true} {
			name := fmt.Sprintf("n=%v/malicious=%v", n, malicious)
			t.Run(name, func(t *testing.T) {
				res := runIKNP(iknpRun{
					n:         n,
					malicious: malicious,
				})
				if err := res.verify(); err != nil {
					t.Fatal(err)
				}
			})
		}
	}
}

func TestIKNPFixedDelta(t *testing.T) {
	delta := Label{D0: 0x0f0f0f0f0f0f0f0f, D1: 0xf0f0f0f0f0f0f0f0}

	res := runIKNP(iknpRun{
		n:     300,
		delta: &delta,
	})
	if err := res.verify(); err != nil {
		t.Fatal(err)
	}
	if !res.delta.Equal(delta) {
		t.Errorf("delta: got %v, expected %v", res.delta, delta)
	}
}

func TestIKNPTamper(t *testing.T) {
	// With an all-ones delta every flipped column bit reaches the
	// sender's rows.
	delta := Label{D0: ^uint64(0), D1: ^uint64(0)}

	res := runIKNP(iknpRun{
		n:         200,
		malicious: true,
		delta:     &delta,
		tamper:    true,
	})
	if res.errS == nil {
		t.Fatalf("sender accepted tampered columns")
	}
	if !errors.Is(res.errS, env.ErrProtocol) {
		t.Errorf("sender: got %v, expected protocol error", res.errS)
	}
	if res.errR != nil {
		t.Errorf("receiver: %v", res.errR)
	}

	// Without the check the tampered row is silently wrong.
	res = runIKNP(iknpRun{
		n:      200,
		delta:  &delta,
		tamper: true,
	})
	if res.errS != nil || res.errR != nil {
		t.Fatalf("semi-honest run failed: %v, %v", res.errS, res.errR)
	}
	if err := res.verify(); err == nil {
		t.Errorf("tampered row verified")
	}
}

func BenchmarkIKNPExpand1K(b *testing.B) {
	benchmarkIKNPExpand(b, 1000, false)
}

func BenchmarkIKNPExpand100K(b *testing.B) {
	benchmarkIKNPExpand(b, 100000, false)
}

func BenchmarkIKNPExpandMalicious1K(b *testing.B) {
	benchmarkIKNPExpand(b, 1000, true)
}

func BenchmarkIKNPExpandMalicious100K(b *testing.B) {
	benchmarkIKNPExpand(b, 100000, true)
}

func benchmarkIKNPExpand(b *testing.B, n int, malicious bool) {
	for i := 0; i < b.N; i++ {
		res := runIKNP(iknpRun{
			n:         n,
			malicious: malicious,
		})
		if err := res.verify(); err != nil {
			b.Fatal(err)
		}
	}
}

func randomBools(n int) []bool {
	buf := make([]byte, (n+7)/8)
	rand.Read(buf)
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = ((buf[i/8] >> uint(i%8)) & 1) == 1
	}
	return out
}

func TestXOR(t *testing.T) {
	a := []byte{0b00000001, 0b00000010, 0b00000100, 0b00001000}
	b := []byte{0xff, 0xff, 0xff}

	r := xor(a, b)
	if !bytes.Equal(r, []byte{0b11111110, 0b11111101, 0b11111011}) {
		t.Errorf("xor: got %x", r)
	}
	if a[3] != 0b00001000 {
		t.Errorf("xor modified data past the shorter operand")
	}
}
