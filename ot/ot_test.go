//
// ot_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/env"
)

// transfer runs one OT of size wires between sender and receiver. The
// flags select every second wire and every wire whose index is a
// multiple of 3.
func transfer(sender, receiver OT, size int) ([]Wire, []bool, []Label,
	error) {

	wires := make([]Wire, size)
	flags := make([]bool, size)
	labels := make([]Label, size)

	for i := range wires {
		var err error
		wires[i].L0, err = NewLabel(rand.Reader)
		if err != nil {
			return nil, nil, nil, err
		}
		wires[i].L1, err = NewLabel(rand.Reader)
		if err != nil {
			return nil, nil, nil, err
		}
		flags[i] = i%2 == 0 || i%3 == 0
	}

	sPipe, rPipe := NewPipe()
	done := make(chan error)

	go func() {
		defer rPipe.Close()
		err := receiver.InitReceiver(rPipe)
		if err == nil {
			err = receiver.Receive(flags, labels)
		}
		done <- err
	}()

	err := sender.InitSender(sPipe)
	if err == nil {
		err = sender.Send(wires)
	}
	if err != nil {
		sPipe.Close()
		<-done
		return nil, nil, nil, err
	}
	if err := <-done; err != nil {
		return nil, nil, nil, fmt.Errorf("receiver: %v", err)
	}
	return wires, flags, labels, nil
}

func testOT(sender, receiver OT, random bool, t *testing.T) {
	for _, size := range []int{1, 9, 64, 130} {
		wires, flags, labels, err := transfer(sender, receiver, size)
		if err != nil {
			t.Fatalf("size %v: %v", size, err)
		}
		for i, flag := range flags {
			expected := wires[i].L0
			if flag {
				expected = wires[i].L1
			}
			if !labels[i].Equal(expected) {
				t.Fatalf("size %v: label %d mismatch %v %v",
					size, i, labels[i], wires[i])
			}
			if random && wires[i].L0.Equal(wires[i].L1) {
				t.Fatalf("size %v: random wire %d has equal labels", size, i)
			}
		}
	}
}

func TestOTCO(t *testing.T) {
	testOT(NewCO(rand.Reader), NewCO(rand.Reader), false, t)
}

func TestOTROT(t *testing.T) {
	for _, malicious := range []bool{false, true} {
		t.Run(fmt.Sprintf("malicious=%v", malicious), func(t *testing.T) {
			// ROT instances are single use.
			for _, size := range []int{1, 9, 130} {
				s := NewROT(NewCO(rand.Reader), rand.Reader, malicious)
				r := NewROT(NewCO(rand.Reader), rand.Reader, malicious)
				if s.IsMalicious() != malicious {
					t.Errorf("IsMalicious: got %v", s.IsMalicious())
				}
				wires, flags, labels, err := transfer(s, r, size)
				if err != nil {
					t.Fatalf("size %v: %v", size, err)
				}
				for i, flag := range flags {
					expected := wires[i].L0
					if flag {
						expected = wires[i].L1
					}
					if !labels[i].Equal(expected) {
						t.Fatalf("size %v: label %d mismatch", size, i)
					}
				}
			}
		})
	}
}

func TestROTRoles(t *testing.T) {
	rot := NewROT(NewCO(nil), rand.Reader, false)
	err := rot.Send(make([]Wire, 1))
	if !errors.Is(err, env.ErrProtocol) {
		t.Errorf("Send on uninitialized ROT: got %v", err)
	}
	err = rot.Receive(make([]bool, 1), make([]Label, 1))
	if !errors.Is(err, env.ErrProtocol) {
		t.Errorf("Receive on uninitialized ROT: got %v", err)
	}
}

func BenchmarkOTCO_128(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, _, _, err := transfer(NewCO(nil), NewCO(nil), 128); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkROT_1K(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := NewROT(NewCO(nil), rand.Reader, false)
		r := NewROT(NewCO(nil), rand.Reader, false)
		if _, _, _, err := transfer(s, r, 1024); err != nil {
			b.Fatal(err)
		}
	}
}
