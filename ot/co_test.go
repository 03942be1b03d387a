//
// co_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/env"
)

func TestCOGroupMismatch(t *testing.T) {
	pipe, rPipe := NewPipe()

	if err := SendString(pipe, "P-256"); err != nil {
		t.Fatal(err)
	}
	if err := pipe.Flush(); err != nil {
		t.Fatal(err)
	}
	co := NewCO(nil)
	err := co.InitReceiver(rPipe)
	if err == nil {
		t.Fatalf("InitReceiver accepted wrong group")
	}
	if !errors.Is(err, env.ErrProtocol) {
		t.Errorf("InitReceiver: got %v, expected protocol error", err)
	}
}

func TestCODeterministicRand(t *testing.T) {
	// Seeded entropy sources give a working transfer.
	testOT(NewCO(NewPRNG(Label{D1: 1})), NewCO(NewPRNG(Label{D1: 2})),
		false, t)
}

func TestCOInvalidPoints(t *testing.T) {
	sPipe, rPipe := NewPipe()

	done := make(chan error)
	go func() {
		// Answer the sender's point with a truncated point list.
		if _, err := rPipe.ReceiveData(); err != nil {
			done <- err
			return
		}
		if err := rPipe.SendData(make([]byte, pointSize)); err != nil {
			done <- err
			return
		}
		done <- rPipe.Flush()
	}()

	co := NewCO(nil)
	co.io = sPipe
	err := co.Send(make([]Wire, 2))
	if !errors.Is(err, env.ErrProtocol) {
		t.Errorf("Send: got %v, expected protocol error", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
