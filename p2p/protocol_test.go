//
// protocol_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
)

var tests = []interface{}{
	byte(42),
	uint16(43),
	uint32(44),
	"Hello, world!",
	ot.Label{D0: 0x0123456789abcdef, D1: 0xfedcba9876543210},
	make([]byte, 1024),
	make([]byte, 2*1024*1024),
	make([]byte, 8*1024*1024),
}

func writer(t *testing.T, c *Conn) {
	var ld ot.LabelData
	var err error

	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			err = c.SendByte(d)
		case uint16:
			err = c.SendUint16(int(d))
		case uint32:
			err = c.SendUint32(int(d))
		case string:
			err = c.SendString(d)
		case ot.Label:
			err = c.SendLabel(d, &ld)
		case []byte:
			err = c.SendData(d)
		}
		if err != nil {
			t.Errorf("send %T: %v", test, err)
			return
		}
	}
	if err := c.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
}

func TestProtocol(t *testing.T) {
	cw, c := Pipe()

	done := make(chan struct{})
	go func() {
		writer(t, cw)
		close(done)
	}()

	var ld ot.LabelData
	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			v, err := c.ReceiveByte()
			if err != nil {
				t.Fatalf("ReceiveByte: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveByte: got %v, expected %v", v, d)
			}

		case uint16:
			v, err := c.ReceiveUint16()
			if err != nil {
				t.Fatalf("ReceiveUint16: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint16: got %v, expected %v", v, d)
			}

		case uint32:
			v, err := c.ReceiveUint32()
			if err != nil {
				t.Fatalf("ReceiveUint32: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint32: got %v, expected %v", v, d)
			}

		case string:
			v, err := c.ReceiveString()
			if err != nil {
				t.Fatalf("ReceiveString: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveString: got %v, expected %v", v, d)
			}

		case ot.Label:
			var v ot.Label
			if err := c.ReceiveLabel(&v, &ld); err != nil {
				t.Fatalf("ReceiveLabel: %v", err)
			}
			if !v.Equal(d) {
				t.Errorf("ReceiveLabel: got %v, expected %v", v, d)
			}

		case []byte:
			v, err := c.ReceiveData()
			if err != nil {
				t.Fatalf("ReceiveData: %v", err)
			}
			if len(v) != len(d) {
				t.Errorf("ReceiveData: got [%v]byte, expected [%v]byte",
					len(v), len(d))
			}
		}
	}
	<-done

	sent := cw.Stats.Sent.Load()
	if sent == 0 || sent != c.Stats.Recvd.Load() {
		t.Errorf("stats: sent %v, received %v", sent, c.Stats.Recvd.Load())
	}
	if cw.Stats.Flushed.Load() == 0 {
		t.Errorf("stats: no flushes")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestProtocolClosed(t *testing.T) {
	c0, c1 := Pipe()

	if err := c0.SendUint32(1); err != nil {
		t.Fatalf("SendUint32: %v", err)
	}
	if err := c0.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Data flushed before the close is still readable.
	v, err := c1.ReceiveUint32()
	if err != nil {
		t.Fatalf("ReceiveUint32: %v", err)
	}
	if v != 1 {
		t.Errorf("ReceiveUint32: got %v, expected 1", v)
	}
	_, err = c1.ReceiveData()
	if !errors.Is(err, env.ErrChannel) {
		t.Errorf("ReceiveData: got %v, expected channel error", err)
	}
	if err := c1.SendByte(1); err != nil {
		t.Fatalf("SendByte: %v", err)
	}
	// The write error is reported by Flush or Close, depending on
	// when the writer reaches the data.
	if err := c1.Flush(); err != nil && !errors.Is(err, env.ErrChannel) {
		t.Errorf("Flush: got %v, expected channel error", err)
	}
	if err := c1.Close(); !errors.Is(err, env.ErrChannel) {
		t.Errorf("Close: got %v, expected channel error", err)
	}
	if err := c1.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := c1.Flush(); !errors.Is(err, env.ErrChannel) {
		t.Errorf("Flush after Close: got %v, expected channel error", err)
	}
}

// gatedConn blocks writes until its gate is opened.
type gatedConn struct {
	gate chan struct{}
	m    sync.Mutex
	buf  bytes.Buffer
}

func (g *gatedConn) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (g *gatedConn) Write(p []byte) (int, error) {
	<-g.gate
	g.m.Lock()
	defer g.m.Unlock()
	return g.buf.Write(p)
}

func TestProtocolAsyncFlush(t *testing.T) {
	g := &gatedConn{
		gate: make(chan struct{}),
	}
	c := NewConn(g)

	// Flushes return while the writer is blocked until all buffers
	// are in flight.
	var expected []byte
	for i := 0; i < numBuffers-1; i++ {
		data := bytes.Repeat([]byte{byte(i)}, 1000)
		if err := c.SendData(data); err != nil {
			t.Fatalf("SendData: %v", err)
		}
		if err := c.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		expected = append(expected, 0, 0, 0x03, 0xe8)
		expected = append(expected, data...)
	}
	if c.Stats.Flushed.Load() != numBuffers-1 {
		t.Errorf("flushed %v, expected %v", c.Stats.Flushed.Load(),
			numBuffers-1)
	}
	close(g.gate)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	g.m.Lock()
	defer g.m.Unlock()
	if !bytes.Equal(g.buf.Bytes(), expected) {
		t.Errorf("written data mismatch: got %d bytes, expected %d",
			g.buf.Len(), len(expected))
	}
}
