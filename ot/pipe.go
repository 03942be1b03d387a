//
// pipe.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.

package ot

import (
	"encoding/binary"
	"io"
	"sync"
)

var (
	_ IO = &Pipe{}
)

// Pipe implements the IO interface with an in-memory message
// queue. The pipe buffers all sent data so the peers never block on
// send.
type Pipe struct {
	in   *queue
	out  *queue
	wBuf []byte
	rBuf []byte
}

// NewPipe creates a new in-memory pipe.
func NewPipe() (*Pipe, *Pipe) {
	a := newQueue()
	b := newQueue()

	return &Pipe{
			in:  a,
			out: b,
		}, &Pipe{
			in:  b,
			out: a,
		}
}

type queue struct {
	m      sync.Mutex
	c      *sync.Cond
	data   []byte
	closed bool
}

func newQueue() *queue {
	q := new(queue)
	q.c = sync.NewCond(&q.m)
	return q
}

func (q *queue) write(data []byte) error {
	q.m.Lock()
	defer q.m.Unlock()

	if q.closed {
		return io.ErrClosedPipe
	}
	q.data = append(q.data, data...)
	q.c.Broadcast()
	return nil
}

func (q *queue) read(buf []byte) error {
	q.m.Lock()
	defer q.m.Unlock()

	for len(q.data) < len(buf) {
		if q.closed {
			return io.EOF
		}
		q.c.Wait()
	}
	copy(buf, q.data)
	q.data = q.data[len(buf):]
	return nil
}

func (q *queue) close() {
	q.m.Lock()
	q.closed = true
	q.c.Broadcast()
	q.m.Unlock()
}

// Close closes the pipe. The peer receives io.EOF after it has
// consumed all pending data.
func (p *Pipe) Close() error {
	err := p.Flush()
	p.out.close()
	p.in.close()
	return err
}

// SendByte sends a byte value.
func (p *Pipe) SendByte(val byte) error {
	p.wBuf = append(p.wBuf, val)
	return nil
}

// SendUint32 sends an uint32 value.
func (p *Pipe) SendUint32(val int) error {
	p.wBuf = binary.BigEndian.AppendUint32(p.wBuf, uint32(val))
	return nil
}

// SendData sends binary data.
func (p *Pipe) SendData(val []byte) error {
	p.wBuf = binary.BigEndian.AppendUint32(p.wBuf, uint32(len(val)))
	p.wBuf = append(p.wBuf, val...)
	return nil
}

// SendLabel sends an OT label.
func (p *Pipe) SendLabel(val Label, data *LabelData) error {
	p.wBuf = append(p.wBuf, val.Bytes(data)...)
	return nil
}

// Flush flushed any pending data in the connection.
func (p *Pipe) Flush() error {
	if len(p.wBuf) == 0 {
		return nil
	}
	err := p.out.write(p.wBuf)
	p.wBuf = p.wBuf[:0]
	return err
}

func (p *Pipe) fill(n int) ([]byte, error) {
	if cap(p.rBuf) < n {
		p.rBuf = make([]byte, n)
	}
	buf := p.rBuf[:n]
	if err := p.in.read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReceiveByte receives a byte value.
func (p *Pipe) ReceiveByte() (byte, error) {
	buf, err := p.fill(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReceiveUint32 receives an uint32 value.
func (p *Pipe) ReceiveUint32() (int, error) {
	buf, err := p.fill(4)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(buf)), nil
}

// ReceiveData receives binary data.
func (p *Pipe) ReceiveData() ([]byte, error) {
	l, err := p.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	result := make([]byte, l)
	if err := p.in.read(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ReceiveLabel receives an OT label.
func (p *Pipe) ReceiveLabel(val *Label, data *LabelData) error {
	if err := p.in.read(data[:]); err != nil {
		return err
	}
	val.SetData(data)
	return nil
}
