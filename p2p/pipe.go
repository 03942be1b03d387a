//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
	"sync"
)

// Pipe implements the Conn interface as a bidirectional communication
// pipe. Anything send to the first endpoint can be received from the
// second and vice versa. The pipe buffers all written data so writes
// never block.
func Pipe() (*Conn, *Conn) {
	q0 := newQueue()
	q1 := newQueue()

	return NewConn(&pipe{r: q0, w: q1}), NewConn(&pipe{r: q1, w: q0})
}

type pipe struct {
	r *queue
	w *queue
}

func (p *pipe) Close() error {
	p.w.close()
	p.r.close()
	return nil
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.write(data)
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

func (q *queue) close() {
	q.m.Lock()
	q.closed = true
	q.c.Broadcast()
	q.m.Unlock()
}

func (q *queue) write(data []byte) (int, error) {
	q.m.Lock()
	defer q.m.Unlock()

	if q.closed {
		return 0, io.ErrClosedPipe
	}
	q.data = append(q.data, data...)
	q.c.Broadcast()
	return len(data), nil
}

func (q *queue) read(data []byte) (int, error) {
	q.m.Lock()
	defer q.m.Unlock()

	for len(q.data) == 0 {
		if q.closed {
			return 0, io.EOF
		}
		q.c.Wait()
	}
	n := copy(data, q.data)
	q.data = q.data[n:]
	if len(q.data) == 0 {
		q.data = nil
	}
	return n, nil
}
