//
// pipe_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

func TestPipe(t *testing.T) {
	var tests = []interface{}{
		byte('@'),
		42,
		[]byte("Hello, world!"),
		Label{D0: 1, D1: 2},
		make([]byte, 4*1024*1024),
	}

	pipe, rPipe := NewPipe()
	done := make(chan error)

	go func(pipe *Pipe) {
		var ld LabelData
		for _, test := range tests {
			switch v := test.(type) {
			case byte:
				val, err := pipe.ReceiveByte()
				if err != nil {
					done <- err
					return
				}
				if val != v {
					done <- fmt.Errorf("ReceiveByte: mismatch: %v != %v",
						val, v)
					return
				}

			case int:
				val, err := pipe.ReceiveUint32()
				if err != nil {
					done <- err
					return
				}
				if val != v {
					done <- fmt.Errorf("ReceiveUint32: mismatch: %v != %v",
						val, v)
					return
				}

			case []byte:
				data, err := pipe.ReceiveData()
				if err != nil {
					done <- err
					return
				}
				if !bytes.Equal(data, v) {
					done <- fmt.Errorf("ReceiveData: mismatch: %d != %d",
						len(data), len(v))
					return
				}

			case Label:
				var l Label
				if err := pipe.ReceiveLabel(&l, &ld); err != nil {
					done <- err
					return
				}
				if !l.Equal(v) {
					done <- fmt.Errorf("ReceiveLabel: mismatch: %v != %v",
						l, v)
					return
				}

			default:
				panic(fmt.Sprintf("receive %v(%T) not supported", v, v))
			}
		}
		_, err := pipe.ReceiveUint32()
		if err != io.EOF {
			done <- fmt.Errorf("expected EOF, got %v", err)
			return
		}
		done <- nil
	}(rPipe)

	var ld LabelData
	for _, test := range tests {
		var err error
		switch v := test.(type) {
		case byte:
			err = pipe.SendByte(v)
		case int:
			err = pipe.SendUint32(v)
		case []byte:
			err = pipe.SendData(v)
		case Label:
			err = pipe.SendLabel(v, &ld)
		}
		if err != nil {
			t.Errorf("send %T failed: %v", test, err)
		}
	}
	err := pipe.Close()
	if err != nil {
		t.Errorf("Close failed: %v", err)
	}

	err = <-done
	if err != nil {
		t.Errorf("consumer failed: %v", err)
	}
}
