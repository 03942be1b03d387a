//
// io.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.

package ot

// IO defines an I/O interface to communicate between peers.
type IO interface {
	// SendByte sends a byte value.
	SendByte(val byte) error

	// SendUint32 sends an uint32 value.
	SendUint32(val int) error

	// SendData sends binary data.
	SendData(val []byte) error

	// SendLabel sends an OT label. The data is a scratch buffer for
	// the label encoding.
	SendLabel(val Label, data *LabelData) error

	// Flush flushed any pending data in the connection.
	Flush() error

	// ReceiveByte receives a byte value.
	ReceiveByte() (byte, error)

	// ReceiveUint32 receives an uint32 value.
	ReceiveUint32() (int, error)

	// ReceiveData receives binary data. The returned slice is owned
	// by the caller.
	ReceiveData() ([]byte, error)

	// ReceiveLabel receives an OT label.
	ReceiveLabel(val *Label, data *LabelData) error
}

// SendString sends a string value.
func SendString(io IO, str string) error {
	return io.SendData([]byte(str))
}

// ReceiveString receives a string value.
func ReceiveString(io IO) (string, error) {
	data, err := io.ReceiveData()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
