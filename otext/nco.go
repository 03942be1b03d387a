//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package otext implements 1-out-of-N oblivious transfer extensions.
//
// The package provides two variants of the same construction: KKRT
// uses a pseudorandom code and is secure against semi-honest
// adversaries, and OOS uses a linear code with a consistency check
// and is secure against malicious adversaries. Both variants run
// their base OTs with the 1-out-of-2 random OT extension from the ot
// package.
//
// Batched Oblivious PRF with Applications to Private Set Intersection
//   - https://eprint.iacr.org/2016/799.pdf
//
// Actively Secure 1-out-of-N OT Extension with Application to
// Private Set Intersection
//   - https://eprint.iacr.org/2016/933.pdf
package otext

import (
	"io"

	"github.com/markkurossi/otpsi/ot"
)

const (
	// CodeBits defines the code word width of the extension and the
	// number of base OTs.
	CodeBits = 512

	// MaxOOSInputBits defines the maximum input width of the OOS
	// linear code.
	MaxOOSInputBits = 76

	codeWords = CodeBits / 64
	codeBytes = CodeBits / 8
)

// SecurityMode defines the adversary model of the extension.
type SecurityMode int

// Security modes.
const (
	SemiHonest SecurityMode = iota
	Malicious
)

func (m SecurityMode) String() string {
	switch m {
	case SemiHonest:
		return "semi-honest"
	case Malicious:
		return "malicious"
	default:
		return "{SecurityMode}"
	}
}

// ModeOf returns the security mode for the malicious flag.
func ModeOf(malicious bool) SecurityMode {
	if malicious {
		return Malicious
	}
	return SemiHonest
}

// Variant identifies the extension construction.
type Variant int

// Extension variants.
const (
	KKRT Variant = iota
	OOS
)

func (v Variant) String() string {
	switch v {
	case KKRT:
		return "KKRT"
	case OOS:
		return "OOS"
	default:
		return "{Variant}"
	}
}

// NcoSender defines the sender side of the 1-out-of-N OT extension.
// The sender learns a pseudorandom pad for every candidate input of
// every OT instance; the receiver learns the pad of its chosen
// input.
type NcoSender interface {
	// Configure sets the security parameters. It must be called
	// before GenBaseOTs.
	Configure(malicious bool, statSecParam, inputBitCount int) error

	// IsMalicious tests if the sender runs the malicious variant.
	IsMalicious() bool

	// HasBaseOTs tests if the sender has base OTs.
	HasBaseOTs() bool

	// GenBaseOTs runs the base OTs with the peer.
	GenBaseOTs(rand io.Reader, io ot.IO) error

	// SplitBase creates a new independent sender from the base
	// OTs of this sender. The peer receiver must split in the same
	// order. The function does not communicate with the peer.
	SplitBase() (NcoSender, error)

	// Init prepares numOTs OT instances.
	Init(numOTs int, rand io.Reader, io ot.IO) error

	// RecvCorrection receives the receiver's corrections for the
	// instances.
	RecvCorrection(io ot.IO) error

	// Check runs the malicious consistency check with the challenge
	// seed. The function is a no-op in the semi-honest mode.
	Check(io ot.IO, seed ot.Label) error

	// Encode returns the pad of the instance otIdx for the input
	// choice.
	Encode(otIdx int, choice ot.Label) ot.Label

	// SendChosen sends the chosen messages. The messages[i][j] is
	// the message j of the instance i.
	SendChosen(messages [][]ot.Label, rand io.Reader, io ot.IO) error
}

// NcoReceiver defines the receiver side of the 1-out-of-N OT
// extension.
type NcoReceiver interface {
	// Configure sets the security parameters. It must be called
	// before GenBaseOTs.
	Configure(malicious bool, statSecParam, inputBitCount int) error

	// IsMalicious tests if the receiver runs the malicious variant.
	IsMalicious() bool

	// HasBaseOTs tests if the receiver has base OTs.
	HasBaseOTs() bool

	// GenBaseOTs runs the base OTs with the peer.
	GenBaseOTs(rand io.Reader, io ot.IO) error

	// SplitBase creates a new independent receiver from the base
	// OTs of this receiver.
	SplitBase() (NcoReceiver, error)

	// Init prepares numOTs OT instances.
	Init(numOTs int, rand io.Reader, io ot.IO) error

	// Encode sets the input of the instance otIdx and returns its
	// pad.
	Encode(otIdx int, choice ot.Label) ot.Label

	// SendCorrection sends the corrections of all instances.
	SendCorrection(io ot.IO) error

	// Check answers the sender's consistency check. The function is
	// a no-op in the semi-honest mode.
	Check(io ot.IO) error

	// ReceiveChosen receives one of numMsgs messages for each
	// choice into out.
	ReceiveChosen(numMsgs int, out []ot.Label, choices []uint64,
		rand io.Reader, io ot.IO) error
}

// NewNcoSender creates a new sender for the security mode: OOS for
// the malicious mode and KKRT otherwise.
func NewNcoSender(mode SecurityMode) *Sender {
	if mode == Malicious {
		return NewOOSSender()
	}
	return NewKKRTSender()
}

// NewNcoReceiver creates a new receiver for the security mode.
func NewNcoReceiver(mode SecurityMode) *Receiver {
	if mode == Malicious {
		return NewOOSReceiver()
	}
	return NewKKRTReceiver()
}

// ChoiceLabel returns the input label for the message index.
func ChoiceLabel(idx uint64) ot.Label {
	return ot.Label{
		D1: idx,
	}
}
