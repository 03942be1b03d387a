//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"io"
	"math/bits"
	"sort"

	"github.com/go-logr/logr"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
	"github.com/markkurossi/otpsi/p2p"
)

// Params define the parameters of a PSI protocol run.
type Params struct {
	SetSize      int
	StatSecParam int
	// Seed is the PRNG both peers seed with the protocol seed.
	Seed *ot.PRNG
	// Rand is the private randomness source.
	Rand      io.Reader
	EpsBin    float64
	BinScaler float64
	BitSize   int
	Log       logr.Logger
}

// Roles hold the OT roles a PSI protocol runs on.
type Roles struct {
	NcoSender   otext.NcoSender
	NcoReceiver otext.NcoReceiver
	ROT         *ot.ROT
}

// SenderEngine implements the sender side of a PSI protocol.
type SenderEngine interface {
	// Init runs the protocol setup with the peer.
	Init(params Params, chls []*p2p.Channel, roles Roles) error

	// SendInput runs the protocol on the input set.
	SendInput(set []ot.Label, chls []*p2p.Channel) error
}

// ReceiverEngine implements the receiver side of a PSI protocol.
type ReceiverEngine interface {
	// Init runs the protocol setup with the peer.
	Init(params Params, chls []*p2p.Channel, roles Roles) error

	// SendInput runs the protocol on the input set.
	SendInput(set []ot.Label, chls []*p2p.Channel) error

	// Intersection returns the sorted indices of the input set items
	// that are also in the sender's set.
	Intersection() []uint64
}

// maskBytes returns the byte length of the comparison masks for
// count comparisons.
func maskBytes(statSec, count int) int {
	return min((statSec+2*bits.Len(uint(count))+7)/8, 16)
}

// shuffleMasks shuffles the size byte masks of buf.
func shuffleMasks(prng *ot.PRNG, buf []byte, size int) {
	tmp := make([]byte, size)
	prng.Shuffle(len(buf)/size, func(i, j int) {
		copy(tmp, buf[i*size:(i+1)*size])
		copy(buf[i*size:(i+1)*size], buf[j*size:(j+1)*size])
		copy(buf[j*size:(j+1)*size], tmp)
	})
}

// maskSet creates a membership set of the size byte masks of buf.
func maskSet(buf []byte, size int) map[string]struct{} {
	result := make(map[string]struct{}, len(buf)/size)
	for i := 0; i+size <= len(buf); i += size {
		result[string(buf[i:i+size])] = struct{}{}
	}
	return result
}

// receiveMasks receives count masks of size bytes.
func receiveMasks(chl *p2p.Channel, count, size int) ([]byte, error) {
	data, err := chl.ReceiveData()
	if err != nil {
		return nil, err
	}
	if len(data) != count*size {
		return nil, env.ProtocolErrorf("invalid mask data size %d, expected %d",
			len(data), count*size)
	}
	return data, nil
}

// intersection collects matching indices.
type intersection map[uint64]struct{}

func (is intersection) add(idx int) {
	is[uint64(idx)] = struct{}{}
}

func (is intersection) sorted() []uint64 {
	result := make([]uint64, 0, len(is))
	for idx := range is {
		result = append(result, idx)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}
