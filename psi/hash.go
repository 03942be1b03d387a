//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
)

// Hash domains.
const (
	domainBin uint64 = iota + 1
	domainInput
	domainBloom
	domainMask
	domainPoint
)

func tag(domain uint64, idx int) uint64 {
	return domain<<32 | uint64(idx)
}

// hasher implements the keyed item hash functions both peers share.
type hasher struct {
	key ot.Label
}

func (h hasher) sum(t uint64, x ot.Label) [32]byte {
	var buf [40]byte
	h.key.GetData((*ot.LabelData)(buf[0:16]))
	binary.BigEndian.PutUint64(buf[16:24], t)
	x.GetData((*ot.LabelData)(buf[24:40]))
	return blake3.Sum256(buf[:])
}

// label hashes x into a label.
func (h hasher) label(t uint64, x ot.Label) ot.Label {
	digest := h.sum(t, x)
	var l ot.Label
	l.SetBytes(digest[:16])
	return l
}

// index hashes x into the range [0,n).
func (h hasher) index(t uint64, x ot.Label, n int) int {
	digest := h.sum(t, x)
	return int(binary.BigEndian.Uint64(digest[:8]) % uint64(n))
}

// mask hashes the label v into a size byte comparison mask.
func (h hasher) mask(v ot.Label, size int) []byte {
	digest := h.sum(tag(domainMask, 0), v)
	return digest[:size]
}

// senderSetup runs the sender side of the protocol setup. The sender
// verifies the receiver's set size and replies with its hash key
// contribution.
func senderSetup(params Params, chl *p2p.Channel) (hasher, error) {
	n, err := chl.ReceiveUint32()
	if err != nil {
		return hasher{}, err
	}
	if n != params.SetSize {
		return hasher{}, env.ProtocolErrorf("set size mismatch: %d != %d",
			n, params.SetSize)
	}
	key, err := ot.NewLabel(params.Rand)
	if err != nil {
		return hasher{}, err
	}
	var ld ot.LabelData
	if err := chl.SendLabel(key, &ld); err != nil {
		return hasher{}, err
	}
	if err := chl.Flush(); err != nil {
		return hasher{}, err
	}
	key.Xor(params.Seed.Label())
	return hasher{key: key}, nil
}

// receiverSetup runs the receiver side of the protocol setup.
func receiverSetup(params Params, chl *p2p.Channel) (hasher, error) {
	if err := chl.SendUint32(params.SetSize); err != nil {
		return hasher{}, err
	}
	if err := chl.Flush(); err != nil {
		return hasher{}, err
	}
	var key ot.Label
	var ld ot.LabelData
	if err := chl.ReceiveLabel(&key, &ld); err != nil {
		return hasher{}, err
	}
	key.Xor(params.Seed.Label())
	return hasher{key: key}, nil
}
