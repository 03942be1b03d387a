//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
)

// RR16 implements PSI with a garbled Bloom filter over maliciously
// secure random OTs.
//
// Improved Private Set Intersection against Malicious Adversaries
//   - https://eprint.iacr.org/2016/746.pdf
//
// The receiver encodes its set into a Bloom filter and selects the
// random OT messages with the filter bits. For each of its items the
// sender sends the hash of the XOR of the second random OT messages
// at the item's filter positions. The receiver learns the same value
// for exactly the items whose positions are all set in its filter.

// bloomBits returns the Bloom filter size for n items and k hash
// functions.
func bloomBits(n, k int) int {
	return int(math.Ceil(float64(n) * float64(k) / math.Ln2))
}

// bloomPositions returns the filter positions of x. The list keeps
// duplicate positions.
func bloomPositions(h hasher, x ot.Label, k, m int) []int {
	result := make([]int, k)
	for t := range result {
		result[t] = h.index(tag(domainBloom, t), x, m)
	}
	return result
}

// bloomFilter creates the Bloom filter of the set.
func bloomFilter(h hasher, set []ot.Label, k, m int) *bitset.BitSet {
	filter := bitset.New(uint(m))
	for _, x := range set {
		for _, pos := range bloomPositions(h, x, k, m) {
			filter.Set(uint(pos))
		}
	}
	return filter
}

type rr16Sender struct {
	params Params
	rot    *ot.ROT
	h      hasher
	prng   *ot.PRNG
}

func newRR16Sender() SenderEngine {
	return new(rr16Sender)
}

func (s *rr16Sender) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := senderSetup(params, chl)
	if err != nil {
		return err
	}
	s.params = params
	s.h = h
	s.rot = roles.ROT
	s.prng, err = ot.NewRandomPRNG(params.Rand)
	if err != nil {
		return err
	}
	return errors.Wrap(s.rot.InitSender(chl), "base OTs")
}

func (s *rr16Sender) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	k := s.params.StatSecParam
	m := bloomBits(len(set), k)
	mb := maskBytes(s.params.StatSecParam, len(set))

	wires := make([]ot.Wire, m)
	if err := s.rot.Send(wires); err != nil {
		return errors.Wrap(err, "random OTs")
	}
	buf := make([]byte, len(set)*mb)
	for i, y := range set {
		var v ot.Label
		for _, pos := range bloomPositions(s.h, y, k, m) {
			v.Xor(wires[pos].L1)
		}
		copy(buf[i*mb:], s.h.mask(v, mb))
	}
	shuffleMasks(s.prng, buf, mb)
	if err := chl.SendData(buf); err != nil {
		return err
	}
	return chl.Flush()
}

type rr16Receiver struct {
	params Params
	rot    *ot.ROT
	h      hasher
	result intersection
}

func newRR16Receiver() ReceiverEngine {
	return new(rr16Receiver)
}

func (r *rr16Receiver) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := receiverSetup(params, chl)
	if err != nil {
		return err
	}
	r.params = params
	r.h = h
	r.rot = roles.ROT
	return errors.Wrap(r.rot.InitReceiver(chl), "base OTs")
}

func (r *rr16Receiver) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	k := r.params.StatSecParam
	m := bloomBits(len(set), k)
	mb := maskBytes(r.params.StatSecParam, len(set))

	filter := bloomFilter(r.h, set, k, m)
	flags := make([]bool, m)
	for i := range flags {
		flags[i] = filter.Test(uint(i))
	}
	labels := make([]ot.Label, m)
	if err := r.rot.Receive(flags, labels); err != nil {
		return errors.Wrap(err, "random OTs")
	}

	data, err := receiveMasks(chl, len(set), mb)
	if err != nil {
		return err
	}
	masks := maskSet(data, mb)

	r.result = make(intersection)
	for i, x := range set {
		var v ot.Label
		for _, pos := range bloomPositions(r.h, x, k, m) {
			v.Xor(labels[pos])
		}
		if _, ok := masks[string(r.h.mask(v, mb))]; ok {
			r.result.add(i)
		}
	}
	return nil
}

func (r *rr16Receiver) Intersection() []uint64 {
	return r.result.sorted()
}
