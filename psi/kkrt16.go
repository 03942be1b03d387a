//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"github.com/cockroachdb/errors"

	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
	"github.com/markkurossi/otpsi/p2p"
)

// KKRT16 implements PSI with cuckoo hashing and a batched oblivious
// PRF.
//
// Efficient Batched Oblivious PRF with Applications to Private Set
// Intersection
//   - https://eprint.iacr.org/2016/799.pdf
//
// The receiver cuckoo hashes its items and runs one OPRF instance per
// bin and stash slot. The sender evaluates the OPRF for each of its
// items in all candidate bins and stash slots, and sends the
// truncated results shuffled per hash function and stash slot.

type kkrt16Sender struct {
	params Params
	nco    otext.NcoSender
	h      hasher
	prng   *ot.PRNG
}

func newKKRT16Sender() SenderEngine {
	return new(kkrt16Sender)
}

func (s *kkrt16Sender) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := senderSetup(params, chl)
	if err != nil {
		return err
	}
	s.params = params
	s.h = h
	s.nco = roles.NcoSender
	s.prng, err = ot.NewRandomPRNG(params.Rand)
	if err != nil {
		return err
	}
	err = s.nco.Configure(false, params.StatSecParam, 128)
	if err != nil {
		return err
	}
	return errors.Wrap(s.nco.GenBaseOTs(s.prng, chl), "base OTs")
}

func (s *kkrt16Sender) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	n := len(set)
	bins := cuckooBins(n)
	mb := maskBytes(s.params.StatSecParam, n)

	if err := s.nco.Init(bins+stashSize, s.prng, chl); err != nil {
		return err
	}
	if err := s.nco.RecvCorrection(chl); err != nil {
		return errors.Wrap(err, "OPRF corrections")
	}

	// Bin locations use the receiver's table geometry.
	table := &cuckoo{
		h:    s.h,
		bins: make([]cuckooEntry, bins),
	}
	buf := make([]byte, n*mb)
	for k := 0; k < numHashes; k++ {
		for i, y := range set {
			b := table.binOf(y, k)
			v := s.nco.Encode(b, s.h.label(tag(domainInput, k), y))
			copy(buf[i*mb:], s.h.mask(v, mb))
		}
		shuffleMasks(s.prng, buf, mb)
		if err := chl.SendData(buf); err != nil {
			return err
		}
	}
	for slot := 0; slot < stashSize; slot++ {
		for i, y := range set {
			v := s.nco.Encode(bins+slot,
				s.h.label(tag(domainInput, numHashes), y))
			copy(buf[i*mb:], s.h.mask(v, mb))
		}
		shuffleMasks(s.prng, buf, mb)
		if err := chl.SendData(buf); err != nil {
			return err
		}
	}
	return chl.Flush()
}

type kkrt16Receiver struct {
	params Params
	nco    otext.NcoReceiver
	h      hasher
	prng   *ot.PRNG
	result intersection
}

func newKKRT16Receiver() ReceiverEngine {
	return new(kkrt16Receiver)
}

func (r *kkrt16Receiver) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := receiverSetup(params, chl)
	if err != nil {
		return err
	}
	r.params = params
	r.h = h
	r.nco = roles.NcoReceiver
	r.prng, err = ot.NewRandomPRNG(params.Rand)
	if err != nil {
		return err
	}
	err = r.nco.Configure(false, params.StatSecParam, 128)
	if err != nil {
		return err
	}
	return errors.Wrap(r.nco.GenBaseOTs(r.prng, chl), "base OTs")
}

func (r *kkrt16Receiver) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	n := len(set)
	mb := maskBytes(r.params.StatSecParam, n)

	table := newCuckoo(r.h, set, r.prng)
	if err := table.insertAll(); err != nil {
		return err
	}
	bins := len(table.bins)
	if err := r.nco.Init(bins+stashSize, r.prng, chl); err != nil {
		return err
	}

	input := func(e cuckooEntry, k int) ot.Label {
		if e.empty() {
			return r.prng.Label()
		}
		return r.h.label(tag(domainInput, k), set[e.item])
	}
	outs := make([]ot.Label, bins+stashSize)
	for b, e := range table.bins {
		outs[b] = r.nco.Encode(b, input(e, e.hash))
	}
	for slot, e := range table.stash {
		outs[bins+slot] = r.nco.Encode(bins+slot, input(e, numHashes))
	}
	if err := r.nco.SendCorrection(chl); err != nil {
		return errors.Wrap(err, "OPRF corrections")
	}

	sets := make([]map[string]struct{}, numHashes+stashSize)
	for i := range sets {
		data, err := receiveMasks(chl, n, mb)
		if err != nil {
			return err
		}
		sets[i] = maskSet(data, mb)
	}

	r.result = make(intersection)
	for b, e := range table.bins {
		if e.empty() {
			continue
		}
		if _, ok := sets[e.hash][string(r.h.mask(outs[b], mb))]; ok {
			r.result.add(e.item)
		}
	}
	for slot, e := range table.stash {
		if e.empty() {
			continue
		}
		m := string(r.h.mask(outs[bins+slot], mb))
		if _, ok := sets[numHashes+slot][m]; ok {
			r.result.add(e.item)
		}
	}
	return nil
}

func (r *kkrt16Receiver) Intersection() []uint64 {
	return r.result.sorted()
}
