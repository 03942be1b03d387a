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

// RR17 implements PSI with simple hashing into bins and a maliciously
// secure oblivious PRF.
//
// Malicious-Secure Private Set Intersection via Dual Execution
//   - https://eprint.iacr.org/2017/769.pdf
//
// Both peers hash their items into the same bins. The receiver pads
// each bin to the maximum bin load and runs one OOS OPRF instance
// per bin slot. For each bin slot the sender sends the OPRF results
// of its items in that bin, padded to the maximum load and shuffled.

// rr17Geometry holds the bin layout both peers derive.
type rr17Geometry struct {
	bins      int
	maxLoad   int
	inputBits int
	maskBytes int
}

func newRR17Geometry(params Params) rr17Geometry {
	n := params.SetSize
	bins := simpleBins(n, params.BinScaler)
	load := maxBinLoad(n, bins, params.StatSecParam)
	return rr17Geometry{
		bins:      bins,
		maxLoad:   load,
		inputBits: rr17BitSize(params.BitSize, params.StatSecParam, n),
		maskBytes: maskBytes(params.StatSecParam, n*load),
	}
}

func (g rr17Geometry) slots() int {
	return g.bins * g.maxLoad
}

type rr17Sender struct {
	params Params
	geom   rr17Geometry
	nco    otext.NcoSender
	h      hasher
	prng   *ot.PRNG
}

func newRR17Sender() SenderEngine {
	return new(rr17Sender)
}

func (s *rr17Sender) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := senderSetup(params, chl)
	if err != nil {
		return err
	}
	s.params = params
	s.geom = newRR17Geometry(params)
	s.h = h
	s.nco = roles.NcoSender
	s.prng, err = ot.NewRandomPRNG(params.Rand)
	if err != nil {
		return err
	}
	err = s.nco.Configure(true, params.StatSecParam, s.geom.inputBits)
	if err != nil {
		return err
	}
	params.Log.V(1).Info("RR17 geometry", "bins", s.geom.bins,
		"maxLoad", s.geom.maxLoad, "inputBits", s.geom.inputBits)

	return errors.Wrap(s.nco.GenBaseOTs(s.prng, chl), "base OTs")
}

func (s *rr17Sender) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	g := s.geom

	table, err := newSimpleHash(s.h, set, g.bins, g.maxLoad)
	if err != nil {
		return err
	}
	if err := s.nco.Init(g.slots(), s.prng, chl); err != nil {
		return err
	}
	if err := s.nco.RecvCorrection(chl); err != nil {
		return errors.Wrap(err, "OPRF corrections")
	}
	if err := s.nco.Check(chl, s.prng.Label()); err != nil {
		return errors.Wrap(err, "OPRF check")
	}

	mb := g.maskBytes
	group := g.maxLoad * mb
	buf := make([]byte, g.slots()*group)

	for b, items := range table.bins {
		for slot := 0; slot < g.maxLoad; slot++ {
			idx := b*g.maxLoad + slot
			masks := buf[idx*group : (idx+1)*group]
			for i, item := range items {
				v := s.nco.Encode(idx, s.h.label(tag(domainInput, 0), set[item]))
				copy(masks[i*mb:], s.h.mask(v, mb))
			}
			s.prng.Read(masks[len(items)*mb:])
			shuffleMasks(s.prng, masks, mb)
		}
	}
	if err := chl.SendData(buf); err != nil {
		return err
	}
	return chl.Flush()
}

type rr17Receiver struct {
	params Params
	geom   rr17Geometry
	nco    otext.NcoReceiver
	h      hasher
	prng   *ot.PRNG
	result intersection
}

func newRR17Receiver() ReceiverEngine {
	return new(rr17Receiver)
}

func (r *rr17Receiver) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	chl := chls[0]
	h, err := receiverSetup(params, chl)
	if err != nil {
		return err
	}
	r.params = params
	r.geom = newRR17Geometry(params)
	r.h = h
	r.nco = roles.NcoReceiver
	r.prng, err = ot.NewRandomPRNG(params.Rand)
	if err != nil {
		return err
	}
	err = r.nco.Configure(true, params.StatSecParam, r.geom.inputBits)
	if err != nil {
		return err
	}
	return errors.Wrap(r.nco.GenBaseOTs(r.prng, chl), "base OTs")
}

func (r *rr17Receiver) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	g := r.geom

	table, err := newSimpleHash(r.h, set, g.bins, g.maxLoad)
	if err != nil {
		return err
	}
	if err := r.nco.Init(g.slots(), r.prng, chl); err != nil {
		return err
	}
	outs := make([]ot.Label, g.slots())
	for b, items := range table.bins {
		for slot := 0; slot < g.maxLoad; slot++ {
			idx := b*g.maxLoad + slot
			var input ot.Label
			if slot < len(items) {
				input = r.h.label(tag(domainInput, 0), set[items[slot]])
			} else {
				input = r.prng.Label()
			}
			outs[idx] = r.nco.Encode(idx, input)
		}
	}
	if err := r.nco.SendCorrection(chl); err != nil {
		return errors.Wrap(err, "OPRF corrections")
	}
	if err := r.nco.Check(chl); err != nil {
		return errors.Wrap(err, "OPRF check")
	}

	mb := g.maskBytes
	group := g.maxLoad * mb
	data, err := receiveMasks(chl, g.slots()*g.maxLoad, mb)
	if err != nil {
		return err
	}

	r.result = make(intersection)
	for b, items := range table.bins {
		for slot, item := range items {
			idx := b*g.maxLoad + slot
			masks := maskSet(data[idx*group:(idx+1)*group], mb)
			if _, ok := masks[string(r.h.mask(outs[idx], mb))]; ok {
				r.result.add(item)
			}
		}
	}
	return nil
}

func (r *rr17Receiver) Intersection() []uint64 {
	return r.result.sorted()
}
