//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"io"

	"github.com/bwesterb/go-ristretto"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
)

// DKT10 implements Diffie-Hellman PSI over the ristretto255 group.
//
// Linear-Complexity Private Set Intersection Protocols Secure in
// Malicious Model
//   - https://eprint.iacr.org/2010/469.pdf
//
// The receiver sends H(x)^a for its items in a random order. The
// sender replies with H(x)^ab in the same order followed by H(y)^b
// for its own items. The receiver raises the sender's values to a
// and matches them against the returned values.

const pointLen = 32

// hashToPoint maps x to a group element.
func hashToPoint(h hasher, x ot.Label) *ristretto.Point {
	digest := h.sum(tag(domainPoint, 0), x)
	return new(ristretto.Point).Derive(digest[:])
}

// randomScalar creates a random scalar from rand.
func randomScalar(rand io.Reader) (*ristretto.Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return nil, err
	}
	return new(ristretto.Scalar).SetReduced(&buf), nil
}

// decodePoints decodes count points from data.
func decodePoints(data []byte, count int) ([]*ristretto.Point, error) {
	if len(data) != count*pointLen {
		return nil, env.ProtocolErrorf("invalid point data size %d, expected %d",
			len(data), count*pointLen)
	}
	result := make([]*ristretto.Point, count)
	var buf [pointLen]byte
	for i := range result {
		copy(buf[:], data[i*pointLen:])
		result[i] = new(ristretto.Point)
		if !result[i].SetBytes(&buf) {
			return nil, env.ProtocolErrorf("invalid point %d", i)
		}
	}
	return result, nil
}

type dkt10Sender struct {
	params Params
	h      hasher
	key    *ristretto.Scalar
	prng   *ot.PRNG
}

func newDKT10Sender() SenderEngine {
	return new(dkt10Sender)
}

func (s *dkt10Sender) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	h, err := senderSetup(params, chls[0])
	if err != nil {
		return err
	}
	s.params = params
	s.h = h
	s.key, err = randomScalar(params.Rand)
	if err != nil {
		return err
	}
	s.prng, err = ot.NewRandomPRNG(params.Rand)
	return err
}

func (s *dkt10Sender) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	n := len(set)

	data, err := chl.ReceiveData()
	if err != nil {
		return err
	}
	points, err := decodePoints(data, n)
	if err != nil {
		return err
	}
	buf := make([]byte, n*pointLen)
	var q ristretto.Point
	for i, p := range points {
		q.ScalarMult(p, s.key)
		q.BytesInto((*[pointLen]byte)(buf[i*pointLen:]))
	}
	if err := chl.SendData(buf); err != nil {
		return err
	}

	for i, y := range set {
		q.ScalarMult(hashToPoint(s.h, y), s.key)
		q.BytesInto((*[pointLen]byte)(buf[i*pointLen:]))
	}
	shuffleMasks(s.prng, buf, pointLen)
	if err := chl.SendData(buf); err != nil {
		return err
	}
	return chl.Flush()
}

type dkt10Receiver struct {
	params Params
	h      hasher
	key    *ristretto.Scalar
	prng   *ot.PRNG
	result intersection
}

func newDKT10Receiver() ReceiverEngine {
	return new(dkt10Receiver)
}

func (r *dkt10Receiver) Init(params Params, chls []*p2p.Channel,
	roles Roles) error {

	h, err := receiverSetup(params, chls[0])
	if err != nil {
		return err
	}
	r.params = params
	r.h = h
	r.key, err = randomScalar(params.Rand)
	if err != nil {
		return err
	}
	r.prng, err = ot.NewRandomPRNG(params.Rand)
	return err
}

func (r *dkt10Receiver) SendInput(set []ot.Label, chls []*p2p.Channel) error {
	chl := chls[0]
	n := len(set)

	// order[k] is the input index of the k:th sent point.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	r.prng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	buf := make([]byte, n*pointLen)
	var q ristretto.Point
	for k, i := range order {
		q.ScalarMult(hashToPoint(r.h, set[i]), r.key)
		q.BytesInto((*[pointLen]byte)(buf[k*pointLen:]))
	}
	if err := chl.SendData(buf); err != nil {
		return err
	}
	if err := chl.Flush(); err != nil {
		return err
	}

	data, err := chl.ReceiveData()
	if err != nil {
		return err
	}
	if len(data) != n*pointLen {
		return env.ProtocolErrorf("invalid point data size %d, expected %d",
			len(data), n*pointLen)
	}
	data2, err := chl.ReceiveData()
	if err != nil {
		return err
	}
	theirs, err := decodePoints(data2, n)
	if err != nil {
		return err
	}
	values := make(map[[pointLen]byte]struct{}, n)
	var key [pointLen]byte
	for _, p := range theirs {
		q.ScalarMult(p, r.key)
		q.BytesInto(&key)
		values[key] = struct{}{}
	}

	r.result = make(intersection)
	for k, i := range order {
		copy(key[:], data[k*pointLen:])
		if _, ok := values[key]; ok {
			r.result.add(i)
		}
	}
	return nil
}

func (r *dkt10Receiver) Intersection() []uint64 {
	return r.result.sorted()
}
