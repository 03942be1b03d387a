//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otext

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
)

var (
	_ NcoSender = &Sender{}
)

// Sender implements the NcoSender interface.
type Sender struct {
	params
	hasBase  bool
	s        block512
	g        [CodeBits]*ot.PRNG
	codeSeed ot.Label
	code     code
	q        []block512
	numOTs   int
}

// NewKKRTSender creates a new semi-honest KKRT sender.
func NewKKRTSender() *Sender {
	return &Sender{
		params: defaultParams(KKRT),
	}
}

// NewOOSSender creates a new malicious OOS sender.
func NewOOSSender() *Sender {
	return &Sender{
		params: defaultParams(OOS),
	}
}

// Variant returns the extension variant.
func (s *Sender) Variant() Variant {
	return s.variant
}

// Configure implements NcoSender.Configure.
func (s *Sender) Configure(malicious bool, statSec, inputBits int) error {
	if s.hasBase {
		return errors.New("sender already has base OTs")
	}
	return s.configure(malicious, statSec, inputBits)
}

// IsMalicious implements NcoSender.IsMalicious.
func (s *Sender) IsMalicious() bool {
	return s.malicious
}

// HasBaseOTs implements NcoSender.HasBaseOTs.
func (s *Sender) HasBaseOTs() bool {
	return s.hasBase
}

// GenBaseOTs implements NcoSender.GenBaseOTs. The sender is the
// receiver of the base random OTs with random selection bits s.
func (s *Sender) GenBaseOTs(rand io.Reader, conn ot.IO) error {
	var sb [codeBytes]byte
	if _, err := io.ReadFull(rand, sb[:]); err != nil {
		return err
	}
	s.s.setBytes(sb[:])

	flags := make([]bool, CodeBits)
	for j := range flags {
		flags[j] = s.s.bit(j) == 1
	}
	rot := ot.NewROT(ot.NewCO(rand), rand, s.malicious)
	if err := rot.InitReceiver(conn); err != nil {
		return errors.Wrap(err, "base OT init")
	}
	keys := make([]ot.Label, CodeBits)
	if err := rot.Receive(flags, keys); err != nil {
		return errors.Wrap(err, "base OT")
	}
	for j := range keys {
		s.g[j] = ot.NewPRNG(keys[j])
	}

	seed, err := ot.NewLabel(rand)
	if err != nil {
		return err
	}
	var ld ot.LabelData
	if err := conn.SendLabel(seed, &ld); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}
	s.codeSeed = seed
	s.code = newCode(s.variant, seed, s.inputBits)
	s.hasBase = true

	return nil
}

// SplitBase implements NcoSender.SplitBase.
func (s *Sender) SplitBase() (NcoSender, error) {
	if !s.hasBase {
		return nil, errors.New("sender has no base OTs")
	}
	child := &Sender{
		params:   s.params,
		hasBase:  true,
		s:        s.s,
		codeSeed: s.codeSeed,
		code:     s.code,
	}
	for j := range s.g {
		child.g[j] = ot.NewPRNG(s.g[j].Label())
	}
	return child, nil
}

// Init implements NcoSender.Init.
func (s *Sender) Init(numOTs int, rand io.Reader, conn ot.IO) error {
	if !s.hasBase {
		return errors.New("sender has no base OTs")
	}
	if numOTs <= 0 {
		return env.ConfigErrorf("invalid number of OTs: %d", numOTs)
	}
	total := numOTs + s.padRows()
	rowBytes := (total + 7) / 8

	cols := make([]byte, CodeBits*rowBytes)
	for j := 0; j < CodeBits; j++ {
		s.g[j].Read(cols[j*rowBytes : (j+1)*rowBytes])
	}
	s.q = transpose512(cols, rowBytes, total)
	s.numOTs = numOTs

	return nil
}

// RecvCorrection implements NcoSender.RecvCorrection.
func (s *Sender) RecvCorrection(conn ot.IO) error {
	data, err := conn.ReceiveData()
	if err != nil {
		return err
	}
	if len(data) != len(s.q)*codeBytes {
		return env.ProtocolErrorf("invalid correction size %d, expected %d",
			len(data), len(s.q)*codeBytes)
	}
	for i := range s.q {
		var u block512
		u.setBytes(data[i*codeBytes:])
		u.and(&s.s)
		s.q[i].xor(&u)
	}
	return nil
}

// Check implements NcoSender.Check.
func (s *Sender) Check(conn ot.IO, seed ot.Label) error {
	if !s.malicious {
		return nil
	}
	var ld ot.LabelData
	if err := conn.SendLabel(seed, &ld); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}
	data, err := conn.ReceiveData()
	if err != nil {
		return err
	}
	if len(data) != s.statSec*checkBytes {
		return env.ProtocolErrorf("invalid check size %d", len(data))
	}

	prng := ot.NewPRNG(seed)
	weights := make([]byte, (len(s.q)+7)/8)

	for l := 0; l < s.statSec; l++ {
		prng.Read(weights)

		var sum block512
		for i := range s.q {
			if (weights[i/8]>>(i%8))&1 == 1 {
				sum.xor(&s.q[i])
			}
		}
		var t block512
		var r ot.Label
		t.setBytes(data[l*checkBytes:])
		r.SetBytes(data[l*checkBytes+codeBytes:])

		cr := s.code.encode(r)
		cr.and(&s.s)
		t.xor(&cr)

		if t != sum {
			return env.ProtocolErrorf("%s consistency check failed", s.variant)
		}
	}
	return nil
}

// Encode implements NcoSender.Encode.
func (s *Sender) Encode(otIdx int, choice ot.Label) ot.Label {
	choice.Mask(s.inputBits)
	v := s.code.encode(choice)
	v.and(&s.s)
	v.xor(&s.q[otIdx])
	return padHash(otIdx, &v)
}

// SendChosen implements NcoSender.SendChosen.
func (s *Sender) SendChosen(messages [][]ot.Label, rand io.Reader,
	conn ot.IO) error {

	if err := s.Init(len(messages), rand, conn); err != nil {
		return err
	}
	if err := s.RecvCorrection(conn); err != nil {
		return err
	}
	if s.malicious {
		seed, err := ot.NewLabel(rand)
		if err != nil {
			return err
		}
		if err := s.Check(conn, seed); err != nil {
			return err
		}
	}
	var buf []byte
	var ld ot.LabelData
	for i, row := range messages {
		buf = buf[:0]
		for j, m := range row {
			pad := s.Encode(i, ChoiceLabel(uint64(j)))
			pad.Xor(m)
			buf = append(buf, pad.Bytes(&ld)...)
		}
		if err := conn.SendData(buf); err != nil {
			return err
		}
	}
	return conn.Flush()
}
