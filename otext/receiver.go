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

// checkBytes defines the size of one consistency check answer: the
// combined code word rows and the combined inputs.
const checkBytes = codeBytes + 16

var (
	_ NcoReceiver = &Receiver{}
)

// Receiver implements the NcoReceiver interface.
type Receiver struct {
	params
	hasBase bool
	g0      [CodeBits]*ot.PRNG
	g1      [CodeBits]*ot.PRNG
	code    code
	t0      []block512
	d       []block512
	choices []ot.Label
	numOTs  int
}

// NewKKRTReceiver creates a new semi-honest KKRT receiver.
func NewKKRTReceiver() *Receiver {
	return &Receiver{
		params: defaultParams(KKRT),
	}
}

// NewOOSReceiver creates a new malicious OOS receiver.
func NewOOSReceiver() *Receiver {
	return &Receiver{
		params: defaultParams(OOS),
	}
}

// Variant returns the extension variant.
func (r *Receiver) Variant() Variant {
	return r.variant
}

// Configure implements NcoReceiver.Configure.
func (r *Receiver) Configure(malicious bool, statSec, inputBits int) error {
	if r.hasBase {
		return errors.New("receiver already has base OTs")
	}
	return r.configure(malicious, statSec, inputBits)
}

// IsMalicious implements NcoReceiver.IsMalicious.
func (r *Receiver) IsMalicious() bool {
	return r.malicious
}

// HasBaseOTs implements NcoReceiver.HasBaseOTs.
func (r *Receiver) HasBaseOTs() bool {
	return r.hasBase
}

// GenBaseOTs implements NcoReceiver.GenBaseOTs. The receiver is the
// sender of the base random OTs.
func (r *Receiver) GenBaseOTs(rand io.Reader, conn ot.IO) error {
	rot := ot.NewROT(ot.NewCO(rand), rand, r.malicious)
	if err := rot.InitSender(conn); err != nil {
		return errors.Wrap(err, "base OT init")
	}
	wires := make([]ot.Wire, CodeBits)
	if err := rot.Send(wires); err != nil {
		return errors.Wrap(err, "base OT")
	}
	for j := range wires {
		r.g0[j] = ot.NewPRNG(wires[j].L0)
		r.g1[j] = ot.NewPRNG(wires[j].L1)
	}

	var seed ot.Label
	var ld ot.LabelData
	if err := conn.ReceiveLabel(&seed, &ld); err != nil {
		return err
	}
	r.code = newCode(r.variant, seed, r.inputBits)
	r.hasBase = true

	return nil
}

// SplitBase implements NcoReceiver.SplitBase.
func (r *Receiver) SplitBase() (NcoReceiver, error) {
	if !r.hasBase {
		return nil, errors.New("receiver has no base OTs")
	}
	child := &Receiver{
		params:  r.params,
		hasBase: true,
		code:    r.code,
	}
	for j := range r.g0 {
		child.g0[j] = ot.NewPRNG(r.g0[j].Label())
		child.g1[j] = ot.NewPRNG(r.g1[j].Label())
	}
	return child, nil
}

// Init implements NcoReceiver.Init. The instances without an Encode
// call use the all-zero input.
func (r *Receiver) Init(numOTs int, rand io.Reader, conn ot.IO) error {
	if !r.hasBase {
		return errors.New("receiver has no base OTs")
	}
	if numOTs <= 0 {
		return env.ConfigErrorf("invalid number of OTs: %d", numOTs)
	}
	total := numOTs + r.padRows()
	rowBytes := (total + 7) / 8

	cols0 := make([]byte, CodeBits*rowBytes)
	cols1 := make([]byte, CodeBits*rowBytes)
	for j := 0; j < CodeBits; j++ {
		r.g0[j].Read(cols0[j*rowBytes : (j+1)*rowBytes])
		r.g1[j].Read(cols1[j*rowBytes : (j+1)*rowBytes])
	}
	r.t0 = transpose512(cols0, rowBytes, total)
	r.d = transpose512(cols1, rowBytes, total)
	for i := range r.d {
		r.d[i].xor(&r.t0[i])
	}

	r.choices = make([]ot.Label, total)
	for i := numOTs; i < total; i++ {
		pad, err := ot.NewLabel(rand)
		if err != nil {
			return err
		}
		pad.Mask(r.inputBits)
		r.choices[i] = pad
	}
	r.numOTs = numOTs

	return nil
}

// Encode implements NcoReceiver.Encode.
func (r *Receiver) Encode(otIdx int, choice ot.Label) ot.Label {
	choice.Mask(r.inputBits)
	r.choices[otIdx] = choice
	return padHash(otIdx, &r.t0[otIdx])
}

// SendCorrection implements NcoReceiver.SendCorrection.
func (r *Receiver) SendCorrection(conn ot.IO) error {
	buf := make([]byte, len(r.d)*codeBytes)
	for i := range r.d {
		u := r.code.encode(r.choices[i])
		u.xor(&r.d[i])
		u.putBytes(buf[i*codeBytes:])
	}
	if err := conn.SendData(buf); err != nil {
		return err
	}
	return conn.Flush()
}

// Check implements NcoReceiver.Check.
func (r *Receiver) Check(conn ot.IO) error {
	if !r.malicious {
		return nil
	}
	var seed ot.Label
	var ld ot.LabelData
	if err := conn.ReceiveLabel(&seed, &ld); err != nil {
		return err
	}
	prng := ot.NewPRNG(seed)
	weights := make([]byte, (len(r.t0)+7)/8)
	buf := make([]byte, r.statSec*checkBytes)

	for l := 0; l < r.statSec; l++ {
		prng.Read(weights)

		var t block512
		var x ot.Label
		for i := range r.t0 {
			if (weights[i/8]>>(i%8))&1 == 1 {
				t.xor(&r.t0[i])
				x.Xor(r.choices[i])
			}
		}
		t.putBytes(buf[l*checkBytes:])
		x.GetData((*ot.LabelData)(buf[l*checkBytes+codeBytes:]))
	}
	if err := conn.SendData(buf); err != nil {
		return err
	}
	return conn.Flush()
}

// ReceiveChosen implements NcoReceiver.ReceiveChosen.
func (r *Receiver) ReceiveChosen(numMsgs int, out []ot.Label,
	choices []uint64, rand io.Reader, conn ot.IO) error {

	if len(out) != len(choices) {
		return env.ConfigErrorf("output size %d does not match choices %d",
			len(out), len(choices))
	}
	for i, c := range choices {
		if c >= uint64(numMsgs) {
			return env.ConfigErrorf("choice %d out of range: %d >= %d",
				i, c, numMsgs)
		}
	}
	if err := r.Init(len(choices), rand, conn); err != nil {
		return err
	}
	pads := make([]ot.Label, len(choices))
	for i, c := range choices {
		pads[i] = r.Encode(i, ChoiceLabel(c))
	}
	if err := r.SendCorrection(conn); err != nil {
		return err
	}
	if err := r.Check(conn); err != nil {
		return err
	}
	for i, c := range choices {
		data, err := conn.ReceiveData()
		if err != nil {
			return err
		}
		if len(data) != numMsgs*16 {
			return env.ProtocolErrorf("invalid message row size %d, expected %d",
				len(data), numMsgs*16)
		}
		var m ot.Label
		m.SetBytes(data[c*16:])
		m.Xor(pads[i])
		out[i] = m
	}
	return nil
}
