//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otext

import (
	"crypto/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/stretchr/testify/require"
)

// run runs the sender and receiver functions concurrently over a
// pipe and returns their errors.
func run(fs func(io ot.IO) error, fr func(io ot.IO) error) (error, error) {
	sp, rp := ot.NewPipe()
	done := make(chan error)

	go func() {
		err := fr(rp)
		if err != nil {
			rp.Close()
		}
		done <- err
	}()
	serr := fs(sp)
	if serr != nil {
		sp.Close()
	}
	return serr, <-done
}

func baseOTs(t *testing.T, s *Sender, r *Receiver) {
	t.Helper()
	serr, rerr := run(func(io ot.IO) error {
		return s.GenBaseOTs(rand.Reader, io)
	}, func(io ot.IO) error {
		return r.GenBaseOTs(rand.Reader, io)
	})
	require.NoError(t, serr)
	require.NoError(t, rerr)
	require.True(t, s.HasBaseOTs())
	require.True(t, r.HasBaseOTs())
}

func pairs() map[string]func() (*Sender, *Receiver) {
	return map[string]func() (*Sender, *Receiver){
		"KKRT": func() (*Sender, *Receiver) {
			return NewKKRTSender(), NewKKRTReceiver()
		},
		"OOS": func() (*Sender, *Receiver) {
			return NewOOSSender(), NewOOSReceiver()
		},
	}
}

func TestEncode(t *testing.T) {
	for name, create := range pairs() {
		t.Run(name, func(t *testing.T) {
			s, r := create()
			baseOTs(t, s, r)

			const n = 100
			choices := make([]ot.Label, n)
			rpads := make([]ot.Label, n)
			for i := range choices {
				choices[i] = ChoiceLabel(uint64(i * 7))
			}

			serr, rerr := run(func(io ot.IO) error {
				if err := s.Init(n, rand.Reader, io); err != nil {
					return err
				}
				if err := s.RecvCorrection(io); err != nil {
					return err
				}
				return s.Check(io, ot.Label{D0: 1, D1: 2})
			}, func(io ot.IO) error {
				if err := r.Init(n, rand.Reader, io); err != nil {
					return err
				}
				for i, c := range choices {
					rpads[i] = r.Encode(i, c)
				}
				if err := r.SendCorrection(io); err != nil {
					return err
				}
				return r.Check(io)
			})
			require.NoError(t, serr)
			require.NoError(t, rerr)

			for i, c := range choices {
				require.Equal(t, rpads[i], s.Encode(i, c), "instance %d", i)

				other := c
				other.D1++
				require.NotEqual(t, rpads[i], s.Encode(i, other),
					"instance %d", i)
			}
		})
	}
}

func TestChosen(t *testing.T) {
	for name, create := range pairs() {
		t.Run(name, func(t *testing.T) {
			s, r := create()
			baseOTs(t, s, r)

			const (
				rounds  = 10
				numMsgs = 64
			)
			messages := make([][]ot.Label, rounds)
			for i := range messages {
				messages[i] = make([]ot.Label, numMsgs)
				for j := range messages[i] {
					messages[i][j] = ot.Label{D0: uint64(i), D1: uint64(j)}
				}
			}
			choices := make([]uint64, rounds)
			for i := range choices {
				choices[i] = uint64(i*5) % numMsgs
			}
			out := make([]ot.Label, rounds)

			serr, rerr := run(func(io ot.IO) error {
				return s.SendChosen(messages, rand.Reader, io)
			}, func(io ot.IO) error {
				return r.ReceiveChosen(numMsgs, out, choices, rand.Reader, io)
			})
			require.NoError(t, serr)
			require.NoError(t, rerr)

			for i, c := range choices {
				require.Equal(t, messages[i][c], out[i])
			}
		})
	}
}

func TestSplitBase(t *testing.T) {
	for name, create := range pairs() {
		t.Run(name, func(t *testing.T) {
			s, r := create()
			baseOTs(t, s, r)

			senders := []NcoSender{s}
			receivers := []NcoReceiver{r}
			for i := 0; i < 3; i++ {
				cs, err := s.SplitBase()
				require.NoError(t, err)
				cr, err := r.SplitBase()
				require.NoError(t, err)
				senders = append(senders, cs)
				receivers = append(receivers, cr)
			}

			for idx := range senders {
				messages := [][]ot.Label{
					{{D1: 1}, {D1: 2}, {D1: 3}},
					{{D1: 4}, {D1: 5}, {D1: 6}},
				}
				choices := []uint64{2, 0}
				out := make([]ot.Label, 2)

				serr, rerr := run(func(io ot.IO) error {
					return senders[idx].SendChosen(messages, rand.Reader, io)
				}, func(io ot.IO) error {
					return receivers[idx].ReceiveChosen(3, out, choices,
						rand.Reader, io)
				})
				require.NoError(t, serr, "instance %d", idx)
				require.NoError(t, rerr, "instance %d", idx)
				require.Equal(t, ot.Label{D1: 3}, out[0])
				require.Equal(t, ot.Label{D1: 4}, out[1])
			}
		})
	}
}

func TestConfigure(t *testing.T) {
	err := NewKKRTSender().Configure(true, 40, 128)
	require.True(t, errors.Is(err, env.ErrConfiguration))

	err = NewOOSReceiver().Configure(true, 40, MaxOOSInputBits+1)
	require.True(t, errors.Is(err, env.ErrConfiguration))

	err = NewOOSSender().Configure(true, 0, 64)
	require.True(t, errors.Is(err, env.ErrConfiguration))

	require.NoError(t, NewOOSSender().Configure(true, 40, MaxOOSInputBits))
	require.NoError(t, NewKKRTReceiver().Configure(false, 40, 128))

	require.Equal(t, OOS, NewNcoSender(Malicious).Variant())
	require.Equal(t, KKRT, NewNcoReceiver(SemiHonest).Variant())
	require.Equal(t, Malicious, ModeOf(true))
}

func TestReceiveChosenInvalidChoice(t *testing.T) {
	r := NewKKRTReceiver()
	err := r.ReceiveChosen(4, make([]ot.Label, 1), []uint64{4},
		rand.Reader, nil)
	require.True(t, errors.Is(err, env.ErrConfiguration))
}

func TestOOSCheckDetectsInconsistentInput(t *testing.T) {
	s := NewOOSSender()
	r := NewOOSReceiver()
	baseOTs(t, s, r)

	const n = 16
	serr, rerr := run(func(io ot.IO) error {
		if err := s.Init(n, rand.Reader, io); err != nil {
			return err
		}
		if err := s.RecvCorrection(io); err != nil {
			return err
		}
		return s.Check(io, ot.Label{D1: 99})
	}, func(io ot.IO) error {
		if err := r.Init(n, rand.Reader, io); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			r.Encode(i, ChoiceLabel(uint64(i)))
		}
		if err := r.SendCorrection(io); err != nil {
			return err
		}
		// Change the inputs after committing to the corrections.
		for i := 0; i < n; i++ {
			r.Encode(i, ChoiceLabel(uint64(i+1)))
		}
		return r.Check(io)
	})
	require.NoError(t, rerr)
	require.True(t, errors.Is(serr, env.ErrProtocol), "got %v", serr)
}
