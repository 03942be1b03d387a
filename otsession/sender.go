//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otsession

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
	"github.com/markkurossi/otpsi/p2p"
)

// Sender implements the OT sender session. The sender is the server
// of the session.
type Sender struct {
	config Config
	timing *p2p.Timing
	stats  p2p.IOStats
}

// NewSender creates a new sender with the configuration.
func NewSender(config Config) *Sender {
	return &Sender{
		config: config,
		stats:  p2p.NewIOStats(),
	}
}

// Timing returns the timing of the latest execution.
func (s *Sender) Timing() *p2p.Timing {
	return s.timing
}

// Stats returns the I/O statistics of the latest execution.
func (s *Sender) Stats() p2p.IOStats {
	return s.stats
}

// ExecuteSamePairs runs ExecuteSame with pair messages.
func (s *Sender) ExecuteSamePairs(ctx context.Context, messages []ot.Pair,
	useTLS bool) error {
	return s.ExecuteSame(ctx, ot.PairsToLabels(messages), useTLS)
}

// ExecuteDiffPairs runs ExecuteDiff with pair messages.
func (s *Sender) ExecuteDiffPairs(ctx context.Context, messages [][]ot.Pair,
	useTLS bool) error {

	labels := make([][]ot.Label, len(messages))
	for i, row := range messages {
		labels[i] = ot.PairsToLabels(row)
	}
	return s.ExecuteDiff(ctx, labels, useTLS)
}

// ExecuteSame sends the same message vector in every OT instance. The
// messages are masked row by row so the full instance matrix is never
// materialized.
func (s *Sender) ExecuteSame(ctx context.Context, messages []ot.Label,
	useTLS bool) error {

	if len(messages) != s.config.NumChosenMsgs {
		return env.ConfigErrorf("got %d messages, expected %d",
			len(messages), s.config.NumChosenMsgs)
	}
	return s.execute(ctx, useTLS, func(k int, sp span, eng otext.NcoSender,
		prng *ot.PRNG, chl *p2p.Channel) error {

		rounds := sp.hi - sp.lo
		if err := eng.Init(rounds, prng, chl); err != nil {
			return err
		}
		if err := eng.RecvCorrection(chl); err != nil {
			return err
		}
		if eng.IsMalicious() {
			if err := eng.Check(chl, prng.Label()); err != nil {
				return err
			}
		}
		buf := make([]byte, len(messages)*16)
		for i := 0; i < rounds; i++ {
			for j, m := range messages {
				pad := eng.Encode(i, otext.ChoiceLabel(uint64(j)))
				pad.Xor(m)
				pad.GetData((*ot.LabelData)(buf[j*16:]))
			}
			if err := chl.SendData(buf); err != nil {
				return err
			}
		}
		return chl.Flush()
	})
}

// ExecuteDiff sends a different message vector in every OT instance.
// The messages[i][j] is the message j of the instance i.
func (s *Sender) ExecuteDiff(ctx context.Context, messages [][]ot.Label,
	useTLS bool) error {

	if len(messages) != s.config.TotalOTs {
		return env.ConfigErrorf("got %d message rows, expected %d",
			len(messages), s.config.TotalOTs)
	}
	for i, row := range messages {
		if len(row) != s.config.NumChosenMsgs {
			return env.ConfigErrorf("row %d: got %d messages, expected %d",
				i, len(row), s.config.NumChosenMsgs)
		}
	}
	return s.execute(ctx, useTLS, func(k int, sp span, eng otext.NcoSender,
		prng *ot.PRNG, chl *p2p.Channel) error {
		return eng.SendChosen(messages[sp.lo:sp.hi], prng, chl)
	})
}

type sendFunc func(k int, sp span, eng otext.NcoSender, prng *ot.PRNG,
	chl *p2p.Channel) error

func (s *Sender) execute(ctx context.Context, useTLS bool, send sendFunc) (
	err error) {

	config := s.config
	if err := config.Validate(); err != nil {
		return err
	}
	log := config.Env.GetLogger().WithName("otsession").
		WithValues("role", "sender", "mode", config.Mode().String())

	sess, err := open(ctx, config, p2p.Server, useTLS, log)
	if err != nil {
		return err
	}
	s.timing = sess.timing
	defer func() {
		stats, cerr := sess.close()
		s.stats = stats
		if err == nil {
			err = cerr
		}
	}()

	engines, err := s.setup(sess, log)
	if err != nil {
		return err
	}
	durations := make([]time.Duration, config.NumThreads)

	var g errgroup.Group
	for k, sp := range config.spans() {
		g.Go(func() error {
			start := time.Now()
			log.V(1).Info("worker started", "worker", k, "lo", sp.lo,
				"hi", sp.hi)
			err := send(k, sp, engines[k], sess.prngs[k], sess.chls[k])
			durations[k] = time.Since(start)
			if err != nil {
				return errors.Wrapf(err, "worker %d", k)
			}
			log.V(1).Info("worker done", "worker", k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sess.workerSample(durations)

	return nil
}

// setup runs the base OTs on the first channel and splits them for
// the remaining workers.
func (s *Sender) setup(sess *session, log logr.Logger) (
	[]otext.NcoSender, error) {

	config := s.config
	engines := make([]otext.NcoSender, config.NumThreads)

	base := otext.NewNcoSender(config.Mode())
	err := base.Configure(config.MaliciousSecure, config.StatSecParam,
		config.InputBitCount)
	if err != nil {
		return nil, err
	}
	if err := base.GenBaseOTs(sess.rand(), sess.chls[0]); err != nil {
		return nil, errors.Wrap(err, "base OTs")
	}
	engines[0] = base
	sess.sample("Base OTs")
	log.V(1).Info("base OTs done", "phase", "base")

	for k := 1; k < len(engines); k++ {
		engines[k], err = base.SplitBase()
		if err != nil {
			return nil, errors.Wrapf(err, "split %d", k)
		}
	}
	sess.timing.Sample("Split", nil)
	log.V(1).Info("base OTs split", "phase", "split", "engines", len(engines))

	return engines, nil
}
