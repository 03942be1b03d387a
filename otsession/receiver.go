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
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
	"github.com/markkurossi/otpsi/p2p"
)

// Receiver implements the OT receiver session. The receiver is the
// client of the session.
type Receiver struct {
	config Config
	timing *p2p.Timing
	stats  p2p.IOStats
}

// NewReceiver creates a new receiver with the configuration.
func NewReceiver(config Config) *Receiver {
	return &Receiver{
		config: config,
		stats:  p2p.NewIOStats(),
	}
}

// Timing returns the timing of the latest execution.
func (r *Receiver) Timing() *p2p.Timing {
	return r.timing
}

// Stats returns the I/O statistics of the latest execution.
func (r *Receiver) Stats() p2p.IOStats {
	return r.stats
}

// ExecutePairs runs Execute and returns the results as pairs.
func (r *Receiver) ExecutePairs(ctx context.Context, choices []uint64,
	useTLS bool) ([]ot.Pair, error) {

	result, err := r.Execute(ctx, choices, useTLS)
	if err != nil {
		return nil, err
	}
	return ot.LabelsToPairs(result), nil
}

// Execute receives the messages of the choices. The result is index
// aligned with choices.
func (r *Receiver) Execute(ctx context.Context, choices []uint64,
	useTLS bool) (result []ot.Label, err error) {

	config := r.config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(choices) != config.TotalOTs {
		return nil, env.ConfigErrorf("got %d choices, expected %d",
			len(choices), config.TotalOTs)
	}
	for i, c := range choices {
		if c >= uint64(config.NumChosenMsgs) {
			return nil, env.ConfigErrorf("choice %d out of range: %d >= %d",
				i, c, config.NumChosenMsgs)
		}
	}
	log := config.Env.GetLogger().WithName("otsession").
		WithValues("role", "receiver", "mode", config.Mode().String())

	s, err := open(ctx, config, p2p.Client, useTLS, log)
	if err != nil {
		return nil, err
	}
	r.timing = s.timing
	defer func() {
		stats, cerr := s.close()
		r.stats = stats
		if err == nil && cerr != nil {
			result = nil
			err = cerr
		}
	}()

	engines := make([]otext.NcoReceiver, config.NumThreads)
	base := otext.NewNcoReceiver(config.Mode())
	err = base.Configure(config.MaliciousSecure, config.StatSecParam,
		config.InputBitCount)
	if err != nil {
		return nil, err
	}
	if err := base.GenBaseOTs(s.rand(), s.chls[0]); err != nil {
		return nil, errors.Wrap(err, "base OTs")
	}
	engines[0] = base
	s.sample("Base OTs")
	log.V(1).Info("base OTs done", "phase", "base")

	for k := 1; k < len(engines); k++ {
		engines[k], err = base.SplitBase()
		if err != nil {
			return nil, errors.Wrapf(err, "split %d", k)
		}
	}
	s.timing.Sample("Split", nil)
	log.V(1).Info("base OTs split", "phase", "split", "engines", len(engines))

	result = make([]ot.Label, config.TotalOTs)
	durations := make([]time.Duration, config.NumThreads)

	var g errgroup.Group
	for k, sp := range config.spans() {
		g.Go(func() error {
			start := time.Now()
			log.V(1).Info("worker started", "worker", k, "lo", sp.lo,
				"hi", sp.hi)
			err := engines[k].ReceiveChosen(config.NumChosenMsgs,
				result[sp.lo:sp.hi], choices[sp.lo:sp.hi], s.prngs[k],
				s.chls[k])
			durations[k] = time.Since(start)
			if err != nil {
				return errors.Wrapf(err, "worker %d", k)
			}
			log.V(1).Info("worker done", "worker", k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.workerSample(durations)

	return result, nil
}
