//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otsession

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/go-logr/logr"

	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
)

// session holds the connected state of one execution.
type session struct {
	config Config
	log    logr.Logger
	timing *p2p.Timing
	sess   *p2p.Session
	chls   []*p2p.Channel
	prngs  []*ot.PRNG
}

// open loads the TLS credentials, connects the peers, and opens the
// worker channels. Credential errors are returned before any network
// activity.
func open(ctx context.Context, config Config, mode p2p.Mode, useTLS bool,
	log logr.Logger) (*session, error) {

	var tlsConfig *tls.Config
	var err error

	if useTLS {
		tlsConfig, err = p2p.SessionTLS(mode, config.RootCA,
			config.ServerCert, config.ServerKey)
		if err != nil {
			return nil, err
		}
	}

	s := &session{
		config: config,
		log:    log,
		timing: p2p.NewTiming(),
	}

	// Worker randomness is drawn before any worker starts since the
	// environment's entropy source need not be safe for concurrent
	// use.
	rand := config.Env.GetRandom()
	for k := 0; k < config.NumThreads; k++ {
		prng, err := ot.NewRandomPRNG(rand)
		if err != nil {
			return nil, err
		}
		s.prngs = append(s.prngs, prng)
	}

	s.sess, s.chls, err = p2p.Open(ctx, p2p.SessionConfig{
		Mode:         mode,
		Host:         config.Host,
		Port:         config.Port,
		Name:         config.ConnectionName,
		TLS:          tlsConfig,
		RetryDelay:   config.RetryDelay,
		DialAttempts: config.DialAttempts,
		Logger:       log,
	}, config.NumThreads)
	if err != nil {
		return nil, err
	}
	s.timing.Sample("Connect", nil)
	log.V(1).Info("connected", "phase", "connect", "channels", len(s.chls),
		"tls", useTLS)

	return s, nil
}

// rand returns the randomness source for the setup phase.
func (s *session) rand() io.Reader {
	return s.prngs[0]
}

// sample records a timing sample with the current I/O volume.
func (s *session) sample(label string) *p2p.Sample {
	return s.timing.Sample(label, []string{
		p2p.FileSize(s.sess.Stats().Sum()).String(),
	})
}

// workerSample records the extension phase with per worker
// durations.
func (s *session) workerSample(durations []time.Duration) {
	sample := s.sample("Extend")
	for k, d := range durations {
		sample.AbsSubSample(p2p.WorkerLabel(k), d)
	}
}

// close closes all channels and stops the session.
func (s *session) close() (p2p.IOStats, error) {
	for _, ch := range s.chls {
		ch.Close()
	}
	err := s.sess.Stop()
	stats := s.sess.Stats()
	s.timing.Sample("Teardown", nil)
	s.log.V(1).Info("session closed", "phase", "teardown",
		"bytes", stats.Sum())
	return stats, err
}
