//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package psi implements two-party private set intersection. The
// Sender and Receiver dispatch one intersection request to one of
// several PSI protocols, each running on its own oblivious transfer
// primitive.
//
// The receiver learns the indices of its input items that are also
// in the sender's set. The sender learns nothing.
package psi

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
)

// state defines the states of a PSI execution.
type state int

const (
	stateConfigured state = iota
	stateConnected
	stateChannelsOpen
	stateRunning
	stateComplete
	stateFailed
)

var stateNames = map[state]string{
	stateConfigured:   "CONFIGURED",
	stateConnected:    "CONNECTED",
	stateChannelsOpen: "CHANNELS_OPEN",
	stateRunning:      "SUBPROTOCOL_RUNNING",
	stateComplete:     "COMPLETE",
	stateFailed:       "FAILED",
}

func (s state) String() string {
	name, ok := stateNames[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{state %d}", s)
}

// execution holds the state of one PSI execution.
type execution struct {
	config Config
	reg    *registration
	log    logr.Logger
	state  state
	timing *p2p.Timing
	sess   *p2p.Session
	chls   []*p2p.Channel
}

func (e *execution) transition(to state) {
	e.log.V(1).Info("state transition", "from", e.state.String(),
		"to", to.String())
	e.state = to
}

// prepare validates the request. All errors are returned before any
// network activity.
func prepare(config Config, scheme Scheme, set []ot.Label, role string) (
	*execution, error) {

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(set) != config.SetSize {
		return nil, env.ConfigErrorf("input set has %d items, expected %d",
			len(set), config.SetSize)
	}
	if scheme == DRRT18 {
		return nil, executeDRRT18()
	}
	reg, err := lookup(scheme)
	if err != nil {
		return nil, err
	}
	e := &execution{
		config: config,
		reg:    reg,
		log: config.Env.GetLogger().WithName("psi").
			WithValues("role", role, "scheme", scheme.String()),
		timing: p2p.NewTiming(),
	}
	e.log.V(1).Info("state", "state", e.state.String(),
		"ot", reg.ot.String())
	return e, nil
}

// executeDRRT18 handles DRRT18 requests. The scheme runs between
// multiple servers and a client and does not fit the two-party
// session.
func executeDRRT18() error {
	return env.UnimplementedErrorf("%s requires a multi-server channel topology",
		DRRT18)
}

// connect opens the session and its channels.
func (e *execution) connect(ctx context.Context, mode p2p.Mode) error {
	config := e.config

	var err error
	cfg := p2p.SessionConfig{
		Mode:         mode,
		Host:         config.Host,
		Port:         config.Port,
		Name:         config.ConnectionName,
		RetryDelay:   config.RetryDelay,
		DialAttempts: config.DialAttempts,
		Logger:       e.log,
	}
	if config.TLS {
		cfg.TLS, err = p2p.SessionTLS(mode, config.RootCA, config.ServerCert,
			config.ServerKey)
		if err != nil {
			return err
		}
	}
	e.sess, err = p2p.StartSession(ctx, cfg)
	if err != nil {
		return err
	}
	e.transition(stateConnected)

	e.chls, err = e.sess.OpenChannels(ctx, config.NumThreads)
	if err != nil {
		return err
	}
	e.timing.Sample("Connect", nil)
	e.transition(stateChannelsOpen)

	return nil
}

func (e *execution) sample(label string) {
	e.timing.Sample(label, []string{
		p2p.FileSize(e.sess.Stats().Sum()).String(),
	})
}

// finish closes the channels and stops the session.
func (e *execution) finish(err error) (p2p.IOStats, error) {
	stats := p2p.NewIOStats()
	if e.sess != nil {
		for _, ch := range e.chls {
			ch.Close()
		}
		serr := e.sess.Stop()
		if err == nil {
			err = serr
		}
		stats = e.sess.Stats()
		e.timing.Sample("Teardown", nil)
	}
	if err != nil {
		e.transition(stateFailed)
		e.log.V(1).Info("execution failed", "error", err.Error())
	} else {
		e.transition(stateComplete)
	}
	return stats, err
}

// Receiver implements the PSI receiver. The receiver is the client of
// the session.
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

// ExecuteName runs the named scheme. See ParseScheme for the name
// resolution.
func (r *Receiver) ExecuteName(ctx context.Context, name string,
	set []ot.Label) ([]uint64, error) {
	return r.Execute(ctx, parseName(r.config, name), set)
}

// ExecutePairs runs Execute with a pair input set.
func (r *Receiver) ExecutePairs(ctx context.Context, scheme Scheme,
	set []ot.Pair) ([]uint64, error) {
	return r.Execute(ctx, scheme, ot.PairsToLabels(set))
}

// ExecuteNamePairs runs ExecuteName with a pair input set.
func (r *Receiver) ExecuteNamePairs(ctx context.Context, name string,
	set []ot.Pair) ([]uint64, error) {
	return r.ExecuteName(ctx, name, ot.PairsToLabels(set))
}

// Execute runs the scheme and returns the sorted indices of the
// input set items that are also in the sender's set.
func (r *Receiver) Execute(ctx context.Context, scheme Scheme,
	set []ot.Label) (result []uint64, err error) {

	e, err := prepare(r.config, scheme, set, "receiver")
	if err != nil {
		return nil, err
	}
	r.timing = e.timing
	defer func() {
		r.stats, err = e.finish(err)
		if err != nil {
			result = nil
		}
	}()

	if err := e.connect(ctx, p2p.Client); err != nil {
		return nil, err
	}
	rand := e.config.Env.GetRandom()
	eng := e.reg.newReceiver()

	e.transition(stateRunning)
	err = eng.Init(e.reg.params(e.config, rand), e.chls, e.reg.ot.roles(rand))
	if err != nil {
		return nil, errors.Wrapf(err, "%s init", scheme)
	}
	e.sample("Init")
	if err := eng.SendInput(set, e.chls); err != nil {
		return nil, errors.Wrapf(err, "%s input", scheme)
	}
	e.sample("Input")

	result = eng.Intersection()
	e.log.V(1).Info("intersection", "size", len(result))

	return result, nil
}

// Sender implements the PSI sender. The sender is the server of the
// session.
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

// ExecuteName runs the named scheme.
func (s *Sender) ExecuteName(ctx context.Context, name string,
	set []ot.Label) error {
	return s.Execute(ctx, parseName(s.config, name), set)
}

// ExecutePairs runs Execute with a pair input set.
func (s *Sender) ExecutePairs(ctx context.Context, scheme Scheme,
	set []ot.Pair) error {
	return s.Execute(ctx, scheme, ot.PairsToLabels(set))
}

// ExecuteNamePairs runs ExecuteName with a pair input set.
func (s *Sender) ExecuteNamePairs(ctx context.Context, name string,
	set []ot.Pair) error {
	return s.ExecuteName(ctx, name, ot.PairsToLabels(set))
}

// Execute runs the scheme with the input set.
func (s *Sender) Execute(ctx context.Context, scheme Scheme,
	set []ot.Label) (err error) {

	e, err := prepare(s.config, scheme, set, "sender")
	if err != nil {
		return err
	}
	s.timing = e.timing
	defer func() {
		s.stats, err = e.finish(err)
	}()

	if err := e.connect(ctx, p2p.Server); err != nil {
		return err
	}
	rand := e.config.Env.GetRandom()
	eng := e.reg.newSender()

	e.transition(stateRunning)
	err = eng.Init(e.reg.params(e.config, rand), e.chls, e.reg.ot.roles(rand))
	if err != nil {
		return errors.Wrapf(err, "%s init", scheme)
	}
	e.sample("Init")
	if err := eng.SendInput(set, e.chls); err != nil {
		return errors.Wrapf(err, "%s input", scheme)
	}
	e.sample("Input")

	return nil
}

func parseName(config Config, name string) Scheme {
	scheme, ok := lookupScheme(name)
	if !ok {
		config.Env.GetLogger().V(1).Info("unknown PSI scheme name",
			"name", name, "scheme", scheme.String())
	}
	return scheme
}
