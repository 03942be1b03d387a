//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/otpsi/env"
)

// Mode defines the session role.
type Mode int

// Session modes.
const (
	Client Mode = iota
	Server
)

func (m Mode) String() string {
	switch m {
	case Client:
		return "client"
	case Server:
		return "server"
	default:
		return fmt.Sprintf("{Mode %d}", m)
	}
}

// Default connect parameters.
const (
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultDialAttempts = 100
)

const (
	ackOK     byte = 1
	ackReject byte = 0
)

// SessionConfig configures a session.
type SessionConfig struct {
	Mode         Mode
	Host         string
	Port         int
	Name         string
	TLS          *tls.Config
	RetryDelay   time.Duration
	DialAttempts int
	Logger       logr.Logger
}

// Addr returns the session network address.
func (cfg SessionConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Session implements a connection between two peers. The session
// multiplexes any number of named logical channels, each carried by
// its own TCP connection.
type Session struct {
	cfg      SessionConfig
	log      logr.Logger
	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup

	m        sync.Mutex
	accepted map[net.Conn]struct{}
	pending  map[string]*Conn
	waiters  map[string]chan *Conn
	channels []*Channel
	stopped  bool
}

// Channel implements a named logical channel of a session.
type Channel struct {
	*Conn
	Name string
	once sync.Once
	err  error
}

// Close closes the channel. It is safe to call Close multiple times.
func (c *Channel) Close() error {
	c.once.Do(func() {
		c.err = c.Conn.Close()
	})
	return c.err
}

// StartSession starts a new session. Server sessions start listening
// for channel connections. Client sessions connect lazily on
// AddChannel.
func StartSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = DefaultDialAttempts
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	s := &Session{
		cfg:      cfg,
		log:      log.WithValues("mode", cfg.Mode.String()),
		done:     make(chan struct{}),
		accepted: make(map[net.Conn]struct{}),
		pending:  make(map[string]*Conn),
		waiters:  make(map[string]chan *Conn),
	}
	if cfg.Mode != Server {
		return s, nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, env.ChannelError(errors.Wrapf(err, "listen %s",
			cfg.Addr()))
	}
	if cfg.TLS != nil {
		listener = tls.NewListener(listener, cfg.TLS)
	}
	s.listener = listener
	s.log.V(1).Info("listening", "addr", listener.Addr().String(),
		"tls", cfg.TLS != nil)

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Addr returns the listening address of a server session and nil for
// client sessions.
func (s *Session) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Session) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Error(err, "accept failed")
			}
			return
		}
		s.m.Lock()
		if s.stopped {
			s.m.Unlock()
			nc.Close()
			return
		}
		s.accepted[nc] = struct{}{}
		s.m.Unlock()

		s.wg.Add(1)
		go s.serve(nc)
	}
}

func (s *Session) serve(nc net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.m.Lock()
		delete(s.accepted, nc)
		s.m.Unlock()
	}()

	conn := NewConn(nc)
	name, err := conn.ReceiveString()
	if err != nil {
		s.log.Error(err, "channel handshake failed")
		conn.Close()
		return
	}
	chName, err := conn.ReceiveString()
	if err != nil {
		s.log.Error(err, "channel handshake failed")
		conn.Close()
		return
	}
	if name != s.cfg.Name {
		s.log.Info("rejecting connection", "connection", name,
			"channel", chName)
		s.reject(conn)
		return
	}

	s.m.Lock()
	_, dup := s.pending[chName]
	stopped := s.stopped
	s.m.Unlock()
	if stopped || dup {
		s.reject(conn)
		return
	}

	// The connection is acknowledged before it is published. After
	// that the channel owns it.
	err = conn.SendByte(ackOK)
	if err == nil {
		err = conn.Flush()
	}
	if err != nil {
		s.log.Error(err, "channel ack failed", "channel", chName)
		conn.Close()
		return
	}

	s.m.Lock()
	_, dup = s.pending[chName]
	if s.stopped || dup {
		s.m.Unlock()
		conn.Close()
		return
	}
	waiter, ok := s.waiters[chName]
	if ok {
		delete(s.waiters, chName)
		waiter <- conn
	} else {
		s.pending[chName] = conn
	}
	s.m.Unlock()

	s.log.V(1).Info("accepted channel", "channel", chName)
}

func (s *Session) reject(conn *Conn) {
	if err := conn.SendByte(ackReject); err == nil {
		conn.Flush()
	}
	conn.Close()
}

// AddChannel adds a named channel to the session. Client sessions
// dial the server, retrying until the configured number of attempts
// is exhausted. Server sessions wait for the client to open the
// channel. Only connection setup honours the context.
func (s *Session) AddChannel(ctx context.Context, name string) (
	*Channel, error) {

	var conn *Conn
	var err error

	if s.cfg.Mode == Server {
		conn, err = s.waitChannel(ctx, name)
	} else {
		conn, err = s.dialChannel(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	ch := &Channel{
		Conn: conn,
		Name: name,
	}

	s.m.Lock()
	if s.stopped {
		s.m.Unlock()
		ch.Close()
		return nil, env.ChannelError(errors.New("session stopped"))
	}
	s.channels = append(s.channels, ch)
	s.m.Unlock()

	return ch, nil
}

// OpenChannels opens count channels named channel_<i>.
func (s *Session) OpenChannels(ctx context.Context, count int) (
	[]*Channel, error) {

	result := make([]*Channel, count)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			ch, err := s.AddChannel(gctx, ChannelName(i))
			if err != nil {
				return err
			}
			result[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, ch := range result {
			if ch != nil {
				ch.Close()
			}
		}
		return nil, err
	}
	return result, nil
}

// ChannelName returns the name of the i:th session channel.
func ChannelName(i int) string {
	return fmt.Sprintf("channel_%d", i)
}

func (s *Session) waitChannel(ctx context.Context, name string) (
	*Conn, error) {

	s.m.Lock()
	if s.stopped {
		s.m.Unlock()
		return nil, env.ChannelError(errors.New("session stopped"))
	}
	conn, ok := s.pending[name]
	if ok {
		delete(s.pending, name)
		s.m.Unlock()
		return conn, nil
	}
	if _, ok := s.waiters[name]; ok {
		s.m.Unlock()
		return nil, env.ProtocolErrorf("channel %s already added", name)
	}
	waiter := make(chan *Conn, 1)
	s.waiters[name] = waiter
	s.m.Unlock()

	select {
	case conn := <-waiter:
		return conn, nil

	case <-ctx.Done():
		s.m.Lock()
		_, waiting := s.waiters[name]
		delete(s.waiters, name)
		s.m.Unlock()
		if !waiting {
			conn := <-waiter
			conn.Close()
		}
		return nil, env.ChannelError(errors.Wrapf(ctx.Err(),
			"waiting for channel %s", name))

	case <-s.done:
		// Connections are handed to waiters under the session lock.
		var conn *Conn
		s.m.Lock()
		select {
		case conn = <-waiter:
		default:
		}
		s.m.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil, env.ChannelError(errors.New("session stopped"))
	}
}

func (s *Session) dialChannel(ctx context.Context, name string) (
	*Conn, error) {

	addr := s.cfg.Addr()
	var dialer net.Dialer
	var nc net.Conn
	var err error

	for attempt := 1; ; attempt++ {
		nc, err = dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
		if attempt >= s.cfg.DialAttempts {
			return nil, env.ChannelError(errors.Wrapf(err,
				"connect %s failed after %d attempts", addr, attempt))
		}
		s.log.V(1).Info("connect failed, retrying", "addr", addr,
			"channel", name, "delay", s.cfg.RetryDelay)
		select {
		case <-time.After(s.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, env.ChannelError(errors.Wrapf(ctx.Err(),
				"connect %s", addr))
		}
	}

	if s.cfg.TLS != nil {
		config := s.cfg.TLS.Clone()
		if len(config.ServerName) == 0 {
			config.ServerName = s.cfg.Host
		}
		tc := tls.Client(nc, config)
		if err := tc.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, env.ChannelError(errors.Wrapf(err,
				"TLS handshake with %s", addr))
		}
		nc = tc
	}
	conn := NewConn(nc)

	if err := conn.SendString(s.cfg.Name); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SendString(name); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, err
	}
	ack, err := conn.ReceiveByte()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ack != ackOK {
		conn.Close()
		return nil, env.ProtocolErrorf("channel %s of connection %q rejected",
			name, s.cfg.Name)
	}
	s.log.V(1).Info("connected channel", "addr", addr, "channel", name)

	return conn, nil
}

// Stats returns the sum of the I/O statistics of all session
// channels.
func (s *Session) Stats() IOStats {
	s.m.Lock()
	defer s.m.Unlock()

	result := NewIOStats()
	for _, ch := range s.channels {
		result = result.Add(ch.Stats)
	}
	return result
}

// Stop stops the session. It closes all channels and the listener and
// waits for the session goroutines to terminate.
func (s *Session) Stop() error {
	s.m.Lock()
	if s.stopped {
		s.m.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)
	channels := s.channels
	pending := s.pending
	s.pending = make(map[string]*Conn)
	var accepted []net.Conn
	for nc := range s.accepted {
		accepted = append(accepted, nc)
	}
	s.m.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, ch := range channels {
		ch.Close()
	}
	for _, conn := range pending {
		conn.Close()
	}
	for _, nc := range accepted {
		nc.Close()
	}
	s.wg.Wait()
	s.log.V(1).Info("session stopped")

	return err
}

// Open starts a session and opens count channels on it. The session
// is stopped if any channel fails to open.
func Open(ctx context.Context, cfg SessionConfig, count int) (
	*Session, []*Channel, error) {

	s, err := StartSession(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	chls, err := s.OpenChannels(ctx, count)
	if err != nil {
		s.Stop()
		return nil, nil, err
	}
	return s, chls, nil
}
