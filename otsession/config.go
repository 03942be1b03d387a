//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package otsession implements two-party 1-out-of-N oblivious
// transfer sessions. A session connects the peers, runs the base OTs
// once, and spreads the OT instances over parallel worker channels.
package otsession

import (
	"time"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/otext"
)

// Default configuration values.
const (
	DefaultTotalOTs      = 2 << 10
	DefaultNumThreads    = 1
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 1213
	DefaultStatSecParam  = 40
	DefaultInputBitCount = 128
	DefaultNumChosenMsgs = 2 << 20
)

// Config defines the OT session parameters. The session copies the
// configuration and never modifies it.
type Config struct {
	TotalOTs        int
	NumThreads      int
	Host            string
	Port            int
	ConnectionName  string
	RootCA          string
	ServerCert      string
	ServerKey       string
	MaliciousSecure bool
	StatSecParam    int
	InputBitCount   int
	NumChosenMsgs   int
	RetryDelay      time.Duration
	DialAttempts    int
	Env             *env.Config
}

// Option sets a configuration parameter.
type Option func(c *Config)

// NewConfig creates a configuration with the default values and
// applies the options.
func NewConfig(opts ...Option) Config {
	c := Config{
		TotalOTs:      DefaultTotalOTs,
		NumThreads:    DefaultNumThreads,
		Host:          DefaultHost,
		Port:          DefaultPort,
		StatSecParam:  DefaultStatSecParam,
		InputBitCount: DefaultInputBitCount,
		NumChosenMsgs: DefaultNumChosenMsgs,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithTotalOTs sets the number of OT instances.
func WithTotalOTs(n int) Option {
	return func(c *Config) {
		c.TotalOTs = n
	}
}

// WithThreads sets the number of worker threads and channels.
func WithThreads(n int) Option {
	return func(c *Config) {
		c.NumThreads = n
	}
}

// WithAddress sets the server host and port.
func WithAddress(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		c.Port = port
	}
}

// WithConnectionName sets the connection name both peers must agree
// on.
func WithConnectionName(name string) Option {
	return func(c *Config) {
		c.ConnectionName = name
	}
}

// WithRootCA sets the receiver's TLS trust anchor file.
func WithRootCA(file string) Option {
	return func(c *Config) {
		c.RootCA = file
	}
}

// WithServerCredentials sets the sender's TLS certificate and key
// files.
func WithServerCredentials(cert, key string) Option {
	return func(c *Config) {
		c.ServerCert = cert
		c.ServerKey = key
	}
}

// WithMalicious selects the malicious security mode.
func WithMalicious(malicious bool) Option {
	return func(c *Config) {
		c.MaliciousSecure = malicious
	}
}

// WithStatSecParam sets the statistical security parameter.
func WithStatSecParam(n int) Option {
	return func(c *Config) {
		c.StatSecParam = n
	}
}

// WithInputBitCount sets the input bit width of the OT extension.
func WithInputBitCount(n int) Option {
	return func(c *Config) {
		c.InputBitCount = n
	}
}

// WithNumChosenMsgs sets the number of messages N of the 1-out-of-N
// OT.
func WithNumChosenMsgs(n int) Option {
	return func(c *Config) {
		c.NumChosenMsgs = n
	}
}

// WithRetry sets the client connect retry delay and attempts.
func WithRetry(delay time.Duration, attempts int) Option {
	return func(c *Config) {
		c.RetryDelay = delay
		c.DialAttempts = attempts
	}
}

// WithEnv sets the environment.
func WithEnv(e *env.Config) Option {
	return func(c *Config) {
		c.Env = e
	}
}

// Mode returns the security mode of the configuration.
func (c Config) Mode() otext.SecurityMode {
	return otext.ModeOf(c.MaliciousSecure)
}

// Validate checks the configuration. All errors are configuration
// errors.
func (c Config) Validate() error {
	if c.TotalOTs <= 0 {
		return env.ConfigErrorf("invalid number of OTs: %d", c.TotalOTs)
	}
	if c.NumThreads <= 0 {
		return env.ConfigErrorf("invalid number of threads: %d",
			c.NumThreads)
	}
	if c.NumThreads > c.TotalOTs {
		return env.ConfigErrorf("%d threads for %d OTs", c.NumThreads,
			c.TotalOTs)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return env.ConfigErrorf("invalid port: %d", c.Port)
	}
	if c.StatSecParam <= 0 {
		return env.ConfigErrorf("invalid statistical security parameter: %d",
			c.StatSecParam)
	}
	if c.InputBitCount <= 0 || c.InputBitCount > 128 {
		return env.ConfigErrorf("invalid input bit count: %d",
			c.InputBitCount)
	}
	if c.MaliciousSecure && c.InputBitCount > otext.MaxOOSInputBits {
		return env.ConfigErrorf("malicious security supports at most %d input bits, got %d",
			otext.MaxOOSInputBits, c.InputBitCount)
	}
	if c.NumChosenMsgs < 2 {
		return env.ConfigErrorf("invalid number of messages: %d",
			c.NumChosenMsgs)
	}
	if c.InputBitCount < 64 && uint64(c.NumChosenMsgs) > 1<<c.InputBitCount {
		return env.ConfigErrorf("%d messages do not fit in %d input bits",
			c.NumChosenMsgs, c.InputBitCount)
	}
	return nil
}

type span struct {
	lo int
	hi int
}

// spans splits the OT instances into contiguous worker ranges. The
// last worker takes the remainder.
func (c Config) spans() []span {
	per := c.TotalOTs / c.NumThreads
	result := make([]span, c.NumThreads)
	for k := range result {
		result[k].lo = k * per
		result[k].hi = result[k].lo + per
	}
	result[len(result)-1].hi = c.TotalOTs
	return result
}
