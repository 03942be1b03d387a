//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"time"

	"github.com/markkurossi/otpsi/env"
)

// Default configuration values.
const (
	DefaultStatSecParam   = 40
	DefaultNumThreads     = 1
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 1213
	DefaultConnectionName = "StandardConnection"
	DefaultEpsBin         = 0.1
	DefaultBinScaler      = 12
)

// Config defines the PSI session parameters. The session copies the
// configuration and never modifies it.
type Config struct {
	SetSize        int
	StatSecParam   int
	NumThreads     int
	Host           string
	Port           int
	ConnectionName string
	TLS            bool
	RootCA         string
	ServerCert     string
	ServerKey      string
	EpsBin         float64
	BinScaler      float64
	BitSize        int
	RetryDelay     time.Duration
	DialAttempts   int
	Env            *env.Config
}

// Option sets a configuration parameter.
type Option func(c *Config)

// NewConfig creates a configuration with the default values and
// applies the options.
func NewConfig(opts ...Option) Config {
	c := Config{
		StatSecParam:   DefaultStatSecParam,
		NumThreads:     DefaultNumThreads,
		Host:           DefaultHost,
		Port:           DefaultPort,
		ConnectionName: DefaultConnectionName,
		TLS:            true,
		EpsBin:         DefaultEpsBin,
		BinScaler:      DefaultBinScaler,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithSetSize sets the size of the input sets.
func WithSetSize(n int) Option {
	return func(c *Config) {
		c.SetSize = n
	}
}

// WithStatSecParam sets the statistical security parameter.
func WithStatSecParam(n int) Option {
	return func(c *Config) {
		c.StatSecParam = n
	}
}

// WithThreads sets the number of session channels.
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

// WithConnectionName sets the connection name.
func WithConnectionName(name string) Option {
	return func(c *Config) {
		c.ConnectionName = name
	}
}

// WithTLS enables or disables TLS.
func WithTLS(enabled bool) Option {
	return func(c *Config) {
		c.TLS = enabled
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

// WithBinning sets the bin tuning parameters.
func WithBinning(epsBin, binScaler float64) Option {
	return func(c *Config) {
		c.EpsBin = epsBin
		c.BinScaler = binScaler
	}
}

// WithBitSize overrides the derived input bit size.
func WithBitSize(n int) Option {
	return func(c *Config) {
		c.BitSize = n
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

// Validate checks the configuration. All errors are configuration
// errors.
func (c Config) Validate() error {
	if c.SetSize <= 0 {
		c.Env.GetLogger().Info("warning: PSI set size is not set",
			"setSize", c.SetSize)
		return env.ConfigErrorf("invalid set size: %d", c.SetSize)
	}
	if c.StatSecParam <= 0 {
		return env.ConfigErrorf("invalid statistical security parameter: %d",
			c.StatSecParam)
	}
	if c.NumThreads <= 0 {
		return env.ConfigErrorf("invalid number of threads: %d",
			c.NumThreads)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return env.ConfigErrorf("invalid port: %d", c.Port)
	}
	if c.EpsBin <= 0 {
		return env.ConfigErrorf("invalid bin epsilon: %v", c.EpsBin)
	}
	if c.BinScaler <= 0 {
		return env.ConfigErrorf("invalid bin scaler: %v", c.BinScaler)
	}
	if c.BitSize < 0 || c.BitSize > 128 {
		return env.ConfigErrorf("invalid bit size: %d", c.BitSize)
	}
	return nil
}
