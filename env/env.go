//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements the global environment for the OT and PSI
// sessions.
package env

import (
	"crypto/rand"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// Config defines the global system configuration for the sessions.
// It configures the entropy source and logging for all modules.
// Config must not be modified after being passed to any module. It
// is safe for concurrent use by multiple sessions as they do not
// modify it.
type Config struct {
	Rand   io.Reader
	Logger logr.Logger
}

// GetRandom returns the source of entropy for base OTs, OT
// extension, and other cryptography operations.
func (config *Config) GetRandom() io.Reader {
	if config != nil && config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// GetLogger returns the session logger. If the configuration does
// not specify a logger, the function returns a standard library
// backed logger writing to standard error.
func (config *Config) GetLogger() logr.Logger {
	if config != nil && config.Logger.GetSink() != nil {
		return config.Logger
	}
	return defaultLogger
}

var defaultLogger = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
