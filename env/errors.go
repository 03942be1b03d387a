//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Errors returned by the sessions are marked with one of
// these and can be tested with errors.Is.
var (
	// ErrConfiguration marks invalid parameter combinations.
	ErrConfiguration = errors.New("configuration error")

	// ErrCredential marks missing or unloadable TLS material.
	ErrCredential = errors.New("credential error")

	// ErrProtocol marks unknown or disabled schemes and failed
	// protocol checks.
	ErrProtocol = errors.New("protocol error")

	// ErrUnimplemented marks recognized but unsupported schemes.
	ErrUnimplemented = errors.New("unimplemented")

	// ErrChannel marks network failures during connect or
	// transfer.
	ErrChannel = errors.New("channel error")
)

// ConfigErrorf creates a new configuration error.
func ConfigErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// CredentialErrorf creates a new credential error.
func CredentialErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCredential)
}

// ProtocolErrorf creates a new protocol error.
func ProtocolErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrProtocol)
}

// UnimplementedErrorf creates a new unimplemented error.
func UnimplementedErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnimplemented)
}

// ChannelError marks err as a channel error. The function returns
// nil if err is nil.
func ChannelError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrChannel)
}

// Kind returns the error kind of err or nil if err is not marked
// with any of the error kinds.
func Kind(err error) error {
	for _, kind := range []error{
		ErrConfiguration, ErrCredential, ErrProtocol, ErrUnimplemented,
		ErrChannel,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
