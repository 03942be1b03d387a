//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/stdr"
)

func TestGetRandom(t *testing.T) {
	var config *Config
	if config.GetRandom() == nil {
		t.Fatalf("nil config returned nil random")
	}
	r := bytes.NewReader([]byte{1, 2, 3})
	config = &Config{
		Rand: r,
	}
	if config.GetRandom() != io.Reader(r) {
		t.Errorf("GetRandom did not return configured reader")
	}
}

func TestGetLogger(t *testing.T) {
	config := &Config{}
	if config.GetLogger().GetSink() == nil {
		t.Errorf("default logger has no sink")
	}
	var buf bytes.Buffer
	config.Logger = stdr.New(log.New(&buf, "", 0))
	config.GetLogger().Info("hello", "key", 42)
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("GetLogger did not return configured logger: %q",
			buf.String())
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ConfigErrorf("bad %d", 1), ErrConfiguration},
		{CredentialErrorf("missing %s", "ca.pem"), ErrCredential},
		{ProtocolErrorf("disabled"), ErrProtocol},
		{UnimplementedErrorf("later"), ErrUnimplemented},
		{ChannelError(io.ErrUnexpectedEOF), ErrChannel},
		{errors.Wrap(ConfigErrorf("wrapped"), "context"), ErrConfiguration},
		{io.EOF, nil},
	}
	for idx, test := range tests {
		if kind := Kind(test.err); kind != test.kind {
			t.Errorf("test-%d: Kind(%v)=%v, expected %v",
				idx, test.err, kind, test.kind)
		}
	}
	if ChannelError(nil) != nil {
		t.Errorf("ChannelError(nil) != nil")
	}
	if !errors.Is(ChannelError(io.ErrUnexpectedEOF), io.ErrUnexpectedEOF) {
		t.Errorf("ChannelError lost the cause")
	}
}
