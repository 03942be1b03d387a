//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/p2p"
	"github.com/markkurossi/otpsi/p2p/p2ptest"
)

var implementedSchemes = []Scheme{KKRT16, RR16, RR17, DKT10}

// evenSets returns the sender set {(i,i)} and the receiver set
// {(i,i+i%2)}. The sets intersect at the even indices.
func evenSets(n int) ([]ot.Pair, []ot.Pair) {
	sender := make([]ot.Pair, n)
	receiver := make([]ot.Pair, n)
	for i := 0; i < n; i++ {
		sender[i] = ot.Pair{First: uint64(i), Second: uint64(i)}
		receiver[i] = ot.Pair{First: uint64(i), Second: uint64(i + i%2)}
	}
	return sender, receiver
}

func evenIndices(n int) []uint64 {
	var result []uint64
	for i := 0; i < n; i += 2 {
		result = append(result, uint64(i))
	}
	return result
}

func testConfig(t *testing.T, opts ...Option) Config {
	t.Helper()
	port, err := p2ptest.FreePort()
	require.NoError(t, err)

	base := []Option{
		WithAddress(p2ptest.Host, port),
		WithConnectionName(t.Name()),
		WithRetry(10*time.Millisecond, 500),
		WithTLS(false),
	}
	return NewConfig(append(base, opts...)...)
}

func execute(t *testing.T, config Config, scheme Scheme,
	sset, rset []ot.Pair) []uint64 {

	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var result []uint64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return NewSender(config).ExecutePairs(gctx, scheme, sset)
	})
	g.Go(func() error {
		var err error
		result, err = NewReceiver(config).ExecutePairs(gctx, scheme, rset)
		return err
	})
	require.NoError(t, g.Wait())
	return result
}

func TestExecute(t *testing.T) {
	const n = 8
	sset, rset := evenSets(n)

	for _, scheme := range implementedSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			config := testConfig(t, WithSetSize(n))
			result := execute(t, config, scheme, sset, rset)
			require.Equal(t, []uint64{0, 2, 4, 6}, result)
		})
	}
}

func TestExecuteTLS(t *testing.T) {
	const n = 8
	sset, rset := evenSets(n)

	creds, err := p2ptest.NewCredentials(t.TempDir())
	require.NoError(t, err)

	for _, scheme := range implementedSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			config := testConfig(t,
				WithSetSize(n),
				WithThreads(2),
				WithTLS(true),
				WithRootCA(creds.RootCA),
				WithServerCredentials(creds.ServerCert, creds.ServerKey))
			result := execute(t, config, scheme, sset, rset)
			require.Equal(t, evenIndices(n), result)
		})
	}
}

func TestExecuteName(t *testing.T) {
	const n = 4
	sset, rset := evenSets(n)
	config := testConfig(t, WithSetSize(n))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var result []uint64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return NewSender(config).ExecuteNamePairs(gctx, "kkrt16", sset)
	})
	g.Go(func() error {
		var err error
		result, err = NewReceiver(config).ExecuteNamePairs(gctx, "KKRT16",
			rset)
		return err
	})
	require.NoError(t, g.Wait())
	require.Equal(t, []uint64{0, 2}, result)
}

// runEngines runs the scheme engines over an in-memory pipe.
func runEngines(t *testing.T, scheme Scheme, config Config,
	sset, rset []ot.Label) []uint64 {

	t.Helper()
	reg, err := lookup(scheme)
	require.NoError(t, err)

	c0, c1 := p2p.Pipe()
	schls := []*p2p.Channel{{Conn: c0, Name: p2p.ChannelName(0)}}
	rchls := []*p2p.Channel{{Conn: c1, Name: p2p.ChannelName(0)}}

	var g errgroup.Group
	g.Go(func() error {
		defer schls[0].Close()
		eng := reg.newSender()
		err := eng.Init(reg.params(config, rand.Reader), schls,
			reg.ot.roles(rand.Reader))
		if err != nil {
			return err
		}
		return eng.SendInput(sset, schls)
	})
	eng := reg.newReceiver()
	err = eng.Init(reg.params(config, rand.Reader), rchls,
		reg.ot.roles(rand.Reader))
	if err == nil {
		err = eng.SendInput(rset, rchls)
	}
	if err != nil {
		rchls[0].Close()
	}
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	return eng.Intersection()
}

func TestEngines(t *testing.T) {
	const n = 200

	sset := make([]ot.Label, n)
	rset := make([]ot.Label, n)
	var expected []uint64
	for i := 0; i < n; i++ {
		sset[i] = ot.Label{D0: 1, D1: uint64(i)}
		if i%3 == 0 {
			rset[i] = ot.Label{D0: 1, D1: uint64(n - 1 - i)}
			expected = append(expected, uint64(i))
		} else {
			rset[i] = ot.Label{D0: 2, D1: uint64(i)}
		}
	}
	config := NewConfig(WithSetSize(n))

	for _, scheme := range implementedSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			result := runEngines(t, scheme, config, sset, rset)
			require.Equal(t, expected, result)
		})
	}
}

func TestEnginesDisjoint(t *testing.T) {
	const n = 16

	sset := make([]ot.Label, n)
	rset := make([]ot.Label, n)
	for i := range sset {
		sset[i] = ot.Label{D1: uint64(i)}
		rset[i] = ot.Label{D1: uint64(n + i)}
	}
	config := NewConfig(WithSetSize(n))

	for _, scheme := range implementedSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			result := runEngines(t, scheme, config, sset, rset)
			require.Empty(t, result)
		})
	}
}

func TestSetSizeMismatch(t *testing.T) {
	c0, c1 := p2p.Pipe()
	schl := &p2p.Channel{Conn: c0}
	rchl := &p2p.Channel{Conn: c1}

	seed := func() *ot.PRNG {
		return ot.NewPRNG(ProtocolSeed)
	}
	errc := make(chan error, 1)
	go func() {
		_, err := receiverSetup(Params{
			SetSize: 4,
			Seed:    seed(),
			Rand:    rand.Reader,
		}, rchl)
		errc <- err
	}()
	_, err := senderSetup(Params{
		SetSize: 5,
		Seed:    seed(),
		Rand:    rand.Reader,
	}, schl)
	require.True(t, errors.Is(err, env.ErrProtocol), "got %v", err)
	schl.Close()
	require.True(t, errors.Is(<-errc, env.ErrChannel))
}

func TestFailBeforeConnect(t *testing.T) {
	const n = 4
	sset, rset := evenSets(n)

	tests := []struct {
		scheme Scheme
		kind   error
	}{
		{GRR18, env.ErrProtocol},
		{DRRT18, env.ErrUnimplemented},
		{Scheme(42), env.ErrProtocol},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d", int(test.scheme)), func(t *testing.T) {
			config := testConfig(t, WithSetSize(n))

			_, err := NewReceiver(config).ExecutePairs(context.Background(),
				test.scheme, rset)
			require.True(t, errors.Is(err, test.kind), "got %v", err)

			err = NewSender(config).ExecutePairs(context.Background(),
				test.scheme, sset)
			require.True(t, errors.Is(err, test.kind), "got %v", err)
		})
	}

	// Unknown names run GRR18.
	config := testConfig(t, WithSetSize(n))
	_, err := NewReceiver(config).ExecuteNamePairs(context.Background(),
		"kkrt", rset)
	require.True(t, errors.Is(err, env.ErrProtocol), "got %v", err)
}

func TestConfigErrors(t *testing.T) {
	config := testConfig(t)
	_, err := NewReceiver(config).Execute(context.Background(), KKRT16, nil)
	require.True(t, errors.Is(err, env.ErrConfiguration), "got %v", err)

	config = testConfig(t, WithSetSize(4))
	err = NewSender(config).Execute(context.Background(), KKRT16,
		make([]ot.Label, 3))
	require.True(t, errors.Is(err, env.ErrConfiguration), "got %v", err)

	config = testConfig(t, WithSetSize(4), WithTLS(true),
		WithRootCA("/nonexistent/ca.pem"))
	_, err = NewReceiver(config).Execute(context.Background(), KKRT16,
		make([]ot.Label, 4))
	require.True(t, errors.Is(err, env.ErrCredential), "got %v", err)

	require.NoError(t, NewConfig(WithSetSize(1)).Validate())
	for _, opt := range []Option{
		WithStatSecParam(0),
		WithThreads(0),
		WithAddress("localhost", 70000),
		WithBinning(0, 1),
		WithBinning(0.1, 0),
		WithBitSize(129),
	} {
		err := NewConfig(WithSetSize(1), opt).Validate()
		require.True(t, errors.Is(err, env.ErrConfiguration), "got %v", err)
	}
}
