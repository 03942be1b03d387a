//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"io"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
)

// otKind identifies the OT roles a scheme runs on.
type otKind int

const (
	otNone otKind = iota
	otKKRT
	otOOS
	otKOS
)

func (k otKind) String() string {
	switch k {
	case otNone:
		return "none"
	case otKKRT:
		return "KKRT"
	case otOOS:
		return "OOS"
	case otKOS:
		return "KOS"
	default:
		return "{otKind}"
	}
}

// roles instantiates the OT roles of the kind.
func (k otKind) roles(rand io.Reader) Roles {
	switch k {
	case otKKRT:
		return Roles{
			NcoSender:   otext.NewKKRTSender(),
			NcoReceiver: otext.NewKKRTReceiver(),
		}
	case otOOS:
		return Roles{
			NcoSender:   otext.NewOOSSender(),
			NcoReceiver: otext.NewOOSReceiver(),
		}
	case otKOS:
		return Roles{
			ROT: ot.NewROT(ot.NewCO(rand), rand, true),
		}
	default:
		return Roles{}
	}
}

type status int

const (
	implemented status = iota
	disabled
	unimplemented
)

// registration binds a scheme to its engines, OT roles, and tuning.
type registration struct {
	scheme      Scheme
	status      status
	ot          otKind
	tuning      func(config Config, params *Params)
	newSender   func() SenderEngine
	newReceiver func() ReceiverEngine
}

var registrations = map[Scheme]*registration{
	GRR18: {
		scheme: GRR18,
		status: disabled,
		ot:     otOOS,
		tuning: func(config Config, params *Params) {
			params.EpsBin = config.EpsBin
			params.BinScaler = config.BinScaler
			params.BitSize = config.BitSize
		},
	},
	RR17: {
		scheme: RR17,
		status: implemented,
		ot:     otOOS,
		tuning: func(config Config, params *Params) {
			params.BinScaler = config.BinScaler
			if params.BinScaler == DefaultBinScaler {
				params.BinScaler = 1
			}
			params.BitSize = config.BitSize
		},
		newSender:   newRR17Sender,
		newReceiver: newRR17Receiver,
	},
	RR16: {
		scheme:      RR16,
		status:      implemented,
		ot:          otKOS,
		newSender:   newRR16Sender,
		newReceiver: newRR16Receiver,
	},
	DKT10: {
		scheme:      DKT10,
		status:      implemented,
		ot:          otNone,
		newSender:   newDKT10Sender,
		newReceiver: newDKT10Receiver,
	},
	KKRT16: {
		scheme:      KKRT16,
		status:      implemented,
		ot:          otKKRT,
		newSender:   newKKRT16Sender,
		newReceiver: newKKRT16Receiver,
	},
	DRRT18: {
		scheme: DRRT18,
		status: unimplemented,
	},
}

// lookup returns the registration of the scheme. Disabled and
// unimplemented schemes fail.
func lookup(scheme Scheme) (*registration, error) {
	reg, ok := registrations[scheme]
	if !ok {
		return nil, env.ProtocolErrorf("unknown PSI scheme %d", int(scheme))
	}
	switch reg.status {
	case disabled:
		return nil, env.ProtocolErrorf("%s not implemented due to a defect in the library",
			scheme)
	case unimplemented:
		return nil, env.UnimplementedErrorf("%s is not implemented", scheme)
	}
	if reg.newSender == nil || reg.newReceiver == nil {
		return nil, env.UnimplementedErrorf("%s has no protocol runner",
			scheme)
	}
	return reg, nil
}

// params creates the protocol run parameters.
func (reg *registration) params(config Config, rand io.Reader) Params {
	params := Params{
		SetSize:      config.SetSize,
		StatSecParam: config.StatSecParam,
		Seed:         ot.NewPRNG(ProtocolSeed),
		Rand:         rand,
		Log:          config.Env.GetLogger().WithName("psi"),
	}
	if reg.tuning != nil {
		reg.tuning(config, &params)
	}
	return params
}

// ProtocolSeed is the seed both peers' shared PRNGs start from.
var ProtocolSeed = ot.Label{
	D0: 4253465<<32 | 3434565,
	D1: 234435<<32 | 23987045,
}
