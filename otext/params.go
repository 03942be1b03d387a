//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package otext

import (
	"github.com/markkurossi/otpsi/env"
)

// params holds the configuration shared by senders and receivers.
type params struct {
	variant   Variant
	malicious bool
	statSec   int
	inputBits int
}

func defaultParams(variant Variant) params {
	p := params{
		variant:   variant,
		statSec:   40,
		inputBits: 128,
	}
	if variant == OOS {
		p.malicious = true
		p.inputBits = MaxOOSInputBits
	}
	return p
}

func (p *params) configure(malicious bool, statSec, inputBits int) error {
	if statSec <= 0 {
		return env.ConfigErrorf("invalid statistical security parameter %d",
			statSec)
	}
	if inputBits <= 0 || inputBits > 128 {
		return env.ConfigErrorf("invalid input bit count %d", inputBits)
	}
	switch p.variant {
	case KKRT:
		if malicious {
			return env.ConfigErrorf("%s is secure only against semi-honest adversaries",
				p.variant)
		}
	case OOS:
		if inputBits > MaxOOSInputBits {
			return env.ConfigErrorf("%s input bit count %d exceeds %d",
				p.variant, inputBits, MaxOOSInputBits)
		}
	}
	p.malicious = malicious
	p.statSec = statSec
	p.inputBits = inputBits
	return nil
}

// padRows returns the number of random instances the consistency
// check consumes.
func (p *params) padRows() int {
	if p.malicious {
		return p.statSec
	}
	return 0
}
