//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"strings"

	"github.com/markkurossi/otpsi/env"
)

// Scheme identifies a PSI protocol.
type Scheme int

// PSI schemes. The order is fixed: ParseScheme maps unknown names to
// the first scheme.
const (
	GRR18 Scheme = iota
	RR17
	RR16
	DKT10
	KKRT16
	DRRT18
)

var schemeNames = []string{
	GRR18:  "Grr18",
	RR17:   "Rr17",
	RR16:   "Rr16",
	DKT10:  "Dkt10",
	KKRT16: "Kkrt16",
	DRRT18: "Drrt18",
}

// Schemes returns all schemes in their enumeration order.
func Schemes() []Scheme {
	result := make([]Scheme, len(schemeNames))
	for i := range result {
		result[i] = Scheme(i)
	}
	return result
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return "Scheme has no name"
	}
	return schemeNames[s]
}

func lookupScheme(name string) (Scheme, bool) {
	for i, n := range schemeNames {
		if strings.EqualFold(n, name) {
			return Scheme(i), true
		}
	}
	return GRR18, false
}

// ParseScheme parses the case-insensitive scheme name. Unknown names
// map to GRR18.
func ParseScheme(name string) Scheme {
	s, _ := lookupScheme(name)
	return s
}

// ParseSchemeStrict parses the case-insensitive scheme name. Unknown
// names are protocol errors.
func ParseSchemeStrict(name string) (Scheme, error) {
	s, ok := lookupScheme(name)
	if !ok {
		return s, env.ProtocolErrorf("unknown PSI scheme %q", name)
	}
	return s, nil
}
