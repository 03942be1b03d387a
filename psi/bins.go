//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"math"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/otext"
)

// log2 returns the base-2 logarithm of n, at least 1.
func log2(n int) float64 {
	return math.Max(math.Log2(float64(n)), 1)
}

// simpleBins returns the number of simple hashing bins for n items.
func simpleBins(n int, scaler float64) int {
	return max(int(math.Ceil(scaler*float64(n)/log2(n))), 1)
}

// maxBinLoad returns the smallest bin load s such that the probability
// of any of the bins receiving more than s of the n items is below
// 2^-statSec.
func maxBinLoad(n, bins, statSec int) int {
	if bins <= 1 {
		return n
	}
	p := 1 / float64(bins)
	lnN, _ := math.Lgamma(float64(n + 1))

	pmf := make([]float64, n+1)
	for j := range pmf {
		lj, _ := math.Lgamma(float64(j + 1))
		lnj, _ := math.Lgamma(float64(n - j + 1))
		pmf[j] = math.Exp(lnN - lj - lnj + float64(j)*math.Log(p) +
			float64(n-j)*math.Log1p(-p))
	}
	limit := math.Ldexp(1, -statSec)

	// tail is P[X > s] for the current s.
	var tail float64
	load := n
	for s := n; s >= 0; s-- {
		if float64(bins)*tail >= limit {
			break
		}
		load = s
		tail += pmf[s]
	}
	return max(load, 1)
}

// rr17BitSize returns the OPRF input bit size for n items.
func rr17BitSize(bitSize, statSec, n int) int {
	if bitSize > 0 {
		return min(bitSize, otext.MaxOOSInputBits)
	}
	return min(otext.MaxOOSInputBits, statSec+2*int(math.Ceil(log2(n))))
}

// simpleHash implements simple hashing of items into bins.
type simpleHash struct {
	bins  [][]int
	limit int
}

// newSimpleHash hashes the items into bins. Each bin holds at most
// limit items.
func newSimpleHash(h hasher, items []ot.Label, bins, limit int) (
	*simpleHash, error) {

	result := &simpleHash{
		bins:  make([][]int, bins),
		limit: limit,
	}
	for i, x := range items {
		b := h.index(tag(domainBin, 0), x, bins)
		if len(result.bins[b]) >= limit {
			return nil, env.ProtocolErrorf("bin %d exceeds maximum load %d",
				b, limit)
		}
		result.bins[b] = append(result.bins[b], i)
	}
	return result, nil
}
