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
)

const (
	numHashes    = 3
	stashSize    = 8
	maxEvictions = 500
)

// cuckooBins returns the number of cuckoo table bins for n items.
func cuckooBins(n int) int {
	return int(math.Ceil(1.5*float64(n))) + 1
}

type cuckooEntry struct {
	item int
	hash int
}

var emptyEntry = cuckooEntry{
	item: -1,
}

func (e cuckooEntry) empty() bool {
	return e.item < 0
}

// cuckoo implements a cuckoo hash table with numHashes hash functions
// and a stash.
type cuckoo struct {
	h     hasher
	items []ot.Label
	bins  []cuckooEntry
	stash []cuckooEntry
	prng  *ot.PRNG
}

func newCuckoo(h hasher, items []ot.Label, prng *ot.PRNG) *cuckoo {
	c := &cuckoo{
		h:     h,
		items: items,
		bins:  make([]cuckooEntry, cuckooBins(len(items))),
		stash: make([]cuckooEntry, stashSize),
		prng:  prng,
	}
	for i := range c.bins {
		c.bins[i] = emptyEntry
	}
	for i := range c.stash {
		c.stash[i] = emptyEntry
	}
	return c
}

func (c *cuckoo) binOf(x ot.Label, k int) int {
	return c.h.index(tag(domainBin, k), x, len(c.bins))
}

// insertAll inserts all items into the table.
func (c *cuckoo) insertAll() error {
	for i := range c.items {
		if err := c.insert(i); err != nil {
			return err
		}
	}
	return nil
}

func (c *cuckoo) insert(idx int) error {
	e := cuckooEntry{
		item: idx,
	}
	for i := 0; i < maxEvictions; i++ {
		for k := 0; k < numHashes; k++ {
			b := c.binOf(c.items[e.item], k)
			if c.bins[b].empty() {
				c.bins[b] = cuckooEntry{
					item: e.item,
					hash: k,
				}
				return nil
			}
		}
		k := c.prng.Intn(numHashes)
		b := c.binOf(c.items[e.item], k)
		e, c.bins[b] = c.bins[b], cuckooEntry{
			item: e.item,
			hash: k,
		}
	}
	for s := range c.stash {
		if c.stash[s].empty() {
			c.stash[s] = e
			return nil
		}
	}
	return env.ProtocolErrorf("cuckoo hashing failed: stash of %d full",
		stashSize)
}
