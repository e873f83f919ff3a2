// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// PairedGroup is an R1 bucket and an R2 bucket together with the reads they
// share. It stands for one amplicon haplotype seen from both mates.
type PairedGroup struct {
	R1Key, R2Key string
	IDs          []string
}

type pairKey struct{ a, b string }

// Pairs maps unordered (R1 key, R2 key) pairs to the reads they share.
type Pairs struct {
	groups []*PairedGroup
	index  map[pairKey]int

	// Unpaired lists R1 reads whose mate exists in the R2 input but is no
	// longer in any R2 bucket, in R1 dictionary order.
	Unpaired []string
}

func newPairs() *Pairs {
	return &Pairs{index: map[pairKey]int{}}
}

// add appends id to the group for the unordered pair {k1, k2}.
func (p *Pairs) add(k1, k2, id string) {
	i, ok := p.index[pairKey{k1, k2}]
	if !ok {
		i, ok = p.index[pairKey{k2, k1}]
	}
	if !ok {
		i = len(p.groups)
		p.groups = append(p.groups, &PairedGroup{R1Key: k1, R2Key: k2})
		p.index[pairKey{k1, k2}] = i
	}
	p.groups[i].IDs = append(p.groups[i].IDs, id)
}

// Lookup returns the reads shared by buckets k1 and k2, in either order.
func (p *Pairs) Lookup(k1, k2 string) ([]string, bool) {
	i, ok := p.index[pairKey{k1, k2}]
	if !ok {
		i, ok = p.index[pairKey{k2, k1}]
	}
	if !ok {
		return nil, false
	}
	return p.groups[i].IDs, true
}

// Len returns the number of paired groups.
func (p *Pairs) Len() int { return len(p.groups) }

// Groups returns the paired groups in the order they were first seen.
func (p *Pairs) Groups() []PairedGroup {
	groups := make([]PairedGroup, len(p.groups))
	for i, g := range p.groups {
		groups[i] = *g
	}
	return groups
}

// Correlate pairs the buckets of the R1 dictionary with those of the R2
// dictionary. Every read of every R1 bucket, in dictionary order, is looked
// up in the R2 bucket holding its mate, and its id is appended to the group
// of that (R1 key, R2 key) pair. The pair is unordered: {a, b} and {b, a}
// share one group.
//
// r2Reads is the full R2 input as returned by Build. An R1 read whose mate is
// missing from it is a pairing failure. A mate that is present in the input
// but no longer in any R2 bucket, because a split dropped it, is reported in
// Pairs.Unpaired.
//
// The mate's bucket is found through the R2 dictionary's read owner index
// rather than by scanning R2 keys for the read's primer.
func Correlate(r1, r2 *Dict, r2Reads Reads) (*Pairs, error) {
	var (
		pairs  = newPairs()
		owners = r2.owners()
	)
	for _, k1 := range r1.Keys() {
		for _, id := range r1.Get(k1).IDs() {
			if _, ok := r2Reads[id]; !ok {
				return nil, errors.E(errors.NotExist, fmt.Sprintf("pair bucket %s: read %s has no mate in the R2 input", k1, id))
			}
			k2, ok := owners[id]
			if !ok {
				pairs.Unpaired = append(pairs.Unpaired, id)
				continue
			}
			pairs.add(k1, k2, id)
		}
	}
	if n := len(pairs.Unpaired); n > 0 {
		log.Error.Printf("pairing: %d R1 reads have a mate that is in no R2 bucket", n)
	}
	return pairs, nil
}
