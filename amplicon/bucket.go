// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// FinalizedSuffix is appended to the key of a bucket once it has been found
// congruent. A finalized bucket is never inspected or split again.
const FinalizedSuffix = "_*"

// Base indexes of a column's count array.
const (
	BaseA = iota
	BaseC
	BaseG
	BaseT
	// NBase is the number of counted bases.
	NBase
)

// enumToASCII maps a base index to its letter. The order doubles as the
// consensus tie-break priority.
var enumToASCII = [NBase]byte{'A', 'C', 'G', 'T'}

// asciiToEnum maps a sequence letter to its base index, or -1 for bases that
// are not counted (N, IUPAC ambiguity codes, gaps, lowercase).
var asciiToEnum = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	for i, c := range enumToASCII {
		t[c] = int8(i)
	}
	return
}()

// Counts holds the number of A, C, G and T bases seen at one column.
type Counts [NBase]int

// Max returns the largest count and the index of the first base reaching it.
func (c Counts) Max() (n int, base int) {
	for i, v := range c {
		if v > n {
			n, base = v, i
		}
	}
	return
}

// Total returns the sum of the counts.
func (c Counts) Total() int {
	return c[BaseA] + c[BaseC] + c[BaseG] + c[BaseT]
}

// Bucket is a group of reads believed to come from one allele. It keeps the
// member sequences and a positional base-count table that is updated as reads
// are added.
type Bucket struct {
	key    string
	ids    []string
	seqs   map[string]string
	counts []Counts

	// lowest is the column with the weakest agreement found by the last
	// IsCongruent call, -1 if none.
	lowest int

	consensus      string
	consensusValid bool
}

// NewBucket creates an empty bucket.
func NewBucket(key string) *Bucket {
	return &Bucket{
		key:    key,
		seqs:   map[string]string{},
		lowest: -1,
	}
}

// Key returns the bucket's label.
func (b *Bucket) Key() string { return b.key }

// Len returns the number of member reads.
func (b *Bucket) Len() int { return len(b.ids) }

// Has reports whether the read id is a member.
func (b *Bucket) Has(id string) bool {
	_, ok := b.seqs[id]
	return ok
}

// Seq returns the sequence of a member read.
func (b *Bucket) Seq(id string) (string, bool) {
	seq, ok := b.seqs[id]
	return seq, ok
}

// IDs returns the member read ids in the order they were added. The caller
// must not modify the returned slice.
func (b *Bucket) IDs() []string { return b.ids }

// Counts returns the base-count table, indexed by read position. The caller
// must not modify the returned slice.
func (b *Bucket) Counts() []Counts { return b.counts }

// Finalized reports whether the bucket has been marked congruent.
func (b *Bucket) Finalized() bool {
	return strings.HasSuffix(b.key, FinalizedSuffix)
}

// LowestDivergence returns the column at which the last IsCongruent call
// found the bucket incongruent, or -1. The value is stale once the bucket is
// modified.
func (b *Bucket) LowestDivergence() int { return b.lowest }

// Add adds a read to the bucket. Adding an id that is already a member is an
// error: each read contributes to the counts exactly once.
func (b *Bucket) Add(id, seq string) error {
	if _, ok := b.seqs[id]; ok {
		return errors.E(errors.Exists, fmt.Sprintf("bucket %s: duplicate read %s", b.key, id))
	}
	b.ids = append(b.ids, id)
	b.seqs[id] = seq
	for len(b.counts) < len(seq) {
		b.counts = append(b.counts, Counts{})
	}
	for pos := 0; pos < len(seq); pos++ {
		if base := asciiToEnum[seq[pos]]; base >= 0 {
			b.counts[pos][base]++
		}
	}
	b.lowest = -1
	b.consensusValid = false
	return nil
}

// IsCongruent reports whether, at every column inside w, at least threshold
// of the bucket's reads carry the column's majority base. Columns are scanned
// in ascending order and the scan stops at the first column whose agreement
// falls below threshold; LowestDivergence then reports that column.
//
// A congruent bucket is finalized: FinalizedSuffix is appended to its key.
// A finalized bucket is congruent without inspection. An empty bucket is
// incongruent with no divergent column.
func (b *Bucket) IsCongruent(threshold float64, w Window) bool {
	if b.Finalized() {
		return true
	}
	b.lowest = -1
	n := len(b.ids)
	if n == 0 {
		return false
	}
	start := w.Start
	if start < 0 {
		start = 0
	}
	minRatio := 1.0
	for pos := start; pos < w.End && pos < len(b.counts); pos++ {
		max, _ := b.counts[pos].Max()
		if ratio := float64(max) / float64(n); ratio < minRatio {
			minRatio = ratio
			b.lowest = pos
		}
		if minRatio < threshold {
			return false
		}
	}
	b.lowest = -1
	b.key += FinalizedSuffix
	return true
}

// Consensus returns the majority base of every column, ties going to the
// first of A, C, G, T. A column with no counted base yields A. The result has
// one letter per recorded column.
func (b *Bucket) Consensus() string {
	if !b.consensusValid {
		buf := make([]byte, len(b.counts))
		for pos, c := range b.counts {
			_, base := c.Max()
			buf[pos] = enumToASCII[base]
		}
		b.consensus = string(buf)
		b.consensusValid = true
	}
	return b.consensus
}

// WindowConsensus returns Consensus()[start:end], with the range clipped to
// the recorded columns.
func (b *Bucket) WindowConsensus(start, end int) string {
	c := b.Consensus()
	if end > len(c) {
		end = len(c)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return ""
	}
	return c[start:end]
}

// AddAll adds every member of o to b, in o's order.
func (b *Bucket) AddAll(o *Bucket) error {
	for _, id := range o.ids {
		if err := b.Add(id, o.seqs[id]); err != nil {
			return err
		}
	}
	return nil
}

// Union creates a new bucket with the given key holding the members of a
// followed by the members of b. The inputs are not modified.
func Union(key string, a, b *Bucket) (*Bucket, error) {
	u := NewBucket(key)
	if err := u.AddAll(a); err != nil {
		return nil, err
	}
	if err := u.AddAll(b); err != nil {
		return nil, err
	}
	return u, nil
}
