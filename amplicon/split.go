// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"context"
	"fmt"

	"github.com/grailbio/base/log"
)

// childKey names the child of parent holding reads with base at pos.
func childKey(parent string, pos int, base byte) string {
	return fmt.Sprintf("%s_%d%c", parent, pos, base)
}

// SplitRound makes one splitting pass over the buckets present in d when the
// call starts. Buckets inserted during the pass are not visited.
//
// A congruent bucket that is not yet finalized is finalized and moved to the
// end of d under its new key. An incongruent bucket is replaced by up to four
// children, one per base found at its LowestDivergence column, keyed
// "<key>_<pos><base>" and appended in A, C, G, T order. Reads with no A, C,
// G or T at that column are dropped and counted in Stats.DroppedReads.
func SplitRound(d *Dict, opts Opts) (Stats, error) {
	var stats Stats
	for _, key := range d.Keys() {
		b := d.Get(key)
		if b.Finalized() {
			continue
		}
		if b.IsCongruent(opts.Threshold, opts.Window) {
			d.Delete(key)
			d.Put(b)
			stats.Finalized++
			continue
		}
		d.Delete(key)
		pos := b.LowestDivergence()
		if b.Len() == 0 || pos < 0 {
			stats.EmptyBuckets++
			continue
		}
		var children [NBase]*Bucket
		for _, id := range b.IDs() {
			seq, _ := b.Seq(id)
			if pos >= len(seq) || asciiToEnum[seq[pos]] < 0 {
				stats.DroppedReads++
				log.Debug.Printf("split %s: dropping read %s, no base at column %d", key, id, pos)
				continue
			}
			base := asciiToEnum[seq[pos]]
			if children[base] == nil {
				children[base] = NewBucket(childKey(key, pos, enumToASCII[base]))
			}
			if err := children[base].Add(id, seq); err != nil {
				return stats, err
			}
		}
		stats.Splits++
		for _, c := range children {
			if c != nil {
				d.Put(c)
				stats.Children++
			}
		}
		log.Debug.Printf("split %s (%d reads) at column %d", key, b.Len(), pos)
	}
	return stats, nil
}

// Refine runs up to opts.SplitRounds rounds of SplitRound on d. It returns
// early once every bucket is finalized, since later rounds would not change
// anything. The context is checked between rounds, never inside one.
func Refine(ctx context.Context, d *Dict, opts Opts) (Stats, error) {
	var stats Stats
	for round := 0; round < opts.SplitRounds; round++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if d.allFinalized() {
			break
		}
		s, err := SplitRound(d, opts)
		stats = stats.Merge(s)
		stats.Rounds++
		if err != nil {
			return stats, err
		}
	}
	if !d.allFinalized() {
		log.Debug.Printf("refine: %d buckets still unfinalized after %d rounds", unfinalized(d), stats.Rounds)
	}
	return stats, nil
}

func unfinalized(d *Dict) int {
	n := 0
	for _, b := range d.Buckets() {
		if !b.Finalized() {
			n++
		}
	}
	return n
}
