// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"fmt"
	"sort"

	"github.com/grailbio/amplicon/util"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// MergeAdjacent sorts the buckets of d by their consensus over opts.Window
// and merges runs of neighbors in that order. While the next bucket's
// windowed consensus is within opts.MergeMismatches of the current one's,
// its reads are added to the current bucket and it is removed from d; the
// comparison then moves on to the following neighbor. The surviving bucket
// keeps its key. Buckets with equal windowed consensus keep their dictionary
// order.
func MergeAdjacent(d *Dict, opts Opts) (Stats, error) {
	var (
		stats Stats
		w     = opts.Window
		keys  = d.Keys()
		cons  = make(map[string]string, len(keys))
	)
	for _, k := range keys {
		cons[k] = d.Get(k).WindowConsensus(w.Start, w.End)
	}
	sort.SliceStable(keys, func(i, j int) bool { return cons[keys[i]] < cons[keys[j]] })

	for i := 0; i < len(keys)-1; i++ {
		cur := d.Get(keys[i])
		for i+1 < len(keys) {
			next := d.Get(keys[i+1])
			if !util.WithinMismatches(cur.WindowConsensus(w.Start, w.End), next.WindowConsensus(w.Start, w.End), opts.MergeMismatches) {
				break
			}
			if err := cur.AddAll(next); err != nil {
				return stats, errors.E(err, "merge", next.Key(), "into", cur.Key())
			}
			log.Debug.Printf("merge %s (%d reads) into %s", next.Key(), next.Len(), cur.Key())
			d.Delete(next.Key())
			keys = append(keys[:i+1], keys[i+2:]...)
			stats.Merged++
		}
	}
	return stats, nil
}

// match returns the first registry consensus within maxMismatches of
// consensus.
func (r *Registry) match(consensus string, maxMismatches int) (string, bool) {
	for _, k := range r.Keys() {
		if util.WithinMismatches(k, consensus, maxMismatches) {
			return k, true
		}
	}
	return "", false
}

// Sift moves buckets of d into the registry. Each bucket's consensus over
// [opts.Window.Start, endIndex) is compared with the registry entries in
// order, tolerating floor(opts.SiftMismatchFraction*(endIndex-opts.Window.Start))
// mismatches.
//
// When an entry matches, the entry and the bucket are unioned; the union
// replaces the entry only if it passes the congruence check, which keeps two
// internally consistent clusters that disagree with each other apart. A
// matched bucket whose union fails stays in d.
//
// A bucket that matches nothing is promoted to a new entry keyed by its
// windowed consensus when it is finalized and has more than
// opts.MinPromoteReads reads. Absorbed and promoted buckets leave d.
func Sift(d *Dict, reg *Registry, endIndex int, opts Opts) (Stats, error) {
	var (
		stats  Stats
		maxMM  = opts.siftMismatches(endIndex)
		remove []string
	)
	for _, key := range d.Keys() {
		b := d.Get(key)
		consensus := b.WindowConsensus(opts.Window.Start, endIndex)
		if m, ok := reg.match(consensus, maxMM); ok {
			// The union is labeled with the unfinalized registry key so that
			// IsCongruent inspects it instead of trusting an earlier result.
			u, err := Union(m, reg.Get(m), b)
			if err != nil {
				return stats, errors.E(err, fmt.Sprintf("sift %s into registry entry %s", key, m))
			}
			if !u.IsCongruent(opts.Threshold, opts.Window) {
				log.Debug.Printf("sift %s: union with registry entry is incongruent at column %d", key, u.LowestDivergence())
				stats.RejectedUnions++
				continue
			}
			log.Debug.Printf("sift %s: adding %d reads to registry entry (%d reads)", key, b.Len(), reg.Get(m).Len())
			reg.Put(m, u)
			remove = append(remove, key)
			stats.Absorbed++
			continue
		}
		if b.Finalized() && b.Len() > opts.MinPromoteReads {
			p := NewBucket(consensus)
			if err := p.AddAll(b); err != nil {
				return stats, errors.E(err, "sift", key)
			}
			log.Debug.Printf("sift %s: promoting %d reads to the registry", key, b.Len())
			reg.Put(consensus, p)
			remove = append(remove, key)
			stats.Promoted++
		}
	}
	for _, key := range remove {
		d.Delete(key)
	}
	return stats, nil
}
