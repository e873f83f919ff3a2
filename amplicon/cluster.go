// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Mate identifies one read of a pair.
type Mate int

const (
	// R1 is the forward read.
	R1 Mate = iota
	// R2 is the reverse read.
	R2
)

// String implements fmt.Stringer.
func (m Mate) String() string {
	if m == R1 {
		return "R1"
	}
	return "R2"
}

// MateResult is the outcome of clustering one FASTQ file.
type MateResult struct {
	// Dict holds the buckets left after sifting.
	Dict *Dict
	// Reads is the full FASTQ input.
	Reads Reads
	// Owners maps every read that survived refinement to the key of its
	// bucket before sifting.
	Owners map[string]string
	// Registry is the registry the buckets were sifted into.
	Registry *Registry
	Stats    Stats
}

// Result is the outcome of Cluster.
type Result struct {
	Mates [2]MateResult
	// Pairs correlates the R1 and R2 buckets as they were before sifting.
	Pairs *Pairs
}

// ClusterMate builds, refines and merges the buckets of one FASTQ file.
func ClusterMate(ctx context.Context, path string, opts Opts) (*Dict, Reads, Stats, error) {
	d, reads, stats, err := BuildPath(ctx, path, opts)
	if err != nil {
		return nil, nil, stats, err
	}
	s, err := Refine(ctx, d, opts)
	stats = stats.Merge(s)
	if err != nil {
		return nil, nil, stats, errors.E(err, "refine", path)
	}
	s, err = MergeAdjacent(d, opts)
	stats = stats.Merge(s)
	if err != nil {
		return nil, nil, stats, errors.E(err, "merge", path)
	}
	return d, reads, stats, nil
}

// Cluster runs the full pipeline on a pair of FASTQ files. The R1 and R2
// files are clustered concurrently; each one on its own is processed
// sequentially, so the result does not depend on scheduling. The buckets are
// then correlated into pairs and finally sifted into reg1 and reg2 with
// opts.SiftEnd. Nil registries are replaced by empty ones.
func Cluster(ctx context.Context, r1Path, r2Path string, reg1, reg2 *Registry, opts Opts) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var (
		res   = &Result{}
		paths = [2]string{r1Path, r2Path}
		regs  = [2]*Registry{reg1, reg2}
	)
	err := traverse.Each(2, func(i int) error {
		d, reads, stats, err := ClusterMate(ctx, paths[i], opts)
		if err != nil {
			return err
		}
		res.Mates[i] = MateResult{Dict: d, Reads: reads, Owners: d.owners(), Stats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Pairs, err = Correlate(res.Mates[R1].Dict, res.Mates[R2].Dict, res.Mates[R2].Reads); err != nil {
		return nil, err
	}
	for i := range res.Mates {
		m := &res.Mates[i]
		m.Registry = regs[i]
		if m.Registry == nil {
			m.Registry = NewRegistry()
		}
		stats, err := Sift(m.Dict, m.Registry, opts.SiftEnd, opts)
		m.Stats = m.Stats.Merge(stats)
		if err != nil {
			return nil, err
		}
		log.Printf("Stats: %v: %+v", Mate(i), m.Stats)
		log.Printf("%v: %d registry entries, %d buckets left unsifted", Mate(i), m.Registry.Len(), m.Dict.Len())
	}
	log.Printf("%d paired groups, %d unpaired reads", res.Pairs.Len(), len(res.Pairs.Unpaired))
	return res, nil
}
