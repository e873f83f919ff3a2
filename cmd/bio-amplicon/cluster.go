// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"sort"

	"github.com/grailbio/amplicon/amplicon"
	"github.com/grailbio/amplicon/encoding/readindex"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Collection of options set via cmdline flags
type clusterFlags struct {
	prefix         string
	registryInput  string
	registryOutput string
	indexOutput    string
}

func cluster(ctx context.Context, r1Path, r2Path string, flags clusterFlags, opts amplicon.Opts) error {
	var regs [2]*amplicon.Registry
	if flags.registryInput != "" {
		var (
			regOpts amplicon.Opts
			err     error
		)
		if regs, regOpts, err = readRegistries(ctx, flags.registryInput); err != nil {
			return err
		}
		if regOpts != opts {
			log.Printf("%s: registries were built with %+v, clustering with %+v", flags.registryInput, regOpts, opts)
		}
	}
	res, err := amplicon.Cluster(ctx, r1Path, r2Path, regs[amplicon.R1], regs[amplicon.R2], opts)
	if err != nil {
		return err
	}
	outputs := []struct {
		suffix string
		write  func(w io.Writer) error
	}{
		{".registry.tsv", func(w io.Writer) error { return writeRegistryTSV(w, res) }},
		{".buckets.tsv", func(w io.Writer) error { return writeBucketsTSV(w, res) }},
		{".pairs.tsv", func(w io.Writer) error { return writePairsTSV(w, res) }},
		{".R1.fa", func(w io.Writer) error { return writeFASTA(w, res.Mates[amplicon.R1].Registry) }},
		{".R2.fa", func(w io.Writer) error { return writeFASTA(w, res.Mates[amplicon.R2].Registry) }},
		{".alignments.txt", func(w io.Writer) error { return writeAlignments(w, res) }},
	}
	for _, o := range outputs {
		if err := writeOutput(ctx, flags.prefix+o.suffix, o.write); err != nil {
			return err
		}
	}
	if flags.registryOutput != "" {
		regs := [2]*amplicon.Registry{res.Mates[amplicon.R1].Registry, res.Mates[amplicon.R2].Registry}
		if err := writeRegistries(ctx, flags.registryOutput, regs, opts); err != nil {
			return err
		}
	}
	if flags.indexOutput != "" {
		if err := writeIndex(ctx, flags.indexOutput, res); err != nil {
			return err
		}
	}
	log.Printf("All done")
	return nil
}

// writeIndex stores the read assignments, pairs and registry groups of res in
// a read index database.
func writeIndex(ctx context.Context, path string, res *amplicon.Result) (err error) {
	x, err := readindex.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := x.Close(); e != nil && err == nil {
			err = errors.E(e, "close", path)
		}
	}()
	var (
		assignments []readindex.Assignment
		groups      []readindex.Group
		pairs       []readindex.Pair
	)
	for mate := range res.Mates {
		m := &res.Mates[mate]
		name := amplicon.Mate(mate).String()
		groupOf := groupIndex(m.Registry)
		ids := make([]string, 0, len(m.Reads))
		for id := range m.Reads {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			assignments = append(assignments, readindex.Assignment{
				Read:   id,
				Mate:   name,
				Bucket: m.Owners[id],
				Group:  groupOf[id],
			})
		}
		for _, e := range m.Registry.Entries() {
			groups = append(groups, readindex.Group{
				Mate:      name,
				Name:      groupName(e.Consensus),
				Consensus: e.Consensus,
				Size:      e.Bucket.Len(),
			})
		}
	}
	for _, g := range res.Pairs.Groups() {
		for _, id := range g.IDs {
			pairs = append(pairs, readindex.Pair{R1Bucket: g.R1Key, R2Bucket: g.R2Key, Read: id})
		}
	}
	if err := x.PutAssignments(ctx, assignments); err != nil {
		return err
	}
	if err := x.PutGroups(ctx, groups); err != nil {
		return err
	}
	if err := x.PutPairs(ctx, pairs); err != nil {
		return err
	}
	log.Printf("%s: indexed %d read assignments, %d groups, %d paired reads", path, len(assignments), len(groups), len(pairs))
	return nil
}
