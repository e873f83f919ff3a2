// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/amplicon/amplicon"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// groupName returns the stable name of the registry group with the given
// consensus.
func groupName(consensus string) string {
	return fmt.Sprintf("grp_%016x", farm.Fingerprint64([]byte(consensus)))
}

// groupIndex maps the reads of one registry to the name of their group.
func groupIndex(reg *amplicon.Registry) map[string]string {
	groups := map[string]string{}
	for _, e := range reg.Entries() {
		name := groupName(e.Consensus)
		for _, id := range e.Bucket.IDs() {
			groups[id] = name
		}
	}
	return groups
}

type registryRow struct {
	Mate      string `tsv:"MATE"`
	Group     string `tsv:"GROUP"`
	Reads     int    `tsv:"READS"`
	NewReads  int    `tsv:"NEW_READS"`
	Consensus string `tsv:"CONSENSUS"`
}

type bucketRow struct {
	Mate      string `tsv:"MATE"`
	Bucket    string `tsv:"BUCKET"`
	Reads     int    `tsv:"READS"`
	Finalized string `tsv:"FINALIZED"`
	Consensus string `tsv:"CONSENSUS"`
}

type pairRow struct {
	R1Bucket string `tsv:"R1_BUCKET"`
	R2Bucket string `tsv:"R2_BUCKET"`
	R1Group  string `tsv:"R1_GROUP"`
	R2Group  string `tsv:"R2_GROUP"`
	Reads    int    `tsv:"READS"`
}

// writeOutput creates path and calls write on it.
func writeOutput(ctx context.Context, path string, write func(w io.Writer) error) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	var once errors.Once
	once.Set(write(out.Writer(ctx)))
	once.Set(out.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

// writeRegistryTSV writes one row per registry entry of both mates. NEW_READS
// counts the members that come from this run's input.
func writeRegistryTSV(w io.Writer, res *amplicon.Result) error {
	tw := tsv.NewRowWriter(w)
	for mate := range res.Mates {
		m := &res.Mates[mate]
		for _, e := range m.Registry.Entries() {
			row := registryRow{
				Mate:      amplicon.Mate(mate).String(),
				Group:     groupName(e.Consensus),
				Reads:     e.Bucket.Len(),
				Consensus: e.Consensus,
			}
			for _, id := range e.Bucket.IDs() {
				if _, ok := m.Reads[id]; ok {
					row.NewReads++
				}
			}
			if err := tw.Write(&row); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

// writeBucketsTSV writes the buckets that were left out of the registries.
func writeBucketsTSV(w io.Writer, res *amplicon.Result) error {
	tw := tsv.NewRowWriter(w)
	for mate := range res.Mates {
		for _, b := range res.Mates[mate].Dict.Buckets() {
			row := bucketRow{
				Mate:      amplicon.Mate(mate).String(),
				Bucket:    b.Key(),
				Reads:     b.Len(),
				Finalized: fmt.Sprint(b.Finalized()),
				Consensus: b.Consensus(),
			}
			if err := tw.Write(&row); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

// writePairsTSV writes one row per paired group, with the registry groups the
// group's reads ended up in. A read pair whose mates were not both sifted has
// an empty group.
func writePairsTSV(w io.Writer, res *amplicon.Result) error {
	var (
		tw     = tsv.NewRowWriter(w)
		groups = [2]map[string]string{groupIndex(res.Mates[amplicon.R1].Registry), groupIndex(res.Mates[amplicon.R2].Registry)}
	)
	for _, g := range res.Pairs.Groups() {
		row := pairRow{
			R1Bucket: g.R1Key,
			R2Bucket: g.R2Key,
			R1Group:  groups[amplicon.R1][g.IDs[0]],
			R2Group:  groups[amplicon.R2][g.IDs[0]],
			Reads:    len(g.IDs),
		}
		if err := tw.Write(&row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// writeFASTA writes the consensus of every registry entry, largest first.
func writeFASTA(w io.Writer, reg *amplicon.Registry) error {
	entries := reg.Entries()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Bucket.Len() > entries[j].Bucket.Len() })
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fmt.Fprintf(bw, ">%s reads=%d\n%s\n", groupName(e.Consensus), e.Bucket.Len(), e.Bucket.Consensus())
	}
	return bw.Flush()
}

// writeAlignments writes the members of every registry entry of both mates
// against the entry's consensus.
func writeAlignments(w io.Writer, res *amplicon.Result) error {
	for mate := range res.Mates {
		for _, e := range res.Mates[mate].Registry.Entries() {
			if _, err := fmt.Fprintf(w, "# %v %s\n", amplicon.Mate(mate), groupName(e.Consensus)); err != nil {
				return err
			}
			if err := amplicon.WriteAlignment(w, e.Bucket.Consensus(), e.Bucket); err != nil {
				return err
			}
		}
	}
	return nil
}
