// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/amplicon/encoding/fastq"
	"github.com/grailbio/amplicon/util"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Reads maps read names to sequences for every record of one FASTQ file.
type Reads map[string]string

// primer returns the first n bases of seq.
func primer(seq string, n int) string {
	if len(seq) < n {
		return seq
	}
	return seq[:n]
}

// Build reads FASTQ records from r and assigns each read to a bucket. A read
// joins the first bucket, in dictionary order, whose key is within
// opts.PrimerMismatches position-wise mismatches of the read's primer;
// otherwise it starts a new bucket keyed by its primer. The assignment is
// first fit, not best fit.
//
// Read names are normalized with fastq.Name. A name seen twice in the same
// stream is an error. A truncated final record is discarded and counted in
// Stats.PartialRecords.
func Build(r io.Reader, opts Opts) (*Dict, Reads, Stats, error) {
	var (
		d     = NewDict()
		reads = Reads{}
		stats Stats
		sc    = fastq.NewScanner(r, fastq.ID|fastq.Seq)
		read  fastq.Read
		keys  []string
	)
	for sc.Scan(&read) {
		name := read.Name()
		if _, ok := reads[name]; ok {
			return nil, nil, stats, errors.E(errors.Invalid, fmt.Sprintf("duplicate read name %s in FASTQ input", name))
		}
		reads[name] = read.Seq
		stats.Reads++

		p := primer(read.Seq, opts.PrimerLength)
		var target *Bucket
		for _, key := range keys {
			if util.WithinMismatches(key, p, opts.PrimerMismatches) {
				target = d.Get(key)
				break
			}
		}
		if target == nil {
			target = NewBucket(p)
			d.Put(target)
			keys = append(keys, p)
			stats.Buckets++
		}
		if err := target.Add(name, read.Seq); err != nil {
			return nil, nil, stats, err
		}
	}
	switch err := sc.Err(); err {
	case nil:
	case fastq.ErrShort:
		stats.PartialRecords++
		log.Printf("discarding truncated FASTQ record after %d reads", stats.Reads)
	default:
		return nil, nil, stats, errors.E(err, fmt.Sprintf("read FASTQ record %d", stats.Reads+1))
	}
	return d, reads, stats, nil
}

// BuildPath runs Build on the FASTQ file at path. Compressed files are
// decompressed transparently.
func BuildPath(ctx context.Context, path string, opts Opts) (*Dict, Reads, Stats, error) {
	in, r, err := fastq.Open(ctx, path)
	if err != nil {
		return nil, nil, Stats{}, err
	}
	d, reads, stats, err := Build(r, opts)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, nil, stats, errors.E(err, path)
	}
	if err := in.Close(ctx); err != nil {
		return nil, nil, stats, errors.E(err, "close", path)
	}
	log.Printf("%s: %d reads in %d buckets", path, stats.Reads, d.Len())
	return d, reads, stats, nil
}
