// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

// This file defines the registry file format. A registry file holds the R1
// and R2 registries of a run, so that a later run can sift its buckets into
// them with --registry-input.

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/grailbio/amplicon/amplicon"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
)

const (
	// <registryVersionHeader, registryVersion> is stored in a recordio header.
	registryVersionHeader = "ampliconregistryversion"
	registryVersion       = "AMPLICON_REGISTRY_V1"
)

// registryRecord is one registry entry. Each entry is one recordio record.
type registryRecord struct {
	Mate      amplicon.Mate
	Consensus string
	Key       string
	IDs       []string
	Seqs      []string
}

// registryTrailer is stored in the trailer section of the recordio file.
type registryTrailer struct {
	// Opts is the set of options the registries were built with.
	Opts amplicon.Opts
	// Entries is the number of entries per mate.
	Entries [2]int
}

func encodeGOB(v interface{}) ([]byte, error) {
	b := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(b).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeRegistries writes the R1 and R2 registries to path.
func writeRegistries(ctx context.Context, path string, regs [2]*amplicon.Registry, opts amplicon.Opts) (err error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(registryVersionHeader, registryVersion)
	w.AddHeader(recordio.KeyTrailer, true)

	trailer := registryTrailer{Opts: opts}
	for mate, reg := range regs {
		for _, e := range reg.Entries() {
			rec := registryRecord{
				Mate:      amplicon.Mate(mate),
				Consensus: e.Consensus,
				Key:       e.Bucket.Key(),
				IDs:       e.Bucket.IDs(),
			}
			for _, id := range rec.IDs {
				seq, _ := e.Bucket.Seq(id)
				rec.Seqs = append(rec.Seqs, seq)
			}
			b, err := encodeGOB(rec)
			if err != nil {
				out.Close(ctx) // nolint: errcheck
				return errors.E(err, "encode registry entry", path)
			}
			w.Append(b)
			trailer.Entries[mate]++
		}
	}
	b, err := encodeGOB(trailer)
	if err != nil {
		out.Close(ctx) // nolint: errcheck
		return errors.E(err, "encode registry trailer", path)
	}
	w.SetTrailer(b)
	var once errors.Once
	once.Set(w.Finish())
	once.Set(out.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "write", path)
	}
	log.Printf("%s: wrote %d R1 and %d R2 registry entries", path, trailer.Entries[amplicon.R1], trailer.Entries[amplicon.R2])
	return nil
}

// readRegistries reads a file written by writeRegistries. It returns the R1
// and R2 registries and the options they were built with.
func readRegistries(ctx context.Context, path string) (regs [2]*amplicon.Registry, opts amplicon.Opts, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return regs, opts, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = errors.E(e, "close", path)
		}
	}()
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	versionFound := false
	for _, kv := range r.Header() {
		if kv.Key == registryVersionHeader {
			if v, _ := kv.Value.(string); v != registryVersion {
				return regs, opts, errors.E(errors.Invalid, fmt.Sprintf("%s: registry file version mismatch, got %v, expect %v", path, kv.Value, registryVersion))
			}
			versionFound = true
			break
		}
	}
	if !versionFound {
		return regs, opts, errors.E(errors.Invalid, fmt.Sprintf("%s: %s not found", path, registryVersionHeader))
	}
	var trailer registryTrailer
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&trailer); err != nil {
		return regs, opts, errors.E(err, "decode registry trailer", path)
	}
	regs = [2]*amplicon.Registry{amplicon.NewRegistry(), amplicon.NewRegistry()}
	for r.Scan() {
		var rec registryRecord
		if err := gob.NewDecoder(bytes.NewReader(r.Get().([]byte))).Decode(&rec); err != nil {
			return regs, opts, errors.E(err, "decode registry entry", path)
		}
		if rec.Mate != amplicon.R1 && rec.Mate != amplicon.R2 || len(rec.IDs) != len(rec.Seqs) {
			return regs, opts, errors.E(errors.Invalid, fmt.Sprintf("%s: corrupt registry entry %s", path, rec.Consensus))
		}
		b := amplicon.NewBucket(rec.Key)
		for i, id := range rec.IDs {
			if err := b.Add(id, rec.Seqs[i]); err != nil {
				return regs, opts, errors.E(err, path)
			}
		}
		regs[rec.Mate].Put(rec.Consensus, b)
	}
	if err := r.Err(); err != nil {
		return regs, opts, errors.E(err, "read", path)
	}
	for mate, reg := range regs {
		if reg.Len() != trailer.Entries[mate] {
			return regs, opts, errors.E(errors.Invalid, fmt.Sprintf("%s: found %d %v registry entries, trailer says %d",
				path, reg.Len(), amplicon.Mate(mate), trailer.Entries[mate]))
		}
	}
	return regs, trailer.Opts, nil
}
