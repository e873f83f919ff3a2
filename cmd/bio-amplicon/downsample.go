// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/amplicon/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

type downsampleFlags struct {
	rate  float64
	count int64
}

// output is a FASTQ output file, gzipped when its name ends in .gz.
type output struct {
	f  file.File
	gz *gzip.Writer
	w  io.Writer
}

func createOutput(ctx context.Context, path string) (*output, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	o := &output{f: f, w: f.Writer(ctx)}
	if strings.HasSuffix(path, ".gz") {
		o.gz = gzip.NewWriter(o.w)
		o.w = o.gz
	}
	return o, nil
}

func (o *output) close(ctx context.Context) error {
	var once errors.Once
	if o.gz != nil {
		once.Set(o.gz.Close())
	}
	once.Set(o.f.Close(ctx))
	return once.Err()
}

func downsample(ctx context.Context, r1Path, r2Path, r1Out, r2Out string, flags downsampleFlags) error {
	if (flags.rate < 0) == (flags.count < 0) {
		return fmt.Errorf("downsample: exactly one of --rate and --count must be set")
	}
	o1, err := createOutput(ctx, r1Out)
	if err != nil {
		return err
	}
	o2, err := createOutput(ctx, r2Out)
	if err != nil {
		o1.close(ctx) // nolint: errcheck
		return err
	}
	var once errors.Once
	if flags.rate >= 0 {
		once.Set(fastq.Downsample(ctx, flags.rate, r1Path, r2Path, o1.w, o2.w))
	} else {
		once.Set(fastq.DownsampleToCount(ctx, flags.count, r1Path, r2Path, o1.w, o2.w))
	}
	once.Set(o1.close(ctx))
	once.Set(o2.close(ctx))
	return once.Err()
}
