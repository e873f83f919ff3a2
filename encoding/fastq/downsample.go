// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fastq

import (
	"context"
	"io"
	"math/rand"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// downsampleSeed makes the selection reproducible across runs.
const downsampleSeed = 0

// Open opens a FASTQ file for reading. Compressed files (.gz, .zst, ...) are
// decompressed transparently. The caller must close the returned file.
func Open(ctx context.Context, path string) (file.File, io.Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u, _ := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return in, r, nil
}

// Downsample writes read pairs from the FASTQ files r1Path and r2Path to
// r1Out and r2Out. Each pair is kept with probability rate; rates above 1
// keep every pair.
func Downsample(ctx context.Context, rate float64, r1Path, r2Path string, r1Out, r2Out io.Writer) error {
	if rate < 0.0 {
		return errors.Errorf("rate must be non-negative, got %v", rate)
	}
	_, err := downsample(ctx, rate, r1Path, r2Path, r1Out, r2Out)
	return err
}

// DownsampleToCount writes approximately count read pairs from r1Path and
// r2Path to r1Out and r2Out. It makes two passes over the inputs: the first
// counts the pairs, the second samples them at count/total.
func DownsampleToCount(ctx context.Context, count int64, r1Path, r2Path string, r1Out, r2Out io.Writer) error {
	if count < 0 {
		return errors.Errorf("count must be non-negative, got %d", count)
	}
	total, err := downsample(ctx, 0, r1Path, r2Path, nil, nil)
	if err != nil {
		return err
	}
	rate := 1.0
	if total > count {
		rate = float64(count) / float64(total)
	}
	_, err = downsample(ctx, rate, r1Path, r2Path, r1Out, r2Out)
	return err
}

// downsample scans both files in lockstep and returns the number of pairs
// seen. Nothing is written when r1Out is nil.
func downsample(ctx context.Context, rate float64, r1Path, r2Path string, r1Out, r2Out io.Writer) (int64, error) {
	in1, r1, err := Open(ctx, r1Path)
	if err != nil {
		return 0, err
	}
	defer in1.Close(ctx) // nolint: errcheck
	in2, r2, err := Open(ctx, r2Path)
	if err != nil {
		return 0, err
	}
	defer in2.Close(ctx) // nolint: errcheck

	var (
		random   = rand.New(rand.NewSource(downsampleSeed))
		sc       = NewPairScanner(r1, r2, All)
		w1, w2   *Writer
		r1R, r2R Read
		n        int64
	)
	if r1Out != nil {
		w1, w2 = NewWriter(r1Out), NewWriter(r2Out)
	}
	for sc.Scan(&r1R, &r2R) {
		n++
		if w1 == nil || random.Float64() >= rate {
			continue
		}
		if err := w1.Write(&r1R); err != nil {
			return n, errors.Wrap(err, "error writing R1 output")
		}
		if err := w2.Write(&r2R); err != nil {
			return n, errors.Wrap(err, "error writing R2 output")
		}
	}
	switch err := sc.Err(); err {
	case nil:
		return n, nil
	case ErrDiscordant:
		return n, errors.Errorf("%s and %s have different numbers of reads", r1Path, r2Path)
	default:
		return n, errors.Wrapf(err, "error reading %s, %s", r1Path, r2Path)
	}
}
