// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Window is a half-open range [Start, End) of read positions.
type Window struct {
	Start, End int
}

// Contains reports whether pos lies inside the window.
func (w Window) Contains(pos int) bool {
	return pos >= w.Start && pos < w.End
}

// String implements fmt.Stringer.
func (w Window) String() string {
	return fmt.Sprintf("[%d,%d)", w.Start, w.End)
}

// Opts holds the clustering parameters.
type Opts struct {
	// PrimerLength is the length of the read prefix used as the initial
	// bucket key.
	PrimerLength int
	// PrimerMismatches is the number of position-wise mismatches tolerated
	// between a read's primer and a bucket key during Build.
	PrimerMismatches int
	// Threshold is the minimum fraction of a bucket's reads that must agree
	// on the majority base of every column in Window for the bucket to be
	// congruent.
	Threshold float64
	// Window is the range of columns inspected for congruence and compared
	// by MergeAdjacent. The default skips the primer and the low-quality tail
	// of a 2x150 run.
	Window Window
	// SplitRounds is the number of SplitRound passes made by Refine. Buckets
	// that are still heterogeneous after this many rounds stay under-split.
	SplitRounds int
	// MergeMismatches is the number of windowed consensus mismatches under
	// which MergeAdjacent merges two neighboring buckets.
	MergeMismatches int
	// SiftEnd is the exclusive end of the consensus range compared by Sift.
	// The range starts at Window.Start.
	SiftEnd int
	// SiftMismatchFraction scales the number of mismatches Sift tolerates
	// between a bucket and a registry entry: floor(fraction*(SiftEnd-Window.Start)).
	SiftMismatchFraction float64
	// MinPromoteReads is the member count a finalized bucket must exceed to
	// be promoted into the registry on its own.
	MinPromoteReads int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	PrimerLength:         20,
	PrimerMismatches:     2,
	Threshold:            0.9,
	Window:               Window{20, 150},
	SplitRounds:          20,
	MergeMismatches:      2,
	SiftEnd:              150,
	SiftMismatchFraction: 0.1,
	MinPromoteReads:      10,
}

// Validate checks that the options are usable.
func (o Opts) Validate() error {
	switch {
	case o.PrimerLength <= 0:
		return errors.E(errors.Invalid, fmt.Sprintf("primer length must be positive, got %d", o.PrimerLength))
	case o.PrimerMismatches < 0 || o.MergeMismatches < 0:
		return errors.E(errors.Invalid, "mismatch tolerances must be non-negative")
	case o.Threshold <= 0 || o.Threshold > 1:
		return errors.E(errors.Invalid, fmt.Sprintf("threshold must be in (0,1], got %v", o.Threshold))
	case o.Window.Start < 0 || o.Window.End <= o.Window.Start:
		return errors.E(errors.Invalid, fmt.Sprintf("invalid inspection window %v", o.Window))
	case o.SplitRounds < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("split rounds must be non-negative, got %d", o.SplitRounds))
	case o.SiftEnd <= o.Window.Start:
		return errors.E(errors.Invalid, fmt.Sprintf("sift end %d must be past the window start %d", o.SiftEnd, o.Window.Start))
	case o.SiftMismatchFraction < 0:
		return errors.E(errors.Invalid, "sift mismatch fraction must be non-negative")
	}
	return nil
}

// siftMismatches returns the mismatch tolerance Sift uses for a consensus
// range ending at endIndex.
func (o Opts) siftMismatches(endIndex int) int {
	n := endIndex - o.Window.Start
	if n <= 0 {
		return 0
	}
	return int(o.SiftMismatchFraction * float64(n))
}
