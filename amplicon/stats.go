// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

// Stats counts what the clustering stages did to one mate's reads.
type Stats struct {
	// Reads is the number of FASTQ records read by Build.
	Reads int
	// PartialRecords is the number of truncated trailing records discarded
	// by Build. It is at most 1 per file.
	PartialRecords int
	// Buckets is the number of buckets created by Build.
	Buckets int

	// Rounds is the number of split rounds run.
	Rounds int
	// Splits is the number of incongruent buckets replaced by children.
	Splits int
	// Children is the number of non-empty child buckets created by splits.
	Children int
	// Finalized is the number of buckets marked congruent.
	Finalized int
	// DroppedReads counts reads removed by a split because they carry no
	// A/C/G/T base at the split column.
	DroppedReads int
	// EmptyBuckets counts empty buckets discarded during splitting.
	EmptyBuckets int

	// Merged is the number of buckets absorbed by MergeAdjacent.
	Merged int

	// Promoted is the number of buckets that became new registry entries.
	Promoted int
	// Absorbed is the number of buckets unioned into an existing registry
	// entry.
	Absorbed int
	// RejectedUnions counts registry matches whose union failed the
	// congruence check.
	RejectedUnions int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.PartialRecords += o.PartialRecords
	s.Buckets += o.Buckets
	s.Rounds += o.Rounds
	s.Splits += o.Splits
	s.Children += o.Children
	s.Finalized += o.Finalized
	s.DroppedReads += o.DroppedReads
	s.EmptyBuckets += o.EmptyBuckets
	s.Merged += o.Merged
	s.Promoted += o.Promoted
	s.Absorbed += o.Absorbed
	s.RejectedUnions += o.RejectedUnions
	return s
}
