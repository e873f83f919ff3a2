// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package amplicon groups paired-end amplicon reads of highly polymorphic genes
(HLA, MICA/MICB) into buckets that plausibly represent one allele, and
computes a consensus sequence per bucket.

The pipeline, per mate, is

  Build         reads a FASTQ stream and assigns each read to the first bucket
                whose key is within Opts.PrimerMismatches of the read's
                primer (its first Opts.PrimerLength bases).
  Refine        runs Opts.SplitRounds rounds of SplitRound. Each round
                finalizes congruent buckets and splits the others on their
                weakest column inside Opts.Window.
  MergeAdjacent merges buckets whose windowed consensus sequences are nearly
                identical.
  Sift          moves stable buckets into a Registry keyed by consensus.

Correlate then matches R1 buckets with R2 buckets through the reads they
share. Cluster runs the whole sequence for a pair of FASTQ files.

Grouping is alignment free: base counts are positional, reads are assumed to
be trimmed to comparable length, and quality scores are not used.

All operations are deterministic. Buckets are always visited in the
insertion order of their Dict or Registry, and the greedy first-fit choices
made by Build, MergeAdjacent and Sift depend on that order.
*/
package amplicon
