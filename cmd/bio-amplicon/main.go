// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command bio-amplicon clusters paired-end amplicon reads into allele groups.
//
// Example: cluster one sample and keep the registries for later runs.
//
//    bio-amplicon cluster --prefix=/tmp/s1 --registry-output=/tmp/s1.rio s1_R1.fastq.gz s1_R2.fastq.gz
//
// Example: sift a second sample into the registries of the first.
//
//    bio-amplicon cluster --prefix=/tmp/s2 --registry-input=/tmp/s1.rio --registry-output=/tmp/s12.rio s2_R1.fastq.gz s2_R2.fastq.gz
//
// Example: keep 10% of the read pairs.
//
//    bio-amplicon downsample --rate=0.1 s1_R1.fastq.gz s1_R2.fastq.gz out_R1.fastq.gz out_R2.fastq.gz
package main

import (
	"fmt"

	"github.com/grailbio/amplicon/amplicon"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdCluster() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "cluster",
		Short:    "Cluster R1 and R2 amplicon reads into allele groups",
		ArgsName: "r1path r2path",
	}
	opts := amplicon.DefaultOpts
	flags := clusterFlags{}
	cmd.Flags.StringVar(&flags.prefix, "prefix", "./amplicon", `Prefix of the report files. The command writes
<prefix>.buckets.tsv, <prefix>.pairs.tsv, <prefix>.registry.tsv,
<prefix>.R1.fa, <prefix>.R2.fa and <prefix>.alignments.txt.`)
	cmd.Flags.StringVar(&flags.registryInput, "registry-input", "", "Registry file written by an earlier run with --registry-output. The buckets of this run are sifted into it.")
	cmd.Flags.StringVar(&flags.registryOutput, "registry-output", "", "If set, write the R1 and R2 registries to this recordio file.")
	cmd.Flags.StringVar(&flags.indexOutput, "index", "", "If set, write a SQLite database mapping each read to its bucket, pair and group.")
	cmd.Flags.IntVar(&opts.PrimerLength, "primer-length", amplicon.DefaultOpts.PrimerLength, "Length of the read prefix used as the initial bucket key")
	cmd.Flags.IntVar(&opts.PrimerMismatches, "primer-mismatches", amplicon.DefaultOpts.PrimerMismatches, "Mismatches tolerated between a read's primer and a bucket key")
	cmd.Flags.Float64Var(&opts.Threshold, "threshold", amplicon.DefaultOpts.Threshold, "Minimum fraction of reads agreeing on every column of a congruent bucket")
	cmd.Flags.IntVar(&opts.Window.Start, "window-start", amplicon.DefaultOpts.Window.Start, "First read column inspected for congruence")
	cmd.Flags.IntVar(&opts.Window.End, "window-end", amplicon.DefaultOpts.Window.End, "Read column past the last one inspected for congruence")
	cmd.Flags.IntVar(&opts.SplitRounds, "split-rounds", amplicon.DefaultOpts.SplitRounds, "Maximum number of splitting rounds")
	cmd.Flags.IntVar(&opts.MergeMismatches, "merge-mismatches", amplicon.DefaultOpts.MergeMismatches, "Mismatches under which neighboring buckets are merged")
	cmd.Flags.IntVar(&opts.SiftEnd, "sift-end", amplicon.DefaultOpts.SiftEnd, "Read column past the last one compared against the registry")
	cmd.Flags.Float64Var(&opts.SiftMismatchFraction, "sift-mismatch-fraction", amplicon.DefaultOpts.SiftMismatchFraction, "Fraction of the sifted columns allowed to mismatch a registry entry")
	cmd.Flags.IntVar(&opts.MinPromoteReads, "min-promote-reads", amplicon.DefaultOpts.MinPromoteReads, "A finalized bucket needs more reads than this to become a new registry entry")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("cluster takes r1path r2path, but found %v", argv)
		}
		return cluster(vcontext.Background(), argv[0], argv[1], flags, opts)
	})
	return cmd
}

func newCmdDownsample() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "downsample",
		Short:    "Downsample a pair of FASTQ files",
		ArgsName: "r1path r2path r1out r2out",
	}
	flags := downsampleFlags{}
	cmd.Flags.Float64Var(&flags.rate, "rate", -1, "Fraction of read pairs to keep")
	cmd.Flags.Int64Var(&flags.count, "count", -1, "Approximate number of read pairs to keep. Exactly one of --rate and --count must be set.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 4 {
			return fmt.Errorf("downsample takes r1path r2path r1out r2out, but found %v", argv)
		}
		return downsample(vcontext.Background(), argv[0], argv[1], argv[2], argv[3], flags)
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-amplicon",
			Short:    "Tools for clustering amplicon reads",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCluster(),
				newCmdDownsample(),
			},
		})
}
