// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/amplicon/amplicon"
	"github.com/grailbio/amplicon/encoding/fastq"
	"github.com/grailbio/amplicon/encoding/readindex"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}

func randomSeq(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return string(b)
}

// otherAllele returns seq with 20 columns inside the default window changed.
func otherAllele(seq string) string {
	b := []byte(seq)
	for c := 30; c < 130; c += 5 {
		b[c] = "CGTA"[strings.IndexByte("ACGT", b[c])]
	}
	return string(b)
}

// writeSample writes n read pairs named <prefix><i> drawn from two alleles
// per mate.
func writeSample(t *testing.T, dir, prefix string, n int) (r1Path, r2Path string) {
	r := rand.New(rand.NewSource(0))
	alleles := [2][2]string{}
	for mate := range alleles {
		a := randomSeq(r, 200)
		alleles[mate] = [2]string{a, otherAllele(a)}
	}
	var bufs [2]bytes.Buffer
	for i := 0; i < n; i++ {
		for mate := range bufs {
			seq := alleles[mate][i%2]
			fmt.Fprintf(&bufs[mate], "@%s%d/%d\n%s\n+\n%s\n", prefix, i, mate+1, seq, strings.Repeat("I", len(seq)))
		}
	}
	r1Path = filepath.Join(dir, prefix+"_R1.fastq")
	r2Path = filepath.Join(dir, prefix+"_R2.fastq")
	assert.NoError(t, ioutil.WriteFile(r1Path, bufs[0].Bytes(), 0600))
	assert.NoError(t, ioutil.WriteFile(r2Path, bufs[1].Bytes(), 0600))
	return
}

func readRegistryTSV(t *testing.T, path string) []registryRow {
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close() // nolint: errcheck
	r := tsv.NewReader(f)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var rows []registryRow
	for {
		var row registryRow
		err := r.Read(&row)
		if err == io.EOF {
			break
		}
		assert.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestCluster(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	r1, r2 := writeSample(t, tempDir, "read", 30)
	flags := clusterFlags{
		prefix:         filepath.Join(tempDir, "s1"),
		registryOutput: filepath.Join(tempDir, "s1.rio"),
		indexOutput:    filepath.Join(tempDir, "s1.db"),
	}
	assert.NoError(t, cluster(ctx, r1, r2, flags, amplicon.DefaultOpts))

	rows := readRegistryTSV(t, flags.prefix+".registry.tsv")
	expect.EQ(t, len(rows), 4)
	for _, row := range rows {
		expect.EQ(t, row.Reads, 15)
		expect.EQ(t, row.NewReads, 15)
		expect.EQ(t, row.Group, groupName(row.Consensus))
		expect.EQ(t, len(row.Consensus), 130)
	}

	fa, err := ioutil.ReadFile(flags.prefix + ".R1.fa")
	assert.NoError(t, err)
	expect.EQ(t, strings.Count(string(fa), ">grp_"), 2)
	expect.EQ(t, strings.Count(string(fa), " reads=15\n"), 2)

	pairs, err := ioutil.ReadFile(flags.prefix + ".pairs.tsv")
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(pairs)), "\n")
	expect.EQ(t, len(lines), 3)
	expect.EQ(t, lines[0], "R1_BUCKET\tR2_BUCKET\tR1_GROUP\tR2_GROUP\tREADS")

	regs, opts, err := readRegistries(ctx, flags.registryOutput)
	assert.NoError(t, err)
	expect.EQ(t, opts, amplicon.DefaultOpts)
	expect.EQ(t, regs[amplicon.R1].Len(), 2)
	expect.EQ(t, regs[amplicon.R2].Len(), 2)

	x, err := readindex.Open(ctx, flags.indexOutput)
	assert.NoError(t, err)
	as, err := x.Lookup(ctx, "read0")
	assert.NoError(t, err)
	expect.EQ(t, len(as), 2)
	expect.EQ(t, as[0].Mate, "R1")
	expect.True(t, strings.HasPrefix(as[0].Group, "grp_"))
	mates, err := x.BucketReads(ctx, "R1", as[0].Bucket)
	assert.NoError(t, err)
	expect.EQ(t, len(mates), 15)
	expect.EQ(t, mates[0], "read0")
	assert.NoError(t, x.Close())

	// A second sample sifts into the saved registries.
	s1, s2 := writeSample(t, tempDir, "s2_", 30)
	flags2 := clusterFlags{
		prefix:        filepath.Join(tempDir, "s2"),
		registryInput: flags.registryOutput,
	}
	assert.NoError(t, cluster(ctx, s1, s2, flags2, amplicon.DefaultOpts))
	rows = readRegistryTSV(t, flags2.prefix+".registry.tsv")
	expect.EQ(t, len(rows), 4)
	for _, row := range rows {
		expect.EQ(t, row.Reads, 30)
		expect.EQ(t, row.NewReads, 15)
	}

	// Re-sifting the reads already in the registry fails.
	expect.NotNil(t, cluster(ctx, r1, r2, flags2, amplicon.DefaultOpts))
}

func TestReadRegistriesErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	_, _, err := readRegistries(ctx, filepath.Join(tempDir, "missing.rio"))
	expect.NotNil(t, err)

	path := filepath.Join(tempDir, "bad.rio")
	assert.NoError(t, ioutil.WriteFile(path, []byte("not a registry"), 0600))
	_, _, err = readRegistries(ctx, path)
	expect.NotNil(t, err)
}

func countReads(t *testing.T, path string) int {
	ctx := context.Background()
	in, r, err := fastq.Open(ctx, path)
	assert.NoError(t, err)
	defer in.Close(ctx) // nolint: errcheck
	sc := fastq.NewScanner(r, fastq.ID)
	var (
		read fastq.Read
		n    int
	)
	for sc.Scan(&read) {
		n++
	}
	assert.NoError(t, sc.Err())
	return n
}

func TestDownsample(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	r1, r2 := writeSample(t, tempDir, "read", 100)

	out1, out2 := filepath.Join(tempDir, "out_R1.fastq.gz"), filepath.Join(tempDir, "out_R2.fastq")
	assert.NoError(t, downsample(ctx, r1, r2, out1, out2, downsampleFlags{rate: 1, count: -1}))
	expect.EQ(t, countReads(t, out1), 100)
	expect.EQ(t, countReads(t, out2), 100)

	assert.NoError(t, downsample(ctx, r1, r2, out1, out2, downsampleFlags{rate: 0, count: -1}))
	expect.EQ(t, countReads(t, out1), 0)

	expect.NotNil(t, downsample(ctx, r1, r2, out1, out2, downsampleFlags{rate: -1, count: -1}))
	expect.NotNil(t, downsample(ctx, r1, r2, out1, out2, downsampleFlags{rate: 0.5, count: 10}))
}
