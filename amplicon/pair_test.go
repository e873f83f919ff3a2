// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dictOf builds a dictionary from key -> read ids. All reads get the same
// sequence.
func dictOf(t *testing.T, keys []string, members map[string][]string) *Dict {
	d := NewDict()
	for _, k := range keys {
		b := NewBucket(k)
		for _, id := range members[k] {
			require.NoError(t, b.Add(id, "ACGT"))
		}
		d.Put(b)
	}
	return d
}

func readsOf(ids ...string) Reads {
	r := Reads{}
	for _, id := range ids {
		r[id] = "ACGT"
	}
	return r
}

func TestCorrelateSingleRead(t *testing.T) {
	a, tt := strings.Repeat("A", 20), strings.Repeat("T", 20)
	r1 := dictOf(t, []string{a}, map[string][]string{a: {"read1"}})
	r2 := dictOf(t, []string{tt}, map[string][]string{tt: {"read1"}})
	pairs, err := Correlate(r1, r2, readsOf("read1"))
	require.NoError(t, err)
	assert.Equal(t, 1, pairs.Len())
	ids, ok := pairs.Lookup(a, tt)
	assert.True(t, ok)
	assert.Equal(t, []string{"read1"}, ids)
	ids, ok = pairs.Lookup(tt, a)
	assert.True(t, ok)
	assert.Equal(t, []string{"read1"}, ids)
	_, ok = pairs.Lookup(a, a)
	assert.False(t, ok)
}

func TestCorrelate(t *testing.T) {
	r1 := dictOf(t, []string{"X", "Y"}, map[string][]string{
		"X": {"r1", "r2", "r3"},
		"Y": {"r4"},
	})
	r2 := dictOf(t, []string{"P", "Q"}, map[string][]string{
		"P": {"r4", "r1"},
		"Q": {"r3", "r2"},
	})
	pairs, err := Correlate(r1, r2, readsOf("r1", "r2", "r3", "r4"))
	require.NoError(t, err)
	assert.Equal(t, []PairedGroup{
		{R1Key: "X", R2Key: "P", IDs: []string{"r1"}},
		{R1Key: "X", R2Key: "Q", IDs: []string{"r2", "r3"}},
		{R1Key: "Y", R2Key: "P", IDs: []string{"r4"}},
	}, pairs.Groups())
	assert.Empty(t, pairs.Unpaired)

	// Every R1 read lands in exactly one group.
	n := 0
	for _, g := range pairs.Groups() {
		n += len(g.IDs)
	}
	assert.Equal(t, r1.NumReads(), n)
}

func TestCorrelateUnordered(t *testing.T) {
	r1 := dictOf(t, []string{"A", "B"}, map[string][]string{"A": {"r1"}, "B": {"r2"}})
	r2 := dictOf(t, []string{"B", "A"}, map[string][]string{"B": {"r1"}, "A": {"r2"}})
	pairs, err := Correlate(r1, r2, readsOf("r1", "r2"))
	require.NoError(t, err)
	assert.Equal(t, 1, pairs.Len())
	ids, _ := pairs.Lookup("B", "A")
	assert.Equal(t, []string{"r1", "r2"}, ids)
}

func TestCorrelateMissingMate(t *testing.T) {
	r1 := dictOf(t, []string{"X"}, map[string][]string{"X": {"r1", "r2"}})
	r2 := dictOf(t, []string{"P"}, map[string][]string{"P": {"r1"}})

	_, err := Correlate(r1, r2, readsOf("r1"))
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotExist, err))

	// A mate that was read but dropped from every bucket is reported.
	pairs, err := Correlate(r1, r2, readsOf("r1", "r2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, pairs.Unpaired)
	assert.Equal(t, 1, pairs.Len())
}
