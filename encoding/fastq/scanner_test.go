// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fastq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
)

const fq = `@M04211:118:000000000-C3R8J:1:1101:15589:1334 1:N:0:1
GCTCCCACTCCATGAGGTATTTCTACACCGCCATGTCCCGGCCCGGCCGCGGGGAGCCCCGC
+
CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG
@M04211:118:000000000-C3R8J:1:1101:16403:1337/1
GCTCCCACTCCATGAGGTATTTCTACACCTCCGTGTCCCGGCCCGGCCGCGGGGAGCCCCGC
+M04211:118:000000000-C3R8J:1:1101:16403:1337/1
CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG
@M04211:118:000000000-C3R8J:1:1101:14512:1345 1:N:0:1
GCTCCCACTCCATGAGGTATTTCTACACCGCCATGTCCCGGCCCGGCCGCGGGGAGCCNCGC
+
CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG#GGG
`

func stringScanner(s string) *Scanner {
	return NewScanner(strings.NewReader(s), All)
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	s := stringScanner(fq)
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	expect.EQ(t, r, Read{
		ID:   "@M04211:118:000000000-C3R8J:1:1101:15589:1334 1:N:0:1",
		Seq:  "GCTCCCACTCCATGAGGTATTTCTACACCGCCATGTCCCGGCCCGGCCGCGGGGAGCCCCGC",
		Unk:  "+",
		Qual: "CCCCCGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG",
	})
	expect.EQ(t, r.Name(), "M04211:118:000000000-C3R8J:1:1101:15589:1334")
	var n int
	for s.Scan(&r) {
		n++
	}
	expect.EQ(t, n, 2)
	expect.NoError(t, s.Err())
}

func TestScanSelectedFields(t *testing.T) {
	s := NewScanner(strings.NewReader(fq), ID|Seq)
	var r Read
	expect.True(t, s.Scan(&r))
	expect.EQ(t, r.Unk, "")
	expect.EQ(t, r.Qual, "")
	expect.EQ(t, len(r.Seq), 62)
}

func TestBadFASTQ(t *testing.T) {
	expect.EQ(t, scanErr("12312#\nACGT\n+\nIIII\n"), ErrInvalid)
	expect.EQ(t, scanErr(fq+"12312#\n@r\nACGT\n+\nIIII\n"), ErrInvalid)
	// A lone malformed last line is a truncated record.
	expect.EQ(t, scanErr("12312#"), ErrShort)
	expect.EQ(t, scanErr(fq+"\n"), ErrShort)
	expect.EQ(t, scanErr(fq+"ACGT\n"), ErrShort)
	expect.EQ(t, scanErr("@1234\n123"), ErrShort)
	expect.EQ(t, scanErr("@1234\nACGT\n-\nIIII\n"), ErrInvalid)
	// A trailing partial record is reported as short after the complete ones.
	s := stringScanner(fq + "@tail\nACGT\n")
	var (
		r Read
		n int
	)
	for s.Scan(&r) {
		n++
	}
	expect.EQ(t, n, 3)
	expect.EQ(t, s.Err(), ErrShort)
}

func TestName(t *testing.T) {
	for _, test := range []struct{ id, want string }{
		{"@read1", "read1"},
		{"@read1 1:N:0:ATCACG", "read1"},
		{"@read1\tcomment", "read1"},
		{"@read1/1", "read1"},
		{"@read1/2 extra", "read1"},
		{"@read1/3", "read1/3"},
		{"read1", "read1"},
		{"@/1", "/1"},
	} {
		expect.EQ(t, Name(test.id), test.want, "id %q", test.id)
	}
}

func TestPairScanner(t *testing.T) {
	p := NewPairScanner(strings.NewReader(fq), strings.NewReader(fq), ID)
	var r1, r2 Read
	n := 0
	for p.Scan(&r1, &r2) {
		expect.EQ(t, r1.Name(), r2.Name())
		n++
	}
	expect.EQ(t, n, 3)
	expect.NoError(t, p.Err())

	short := fq[:strings.Index(fq, "@M04211:118:000000000-C3R8J:1:1101:14512:1345")]
	p = NewPairScanner(strings.NewReader(fq), strings.NewReader(short), ID)
	for p.Scan(&r1, &r2) {
	}
	expect.EQ(t, p.Err(), ErrDiscordant)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	s := stringScanner(fq)
	var r Read
	for s.Scan(&r) {
		expect.NoError(t, w.Write(&r))
	}
	expect.EQ(t, w.N(), 3)
	expect.EQ(t, buf.String(), fq)

	buf.Reset()
	expect.NoError(t, NewWriter(&buf).Write(&Read{ID: "@x", Seq: "AC", Qual: "II"}))
	expect.EQ(t, buf.String(), "@x\nAC\n+\nII\n")
}
