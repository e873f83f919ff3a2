// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fastq

import "io"

var newline = []byte{'\n'}

// Writer is a FASTQ file writer. The first write error sticks; every later
// Write returns it without touching the underlying writer.
type Writer struct {
	w   io.Writer
	n   int
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format. An empty line 3 is written as
// "+".
func (w *Writer) Write(r *Read) error {
	unk := r.Unk
	if unk == "" {
		unk = "+"
	}
	w.writeln(r.ID)
	w.writeln(r.Seq)
	w.writeln(unk)
	w.writeln(r.Qual)
	if w.err == nil {
		w.n++
	}
	return w.err
}

// N returns the number of reads written so far.
func (w *Writer) N() int { return w.n }

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
