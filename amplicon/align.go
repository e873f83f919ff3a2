// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"bufio"
	"io"
)

// WriteAlignment writes consensus on one line, then one line per member of b
// showing the read against it: a space where the read agrees with the
// consensus and the read's base where it differs, followed by a tab and the
// read id. Columns past the end of the shorter sequence are not written.
func WriteAlignment(w io.Writer, consensus string, b *Bucket) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(consensus)
	bw.WriteByte('\n')
	line := make([]byte, 0, len(consensus))
	for _, id := range b.IDs() {
		seq, _ := b.Seq(id)
		n := len(consensus)
		if len(seq) < n {
			n = len(seq)
		}
		line = line[:0]
		for i := 0; i < n; i++ {
			if seq[i] == consensus[i] {
				line = append(line, ' ')
			} else {
				line = append(line, seq[i])
			}
		}
		bw.Write(line)
		bw.WriteByte('\t')
		bw.WriteString(id)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
