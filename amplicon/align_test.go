// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

import (
	"bytes"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriteAlignment(t *testing.T) {
	b := NewBucket("K")
	assert.NoError(t, b.Add("a", "ACGT"))
	assert.NoError(t, b.Add("b", "AGGTT"))
	assert.NoError(t, b.Add("c", "AC"))
	var buf bytes.Buffer
	assert.NoError(t, WriteAlignment(&buf, "ACGT", b))
	expect.EQ(t, buf.String(), "ACGT\n    \ta\n G  \tb\n  \tc\n")
}
