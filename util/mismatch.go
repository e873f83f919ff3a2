// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package util contains sequence comparison helpers shared by the amplicon
// clustering code.
package util

// Mismatches returns the number of positions at which s1 and s2 differ,
// comparing position by position over the overlap of the two strings. Bases
// past the end of the shorter string are not counted, and no insertions or
// deletions are considered.
func Mismatches(s1, s2 string) int {
	n := len(s1)
	if len(s2) < n {
		n = len(s2)
	}
	d := 0
	for i := 0; i < n; i++ {
		if s1[i] != s2[i] {
			d++
		}
	}
	return d
}

// WithinMismatches reports whether Mismatches(s1, s2) <= max. It stops at the
// first mismatch that exceeds max. A negative max never matches.
func WithinMismatches(s1, s2 string, max int) bool {
	if max < 0 {
		return false
	}
	n := len(s1)
	if len(s2) < n {
		n = len(s2)
	}
	d := 0
	for i := 0; i < n; i++ {
		if s1[i] != s2[i] {
			if d++; d > max {
				return false
			}
		}
	}
	return true
}
