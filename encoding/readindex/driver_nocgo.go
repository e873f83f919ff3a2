// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build !cgo

package readindex

// Without cgo, fall back to the pure Go modernc.org/sqlite driver.

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"
