// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build cgo

package readindex

// With cgo, use the mattn sqlite3 driver. It is faster than the pure Go one.

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"
