// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package readindex stores the outcome of an amplicon clustering run in a
// SQLite database so that the bucket, group and mate of any read can be
// queried without rerunning the clustering.
//
// The database holds three tables:
//
//   assignment(read, mate, bucket, grp): the bucket holding each read of each
//   mate, and the registry group the bucket was sifted into, if any.
//   pair(r1_bucket, r2_bucket, read): the paired groups.
//   grp(mate, name, consensus, size): the registry entries.
package readindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS assignment (
	read TEXT NOT NULL,
	mate TEXT NOT NULL,
	bucket TEXT NOT NULL,
	grp TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (read, mate)
);
CREATE INDEX IF NOT EXISTS assignment_bucket ON assignment (mate, bucket);
CREATE TABLE IF NOT EXISTS pair (
	r1_bucket TEXT NOT NULL,
	r2_bucket TEXT NOT NULL,
	read TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pair_buckets ON pair (r1_bucket, r2_bucket);
CREATE TABLE IF NOT EXISTS grp (
	mate TEXT NOT NULL,
	name TEXT NOT NULL,
	consensus TEXT NOT NULL,
	size INTEGER NOT NULL,
	PRIMARY KEY (mate, name)
);
`

// Assignment records the bucket that holds one read of one mate.
type Assignment struct {
	Read   string `db:"read"`
	Mate   string `db:"mate"`
	Bucket string `db:"bucket"`
	// Group is the name of the registry group the read ended up in, or empty
	// if its bucket was never sifted into a registry.
	Group string `db:"grp"`
}

// Pair records that a read belongs to the paired group (R1Bucket, R2Bucket).
type Pair struct {
	R1Bucket string `db:"r1_bucket"`
	R2Bucket string `db:"r2_bucket"`
	Read     string `db:"read"`
}

// Group is a registry entry.
type Group struct {
	Mate      string `db:"mate"`
	Name      string `db:"name"`
	Consensus string `db:"consensus"`
	Size      int    `db:"size"`
}

// Index is an open read index database.
type Index struct {
	DB *sqlx.DB
}

// Open opens the index database at path, creating it and its tables if
// needed.
func Open(ctx context.Context, path string) (*Index, error) {
	// URI filenames must begin with "file:".
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	db, err := sqlx.ConnectContext(ctx, driverName, path)
	if err != nil {
		return nil, errors.E(err, "readindex: open", path)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() // nolint: errcheck
		return nil, errors.E(err, "readindex: create tables", path)
	}
	return &Index{DB: db}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.DB.Close()
}

// insert runs query once per row inside a single transaction.
func (x *Index) insert(ctx context.Context, query string, n int, row func(i int) interface{}) (err error) {
	tx, err := x.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback() // nolint: errcheck
		}
	}()
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, row(i)); err != nil {
			stmt.Close() // nolint: errcheck
			return err
		}
	}
	if err = stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

// PutAssignments inserts or replaces read assignments.
func (x *Index) PutAssignments(ctx context.Context, rows []Assignment) error {
	err := x.insert(ctx,
		`INSERT OR REPLACE INTO assignment (read, mate, bucket, grp) VALUES (:read, :mate, :bucket, :grp)`,
		len(rows), func(i int) interface{} { return rows[i] })
	if err != nil {
		return errors.E(err, "readindex: insert assignments")
	}
	return nil
}

// PutPairs appends paired group memberships.
func (x *Index) PutPairs(ctx context.Context, rows []Pair) error {
	err := x.insert(ctx,
		`INSERT INTO pair (r1_bucket, r2_bucket, read) VALUES (:r1_bucket, :r2_bucket, :read)`,
		len(rows), func(i int) interface{} { return rows[i] })
	if err != nil {
		return errors.E(err, "readindex: insert pairs")
	}
	return nil
}

// PutGroups inserts or replaces registry groups.
func (x *Index) PutGroups(ctx context.Context, rows []Group) error {
	err := x.insert(ctx,
		`INSERT OR REPLACE INTO grp (mate, name, consensus, size) VALUES (:mate, :name, :consensus, :size)`,
		len(rows), func(i int) interface{} { return rows[i] })
	if err != nil {
		return errors.E(err, "readindex: insert groups")
	}
	return nil
}

// Lookup returns the assignments of read, R1 first.
func (x *Index) Lookup(ctx context.Context, read string) ([]Assignment, error) {
	var rows []Assignment
	if err := x.DB.SelectContext(ctx, &rows, `SELECT * FROM assignment WHERE read = ? ORDER BY mate`, read); err != nil {
		return nil, errors.E(err, "readindex: lookup", read)
	}
	if len(rows) == 0 {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("readindex: read %s", read))
	}
	return rows, nil
}

// BucketReads returns the reads held by a bucket of one mate, sorted by name.
func (x *Index) BucketReads(ctx context.Context, mate, bucket string) ([]string, error) {
	var reads []string
	err := x.DB.SelectContext(ctx, &reads, `SELECT read FROM assignment WHERE mate = ? AND bucket = ? ORDER BY read`, mate, bucket)
	if err != nil {
		return nil, errors.E(err, "readindex: bucket", bucket)
	}
	return reads, nil
}

// PairReads returns the reads shared by an R1 and an R2 bucket, sorted by
// name.
func (x *Index) PairReads(ctx context.Context, r1Bucket, r2Bucket string) ([]string, error) {
	var reads []string
	err := x.DB.SelectContext(ctx, &reads,
		`SELECT read FROM pair WHERE (r1_bucket = ? AND r2_bucket = ?) OR (r1_bucket = ? AND r2_bucket = ?) ORDER BY read`,
		r1Bucket, r2Bucket, r2Bucket, r1Bucket)
	if err != nil {
		return nil, errors.E(err, "readindex: pair", r1Bucket, r2Bucket)
	}
	return reads, nil
}

// Group returns the registry group of one mate with the given name.
func (x *Index) Group(ctx context.Context, mate, name string) (Group, error) {
	var g Group
	err := x.DB.GetContext(ctx, &g, `SELECT * FROM grp WHERE mate = ? AND name = ?`, mate, name)
	if err == sql.ErrNoRows {
		return g, errors.E(errors.NotExist, fmt.Sprintf("readindex: %s group %s", mate, name))
	}
	if err != nil {
		return g, errors.E(err, "readindex: group", name)
	}
	return g, nil
}

// Groups returns the registry groups of one mate, largest first.
func (x *Index) Groups(ctx context.Context, mate string) ([]Group, error) {
	var groups []Group
	if err := x.DB.SelectContext(ctx, &groups, `SELECT * FROM grp WHERE mate = ? ORDER BY size DESC, name`, mate); err != nil {
		return nil, errors.E(err, "readindex: groups", mate)
	}
	return groups, nil
}
