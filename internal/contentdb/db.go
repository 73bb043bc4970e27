/*
Copyright 2026 The Robust-Cdn Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package contentdb is the content store: the blob database holding
// deduplicated, compressed blob payloads, per-version manifest entry
// lists and compressed manifest text.
package contentdb

import (
	"database/sql"
	"fmt"

	"github.com/space-wizards/robust-cdn/internal/sqlitedb"
)

// DB wraps the content store's *sql.DB.
type DB struct {
	sql *sql.DB
}

// Open opens the content database at path, running any pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.Migrate(sqlDB, migrations); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating content db: %w", err)
	}
	return &DB{sql: sqlDB}, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// UpsertFork idempotently inserts a Fork row by name, returning its id.
// Called at startup for every fork in configuration.
func (d *DB) UpsertFork(name string) (int64, error) {
	if _, err := d.sql.Exec(`INSERT INTO Fork (Name) VALUES (?) ON CONFLICT(Name) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("upserting fork %q: %w", name, err)
	}
	var id int64
	if err := d.sql.QueryRow(`SELECT Id FROM Fork WHERE Name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading fork %q id: %w", name, err)
	}
	return id, nil
}

// ForkID returns the id of a fork by name.
func (d *DB) ForkID(name string) (int64, bool, error) {
	var id int64
	err := d.sql.QueryRow(`SELECT Id FROM Fork WHERE Name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CountContentVersions returns the total number of ingested versions
// across every fork, reported by the process status endpoint.
func (d *DB) CountContentVersions() (int, error) {
	var n int
	err := d.sql.QueryRow(`SELECT COUNT(*) FROM ContentVersion`).Scan(&n)
	return n, err
}
