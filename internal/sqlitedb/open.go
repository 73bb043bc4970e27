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

// Package sqlitedb centralizes the embedded-database access shared by
// the content store and the manifest store: opening a pooled
// *sql.DB with WAL journaling enabled, and running ordered migration
// scripts tracked in a SchemaVersions table. Grounded on Perkeep's
// pkg/sorted/sqlite (WAL pragma, schema-version meta table) and
// pkg/sorted/sqlkv (single *sql.DB, a Go-level mutex to work around
// SQLite's "database is locked" errors under concurrent writers).
package sqlitedb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) a SQLite database at path with WAL
// journaling and foreign-key enforcement turned on.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", path, err)
	}
	// The pure-Go modernc.org/sqlite driver serializes access to a
	// single *sql.DB internally only per-connection; cap the pool at
	// one connection so writers never race each other at the
	// database/sql level, same rationale as sqlkv.KeyValue.Serial.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL on %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys on %s: %w", path, err)
	}
	return db, nil
}
