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

// Package manifestdb is the publish store: forks, versions,
// server-build artifacts, in-progress publishes and the cached
// per-fork server-manifest JSON blob.
package manifestdb

import (
	"database/sql"
	"fmt"

	"github.com/space-wizards/robust-cdn/internal/sqlitedb"
)

// DB wraps the manifest store's *sql.DB.
type DB struct {
	sql *sql.DB
}

// Open opens (and migrates) the manifest database at path.
func Open(path string) (*DB, error) {
	sqlDB, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.Migrate(sqlDB, migrations); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating manifest db: %w", err)
	}
	return &DB{sql: sqlDB}, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Tx is an in-progress manifest-store transaction, used by the
// publish workflow's atomic finalization step.
type Tx struct {
	tx *sql.Tx
}

func (d *DB) Begin() (*Tx, error) {
	tx, err := d.sql.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }
