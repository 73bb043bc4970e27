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

package contentdb

import "database/sql"

// queryer is satisfied by both *sql.DB and *sql.Tx, letting the CRUD
// helpers below run either standalone or inside an ingestion
// transaction.
type queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Tx is an in-progress content-store transaction, used by the
// ingestion job which commits every few versions to bound WAL growth.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a new transaction.
func (d *DB) Begin() (*Tx, error) {
	tx, err := d.sql.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction. Safe to call after Commit (no-op).
func (t *Tx) Rollback() error { return t.tx.Rollback() }
