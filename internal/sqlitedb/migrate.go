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

package sqlitedb

import (
	"database/sql"
	"fmt"
)

// Migration is one ordered migration step, either a raw SQL script or
// a Go callback for migrations that can't be expressed as plain SQL.
// This mirrors the language-neutral strategy called for in the
// design notes: an explicit ordered list of descriptors compiled into
// the binary, rather than Perkeep's embedded-resource/reflection-based
// discovery (which has no equivalent without a CLR-style reflection
// API).
type Migration struct {
	Name string
	SQL  string
	Func func(*sql.Tx) error
}

const createSchemaVersions = `CREATE TABLE IF NOT EXISTS SchemaVersions (
	ScriptName TEXT NOT NULL PRIMARY KEY,
	Applied    TEXT NOT NULL
)`

// Migrate applies each migration in order inside its own transaction,
// skipping ones already recorded in SchemaVersions. A failed script
// rolls back just that script's transaction and stops the loop,
// leaving the database at the last successfully applied version.
func Migrate(db *sql.DB, migrations []Migration) error {
	if _, err := db.Exec(createSchemaVersions); err != nil {
		return fmt.Errorf("creating SchemaVersions: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query(`SELECT ScriptName FROM SchemaVersions`)
	if err != nil {
		return fmt.Errorf("reading SchemaVersions: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.Name] {
			continue
		}
		if err := applyOne(db, m); err != nil {
			return fmt.Errorf("migration %q failed: %w", m.Name, err)
		}
	}
	return nil
}

func applyOne(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if m.SQL != "" {
		if _, err := tx.Exec(m.SQL); err != nil {
			return err
		}
	}
	if m.Func != nil {
		if err := m.Func(tx); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO SchemaVersions (ScriptName, Applied) VALUES (?, datetime('now'))`, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
