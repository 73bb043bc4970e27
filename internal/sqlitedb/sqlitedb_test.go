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
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEnablesWALAndForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenCreatesFileOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	// The WAL-mode database file is only materialized on first write.
	_, err = db.Exec(`CREATE TABLE T (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
}

func TestMigrateAppliesInOrderAndSkipsApplied(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	var runCount int
	migrations := []Migration{
		{Name: "0001_create", SQL: `CREATE TABLE Widgets (Id INTEGER PRIMARY KEY, Name TEXT)`},
		{Name: "0002_seed", Func: func(tx *sql.Tx) error {
			runCount++
			_, err := tx.Exec(`INSERT INTO Widgets (Name) VALUES ('first')`)
			return err
		}},
	}

	require.NoError(t, Migrate(db, migrations))
	require.NoError(t, Migrate(db, migrations)) // second call must be a no-op

	assert.Equal(t, 1, runCount)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Widgets`).Scan(&count))
	assert.Equal(t, 1, count)

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM SchemaVersions`).Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestMigrateStopsAtFirstFailure(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate-fail.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations := []Migration{
		{Name: "0001_ok", SQL: `CREATE TABLE Ok (Id INTEGER PRIMARY KEY)`},
		{Name: "0002_bad", SQL: `CREATE TABLE this is not valid sql`},
		{Name: "0003_never_runs", SQL: `CREATE TABLE Never (Id INTEGER PRIMARY KEY)`},
	}

	err = Migrate(db, migrations)
	assert.Error(t, err)

	var name string
	errFind := db.QueryRow(`SELECT ScriptName FROM SchemaVersions WHERE ScriptName = ?`, "0001_ok").Scan(&name)
	require.NoError(t, errFind)
	assert.Equal(t, "0001_ok", name)

	err = db.QueryRow(`SELECT ScriptName FROM SchemaVersions WHERE ScriptName = ?`, "0003_never_runs").Scan(&name)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
