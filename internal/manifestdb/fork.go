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

package manifestdb

import "database/sql"

// UpsertFork idempotently inserts a Fork row by name, returning its
// id. Called at startup for every fork in configuration.
func (d *DB) UpsertFork(name string) (int64, error) {
	if _, err := d.sql.Exec(`INSERT INTO Fork (Name) VALUES (?) ON CONFLICT(Name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := d.sql.QueryRow(`SELECT Id FROM Fork WHERE Name = ?`, name).Scan(&id)
	return id, err
}

// ForkID returns the id of a fork by name.
func (d *DB) ForkID(name string) (int64, bool, error) {
	var id int64
	err := d.sql.QueryRow(`SELECT Id FROM Fork WHERE Name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	return id, err == nil, err
}

// ServerManifestCache returns a fork's cached server-manifest JSON
// blob. Returns found=false if the fork has never had its cache
// built.
func (d *DB) ServerManifestCache(forkID int64) (data []byte, found bool, err error) {
	err = d.sql.QueryRow(`SELECT ServerManifestCache FROM Fork WHERE Id = ?`, forkID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

// SetServerManifestCache overwrites a fork's cached server-manifest
// JSON blob.
func (d *DB) SetServerManifestCache(forkID int64, data []byte) error {
	_, err := d.sql.Exec(`UPDATE Fork SET ServerManifestCache = ? WHERE Id = ?`, data, forkID)
	return err
}

// ForkIDs returns every known fork's (id, name) pairs, used by
// scheduled jobs that iterate all forks.
func (d *DB) ForkIDs() (map[string]int64, error) {
	rows, err := d.sql.Query(`SELECT Id, Name FROM Fork`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}
