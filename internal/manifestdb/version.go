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

import (
	"database/sql"
	"fmt"
	"time"
)

// ServerBuild is one platform's server artifact for a version.
type ServerBuild struct {
	Platform string
	FileName string
	Sha256   [32]byte
	FileSize *int64
}

// Version is a published build of a fork.
type Version struct {
	ID              int64
	ForkID          int64
	Name            string
	PublishedTime   time.Time
	EngineVersion   string
	ClientZipName   string
	ClientZipSha256 [32]byte
	Available       bool
	ServerBuilds    []ServerBuild
}

// VersionExists reports whether (forkID, name) already has a
// ForkVersion row, used to return 409 on double-publish.
func (d *DB) VersionExists(forkID int64, name string) (bool, error) {
	var id int64
	err := d.sql.QueryRow(`SELECT Id FROM ForkVersion WHERE ForkId = ? AND VersionName = ?`, forkID, name).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CreateVersion inserts the ForkVersion row and its ServerBuild rows
// within tx, as the last step of publish finalization.
func (t *Tx) CreateVersion(v Version) (int64, error) {
	res, err := t.tx.Exec(
		`INSERT INTO ForkVersion (ForkId, VersionName, PublishedTime, EngineVersion, ClientZipName, ClientZipSha256, Available)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		v.ForkID, v.Name, v.PublishedTime.UTC().Format(time.RFC3339), v.EngineVersion, v.ClientZipName, v.ClientZipSha256[:],
	)
	if err != nil {
		return 0, fmt.Errorf("inserting version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, sb := range v.ServerBuilds {
		if _, err := t.tx.Exec(
			`INSERT INTO ForkVersionServerBuild (VersionId, Platform, FileName, Sha256, FileSize) VALUES (?, ?, ?, ?, ?)`,
			id, sb.Platform, sb.FileName, sb.Sha256[:], sb.FileSize,
		); err != nil {
			return 0, fmt.Errorf("inserting server build %s: %w", sb.Platform, err)
		}
	}
	return id, nil
}

// MarkAvailable flips Available=true for the given version ids. Done
// outside any ingestion transaction so the flip is ordered strictly
// after ingestion's commit.
func (d *DB) MarkAvailable(versionIDs []int64) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range versionIDs {
		if _, err := tx.Exec(`UPDATE ForkVersion SET Available = 1 WHERE Id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UnavailableVersionIDsForIngested returns the ForkVersion ids for the
// given (forkID, versionName) pairs that are not yet Available, so the
// availability job only flips versions that ingestion just processed.
func (d *DB) UnavailableVersionIDsForIngested(forkID int64, versionNames []string) ([]int64, error) {
	var ids []int64
	for _, name := range versionNames {
		var id int64
		var available bool
		err := d.sql.QueryRow(
			`SELECT Id, Available FROM ForkVersion WHERE ForkId = ? AND VersionName = ?`, forkID, name,
		).Scan(&id, &available)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !available {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AvailableVersions returns every available version of a fork, most
// recently published first, with their server builds, for the
// manifest-cache job and the HTML fork listing.
func (d *DB) AvailableVersions(forkID int64, limit int) ([]Version, error) {
	query := `SELECT Id, VersionName, PublishedTime, EngineVersion, ClientZipName, ClientZipSha256
	          FROM ForkVersion WHERE ForkId = ? AND Available = 1 ORDER BY PublishedTime DESC`
	args := []interface{}{forkID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		var publishedTime string
		var zipSha []byte
		if err := rows.Scan(&v.ID, &v.Name, &publishedTime, &v.EngineVersion, &v.ClientZipName, &zipSha); err != nil {
			return nil, err
		}
		v.ForkID = forkID
		v.Available = true
		v.PublishedTime, err = time.Parse(time.RFC3339, publishedTime)
		if err != nil {
			return nil, err
		}
		copy(v.ClientZipSha256[:], zipSha)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range versions {
		builds, err := d.serverBuilds(versions[i].ID)
		if err != nil {
			return nil, err
		}
		versions[i].ServerBuilds = builds
	}
	return versions, nil
}

func (d *DB) serverBuilds(versionID int64) ([]ServerBuild, error) {
	rows, err := d.sql.Query(
		`SELECT Platform, FileName, Sha256, FileSize FROM ForkVersionServerBuild WHERE VersionId = ? ORDER BY Platform`, versionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ServerBuild
	for rows.Next() {
		var sb ServerBuild
		var sha []byte
		var size sql.NullInt64
		if err := rows.Scan(&sb.Platform, &sb.FileName, &sha, &size); err != nil {
			return nil, err
		}
		copy(sb.Sha256[:], sha)
		if size.Valid {
			v := size.Int64
			sb.FileSize = &v
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

// VersionByName loads a single version (available or not) with its
// server builds, used by fork-scoped file serving.
func (d *DB) VersionByName(forkID int64, name string) (Version, bool, error) {
	var v Version
	var publishedTime string
	var zipSha []byte
	err := d.sql.QueryRow(
		`SELECT Id, VersionName, PublishedTime, EngineVersion, ClientZipName, ClientZipSha256, Available
		 FROM ForkVersion WHERE ForkId = ? AND VersionName = ?`, forkID, name,
	).Scan(&v.ID, &v.Name, &publishedTime, &v.EngineVersion, &v.ClientZipName, &zipSha, &v.Available)
	if err == sql.ErrNoRows {
		return Version{}, false, nil
	}
	if err != nil {
		return Version{}, false, err
	}
	v.ForkID = forkID
	v.PublishedTime, err = time.Parse(time.RFC3339, publishedTime)
	if err != nil {
		return Version{}, false, err
	}
	copy(v.ClientZipSha256[:], zipSha)
	builds, err := d.serverBuilds(v.ID)
	if err != nil {
		return Version{}, false, err
	}
	v.ServerBuilds = builds
	return v, true, nil
}

// PruneCandidates returns version names of a fork published before
// cutoff, for the prune job.
func (d *DB) PruneCandidates(forkID int64, cutoff time.Time) ([]string, error) {
	rows, err := d.sql.Query(
		`SELECT VersionName FROM ForkVersion WHERE ForkId = ? AND PublishedTime < ?`,
		forkID, cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteVersion removes a ForkVersion row, cascading to its
// ForkVersionServerBuild rows. It does not touch the version's disk
// directory.
func (d *DB) DeleteVersion(forkID int64, name string) error {
	_, err := d.sql.Exec(`DELETE FROM ForkVersion WHERE ForkId = ? AND VersionName = ?`, forkID, name)
	return err
}
