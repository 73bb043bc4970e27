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
	"time"
)

// InProgress mirrors the PublishInProgress table.
type InProgress struct {
	ID            int64
	ForkID        int64
	VersionName   string
	StartTime     time.Time
	EngineVersion string
}

func getInProgress(q queryer, forkID int64, versionName string) (InProgress, bool, error) {
	var ip InProgress
	var start string
	err := q.QueryRow(
		`SELECT Id, ForkId, VersionName, StartTime, EngineVersion FROM PublishInProgress WHERE ForkId = ? AND VersionName = ?`,
		forkID, versionName,
	).Scan(&ip.ID, &ip.ForkID, &ip.VersionName, &start, &ip.EngineVersion)
	if err == sql.ErrNoRows {
		return InProgress{}, false, nil
	}
	if err != nil {
		return InProgress{}, false, err
	}
	ip.StartTime, err = time.Parse(time.RFC3339, start)
	return ip, err == nil, err
}

// GetInProgress returns the in-progress publish row for (forkID,
// versionName), if any.
func (d *DB) GetInProgress(forkID int64, versionName string) (InProgress, bool, error) {
	return getInProgress(d.sql, forkID, versionName)
}

// GetInProgress returns the in-progress publish row for (forkID,
// versionName) within tx, if any.
func (t *Tx) GetInProgress(forkID int64, versionName string) (InProgress, bool, error) {
	return getInProgress(t.tx, forkID, versionName)
}

// DeleteInProgress removes a PublishInProgress row within tx, used
// when restarting an aborted multi-publish and when /finish commits.
func (t *Tx) DeleteInProgress(forkID int64, versionName string) error {
	_, err := t.tx.Exec(`DELETE FROM PublishInProgress WHERE ForkId = ? AND VersionName = ?`, forkID, versionName)
	return err
}

// CreateInProgress inserts a new PublishInProgress row within tx.
func (t *Tx) CreateInProgress(forkID int64, versionName string, start time.Time, engineVersion string) error {
	_, err := t.tx.Exec(
		`INSERT INTO PublishInProgress (ForkId, VersionName, StartTime, EngineVersion) VALUES (?, ?, ?, ?)`,
		forkID, versionName, start.UTC().Format(time.RFC3339), engineVersion,
	)
	return err
}

// DeleteInProgress (non-transactional) removes a PublishInProgress
// row, used by /finish's abort path and the stale-publish sweep.
func (d *DB) DeleteInProgress(forkID int64, versionName string) error {
	_, err := d.sql.Exec(`DELETE FROM PublishInProgress WHERE ForkId = ? AND VersionName = ?`, forkID, versionName)
	return err
}

// StaleInProgress returns every PublishInProgress row started before
// cutoff, across all forks, for the stale-cleanup job.
func (d *DB) StaleInProgress(cutoff time.Time) ([]InProgress, error) {
	rows, err := d.sql.Query(
		`SELECT p.Id, p.ForkId, p.VersionName, p.StartTime, p.EngineVersion, f.Name
		 FROM PublishInProgress p JOIN Fork f ON f.Id = p.ForkId
		 WHERE p.StartTime < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InProgress
	for rows.Next() {
		var ip InProgress
		var start, forkName string
		if err := rows.Scan(&ip.ID, &ip.ForkID, &ip.VersionName, &start, &ip.EngineVersion, &forkName); err != nil {
			return nil, err
		}
		ip.StartTime, err = time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, err
		}
		out = append(out, ip)
	}
	return out, rows.Err()
}

// ForkNameOf resolves a fork id to its name, used when reporting stale
// in-progress publishes that need their directories cleaned up.
func (d *DB) ForkNameOf(forkID int64) (string, error) {
	var name string
	err := d.sql.QueryRow(`SELECT Name FROM Fork WHERE Id = ?`, forkID).Scan(&name)
	return name, err
}
