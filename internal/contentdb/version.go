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

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
)

// HasVersion reports whether a ContentVersion already exists for
// (forkID, versionName), used by ingestion's discovery scan to skip
// already-ingested version directories.
func (d *DB) HasVersion(forkID int64, versionName string) (bool, error) {
	var id int64
	err := d.sql.QueryRow(
		`SELECT Id FROM ContentVersion WHERE ForkId = ? AND VersionName = ?`, forkID, versionName,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// InsertPlaceholderVersion creates a ContentVersion row with a
// zero-value manifest hash and empty manifest data, to be finalized
// by FinalizeVersion once ingestion of its entries completes.
func (t *Tx) InsertPlaceholderVersion(forkID int64, versionName string, publishedAt time.Time) (int64, error) {
	res, err := t.tx.Exec(
		`INSERT INTO ContentVersion (ForkId, VersionName, PublishedTime, ManifestHash, ManifestData, CountDistinctBlobs)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		forkID, versionName, publishedAt.UTC().Format(time.RFC3339), make([]byte, blobcodec.Size), []byte{},
	)
	if err != nil {
		return 0, fmt.Errorf("inserting placeholder version: %w", err)
	}
	return res.LastInsertId()
}

// InsertManifestEntry records that manifest position idx of versionID
// refers to contentID.
func (t *Tx) InsertManifestEntry(versionID int64, idx int, contentID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO ContentManifestEntry (VersionId, ManifestIdx, ContentId) VALUES (?, ?, ?)`,
		versionID, idx, contentID,
	)
	return err
}

// FinalizeVersion updates a placeholder version with its final
// manifest hash, compressed manifest text and distinct-blob count.
func (t *Tx) FinalizeVersion(versionID int64, manifestHash blobcodec.Hash, manifestData []byte, countDistinctBlobs int) error {
	_, err := t.tx.Exec(
		`UPDATE ContentVersion SET ManifestHash = ?, ManifestData = ?, CountDistinctBlobs = ? WHERE Id = ?`,
		manifestHash[:], manifestData, countDistinctBlobs, versionID,
	)
	return err
}

// CountDistinctContentIDs counts the distinct ContentId values
// referenced by a version's manifest entries, used to cross-check the
// version's recorded distinct-blob count.
func (d *DB) CountDistinctContentIDs(versionID int64) (int, error) {
	var n int
	err := d.sql.QueryRow(
		`SELECT COUNT(DISTINCT ContentId) FROM ContentManifestEntry WHERE VersionId = ?`, versionID,
	).Scan(&n)
	return n, err
}

// VersionSummary is the per-version metadata needed by the download
// and manifest endpoints.
type VersionSummary struct {
	ID                 int64
	ManifestHash       blobcodec.Hash
	ManifestData       []byte // zstd-compressed canonical manifest text
	CountDistinctBlobs int
	EntryCount         int
}

// Version loads a version's summary by (forkID, versionName).
func (d *DB) Version(forkID int64, versionName string) (VersionSummary, bool, error) {
	var vs VersionSummary
	var hashBytes []byte
	err := d.sql.QueryRow(
		`SELECT Id, ManifestHash, ManifestData, CountDistinctBlobs FROM ContentVersion WHERE ForkId = ? AND VersionName = ?`,
		forkID, versionName,
	).Scan(&vs.ID, &hashBytes, &vs.ManifestData, &vs.CountDistinctBlobs)
	if err == sql.ErrNoRows {
		return VersionSummary{}, false, nil
	}
	if err != nil {
		return VersionSummary{}, false, err
	}
	copy(vs.ManifestHash[:], hashBytes)
	if err := d.sql.QueryRow(
		`SELECT COUNT(*) FROM ContentManifestEntry WHERE VersionId = ?`, vs.ID,
	).Scan(&vs.EntryCount); err != nil {
		return VersionSummary{}, false, err
	}
	return vs, true, nil
}

// ManifestEntryContent resolves manifest index idx of versionID to its
// blob id, used by the download endpoint's per-file streaming loop.
func (d *DB) ManifestEntryContent(versionID int64, idx int) (int64, error) {
	var contentID int64
	err := d.sql.QueryRow(
		`SELECT ContentId FROM ContentManifestEntry WHERE VersionId = ? AND ManifestIdx = ?`,
		versionID, idx,
	).Scan(&contentID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("manifest index %d out of range", idx)
	}
	return contentID, err
}

// DeleteVersion removes a ContentVersion and its manifest entries
// (cascades), used by the prune job. It never removes Content rows
// themselves: a Blob must never be deleted while any
// ContentManifestEntry references it, since other versions may still
// share the same deduplicated blobs.
func (d *DB) DeleteVersion(forkID int64, versionName string) error {
	_, err := d.sql.Exec(`DELETE FROM ContentVersion WHERE ForkId = ? AND VersionName = ?`, forkID, versionName)
	return err
}
