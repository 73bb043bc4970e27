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
	"time"

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
)

// RequestLogEntry is one queued download request-log record.
type RequestLogEntry struct {
	Time           time.Time
	PreCompressed  bool
	StreamCompress bool
	Protocol       int
	BytesSent      int64
	VersionID      int64
	Body           []byte
}

// InsertRequestLog dedups entry.Body by BLAKE2b-256 hash into
// RequestLogBlob and inserts a RequestLog row pointing at it.
func (d *DB) InsertRequestLog(entry RequestLogEntry) error {
	hash := blobcodec.Sum(entry.Body)
	var blobID int64
	err := d.sql.QueryRow(`SELECT Id FROM RequestLogBlob WHERE Hash = ?`, hash[:]).Scan(&blobID)
	if err == sql.ErrNoRows {
		res, err := d.sql.Exec(`INSERT INTO RequestLogBlob (Hash, Data) VALUES (?, ?)`, hash[:], entry.Body)
		if err != nil {
			return err
		}
		blobID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	_, err = d.sql.Exec(
		`INSERT INTO RequestLog (Time, PreCompressed, StreamCompress, Protocol, BytesSent, VersionId, BodyBlobId)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Time.UTC().Format(time.RFC3339), entry.PreCompressed, entry.StreamCompress, entry.Protocol,
		entry.BytesSent, entry.VersionID, blobID,
	)
	return err
}
