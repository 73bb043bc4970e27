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

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
)

// ContentRecord is a stored blob's metadata without its payload,
// returned by lookups that don't need the bytes.
type ContentRecord struct {
	ID          int64
	Hash        blobcodec.Hash
	Size        int64
	Compression blobcodec.Compression
}

func findContentByHash(q queryer, hash blobcodec.Hash) (int64, bool, error) {
	var id int64
	err := q.QueryRow(`SELECT Id FROM Content WHERE Hash = ?`, hash[:]).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindContentByHash looks up a blob by hash outside a transaction.
func (d *DB) FindContentByHash(hash blobcodec.Hash) (int64, bool, error) {
	return findContentByHash(d.sql, hash)
}

// FindContentByHash looks up a blob by hash within a transaction.
func (t *Tx) FindContentByHash(hash blobcodec.Hash) (int64, bool, error) {
	return findContentByHash(t.tx, hash)
}

func insertContent(q queryer, hash blobcodec.Hash, size int64, compression blobcodec.Compression, data []byte) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO Content (Hash, Size, Compression, Data) VALUES (?, ?, ?, ?)`,
		hash[:], size, int(compression), data,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting content: %w", err)
	}
	return res.LastInsertId()
}

// InsertContent inserts a new deduplicated blob and returns its id.
func (t *Tx) InsertContent(hash blobcodec.Hash, size int64, compression blobcodec.Compression, data []byte) (int64, error) {
	return insertContent(t.tx, hash, size, compression, data)
}

// GetContent fetches a blob's full record, including payload, by id.
func (d *DB) GetContent(id int64) (ContentRecord, []byte, error) {
	var rec ContentRecord
	var hashBytes []byte
	var compression int
	var data []byte
	err := d.sql.QueryRow(
		`SELECT Id, Hash, Size, Compression, Data FROM Content WHERE Id = ?`, id,
	).Scan(&rec.ID, &hashBytes, &rec.Size, &compression, &data)
	if err == sql.ErrNoRows {
		return ContentRecord{}, nil, fmt.Errorf("content %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return ContentRecord{}, nil, err
	}
	copy(rec.Hash[:], hashBytes)
	rec.Compression = blobcodec.Compression(compression)
	return rec, data, nil
}
