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

// Package ingest implements the ingestion pipeline: it scans a fork's
// build directory for new version directories, reads
// each one's client zip, deduplicates every entry against the content
// store by BLAKE2b-256 hash, compresses new blobs, and records the
// per-version manifest.
//
// Grounded on Perkeep's blob-receive path (hash-then-dedup-then-store,
// see pkg/blobserver/localdisk and pkg/blobserver/receive semantics)
// generalized from single blobs to whole zip archives.
package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifesttext"
)

// commitEvery bounds WAL growth across a single ingestion run by
// committing an interim transaction every N versions.
const commitEvery = 5

// Options configures ingestion behavior shared across every fork,
// sourced from Cdn.* configuration.
type Options struct {
	BlobCompress          bool
	BlobCompressLevel     int
	CompressSavingsThresh int
	ManifestCompressLevel int
}

// Job ingests versions for one fork against the shared content store.
type Job struct {
	Content *contentdb.DB
	Disk    *diskpath.Resolver
	Opts    Options
	Log     *logrus.Entry
}

// Discover lists candidate version directories for a fork: those not
// already present in the content store, ordered newest-directory
// first. Candidates missing the configured client zip are skipped
// with a warning rather than erroring the whole scan.
func (j *Job) Discover(forkID int64, forkName, clientZipName string) ([]string, error) {
	forkDir := j.Disk.ForkDir(forkName)
	entries, err := os.ReadDir(forkDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fork dir %s: %w", forkDir, err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !diskpath.ValidName(e.Name()) {
			continue
		}
		has, err := j.Content.HasVersion(forkID, e.Name())
		if err != nil {
			return nil, err
		}
		if has {
			continue
		}
		clientZipPath, err := j.Disk.FilePath(forkName, e.Name(), clientZipName+".zip")
		if err != nil {
			continue
		}
		if _, err := os.Stat(clientZipPath); err != nil {
			j.Log.WithFields(logrus.Fields{"fork": forkName, "version": e.Name()}).
				Warn("skipping version: client zip missing")
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{name: e.Name(), modTime: info.ModTime()})
	}

	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].modTime.After(candidates[k].modTime)
	})

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names, nil
}

// IngestFork discovers and ingests every new version of a fork,
// returning the names it successfully ingested. Callers must
// serialize calls per fork; the scheduler's keyed jobs do this.
func (j *Job) IngestFork(ctx context.Context, forkID int64, forkName, clientZipName string) ([]string, error) {
	names, err := j.Discover(forkID, forkName, clientZipName)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	var ingested []string
	tx, err := j.Content.Begin()
	if err != nil {
		return nil, err
	}
	sinceCommit := 0

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			tx.Rollback()
			return ingested[:len(ingested)-sinceCommit], err
		}
		if err := j.ingestOne(tx, forkID, forkName, name, clientZipName); err != nil {
			j.Log.WithFields(logrus.Fields{"fork": forkName, "version": name}).WithError(err).
				Error("ingestion failed, version will be retried next scan")
			tx.Rollback()
			// The rollback also discarded every version ingested since
			// the last interim commit; drop them from the result so the
			// next scan picks them up again.
			ingested = ingested[:len(ingested)-sinceCommit]
			// Start a fresh transaction so later candidates in this
			// scan still get a chance.
			tx, err = j.Content.Begin()
			if err != nil {
				return ingested, err
			}
			sinceCommit = 0
			continue
		}
		ingested = append(ingested, name)
		sinceCommit++
		if sinceCommit >= commitEvery {
			if err := tx.Commit(); err != nil {
				return ingested[:len(ingested)-sinceCommit], err
			}
			tx, err = j.Content.Begin()
			if err != nil {
				return ingested, err
			}
			sinceCommit = 0
		}
	}
	if sinceCommit > 0 {
		if err := tx.Commit(); err != nil {
			return ingested[:len(ingested)-sinceCommit], err
		}
	} else {
		tx.Rollback()
	}
	return ingested, nil
}

func (j *Job) ingestOne(tx *contentdb.Tx, forkID int64, forkName, versionName, clientZipName string) error {
	start := time.Now()
	versionID, err := tx.InsertPlaceholderVersion(forkID, versionName, time.Now())
	if err != nil {
		return fmt.Errorf("inserting placeholder: %w", err)
	}

	zipPath, err := j.Disk.FilePath(forkName, versionName, clientZipName+".zip")
	if err != nil {
		return err
	}
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening client zip: %w", err)
	}
	defer zr.Close()

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, k int) bool { return files[i].Name < files[k].Name })

	entries := make([]manifesttext.Entry, len(files))
	distinct := make(map[int64]bool)

	for idx, f := range files {
		contentID, hash, err := j.storeEntry(tx, f)
		if err != nil {
			return fmt.Errorf("entry %s: %w", f.Name, err)
		}
		if err := tx.InsertManifestEntry(versionID, idx, contentID); err != nil {
			return err
		}
		distinct[contentID] = true
		entries[idx] = manifesttext.Entry{Hash: hash, Path: f.Name}
	}

	text := manifesttext.Build(entries)
	manifestHash := blobcodec.Sum(text)
	compressedManifest := blobcodec.Compress(nil, text, j.Opts.ManifestCompressLevel)
	if err := tx.FinalizeVersion(versionID, manifestHash, compressedManifest, len(distinct)); err != nil {
		return err
	}

	j.Log.WithFields(logrus.Fields{
		"fork": forkName, "version": versionName,
		"entries": len(files), "distinctBlobs": len(distinct),
		"duration": time.Since(start),
	}).Info("ingested version")
	return nil
}

// storeEntry reads a zip entry fully into memory, hashes it, and
// dedup-inserts it into the content store, returning its content id.
func (j *Job) storeEntry(tx *contentdb.Tx, f *zip.File) (int64, blobcodec.Hash, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, blobcodec.Hash{}, err
	}
	defer rc.Close()

	buf := blobcodec.GetBuf(int(f.UncompressedSize64))
	defer blobcodec.PutBuf(buf)
	data, err := readAll(rc, buf)
	if err != nil {
		return 0, blobcodec.Hash{}, err
	}

	hash := blobcodec.Sum(data)
	if id, found, err := tx.FindContentByHash(hash); err != nil {
		return 0, hash, err
	} else if found {
		return id, hash, nil
	}

	payload := data
	compression := blobcodec.CompressionNone
	if j.Opts.BlobCompress {
		compressed := blobcodec.Compress(nil, data, j.Opts.BlobCompressLevel)
		if blobcodec.Worthwhile(len(compressed), len(data), j.Opts.CompressSavingsThresh) {
			payload = compressed
			compression = blobcodec.CompressionZStd
		}
	}

	id, err := tx.InsertContent(hash, int64(len(data)), compression, payload)
	return id, hash, err
}

func readAll(r io.Reader, buf []byte) ([]byte, error) {
	for {
		if len(buf) == cap(buf) {
			buf = append(buf, 0)[:len(buf)]
		}
		n, err := r.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}
