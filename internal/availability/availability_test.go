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

package availability

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func openTestDB(t *testing.T) *manifestdb.DB {
	t.Helper()
	mdb, err := manifestdb.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mdb.Close() })
	return mdb
}

func TestFlipAndRegenerateNoIngestedVersionsIsNoop(t *testing.T) {
	mdb := openTestDB(t)
	job := &Job{Manifest: mdb, BaseURL: "https://cdn.example.com/", Log: testLog()}

	err := job.FlipAndRegenerate(context.Background(), 1, "wizden", nil, cdnconfig.ForkConfig{})
	assert.NoError(t, err)
}

func TestFlipAndRegenerateMarksAvailableAndRebuildsCache(t *testing.T) {
	mdb := openTestDB(t)
	job := &Job{Manifest: mdb, BaseURL: "https://cdn.example.com/", Log: testLog()}

	forkID, err := mdb.UpsertFork("wizden")
	require.NoError(t, err)

	var sha [32]byte
	tx, err := mdb.Begin()
	require.NoError(t, err)
	_, err = tx.CreateVersion(manifestdb.Version{
		ForkID: forkID, Name: "v1", EngineVersion: "1.0.0",
		ClientZipName: "SS14.Client", ClientZipSha256: sha,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	err = job.FlipAndRegenerate(context.Background(), forkID, "wizden", []string{"v1"}, cdnconfig.ForkConfig{})
	require.NoError(t, err)

	versions, err := mdb.AvailableVersions(forkID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Name)

	cache, found, err := mdb.ServerManifestCache(forkID)
	require.NoError(t, err)
	require.True(t, found)

	var doc manifestDoc
	require.NoError(t, json.Unmarshal(cache, &doc))
	_, ok := doc.Builds["v1"]
	assert.True(t, ok)
}

func TestFlipAndRegenerateUnknownVersionNameIsNoop(t *testing.T) {
	mdb := openTestDB(t)
	job := &Job{Manifest: mdb, BaseURL: "https://cdn.example.com/", Log: testLog()}

	forkID, err := mdb.UpsertFork("wizden")
	require.NoError(t, err)

	err = job.FlipAndRegenerate(context.Background(), forkID, "wizden", []string{"never-ingested"}, cdnconfig.ForkConfig{})
	assert.NoError(t, err)

	_, found, err := mdb.ServerManifestCache(forkID)
	require.NoError(t, err)
	assert.False(t, found)
}
