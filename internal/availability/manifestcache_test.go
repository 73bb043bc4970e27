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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

func TestRebuildManifestCacheRejectsEmptyBaseURL(t *testing.T) {
	mdb := openTestDB(t)
	err := RebuildManifestCache(mdb, "", 1, "wizden")
	assert.Error(t, err)
}

func TestRebuildManifestCacheIncludesServerBuilds(t *testing.T) {
	mdb := openTestDB(t)
	forkID, err := mdb.UpsertFork("wizden")
	require.NoError(t, err)

	var sha [32]byte
	size := int64(1024)
	tx, err := mdb.Begin()
	require.NoError(t, err)
	versionID, err := tx.CreateVersion(manifestdb.Version{
		ForkID: forkID, Name: "v1", EngineVersion: "1.0.0",
		ClientZipName: "SS14.Client", ClientZipSha256: sha,
		ServerBuilds: []manifestdb.ServerBuild{
			{Platform: "linux-x64", FileName: "SS14.Server_linux-x64.zip", Sha256: sha, FileSize: &size},
		},
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mdb.MarkAvailable([]int64{versionID}))

	require.NoError(t, RebuildManifestCache(mdb, "https://cdn.example.com/", forkID, "wizden"))

	cache, found, err := mdb.ServerManifestCache(forkID)
	require.NoError(t, err)
	require.True(t, found)

	var doc manifestDoc
	require.NoError(t, json.Unmarshal(cache, &doc))
	build, ok := doc.Builds["v1"]
	require.True(t, ok)
	assert.Contains(t, build.Client.URL, "SS14.Client")
	server, ok := build.Server["linux-x64"]
	require.True(t, ok)
	assert.Contains(t, server.URL, "SS14.Server_linux-x64.zip")
	require.NotNil(t, server.Size)
	assert.Equal(t, size, *server.Size)
}

func TestRebuildManifestCacheEmptyWhenNoAvailableVersions(t *testing.T) {
	mdb := openTestDB(t)
	forkID, err := mdb.UpsertFork("wizden")
	require.NoError(t, err)

	require.NoError(t, RebuildManifestCache(mdb, "https://cdn.example.com/", forkID, "wizden"))

	cache, found, err := mdb.ServerManifestCache(forkID)
	require.NoError(t, err)
	require.True(t, found)

	var doc manifestDoc
	require.NoError(t, json.Unmarshal(cache, &doc))
	assert.Empty(t, doc.Builds)
}
