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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertForkAndForkIDs(t *testing.T) {
	db := openTestDB(t)

	id1, err := db.UpsertFork("wizden")
	require.NoError(t, err)
	id2, err := db.UpsertFork("wizden")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	idOther, err := db.UpsertFork("other")
	require.NoError(t, err)

	ids, err := db.ForkIDs()
	require.NoError(t, err)
	assert.Equal(t, id1, ids["wizden"])
	assert.Equal(t, idOther, ids["other"])
}

func TestForkIDMissing(t *testing.T) {
	db := openTestDB(t)
	_, found, err := db.ForkID("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServerManifestCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	_, found, err := db.ServerManifestCache(forkID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.SetServerManifestCache(forkID, []byte(`{"builds":[]}`)))

	data, found, err := db.ServerManifestCache(forkID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"builds":[]}`, string(data))
}

func makeVersion(forkID int64, name string) Version {
	var sha [32]byte
	copy(sha[:], []byte("test-client-sha"))
	return Version{
		ForkID:          forkID,
		Name:            name,
		PublishedTime:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		EngineVersion:   "1.2.3",
		ClientZipName:   "SS14.Client",
		ClientZipSha256: sha,
		ServerBuilds: []ServerBuild{
			{Platform: "linux-x64", FileName: "SS14.Server_linux-x64.zip", Sha256: sha},
		},
	}
}

func TestVersionExistsAndCreateVersion(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	exists, err := db.VersionExists(forkID, "v1")
	require.NoError(t, err)
	assert.False(t, exists)

	tx, err := db.Begin()
	require.NoError(t, err)
	versionID, err := tx.CreateVersion(makeVersion(forkID, "v1"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NotZero(t, versionID)

	exists, err = db.VersionExists(forkID, "v1")
	require.NoError(t, err)
	assert.True(t, exists)

	v, found, err := db.VersionByName(forkID, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, v.Available)
	assert.Equal(t, "1.2.3", v.EngineVersion)
	require.Len(t, v.ServerBuilds, 1)
	assert.Equal(t, "linux-x64", v.ServerBuilds[0].Platform)
}

func TestMarkAvailableAndAvailableVersions(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	v1ID, err := tx.CreateVersion(makeVersion(forkID, "v1"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	versions, err := db.AvailableVersions(forkID, 0)
	require.NoError(t, err)
	assert.Empty(t, versions)

	require.NoError(t, db.MarkAvailable([]int64{v1ID}))

	versions, err = db.AvailableVersions(forkID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Name)
	assert.True(t, versions[0].Available)
	require.Len(t, versions[0].ServerBuilds, 1)
}

func TestUnavailableVersionIDsForIngested(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	v1ID, err := tx.CreateVersion(makeVersion(forkID, "v1"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	ids, err := db.UnavailableVersionIDsForIngested(forkID, []string{"v1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []int64{v1ID}, ids)

	require.NoError(t, db.MarkAvailable([]int64{v1ID}))
	ids, err = db.UnavailableVersionIDsForIngested(forkID, []string{"v1"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPruneCandidatesAndDeleteVersion(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	old := makeVersion(forkID, "old")
	old.PublishedTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := makeVersion(forkID, "recent")
	recent.PublishedTime = time.Now()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.CreateVersion(old)
	require.NoError(t, err)
	_, err = tx.CreateVersion(recent)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	names, err := db.PruneCandidates(forkID, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, names)

	require.NoError(t, db.DeleteVersion(forkID, "old"))
	_, found, err := db.VersionByName(forkID, "old")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInProgressLifecycle(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	_, found, err := db.GetInProgress(forkID, "v1")
	require.NoError(t, err)
	assert.False(t, found)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.CreateInProgress(forkID, "v1", time.Now(), "1.2.3"))
	require.NoError(t, tx.Commit())

	ip, found, err := db.GetInProgress(forkID, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1.2.3", ip.EngineVersion)

	require.NoError(t, db.DeleteInProgress(forkID, "v1"))
	_, found, err = db.GetInProgress(forkID, "v1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStaleInProgress(t *testing.T) {
	db := openTestDB(t)
	forkID, err := db.UpsertFork("wizden")
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.CreateInProgress(forkID, "stale", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "1.0.0"))
	require.NoError(t, tx.CreateInProgress(forkID, "fresh", time.Now(), "1.0.0"))
	require.NoError(t, tx.Commit())

	stale, err := db.StaleInProgress(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stale", stale[0].VersionName)

	name, err := db.ForkNameOf(forkID)
	require.NoError(t, err)
	assert.Equal(t, "wizden", name)
}
