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

package maintenance

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func openDBs(t *testing.T) (*manifestdb.DB, *contentdb.DB) {
	t.Helper()
	mdb, err := manifestdb.Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mdb.Close() })

	cdb, err := contentdb.Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cdb.Close() })

	return mdb, cdb
}

func TestPruneForkDisabledWhenZeroDays(t *testing.T) {
	mdb, cdb := openDBs(t)
	job := &PruneJob{Manifest: mdb, Content: cdb, Disk: diskpath.New(t.TempDir()), Log: testLog()}

	err := job.PruneFork(context.Background(), "wizden", cdnconfig.ForkConfig{PruneBuildsDays: 0})
	assert.NoError(t, err)
}

func TestPruneForkRemovesOldVersionsOnly(t *testing.T) {
	mdb, cdb := openDBs(t)
	root := t.TempDir()
	disk := diskpath.New(root)
	job := &PruneJob{Manifest: mdb, Content: cdb, Disk: disk, Log: testLog()}

	forkID, err := mdb.UpsertFork("wizden")
	require.NoError(t, err)

	old := testVersion(forkID, "old", time.Now().AddDate(0, 0, -30))
	recent := testVersion(forkID, "recent", time.Now())

	tx, err := mdb.Begin()
	require.NoError(t, err)
	_, err = tx.CreateVersion(old)
	require.NoError(t, err)
	_, err = tx.CreateVersion(recent)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, os.MkdirAll(disk.VersionDir("wizden", "old"), 0o755))
	require.NoError(t, os.MkdirAll(disk.VersionDir("wizden", "recent"), 0o755))

	err = job.PruneFork(context.Background(), "wizden", cdnconfig.ForkConfig{PruneBuildsDays: 7})
	require.NoError(t, err)

	_, found, err := mdb.VersionByName(forkID, "old")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = mdb.VersionByName(forkID, "recent")
	require.NoError(t, err)
	assert.True(t, found)

	_, err = os.Stat(disk.VersionDir("wizden", "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(disk.VersionDir("wizden", "recent"))
	assert.NoError(t, err)
}

func TestPruneForkUnknownForkIsNoop(t *testing.T) {
	mdb, cdb := openDBs(t)
	job := &PruneJob{Manifest: mdb, Content: cdb, Disk: diskpath.New(t.TempDir()), Log: testLog()}

	err := job.PruneFork(context.Background(), "never-seen", cdnconfig.ForkConfig{PruneBuildsDays: 7})
	assert.NoError(t, err)
}

// testVersion builds a minimal manifestdb.Version for test fixtures.
func testVersion(forkID int64, name string, publishedAt time.Time) manifestdb.Version {
	var sha [32]byte
	return manifestdb.Version{
		ForkID:          forkID,
		Name:            name,
		PublishedTime:   publishedAt,
		EngineVersion:   "1.0.0",
		ClientZipName:   "SS14.Client",
		ClientZipSha256: sha,
	}
}
