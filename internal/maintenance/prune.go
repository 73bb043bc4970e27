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

// Package maintenance runs the two background sweeps that keep the
// on-disk build tree and the PublishInProgress table from growing
// without bound: aged-version pruning and stale in-progress-publish
// cleanup.
package maintenance

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

// PruneJob removes a fork's versions published more than
// PruneBuildsDays ago: their manifest-db row, content-db
// ContentVersion row (never the deduplicated Content rows themselves)
// and on-disk directory.
type PruneJob struct {
	Manifest *manifestdb.DB
	Content  *contentdb.DB
	Disk     *diskpath.Resolver
	Log      *logrus.Entry
}

// PruneFork removes every version of forkName published before
// fork.PruneBuildsDays days ago. A PruneBuildsDays of zero or less
// disables pruning for that fork.
func (j *PruneJob) PruneFork(ctx context.Context, forkName string, fork cdnconfig.ForkConfig) error {
	if fork.PruneBuildsDays <= 0 {
		return nil
	}

	manifestForkID, ok, err := j.Manifest.ForkID(forkName)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -fork.PruneBuildsDays)
	candidates, err := j.Manifest.PruneCandidates(manifestForkID, cutoff)
	if err != nil {
		return err
	}

	contentForkID, hasContentFork, err := j.Content.ForkID(forkName)
	if err != nil {
		return err
	}

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.pruneOne(forkName, name, manifestForkID, contentForkID, hasContentFork); err != nil {
			j.Log.WithFields(logrus.Fields{"fork": forkName, "version": name}).WithError(err).
				Warn("pruning version failed, will retry next sweep")
			continue
		}
		j.Log.WithFields(logrus.Fields{"fork": forkName, "version": name}).Info("pruned version")
	}
	return nil
}

func (j *PruneJob) pruneOne(forkName, versionName string, manifestForkID, contentForkID int64, hasContentFork bool) error {
	if err := j.Manifest.DeleteVersion(manifestForkID, versionName); err != nil {
		return err
	}
	if hasContentFork {
		if err := j.Content.DeleteVersion(contentForkID, versionName); err != nil {
			return err
		}
	}
	dir := j.Disk.VersionDir(forkName, versionName)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return nil
}
