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
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

// StalePublishInterval is how often the sweep runs.
const StalePublishInterval = 24 * time.Hour

// StalePublishJob aborts PublishInProgress rows that have sat open
// longer than the configured timeout, removing their partial version
// directories.
type StalePublishJob struct {
	Manifest *manifestdb.DB
	Disk     *diskpath.Resolver
	Timeout  time.Duration
	Log      *logrus.Entry
}

// Run sweeps every stale PublishInProgress row across all forks.
func (j *StalePublishJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.Timeout)
	stale, err := j.Manifest.StaleInProgress(cutoff)
	if err != nil {
		return err
	}

	for _, ip := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}
		forkName, err := j.Manifest.ForkNameOf(ip.ForkID)
		if err != nil {
			j.Log.WithError(err).WithField("forkId", ip.ForkID).Warn("resolving fork name for stale publish failed")
			continue
		}
		if err := os.RemoveAll(j.Disk.VersionDir(forkName, ip.VersionName)); err != nil {
			j.Log.WithError(err).WithFields(logrus.Fields{"fork": forkName, "version": ip.VersionName}).
				Warn("removing stale publish directory failed")
		}
		if err := j.Manifest.DeleteInProgress(ip.ForkID, ip.VersionName); err != nil {
			j.Log.WithError(err).WithFields(logrus.Fields{"fork": forkName, "version": ip.VersionName}).
				Warn("removing stale publish row failed")
			continue
		}
		j.Log.WithFields(logrus.Fields{"fork": forkName, "version": ip.VersionName}).Info("aborted stale publish")
	}
	return nil
}
