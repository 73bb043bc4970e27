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

// Package availability flips newly-ingested versions to Available,
// rebuilds the cached per-fork server-manifest JSON, and (optionally)
// notifies watchdog targets. These three steps are strictly ordered --
// the manifest-cache rebuild only runs after the availability flip --
// so FlipAndRegenerate
// runs them sequentially rather than fanning them out.
package availability

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

// Job rebuilds availability and the manifest cache for one fork after
// ingestion completes.
type Job struct {
	Manifest *manifestdb.DB
	BaseURL  string
	Log      *logrus.Entry
}

// FlipAndRegenerate flips Available=true for the given ingested
// version names of forkName/forkID, then rebuilds the fork's cached
// server-manifest JSON, then (if configured) fires watchdog
// notifications. Clients only ever observe a version once all three
// steps have completed.
func (j *Job) FlipAndRegenerate(ctx context.Context, forkID int64, forkName string, ingestedVersions []string, fork cdnconfig.ForkConfig) error {
	if len(ingestedVersions) == 0 {
		return nil
	}

	ids, err := j.Manifest.UnavailableVersionIDsForIngested(forkID, ingestedVersions)
	if err != nil {
		return fmt.Errorf("resolving ingested version ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := j.Manifest.MarkAvailable(ids); err != nil {
		return fmt.Errorf("marking versions available: %w", err)
	}
	j.Log.WithFields(logrus.Fields{"fork": forkName, "count": len(ids)}).Info("versions now available")

	if err := RebuildManifestCache(j.Manifest, j.BaseURL, forkID, forkName); err != nil {
		return fmt.Errorf("rebuilding manifest cache: %w", err)
	}

	if len(fork.NotifyWatchdogs) > 0 {
		NotifyWatchdogs(ctx, j.Log, forkName, fork.NotifyWatchdogs)
	}
	return nil
}
