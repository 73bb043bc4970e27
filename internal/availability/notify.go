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
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
)

var notifyClient = &http.Client{Timeout: 5 * time.Second}

// NotifyWatchdogs POSTs instances/<instance>/update to every target
// with HTTP Basic auth (instance, apiToken), dispatching all targets
// concurrently. Each target is notified independently; a failure is
// logged and never propagated, since notification failures must never
// fail the publish.
func NotifyWatchdogs(ctx context.Context, log *logrus.Entry, forkName string, targets []cdnconfig.WatchdogTarget) {
	var g errgroup.Group
	for _, t := range targets {
		t := t
		g.Go(func() error {
			if err := notifyOne(ctx, t); err != nil {
				log.WithFields(logrus.Fields{"fork": forkName, "target": t.BaseUrl}).WithError(err).
					Warn("watchdog notify failed")
			}
			return nil
		})
	}
	g.Wait()
}

func notifyOne(ctx context.Context, t cdnconfig.WatchdogTarget) error {
	url := fmt.Sprintf("%sinstances/%s/update", t.BaseUrl, t.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.Instance, t.ApiToken)

	resp, err := notifyClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("watchdog returned status %d", resp.StatusCode)
	}
	return nil
}
