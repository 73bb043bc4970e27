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

package publish

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/auth"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

// maxFileUploadBytes caps a single /file request body at 2 GiB.
const maxFileUploadBytes = 2 << 30

// archiveFetchTimeout bounds how long a one-shot publish's archive
// pull may take.
const archiveFetchTimeout = 10 * time.Minute

// Handler serves the publish endpoints: one-shot and the three-step
// multi-request flow.
type Handler struct {
	Manifest   *manifestdb.DB
	Disk       *diskpath.Resolver
	Forks      map[string]cdnconfig.ForkConfig
	Finalizer  *Finalizer
	Log        *logrus.Entry
	HTTPClient *http.Client
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, forkName string) (cdnconfig.ForkConfig, bool) {
	fork, ok := h.Forks[forkName]
	if !ok {
		http.NotFound(w, r)
		return cdnconfig.ForkConfig{}, false
	}
	if !auth.CheckBearer(r, fork.UpdateToken) {
		apierr.Write(w, h.Log, apierr.Unauthorized("invalid or missing bearer token"))
		return cdnconfig.ForkConfig{}, false
	}
	return fork, true
}

func (h *Handler) forkID(forkName string) (int64, error) {
	id, ok, err := h.Manifest.ForkID(forkName)
	if err != nil {
		return 0, err
	}
	if !ok {
		id, err = h.Manifest.UpsertFork(forkName)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}
