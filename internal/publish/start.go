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
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
)

type startRequest struct {
	Version       string `json:"version"`
	EngineVersion string `json:"engineVersion"`
}

// ServeStart handles POST /fork/{fork}/start: begins (or restarts) a
// multi-request publish. An existing in-progress publish for the same
// version is aborted -- its partial files and row removed -- within
// the same transaction that creates the new one.
func (h *Handler) ServeStart(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	if _, ok := h.authorize(w, r, forkName); !ok {
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("invalid JSON body"))
		return
	}
	if !diskpath.ValidName(req.Version) {
		apierr.Write(w, h.Log, apierr.BadRequest("invalid version name"))
		return
	}

	forkID, err := h.forkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("resolving fork", err))
		return
	}

	exists, err := h.Manifest.VersionExists(forkID, req.Version)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("checking existing version", err))
		return
	}
	if exists {
		apierr.Write(w, h.Log, apierr.Conflict("version already published"))
		return
	}

	tx, err := h.Manifest.Begin()
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("beginning transaction", err))
		return
	}
	defer tx.Rollback()

	if _, found, err := tx.GetInProgress(forkID, req.Version); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("checking in-progress publish", err))
		return
	} else if found {
		if err := os.RemoveAll(h.Disk.VersionDir(forkName, req.Version)); err != nil {
			apierr.Write(w, h.Log, apierr.Internal("clearing previous attempt", err))
			return
		}
		if err := tx.DeleteInProgress(forkID, req.Version); err != nil {
			apierr.Write(w, h.Log, apierr.Internal("clearing in-progress row", err))
			return
		}
	}

	if err := tx.CreateInProgress(forkID, req.Version, time.Now(), req.EngineVersion); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("creating in-progress row", err))
		return
	}
	if err := tx.Commit(); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("committing", err))
		return
	}

	if _, err := h.Disk.EnsureVersionDir(forkName, req.Version); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("creating version directory", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
}
