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

	"github.com/gorilla/mux"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
)

type finishRequest struct {
	Version string `json:"version"`
}

// ServeFinish handles POST /fork/{fork}/finish: classifies the files
// uploaded during the multi-request attempt and, if exactly one
// client artifact is present, runs common finalization. Any other
// outcome aborts the attempt: its directory and in-progress row are
// removed so the caller must start over.
func (h *Handler) ServeFinish(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	fork, ok := h.authorize(w, r, forkName)
	if !ok {
		return
	}

	var req finishRequest
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
	inProgress, found, err := h.Manifest.GetInProgress(forkID, req.Version)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("checking in-progress publish", err))
		return
	}
	if !found {
		apierr.Write(w, h.Log, apierr.BadRequest("no in-progress publish for this version"))
		return
	}

	versionDir := h.Disk.VersionDir(forkName, req.Version)
	entries, err := os.ReadDir(versionDir)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("reading version directory", err))
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	class := Classify(names, fork.ClientZipName, fork.ServerZipName)

	if class.ClientFile == "" {
		h.abort(forkID, forkName, req.Version)
		apierr.Write(w, h.Log, apierr.Unprocessable("no client artifact present among uploaded files"))
		return
	}

	if err := h.Finalizer.Finalize(forkID, forkName, req.Version, inProgress.EngineVersion, class); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) abort(forkID int64, forkName, versionName string) {
	if err := os.RemoveAll(h.Disk.VersionDir(forkName, versionName)); err != nil {
		h.Log.WithError(err).Warn("removing aborted publish directory failed")
	}
	if err := h.Manifest.DeleteInProgress(forkID, versionName); err != nil {
		h.Log.WithError(err).Warn("removing aborted publish row failed")
	}
}
