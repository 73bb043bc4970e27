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
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
)

type oneshotRequest struct {
	Archive       string `json:"archive"`
	Version       string `json:"version"`
	EngineVersion string `json:"engineVersion"`
}

// ServeOneshot handles POST /fork/{fork}/publish: pulls an archive
// from a URL into a temp file that is removed when the handler
// returns, classifies its
// entries, positions them into the version directory, and runs
// common finalization.
func (h *Handler) ServeOneshot(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	fork, ok := h.authorize(w, r, forkName)
	if !ok {
		return
	}

	var req oneshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("invalid JSON body"))
		return
	}
	if !diskpath.ValidName(req.Version) {
		apierr.Write(w, h.Log, apierr.BadRequest("invalid version name"))
		return
	}
	if req.Archive == "" {
		apierr.Write(w, h.Log, apierr.BadRequest("archive is required"))
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

	archivePath, cleanup, err := h.fetchArchive(r.Context(), req.Archive)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("fetching archive", err))
		return
	}
	defer cleanup()

	class, err := h.position(archivePath, forkName, req.Version, fork)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("positioning archive", err))
		return
	}
	if class.ClientFile == "" {
		os.RemoveAll(h.Disk.VersionDir(forkName, req.Version))
		apierr.Write(w, h.Log, apierr.BadRequest("no client artifact present in archive"))
		return
	}

	if err := h.Finalizer.Finalize(forkID, forkName, req.Version, req.EngineVersion, class); err != nil {
		apierr.Write(w, h.Log, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) fetchArchive(ctx context.Context, url string) (path string, cleanup func(), err error) {
	fetchCtx, cancel := context.WithTimeout(ctx, archiveFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "robustcdn-archive-*.zip")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// position extracts every non-directory entry of the archive into the
// fork's version directory and returns the classification of those
// entries.
func (h *Handler) position(archivePath, forkName, versionName string, fork cdnconfig.ForkConfig) (Classification, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return Classification{}, err
	}
	defer zr.Close()

	if _, err := h.Disk.EnsureVersionDir(forkName, versionName); err != nil {
		return Classification{}, err
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	class := Classify(names, fork.ClientZipName, fork.ServerZipName)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(h.Disk, forkName, versionName, f); err != nil {
			return Classification{}, err
		}
	}
	return class, nil
}

func extractEntry(disk *diskpath.Resolver, forkName, versionName string, f *zip.File) error {
	dest, err := disk.FilePath(forkName, versionName, f.Name)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}
