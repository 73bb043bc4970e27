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
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
)

// ServeFile handles POST /fork/{fork}/file: streams the request body
// into the named file inside the in-progress publish's version
// directory, identified by the Robust-Cdn-Publish-Version and
// Robust-Cdn-Publish-File headers. Rejects a file name that already
// exists on disk -- each file may only be uploaded once per attempt.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	if _, ok := h.authorize(w, r, forkName); !ok {
		return
	}

	versionName := r.Header.Get("Robust-Cdn-Publish-Version")
	fileName := r.Header.Get("Robust-Cdn-Publish-File")
	if !diskpath.ValidName(versionName) {
		apierr.Write(w, h.Log, apierr.BadRequest("missing or invalid Robust-Cdn-Publish-Version header"))
		return
	}
	if !diskpath.ValidName(fileName) {
		apierr.Write(w, h.Log, apierr.BadRequest("missing or invalid Robust-Cdn-Publish-File header"))
		return
	}

	forkID, err := h.forkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("resolving fork", err))
		return
	}
	if _, found, err := h.Manifest.GetInProgress(forkID, versionName); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("checking in-progress publish", err))
		return
	} else if !found {
		apierr.Write(w, h.Log, apierr.BadRequest("no in-progress publish for this version; call /start first"))
		return
	}

	path, err := h.Disk.FilePath(forkName, versionName, fileName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest(err.Error()))
		return
	}
	if _, err := os.Stat(path); err == nil {
		apierr.Write(w, h.Log, apierr.Conflict("file already uploaded for this attempt"))
		return
	} else if !os.IsNotExist(err) {
		apierr.Write(w, h.Log, apierr.Internal("checking existing file", err))
		return
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			apierr.Write(w, h.Log, apierr.Conflict("file already uploaded for this attempt"))
			return
		}
		apierr.Write(w, h.Log, apierr.Internal("creating file", err))
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(r.Body, maxFileUploadBytes)); err != nil {
		os.Remove(path)
		apierr.Write(w, h.Log, apierr.Internal("writing file", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
