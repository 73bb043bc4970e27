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

package download

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/auth"
)

func acceptsZstd(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(enc) == "zstd" {
			return true
		}
	}
	return false
}

// ServeManifest handles GET /fork/{fork}/version/{version}/manifest:
// the canonical manifest text, either passed through as a zstd frame
// or decompressed, with its hash surfaced in X-Manifest-Hash.
func (h *Handler) ServeManifest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	forkName, versionName := vars["fork"], vars["version"]

	fork, ok := h.Forks[forkName]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if fork.Private && !auth.CheckBasic(r, fork.PrivateUsers) {
		auth.WriteUnauthorized(w, forkName)
		return
	}

	forkID, ok, err := h.Content.ForkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up fork", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	vs, ok, err := h.Content.Version(forkID, versionName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up version", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("X-Manifest-Hash", vs.ManifestHash.HexUpper())
	if acceptsZstd(r) {
		w.Header().Set("Content-Encoding", "zstd")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(vs.ManifestData)
		return
	}

	plain, err := decompressManifest(vs.ManifestData)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("decompressing manifest", err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(plain)
}
