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

// Package fileserve implements the fork-scoped read surface: an HTML
// listing of recent builds, the cached server-manifest JSON, and raw
// artifact file serving, all gated by a fork's Private configuration.
package fileserve

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/auth"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
)

// maxListedVersions bounds the fork listing page to the most recent
// available versions.
const maxListedVersions = 50

// Handler serves the fork-scoped HTML listing, manifest JSON and raw
// file endpoints.
type Handler struct {
	Manifest *manifestdb.DB
	Disk     *diskpath.Resolver
	Forks    map[string]cdnconfig.ForkConfig
	Log      *logrus.Entry
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, forkName string) (cdnconfig.ForkConfig, bool) {
	fork, ok := h.Forks[forkName]
	if !ok {
		http.NotFound(w, r)
		return cdnconfig.ForkConfig{}, false
	}
	if fork.Private && !auth.CheckBasic(r, fork.PrivateUsers) {
		auth.WriteUnauthorized(w, forkName)
		return cdnconfig.ForkConfig{}, false
	}
	return fork, true
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Fork}} builds</title></head>
<body>
<h1>{{.Fork}}</h1>
<ul>
{{range .Versions}}<li>{{.Name}} &mdash; {{.PublishedTime.Format "2006-01-02 15:04:05"}} UTC</li>
{{end}}</ul>
</body>
</html>
`))

type listingData struct {
	Fork     string
	Versions []manifestdb.Version
}

// ServeListing handles GET /fork/{fork}: an HTML page listing the
// fork's most recently published available versions.
func (h *Handler) ServeListing(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	if _, ok := h.authorize(w, r, forkName); !ok {
		return
	}

	forkID, ok, err := h.Manifest.ForkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up fork", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	versions, err := h.Manifest.AvailableVersions(forkID, maxListedVersions)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("loading versions", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listingTemplate.Execute(w, listingData{Fork: forkName, Versions: versions}); err != nil {
		h.Log.WithError(err).Warn("listing template write failed after headers sent")
	}
}

// ServeManifestCache handles GET /fork/{fork}/manifest: the fork's
// cached server-manifest JSON document.
func (h *Handler) ServeManifestCache(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	if _, ok := h.authorize(w, r, forkName); !ok {
		return
	}

	forkID, ok, err := h.Manifest.ForkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up fork", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, found, err := h.Manifest.ServerManifestCache(forkID)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("loading manifest cache", err))
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// ServeFile handles GET /fork/{fork}/version/{version}/file/{file}:
// a raw artifact file from disk.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	forkName, versionName, fileName := vars["fork"], vars["version"], vars["file"]
	if _, ok := h.authorize(w, r, forkName); !ok {
		return
	}

	forkID, ok, err := h.Manifest.ForkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up fork", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, ok, err := h.Manifest.VersionByName(forkID, versionName); err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up version", err))
		return
	} else if !ok {
		http.NotFound(w, r)
		return
	}

	path, err := h.Disk.FilePath(forkName, versionName, fileName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest(err.Error()))
		return
	}
	http.ServeFile(w, r, path)
}
