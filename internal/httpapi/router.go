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

// Package httpapi wires the full HTTP surface onto a gorilla/mux
// router: control/status, fork-scoped file serving, publish and
// download endpoints, plus the legacy unscoped /version/{v}/...
// routes that forward to a configured default fork.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/auth"
	"github.com/space-wizards/robust-cdn/internal/availability"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/download"
	"github.com/space-wizards/robust-cdn/internal/fileserve"
	"github.com/space-wizards/robust-cdn/internal/ingest"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
	"github.com/space-wizards/robust-cdn/internal/publish"
	"github.com/space-wizards/robust-cdn/internal/scheduler"
)

// Server holds every dependency the HTTP surface needs.
type Server struct {
	Config       *cdnconfig.Config
	Content      *contentdb.DB
	Manifest     *manifestdb.DB
	Download     *download.Handler
	FileServe    *fileserve.Handler
	Publish      *publish.Handler
	Ingest       *ingest.Job
	Availability *availability.Job
	Scheduler    *scheduler.Scheduler
	Log          *logrus.Entry
}

// NewRouter builds the full route table.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/control/status", s.ServeStatus).Methods(http.MethodGet)
	r.HandleFunc("/fork/{fork}/control/update", s.ServeUpdate).Methods(http.MethodPost)

	r.HandleFunc("/fork/{fork}", s.FileServe.ServeListing).Methods(http.MethodGet)
	r.HandleFunc("/fork/{fork}/manifest", s.FileServe.ServeManifestCache).Methods(http.MethodGet)
	r.HandleFunc("/fork/{fork}/version/{version}/file/{file}", s.FileServe.ServeFile).Methods(http.MethodGet)

	r.HandleFunc("/fork/{fork}/publish", s.Publish.ServeOneshot).Methods(http.MethodPost)
	r.HandleFunc("/fork/{fork}/start", s.Publish.ServeStart).Methods(http.MethodPost)
	r.HandleFunc("/fork/{fork}/file", s.Publish.ServeFile).Methods(http.MethodPost)
	r.HandleFunc("/fork/{fork}/finish", s.Publish.ServeFinish).Methods(http.MethodPost)

	r.HandleFunc("/fork/{fork}/version/{version}/manifest", s.Download.ServeManifest).Methods(http.MethodGet)
	r.HandleFunc("/fork/{fork}/version/{version}/download", s.Download.ServeOptions).Methods(http.MethodOptions)
	r.HandleFunc("/fork/{fork}/version/{version}/download", s.Download.ServeDownload).Methods(http.MethodPost)

	s.registerLegacyRoutes(r)
	return r
}

// registerLegacyRoutes forwards the unscoped /version/{v}/... routes
// to Cdn.DefaultFork when one is configured. With no default fork
// configured, these routes 404 rather than guessing -- an
// unscoped request has no way to name the fork it means.
func (s *Server) registerLegacyRoutes(r *mux.Router) {
	forward := func(suffix string, h func(http.ResponseWriter, *http.Request)) {
		r.HandleFunc("/version/{version}"+suffix, func(w http.ResponseWriter, req *http.Request) {
			if s.Config.Cdn.DefaultFork == "" {
				http.NotFound(w, req)
				return
			}
			vars := mux.Vars(req)
			vars["fork"] = s.Config.Cdn.DefaultFork
			h(w, mux.SetURLVars(req, vars))
		})
	}
	forward("/manifest", s.Download.ServeManifest)
	forward("/download", s.Download.ServeDownload)
}

// ServeUpdate handles POST /fork/{fork}/control/update: triggers
// ingestion for the fork and returns immediately, before the run
// completes.
func (s *Server) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	forkName := mux.Vars(r)["fork"]
	fork, ok := s.Config.Manifest.Forks[forkName]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !auth.CheckBearer(r, fork.UpdateToken) {
		apierr.Write(w, s.Log, apierr.Unauthorized("invalid or missing bearer token"))
		return
	}

	s.TriggerIngest(forkName)
	w.WriteHeader(http.StatusAccepted)
}

// TriggerIngest runs the ingest-then-flip-then-notify pipeline for
// forkName, coalescing concurrent triggers for the same fork. It is
// handed to the publish package as the callback finalization uses to
// kick off ingestion once a new version lands on disk.
func (s *Server) TriggerIngest(forkName string) {
	fork, ok := s.Config.Manifest.Forks[forkName]
	if !ok {
		return
	}
	s.Scheduler.TriggerKeyed("ingest:"+forkName, func(ctx context.Context) error {
		return s.runIngestPipeline(ctx, forkName, fork)
	})
}

func (s *Server) runIngestPipeline(ctx context.Context, forkName string, fork cdnconfig.ForkConfig) error {
	contentForkID, err := s.Content.UpsertFork(forkName)
	if err != nil {
		return fmt.Errorf("upserting content fork %q: %w", forkName, err)
	}
	ingested, err := s.Ingest.IngestFork(ctx, contentForkID, forkName, fork.ClientZipName)
	if err != nil {
		return fmt.Errorf("ingesting fork %q: %w", forkName, err)
	}

	manifestForkID, err := s.Manifest.UpsertFork(forkName)
	if err != nil {
		return fmt.Errorf("upserting manifest fork %q: %w", forkName, err)
	}
	if err := s.Availability.FlipAndRegenerate(ctx, manifestForkID, forkName, ingested, fork); err != nil {
		return fmt.Errorf("flipping availability for fork %q: %w", forkName, err)
	}
	return nil
}
