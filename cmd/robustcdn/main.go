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

// Command robustcdn runs the build-distribution CDN server: it serves
// fork-scoped file listings, versioned binary downloads and manifests,
// accepts published builds, and runs the background ingestion,
// availability and pruning jobs described in package documentation
// throughout this module.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/availability"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/download"
	"github.com/space-wizards/robust-cdn/internal/fileserve"
	"github.com/space-wizards/robust-cdn/internal/httpapi"
	"github.com/space-wizards/robust-cdn/internal/ingest"
	"github.com/space-wizards/robust-cdn/internal/maintenance"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
	"github.com/space-wizards/robust-cdn/internal/publish"
	"github.com/space-wizards/robust-cdn/internal/requestlog"
	"github.com/space-wizards/robust-cdn/internal/scheduler"
	"github.com/space-wizards/robust-cdn/internal/urltemplate"
	"github.com/space-wizards/robust-cdn/pkg/buildinfo"
)

// pruneInterval is how often the per-fork stale-build prune sweep runs.
const pruneInterval = 24 * time.Hour

func main() {
	configPath := flag.String("config", "robustcdn.json", "path to the JSON configuration file")
	addr := flag.String("addr", ":8080", "address to listen on")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := log.WithField("version", buildinfo.Summary())

	if err := run(*configPath, *addr, log, entry); err != nil {
		entry.WithError(err).Fatal("robustcdn exited with error")
	}
}

func run(configPath, addr string, log *logrus.Logger, entry *logrus.Entry) error {
	cfg, err := cdnconfig.Load(configPath)
	if err != nil {
		return err
	}

	content, err := contentdb.Open(cfg.Cdn.DatabaseFileName)
	if err != nil {
		return err
	}
	defer content.Close()

	manifest, err := manifestdb.Open(cfg.Manifest.DatabaseFileName)
	if err != nil {
		return err
	}
	defer manifest.Close()

	disk := diskpath.New(cfg.Manifest.FileDiskPath)

	for name := range cfg.Manifest.Forks {
		if _, err := content.UpsertFork(name); err != nil {
			return err
		}
		if _, err := manifest.UpsertFork(name); err != nil {
			return err
		}
	}

	sched := scheduler.New(log)

	requestSink := requestlog.NewSink(cfg.Cdn.LogRequestStorage, content, entry.WithField("component", "requestlog"))
	requests := requestlog.NewQueue(requestSink, entry.WithField("component", "requestlog"))
	defer requests.Stop()

	ingestJob := &ingest.Job{
		Content: content,
		Disk:    disk,
		Opts: ingest.Options{
			BlobCompress:          cfg.Cdn.BlobCompress,
			BlobCompressLevel:     cfg.Cdn.BlobCompressLevel,
			CompressSavingsThresh: cfg.Cdn.BlobCompressSavingsThreshold,
			ManifestCompressLevel: cfg.Cdn.ManifestCompressLevel,
		},
		Log: entry.WithField("component", "ingest"),
	}
	availabilityJob := &availability.Job{
		Manifest: manifest,
		BaseURL:  cfg.BaseUrl,
		Log:      entry.WithField("component", "availability"),
	}

	srv := &httpapi.Server{
		Config:       cfg,
		Content:      content,
		Manifest:     manifest,
		Scheduler:    sched,
		Ingest:       ingestJob,
		Availability: availabilityJob,
		Log:          entry.WithField("component", "httpapi"),
	}
	srv.Download = &download.Handler{
		Content:  content,
		Forks:    cfg.Manifest.Forks,
		Cdn:      cfg.Cdn,
		Log:      entry.WithField("component", "download"),
		Requests: requests,
	}
	srv.FileServe = &fileserve.Handler{
		Manifest: manifest,
		Disk:     disk,
		Forks:    cfg.Manifest.Forks,
		Log:      entry.WithField("component", "fileserve"),
	}
	finalizer := &publish.Finalizer{
		Manifest:      manifest,
		Disk:          disk,
		URLs:          urltemplate.New(cfg.BaseUrl),
		Log:           entry.WithField("component", "publish"),
		TriggerIngest: srv.TriggerIngest,
	}
	srv.Publish = &publish.Handler{
		Manifest:   manifest,
		Disk:       disk,
		Forks:      cfg.Manifest.Forks,
		Finalizer:  finalizer,
		Log:        entry.WithField("component", "publish"),
		HTTPClient: &http.Client{},
	}

	pruneJob := &maintenance.PruneJob{
		Manifest: manifest,
		Content:  content,
		Disk:     disk,
		Log:      entry.WithField("component", "maintenance"),
	}
	staleJob := &maintenance.StalePublishJob{
		Manifest: manifest,
		Disk:     disk,
		Timeout:  time.Duration(cfg.Manifest.InProgressPublishTimeoutMinutes) * time.Minute,
		Log:      entry.WithField("component", "maintenance"),
	}
	sched.Every(maintenance.StalePublishInterval, "stale-publish-sweep", staleJob.Run)
	sched.Every(pruneInterval, "prune-sweep", func(ctx context.Context) error {
		for name, fork := range cfg.Manifest.Forks {
			if err := pruneJob.PruneFork(ctx, name, fork); err != nil {
				entry.WithError(err).WithField("fork", name).Warn("prune sweep failed for fork")
			}
		}
		return nil
	})

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.NewRouter(),
	}

	serveErr := make(chan error, 1)
	go func() {
		entry.WithField("addr", addr).Info("listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		entry.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	sched.Stop()
	return nil
}
