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

// Package scheduler runs background jobs: keyed one-shot jobs that
// coalesce concurrent triggers and never run twice in parallel for the
// same key, plus plain interval jobs. Grounded on the single-consumer
// worker-loop
// shape of Perkeep's pkg/blobserver/blobhub.go (a goroutine per
// subscription gating redelivery on an acknowledgement channel),
// adapted here to gate on a "rerun requested" flag instead of acks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs keyed, non-reentrant jobs and interval jobs.
type Scheduler struct {
	log *logrus.Logger

	mu      sync.Mutex
	running map[string]bool
	pending map[string]bool
	fns     map[string]func(context.Context) error

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Scheduler that logs via log.
func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		log:     log,
		running: make(map[string]bool),
		pending: make(map[string]bool),
		fns:     make(map[string]func(context.Context) error),
		stop:    make(chan struct{}),
	}
}

// TriggerKeyed runs fn for key if no run of key is currently in
// flight; if one is in flight, it records that another run is wanted
// and returns immediately, and that extra run starts once the current
// run finishes. Two
// concurrent triggers for the same key therefore coalesce into at
// most one extra run, and fn never runs twice in parallel for the
// same key.
func (s *Scheduler) TriggerKeyed(key string, fn func(context.Context) error) {
	s.mu.Lock()
	s.fns[key] = fn
	if s.running[key] {
		s.pending[key] = true
		s.mu.Unlock()
		return
	}
	s.running[key] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runKeyedLoop(key)
}

func (s *Scheduler) runKeyedLoop(key string) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		fn := s.fns[key]
		s.mu.Unlock()

		s.runOnce(key, fn)

		s.mu.Lock()
		if s.pending[key] {
			s.pending[key] = false
			s.mu.Unlock()
			continue
		}
		s.running[key] = false
		s.mu.Unlock()
		return
	}
}

func (s *Scheduler) runOnce(name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("job", name).Errorf("job panicked: %v", r)
		}
	}()
	if err := fn(context.Background()); err != nil {
		s.log.WithField("job", name).WithError(err).Warn("job failed")
	}
}

// Every runs fn on a fixed interval until Stop is called. Like
// TriggerKeyed, a panic or error is logged and never propagates; the
// job simply runs again on its next tick; background jobs never
// crash the process.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.runOnce(name, fn)
			}
		}
	}()
}

// Stop signals all interval jobs to exit and waits for in-flight work
// to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}
