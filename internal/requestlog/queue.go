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

// Package requestlog decouples the download endpoint's hot path from
// the cost of recording a request: Enqueue hands the entry to a
// buffered channel rather than sinking it inline. A single consumer
// goroutine drains the queue into the configured Sink, in the same
// single-consumer worker-loop shape used by internal/scheduler. When
// the sink falls behind and the buffer fills, Enqueue applies
// back-pressure to its caller instead of discarding entries.
package requestlog

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/contentdb"
)

// QueueCapacity bounds the number of in-flight, not-yet-sunk log
// entries. A burst beyond this capacity blocks Enqueue until the
// consumer goroutine drains room, applying back-pressure to requests
// being served rather than losing log entries.
const QueueCapacity = 32

// Queue buffers RequestLogEntry values for asynchronous sinking.
type Queue struct {
	log  *logrus.Entry
	sink Sink
	ch   chan contentdb.RequestLogEntry
	done chan struct{}
	wg   sync.WaitGroup
}

// NewQueue starts a Queue backed by sink. Call Stop to drain and
// shut down the consumer goroutine.
func NewQueue(sink Sink, log *logrus.Entry) *Queue {
	q := &Queue{
		log:  log,
		sink: sink,
		ch:   make(chan contentdb.RequestLogEntry, QueueCapacity),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue submits entry for sinking. If the queue is full, Enqueue
// blocks until the consumer makes room, back-pressuring the caller
// rather than dropping the entry. It returns without blocking once
// Stop has been called.
func (q *Queue) Enqueue(entry contentdb.RequestLogEntry) {
	select {
	case q.ch <- entry:
	case <-q.done:
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case entry := <-q.ch:
			if err := q.sink.Sink(entry); err != nil {
				q.log.WithError(err).Warn("request log sink failed")
			}
		case <-q.done:
			// Drain whatever is left before exiting.
			for {
				select {
				case entry := <-q.ch:
					if err := q.sink.Sink(entry); err != nil {
						q.log.WithError(err).Warn("request log sink failed")
					}
				default:
					return
				}
			}
		}
	}
}

// Stop drains pending entries and stops the consumer goroutine.
func (q *Queue) Stop() {
	close(q.done)
	q.wg.Wait()
}
