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

package requestlog

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
)

// Sink persists or discards a RequestLogEntry.
type Sink interface {
	Sink(entry contentdb.RequestLogEntry) error
}

// NoneSink discards every entry.
type NoneSink struct{}

func (NoneSink) Sink(contentdb.RequestLogEntry) error { return nil }

// ConsoleSink logs a one-line summary of every entry at info level.
type ConsoleSink struct {
	Log *logrus.Entry
}

func (s ConsoleSink) Sink(entry contentdb.RequestLogEntry) error {
	hash := blobcodec.Sum(entry.Body)
	s.Log.WithFields(logrus.Fields{
		"time":           entry.Time.UTC().Format(time.RFC3339),
		"versionId":      entry.VersionID,
		"bytesSent":      entry.BytesSent,
		"preCompressed":  entry.PreCompressed,
		"streamCompress": entry.StreamCompress,
		"protocol":       entry.Protocol,
		"bodyLength":     len(entry.Body),
		"bodyHash":       hash.HexUpper(),
	}).Info("download request")
	return nil
}

// DatabaseSink persists every entry into the content store's
// RequestLog/RequestLogBlob tables.
type DatabaseSink struct {
	Content *contentdb.DB
}

func (s DatabaseSink) Sink(entry contentdb.RequestLogEntry) error {
	return s.Content.InsertRequestLog(entry)
}

// NewSink builds the configured Sink implementation.
func NewSink(mode cdnconfig.LogRequestStorage, content *contentdb.DB, log *logrus.Entry) Sink {
	switch mode {
	case cdnconfig.LogRequestConsole:
		return ConsoleSink{Log: log}
	case cdnconfig.LogRequestDatabase:
		return DatabaseSink{Content: content}
	default:
		return NoneSink{}
	}
}
