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

// Package cdnconfig loads the process configuration: the two SQLite
// database locations, the on-disk build tree, per-fork publish
// settings, and compression/logging knobs.
//
// The shape follows Perkeep's pkg/jsonconfig: a JSON document is
// decoded strictly (unknown keys are rejected) and optional keys fall
// back to documented defaults, rather than Perkeep's dynamic
// map[string]any accessor style -- this config's shape is fixed and
// known ahead of time, so a typed struct with strict decoding gives
// the same "catch a typo in a key name" guarantee with less
// indirection.
package cdnconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LogRequestStorage selects where RequestLog entries are persisted.
type LogRequestStorage string

const (
	LogRequestNone     LogRequestStorage = "None"
	LogRequestConsole  LogRequestStorage = "Console"
	LogRequestDatabase LogRequestStorage = "Database"
)

// Cdn holds the Cdn.* configuration keys.
type Cdn struct {
	DatabaseFileName             string            `json:"DatabaseFileName"`
	VersionDiskPath              string            `json:"VersionDiskPath"`
	DefaultFork                  string            `json:"DefaultFork"`
	BlobCompress                 bool              `json:"BlobCompress"`
	BlobCompressLevel            int               `json:"BlobCompressLevel"`
	BlobCompressSavingsThreshold int               `json:"BlobCompressSavingsThreshold"`
	ManifestCompressLevel        int               `json:"ManifestCompressLevel"`
	StreamCompress               bool              `json:"StreamCompress"`
	StreamCompressLevel          int               `json:"StreamCompressLevel"`
	SendPreCompressed            bool              `json:"SendPreCompressed"`
	AutoStreamCompressRatio      float64           `json:"AutoStreamCompressRatio"`
	LogRequests                  bool              `json:"LogRequests"`
	LogRequestStorage            LogRequestStorage `json:"LogRequestStorage"`
}

// Manifest holds the Manifest.* configuration keys.
type Manifest struct {
	DatabaseFileName                string                `json:"DatabaseFileName"`
	FileDiskPath                    string                `json:"FileDiskPath"`
	InProgressPublishTimeoutMinutes int                   `json:"InProgressPublishTimeoutMinutes"`
	Forks                           map[string]ForkConfig `json:"Forks"`
}

// ForkConfig holds Manifest.Forks.<name>.* configuration.
type ForkConfig struct {
	UpdateToken     string            `json:"UpdateToken"`
	ClientZipName   string            `json:"ClientZipName"`
	ServerZipName   string            `json:"ServerZipName"`
	NotifyWatchdogs []WatchdogTarget  `json:"NotifyWatchdogs"`
	Private         bool              `json:"Private"`
	PrivateUsers    map[string]string `json:"PrivateUsers"`
	PruneBuildsDays int               `json:"PruneBuildsDays"`
}

// WatchdogTarget is one watchdog-notify endpoint.
type WatchdogTarget struct {
	BaseUrl  string `json:"BaseUrl"`
	Instance string `json:"Instance"`
	ApiToken string `json:"ApiToken"`
}

// Config is the full process configuration.
type Config struct {
	Cdn      Cdn      `json:"Cdn"`
	Manifest Manifest `json:"Manifest"`
	BaseUrl  string   `json:"BaseUrl"`
	PathBase string   `json:"PathBase"`
}

// defaults applies documented fallback values for optional keys,
// matching how jsonconfig.OptionalString et al. take a default
// argument.
func (c *Config) defaults() {
	if c.Cdn.BlobCompressLevel == 0 {
		c.Cdn.BlobCompressLevel = 9
	}
	if c.Cdn.ManifestCompressLevel == 0 {
		c.Cdn.ManifestCompressLevel = 19
	}
	if c.Cdn.StreamCompressLevel == 0 {
		c.Cdn.StreamCompressLevel = 6
	}
	if c.Cdn.LogRequestStorage == "" {
		c.Cdn.LogRequestStorage = LogRequestNone
	}
	if c.Manifest.InProgressPublishTimeoutMinutes == 0 {
		c.Manifest.InProgressPublishTimeoutMinutes = 60
	}
}

// Validate checks required fields and cross-field invariants, such as
// BaseUrl ending in "/".
func (c *Config) Validate() error {
	if c.Cdn.DatabaseFileName == "" {
		return fmt.Errorf("Cdn.DatabaseFileName is required")
	}
	if c.Cdn.VersionDiskPath == "" {
		return fmt.Errorf("Cdn.VersionDiskPath is required")
	}
	if c.Manifest.DatabaseFileName == "" {
		return fmt.Errorf("Manifest.DatabaseFileName is required")
	}
	if c.Manifest.FileDiskPath == "" {
		return fmt.Errorf("Manifest.FileDiskPath is required")
	}
	if c.BaseUrl != "" && !strings.HasSuffix(c.BaseUrl, "/") {
		return fmt.Errorf("BaseUrl must end with '/'")
	}
	switch c.Cdn.LogRequestStorage {
	case LogRequestNone, LogRequestConsole, LogRequestDatabase:
	default:
		return fmt.Errorf("Cdn.LogRequestStorage must be one of None, Console, Database, got %q", c.Cdn.LogRequestStorage)
	}
	for name, fork := range c.Manifest.Forks {
		if fork.UpdateToken == "" {
			return fmt.Errorf("fork %q: UpdateToken is required", name)
		}
		if fork.ClientZipName == "" {
			return fmt.Errorf("fork %q: ClientZipName is required", name)
		}
		if fork.ServerZipName == "" {
			return fmt.Errorf("fork %q: ServerZipName is required", name)
		}
	}
	return nil
}

// Load reads and strictly decodes the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}
