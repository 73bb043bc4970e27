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

package availability

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/space-wizards/robust-cdn/internal/manifestdb"
	"github.com/space-wizards/robust-cdn/internal/urltemplate"
)

type clientEntry struct {
	URL    string `json:"url"`
	Sha256 string `json:"sha256"`
}

type serverEntry struct {
	URL    string `json:"url"`
	Sha256 string `json:"sha256"`
	Size   *int64 `json:"size,omitempty"`
}

type buildEntry struct {
	Time   string                 `json:"time"`
	Client clientEntry            `json:"client"`
	Server map[string]serverEntry `json:"server"`
}

type manifestDoc struct {
	Builds map[string]buildEntry `json:"builds"`
}

// RebuildManifestCache queries every available version of a fork and
// its server builds, builds the fork's server-manifest JSON document,
// and writes it into Fork.ServerManifestCache.
func RebuildManifestCache(db *manifestdb.DB, baseURL string, forkID int64, forkName string) error {
	if baseURL == "" {
		return fmt.Errorf("BaseUrl is not configured")
	}
	urls := urltemplate.New(baseURL)

	versions, err := db.AvailableVersions(forkID, 0)
	if err != nil {
		return fmt.Errorf("loading available versions: %w", err)
	}

	doc := manifestDoc{Builds: make(map[string]buildEntry, len(versions))}
	for _, v := range versions {
		entry := buildEntry{
			Time: v.PublishedTime.UTC().Format(time.RFC3339),
			Client: clientEntry{
				URL:    urls.File(forkName, v.Name, v.ClientZipName),
				Sha256: hex.EncodeToString(v.ClientZipSha256[:]),
			},
			Server: make(map[string]serverEntry, len(v.ServerBuilds)),
		}
		for _, sb := range v.ServerBuilds {
			entry.Server[sb.Platform] = serverEntry{
				URL:    urls.File(forkName, v.Name, sb.FileName),
				Sha256: hex.EncodeToString(sb.Sha256[:]),
				Size:   sb.FileSize,
			}
		}
		doc.Builds[v.Name] = entry
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return db.SetServerManifestCache(forkID, data)
}
