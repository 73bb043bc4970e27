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
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/space-wizards/robust-cdn/internal/urltemplate"
)

// buildJSONName is the well-known entry name every server artifact
// carries, naming the version's download endpoints.
const buildJSONName = "build.json"

type buildJSON struct {
	Download            string `json:"download"`
	Version             string `json:"version"`
	Hash                string `json:"hash"`
	ForkID              string `json:"fork_id"`
	EngineVersion       string `json:"engine_version"`
	ManifestURL         string `json:"manifest_url"`
	ManifestDownloadURL string `json:"manifest_download_url"`
	ManifestHash        string `json:"manifest_hash"`
}

// GenerateBuildJSON renders the build.json document embedded in every
// server artifact. download/manifest URLs carry the {FORK_ID}/
// {FORK_VERSION} placeholders a watchdog or launcher expands itself.
func GenerateBuildJSON(urls *urltemplate.Manager, fork, version, clientFileName, clientHashHex, engineVersion, manifestHashHex string) ([]byte, error) {
	doc := buildJSON{
		Download:            urls.File("{FORK_ID}", "{FORK_VERSION}", clientFileName),
		Version:             version,
		Hash:                clientHashHex,
		ForkID:              fork,
		EngineVersion:       engineVersion,
		ManifestURL:         urls.Manifest("{FORK_ID}", "{FORK_VERSION}"),
		ManifestDownloadURL: urls.File("{FORK_ID}", "{FORK_VERSION}", "manifest"),
		ManifestHash:        manifestHashHex,
	}
	return json.Marshal(doc)
}

// InjectBuildJSON rewrites the zip at path, replacing any existing
// build.json entry with data and leaving every other entry untouched.
// archive/zip has no in-place update, so the rewrite happens into a
// sibling temp file which is then renamed over the original.
func InjectBuildJSON(path string, data []byte) error {
	src, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening %s for rewrite: %w", path, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".build-json-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	zw := zip.NewWriter(tmp)
	for _, f := range src.File {
		if f.Name == buildJSONName {
			continue
		}
		if err := copyZipEntry(zw, f); err != nil {
			zw.Close()
			tmp.Close()
			return fmt.Errorf("copying entry %s: %w", f.Name, err)
		}
	}
	w, err := zw.Create(buildJSONName)
	if err != nil {
		zw.Close()
		tmp.Close()
		return err
	}
	if _, err := w.Write(data); err != nil {
		zw.Close()
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func copyZipEntry(zw *zip.Writer, f *zip.File) error {
	w, err := zw.CreateHeader(&f.FileHeader)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
