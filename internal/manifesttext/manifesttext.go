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

// Package manifesttext builds and hashes the canonical manifest text
// format shared by ingestion and publish finalization: a header line
// followed by one "<HEX-UPPER-HASH> <path>\n" line per file, ordered
// ordinally by path.
package manifesttext

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"

	"github.com/space-wizards/robust-cdn/internal/blobcodec"
)

// Header is the first line of every canonical manifest.
const Header = "Robust Content Manifest 1\n"

// Entry is one file's hash and path, ready to be written into the
// canonical manifest text. Callers must sort entries by Path before
// calling Build.
type Entry struct {
	Hash blobcodec.Hash
	Path string
}

// Build renders entries into the canonical manifest text. Directory
// entries must already be excluded and entries must already be sorted
// ordinally by Path.
func Build(entries []Entry) []byte {
	out := make([]byte, 0, len(Header)+len(entries)*80)
	out = append(out, Header...)
	for _, e := range entries {
		out = append(out, e.Hash.HexUpper()...)
		out = append(out, ' ')
		out = append(out, e.Path...)
		out = append(out, '\n')
	}
	return out
}

// HashZip opens the zip file at path, hashes every non-directory
// entry's contents with BLAKE2b-256, and returns both the canonical
// manifest text and its own BLAKE2b-256 hash. Used by publish
// finalization, which needs the resulting manifest hash for
// build.json; ingestion builds the same text itself via Build while
// storing each entry's bytes.
func HashZip(path string) (manifestHash blobcodec.Hash, text []byte, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return blobcodec.Hash{}, nil, fmt.Errorf("opening zip %s: %w", path, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
		byName[f.Name] = f
	}
	sort.Strings(names)

	entries := make([]Entry, len(names))
	for i, name := range names {
		f := byName[name]
		rc, err := f.Open()
		if err != nil {
			return blobcodec.Hash{}, nil, fmt.Errorf("opening entry %s: %w", name, err)
		}
		h := blobcodec.NewHasher()
		if _, err := io.Copy(h, rc); err != nil {
			rc.Close()
			return blobcodec.Hash{}, nil, fmt.Errorf("hashing entry %s: %w", name, err)
		}
		rc.Close()
		entries[i] = Entry{Hash: blobcodec.SumReaderHash(h), Path: name}
	}

	text = Build(entries)
	return blobcodec.Sum(text), text, nil
}
