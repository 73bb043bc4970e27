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

// Package diskpath resolves on-disk build artifact paths from
// (fork, version, file) triples, rejecting any file component that
// could escape the version directory.
package diskpath

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// NamePattern matches valid fork, version and file-name components.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*$`)

// Resolver resolves absolute paths under a single build root.
type Resolver struct {
	Root string
}

// New returns a Resolver rooted at root.
func New(root string) *Resolver {
	return &Resolver{Root: root}
}

// ValidName reports whether s is a valid fork/version/file name
// component.
func ValidName(s string) bool {
	return s != "" && NamePattern.MatchString(s)
}

// ForkDir returns <root>/<fork>.
func (r *Resolver) ForkDir(fork string) string {
	return filepath.Join(r.Root, fork)
}

// VersionDir returns <root>/<fork>/<version>.
func (r *Resolver) VersionDir(fork, version string) string {
	return filepath.Join(r.Root, fork, version)
}

// EnsureVersionDir creates the version directory if it does not
// already exist.
func (r *Resolver) EnsureVersionDir(fork, version string) (string, error) {
	dir := r.VersionDir(fork, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating version dir: %w", err)
	}
	return dir, nil
}

// FilePath resolves <root>/<fork>/<version>/<file>, rejecting file
// components that contain a path separator or "." / ".." segments.
// fork and version are assumed pre-validated by ValidName.
func (r *Resolver) FilePath(fork, version, file string) (string, error) {
	if !validFileComponent(file) {
		return "", fmt.Errorf("invalid file name %q", file)
	}
	return filepath.Join(r.VersionDir(fork, version), file), nil
}

func validFileComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' {
			return false
		}
	}
	return NamePattern.MatchString(name)
}
