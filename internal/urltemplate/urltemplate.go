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

// Package urltemplate builds the download/manifest URLs embedded in
// the manifest-cache JSON and in build.json, and expands the
// {FORK_ID}/{FORK_VERSION} placeholders build.json templates use.
package urltemplate

import (
	"fmt"
	"strings"
)

// Manager builds absolute URLs under a configured base URL, which must
// end in "/" -- enforced at config-load time by
// cdnconfig.Config.Validate so a misconfigured base URL fails loudly
// at startup rather than producing malformed URLs later.
type Manager struct {
	Base string
}

// New returns a Manager rooted at base.
func New(base string) *Manager {
	return &Manager{Base: base}
}

// File returns the download URL for a single artifact.
func (m *Manager) File(fork, version, fileName string) string {
	return fmt.Sprintf("%sfork/%s/version/%s/file/%s", m.Base, fork, version, fileName)
}

// Manifest returns the manifest-text URL for a version.
func (m *Manager) Manifest(fork, version string) string {
	return fmt.Sprintf("%sfork/%s/version/%s/manifest", m.Base, fork, version)
}

// ExpandPlaceholders replaces the {FORK_ID}/{FORK_VERSION} placeholders
// used by build.json templates with concrete values.
func ExpandPlaceholders(template, fork, version string) string {
	r := strings.NewReplacer("{FORK_ID}", fork, "{FORK_VERSION}", version)
	return r.Replace(template)
}
