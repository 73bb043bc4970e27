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

// Package publish implements the publish workflow (one-shot and
// three-step multi-request), artifact classification, and the
// shared finalization that both entry shapes converge on.
package publish

import "strings"

// ServerArtifact is a classified server-side build artifact: a zip
// whose platform tag is everything between the configured server-zip
// prefix and the trailing ".zip".
type ServerArtifact struct {
	FileName string
	Platform string
}

// Classification is the result of sorting a version directory's files
// into the client artifact and zero or more server artifacts.
type Classification struct {
	ClientFile string
	Servers    []ServerArtifact
}

// Classify sorts fileNames into client/server artifacts per their
// configured name patterns: the client artifact is an exact match of
// "<clientZipName>.zip"; a server artifact's name starts with
// serverZipName and ends in ".zip", with the platform tag being
// whatever falls between.
func Classify(fileNames []string, clientZipName, serverZipName string) Classification {
	var c Classification
	clientName := clientZipName + ".zip"
	for _, name := range fileNames {
		switch {
		case name == clientName:
			c.ClientFile = name
		case strings.HasPrefix(name, serverZipName) && strings.HasSuffix(name, ".zip"):
			platform := strings.TrimSuffix(strings.TrimPrefix(name, serverZipName), ".zip")
			c.Servers = append(c.Servers, ServerArtifact{FileName: name, Platform: platform})
		}
	}
	return c
}
