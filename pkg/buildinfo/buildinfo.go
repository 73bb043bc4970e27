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

// Package buildinfo reports the current build's version, set via
// linker flags at release time.
package buildinfo

// GitInfo is either the empty string (the default) or the git hash of
// the build's commit, set with:
//
//	-ldflags="-X github.com/space-wizards/robust-cdn/pkg/buildinfo.GitInfo=..."
var GitInfo string

// Version is a string like "1.4.0", set the same way as GitInfo.
var Version string

// Summary returns the version and/or git hash of this binary, or
// "unknown" if neither linker flag was provided.
func Summary() string {
	if Version != "" && GitInfo != "" {
		return Version + ", " + GitInfo
	}
	if GitInfo != "" {
		return GitInfo
	}
	if Version != "" {
		return Version
	}
	return "unknown"
}
