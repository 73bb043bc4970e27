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

package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary(t *testing.T) {
	defer func(v, g string) { Version, GitInfo = v, g }(Version, GitInfo)

	Version, GitInfo = "", ""
	assert.Equal(t, "unknown", Summary())

	Version, GitInfo = "1.4.0", ""
	assert.Equal(t, "1.4.0", Summary())

	Version, GitInfo = "", "abc123"
	assert.Equal(t, "abc123", Summary())

	Version, GitInfo = "1.4.0", "abc123"
	assert.Equal(t, "1.4.0, abc123", Summary())
}
