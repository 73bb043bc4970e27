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

package diskpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"release-123", true},
		{"v1.2.3", true},
		{"_hidden", true},
		{"", false},
		{".", false},
		{"..", false},
		{".leadingdot", false},
		{"has space", false},
		{"has/slash", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ValidName(c.name), "ValidName(%q)", c.name)
	}
}

func TestResolverDirs(t *testing.T) {
	r := New("/build")
	assert.Equal(t, filepath.Join("/build", "wizden"), r.ForkDir("wizden"))
	assert.Equal(t, filepath.Join("/build", "wizden", "v1"), r.VersionDir("wizden", "v1"))
}

func TestFilePathRejectsEscape(t *testing.T) {
	r := New("/build")

	_, err := r.FilePath("wizden", "v1", "..")
	assert.Error(t, err)

	_, err = r.FilePath("wizden", "v1", "../../etc/passwd")
	assert.Error(t, err)

	_, err = r.FilePath("wizden", "v1", "sub/dir.zip")
	assert.Error(t, err)
}

func TestFilePathAccepts(t *testing.T) {
	r := New("/build")
	p, err := r.FilePath("wizden", "v1", "client.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/build", "wizden", "v1", "client.zip"), p)
}

func TestEnsureVersionDirCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	r := New(root)

	dir, err := r.EnsureVersionDir("wizden", "v1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "wizden", "v1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
