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
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
)

// clientZipBytes builds a minimal real zip archive's bytes, suitable
// for uploading as a client artifact through /fork/{fork}/file.
func clientZipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("index.html")
	require.NoError(t, err)
	_, err = w.Write([]byte("<html></html>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestHandler(t *testing.T, forks map[string]cdnconfig.ForkConfig) *Handler {
	t.Helper()
	f, mdb, disk := newTestFinalizer(t)
	return &Handler{
		Manifest:  mdb,
		Disk:      disk,
		Forks:     forks,
		Finalizer: f,
		Log:       testLog(),
	}
}

func newMultistepRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/fork/{fork}/start", h.ServeStart).Methods(http.MethodPost)
	r.HandleFunc("/fork/{fork}/file", h.ServeFile).Methods(http.MethodPost)
	r.HandleFunc("/fork/{fork}/finish", h.ServeFinish).Methods(http.MethodPost)
	return r
}

func defaultFork() map[string]cdnconfig.ForkConfig {
	return map[string]cdnconfig.ForkConfig{
		"wizden": {UpdateToken: "secret", ClientZipName: "SS14.Client", ServerZipName: "SS14.Server"},
	}
}

func TestServeStartRejectsMissingToken(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/start", strings.NewReader(`{"version":"v1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeStartCreatesVersionDirectoryAndInProgressRow(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)

	body := `{"version":"v1","engineVersion":"1.2.3"}`
	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/start", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	forkID, err := h.Manifest.UpsertFork("wizden")
	require.NoError(t, err)
	_, found, err := h.Manifest.GetInProgress(forkID, "v1")
	require.NoError(t, err)
	assert.True(t, found)

	_, err = os.Stat(h.Disk.VersionDir("wizden", "v1"))
	assert.NoError(t, err)
}

func TestServeStartRejectsInvalidVersionName(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/start", strings.NewReader(`{"version":".."}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeStartRejectsAlreadyPublishedVersion(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)

	start := func() int {
		req := httptest.NewRequest(http.MethodPost, "/fork/wizden/start", strings.NewReader(`{"version":"v1"}`))
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusCreated, start())

	forkID, err := h.Manifest.UpsertFork("wizden")
	require.NoError(t, err)
	writeClientZip(t, filepath.Join(h.Disk.VersionDir("wizden", "v1"), "SS14.Client.zip"))
	require.NoError(t, h.Finalizer.Finalize(forkID, "wizden", "v1", "1.0.0", Classification{ClientFile: "SS14.Client.zip"}))

	assert.Equal(t, http.StatusConflict, start())
}

func doStart(t *testing.T, h *Handler, router *mux.Router, version string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/start", strings.NewReader(`{"version":"`+version+`","engineVersion":"1.0.0"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func doUploadFile(t *testing.T, router *mux.Router, version, fileName, contents string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/file", strings.NewReader(contents))
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Robust-Cdn-Publish-Version", version)
	req.Header.Set("Robust-Cdn-Publish-File", fileName)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestServeFileRejectsWithoutStart(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)

	code := doUploadFile(t, router, "v1", "SS14.Client.zip", "data")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServeFileUploadsAndRejectsDuplicate(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)
	doStart(t, h, router, "v1")

	code := doUploadFile(t, router, "v1", "SS14.Client.zip", "zip-bytes")
	require.Equal(t, http.StatusNoContent, code)

	path := filepath.Join(h.Disk.VersionDir("wizden", "v1"), "SS14.Client.zip")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(data))

	code = doUploadFile(t, router, "v1", "SS14.Client.zip", "other-bytes")
	assert.Equal(t, http.StatusConflict, code)
}

func TestServeFinishRejectsWithoutClientArtifact(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)
	doStart(t, h, router, "v1")

	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/finish", strings.NewReader(`{"version":"v1"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	forkID, err := h.Manifest.UpsertFork("wizden")
	require.NoError(t, err)
	_, found, err := h.Manifest.GetInProgress(forkID, "v1")
	require.NoError(t, err)
	assert.False(t, found, "aborted attempt should remove the in-progress row")
}

func TestServeFinishPublishesVersionWithUploadedClientFile(t *testing.T) {
	h := newTestHandler(t, defaultFork())
	router := newMultistepRouter(h)
	doStart(t, h, router, "v1")

	require.Equal(t, http.StatusNoContent, doUploadFile(t, router, "v1", "SS14.Client.zip", string(clientZipBytes(t))))

	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/finish", strings.NewReader(`{"version":"v1"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	forkID, err := h.Manifest.UpsertFork("wizden")
	require.NoError(t, err)
	v, found, err := h.Manifest.VersionByName(forkID, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1.0.0", v.EngineVersion)
}
