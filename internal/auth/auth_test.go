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

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("secret"), []byte("secret")))
	assert.False(t, ConstantTimeEqual([]byte("secret"), []byte("different")))
	assert.False(t, ConstantTimeEqual([]byte("short"), []byte("longerstring")))
	assert.True(t, ConstantTimeEqual(nil, []byte{}))
}

func TestCheckBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/control/update", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	assert.True(t, CheckBearer(req, "s3cr3t"))
	assert.False(t, CheckBearer(req, "wrong"))
}

func TestCheckBearerMissingOrMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/fork/wizden/control/update", nil)
	assert.False(t, CheckBearer(req, "s3cr3t"))

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.False(t, CheckBearer(req, "s3cr3t"))
}

func TestCheckBasic(t *testing.T) {
	users := map[string]string{"alice": "wonderland"}

	req := httptest.NewRequest(http.MethodGet, "/fork/wizden", nil)
	req.SetBasicAuth("alice", "wonderland")
	assert.True(t, CheckBasic(req, users))

	req.SetBasicAuth("alice", "wrong")
	assert.False(t, CheckBasic(req, users))

	req.SetBasicAuth("bob", "wonderland")
	assert.False(t, CheckBasic(req, users))
}

func TestCheckBasicMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/fork/wizden", nil)
	assert.False(t, CheckBasic(req, map[string]string{"alice": "wonderland"}))
}

func TestWriteUnauthorizedSetsRealm(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorized(rec, "wizden")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "wizden")
}
