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

package apierr

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestKindStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Unauthorized("nope"), http.StatusUnauthorized},
		{BadRequest("bad"), http.StatusBadRequest},
		{Conflict("already exists"), http.StatusConflict},
		{Unprocessable("can't process"), http.StatusUnprocessableEntity},
		{TooLarge("too big"), http.StatusRequestEntityTooLarge},
		{Internal("boom", errors.New("cause")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		Write(rec, testLog(), c.err)
		assert.Equal(t, c.want, rec.Code, c.err.Message)
	}
}

func TestWriteWrapsPlainErrorAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, testLog(), errors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Internal("wrapped", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "root cause")
}

func TestErrorStringWithoutCause(t *testing.T) {
	err := NotFound("fork not found")
	assert.Equal(t, "fork not found", err.Error())
}
