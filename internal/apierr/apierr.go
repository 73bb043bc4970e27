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

// Package apierr maps a small set of error kinds onto HTTP status
// codes, the way Perkeep's pkg/httputil centralizes its
// BadRequestError/ForbiddenError/ServeError helpers.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Kind is one of the error kinds the HTTP boundary surfaces to clients.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindBadRequest
	KindConflict
	KindUnprocessable
	KindTooLarge
)

// Error is a Kind-tagged error carrying a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func new_(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

func NotFound(msg string) *Error            { return new_(KindNotFound, msg, nil) }
func Unauthorized(msg string) *Error        { return new_(KindUnauthorized, msg, nil) }
func BadRequest(msg string) *Error          { return new_(KindBadRequest, msg, nil) }
func Conflict(msg string) *Error            { return new_(KindConflict, msg, nil) }
func Unprocessable(msg string) *Error       { return new_(KindUnprocessable, msg, nil) }
func TooLarge(msg string) *Error            { return new_(KindTooLarge, msg, nil) }
func Internal(msg string, err error) *Error { return new_(KindInternal, msg, err) }

func (k Kind) status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Write maps err onto an HTTP response. Internal errors are logged
// with full detail server-side but never echoed to the client.
func Write(w http.ResponseWriter, log *logrus.Entry, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal("internal error", err)
	}
	status := ae.Kind.status()
	if ae.Kind == KindUnauthorized {
		// WWW-Authenticate is set by the caller before invoking
		// Write, since the realm name is request-specific.
	}
	if status >= 500 {
		log.WithError(err).Error(ae.Message)
	} else {
		log.WithError(err).Debug(ae.Message)
	}
	http.Error(w, ae.Message, status)
}
