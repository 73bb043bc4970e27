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

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/space-wizards/robust-cdn/pkg/buildinfo"
)

type statusResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ContentVersions int    `json:"contentVersions"`
}

// ServeStatus handles GET /control/status.
func (s *Server) ServeStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.Content.CountContentVersions()
	if err != nil {
		s.Log.WithError(err).Warn("counting content versions for status failed")
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		Status:          "ok",
		Version:         buildinfo.Summary(),
		ContentVersions: count,
	})
}
