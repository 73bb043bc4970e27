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

package download

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/auth"
	"github.com/space-wizards/robust-cdn/internal/blobcodec"
	"github.com/space-wizards/robust-cdn/internal/cdnconfig"
	"github.com/space-wizards/robust-cdn/internal/contentdb"
	"github.com/space-wizards/robust-cdn/internal/requestlog"
)

// Handler serves the manifest and binary-download endpoints for every
// configured fork.
type Handler struct {
	Content  *contentdb.DB
	Forks    map[string]cdnconfig.ForkConfig
	Cdn      cdnconfig.Cdn
	Log      *logrus.Entry
	Requests *requestlog.Queue
}

func decompressManifest(compressed []byte) ([]byte, error) {
	return blobcodec.Decompress(nil, compressed)
}

// ServeOptions answers the OPTIONS /fork/{fork}/version/{version}/download
// protocol-version probe.
func (h *Handler) ServeOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Robust-Download-Min-Protocol", strconv.Itoa(ProtocolMin))
	w.Header().Set("X-Robust-Download-Max-Protocol", strconv.Itoa(ProtocolMax))
	w.WriteHeader(http.StatusNoContent)
}

// ServeDownload handles POST /fork/{fork}/version/{version}/download:
// decode the requested manifest indices, validate them, pick a
// compression strategy and stream the selected blobs.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	forkName, versionName := vars["fork"], vars["version"]

	fork, ok := h.Forks[forkName]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if fork.Private && !auth.CheckBasic(r, fork.PrivateUsers) {
		auth.WriteUnauthorized(w, forkName)
		return
	}

	forkID, ok, err := h.Content.ForkID(forkName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up fork", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	vs, ok, err := h.Content.Version(forkID, versionName)
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("looking up version", err))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBytes+1))
	if err != nil {
		apierr.Write(w, h.Log, apierr.Internal("reading request body", err))
		return
	}
	if len(body) > MaxRequestBytes {
		apierr.Write(w, h.Log, apierr.TooLarge("request body exceeds maximum size"))
		return
	}

	indices, err := DecodeIndices(body)
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest(err.Error()))
		return
	}
	if err := ValidateIndices(indices, vs.EntryCount); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest(err.Error()))
		return
	}

	strategy := SelectStrategy(
		h.Cdn.AutoStreamCompressRatio,
		h.Cdn.StreamCompress,
		h.Cdn.SendPreCompressed,
		len(indices),
		vs.CountDistinctBlobs,
		acceptsZstd(r),
	)

	w.Header().Set("Content-Type", "application/octet-stream")
	if strategy.StreamCompress {
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.WriteHeader(http.StatusOK)

	counter := &blobcodec.CountWriter{W: w}
	var out io.Writer = counter
	var closer io.Closer
	if strategy.StreamCompress {
		sw, err := blobcodec.CompressWriter(counter, h.Cdn.StreamCompressLevel)
		if err != nil {
			h.Log.WithError(err).Error("opening stream compressor")
			return
		}
		out, closer = sw, sw
	}

	if err := WriteStreamHeader(out, strategy.PreCompressed); err != nil {
		h.logStreamErr(err)
	} else {
		h.streamEntries(out, indices, vs, strategy)
	}
	if closer != nil {
		closer.Close()
	}

	if h.Requests != nil && h.Cdn.LogRequests {
		h.Requests.Enqueue(contentdb.RequestLogEntry{
			Time:           time.Now(),
			PreCompressed:  strategy.PreCompressed,
			StreamCompress: strategy.StreamCompress,
			Protocol:       ProtocolMax,
			BytesSent:      counter.Count(),
			VersionID:      vs.ID,
			Body:           body,
		})
	}
}

func (h *Handler) streamEntries(out io.Writer, indices []int32, vs contentdb.VersionSummary, strategy Strategy) {
	for _, idx := range indices {
		contentID, err := h.Content.ManifestEntryContent(vs.ID, int(idx))
		if err != nil {
			h.logStreamErr(err)
			return
		}
		rec, data, err := h.Content.GetContent(contentID)
		if err != nil {
			h.logStreamErr(err)
			return
		}

		var payload []byte
		var uncompressedSize, compressedSize uint32
		switch {
		case strategy.StreamCompress:
			if rec.Compression == blobcodec.CompressionZStd {
				plain, err := blobcodec.Decompress(nil, data)
				if err != nil {
					h.logStreamErr(err)
					return
				}
				payload = plain
			} else {
				payload = data
			}
			uncompressedSize = uint32(rec.Size)
		case strategy.PreCompressed:
			payload = data
			uncompressedSize = uint32(rec.Size)
			if rec.Compression == blobcodec.CompressionZStd {
				compressedSize = uint32(len(data))
			} else {
				compressedSize = 0
			}
		default:
			if rec.Compression == blobcodec.CompressionZStd {
				plain, err := blobcodec.Decompress(nil, data)
				if err != nil {
					h.logStreamErr(err)
					return
				}
				payload = plain
			} else {
				payload = data
			}
			uncompressedSize = uint32(rec.Size)
		}

		if err := WriteFileRecord(out, strategy.PreCompressed, uncompressedSize, compressedSize, payload); err != nil {
			h.logStreamErr(err)
			return
		}
	}
}

func (h *Handler) logStreamErr(err error) {
	h.Log.WithError(err).Warn("download stream write failed after headers sent")
}
