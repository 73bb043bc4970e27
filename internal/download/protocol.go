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

// Package download implements the partial-download protocol: the
// manifest endpoint, the OPTIONS protocol-version probe, and the POST
// binary download stream with its two compression strategies.
package download

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxRequestBytes bounds the POST /download request body: a packed
// array of at most 100,000 int32 manifest indices.
const MaxRequestBytes = 4 * 100_000

// ProtocolMin and ProtocolMax are the only supported wire-protocol
// versions, reported to clients via the OPTIONS probe.
const (
	ProtocolMin = 1
	ProtocolMax = 1
)

// flagPreCompressed is bit 0 of the stream header.
const flagPreCompressed uint32 = 1 << 0

// DecodeIndices parses a POST /download request body into manifest
// indices: a packed array of little-endian int32 values.
func DecodeIndices(body []byte) ([]int32, error) {
	if len(body)%4 != 0 {
		return nil, fmt.Errorf("body length %d is not a multiple of 4", len(body))
	}
	out := make([]int32, len(body)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(body[i*4 : i*4+4]))
	}
	return out, nil
}

// ValidateIndices checks every index is in range and none repeats.
func ValidateIndices(indices []int32, entriesCount int) error {
	seen := make([]bool, entriesCount)
	for _, idx := range indices {
		if idx < 0 || int(idx) >= entriesCount {
			return fmt.Errorf("index %d out of range [0, %d)", idx, entriesCount)
		}
		if seen[idx] {
			return fmt.Errorf("duplicate index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

// WriteStreamHeader writes the StreamHeader: uint32_le flags.
func WriteStreamHeader(w io.Writer, preCompressed bool) error {
	var flags uint32
	if preCompressed {
		flags |= flagPreCompressed
	}
	return writeUint32(w, flags)
}

// WriteFileRecord writes one FileRecord. When preCompressed is true, a
// second uncompressed/compressed-size int32 precedes the payload;
// compressedSize=0 signals the payload is actually stored
// uncompressed.
func WriteFileRecord(w io.Writer, preCompressed bool, uncompressedSize uint32, compressedSize uint32, payload []byte) error {
	if err := writeUint32(w, uncompressedSize); err != nil {
		return err
	}
	if preCompressed {
		if err := writeUint32(w, compressedSize); err != nil {
			return err
		}
	}
	_, err := w.Write(payload)
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
