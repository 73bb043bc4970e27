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

// Package blobcodec implements the content hash and compression
// primitives shared by ingestion, publish and the download endpoint:
// BLAKE2b-256 hashing and zstd compression of blob payloads.
package blobcodec

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a content hash.
const Size = 32

// Hash is a BLAKE2b-256 digest of a blob's uncompressed content.
type Hash [Size]byte

// String returns a lowercase-hex representation, for logging and
// diagnostics. Manifest text uses the uppercase form from HexUpper.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HexUpper returns the hash formatted as uppercase hex, as required by
// the canonical manifest text format.
func (h Hash) HexUpper() string {
	const digits = "0123456789ABCDEF"
	buf := make([]byte, Size*2)
	for i, b := range h {
		buf[i*2] = digits[b>>4]
		buf[i*2+1] = digits[b&0xf]
	}
	return string(buf)
}

// Sum computes the BLAKE2b-256 hash of b in one shot. Used by
// ingestion, where zip entries are already fully buffered in memory.
func Sum(b []byte) Hash {
	return blake2b.Sum256(b)
}

// NewHasher returns a streaming BLAKE2b-256 hasher for hashing data
// that is not already fully buffered, such as a client zip entry's
// contents streamed while computing a manifest hash during publish.
func NewHasher() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for a key longer than 64
		// bytes; we never pass a key.
		panic(err)
	}
	return h
}

// SumReaderHash finalizes a running hasher returned by NewHasher into a
// Hash value.
func SumReaderHash(h hash.Hash) Hash {
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
