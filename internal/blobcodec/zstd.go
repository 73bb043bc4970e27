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

package blobcodec

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression tags the storage representation of a Content row.
type Compression int

const (
	// None means the payload is stored uncompressed and
	// len(payload) == size.
	CompressionNone Compression = iota
	// CompressionZStd means the payload is a zstd frame.
	CompressionZStd
)

var (
	encoderPool sync.Map // map[level]*zstd.Encoder
	decoder     *zstd.Decoder
	decoderOnce sync.Once
)

// encoderLevel buckets a conventional zstd compression level (the
// 1-22 scale used by Cdn.*CompressLevel configuration keys) onto one
// of klauspost/compress's four speed/ratio tiers.
func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func encoderForLevel(level int) *zstd.Encoder {
	if v, ok := encoderPool.Load(level); ok {
		return v.(*zstd.Encoder)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		// Only invalid levels cause an error; level is always
		// derived from validated configuration.
		panic(err)
	}
	actual, _ := encoderPool.LoadOrStore(level, enc)
	return actual.(*zstd.Encoder)
}

func sharedDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(err)
		}
		decoder = dec
	})
	return decoder
}

// CompressBound returns the minimum destination buffer size callers
// must provide to Compress for a source of length n.
func CompressBound(n int) int {
	// zstd's worst-case frame expansion: a small fixed header plus a
	// few bytes per block boundary. klauspost/compress's EncodeAll
	// grows its own buffer when needed, but we still size pooled
	// buffers generously up front to avoid reallocation in the
	// common case.
	return n + (n >> 8) + 64
}

// Compress appends the zstd-compressed form of src to dst (which may
// be nil or an existing grow-only buffer of length 0) and returns the
// result.
func Compress(dst, src []byte, level int) []byte {
	return encoderForLevel(level).EncodeAll(src, dst)
}

// Decompress appends the decompressed form of a zstd frame src to dst
// and returns the result.
func Decompress(dst, src []byte) ([]byte, error) {
	return sharedDecoder().DecodeAll(src, dst)
}

// DecompressReader wraps r, a stream of zstd-compressed bytes, with an
// incremental decompressing reader. Callers must Close the returned
// reader to release the decoder's internal goroutines.
func DecompressReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// CompressWriter returns a WriteCloser that zstd-compresses everything
// written to it and flushes to w on Close.
func CompressWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel(level)))
}

// Worthwhile reports whether compressing a blob saved enough bytes to
// justify storing it compressed: compressed+threshold < uncompressed.
func Worthwhile(compressedLen, uncompressedLen, threshold int) bool {
	return compressedLen+threshold < uncompressedLen
}
