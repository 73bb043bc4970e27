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

import "sync"

// bufPool is a pool of grow-only byte buffers used by ingestion,
// avoiding a fresh allocation per zip entry.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 64<<10)
		return &b
	},
}

// GetBuf returns a zero-length buffer with at least minCap capacity.
// Callers must return it with PutBuf.
func GetBuf(minCap int) []byte {
	bp := bufPool.Get().(*[]byte)
	b := *bp
	if cap(b) < minCap {
		b = make([]byte, 0, minCap)
	}
	return b[:0]
}

// PutBuf returns a buffer obtained from GetBuf to the pool.
func PutBuf(b []byte) {
	bufPool.Put(&b)
}
