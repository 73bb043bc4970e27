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
	"sync/atomic"
)

// CountWriter wraps an io.Writer and counts bytes written, without
// buffering anything. Used to measure bytes sent on the download
// endpoint's outermost response writer for request logging.
type CountWriter struct {
	W     io.Writer
	count int64
}

func (c *CountWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	atomic.AddInt64(&c.count, int64(n))
	return n, err
}

// Count returns the number of bytes written so far.
func (c *CountWriter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}
