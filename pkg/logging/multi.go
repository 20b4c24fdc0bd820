// Copyright 2024 The OutputWorker authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"io"
	"sync"
)

// MultiWriter is a log output that duplicates writes to a set of
// writers that can grow after the logger has been created.
type MultiWriter interface {
	io.Writer
	// Add appends a writer. Subsequent log lines are also sent to it.
	Add(w io.Writer)
}

type multiWriter struct {
	mutex   sync.Mutex
	writers []io.Writer
}

// NewMultiWriter creates a new output for logs that can add outputs
// on the fly.
func NewMultiWriter(writers ...io.Writer) MultiWriter {
	return &multiWriter{
		writers: writers,
	}
}

func (l *multiWriter) Add(w io.Writer) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.writers = append(l.writers, w)
}

func (l *multiWriter) Write(p []byte) (n int, err error) {
	l.mutex.Lock()
	writers := l.writers
	l.mutex.Unlock()

	n = len(p)
	for _, w := range writers {
		// Keep writing to the remaining outputs on error; a broken
		// output must not silence the console.
		if _, werr := w.Write(p); werr != nil {
			err = werr
		}
	}
	return n, err
}
