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

package util

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a mutual exclusion lock with exponential backoff,
// intended for very short critical sections entered from timer
// callbacks. The zero value is an unlocked lock.
type SpinLock struct {
	flag uint32
}

// Lock acquires the lock, spinning with backoff until it is free.
func (l *SpinLock) Lock() {
	backoff := 1
	for !l.TryLock() {
		for x := 0; x < backoff; x++ {
			runtime.Gosched()
		}
		if backoff < 64 {
			backoff *= 2
		}
	}
}

// TryLock acquires the lock without spinning.
// Returns true when locked, false otherwise.
func (l *SpinLock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&l.flag, 0, 1)
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	atomic.StoreUint32(&l.flag, 0)
}
