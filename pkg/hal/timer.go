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

package hal

import (
	"sync"
	"time"
)

// NewTimer creates a OneShotTimer backed by the runtime timer wheel.
func NewTimer() OneShotTimer {
	return &stdTimer{}
}

type stdTimer struct {
	mutex sync.Mutex
	timer *time.Timer
}

// ArmOneShot schedules cb to fire once after d.
// Arming while a callback is pending replaces the pending callback.
func (t *stdTimer) ArmOneShot(d time.Duration, cb func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	t.timer = time.AfterFunc(d, cb)
}

// Cancel stops a pending callback.
func (t *stdTimer) Cancel() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// ManualTimer is a OneShotTimer that only fires when told to.
// It is used by tests and by the virtual board to drive sequences
// deterministically.
type ManualTimer struct {
	mutex   sync.Mutex
	pending func()
	delay   time.Duration
	armed   bool
}

// ArmOneShot records the callback without scheduling it.
func (t *ManualTimer) ArmOneShot(d time.Duration, cb func()) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.pending = cb
	t.delay = d
	t.armed = true
}

// Cancel drops a pending callback.
func (t *ManualTimer) Cancel() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.pending = nil
	t.armed = false
}

// Armed returns true if a callback is pending.
func (t *ManualTimer) Armed() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.armed
}

// Delay returns the delay the pending callback was armed with.
func (t *ManualTimer) Delay() time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.delay
}

// Fire invokes the pending callback, if any.
// The callback runs on the caller's goroutine. Returns true if a
// callback was fired.
func (t *ManualTimer) Fire() bool {
	t.mutex.Lock()
	cb := t.pending
	t.pending = nil
	t.armed = false
	t.mutex.Unlock()

	if cb == nil {
		return false
	}
	cb()
	return true
}
