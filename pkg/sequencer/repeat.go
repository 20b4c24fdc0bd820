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

package sequencer

import "strconv"

// Repeat controls how many times a sequence is played.
// The zero value loops forever.
type Repeat struct {
	finite bool
	count  uint32
}

// Forever repeats the sequence until stopped.
func Forever() Repeat {
	return Repeat{}
}

// Times plays the sequence n times. Times(0) is already complete.
func Times(n uint32) Repeat {
	return Repeat{finite: true, count: n}
}

// IsForever returns true when the sequence repeats until stopped.
func (r Repeat) IsForever() bool {
	return !r.finite
}

// String returns a human readable representation of the repeat count.
func (r Repeat) String() string {
	if !r.finite {
		return "forever"
	}
	return strconv.FormatUint(uint64(r.count), 10)
}

// exhausted returns true when no plays remain.
func (r Repeat) exhausted() bool {
	return r.finite && r.count == 0
}
