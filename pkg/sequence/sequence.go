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

// Package sequence models timed output patterns as lazy sequences of
// (value, duration) steps. Each pattern is a concrete Source type that
// can be restarted to reproduce the exact same steps, which is what
// makes bounded repeat counts possible.
package sequence

import "time"

// Value is the semantic output level of one step.
// Single channel devices use 1 component (0.0-1.0), multi channel
// devices use one component per channel, tone devices use
// (frequency, volume).
type Value []float64

// Scalar wraps a single level into a Value.
func Scalar(v float64) Value {
	return Value{v}
}

// Equals returns true if both values have the same components.
func (v Value) Equals(other Value) bool {
	if len(v) != len(other) {
		return false
	}
	for i, x := range v {
		if x != other[i] {
			return false
		}
	}
	return true
}

// Step is one element of a pattern: a value to apply and how long to
// hold it. A zero duration is legal and means "apply, advance
// immediately"; it is still scheduled through the timer so ordering is
// preserved and long fades cannot overflow a call stack.
type Step struct {
	Value    Value
	Duration time.Duration
}

// Source produces a finite or infinite lazy sequence of steps.
// Sources are owned by a single sequencer and are not safe for
// concurrent use.
type Source interface {
	// Next returns the next step, or false when the sequence is
	// exhausted.
	Next() (Step, bool)
	// Restart rewinds the source to its first step.
	// After Restart the source produces the identical step sequence
	// again.
	Restart()
}

// NewSteps creates a Source playing the given fixed steps once.
func NewSteps(steps ...Step) Source {
	return &stepsSource{steps: steps}
}

type stepsSource struct {
	steps []Step
	index int
}

func (s *stepsSource) Next() (Step, bool) {
	if s.index >= len(s.steps) {
		return Step{}, false
	}
	result := s.steps[s.index]
	s.index++
	return result, true
}

func (s *stepsSource) Restart() {
	s.index = 0
}
