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

import "github.com/pkg/errors"

var (
	// InvalidConfigError is returned when a sequencer is constructed
	// with an unusable configuration.
	InvalidConfigError = errors.New("invalid sequencer config")
	IsInvalidConfig    = isErrorFunc(InvalidConfigError)
	// AlreadyStartedError is returned when Start is called twice.
	AlreadyStartedError = errors.New("sequencer already started")
	IsAlreadyStarted    = isErrorFunc(AlreadyStartedError)
	// InvalidDurationError halts a sequence that produced a step
	// with a negative duration.
	InvalidDurationError = errors.New("invalid step duration")
	IsInvalidDuration    = isErrorFunc(InvalidDurationError)
	// EmptySequenceError halts a sequence whose source produces no
	// steps at all; repeating it would spin without ever arming the
	// timer.
	EmptySequenceError = errors.New("empty sequence")
	IsEmptySequence    = isErrorFunc(EmptySequenceError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
