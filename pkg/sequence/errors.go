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

package sequence

import "github.com/pkg/errors"

var (
	// InvalidConfigError is returned when a pattern is constructed
	// with an unusable configuration.
	InvalidConfigError = errors.New("invalid pattern config")
	IsInvalidConfig    = isErrorFunc(InvalidConfigError)
	// UnknownNoteError is returned when a tune refers to a note name
	// that is not in the note table.
	UnknownNoteError = errors.New("unknown note")
	IsUnknownNote    = isErrorFunc(UnknownNoteError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
