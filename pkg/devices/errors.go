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

package devices

import "github.com/pkg/errors"

var (
	// ValidationError is returned when a device is constructed with
	// an invalid configuration.
	ValidationError = errors.New("validation failed")
	IsValidation    = isErrorFunc(ValidationError)
	// ClosedError is returned when a closed device is used.
	ClosedError = errors.New("device closed")
	IsClosed    = isErrorFunc(ClosedError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
