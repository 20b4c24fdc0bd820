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

import "github.com/pkg/errors"

var (
	// NotConfiguredError is returned when a pin is used before Configure
	// or after Close.
	NotConfiguredError = errors.New("pin not configured")
	IsNotConfigured    = isErrorFunc(NotConfiguredError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
