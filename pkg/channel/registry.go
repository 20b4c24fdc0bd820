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

package channel

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps physical PWM channels to the pin currently owning
// them. It is passed to device constructors explicitly so tests can
// use a fresh registry per case.
type Registry struct {
	mutex  sync.Mutex
	owners map[ID]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		owners: make(map[ID]int),
	}
}

// Acquire records the given pin as owner of its PWM channel.
// Check and insert happen as one atomic step; when the channel is
// already owned, an InUseError naming the channel and the owning pin
// is returned and nothing is recorded.
func (r *Registry) Acquire(pin int) error {
	ch, err := ForPin(pin)
	if err != nil {
		return maskAny(err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if owner, found := r.owners[ch]; found {
		return maskAny(&InUseError{Channel: ch, Owner: owner})
	}
	r.owners[ch] = pin
	return nil
}

// Release removes the channel entry of the given pin.
// Releasing an unowned channel is a no-op, so teardown paths can call
// it unconditionally.
func (r *Registry) Release(pin int) {
	ch, err := ForPin(pin)
	if err != nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.owners, ch)
}

// Owner returns the pin owning the given channel.
// Returns false if the channel is free.
func (r *Registry) Owner(ch ID) (int, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	pin, found := r.owners[ch]
	return pin, found
}

// InUseError is returned when a PWM channel is already owned by
// another pin.
type InUseError struct {
	Channel ID
	Owner   int
}

// Error implements the error interface.
func (e *InUseError) Error() string {
	return fmt.Sprintf("PWM channel %s is already in use by pin %d", e.Channel, e.Owner)
}

// IsInUse returns true if the given error is caused by an InUseError.
func IsInUse(err error) bool {
	var inUse *InUseError
	return errors.As(err, &inUse)
}

// AsInUse returns the InUseError cause of the given error, if any.
func AsInUse(err error) (*InUseError, bool) {
	var inUse *InUseError
	if errors.As(err, &inUse) {
		return inUse, true
	}
	return nil, false
}
