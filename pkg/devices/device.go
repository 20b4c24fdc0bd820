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

// Package devices binds output sinks and pattern builders into
// user-facing device handles: digital outputs, PWM outputs, RGB
// outputs and tone outputs.
package devices

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/channel"
	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequence"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

// Device contains the API that is supported by all output devices.
type Device interface {
	// Name of the device.
	Name() string
	// Kind of the device (digital-output, pwm-output, ...).
	Kind() string
	// Value returns the current semantic value of the device.
	Value() (sequence.Value, error)
	// Stop cancels a running pattern, leaving the last applied
	// value in place.
	Stop()
	// Close stops any pattern, brings the device to its neutral
	// value and releases its resources. A closed device can no
	// longer be used.
	Close() error
}

// Dependencies shared by all device constructors.
type Dependencies struct {
	Log zerolog.Logger
	// Events receives sequence terminal events. Optional.
	Events *EventBus
	// Registry guards PWM channel ownership.
	// Required for PWM backed devices.
	Registry *channel.Registry
	// NewTimer creates the timer of each started pattern.
	// Defaults to hal.NewTimer.
	NewTimer func() hal.OneShotTimer
}

func (d Dependencies) newTimer() hal.OneShotTimer {
	if d.NewTimer != nil {
		return d.NewTimer()
	}
	return hal.NewTimer()
}

// changer holds the at most one active sequencer of a device.
// Starting a new pattern always stops and replaces the previous one.
type changer struct {
	mutex sync.Mutex
	seq   *sequencer.Sequencer
}

// start stops the current sequencer (if any), installs the given one
// and starts it.
func (c *changer) start(ctx context.Context, seq *sequencer.Sequencer, wait bool) error {
	c.mutex.Lock()
	if c.seq != nil {
		c.seq.Stop()
	}
	c.seq = seq
	c.mutex.Unlock()

	// Start outside the mutex; a blocking start must not prevent
	// Stop from another goroutine.
	if err := seq.Start(ctx, wait); err != nil {
		return maskAny(err)
	}
	return nil
}

// stop cancels the current sequencer, if any.
func (c *changer) stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.seq != nil {
		c.seq.Stop()
		c.seq = nil
	}
}
