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

import "time"

// Pin is the output sink contract for a single physical line or PWM channel.
// Values are normalized to [0.0, 1.0] after polarity mapping; a digital line
// treats everything >= 0.5 as high.
// Writes must be fast, non-blocking channel updates; they are called from
// timer callbacks.
type Pin interface {
	// Write applies the given normalized value to the line.
	Write(value float64) error
	// Read returns the last applied normalized value.
	Read() (float64, error)
}

// TonePin is a PWM pin that can also change its carrier frequency,
// used by tone producing devices.
type TonePin interface {
	Pin
	// SetFrequency changes the PWM carrier frequency in Hz.
	SetFrequency(hz int) error
}

// OneShotTimer is the hardware timer contract.
// Arming schedules a single asynchronous callback at-or-after the given
// delay. A timer is re-armed from within its own callback to build
// periodic behavior without drift accumulation.
type OneShotTimer interface {
	// ArmOneShot schedules cb to fire once after d.
	ArmOneShot(d time.Duration, cb func())
	// Cancel stops a pending callback. It is safe to call when no
	// callback is pending and safe to call more than once.
	Cancel()
}

// Configurable is implemented by pins that need explicit setup and teardown,
// such as remote pins that hold a network connection.
type Configurable interface {
	// Configure is called once to put the pin in the desired state.
	Configure() error
	// Close brings the pin back to a safe state.
	Close() error
}
