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

import "sync"

// VirtualPin is an in-memory pin that records every value written to it.
// It is used on hosts without hardware, and by tests to observe the
// exact write sequence a pattern produced.
type VirtualPin struct {
	mutex  sync.Mutex
	value  float64
	freq   int
	writes []float64
}

var _ TonePin = &VirtualPin{}

// NewVirtualPin creates a pin that is not connected to any hardware.
func NewVirtualPin() *VirtualPin {
	return &VirtualPin{}
}

// Write applies the given normalized value to the pin.
func (p *VirtualPin) Write(value float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.value = value
	p.writes = append(p.writes, value)
	return nil
}

// Read returns the last applied normalized value.
func (p *VirtualPin) Read() (float64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.value, nil
}

// SetFrequency records the PWM carrier frequency.
func (p *VirtualPin) SetFrequency(hz int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.freq = hz
	return nil
}

// Frequency returns the last recorded carrier frequency.
func (p *VirtualPin) Frequency() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.freq
}

// Writes returns a copy of all values written so far.
func (p *VirtualPin) Writes() []float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	result := make([]float64, len(p.writes))
	copy(result, p.writes)
	return result
}

// Reset clears the recorded write history.
func (p *VirtualPin) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.writes = nil
}
