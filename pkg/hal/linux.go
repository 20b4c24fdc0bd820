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

import (
	"sync"

	"github.com/ecc1/gpio"
)

// linuxPin drives a sysfs GPIO line through github.com/ecc1/gpio.
// The line is digital only; writes are thresholded at 0.5.
type linuxPin struct {
	mutex sync.Mutex
	pin   gpio.OutputPin
	value float64
}

// NewLinuxPin initializes a GPIO output pin with the given pin number.
// Polarity mapping happens in the device layer, so the line is always
// opened active-high here.
func NewLinuxPin(pinNumber int) (Pin, error) {
	activeLow := false
	initialValue := false
	pin, err := gpio.Output(pinNumber, activeLow, initialValue)
	if err != nil {
		return nil, maskAny(err)
	}
	return &linuxPin{pin: pin}, nil
}

// Write applies the given normalized value to the line.
func (p *linuxPin) Write(value float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.pin.Write(value >= 0.5); err != nil {
		return maskAny(err)
	}
	p.value = value
	return nil
}

// Read returns the last applied normalized value.
func (p *linuxPin) Read() (float64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.value, nil
}
