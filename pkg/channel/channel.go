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

// Package channel tracks ownership of physical PWM channels.
// Two pins can share one PWM slice output; driving both from
// independent logical devices silently corrupts the duty cycle, so a
// device must acquire its channel before use.
package channel

import "github.com/pkg/errors"

// ID identifies a physical PWM channel: a slice number plus the A or
// B output, e.g. "3A".
type ID string

// pinToChannel maps GPIO pin numbers to their PWM channel.
// The 8 slices with 2 outputs each repeat after pin 15.
var pinToChannel = []ID{
	"0A", "0B", "1A", "1B", "2A", "2B", "3A", "3B",
	"4A", "4B", "5A", "5B", "6A", "6B", "7A", "7B",
	"0A", "0B", "1A", "1B", "2A", "2B", "3A", "3B",
	"4A", "4B", "5A", "5B", "6A", "6B",
}

// ForPin returns the PWM channel of the given GPIO pin.
func ForPin(pin int) (ID, error) {
	if pin < 0 || pin >= len(pinToChannel) {
		return "", errors.Wrapf(InvalidPinError, "pin %d out of range [0..%d]", pin, len(pinToChannel)-1)
	}
	return pinToChannel[pin], nil
}
