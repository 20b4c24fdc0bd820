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

import (
	"time"

	"github.com/pkg/errors"
)

// CycleConfig describes one cycle over an ordered color palette.
// For every color the pattern optionally cross-fades from the next
// color in the palette into the current one, then holds the current
// color.
type CycleConfig struct {
	// Colors is the palette, one Value per color, all with the same
	// number of channels. Palettes where any component exceeds 1 are
	// treated as 0-255 and normalized.
	Colors []Value
	// FadeTime is the cross-fade time used for every color.
	FadeTime time.Duration
	// FadeTimes overrides FadeTime per color when non-empty.
	// Must have one entry per color.
	FadeTimes []time.Duration
	// OnTime is the hold time used for every color.
	OnTime time.Duration
	// OnTimes overrides OnTime per color when non-empty.
	// Must have one entry per color.
	OnTimes []time.Duration
	// FPS determines the number of fade steps per second.
	// Defaults to DefaultFPS when 0.
	FPS int
}

// NewColorCycle creates one cycle over the given palette.
func NewColorCycle(config CycleConfig) (Source, error) {
	if len(config.Colors) == 0 {
		return nil, errors.Wrap(InvalidConfigError, "palette cannot be empty")
	}
	channels := len(config.Colors[0])
	for _, c := range config.Colors[1:] {
		if len(c) != channels {
			return nil, errors.Wrapf(InvalidConfigError, "palette colors must all have %d channels", channels)
		}
	}
	if len(config.FadeTimes) != 0 && len(config.FadeTimes) != len(config.Colors) {
		return nil, errors.Wrap(InvalidConfigError, "fade times must have one entry per color")
	}
	if len(config.OnTimes) != 0 && len(config.OnTimes) != len(config.Colors) {
		return nil, errors.Wrap(InvalidConfigError, "on times must have one entry per color")
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}

	src := &cycleSource{
		colors: normalizePalette(config.Colors),
		fades:  expandTimes(config.FadeTime, config.FadeTimes, len(config.Colors)),
		holds:  expandTimes(config.OnTime, config.OnTimes, len(config.Colors)),
		fps:    config.FPS,
	}
	return src, nil
}

type cycleSource struct {
	colors []Value
	fades  []time.Duration
	holds  []time.Duration
	fps    int

	color  int
	inHold bool
	index  int
}

func (s *cycleSource) Next() (Step, bool) {
	frame := time.Second / time.Duration(s.fps)
	for s.color < len(s.colors) {
		if !s.inHold {
			total := fadeSteps(s.fps, s.fades[s.color])
			if s.index < total {
				t := float64(s.index) / (float64(s.fps) * s.fades[s.color].Seconds())
				next := s.colors[(s.color+1)%len(s.colors)]
				s.index++
				return Step{Value: lerp(t, next, s.colors[s.color]), Duration: frame}, true
			}
			s.inHold = true
		}
		if hold := s.holds[s.color]; hold > 0 {
			value := s.colors[s.color]
			s.advanceColor()
			return Step{Value: value, Duration: hold}, true
		}
		s.advanceColor()
	}
	return Step{}, false
}

func (s *cycleSource) Restart() {
	s.color = 0
	s.inHold = false
	s.index = 0
}

func (s *cycleSource) advanceColor() {
	s.color++
	s.inHold = false
	s.index = 0
}

// lerp combines two colors component wise: at t=0 the result is from,
// at t=1 the result is to.
func lerp(t float64, from, to Value) Value {
	result := make(Value, len(from))
	for i := range from {
		result[i] = (1-t)*from[i] + t*to[i]
	}
	return result
}

// normalizePalette detects 0-255 palettes (any component above 1) and
// scales them down to 0.0-1.0.
func normalizePalette(colors []Value) []Value {
	scale := false
	for _, c := range colors {
		for _, v := range c {
			if v > 1 {
				scale = true
			}
		}
	}
	result := make([]Value, len(colors))
	for i, c := range colors {
		nc := make(Value, len(c))
		for j, v := range c {
			if scale && v != 0 {
				nc[j] = v / 255
			} else {
				nc[j] = v
			}
		}
		result[i] = nc
	}
	return result
}

// expandTimes resolves a uniform duration plus optional per color
// overrides into one duration per color.
func expandTimes(uniform time.Duration, overrides []time.Duration, n int) []time.Duration {
	result := make([]time.Duration, n)
	for i := range result {
		if len(overrides) != 0 {
			result[i] = overrides[i]
		} else {
			result[i] = uniform
		}
	}
	return result
}
