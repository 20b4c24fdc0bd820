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

import "time"

// DefaultFPS is the frame rate used for fades when none is given.
const DefaultFPS = 25

// NewBinaryBlink creates one on/off cycle: full on for onTime, full
// off for offTime.
func NewBinaryBlink(onTime, offTime time.Duration) Source {
	return NewSteps(
		Step{Value: Scalar(1), Duration: onTime},
		Step{Value: Scalar(0), Duration: offTime},
	)
}

// FadeConfig describes one cycle of a single channel fade pattern.
// Zero length phases emit no steps.
type FadeConfig struct {
	// FadeIn is the time spent ramping from 0 to 1.
	FadeIn time.Duration
	// OnTime is the time spent holding 1.
	OnTime time.Duration
	// FadeOut is the time spent ramping from 1 to 0.
	FadeOut time.Duration
	// OffTime is the time spent holding 0.
	OffTime time.Duration
	// FPS determines the number of fade steps per second.
	// Defaults to DefaultFPS when 0.
	FPS int
}

// NewFadeBlink creates one fade-in / hold / fade-out / hold cycle.
// A fade phase of length T at fps frames per second emits
// floor(fps*T) steps of duration 1/fps each; fade-in step i has value
// i/(fps*T), fade-out step i has value 1-i/(fps*T).
func NewFadeBlink(config FadeConfig) Source {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	return &fadeSource{config: config}
}

// NewPulse creates a pure triangular fade cycle: a fade blink with
// both hold phases forced to zero.
func NewPulse(fadeIn, fadeOut time.Duration, fps int) Source {
	return NewFadeBlink(FadeConfig{
		FadeIn:  fadeIn,
		FadeOut: fadeOut,
		FPS:     fps,
	})
}

const (
	phaseFadeIn = iota
	phaseOn
	phaseFadeOut
	phaseOff
	phaseDone
)

type fadeSource struct {
	config FadeConfig
	phase  int
	index  int
}

func (s *fadeSource) Next() (Step, bool) {
	fps := s.config.FPS
	frame := time.Second / time.Duration(fps)
	for {
		switch s.phase {
		case phaseFadeIn:
			total := fadeSteps(fps, s.config.FadeIn)
			if s.index < total {
				v := float64(s.index) / (float64(fps) * s.config.FadeIn.Seconds())
				s.index++
				return Step{Value: Scalar(v), Duration: frame}, true
			}
		case phaseOn:
			if s.config.OnTime > 0 {
				s.phase++
				s.index = 0
				return Step{Value: Scalar(1), Duration: s.config.OnTime}, true
			}
		case phaseFadeOut:
			total := fadeSteps(fps, s.config.FadeOut)
			if s.index < total {
				v := 1 - float64(s.index)/(float64(fps)*s.config.FadeOut.Seconds())
				s.index++
				return Step{Value: Scalar(v), Duration: frame}, true
			}
		case phaseOff:
			if s.config.OffTime > 0 {
				s.phase++
				s.index = 0
				return Step{Value: Scalar(0), Duration: s.config.OffTime}, true
			}
		default:
			return Step{}, false
		}
		s.phase++
		s.index = 0
	}
}

func (s *fadeSource) Restart() {
	s.phase = phaseFadeIn
	s.index = 0
}

// fadeSteps returns the number of frames in a fade phase of the given
// length.
func fadeSteps(fps int, length time.Duration) int {
	if length <= 0 {
		return 0
	}
	return int(float64(fps) * length.Seconds())
}
