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
	"math"
	"testing"
	"time"
)

func assertValueNear(t *testing.T, got, want Value) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d channels, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > valueTolerance {
			t.Fatalf("channel %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestColorCycleHoldOnly(t *testing.T) {
	red := Value{1, 0, 0}
	green := Value{0, 1, 0}
	src, err := NewColorCycle(CycleConfig{
		Colors: []Value{red, green},
		OnTime: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	steps := collect(t, src)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	assertValueNear(t, steps[0].Value, red)
	assertValueNear(t, steps[1].Value, green)
	for i, step := range steps {
		if step.Duration != time.Second {
			t.Errorf("step %d: expected duration 1s, got %s", i, step.Duration)
		}
	}
}

func TestColorCycleFade(t *testing.T) {
	red := Value{1, 0, 0}
	green := Value{0, 1, 0}
	src, err := NewColorCycle(CycleConfig{
		Colors:   []Value{red, green},
		FadeTime: 200 * time.Millisecond,
		OnTime:   time.Second,
		FPS:      25,
	})
	if err != nil {
		t.Fatal(err)
	}
	steps := collect(t, src)
	// Per color: 5 fade frames plus one hold step.
	if len(steps) != 12 {
		t.Fatalf("expected 12 steps, got %d", len(steps))
	}
	// Fading into red starts at the full follow-up color (green) and
	// approaches red.
	assertValueNear(t, steps[0].Value, green)
	assertValueNear(t, steps[1].Value, Value{0.2, 0.8, 0})
	assertValueNear(t, steps[4].Value, Value{0.8, 0.2, 0})
	assertValueNear(t, steps[5].Value, red)
	if steps[5].Duration != time.Second {
		t.Errorf("expected 1s hold, got %s", steps[5].Duration)
	}
	// Second color fades from red into green.
	assertValueNear(t, steps[6].Value, red)
	assertValueNear(t, steps[7].Value, Value{0.8, 0.2, 0})
	assertValueNear(t, steps[11].Value, green)
	frame := 40 * time.Millisecond
	if steps[0].Duration != frame {
		t.Errorf("expected frame duration %s, got %s", frame, steps[0].Duration)
	}
}

func TestColorCyclePerColorTimes(t *testing.T) {
	src, err := NewColorCycle(CycleConfig{
		Colors:  []Value{{1, 0, 0}, {0, 1, 0}},
		OnTimes: []time.Duration{time.Second, time.Second / 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	steps := collect(t, src)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Duration != time.Second || steps[1].Duration != time.Second/4 {
		t.Errorf("unexpected hold durations: %s, %s", steps[0].Duration, steps[1].Duration)
	}
}

func TestColorCycleNormalizesPalette(t *testing.T) {
	scaled, err := NewColorCycle(CycleConfig{
		Colors: []Value{{255, 0, 0}, {0, 255, 0}},
		OnTime: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	unit, err := NewColorCycle(CycleConfig{
		Colors: []Value{{1, 0, 0}, {0, 1, 0}},
		OnTime: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	scaledSteps := collect(t, scaled)
	unitSteps := collect(t, unit)
	if len(scaledSteps) != len(unitSteps) {
		t.Fatalf("step counts differ: %d vs %d", len(scaledSteps), len(unitSteps))
	}
	for i := range scaledSteps {
		assertValueNear(t, scaledSteps[i].Value, unitSteps[i].Value)
	}
}

func TestColorCycleRestart(t *testing.T) {
	src, err := NewColorCycle(CycleConfig{
		Colors:   []Value{{1, 0, 0}, {0, 0, 1}},
		FadeTime: 120 * time.Millisecond,
		OnTime:   time.Second / 2,
		FPS:      25,
	})
	if err != nil {
		t.Fatal(err)
	}
	first := collect(t, src)
	src.Restart()
	second := collect(t, src)
	if len(first) != len(second) {
		t.Fatalf("restart changed step count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Value.Equals(second[i].Value) || first[i].Duration != second[i].Duration {
			t.Errorf("step %d differs after restart: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestColorCycleValidation(t *testing.T) {
	if _, err := NewColorCycle(CycleConfig{}); !IsInvalidConfig(err) {
		t.Errorf("expected InvalidConfigError for empty palette, got %v", err)
	}
	if _, err := NewColorCycle(CycleConfig{
		Colors: []Value{{1, 0, 0}, {0, 1}},
	}); !IsInvalidConfig(err) {
		t.Errorf("expected InvalidConfigError for mixed channel counts, got %v", err)
	}
	if _, err := NewColorCycle(CycleConfig{
		Colors:    []Value{{1, 0, 0}, {0, 1, 0}},
		FadeTimes: []time.Duration{time.Second},
	}); !IsInvalidConfig(err) {
		t.Errorf("expected InvalidConfigError for short fade times, got %v", err)
	}
	if _, err := NewColorCycle(CycleConfig{
		Colors:  []Value{{1, 0, 0}, {0, 1, 0}},
		OnTimes: []time.Duration{time.Second},
	}); !IsInvalidConfig(err) {
		t.Errorf("expected InvalidConfigError for short on times, got %v", err)
	}
}
