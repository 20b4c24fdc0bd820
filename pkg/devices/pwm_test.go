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

package devices

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pulseworks/OutputWorker/pkg/channel"
	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

func TestPWMOutputSetValue(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue(0.25); err != nil {
		t.Fatal(err)
	}
	if state, _ := pin.Read(); state != 0.25 {
		t.Errorf("expected line at 0.25, got %f", state)
	}
	if v, _ := d.Value(); v[0] != 0.25 {
		t.Errorf("expected value 0.25, got %f", v[0])
	}
	if err := d.SetValue(1.5); !IsValidation(err) {
		t.Errorf("expected ValidationError for out of range value, got %v", err)
	}
}

func TestPWMOutputToggle(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4, InitialValue: 0.5}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Toggle(); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Value(); v[0] != 0 {
		t.Errorf("expected 0 after toggle, got %f", v[0])
	}
	if err := d.Toggle(); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Value(); v[0] != 1 {
		t.Errorf("expected 1 after second toggle, got %f", v[0])
	}
}

func TestPWMOutputBrightness(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetValue(1); err != nil {
		t.Fatal(err)
	}
	if err := d.SetBrightness(0.5); err != nil {
		t.Fatal(err)
	}
	// Brightness scales the line state, not the semantic value.
	if state, _ := pin.Read(); state != 0.5 {
		t.Errorf("expected line at 0.5, got %f", state)
	}
	if v, _ := d.Value(); v[0] != 1 {
		t.Errorf("expected value 1, got %f", v[0])
	}
	if err := d.SetBrightness(2); !IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestPWMOutputChannelConflict(t *testing.T) {
	deps, _ := newTestDeps()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led1", Pin: 6}, hal.NewVirtualPin(), deps)
	if err != nil {
		t.Fatal(err)
	}
	// Pin 22 shares the 3A channel with pin 6.
	_, err = NewPWMOutput(PWMOutputConfig{Name: "led2", Pin: 22}, hal.NewVirtualPin(), deps)
	if !channel.IsInUse(err) {
		t.Fatalf("expected InUseError, got %v", err)
	}
	if inUse, ok := channel.AsInUse(err); !ok || inUse.Owner != 6 {
		t.Errorf("expected conflict owned by pin 6, got %+v", inUse)
	}

	// Closing the first device frees the channel.
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	d2, err := NewPWMOutput(PWMOutputConfig{Name: "led2", Pin: 22}, hal.NewVirtualPin(), deps)
	if err != nil {
		t.Fatalf("expected channel to be free after close, got %v", err)
	}
	d2.Close()
}

func TestPWMOutputPulse(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	pin.Reset()
	if err := d.Pulse(context.Background(), PulseOptions{
		FadeIn:  200 * time.Millisecond,
		FadeOut: 200 * time.Millisecond,
		FPS:     25,
		Repeat:  sequencer.Times(1),
	}); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	for timer.Armed() {
		timer.Fire()
	}
	// Pattern start forces off, then 5 frames up, 5 frames down,
	// then the neutral value.
	want := []float64{0, 0, 0.2, 0.4, 0.6, 0.8, 1, 0.8, 0.6, 0.4, 0.2, 0}
	got := pin.Writes()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %v", len(want), got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("write %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestPWMOutputBlinkFadeFrames(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Blink(context.Background(), PWMBlinkOptions{
		OnTime:  100 * time.Millisecond,
		OffTime: 100 * time.Millisecond,
		FadeIn:  120 * time.Millisecond,
		FPS:     25,
	}); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	// Fade frames are 1/fps long.
	if timer.Delay() != 40*time.Millisecond {
		t.Errorf("expected 40ms frame, got %s", timer.Delay())
	}
	d.Stop()
	if timer.Armed() {
		t.Error("timer must be canceled by stop")
	}
}

func TestPWMOutputCloseReleasesChannel(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewPWMOutput(PWMOutputConfig{Name: "led", Pin: 4, InitialValue: 1}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if state, _ := pin.Read(); state != 0 {
		t.Errorf("expected line low after close, got %f", state)
	}
	if err := d.SetValue(1); !IsClosed(err) {
		t.Errorf("expected ClosedError, got %v", err)
	}
	if _, found := deps.Registry.Owner("2A"); found {
		t.Error("expected channel to be released on close")
	}
}
