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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/channel"
	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

// timerFactory hands out manual timers and remembers them, so tests
// can drive the patterns a device starts.
type timerFactory struct {
	timers []*hal.ManualTimer
}

func (f *timerFactory) new() hal.OneShotTimer {
	t := &hal.ManualTimer{}
	f.timers = append(f.timers, t)
	return t
}

func (f *timerFactory) last(t *testing.T) *hal.ManualTimer {
	t.Helper()
	if len(f.timers) == 0 {
		t.Fatal("no pattern has been started")
	}
	return f.timers[len(f.timers)-1]
}

func newTestDeps() (Dependencies, *timerFactory) {
	timers := &timerFactory{}
	return Dependencies{
		Log:      zerolog.Nop(),
		Registry: channel.NewRegistry(),
		NewTimer: timers.new,
	}, timers
}

func assertWrites(t *testing.T, pin *hal.VirtualPin, want []float64) {
	t.Helper()
	got := pin.Writes()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes %v, got %v", len(want), want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d: expected %f, got %v", i, want[i], got)
		}
	}
}

func TestDigitalOutputOnOff(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.On(); err != nil {
		t.Fatal(err)
	}
	if active, _ := d.IsActive(); !active {
		t.Error("expected device to be active after On")
	}
	if err := d.Off(); err != nil {
		t.Fatal(err)
	}
	if active, _ := d.IsActive(); active {
		t.Error("expected device to be inactive after Off")
	}
	// Construction writes the initial off state.
	assertWrites(t, pin, []float64{0, 1, 0})
}

func TestDigitalOutputToggle(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led", InitialOn: true}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Toggle(); err != nil {
		t.Fatal(err)
	}
	if active, _ := d.IsActive(); active {
		t.Error("expected device off after toggle")
	}
	if err := d.Toggle(); err != nil {
		t.Fatal(err)
	}
	if active, _ := d.IsActive(); !active {
		t.Error("expected device on after second toggle")
	}
}

func TestDigitalOutputActiveLow(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led", ActiveLow: true}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	// Off drives the line high.
	if state, _ := pin.Read(); state != 1 {
		t.Errorf("expected line high while off, got %f", state)
	}
	if err := d.On(); err != nil {
		t.Fatal(err)
	}
	if state, _ := pin.Read(); state != 0 {
		t.Errorf("expected line low while on, got %f", state)
	}
	// The semantic value is independent of polarity.
	if v, _ := d.Value(); v[0] != 1 {
		t.Errorf("expected semantic value 1, got %f", v[0])
	}
}

func TestDigitalOutputBlink(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	pin.Reset()

	if err := d.Blink(context.Background(), BlinkOptions{
		OnTime:  100 * time.Millisecond,
		OffTime: 50 * time.Millisecond,
		Repeat:  sequencer.Times(2),
	}); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	if timer.Delay() != 100*time.Millisecond {
		t.Errorf("expected 100ms on phase, got %s", timer.Delay())
	}
	for timer.Armed() {
		timer.Fire()
	}
	// Pattern start forces off, then 2 on/off cycles, then the
	// neutral value.
	assertWrites(t, pin, []float64{0, 1, 0, 1, 0, 0})
}

func TestDigitalOutputBlinkDefaultOffTime(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Blink(context.Background(), BlinkOptions{
		OnTime: 200 * time.Millisecond,
	}); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	timer.Fire()
	// The off phase reuses the on time.
	if timer.Delay() != 200*time.Millisecond {
		t.Errorf("expected 200ms off phase, got %s", timer.Delay())
	}
	d.Stop()
}

func TestDigitalOutputSetValueCancelsPattern(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Blink(context.Background(), BlinkOptions{OnTime: time.Second}); err != nil {
		t.Fatal(err)
	}
	if err := d.On(); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	if timer.Fire() {
		t.Error("pattern timer must be canceled by SetValue")
	}
	if active, _ := d.IsActive(); !active {
		t.Error("expected device on")
	}
}

func TestDigitalOutputBlinkSupersedes(t *testing.T) {
	deps, timers := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Blink(context.Background(), BlinkOptions{OnTime: time.Second}); err != nil {
		t.Fatal(err)
	}
	first := timers.last(t)
	if err := d.Blink(context.Background(), BlinkOptions{OnTime: time.Second / 2}); err != nil {
		t.Fatal(err)
	}
	second := timers.last(t)
	if first == second {
		t.Fatal("expected a fresh timer for the second pattern")
	}
	if first.Fire() {
		t.Error("first pattern must be stopped when superseded")
	}
	if !second.Armed() {
		t.Error("second pattern must be running")
	}
	d.Stop()
}

func TestDigitalOutputClose(t *testing.T) {
	deps, _ := newTestDeps()
	pin := hal.NewVirtualPin()
	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led", InitialOn: true}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	// Close turns the device off.
	if state, _ := pin.Read(); state != 0 {
		t.Errorf("expected line low after close, got %f", state)
	}
	if err := d.On(); !IsClosed(err) {
		t.Errorf("expected ClosedError, got %v", err)
	}
	// Close is idempotent.
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDigitalOutputValidation(t *testing.T) {
	deps, _ := newTestDeps()
	if _, err := NewDigitalOutput(DigitalOutputConfig{}, hal.NewVirtualPin(), deps); !IsValidation(err) {
		t.Errorf("expected ValidationError for empty name, got %v", err)
	}
	if _, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, nil, deps); !IsValidation(err) {
		t.Errorf("expected ValidationError for nil pin, got %v", err)
	}
}
