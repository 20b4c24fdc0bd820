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

	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

func TestEventBusDeliversSequenceEvents(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	received := make(chan SequenceEvent, 1)
	cancel := bus.RegisterSequenceListener(func(evt SequenceEvent) error {
		received <- evt
		return nil
	})
	defer cancel()

	bus.publish(SequenceEvent{Device: "led", State: sequencer.StateCompleted})
	select {
	case evt := <-received:
		if evt.Device != "led" || evt.State != sequencer.StateCompleted {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestDeviceReportsTerminalState(t *testing.T) {
	deps, timers := newTestDeps()
	bus := NewEventBus(zerolog.Nop())
	deps.Events = bus

	received := make(chan SequenceEvent, 1)
	cancel := bus.RegisterSequenceListener(func(evt SequenceEvent) error {
		received <- evt
		return nil
	})
	defer cancel()

	d, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, hal.NewVirtualPin(), deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Blink(context.Background(), BlinkOptions{
		OnTime: time.Millisecond,
		Repeat: sequencer.Times(1),
	}); err != nil {
		t.Fatal(err)
	}
	timer := timers.last(t)
	for timer.Armed() {
		timer.Fire()
	}

	select {
	case evt := <-received:
		if evt.Device != "led" || evt.State != sequencer.StateCompleted {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("terminal event was not delivered")
	}
}
