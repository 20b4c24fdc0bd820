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
	"testing"

	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/hal"
)

func TestServiceRegisterAndLookup(t *testing.T) {
	deps, _ := newTestDeps()
	svc := NewService(zerolog.Nop())

	led, err := NewDigitalOutput(DigitalOutputConfig{Name: "led"}, hal.NewVirtualPin(), deps)
	if err != nil {
		t.Fatal(err)
	}
	buzzer, err := NewToneOutput(ToneOutputConfig{Name: "buzzer", Pin: 8}, hal.NewVirtualPin(), deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(led); err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(buzzer); err != nil {
		t.Fatal(err)
	}

	if dev, ok := svc.DeviceByName("led"); !ok || dev.Kind() != "digital-output" {
		t.Errorf("expected digital-output 'led', got %v (found=%v)", dev, ok)
	}
	if _, ok := svc.DeviceByName("nope"); ok {
		t.Error("expected lookup miss")
	}

	names := svc.DeviceNames()
	if len(names) != 2 || names[0] != "buzzer" || names[1] != "led" {
		t.Errorf("expected sorted names [buzzer led], got %v", names)
	}

	// Duplicate names are rejected.
	if err := svc.Register(led); !IsValidation(err) {
		t.Errorf("expected ValidationError for duplicate name, got %v", err)
	}
}

func TestServiceClose(t *testing.T) {
	deps, _ := newTestDeps()
	svc := NewService(zerolog.Nop())

	pin := hal.NewVirtualPin()
	led, err := NewDigitalOutput(DigitalOutputConfig{Name: "led", InitialOn: true}, pin, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(led); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if state, _ := pin.Read(); state != 0 {
		t.Errorf("expected device off after service close, got %f", state)
	}
	if len(svc.DeviceNames()) != 0 {
		t.Error("expected no devices after close")
	}
}
