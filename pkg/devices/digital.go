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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequence"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

// DigitalOutputConfig configures a simple on/off output such as an
// LED without brightness control or an active buzzer.
type DigitalOutputConfig struct {
	// Name of the device.
	Name string
	// ActiveLow inverts the polarity: On drives the line low.
	ActiveLow bool
	// InitialOn turns the device on at construction.
	InitialOn bool
}

// DigitalOutput is a binary output device.
type DigitalOutput struct {
	log       zerolog.Logger
	name      string
	pin       hal.Pin
	activeLow bool
	deps      Dependencies

	change changer
	mutex  sync.Mutex
	closed bool
}

var _ Device = &DigitalOutput{}

// NewDigitalOutput creates a binary output device on the given pin.
func NewDigitalOutput(config DigitalOutputConfig, pin hal.Pin, deps Dependencies) (*DigitalOutput, error) {
	if config.Name == "" {
		return nil, errors.Wrap(ValidationError, "Name cannot be empty")
	}
	if pin == nil {
		return nil, errors.Wrap(ValidationError, "Pin cannot be nil")
	}
	d := &DigitalOutput{
		log:       deps.Log.With().Str("device", config.Name).Logger(),
		name:      config.Name,
		pin:       pin,
		activeLow: config.ActiveLow,
		deps:      deps,
	}
	initial := 0.0
	if config.InitialOn {
		initial = 1
	}
	if err := d.write(initial); err != nil {
		return nil, maskAny(err)
	}
	devicesCreatedTotal.WithLabelValues(d.Kind()).Inc()
	return d, nil
}

// Name of the device.
func (d *DigitalOutput) Name() string {
	return d.name
}

// Kind of the device.
func (d *DigitalOutput) Kind() string {
	return "digital-output"
}

// On turns the device on, canceling any running pattern.
func (d *DigitalOutput) On() error {
	return d.SetValue(1)
}

// Off turns the device off, canceling any running pattern.
func (d *DigitalOutput) Off() error {
	return d.SetValue(0)
}

// Toggle turns the device on when off and off when on.
func (d *DigitalOutput) Toggle() error {
	active, err := d.IsActive()
	if err != nil {
		return maskAny(err)
	}
	if active {
		return d.Off()
	}
	return d.On()
}

// SetValue cancels any running pattern and applies the given value
// (0 is off, everything >= 0.5 is on).
func (d *DigitalOutput) SetValue(value float64) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	d.change.stop()
	return maskAny(d.write(value))
}

// Value returns the current value of the device: 1 when on, 0 when
// off, independent of polarity.
func (d *DigitalOutput) Value() (sequence.Value, error) {
	state, err := d.pin.Read()
	if err != nil {
		return nil, maskAny(err)
	}
	return sequence.Scalar(d.mapLevel(state)), nil
}

// IsActive returns true when the device is on.
func (d *DigitalOutput) IsActive() (bool, error) {
	v, err := d.Value()
	if err != nil {
		return false, maskAny(err)
	}
	return v[0] >= 0.5, nil
}

// BlinkOptions control a binary blink pattern.
type BlinkOptions struct {
	// OnTime is the time spent on. Defaults to 1s when 0.
	OnTime time.Duration
	// OffTime is the time spent off. Defaults to OnTime when 0.
	OffTime time.Duration
	// Repeat controls the number of cycles. Defaults to forever.
	Repeat sequencer.Repeat
	// Wait blocks until the pattern reaches a terminal state.
	// Combined with the default Repeat this blocks until Stop is
	// called; that is by design.
	Wait bool
}

// Blink turns the device on and off repeatedly.
// Any running pattern is stopped and replaced.
func (d *DigitalOutput) Blink(ctx context.Context, opts BlinkOptions) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	onTime := opts.OnTime
	if onTime == 0 {
		onTime = time.Second
	}
	offTime := opts.OffTime
	if offTime == 0 {
		offTime = onTime
	}

	d.change.stop()
	if err := d.write(0); err != nil {
		return maskAny(err)
	}
	seq, err := sequencer.New(sequencer.Config{
		Factory: func() sequence.Source {
			return sequence.NewBinaryBlink(onTime, offTime)
		},
		Repeat: opts.Repeat,
	}, sequencer.Dependencies{
		Log:        d.log,
		Sink:       sequencer.SinkFunc(d.apply),
		Timer:      d.deps.newTimer(),
		OnTerminal: d.onTerminal,
	})
	if err != nil {
		return maskAny(err)
	}
	return maskAny(d.change.start(ctx, seq, opts.Wait))
}

// Stop cancels a running pattern, leaving the last applied value.
func (d *DigitalOutput) Stop() {
	d.change.stop()
}

// Close stops any pattern and turns the device off.
func (d *DigitalOutput) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	d.mutex.Unlock()

	d.change.stop()
	devicesClosedTotal.WithLabelValues(d.Kind()).Inc()
	return maskAny(d.write(0))
}

// apply is the sequencer sink.
func (d *DigitalOutput) apply(value sequence.Value) error {
	if len(value) != 1 {
		return errors.Wrapf(ValidationError, "expected 1 channel, got %d", len(value))
	}
	return d.write(value[0])
}

// write applies the polarity mapping and drives the pin.
func (d *DigitalOutput) write(value float64) error {
	if err := d.pin.Write(d.mapLevel(value)); err != nil {
		return maskAny(err)
	}
	return nil
}

// mapLevel converts between semantic value and line state.
// The mapping is its own inverse.
func (d *DigitalOutput) mapLevel(value float64) float64 {
	if d.activeLow {
		return 1 - value
	}
	return value
}

// check returns an error when the device has been closed.
func (d *DigitalOutput) check() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return maskAny(ClosedError)
	}
	return nil
}

// onTerminal publishes the terminal state of a pattern.
func (d *DigitalOutput) onTerminal(state sequencer.State) {
	if d.deps.Events != nil {
		d.deps.Events.publish(SequenceEvent{Device: d.name, State: state})
	}
}
