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

// PWMOutputConfig configures a PWM backed output such as a dimmable
// LED.
type PWMOutputConfig struct {
	// Name of the device.
	Name string
	// Pin is the GPIO pin number, used to derive the PWM channel.
	Pin int
	// ActiveLow inverts the polarity.
	ActiveLow bool
	// InitialValue is applied at construction (0-1).
	InitialValue float64
}

// PWMOutput is an output device with continuous intensity.
// Construction acquires the pin's PWM channel; a second device on the
// same channel fails fast with a channel.InUseError.
type PWMOutput struct {
	log       zerolog.Logger
	name      string
	pin       hal.Pin
	pinNumber int
	activeLow bool
	deps      Dependencies

	change changer
	mutex  sync.Mutex
	closed bool

	// brightness scales every written value.
	brightness float64
	// value is the last applied semantic value.
	value float64
}

var _ Device = &PWMOutput{}

// NewPWMOutput creates a PWM output device on the given pin.
func NewPWMOutput(config PWMOutputConfig, pin hal.Pin, deps Dependencies) (*PWMOutput, error) {
	if config.Name == "" {
		return nil, errors.Wrap(ValidationError, "Name cannot be empty")
	}
	if pin == nil {
		return nil, errors.Wrap(ValidationError, "Pin cannot be nil")
	}
	if deps.Registry == nil {
		return nil, errors.Wrap(ValidationError, "Registry cannot be nil")
	}
	if err := deps.Registry.Acquire(config.Pin); err != nil {
		channelConflictsTotal.Inc()
		return nil, maskAny(err)
	}
	d := &PWMOutput{
		log:        deps.Log.With().Str("device", config.Name).Logger(),
		name:       config.Name,
		pin:        pin,
		pinNumber:  config.Pin,
		activeLow:  config.ActiveLow,
		deps:       deps,
		brightness: 1,
	}
	if err := d.write(config.InitialValue); err != nil {
		deps.Registry.Release(config.Pin)
		return nil, maskAny(err)
	}
	devicesCreatedTotal.WithLabelValues(d.Kind()).Inc()
	return d, nil
}

// Name of the device.
func (d *PWMOutput) Name() string {
	return d.name
}

// Kind of the device.
func (d *PWMOutput) Kind() string {
	return "pwm-output"
}

// On sets the device to full intensity, canceling any running
// pattern.
func (d *PWMOutput) On() error {
	return d.SetValue(1)
}

// Off turns the device off, canceling any running pattern.
func (d *PWMOutput) Off() error {
	return d.SetValue(0)
}

// Toggle turns the device off when lit, on otherwise.
func (d *PWMOutput) Toggle() error {
	v, err := d.Value()
	if err != nil {
		return maskAny(err)
	}
	if v[0] > 0 {
		return d.Off()
	}
	return d.On()
}

// SetValue cancels any running pattern and applies the given
// intensity (0-1).
func (d *PWMOutput) SetValue(value float64) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	if value < 0 || value > 1 {
		return errors.Wrapf(ValidationError, "value %f out of range [0..1]", value)
	}
	d.change.stop()
	return maskAny(d.write(value))
}

// Value returns the last applied intensity.
func (d *PWMOutput) Value() (sequence.Value, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return sequence.Scalar(d.value), nil
}

// SetBrightness scales all subsequently written values (0-1).
func (d *PWMOutput) SetBrightness(brightness float64) error {
	if brightness < 0 || brightness > 1 {
		return errors.Wrapf(ValidationError, "brightness %f out of range [0..1]", brightness)
	}
	d.mutex.Lock()
	d.brightness = brightness
	value := d.value
	d.mutex.Unlock()

	// Re-apply so the change is visible immediately.
	return maskAny(d.write(value))
}

// Brightness returns the current brightness scale.
func (d *PWMOutput) Brightness() float64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.brightness
}

// PWMBlinkOptions control a fading blink pattern.
type PWMBlinkOptions struct {
	// OnTime is the time spent at full intensity.
	// Defaults to 1s when 0.
	OnTime time.Duration
	// OffTime is the time spent off. Defaults to OnTime when 0.
	OffTime time.Duration
	// FadeIn is the ramp up time. No ramp when 0.
	FadeIn time.Duration
	// FadeOut is the ramp down time. Defaults to FadeIn when 0.
	FadeOut time.Duration
	// FPS is the fade frame rate. Defaults to sequence.DefaultFPS.
	FPS int
	// Repeat controls the number of cycles. Defaults to forever.
	Repeat sequencer.Repeat
	// Wait blocks until the pattern reaches a terminal state.
	Wait bool
}

// Blink fades the device on and off repeatedly.
// Any running pattern is stopped and replaced.
func (d *PWMOutput) Blink(ctx context.Context, opts PWMBlinkOptions) error {
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
	fadeOut := opts.FadeOut
	if fadeOut == 0 {
		fadeOut = opts.FadeIn
	}
	config := sequence.FadeConfig{
		FadeIn:  opts.FadeIn,
		OnTime:  onTime,
		FadeOut: fadeOut,
		OffTime: offTime,
		FPS:     opts.FPS,
	}
	return maskAny(d.startPattern(ctx, func() sequence.Source {
		return sequence.NewFadeBlink(config)
	}, opts.Repeat, opts.Wait))
}

// PulseOptions control a pure fade cycle.
type PulseOptions struct {
	// FadeIn is the ramp up time. Defaults to 1s when 0.
	FadeIn time.Duration
	// FadeOut is the ramp down time. Defaults to FadeIn when 0.
	FadeOut time.Duration
	// FPS is the fade frame rate. Defaults to sequence.DefaultFPS.
	FPS int
	// Repeat controls the number of cycles. Defaults to forever.
	Repeat sequencer.Repeat
	// Wait blocks until the pattern reaches a terminal state.
	Wait bool
}

// Pulse fades the device in and out without hold phases.
// Any running pattern is stopped and replaced.
func (d *PWMOutput) Pulse(ctx context.Context, opts PulseOptions) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	fadeIn := opts.FadeIn
	if fadeIn == 0 {
		fadeIn = time.Second
	}
	fadeOut := opts.FadeOut
	if fadeOut == 0 {
		fadeOut = fadeIn
	}
	fps := opts.FPS
	return maskAny(d.startPattern(ctx, func() sequence.Source {
		return sequence.NewPulse(fadeIn, fadeOut, fps)
	}, opts.Repeat, opts.Wait))
}

// Stop cancels a running pattern, leaving the last applied value.
func (d *PWMOutput) Stop() {
	d.change.stop()
}

// Close stops any pattern, turns the device off and releases its PWM
// channel.
func (d *PWMOutput) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	d.mutex.Unlock()

	d.change.stop()
	err := d.write(0)
	d.deps.Registry.Release(d.pinNumber)
	devicesClosedTotal.WithLabelValues(d.Kind()).Inc()
	return maskAny(err)
}

// startPattern builds a sequencer for the given source factory and
// starts it, replacing any running pattern.
func (d *PWMOutput) startPattern(ctx context.Context, factory func() sequence.Source, repeat sequencer.Repeat, wait bool) error {
	d.change.stop()
	if err := d.write(0); err != nil {
		return maskAny(err)
	}
	seq, err := sequencer.New(sequencer.Config{
		Factory: factory,
		Repeat:  repeat,
	}, sequencer.Dependencies{
		Log:        d.log,
		Sink:       sequencer.SinkFunc(d.apply),
		Timer:      d.deps.newTimer(),
		OnTerminal: d.onTerminal,
	})
	if err != nil {
		return maskAny(err)
	}
	return maskAny(d.change.start(ctx, seq, wait))
}

// apply is the sequencer sink.
func (d *PWMOutput) apply(value sequence.Value) error {
	if len(value) != 1 {
		return errors.Wrapf(ValidationError, "expected 1 channel, got %d", len(value))
	}
	return d.write(value[0])
}

// write scales the value by brightness, applies the polarity mapping
// and drives the pin.
func (d *PWMOutput) write(value float64) error {
	d.mutex.Lock()
	state := value * d.brightness
	if d.activeLow {
		state = 1 - state
	}
	d.mutex.Unlock()

	if err := d.pin.Write(state); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.value = value
	d.mutex.Unlock()
	return nil
}

// check returns an error when the device has been closed.
func (d *PWMOutput) check() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return maskAny(ClosedError)
	}
	return nil
}

// onTerminal publishes the terminal state of a pattern.
func (d *PWMOutput) onTerminal(state sequencer.State) {
	if d.deps.Events != nil {
		d.deps.Events.publish(SequenceEvent{Device: d.name, State: state})
	}
}
