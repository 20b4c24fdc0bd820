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

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequence"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

var (
	// DefaultPalette is the palette used by RGB patterns when none
	// is given.
	DefaultPalette = []sequence.Value{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	// DefaultPulsePalette fades each primary color in and out via
	// black.
	DefaultPulsePalette = []sequence.Value{
		{0, 0, 0}, {1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {0, 0, 0}, {0, 0, 1},
	}

	rgbNeutral = sequence.Value{0, 0, 0}
	rgbWhite   = sequence.Value{1, 1, 1}
)

// RGBOutputConfig configures a three channel PWM output such as a
// common cathode RGB LED.
type RGBOutputConfig struct {
	// Name of the device.
	Name string
	// RedPin, GreenPin and BluePin are GPIO pin numbers, used to
	// derive the PWM channels.
	RedPin   int
	GreenPin int
	BluePin  int
	// ActiveLow inverts the polarity of all three channels.
	ActiveLow bool
}

// RGBOutput is a three channel output device.
// Construction acquires all three PWM channels or fails without
// registering anything.
type RGBOutput struct {
	log        zerolog.Logger
	name       string
	pins       [3]hal.Pin
	pinNumbers [3]int
	activeLow  bool
	deps       Dependencies

	change changer
	mutex  sync.Mutex
	closed bool
	value  sequence.Value
	// last remembers the color before the device was toggled off.
	last sequence.Value
}

var _ Device = &RGBOutput{}

// NewRGBOutput creates an RGB output device on the given pins.
func NewRGBOutput(config RGBOutputConfig, red, green, blue hal.Pin, deps Dependencies) (*RGBOutput, error) {
	if config.Name == "" {
		return nil, errors.Wrap(ValidationError, "Name cannot be empty")
	}
	if red == nil || green == nil || blue == nil {
		return nil, errors.Wrap(ValidationError, "Pins cannot be nil")
	}
	if deps.Registry == nil {
		return nil, errors.Wrap(ValidationError, "Registry cannot be nil")
	}
	pinNumbers := [3]int{config.RedPin, config.GreenPin, config.BluePin}
	for i, pin := range pinNumbers {
		if err := deps.Registry.Acquire(pin); err != nil {
			channelConflictsTotal.Inc()
			// Fail fast without partial registration.
			for _, acquired := range pinNumbers[:i] {
				deps.Registry.Release(acquired)
			}
			return nil, maskAny(err)
		}
	}
	d := &RGBOutput{
		log:        deps.Log.With().Str("device", config.Name).Logger(),
		name:       config.Name,
		pins:       [3]hal.Pin{red, green, blue},
		pinNumbers: pinNumbers,
		activeLow:  config.ActiveLow,
		deps:       deps,
		value:      sequence.Value{0, 0, 0},
	}
	if err := d.write(rgbNeutral); err != nil {
		for _, pin := range pinNumbers {
			deps.Registry.Release(pin)
		}
		return nil, maskAny(err)
	}
	devicesCreatedTotal.WithLabelValues(d.Kind()).Inc()
	return d, nil
}

// Name of the device.
func (d *RGBOutput) Name() string {
	return d.name
}

// Kind of the device.
func (d *RGBOutput) Kind() string {
	return "rgb-output"
}

// On sets all channels to full intensity (white), canceling any
// running pattern.
func (d *RGBOutput) On() error {
	return d.SetValue(rgbWhite)
}

// Off turns all channels off, canceling any running pattern.
func (d *RGBOutput) Off() error {
	return d.SetValue(rgbNeutral)
}

// Toggle turns the device off when lit, remembering its color, and
// restores that color (or white) when off.
func (d *RGBOutput) Toggle() error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	lit := !d.value.Equals(rgbNeutral)
	restore := d.last
	if lit {
		d.last = append(sequence.Value{}, d.value...)
	}
	d.mutex.Unlock()

	if lit {
		return d.SetValue(rgbNeutral)
	}
	if restore == nil {
		restore = rgbWhite
	}
	return d.SetValue(restore)
}

// Invert replaces every channel value v with 1-v, canceling any
// running pattern.
func (d *RGBOutput) Invert() error {
	v, err := d.Value()
	if err != nil {
		return maskAny(err)
	}
	inverted := sequence.Value{1 - v[0], 1 - v[1], 1 - v[2]}
	return d.SetValue(inverted)
}

// SetValue cancels any running pattern and applies the given color
// (3 channels, 0-1 each).
func (d *RGBOutput) SetValue(value sequence.Value) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	if len(value) != 3 {
		return errors.Wrapf(ValidationError, "expected 3 channels, got %d", len(value))
	}
	d.change.stop()
	return maskAny(d.write(value))
}

// Value returns the current color as 3 channels (0-1).
func (d *RGBOutput) Value() (sequence.Value, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return append(sequence.Value{}, d.value...), nil
}

// Color returns the current color in 0-255 components.
func (d *RGBOutput) Color() (int, int, int, error) {
	v, err := d.Value()
	if err != nil {
		return 0, 0, 0, maskAny(err)
	}
	return to255(v[0]), to255(v[1]), to255(v[2]), nil
}

// SetColor cancels any running pattern and applies the given color in
// 0-255 components.
func (d *RGBOutput) SetColor(red, green, blue int) error {
	return d.SetValue(sequence.Value{from255(red), from255(green), from255(blue)})
}

// RGBBlinkOptions control a multi color blink pattern.
type RGBBlinkOptions struct {
	// Colors is the palette. Defaults to DefaultPalette.
	// Palettes with any component above 1 are treated as 0-255
	// and normalized.
	Colors []sequence.Value
	// OnTime is the hold time per color. Defaults to 1s when 0.
	OnTime time.Duration
	// FadeTime is the cross-fade time per color. No fade when 0.
	FadeTime time.Duration
	// FPS is the fade frame rate. Defaults to sequence.DefaultFPS.
	FPS int
	// Repeat controls the number of cycles. Defaults to forever.
	Repeat sequencer.Repeat
	// Wait blocks until the pattern reaches a terminal state.
	Wait bool
}

// Blink steps through the palette, holding every color.
// Any running pattern is stopped and replaced.
func (d *RGBOutput) Blink(ctx context.Context, opts RGBBlinkOptions) error {
	onTime := opts.OnTime
	if onTime == 0 {
		onTime = time.Second
	}
	return maskAny(d.startCycle(ctx, sequence.CycleConfig{
		Colors:   paletteOrDefault(opts.Colors, DefaultPalette),
		FadeTime: opts.FadeTime,
		OnTime:   onTime,
		FPS:      opts.FPS,
	}, opts.Repeat, opts.Wait))
}

// RGBFadeOptions control a pure cross-fade pattern.
type RGBFadeOptions struct {
	// Colors is the palette.
	// Cycle defaults to DefaultPalette, Pulse to DefaultPulsePalette.
	Colors []sequence.Value
	// FadeTime is the cross-fade time per color.
	// Defaults to 1s when 0.
	FadeTime time.Duration
	// FPS is the fade frame rate. Defaults to sequence.DefaultFPS.
	FPS int
	// Repeat controls the number of cycles. Defaults to forever.
	Repeat sequencer.Repeat
	// Wait blocks until the pattern reaches a terminal state.
	Wait bool
}

// Cycle cross-fades through the palette without hold phases.
// Any running pattern is stopped and replaced.
func (d *RGBOutput) Cycle(ctx context.Context, opts RGBFadeOptions) error {
	return maskAny(d.fade(ctx, opts, DefaultPalette))
}

// Pulse fades each primary color in and out via black.
// Any running pattern is stopped and replaced.
func (d *RGBOutput) Pulse(ctx context.Context, opts RGBFadeOptions) error {
	return maskAny(d.fade(ctx, opts, DefaultPulsePalette))
}

func (d *RGBOutput) fade(ctx context.Context, opts RGBFadeOptions, defaultPalette []sequence.Value) error {
	fadeTime := opts.FadeTime
	if fadeTime == 0 {
		fadeTime = time.Second
	}
	return d.startCycle(ctx, sequence.CycleConfig{
		Colors:   paletteOrDefault(opts.Colors, defaultPalette),
		FadeTime: fadeTime,
		FPS:      opts.FPS,
	}, opts.Repeat, opts.Wait)
}

// Stop cancels a running pattern, leaving the last applied color.
func (d *RGBOutput) Stop() {
	d.change.stop()
}

// Close stops any pattern, turns all channels off and releases the
// PWM channels. Per channel errors are aggregated.
func (d *RGBOutput) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	d.mutex.Unlock()

	d.change.stop()
	var ae aerr.AggregateError
	for _, pin := range d.pins {
		if err := pin.Write(d.mapLevel(0)); err != nil {
			ae.Add(maskAny(err))
		}
	}
	for _, pin := range d.pinNumbers {
		d.deps.Registry.Release(pin)
	}
	devicesClosedTotal.WithLabelValues(d.Kind()).Inc()
	return ae.AsError()
}

// startCycle builds and starts a color cycle pattern.
func (d *RGBOutput) startCycle(ctx context.Context, config sequence.CycleConfig, repeat sequencer.Repeat, wait bool) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	// Validate the config once up front, so bad palettes surface to
	// the caller instead of halting the first callback.
	if _, err := sequence.NewColorCycle(config); err != nil {
		return maskAny(err)
	}
	d.change.stop()
	if err := d.write(rgbNeutral); err != nil {
		return maskAny(err)
	}
	seq, err := sequencer.New(sequencer.Config{
		Factory: func() sequence.Source {
			src, _ := sequence.NewColorCycle(config)
			return src
		},
		Repeat:  repeat,
		Neutral: rgbNeutral,
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

// apply is the sequencer sink. Single channel values are broadcast to
// all three channels.
func (d *RGBOutput) apply(value sequence.Value) error {
	switch len(value) {
	case 1:
		return d.write(sequence.Value{value[0], value[0], value[0]})
	case 3:
		return d.write(value)
	default:
		return errors.Wrapf(ValidationError, "expected 1 or 3 channels, got %d", len(value))
	}
}

// write applies the polarity mapping and drives all three pins.
func (d *RGBOutput) write(value sequence.Value) error {
	for i, pin := range d.pins {
		if err := pin.Write(d.mapLevel(value[i])); err != nil {
			return maskAny(err)
		}
	}
	d.mutex.Lock()
	d.value = append(sequence.Value{}, value...)
	d.mutex.Unlock()
	return nil
}

// mapLevel converts between semantic value and line state.
func (d *RGBOutput) mapLevel(value float64) float64 {
	if d.activeLow {
		return 1 - value
	}
	return value
}

// check returns an error when the device has been closed.
func (d *RGBOutput) check() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return maskAny(ClosedError)
	}
	return nil
}

// onTerminal publishes the terminal state of a pattern.
func (d *RGBOutput) onTerminal(state sequencer.State) {
	if d.deps.Events != nil {
		d.deps.Events.publish(SequenceEvent{Device: d.name, State: state})
	}
}

// paletteOrDefault returns the given palette, or def when empty.
func paletteOrDefault(colors []sequence.Value, def []sequence.Value) []sequence.Value {
	if len(colors) == 0 {
		return def
	}
	return colors
}

// to255 converts a 0-1 channel value to 0-255.
func to255(v float64) int {
	return int(v*255 + 0.5)
}

// from255 converts a 0-255 channel value to 0-1.
// Zero stays exactly zero.
func from255(v int) float64 {
	if v == 0 {
		return 0
	}
	return float64(v) / 255
}
