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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequence"
	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

// beepFrequency is the tone used when a tone device plays a binary
// pattern.
const beepFrequency = 440

// ToneOutputConfig configures a PWM buzzer or speaker.
type ToneOutputConfig struct {
	// Name of the device.
	Name string
	// Pin is the GPIO pin number, used to derive the PWM channel.
	Pin int
	// ActiveLow inverts the polarity.
	ActiveLow bool
	// Volume of played tones (0-1). Defaults to 1 when 0.
	Volume float64
	// BPM converts tune beats to seconds. Defaults to 120 when 0.
	BPM float64
}

// ToneOutput is a PWM device that plays tones.
// Its value is a (frequency, volume) pair; a zero frequency silences
// the device without changing the carrier.
type ToneOutput struct {
	log       zerolog.Logger
	name      string
	pin       hal.TonePin
	pinNumber int
	activeLow bool
	deps      Dependencies

	change changer
	mutex  sync.Mutex
	closed bool
	volume float64
	bpm    float64
	value  sequence.Value
}

var _ Device = &ToneOutput{}

// NewToneOutput creates a tone output device on the given pin.
func NewToneOutput(config ToneOutputConfig, pin hal.TonePin, deps Dependencies) (*ToneOutput, error) {
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
	volume := config.Volume
	if volume == 0 {
		volume = 1
	}
	bpm := config.BPM
	if bpm == 0 {
		bpm = 120
	}
	d := &ToneOutput{
		log:       deps.Log.With().Str("device", config.Name).Logger(),
		name:      config.Name,
		pin:       pin,
		pinNumber: config.Pin,
		activeLow: config.ActiveLow,
		deps:      deps,
		volume:    volume,
		bpm:       bpm,
		value:     sequence.Value{0, 0},
	}
	if err := d.writeTone(0, 0); err != nil {
		deps.Registry.Release(config.Pin)
		return nil, maskAny(err)
	}
	devicesCreatedTotal.WithLabelValues(d.Kind()).Inc()
	return d, nil
}

// Name of the device.
func (d *ToneOutput) Name() string {
	return d.name
}

// Kind of the device.
func (d *ToneOutput) Kind() string {
	return "tone-output"
}

// On plays a continuous 440 Hz tone at the device volume, canceling
// any running pattern.
func (d *ToneOutput) On() error {
	return d.SetTone(beepFrequency, d.Volume())
}

// Off silences the device, canceling any running pattern.
func (d *ToneOutput) Off() error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	d.change.stop()
	return maskAny(d.writeTone(0, 0))
}

// SetTone cancels any running pattern and plays a continuous tone.
func (d *ToneOutput) SetTone(freq, volume float64) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	d.change.stop()
	return maskAny(d.writeTone(freq, volume))
}

// Value returns the current (frequency, volume) pair.
func (d *ToneOutput) Value() (sequence.Value, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return append(sequence.Value{}, d.value...), nil
}

// Volume returns the device volume.
func (d *ToneOutput) Volume() float64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.volume
}

// SetVolume changes the volume used by subsequent tones (0-1).
func (d *ToneOutput) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return errors.Wrapf(ValidationError, "volume %f out of range [0..1]", volume)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.volume = volume
	return nil
}

// PitchOptions control single note playback.
type PitchOptions struct {
	// Freq is the note: a MIDI number in (0, 128] or a frequency in
	// Hz. Defaults to 440 when 0.
	Freq float64
	// Duration of the note. Defaults to 1s when 0.
	Duration time.Duration
	// Volume of the note (0-1). Defaults to the device volume.
	Volume float64
	// Wait blocks until the note has finished.
	Wait bool
}

// Pitch plays a single note.
// Any running pattern is stopped and replaced.
func (d *ToneOutput) Pitch(ctx context.Context, opts PitchOptions) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	freq := opts.Freq
	if freq == 0 {
		freq = beepFrequency
	}
	freq = sequence.ResolveFrequency(freq)
	duration := opts.Duration
	if duration == 0 {
		duration = time.Second
	}
	volume := opts.Volume
	if volume == 0 {
		volume = d.Volume()
	}
	// The note sounds for 90% of its duration, same as tune playback,
	// so consecutive notes of the same pitch articulate.
	sounding := time.Duration(float64(duration) * 0.9)
	return maskAny(d.startPattern(ctx, func() sequence.Source {
		return sequence.NewSteps(
			sequence.Step{Value: sequence.Value{freq, volume}, Duration: sounding},
			sequence.Step{Value: sequence.Value{0, 0}, Duration: duration - sounding},
		)
	}, sequencer.Times(1), opts.Wait))
}

// PlayOptions control tune playback.
type PlayOptions struct {
	// Notes of the tune.
	Notes []sequence.Note
	// Volume of played notes (0-1). Defaults to the device volume.
	Volume float64
	// BPM converts beats to seconds. Defaults to the device bpm.
	BPM float64
	// Multiplier is the sounding fraction of each note.
	// Defaults to 0.9 when 0.
	Multiplier float64
	// Repeat controls the number of plays. Defaults to forever;
	// pass sequencer.Times(1) to play the tune once.
	Repeat sequencer.Repeat
	// Wait blocks until playback reaches a terminal state.
	Wait bool
}

// Play plays a tune.
// Any running pattern is stopped and replaced.
func (d *ToneOutput) Play(ctx context.Context, opts PlayOptions) error {
	if err := d.check(); err != nil {
		return maskAny(err)
	}
	volume := opts.Volume
	if volume == 0 {
		volume = d.Volume()
	}
	bpm := opts.BPM
	if bpm == 0 {
		bpm = d.bpm
	}
	config := sequence.TuneConfig{
		Notes:      opts.Notes,
		Volume:     volume,
		BPM:        bpm,
		Multiplier: opts.Multiplier,
	}
	// Resolve the tune once up front, so unknown notes surface to
	// the caller instead of halting the first callback.
	if _, err := sequence.NewTune(config); err != nil {
		return maskAny(err)
	}
	return maskAny(d.startPattern(ctx, func() sequence.Source {
		src, _ := sequence.NewTune(config)
		return src
	}, opts.Repeat, opts.Wait))
}

// Beep plays a binary on/off pattern at 440 Hz.
// Any running pattern is stopped and replaced.
func (d *ToneOutput) Beep(ctx context.Context, opts BlinkOptions) error {
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
	return maskAny(d.startPattern(ctx, func() sequence.Source {
		return sequence.NewBinaryBlink(onTime, offTime)
	}, opts.Repeat, opts.Wait))
}

// Stop cancels a running pattern, leaving the last applied tone.
func (d *ToneOutput) Stop() {
	d.change.stop()
}

// Close stops any pattern, silences the device and releases its PWM
// channel.
func (d *ToneOutput) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	d.mutex.Unlock()

	d.change.stop()
	err := d.writeTone(0, 0)
	d.deps.Registry.Release(d.pinNumber)
	devicesClosedTotal.WithLabelValues(d.Kind()).Inc()
	return maskAny(err)
}

// startPattern builds a sequencer for the given source factory and
// starts it, replacing any running pattern.
func (d *ToneOutput) startPattern(ctx context.Context, factory func() sequence.Source, repeat sequencer.Repeat, wait bool) error {
	d.change.stop()
	if err := d.writeTone(0, 0); err != nil {
		return maskAny(err)
	}
	seq, err := sequencer.New(sequencer.Config{
		Factory: factory,
		Repeat:  repeat,
		Neutral: sequence.Value{0, 0},
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
// Scalar values come from binary patterns and are mapped to a 440 Hz
// tone at the device volume.
func (d *ToneOutput) apply(value sequence.Value) error {
	switch len(value) {
	case 1:
		if value[0] > 0 {
			return d.writeTone(beepFrequency, d.Volume())
		}
		return d.writeTone(0, 0)
	case 2:
		return d.writeTone(value[0], value[1])
	default:
		return errors.Wrapf(ValidationError, "expected 1 or 2 channels, got %d", len(value))
	}
}

// writeTone updates the carrier frequency and drives the pin with the
// polarity mapped volume. A zero frequency only drops the volume,
// leaving the carrier unchanged.
func (d *ToneOutput) writeTone(freq, volume float64) error {
	if freq == 0 {
		volume = 0
	} else {
		if err := d.pin.SetFrequency(int(math.Round(freq))); err != nil {
			return maskAny(err)
		}
	}
	state := volume
	if d.activeLow {
		state = 1 - volume
	}
	if err := d.pin.Write(state); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.value = sequence.Value{freq, volume}
	d.mutex.Unlock()
	return nil
}

// check returns an error when the device has been closed.
func (d *ToneOutput) check() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return maskAny(ClosedError)
	}
	return nil
}

// onTerminal publishes the terminal state of a pattern.
func (d *ToneOutput) onTerminal(state sequencer.State) {
	if d.deps.Events != nil {
		d.deps.Events.publish(SequenceEvent{Device: d.name, State: state})
	}
}
