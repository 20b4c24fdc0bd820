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

// Package sequencer plays a sequence of (value, duration) steps onto
// an output sink using a single one-shot hardware timer.
//
// One sequencer owns one timer. Each step arms the timer for exactly
// that step's duration, so steps can have arbitrary independent
// durations and variable callback latency does not accumulate drift.
// Repeats are implemented by recreating the source through its
// factory, which guarantees identical output on every repeat.
package sequencer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/sequence"
	"github.com/pulseworks/OutputWorker/pkg/util"
)

// waitPollInterval is the poll interval of Wait.
const waitPollInterval = time.Millisecond

// State of a sequencer.
type State int32

const (
	// StateIdle means the sequencer has not been started yet.
	StateIdle State = iota
	// StatePlaying means the timer is armed and the source is
	// producing steps.
	StatePlaying
	// StateCompleted means the sequence finished naturally; the
	// neutral value has been applied.
	StateCompleted
	// StateStopped means the sequence was stopped or halted by an
	// error; the last applied value is left in place.
	StateStopped
)

// String returns a human readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal returns true when no further steps will be applied.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped
}

// Sink receives the values a sequencer applies.
// Writes must be fast, non-blocking updates; they are called from
// timer callbacks.
type Sink interface {
	Apply(value sequence.Value) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(value sequence.Value) error

// Apply calls f.
func (f SinkFunc) Apply(value sequence.Value) error {
	return f(value)
}

// Config of a sequencer.
type Config struct {
	// Factory creates the step source. It is invoked once on Start
	// and again for every repeat, and must reproduce the identical
	// step sequence on every invocation.
	Factory func() sequence.Source
	// Repeat controls how often the sequence is played.
	Repeat Repeat
	// Neutral is the value applied when the sequence completes
	// naturally. Defaults to a single channel zero.
	Neutral sequence.Value
}

// Dependencies of a sequencer.
type Dependencies struct {
	Log zerolog.Logger
	// Sink that receives the step values.
	Sink Sink
	// Timer used to schedule steps. Defaults to hal.NewTimer().
	Timer hal.OneShotTimer
	// OnTerminal, if set, is called once when the sequencer reaches
	// a terminal state.
	OnTerminal func(State)
}

// Sequencer plays one step sequence. At most one sequence; create a
// new Sequencer for every pattern start.
type Sequencer struct {
	log        zerolog.Logger
	sink       Sink
	factory    func() sequence.Source
	neutral    sequence.Value
	timer      hal.OneShotTimer
	onTerminal func(State)

	// lock guards src and repeat and orders state transitions
	// between Stop and the timer callback. A callback holding the
	// lock finishes its write and re-arm before Stop can proceed;
	// a Stop holding the lock is observed by the callback before it
	// writes.
	lock   util.SpinLock
	state  int32
	src    sequence.Source
	repeat Repeat
}

// New creates a sequencer with given config.
func New(config Config, deps Dependencies) (*Sequencer, error) {
	if config.Factory == nil {
		return nil, errors.Wrap(InvalidConfigError, "Factory cannot be nil")
	}
	if deps.Sink == nil {
		return nil, errors.Wrap(InvalidConfigError, "Sink cannot be nil")
	}
	if deps.Timer == nil {
		deps.Timer = hal.NewTimer()
	}
	neutral := config.Neutral
	if neutral == nil {
		neutral = sequence.Scalar(0)
	}
	return &Sequencer{
		log:        deps.Log.With().Str("component", "sequencer").Logger(),
		sink:       deps.Sink,
		factory:    config.Factory,
		neutral:    neutral,
		timer:      deps.Timer,
		onTerminal: deps.OnTerminal,
		repeat:     config.Repeat,
	}, nil
}

// Start applies the first step synchronously, then schedules the
// remaining steps on the timer. When wait is true, Start blocks until
// the sequence reaches a terminal state or the context is canceled.
// Waiting on a sequence with Forever repeat blocks until Stop is
// called or the context is canceled; that is by design.
func (s *Sequencer) Start(ctx context.Context, wait bool) error {
	if !atomic.CompareAndSwapInt32(&s.state, int32(StateIdle), int32(StatePlaying)) {
		return maskAny(AlreadyStartedError)
	}
	sequencesStartedTotal.Inc()

	s.lock.Lock()
	if s.repeat.exhausted() {
		// Zero repeats: already complete.
		s.complete()
	} else {
		s.src = s.factory()
		if err := s.advance(); err != nil {
			return maskAny(err)
		}
	}

	if wait {
		s.Wait(ctx)
	}
	return nil
}

// Wait blocks until the sequencer reaches a terminal state or the
// context is canceled, polling at a short fixed interval.
// Returns the state observed last.
func (s *Sequencer) Wait(ctx context.Context) State {
	for {
		if st := s.State(); st.Terminal() {
			return st
		}
		select {
		case <-ctx.Done():
			return s.State()
		case <-time.After(waitPollInterval):
			// Poll again
		}
	}
}

// Stop cancels the timer and marks the sequencer stopped, leaving the
// last applied value in place. Stop is idempotent and safe to call
// from any goroutine, including concurrently with a timer callback:
// a callback already in flight finishes its current write but will
// not re-arm.
func (s *Sequencer) Stop() {
	s.lock.Lock()
	prev := State(atomic.LoadInt32(&s.state))
	if prev.Terminal() {
		s.timer.Cancel()
		s.lock.Unlock()
		return
	}
	atomic.StoreInt32(&s.state, int32(StateStopped))
	s.timer.Cancel()
	s.lock.Unlock()

	if prev == StatePlaying {
		sequencesStoppedTotal.Inc()
		s.notify(StateStopped)
	}
}

// State returns the current state.
func (s *Sequencer) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// onTimer is the timer callback.
func (s *Sequencer) onTimer() {
	s.lock.Lock()
	if err := s.advance(); err != nil {
		// Already logged; the sequencer has halted.
		return
	}
}

// advance pulls the next step from the source and applies it.
// The lock must be held on entry and is released on every return
// path. Exhaustion restarts the source through the factory until the
// repeat count runs out; the neutral value is applied only on that
// natural completion.
func (s *Sequencer) advance() error {
	restarts := 0
	for {
		if State(atomic.LoadInt32(&s.state)) != StatePlaying {
			// Stopped concurrently; do not write, do not re-arm.
			s.lock.Unlock()
			return nil
		}
		step, ok := s.src.Next()
		if !ok {
			if s.repeat.finite {
				s.repeat.count--
				if s.repeat.count == 0 {
					s.complete()
					return nil
				}
			}
			// Restart by recreation, so closures with captured
			// parameters reproduce identical output.
			restarts++
			if restarts > 1 {
				return s.fail(errors.Wrap(EmptySequenceError, "source produced no steps"))
			}
			s.src = s.factory()
			continue
		}
		if step.Duration < 0 {
			return s.fail(errors.Wrapf(InvalidDurationError, "duration %s", step.Duration))
		}
		if err := s.sink.Apply(step.Value); err != nil {
			return s.fail(maskAny(err))
		}
		stepsAppliedTotal.Inc()
		// Zero duration steps are still scheduled through the timer;
		// inlining them would recurse unboundedly on long fades.
		s.timer.ArmOneShot(step.Duration, s.onTimer)
		s.lock.Unlock()
		return nil
	}
}

// complete finishes the sequence naturally: the neutral value is
// applied and the timer is released.
// The lock must be held on entry and is released.
func (s *Sequencer) complete() {
	if err := s.sink.Apply(s.neutral); err != nil {
		s.log.Debug().Err(err).Msg("Neutral value write failed")
	}
	atomic.StoreInt32(&s.state, int32(StateCompleted))
	s.timer.Cancel()
	s.lock.Unlock()

	sequencesCompletedTotal.Inc()
	s.notify(StateCompleted)
}

// fail halts the sequence on a malformed step or sink error, leaving
// the last applied value in place. Never leaves the timer armed.
// The lock must be held on entry and is released.
func (s *Sequencer) fail(err error) error {
	atomic.StoreInt32(&s.state, int32(StateStopped))
	s.timer.Cancel()
	s.lock.Unlock()

	s.log.Debug().Err(err).Msg("Sequence halted")
	sequencesFailedTotal.Inc()
	s.notify(StateStopped)
	return err
}

// notify invokes the terminal callback, if any.
func (s *Sequencer) notify(state State) {
	if s.onTerminal != nil {
		s.onTerminal(state)
	}
}
