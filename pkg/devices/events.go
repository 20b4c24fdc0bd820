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

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/sequencer"
)

// SequenceEvent is published when a pattern on a device reaches a
// terminal state.
type SequenceEvent struct {
	// Device is the name of the device the pattern ran on.
	Device string
	// State is the terminal state of the pattern.
	State sequencer.State
}

// EventBus distributes sequence events to registered listeners.
type EventBus struct {
	log            zerolog.Logger
	sequenceEvents *pubsub.PubSub
}

// NewEventBus creates an empty event bus.
func NewEventBus(log zerolog.Logger) *EventBus {
	return &EventBus{
		log:            log.With().Str("component", "events").Logger(),
		sequenceEvents: pubsub.New(),
	}
}

// publish delivers the given event to all registered listeners.
func (b *EventBus) publish(evt SequenceEvent) {
	b.sequenceEvents.Pub(evt)
}

// RegisterSequenceListener registers a callback for sequence events.
// The returned function cancels the registration.
func (b *EventBus) RegisterSequenceListener(cb func(SequenceEvent) error) context.CancelFunc {
	wcb := func(x SequenceEvent) {
		if err := cb(x); err != nil {
			b.log.Warn().Err(err).Msg("Sequence event processing error")
		}
	}
	b.sequenceEvents.Sub(wcb)
	return func() {
		b.sequenceEvents.Leave(wcb)
	}
}
