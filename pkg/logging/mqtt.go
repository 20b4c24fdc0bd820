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

// Package logging provides log writers that ship worker output to
// places other than the local console.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTWriter is a log writer that publishes every log line to an MQTT
// topic. Lines are dropped rather than blocking the logger when the
// broker cannot keep up.
type MQTTWriter interface {
	io.Writer
	// Enable or disable publishing. Disabled writers queue lines
	// until the queue overflows.
	Enable(enable bool)
	// SetDestination sets the topic and client used for publishing.
	SetDestination(topic string, client mqtt.Client)
}

type mqttWriter struct {
	mutex  sync.Mutex
	queue  chan []byte
	topic  string
	client mqtt.Client
	enable bool
}

const (
	mqttQueueSize      = 512
	mqttPublishTimeout = 200 * time.Millisecond
)

// NewMQTTWriter creates a new MQTT output for logs.
// The publisher stops when the given context is canceled.
func NewMQTTWriter(ctx context.Context) MQTTWriter {
	w := &mqttWriter{
		queue: make(chan []byte, mqttQueueSize),
	}
	go w.run(ctx)
	return w
}

func (w *mqttWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case w.queue <- buf:
			return len(p), nil
		default:
			// Queue full; take one out and try again
			select {
			case <-w.queue:
				// Continue
			default:
				// Also continue
			}
		}
	}
	// Ignore errors
	return len(p), nil
}

func (w *mqttWriter) Enable(enable bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.enable = enable
}

func (w *mqttWriter) SetDestination(topic string, client mqtt.Client) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.topic = topic
	w.client = client
}

type logMsg struct {
	Message string `json:"message"`
}

func (w *mqttWriter) run(ctx context.Context) {
	for {
		w.mutex.Lock()
		client := w.client
		topic := w.topic
		enabled := w.enable
		w.mutex.Unlock()

		if enabled && topic != "" && client != nil {
			select {
			case msg := <-w.queue:
				payload, err := json.Marshal(logMsg{Message: string(msg)})
				if err != nil {
					continue
				}
				token := client.Publish(topic, 0, false, payload)
				token.WaitTimeout(mqttPublishTimeout)
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case <-time.After(time.Second):
				// Continue
			case <-ctx.Done():
				return
			}
		}
	}
}
