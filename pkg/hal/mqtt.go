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

package hal

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	mqttPublishTimeout = time.Millisecond * 200
	mqttValueSuffix    = "value"
	mqttFreqSuffix     = "frequency"
)

// MQTTPinConfig configures a pin that lives on a remote worker,
// reached over an MQTT broker.
type MQTTPinConfig struct {
	// Address of the broker, as a URL (tcp://host:port).
	// A bare host:port is given the tcp scheme.
	BrokerAddress string
	// ClientID used when connecting to the broker
	ClientID string
	// TopicPrefix for all messages of this pin
	TopicPrefix string
}

// mqttPin publishes values to a remote pin over MQTT.
// Messages are retained so a late joining worker sees the last value.
type mqttPin struct {
	log         zerolog.Logger
	mutex       sync.Mutex
	config      MQTTPinConfig
	topicPrefix string
	client      mqttapi.Client
	value       float64
}

var _ TonePin = &mqttPin{}
var _ Configurable = &mqttPin{}

// NewMQTTPin creates a remote pin with given config.
// Configure must be called before the first Write.
func NewMQTTPin(log zerolog.Logger, config MQTTPinConfig) (TonePin, error) {
	if config.BrokerAddress == "" {
		return nil, maskAny(fmt.Errorf("broker address cannot be empty"))
	}
	topicPrefix := strings.TrimSuffix(config.TopicPrefix, "/") + "/"
	return &mqttPin{
		log:         log.With().Str("component", "mqtt-pin").Str("topic", topicPrefix).Logger(),
		config:      config,
		topicPrefix: topicPrefix,
	}, nil
}

// Configure connects to the broker.
func (p *mqttPin) Configure() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	opts := mqttapi.NewClientOptions().
		AddBroker(normalizeBrokerURL(p.config.BrokerAddress)).
		SetClientID(p.config.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)

	p.client = mqttapi.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return maskAny(fmt.Errorf("failed to connect to mqtt: %w", token.Error()))
	}
	p.log.Debug().Msg("connected")
	return nil
}

// Close disconnects from the broker.
func (p *mqttPin) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
		p.client = nil
	}
	return nil
}

// Write publishes the given normalized value as a retained message.
func (p *mqttPin) Write(value float64) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.publish(mqttValueSuffix, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
		return maskAny(err)
	}
	p.value = value
	return nil
}

// Read returns the last published normalized value.
func (p *mqttPin) Read() (float64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.value, nil
}

// SetFrequency publishes the PWM carrier frequency as a retained message.
func (p *mqttPin) SetFrequency(hz int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.publish(mqttFreqSuffix, strconv.Itoa(hz)); err != nil {
		return maskAny(err)
	}
	return nil
}

// publish sends a retained message to the pin topic with the given suffix.
// The mutex must be held by the caller.
func (p *mqttPin) publish(suffix, payload string) error {
	if p.client == nil {
		return maskAny(NotConfiguredError)
	}
	topic := p.topicPrefix + suffix
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return maskAny(fmt.Errorf("publish to '%s' timed out", topic))
	}
	if err := token.Error(); err != nil {
		return maskAny(err)
	}
	return nil
}

// normalizeBrokerURL adds the tcp scheme to a bare host:port address.
// Addresses that already carry a scheme are returned unchanged.
func normalizeBrokerURL(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	return "tcp://" + address
}
