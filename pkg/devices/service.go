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
	"sort"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Service contains the API that is exposed by the device service.
type Service interface {
	// Register adds a device to the service.
	Register(dev Device) error
	// DeviceByName returns the device with given name.
	// Returns false if not found.
	DeviceByName(name string) (Device, bool)
	// DeviceNames returns a sorted list of registered device names.
	DeviceNames() []string
	// Devices returns all registered devices.
	Devices() []Device
	// StopAll cancels any running pattern on all devices.
	StopAll()
	// Close brings all devices back to a safe state.
	Close() error
}

type service struct {
	log     zerolog.Logger
	mutex   sync.RWMutex
	devices map[string]Device
}

// NewService instantiates an empty device service.
func NewService(log zerolog.Logger) Service {
	return &service{
		log:     log.With().Str("component", "device-service").Logger(),
		devices: make(map[string]Device),
	}
}

// Register adds a device to the service.
func (s *service) Register(dev Device) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	name := dev.Name()
	if _, found := s.devices[name]; found {
		return errors.Wrapf(ValidationError, "device '%s' already registered", name)
	}
	s.devices[name] = dev
	s.log.Debug().Str("device", name).Str("kind", dev.Kind()).Msg("Registered device")
	return nil
}

// DeviceByName returns the device with given name.
// Returns false if not found.
func (s *service) DeviceByName(name string) (Device, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	dev, ok := s.devices[name]
	return dev, ok
}

// DeviceNames returns a sorted list of registered device names.
func (s *service) DeviceNames() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := lo.Keys(s.devices)
	sort.Strings(result)
	return result
}

// Devices returns all registered devices.
func (s *service) Devices() []Device {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return lo.Values(s.devices)
}

// StopAll cancels any running pattern on all devices.
func (s *service) StopAll() {
	for _, d := range s.Devices() {
		d.Stop()
	}
}

// Close brings all devices back to a safe state.
func (s *service) Close() error {
	s.mutex.Lock()
	devices := lo.Values(s.devices)
	s.devices = make(map[string]Device)
	s.mutex.Unlock()

	var ae aerr.AggregateError
	for _, d := range devices {
		if err := d.Close(); err != nil {
			s.log.Warn().Err(err).Str("device", d.Name()).Msg("Failed to close device")
			ae.Add(err)
		}
	}
	return ae.AsError()
}
