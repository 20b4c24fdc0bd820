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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outputworker"

// MustRegisterCounter creates and registers a counter in the worker namespace.
// Panics on registration conflicts.
func MustRegisterCounter(subSystem, name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	})
}

// MustRegisterCounterVec creates and registers a counter vector in the worker namespace.
// Panics on registration conflicts.
func MustRegisterCounterVec(subSystem, name, help string, labelNames ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	}, labelNames)
}

// MustRegisterGauge creates and registers a gauge in the worker namespace.
// Panics on registration conflicts.
func MustRegisterGauge(subSystem, name, help string) prometheus.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	})
}

// MustRegisterGaugeVec creates and registers a gauge vector in the worker namespace.
// Panics on registration conflicts.
func MustRegisterGaugeVec(subSystem, name, help string, labelNames ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subSystem,
		Name:      name,
		Help:      help,
	}, labelNames)
}
