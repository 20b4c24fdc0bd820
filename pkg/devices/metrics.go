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
	"github.com/pulseworks/OutputWorker/pkg/metrics"
)

const (
	subSystem = "devices"
)

var (
	devicesCreatedTotal = metrics.MustRegisterCounterVec(subSystem,
		"created_total",
		"Number of devices that have been created",
		"kind")
	devicesClosedTotal = metrics.MustRegisterCounterVec(subSystem,
		"closed_total",
		"Number of devices that have been closed",
		"kind")
	channelConflictsTotal = metrics.MustRegisterCounter(subSystem,
		"channel_conflicts_total",
		"Number of device creations refused because a PWM channel was in use")
)
