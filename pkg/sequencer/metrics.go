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

package sequencer

import (
	"github.com/pulseworks/OutputWorker/pkg/metrics"
)

const (
	subSystem = "sequencer"
)

var (
	// Number of steps applied to sinks
	stepsAppliedTotal = metrics.MustRegisterCounter(subSystem,
		"steps_applied_total",
		"Number of sequence steps applied to output sinks")

	// Number of started sequences
	sequencesStartedTotal = metrics.MustRegisterCounter(subSystem,
		"sequences_started_total",
		"Number of sequences started")

	// Number of naturally completed sequences
	sequencesCompletedTotal = metrics.MustRegisterCounter(subSystem,
		"sequences_completed_total",
		"Number of sequences that completed naturally")

	// Number of explicitly stopped sequences
	sequencesStoppedTotal = metrics.MustRegisterCounter(subSystem,
		"sequences_stopped_total",
		"Number of sequences stopped before completion")

	// Number of sequences halted by an error
	sequencesFailedTotal = metrics.MustRegisterCounter(subSystem,
		"sequences_failed_total",
		"Number of sequences halted by a malformed step or sink error")
)
