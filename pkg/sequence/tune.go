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

package sequence

import (
	"time"

	"github.com/pkg/errors"
)

// Note is one entry of a tune.
// When Name is set, it is resolved through the note table.
// Otherwise Freq is used: values in (0, 128] are MIDI note numbers,
// larger values are frequencies in Hz, 0 is a rest.
// Beats is the duration in beats; 0 reuses the duration of the
// previous entry (1 beat for the first).
type Note struct {
	Name  string
	Freq  float64
	Beats float64
}

// Rest creates a silent tune entry.
func Rest(beats float64) Note {
	return Note{Beats: beats}
}

// TuneConfig describes a sequence of notes.
type TuneConfig struct {
	Notes []Note
	// Volume of played notes (0-1). Defaults to 1 when 0.
	Volume float64
	// BPM converts beats to seconds. Defaults to 120 when 0.
	BPM float64
	// Multiplier is the fraction of each note spent sounding; the
	// remainder is a silent gap that articulates consecutive notes
	// of the same pitch. Defaults to 0.9 when 0.
	Multiplier float64
}

// NewTune creates a Source playing the given notes once.
// Tone steps carry (frequency, volume) values; a rest keeps the last
// frequency (component 0) and only drops the volume to zero.
func NewTune(config TuneConfig) (Source, error) {
	if len(config.Notes) == 0 {
		return nil, errors.Wrap(InvalidConfigError, "tune cannot be empty")
	}
	if config.Volume == 0 {
		config.Volume = 1
	}
	if config.BPM == 0 {
		config.BPM = 120
	}
	if config.Multiplier == 0 {
		config.Multiplier = 0.9
	}

	var steps []Step
	beats := 1.0
	for _, note := range config.Notes {
		if note.Beats != 0 {
			beats = note.Beats
		}
		duration := beatsToDuration(beats, config.BPM)
		freq, rest, err := resolveNote(note)
		if err != nil {
			return nil, maskAny(err)
		}
		if rest {
			steps = append(steps, Step{Value: Value{0, 0}, Duration: duration})
			continue
		}
		sounding := time.Duration(float64(duration) * config.Multiplier)
		steps = append(steps,
			Step{Value: Value{freq, config.Volume}, Duration: sounding},
			Step{Value: Value{0, 0}, Duration: duration - sounding},
		)
	}
	return NewSteps(steps...), nil
}

// beatsToDuration converts a duration in beats to wall time.
func beatsToDuration(beats, bpm float64) time.Duration {
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}

// resolveNote returns the frequency of a tune entry, or rest=true for
// a silent entry.
func resolveNote(note Note) (float64, bool, error) {
	if note.Name != "" {
		freq, ok := NoteFrequency(note.Name)
		if !ok {
			return 0, false, errors.Wrapf(UnknownNoteError, "note '%s'", note.Name)
		}
		return freq, false, nil
	}
	if note.Freq == 0 {
		return 0, true, nil
	}
	return ResolveFrequency(note.Freq), false, nil
}
