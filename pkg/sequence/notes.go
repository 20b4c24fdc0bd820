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

import "math"

// noteFrequencies maps note names (octaves 0-8, '#' for sharp) to
// their frequency in Hz.
var noteFrequencies = map[string]float64{
	"b0": 31,
	"c1": 33, "c#1": 35, "d1": 37, "d#1": 39, "e1": 41, "f1": 44, "f#1": 46,
	"g1": 49, "g#1": 52, "a1": 55, "a#1": 58, "b1": 62,
	"c2": 65, "c#2": 69, "d2": 73, "d#2": 78, "e2": 82, "f2": 87, "f#2": 93,
	"g2": 98, "g#2": 104, "a2": 110, "a#2": 117, "b2": 123,
	"c3": 131, "c#3": 139, "d3": 147, "d#3": 156, "e3": 165, "f3": 175, "f#3": 185,
	"g3": 196, "g#3": 208, "a3": 220, "a#3": 233, "b3": 247,
	"c4": 262, "c#4": 277, "d4": 294, "d#4": 311, "e4": 330, "f4": 349, "f#4": 370,
	"g4": 392, "g#4": 415, "a4": 440, "a#4": 466, "b4": 494,
	"c5": 523, "c#5": 554, "d5": 587, "d#5": 622, "e5": 659, "f5": 698, "f#5": 740,
	"g5": 784, "g#5": 831, "a5": 880, "a#5": 932, "b5": 988,
	"c6": 1047, "c#6": 1109, "d6": 1175, "d#6": 1245, "e6": 1319, "f6": 1397, "f#6": 1480,
	"g6": 1568, "g#6": 1661, "a6": 1760, "a#6": 1865, "b6": 1976,
	"c7": 2093, "c#7": 2217, "d7": 2349, "d#7": 2489, "e7": 2637, "f7": 2794, "f#7": 2960,
	"g7": 3136, "g#7": 3322, "a7": 3520, "a#7": 3729, "b7": 3951,
	"c8": 4186, "c#8": 4435, "d8": 4699, "d#8": 4978,
}

// NoteFrequency resolves a note name like "a4" to its frequency.
// Returns false for unknown names.
func NoteFrequency(name string) (float64, bool) {
	f, ok := noteFrequencies[name]
	return f, ok
}

// MIDIFrequency converts a MIDI note number to a frequency using
// equal temperament with A4 = 440 Hz.
func MIDIFrequency(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// ResolveFrequency turns a numeric note token into a frequency in Hz.
// Small positive numbers (0 < n <= 128) are treated as MIDI note
// numbers, everything else passes through verbatim.
func ResolveFrequency(token float64) float64 {
	if token > 0 && token <= 128 {
		return MIDIFrequency(token)
	}
	return token
}
