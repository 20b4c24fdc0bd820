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

package channel

import "testing"

func TestForPin(t *testing.T) {
	tests := []struct {
		pin     int
		channel ID
	}{
		{0, "0A"},
		{1, "0B"},
		{6, "3A"},
		{14, "7A"},
		{15, "7B"},
		// The slice layout repeats after pin 15.
		{16, "0A"},
		{22, "3A"},
		{29, "6B"},
	}
	for _, test := range tests {
		ch, err := ForPin(test.pin)
		if err != nil {
			t.Errorf("pin %d: unexpected error %v", test.pin, err)
			continue
		}
		if ch != test.channel {
			t.Errorf("pin %d: expected channel %s, got %s", test.pin, test.channel, ch)
		}
	}
}

func TestForPinOutOfRange(t *testing.T) {
	for _, pin := range []int{-1, 30, 100} {
		if _, err := ForPin(pin); !IsInvalidPin(err) {
			t.Errorf("pin %d: expected InvalidPinError, got %v", pin, err)
		}
	}
}

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()
	if err := r.Acquire(6); err != nil {
		t.Fatal(err)
	}
	if owner, found := r.Owner("3A"); !found || owner != 6 {
		t.Fatalf("expected pin 6 to own 3A, got %d (found=%v)", owner, found)
	}

	r.Release(6)
	if _, found := r.Owner("3A"); found {
		t.Fatal("expected 3A to be free after release")
	}
	if err := r.Acquire(6); err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
}

func TestRegistryConflict(t *testing.T) {
	r := NewRegistry()
	if err := r.Acquire(6); err != nil {
		t.Fatal(err)
	}

	// Pin 22 maps to the same 3A channel.
	err := r.Acquire(22)
	if !IsInUse(err) {
		t.Fatalf("expected InUseError, got %v", err)
	}
	inUse, ok := AsInUse(err)
	if !ok {
		t.Fatal("expected InUseError cause")
	}
	if inUse.Channel != "3A" || inUse.Owner != 6 {
		t.Errorf("expected conflict on 3A owned by pin 6, got %s owned by %d", inUse.Channel, inUse.Owner)
	}

	// The failed acquire must not have recorded anything.
	if owner, _ := r.Owner("3A"); owner != 6 {
		t.Errorf("expected pin 6 to still own 3A, got %d", owner)
	}
}

func TestRegistryDoubleRelease(t *testing.T) {
	r := NewRegistry()
	if err := r.Acquire(4); err != nil {
		t.Fatal(err)
	}
	r.Release(4)
	// Releasing again, or releasing an unknown pin, is a no-op.
	r.Release(4)
	r.Release(-1)
}

func TestRegistryIndependentChannels(t *testing.T) {
	r := NewRegistry()
	for pin := 0; pin < 16; pin++ {
		if err := r.Acquire(pin); err != nil {
			t.Fatalf("pin %d: %v", pin, err)
		}
	}
	// All 16 channels taken; every further pin conflicts.
	for pin := 16; pin < 30; pin++ {
		if err := r.Acquire(pin); !IsInUse(err) {
			t.Fatalf("pin %d: expected InUseError, got %v", pin, err)
		}
	}
}
