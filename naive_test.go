// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package entropy

import (
	"math"
	"testing"
)

func TestNewNaive_RejectsNonPositiveSizes(t *testing.T) {
	if _, err := NewNaive(0, 5); err == nil {
		t.Fatal("expected error for c=0")
	}
	if _, err := NewNaive(5, 0); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestNaiveEstimator_EmptyStreamFinalizesToZero(t *testing.T) {
	e, err := NewNaive(8, 4)
	if err != nil {
		t.Fatalf("NewNaive() error: %v", err)
	}
	if got := e.Finalize(); got != 0 {
		t.Fatalf("Finalize() on empty stream = %v, want 0", got)
	}
}

func TestNaiveEstimator_SingleTokenFinalizesToZero(t *testing.T) {
	e, err := NewNaive(8, 4)
	if err != nil {
		t.Fatalf("NewNaive() error: %v", err)
	}
	for i := 0; i < 500; i++ {
		e.Update(3)
	}
	if got := e.Finalize(); got != 0 {
		t.Fatalf("Finalize() on a single-token stream = %v, want 0", got)
	}
}

func TestNaiveEstimator_HasNoHeavyHitterBranch(t *testing.T) {
	// Even with an overwhelming single token, NaiveEstimator's Finalize must
	// still follow the plain averaging path: it has no heavy-hitter branch
	// to engage, unlike Estimator and SlowEstimator.
	e, err := NewNaiveWithOptions(64, 10, Options{Seed: 9})
	if err != nil {
		t.Fatalf("NewNaiveWithOptions() error: %v", err)
	}
	for i := 0; i < 4000; i++ {
		if i%20 == 0 {
			e.Update(int32(1 + i%3))
		} else {
			e.Update(0)
		}
	}
	got := e.Finalize()
	if math.IsNaN(got) || got < 0 {
		t.Fatalf("Finalize() = %v, want a finite non-negative estimate", got)
	}
}

func TestNaiveEstimator_BalancedTwoTokenStreamNearOneBit(t *testing.T) {
	e, err := NewNaiveWithOptions(128, 10, Options{Seed: 4})
	if err != nil {
		t.Fatalf("NewNaiveWithOptions() error: %v", err)
	}
	for i := 0; i < 3000; i++ {
		if i%2 == 0 {
			e.Update(1)
		} else {
			e.Update(2)
		}
	}
	got := e.Finalize()
	if math.Abs(got-1.0) > 0.4 {
		t.Fatalf("Finalize() = %v, want close to 1 bit", got)
	}
}

func TestNaiveEstimator_CloseIsIdempotentAndBlocksUpdate(t *testing.T) {
	e, err := NewNaive(4, 4)
	if err != nil {
		t.Fatalf("NewNaive() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected Update after Close to panic")
		}
	}()
	e.Update(1)
}

func TestNaiveEstimator_SizeIsPositive(t *testing.T) {
	e, err := NewNaive(8, 4)
	if err != nil {
		t.Fatalf("NewNaive() error: %v", err)
	}
	if e.Size() <= 0 {
		t.Fatalf("Size() = %d, want > 0", e.Size())
	}
}
