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

import "testing"

// scriptedPRNG hands out a fixed, preprogrammed sequence of Float64 values,
// used to exercise resetWaitTimes's edge-case branches deterministically
// rather than hoping a real generator eventually produces them.
type scriptedPRNG struct {
	floats []float64
	i      int
}

func (s *scriptedPRNG) Float64() float64 {
	v := s.floats[s.i]
	s.i++
	return v
}

func (s *scriptedPRNG) Uint32() uint32 { return 0 }

func TestResetWaitTimes_R0ZeroGivesNextTick(t *testing.T) {
	src := &scriptedPRNG{floats: []float64{0, 0.5}}
	prim, _ := resetWaitTimes(0.3, 0.8, 10, 100, src)
	if prim != 101 {
		t.Fatalf("prim = %d, want 101", prim)
	}
}

func TestResetWaitTimes_T0ZeroGivesMaxWait(t *testing.T) {
	src := &scriptedPRNG{floats: []float64{0.5, 0.5}}
	prim, _ := resetWaitTimes(0, 0.8, 10, 100, src)
	if prim != maxWait {
		t.Fatalf("prim = %d, want maxWait", prim)
	}
}

func TestResetWaitTimes_R1ZeroGivesBackupNextTick(t *testing.T) {
	src := &scriptedPRNG{floats: []float64{0.5, 0}}
	_, backup := resetWaitTimes(0.3, 0.8, 10, 100, src)
	want := int64(100 + 1 - 10)
	if backup != want {
		t.Fatalf("backupMinusDelay = %d, want %d", backup, want)
	}
}

func TestResetWaitTimes_T1EqualsT0GivesMaxBackupWait(t *testing.T) {
	src := &scriptedPRNG{floats: []float64{0.5, 0.5}}
	_, backup := resetWaitTimes(0.4, 0.4, 10, 100, src)
	want := maxWait - 10
	if backup != want {
		t.Fatalf("backupMinusDelay = %d, want %d", backup, want)
	}
}

func TestResetWaitTimes_NeverReturnsNegativeOrOverflowing(t *testing.T) {
	// A success probability extremely close to 0 makes the geometric draw's
	// expected wait astronomically long; the overflow clamp must still
	// produce a value in [0, maxWait].
	src := &scriptedPRNG{floats: []float64{1e-9, 1e-9}}
	prim, backup := resetWaitTimes(1e-15, 2e-15, 10, 100, src)
	if prim < 0 || prim > maxWait {
		t.Fatalf("prim = %d out of [0, maxWait]", prim)
	}
	if backup < -maxWait || backup > maxWait {
		t.Fatalf("backupMinusDelay = %d implausible", backup)
	}
}

func TestNewSampler_StartsAtAcceptEverything(t *testing.T) {
	s := newSampler()
	if s.t0 != 1 || s.t1 != 1 {
		t.Fatalf("t0=%v t1=%v, want 1, 1", s.t0, s.t1)
	}
	if s.cS0 != noIndex || s.cS1 != noIndex || s.cS0Pos != int(noIndex) {
		t.Fatal("expected all indices unset on a fresh sampler")
	}
}
