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

func TestCalibrate_ProducesPositiveSizes(t *testing.T) {
	c, k, err := Calibrate(0.1, 0.05, 1_000_000)
	if err != nil {
		t.Fatalf("Calibrate() error: %v", err)
	}
	if c <= 0 || k <= 0 {
		t.Fatalf("Calibrate() = (%d, %d), want both positive", c, k)
	}
}

func TestCalibrate_KMatchesClosedForm(t *testing.T) {
	_, k, err := Calibrate(0.2, 0.1, 1000)
	if err != nil {
		t.Fatalf("Calibrate() error: %v", err)
	}
	// k = ceil(7/epsilon) = ceil(35) = 35
	if k != 35 {
		t.Fatalf("k = %d, want 35", k)
	}
}

func TestCalibrate_TighterEpsilonNeedsMoreSamplers(t *testing.T) {
	cLoose, _, _ := Calibrate(0.5, 0.1, 100000)
	cTight, _, _ := Calibrate(0.05, 0.1, 100000)
	if cTight <= cLoose {
		t.Fatalf("tighter epsilon should need more samplers: c(0.05)=%d, c(0.5)=%d", cTight, cLoose)
	}
}

func TestCalibrate_RejectsOutOfRangeInputs(t *testing.T) {
	cases := []struct {
		name             string
		eps, delta       float64
		streamLen        int
	}{
		{"epsilon zero", 0, 0.1, 100},
		{"epsilon too big", 1.5, 0.1, 100},
		{"delta zero", 0.1, 0, 100},
		{"delta too big", 0.1, 1.5, 100},
		{"stream len zero", 0.1, 0.1, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, _, err := Calibrate(c.eps, c.delta, c.streamLen); err == nil {
				t.Fatalf("expected error for %s", c.name)
			}
		})
	}
}
