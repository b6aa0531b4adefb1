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

import "math"

// Calibrate translates accuracy targets into the (c, k) sizing parameters
// New and NewWithOptions take: c samplers are enough to guarantee an
// (epsilon, delta)-approximation of the entropy of a stream of the given
// length, and k counters are enough for the heavy-hitters sketch to support
// that guarantee.
//
// epsilon and delta must be in (0, 1]; streamLen must be positive.
func Calibrate(epsilon, delta float64, streamLen int) (c, k int, err error) {
	if epsilon <= 0 || epsilon > 1 {
		return 0, 0, &ConfigError{Field: "epsilon", Value: int(epsilon * 1000), Msg: "must be in (0, 1], value shown x1000"}
	}
	if delta <= 0 || delta > 1 {
		return 0, 0, &ConfigError{Field: "delta", Value: int(delta * 1000), Msg: "must be in (0, 1], value shown x1000"}
	}
	if streamLen < 1 {
		return 0, 0, &ConfigError{Field: "streamLen", Value: streamLen, Msg: "must be >= 1"}
	}

	c = int(math.Ceil(16 * (1 / (epsilon * epsilon)) * math.Log(2/delta) * math.Log(float64(streamLen)*math.E)))
	k = int(math.Ceil(7 / epsilon))
	return c, k, nil
}
