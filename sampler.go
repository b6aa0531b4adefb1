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

	"entropy/internal/prng"
)

// maxWait caps how far into the future a sampler's next primary or backup
// fire time may be scheduled, both to guard against log(r)/log(1-t)
// overflow and to give t==0 a well-defined "effectively never" wait.
const maxWait int64 = 900000000

// sampler is one of the c independent (primary, backup) sample pairs the
// estimator races against the stream. It is the Go counterpart of
// Sample_type, with pointer fields replaced by arena indices so the
// counter-record slice can grow without invalidating any sampler's view of
// its current primary or backup sample.
type sampler struct {
	valCS0, valCS1 int64 // the sampled counter's count value at the moment it was taken
	t0, t1         float64

	cS0, cS1 int32 // arena indices into estimator.counters; noIndex if unset
	cS0Pos   int   // this sampler's position in cS0's private sample heap

	prim             int64 // the stream position at which this sampler is due a new primary sample
	backupMinusDelay int64 // backup fire time, delta-encoded against cS0's count (see reset_wait_times)
}

// newSampler returns a sampler in its pre-stream state, matching
// Sample_Init: t0 = t1 = 1 so the first token is accepted unconditionally.
func newSampler() *sampler {
	return &sampler{
		t0: 1, t1: 1,
		cS0: noIndex, cS1: noIndex, cS0Pos: int(noIndex),
	}
}

// resetWaitTimes redraws both the primary and backup fire times from their
// geometric distributions (parameters t0 and t1-t0 respectively), given the
// current stream position and the current count of the sampler's primary
// sample. It is a pure function of its arguments so that the geometric-race
// edge cases (r==0, t==0, overflow) can be exercised directly in tests
// without assembling a full estimator.
//
// backupMinusDelay is deliberately delta-encoded against cs0Count rather
// than stored as an absolute fire time: cs0Count can keep climbing after
// this call as the stream revisits the same token, and a delta stays valid
// across those increments while an absolute time would not.
func resetWaitTimes(t0, t1 float64, cs0Count, count int64, src prng.Source) (prim, backupMinusDelay int64) {
	prim = resetPrimWait(t0, count, src)
	backupMinusDelay = resetBackupWait(t0, t1, cs0Count, count, src)
	return prim, backupMinusDelay
}

// resetPrimWait redraws only the primary fire time, consuming one value
// from src. Split out from resetWaitTimes so the backup-only recompute in
// Estimator.Update's second fire loop (which must redraw backupMinusDelay
// without also redrawing prim) can share the same edge-case handling.
func resetPrimWait(t0 float64, count int64, src prng.Source) int64 {
	r0 := src.Float64()
	var prim int64
	switch {
	case r0 == 0:
		prim = count + 1
	case t0 == 0:
		prim = maxWait
	default:
		prim = int64(ceilLog(r0, 1-t0)) + count
	}
	if prim < 0 || prim > maxWait {
		prim = maxWait
	}
	return prim
}

// resetBackupWait redraws only the backup fire time, consuming one value
// from src.
func resetBackupWait(t0, t1 float64, cs0Count, count int64, src prng.Source) int64 {
	r1 := src.Float64()
	switch {
	case r1 == 0:
		return count + 1 - cs0Count
	case t1-t0 == 0:
		return maxWait - cs0Count
	default:
		wait := int64(ceilLog(r1, 1-(t1-t0)))
		if wait < 0 || wait > maxWait {
			return maxWait - cs0Count
		}
		return wait + count - cs0Count
	}
}

// ceilLog computes ceil(log(r) / log(base)), the number of geometric trials
// until a success probability implied by base is exceeded.
func ceilLog(r, base float64) float64 {
	return math.Ceil(math.Log(r) / math.Log(base))
}
