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

// slowThreshold is the largest value a slowSampler's t0/t1 threshold can
// hold, matching INT_MAX's role in the reference slow estimator: every
// drawn integer compares less than it, so a sampler's first two tokens are
// always accepted.
const slowThreshold int64 = 1<<31 - 1

// slowSampler tracks, without any hashing or sharing between samplers, the
// two most recently accepted distinct tokens and how many times each has
// recurred since it was accepted. Unlike sampler, which races against
// geometrically-distributed wait times, a slowSampler races a raw uniform
// integer against its current threshold on every single token: O(1) work
// per sampler per token, O(c) per token across all samplers, with no
// counter table at all.
type slowSampler struct {
	s0, s1 int32 // the two most recently accepted distinct tokens
	r0, r1 int64 // recurrence counts for s0 and s1 since each was accepted
	t0, t1 int64 // acceptance thresholds
}

// SlowEstimator is the O(c) per-token reference implementation of the
// sampling half of the algorithm: it makes no attempt to amortize work
// across samplers or across repeated tokens, which makes its correctness
// straightforward to verify by inspection and a good cross-check for
// Estimator's amortized version.
type SlowEstimator struct {
	c, k int
	count int64

	src    prng.Source
	sketch *heavyHitterSketch

	samplers []slowSampler
	closed   bool
}

// NewSlow returns a SlowEstimator with the given sampler and sketch sizes,
// using a fixed default seed.
func NewSlow(c, k int) (*SlowEstimator, error) {
	return NewSlowWithOptions(c, k, Options{})
}

// NewSlowWithOptions is NewSlow with explicit Options.
func NewSlowWithOptions(c, k int, opts Options) (*SlowEstimator, error) {
	if c < 1 {
		return nil, &ConfigError{Field: "c", Value: c, Msg: "must be >= 1"}
	}
	if k < 1 {
		return nil, &ConfigError{Field: "k", Value: k, Msg: "must be >= 1"}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	samplers := make([]slowSampler, c)
	for i := range samplers {
		samplers[i] = slowSampler{t0: slowThreshold, t1: slowThreshold}
	}

	return &SlowEstimator{
		c:        c,
		k:        k,
		src:      prng.New(seed),
		sketch:   newHeavyHitterSketch(k),
		samplers: samplers,
	}, nil
}

// Update folds one token from the stream into the estimator.
func (e *SlowEstimator) Update(token int32) {
	if e.closed {
		panicInvariant("SlowEstimator.Update", "called after Close")
	}
	e.count++
	e.sketch.Update(token)

	for i := range e.samplers {
		updateSlowSampler(&e.samplers[i], e.src, token)
	}
}

func updateSlowSampler(s *slowSampler, src prng.Source, token int32) {
	r := int64(src.Uint32())

	if token == s.s0 {
		if r < s.t0 {
			s.t0 = r
			s.r0 = 1
		} else {
			s.r0++
		}
		return
	}

	if token == s.s1 {
		s.r1++
	}

	if r < s.t0 {
		s.s1, s.t1, s.r1 = s.s0, s.t0, s.r0
		s.s0, s.t0, s.r0 = token, r, 1
	} else if r < s.t1 {
		s.s1, s.t1, s.r1 = token, r, 1
	}
}

// Finalize computes the entropy estimate for everything seen so far.
func (e *SlowEstimator) Finalize() float64 {
	m := e.count
	if m == 0 {
		return 0
	}

	maxToken, maxCount := e.sketch.SaveMax()
	if maxCount > m/2 {
		return e.finalizeHeavyHitter(maxToken, maxCount, m)
	}
	return e.finalizePlain(m)
}

func (e *SlowEstimator) finalizeHeavyHitter(maxToken int32, maxCount, m int64) float64 {
	pMax := float64(maxCount) / float64(m)
	var sumXis float64
	for i := range e.samplers {
		s := &e.samplers[i]
		var r int64
		if s.s0 == maxToken {
			r = s.r1
		} else {
			r = s.r0
		}
		sumXis += xTerm(r, m)
	}
	avgXis := sumXis / float64(e.c)
	return (1-pMax)*avgXis + pMax*math.Log2(1/pMax)
}

func (e *SlowEstimator) finalizePlain(m int64) float64 {
	var sumXis float64
	for i := range e.samplers {
		sumXis += xTerm(e.samplers[i].r0, m)
	}
	return sumXis / float64(e.c)
}

// Size estimates the estimator's current heap footprint in bytes.
func (e *SlowEstimator) Size() int {
	const samplerSize = 40
	return len(e.samplers)*samplerSize + e.sketch.sizeBytes()
}

// Close marks the estimator unusable for further Update calls. Safe to call
// multiple times.
func (e *SlowEstimator) Close() error {
	e.closed = true
	return nil
}
