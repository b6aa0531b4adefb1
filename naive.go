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

import "entropy/internal/prng"

// naiveSampler is a primary-only sample: no backup, no second-distinct-token
// special case, no heavy-hitter branch at Finalize. It exists to give
// Estimator's accuracy a reference point that a reviewer can convince
// themselves is correct by inspection, at the cost of a weaker guarantee.
type naiveSampler struct {
	valCS0 int64
	t0     float64
	cS0    int32
	prim   int64
}

// NaiveEstimator is a simplified streaming entropy estimator that keeps
// only a primary sample per sampler, with no backup sample to smooth over
// the current primary's own resampling. It shares Estimator's counter table
// and heavy-hitters sketch but omits the backup heap and per-record sample
// heaps entirely.
type NaiveEstimator struct {
	c, k int
	count int64

	src    prng.Source
	sketch *heavyHitterSketch

	samplers []naiveSampler
	counters *counterTable
	primHeap *idxheap

	closed bool
}

// NewNaive returns a NaiveEstimator with the given sampler and sketch
// sizes, using a fixed default seed.
func NewNaive(c, k int) (*NaiveEstimator, error) {
	return NewNaiveWithOptions(c, k, Options{})
}

// NewNaiveWithOptions is NewNaive with explicit Options.
func NewNaiveWithOptions(c, k int, opts Options) (*NaiveEstimator, error) {
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

	e := &NaiveEstimator{
		c:        c,
		k:        k,
		src:      prng.New(seed),
		sketch:   newHeavyHitterSketch(k),
		samplers: make([]naiveSampler, c),
		counters: newCounterTable(c, hashSeedConst),
	}
	e.primHeap = newIdxheap(e.primHeapLess, nil)
	return e, nil
}

func (e *NaiveEstimator) primHeapLess(a, b int32) bool {
	return e.samplers[a].prim < e.samplers[b].prim
}

// Update folds one token from the stream into the estimator.
func (e *NaiveEstimator) Update(token int32) {
	if e.closed {
		panicInvariant("NaiveEstimator.Update", "called after Close")
	}
	e.count++
	e.sketch.Update(token)

	idx := e.counters.touch(token)
	e.counters.incrementCount(idx)

	if e.count == 1 {
		e.handleFirst(idx)
		return
	}

	for e.primHeap.Len() > 0 && e.samplers[e.primHeap.PeekMin()].prim <= e.count {
		minIdx := e.primHeap.DeleteMin()
		min := &e.samplers[minIdx]
		if min.prim < e.count {
			panicInvariant("naive sampler primary wait decreased",
				"sampler=%d prim=%d count=%d", minIdx, min.prim, e.count)
		}

		e.decrementPrim(min.cS0)
		e.incrementPrim(idx)

		min.cS0 = idx
		min.valCS0 = e.counters.records[idx].count
		min.t0 *= e.src.Float64()
		min.prim = resetPrimWait(min.t0, e.count, e.src)

		e.primHeap.Insert(minIdx)
	}
	e.doneProcessing(idx)
}

func (e *NaiveEstimator) handleFirst(firstIdx int32) {
	for i := range e.samplers {
		s := &e.samplers[i]
		s.cS0 = firstIdx
		s.valCS0 = 1
		s.t0 = e.src.Float64()

		e.incrementPrim(firstIdx)
		s.prim = resetPrimWait(s.t0, e.count, e.src)
		e.primHeap.Insert(int32(i))
	}
}

func (e *NaiveEstimator) incrementPrim(idx int32) {
	e.counters.records[idx].numPrim++
}

func (e *NaiveEstimator) decrementPrim(idx int32) {
	t := e.counters
	t.records[idx].numPrim--
	if !t.live(idx) {
		t.freeRecord(idx)
	}
}

func (e *NaiveEstimator) doneProcessing(idx int32) {
	t := e.counters
	t.records[idx].processing = false
	if !t.live(idx) {
		t.freeRecord(idx)
	}
}

// Finalize computes the entropy estimate for everything seen so far.
func (e *NaiveEstimator) Finalize() float64 {
	if e.count == 0 {
		return 0
	}
	m := e.count
	// A stream of a single distinct token has zero entropy; the sketch's
	// tally for that token then equals the stream length exactly.
	if _, maxCount := e.sketch.SaveMax(); maxCount == m {
		return 0
	}
	var sumXis float64
	for i := range e.samplers {
		s := &e.samplers[i]
		r := e.counters.records[s.cS0].count - s.valCS0 + 1
		sumXis += xTerm(r, m)
	}
	return sumXis / float64(e.c)
}

// Size estimates the estimator's current heap footprint in bytes.
func (e *NaiveEstimator) Size() int {
	const samplerSize = 24
	total := len(e.samplers) * samplerSize
	total += e.counters.sizeBytes()
	total += e.sketch.sizeBytes()
	total += e.primHeap.sizeBytes()
	return total
}

// Close marks the estimator unusable for further Update calls. Safe to call
// multiple times.
func (e *NaiveEstimator) Close() error {
	e.closed = true
	return nil
}
