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

// Package entropy implements the Chakrabarti-Cormode-McGregor streaming
// (epsilon, delta)-approximation algorithm for the Shannon entropy of a
// data stream, in a single pass and in space sublinear in the stream
// length.
package entropy

import (
	"math"

	"entropy/internal/prng"
)

// hashSeedConst seeds the counter table's universal hash function. It is
// fixed rather than exposed through Options: varying it would not improve
// accuracy, only reshuffle hash collisions, and a constant keeps two
// Estimators built with the same Options.Seed identical down to bucket
// layout.
const hashSeedConst int64 = 12345

// defaultSeed is used when Options.Seed is left at its zero value. Unlike
// the reference implementation, which seeds its generator from the wall
// clock by default, this package defaults to a fixed seed so that New(c, k)
// is reproducible out of the box; callers who want varied runs set
// Options.Seed explicitly.
const defaultSeed int64 = 1

// Options configures an Estimator beyond the accuracy parameters (c, k)
// that determine its size.
type Options struct {
	// Seed determines every random draw the Estimator makes: two
	// Estimators built with identical Options.Seed and fed the same
	// token sequence produce bit-identical internal state and Finalize
	// output. Zero means defaultSeed.
	Seed int64
}

// Estimator is a streaming estimator of the Shannon entropy of a sequence
// of tokens, processing each token in O(log c) amortized time and using
// O(c + k) space, where c and k are set at construction.
//
// An Estimator is not safe for concurrent use; callers needing concurrent
// updates must serialize their own access.
type Estimator struct {
	c, k int

	count             int64
	twoDistinctTokens bool
	firstIdx          int32

	src    prng.Source
	sketch *heavyHitterSketch

	samplers []sampler
	counters *counterTable

	primHeap   *idxheap
	backupHeap *idxheap

	closed bool
}

// New returns an Estimator configured with c parallel samplers and a
// heavy-hitters sketch of k counters, using a fixed default seed. See
// Calibrate for choosing c and k from target (epsilon, delta) guarantees.
func New(c, k int) (*Estimator, error) {
	return NewWithOptions(c, k, Options{})
}

// NewWithOptions is New with explicit Options.
func NewWithOptions(c, k int, opts Options) (*Estimator, error) {
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

	e := &Estimator{
		c:        c,
		k:        k,
		firstIdx: noIndex,
		src:      prng.New(seed),
		sketch:   newHeavyHitterSketch(k),
		samplers: make([]sampler, c),
		counters: newCounterTable(c, hashSeedConst),
	}
	for i := range e.samplers {
		e.samplers[i] = *newSampler()
	}
	e.primHeap = newIdxheap(e.primHeapLess, nil)
	e.backupHeap = newIdxheap(e.backupHeapLess, e.backupHeapSetPos)

	metricsEstimatorCreated()
	return e, nil
}

func (e *Estimator) primHeapLess(a, b int32) bool {
	return e.samplers[a].prim < e.samplers[b].prim
}

func (e *Estimator) sampleHeapLess(a, b int32) bool {
	return e.samplers[a].backupMinusDelay < e.samplers[b].backupMinusDelay
}

func (e *Estimator) sampleHeapSetPos(a int32, pos int) {
	e.samplers[a].cS0Pos = pos
}

func (e *Estimator) backupHeapLess(p, q int32) bool {
	rp, rq := &e.counters.records[p], &e.counters.records[q]
	a := rp.count + e.samplers[rp.sampleHeap.PeekMin()].backupMinusDelay
	b := rq.count + e.samplers[rq.sampleHeap.PeekMin()].backupMinusDelay
	return a < b
}

func (e *Estimator) backupHeapSetPos(p int32, pos int) {
	e.counters.records[p].backupPos = pos
}

// ensureSampleHeap lazily builds the per-record sample heap the first time
// a sampler takes idx as its primary sample, since records that are never
// any sampler's primary never need one.
func (e *Estimator) ensureSampleHeap(idx int32) *idxheap {
	r := &e.counters.records[idx]
	if r.sampleHeap == nil {
		r.sampleHeap = newIdxheap(e.sampleHeapLess, e.sampleHeapSetPos)
	}
	return r.sampleHeap
}

// Update folds one token from the stream into the estimator.
func (e *Estimator) Update(token int32) {
	if e.closed {
		panicInvariant("Estimator.Update", "called after Close")
	}
	e.count++
	e.sketch.Update(token)
	metricsTokenProcessed()

	idx := e.counters.touch(token)
	e.counters.incrementCount(idx)

	switch {
	case e.count == 1:
		e.firstIdx = idx
		e.handleFirst(idx)
		return
	case e.counters.records[idx].count == e.count:
		e.handleNondistinct(idx)
		return
	case !e.twoDistinctTokens:
		e.handleSecondDistinct(idx)
		e.doneProcessing(idx)
		e.doneProcessing(e.firstIdx)
		return
	}

	// Only restore heap property if samplers have already been placed in
	// the backup heap; a record with no primary samplers isn't in it.
	e.backupHeap.RestoreAt(e.counters.records[idx].backupPos)

	e.firePrimaries(idx)
	e.fireBackups(idx)

	e.doneProcessing(idx)
	metricsSetLiveRecords(e.counters.liveCount())
}

// handleFirst special-cases the very first token: every sampler takes it as
// a trivial primary sample with no backup yet, since there is nothing else
// to back up from.
func (e *Estimator) handleFirst(firstIdx int32) {
	for i := range e.samplers {
		s := &e.samplers[i]
		s.cS0 = firstIdx
		s.valCS0 = 1
		s.t0 = e.src.Float64()
	}
}

// handleNondistinct processes token k+1 when the first k tokens read have
// all been identical: every sampler independently re-rolls whether this
// repeat becomes its new primary sample.
func (e *Estimator) handleNondistinct(tokenIdx int32) {
	count := e.counters.records[tokenIdx].count
	for i := range e.samplers {
		s := &e.samplers[i]
		r := e.src.Float64()
		if r < s.t0 {
			s.t0 = r
			s.valCS0 = count
		}
	}
}

// handleSecondDistinct processes the first token that differs from the
// stream's first token, establishing every sampler's initial (primary,
// backup) pair and registering them in the heaps for the first time.
func (e *Estimator) handleSecondDistinct(tokenIdx int32) {
	e.twoDistinctTokens = true
	for i := range e.samplers {
		s := &e.samplers[i]
		r := e.src.Float64()
		if r < s.t0 {
			s.valCS1, s.cS1, s.t1 = s.valCS0, s.cS0, s.t0
			s.valCS0, s.cS0, s.t0 = 1, tokenIdx, r
		} else {
			s.valCS1, s.cS1, s.t1 = 1, tokenIdx, r
		}

		// Wait times must be set before insertion: incrementPrimSamplers
		// inserts this sampler into c_s0's sample heap and the backup
		// heap, both ordered by the freshly drawn values.
		s.prim, s.backupMinusDelay = resetWaitTimes(s.t0, s.t1, e.counters.records[s.cS0].count, e.count, e.src)

		e.primHeap.Insert(int32(i))
		e.incrementPrimSamplers(s.cS0, int32(i))
		e.incrementBackupSamplers(s.cS1)
	}
}

// firePrimaries processes every sampler whose scheduled primary fire time
// has arrived: it takes counter as its new primary sample, promoting its
// old primary to backup when the new token differs from the one it was
// already primary-sampling.
func (e *Estimator) firePrimaries(counterIdx int32) {
	for e.primHeap.Len() > 0 && e.samplers[e.primHeap.PeekMin()].prim <= e.count {
		minIdx := e.primHeap.DeleteMin()
		min := &e.samplers[minIdx]
		if min.prim < e.count {
			panicInvariant("sampler primary wait decreased",
				"sampler=%d primary_key=%d prim=%d count=%d", minIdx, e.counters.records[min.cS0].key, min.prim, e.count)
		}

		metricsPrimaryResample()
		if min.cS0 == counterIdx {
			min.valCS0 = e.counters.records[counterIdx].count
			min.t0 *= e.src.Float64()
			min.prim, min.backupMinusDelay = resetWaitTimes(min.t0, min.t1, e.counters.records[min.cS0].count, e.count, e.src)
			e.counters.records[min.cS0].sampleHeap.RestoreAt(min.cS0Pos)
			e.backupHeap.RestoreAt(e.counters.records[min.cS0].backupPos)
		} else {
			oldCS1 := min.cS1
			min.cS1, min.valCS1, min.t1 = min.cS0, min.valCS0, min.t0
			min.cS0 = counterIdx
			min.valCS0 = e.counters.records[counterIdx].count
			min.t0 *= e.src.Float64()

			min.prim, min.backupMinusDelay = resetWaitTimes(min.t0, min.t1, e.counters.records[min.cS0].count, e.count, e.src)

			// Increment c_s1's backup count before decrementing
			// anything: if min were the only sampler keeping min.cS1
			// alive and we decremented first, it could be freed
			// before we get a chance to re-reference it here.
			e.incrementBackupSamplers(min.cS1)
			e.decrementBackupSamplers(oldCS1)
			e.decrementPrimSamplers(min.cS1, minIdx)
			e.incrementPrimSamplers(min.cS0, minIdx)
		}
		e.primHeap.Insert(minIdx)
	}
}

// fireBackups processes every sampler whose scheduled backup fire time has
// arrived: its backup sample becomes counter, and only its backup wait time
// is redrawn.
func (e *Estimator) fireBackups(counterIdx int32) {
	min2Idx := e.backupHeap.PeekMin()
	minIdx := e.counters.records[min2Idx].sampleHeap.PeekMin()

	for e.samplers[minIdx].backupMinusDelay+e.counters.records[min2Idx].count <= e.count {
		if e.samplers[minIdx].backupMinusDelay+e.counters.records[min2Idx].count < e.count {
			panicInvariant("sampler backup wait decreased",
				"backup_minus_delay=%d min2_count=%d count=%d", e.samplers[minIdx].backupMinusDelay, e.counters.records[min2Idx].count, e.count)
		}

		metricsBackupResample()
		min := &e.samplers[minIdx]
		e.decrementBackupSamplers(min.cS1)
		e.incrementBackupSamplers(counterIdx)
		min.t1 -= e.src.Float64() * (min.t1 - min.t0)
		min.cS1 = counterIdx
		min.valCS1 = e.counters.records[counterIdx].count

		min.backupMinusDelay = resetBackupWait(min.t0, min.t1, e.counters.records[min.cS0].count, e.count, e.src)

		e.counters.records[min.cS0].sampleHeap.RestoreAt(min.cS0Pos)
		e.backupHeap.RestoreAt(e.counters.records[min.cS0].backupPos)

		min2Idx = e.backupHeap.PeekMin()
		minIdx = e.counters.records[min2Idx].sampleHeap.PeekMin()
	}
}

// incrementPrimSamplers registers minIdx as a primary-sampler of bIdx.
// Precondition: the sampler's wait times have already been set, since
// insertion into both heaps below depends on them.
func (e *Estimator) incrementPrimSamplers(bIdx, minIdx int32) {
	t := e.counters
	t.records[bIdx].numPrim++
	e.ensureSampleHeap(bIdx).Insert(minIdx)
	if t.records[bIdx].numPrim == 1 {
		e.backupHeap.Insert(bIdx)
	} else {
		e.backupHeap.RestoreAt(t.records[bIdx].backupPos)
	}
}

func (e *Estimator) incrementBackupSamplers(bIdx int32) {
	e.counters.records[bIdx].numBackup++
}

// decrementPrimSamplers unregisters minIdx as a primary-sampler of bIdx,
// freeing bIdx's record if that was the last thing keeping it alive.
func (e *Estimator) decrementPrimSamplers(bIdx, minIdx int32) {
	t := e.counters
	pos := e.samplers[minIdx].cS0Pos
	t.records[bIdx].numPrim--
	if t.records[bIdx].numPrim == 0 {
		e.backupHeap.DeleteAt(t.records[bIdx].backupPos)
		if !t.live(bIdx) {
			t.freeRecord(bIdx)
			return
		}
	}
	t.records[bIdx].sampleHeap.DeleteAt(pos)
	e.backupHeap.RestoreAt(t.records[bIdx].backupPos)
}

func (e *Estimator) decrementBackupSamplers(bIdx int32) {
	t := e.counters
	t.records[bIdx].numBackup--
	if !t.live(bIdx) {
		t.freeRecord(bIdx)
	}
}

func (e *Estimator) doneProcessing(bIdx int32) {
	t := e.counters
	t.records[bIdx].processing = false
	if !t.live(bIdx) {
		t.freeRecord(bIdx)
	}
}

// Finalize computes the entropy estimate for everything seen so far. It may
// be called multiple times, and may be interleaved with further Update
// calls; it does not consume or alter the estimator's state.
func (e *Estimator) Finalize() float64 {
	defer metricsObserveFinalizeDuration(metricsStartTimer())
	if e.count == 0 || !e.twoDistinctTokens {
		metricsSetHeavyHitterDetected(false)
		return 0
	}
	m := e.count

	maxToken, maxCount := e.sketch.SaveMax()
	isHeavyHitter := maxCount > m/2
	metricsSetHeavyHitterDetected(isHeavyHitter)
	if isHeavyHitter {
		return e.finalizeHeavyHitter(maxToken, maxCount, m)
	}
	return e.finalizePlain(m)
}

func (e *Estimator) finalizeHeavyHitter(maxToken int32, maxCount, m int64) float64 {
	pMax := float64(maxCount) / float64(m)
	var sumXis float64
	for i := range e.samplers {
		s := &e.samplers[i]
		var r int64
		if e.counters.records[s.cS0].key == maxToken {
			r = e.counters.records[s.cS1].count - s.valCS1 + 1
		} else {
			r = e.counters.records[s.cS0].count - s.valCS0 + 1
		}
		sumXis += xTerm(r, m)
	}
	avgXis := sumXis / float64(e.c)
	return (1-pMax)*avgXis + pMax*math.Log2(1/pMax)
}

func (e *Estimator) finalizePlain(m int64) float64 {
	var sumXis float64
	for i := range e.samplers {
		s := &e.samplers[i]
		r := e.counters.records[s.cS0].count - s.valCS0 + 1
		sumXis += xTerm(r, m)
	}
	return sumXis / float64(e.c)
}

// xTerm computes the per-sampler surprisal contribution
// r*log2(m/r) - (r-1)*log2(m/(r-1)), with the r in {0, 1} conventions the
// combining estimator requires: the (r-1) term is dropped for r <= 1, and
// the r term itself is dropped for r == 0.
func xTerm(r, m int64) float64 {
	var x float64
	if r != 0 {
		x += float64(r) * math.Log2(float64(m)/float64(r))
	}
	if r > 1 {
		x -= float64(r-1) * math.Log2(float64(m)/float64(r-1))
	}
	return x
}

// Size estimates the estimator's current heap footprint in bytes.
func (e *Estimator) Size() int {
	const samplerSize = 64 // approximate sampler struct footprint
	total := len(e.samplers) * samplerSize
	total += e.counters.sizeBytes()
	total += e.sketch.sizeBytes()
	total += e.primHeap.sizeBytes() + e.backupHeap.sizeBytes()
	return total
}

// Close marks the estimator unusable for further Update calls. It does not
// free or clear the samplers, counter table, sketch or heaps; Finalize and
// Size still work on a closed estimator. It is safe to call multiple times.
func (e *Estimator) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	metricsEstimatorClosed()
	return nil
}
