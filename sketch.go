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

// heavyHitterSketch is a Misra-Gries frequent-items sketch: it tracks at
// most k distinct counters and guarantees that every token whose true
// frequency exceeds count/k is among the tracked ones, each undercounted
// by at most count/k.
//
// The reference implementation represents this as a fixed pool of counters
// threaded through a doubly-linked "groups" structure so that the
// decrement-all-counters step is O(1) regardless of k. That structure earns
// its complexity at very large k; here it is instead a plain map plus an
// insertion-ordered key slice, which keeps decrement-all O(k) but is far
// easier to read, and crucially gives deterministic iteration order, which
// Go's native map does not. Determinism in SaveMax's tie-breaking matters
// because it is reachable from Finalize, and Finalize's output must be a
// pure function of the input stream and seed.
type heavyHitterSketch struct {
	capacity int
	counts   map[int32]int64
	order    []int32 // insertion order, for deterministic tie-breaking
}

func newHeavyHitterSketch(capacity int) *heavyHitterSketch {
	if capacity < 1 {
		capacity = 1
	}
	return &heavyHitterSketch{
		capacity: capacity,
		counts:   make(map[int32]int64, capacity),
	}
}

// Update folds one token into the sketch, per the Misra-Gries rule: increment
// if already tracked, add if there is room, otherwise decrement every
// tracked counter and drop any that reach zero.
func (s *heavyHitterSketch) Update(token int32) {
	if _, ok := s.counts[token]; ok {
		s.counts[token]++
		return
	}
	if len(s.counts) < s.capacity {
		s.counts[token] = 1
		s.order = append(s.order, token)
		return
	}
	s.decrementAll()
}

func (s *heavyHitterSketch) decrementAll() {
	kept := s.order[:0]
	for _, tok := range s.order {
		c := s.counts[tok] - 1
		if c <= 0 {
			delete(s.counts, tok)
			continue
		}
		s.counts[tok] = c
		kept = append(kept, tok)
	}
	s.order = kept
}

// SaveMax reports the token with the greatest tracked count and that count.
// When tracked counters tie, the token inserted first wins, matching
// reference behavior where SaveMax always returns the sketch's last
// surviving group deterministically rather than an arbitrary one.
//
// Returns (0, 0) if nothing has been tracked yet.
func (s *heavyHitterSketch) SaveMax() (maxToken int32, maxCount int64) {
	for _, tok := range s.order {
		c := s.counts[tok]
		if c > maxCount {
			maxCount = c
			maxToken = tok
		}
	}
	return maxToken, maxCount
}

// Size reports the number of distinct tokens currently tracked.
func (s *heavyHitterSketch) Size() int {
	return len(s.counts)
}

// sizeBytes estimates this sketch's heap footprint for Estimator.Size.
func (s *heavyHitterSketch) sizeBytes() int {
	const perEntry = 20 // map bucket overhead plus key/value, approximated
	return len(s.counts)*perEntry + cap(s.order)*4
}
