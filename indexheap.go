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

// idxheap is an array-backed indexed min-heap of arena indices (int32).
// Every stored element carries, via setPos, the index of its own slot so
// that a caller can later locate and fix up that element in O(log n)
// without a linear scan.
//
// The fast core needs three such heaps (the primary heap, the backup heap,
// and one sample heap per live counter record). In the reference C
// implementation these are three separately hand-written files
// (heap.c, backup_heap.c, c_a_heap.c) that differ only in the element type
// and in which struct field receives the back-index; idxheap consolidates
// that duplicated logic into one generic implementation parameterized by a
// comparator and a position-update hook, and is reused for all three.
type idxheap struct {
	items []int32
	// less reports whether the element at arena index a sorts before b.
	less func(a, b int32) bool
	// setPos is invoked whenever the element at arena index a is moved to
	// heap slot pos (or pos == -1 when it is removed from the heap
	// entirely). May be nil if the caller does not need back-indices
	// (the primary heap has no use for one: samplers are only ever
	// reinserted after being popped via DeleteMin, never deleted from an
	// interior position).
	setPos func(a int32, pos int)
}

func newIdxheap(less func(a, b int32) bool, setPos func(a int32, pos int)) *idxheap {
	return &idxheap{less: less, setPos: setPos}
}

func (h *idxheap) Len() int { return len(h.items) }

func (h *idxheap) mark(pos int) {
	if h.setPos != nil {
		h.setPos(h.items[pos], pos)
	}
}

func (h *idxheap) set(pos int, val int32) {
	h.items[pos] = val
	h.mark(pos)
}

// Insert adds val to the heap and restores the heap property by sifting up.
func (h *idxheap) Insert(val int32) {
	h.items = append(h.items, val)
	pos := len(h.items) - 1
	h.set(pos, val)
	h.siftUp(pos)
}

// PeekMin returns the minimum element without removing it.
func (h *idxheap) PeekMin() int32 {
	if len(h.items) == 0 {
		panicInvariant("idxheap.PeekMin", "called on empty heap")
	}
	return h.items[0]
}

// DeleteMin removes and returns the minimum element.
func (h *idxheap) DeleteMin() int32 {
	if len(h.items) == 0 {
		panicInvariant("idxheap.DeleteMin", "called on empty heap")
	}
	min := h.items[0]
	if h.setPos != nil {
		h.setPos(min, -1)
	}
	h.deleteAt(0)
	return min
}

// DeleteAt removes the element currently at heap slot pos. pos == -1 is
// tolerated as a no-op (the "not present" sentinel used throughout the
// estimator).
func (h *idxheap) DeleteAt(pos int) {
	if pos == -1 {
		return
	}
	if pos < 0 || pos >= len(h.items) {
		panicInvariant("idxheap.DeleteAt", "index %d out of range (size %d)", pos, len(h.items))
	}
	if h.setPos != nil {
		h.setPos(h.items[pos], -1)
	}
	h.deleteAt(pos)
}

// deleteAt removes the element at pos by moving the last element into its
// slot and restoring the heap property there (sift up or down as needed).
func (h *idxheap) deleteAt(pos int) {
	last := len(h.items) - 1
	if pos == last {
		h.items = h.items[:last]
		return
	}
	h.items[pos] = h.items[last]
	h.items = h.items[:last]
	h.restoreAt(pos)
}

// RestoreAt fixes the heap property after the element at heap slot pos may
// have had its sort key change externally. A no-op if the element is
// already correctly placed. Tolerates pos == -1 (not present).
func (h *idxheap) RestoreAt(pos int) {
	if pos == -1 {
		return
	}
	if pos < 0 || pos >= len(h.items) {
		panicInvariant("idxheap.RestoreAt", "index %d out of range (size %d)", pos, len(h.items))
	}
	h.restoreAt(pos)
}

func (h *idxheap) restoreAt(pos int) {
	if pos > 0 && h.less(h.items[pos], h.items[parent(pos)]) {
		h.siftUp(pos)
		return
	}
	h.siftDown(pos)
}

func (h *idxheap) siftUp(pos int) {
	val := h.items[pos]
	for pos > 0 {
		p := parent(pos)
		if !h.less(val, h.items[p]) {
			break
		}
		h.set(pos, h.items[p])
		pos = p
	}
	h.set(pos, val)
}

func (h *idxheap) siftDown(pos int) {
	n := len(h.items)
	val := h.items[pos]
	for {
		l, r := left(pos), right(pos)
		smallest := pos
		cand := val
		if l < n && h.less(h.items[l], cand) {
			smallest, cand = l, h.items[l]
		}
		if r < n && h.less(h.items[r], cand) {
			smallest, cand = r, h.items[r]
		}
		if smallest == pos {
			break
		}
		h.set(pos, h.items[smallest])
		pos = smallest
	}
	h.set(pos, val)
}

func parent(i int) int { return (i - 1) / 2 }
func left(i int) int   { return 2*i + 1 }
func right(i int) int  { return 2*i + 2 }

// sizeBytes reports the heap's array storage, in bytes, for Estimator.Size.
func (h *idxheap) sizeBytes() int {
	const int32Size = 4
	return cap(h.items) * int32Size
}
