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

// noIndex is the sentinel used throughout the arena-based design in place of
// a null pointer: "absent" or "not currently in any heap".
const noIndex int32 = -1

// counterRecord is one entry of the counter table (CT): the running count of
// a single distinct token together with the bookkeeping the sampling layer
// needs to keep that count alive only as long as something still refers to
// it.
//
// This is the Go counterpart of the c_a struct the fast core builds its hash
// table from. The original links records into the table's buckets and into
// a global "tracked" list using raw pointers; here every cross-reference is
// an int32 index into estimator.counters, which is what lets the slice
// reallocate on growth without invalidating anything held elsewhere.
type counterRecord struct {
	key   int32 // the distinct token this record counts
	count int64

	// numPrim and numBackup are reference counts: how many samplers
	// currently hold this record as their primary resp. backup sample.
	// processing is true for the brief window inside Update during which
	// a record is being resampled and would otherwise look momentarily
	// unreferenced.
	numPrim    int
	numBackup  int
	processing bool

	// sampleHeap is this record's private sample heap (SH), holding the
	// indices of every sampler whose primary sample is currently this
	// record, ordered by backupMinusDelay ascending.
	sampleHeap *idxheap

	// backupPos is this record's position in the global backup heap (BH),
	// or noIndex if the record is not currently represented there.
	backupPos int

	// hash chain linkage within the bucket it was inserted into.
	nextInBucket int32
	prevInBucket int32
	inUse        bool
}

// counterTable is the CT: a hash table over token identity with the
// reference-counted liveness lifecycle required by the sampling protocol.
// It owns the counterRecord arena; records are never moved once allocated,
// only recycled via freeList after they become fully dereferenced.
type counterTable struct {
	records  []counterRecord
	buckets  []int32 // each holds the arena index of its chain head, or noIndex
	freeList []int32

	// a and b are the coefficients of the universal 2-independent hash
	// function h(x) = ((a*x + b) mod p) mod len(buckets), drawn once at
	// construction from a source seeded independently of the sampling
	// PRNG so that hash collisions are not correlated with sampling
	// decisions.
	a, b uint64

	maxChain int // diagnostic high-water mark, see maxChainLen
}

// mersennePrime61 is 2^61 - 1, the Mersenne prime used as the modulus for
// the table's universal hash family.
const mersennePrime61 = (1 << 61) - 1

// newCounterTable builds a CT sized for up to c distinct live records, with
// 2c buckets as the fast core's symbol table uses.
func newCounterTable(c int, hashSeed int64) *counterTable {
	if c < 1 {
		c = 1
	}
	nb := 2 * c
	buckets := make([]int32, nb)
	for i := range buckets {
		buckets[i] = noIndex
	}
	src := prng.New(hashSeed)
	// a must be nonzero mod p, or the hash degenerates to the constant b.
	a := uint64(src.Uint32())%(mersennePrime61-1) + 1
	b := src.Uint32()
	return &counterTable{
		records: make([]counterRecord, 0, c),
		buckets: buckets,
		a:       uint64(a),
		b:       uint64(b),
	}
}

func (t *counterTable) hash(key int32) int {
	x := uint64(uint32(key))
	h := (t.a*x + t.b) % mersennePrime61
	return int(h % uint64(len(t.buckets)))
}

// alloc returns the arena index of a fresh or recycled counterRecord slot,
// zeroed except for its key.
func (t *counterTable) alloc(key int32) int32 {
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.records[idx] = counterRecord{key: key, backupPos: int(noIndex), nextInBucket: noIndex, prevInBucket: noIndex, inUse: true}
		return idx
	}
	t.records = append(t.records, counterRecord{key: key, backupPos: int(noIndex), nextInBucket: noIndex, prevInBucket: noIndex, inUse: true})
	return int32(len(t.records) - 1)
}

// free returns a fully-dereferenced record's slot to the pool. Callers must
// have already unlinked it from its bucket chain.
func (t *counterTable) free(idx int32) {
	t.records[idx] = counterRecord{}
	t.freeList = append(t.freeList, idx)
}

func (t *counterTable) link(bucket int, idx int32) {
	head := t.buckets[bucket]
	t.records[idx].nextInBucket = head
	t.records[idx].prevInBucket = noIndex
	if head != noIndex {
		t.records[head].prevInBucket = idx
	}
	t.buckets[bucket] = idx
	if n := chainLen(t, bucket); n > t.maxChain {
		t.maxChain = n
	}
}

func (t *counterTable) unlink(bucket int, idx int32) {
	r := &t.records[idx]
	if r.prevInBucket != noIndex {
		t.records[r.prevInBucket].nextInBucket = r.nextInBucket
	} else {
		t.buckets[bucket] = r.nextInBucket
	}
	if r.nextInBucket != noIndex {
		t.records[r.nextInBucket].prevInBucket = r.prevInBucket
	}
}

func chainLen(t *counterTable, bucket int) int {
	n := 0
	for i := t.buckets[bucket]; i != noIndex; i = t.records[i].nextInBucket {
		n++
	}
	return n
}

// lookup returns the arena index of key's record and true if it is present,
// or (noIndex, false) otherwise.
func (t *counterTable) lookup(key int32) (int32, bool) {
	bucket := t.hash(key)
	for i := t.buckets[bucket]; i != noIndex; i = t.records[i].nextInBucket {
		if t.records[i].key == key {
			return i, true
		}
	}
	return noIndex, false
}

// touch returns key's existing record, or allocates and links a fresh one
// (count 0, not referenced by anything yet) if key has not been seen since
// it was last fully dereferenced.
func (t *counterTable) touch(key int32) int32 {
	if idx, ok := t.lookup(key); ok {
		return idx
	}
	idx := t.alloc(key)
	t.link(t.hash(key), idx)
	return idx
}

// live reports whether idx is still referenced by anything: a sampler's
// primary, a sampler's backup, or the brief in-Update processing window.
// A record exists in the table if and only if this holds.
func (t *counterTable) live(idx int32) bool {
	r := &t.records[idx]
	return r.processing || r.numPrim > 0 || r.numBackup > 0
}

// freeRecord unlinks idx from its hash bucket and returns its slot to the
// pool. Callers must only call this once live(idx) has become false.
func (t *counterTable) freeRecord(idx int32) {
	r := &t.records[idx]
	t.unlink(t.hash(r.key), idx)
	t.free(idx)
}

// incrementCount increments idx's token count and marks it as being
// processed, mirroring increment_count's effect on an already-present
// entry. Estimator.Update calls this immediately after touch regardless of
// whether idx was just allocated or already existed, which reproduces
// increment_count's combined lookup-or-insert-and-bump behavior.
func (t *counterTable) incrementCount(idx int32) {
	t.records[idx].count++
	t.records[idx].processing = true
}

// liveCount returns the number of currently-referenced records, a
// diagnostic counterpart to the reference symbol table's
// total_elements_tracked.
func (t *counterTable) liveCount() int {
	n := 0
	for i := range t.records {
		if t.records[i].inUse {
			n++
		}
	}
	return n
}

// maxChainLen returns the longest bucket chain this table has ever held, a
// diagnostic counterpart to the reference symbol table's max_row.
func (t *counterTable) maxChainLen() int { return t.maxChain }

// sizeBytes estimates this table's heap footprint for Estimator.Size,
// including every record's private sample heap.
func (t *counterTable) sizeBytes() int {
	const recordSize = 64 // approximate counterRecord footprint, excluding its sample heap
	total := len(t.records)*recordSize + len(t.buckets)*4 + len(t.freeList)*4
	for i := range t.records {
		if t.records[i].sampleHeap != nil {
			total += t.records[i].sampleHeap.sizeBytes()
		}
	}
	return total
}
