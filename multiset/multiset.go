// Copyright 2024 The Cockroach Authors
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

// Package multiset implements a fixed-capacity hash multiset that never
// allocates after construction.
//
// # Layout
//
// A Multiset is an array of buckets. Each bucket is the head of a forward-only
// chain of entries whose keys hash to that bucket. Entries live in a
// slots.Pool supplied by the caller and are linked by slot index rather than
// by pointer, so the pool's storage is the only place an entry exists:
//
//	 buckets              pool
//	+-------+           +-----------------+
//	| 0 nil |           | 0: key=5 next=2 |
//	+-------+           | 1: key=2 next=- |
//	| 1  0  | --------> | 2: key=1 next=- |
//	+-------+           | 3: free         |
//	| 2  1  |           +-----------------+
//	+-------+
//	| 3 nil |
//	+-------+
//
// Duplicate keys are permitted. Entries with equal keys always share a bucket
// (the hash is deterministic) and are kept contiguous within that bucket's
// chain: Insert places a new entry directly after the existing run of its key,
// or at the end of the chain when there is none. Count, EqualRange and Erase
// therefore stop scanning at the first entry that follows the run.
//
// # Occupancy bounds
//
// Sparse bucket arrays are traversed without visiting every bucket. The
// multiset caches the positions of the first and last non-empty buckets and
// keeps an occupancy bitmap with one bit per bucket. Begin and End are built
// directly from the cached bounds, and advancing past the end of a chain
// jumps to the next set bit. The bounds are only recomputed when an erase
// empties the bucket at one of them.
//
// # Failures
//
// Inserting into a full multiset, dereferencing or erasing at an end cursor,
// mixing cursors between multisets and passing reversed ranges to bulk
// operations are reported through a fault.Handler. By default the failure is
// returned as a *fault.Error; WithErrorMode(fault.Abort) turns it into a
// panic. Every operation checks its preconditions before mutating, so a
// failed operation leaves the multiset unchanged.
//
// A Multiset is NOT goroutine-safe.
package multiset

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fixed/fault"
	"github.com/cockroachdb/fixed/hashing"
	"github.com/cockroachdb/fixed/internal/chain"
	"github.com/cockroachdb/fixed/slots"
)

const debug = false

// Entry holds one key of a Multiset together with the link to the next entry
// in its bucket. Entries are stored in a slots.Pool[Entry[K]] owned by the
// caller.
type Entry[K any] struct {
	key  K
	next slots.Index
}

// Key returns the entry's key.
func (e *Entry[K]) Key() K {
	return e.key
}

// NewPool returns a slot pool able to hold capacity entries. A pool must not
// be shared between multisets: Clear releases every slot of the pool at once.
func NewPool[K any](capacity int) *slots.Pool[Entry[K]] {
	return slots.New[Entry[K]](capacity)
}

// links adapts the entry pool to chain.Links.
type links[K any] struct {
	pool *slots.Pool[Entry[K]]
}

func (l links[K]) Next(i slots.Index) slots.Index {
	return l.pool.At(i).next
}

func (l links[K]) SetNext(i, next slots.Index) {
	l.pool.At(i).next = next
}

// Multiset is a fixed-capacity, unordered collection of keys in which a key
// may appear more than once.
type Multiset[K any] struct {
	hash  hashing.Func[K]
	equal func(a, b *K) bool
	// pool is not owned by the multiset and must outlive it.
	pool  *slots.Pool[Entry[K]]
	links chain.Links
	// buckets is allocated once, by New.
	buckets []chain.Chain
	// occupied has bit i set iff buckets[i] is not empty.
	occupied *bitset.BitSet
	// first and last bound the non-empty buckets. Both are 0 when the
	// multiset is empty.
	first, last int
	handler     fault.Handler
}

// New returns a multiset of comparable keys with bucketCount buckets that
// stores its entries in pool. Keys are compared with == and hashed with
// hashing.Default unless WithEqual or WithHash say otherwise.
func New[K comparable](
	pool *slots.Pool[Entry[K]], bucketCount int, options ...option[K],
) *Multiset[K] {
	return NewFunc(pool, bucketCount, hashing.Default[K](),
		func(a, b *K) bool { return *a == *b }, options...)
}

// NewFunc returns a multiset whose keys are hashed by hash and compared by
// equal. Keys that are equal must hash identically.
func NewFunc[K any](
	pool *slots.Pool[Entry[K]],
	bucketCount int,
	hash func(key *K) uint64,
	equal func(a, b *K) bool,
	options ...option[K],
) *Multiset[K] {
	if pool == nil {
		panic("multiset: nil pool")
	}
	if bucketCount < 1 {
		panic(fmt.Sprintf("multiset: invalid bucket count %d", bucketCount))
	}
	m := &Multiset[K]{
		hash:     hash,
		equal:    equal,
		pool:     pool,
		links:    links[K]{pool: pool},
		buckets:  make([]chain.Chain, bucketCount),
		occupied: bitset.New(uint(bucketCount)),
	}
	for i := range m.buckets {
		m.buckets[i] = chain.Make()
	}
	for _, op := range options {
		op.apply(m)
	}
	m.checkInvariants()
	return m
}

// Close clears the multiset and drops its reference to the pool. It is
// invalid to use a Multiset after it has been closed, though Close itself is
// idempotent.
func (m *Multiset[K]) Close() {
	if m.pool == nil {
		return
	}
	m.Clear()
	m.pool = nil
	m.links = nil
}

// Insert adds key to the multiset and returns a cursor to the new entry. If
// the pool is full, Insert fails with fault.KindCapacity and the multiset is
// unchanged.
func (m *Multiset[K]) Insert(key K) (Cursor[K], error) {
	if m.pool.Full() {
		return m.End(), m.fail(fault.KindCapacity, "multiset is full (max size %d)", m.pool.MaxSize())
	}
	return m.insert(&key), nil
}

// InsertKeys inserts every key. If there is not room for all of them
// InsertKeys fails with fault.KindCapacity and inserts none.
func (m *Multiset[K]) InsertKeys(keys ...K) error {
	if len(keys) > m.pool.Available() {
		return m.fail(fault.KindCapacity, "cannot insert %d keys, %d slots available",
			len(keys), m.pool.Available())
	}
	for i := range keys {
		m.insert(&keys[i])
	}
	return nil
}

// InsertHint is like Insert. The hint must be a cursor of m; it is checked
// but does not affect where the entry goes, since equal keys are always
// placed together.
func (m *Multiset[K]) InsertHint(hint Cursor[K], key K) (Cursor[K], error) {
	if err := m.checkCursor(hint); err != nil {
		return m.End(), err
	}
	if m.pool.Full() {
		return m.End(), m.fail(fault.KindCapacity, "multiset is full (max size %d)", m.pool.MaxSize())
	}
	return m.insert(&key), nil
}

// InsertRange inserts the keys in [first, last), which must be a range of
// another multiset. It fails, inserting nothing, with
// fault.KindIteratorRange if last cannot be reached from first and with
// fault.KindCapacity if there is not room for the whole range.
func (m *Multiset[K]) InsertRange(first, last Cursor[K]) error {
	if first.m == nil || first.m != last.m {
		return m.fail(fault.KindIteratorMisuse, "range cursors belong to different multisets")
	}
	if first.m == m {
		return m.fail(fault.KindIteratorMisuse, "cannot insert a multiset's own range")
	}
	n, ok := first.distance(last)
	if !ok {
		return m.fail(fault.KindIteratorRange, "range end is not reachable from its start")
	}
	if n > m.pool.Available() {
		return m.fail(fault.KindCapacity, "cannot insert %d keys, %d slots available", n, m.pool.Available())
	}
	for c := first; !c.Equal(last); c = c.Next() {
		m.insert(c.keyPtr())
	}
	return nil
}

// insert adds key, which the caller has verified there is room for.
func (m *Multiset[K]) insert(key *K) Cursor[K] {
	b := m.bucketIndex(key)
	bucket := &m.buckets[b]

	// Find the end of the run of keys equal to key, or the end of the chain
	// if there is no such run.
	pos := chain.BeforeBegin
	inRun := false
	for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
		if m.equal(key, &m.pool.At(cur).key) {
			inRun = true
		} else if inRun {
			break
		}
		pos = cur
	}

	i, ok := m.pool.Allocate()
	if !ok {
		panic(errors.AssertionFailedf("multiset: allocation failed with %d available", m.pool.Available()))
	}
	m.pool.At(i).key = *key
	bucket.InsertAfter(m.links, pos, i)
	m.adjustBoundsAfterInsert(b)

	if debug {
		fmt.Printf("insert(%v): bucket=%d slot=%d after=%d size=%d\n", *key, b, i, pos, m.Len())
	}
	m.checkInvariants()
	return m.cursorAt(b, i)
}

// Assign replaces the contents of the multiset with keys. If keys does not
// fit, Assign fails with fault.KindCapacity and the multiset is unchanged.
func (m *Multiset[K]) Assign(keys ...K) error {
	if len(keys) > m.pool.MaxSize() {
		return m.fail(fault.KindCapacity, "cannot assign %d keys (max size %d)", len(keys), m.pool.MaxSize())
	}
	m.Clear()
	for i := range keys {
		m.insert(&keys[i])
	}
	return nil
}

// AssignRange replaces the contents of the multiset with the keys in
// [first, last), which must be a range of another multiset. A range whose
// last cursor cannot be reached from first fails with
// fault.KindIteratorRange; a range longer than the capacity fails with
// fault.KindCapacity. On failure the multiset is unchanged.
func (m *Multiset[K]) AssignRange(first, last Cursor[K]) error {
	if first.m == nil || first.m != last.m {
		return m.fail(fault.KindIteratorMisuse, "range cursors belong to different multisets")
	}
	if first.m == m {
		return m.fail(fault.KindIteratorMisuse, "cannot assign a multiset from its own range")
	}
	n, ok := first.distance(last)
	if !ok {
		return m.fail(fault.KindIteratorRange, "range end is not reachable from its start")
	}
	if n > m.pool.MaxSize() {
		return m.fail(fault.KindCapacity, "cannot assign %d keys (max size %d)", n, m.pool.MaxSize())
	}
	m.Clear()
	for c := first; !c.Equal(last); c = c.Next() {
		m.insert(c.keyPtr())
	}
	return nil
}

// Find returns a cursor to the first entry equal to key, or End if there is
// none.
func (m *Multiset[K]) Find(key K) Cursor[K] {
	b := m.bucketIndex(&key)
	bucket := &m.buckets[b]
	for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
		if m.equal(&key, &m.pool.At(cur).key) {
			return m.cursorAt(b, cur)
		}
	}
	return m.End()
}

// Contains reports whether at least one entry equals key.
func (m *Multiset[K]) Contains(key K) bool {
	return !m.Find(key).IsEnd()
}

// Count returns the number of entries equal to key.
func (m *Multiset[K]) Count(key K) int {
	n := 0
	f := m.Find(key)
	for c := f; !c.IsEnd() && m.equal(&key, c.keyPtr()); c = c.Next() {
		n++
	}
	return n
}

// EqualRange returns the range [first, last) of entries equal to key. Both
// cursors are End if there is none.
func (m *Multiset[K]) EqualRange(key K) (first, last Cursor[K]) {
	first = m.Find(key)
	last = first
	for !last.IsEnd() && m.equal(&key, last.keyPtr()) {
		last = last.Next()
	}
	return first, last
}

// Erase removes every entry equal to key and returns how many were removed.
func (m *Multiset[K]) Erase(key K) int {
	b := m.bucketIndex(&key)
	bucket := &m.buckets[b]

	n := 0
	prev := chain.BeforeBegin
	for cur := bucket.Begin(); cur != slots.Nil; {
		if !m.equal(&key, &m.pool.At(cur).key) {
			if n > 0 {
				// The run has ended.
				break
			}
			prev, cur = cur, m.links.Next(cur)
			continue
		}
		next := bucket.EraseAfter(m.links, prev)
		m.pool.Release(cur)
		m.adjustBoundsAfterErase(b)
		n++
		cur = next
	}

	if debug && n > 0 {
		fmt.Printf("erase(%v): bucket=%d removed=%d size=%d\n", key, b, n, m.Len())
	}
	m.checkInvariants()
	return n
}

// EraseAt removes the entry at c and returns a cursor to the entry that
// followed it, which may be in a later bucket. Erasing at an end cursor, a
// cursor of another multiset or a cursor whose entry has already been erased
// fails with fault.KindIteratorMisuse.
func (m *Multiset[K]) EraseAt(c Cursor[K]) (Cursor[K], error) {
	if err := m.checkCursor(c); err != nil {
		return m.End(), err
	}
	if c.node == slots.Nil {
		return m.End(), m.fail(fault.KindIteratorMisuse, "erase at end cursor")
	}
	bucket := &m.buckets[c.bucket]
	prev, ok := bucket.Predecessor(m.links, c.node)
	if !ok {
		return m.End(), m.fail(fault.KindIteratorMisuse, "cursor does not refer to a live entry")
	}

	// Locate the successor before unlinking, while c is still valid.
	next := c.Next()
	bucket.EraseAfter(m.links, prev)
	m.pool.Release(c.node)
	m.adjustBoundsAfterErase(c.bucket)
	if next.IsEnd() {
		next = m.End()
	}

	m.checkInvariants()
	return next, nil
}

// EraseRange removes the entries in [first, last), which may span several
// buckets, and returns a cursor to last. If last cannot be reached from first
// EraseRange fails with fault.KindIteratorRange and erases nothing.
func (m *Multiset[K]) EraseRange(first, last Cursor[K]) (Cursor[K], error) {
	if err := m.checkCursor(first); err != nil {
		return m.End(), err
	}
	if err := m.checkCursor(last); err != nil {
		return m.End(), err
	}
	if first.Equal(last) {
		return last, nil
	}
	if first.node == slots.Nil {
		return m.End(), m.fail(fault.KindIteratorRange, "range starts at end cursor")
	}
	bucket := &m.buckets[first.bucket]
	prev, ok := bucket.Predecessor(m.links, first.node)
	if !ok {
		return m.End(), m.fail(fault.KindIteratorMisuse, "range start does not refer to a live entry")
	}
	if _, ok := first.distance(last); !ok {
		return m.End(), m.fail(fault.KindIteratorRange, "range end is not reachable from its start")
	}

	b := first.bucket
	for cur := first.node; cur != last.node; {
		next := bucket.EraseAfter(m.links, prev)
		m.pool.Release(cur)
		m.adjustBoundsAfterErase(b)
		cur = next
		if cur == slots.Nil {
			// The chain is exhausted; continue in the next non-empty bucket.
			nb, ok := m.occupied.NextSet(uint(b + 1))
			if !ok {
				break
			}
			b = int(nb)
			bucket = &m.buckets[b]
			prev = chain.BeforeBegin
			cur = bucket.Begin()
		}
	}

	m.checkInvariants()
	if last.IsEnd() {
		return m.End(), nil
	}
	return last, nil
}

// Clear removes every entry. The keys are zeroed in place and the slots are
// then returned to the pool in a single ReleaseAll.
func (m *Multiset[K]) Clear() {
	if !m.pool.Empty() {
		var zero K
		for b, ok := m.occupied.NextSet(0); ok; b, ok = m.occupied.NextSet(b + 1) {
			bucket := &m.buckets[b]
			for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
				m.pool.At(cur).key = zero
			}
			bucket.Clear()
		}
		m.pool.ReleaseAll()
	}
	m.occupied.ClearAll()
	m.first, m.last = 0, 0
	m.checkInvariants()
}

// Begin returns a cursor to the first entry in iteration order, or End if
// the multiset is empty.
func (m *Multiset[K]) Begin() Cursor[K] {
	return m.cursorAt(m.first, m.buckets[m.first].Begin())
}

// End returns the cursor one past the last entry.
func (m *Multiset[K]) End() Cursor[K] {
	return Cursor[K]{m: m, bucket: m.last, node: slots.Nil}
}

// All calls yield sequentially for each key in the multiset. If yield
// returns false, iteration stops. Equal keys are visited consecutively. The
// multiset must not be mutated during iteration.
func (m *Multiset[K]) All(yield func(key K) bool) {
	for c := m.Begin(); !c.IsEnd(); c = c.Next() {
		if !yield(*c.keyPtr()) {
			return
		}
	}
}

// BucketAll calls yield sequentially for each key in bucket i.
func (m *Multiset[K]) BucketAll(i int, yield func(key K) bool) {
	bucket := &m.buckets[i]
	for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
		if !yield(m.pool.At(cur).key) {
			return
		}
	}
}

// BucketIndex returns the bucket key hashes to.
func (m *Multiset[K]) BucketIndex(key K) int {
	return m.bucketIndex(&key)
}

// BucketSize returns the number of entries in the bucket key hashes to.
func (m *Multiset[K]) BucketSize(key K) int {
	return m.buckets[m.bucketIndex(&key)].Len(m.links)
}

// Hash returns the function used to hash keys.
func (m *Multiset[K]) Hash() func(key *K) uint64 { return m.hash }

// KeyEqual returns the function used to compare keys.
func (m *Multiset[K]) KeyEqual() func(a, b *K) bool { return m.equal }

// BucketCount returns the number of buckets.
func (m *Multiset[K]) BucketCount() int { return len(m.buckets) }

// MaxBucketCount returns the number of buckets, which never changes.
func (m *Multiset[K]) MaxBucketCount() int { return len(m.buckets) }

// Len returns the number of entries, which is the number of allocated slots
// in the pool.
func (m *Multiset[K]) Len() int { return m.pool.Size() }

// MaxSize returns the capacity of the pool.
func (m *Multiset[K]) MaxSize() int { return m.pool.MaxSize() }

// Available returns the number of entries that can still be inserted.
func (m *Multiset[K]) Available() int { return m.pool.Available() }

// Empty reports whether the pool holds no entries.
func (m *Multiset[K]) Empty() bool { return m.pool.Empty() }

// Full reports whether the pool has no free slots.
func (m *Multiset[K]) Full() bool { return m.pool.Full() }

// LoadFactor returns Len divided by BucketCount.
func (m *Multiset[K]) LoadFactor() float64 {
	return float64(m.Len()) / float64(len(m.buckets))
}

// Equal reports whether a and b hold the same keys with the same
// multiplicities, as judged by a's equality function.
func Equal[K any](a, b *Multiset[K]) bool {
	if a.Len() != b.Len() {
		return false
	}
	for c := a.Begin(); !c.IsEnd(); {
		key := c.keyPtr()
		n := 0
		for ; !c.IsEnd() && a.equal(key, c.keyPtr()); c = c.Next() {
			n++
		}
		if b.Count(*key) != n {
			return false
		}
	}
	return true
}

func (m *Multiset[K]) bucketIndex(key *K) int {
	return int(m.hash(key) % uint64(len(m.buckets)))
}

// adjustBoundsAfterInsert marks bucket b occupied and widens the occupancy
// bounds to include it.
func (m *Multiset[K]) adjustBoundsAfterInsert(b int) {
	m.occupied.Set(uint(b))
	if m.pool.Size() == 1 {
		m.first, m.last = b, b
		return
	}
	if b < m.first {
		m.first = b
	} else if b > m.last {
		m.last = b
	}
}

// adjustBoundsAfterErase updates the occupancy after an entry was removed
// from bucket b. The bounds only move if b was one of them and is now empty:
// first narrows forward to the next occupied bucket and last narrows back to
// the previous one.
func (m *Multiset[K]) adjustBoundsAfterErase(b int) {
	if !m.buckets[b].Empty() {
		return
	}
	m.occupied.Clear(uint(b))
	if m.occupied.None() {
		m.first, m.last = 0, 0
		return
	}
	if b == m.first {
		next, _ := m.occupied.NextSet(uint(b))
		m.first = int(next)
	} else if b == m.last {
		prev, _ := m.occupied.PreviousSet(uint(b))
		m.last = int(prev)
	}
}

// cursorAt returns a cursor to node in bucket b, stamped with the node's
// current generation.
func (m *Multiset[K]) cursorAt(b int, node slots.Index) Cursor[K] {
	return Cursor[K]{m: m, bucket: b, node: node, gen: m.pool.Generation(node)}
}

// checkCursor verifies that c was produced by m and that its entry, if any,
// has not been erased since.
func (m *Multiset[K]) checkCursor(c Cursor[K]) error {
	if c.m != m {
		return m.failDepth(1, fault.KindIteratorMisuse, "cursor belongs to a different multiset")
	}
	if c.node != slots.Nil && (c.bucket < 0 || c.bucket >= len(m.buckets) || !m.pool.Live(c.node, c.gen)) {
		return m.failDepth(1, fault.KindIteratorMisuse, "cursor does not refer to a live entry")
	}
	return nil
}

func (m *Multiset[K]) fail(kind fault.Kind, format string, args ...interface{}) error {
	return m.failDepth(1, kind, format, args...)
}

func (m *Multiset[K]) failDepth(depth int, kind fault.Kind, format string, args ...interface{}) error {
	return m.handler.Raise(fault.NewWithDepth(depth+1, kind, fmt.Sprintf(format, args...)))
}

func (m *Multiset[K]) checkInvariants() {
	if invariants {
		if err := m.validate(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, m.debugString()))
		}
	}
}

// validate checks the structural invariants: every entry is in the bucket its
// key hashes to, equal keys are contiguous, the occupancy bitmap agrees with
// the buckets, the bounds are the first and last occupied buckets and the
// number of linked entries equals the pool size.
func (m *Multiset[K]) validate() error {
	linked := 0
	lo, hi := -1, -1
	for b := range m.buckets {
		bucket := &m.buckets[b]
		if bucket.Empty() == m.occupied.Test(uint(b)) {
			return errors.AssertionFailedf("bucket %d: empty=%t but occupied bit=%t",
				b, bucket.Empty(), m.occupied.Test(uint(b)))
		}
		if bucket.Empty() {
			continue
		}
		if lo < 0 {
			lo = b
		}
		hi = b

		prev := slots.Nil
		for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
			linked++
			if !m.pool.InUse(cur) {
				return errors.AssertionFailedf("bucket %d: slot %d is linked but not allocated", b, cur)
			}
			key := &m.pool.At(cur).key
			if h := m.bucketIndex(key); h != b {
				return errors.AssertionFailedf("bucket %d: slot %d hashes to bucket %d", b, cur, h)
			}
			if prev != slots.Nil && !m.equal(key, &m.pool.At(prev).key) {
				// A new run starts at cur; no earlier run may hold the same key.
				for e := bucket.Begin(); e != cur; e = m.links.Next(e) {
					if m.equal(key, &m.pool.At(e).key) {
						return errors.AssertionFailedf("bucket %d: run of slot %d is not contiguous", b, cur)
					}
				}
			}
			prev = cur
		}
	}

	if linked != m.pool.Size() {
		return errors.AssertionFailedf("found %d linked entries, but pool size is %d", linked, m.pool.Size())
	}
	if linked == 0 {
		if m.first != 0 || m.last != 0 {
			return errors.AssertionFailedf("empty multiset has bounds [%d,%d]", m.first, m.last)
		}
		return nil
	}
	if m.first != lo || m.last != hi {
		return errors.AssertionFailedf("bounds are [%d,%d], occupied buckets span [%d,%d]",
			m.first, m.last, lo, hi)
	}
	return nil
}

func (m *Multiset[K]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  size=%d  first=%d  last=%d\n",
		len(m.buckets), m.pool.Size(), m.first, m.last)
	for b := range m.buckets {
		bucket := &m.buckets[b]
		if bucket.Empty() {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", b)
		for cur := bucket.Begin(); cur != slots.Nil; cur = m.links.Next(cur) {
			fmt.Fprintf(&buf, " %v[%d]", m.pool.At(cur).key, cur)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
