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

package multiset

import (
	"github.com/cockroachdb/fixed/fault"
	"github.com/cockroachdb/fixed/slots"
)

// Cursor is a forward-only position in a Multiset. It is the triple of the
// multiset (which bounds the bucket array), the current bucket and the
// current entry within that bucket. A cursor is invalidated when the entry
// it refers to is erased, even if its slot is later reused; cursors to other
// entries remain valid.
type Cursor[K any] struct {
	m      *Multiset[K]
	bucket int
	node   slots.Index
	// gen is the generation of node's slot when the cursor was made.
	gen slots.Generation
}

// Next returns the cursor to the following entry. When the current bucket is
// exhausted, Next moves to the next non-empty bucket, or to the end. Next on
// an end cursor returns it unchanged.
func (c Cursor[K]) Next() Cursor[K] {
	if c.node == slots.Nil {
		return c
	}
	if next := c.m.links.Next(c.node); next != slots.Nil {
		return c.m.cursorAt(c.bucket, next)
	}
	if b, ok := c.m.occupied.NextSet(uint(c.bucket + 1)); ok {
		return c.m.cursorAt(int(b), c.m.buckets[b].Begin())
	}
	c.bucket = len(c.m.buckets)
	c.node, c.gen = slots.Nil, 0
	return c
}

// Key returns the key at the cursor. Dereferencing an end cursor, or a cursor
// whose entry has been erased, fails with fault.KindIteratorMisuse.
func (c Cursor[K]) Key() (K, error) {
	if c.m == nil {
		var zero K
		return zero, fault.New(fault.KindIteratorMisuse, "dereference of zero cursor")
	}
	if c.node == slots.Nil {
		var zero K
		return zero, c.m.fail(fault.KindIteratorMisuse, "dereference of end cursor")
	}
	if c.m.pool == nil || !c.m.pool.Live(c.node, c.gen) {
		var zero K
		return zero, c.m.fail(fault.KindIteratorMisuse, "dereference of stale cursor")
	}
	return *c.keyPtr(), nil
}

// IsEnd reports whether c is past the last entry.
func (c Cursor[K]) IsEnd() bool {
	return c.node == slots.Nil
}

// Bucket returns the index of the bucket the cursor is in. For end cursors
// the result is either the last occupied bucket or BucketCount.
func (c Cursor[K]) Bucket() int {
	return c.bucket
}

// Equal reports whether c and o are at the same position.
//
// Only the entry position is compared, not the bucket or the multiset. All
// end cursors are therefore equal to each other regardless of the bucket they
// were produced in, which is what makes End usable as a loop bound. Comparing
// cursors of different multisets is not meaningful.
func (c Cursor[K]) Equal(o Cursor[K]) bool {
	return c.node == o.node
}

func (c Cursor[K]) keyPtr() *K {
	return &c.m.pool.At(c.node).key
}

// distance returns the number of steps from c to last. It returns false if
// last is not reached before the end.
func (c Cursor[K]) distance(last Cursor[K]) (int, bool) {
	n := 0
	for ; !c.Equal(last); c = c.Next() {
		if c.IsEnd() {
			return 0, false
		}
		n++
	}
	return n, true
}
