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

// Package slots provides fixed-capacity slot allocators. A FreeList hands out
// indices in [0, capacity) in O(1); a Pool[T] pairs a FreeList with storage for
// capacity values of type T that is allocated once, when the pool is created.
//
// Neither type allocates after construction. Neither is goroutine-safe.
package slots

import (
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// Index addresses a slot. Indices are stable for as long as the slot is
// allocated.
type Index int32

// Nil is the index that never refers to a slot.
const Nil Index = -1

// MaxCapacity is the largest capacity a FreeList supports.
const MaxCapacity = math.MaxInt32

// FreeList allocates slot indices from a fixed range. Released indices are
// reused last-in first-out; indices that were never handed out are taken
// from a high-water mark, so ReleaseAll does not need to rebuild the free
// list.
type FreeList struct {
	// next[i] is the free slot after i while i is on the free stack.
	next []Index
	// head of the free stack, or Nil.
	head Index
	// Slots at or above initialised have never been handed out since the
	// last ReleaseAll.
	initialised int
	used        int
	inUse       *bitset.BitSet
	// gen[i] counts the releases of slot i. epoch counts ReleaseAll calls.
	gen   []uint32
	epoch uint32
}

// Generation identifies one allocation of a slot. It changes every time the
// slot is released, so a Generation recorded while a slot was allocated no
// longer matches once that allocation has ended, even if the index has been
// handed out again.
type Generation uint64

// NewFreeList returns a FreeList of the given capacity. It panics if capacity
// is negative or larger than MaxCapacity.
func NewFreeList(capacity int) *FreeList {
	f := &FreeList{}
	f.Init(capacity)
	return f
}

// Init initialises f with the given capacity, discarding any prior state.
func (f *FreeList) Init(capacity int) {
	if capacity < 0 || capacity > MaxCapacity {
		panic(fmt.Sprintf("slots: invalid capacity %d", capacity))
	}
	*f = FreeList{
		next:  make([]Index, capacity),
		head:  Nil,
		inUse: bitset.New(uint(capacity)),
		gen:   make([]uint32, capacity),
	}
}

// Allocate claims a free slot. It returns false if every slot is in use.
func (f *FreeList) Allocate() (Index, bool) {
	var i Index
	switch {
	case f.head != Nil:
		i = f.head
		f.head = f.next[i]
	case f.initialised < len(f.next):
		i = Index(f.initialised)
		f.initialised++
	default:
		return Nil, false
	}
	f.next[i] = Nil
	f.used++
	f.inUse.Set(uint(i))
	return i, true
}

// Release returns slot i to the free list. It returns false, and does
// nothing, if i is out of range or not currently allocated.
func (f *FreeList) Release(i Index) bool {
	if !f.InUse(i) {
		return false
	}
	f.inUse.Clear(uint(i))
	f.gen[i]++
	f.next[i] = f.head
	f.head = i
	f.used--
	return true
}

// ReleaseAll returns every slot to the free list at once. Every outstanding
// Generation is invalidated.
func (f *FreeList) ReleaseAll() {
	f.epoch++
	f.head = Nil
	f.initialised = 0
	f.used = 0
	f.inUse.ClearAll()
}

// InUse reports whether slot i is currently allocated.
func (f *FreeList) InUse(i Index) bool {
	return i >= 0 && int(i) < len(f.next) && f.inUse.Test(uint(i))
}

// Generation returns the current generation of slot i. Compare it with
// Live to tell whether an earlier allocation is still current.
func (f *FreeList) Generation(i Index) Generation {
	if i < 0 || int(i) >= len(f.gen) {
		return 0
	}
	return Generation(uint64(f.epoch)<<32 | uint64(f.gen[i]))
}

// Live reports whether slot i is allocated and still in generation g.
func (f *FreeList) Live(i Index, g Generation) bool {
	return f.InUse(i) && f.Generation(i) == g
}

// Size returns the number of allocated slots.
func (f *FreeList) Size() int { return f.used }

// MaxSize returns the capacity.
func (f *FreeList) MaxSize() int { return len(f.next) }

// Available returns the number of free slots.
func (f *FreeList) Available() int { return len(f.next) - f.used }

// Empty reports whether no slot is allocated.
func (f *FreeList) Empty() bool { return f.used == 0 }

// Full reports whether every slot is allocated.
func (f *FreeList) Full() bool { return f.used == len(f.next) }

// Pool is a FreeList with storage for one T per slot.
type Pool[T any] struct {
	FreeList
	items []T
}

// New returns a Pool holding up to capacity values of type T.
func New[T any](capacity int) *Pool[T] {
	p := &Pool[T]{}
	p.FreeList.Init(capacity)
	p.items = make([]T, capacity)
	return p
}

// Allocate claims a slot and returns its index. The slot holds the zero T.
func (p *Pool[T]) Allocate() (Index, bool) {
	i, ok := p.FreeList.Allocate()
	if ok {
		var zero T
		p.items[i] = zero
	}
	return i, ok
}

// At returns a pointer to the value in slot i. The pointer stays valid until
// the slot is released. At does not check that i is allocated.
func (p *Pool[T]) At(i Index) *T {
	return &p.items[i]
}

// Release zeroes slot i and returns it to the free list. It returns false if
// i is not allocated.
func (p *Pool[T]) Release(i Index) bool {
	if !p.FreeList.Release(i) {
		return false
	}
	var zero T
	p.items[i] = zero
	return true
}

// ReleaseAll returns every slot to the free list without visiting them.
// Values left in released slots are overwritten when the slot is next
// allocated; callers holding references in T should clear them first.
func (p *Pool[T]) ReleaseAll() {
	p.FreeList.ReleaseAll()
}
