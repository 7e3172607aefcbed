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

// Package variantpool implements a fixed-capacity object pool whose objects
// may be of any type drawn from a closed set of at most MaxVariants types.
//
// The pool owns one backing store of N equally sized slots. The slot size is
// the size of the largest declared type rounded up to a multiple of 8, so any
// slot can hold an object of any declared type and allocation is O(1)
// regardless of which type is created. Every slot carries a tag naming the
// type that currently lives in it, or no type if the slot is free.
//
//	p, err := variantpool.New[Shape](64, []variantpool.Variant{
//		variantpool.Of[Circle](),
//		variantpool.Of[Rect](),
//	})
//	c, err := variantpool.Create(p, func(c *Circle) { c.R = 2 })
//	...
//	err = p.Destroy(c)
//
// B is the capability interface shared by the declared types: a pointer to
// each declared type must implement it, which lets objects be destroyed and
// enumerated through a B handle without knowing their concrete type.
//
// The backing store is never scanned by the garbage collector, so declared
// types must not contain pointers, strings, slices, maps, channels, functions
// or interfaces. The pool checks this, and the other layout requirements,
// once in New.
//
// A Pool does not destroy the objects still alive in it when it is dropped.
// Use All to visit and Destroy them first if they hold resources.
package variantpool

import (
	"fmt"
	"log/slog"
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fixed/fault"
	"github.com/cockroachdb/fixed/slots"
)

// MaxVariants is the largest number of types a Pool may declare.
const MaxVariants = 16

const (
	// noVariant tags a free slot. Declared variants are tagged 1..MaxVariants.
	noVariant uint8 = 0
	wordSize        = unsafe.Sizeof(uint64(0))
)

// Variant describes one of the types a Pool may hold.
type Variant struct {
	typ reflect.Type
}

// Of returns the Variant for T.
func Of[T any]() Variant {
	return Variant{typ: reflect.TypeFor[T]()}
}

// Type returns the variant's type.
func (v Variant) Type() reflect.Type {
	return v.typ
}

func (v Variant) String() string {
	if v.typ == nil {
		return "<nil>"
	}
	return v.typ.String()
}

// Disposer is implemented by objects that need to release resources when
// they are destroyed. Destroy calls Dispose before the slot is reclaimed.
type Disposer interface {
	Dispose()
}

// store is a strided view over the backing words.
type store struct {
	ptr    unsafe.Pointer
	stride uintptr
	len    uintptr
}

func makeStore(words []uint64, stride, n uintptr) store {
	return store{ptr: unsafe.Pointer(unsafe.SliceData(words)), stride: stride, len: n}
}

// At returns a pointer to slot i.
func (s store) At(i slots.Index) unsafe.Pointer {
	return unsafe.Add(s.ptr, s.stride*uintptr(i))
}

// indexOf returns the slot that begins at p. It returns false if p is outside
// the store or not at the start of a slot.
func (s store) indexOf(p unsafe.Pointer) (slots.Index, bool) {
	base, addr := uintptr(s.ptr), uintptr(p)
	if addr < base {
		return slots.Nil, false
	}
	off := addr - base
	if off >= s.stride*s.len || off%s.stride != 0 {
		return slots.Nil, false
	}
	return slots.Index(off / s.stride), true
}

// Pool is a fixed-capacity pool of objects whose types are drawn from a
// closed set. B is the capability interface the pointer to every declared
// type implements.
type Pool[B any] struct {
	// words is the backing store, allocated once in New.
	words []uint64
	store store
	// tags[i] is the variant living in slot i, or noVariant.
	tags     []uint8
	free     slots.FreeList
	variants []reflect.Type
	handler  fault.Handler
}

// New returns a Pool of capacity slots that may hold any of variants. New
// fails with fault.KindTypeMismatch if B is not an interface, if there are no
// variants or more than MaxVariants, if a variant is declared twice, if a
// variant contains pointers or needs more than 8-byte alignment, or if a
// pointer to a variant does not implement B. A capacity outside
// [1, slots.MaxCapacity] fails with fault.KindCapacity.
func New[B any](capacity int, variants []Variant, options ...Option) (*Pool[B], error) {
	var cfg config
	for _, op := range options {
		op.apply(&cfg)
	}
	h := cfg.handler

	fail := func(kind fault.Kind, format string, args ...interface{}) error {
		return h.Raise(fault.NewWithDepth(1, kind, fmt.Sprintf(format, args...)))
	}

	if capacity < 1 || capacity > slots.MaxCapacity {
		return nil, fail(fault.KindCapacity, "invalid capacity %d", capacity)
	}
	capType := reflect.TypeFor[B]()
	if capType.Kind() != reflect.Interface {
		return nil, fail(fault.KindTypeMismatch, "capability type %s is not an interface", capType)
	}
	if len(variants) == 0 || len(variants) > MaxVariants {
		return nil, fail(fault.KindTypeMismatch, "%d variants declared, want 1 to %d", len(variants), MaxVariants)
	}

	types := make([]reflect.Type, len(variants))
	maxSize := uintptr(0)
	for i, v := range variants {
		t := v.typ
		if t == nil {
			return nil, fail(fault.KindTypeMismatch, "variant %d is the zero Variant", i)
		}
		for _, prev := range types[:i] {
			if prev == t {
				return nil, fail(fault.KindTypeMismatch, "variant %s is declared twice", t)
			}
		}
		if err := checkLayout(t); err != nil {
			return nil, fail(fault.KindTypeMismatch, "variant %s: %v", t, err)
		}
		if !reflect.PointerTo(t).Implements(capType) {
			return nil, fail(fault.KindTypeMismatch, "*%s does not implement %s", t, capType)
		}
		types[i] = t
		maxSize = max(maxSize, t.Size())
	}

	stride := (max(maxSize, 1) + wordSize - 1) &^ (wordSize - 1)
	p := &Pool[B]{
		words:    make([]uint64, uintptr(capacity)*stride/wordSize),
		tags:     make([]uint8, capacity),
		variants: types,
		handler:  h,
	}
	p.store = makeStore(p.words, stride, uintptr(capacity))
	p.free.Init(capacity)
	return p, nil
}

// checkLayout verifies that values of t can live in the backing store.
func checkLayout(t reflect.Type) error {
	if t.Align() > int(wordSize) {
		return errors.Newf("alignment %d exceeds %d", t.Align(), wordSize)
	}
	if hasPointers(t) {
		return errors.New("type contains pointers")
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Create claims a slot, zeroes it as a T, calls init on it if init is not
// nil and returns the live object. Create fails with fault.KindTypeMismatch
// if T is not one of the pool's variants and with fault.KindCapacity if the
// pool is full; in either case nothing is created. If init panics, the slot
// is released and the panic propagates.
func Create[T any, B any](p *Pool[B], init func(*T)) (*T, error) {
	tag, ok := p.tagOf(reflect.TypeFor[T]())
	if !ok {
		return nil, p.fail(fault.KindTypeMismatch, "cannot create %s: not a declared variant", reflect.TypeFor[T]())
	}
	i, ok := p.free.Allocate()
	if !ok {
		return nil, p.fail(fault.KindCapacity, "cannot create %s: pool is full (capacity %d)",
			reflect.TypeFor[T](), p.free.MaxSize())
	}
	p.tags[i] = tag
	obj := (*T)(p.store.At(i))
	if init != nil {
		// If init panics the slot is given back before the panic continues.
		done := false
		defer func() {
			if !done {
				p.reclaim(i)
			}
		}()
		init(obj)
		done = true
	}
	return obj, nil
}

// CreateValue is like Create but initializes the object to a copy of v.
func CreateValue[T any, B any](p *Pool[B], v T) (*T, error) {
	obj, err := Create[T](p, nil)
	if err != nil {
		return nil, err
	}
	*obj = v
	return obj, nil
}

// Destroy destroys the object h, which must have been returned by Create on
// p. If *T implements Disposer, its Dispose method runs first. A handle that
// does not point into p, or whose slot is not live, fails with
// fault.KindOwnershipViolation; a handle whose type does not match the
// object in its slot fails with fault.KindTypeMismatch. On failure no slot is
// released.
func Destroy[T any, B any](p *Pool[B], h *T) error {
	tag, ok := p.tagOf(reflect.TypeFor[T]())
	if !ok {
		return p.fail(fault.KindTypeMismatch, "cannot destroy %s: not a declared variant", reflect.TypeFor[T]())
	}
	if h == nil {
		return p.fail(fault.KindOwnershipViolation, "cannot destroy nil handle")
	}
	if d, ok := any(h).(Disposer); ok {
		d.Dispose()
	}
	return p.release(unsafe.Pointer(h), tag)
}

// Destroy destroys the object behind the polymorphic handle h. It behaves
// like the package-level Destroy for h's dynamic type.
func (p *Pool[B]) Destroy(h B) error {
	ptr, tag, err := p.resolve(h)
	if err != nil {
		return err
	}
	if d, ok := any(h).(Disposer); ok {
		d.Dispose()
	}
	return p.release(ptr, tag)
}

// Owns reports whether h refers to a live object in p whose variant is h's
// dynamic type.
func (p *Pool[B]) Owns(h B) bool {
	v := reflect.ValueOf(h)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	tag, ok := p.tagOf(v.Type().Elem())
	if !ok {
		return false
	}
	i, ok := p.store.indexOf(v.UnsafePointer())
	return ok && p.tags[i] == tag
}

// All calls yield for each live object in slot order. If yield returns false,
// iteration stops. Destroying the object passed to yield is permitted;
// creating objects during iteration is not.
func (p *Pool[B]) All(yield func(obj B) bool) {
	for i := range p.tags {
		tag := p.tags[i]
		if tag == noVariant {
			continue
		}
		ptr := p.store.At(slots.Index(i))
		obj := reflect.NewAt(p.variants[tag-1], ptr).Interface().(B)
		if !yield(obj) {
			return
		}
	}
}

// SlotSize returns the size in bytes of each slot.
func (p *Pool[B]) SlotSize() int { return int(p.store.stride) }

// VariantCount returns the number of declared variants.
func (p *Pool[B]) VariantCount() int { return len(p.variants) }

// Variants returns the declared variants in declaration order.
func (p *Pool[B]) Variants() []Variant {
	r := make([]Variant, len(p.variants))
	for i, t := range p.variants {
		r[i] = Variant{typ: t}
	}
	return r
}

// Len returns the number of live objects.
func (p *Pool[B]) Len() int { return p.free.Size() }

// MaxSize returns the capacity of the pool.
func (p *Pool[B]) MaxSize() int { return p.free.MaxSize() }

// Available returns the number of free slots.
func (p *Pool[B]) Available() int { return p.free.Available() }

// Empty reports whether the pool holds no objects.
func (p *Pool[B]) Empty() bool { return p.free.Empty() }

// Full reports whether every slot is in use.
func (p *Pool[B]) Full() bool { return p.free.Full() }

// tagOf returns the tag of variant t.
func (p *Pool[B]) tagOf(t reflect.Type) (uint8, bool) {
	for i, v := range p.variants {
		if v == t {
			return uint8(i + 1), true
		}
	}
	return noVariant, false
}

// resolve returns the object pointer and variant tag of a polymorphic
// handle.
func (p *Pool[B]) resolve(h B) (unsafe.Pointer, uint8, error) {
	v := reflect.ValueOf(h)
	if !v.IsValid() {
		return nil, noVariant, p.failDepth(1, fault.KindOwnershipViolation, "cannot destroy nil handle")
	}
	if v.Kind() != reflect.Pointer {
		return nil, noVariant, p.failDepth(1, fault.KindTypeMismatch,
			"cannot destroy %s: handle is not a pointer to a declared variant", v.Type())
	}
	tag, ok := p.tagOf(v.Type().Elem())
	if !ok {
		return nil, noVariant, p.failDepth(1, fault.KindTypeMismatch,
			"cannot destroy %s: not a declared variant", v.Type().Elem())
	}
	if v.IsNil() {
		return nil, noVariant, p.failDepth(1, fault.KindOwnershipViolation, "cannot destroy nil handle")
	}
	return v.UnsafePointer(), tag, nil
}

// release verifies that ptr is a live object of variant tag in p, then zeroes
// and frees its slot.
func (p *Pool[B]) release(ptr unsafe.Pointer, tag uint8) error {
	i, ok := p.store.indexOf(ptr)
	if !ok {
		return p.failDepth(1, fault.KindOwnershipViolation, "handle %p does not belong to this pool", ptr)
	}
	switch cur := p.tags[i]; cur {
	case noVariant:
		return p.failDepth(1, fault.KindOwnershipViolation, "slot %d is not in use", i)
	case tag:
	default:
		return p.failDepth(1, fault.KindTypeMismatch, "handle of type %s refers to a %s in slot %d",
			p.variants[tag-1], p.variants[cur-1], i)
	}

	p.reclaim(i)
	return nil
}

// reclaim zeroes slot i, clears its tag and returns it to the free list.
func (p *Pool[B]) reclaim(i slots.Index) {
	clear(unsafe.Slice((*byte)(p.store.At(i)), p.store.stride))
	p.tags[i] = noVariant
	if !p.free.Release(i) {
		panic(errors.AssertionFailedf("variantpool: slot %d tagged but not allocated", i))
	}
}

func (p *Pool[B]) fail(kind fault.Kind, format string, args ...interface{}) error {
	return p.failDepth(1, kind, format, args...)
}

func (p *Pool[B]) failDepth(depth int, kind fault.Kind, format string, args ...interface{}) error {
	return p.handler.Raise(fault.NewWithDepth(depth+1, kind, fmt.Sprintf(format, args...)))
}

// validate checks that the slot tags agree with the free list.
func (p *Pool[B]) validate() error {
	live := 0
	for i, tag := range p.tags {
		inUse := p.free.InUse(slots.Index(i))
		if (tag != noVariant) != inUse {
			return errors.AssertionFailedf("slot %d: tag=%d but in use=%t", i, tag, inUse)
		}
		if int(tag) > len(p.variants) {
			return errors.AssertionFailedf("slot %d: tag %d out of range", i, tag)
		}
		if inUse {
			live++
		}
	}
	if live != p.free.Size() {
		return errors.AssertionFailedf("found %d live slots, but free list size is %d", live, p.free.Size())
	}
	return nil
}

type config struct {
	handler fault.Handler
}

// Option configures a Pool in New.
type Option interface {
	apply(c *config)
}

type errorModeOption fault.Mode

func (op errorModeOption) apply(c *config) {
	c.handler = c.handler.WithMode(fault.Mode(op))
}

// WithErrorMode selects whether violations are returned (fault.Propagate,
// the default) or panic (fault.Abort).
func WithErrorMode(mode fault.Mode) Option {
	return errorModeOption(mode)
}

type loggerOption struct {
	logger *slog.Logger
}

func (op loggerOption) apply(c *config) {
	c.handler = c.handler.WithLogger(op.logger)
}

// WithLogger logs every violation to logger at Warn level.
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}
