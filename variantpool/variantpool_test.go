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

package variantpool

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fixed/fault"
	"github.com/stretchr/testify/require"
)

type shape interface {
	Area() int64
}

// smallA is 4 bytes and bigB is 8 bytes.
type smallA struct{ V int32 }
type bigB struct{ V int64 }

// wide is 12 bytes with 4-byte alignment.
type wide struct{ X, Y, Z int32 }

// undeclared implements shape but is never declared to a pool.
type undeclared struct{ V int8 }

// disposable counts its Dispose calls in disposals.
type disposable struct{ ID uint16 }

type plain struct{ V int32 }

type withString struct {
	N int32
	S string
}

type withSlice struct{ B [4][]byte }

var disposals []uint16

func ptrOf[T any](p *T) unsafe.Pointer {
	return unsafe.Pointer(p)
}

func (a *smallA) Area() int64     { return int64(a.V) }
func (b *bigB) Area() int64       { return b.V }
func (w *wide) Area() int64       { return int64(w.X * w.Y * w.Z) }
func (u *undeclared) Area() int64 { return int64(u.V) }
func (d *disposable) Area() int64 { return int64(d.ID) }
func (s *withString) Area() int64 { return int64(s.N) }
func (s *withSlice) Area() int64  { return 0 }

func (d *disposable) Dispose() { disposals = append(disposals, d.ID) }

func requireKind(t *testing.T, kind fault.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, fault.KindOf(err), "%v", err)
}

func newShapes(t *testing.T, capacity int, options ...Option) *Pool[shape] {
	p, err := New[shape](capacity, []Variant{Of[smallA](), Of[bigB]()}, options...)
	require.NoError(t, err)
	return p
}

func TestScenario(t *testing.T) {
	p := newShapes(t, 2)
	require.Equal(t, 8, p.SlotSize())
	require.Equal(t, 2, p.VariantCount())
	require.True(t, p.Empty())

	a, err := Create(p, func(a *smallA) { a.V = 3 })
	require.NoError(t, err)
	b, err := Create(p, func(b *bigB) { b.V = 4 })
	require.NoError(t, err)
	require.EqualValues(t, 3, a.Area())
	require.EqualValues(t, 4, b.Area())
	require.True(t, p.Full())
	require.Equal(t, 0, p.Available())

	_, err = Create[smallA](p, nil)
	requireKind(t, fault.KindCapacity, err)
	require.True(t, errors.Is(err, fault.ErrCapacity))
	require.Equal(t, 2, p.Len())

	require.NoError(t, Destroy(p, a))
	require.Equal(t, 1, p.Len())
	require.False(t, p.Owns(a))

	b2, err := CreateValue(p, bigB{V: 9})
	require.NoError(t, err)
	require.EqualValues(t, 9, b2.Area())
	// The freed A slot is reused.
	idx, ok := p.store.indexOf(ptrOf(b2))
	require.True(t, ok)
	require.EqualValues(t, 0, idx)
	require.True(t, p.Full())
	require.NoError(t, p.validate())
}

func TestOwnershipViolation(t *testing.T) {
	p := newShapes(t, 4)
	other := newShapes(t, 4)
	a, err := Create(p, func(a *smallA) { a.V = 1 })
	require.NoError(t, err)
	foreign, err := Create[smallA](other, nil)
	require.NoError(t, err)

	check := func(err error) {
		t.Helper()
		requireKind(t, fault.KindOwnershipViolation, err)
		require.Equal(t, 1, p.Len())
		require.True(t, p.Owns(a))
		require.EqualValues(t, 1, a.Area())
		require.NoError(t, p.validate())
	}

	check(Destroy(p, &smallA{V: 1}))
	check(Destroy(p, foreign))
	check(p.Destroy(&bigB{}))
	check(p.Destroy(foreign))
	check(Destroy[smallA](p, nil))
	check(p.Destroy(nil))
	require.Equal(t, 1, other.Len())

	// Destroying twice.
	require.NoError(t, p.Destroy(a))
	requireKind(t, fault.KindOwnershipViolation, p.Destroy(a))
	require.True(t, p.Empty())
	require.NoError(t, p.validate())
}

func TestTypeMismatch(t *testing.T) {
	p := newShapes(t, 4)

	_, err := Create[undeclared](p, nil)
	requireKind(t, fault.KindTypeMismatch, err)
	require.True(t, p.Empty())

	requireKind(t, fault.KindTypeMismatch, p.Destroy(&undeclared{}))
	requireKind(t, fault.KindTypeMismatch, Destroy(p, &undeclared{}))

	testCases := []struct {
		name     string
		variants []Variant
	}{
		{"none", nil},
		{"too many", func() []Variant {
			v := make([]Variant, MaxVariants+1)
			for i := range v {
				v[i] = Of[smallA]()
			}
			return v
		}()},
		{"duplicate", []Variant{Of[smallA](), Of[bigB](), Of[smallA]()}},
		{"zero variant", []Variant{Of[smallA](), {}}},
		{"not implementing", []Variant{Of[smallA](), Of[plain]()}},
		{"string field", []Variant{Of[withString]()}},
		{"slice field", []Variant{Of[withSlice]()}},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			p, err := New[shape](4, c.variants)
			requireKind(t, fault.KindTypeMismatch, err)
			require.Nil(t, p)
		})
	}

	t.Run("capability not an interface", func(t *testing.T) {
		_, err := New[smallA](4, []Variant{Of[smallA]()})
		requireKind(t, fault.KindTypeMismatch, err)
	})

	t.Run("mismatched slot", func(t *testing.T) {
		a, err := Create(p, func(a *smallA) { a.V = 5 })
		require.NoError(t, err)
		// A *bigB aliasing the slot of a live smallA.
		alias := (*bigB)(ptrOf(a))
		requireKind(t, fault.KindTypeMismatch, Destroy(p, alias))
		require.True(t, p.Owns(a))
		require.NoError(t, p.Destroy(a))
	})
}

func TestInvalidCapacity(t *testing.T) {
	for _, n := range []int{-1, 0} {
		_, err := New[shape](n, []Variant{Of[smallA]()})
		requireKind(t, fault.KindCapacity, err)
	}
}

func TestSlotSize(t *testing.T) {
	testCases := []struct {
		variants []Variant
		expected int
	}{
		{[]Variant{Of[smallA]()}, 8},
		{[]Variant{Of[smallA](), Of[bigB]()}, 8},
		{[]Variant{Of[smallA](), Of[wide]()}, 16},
		{[]Variant{Of[struct{}]()}, 8},
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			p, err := New[any](3, c.variants)
			require.NoError(t, err)
			require.Equal(t, c.expected, p.SlotSize())
			require.Equal(t, len(c.variants), p.VariantCount())
			require.Equal(t, c.variants, p.Variants())
		})
	}
}

func TestDispose(t *testing.T) {
	disposals = nil
	p, err := New[shape](4, []Variant{Of[smallA](), Of[disposable]()})
	require.NoError(t, err)

	d1, err := CreateValue(p, disposable{ID: 1})
	require.NoError(t, err)
	d2, err := CreateValue(p, disposable{ID: 2})
	require.NoError(t, err)
	a, err := Create[smallA](p, nil)
	require.NoError(t, err)

	require.NoError(t, Destroy(p, d1))
	require.NoError(t, p.Destroy(shape(d2)))
	require.NoError(t, p.Destroy(a))
	require.Equal(t, []uint16{1, 2}, disposals)

	// The slot is zeroed once reclaimed.
	d3, err := Create[disposable](p, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, d3.ID)
}

func TestAll(t *testing.T) {
	p, err := New[shape](8, []Variant{Of[smallA](), Of[bigB](), Of[wide]()})
	require.NoError(t, err)

	var sum int64
	for i := 0; i < 8; i++ {
		var err error
		switch i % 3 {
		case 0:
			_, err = CreateValue(p, smallA{V: int32(i)})
		case 1:
			_, err = CreateValue(p, bigB{V: int64(i)})
		case 2:
			_, err = CreateValue(p, wide{X: int32(i), Y: 1, Z: 1})
		}
		require.NoError(t, err)
		sum += int64(i)
	}

	var got int64
	p.All(func(s shape) bool {
		require.True(t, p.Owns(s))
		got += s.Area()
		return true
	})
	require.Equal(t, sum, got)

	n := 0
	p.All(func(s shape) bool {
		n++
		return n < 3
	})
	require.Equal(t, 3, n)

	// Destroy everything from within All.
	p.All(func(s shape) bool {
		require.NoError(t, p.Destroy(s))
		return true
	})
	require.True(t, p.Empty())
	require.NoError(t, p.validate())
}

func TestErrorModes(t *testing.T) {
	t.Run("abort", func(t *testing.T) {
		p := newShapes(t, 1, WithErrorMode(fault.Abort))
		_, err := Create[bigB](p, nil)
		require.NoError(t, err)

		defer func() {
			e, ok := recover().(*fault.Error)
			require.True(t, ok)
			require.Equal(t, fault.KindCapacity, e.Kind)
			require.Equal(t, 1, p.Len())
		}()
		_, _ = Create[smallA](p, nil)
		t.Fatal("create on a full pool did not panic")
	})

	t.Run("abort in New", func(t *testing.T) {
		require.Panics(t, func() {
			_, _ = New[shape](1, nil, WithErrorMode(fault.Abort))
		})
	})

	t.Run("logged", func(t *testing.T) {
		var buf bytes.Buffer
		p := newShapes(t, 1, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		requireKind(t, fault.KindOwnershipViolation, p.Destroy(&smallA{}))
		require.Contains(t, buf.String(), "ownership violation")
		require.Contains(t, buf.String(), "does not belong to this pool")
	})
}

func TestRandom(t *testing.T) {
	const capacity = 32
	p, err := New[shape](capacity, []Variant{Of[smallA](), Of[bigB](), Of[wide]()})
	require.NoError(t, err)

	type live struct {
		obj  shape
		area int64
	}
	var objs []live
	for i := 0; i < 5000; i++ {
		if r := rand.Intn(3); r < 2 && len(objs) < capacity {
			v := rand.Int31n(1000)
			var s shape
			switch r {
			case 0:
				s, err = CreateValue(p, smallA{V: v})
			case 1:
				s, err = CreateValue(p, wide{X: v, Y: 1, Z: 1})
			}
			require.NoError(t, err)
			objs = append(objs, live{obj: s, area: int64(v)})
		} else if len(objs) == capacity && r < 2 {
			_, err := Create[bigB](p, nil)
			requireKind(t, fault.KindCapacity, err)
		} else if len(objs) > 0 {
			j := rand.Intn(len(objs))
			require.Equal(t, objs[j].area, objs[j].obj.Area())
			require.NoError(t, p.Destroy(objs[j].obj))
			objs[j] = objs[len(objs)-1]
			objs = objs[:len(objs)-1]
		}

		require.Equal(t, len(objs), p.Len())
		require.Equal(t, capacity-len(objs), p.Available())
		require.NoError(t, p.validate())
	}
}

func TestCreateInitPanics(t *testing.T) {
	p := newShapes(t, 2)
	require.PanicsWithValue(t, "boom", func() {
		_, _ = Create(p, func(a *smallA) {
			a.V = 7
			panic("boom")
		})
	})
	require.True(t, p.Empty())
	require.Equal(t, 2, p.Available())
	require.NoError(t, p.validate())

	// The released slot comes back zeroed.
	a, err := Create[smallA](p, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, a.V)
}

func TestOwnsChecksVariant(t *testing.T) {
	p := newShapes(t, 2)
	a, err := CreateValue(p, smallA{V: 1})
	require.NoError(t, err)
	require.True(t, p.Owns(a))

	require.False(t, p.Owns((*bigB)(ptrOf(a))))
	require.False(t, p.Owns((*undeclared)(ptrOf(a))))
	require.False(t, p.Owns(nil))
	require.False(t, p.Owns((*smallA)(nil)))
	require.False(t, p.Owns(&smallA{}))
}
