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

// Package hashing provides hash functions for the fixed-capacity containers.
// Every function here is deterministic: for a given function value, equal
// keys always hash identically.
package hashing

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// Func hashes the key pointed to. Keys are passed by pointer so that large
// keys are not copied on every probe.
type Func[K any] func(key *K) uint64

// String hashes a string with xxHash64.
func String(key *string) uint64 {
	return xxhash.Sum64String(*key)
}

// Bytes hashes a byte slice with xxHash64.
func Bytes(key *[]byte) uint64 {
	return xxhash.Sum64(*key)
}

// Integer hashes an integer by passing it through the splitmix64 finalizer,
// which spreads consecutive keys across buckets.
func Integer[T constraints.Integer](key *T) uint64 {
	return mix64(uint64(*key))
}

// Identity hashes an integer to itself. With a bucket count of n, key k lands
// in bucket k mod n, which makes bucket placement predictable.
func Identity[T constraints.Integer](key *T) uint64 {
	return uint64(*key)
}

// Comparable returns a hash function for any comparable type backed by
// hash/maphash. The seed is chosen when Comparable is called, so the returned
// function is deterministic but two calls to Comparable yield different
// functions.
func Comparable[K comparable]() Func[K] {
	seed := maphash.MakeSeed()
	return func(key *K) uint64 {
		return maphash.Comparable(seed, *key)
	}
}

// Default returns the hash function used when a container is not given one:
// xxHash64 for strings, Integer for the builtin integer types and Comparable
// for everything else.
func Default[K comparable]() Func[K] {
	var k K
	var f any
	switch any(k).(type) {
	case string:
		f = Func[string](String)
	case int:
		f = Func[int](Integer[int])
	case int8:
		f = Func[int8](Integer[int8])
	case int16:
		f = Func[int16](Integer[int16])
	case int32:
		f = Func[int32](Integer[int32])
	case int64:
		f = Func[int64](Integer[int64])
	case uint:
		f = Func[uint](Integer[uint])
	case uint8:
		f = Func[uint8](Integer[uint8])
	case uint16:
		f = Func[uint16](Integer[uint16])
	case uint32:
		f = Func[uint32](Integer[uint32])
	case uint64:
		f = Func[uint64](Integer[uint64])
	case uintptr:
		f = Func[uintptr](Integer[uintptr])
	default:
		return Comparable[K]()
	}
	return f.(Func[K])
}

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
