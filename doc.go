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

// package fixed is a collection of fixed-capacity containers for programs
// that must not allocate once they are running. Every container is sized at
// construction and reports a capacity error, rather than growing, when it is
// full.
//
// # Packages
//
// multiset implements a hash multiset. Keys are hashed into a fixed array of
// buckets, each the head of a chain of entries. Entries live in a
// slots.Pool, a typed arena addressed by index, so the multiset itself holds
// no pointers between entries. Duplicate keys are kept contiguous within
// their bucket, which makes Count, EqualRange and Erase a single run scan.
//
// variantpool implements an object pool whose slots can each hold an object
// of any type from a closed set of at most sixteen types. Objects are created
// in place and destroyed either through their concrete type or through an
// interface implemented by every member of the set.
//
// slots implements the index allocator both containers are built on, and
// hashing provides hash functions for common key types.
//
// # Errors
//
// Violations (a full container, a reversed range, a cursor used with the
// wrong container, an undeclared type, a handle that was not produced by the
// pool) are reported as *fault.Error values whose Kind identifies the class
// of violation. Every container can be configured to return them or to panic
// with them; see fault.Mode. A failed operation leaves its container
// unchanged.
//
// # Concurrency
//
// None of the containers are safe for concurrent use. Callers must
// serialize access to each instance.
package fixed
