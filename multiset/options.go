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
	"log/slog"

	"github.com/cockroachdb/fixed/fault"
)

// option provide an interface to do work on Multiset while it is being
// created.
type option[K any] interface {
	apply(m *Multiset[K])
}

type hashOption[K any] struct {
	hash func(key *K) uint64
}

func (op hashOption[K]) apply(m *Multiset[K]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a
// Multiset[K]. The function must be deterministic and consistent with the
// multiset's equality function.
func WithHash[K any](hash func(key *K) uint64) option[K] {
	return hashOption[K]{hash}
}

type equalOption[K any] struct {
	equal func(a, b *K) bool
}

func (op equalOption[K]) apply(m *Multiset[K]) {
	m.equal = op.equal
}

// WithEqual is an option to specify the equality function to use for a
// Multiset[K].
func WithEqual[K any](equal func(a, b *K) bool) option[K] {
	return equalOption[K]{equal}
}

type errorModeOption[K any] struct {
	mode fault.Mode
}

func (op errorModeOption[K]) apply(m *Multiset[K]) {
	m.handler = m.handler.WithMode(op.mode)
}

// WithErrorMode is an option to specify whether violations are returned as
// errors (fault.Propagate, the default) or panic (fault.Abort).
func WithErrorMode[K any](mode fault.Mode) option[K] {
	return errorModeOption[K]{mode}
}

type loggerOption[K any] struct {
	logger *slog.Logger
}

func (op loggerOption[K]) apply(m *Multiset[K]) {
	m.handler = m.handler.WithLogger(op.logger)
}

// WithLogger is an option to log every violation to logger at warning level.
func WithLogger[K any](logger *slog.Logger) option[K] {
	return loggerOption[K]{logger}
}
