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

// Package fault defines the failures raised by the fixed-capacity containers
// and the Handler that decides whether a failure is returned to the caller or
// aborts the program.
//
// Every failure is a *Error carrying a machine-distinguishable Kind, a
// human-readable reason and the source location at which the violation was
// detected. The underlying cause is marked with the sentinel for its kind, so
// callers can test for a kind with errors.Is:
//
//	if errors.Is(err, fault.ErrCapacity) {
//	  ...
//	}
package fault

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindNone is never carried by an *Error. It is returned by KindOf for
	// errors that did not originate in this package.
	KindNone Kind = iota
	// KindCapacity indicates an operation would exceed a fixed bound.
	KindCapacity
	// KindIteratorRange indicates an invalid or reversed range was supplied to
	// a bulk operation.
	KindIteratorRange
	// KindIteratorMisuse indicates an end cursor was dereferenced, or a cursor
	// was used with a container it does not belong to.
	KindIteratorMisuse
	// KindTypeMismatch indicates a type outside the declared set was used.
	KindTypeMismatch
	// KindOwnershipViolation indicates a handle was not produced by the pool
	// it was returned to.
	KindOwnershipViolation
)

// Sentinels, one per kind. Every *Error unwraps to a cause marked with the
// sentinel of its kind.
var (
	ErrCapacity           = errors.New("capacity exceeded")
	ErrIteratorRange      = errors.New("invalid iterator range")
	ErrIteratorMisuse     = errors.New("iterator misuse")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrOwnershipViolation = errors.New("ownership violation")
)

var kindNames = [...]string{
	KindNone:               "none",
	KindCapacity:           "capacity",
	KindIteratorRange:      "iterator range",
	KindIteratorMisuse:     "iterator misuse",
	KindTypeMismatch:       "type mismatch",
	KindOwnershipViolation: "ownership violation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindCapacity:
		return ErrCapacity
	case KindIteratorRange:
		return ErrIteratorRange
	case KindIteratorMisuse:
		return ErrIteratorMisuse
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindOwnershipViolation:
		return ErrOwnershipViolation
	}
	panic(errors.AssertionFailedf("no sentinel for %s", k))
}

// Error is a failure raised by a container.
type Error struct {
	Kind   Kind
	Reason string
	// File, Line and Function locate the call that detected the violation.
	File     string
	Line     int
	Function string

	cause error
}

// New returns an *Error of the given kind. The source location recorded is
// that of the caller of New.
func New(kind Kind, reason string) *Error {
	return newWithDepth(1, kind, reason)
}

// Newf is like New but formats the reason.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return newWithDepth(1, kind, fmt.Sprintf(format, args...))
}

// NewWithDepth is like New but records the source location depth frames
// above the caller. Containers use it so the reported location is the call
// site of the public operation rather than an internal helper.
func NewWithDepth(depth int, kind Kind, reason string) *Error {
	return newWithDepth(depth+1, kind, reason)
}

func newWithDepth(depth int, kind Kind, reason string) *Error {
	cause := errors.Mark(errors.NewWithDepthf(depth+1, "%s", reason), kind.sentinel())
	e := &Error{
		Kind:   kind,
		Reason: reason,
		cause:  cause,
	}
	e.File, e.Line, e.Function, _ = errors.GetOneLineSource(cause)
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the marked cause, which carries the stack trace.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// Mode selects what a Handler does with a violation.
type Mode uint8

const (
	// Propagate returns the violation to the caller as an error. This is the
	// default.
	Propagate Mode = iota
	// Abort panics with the violation.
	Abort
)

func (m Mode) String() string {
	switch m {
	case Propagate:
		return "propagate"
	case Abort:
		return "abort"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Handler routes violations according to its Mode, logging each one when a
// logger is configured. The zero value propagates silently.
type Handler struct {
	mode   Mode
	logger *slog.Logger
}

// NewHandler returns a Handler. A nil logger disables logging.
func NewHandler(mode Mode, logger *slog.Logger) Handler {
	return Handler{mode: mode, logger: logger}
}

// Mode returns the handler's mode.
func (h Handler) Mode() Mode {
	return h.mode
}

// WithMode returns a copy of h using mode m.
func (h Handler) WithMode(m Mode) Handler {
	h.mode = m
	return h
}

// WithLogger returns a copy of h logging to l.
func (h Handler) WithLogger(l *slog.Logger) Handler {
	h.logger = l
	return h
}

// Raise signals e. In Abort mode Raise panics with e and does not return.
// Otherwise it returns e as an error.
func (h Handler) Raise(e *Error) error {
	if h.logger != nil {
		h.logger.Warn("container violation",
			"kind", e.Kind.String(),
			"reason", e.Reason,
			"file", e.File,
			"line", e.Line,
			"mode", h.mode.String(),
		)
	}
	if h.mode == Abort {
		panic(e)
	}
	return e
}
