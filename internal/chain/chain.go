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

// Package chain implements a singly linked, forward-only list whose links
// are slot indices stored alongside the payload in an arena. A Chain only
// records its head; the link of each member is read and written through the
// Links of the arena that owns the members.
package chain

import "github.com/cockroachdb/fixed/slots"

// BeforeBegin is the position preceding the first member of any chain. It
// may be passed to Next, InsertAfter and EraseAfter.
const BeforeBegin slots.Index = -2

// Links reads and writes the link stored with each arena slot.
type Links interface {
	Next(i slots.Index) slots.Index
	SetNext(i, next slots.Index)
}

// Chain is the head of a list. The zero value is not empty; use Make or
// Clear.
type Chain struct {
	head slots.Index
}

// Make returns an empty chain.
func Make() Chain {
	return Chain{head: slots.Nil}
}

// Begin returns the first member, or End if the chain is empty.
func (c *Chain) Begin() slots.Index { return c.head }

// End returns the position after the last member.
func (c *Chain) End() slots.Index { return slots.Nil }

// Empty reports whether the chain has no members.
func (c *Chain) Empty() bool { return c.head == slots.Nil }

// Clear unlinks every member without touching the payloads.
func (c *Chain) Clear() { c.head = slots.Nil }

// Next returns the position after pos.
func (c *Chain) Next(l Links, pos slots.Index) slots.Index {
	if pos == BeforeBegin {
		return c.head
	}
	return l.Next(pos)
}

// InsertAfter links i immediately after pos.
func (c *Chain) InsertAfter(l Links, pos, i slots.Index) {
	if pos == BeforeBegin {
		l.SetNext(i, c.head)
		c.head = i
		return
	}
	l.SetNext(i, l.Next(pos))
	l.SetNext(pos, i)
}

// EraseAfter unlinks the member following pos and returns the member that
// now follows pos. The unlinked member's link is reset to Nil.
func (c *Chain) EraseAfter(l Links, pos slots.Index) slots.Index {
	victim := c.Next(l, pos)
	if victim == slots.Nil {
		return slots.Nil
	}
	next := l.Next(victim)
	if pos == BeforeBegin {
		c.head = next
	} else {
		l.SetNext(pos, next)
	}
	l.SetNext(victim, slots.Nil)
	return next
}

// Predecessor returns the position preceding member i, which is BeforeBegin
// when i is the first member. It returns false if i is not a member. The
// cost is linear in the distance from the head to i.
func (c *Chain) Predecessor(l Links, i slots.Index) (slots.Index, bool) {
	prev := BeforeBegin
	for cur := c.head; cur != slots.Nil; cur = l.Next(cur) {
		if cur == i {
			return prev, true
		}
		prev = cur
	}
	return slots.Nil, false
}

// Len returns the number of members.
func (c *Chain) Len(l Links) int {
	n := 0
	for cur := c.head; cur != slots.Nil; cur = l.Next(cur) {
		n++
	}
	return n
}
