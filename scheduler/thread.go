// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package scheduler

import (
	"github.com/hashicorp/ozi/interp"
)

// Thread is one cooperative thread: an id for diagnostics, a private
// statement stack, the slot it is suspended on (-1 when runnable), and
// the tick of its last dispatch. Stacks and environments are strictly
// thread-local; only the store is shared.
type Thread struct {
	id          int
	stack       *interp.Stack
	suspendedOn int
	lastTick    uint64
}

// ID returns the thread's id.
func (t *Thread) ID() int {
	return t.id
}

// Suspended reports whether the thread is parked on a slot, and which.
func (t *Thread) Suspended() (int, bool) {
	return t.suspendedOn, t.suspendedOn >= 0
}
