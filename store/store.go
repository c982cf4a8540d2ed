// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package store implements the single-assignment store: a vector of
// slots partitioned into equivalence classes, where each class is bound
// to at most one value for the lifetime of a run.
package store

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-set/v3"

	"github.com/hashicorp/ozi/structs"
)

// EqClass is one equivalence class: the set of slots known to denote
// the same variable, plus its value once bound. All member slots of a
// class observe the same value.
type EqClass struct {
	members *set.Set[int]
	value   structs.Value
}

// Bound reports whether the class has been bound to a value.
func (c *EqClass) Bound() bool {
	return c.value != nil
}

// Value returns the bound value, or nil while unbound. Once bound the
// value is stable, though values may reference slots whose classes
// still evolve.
func (c *EqClass) Value() structs.Value {
	return c.value
}

// Members returns the slots in this class.
func (c *EqClass) Members() []int {
	return c.members.Slice()
}

// Size returns the number of member slots.
func (c *EqClass) Size() int {
	return c.members.Size()
}

// Outcome describes what Union found when merging two classes.
type Outcome int8

const (
	// AlreadyUnified means both slots were in the same class; nothing
	// was merged.
	AlreadyUnified Outcome = iota

	// BothUnbound means the merged class remains unbound.
	BothUnbound

	// OneBound means exactly one input class carried a value; the
	// merged class carries it now.
	OneBound

	// BothBound means both input classes carried values. The merge is
	// committed regardless; the caller must unify the two values.
	BothBound
)

// Store is the single-assignment store. It is not safe for concurrent
// use; the cooperative scheduler guarantees one mutation at a time.
type Store struct {
	classes []*EqClass
	logger  hclog.Logger
}

// New returns an empty store.
func New(logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{logger: logger.Named("store")}
}

// Alloc appends a fresh unbound slot in its own class and returns it.
// Slots are never reclaimed.
func (s *Store) Alloc() int {
	slot := len(s.classes)
	cls := &EqClass{members: set.From([]int{slot})}
	s.classes = append(s.classes, cls)
	s.logger.Trace("alloc", "slot", slot)
	return slot
}

// ClassOf returns the equivalence class of slot.
func (s *Store) ClassOf(slot int) *EqClass {
	return s.classes[slot]
}

// Len returns the number of allocated slots.
func (s *Store) Len() int {
	return len(s.classes)
}

// Bind sets the value of the class holding slot. The class must be
// unbound; the unifier is the only caller and checks first.
func (s *Store) Bind(slot int, v structs.Value) error {
	cls := s.classes[slot]
	if cls.Bound() {
		return fmt.Errorf("store: slot %d already bound", slot)
	}
	cls.value = v
	s.logger.Trace("bind", "slot", slot, "value", v.String())
	return nil
}

// Union merges the classes of a and b. The redirect of every absorbed
// member is committed before Union returns, so a BothBound caller
// recursing into value unification sees a single class; this is what
// guarantees termination on cyclic records. The survivor is the class
// with more members. On BothBound the returned values are the
// survivor's (kept) and the absorbed class's (to be unified against
// it), in that order.
func (s *Store) Union(a, b int) (Outcome, structs.Value, structs.Value) {
	ca, cb := s.classes[a], s.classes[b]
	if ca == cb {
		return AlreadyUnified, nil, nil
	}

	survivor, absorbed := ca, cb
	if cb.members.Size() > ca.members.Size() {
		survivor, absorbed = cb, ca
	}

	kept, dropped := survivor.value, absorbed.value
	outcome := BothUnbound
	switch {
	case kept != nil && dropped != nil:
		outcome = BothBound
	case kept != nil || dropped != nil:
		outcome = OneBound
		if kept == nil {
			survivor.value = dropped
		}
	}

	for _, m := range absorbed.members.Slice() {
		s.classes[m] = survivor
	}
	survivor.members.InsertSlice(absorbed.members.Slice())

	s.logger.Trace("union", "a", a, "b", b, "outcome", outcome,
		"class_size", survivor.members.Size())
	return outcome, kept, dropped
}

// Snapshot returns the bound value of every bound slot, keyed by slot.
// Used for end-of-run diagnostics.
func (s *Store) Snapshot() map[int]structs.Value {
	out := make(map[int]structs.Value)
	for slot, cls := range s.classes {
		if cls.Bound() {
			out[slot] = cls.value
		}
	}
	return out
}

func (o Outcome) String() string {
	switch o {
	case AlreadyUnified:
		return "already-unified"
	case BothUnbound:
		return "both-unbound"
	case OneBound:
		return "one-bound"
	case BothBound:
		return "both-bound"
	default:
		return "invalid"
	}
}
