// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package interp

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/hashicorp/ozi/store"
	"github.com/hashicorp/ozi/structs"
)

// slotPair is an ordered pair of slots under unification, used to break
// cycles through bound variables.
type slotPair struct {
	a, b int
}

// Unify enforces that lhs and rhs denote the same value, instantiating
// unbound variables as needed. Cyclic records terminate because every
// cycle passes through a variable and the var/var path commits the
// class merge, and marks the pair, before recursing into the two bound
// values.
func (m *Machine) Unify(env *structs.Env, lhs, rhs structs.Expr) error {
	marked := set.New[slotPair](8)
	return m.unify(env, lhs, rhs, marked)
}

func (m *Machine) unify(env *structs.Env, lhs, rhs structs.Expr, marked *set.Set[slotPair]) error {
	lSlot, lVar, err := m.asSlot(env, lhs)
	if err != nil {
		return err
	}
	rSlot, rVar, err := m.asSlot(env, rhs)
	if err != nil {
		return err
	}

	switch {
	case lVar && rVar:
		return m.unifySlots(env, lSlot, rSlot, marked)
	case lVar:
		return m.unifySlotValue(env, lSlot, rhs, marked)
	case rVar:
		return m.unifySlotValue(env, rSlot, lhs, marked)
	default:
		return m.unifyValues(env, lhs, rhs, marked)
	}
}

// asSlot classifies one side as variable-ish, resolving identifiers
// through env and passing reified refs through.
func (m *Machine) asSlot(env *structs.Env, e structs.Expr) (int, bool, error) {
	switch e := e.(type) {
	case *structs.IdentExpr:
		slot, ok := env.Lookup(e.Name)
		if !ok {
			return 0, false, typeErrorf("undefined identifier %q", e.Name)
		}
		return slot, true, nil
	case structs.Ref:
		return e.Slot, true, nil
	default:
		return 0, false, nil
	}
}

// unifySlots handles the var/var case.
func (m *Machine) unifySlots(env *structs.Env, a, b int, marked *set.Set[slotPair]) error {
	if marked.Contains(slotPair{a, b}) || marked.Contains(slotPair{b, a}) {
		// this pair is already being unified higher up the recursion
		return nil
	}

	outcome, kept, dropped := m.store.Union(a, b)
	if outcome != store.BothBound {
		return nil
	}

	// The redirect is committed; both slots now share one class whose
	// value is kept. Unifying kept against dropped may revisit these
	// slots, which the mark cuts off.
	marked.Insert(slotPair{a, b})
	return m.unifyValues(env, kept, dropped, marked)
}

// unifySlotValue handles the var/value case.
func (m *Machine) unifySlotValue(env *structs.Env, slot int, e structs.Expr, marked *set.Set[slotPair]) error {
	v, err := m.Compute(env, e)
	if err != nil {
		return err
	}
	// a computed Ref is a variable after all
	if ref, ok := v.(structs.Ref); ok {
		return m.unifySlots(env, slot, ref.Slot, marked)
	}

	cls := m.store.ClassOf(slot)
	if !cls.Bound() {
		return m.store.Bind(slot, v)
	}
	return m.unifyValues(env, cls.Value(), v, marked)
}

// unifyValues handles the value/value case, dispatching on value kind.
func (m *Machine) unifyValues(env *structs.Env, lhs, rhs structs.Expr, marked *set.Set[slotPair]) error {
	lv, err := m.Compute(env, lhs)
	if err != nil {
		return err
	}
	rv, err := m.Compute(env, rhs)
	if err != nil {
		return err
	}

	// either side may still compute to a variable
	lRef, lIsRef := lv.(structs.Ref)
	rRef, rIsRef := rv.(structs.Ref)
	switch {
	case lIsRef && rIsRef:
		return m.unifySlots(env, lRef.Slot, rRef.Slot, marked)
	case lIsRef:
		return m.unifySlotValue(env, lRef.Slot, rv, marked)
	case rIsRef:
		return m.unifySlotValue(env, rRef.Slot, lv, marked)
	}

	if _, ok := lv.(*structs.Closure); ok {
		return unificationErrorf("procedures never unify")
	}
	if _, ok := rv.(*structs.Closure); ok {
		return unificationErrorf("procedures never unify")
	}

	switch l := lv.(type) {
	case structs.Lit:
		r, ok := rv.(structs.Lit)
		if !ok {
			return unificationErrorf("cannot unify %s with %s", lv, rv)
		}
		if !l.Equal(r) {
			return unificationErrorf("distinct literals %s and %s", l, r)
		}
		return nil

	case *structs.Rec:
		r, ok := rv.(*structs.Rec)
		if !ok {
			return unificationErrorf("cannot unify %s with %s", lv, rv)
		}
		return m.unifyRecords(env, l, r, marked)

	default:
		return unificationErrorf("cannot unify %s with %s", lv, rv)
	}
}

// unifyRecords unifies two computed records: same label, same arity,
// same feature set, then field-wise recursion.
func (m *Machine) unifyRecords(env *structs.Env, l, r *structs.Rec, marked *set.Set[slotPair]) error {
	if !l.Label.Equal(r.Label) {
		return unificationErrorf("record labels %s and %s differ", l.Label, r.Label)
	}
	if l.Arity() != r.Arity() {
		return unificationErrorf("record arities %d and %d differ", l.Arity(), r.Arity())
	}

	lFeats := set.New[structs.Lit](l.Arity())
	for f := range l.Fields {
		lFeats.Insert(f)
	}
	rFeats := set.New[structs.Lit](r.Arity())
	for f := range r.Fields {
		rFeats.Insert(f)
	}
	if !lFeats.Equal(rFeats) {
		return unificationErrorf("record features %s and %s differ", l, r)
	}

	for f, lval := range l.Fields {
		if err := m.unify(env, lval, r.Fields[f], marked); err != nil {
			return err
		}
	}
	return nil
}
