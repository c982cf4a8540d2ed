// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package interp implements the reduction machinery of the kernel
// language: free-variable analysis, expression evaluation, unification,
// and single-statement execution. One Machine serves every thread of a
// run; threads are cooperative, so no locking is involved.
package interp

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/ozi/store"
	"github.com/hashicorp/ozi/structs"
)

// Machine evaluates expressions and reduces statements against the
// shared single-assignment store.
type Machine struct {
	store  *store.Store
	fv     *analysis
	logger hclog.Logger
}

// NewMachine returns a Machine over st.
func NewMachine(st *store.Store, logger hclog.Logger) *Machine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Machine{
		store:  st,
		fv:     newAnalysis(),
		logger: logger.Named("interp"),
	}
}

// Store returns the machine's store.
func (m *Machine) Store() *store.Store {
	return m.store
}

// Compute resolves a value expression to a computed Value under env.
// Computed values pass through unchanged; identifiers reify to Ref, so
// no Value ever holds an identifier. Arithmetic operands must already
// be bound: an unbound operand raises SuspendError carrying the slot.
func (m *Machine) Compute(env *structs.Env, e structs.Expr) (structs.Value, error) {
	switch e := e.(type) {
	case structs.Lit:
		return e, nil
	case structs.Ref:
		return e, nil
	case *structs.Rec:
		return e, nil
	case *structs.Closure:
		return e, nil

	case *structs.IdentExpr:
		slot, ok := env.Lookup(e.Name)
		if !ok {
			return nil, typeErrorf("undefined identifier %q", e.Name)
		}
		return structs.Ref{Slot: slot}, nil

	case *structs.LitExpr:
		return e.Lit, nil

	case *structs.RecordExpr:
		fields := make(map[structs.Lit]structs.Value, len(e.Fields))
		for _, f := range e.Fields {
			v, err := m.Compute(env, f.Val)
			if err != nil {
				return nil, err
			}
			fields[f.Feat] = v
		}
		return &structs.Rec{Label: e.Label, Fields: fields}, nil

	case *structs.ProcExpr:
		free := m.fv.freeExpr(e).Slice()
		captured, missing := env.Restrict(free)
		if len(missing) > 0 {
			return nil, typeErrorf("procedure references undefined identifiers %v", missing)
		}
		return &structs.Closure{Params: e.Params, Body: e.Body, Env: captured}, nil

	case *structs.SumExpr:
		a, b, err := m.operands(env, e.A, e.B)
		if err != nil {
			return nil, err
		}
		sum := a + b
		if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
			return nil, typeErrorf("integer overflow in %d + %d", a, b)
		}
		return structs.Int(sum), nil

	case *structs.ProductExpr:
		a, b, err := m.operands(env, e.A, e.B)
		if err != nil {
			return nil, err
		}
		if a != 0 && b != 0 {
			if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return nil, typeErrorf("integer overflow in %d * %d", a, b)
			}
			if prod := a * b; prod/b != a {
				return nil, typeErrorf("integer overflow in %d * %d", a, b)
			}
		}
		return structs.Int(a * b), nil

	default:
		return nil, typeErrorf("cannot evaluate %T", e)
	}
}

func (m *Machine) operands(env *structs.Env, ea, eb structs.Expr) (int64, int64, error) {
	a, err := m.operand(env, ea)
	if err != nil {
		return 0, 0, err
	}
	b, err := m.operand(env, eb)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// operand reduces one arithmetic operand to an integer. Identifiers and
// refs are chased through the store and must resolve to a bound numeric
// literal.
func (m *Machine) operand(env *structs.Env, e structs.Expr) (int64, error) {
	v, err := m.Compute(env, e)
	if err != nil {
		return 0, err
	}
	if ref, ok := v.(structs.Ref); ok {
		cls := m.store.ClassOf(ref.Slot)
		if !cls.Bound() {
			return 0, &SuspendError{Slot: ref.Slot}
		}
		// a stored value never contains a bare Ref cycle back to an
		// unbound class, but it may itself be a record or closure
		return m.operand(env, cls.Value())
	}
	lit, ok := v.(structs.Lit)
	if !ok {
		return 0, typeErrorf("arithmetic operand is not a literal: %s", v)
	}
	if lit.Kind != structs.IntLit {
		return 0, typeErrorf("arithmetic operand is not an integer: %s", lit)
	}
	return lit.I, nil
}
