// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package interp

import (
	"errors"

	"github.com/hashicorp/ozi/structs"
)

// Frame is one entry of a thread's statement stack.
type Frame struct {
	Stmt structs.Stmt
	Env  *structs.Env
}

// Stack is a thread-local LIFO of frames. It is never shared between
// threads.
type Stack struct {
	frames []Frame
}

// NewStack returns a stack holding the given frames, bottom first.
func NewStack(frames ...Frame) *Stack {
	s := &Stack{frames: make([]Frame, 0, 8)}
	s.frames = append(s.frames, frames...)
	return s
}

// Push adds a frame on top.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes and returns the top frame. The stack must be non-empty.
func (s *Stack) Pop() Frame {
	n := len(s.frames)
	f := s.frames[n-1]
	s.frames[n-1] = Frame{}
	s.frames = s.frames[:n-1]
	return f
}

// Len returns the number of frames.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Empty reports whether the stack has no frames.
func (s *Stack) Empty() bool {
	return len(s.frames) == 0
}

// Step reduces the single statement of f against stack. It may push
// continuation frames and mutate the store. A SuspendError is raised
// before any state is committed, so the scheduler can push f back and
// retry the identical statement later. Thread statements are the
// scheduler's business and must not reach Step.
func (m *Machine) Step(f Frame, stack *Stack) error {
	switch s := f.Stmt.(type) {
	case *structs.Nop:
		return nil

	case *structs.Seq:
		for i := len(s.Stmts) - 1; i >= 0; i-- {
			stack.Push(Frame{Stmt: s.Stmts[i], Env: f.Env})
		}
		return nil

	case *structs.Local:
		slot := m.store.Alloc()
		stack.Push(Frame{Stmt: s.Body, Env: f.Env.Extend(s.Ident, slot)})
		return nil

	case *structs.Bind:
		return m.Unify(f.Env, s.LHS, s.RHS)

	case *structs.If:
		return m.stepIf(f, s, stack)

	case *structs.Case:
		return m.stepCase(f, s, stack)

	case *structs.Apply:
		return m.stepApply(f, s, stack)

	case *structs.Thread:
		return errors.New("interp: thread statement reached the executor")

	default:
		return typeErrorf("unknown statement %T", f.Stmt)
	}
}

func (m *Machine) stepIf(f Frame, s *structs.If, stack *Stack) error {
	v, err := m.needBound(f.Env, s.Cond)
	if err != nil {
		return err
	}
	lit, ok := v.(structs.Lit)
	if !ok || lit.Kind != structs.BoolLit {
		return typeErrorf("condition %s is not a boolean: %s", s.Cond, v)
	}
	if lit.B {
		stack.Push(Frame{Stmt: s.Then, Env: f.Env})
	} else {
		stack.Push(Frame{Stmt: s.Else, Env: f.Env})
	}
	return nil
}

func (m *Machine) stepCase(f Frame, s *structs.Case, stack *Stack) error {
	v, err := m.needBound(f.Env, s.Ident)
	if err != nil {
		return err
	}

	rec, ok := v.(*structs.Rec)
	if !ok || !m.shapeMatches(rec, s.Pattern) {
		stack.Push(Frame{Stmt: s.Else, Env: f.Env})
		return nil
	}

	// Shape matches. Allocate a fresh slot per pattern identifier and
	// unify it with the corresponding field; literal pattern features
	// unify directly. A field-level mismatch means no match.
	env := f.Env
	for _, pf := range s.Pattern.Fields {
		fieldVal := rec.Fields[pf.Feat]
		switch pv := pf.Val.(type) {
		case *structs.IdentExpr:
			slot := m.store.Alloc()
			env = env.Extend(pv.Name, slot)
			if err := m.Unify(env, structs.Ref{Slot: slot}, fieldVal); err != nil {
				return err
			}
		default:
			if err := m.Unify(env, pf.Val, fieldVal); err != nil {
				var ue *UnificationError
				if errors.As(err, &ue) {
					stack.Push(Frame{Stmt: s.Else, Env: f.Env})
					return nil
				}
				return err
			}
		}
	}

	stack.Push(Frame{Stmt: s.Then, Env: env})
	return nil
}

func (m *Machine) stepApply(f Frame, s *structs.Apply, stack *Stack) error {
	v, err := m.needBound(f.Env, s.Proc)
	if err != nil {
		return err
	}
	proc, ok := v.(*structs.Closure)
	if !ok {
		return typeErrorf("%s is not a procedure: %s", s.Proc, v)
	}
	if len(proc.Params) != len(s.Args) {
		return typeErrorf("%s takes %d arguments, got %d",
			s.Proc, len(proc.Params), len(s.Args))
	}

	// The call environment is the captured environment extended with
	// parameter aliases to the caller's argument slots.
	env := proc.Env
	for i, param := range proc.Params {
		slot, ok := f.Env.Lookup(s.Args[i])
		if !ok {
			return typeErrorf("undefined identifier %q", s.Args[i])
		}
		env = env.Extend(param, slot)
	}
	stack.Push(Frame{Stmt: proc.Body, Env: env})
	return nil
}

// needBound resolves name to its slot and returns the bound value,
// raising SuspendError while the slot is unbound.
func (m *Machine) needBound(env *structs.Env, name string) (structs.Value, error) {
	slot, ok := env.Lookup(name)
	if !ok {
		return nil, typeErrorf("undefined identifier %q", name)
	}
	cls := m.store.ClassOf(slot)
	if !cls.Bound() {
		return nil, &SuspendError{Slot: slot}
	}
	return cls.Value(), nil
}

// shapeMatches checks label, arity, and feature set of a computed
// record against a pattern, without touching field values.
func (m *Machine) shapeMatches(rec *structs.Rec, pat *structs.RecordExpr) bool {
	if !rec.Label.Equal(pat.Label) {
		return false
	}
	if rec.Arity() != len(pat.Fields) {
		return false
	}
	for _, pf := range pat.Fields {
		if _, ok := rec.Fields[pf.Feat]; !ok {
			return false
		}
	}
	return true
}
