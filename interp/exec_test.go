// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package interp

import (
	"errors"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/hashicorp/ozi/ci"
	"github.com/hashicorp/ozi/structs"
)

func TestStep_Nop(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	stack := NewStack()
	must.NoError(t, m.Step(Frame{Stmt: &structs.Nop{}, Env: structs.EmptyEnv()}, stack))
	must.True(t, stack.Empty())
}

func TestStep_Seq(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	env := structs.EmptyEnv()
	first := &structs.Nop{}
	second := &structs.Bind{LHS: litE(structs.Int(1)), RHS: litE(structs.Int(1))}

	stack := NewStack()
	seq := &structs.Seq{Stmts: []structs.Stmt{first, second}}
	must.NoError(t, m.Step(Frame{Stmt: seq, Env: env}, stack))

	// children are pushed in reverse so the first child pops first
	must.Eq(t, 2, stack.Len())
	must.Eq(t, structs.Stmt(first), stack.Pop().Stmt)
	must.Eq(t, structs.Stmt(second), stack.Pop().Stmt)
}

func TestStep_Local(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	env := structs.EmptyEnv()
	body := &structs.Nop{}

	stack := NewStack()
	must.NoError(t, m.Step(Frame{Stmt: &structs.Local{Ident: "x", Body: body}, Env: env}, stack))

	// the body sees a fresh slot for x, the outer env does not
	f := stack.Pop()
	slot, ok := f.Env.Lookup("x")
	must.True(t, ok)
	must.False(t, m.Store().ClassOf(slot).Bound())
	_, ok = env.Lookup("x")
	must.False(t, ok)
}

func TestStep_If(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	thenStmt := &structs.Nop{}
	elseStmt := &structs.Seq{}

	run := func(v structs.Value) structs.Stmt {
		slot := m.Store().Alloc()
		must.NoError(t, m.Store().Bind(slot, v))
		env := structs.EmptyEnv().Extend("c", slot)
		stack := NewStack()
		err := m.Step(Frame{
			Stmt: &structs.If{Cond: "c", Then: thenStmt, Else: elseStmt},
			Env:  env,
		}, stack)
		must.NoError(t, err)
		return stack.Pop().Stmt
	}

	must.Eq(t, structs.Stmt(thenStmt), run(structs.Bool(true)))
	must.Eq(t, structs.Stmt(elseStmt), run(structs.Bool(false)))
}

func TestStep_IfSuspends(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	slot := m.Store().Alloc()
	env := structs.EmptyEnv().Extend("c", slot)

	stack := NewStack()
	err := m.Step(Frame{
		Stmt: &structs.If{Cond: "c", Then: &structs.Nop{}, Else: &structs.Nop{}},
		Env:  env,
	}, stack)

	got, ok := Suspended(err)
	must.True(t, ok)
	must.Eq(t, slot, got)
	// nothing was committed
	must.True(t, stack.Empty())
}

func TestStep_IfNonBoolean(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	slot := m.Store().Alloc()
	must.NoError(t, m.Store().Bind(slot, structs.Int(1)))
	env := structs.EmptyEnv().Extend("c", slot)

	err := m.Step(Frame{
		Stmt: &structs.If{Cond: "c", Then: &structs.Nop{}, Else: &structs.Nop{}},
		Env:  env,
	}, NewStack())
	must.Error(t, err)
	var te *TypeError
	must.True(t, errors.As(err, &te))
}

func TestStep_CaseMatch(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	env := structs.EmptyEnv()
	xSlot := m.Store().Alloc()
	env = env.Extend("x", xSlot)
	must.NoError(t, m.Unify(env, identE("x"), recE(structs.Atom("point"),
		structs.Field{Feat: structs.Atom("x"), Val: litE(structs.Int(3))},
		structs.Field{Feat: structs.Atom("y"), Val: litE(structs.Int(4))})))

	thenStmt := &structs.Nop{}
	stack := NewStack()
	err := m.Step(Frame{
		Stmt: &structs.Case{
			Ident: "x",
			Pattern: recE(structs.Atom("point"),
				structs.Field{Feat: structs.Atom("x"), Val: identE("a")},
				structs.Field{Feat: structs.Atom("y"), Val: identE("b")}),
			Then: thenStmt,
			Else: &structs.Nop{},
		},
		Env: env,
	}, stack)
	must.NoError(t, err)

	// then runs under an environment binding the pattern identifiers
	// to the record's fields
	f := stack.Pop()
	must.Eq(t, structs.Stmt(thenStmt), f.Stmt)
	aSlot, ok := f.Env.Lookup("a")
	must.True(t, ok)
	must.Eq(t, structs.Value(structs.Int(3)), m.Store().ClassOf(aSlot).Value())
	bSlot, ok := f.Env.Lookup("b")
	must.True(t, ok)
	must.Eq(t, structs.Value(structs.Int(4)), m.Store().ClassOf(bSlot).Value())
}

func TestStep_CaseMismatch(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	elseStmt := &structs.Seq{}

	run := func(bind structs.Expr, pattern *structs.RecordExpr) Frame {
		env := structs.EmptyEnv().Extend("x", m.Store().Alloc())
		must.NoError(t, m.Unify(env, identE("x"), bind))
		stack := NewStack()
		err := m.Step(Frame{
			Stmt: &structs.Case{Ident: "x", Pattern: pattern,
				Then: &structs.Nop{}, Else: elseStmt},
			Env: env,
		}, stack)
		must.NoError(t, err)
		return stack.Pop()
	}

	pat := recE(structs.Atom("p"),
		structs.Field{Feat: structs.Int(1), Val: identE("a")})

	// non-record value
	f := run(litE(structs.Int(5)), pat)
	must.Eq(t, structs.Stmt(elseStmt), f.Stmt)

	// label mismatch
	f = run(recE(structs.Atom("q"),
		structs.Field{Feat: structs.Int(1), Val: litE(structs.Int(5))}), pat)
	must.Eq(t, structs.Stmt(elseStmt), f.Stmt)

	// feature mismatch
	f = run(recE(structs.Atom("p"),
		structs.Field{Feat: structs.Int(2), Val: litE(structs.Int(5))}), pat)
	must.Eq(t, structs.Stmt(elseStmt), f.Stmt)

	// the else branch keeps the original environment
	_, ok := f.Env.Lookup("a")
	must.False(t, ok)
}

func TestStep_CaseSuspends(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	slot := m.Store().Alloc()
	env := structs.EmptyEnv().Extend("x", slot)

	err := m.Step(Frame{
		Stmt: &structs.Case{
			Ident:   "x",
			Pattern: recE(structs.Atom("p")),
			Then:    &structs.Nop{},
			Else:    &structs.Nop{},
		},
		Env: env,
	}, NewStack())
	got, ok := Suspended(err)
	must.True(t, ok)
	must.Eq(t, slot, got)
}

func TestStep_Apply(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)

	// p captures y; calling {p a} must alias the caller's a slot
	ySlot := m.Store().Alloc()
	pSlot := m.Store().Alloc()
	aSlot := m.Store().Alloc()
	defEnv := structs.EmptyEnv().Extend("y", ySlot).Extend("p", pSlot)
	must.NoError(t, m.Unify(defEnv, identE("p"), &structs.ProcExpr{
		Params: []string{"arg"},
		Body: &structs.Bind{
			LHS: identE("arg"),
			RHS: identE("y"),
		},
	}))

	callEnv := structs.EmptyEnv().Extend("p", pSlot).Extend("a", aSlot)
	stack := NewStack()
	must.NoError(t, m.Step(Frame{
		Stmt: &structs.Apply{Proc: "p", Args: []string{"a"}},
		Env:  callEnv,
	}, stack))

	f := stack.Pop()
	slot, ok := f.Env.Lookup("arg")
	must.True(t, ok)
	must.Eq(t, aSlot, slot)
	slot, ok = f.Env.Lookup("y")
	must.True(t, ok)
	must.Eq(t, ySlot, slot)
}

func TestStep_ApplyErrors(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	pSlot := m.Store().Alloc()
	nSlot := m.Store().Alloc()
	env := structs.EmptyEnv().Extend("p", pSlot).Extend("n", nSlot)
	must.NoError(t, m.Unify(env, identE("p"), &structs.ProcExpr{
		Params: []string{"a"}, Body: &structs.Nop{},
	}))
	must.NoError(t, m.Unify(env, identE("n"), litE(structs.Int(1))))

	// arity mismatch
	err := m.Step(Frame{
		Stmt: &structs.Apply{Proc: "p", Args: []string{"n", "n"}},
		Env:  env,
	}, NewStack())
	must.Error(t, err)
	var te *TypeError
	must.True(t, errors.As(err, &te))

	// target is not a procedure
	err = m.Step(Frame{
		Stmt: &structs.Apply{Proc: "n", Args: []string{"p"}},
		Env:  env,
	}, NewStack())
	must.Error(t, err)
	must.True(t, errors.As(err, &te))
}

func TestStep_ApplySuspends(t *testing.T) {
	ci.Parallel(t)

	m := testMachine(t)
	pSlot := m.Store().Alloc()
	env := structs.EmptyEnv().Extend("p", pSlot)

	err := m.Step(Frame{
		Stmt: &structs.Apply{Proc: "p", Args: []string{}},
		Env:  env,
	}, NewStack())
	got, ok := Suspended(err)
	must.True(t, ok)
	must.Eq(t, pSlot, got)
}
