// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a computed runtime value, the only thing the store may bind
// a class to. Identifiers never appear inside a Value; variable
// references are reified as Ref so a stored value stays meaningful
// after the environment that produced it is gone.
type Value interface {
	Expr
	valueNode()
}

// LitKind discriminates literal constants.
type LitKind int8

const (
	BoolLit LitKind = iota
	IntLit
	AtomLit
)

// Lit is an atomic constant: a boolean, a 64-bit integer, or an atom.
// Lit is comparable and is used directly as the feature key of records.
type Lit struct {
	Kind LitKind
	B    bool
	I    int64
	A    string
}

// Bool returns a boolean literal.
func Bool(b bool) Lit { return Lit{Kind: BoolLit, B: b} }

// Int returns an integer literal.
func Int(i int64) Lit { return Lit{Kind: IntLit, I: i} }

// Atom returns an atom literal.
func Atom(a string) Lit { return Lit{Kind: AtomLit, A: a} }

// Equal reports whether two literals are the same constant.
func (l Lit) Equal(o Lit) bool { return l == o }

func (l Lit) String() string {
	switch l.Kind {
	case BoolLit:
		return fmt.Sprintf("%v", l.B)
	case IntLit:
		return fmt.Sprintf("%d", l.I)
	default:
		return l.A
	}
}

// Ref is a reified reference to a store slot. It stands in for a
// variable inside computed records, decoupling the stored structure
// from any identifier-to-slot mapping.
type Ref struct {
	Slot int
}

func (r Ref) String() string { return fmt.Sprintf("_V%d", r.Slot) }

// Rec is a computed record. Fields maps feature literals to computed
// values; arity and the feature set define its shape, field order does
// not exist at runtime.
type Rec struct {
	Label  Lit
	Fields map[Lit]Value
}

// Arity returns the number of fields.
func (r *Rec) Arity() int { return len(r.Fields) }

func (r *Rec) String() string {
	parts := make([]string, 0, len(r.Fields))
	for f, v := range r.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", f, v))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s(%s)", r.Label, strings.Join(parts, " "))
}

// Closure is a computed procedure: formal parameters, a body, and the
// defining environment restricted to the body's free identifiers.
// Closures never unify, not even with themselves.
type Closure struct {
	Params []string
	Body   Stmt
	Env    *Env
}

func (c *Closure) String() string {
	return fmt.Sprintf("proc/%d", len(c.Params))
}

func (Lit) valueNode()      {}
func (Ref) valueNode()      {}
func (*Rec) valueNode()     {}
func (*Closure) valueNode() {}

// Computed values double as expressions; see Expr.
func (Lit) exprNode()      {}
func (Ref) exprNode()      {}
func (*Rec) exprNode()     {}
func (*Closure) exprNode() {}
