// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package interp

import (
	"github.com/hashicorp/go-set/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hashicorp/ozi/structs"
)

// freeVarsCacheSize bounds the per-machine memo of statement analyses.
// Procedure bodies are re-analyzed on every evaluation of their
// ProcExpr; the analysis is pure, so the memo is keyed by node identity.
const freeVarsCacheSize = 512

// analysis computes the free identifiers of statements and value
// expressions. The result for a statement node is memoized: AST nodes
// are immutable and shared, so pointer identity is a sound cache key.
type analysis struct {
	memo *lru.Cache[structs.Stmt, *set.Set[string]]
}

func newAnalysis() *analysis {
	memo, err := lru.New[structs.Stmt, *set.Set[string]](freeVarsCacheSize)
	if err != nil {
		// only fails on a non-positive size
		panic(err)
	}
	return &analysis{memo: memo}
}

// freeStmt returns the free identifiers of s. Callers must not mutate
// the result.
func (a *analysis) freeStmt(s structs.Stmt) *set.Set[string] {
	if cached, ok := a.memo.Get(s); ok {
		return cached
	}

	out := set.New[string](4)
	switch s := s.(type) {
	case *structs.Nop:

	case *structs.Seq:
		for _, c := range s.Stmts {
			out.InsertSlice(a.freeStmt(c).Slice())
		}

	case *structs.Local:
		out.InsertSlice(a.freeStmt(s.Body).Slice())
		out.Remove(s.Ident)

	case *structs.Bind:
		out.InsertSlice(a.freeExpr(s.LHS).Slice())
		out.InsertSlice(a.freeExpr(s.RHS).Slice())

	case *structs.If:
		out.Insert(s.Cond)
		out.InsertSlice(a.freeStmt(s.Then).Slice())
		out.InsertSlice(a.freeStmt(s.Else).Slice())

	case *structs.Case:
		out.Insert(s.Ident)
		out.InsertSlice(a.freeStmt(s.Else).Slice())
		then := set.New[string](4)
		then.InsertSlice(a.freeStmt(s.Then).Slice())
		for _, name := range a.freeExpr(s.Pattern).Slice() {
			then.Remove(name)
		}
		out.InsertSlice(then.Slice())

	case *structs.Apply:
		out.Insert(s.Proc)
		out.InsertSlice(s.Args)

	case *structs.Thread:
		out.InsertSlice(a.freeStmt(s.Body).Slice())
	}

	a.memo.Add(s, out)
	return out
}

// freeExpr returns the free identifiers of a value expression. Computed
// values carry no identifiers and contribute nothing.
func (a *analysis) freeExpr(e structs.Expr) *set.Set[string] {
	out := set.New[string](4)
	switch e := e.(type) {
	case *structs.IdentExpr:
		out.Insert(e.Name)

	case *structs.RecordExpr:
		for _, f := range e.Fields {
			out.InsertSlice(a.freeExpr(f.Val).Slice())
		}

	case *structs.ProcExpr:
		out.InsertSlice(a.freeStmt(e.Body).Slice())
		for _, p := range e.Params {
			out.Remove(p)
		}

	case *structs.SumExpr:
		out.InsertSlice(a.freeExpr(e.A).Slice())
		out.InsertSlice(a.freeExpr(e.B).Slice())

	case *structs.ProductExpr:
		out.InsertSlice(a.freeExpr(e.A).Slice())
		out.InsertSlice(a.freeExpr(e.B).Slice())
	}
	return out
}
