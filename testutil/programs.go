// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package testutil provides canned kernel-language programs shared by
// the package tests and the CLI. Each program is rebuilt per call so
// callers can never alias each other's AST.
package testutil

import (
	"sort"

	"github.com/hashicorp/ozi/structs"
)

// Program is a named kernel-language program.
type Program struct {
	Name  string
	Desc  string
	Build func() structs.Stmt
}

// Get returns the program registered under name.
func Get(name string) (Program, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names returns the registered program names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var registry = map[string]Program{}

func register(name, desc string, build func() structs.Stmt) {
	registry[name] = Program{Name: name, Desc: desc, Build: build}
}

// AST construction helpers.

func seq(ss ...structs.Stmt) structs.Stmt     { return &structs.Seq{Stmts: ss} }
func local(n string, b structs.Stmt) structs.Stmt {
	return &structs.Local{Ident: n, Body: b}
}
func bind(l, r structs.Expr) structs.Stmt { return &structs.Bind{LHS: l, RHS: r} }
func cond(x string, t, e structs.Stmt) structs.Stmt {
	return &structs.If{Cond: x, Then: t, Else: e}
}
func caseOf(x string, p *structs.RecordExpr, t, e structs.Stmt) structs.Stmt {
	return &structs.Case{Ident: x, Pattern: p, Then: t, Else: e}
}
func apply(f string, args ...string) structs.Stmt {
	return &structs.Apply{Proc: f, Args: args}
}
func thread(b structs.Stmt) structs.Stmt { return &structs.Thread{Body: b} }
func nop() structs.Stmt                  { return &structs.Nop{} }

func id(n string) structs.Expr        { return &structs.IdentExpr{Name: n} }
func intE(i int64) structs.Expr       { return &structs.LitExpr{Lit: structs.Int(i)} }
func boolE(b bool) structs.Expr       { return &structs.LitExpr{Lit: structs.Bool(b)} }
func atomE(a string) structs.Expr     { return &structs.LitExpr{Lit: structs.Atom(a)} }
func sum(a, b structs.Expr) structs.Expr {
	return &structs.SumExpr{A: a, B: b}
}
func product(a, b structs.Expr) structs.Expr {
	return &structs.ProductExpr{A: a, B: b}
}
func rec(label structs.Lit, fields ...structs.Field) *structs.RecordExpr {
	return &structs.RecordExpr{Label: label, Fields: fields}
}
func field(feat structs.Lit, v structs.Expr) structs.Field {
	return structs.Field{Feat: feat, Val: v}
}
func proc(params []string, body structs.Stmt) structs.Expr {
	return &structs.ProcExpr{Params: params, Body: body}
}

func init() {
	register("arithmetic", "chained sums and products over bound variables",
		func() structs.Stmt {
			// local X in X=1
			//   local Y in Y=2+X Y=3+0
			//     local Z in Z=Y*X end end end
			return local("x", seq(
				bind(id("x"), intE(1)),
				local("y", seq(
					bind(id("y"), sum(intE(2), id("x"))),
					bind(id("y"), sum(intE(3), intE(0))),
					local("z", bind(id("z"), product(id("y"), id("x")))),
				)),
			))
		})

	register("conditionals", "if over a bound boolean",
		func() structs.Stmt {
			return local("x", local("y", seq(
				bind(id("x"), boolE(true)),
				cond("x", bind(id("y"), atomE("True")), nop()),
			)))
		})

	register("if-statement", "else branch of a false condition",
		func() structs.Stmt {
			return local("x", local("c", local("y", seq(
				bind(id("c"), boolE(false)),
				bind(id("x"), intE(10)),
				cond("c",
					bind(id("y"), intE(30)),
					bind(id("y"), intE(40))),
			))))
		})

	register("case", "pattern match against a self-referential record",
		func() structs.Stmt {
			// X = '|'(1:1 2:X), then case X of '|'(1:A 2:B) then X=B
			return local("x", seq(
				bind(id("x"), rec(structs.Atom("|"),
					field(structs.Atom("1"), atomE("1")),
					field(structs.Atom("2"), id("x")))),
				caseOf("x",
					rec(structs.Atom("|"),
						field(structs.Atom("1"), id("a")),
						field(structs.Atom("2"), id("b"))),
					bind(id("x"), id("b")),
					nop()),
			))
		})

	register("case-fallback", "nested case falling through on feature mismatch",
		func() structs.Stmt {
			// case X of map(name:A 3:B) then Y=10
			// else case X of map(name:C 2:D) then Y=20 else Y=30 end end
			return local("x", local("y", seq(
				bind(id("x"), rec(structs.Atom("map"),
					field(structs.Atom("name"), intE(10)),
					field(structs.Int(2), intE(14)))),
				caseOf("x",
					rec(structs.Atom("map"),
						field(structs.Atom("name"), id("a")),
						field(structs.Int(3), id("b"))),
					bind(id("y"), intE(10)),
					caseOf("x",
						rec(structs.Atom("map"),
							field(structs.Atom("name"), id("c")),
							field(structs.Int(2), id("d"))),
						bind(id("y"), intE(20)),
						bind(id("y"), intE(30)))),
			)))
		})

	register("records", "cyclic record unification terminates",
		func() structs.Stmt {
			// X='|'(1:1 2:Y)  Y='|'(1:1 2:X)  X=Y
			return local("x", local("y", seq(
				bind(id("x"), rec(structs.Atom("|"),
					field(structs.Atom("1"), intE(1)),
					field(structs.Atom("2"), id("y")))),
				bind(id("y"), rec(structs.Atom("|"),
					field(structs.Atom("1"), intE(1)),
					field(structs.Atom("2"), id("x")))),
				bind(id("x"), id("y")),
			)))
		})

	register("procedures", "procedure binding a captured variable to its argument",
		func() structs.Stmt {
			return local("x", local("y", seq(
				bind(id("y"), atomE("True")),
				local("f", seq(
					bind(proc([]string{"x1"}, bind(id("y"), id("x1"))), id("f")),
					apply("f", "x"),
				)),
			)))
		})

	register("closure-capture", "captured environment wins over the caller's shadowing",
		func() structs.Stmt {
			// X captures Y=2 D=3; the caller rebinds Y=true and gets A
			// from the captured Y, not its own.
			return local("x", seq(
				local("y", local("d", seq(
					bind(id("y"), intE(2)),
					bind(id("d"), intE(3)),
					bind(id("x"), proc([]string{"k", "a"},
						cond("k",
							bind(id("a"), id("y")),
							bind(id("a"), id("d"))))),
				))),
				local("y", local("b", seq(
					bind(id("y"), boolE(true)),
					apply("x", "y", "b"),
				))),
			))
		})

	register("nested-procedures", "procedure defined and applied inside a procedure",
		func() structs.Stmt {
			return local("x", local("p1", seq(
				bind(id("p1"), proc([]string{"y"},
					local("p2", seq(
						bind(id("p2"), proc([]string{"z"},
							cond("z",
								bind(id("y"), product(id("x"), id("x"))),
								bind(id("x"), id("z"))))),
						local("w", seq(
							bind(id("w"), boolE(true)),
							apply("p2", "w"),
						)),
					)))),
				bind(id("x"), intE(10)),
				local("x", apply("p1", "x")),
			)))
		})

	register("threads", "main thread suspends until a spawned thread binds",
		func() structs.Stmt {
			// thread skip skip X=1+2 end  local Y in Y=X*3 end
			return local("x", seq(
				thread(seq(nop(), nop(),
					bind(id("x"), sum(intE(1), intE(2))))),
				local("y", bind(id("y"), product(id("x"), intE(3)))),
			))
		})

	register("deadlock", "two threads suspended on each other's variable",
		func() structs.Stmt {
			// thread X=Y+2 end  Y=X*3: nobody ever binds ground
			return local("x", local("y", seq(
				thread(bind(id("x"), sum(id("y"), intE(2)))),
				bind(id("y"), product(id("x"), intE(3))),
			)))
		})

	register("self-reference", "a self-referential arithmetic bind resolved by peers",
		func() structs.Stmt {
			// thread Y=Y+0 end  thread skip skip X=5 end  Y=X*3
			return local("x", local("y", seq(
				thread(bind(id("y"), sum(id("y"), intE(0)))),
				thread(seq(nop(), nop(), bind(id("x"), intE(5)))),
				bind(id("y"), product(id("x"), intE(3))),
			)))
		})

	register("late-binding", "a suspended bind unblocked transitively",
		func() structs.Stmt {
			// thread Y=X+2 end  thread skip skip X=5 end  Y=Y*1
			return local("x", local("y", seq(
				thread(bind(id("y"), sum(id("x"), intE(2)))),
				thread(seq(nop(), nop(), bind(id("x"), intE(5)))),
				bind(id("y"), product(id("y"), intE(1))),
			)))
		})
}
