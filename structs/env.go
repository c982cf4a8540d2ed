// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package structs

import (
	"fmt"
	"sort"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
)

// Env maps identifier names to store slots. It is a persistent
// structure: Extend returns a new Env sharing structure with the
// receiver, so sibling stack frames and captured closures keep their
// pre-extension view without copying. Extending with an existing name
// shadows the outer binding.
type Env struct {
	tree *iradix.Tree[int]
}

// EmptyEnv returns an environment with no bindings.
func EmptyEnv() *Env {
	return &Env{tree: iradix.New[int]()}
}

// Extend returns a new environment with name bound to slot. The
// receiver is unchanged.
func (e *Env) Extend(name string, slot int) *Env {
	tree, _, _ := e.tree.Insert([]byte(name), slot)
	return &Env{tree: tree}
}

// Lookup returns the slot bound to name.
func (e *Env) Lookup(name string) (int, bool) {
	return e.tree.Get([]byte(name))
}

// Restrict returns a new environment containing only the bindings for
// keep. A name in keep with no binding in e is reported as the second
// return value; the restriction is still produced for the rest.
func (e *Env) Restrict(keep []string) (*Env, []string) {
	var missing []string
	out := EmptyEnv()
	for _, name := range keep {
		slot, ok := e.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = out.Extend(name, slot)
	}
	return out, missing
}

// Len returns the number of bindings.
func (e *Env) Len() int {
	return e.tree.Len()
}

// Names returns the bound identifier names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, e.tree.Len())
	e.tree.Root().Walk(func(k []byte, _ int) bool {
		names = append(names, string(k))
		return false
	})
	sort.Strings(names)
	return names
}

func (e *Env) String() string {
	parts := make([]string, 0, e.tree.Len())
	e.tree.Root().Walk(func(k []byte, slot int) bool {
		parts = append(parts, fmt.Sprintf("%s=_V%d", k, slot))
		return false
	})
	sort.Strings(parts)
	return "{" + strings.Join(parts, " ") + "}"
}
