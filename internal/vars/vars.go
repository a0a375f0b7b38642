// Package vars builds the per-model variable table and extracts
// direct-dependency sets from lowered equations, per spec.md §4.4.
package vars

import (
	"strings"

	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/ident"
	"github.com/bpowers/sdsim/internal/model"
)

// Entry is one resolved row of a model's variable table: the canonical form
// of a model.Variable plus its direct dependencies.
type Entry struct {
	Ident       string
	Kind        model.VarKind
	DirectDeps  []string // canonical idents; deduplicated, insertion order
	Var         model.Variable
}

// Table is the canonicalized variable table for one model.
type Table struct {
	byIdent map[string]*Entry
	order   []string
}

// NewTable canonicalizes every variable's name and detects duplicate
// identifiers. Inflow/outflow/dimension idents are stored as given.
func NewTable(vs []model.Variable) (*Table, *errs.List) {
	list := &errs.List{}
	t := &Table{byIdent: make(map[string]*Entry, len(vs))}
	for _, v := range vs {
		canon := ident.Canonicalize(v.Name)
		if canon == "" {
			list.Add(errs.NewModelError("", v.Name, errs.BadModelName, "variable name canonicalizes to empty string"))
			continue
		}
		if _, dup := t.byIdent[canon]; dup {
			list.Add(errs.NewModelError("", canon, errs.DuplicateVariable, "duplicate variable identifier"))
			continue
		}
		e := &Entry{Ident: canon, Kind: v.Kind, Var: v}
		t.byIdent[canon] = e
		t.order = append(t.order, canon)
	}
	return t, list
}

// Get looks up a canonical identifier.
func (t *Table) Get(ident string) (*Entry, bool) {
	e, ok := t.byIdent[ident]
	return e, ok
}

// Idents returns every canonical identifier in the table, in insertion
// order.
func (t *Table) Idents() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len reports the number of variables in the table.
func (t *Table) Len() int { return len(t.order) }

// ExtractDirectDeps implements spec.md §4.4: one pass over a lowered AST
// collecting the canonical idents it references.
func ExtractDirectDeps(model, variable string, expr ast.Expr0) ([]string, *errs.List) {
	list := &errs.List{}
	seen := make(map[string]bool)
	var deps []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			deps = append(deps, id)
		}
	}

	var walk func(ast.Expr0)
	var walkIndex func(ast.IndexExpr0)
	var walkNode0 func(ast.Node0)

	walkNode0 = func(n ast.Node0) {
		switch v := n.(type) {
		case ast.Expr0:
			walk(v)
		case ast.IndexExpr0:
			walkIndex(v)
		}
	}

	walkIndex = func(n ast.IndexExpr0) {
		switch v := n.(type) {
		case *ast.Range:
			walk(v.L)
			walk(v.R)
		case *ast.Expr:
			walk(v.X)
		}
	}

	walk = func(e ast.Expr0) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Const:
		case *ast.Var:
			recordIdentDep(list, model, variable, n.Ident, n.Loc.Start, n.Loc.End, add)
		case *ast.Subscript:
			recordIdentDep(list, model, variable, n.Ident, n.Loc.Start, n.Loc.End, add)
			for _, ix := range n.Indices {
				walkIndex(ix)
			}
		case *ast.App:
			for _, a := range n.Args {
				walkNode0(a)
			}
		case *ast.Op1:
			walk(n.X)
		case *ast.Op2:
			walk(n.L)
			walk(n.R)
		case *ast.If:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		}
	}

	walk(expr)
	return deps, list
}

// recordIdentDep resolves one identifier reference into a dependency: a
// dotted "module.port" ref contributes only the module half; a leading '.'
// (an absolute reference) is an error.
func recordIdentDep(list *errs.List, model, variable, rawIdent string, start, end int, add func(string)) {
	canon := ident.Canonicalize(rawIdent)
	if strings.HasPrefix(canon, ".") {
		list.Add(errs.NewEquationError(model, variable, errs.Span{Start: start, End: end},
			errs.NoAbsoluteReferences, "absolute references are not permitted: "+rawIdent))
		return
	}
	if mod, _, ok := ident.ModuleOf(canon); ok {
		add(mod)
		return
	}
	add(canon)
}
