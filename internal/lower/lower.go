// Package lower implements the AST-lowering pass of spec.md §4.3: a
// recursive walk over one variable's parsed equation that reifies zero-arity
// builtins, expands stateful builtins (smth1, delay3, trend, …) into
// sub-model instantiations, and substitutes `self`.
package lower

import (
	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/ident"
	"github.com/bpowers/sdsim/internal/model"
)

// zeroArity is the set of builtins that parse as a bare identifier but must
// become a call with no arguments before compilation (spec.md §4.3 step 1).
var zeroArity = map[string]bool{
	"time": true,
	"pi":   true,
	"dt":   true,
}

// statefulBuiltin describes one of spec.md §4.3's stateful builtins: the
// formal input-port names of the stdlib sub-model it lowers into (internal/
// stdlib publishes the matching source), in argument order.
type statefulBuiltin struct {
	subModel string
	ports    []string
}

// statefulBuiltins is the fixed lookup table of spec.md §4.3 step 2. Arity
// here is the number of ports a user equation may bind; optional trailing
// ports (initial values) may be omitted by the caller.
var statefulBuiltins = map[string]statefulBuiltin{
	"smth1":    {"smth1", []string{"input", "delay_time", "initial"}},
	"smth3":    {"smth3", []string{"input", "delay_time", "initial"}},
	"smth_n":   {"smth_n", []string{"input", "delay_time", "initial", "n"}},
	"delay1":   {"delay1", []string{"input", "delay_time", "initial"}},
	"delay3":   {"delay3", []string{"input", "delay_time", "initial"}},
	"delay_n":  {"delay_n", []string{"input", "delay_time", "initial", "n"}},
	"trend":    {"trend", []string{"input", "average_time", "initial_trend"}},
	"previous": {"previous", []string{"input", "initial"}},
	"init":     {"init", []string{"input"}},
}

// IsStatefulBuiltin reports whether name is one of the builtins lowering
// expands into a sub-model instantiation.
func IsStatefulBuiltin(name string) bool {
	_, ok := statefulBuiltins[name]
	return ok
}

// Result is the outcome of lowering one variable's equation.
type Result struct {
	Expr    ast.Expr0      // possibly-rewritten AST to hand to the compiler
	Helpers []model.Variable // synthesized aux/module variables to insert into the model
}

// Lower rewrites expr, the parsed equation owned by variable `owner`, per
// spec.md §4.3. unitContext disables zero-arity reification (step 1 applies
// only to equation text, not unit expressions).
func Lower(owner string, expr ast.Expr0, unitContext bool) (Result, *errs.List) {
	list := &errs.List{}
	w := &walker{owner: owner, unitContext: unitContext, errs: list}
	out := w.walkExpr0(expr, false)
	return Result{Expr: out, Helpers: w.helpers}, list
}

type walker struct {
	owner       string
	unitContext bool
	ordinal     int
	helpers     []model.Variable
	errs        *errs.List
}

func (w *walker) nextOrdinal() int {
	n := w.ordinal
	w.ordinal++
	return n
}

func (w *walker) walkExpr0(e ast.Expr0, selfCtx bool) ast.Expr0 {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.Const:
		return n

	case *ast.Var:
		if n.Ident == "self" {
			if !selfCtx {
				w.errs.Add(errs.NewEquationError(w.owner, w.owner, errs.Span{Start: n.Loc.Start, End: n.Loc.End},
					errs.UnrecognizedToken, "'self' is only valid inside previous()/size() arguments"))
				return n
			}
			return &ast.Var{Node: n.Node, Ident: w.owner}
		}
		if !w.unitContext && zeroArity[n.Ident] {
			return &ast.App{Node: n.Node, Func: n.Ident, Args: nil}
		}
		return n

	case *ast.App:
		if bi, ok := statefulBuiltins[n.Func]; ok {
			return w.expandStateful(n, bi)
		}
		args := make([]ast.Node0, len(n.Args))
		for i, a := range n.Args {
			args[i] = w.walkNode0(a, selfArgContext(n.Func, i))
		}
		return &ast.App{Node: n.Node, Func: n.Func, Args: args}

	case *ast.Subscript:
		idx := make([]ast.IndexExpr0, len(n.Indices))
		for i, ix := range n.Indices {
			idx[i] = w.walkIndexExpr0(ix)
		}
		return &ast.Subscript{Node: n.Node, Ident: n.Ident, Indices: idx}

	case *ast.Op1:
		return &ast.Op1{Node: n.Node, Op: n.Op, X: w.walkExpr0(n.X, false)}

	case *ast.Op2:
		return &ast.Op2{Node: n.Node, Op: n.Op, L: w.walkExpr0(n.L, false), R: w.walkExpr0(n.R, false)}

	case *ast.If:
		return &ast.If{
			Node: n.Node,
			Cond: w.walkExpr0(n.Cond, false),
			Then: w.walkExpr0(n.Then, false),
			Else: w.walkExpr0(n.Else, false),
		}
	}
	return e
}

// selfArgContext reports whether argument i of a call to fn is a position
// where `self` is legal: the argument positions of previous()/size().
func selfArgContext(fn string, argIndex int) bool {
	switch fn {
	case "previous":
		return argIndex == 0
	case "size":
		return true
	}
	return false
}

func (w *walker) walkNode0(n ast.Node0, selfCtx bool) ast.Node0 {
	switch v := n.(type) {
	case ast.Expr0:
		return w.walkExpr0(v, selfCtx)
	case ast.IndexExpr0:
		return w.walkIndexExpr0(v)
	}
	return n
}

func (w *walker) walkIndexExpr0(n ast.IndexExpr0) ast.IndexExpr0 {
	switch v := n.(type) {
	case *ast.Wildcard:
		return v
	case *ast.StarRange:
		return v
	case *ast.Range:
		return &ast.Range{Node: v.Node, L: w.walkExpr0(v.L, false), R: w.walkExpr0(v.R, false)}
	case *ast.Expr:
		return &ast.Expr{Node: v.Node, X: w.walkExpr0(v.X, false)}
	}
	return n
}

// expandStateful implements spec.md §4.3 step 2: rewrite a call to a
// stateful builtin into a Module variable plus helper auxes for any
// non-trivial argument, replacing the call site with a reference to the
// module's output port.
func (w *walker) expandStateful(app *ast.App, bi statefulBuiltin) ast.Expr0 {
	n := w.nextOrdinal()
	modIdent := ident.ModuleIdent(w.owner, n, app.Func)

	bindings := make([]model.InputBinding, 0, len(app.Args))
	for i, rawArg := range app.Args {
		if i >= len(bi.ports) {
			w.errs.Add(errs.NewEquationError(w.owner, w.owner, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, "too many arguments to "+app.Func))
			break
		}
		port := bi.ports[i]

		selfCtx := app.Func == "previous" && i == 0
		walked := w.walkNode0(rawArg, selfCtx)

		if v, ok := walked.(*ast.Var); ok {
			bindings = append(bindings, model.InputBinding{Dst: port, Src: v.Ident})
			continue
		}

		helperIdent := ident.HelperName(w.owner, n, i)
		w.helpers = append(w.helpers, model.Variable{
			Name: helperIdent,
			Kind: model.KindAux,
			Eq:   model.Equation{Form: model.Scalar, Text: walked.String()},
		})
		bindings = append(bindings, model.InputBinding{Dst: port, Src: helperIdent})
	}

	w.helpers = append(w.helpers, model.Variable{
		Name:      modIdent,
		Kind:      model.KindModule,
		ModelName: "stdlib" + string(ident.Sep) + app.Func,
		Bindings:  bindings,
	})

	outputIdent := ident.OutputPort(modIdent)
	return &ast.Var{Node: app.Node, Ident: outputIdent}
}
