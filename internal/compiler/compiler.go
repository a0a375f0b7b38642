package compiler

import (
	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/ident"
)

// builtinArity lists the stateless builtins that survive lowering (spec.md
// §4.3 expands the stateful ones away before this stage runs) and the
// argument count the compiler accepts for each. safediv, min and max are not
// listed: compileApp checks their argument counts in their own cases.
var builtinArity = map[string]int{
	"abs": 1, "exp": 1, "ln": 1, "log10": 1, "sqrt": 1,
	"sin": 1, "cos": 1, "tan": 1, "int": 1, "time": 0, "pi": 0, "dt": 0,
	"step": 2, "ramp": 3, "pulse": 3,
}

// Context carries everything the compiler needs to resolve one module
// instantiation's identifiers and graphical functions.
type Context struct {
	// SlotMap resolves a canonical scalar ident to its offset within this
	// module's slot window.
	SlotMap map[string]int
	// GlobalOffset resolves "time"/"dt" to their absolute (module-window-
	// relative-zero) slots; both live at the root of the flattened hierarchy.
	GlobalOffset map[string]int
	// GFIndex maps a variable's canonical ident to its index in the byte-
	// code context's graphical-function table vector, for variables that
	// carry one.
	GFIndex map[string]int
}

// CompileExpr lowers a parsed-and-lowered ast.Expr0 into the Expr IR,
// resolving identifiers against ctx's slot map (spec.md §4.7).
func CompileExpr(model, variable string, e ast.Expr0, ctx *Context) (Expr, *errs.List) {
	list := &errs.List{}
	out := compile(model, variable, e, ctx, list)
	return out, list
}

// CompileOrZero compiles e against ctx, merging any diagnostics into list
// and returning a zero Const in their place, for callers (internal/build)
// that collect errors across many variables before deciding whether to
// proceed.
func CompileOrZero(model, variable string, e ast.Expr0, ctx *Context, list *errs.List) Expr {
	out, diags := CompileExpr(model, variable, e, ctx)
	list.Merge(diags)
	return out
}

func compile(model, variable string, e ast.Expr0, ctx *Context, list *errs.List) Expr {
	if e == nil {
		return &Const{Value: 0}
	}
	switch n := e.(type) {
	case *ast.Const:
		return &Const{Value: n.Value}

	case *ast.Var:
		return resolveIdent(model, variable, n.Ident, n.Loc.Start, n.Loc.End, ctx, list)

	case *ast.Subscript:
		// Arrayed variables are not expanded into per-element slots
		// anywhere in the pipeline, so no subscripted reference resolves:
		// every Subscript, with constant or runtime-computed indices, is
		// rejected here.
		list.Add(errs.NewEquationError(model, variable, errs.Span{Start: n.Loc.Start, End: n.Loc.End},
			errs.MismatchedDimensions, "subscripted references are not supported by this compiler"))
		return &Const{Value: 0}

	case *ast.Op1:
		return &Op1{Op: n.Op, X: compile(model, variable, n.X, ctx, list)}

	case *ast.Op2:
		return &Op2{Op: n.Op, L: compile(model, variable, n.L, ctx, list), R: compile(model, variable, n.R, ctx, list)}

	case *ast.If:
		return &If{
			Cond: compile(model, variable, n.Cond, ctx, list),
			Then: compile(model, variable, n.Then, ctx, list),
			Else: compile(model, variable, n.Else, ctx, list),
		}

	case *ast.App:
		return compileApp(model, variable, n, ctx, list)
	}
	return &Const{Value: 0}
}

func resolveIdent(modelName, variable, id string, start, end int, ctx *Context, list *errs.List) Expr {
	id = ident.Canonicalize(id)
	if off, ok := ctx.GlobalOffset[id]; ok {
		return &GlobalVar{Offset: off}
	}
	if off, ok := ctx.SlotMap[id]; ok {
		return &Var{Offset: off}
	}
	list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: start, End: end},
		errs.UnknownDependency, "unresolved identifier "+id))
	return &Const{Value: 0}
}

func compileApp(modelName, variable string, app *ast.App, ctx *Context, list *errs.List) Expr {
	switch app.Func {
	case "time", "pi", "dt":
		if len(app.Args) != 0 {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, app.Func+"() takes no arguments"))
		}
		if app.Func == "pi" {
			return &BuiltinCall{Name: "pi", Args: nil}
		}
		return resolveIdent(modelName, variable, app.Func, app.Loc.Start, app.Loc.End, ctx, list)

	case "safediv":
		if len(app.Args) != 2 && len(app.Args) != 3 {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, "safediv takes 2 or 3 arguments"))
			return &Const{Value: 0}
		}
		return &BuiltinCall{Name: "safediv", Args: compileArgs(modelName, variable, app.Args, ctx, list)}

	case "min", "max":
		if len(app.Args) != 2 {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, app.Func+" takes exactly 2 arguments"))
			return &Const{Value: 0}
		}
		return &BuiltinCall{Name: app.Func, Args: compileArgs(modelName, variable, app.Args, ctx, list)}

	case "step", "ramp", "pulse":
		// These three are implicitly time-dependent (STEP(height, start),
		// RAMP(slope, start, end), PULSE(height, start, width) all compare
		// against the clock); the source equation never spells "time" out,
		// so the compiler appends the current-time global as a final,
		// user-invisible argument.
		want := builtinArity[app.Func]
		if len(app.Args) != want {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, app.Func+" expects "))
			return &Const{Value: 0}
		}
		args := compileArgs(modelName, variable, app.Args, ctx, list)
		args = append(args, resolveIdent(modelName, variable, "time", app.Loc.Start, app.Loc.End, ctx, list))
		return &BuiltinCall{Name: app.Func, Args: args}

	default:
		arity, known := builtinArity[app.Func]
		if !known {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.UnknownBuiltin, "unrecognized builtin "+app.Func))
			return &Const{Value: 0}
		}
		if len(app.Args) != arity {
			list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: app.Loc.Start, End: app.Loc.End},
				errs.BadBuiltinArgs, app.Func+" expects "))
			return &Const{Value: 0}
		}
		return &BuiltinCall{Name: app.Func, Args: compileArgs(modelName, variable, app.Args, ctx, list)}
	}
}

func compileArgs(modelName, variable string, args []ast.Node0, ctx *Context, list *errs.List) []Expr {
	out := make([]Expr, 0, len(args))
	for _, a := range args {
		if expr0, ok := a.(ast.Expr0); ok {
			out = append(out, compile(modelName, variable, expr0, ctx, list))
			continue
		}
		list.Add(errs.NewEquationError(modelName, variable, errs.Span{Start: a.Span().Start, End: a.Span().End},
			errs.BadBuiltinArgs, "range/wildcard argument not valid in a builtin call"))
	}
	return out
}

// WrapGF wraps a compiled equation Expr in a graphical-function lookup, if
// gfIndex names one registered for this variable (spec.md §3.2: a variable
// may carry an optional graphical-function table).
func WrapGF(expr Expr, gfIndex int, hasGF bool) Expr {
	if !hasGF {
		return expr
	}
	return &BuiltinCall{Name: "lookup", Args: []Expr{expr}, GFIndex: gfIndex}
}
