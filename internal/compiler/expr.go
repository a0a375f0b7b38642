// Package compiler turns a lowered ast.Expr0 into the low-level Expr IR of
// spec.md §4.7: the intermediate representation both the bytecode emitter
// (internal/bytecode → internal/vm) and the tree-walking interpreter
// (internal/interp) consume, so the two executors are provably evaluating
// the same compiled program rather than two independent translations.
package compiler

import "github.com/bpowers/sdsim/internal/ast"

// Expr is the closed set of low-level IR node variants from spec.md §4.7.
// Unlike spec.md's full ArrayView-bearing Subscript/TempArray forms, this IR
// only carries the scalar subset: arrayed equations are not expanded into
// per-element scalars anywhere upstream, and compile rejects every
// subscripted reference — see DESIGN.md's note on array-handling scope.
type Expr interface {
	expr()
}

// Const is a compile-time numeric literal.
type Const struct{ Value float64 }

func (*Const) expr() {}

// Var reads the current-buffer slot at Offset.
type Var struct{ Offset int }

func (*Var) expr() {}

// GlobalVar reads an absolute (not module-relative) slot: time, dt.
type GlobalVar struct{ Offset int }

func (*GlobalVar) expr() {}

// AssignCurr writes X's value into curr[Offset]. Used for stocks' initials
// phase and for flows/auxes (spec.md §4.7 rules).
type AssignCurr struct {
	Offset int
	X      Expr
}

func (*AssignCurr) expr() {}

// AssignNext writes X's value into next[Offset]: a stock's runtime update.
type AssignNext struct {
	Offset int
	X      Expr
}

func (*AssignNext) expr() {}

// Op1 is a unary operator application.
type Op1 struct {
	Op ast.UnaryOp
	X  Expr
}

func (*Op1) expr() {}

// Op2 is a binary operator application.
type Op2 struct {
	Op   ast.BinaryOp
	L, R Expr
}

func (*Op2) expr() {}

// If selects between Then/Else based on Cond != 0.
type If struct {
	Cond, Then, Else Expr
}

func (*If) expr() {}

// BuiltinCall invokes a stateless builtin function (spec.md's App form,
// restricted to builtins that survive lowering: arithmetic helpers,
// SafeDiv, graphical-function lookups, min/max/abs/…).
type BuiltinCall struct {
	Name string
	Args []Expr
	// GFIndex selects this call's graphical-function table within the
	// module's byte-code context, used only when Name == "lookup".
	GFIndex int
}

func (*BuiltinCall) expr() {}

// EvalModule runs the sub-module instance's runlist for Phase (initials,
// flows or stocks, matching the parent runlist it appears in), after first
// copying InputAssigns into the child's inlined slot range. ModuleBase is
// the child's slot offset within the fully-flattened hierarchy.
type EvalModule struct {
	ModuleBase   int
	InputAssigns []*AssignCurr // parent-side expr -> child input-port slot, in binding order
	Phase        RunlistPhase
}

func (*EvalModule) expr() {}

// RunlistPhase selects which of a module's three runlists to execute.
type RunlistPhase int

const (
	Initials RunlistPhase = iota
	Flows
	Stocks
)
