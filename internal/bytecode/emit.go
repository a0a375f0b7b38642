package bytecode

import (
	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/compiler"
	"github.com/bpowers/sdsim/internal/errs"
)

// MaxRegisters is the VM's fixed register-file size (spec.md §4.8: "e.g. 32
// registers"). Expressions whose depth exceeds this fail compilation with
// NotSimulatable rather than spilling, since real system-dynamics equations
// never nest this deeply.
const MaxRegisters = 32

// emitter assigns registers by tree depth (spec.md §4.8's closing
// paragraph: left operand at depth d, right at d+1, result written back to
// d) and appends instructions to a flat stream.
type emitter struct {
	model, variable string
	out             []Instruction
	maxDepth        int
	errs            *errs.List
}

// Emit compiles one top-level statement Expr (an AssignCurr, AssignNext, or
// EvalModule node from internal/compiler) into a flat instruction sequence
// ending with Ret.
func Emit(model, variable string, stmt compiler.Expr) ([]Instruction, *errs.List) {
	e := &emitter{model: model, variable: variable, errs: &errs.List{}}
	e.statement(stmt)
	e.out = append(e.out, Instruction{Op: Ret})
	return e.out, e.errs
}

// EmitRunlist compiles a whole ordered statement list (one runlist phase's
// worth of topologically-sorted assignments) into a single instruction
// stream with exactly one trailing Ret, so the VM doesn't stop after the
// first statement.
func EmitRunlist(model, variable string, stmts []compiler.Expr) ([]Instruction, *errs.List) {
	e := &emitter{model: model, variable: variable, errs: &errs.List{}}
	for _, stmt := range stmts {
		e.statement(stmt)
	}
	e.out = append(e.out, Instruction{Op: Ret})
	return e.out, e.errs
}

func (e *emitter) statement(stmt compiler.Expr) {
	switch n := stmt.(type) {
	case *compiler.AssignCurr:
		reg := e.eval(n.X, 0)
		e.out = append(e.out, Instruction{Op: AssignCurr, Slot: n.Offset, A: reg})
	case *compiler.AssignNext:
		reg := e.eval(n.X, 0)
		e.out = append(e.out, Instruction{Op: AssignNext, Slot: n.Offset, A: reg})
	case *compiler.EvalModule:
		var assigns []Instruction
		for i, a := range n.InputAssigns {
			// Each input keeps its own register until EvalModule copies them all.
			reg := e.eval(a.X, i)
			assigns = append(assigns, Instruction{Op: AssignCurr, Slot: a.Offset, A: reg})
		}
		e.out = append(e.out, Instruction{
			Op: EvalModule, ModuleBase: n.ModuleBase, InputAssigns: assigns, Phase: int(n.Phase),
		})
	default:
		// A bare expression statement (shouldn't occur in a well-formed
		// runlist, but emit it into a scratch register rather than panic).
		e.eval(n, 0)
	}
}

// eval compiles e into a freshly-assigned register at or above depth d and
// returns that register's index.
func (e *emitter) eval(expr compiler.Expr, d int) int {
	if d > e.maxDepth {
		e.maxDepth = d
	}
	if d >= MaxRegisters {
		e.errs.Add(errs.NewModelError(e.model, e.variable, errs.NotSimulatable,
			"expression exceeds the register file depth during compilation"))
		return MaxRegisters - 1
	}

	switch n := expr.(type) {
	case *compiler.Const:
		e.out = append(e.out, Instruction{Op: LoadConstant, Dest: d, Literal: n.Value})
		return d

	case *compiler.Var:
		e.out = append(e.out, Instruction{Op: LoadVar, Dest: d, Slot: n.Offset})
		return d

	case *compiler.GlobalVar:
		e.out = append(e.out, Instruction{Op: LoadGlobalVar, Dest: d, Slot: n.Offset})
		return d

	case *compiler.Op1:
		x := e.eval(n.X, d)
		if n.Op == ast.Pos {
			return x
		}
		e.out = append(e.out, Instruction{Op: unaryOp(n.Op), Dest: d, A: x})
		return d

	case *compiler.Op2:
		l := e.eval(n.L, d)
		r := e.eval(n.R, d+1)
		e.out = append(e.out, Instruction{Op: binaryOp(n.Op), Dest: d, A: l, B: r})
		return d

	case *compiler.If:
		cond := e.eval(n.Cond, d)
		then := e.eval(n.Then, d+1)
		els := e.eval(n.Else, d+2)
		e.out = append(e.out, Instruction{Op: If, Dest: d, A: cond, B: then, Args: []int{els}})
		return d

	case *compiler.BuiltinCall:
		if n.Name == "lookup" {
			x := e.eval(n.Args[0], d)
			e.out = append(e.out, Instruction{Op: Lookup, Dest: d, A: x, GFIndex: n.GFIndex})
			return d
		}
		args := make([]int, len(n.Args))
		for i, a := range n.Args {
			args[i] = e.eval(a, d+i)
		}
		e.out = append(e.out, Instruction{Op: Apply, Dest: d, Builtin: n.Name, Args: args})
		return d
	}
	e.out = append(e.out, Instruction{Op: LoadConstant, Dest: d, Literal: 0})
	return d
}

func unaryOp(op ast.UnaryOp) Op {
	switch op {
	case ast.Not:
		return Not
	case ast.Neg:
		return Neg
	default: // ast.Pos never gets here: eval returns its operand's register unchanged
		return Neg
	}
}

func binaryOp(op ast.BinaryOp) Op {
	switch op {
	case ast.Add:
		return Add
	case ast.Sub:
		return Sub
	case ast.Mul:
		return Mul
	case ast.Div:
		return Div
	case ast.Pow:
		return Exp
	case ast.Mod:
		return Mod
	case ast.Eq:
		return Eq
	case ast.Neq:
		return Neq
	case ast.Lt:
		return Lt
	case ast.Gt:
		return Gt
	case ast.Lte:
		return Lte
	case ast.Gte:
		return Gte
	case ast.And:
		return And
	case ast.Or:
		return Or
	}
	return Add
}
