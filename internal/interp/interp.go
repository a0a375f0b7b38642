// Package interp is the second, reference executor named in spec.md §4.10:
// it walks a compiler.Expr tree directly against the slot buffers, with no
// bytecode in between, and exists to cross-validate internal/vm's output
// and to run features the bytecode emitter has not yet learned.
package interp

import (
	"math"

	"github.com/bpowers/sdsim/internal/compiler"
	"github.com/bpowers/sdsim/internal/gf"
)

// Module mirrors vm.ModuleDescriptor: one instantiation's three compiled
// statement lists plus its slot-window base, referenced by ModuleBase.
type Module struct {
	Base     int
	Initials []compiler.Expr
	Flows    []compiler.Expr
	Stocks   []compiler.Expr
}

// Program is the whole compiled hierarchy: the root's runlists live at
// Modules[0].
type Program struct {
	Modules  map[int]*Module
	GFTables []*gf.Table
}

// Interp evaluates a Program against double-buffered slot storage it does
// not own; the caller drives stepping (internal/sim) exactly as it drives
// internal/vm, so the two can be run side by side on identical buffers.
type Interp struct {
	prog *Program
	curr []float64
	next []float64
	base int
}

func New(prog *Program, curr, next []float64) *Interp {
	return &Interp{prog: prog, curr: curr, next: next}
}

func (n *Interp) Curr() []float64 { return n.curr }
func (n *Interp) Swap()           { n.curr, n.next = n.next, n.curr }

// run executes every statement in stmts against the module slot window
// starting at base.
func (n *Interp) run(base int, stmts []compiler.Expr) {
	saved := n.base
	n.base = base
	for _, s := range stmts {
		n.exec(s)
	}
	n.base = saved
}

// Run satisfies internal/sim.Executor: phase selects Initials(0)/Flows(1)/
// Stocks(2) off the module at base.
func (n *Interp) Run(base int, phase int) {
	mod, ok := n.prog.Modules[base]
	if !ok {
		return
	}
	switch phase {
	case 0:
		n.run(base, mod.Initials)
	case 1:
		n.run(base, mod.Flows)
	default:
		n.run(base, mod.Stocks)
	}
}

// Exec runs a raw statement list directly at the given base. Exported for
// tests that exercise node semantics without assembling a full Program.
func (n *Interp) Exec(base int, stmts []compiler.Expr) {
	n.run(base, stmts)
}

func (n *Interp) exec(stmt compiler.Expr) {
	switch s := stmt.(type) {
	case *compiler.AssignCurr:
		n.curr[n.base+s.Offset] = n.eval(s.X)
	case *compiler.AssignNext:
		n.next[n.base+s.Offset] = n.eval(s.X)
	case *compiler.EvalModule:
		for _, a := range s.InputAssigns {
			n.curr[s.ModuleBase+a.Offset] = n.eval(a.X)
		}
		mod, ok := n.prog.Modules[s.ModuleBase]
		if !ok {
			return
		}
		var stmts []compiler.Expr
		switch s.Phase {
		case compiler.Initials:
			stmts = mod.Initials
		case compiler.Flows:
			stmts = mod.Flows
		default:
			stmts = mod.Stocks
		}
		n.run(mod.Base, stmts)
	default:
		n.eval(stmt)
	}
}

func (n *Interp) eval(e compiler.Expr) float64 {
	switch x := e.(type) {
	case *compiler.Const:
		return x.Value

	case *compiler.Var:
		return n.curr[n.base+x.Offset]

	case *compiler.GlobalVar:
		return n.curr[x.Offset]

	case *compiler.Op1:
		v := n.eval(x.X)
		switch x.Op.String() {
		case "not":
			return truthy(v == 0)
		case "-":
			return -v
		default: // unary +
			return v
		}

	case *compiler.Op2:
		l, r := n.eval(x.L), n.eval(x.R)
		switch x.Op.String() {
		case "+":
			return l + r
		case "-":
			return l - r
		case "*":
			return l * r
		case "/":
			return l / r
		case "^":
			return math.Pow(l, r)
		case "mod":
			return math.Mod(l, r)
		case "=":
			return truthy(l == r)
		case "<>":
			return truthy(l != r)
		case "<":
			return truthy(l < r)
		case ">":
			return truthy(l > r)
		case "<=":
			return truthy(l <= r)
		case ">=":
			return truthy(l >= r)
		case "and":
			return truthy(l != 0 && r != 0)
		case "or":
			return truthy(l != 0 || r != 0)
		}
		return math.NaN()

	case *compiler.If:
		if n.eval(x.Cond) != 0 {
			return n.eval(x.Then)
		}
		return n.eval(x.Else)

	case *compiler.BuiltinCall:
		if x.Name == "lookup" {
			v := n.eval(x.Args[0])
			if x.GFIndex >= 0 && x.GFIndex < len(n.prog.GFTables) {
				return n.prog.GFTables[x.GFIndex].Lookup(v)
			}
			return v
		}
		args := make([]float64, len(x.Args))
		for i, a := range x.Args {
			args[i] = n.eval(a)
		}
		return applyBuiltin(x.Name, args)
	}
	return math.NaN()
}

func truthy(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func applyBuiltin(name string, args []float64) float64 {
	switch name {
	case "abs":
		return math.Abs(args[0])
	case "exp":
		return math.Exp(args[0])
	case "ln":
		return math.Log(args[0])
	case "log10":
		return math.Log10(args[0])
	case "sqrt":
		return math.Sqrt(args[0])
	case "sin":
		return math.Sin(args[0])
	case "cos":
		return math.Cos(args[0])
	case "tan":
		return math.Tan(args[0])
	case "int":
		return math.Trunc(args[0])
	case "pi":
		return math.Pi
	case "min":
		return math.Min(args[0], args[1])
	case "max":
		return math.Max(args[0], args[1])
	case "safediv":
		if args[1] == 0 {
			if len(args) == 3 {
				return args[2]
			}
			return 0
		}
		return args[0] / args[1]
	case "step":
		height, start, now := args[0], args[1], args[2]
		if now >= start {
			return height
		}
		return 0
	case "ramp":
		slope, start, end, now := args[0], args[1], args[2], args[3]
		if now < start {
			return 0
		}
		if end > start && now > end {
			return slope * (end - start)
		}
		return slope * (now - start)
	case "pulse":
		height, start, width, now := args[0], args[1], args[2], args[3]
		if width <= 0 {
			width = 1
		}
		if now >= start && now < start+width {
			return height
		}
		return 0
	}
	return math.NaN()
}
