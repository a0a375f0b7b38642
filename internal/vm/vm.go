// Package vm executes bytecode.Instruction streams against a flat slot
// array, per spec.md §4.9. It is one of two executors sharing the same
// compiled program: internal/interp walks the compiler.Expr tree directly
// and serves as the cross-check oracle.
package vm

import (
	"math"

	"github.com/bpowers/sdsim/internal/bytecode"
	"github.com/bpowers/sdsim/internal/gf"
)

// ModuleDescriptor locates one compiled module instantiation's three
// runlists and its base offset within the flattened slot array.
type ModuleDescriptor struct {
	Base     int
	Initials []bytecode.Instruction
	Flows    []bytecode.Instruction
	Stocks   []bytecode.Instruction
}

// Program is everything a VM run needs: the root runlists plus every
// nested module's descriptor, keyed by the ModuleBase the emitter baked
// into its EvalModule instructions, and the graphical-function table
// vector referenced by Lookup opcodes.
type Program struct {
	Modules  map[int]*ModuleDescriptor
	GFTables []*gf.Table
}

// VM holds the mutable per-run state: the double-buffered slot array and a
// small register file, rebased on each EvalModule entry/exit.
type VM struct {
	prog *Program
	curr []float64
	next []float64
	regs [bytecode.MaxRegisters]float64
	base int // current module's slot-window base, added to every relative Slot
}

// New constructs a VM over curr/next buffers sized for the fully flattened
// hierarchy; both slices are owned exclusively by this VM (spec.md §5).
func New(prog *Program, curr, next []float64) *VM {
	return &VM{prog: prog, curr: curr, next: next}
}

// Curr exposes the live current-buffer; the driver reads results from it
// and writes curr[time_slot] directly between runlist executions.
func (m *VM) Curr() []float64 { return m.curr }

// Swap exchanges curr and next, per spec.md §4.11's driver loop.
func (m *VM) Swap() { m.curr, m.next = m.next, m.curr }

// Run executes one module's runlist (identified by base slot offset) to
// completion. The caller selects Initials/Flows/Stocks by picking the
// right field off the ModuleDescriptor.
func (m *VM) run(base int, program []bytecode.Instruction) {
	saved := m.base
	m.base = base
	m.exec(program)
	m.base = saved
}

// Run satisfies internal/sim.Executor: phase selects Initials(0)/Flows(1)/
// Stocks(2) off the module descriptor at base.
func (m *VM) Run(base int, phase int) {
	desc, ok := m.prog.Modules[base]
	if !ok {
		return
	}
	switch phase {
	case 0:
		m.run(base, desc.Initials)
	case 1:
		m.run(base, desc.Flows)
	default:
		m.run(base, desc.Stocks)
	}
}

// Exec runs a raw instruction stream directly at the given base, bypassing
// module-descriptor lookup. Exported for tests that exercise the opcode
// semantics in isolation, without assembling a full Program.
func (m *VM) Exec(base int, program []bytecode.Instruction) {
	m.run(base, program)
}

func (m *VM) exec(program []bytecode.Instruction) {
	for _, ins := range program {
		switch ins.Op {
		case bytecode.Ret:
			return

		case bytecode.LoadConstant:
			m.regs[ins.Dest] = ins.Literal

		case bytecode.LoadVar:
			m.regs[ins.Dest] = m.curr[m.base+ins.Slot]

		case bytecode.LoadGlobalVar:
			m.regs[ins.Dest] = m.curr[ins.Slot]

		case bytecode.Add:
			m.regs[ins.Dest] = m.regs[ins.A] + m.regs[ins.B]
		case bytecode.Sub:
			m.regs[ins.Dest] = m.regs[ins.A] - m.regs[ins.B]
		case bytecode.Mul:
			m.regs[ins.Dest] = m.regs[ins.A] * m.regs[ins.B]
		case bytecode.Div:
			m.regs[ins.Dest] = m.regs[ins.A] / m.regs[ins.B]
		case bytecode.Exp:
			m.regs[ins.Dest] = math.Pow(m.regs[ins.A], m.regs[ins.B])
		case bytecode.Mod:
			m.regs[ins.Dest] = math.Mod(m.regs[ins.A], m.regs[ins.B])

		case bytecode.Eq:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] == m.regs[ins.B])
		case bytecode.Neq:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] != m.regs[ins.B])
		case bytecode.Lt:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] < m.regs[ins.B])
		case bytecode.Gt:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] > m.regs[ins.B])
		case bytecode.Lte:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] <= m.regs[ins.B])
		case bytecode.Gte:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] >= m.regs[ins.B])
		case bytecode.And:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] != 0 && m.regs[ins.B] != 0)
		case bytecode.Or:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] != 0 || m.regs[ins.B] != 0)
		case bytecode.Not:
			m.regs[ins.Dest] = truthy(m.regs[ins.A] == 0)
		case bytecode.Neg:
			m.regs[ins.Dest] = -m.regs[ins.A]

		case bytecode.If:
			if m.regs[ins.A] != 0 {
				m.regs[ins.Dest] = m.regs[ins.B]
			} else {
				m.regs[ins.Dest] = m.regs[ins.Args[0]]
			}

		case bytecode.Apply:
			m.regs[ins.Dest] = applyBuiltin(ins.Builtin, ins.Args, &m.regs)

		case bytecode.Lookup:
			if ins.GFIndex >= 0 && ins.GFIndex < len(m.prog.GFTables) {
				m.regs[ins.Dest] = m.prog.GFTables[ins.GFIndex].Lookup(m.regs[ins.A])
			}

		case bytecode.AssignCurr:
			m.curr[m.base+ins.Slot] = m.regs[ins.A]

		case bytecode.AssignNext:
			m.next[m.base+ins.Slot] = m.regs[ins.A]

		case bytecode.EvalModule:
			for _, assign := range ins.InputAssigns {
				m.curr[ins.ModuleBase+assign.Slot] = m.regs[assign.A]
			}
			desc, ok := m.prog.Modules[ins.ModuleBase]
			if !ok {
				continue
			}
			var child []bytecode.Instruction
			switch ins.Phase {
			case 0:
				child = desc.Initials
			case 1:
				child = desc.Flows
			default:
				child = desc.Stocks
			}
			m.run(desc.Base, child)
		}
	}
}

func truthy(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// applyBuiltin evaluates a stateless builtin over already-computed operand
// registers. Args holds the registers in argument order.
func applyBuiltin(name string, args []int, regs *[bytecode.MaxRegisters]float64) float64 {
	arg := func(i int) float64 { return regs[args[i]] }
	switch name {
	case "abs":
		return math.Abs(arg(0))
	case "exp":
		return math.Exp(arg(0))
	case "ln":
		return math.Log(arg(0))
	case "log10":
		return math.Log10(arg(0))
	case "sqrt":
		return math.Sqrt(arg(0))
	case "sin":
		return math.Sin(arg(0))
	case "cos":
		return math.Cos(arg(0))
	case "tan":
		return math.Tan(arg(0))
	case "int":
		return math.Trunc(arg(0))
	case "pi":
		return math.Pi
	case "min":
		return math.Min(arg(0), arg(1))
	case "max":
		return math.Max(arg(0), arg(1))
	case "safediv":
		d := arg(1)
		if d == 0 {
			if len(args) == 3 {
				return arg(2)
			}
			return 0
		}
		return arg(0) / d
	case "step":
		height, start, now := arg(0), arg(1), arg(2)
		if now >= start {
			return height
		}
		return 0
	case "ramp":
		slope, start, end, now := arg(0), arg(1), arg(2), arg(3)
		if now < start {
			return 0
		}
		if end > start && now > end {
			return slope * (end - start)
		}
		return slope * (now - start)
	case "pulse":
		height, start, width, now := arg(0), arg(1), arg(2), arg(3)
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
