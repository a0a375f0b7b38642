package vm

import (
	"math"
	"testing"

	"github.com/bpowers/sdsim/internal/bytecode"
)

func TestArithmeticAndAssign(t *testing.T) {
	// curr[0] = 2, curr[1] = 3; compute curr[2] = curr[0] + curr[1] * 2
	curr := []float64{2, 3, 0}
	next := make([]float64, len(curr))
	m := New(&Program{Modules: map[int]*ModuleDescriptor{}}, curr, next)

	program := []bytecode.Instruction{
		{Op: bytecode.LoadVar, Dest: 0, Slot: 0},
		{Op: bytecode.LoadVar, Dest: 1, Slot: 1},
		{Op: bytecode.LoadConstant, Dest: 2, Literal: 2},
		{Op: bytecode.Mul, Dest: 1, A: 1, B: 2},
		{Op: bytecode.Add, Dest: 0, A: 0, B: 1},
		{Op: bytecode.AssignCurr, Slot: 2, A: 0},
		{Op: bytecode.Ret},
	}
	m.Exec(0, program)
	if got := m.Curr()[2]; got != 8 {
		t.Errorf("expected curr[2] = 8, got %v", got)
	}
}

func TestDivByZeroProducesInf(t *testing.T) {
	curr := []float64{1, 0, 0}
	m := New(&Program{Modules: map[int]*ModuleDescriptor{}}, curr, make([]float64, 3))
	program := []bytecode.Instruction{
		{Op: bytecode.LoadVar, Dest: 0, Slot: 0},
		{Op: bytecode.LoadVar, Dest: 1, Slot: 1},
		{Op: bytecode.Div, Dest: 0, A: 0, B: 1},
		{Op: bytecode.AssignCurr, Slot: 2, A: 0},
		{Op: bytecode.Ret},
	}
	m.Exec(0, program)
	if !math.IsInf(m.Curr()[2], 1) {
		t.Errorf("expected +Inf, got %v", m.Curr()[2])
	}
}

func TestSafeDivReturnsDefaultOnZero(t *testing.T) {
	curr := []float64{1, 0, 0}
	m := New(&Program{Modules: map[int]*ModuleDescriptor{}}, curr, make([]float64, 3))
	program := []bytecode.Instruction{
		{Op: bytecode.LoadVar, Dest: 0, Slot: 0},
		{Op: bytecode.LoadVar, Dest: 1, Slot: 1},
		{Op: bytecode.LoadConstant, Dest: 2, Literal: -1},
		{Op: bytecode.Apply, Dest: 0, Builtin: "safediv", Args: []int{0, 1, 2}},
		{Op: bytecode.AssignCurr, Slot: 2, A: 0},
		{Op: bytecode.Ret},
	}
	m.Exec(0, program)
	if got := m.Curr()[2]; got != -1 {
		t.Errorf("expected safediv default -1, got %v", got)
	}
}

func TestIfSelectsBranch(t *testing.T) {
	curr := []float64{0, 0}
	m := New(&Program{Modules: map[int]*ModuleDescriptor{}}, curr, make([]float64, 2))
	program := []bytecode.Instruction{
		{Op: bytecode.LoadConstant, Dest: 0, Literal: 0}, // cond false
		{Op: bytecode.LoadConstant, Dest: 1, Literal: 10},
		{Op: bytecode.LoadConstant, Dest: 2, Literal: 20},
		{Op: bytecode.If, Dest: 0, A: 0, B: 1, Args: []int{2}},
		{Op: bytecode.AssignCurr, Slot: 1, A: 0},
		{Op: bytecode.Ret},
	}
	m.Exec(0, program)
	if got := m.Curr()[1]; got != 20 {
		t.Errorf("expected else-branch value 20, got %v", got)
	}
}

func TestEvalModuleRebasesAndRestores(t *testing.T) {
	// parent slot 0 holds an input; child lives at base 10, slot 0 is its
	// input port, slot 1 its output; parent reads child output into slot 1.
	curr := make([]float64, 12)
	curr[0] = 5
	next := make([]float64, 12)
	desc := &ModuleDescriptor{
		Base: 10,
		Flows: []bytecode.Instruction{
			{Op: bytecode.LoadVar, Dest: 0, Slot: 0},
			{Op: bytecode.LoadConstant, Dest: 1, Literal: 2},
			{Op: bytecode.Mul, Dest: 0, A: 0, B: 1},
			{Op: bytecode.AssignCurr, Slot: 1, A: 0},
			{Op: bytecode.Ret},
		},
	}
	m := New(&Program{Modules: map[int]*ModuleDescriptor{10: desc}}, curr, next)
	program := []bytecode.Instruction{
		{Op: bytecode.LoadVar, Dest: 0, Slot: 0},
		{
			Op:         bytecode.EvalModule,
			ModuleBase: 10,
			Phase:      1,
			InputAssigns: []bytecode.Instruction{
				{Op: bytecode.AssignCurr, Slot: 0, A: 0},
			},
		},
		{Op: bytecode.LoadVar, Dest: 1, Slot: 11},
		{Op: bytecode.AssignCurr, Slot: 2, A: 1},
		{Op: bytecode.Ret},
	}
	m.Exec(0, program)
	if got := m.Curr()[2]; got != 10 {
		t.Errorf("expected parent slot 2 = 10 (5*2 from child), got %v", got)
	}
}
