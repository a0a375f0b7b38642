// Package bytecode lowers the compiler's Expr IR into a flat opcode stream
// for internal/vm, per spec.md §4.8. The VM has a fixed register file;
// register allocation is a simple depth-counting assignment over the Expr
// tree (spec.md §4.8's closing paragraph).
package bytecode

// Op is one opcode in the stream. A few multi-arity builtins (Apply) carry
// their operand registers in a slice on Instruction rather than a
// fixed-width encoding, trading compact byte packing for a simpler
// Go-native representation — see DESIGN.md.
type Op int

const (
	LoadConstant Op = iota
	LoadVar
	LoadGlobalVar
	Add
	Sub
	Mul
	Div
	Exp
	Mod
	Eq
	Neq
	Lt
	Gt
	Lte
	Gte
	And
	Or
	Not
	Neg
	If
	Apply
	Lookup
	AssignCurr
	AssignNext
	EvalModule
	Ret
)

// Instruction is one opcode plus its operands. Only the fields relevant to
// Op are populated.
type Instruction struct {
	Op Op

	Dest int // destination register
	A, B int // operand registers

	Literal float64 // LoadConstant
	Slot    int     // LoadVar/LoadGlobalVar/AssignCurr/AssignNext

	Builtin string // Apply
	Args    []int  // Apply: operand registers, in argument order
	GFIndex int    // Lookup

	ModuleBase   int
	InputAssigns []Instruction // AssignCurr ops run before an EvalModule
	Phase        int           // compiler.RunlistPhase, copied to avoid an import cycle
}

// Program is one module instantiation's three compiled runlists.
type Program struct {
	Initials []Instruction
	Flows    []Instruction
	Stocks   []Instruction

	// There is no literal pool or GF-table field: Instruction.Literal and
	// Instruction.GFIndex are self-contained, so no separate pool
	// dereference is required at execution time.
	RegisterCount int
}
