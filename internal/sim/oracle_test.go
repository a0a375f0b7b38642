package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/bytecode"
	"github.com/bpowers/sdsim/internal/compiler"
	"github.com/bpowers/sdsim/internal/interp"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/vm"
)

// Slot layout for the bank-account fixture below: time=0, dt=1,
// balance=2, interest=3.
const (
	bankTimeSlot     = 0
	bankDtSlot       = 1
	bankBalanceSlot  = 2
	bankInterestSlot = 3
	bankSlotCount    = 4
)

// bankAccountStatements compiles a one-stock, one-flow model directly
// against the compiler.Expr IR (bypassing the ident/vars/depgraph stages,
// which are exercised independently in their own package tests): a
// balance earning 10% compound interest per time unit.
func bankAccountStatements() (initials, flows, stocks []compiler.Expr) {
	interestExpr := &compiler.Op2{
		Op: ast.Mul,
		L:  &compiler.Var{Offset: bankBalanceSlot},
		R:  &compiler.Const{Value: 0.1},
	}
	initials = []compiler.Expr{
		&compiler.AssignCurr{Offset: bankBalanceSlot, X: &compiler.Const{Value: 100}},
	}
	flows = []compiler.Expr{
		&compiler.AssignCurr{Offset: bankInterestSlot, X: interestExpr},
	}
	stocks = []compiler.Expr{
		&compiler.AssignNext{Offset: bankBalanceSlot, X: &compiler.Op2{
			Op: ast.Add,
			L:  &compiler.Var{Offset: bankBalanceSlot},
			R: &compiler.Op2{
				Op: ast.Mul,
				L:  &compiler.Var{Offset: bankInterestSlot},
				R:  &compiler.GlobalVar{Offset: bankDtSlot},
			},
		}},
		// dt is a global constant, but curr/next are double-buffered
		// wholesale (spec.md §4.11's swap), so it must be carried forward
		// every step same as any other slot.
		&compiler.AssignNext{Offset: bankDtSlot, X: &compiler.GlobalVar{Offset: bankDtSlot}},
	}
	return
}

func buildVMProgram(t *testing.T, initials, flows, stocks []compiler.Expr) *vm.Program {
	t.Helper()
	emit := func(stmts []compiler.Expr) []bytecode.Instruction {
		out, errs := bytecode.EmitRunlist("main", "main", stmts)
		require.True(t, errs.Empty(), "emit errors: %v", errs.Items())
		return out
	}
	desc := &vm.ModuleDescriptor{
		Base:     0,
		Initials: emit(initials),
		Flows:    emit(flows),
		Stocks:   emit(stocks),
	}
	return &vm.Program{Modules: map[int]*vm.ModuleDescriptor{0: desc}}
}

func buildInterpProgram(initials, flows, stocks []compiler.Expr) *interp.Program {
	return &interp.Program{Modules: map[int]*interp.Module{
		0: {Base: 0, Initials: initials, Flows: flows, Stocks: stocks},
	}}
}

func TestVMAndInterpAgreeOnBankAccount(t *testing.T) {
	initials, flows, stocks := bankAccountStatements()
	vmProg := buildVMProgram(t, initials, flows, stocks)
	interpProg := buildInterpProgram(initials, flows, stocks)

	specs := model.SimSpecs{Start: 0, Stop: 5, Dt: model.DtSpec{Value: 1}}
	offsets := map[string]int{"balance": bankBalanceSlot}

	vmCurr := make([]float64, bankSlotCount)
	vmCurr[bankDtSlot] = 1
	vmExec := vm.New(vmProg, vmCurr, make([]float64, bankSlotCount))
	vmResults := Run(vmExec, specs, bankTimeSlot, bankSlotCount, offsets)

	interpCurr := make([]float64, bankSlotCount)
	interpCurr[bankDtSlot] = 1
	interpExec := interp.New(interpProg, interpCurr, make([]float64, bankSlotCount))
	interpResults := Run(interpExec, specs, bankTimeSlot, bankSlotCount, offsets)

	require.Equal(t, len(vmResults.Times), len(interpResults.Times))

	// spec.md §4.10: the two executors must agree within epsilon=2e-3.
	const epsilon = 2e-3
	if diff := cmp.Diff(vmResults.Rows, interpResults.Rows, cmpopts.EquateApprox(0, epsilon)); diff != "" {
		t.Errorf("vm and interp diverged beyond epsilon=%v:\n%s", epsilon, diff)
	}

	balance, ok := vmResults.At("balance")
	require.True(t, ok)
	require.InDelta(t, 100*1.1*1.1*1.1*1.1*1.1, balance[len(balance)-1], 1.0)
}
