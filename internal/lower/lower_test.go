package lower

import (
	"testing"

	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/parser"
)

func mustParseExpr(t *testing.T, text string) ast.Expr0 {
	t.Helper()
	expr, list := parser.Parse("main", "x", text)
	if !list.Empty() {
		t.Fatalf("unexpected parse errors: %v", list.Items())
	}
	return expr
}

func TestZeroArityReification(t *testing.T) {
	expr := mustParseExpr(t, "time + pi")
	res, list := Lower("x", expr, false)
	if !list.Empty() {
		t.Fatalf("unexpected errors: %v", list.Items())
	}
	op := res.Expr.(*ast.Op2)
	if _, ok := op.L.(*ast.App); !ok {
		t.Errorf("expected time to reify as App, got %T", op.L)
	}
	if _, ok := op.R.(*ast.App); !ok {
		t.Errorf("expected pi to reify as App, got %T", op.R)
	}
}

func TestZeroArityNotReifiedInUnitContext(t *testing.T) {
	expr := mustParseExpr(t, "time")
	res, _ := Lower("x", expr, true)
	if _, ok := res.Expr.(*ast.Var); !ok {
		t.Errorf("expected time to stay a Var in unit context, got %T", res.Expr)
	}
}

func TestStatefulBuiltinExpandsToModule(t *testing.T) {
	expr := mustParseExpr(t, "smth1(input, 5)")
	res, list := Lower("cost", expr, false)
	if !list.Empty() {
		t.Fatalf("unexpected errors: %v", list.Items())
	}
	v, ok := res.Expr.(*ast.Var)
	if !ok {
		t.Fatalf("expected *ast.Var output reference, got %T", res.Expr)
	}
	if v.Ident == "" {
		t.Fatalf("empty output reference")
	}

	var mod *model.Variable
	var helperCount int
	for i := range res.Helpers {
		h := &res.Helpers[i]
		if h.Kind == model.KindModule {
			mod = h
		} else {
			helperCount++
		}
	}
	if mod == nil {
		t.Fatalf("expected a synthesized Module variable, got %#v", res.Helpers)
	}
	if mod.ModelName != "stdlib⁚smth1" {
		t.Errorf("got model name %q", mod.ModelName)
	}
	// "input" is a bare Var and binds directly; "5" is a literal and needs a
	// helper aux.
	if helperCount != 1 {
		t.Errorf("expected 1 helper aux for the literal argument, got %d", helperCount)
	}
	if len(mod.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %#v", mod.Bindings)
	}
	if mod.Bindings[0].Dst != "input" || mod.Bindings[0].Src != "input" {
		t.Errorf("got binding[0] = %#v", mod.Bindings[0])
	}
	if mod.Bindings[1].Dst != "delay_time" {
		t.Errorf("got binding[1] = %#v", mod.Bindings[1])
	}
}

func TestSelfValidOnlyInPreviousFirstArg(t *testing.T) {
	expr := mustParseExpr(t, "previous(self, 0)")
	_, list := Lower("stock_a", expr, false)
	if !list.Empty() {
		t.Fatalf("unexpected errors: %v", list.Items())
	}

	expr2 := mustParseExpr(t, "self + 1")
	_, list2 := Lower("stock_a", expr2, false)
	if list2.Empty() {
		t.Fatalf("expected an error for bare 'self' outside previous()/size()")
	}
}
