package vars

import (
	"reflect"
	"testing"

	"github.com/bpowers/sdsim/internal/lower"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/parser"
)

func TestNewTableDetectsDuplicates(t *testing.T) {
	vs := []model.Variable{
		{Name: "Foo", Kind: model.KindAux},
		{Name: " foo ", Kind: model.KindAux},
	}
	_, list := NewTable(vs)
	if list.Empty() {
		t.Fatalf("expected a DuplicateVariable error")
	}
}

func TestExtractDirectDepsBasic(t *testing.T) {
	expr, perr := parser.Parse("main", "flow_a", "stock_a + aux_b * 2")
	if !perr.Empty() {
		t.Fatalf("parse errors: %v", perr.Items())
	}
	lowered, lerr := lower.Lower("flow_a", expr, false)
	if !lerr.Empty() {
		t.Fatalf("lower errors: %v", lerr.Items())
	}
	deps, list := ExtractDirectDeps("main", "flow_a", lowered.Expr)
	if !list.Empty() {
		t.Fatalf("unexpected errors: %v", list.Items())
	}
	want := []string{"stock_a", "aux_b"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("got %v, want %v", deps, want)
	}
}

func TestExtractDirectDepsDottedRefContributesModuleOnly(t *testing.T) {
	expr, perr := parser.Parse("main", "x", "smooth.output + 1")
	if !perr.Empty() {
		t.Fatalf("parse errors: %v", perr.Items())
	}
	lowered, _ := lower.Lower("x", expr, false)
	deps, _ := ExtractDirectDeps("main", "x", lowered.Expr)
	want := []string{"smooth"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("got %v, want %v", deps, want)
	}
}

func TestExtractDirectDepsBuiltinNotADependency(t *testing.T) {
	expr, perr := parser.Parse("main", "x", "time + pi")
	if !perr.Empty() {
		t.Fatalf("parse errors: %v", perr.Items())
	}
	lowered, _ := lower.Lower("x", expr, false)
	deps, _ := ExtractDirectDeps("main", "x", lowered.Expr)
	if len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}
}
