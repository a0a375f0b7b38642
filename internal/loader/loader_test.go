package loader

import (
	"testing"

	"github.com/bpowers/sdsim/internal/model"
)

const sample = `
sim_specs:
  start: 0
  stop: 10
  dt: 0.25
  method: euler
models:
  - name: main
    variables:
      - name: population
        kind: stock
        eq: "100"
        inflows: [births]
      - name: births
        kind: flow
        eq: "population * growth_rate"
      - name: growth_rate
        kind: aux
        eq: "0.05"
`

func TestDecodeBuildsProject(t *testing.T) {
	proj, err := Decode([]byte(sample), "sample.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.SimSpecs.Dt.Dt() != 0.25 {
		t.Errorf("expected dt 0.25, got %v", proj.SimSpecs.Dt.Dt())
	}
	root, ok := proj.RootModel()
	if !ok || len(root.Variables) != 3 {
		t.Fatalf("expected 3 variables in root model, got %#v", root)
	}
	if root.Variables[0].Kind != model.KindStock {
		t.Errorf("expected population to be a stock")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte("models:\n  - name: main\n    variables:\n      - name: x\n        kind: bogus\n"), "bad.yaml")
	if err == nil {
		t.Fatalf("expected an error for an unrecognized variable kind")
	}
}

func TestDecodeGraphicalFunction(t *testing.T) {
	doc := `
models:
  - name: main
    variables:
      - name: effect
        kind: aux
        eq: "lookup(x)"
        gf:
          kind: discrete
          xs: [0, 1, 2]
          ys: [0, 10, 20]
`
	proj, err := Decode([]byte(doc), "gf.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root, _ := proj.RootModel()
	if root.Variables[0].GF == nil || root.Variables[0].GF.Kind != model.GFDiscrete {
		t.Fatalf("expected a discrete graphical function, got %#v", root.Variables[0].GF)
	}
}
