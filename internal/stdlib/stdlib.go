// Package stdlib is the fixed catalog of sub-models that back spec.md
// §4.3's stateful builtins (smth1, delay3, previous, …), and the module
// instantiation-set enumerator of spec.md §4.6. The catalog itself is Go
// data below; internal/stdlib/source embeds a readable copy of each
// sub-model's equations, which the catalog is not built from.
package stdlib

import (
	"embed"
	"sort"

	"github.com/bpowers/sdsim/internal/ident"
	"github.com/bpowers/sdsim/internal/model"
)

//go:embed source/*.eqns
var Source embed.FS

// modelPrefix matches the lowering scheme's "stdlib⁚<name>" sub-model
// names (internal/lower): the synthetic separator guarantees a user model
// can never collide with one of these names.
var modelPrefix = "stdlib" + string(ident.Sep)

// Ports returns the published input-port names for one of spec.md §4.3's
// stateful builtins, in the argument order Lower binds them.
func Ports(builtin string) ([]string, bool) {
	d, ok := catalog[builtin]
	if !ok {
		return nil, false
	}
	out := make([]string, len(d.ports))
	copy(out, d.ports)
	return out, true
}

// ModelName returns the published sub-model name for a builtin, e.g.
// "stdlib⁚smth1".
func ModelName(builtin string) string { return modelPrefix + builtin }

// Names returns every stdlib model name, sorted, for deterministic
// enumeration.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model returns the stdlib sub-model definition for builtin, or false if it
// is not one of spec.md §4.6's fixed catalog.
func Model(builtin string) (model.Model, bool) {
	d, ok := catalog[builtin]
	if !ok {
		return model.Model{}, false
	}
	return model.Model{Name: ModelName(builtin), Variables: d.vars}, true
}

type def struct {
	ports []string
	vars  []model.Variable
}

func aux(name, eq string) model.Variable {
	return model.Variable{Name: name, Kind: model.KindAux, Eq: model.Equation{Form: model.Scalar, Text: eq}}
}

func flow(name, eq string) model.Variable {
	return model.Variable{Name: name, Kind: model.KindFlow, Eq: model.Equation{Form: model.Scalar, Text: eq}}
}

func stock(name, init string, inflows, outflows []string) model.Variable {
	return model.Variable{
		Name: name, Kind: model.KindStock,
		Eq:       model.Equation{Form: model.Scalar, Text: init},
		Inflows:  inflows,
		Outflows: outflows,
	}
}

// catalog mirrors the equations documented in internal/stdlib/source/*.eqns.
// smth_n and delay_n are compiled as fixed three-stage cascades rather than
// a runtime-parameterized order; see DESIGN.md.
var catalog = map[string]def{
	"smth1": {
		ports: []string{"input", "delay_time", "initial"},
		vars: []model.Variable{
			stock("level", "initial", []string{"change"}, nil),
			flow("change", "(input - level) / delay_time"),
			aux("output", "level"),
		},
	},
	"smth3": {
		ports: []string{"input", "delay_time", "initial"},
		vars: []model.Variable{
			stock("level1", "initial", []string{"change1"}, nil),
			flow("change1", "(input - level1) / (delay_time / 3)"),
			stock("level2", "initial", []string{"change2"}, nil),
			flow("change2", "(level1 - level2) / (delay_time / 3)"),
			stock("level3", "initial", []string{"change3"}, nil),
			flow("change3", "(level2 - level3) / (delay_time / 3)"),
			aux("output", "level3"),
		},
	},
	"smth_n": {
		ports: []string{"input", "delay_time", "initial", "n"},
		vars: []model.Variable{
			stock("level1", "initial", []string{"change1"}, nil),
			flow("change1", "(input - level1) / (delay_time / 3)"),
			stock("level2", "initial", []string{"change2"}, nil),
			flow("change2", "(level1 - level2) / (delay_time / 3)"),
			stock("level3", "initial", []string{"change3"}, nil),
			flow("change3", "(level2 - level3) / (delay_time / 3)"),
			aux("output", "level3"),
		},
	},
	"delay1": {
		ports: []string{"input", "delay_time", "initial"},
		vars: []model.Variable{
			stock("level", "initial * delay_time", []string{"input"}, []string{"output"}),
			aux("output", "level / delay_time"),
		},
	},
	"delay3": {
		ports: []string{"input", "delay_time", "initial"},
		vars: []model.Variable{
			stock("level1", "initial * (delay_time / 3)", []string{"input"}, []string{"output1"}),
			aux("output1", "level1 / (delay_time / 3)"),
			stock("level2", "initial * (delay_time / 3)", []string{"output1"}, []string{"output2"}),
			aux("output2", "level2 / (delay_time / 3)"),
			stock("level3", "initial * (delay_time / 3)", []string{"output2"}, []string{"output3"}),
			aux("output3", "level3 / (delay_time / 3)"),
			aux("output", "output3"),
		},
	},
	"delay_n": {
		ports: []string{"input", "delay_time", "initial", "n"},
		vars: []model.Variable{
			stock("level1", "initial * (delay_time / 3)", []string{"input"}, []string{"output1"}),
			aux("output1", "level1 / (delay_time / 3)"),
			stock("level2", "initial * (delay_time / 3)", []string{"output1"}, []string{"output2"}),
			aux("output2", "level2 / (delay_time / 3)"),
			stock("level3", "initial * (delay_time / 3)", []string{"output2"}, []string{"output3"}),
			aux("output3", "level3 / (delay_time / 3)"),
			aux("output", "output3"),
		},
	},
	"trend": {
		ports: []string{"input", "average_time", "initial_trend"},
		vars: []model.Variable{
			stock("level", "input / (1 + initial_trend * average_time)", []string{"change"}, nil),
			flow("change", "(input - level) / average_time"),
			aux("output", "SafeDiv(input - level, average_time * level, 0)"),
		},
	},
	"previous": {
		ports: []string{"input", "initial"},
		vars: []model.Variable{
			stock("level", "initial", []string{"change"}, nil),
			flow("change", "(input - level) / dt"),
			aux("output", "level"),
		},
	},
	"init": {
		ports: []string{"input"},
		vars: []model.Variable{
			stock("level", "input", []string{"zero"}, nil),
			flow("zero", "0"),
			aux("output", "level"),
		},
	},
}
