// Package loader reads a project definition from disk into the core's
// model.Project input shape. It is deliberately the only package in this
// module that touches the filesystem for project data — everything
// downstream (internal/vars, internal/depgraph, internal/compiler, ...)
// operates on the in-memory model.Project value this package produces.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bpowers/sdsim/internal/model"
)

// doc is the on-disk YAML shape; it is deliberately simpler and more
// forgiving than model.Project (plain strings for enums, omitted fields
// defaulted) and is translated into the core's shape by Load.
type doc struct {
	SimSpecs struct {
		Start        float64  `yaml:"start"`
		Stop         float64  `yaml:"stop"`
		Dt           float64  `yaml:"dt"`
		DtReciprocal bool     `yaml:"dt_reciprocal"`
		SaveStep     *float64 `yaml:"save_step"`
		Method       string   `yaml:"method"`
		TimeUnits    string   `yaml:"time_units"`
	} `yaml:"sim_specs"`

	Dimensions []struct {
		Name     string   `yaml:"name"`
		Size     int      `yaml:"size"`
		Elements []string `yaml:"elements"`
	} `yaml:"dimensions"`

	Models []struct {
		Name      string   `yaml:"name"`
		Variables []varDoc `yaml:"variables"`
	} `yaml:"models"`
}

type varDoc struct {
	Name  string   `yaml:"name"`
	Kind  string   `yaml:"kind"` // stock | flow | aux | module
	Eq    string   `yaml:"eq"`
	Units string   `yaml:"units"`
	Dims  []string `yaml:"dims"`

	Inflows     []string `yaml:"inflows"`
	Outflows    []string `yaml:"outflows"`
	NonNegative bool     `yaml:"non_negative"`

	ModelName string            `yaml:"model_name"`
	Bindings  map[string]string `yaml:"bindings"`

	GF *struct {
		Kind   string      `yaml:"kind"` // continuous | extrapolate | discrete
		Xs     []float64   `yaml:"xs"`
		Ys     []float64   `yaml:"ys"`
		XScale [2]float64  `yaml:"x_scale"`
		YScale [2]float64  `yaml:"y_scale"`
	} `yaml:"gf"`
}

// Load reads and decodes a YAML project file at path into a model.Project.
func Load(path string) (model.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Project{}, fmt.Errorf("reading project %s: %w", path, err)
	}
	return Decode(raw, filepath.Base(path))
}

// Decode parses YAML bytes directly, for callers (tests, embedded
// fixtures) that don't have a file on disk.
func Decode(raw []byte, sourceName string) (model.Project, error) {
	var d doc
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return model.Project{}, fmt.Errorf("parsing project %s: %w", sourceName, err)
	}

	proj := model.Project{
		SimSpecs: model.SimSpecs{
			Start:     d.SimSpecs.Start,
			Stop:      d.SimSpecs.Stop,
			Dt:        model.DtSpec{Value: d.SimSpecs.Dt, IsReciprocal: d.SimSpecs.DtReciprocal},
			Method:    parseMethod(d.SimSpecs.Method),
			TimeUnits: d.SimSpecs.TimeUnits,
		},
	}
	if d.SimSpecs.SaveStep != nil {
		proj.SimSpecs.SaveStep = &model.DtSpec{Value: *d.SimSpecs.SaveStep}
	}

	for _, dim := range d.Dimensions {
		proj.Dimensions = append(proj.Dimensions, model.Dimension{
			Name: dim.Name, Size: dim.Size, Elements: dim.Elements,
		})
	}

	for _, md := range d.Models {
		m := model.Model{Name: md.Name}
		for _, vd := range md.Variables {
			v, err := toVariable(vd)
			if err != nil {
				return model.Project{}, fmt.Errorf("%s: model %s: %w", sourceName, md.Name, err)
			}
			m.Variables = append(m.Variables, v)
		}
		proj.Models = append(proj.Models, m)
	}
	return proj, nil
}

func toVariable(vd varDoc) (model.Variable, error) {
	v := model.Variable{
		Name:        vd.Name,
		Eq:          model.Equation{Form: model.Scalar, Text: vd.Eq},
		Units:       vd.Units,
		Dims:        vd.Dims,
		Inflows:     vd.Inflows,
		Outflows:    vd.Outflows,
		NonNegative: vd.NonNegative,
		ModelName:   vd.ModelName,
	}
	switch vd.Kind {
	case "stock":
		v.Kind = model.KindStock
	case "flow":
		v.Kind = model.KindFlow
	case "aux", "":
		v.Kind = model.KindAux
	case "module":
		v.Kind = model.KindModule
	default:
		return v, fmt.Errorf("variable %s: unrecognized kind %q", vd.Name, vd.Kind)
	}
	for dst, src := range vd.Bindings {
		v.Bindings = append(v.Bindings, model.InputBinding{Dst: dst, Src: src})
	}
	if vd.GF != nil {
		gfn := &model.GraphicalFunction{
			Xs: vd.GF.Xs, Ys: vd.GF.Ys,
			XScale: model.Scale{Min: vd.GF.XScale[0], Max: vd.GF.XScale[1]},
			YScale: model.Scale{Min: vd.GF.YScale[0], Max: vd.GF.YScale[1]},
		}
		switch vd.GF.Kind {
		case "extrapolate":
			gfn.Kind = model.GFExtrapolate
		case "discrete":
			gfn.Kind = model.GFDiscrete
		default:
			gfn.Kind = model.GFContinuous
		}
		v.GF = gfn
	}
	return v, nil
}

func parseMethod(s string) model.IntegrationMethod {
	switch s {
	case "rk2":
		return model.RK2
	case "rk4":
		return model.RK4
	default:
		return model.Euler
	}
}
