// Package model defines the external input shape spec.md §6.1 describes: a
// Project value handed to the core by whatever reads a .stmx/.mdl/.xmile
// file or is constructed programmatically. Nothing in this package performs
// I/O; it is plain data plus the few validations that belong to the shape
// itself rather than to compilation.
package model

// IntegrationMethod selects the numerical integration scheme. The driver
// (internal/sim) accepts only Euler; RK2/RK4 are recognized here so the
// external shape is complete, with a warning on fallback (spec.md §4.11).
type IntegrationMethod int

const (
	Euler IntegrationMethod = iota
	RK2
	RK4
)

func (m IntegrationMethod) String() string {
	switch m {
	case Euler:
		return "euler"
	case RK2:
		return "rk2"
	case RK4:
		return "rk4"
	}
	return "unknown"
}

// DtSpec is either a literal step size or its reciprocal (some tools record
// "40 steps/time-unit" rather than "0.025 time-units/step").
type DtSpec struct {
	Value       float64
	IsReciprocal bool
}

// Dt returns the step size in time-units.
func (d DtSpec) Dt() float64 {
	if d.IsReciprocal {
		if d.Value == 0 {
			return 0
		}
		return 1 / d.Value
	}
	return d.Value
}

// SimSpecs is the simulation-wide timing and integration configuration.
type SimSpecs struct {
	Start      float64
	Stop       float64
	Dt         DtSpec
	SaveStep   *DtSpec
	Method     IntegrationMethod
	TimeUnits  string
}

// SaveStepDt returns the save cadence in time-units, defaulting to Dt when
// unset, and never less than Dt (spec.md §4.11: "save_step < dt is silently
// treated as save_step = dt").
func (s SimSpecs) SaveStepDt() float64 {
	dt := s.Dt.Dt()
	if s.SaveStep == nil {
		return dt
	}
	if step := s.SaveStep.Dt(); step > dt {
		return step
	}
	return dt
}

// Dimension is either an indexed range [1..N] or a named enumeration of
// elements.
type Dimension struct {
	Name     string
	Size     int      // > 0 for Indexed
	Elements []string // non-nil for Named
}

func (d Dimension) IsNamed() bool { return d.Elements != nil }

func (d Dimension) Len() int {
	if d.IsNamed() {
		return len(d.Elements)
	}
	return d.Size
}

// EquationForm distinguishes how an array-typed variable's equation(s) are
// supplied.
type EquationForm int

const (
	Scalar     EquationForm = iota // one equation text, scalar variable
	ApplyToAll                     // one equation text broadcast over a dimension
	Arrayed                        // one equation text per element
)

// Equation carries one variable's raw (pre-parse) equation text in whichever
// form the source format used.
type Equation struct {
	Form EquationForm
	// Scalar/ApplyToAll: Text holds the single equation. Arrayed: Elements
	// maps each element's canonical subscript path to its own text.
	Text     string
	Elements map[string]string
}

// VarKind is the tag of Variable's four variants (spec.md §3.2).
type VarKind int

const (
	KindStock VarKind = iota
	KindFlow
	KindAux
	KindModule
)

// InputBinding is one (src -> dst) binding on a Module variable: dst is the
// callee's input-port name, src is the caller-side variable identifier that
// feeds it.
type InputBinding struct {
	Dst string
	Src string
}

// Variable is the external representation of one row in a model's variable
// table, in source (pre-canonicalization, pre-parse) form.
type Variable struct {
	Name     string // source-form identifier; the core canonicalizes it
	Kind     VarKind
	Eq       Equation
	GF       *GraphicalFunction
	Units    string
	Dims     []string // dimension names this variable is arrayed over, if any

	// Stock-only.
	Inflows  []string
	Outflows []string

	// Flow-only.
	NonNegative bool

	// Module-only.
	ModelName string
	Bindings  []InputBinding
}

// GFKind selects graphical-function lookup behavior (spec.md §4.12).
type GFKind int

const (
	GFContinuous GFKind = iota
	GFExtrapolate
	GFDiscrete
)

// Scale bounds a graphical function's domain or range when explicit sample
// points are not given.
type Scale struct {
	Min, Max float64
}

// GraphicalFunction is the external shape of spec.md §3.7's lookup table.
type GraphicalFunction struct {
	Kind    GFKind
	Xs, Ys  []float64
	XScale  Scale
	YScale  Scale
}

// Model is one named collection of variables (and views, which the core
// ignores — they are presentation-only).
type Model struct {
	Name      string
	Variables []Variable
}

// Project is the complete external input, spec.md §6.1.
type Project struct {
	SimSpecs   SimSpecs
	Dimensions []Dimension
	Models     []Model
}

// RootModel returns the model the core treats as the simulation root,
// conventionally named "main", or the first model if none is so named.
func (p Project) RootModel() (Model, bool) {
	for _, m := range p.Models {
		if m.Name == "main" {
			return m, true
		}
	}
	if len(p.Models) > 0 {
		return p.Models[0], true
	}
	return Model{}, false
}

// Dimension looks up a declared dimension by name.
func (p Project) Dimension(name string) (Dimension, bool) {
	for _, d := range p.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}
