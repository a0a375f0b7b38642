package errs

import "fmt"

// Span is a byte-offset range into one variable's equation text, or NoSpan
// (Span{-1,-1}) when an error is not spanned to a specific range (e.g. a
// project-level NotSimulatable).
type Span struct {
	Start int
	End   int
}

// NoSpan is the sentinel for an error with no source location.
var NoSpan = Span{Start: -1, End: -1}

// Diagnostic is the single structured error/warning type used throughout the
// engine, closed over the Kind/Code taxonomy in codes.go.
type Diagnostic struct {
	Kind     Kind
	Code     Code
	Model    string
	Variable string
	Span     Span
	Details  string
}

func (d *Diagnostic) Error() string {
	if d.Variable != "" {
		return fmt.Sprintf("%s: %s[%s.%s]: %s", d.Code, d.Kind, d.Model, d.Variable, d.Details)
	}
	if d.Model != "" {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Code, d.Kind, d.Model, d.Details)
	}
	return fmt.Sprintf("%s: %s: %s", d.Code, d.Kind, d.Details)
}

// NewEquationError builds a source-spanned error against one variable's
// equation text (spec.md §7's "Equation-spanned" class).
func NewEquationError(model, variable string, span Span, code Code, details string) *Diagnostic {
	return &Diagnostic{Kind: KindVariable, Code: code, Model: model, Variable: variable, Span: span, Details: details}
}

// NewModelError builds a model-scoped error (CircularDependency,
// DuplicateVariable, UnknownDependency, ...). variable may be empty for
// errors that are not about one specific variable (BadModelName, ...).
func NewModelError(model, variable string, code Code, details string) *Diagnostic {
	return &Diagnostic{Kind: KindModel, Code: code, Model: model, Variable: variable, Span: NoSpan, Details: details}
}

// NewProjectError builds a project-level error (BadSimSpecs, ...).
func NewProjectError(code Code, details string) *Diagnostic {
	return &Diagnostic{Kind: KindImport, Code: code, Span: NoSpan, Details: details}
}

// NewSimulationError builds a simulation-time error (NotSimulatable,
// DoesNotExist, Generic).
func NewSimulationError(code Code, details string) *Diagnostic {
	return &Diagnostic{Kind: KindSimulation, Code: code, Span: NoSpan, Details: details}
}

// List accumulates diagnostics without short-circuiting, per spec.md §7's
// propagation policy: a broken equation does not suppress its siblings.
type List struct {
	items []*Diagnostic
}

// Add appends a diagnostic. A nil diagnostic is ignored so call sites can
// write `list.Add(maybeErr())` without a nil check.
func (l *List) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	l.items = append(l.items, d)
}

// Merge appends every diagnostic from other into l.
func (l *List) Merge(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

func (l *List) Items() []*Diagnostic { return l.items }
func (l *List) Len() int             { return len(l.items) }
func (l *List) Empty() bool          { return len(l.items) == 0 }

// ByVariable groups the list's diagnostics by their Variable field, for
// Project-level reporting that wants "variable -> its errors".
func (l *List) ByVariable() map[string][]*Diagnostic {
	out := make(map[string][]*Diagnostic)
	for _, d := range l.items {
		out[d.Variable] = append(out[d.Variable], d)
	}
	return out
}

// HasKind reports whether any item carries the given Kind.
func (l *List) HasKind(k Kind) bool {
	for _, d := range l.items {
		if d.Kind == k {
			return true
		}
	}
	return false
}
