// Package errs implements the closed error taxonomy of spec.md §7: a fixed
// set of error kinds and codes, each optionally spanned to a source location
// within one variable's equation text.
package errs

// Kind is the top-level error kind from spec.md §6.3.
type Kind string

const (
	KindImport     Kind = "Import"
	KindModel      Kind = "Model"
	KindSimulation Kind = "Simulation"
	KindVariable   Kind = "Variable"
	KindUnits      Kind = "Units"
)

// Code identifies the specific condition within a Kind.
type Code string

const (
	// ========================================================================
	// Equation-spanned (Variable kind) — spec.md §7
	// ========================================================================

	InvalidToken                        Code = "InvalidToken"
	UnrecognizedEOF                     Code = "UnrecognizedEOF"
	UnrecognizedToken                   Code = "UnrecognizedToken"
	ExtraToken                          Code = "ExtraToken"
	UnclosedComment                     Code = "UnclosedComment"
	UnclosedQuotedIdent                 Code = "UnclosedQuotedIdent"
	ExpectedNumber                      Code = "ExpectedNumber"
	UnknownBuiltin                      Code = "UnknownBuiltin"
	BadBuiltinArgs                      Code = "BadBuiltinArgs"
	EmptyEquation                       Code = "EmptyEquation"
	NoAbsoluteReferences                Code = "NoAbsoluteReferences"
	ArrayReferenceNeedsExplicitSubscripts Code = "ArrayReferenceNeedsExplicitSubscripts"
	MismatchedDimensions                Code = "MismatchedDimensions"
	BadTable                            Code = "BadTable"

	// ========================================================================
	// Model kind
	// ========================================================================

	CircularDependency Code = "CircularDependency"
	DuplicateVariable   Code = "DuplicateVariable"
	UnknownDependency   Code = "UnknownDependency"
	VariablesHaveErrors Code = "VariablesHaveErrors"
	BadModelName        Code = "BadModelName"
	BadDimensionName    Code = "BadDimensionName"

	// ========================================================================
	// Project kind
	// ========================================================================

	BadSimSpecs    Code = "BadSimSpecs"
	NotSimulatable Code = "NotSimulatable"

	// ========================================================================
	// Simulation kind
	// ========================================================================

	DoesNotExist Code = "DoesNotExist"
	Generic      Code = "Generic"
)

// Info carries registry metadata about a Code: which Kind it belongs to and
// a short human description, so tooling can enumerate the taxonomy without
// a type switch.
type Info struct {
	Code        Code
	Kind        Kind
	Description string
}

// Registry maps every Code this package defines to its Info. The
// Diagnostic constructors (NewEquationError and friends) do not consult it.
var Registry = map[Code]Info{
	InvalidToken:                         {InvalidToken, KindVariable, "invalid token in equation text"},
	UnrecognizedEOF:                      {UnrecognizedEOF, KindVariable, "equation ended before expression completed"},
	UnrecognizedToken:                    {UnrecognizedToken, KindVariable, "token not valid in this position"},
	ExtraToken:                           {ExtraToken, KindVariable, "trailing token after a complete expression"},
	UnclosedComment:                      {UnclosedComment, KindVariable, "{ comment } missing closing brace"},
	UnclosedQuotedIdent:                  {UnclosedQuotedIdent, KindVariable, "quoted identifier missing closing quote"},
	ExpectedNumber:                       {ExpectedNumber, KindVariable, "malformed numeric literal"},
	UnknownBuiltin:                       {UnknownBuiltin, KindVariable, "call to an unrecognized builtin function"},
	BadBuiltinArgs:                       {BadBuiltinArgs, KindVariable, "builtin call arity or argument shape mismatch"},
	EmptyEquation:                        {EmptyEquation, KindVariable, "equation text required but absent"},
	NoAbsoluteReferences:                 {NoAbsoluteReferences, KindVariable, "identifier starts with an absolute-reference dot"},
	ArrayReferenceNeedsExplicitSubscripts: {ArrayReferenceNeedsExplicitSubscripts, KindVariable, "array-valued identifier referenced without subscripts"},
	MismatchedDimensions:                 {MismatchedDimensions, KindVariable, "subscript dimensions do not match the referenced array"},
	BadTable:                             {BadTable, KindVariable, "graphical function table is malformed"},

	CircularDependency:  {CircularDependency, KindModel, "dependency graph contains a cycle"},
	DuplicateVariable:   {DuplicateVariable, KindModel, "two variables share one canonical identifier"},
	UnknownDependency:   {UnknownDependency, KindModel, "referenced identifier does not resolve"},
	VariablesHaveErrors: {VariablesHaveErrors, KindModel, "one or more variables failed to parse or resolve"},
	BadModelName:        {BadModelName, KindModel, "model name is empty or not a legal identifier"},
	BadDimensionName:    {BadDimensionName, KindModel, "dimension name is empty or not a legal identifier"},

	BadSimSpecs:    {BadSimSpecs, KindImport, "sim_specs missing or internally inconsistent"},
	NotSimulatable: {NotSimulatable, KindSimulation, "project cannot be compiled into a runnable simulation"},

	DoesNotExist: {DoesNotExist, KindSimulation, "referenced model, variable, or save point does not exist"},
	Generic:      {Generic, KindSimulation, "unclassified simulation-time error"},
}

// KindOf returns the Kind registered for code, or KindVariable as the
// (equation-scoped errors being the overwhelming majority) conservative
// default if code is somehow unregistered.
func KindOf(code Code) Kind {
	if info, ok := Registry[code]; ok {
		return info.Kind
	}
	return KindVariable
}
