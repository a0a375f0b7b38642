// Package ast defines Expr0, the surface abstract syntax tree spec.md §4.2
// produces from a token stream: one tree per variable equation, with source
// spans preserved on every node for error reporting and for the pretty
// printer AST lowering (internal/lower) uses to synthesize helper-aux
// equation text.
package ast

import "fmt"

// Span is a byte-offset range into the equation text a node was parsed from.
// Node is embedded by every concrete Expr0/IndexExpr0 so each one carries its
// own span the way core.CoreNode carries NodeID/Span in an ANF-style AST.
type Span struct {
	Start int
	End   int
}

// Node is embedded by every Expr0 and IndexExpr0 variant.
type Node struct {
	Loc Span
}

func (n Node) Span() Span { return n.Loc }

// Expr0 is the closed set of surface-expression variants from spec.md §4.2.
type Expr0 interface {
	Span() Span
	String() string
	expr0()
}

// Const is a numeric literal, including `nan`.
type Const struct {
	Node
	Value float64
}

func (*Const) expr0() {}
func (c *Const) String() string {
	if c.Value != c.Value { // NaN
		return "NaN"
	}
	return fmt.Sprintf("%g", c.Value)
}

// Var is a bare identifier reference, possibly dotted ("module.port").
type Var struct {
	Node
	Ident string
}

func (*Var) expr0() {}
func (v *Var) String() string { return v.Ident }

// App is an unchecked call: a builtin or (pre-lowering) macro-like builtin
// applied to a mix of Expr0 and IndexExpr0 arguments.
type App struct {
	Node
	Func string
	Args []Node0
}

func (*App) expr0() {}
func (a *App) String() string {
	s := a.Func + "("
	for i, arg := range a.Args {
		if i > 0 {
			s += ", "
		}
		s += arg.String()
	}
	return s + ")"
}

// Subscript indexes an array-valued identifier.
type Subscript struct {
	Node
	Ident   string
	Indices []IndexExpr0
}

func (*Subscript) expr0() {}
func (s *Subscript) String() string {
	out := s.Ident + "["
	for i, idx := range s.Indices {
		if i > 0 {
			out += ", "
		}
		out += idx.String()
	}
	return out + "]"
}

// UnaryOp enumerates the unary operators (`+ - not`).
type UnaryOp int

const (
	Pos UnaryOp = iota
	Neg
	Not
)

func (o UnaryOp) String() string {
	switch o {
	case Pos:
		return "+"
	case Neg:
		return "-"
	case Not:
		return "not"
	}
	return "?"
}

// Op1 is a unary operator application.
type Op1 struct {
	Node
	Op UnaryOp
	X  Expr0
}

func (*Op1) expr0() {}
func (o *Op1) String() string { return fmt.Sprintf("%s%s", o.Op, o.X) }

// BinaryOp enumerates the binary operators from spec.md §4.2's precedence
// table.
type BinaryOp int

const (
	Or BinaryOp = iota
	And
	Eq
	Neq
	Lt
	Gt
	Lte
	Gte
	Add
	Sub
	Mul
	Div
	Mod
	Pow
)

var binaryOpNames = map[BinaryOp]string{
	Or: "or", And: "and", Eq: "=", Neq: "<>", Lt: "<", Gt: ">", Lte: "<=", Gte: ">=",
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "mod", Pow: "^",
}

func (o BinaryOp) String() string { return binaryOpNames[o] }

// Op2 is a binary operator application.
type Op2 struct {
	Node
	Op   BinaryOp
	L, R Expr0
}

func (*Op2) expr0() {}
func (o *Op2) String() string { return fmt.Sprintf("(%s %s %s)", o.L, o.Op, o.R) }

// If is the if/then/else form.
type If struct {
	Node
	Cond, Then, Else Expr0
}

func (*If) expr0() {}
func (i *If) String() string { return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Then, i.Else) }

// Node0 is an App argument: either an Expr0 or an IndexExpr0 (spec.md §4.2's
// grammar allows a call argument to be either, since a builtin like a
// lookup table's x argument may itself be a range form).
type Node0 interface {
	Span() Span
	String() string
}

// IndexExpr0 is the closed set of subscript-index variants.
type IndexExpr0 interface {
	Span() Span
	String() string
	indexExpr0()
}

// Wildcard is `a[*]`: every element of the referenced dimension.
type Wildcard struct{ Node }

func (*Wildcard) indexExpr0()    {}
func (*Wildcard) String() string { return "*" }

// StarRange is `a[*:dim]`: every element of a named dimension, explicitly
// disambiguated when more than one dimension could apply.
type StarRange struct {
	Node
	Dim string
}

func (*StarRange) indexExpr0()    {}
func (s *StarRange) String() string { return "*:" + s.Dim }

// Range is `a[l:r]`: an inclusive sub-range of element indices.
type Range struct {
	Node
	L, R Expr0
}

func (*Range) indexExpr0() {}
func (r *Range) String() string { return fmt.Sprintf("%s:%s", r.L, r.R) }

// Expr wraps a plain Expr0 used in index position, e.g. `a[i+1]` or `a["elem"]`.
type Expr struct {
	Node
	X Expr0
}

func (*Expr) indexExpr0() {}
func (e *Expr) String() string { return e.X.String() }
