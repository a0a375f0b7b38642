// Package parser turns one equation (or unit-expression) string into an
// ast.Expr0 tree, per spec.md §4.2. Operator precedence, from loosest to
// tightest binding: or; and; = <>; < > <= >=; + -; * / mod; ^ (right
// associative); unary + - not; call/subscript.
package parser

import (
	"fmt"
	"strconv"

	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/lexer"
)

// Parse parses equation text in Equation mode. An equation containing only
// whitespace/comments returns (nil, empty list) per spec.md §4.2/§8
// property 2 — that is not an error.
func Parse(model, variable, text string) (ast.Expr0, *errs.List) {
	return parse(model, variable, text, lexer.Equation)
}

// ParseUnits parses a unit expression in Units mode (where '$' may start an
// identifier and zero-arity reification of `time`/`pi` does not apply).
func ParseUnits(model, variable, text string) (ast.Expr0, *errs.List) {
	return parse(model, variable, text, lexer.Units)
}

func parse(model, variable, text string, mode lexer.Mode) (ast.Expr0, *errs.List) {
	list := &errs.List{}
	toks, lexErrs := tokenize(text, mode)
	for _, e := range lexErrs {
		e.Model, e.Variable = model, variable
		list.Add(e)
	}
	if len(toks) == 1 && toks[0].Type == lexer.EOF && list.Empty() {
		return nil, list
	}

	p := &parser{toks: toks, model: model, variable: variable, errs: list}
	if p.cur().Type == lexer.EOF {
		return nil, list
	}
	expr := p.parseIf()
	if p.cur().Type != lexer.EOF {
		p.errorAt(errs.ExtraToken, p.cur(), "unexpected trailing token %q", p.cur().Literal)
	}
	return expr, list
}

func tokenize(text string, mode lexer.Mode) ([]lexer.Token, []*errs.Diagnostic) {
	l := lexer.New(text, mode)
	var toks []lexer.Token
	var errors []*errs.Diagnostic
	for {
		tok, err := l.Next()
		if err != nil {
			errors = append(errors, err)
			toks = append(toks, lexer.Token{Type: lexer.EOF, Start: tok.Start, End: tok.End})
			break
		}
		toks = append(toks, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	return toks, errors
}

type parser struct {
	toks            []lexer.Token
	pos             int
	model, variable string
	errs            *errs.List
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) peek(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorAt(code errs.Code, tok lexer.Token, format string, args ...any) {
	p.errs.Add(&errs.Diagnostic{
		Kind: errs.KindVariable, Code: code, Model: p.model, Variable: p.variable,
		Span:    errs.Span{Start: tok.Start, End: tok.End},
		Details: fmt.Sprintf(format, args...),
	})
}

// --- precedence climb -------------------------------------------------

// parseIf handles `if <cond> then <then> else <else>`, which sits above
// every binary operator in spec.md §4.2's grammar: the branches themselves
// recurse back into parseIf so they may nest or contain any operator form.
func (p *parser) parseIf() ast.Expr0 {
	if p.cur().Type != lexer.IF {
		return p.parseOr()
	}
	start := p.advance()
	cond := p.parseIf()
	if p.cur().Type == lexer.THEN {
		p.advance()
	} else {
		p.errorAt(errs.UnrecognizedToken, p.cur(), "expected 'then'")
	}
	thenExpr := p.parseIf()
	if p.cur().Type == lexer.ELSE {
		p.advance()
	} else {
		p.errorAt(errs.UnrecognizedToken, p.cur(), "expected 'else'")
	}
	elseExpr := p.parseIf()
	return &ast.If{
		Node: ast.Node{Loc: ast.Span{Start: start.Start, End: elseExpr.Span().End}},
		Cond: cond, Then: thenExpr, Else: elseExpr,
	}
}

func (p *parser) parseOr() ast.Expr0 {
	left := p.parseAnd()
	for p.cur().Type == lexer.OR {
		p.advance()
		right := p.parseAnd()
		left = &ast.Op2{Node: span(left, right), Op: ast.Or, L: left, R: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr0 {
	left := p.parseEquality()
	for p.cur().Type == lexer.AND {
		p.advance()
		right := p.parseEquality()
		left = &ast.Op2{Node: span(left, right), Op: ast.And, L: left, R: right}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr0 {
	left := p.parseRelational()
	for p.cur().Type == lexer.ASSIGN || p.cur().Type == lexer.NEQ {
		op := p.advance()
		kind := ast.Eq
		if op.Type == lexer.NEQ {
			kind = ast.Neq
		}
		right := p.parseRelational()
		left = &ast.Op2{Node: span(left, right), Op: kind, L: left, R: right}
	}
	return left
}

func (p *parser) parseRelational() ast.Expr0 {
	left := p.parseAdditive()
	for {
		var kind ast.BinaryOp
		switch p.cur().Type {
		case lexer.LT:
			kind = ast.Lt
		case lexer.GT:
			kind = ast.Gt
		case lexer.LTE:
			kind = ast.Lte
		case lexer.GTE:
			kind = ast.Gte
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = &ast.Op2{Node: span(left, right), Op: kind, L: left, R: right}
	}
}

func (p *parser) parseAdditive() ast.Expr0 {
	left := p.parseMultiplicative()
	for p.cur().Type == lexer.PLUS || p.cur().Type == lexer.MINUS {
		op := p.advance()
		kind := ast.Add
		if op.Type == lexer.MINUS {
			kind = ast.Sub
		}
		right := p.parseMultiplicative()
		left = &ast.Op2{Node: span(left, right), Op: kind, L: left, R: right}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr0 {
	left := p.parsePow()
	for p.cur().Type == lexer.STAR || p.cur().Type == lexer.SLASH || p.cur().Type == lexer.MOD {
		op := p.advance()
		var kind ast.BinaryOp
		switch op.Type {
		case lexer.STAR:
			kind = ast.Mul
		case lexer.SLASH:
			kind = ast.Div
		default:
			kind = ast.Mod
		}
		right := p.parsePow()
		left = &ast.Op2{Node: span(left, right), Op: kind, L: left, R: right}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr0 {
	switch p.cur().Type {
	case lexer.PLUS:
		op := p.advance()
		x := p.parseUnary()
		return &ast.Op1{Node: ast.Node{Loc: ast.Span{Start: op.Start, End: x.Span().End}}, Op: ast.Pos, X: x}
	case lexer.MINUS:
		op := p.advance()
		x := p.parseUnary()
		return &ast.Op1{Node: ast.Node{Loc: ast.Span{Start: op.Start, End: x.Span().End}}, Op: ast.Neg, X: x}
	case lexer.NOT:
		op := p.advance()
		x := p.parseUnary()
		return &ast.Op1{Node: ast.Node{Loc: ast.Span{Start: op.Start, End: x.Span().End}}, Op: ast.Not, X: x}
	}
	return p.parsePostfix()
}

func (p *parser) parsePow() ast.Expr0 {
	base := p.parseUnary()
	if p.cur().Type == lexer.CARET {
		p.advance()
		exp := p.parsePow() // right-associative
		return &ast.Op2{Node: span(base, exp), Op: ast.Pow, L: base, R: exp}
	}
	return base
}

func (p *parser) parsePostfix() ast.Expr0 {
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr0 {
	tok := p.cur()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(errs.ExpectedNumber, tok, "malformed numeric literal %q", tok.Literal)
			v = 0
		}
		return &ast.Const{Node: ast.Node{Loc: toSpan(tok)}, Value: v}
	case lexer.NAN:
		p.advance()
		return &ast.Const{Node: ast.Node{Loc: toSpan(tok)}, Value: nan()}
	case lexer.LPAREN:
		p.advance()
		inner := p.parseIf()
		if p.cur().Type != lexer.RPAREN {
			p.errorAt(errs.UnrecognizedToken, p.cur(), "expected ')'")
		} else {
			p.advance()
		}
		return inner
	case lexer.IDENT, lexer.QUOTED_IDENT:
		return p.parseIdentExpr()
	case lexer.EOF:
		p.errorAt(errs.UnrecognizedEOF, tok, "equation ended unexpectedly")
		return &ast.Const{Node: ast.Node{Loc: toSpan(tok)}, Value: 0}
	default:
		p.errorAt(errs.UnrecognizedToken, tok, "unexpected token %q", tok.Literal)
		p.advance()
		return &ast.Const{Node: ast.Node{Loc: toSpan(tok)}, Value: 0}
	}
}

func (p *parser) parseIdentExpr() ast.Expr0 {
	tok := p.advance()
	ident := tok.Literal

	switch p.cur().Type {
	case lexer.LPAREN:
		p.advance()
		var args []ast.Node0
		if p.cur().Type != lexer.RPAREN {
			args = append(args, p.parseCallArg())
			for p.cur().Type == lexer.COMMA {
				p.advance()
				args = append(args, p.parseCallArg())
			}
		}
		end := p.cur()
		if p.cur().Type != lexer.RPAREN {
			p.errorAt(errs.UnrecognizedToken, p.cur(), "expected ')' to close call to %s", ident)
		} else {
			p.advance()
		}
		return &ast.App{Node: ast.Node{Loc: ast.Span{Start: tok.Start, End: end.End}}, Func: ident, Args: args}
	case lexer.LBRACKET:
		p.advance()
		var idx []ast.IndexExpr0
		idx = append(idx, p.parseIndex())
		for p.cur().Type == lexer.COMMA {
			p.advance()
			idx = append(idx, p.parseIndex())
		}
		end := p.cur()
		if p.cur().Type != lexer.RBRACKET {
			p.errorAt(errs.UnrecognizedToken, p.cur(), "expected ']' to close subscript on %s", ident)
		} else {
			p.advance()
		}
		return &ast.Subscript{Node: ast.Node{Loc: ast.Span{Start: tok.Start, End: end.End}}, Ident: ident, Indices: idx}
	default:
		return &ast.Var{Node: ast.Node{Loc: toSpan(tok)}, Ident: ident}
	}
}

// parseCallArg parses one call argument, which spec.md §4.2's grammar allows
// to be a plain expression or an index-range form (`a:b`).
func (p *parser) parseCallArg() ast.Node0 {
	if p.cur().Type == lexer.STAR {
		return p.parseIndex()
	}
	start := p.cur()
	e := p.parseIf()
	if p.cur().Type == lexer.COLON {
		p.advance()
		r := p.parseIf()
		return &ast.Range{Node: ast.Node{Loc: ast.Span{Start: start.Start, End: r.Span().End}}, L: e, R: r}
	}
	return e
}

// parseIndex parses one subscript index: `*`, `*:dim`, `l:r`, or a plain
// expression.
func (p *parser) parseIndex() ast.IndexExpr0 {
	tok := p.cur()
	if tok.Type == lexer.STAR {
		p.advance()
		if p.cur().Type == lexer.COLON {
			p.advance()
			dimTok := p.cur()
			if dimTok.Type != lexer.IDENT && dimTok.Type != lexer.QUOTED_IDENT {
				p.errorAt(errs.UnrecognizedToken, dimTok, "expected a dimension name after '*:'")
				return &ast.Wildcard{Node: ast.Node{Loc: toSpan(tok)}}
			}
			p.advance()
			return &ast.StarRange{Node: ast.Node{Loc: ast.Span{Start: tok.Start, End: dimTok.End}}, Dim: dimTok.Literal}
		}
		return &ast.Wildcard{Node: ast.Node{Loc: toSpan(tok)}}
	}

	start := tok
	e := p.parseIf()
	if p.cur().Type == lexer.COLON {
		p.advance()
		if isRangeTerminator(p.cur().Type) {
			p.errorAt(errs.UnrecognizedToken, p.cur(), "invalid half-range: missing upper bound")
			return &ast.Expr{Node: ast.Node{Loc: e.Span()}, X: e}
		}
		r := p.parseIf()
		return &ast.Range{Node: ast.Node{Loc: ast.Span{Start: start.Start, End: r.Span().End}}, L: e, R: r}
	}
	return &ast.Expr{Node: ast.Node{Loc: e.Span()}, X: e}
}

func isRangeTerminator(t lexer.TokenType) bool {
	return t == lexer.RBRACKET || t == lexer.COMMA || t == lexer.EOF
}

func toSpan(t lexer.Token) ast.Span { return ast.Span{Start: t.Start, End: t.End} }

func span(l, r ast.Expr0) ast.Node {
	return ast.Node{Loc: ast.Span{Start: l.Span().Start, End: r.Span().End}}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
