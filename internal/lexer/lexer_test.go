package lexer

import (
	"testing"

	"github.com/bpowers/sdsim/internal/errs"
)

func collect(t *testing.T, input string, mode Mode) []Token {
	t.Helper()
	l := New(input, mode)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %s", err.Details)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestBasicOperatorsAndPunctuation(t *testing.T) {
	toks := collect(t, "(a + b) * c[1,2] <= d <> e", Equation)
	want := []TokenType{
		LPAREN, IDENT, PLUS, IDENT, RPAREN, STAR, IDENT,
		LBRACKET, NUMBER, COMMA, NUMBER, RBRACKET,
		LTE, IDENT, NEQ, IDENT, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	toks := collect(t, "IF a THEN 1 ELSE 0", Equation)
	want := []TokenType{IF, IDENT, THEN, NUMBER, ELSE, NUMBER, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestNanLiteral(t *testing.T) {
	toks := collect(t, "nan", Equation)
	if toks[0].Type != NAN {
		t.Errorf("expected NAN token, got %s", toks[0].Type)
	}
}

func TestQuotedIdentPreservesContent(t *testing.T) {
	toks := collect(t, `"Room Temp" + 1`, Equation)
	if toks[0].Type != QUOTED_IDENT || toks[0].Literal != "Room Temp" {
		t.Errorf("got %#v", toks[0])
	}
}

func TestDollarOnlyValidInUnitsMode(t *testing.T) {
	l := New("$widgets", Equation)
	_, err := l.Next()
	if err == nil {
		t.Fatalf("expected lex error for '$' outside units mode")
	}

	toks := collect(t, "$widgets", Units)
	if toks[0].Type != IDENT || toks[0].Literal != "$widgets" {
		t.Errorf("got %#v", toks[0])
	}
}

func TestModuleDotReferenceLexesAsOneIdent(t *testing.T) {
	toks := collect(t, "smooth.output", Equation)
	if toks[0].Type != IDENT || toks[0].Literal != "smooth.output" {
		t.Errorf("got %#v", toks[0])
	}
}

func TestUnclosedCommentIsHardError(t *testing.T) {
	l := New("a + { never closed", Equation)
	for {
		_, err := l.Next()
		if err != nil {
			if err.Code != errs.UnclosedComment {
				t.Fatalf("got code %s, want UnclosedComment", err.Code)
			}
			return
		}
	}
}

func TestUnclosedQuotedIdentIsHardError(t *testing.T) {
	l := New(`"never closed`, Equation)
	_, err := l.Next()
	if err == nil || err.Code != errs.UnclosedQuotedIdent {
		t.Fatalf("expected UnclosedQuotedIdent, got %v", err)
	}
}

func TestCommentIsSkipped(t *testing.T) {
	toks := collect(t, "a {this is a comment} + b", Equation)
	want := []TokenType{IDENT, PLUS, IDENT, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestNumberForms(t *testing.T) {
	for _, lit := range []string{"1", "1.5", "1.", ".5", "1e10", "1.5e-3", "1E+2"} {
		toks := collect(t, lit, Equation)
		if toks[0].Type != NUMBER || toks[0].Literal != lit {
			t.Errorf("literal %q: got %#v", lit, toks[0])
		}
	}
}
