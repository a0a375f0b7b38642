// Package ident implements the canonical identifier service: a one-way fold
// from user-facing variable names to the canonical string used as a map key
// everywhere else in the engine.
package ident

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Sep is the synthetic-name separator: a code point that cannot appear in a
// lexed source identifier (see internal/lexer), used to build names that are
// legal idents but unreachable from user source.
const Sep = '⁚'

// PortSep separates a module instance from one of its output ports in a
// synthesized reference like "smooth_cost·output".
const PortSep = '·'

var lowerer = cases.Lower(language.Und)

// Canonicalize folds a user-facing name to its canonical identifier.
//
// Steps: Unicode NFC normalization, trim, strip one layer of matching outer
// quotes, collapse newlines/NBSP/whitespace runs to a single '_', lowercase.
// Canonicalize is idempotent: Canonicalize(Canonicalize(s)) == Canonicalize(s).
func Canonicalize(s string) string {
	s = string(norm.NFC.String(s))
	s = strings.TrimSpace(s)
	s = stripOuterQuotes(s)
	s = collapseWhitespace(s)
	s = lowerer.String(s)
	return s
}

func stripOuterQuotes(s string) string {
	if len(s) >= 2 {
		first := s[0]
		last := s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// collapseWhitespace turns every run of whitespace (including newlines and
// the Unicode non-breaking space) into a single '_', and also trims any
// leading/trailing run left behind by stripping quotes.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if isFoldSpace(r) {
			if !inRun {
				b.WriteByte('_')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}

func isFoldSpace(r rune) bool {
	return unicode.IsSpace(r) || r == ' ' || r == 0xFEFF
}

// HelperName builds the synthesized helper-aux identifier for the i-th
// argument of the n-th instantiation of builtin `fn` owned by `owner`:
// "$⁚<owner>⁚<n>⁚arg<i>".
func HelperName(owner string, n int, argIndex int) string {
	return synth(owner, n, "arg") + strconv.Itoa(argIndex)
}

// ModuleIdent builds the synthesized module identifier for the n-th
// instantiation of stateful builtin `fn` owned by `owner`:
// "$⁚<owner>⁚<n>⁚<fn>".
func ModuleIdent(owner string, n int, fn string) string {
	return synth(owner, n, fn)
}

// OutputPort builds a module's output-port reference: "<module>·output".
func OutputPort(moduleIdent string) string {
	return moduleIdent + string(PortSep) + "output"
}

func synth(owner string, n int, kind string) string {
	var b strings.Builder
	b.WriteByte('$')
	b.WriteRune(Sep)
	b.WriteString(owner)
	b.WriteRune(Sep)
	b.WriteString(strconv.Itoa(n))
	b.WriteRune(Sep)
	b.WriteString(kind)
	return b.String()
}

// IsSynthetic reports whether a canonical ident was produced by HelperName or
// ModuleIdent (i.e. is unreachable from user source).
func IsSynthetic(canonicalIdent string) bool {
	return strings.ContainsRune(canonicalIdent, Sep)
}

// ModuleOf splits a module-qualified reference into its module and port
// parts. It recognizes both a synthesized output-port reference built by
// OutputPort ("mod·output", joined on PortSep) and a user-authored dotted
// sub-model reference ("mod.port", joined on a literal '.'). ok is false if
// identifier contains neither separator.
func ModuleOf(identifier string) (module, port string, ok bool) {
	if i := strings.IndexRune(identifier, PortSep); i >= 0 {
		return identifier[:i], identifier[i+utf8.RuneLen(PortSep):], true
	}
	i := strings.IndexByte(identifier, '.')
	if i < 0 {
		return "", "", false
	}
	return identifier[:i], identifier[i+1:], true
}
