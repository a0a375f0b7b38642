package errs

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	codeColor  = color.New(color.FgRed, color.Bold).SprintFunc()
	kindColor  = color.New(color.FgYellow).SprintFunc()
	locColor   = color.New(color.FgCyan).SprintFunc()
	titleColor = color.New(color.Bold).SprintFunc()
)

// Render formats a diagnostic for a terminal report, highlighting error
// categories with fatih/color SprintFuncs. color.NoColor (set automatically
// by fatih/color when stdout isn't a TTY) degrades this to plain text, so
// the same call is safe in CI logs and in an interactive shell.
func Render(d *Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", codeColor(string(d.Code)), kindColor(string(d.Kind)))
	if d.Model != "" {
		loc := d.Model
		if d.Variable != "" {
			loc += "." + d.Variable
		}
		if d.Span != NoSpan {
			loc += fmt.Sprintf(" [%d:%d]", d.Span.Start, d.Span.End)
		}
		fmt.Fprintf(&b, " %s", locColor(loc))
	}
	if d.Details != "" {
		fmt.Fprintf(&b, ": %s", d.Details)
	}
	return b.String()
}

// RenderList renders an entire List, one diagnostic per line, with a bold
// summary header.
func RenderList(title string, l *List) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", titleColor(title), l.Len())
	for _, d := range l.Items() {
		fmt.Fprintf(&b, "  %s\n", Render(d))
	}
	return b.String()
}
