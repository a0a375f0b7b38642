// Package gf evaluates graphical functions: piecewise lookup tables attached
// to an aux or flow for tabular nonlinearities (spec.md §3.7, §4.12).
package gf

import (
	"sort"

	"github.com/bpowers/sdsim/internal/errs"
)

// Kind selects lookup behavior outside (and, for Discrete, inside) the
// sampled range.
type Kind int

const (
	Continuous Kind = iota
	Extrapolate
	Discrete
)

// Scale bounds the domain (x) or range (y) when explicit sample points
// aren't supplied and xs must be synthesized.
type Scale struct {
	Min, Max float64
}

// Table is a compiled graphical function: non-decreasing Xs paired with Ys.
type Table struct {
	Kind Kind
	Xs   []float64
	Ys   []float64
}

// New builds a Table from raw sample points, synthesizing equally-spaced Xs
// over xScale when xs is empty (spec.md §4.12, last paragraph).
func New(kind Kind, xs, ys []float64, xScale, yScale Scale) (*Table, *errs.Diagnostic) {
	if len(ys) == 0 {
		return nil, &errs.Diagnostic{Kind: errs.KindVariable, Code: errs.BadTable, Details: "graphical function has no y values"}
	}
	if len(xs) == 0 {
		n := len(ys)
		xs = make([]float64, n)
		if n == 1 {
			xs[0] = xScale.Min
		} else {
			span := xScale.Max - xScale.Min
			for i := 0; i < n; i++ {
				xs[i] = xScale.Min + span*float64(i)/float64(n-1)
			}
		}
	}
	if len(xs) != len(ys) {
		return nil, &errs.Diagnostic{Kind: errs.KindVariable, Code: errs.BadTable, Details: "x and y sample counts differ"}
	}
	if !sort.Float64sAreSorted(xs) {
		return nil, &errs.Diagnostic{Kind: errs.KindVariable, Code: errs.BadTable, Details: "x samples are not non-decreasing"}
	}
	return &Table{Kind: kind, Xs: xs, Ys: ys}, nil
}

// Lookup evaluates the table at x per spec.md §4.12.
func (t *Table) Lookup(x float64) float64 {
	n := len(t.Xs)
	if n == 1 {
		return t.Ys[0]
	}

	switch t.Kind {
	case Discrete:
		if x < t.Xs[0] {
			return t.Ys[0]
		}
		if x >= t.Xs[n-1] {
			return t.Ys[n-1]
		}
		i := upperBound(t.Xs, x) - 1
		if i < 0 {
			i = 0
		}
		return t.Ys[i]

	case Extrapolate:
		if x < t.Xs[0] {
			return extrapolate(t.Xs[0], t.Ys[0], t.Xs[1], t.Ys[1], x)
		}
		if x > t.Xs[n-1] {
			return extrapolate(t.Xs[n-2], t.Ys[n-2], t.Xs[n-1], t.Ys[n-1], x)
		}
		return interpolate(t.Xs, t.Ys, x)

	default: // Continuous
		if x <= t.Xs[0] {
			return t.Ys[0]
		}
		if x >= t.Xs[n-1] {
			return t.Ys[n-1]
		}
		return interpolate(t.Xs, t.Ys, x)
	}
}

// interpolate linearly interpolates y at x, which must lie within
// [xs[0], xs[len(xs)-1]].
func interpolate(xs, ys []float64, x float64) float64 {
	i := upperBound(xs, x)
	if i == 0 {
		i = 1
	}
	if i >= len(xs) {
		i = len(xs) - 1
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	if x1 == x0 {
		return y0
	}
	frac := (x - x0) / (x1 - x0)
	return y0 + frac*(y1-y0)
}

func extrapolate(x0, y0, x1, y1, x float64) float64 {
	if x1 == x0 {
		return y0
	}
	slope := (y1 - y0) / (x1 - x0)
	return y0 + slope*(x-x0)
}

// upperBound returns the index of the first element of xs strictly greater
// than x (i.e. sort.SearchFloat64s semantics for "the bracketing segment").
func upperBound(xs []float64, x float64) int {
	return sort.Search(len(xs), func(i int) bool { return xs[i] > x })
}
