// Package depgraph computes the transitive dependency sets and a
// deterministic evaluation order for one model's variables, per spec.md
// §3.3 and §4.5.
package depgraph

import (
	"sort"

	"github.com/bpowers/sdsim/internal/errs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// state tags a node's memoized-DFS visitation status.
type state int

const (
	white state = iota // not yet visited
	gray               // on the current DFS stack (in progress)
	black              // fully resolved
)

// Graph holds the direct-dependency edges for one model in one phase
// (initial or runtime) and memoizes transitive closures and topo order.
type Graph struct {
	// directDeps is keyed by canonical ident; isStock marks which idents
	// are Stock variables (whose runtime-phase edges are dropped per
	// spec.md §3.3).
	directDeps map[string][]string
	isStock    map[string]bool
	isInitial  bool

	closure map[string][]string
	st      map[string]state
	order   []string // postorder DFS visitation, i.e. a valid topological order
	onPath  map[string]errs.Span

	errs *errs.List
}

// New builds a Graph for one phase. directDeps maps every variable's
// canonical ident to its direct dependencies (as extracted by
// internal/vars.ExtractDirectDeps); isStock flags which idents are stocks;
// isInitial selects the initial phase, in which stock edges are kept.
func New(directDeps map[string][]string, isStock map[string]bool, isInitial bool) *Graph {
	return &Graph{
		directDeps: directDeps,
		isStock:    isStock,
		isInitial:  isInitial,
		closure:    make(map[string][]string),
		st:         make(map[string]state),
		onPath:     make(map[string]errs.Span),
		errs:       &errs.List{},
	}
}

// Resolve computes deps_φ(v) for every variable and a deterministic
// topological runlist. It never aborts early: a cycle or unknown reference
// is recorded and resolution continues for the remaining variables.
func (g *Graph) Resolve() (deps map[string][]string, runlist []string, list *errs.List) {
	idents := make([]string, 0, len(g.directDeps))
	for id := range g.directDeps {
		idents = append(idents, id)
	}
	sort.Strings(idents) // deterministic regardless of map iteration order

	for _, id := range idents {
		g.visit(id)
	}
	return g.closure, g.order, g.errs
}

// visit performs the memoized DFS of spec.md §4.5, returning v's transitive
// closure (computing and caching it on first visit).
func (g *Graph) visit(v string) []string {
	switch g.st[v] {
	case black:
		return g.closure[v]
	case gray:
		g.errs.Add(errs.NewModelError("", v, errs.CircularDependency, "circular dependency involving "+v))
		return nil
	}

	g.st[v] = gray

	direct, known := g.directDeps[v]
	if !known {
		// v is referenced but has no entry of its own; treat it as a leaf
		// with no further deps (the UnknownDependency error, if any, was
		// already raised by the referencing variable).
		g.st[v] = black
		return nil
	}

	seen := make(map[string]bool)
	var acc []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			acc = append(acc, id)
		}
	}

	for _, dep := range direct {
		if !g.isInitial && g.isStock[dep] {
			// runtime phase: a stock contributes no dependency edge, its
			// value is carried from the previous step.
			continue
		}
		if _, ok := g.directDeps[dep]; !ok {
			g.errs.Add(errs.NewModelError("", v, errs.UnknownDependency, "unresolved reference to "+dep))
			continue
		}
		add(dep)
		for _, transitive := range g.visit(dep) {
			add(transitive)
		}
	}

	g.st[v] = black
	g.closure[v] = acc
	g.order = append(g.order, v)
	return acc
}

// CycleTrail re-derives a human-readable cycle (a closed walk of canonical
// idents) for diagnostic enrichment, using lvlath's general-purpose cycle
// detector rather than the memoized DFS above (which only flags that one
// exists). Returns nil if the edge set it's given turns out to be acyclic.
func CycleTrail(directDeps map[string][]string, isStock map[string]bool, isInitial bool) ([]string, error) {
	g := core.NewGraph(core.WithDirected(true))
	for id := range directDeps {
		_ = g.AddVertex(id)
	}
	for from, deps := range directDeps {
		for _, to := range deps {
			if !isInitial && isStock[to] {
				continue
			}
			if _, ok := directDeps[to]; !ok {
				continue
			}
			if _, err := g.AddEdge(from, to, 1); err != nil {
				return nil, err
			}
		}
	}
	found, cycles, err := dfs.DetectCycles(g)
	if err != nil || !found {
		return nil, err
	}
	return cycles[0], nil
}
