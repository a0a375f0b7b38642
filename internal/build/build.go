// Package build links the compiler stages together: given a model.Project,
// it parses every variable's equation, lowers it (expanding stateful
// builtins and explicit sub-model references into module instantiations),
// resolves the dependency graph once per phase, assigns slots across the
// fully-flattened module hierarchy, and emits both a vm.Program and an
// interp.Program over the same slot layout, ready for internal/sim to
// drive.
//
// A model variable whose equation lowers into a stdlib sub-model call
// (smth1, delay3, trend, ...), or that is itself declared as a module
// referencing another model in the project, gets its own contiguous slot
// window recursively compiled the same way as the root — see compileLevel.
// Two instantiations of the same sub-model with the same bound input ports
// share one compiled runlist (templateCache keys on stdlib.Instance's
// model-name-plus-input-set identity), but each instantiation site still
// gets its own slot window, since each has independent runtime state.
package build

import (
	"sort"
	"strings"

	"github.com/bpowers/sdsim/internal/ast"
	"github.com/bpowers/sdsim/internal/bytecode"
	"github.com/bpowers/sdsim/internal/compiler"
	"github.com/bpowers/sdsim/internal/depgraph"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/gf"
	"github.com/bpowers/sdsim/internal/ident"
	"github.com/bpowers/sdsim/internal/interp"
	"github.com/bpowers/sdsim/internal/lower"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/parser"
	"github.com/bpowers/sdsim/internal/stdlib"
	"github.com/bpowers/sdsim/internal/vars"
	"github.com/bpowers/sdsim/internal/vm"
)

const (
	timeSlot = 0
	dtSlot   = 1
)

// Linked is everything internal/sim needs to drive one compiled project.
type Linked struct {
	VM        *vm.Program
	Interp    *interp.Program
	Offsets   map[string]int // ident -> slot, including "time" and "dt"
	SlotCount int
}

// allocator hands out disjoint slot windows across the whole flattened
// module hierarchy and collects each window's compiled descriptor.
type allocator struct {
	next          int
	vmModules     map[int]*vm.ModuleDescriptor
	interpModules map[int]*interp.Module
}

func (a *allocator) reserve(n int) int {
	base := a.next
	a.next += n
	return base
}

func (a *allocator) register(base int, t *moduleTemplate) {
	a.vmModules[base] = &vm.ModuleDescriptor{Base: base, Initials: t.vmInitials, Flows: t.vmFlows, Stocks: t.vmStocks}
	a.interpModules[base] = &interp.Module{Base: base, Initials: t.initials, Flows: t.flows, Stocks: t.stocks}
}

// templateCache memoizes compiled sub-model shapes by stdlib.Instance
// identity, using Instance.CacheKey's 64-bit digest as a fast pre-check and
// falling back to structural (ModelName + InputSet) equality on a hit, per
// CacheKey's own documented contract.
type templateCache map[uint64][]templateCacheEntry

type templateCacheEntry struct {
	inst     stdlib.Instance
	template *moduleTemplate
}

func (c templateCache) lookup(inst stdlib.Instance) (*moduleTemplate, bool) {
	key, err := inst.CacheKey()
	if err != nil {
		return nil, false
	}
	for _, e := range c[key] {
		if e.inst.ModelName == inst.ModelName && strings.Join(e.inst.InputSet, ",") == strings.Join(inst.InputSet, ",") {
			return e.template, true
		}
	}
	return nil, false
}

func (c templateCache) store(inst stdlib.Instance, t *moduleTemplate) {
	key, err := inst.CacheKey()
	if err != nil {
		return
	}
	c[key] = append(c[key], templateCacheEntry{inst: inst, template: t})
}

// moduleTemplate is one model's compiled shape: its local slot layout and
// its three runlists, addressed relative to whatever base its instance
// site is eventually given.
type moduleTemplate struct {
	ports        []string
	localOffsets map[string]int
	windowSize   int

	initials, flows, stocks       []compiler.Expr
	vmInitials, vmFlows, vmStocks []bytecode.Instruction
}

// Compile links proj's root model into a runnable Linked program.
func Compile(proj model.Project) (*Linked, *errs.List) {
	list := &errs.List{}
	root, ok := proj.RootModel()
	if !ok {
		list.Add(errs.NewModelError("", "", errs.BadModelName, "project has no models"))
		return nil, list
	}

	alloc := &allocator{vmModules: map[int]*vm.ModuleDescriptor{}, interpModules: map[int]*interp.Module{}}
	cache := templateCache{}
	var gfTables []*gf.Table

	rootTemplate := compileLevel(root.Name, root.Variables, nil, proj, alloc, cache, &gfTables, true, list)
	if !list.Empty() {
		return nil, list
	}

	alloc.register(0, rootTemplate)

	vmProg := &vm.Program{Modules: alloc.vmModules, GFTables: gfTables}
	interpProg := &interp.Program{Modules: alloc.interpModules, GFTables: gfTables}

	return &Linked{VM: vmProg, Interp: interpProg, Offsets: rootTemplate.localOffsets, SlotCount: alloc.next}, list
}

// compileLevel compiles one model's own variables (the root, or a
// sub-model instance) into a moduleTemplate: it parses and lowers every
// equation (expanding stateful builtins into further helper/module
// variables, recursively), resolves two dependency orders (initial and
// runtime — a stock's init expression and its net-flow update have
// different dependency sets), assigns local slots, recurses into any
// module variables this level instantiates, and compiles the three
// runlists.
//
// ports is this level's externally-supplied input set (nil for the root);
// each is a pass-through slot written only by the parent's InputAssigns,
// never by this level's own runlist. carryDt is true only for the root:
// it appends the dt double-buffer carry-forward to the stocks runlist, and
// causes this level's own window to start at slot 2 (0 and 1 are the
// global time/dt slots) rather than 0.
func compileLevel(modelName string, variables []model.Variable, ports []string, proj model.Project, alloc *allocator, cache templateCache, gfTables *[]*gf.Table, carryDt bool, list *errs.List) *moduleTemplate {
	allVars, lowered := expandVars(modelName, variables, list)
	// A bound input port replaces the sub-model's own variable of that name,
	// so the parent's InputAssigns stay the only writer of its slot.
	for _, p := range ports {
		delete(allVars, p)
		delete(lowered, p)
	}

	isStock := map[string]bool{}
	isModule := map[string]bool{}
	netFlow := map[string]ast.Expr0{}
	gfTableIdx := map[string]int{}
	for id, v := range allVars {
		switch v.Kind {
		case model.KindModule:
			isModule[id] = true
		case model.KindStock:
			isStock[id] = true
			netFlow[id] = buildNetFlow(v.Inflows, v.Outflows)
		}
		if v.GF != nil {
			table, derr := gf.New(gfKind(v.GF.Kind), v.GF.Xs, v.GF.Ys,
				gf.Scale{Min: v.GF.XScale.Min, Max: v.GF.XScale.Max},
				gf.Scale{Min: v.GF.YScale.Min, Max: v.GF.YScale.Max})
			if derr != nil {
				list.Add(derr)
			} else {
				gfTableIdx[id] = len(*gfTables)
				*gfTables = append(*gfTables, table)
			}
		}
	}

	directInit := map[string][]string{}
	directRun := map[string][]string{}
	for _, p := range ports {
		directInit[p] = nil
		directRun[p] = nil
	}
	for id, v := range allVars {
		if isModule[id] {
			var deps []string
			for _, b := range v.Bindings {
				deps = append(deps, ident.Canonicalize(b.Src))
			}
			directInit[id] = deps
			directRun[id] = deps
			continue
		}
		deps, derr := vars.ExtractDirectDeps(modelName, id, lowered[id])
		list.Merge(derr)
		directInit[id] = deps
		if isStock[id] {
			rdeps, rerr := vars.ExtractDirectDeps(modelName, id, netFlow[id])
			list.Merge(rerr)
			directRun[id] = rdeps
		} else {
			directRun[id] = deps
		}
	}

	gInit := depgraph.New(directInit, isStock, true)
	_, orderInit, e1 := gInit.Resolve()
	list.Merge(e1)
	gRun := depgraph.New(directRun, isStock, false)
	_, orderRun, e2 := gRun.Resolve()
	list.Merge(e2)

	startOffset := 0
	if carryDt {
		startOffset = dtSlot + 1
	}
	localOffsets := make(map[string]int, len(ports)+len(allVars))
	next := startOffset
	for _, p := range ports {
		localOffsets[p] = next
		next++
	}
	var nonModuleIDs []string
	for id := range allVars {
		if !isModule[id] {
			nonModuleIDs = append(nonModuleIDs, id)
		}
	}
	sort.Strings(nonModuleIDs)
	for _, id := range nonModuleIDs {
		localOffsets[id] = next
		next++
	}
	windowSize := next
	if carryDt {
		alloc.next = windowSize
	}

	var moduleIDs []string
	for id := range allVars {
		if isModule[id] {
			moduleIDs = append(moduleIDs, id)
		}
	}
	sort.Strings(moduleIDs)

	globalOffset := map[string]int{"time": timeSlot, "dt": dtSlot}
	bindingCtx := &compiler.Context{SlotMap: localOffsets, GlobalOffset: globalOffset}

	moduleBase := map[string]int{}
	inputAssigns := map[string][]*compiler.AssignCurr{}

	for _, id := range moduleIDs {
		v := allVars[id]
		childVars, inst, found := resolveSubModel(v, proj)
		if !found {
			list.Add(errs.NewModelError(modelName, id, errs.BadModelName, "referenced sub-model \""+v.ModelName+"\" is not defined"))
			continue
		}

		template, ok := cache.lookup(inst)
		if !ok {
			template = compileLevel(v.ModelName, childVars, inst.InputSet, proj, alloc, cache, gfTables, false, list)
			cache.store(inst, template)
		}
		base := alloc.reserve(template.windowSize)
		alloc.register(base, template)
		moduleBase[id] = base

		if outOff, ok := template.localOffsets["output"]; ok {
			localOffsets[ident.OutputPort(id)] = base + outOff
		}
		for childID, childOff := range template.localOffsets {
			if isPort(childID, template.ports) {
				continue
			}
			localOffsets[id+"."+childID] = base + childOff
		}

		var assigns []*compiler.AssignCurr
		for _, b := range v.Bindings {
			dstOff, ok := template.localOffsets[b.Dst]
			if !ok {
				list.Add(errs.NewModelError(modelName, id, errs.BadBuiltinArgs, "unknown input port \""+b.Dst+"\""))
				continue
			}
			srcExpr := compiler.CompileOrZero(modelName, id, &ast.Var{Ident: ident.Canonicalize(b.Src)}, bindingCtx, list)
			assigns = append(assigns, &compiler.AssignCurr{Offset: dstOff, X: srcExpr})
		}
		inputAssigns[id] = assigns
	}

	ctx := &compiler.Context{SlotMap: localOffsets, GlobalOffset: globalOffset}

	compiledNonStock := map[string]compiler.Expr{}
	compiledStockInit := map[string]compiler.Expr{}
	compiledNetFlow := map[string]compiler.Expr{}
	for _, id := range nonModuleIDs {
		if isStock[id] {
			compiledStockInit[id] = compiler.CompileOrZero(modelName, id, lowered[id], ctx, list)
			compiledNetFlow[id] = compiler.CompileOrZero(modelName, id, netFlow[id], ctx, list)
			continue
		}
		compiled := compiler.CompileOrZero(modelName, id, lowered[id], ctx, list)
		if idx, ok := gfTableIdx[id]; ok {
			compiled = compiler.WrapGF(compiled, idx, true)
		}
		compiledNonStock[id] = compiled
	}

	var initials, flows, stocks []compiler.Expr
	for _, id := range orderInit {
		switch {
		case isModule[id]:
			initials = append(initials, &compiler.EvalModule{ModuleBase: moduleBase[id], InputAssigns: inputAssigns[id], Phase: compiler.Initials})
		case isStock[id]:
			initials = append(initials, &compiler.AssignCurr{Offset: localOffsets[id], X: compiledStockInit[id]})
		default:
			if x, ok := compiledNonStock[id]; ok {
				initials = append(initials, &compiler.AssignCurr{Offset: localOffsets[id], X: x})
			}
			// ports get no statement here: they're fed by the parent's InputAssigns.
		}
	}
	for _, id := range orderRun {
		switch {
		case isModule[id]:
			flows = append(flows, &compiler.EvalModule{ModuleBase: moduleBase[id], InputAssigns: inputAssigns[id], Phase: compiler.Flows})
			stocks = append(stocks, &compiler.EvalModule{ModuleBase: moduleBase[id], InputAssigns: inputAssigns[id], Phase: compiler.Stocks})
		case isStock[id]:
			off := localOffsets[id]
			update := &compiler.Op2{Op: ast.Add, L: &compiler.Var{Offset: off}, R: &compiler.Op2{
				Op: ast.Mul, L: compiledNetFlow[id], R: &compiler.GlobalVar{Offset: dtSlot},
			}}
			stocks = append(stocks, &compiler.AssignNext{Offset: off, X: update})
		default:
			if x, ok := compiledNonStock[id]; ok {
				flows = append(flows, &compiler.AssignCurr{Offset: localOffsets[id], X: x})
			}
		}
	}
	if carryDt {
		stocks = append(stocks, &compiler.AssignNext{Offset: dtSlot, X: &compiler.GlobalVar{Offset: dtSlot}})
	}

	vmInitials, e3 := bytecode.EmitRunlist(modelName, "initials", initials)
	vmFlows, e4 := bytecode.EmitRunlist(modelName, "flows", flows)
	vmStocks, e5 := bytecode.EmitRunlist(modelName, "stocks", stocks)
	list.Merge(e3)
	list.Merge(e4)
	list.Merge(e5)

	return &moduleTemplate{
		ports:        ports,
		localOffsets: localOffsets,
		windowSize:   windowSize,
		initials:     initials,
		flows:        flows,
		stocks:       stocks,
		vmInitials:   vmInitials,
		vmFlows:      vmFlows,
		vmStocks:     vmStocks,
	}
}

// expandVars discovers every variable reachable from variables by
// repeatedly parsing and lowering: lowering a stateful-builtin call
// synthesizes helper auxes and a module variable, which themselves need
// parsing and lowering. The fixed point is every ordinary variable plus
// every synthetic helper/module variable this level's equations expand
// into. lowered holds the lowered equation for every non-module variable.
func expandVars(modelName string, variables []model.Variable, list *errs.List) (map[string]model.Variable, map[string]ast.Expr0) {
	allVars := make(map[string]model.Variable, len(variables))
	lowered := make(map[string]ast.Expr0, len(variables))
	seen := make(map[string]bool, len(variables))

	pending := make([]model.Variable, len(variables))
	copy(pending, variables)

	for len(pending) > 0 {
		v := pending[0]
		pending = pending[1:]

		canon := ident.Canonicalize(v.Name)
		if canon == "" {
			list.Add(errs.NewModelError(modelName, v.Name, errs.BadModelName, "variable name canonicalizes to an empty string"))
			continue
		}
		if seen[canon] {
			continue
		}
		seen[canon] = true
		allVars[canon] = v

		if v.Kind == model.KindModule {
			continue
		}

		expr, perr := parser.Parse(modelName, canon, v.Eq.Text)
		list.Merge(perr)
		if !perr.Empty() {
			continue
		}
		lr, lerr := lower.Lower(canon, expr, false)
		list.Merge(lerr)
		lowered[canon] = lr.Expr
		pending = append(pending, lr.Helpers...)
	}

	return allVars, lowered
}

// resolveSubModel finds the model.Variables and input-port set a module
// variable instantiates, along with the stdlib.Instance identity that
// instances with the same compiled shape should share (per
// internal/stdlib.Enumerate's instance model). A stdlib builtin is always
// compiled against its full published port list (the catalog's source text
// is fixed and unconditional, so every call site to the same builtin
// shares one compiled program regardless of which subset it binds); a
// project-defined sub-model is compiled per distinct bound-input-set.
func resolveSubModel(v model.Variable, proj model.Project) (variables []model.Variable, inst stdlib.Instance, ok bool) {
	if builtin, isBuiltin := stdlibBuiltin(v.ModelName); isBuiltin {
		m, found := stdlib.Model(builtin)
		if !found {
			return nil, stdlib.Instance{}, false
		}
		p, _ := stdlib.Ports(builtin)
		return m.Variables, stdlib.Instance{ModelName: v.ModelName, InputSet: p}, true
	}

	m, found := findModel(proj, v.ModelName)
	if !found {
		return nil, stdlib.Instance{}, false
	}
	dst := make([]string, 0, len(v.Bindings))
	for _, b := range v.Bindings {
		dst = append(dst, b.Dst)
	}
	sort.Strings(dst)
	return m.Variables, stdlib.Instance{ModelName: v.ModelName, InputSet: dst}, true
}

func stdlibBuiltin(modelName string) (string, bool) {
	prefix := "stdlib" + string(ident.Sep)
	if strings.HasPrefix(modelName, prefix) {
		return modelName[len(prefix):], true
	}
	return "", false
}

func findModel(proj model.Project, name string) (model.Model, bool) {
	for _, m := range proj.Models {
		if m.Name == name {
			return m, true
		}
	}
	return model.Model{}, false
}

func isPort(id string, ports []string) bool {
	for _, p := range ports {
		if p == id {
			return true
		}
	}
	return false
}

// buildNetFlow constructs sum(inflows) - sum(outflows) directly as an AST,
// since the stock's own equation text only supplies its initial value
// (spec.md §3.2).
func buildNetFlow(inflows, outflows []string) ast.Expr0 {
	var sum ast.Expr0
	for _, id := range inflows {
		sum = addTerm(sum, &ast.Var{Ident: id}, true)
	}
	for _, id := range outflows {
		sum = addTerm(sum, &ast.Var{Ident: id}, false)
	}
	if sum == nil {
		return &ast.Const{Value: 0}
	}
	return sum
}

func addTerm(acc ast.Expr0, term ast.Expr0, positive bool) ast.Expr0 {
	if !positive {
		term = &ast.Op1{Op: ast.Neg, X: term}
	}
	if acc == nil {
		return term
	}
	return &ast.Op2{Op: ast.Add, L: acc, R: term}
}

func gfKind(k model.GFKind) gf.Kind {
	switch k {
	case model.GFExtrapolate:
		return gf.Extrapolate
	case model.GFDiscrete:
		return gf.Discrete
	default:
		return gf.Continuous
	}
}
