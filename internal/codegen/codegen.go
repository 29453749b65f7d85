// Package codegen translates a forpasc AST directly into a Wasm 1.0
// module with SIMD-128 and tail-call opcodes: no intermediate
// representation, no optimisation passes. It computes record layouts,
// builds the function/global/table/type index spaces, resolves math and
// host imports, and emits section bytes in the fixed module order.
package codegen

import (
	"fmt"
	"sort"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/bytewriter"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/lhaig/forpasc/internal/layout"
	"github.com/lhaig/forpasc/internal/wasmop"
	"github.com/samber/lo"
)

// Options carries the host-provided context spec.md §6's "imports object
// shape" describes: an externally supplied memory, and any top-level host
// functions (flattened to dotted keys) available to synthesise
// "host.<key>" imports from, keyed by their call arity.
type Options struct {
	HostImports       map[string]int
	HasExternalMemory bool
}

// Result carries the module bytes plus the two host-visible side tables
// spec.md §6 describes: the indirect-call table slot assignment and the
// computed layout offsets. Both are nil when the corresponding language
// feature is unused.
type Result struct {
	Bytes   []byte
	Table   map[string]uint32
	Layouts map[string]*layout.Layout
}

type funcInfo struct {
	name       string
	isImport   bool
	moduleName string
	sigID      int
	fn         *ast.Function
	sr         *ast.Subroutine
}

type globalInfo struct {
	name     string
	wasmType byte
	mutable  bool
	init     ast.Expr
	typeRef  *ast.TypeRef
}

type generator struct {
	opts Options

	globals     []globalInfo
	globalIndex map[string]uint32

	funcs       []funcInfo
	funcIndex   map[string]uint32
	importCount int
	// explicitImportCount is the number of entries in funcs[:importCount]
	// that came from an explicit ImportDecl, as opposed to a math/host
	// auto-import synthesised from usage. buildTable needs this split:
	// explicit imports always seed the indirect-call table, auto-imports
	// only if an @name reference to them turns up in a scan.
	explicitImportCount int

	sigTable []signature
	sigIndex map[string]int

	tableSlot  map[string]uint32
	tableOrder []string

	needsIndirect bool
	needsMemory   bool
	ownMemory     bool

	layouts map[string]*layout.Layout

	funcDecls map[string]*ast.Function
	subDecls  map[string]*ast.Subroutine

	mathNeeded map[string]bool
	hostNeeded map[string]bool
}

// Generate compiles prog into a Wasm module plus its side tables.
func Generate(prog *ast.Program, opts Options) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(compileError); ok {
				err = ce.err
				return
			}
			panic(r)
		}
	}()

	g := &generator{
		opts:        opts,
		globalIndex: make(map[string]uint32),
		funcIndex:   make(map[string]uint32),
		sigIndex:    make(map[string]int),
		tableSlot:   make(map[string]uint32),
		funcDecls:   make(map[string]*ast.Function),
		subDecls:    make(map[string]*ast.Subroutine),
		mathNeeded:  make(map[string]bool),
		hostNeeded:  make(map[string]bool),
	}

	var layoutDecls []*ast.LayoutDecl
	var explicitImports []*ast.ImportDecl
	var localFuncs []*ast.Function
	var localSubs []*ast.Subroutine

	// Pass 1: classify items.
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.ConstDecl:
			g.globals = append(g.globals, globalInfo{name: it.Name, wasmType: wasmTypeOf(it.Type), mutable: false, init: it.Init, typeRef: it.Type})
		case *ast.VarDecl:
			g.globals = append(g.globals, globalInfo{name: it.Name, wasmType: wasmTypeOf(it.Type), mutable: true, init: it.Init, typeRef: it.Type})
		case *ast.ImportDecl:
			explicitImports = append(explicitImports, it)
		case *ast.LayoutDecl:
			layoutDecls = append(layoutDecls, it)
		case *ast.Function:
			localFuncs = append(localFuncs, it)
			g.funcDecls[it.Name] = it
		case *ast.Subroutine:
			localSubs = append(localSubs, it)
			g.subDecls[it.Name] = it
		}
	}

	for i, gl := range g.globals {
		g.globalIndex[gl.name] = uint32(i)
	}

	// Register every function-typed param/local's call signature before any
	// section is emitted: emitCodeSection's call_indirect sites must only
	// ever look up an already-interned sigID, never append a new one after
	// the Type section bytes are already written.
	g.registerIndirectSigs(localFuncs, localSubs)

	// Pass 2: compute layouts.
	layouts, lerr := layout.Compute(layoutDecls)
	if lerr != nil {
		panic(compileError{lerr})
	}
	g.layouts = layouts

	// Explicit imports occupy [0, I) of funcIndex, in declaration order.
	for _, imp := range explicitImports {
		sig := g.signatureOf(paramTypes(imp.Params), imp.ReturnType)
		sigID := g.internSig(sig)
		g.registerFunc(funcInfo{name: imp.Name, isImport: true, moduleName: imp.ModuleName, sigID: sigID})
	}
	g.explicitImportCount = len(g.funcs)

	// Pass 3+4: scan call targets and function references across every body.
	for _, fn := range localFuncs {
		g.scanBody(fn.Body, scopeOf(fn.Params, fn.Locals))
	}
	for _, sr := range localSubs {
		g.scanBody(sr.Body, scopeOf(sr.Params, sr.Locals))
	}

	// Synthesise math/host auto-imports discovered by the scan. mathNeeded
	// and hostNeeded are sets (map[string]bool): ranging over a Go map
	// directly would make the import order, and therefore the emitted
	// bytes, vary run to run, violating Testable Property #6 ("for fixed
	// input, bytes are byte-identical across runs"). Sorting the names
	// lexicographically before registering them fixes the order.
	mathNames := lo.Keys(g.mathNeeded)
	sort.Strings(mathNames)
	for _, name := range mathNames {
		if _, exists := g.funcIndex[name]; exists {
			continue
		}
		arity := mathBuiltinArity[name]
		params := make([]*ast.TypeRef, arity)
		for i := range params {
			params[i] = &ast.TypeRef{Kind: ast.TypePrim, Prim: "f64"}
		}
		sig := g.signatureOf(params, &ast.TypeRef{Kind: ast.TypePrim, Prim: "f64"})
		sigID := g.internSig(sig)
		g.registerFunc(funcInfo{name: name, isImport: true, moduleName: "math", sigID: sigID})
	}
	hostNames := lo.Keys(g.hostNeeded)
	sort.Strings(hostNames)
	for _, name := range hostNames {
		if _, exists := g.funcIndex[name]; exists {
			continue
		}
		arity := g.opts.HostImports[name]
		params := make([]*ast.TypeRef, arity)
		for i := range params {
			params[i] = &ast.TypeRef{Kind: ast.TypePrim, Prim: "f64"}
		}
		sig := g.signatureOf(params, &ast.TypeRef{Kind: ast.TypePrim, Prim: "f64"})
		sigID := g.internSig(sig)
		g.registerFunc(funcInfo{name: name, isImport: true, moduleName: "host", sigID: sigID})
	}

	g.importCount = len(g.funcs)

	// Local functions/subroutines occupy [I, I+F) in declaration order.
	for _, fn := range localFuncs {
		sig := g.signatureOf(paramTypes(fn.Params), fn.ReturnType)
		sigID := g.internSig(sig)
		g.registerFunc(funcInfo{name: fn.Name, sigID: sigID, fn: fn})
	}
	for _, sr := range localSubs {
		sig := g.signatureOf(paramTypes(sr.Params), nil)
		sigID := g.internSig(sig)
		g.registerFunc(funcInfo{name: sr.Name, sigID: sigID, sr: sr})
	}

	// Pass 5: decide whether indirect calls are needed.
	g.needsIndirect = g.anyFunctionTyped(localFuncs, localSubs)

	// Pass 6: build the table slot assignment, sorted by funcIndex.
	if g.needsIndirect {
		g.buildTable(localFuncs, localSubs)
	}

	// Pass 7: decide memory ownership. An internal 1-page memory is
	// allocated when any function has an array parameter and no external
	// memory was supplied; when external memory was supplied, or a
	// program with no array usage still names it, it is imported as
	// env.memory instead. A program that never touches memory gets no
	// memory section or import at all.
	hasArrayUse := g.anyArrayParam(localFuncs, localSubs)
	g.needsMemory = hasArrayUse || g.opts.HasExternalMemory
	g.ownMemory = g.needsMemory && !g.opts.HasExternalMemory

	out := bytewriter.New()
	out.RawBytes(wasmop.Magic)
	out.RawBytes(wasmop.Version)

	g.emitTypeSection(out)
	g.emitImportSection(out)
	g.emitFunctionSection(out)
	g.emitTableSection(out)
	g.emitMemorySection(out)
	g.emitGlobalSection(out)
	g.emitExportSection(out)
	g.emitElementSection(out)
	g.emitCodeSection(out)

	res = &Result{Bytes: out.Bytes()}
	if len(layouts) > 0 {
		res.Layouts = layouts
	}
	if g.needsIndirect {
		res.Table = g.tableSlot
	}
	return res, nil
}

// compileError wraps a *diagnostic.SemanticError/OpcodeError for the
// panic/recover bailout at the package boundary, matching the parser's
// first-error-aborts contract.
type compileError struct{ err error }

func fail(line, col int, format string, args ...interface{}) {
	panic(compileError{&diagnostic.SemanticError{Message: fmt.Sprintf(format, args...), Line: line, Column: col}})
}

func failOpcode(line, col int, format string, args ...interface{}) {
	panic(compileError{&diagnostic.OpcodeError{Message: fmt.Sprintf(format, args...), Line: line, Column: col}})
}

func (g *generator) registerFunc(fi funcInfo) {
	g.funcIndex[fi.name] = uint32(len(g.funcs))
	g.funcs = append(g.funcs, fi)
}

func (g *generator) signatureOf(params []*ast.TypeRef, ret *ast.TypeRef) signature {
	sig := signature{}
	for _, p := range params {
		sig.params = append(sig.params, wasmTypeOf(p))
	}
	if ret != nil {
		sig.hasRes = true
		sig.result = wasmTypeOf(ret)
	}
	return sig
}

func (g *generator) internSig(sig signature) int {
	key := sig.key()
	if id, ok := g.sigIndex[key]; ok {
		return id
	}
	id := len(g.sigTable)
	g.sigTable = append(g.sigTable, sig)
	g.sigIndex[key] = id
	return id
}

func paramTypes(params []*ast.Param) []*ast.TypeRef {
	out := make([]*ast.TypeRef, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// scopeOf builds the name -> declared-type map for one function/subroutine
// body: params and locals share the same namespace.
func scopeOf(params, locals []*ast.Param) map[string]*ast.TypeRef {
	scope := make(map[string]*ast.TypeRef, len(params)+len(locals))
	for _, p := range params {
		scope[p.Name] = p.Type
	}
	for _, l := range locals {
		scope[l.Name] = l.Type
	}
	return scope
}

func (g *generator) anyFunctionTyped(fns []*ast.Function, subs []*ast.Subroutine) bool {
	check := func(params, locals []*ast.Param) bool {
		for _, p := range params {
			if p.Type.Kind == ast.TypeFunction {
				return true
			}
		}
		for _, l := range locals {
			if l.Type.Kind == ast.TypeFunction {
				return true
			}
		}
		return false
	}
	for _, gl := range g.globals {
		if gl.typeRef != nil && gl.typeRef.Kind == ast.TypeFunction {
			return true
		}
	}
	for _, fn := range fns {
		if check(fn.Params, fn.Locals) {
			return true
		}
	}
	for _, sr := range subs {
		if check(sr.Params, sr.Locals) {
			return true
		}
	}
	return false
}

func (g *generator) anyArrayParam(fns []*ast.Function, subs []*ast.Subroutine) bool {
	hasArray := func(params []*ast.Param) bool {
		for _, p := range params {
			if p.Type.Kind == ast.TypeArray {
				return true
			}
		}
		return false
	}
	for _, fn := range fns {
		if hasArray(fn.Params) {
			return true
		}
	}
	for _, sr := range subs {
		if hasArray(sr.Params) {
			return true
		}
	}
	return false
}

// registerIndirectSigs interns the call signature of every function-typed
// global/param/local up front, so call_indirect emission later only ever
// performs a lookup against an already-finalised Type section.
func (g *generator) registerIndirectSigs(fns []*ast.Function, subs []*ast.Subroutine) {
	register := func(t *ast.TypeRef) {
		if t != nil && t.Kind == ast.TypeFunction && t.FuncSig != nil {
			sig := g.signatureOf(t.FuncSig.ParamTypes, t.FuncSig.ReturnType)
			g.internSig(sig)
		}
	}
	for _, gl := range g.globals {
		register(gl.typeRef)
	}
	for _, fn := range fns {
		for _, p := range fn.Params {
			register(p.Type)
		}
		for _, l := range fn.Locals {
			register(l.Type)
		}
	}
	for _, sr := range subs {
		for _, p := range sr.Params {
			register(p.Type)
		}
		for _, l := range sr.Locals {
			register(l.Type)
		}
	}
}

// buildTable populates tableSlot/tableOrder: every explicit import, every
// local function/subroutine, plus any extra @name-referenced target, all
// sorted by funcIndex for deterministic linearisation. Auto-imported
// math/host builtins (funcs[explicitImportCount:importCount]) are NOT
// seeded here unconditionally -- they enter the table only if scanFuncRefs
// below turns up an actual @name reference to them, matching the rule that
// an auto-import used only via its operator/call form (e.g. `**` lowering
// to math.pow) never needs a table slot of its own.
func (g *generator) buildTable(fns []*ast.Function, subs []*ast.Subroutine) {
	names := make(map[string]bool)
	for _, fi := range g.funcs[:g.explicitImportCount] {
		names[fi.name] = true
	}
	for _, fn := range fns {
		names[fn.Name] = true
	}
	for _, sr := range subs {
		names[sr.Name] = true
	}
	for _, fn := range fns {
		g.scanFuncRefs(fn.Body, names)
	}
	for _, sr := range subs {
		g.scanFuncRefs(sr.Body, names)
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	// Sort by funcIndex (spec.md's determinism requirement).
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && g.funcIndex[ordered[j-1]] > g.funcIndex[ordered[j]]; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	for i, name := range ordered {
		g.tableSlot[name] = uint32(i)
	}
	g.tableOrder = ordered
}
