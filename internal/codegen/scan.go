package codegen

import (
	"strings"

	"github.com/lhaig/forpasc/internal/ast"
)

// callKind is the dispatch-priority bucket a call-shaped name falls into
// (spec.md §4.4's "call dispatch priority" list). Only callDirect and
// callIndirect correspond to an actual Wasm call/call_indirect; the rest
// lower to inline opcodes and never occupy a funcIndex slot.
type callKind int

const (
	callVectorCtor callKind = iota
	callScalarConv
	callSimdNamespaced
	callNativeBuiltin
	callWasmEscape
	callIndirect
	callDirect
)

func classifyCall(name string, scope map[string]*ast.TypeRef) callKind {
	if isVectorType(name) {
		return callVectorCtor
	}
	if isScalarPrim(name) {
		return callScalarConv
	}
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		ns := name[:dot]
		if isVectorType(ns) || ns == "v128" {
			return callSimdNamespaced
		}
	}
	if nativeBuiltins[name] {
		return callNativeBuiltin
	}
	if strings.HasPrefix(name, "wasm.") {
		return callWasmEscape
	}
	if t, ok := scope[name]; ok && t.Kind == ast.TypeFunction {
		return callIndirect
	}
	return callDirect
}

// scanBody walks a function/subroutine body recording every call-target
// name it resolves to callDirect against g.mathNeeded/hostNeeded/funcIndex
// so auto-imports can be synthesised before the Type/Import sections are
// emitted.
func (g *generator) scanBody(stmts []ast.Stmt, scope map[string]*ast.TypeRef) {
	for _, s := range stmts {
		g.scanStmt(s, scope)
	}
}

func (g *generator) scanStmt(s ast.Stmt, scope map[string]*ast.TypeRef) {
	switch st := s.(type) {
	case *ast.Assign:
		g.scanExpr(st.Value, scope)
	case *ast.ArrayStore:
		for _, idx := range st.Indices {
			g.scanExpr(idx, scope)
		}
		g.scanExpr(st.Value, scope)
	case *ast.If:
		g.scanExpr(st.Cond, scope)
		g.scanBody(st.Then, scope)
		g.scanBody(st.Else, scope)
	case *ast.For:
		g.scanExpr(st.Start, scope)
		g.scanExpr(st.Stop, scope)
		if st.Step != nil {
			g.scanExpr(st.Step, scope)
		}
		g.scanBody(st.Body, scope)
	case *ast.While:
		g.scanExpr(st.Cond, scope)
		g.scanBody(st.Body, scope)
	case *ast.DoWhile:
		g.scanBody(st.Body, scope)
		g.scanExpr(st.Cond, scope)
	case *ast.Break:
		// no call targets
	case *ast.Call:
		g.recordCallTarget(st.Name, scope)
		for _, a := range st.Args {
			g.scanExpr(a, scope)
		}
	case *ast.TailCall:
		g.recordCallTarget(st.Name, scope)
		for _, a := range st.Args {
			g.scanExpr(a, scope)
		}
	}
}

func (g *generator) scanExpr(e ast.Expr, scope map[string]*ast.TypeRef) {
	switch ex := e.(type) {
	case *ast.NumberLit, *ast.Ident, *ast.FuncRef:
		// leaves
	case *ast.BinOp:
		g.scanExpr(ex.Left, scope)
		g.scanExpr(ex.Right, scope)
		if ex.Op == "**" {
			// x ** 0.5 lowers to f64.sqrt with no call at all; every other
			// exponent calls the auto-imported math.pow. Mirrors emitPow's
			// isHalfLiteral special case so the import isn't synthesised
			// needlessly.
			if lit, ok := ex.Right.(*ast.NumberLit); !ok || !isHalfLiteral(lit) {
				g.mathNeeded["pow"] = true
			}
		}
	case *ast.UnaryOp:
		g.scanExpr(ex.Operand, scope)
	case *ast.FuncCall:
		g.recordCallTarget(ex.Name, scope)
		for _, a := range ex.Args {
			g.scanExpr(a, scope)
		}
	case *ast.ArrayAccess:
		for _, idx := range ex.Indices {
			g.scanExpr(idx, scope)
		}
	case *ast.IfExpr:
		g.scanExpr(ex.Cond, scope)
		g.scanExpr(ex.Then, scope)
		g.scanExpr(ex.Else, scope)
	}
}

// recordCallTarget resolves name's dispatch bucket; only callDirect names
// that are neither already-declared functions/subroutines/imports nor
// special-formed (return, etc.) need an auto-import synthesised.
func (g *generator) recordCallTarget(name string, scope map[string]*ast.TypeRef) {
	if classifyCall(name, scope) != callDirect {
		return
	}
	if g.funcDecls[name] != nil || g.subDecls[name] != nil {
		return
	}
	if _, ok := g.funcIndex[name]; ok {
		return
	}
	if _, ok := mathBuiltinArity[name]; ok {
		g.mathNeeded[name] = true
		return
	}
	if _, ok := g.opts.HostImports[name]; ok {
		g.hostNeeded[name] = true
		return
	}
	// Leave genuinely undefined names to be caught at emission time, once
	// the full index tables (including the function being compiled itself,
	// for recursive calls) are finalised.
}

// scanFuncRefs records every @name expression's target into names so
// buildTable can include it in the indirect-call table even when it is
// otherwise unreferenced by any direct call.
func (g *generator) scanFuncRefs(stmts []ast.Stmt, names map[string]bool) {
	var walkExpr func(ast.Expr)
	var walkStmt func(ast.Stmt)

	walkExpr = func(e ast.Expr) {
		switch ex := e.(type) {
		case *ast.FuncRef:
			names[ex.Name] = true
		case *ast.BinOp:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *ast.UnaryOp:
			walkExpr(ex.Operand)
		case *ast.FuncCall:
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *ast.ArrayAccess:
			for _, idx := range ex.Indices {
				walkExpr(idx)
			}
		case *ast.IfExpr:
			walkExpr(ex.Cond)
			walkExpr(ex.Then)
			walkExpr(ex.Else)
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.Assign:
			walkExpr(st.Value)
		case *ast.ArrayStore:
			for _, idx := range st.Indices {
				walkExpr(idx)
			}
			walkExpr(st.Value)
		case *ast.If:
			walkExpr(st.Cond)
			for _, b := range st.Then {
				walkStmt(b)
			}
			for _, b := range st.Else {
				walkStmt(b)
			}
		case *ast.For:
			walkExpr(st.Start)
			walkExpr(st.Stop)
			if st.Step != nil {
				walkExpr(st.Step)
			}
			for _, b := range st.Body {
				walkStmt(b)
			}
		case *ast.While:
			walkExpr(st.Cond)
			for _, b := range st.Body {
				walkStmt(b)
			}
		case *ast.DoWhile:
			for _, b := range st.Body {
				walkStmt(b)
			}
			walkExpr(st.Cond)
		case *ast.Call:
			for _, a := range st.Args {
				walkExpr(a)
			}
		case *ast.TailCall:
			for _, a := range st.Args {
				walkExpr(a)
			}
		}
	}

	for _, s := range stmts {
		walkStmt(s)
	}
}
