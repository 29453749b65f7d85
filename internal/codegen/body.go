package codegen

import (
	"strings"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/bytewriter"
	"github.com/lhaig/forpasc/internal/wasmop"
)

type varKind int

const (
	varLocal varKind = iota
	varGlobal
)

// funcCtx is the short-lived per-function state borrowed during body
// emission: the local map, break-target stack, and current block depth.
// It does not outlive emitFunctionBody.
type funcCtx struct {
	g *generator

	name    string
	retType *ast.TypeRef // nil for subroutine

	localIndex map[string]uint32
	localType  map[string]*ast.TypeRef
	nextLocal  uint32
	localWasm  []byte // wasm value type of every local beyond the parameters, in allocation order

	returnIdx uint32 // $_return local index, valid iff retType != nil

	body *bytewriter.Writer

	blockDepth  int
	breakDepths []int
}

func (fc *funcCtx) lookupVar(name string) (varKind, uint32, *ast.TypeRef, bool) {
	if t, ok := fc.localType[name]; ok {
		return varLocal, fc.localIndex[name], t, true
	}
	if idx, ok := fc.g.globalIndex[name]; ok {
		for _, gl := range fc.g.globals {
			if gl.name == name {
				return varGlobal, idx, gl.typeRef, true
			}
		}
	}
	return 0, 0, nil, false
}

func (g *generator) emitFunctionBody(fi funcInfo) []byte {
	var params []*ast.Param
	var locals []*ast.Param
	var body []ast.Stmt
	var retType *ast.TypeRef
	var name string

	if fi.fn != nil {
		params, locals, body, retType, name = fi.fn.Params, fi.fn.Locals, fi.fn.Body, fi.fn.ReturnType, fi.fn.Name
	} else {
		params, locals, body, name = fi.sr.Params, fi.sr.Locals, fi.sr.Body, fi.sr.Name
	}

	fc := &funcCtx{
		g:          g,
		name:       name,
		retType:    retType,
		localIndex: make(map[string]uint32),
		localType:  make(map[string]*ast.TypeRef),
		body:       bytewriter.New(),
	}

	for i, p := range params {
		fc.localIndex[p.Name] = uint32(i)
		fc.localType[p.Name] = p.Type
	}
	fc.nextLocal = uint32(len(params))

	for _, l := range locals {
		fc.localIndex[l.Name] = fc.nextLocal
		fc.localType[l.Name] = l.Type
		fc.localWasm = append(fc.localWasm, wasmTypeOf(l.Type))
		fc.nextLocal++
	}

	if retType != nil {
		fc.returnIdx = fc.nextLocal
		fc.localWasm = append(fc.localWasm, wasmTypeOf(retType))
		fc.nextLocal++
	}

	for _, s := range body {
		fc.emitStmt(s)
	}

	if retType != nil {
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(fc.returnIdx)
	}
	fc.body.Byte(wasmop.OpEnd)

	out := bytewriter.New()
	groups := compactLocalRuns(fc.localWasm)
	out.U32(uint32(len(groups)))
	for _, gr := range groups {
		out.U32(uint32(gr.count))
		out.Byte(gr.wasmType)
	}
	out.RawBytes(fc.body.Bytes())
	return out.Bytes()
}

type localRun struct {
	count    int
	wasmType byte
}

// compactLocalRuns groups consecutive identical-type locals into runs, the
// compact encoding the Wasm locals declaration expects.
func compactLocalRuns(types []byte) []localRun {
	if len(types) == 0 {
		return nil
	}
	var runs []localRun
	cur := localRun{count: 1, wasmType: types[0]}
	for _, t := range types[1:] {
		if t == cur.wasmType {
			cur.count++
			continue
		}
		runs = append(runs, cur)
		cur = localRun{count: 1, wasmType: t}
	}
	return append(runs, cur)
}

func (fc *funcCtx) emitStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Assign:
		fc.emitAssign(st)
	case *ast.ArrayStore:
		fc.emitArrayStore(st)
	case *ast.If:
		fc.emitIf(st)
	case *ast.For:
		fc.emitFor(st)
	case *ast.While:
		fc.emitWhile(st)
	case *ast.DoWhile:
		fc.emitDoWhile(st)
	case *ast.Break:
		fc.emitBreak(st)
	case *ast.Call:
		fc.emitCallStmt(st)
	case *ast.TailCall:
		fc.emitTailCallStmt(st)
	}
}

// emitAssign handles: writing the function's own name (the accumulator
// convention), a dotted layout-field path, a local, or a global.
func (fc *funcCtx) emitAssign(a *ast.Assign) {
	line, col := a.Line, a.Column

	if strings.Contains(a.Name, ".") {
		fc.emitLayoutFieldAssign(a.Name, a.Op, a.Value, line, col)
		return
	}

	if a.Name == fc.name && fc.retType != nil {
		fc.emitCompoundOrPlain(a.Op, wasmTypeOf(fc.retType), func() { fc.body.Byte(wasmop.OpLocalGet); fc.body.U32(fc.returnIdx) }, a.Value, line, col)
		fc.body.Byte(wasmop.OpLocalSet)
		fc.body.U32(fc.returnIdx)
		return
	}

	kind, idx, t, ok := fc.lookupVar(a.Name)
	if !ok {
		fail(line, col, "undefined name %q", a.Name)
	}
	wt := wasmTypeOf(t)
	getCur := func() {
		if kind == varLocal {
			fc.body.Byte(wasmop.OpLocalGet)
		} else {
			fc.body.Byte(wasmop.OpGlobalGet)
		}
		fc.body.U32(idx)
	}
	fc.emitCompoundOrPlain(a.Op, wt, getCur, a.Value, line, col)
	if kind == varLocal {
		fc.body.Byte(wasmop.OpLocalSet)
	} else {
		fc.body.Byte(wasmop.OpGlobalSet)
	}
	fc.body.U32(idx)
}

// emitCompoundOrPlain emits the rvalue for `:=`, or current-op-rvalue for
// the `+= -= *= /=` family, leaving exactly one value of type wt on the
// stack for the caller to store.
func (fc *funcCtx) emitCompoundOrPlain(op string, wt byte, getCur func(), value ast.Expr, line, col int) {
	if op == ":=" {
		fc.emitExprAs(value, wt)
		return
	}
	getCur()
	fc.emitExprAs(value, wt)
	switch op {
	case "+=":
		fc.body.Byte(arithOp("+", wt))
	case "-=":
		fc.body.Byte(arithOp("-", wt))
	case "*=":
		fc.body.Byte(arithOp("*", wt))
	case "/=":
		fc.body.Byte(arithOp("/", wt))
	default:
		fail(line, col, "unsupported assignment operator %q", op)
	}
}

func (fc *funcCtx) emitLayoutFieldAssign(name, op string, value ast.Expr, line, col int) {
	base, wt, _, isNested := fc.resolveFieldPath(name, line, col)
	if isNested {
		fail(line, col, "cannot assign to %q: it names a nested layout, not a scalar field", name)
	}
	fc.emitFieldBase(base)
	if base.offset > 0 {
		fc.body.Byte(wasmop.OpI32Const)
		fc.body.S32(int32(base.offset))
		fc.body.Byte(wasmop.OpI32Add)
	}
	if op != ":=" {
		fail(line, col, "compound assignment to layout field %q is not supported", name)
	}
	fc.emitExprAs(value, wt)
	fc.emitTypedStore(wt, alignExp(wt))
}

type fieldBase struct {
	kind   varKind
	idx    uint32
	offset int
}

func (fc *funcCtx) emitFieldBase(b fieldBase) {
	if b.kind == varLocal {
		fc.body.Byte(wasmop.OpLocalGet)
	} else {
		fc.body.Byte(wasmop.OpGlobalGet)
	}
	fc.body.U32(b.idx)
}

// resolveFieldPath walks a dotted "root.field[.field...]" path rooted at a
// layout-typed local or global, returning the root's storage location
// (with accumulated byte offset), the final field's wasm type/prim name,
// and whether the final field is itself a nested layout (inlined in-place,
// so referencing it alone yields its address rather than a loaded value).
func (fc *funcCtx) resolveFieldPath(full string, line, col int) (fieldBase, byte, string, bool) {
	parts := strings.Split(full, ".")
	kind, idx, t, ok := fc.lookupVar(parts[0])
	if !ok {
		fail(line, col, "undefined name %q", parts[0])
	}
	if t.Kind != ast.TypeLayout {
		fail(line, col, "%q is not a layout-typed value", parts[0])
	}
	layoutName := t.LayoutName
	offset := 0
	var finalPrim string
	var finalWT byte
	var isNested bool

	for i := 1; i < len(parts); i++ {
		lay, ok := fc.g.layouts[layoutName]
		if !ok {
			fail(line, col, "unknown layout %q", layoutName)
		}
		f, ok := lay.FieldByName(parts[i])
		if !ok {
			fail(line, col, "layout %q has no field %q", layoutName, parts[i])
		}
		offset += f.Offset
		if i == len(parts)-1 {
			if f.Prim != "" {
				finalPrim = f.Prim
				finalWT = valueType(f.Prim)
			} else {
				finalWT = wasmop.ValI32 // address of the inlined nested layout
				isNested = true
			}
			break
		}
		if f.NestedLayout == "" {
			fail(line, col, "field %q is not a layout, cannot access %q", parts[i], parts[i+1])
		}
		layoutName = f.NestedLayout
	}

	return fieldBase{kind: kind, idx: idx, offset: offset}, finalWT, finalPrim, isNested
}

func (fc *funcCtx) emitArrayStore(a *ast.ArrayStore) {
	line, col := a.Line, a.Column
	if a.Op != ":=" {
		fail(line, col, "compound assignment to array elements is not supported")
	}
	elemWT, elemAlign := fc.emitArrayAddress(a.Name, a.Indices, line, col)
	fc.emitExprAs(a.Value, elemWT)
	fc.emitTypedStore(elemWT, elemAlign)
}

func (fc *funcCtx) emitIf(s *ast.If) {
	fc.emitExprAs(s.Cond, wasmop.ValI32)
	fc.body.Byte(wasmop.OpIf)
	fc.body.Byte(wasmop.BlockVoid)
	fc.blockDepth++
	for _, b := range s.Then {
		fc.emitStmt(b)
	}
	if len(s.Else) > 0 {
		fc.body.Byte(wasmop.OpElse)
		for _, b := range s.Else {
			fc.emitStmt(b)
		}
	}
	fc.body.Byte(wasmop.OpEnd)
	fc.blockDepth--
}

func (fc *funcCtx) pushLoop() (breakDepth int) {
	fc.body.Byte(wasmop.OpBlock)
	fc.body.Byte(wasmop.BlockVoid)
	fc.blockDepth++
	breakDepth = fc.blockDepth
	fc.breakDepths = append(fc.breakDepths, breakDepth)

	fc.body.Byte(wasmop.OpLoop)
	fc.body.Byte(wasmop.BlockVoid)
	fc.blockDepth++
	return breakDepth
}

func (fc *funcCtx) popLoop() {
	fc.body.Byte(wasmop.OpEnd) // loop
	fc.blockDepth--
	fc.body.Byte(wasmop.OpEnd) // block
	fc.blockDepth--
	fc.breakDepths = fc.breakDepths[:len(fc.breakDepths)-1]
}

// emitFor lowers `for var := start, stop[, step] ... end for` to a
// block+loop pair: the loop variable is pre-set to start, the comparison
// direction depends on the step's sign (constant negative steps use <=,
// everything else uses >=), br_if exits to the outer block, the step (or
// +1) is added, and br 0 continues.
func (fc *funcCtx) emitFor(s *ast.For) {
	line, col := s.Line, s.Column
	_, idx, t, ok := fc.lookupVar(s.Var)
	if !ok {
		fail(line, col, "undefined loop variable %q", s.Var)
	}
	wt := wasmTypeOf(t)

	fc.emitExprAs(s.Start, wt)
	fc.body.Byte(wasmop.OpLocalSet)
	fc.body.U32(idx)

	stopIdx := fc.allocAnonLocal(wt)
	fc.emitExprAs(s.Stop, wt)
	fc.body.Byte(wasmop.OpLocalSet)
	fc.body.U32(stopIdx)

	negativeConstStep := false
	if s.Step != nil {
		if u, ok := s.Step.(*ast.UnaryOp); ok && u.Op == "-" {
			if _, isLit := u.Operand.(*ast.NumberLit); isLit {
				negativeConstStep = true
			}
		}
	}

	fc.pushLoop()

	// Termination test: branch out of the enclosing block once idx <= stop
	// for a negative constant step, idx >= stop otherwise.
	fc.body.Byte(wasmop.OpLocalGet)
	fc.body.U32(idx)
	fc.body.Byte(wasmop.OpLocalGet)
	fc.body.U32(stopIdx)
	if negativeConstStep {
		fc.body.Byte(compareOp("<=", wt, false))
	} else {
		fc.body.Byte(compareOp(">=", wt, false))
	}
	fc.body.Byte(wasmop.OpBrIf)
	fc.body.U32(1)

	for _, b := range s.Body {
		fc.emitStmt(b)
	}

	fc.body.Byte(wasmop.OpLocalGet)
	fc.body.U32(idx)
	if s.Step != nil {
		fc.emitExprAs(s.Step, wt)
	} else {
		fc.emitOneConst(wt)
	}
	fc.body.Byte(arithOp("+", wt))
	fc.body.Byte(wasmop.OpLocalSet)
	fc.body.U32(idx)

	fc.body.Byte(wasmop.OpBr)
	fc.body.U32(0)

	fc.popLoop()
}

func (fc *funcCtx) emitOneConst(wt byte) {
	switch wt {
	case wasmop.ValI64:
		fc.body.Byte(wasmop.OpI64Const)
		fc.body.S64(1)
	case wasmop.ValF32:
		fc.body.Byte(wasmop.OpF32Const)
		fc.body.F32(1)
	case wasmop.ValF64:
		fc.body.Byte(wasmop.OpF64Const)
		fc.body.F64(1)
	default:
		fc.body.Byte(wasmop.OpI32Const)
		fc.body.S32(1)
	}
}

func (fc *funcCtx) allocAnonLocal(wt byte) uint32 {
	idx := fc.nextLocal
	fc.nextLocal++
	fc.localWasm = append(fc.localWasm, wt)
	return idx
}

func (fc *funcCtx) emitWhile(s *ast.While) {
	fc.pushLoop()
	fc.emitExprAs(s.Cond, wasmop.ValI32)
	fc.body.Byte(wasmop.OpI32Eqz)
	fc.body.Byte(wasmop.OpBrIf)
	fc.body.U32(1)
	for _, b := range s.Body {
		fc.emitStmt(b)
	}
	fc.body.Byte(wasmop.OpBr)
	fc.body.U32(0)
	fc.popLoop()
}

func (fc *funcCtx) emitDoWhile(s *ast.DoWhile) {
	fc.pushLoop()
	for _, b := range s.Body {
		fc.emitStmt(b)
	}
	fc.emitExprAs(s.Cond, wasmop.ValI32)
	fc.body.Byte(wasmop.OpBrIf)
	fc.body.U32(0)
	fc.popLoop()
}

func (fc *funcCtx) emitBreak(b *ast.Break) {
	if len(fc.breakDepths) == 0 {
		fail(b.Line, b.Column, "break outside a loop")
	}
	target := fc.breakDepths[len(fc.breakDepths)-1]
	depth := fc.blockDepth - target
	fc.body.Byte(wasmop.OpBr)
	fc.body.U32(uint32(depth))
}

func (fc *funcCtx) emitCallStmt(c *ast.Call) {
	if c.Name == "return" {
		if len(c.Args) > 1 {
			fail(c.Line, c.Column, "return() takes at most one argument")
		}
		if fc.retType != nil {
			if len(c.Args) != 1 {
				fail(c.Line, c.Column, "return() inside a function requires exactly one argument")
			}
			fc.emitExprAs(c.Args[0], wasmTypeOf(fc.retType))
		} else if len(c.Args) != 0 {
			fail(c.Line, c.Column, "return() inside a subroutine takes no arguments")
		}
		fc.body.Byte(wasmop.OpReturn)
		return
	}
	wt := fc.emitCallDispatch(c.Name, c.Args, false, c.Line, c.Column, 0)
	if wt != noValue {
		fc.body.Byte(wasmop.OpDrop)
	}
}

func (fc *funcCtx) emitTailCallStmt(t *ast.TailCall) {
	// return_call transfers control away permanently; any result it would
	// have produced is never seen by this function, so nothing to drop.
	fc.emitCallDispatch(t.Name, t.Args, true, t.Line, t.Column, 0)
}
