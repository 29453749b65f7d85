package codegen

import (
	"math"
	"strconv"
	"strings"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/wasmop"
)

// noValue marks a call dispatch that produced no result (a subroutine call,
// a memory.grow-style side effect aside, see below) — 0 is never a real
// value-type byte (those all sit at 0x7B-0x7F), so it doubles safely as
// the sentinel.
const noValue byte = 0

// emitExpr emits e and returns the wasm value type it leaves on the stack.
// hint carries the target type a caller already knows (an assignment's
// lhs type, a call's declared parameter type); it only affects bare
// unsuffixed literals and the few call forms whose result type is
// otherwise ambiguous.
func (fc *funcCtx) emitExpr(e ast.Expr, hint byte) byte {
	switch ex := e.(type) {
	case *ast.NumberLit:
		wt := inferLiteralType(ex)
		if ex.Suffix == "" && !ex.IsFloat && hint != 0 {
			wt = hint
		}
		emitNumberLitConst(fc.body, wt, ex, false)
		return wt
	case *ast.Ident:
		return fc.emitIdentGet(ex)
	case *ast.UnaryOp:
		return fc.emitUnaryOp(ex, hint)
	case *ast.BinOp:
		return fc.emitBinOp(ex, hint)
	case *ast.FuncCall:
		return fc.emitFuncCallExpr(ex, hint)
	case *ast.FuncRef:
		return fc.emitFuncRefExpr(ex)
	case *ast.ArrayAccess:
		return fc.emitArrayAccessExpr(ex)
	case *ast.IfExpr:
		return fc.emitIfExprExpr(ex, hint)
	}
	line, col := e.Pos()
	fail(line, col, "unsupported expression")
	return wasmop.ValI32
}

// emitExprAs emits e and coerces it to want via a numeric conversion
// opcode if its natural type differs.
func (fc *funcCtx) emitExprAs(e ast.Expr, want byte) {
	got := fc.emitExpr(e, want)
	fc.convert(got, want, e)
}

func (fc *funcCtx) convert(from, to byte, e ast.Expr) {
	if from == to || to == 0 || from == noValue {
		return
	}
	line, col := e.Pos()
	switch {
	case from == wasmop.ValI32 && to == wasmop.ValI64:
		fc.body.Byte(wasmop.OpI64ExtendI32S)
	case from == wasmop.ValI64 && to == wasmop.ValI32:
		fc.body.Byte(wasmop.OpI32WrapI64)
	case from == wasmop.ValI32 && to == wasmop.ValF32:
		fc.body.Byte(wasmop.OpF32ConvertI32S)
	case from == wasmop.ValI32 && to == wasmop.ValF64:
		fc.body.Byte(wasmop.OpF64ConvertI32S)
	case from == wasmop.ValI64 && to == wasmop.ValF32:
		fc.body.Byte(wasmop.OpF32ConvertI64S)
	case from == wasmop.ValI64 && to == wasmop.ValF64:
		fc.body.Byte(wasmop.OpF64ConvertI64S)
	case from == wasmop.ValF32 && to == wasmop.ValF64:
		fc.body.Byte(wasmop.OpF64PromoteF32)
	case from == wasmop.ValF64 && to == wasmop.ValF32:
		fc.body.Byte(wasmop.OpF32DemoteF64)
	case from == wasmop.ValF32 && to == wasmop.ValI32:
		fc.body.Byte(wasmop.OpI32TruncF32S)
	case from == wasmop.ValF64 && to == wasmop.ValI32:
		fc.body.Byte(wasmop.OpI32TruncF64S)
	case from == wasmop.ValF32 && to == wasmop.ValI64:
		fc.body.Byte(wasmop.OpI64TruncF32S)
	case from == wasmop.ValF64 && to == wasmop.ValI64:
		fc.body.Byte(wasmop.OpI64TruncF64S)
	default:
		fail(line, col, "cannot convert between incompatible value types")
	}
}

func (fc *funcCtx) emitTypedLoad(wt byte, align uint32) {
	if wt == wasmop.ValV128 {
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(wasmop.SubV128Load)
		fc.body.U32(align)
		fc.body.U32(0)
		return
	}
	fc.body.Byte(loadOp(wt))
	fc.body.U32(align)
	fc.body.U32(0)
}

func (fc *funcCtx) emitTypedStore(wt byte, align uint32) {
	if wt == wasmop.ValV128 {
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(wasmop.SubV128Store)
		fc.body.U32(align)
		fc.body.U32(0)
		return
	}
	fc.body.Byte(storeOp(wt))
	fc.body.U32(align)
	fc.body.U32(0)
}

func (fc *funcCtx) emitIdentGet(ex *ast.Ident) byte {
	name := ex.Name
	if strings.Contains(name, ".") {
		base, wt, _, isNested := fc.resolveFieldPath(name, ex.Line, ex.Column)
		fc.emitFieldBase(base)
		if base.offset > 0 {
			fc.body.Byte(wasmop.OpI32Const)
			fc.body.S32(int32(base.offset))
			fc.body.Byte(wasmop.OpI32Add)
		}
		if isNested {
			// The field is an inlined nested layout: its "value" is its
			// address, already on the stack, not a loaded scalar.
			return wt
		}
		fc.emitTypedLoad(wt, alignExp(wt))
		return wt
	}
	if name == fc.name && fc.retType != nil {
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(fc.returnIdx)
		return wasmTypeOf(fc.retType)
	}
	kind, idx, t, ok := fc.lookupVar(name)
	if !ok {
		fail(ex.Line, ex.Column, "undefined name %q", name)
	}
	if kind == varLocal {
		fc.body.Byte(wasmop.OpLocalGet)
	} else {
		fc.body.Byte(wasmop.OpGlobalGet)
	}
	fc.body.U32(idx)
	return wasmTypeOf(t)
}

// inferType statically determines e's wasm value type without emitting any
// bytes, needed wherever a decision (which opcode, which operand type) must
// be made before the operand itself is emitted.
func (fc *funcCtx) inferType(e ast.Expr, hint byte) byte {
	switch ex := e.(type) {
	case *ast.NumberLit:
		if ex.Suffix != "" {
			return valueType(ex.Suffix)
		}
		if ex.IsFloat {
			return wasmop.ValF64
		}
		if hint != 0 {
			return hint
		}
		return wasmop.ValI32
	case *ast.Ident:
		name := ex.Name
		if strings.Contains(name, ".") {
			_, wt, _, _ := fc.resolveFieldPath(name, ex.Line, ex.Column)
			return wt
		}
		if name == fc.name && fc.retType != nil {
			return wasmTypeOf(fc.retType)
		}
		if _, _, t, ok := fc.lookupVar(name); ok {
			return wasmTypeOf(t)
		}
		return wasmop.ValI32
	case *ast.UnaryOp:
		if ex.Op == "not" {
			return wasmop.ValI32
		}
		return fc.inferType(ex.Operand, hint)
	case *ast.BinOp:
		return fc.inferBinOpType(ex, hint)
	case *ast.FuncCall:
		return fc.inferCallType(ex, hint)
	case *ast.FuncRef:
		return wasmop.ValI32
	case *ast.ArrayAccess:
		if _, _, t, ok := fc.lookupVar(ex.Name); ok && t.Kind == ast.TypeArray {
			return valueType(t.Prim)
		}
		return wasmop.ValI32
	case *ast.IfExpr:
		return fc.inferType(ex.Then, hint)
	}
	return wasmop.ValI32
}

func (fc *funcCtx) inferBinOpType(ex *ast.BinOp, hint byte) byte {
	switch ex.Op {
	case "<", ">", "<=", ">=", "==", "/=", "and", "or":
		return wasmop.ValI32
	case "**":
		return wasmop.ValF64
	default:
		return fc.inferType(ex.Left, hint)
	}
}

func (fc *funcCtx) inferCallType(ex *ast.FuncCall, hint byte) byte {
	switch classifyCall(ex.Name, fc.localType) {
	case callVectorCtor:
		return wasmop.ValV128
	case callScalarConv:
		return valueType(ex.Name)
	case callSimdNamespaced:
		dot := strings.IndexByte(ex.Name, '.')
		ns, op := ex.Name[:dot], ex.Name[dot+1:]
		if op == "extract_lane" {
			return laneType(ns)
		}
		return wasmop.ValV128
	case callNativeBuiltin:
		if ex.Name == "memory_size" || ex.Name == "memory_grow" {
			return wasmop.ValI32
		}
		if len(ex.Args) > 0 {
			return fc.inferType(ex.Args[0], hint)
		}
		if hint != 0 {
			return hint
		}
		return wasmop.ValF64
	case callWasmEscape:
		if hint != 0 {
			return hint
		}
		return wasmop.ValI32
	case callIndirect:
		if t := fc.localType[ex.Name]; t != nil && t.FuncSig != nil && t.FuncSig.ReturnType != nil {
			return wasmTypeOf(t.FuncSig.ReturnType)
		}
		return wasmop.ValI32
	default: // callDirect
		if fn := fc.g.funcDecls[ex.Name]; fn != nil && fn.ReturnType != nil {
			return wasmTypeOf(fn.ReturnType)
		}
		if _, ok := mathBuiltinArity[ex.Name]; ok {
			return wasmop.ValF64
		}
		if _, ok := fc.g.opts.HostImports[ex.Name]; ok {
			return wasmop.ValF64
		}
		return wasmop.ValI32
	}
}

func (fc *funcCtx) emitUnaryOp(ex *ast.UnaryOp, hint byte) byte {
	switch ex.Op {
	case "-":
		if lit, ok := ex.Operand.(*ast.NumberLit); ok {
			wt := inferLiteralType(lit)
			if lit.Suffix == "" && !lit.IsFloat && hint != 0 {
				wt = hint
			}
			emitNumberLitConst(fc.body, wt, lit, true)
			return wt
		}
		wt := fc.inferType(ex.Operand, hint)
		switch wt {
		case wasmop.ValF32:
			fc.emitExprAs(ex.Operand, wt)
			fc.body.Byte(wasmop.OpF32Neg)
		case wasmop.ValF64:
			fc.emitExprAs(ex.Operand, wt)
			fc.body.Byte(wasmop.OpF64Neg)
		case wasmop.ValI64:
			fc.body.Byte(wasmop.OpI64Const)
			fc.body.S64(0)
			fc.emitExprAs(ex.Operand, wt)
			fc.body.Byte(wasmop.OpI64Sub)
		default:
			fc.body.Byte(wasmop.OpI32Const)
			fc.body.S32(0)
			fc.emitExprAs(ex.Operand, wasmop.ValI32)
			fc.body.Byte(wasmop.OpI32Sub)
			wt = wasmop.ValI32
		}
		return wt
	case "not":
		// not always lowers to i32.eqz regardless of operand width — an
		// accepted simplification, see the Open Question in DESIGN.md.
		fc.emitExprAs(ex.Operand, wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Eqz)
		return wasmop.ValI32
	case "~":
		wt := fc.inferType(ex.Operand, hint)
		if wt == wasmop.ValI64 {
			fc.emitExprAs(ex.Operand, wt)
			fc.body.Byte(wasmop.OpI64Const)
			fc.body.S64(-1)
			fc.body.Byte(wasmop.OpI64Xor)
			return wt
		}
		fc.emitExprAs(ex.Operand, wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Const)
		fc.body.S32(-1)
		fc.body.Byte(wasmop.OpI32Xor)
		return wasmop.ValI32
	}
	fail(ex.Line, ex.Column, "unsupported unary operator %q", ex.Op)
	return wasmop.ValI32
}

// emitBinOp implements spec.md's non-short-circuiting and/or (both
// operands always evaluated, combined with a plain bitwise and/or on their
// i32 boolean representation) alongside the ordinary arithmetic/comparison
// operators.
func (fc *funcCtx) emitBinOp(ex *ast.BinOp, hint byte) byte {
	switch ex.Op {
	case "and", "or":
		fc.emitExprAs(ex.Left, wasmop.ValI32)
		fc.emitExprAs(ex.Right, wasmop.ValI32)
		if ex.Op == "and" {
			fc.body.Byte(wasmop.OpI32And)
		} else {
			fc.body.Byte(wasmop.OpI32Or)
		}
		return wasmop.ValI32
	case "<", ">", "<=", ">=", "==", "/=":
		wt := fc.inferType(ex.Left, hint)
		fc.emitExprAs(ex.Left, wt)
		fc.emitExprAs(ex.Right, wt)
		op := ex.Op
		if op == "/=" {
			op = "!="
		}
		fc.body.Byte(compareOp(op, wt, false))
		return wasmop.ValI32
	case "**":
		return fc.emitPow(ex)
	case "&", "|", "^", "<<", ">>":
		wt := fc.inferType(ex.Left, hint)
		if wt != wasmop.ValI64 {
			wt = wasmop.ValI32
		}
		fc.emitExprAs(ex.Left, wt)
		fc.emitExprAs(ex.Right, wt)
		fc.body.Byte(bitwiseOp(ex.Op, wt))
		return wt
	case "mod":
		wt := fc.inferType(ex.Left, hint)
		if wt != wasmop.ValI64 {
			wt = wasmop.ValI32
		}
		fc.emitExprAs(ex.Left, wt)
		fc.emitExprAs(ex.Right, wt)
		if wt == wasmop.ValI64 {
			fc.body.Byte(wasmop.OpI64RemS)
		} else {
			fc.body.Byte(wasmop.OpI32RemS)
		}
		return wt
	default: // + - * /
		wt := fc.inferType(ex.Left, hint)
		if hint != 0 {
			wt = hint
		}
		fc.emitExprAs(ex.Left, wt)
		fc.emitExprAs(ex.Right, wt)
		fc.body.Byte(arithOp(ex.Op, wt))
		return wt
	}
}

func isHalfLiteral(lit *ast.NumberLit) bool {
	f, err := strconv.ParseFloat(lit.Value, 64)
	return err == nil && f == 0.5
}

// emitPow implements the `**` operator: `x ** 0.5` lowers to f64.sqrt with
// no math import at all, matching Testable Property #10; every other
// exponent promotes both operands to f64 and calls the auto-imported
// math.pow.
func (fc *funcCtx) emitPow(ex *ast.BinOp) byte {
	if lit, ok := ex.Right.(*ast.NumberLit); ok && isHalfLiteral(lit) {
		fc.emitExprAs(ex.Left, wasmop.ValF64)
		fc.body.Byte(wasmop.OpF64Sqrt)
		return wasmop.ValF64
	}
	fc.emitExprAs(ex.Left, wasmop.ValF64)
	fc.emitExprAs(ex.Right, wasmop.ValF64)
	fc.emitDirectCall("pow")
	return wasmop.ValF64
}

func (fc *funcCtx) emitDirectCall(name string) {
	idx, ok := fc.g.funcIndex[name]
	if !ok {
		fail(0, 0, "undefined function %q", name)
	}
	fc.body.Byte(wasmop.OpCall)
	fc.body.U32(idx)
}

// emitArrayAddress leaves an i32 byte address on the stack for name's
// indexed element and reports its wasm type and natural alignment
// exponent, shared by ArrayStore's write side and ArrayAccess's read side.
// Three addressing forms are supported: 1-D (base + i*sizeof(elem)), 2-D
// against a declared second dimension (base + (i*dim1+j)*sizeof(elem)),
// and the 3-index runtime-stride form (base + (i*stride+j)*sizeof(elem),
// stride passed as the third index).
func (fc *funcCtx) emitArrayAddress(name string, indices []ast.Expr, line, col int) (byte, uint32) {
	kind, idx, t, ok := fc.lookupVar(name)
	if !ok {
		fail(line, col, "undefined name %q", name)
	}
	if t.Kind != ast.TypeArray {
		fail(line, col, "%q is not an array", name)
	}
	elemWT := valueType(t.Prim)
	align := alignExp(elemWT)
	elemSize := sizeofWasmType(elemWT)

	if kind == varLocal {
		fc.body.Byte(wasmop.OpLocalGet)
	} else {
		fc.body.Byte(wasmop.OpGlobalGet)
	}
	fc.body.U32(idx)

	switch len(indices) {
	case 1:
		fc.emitExprAs(indices[0], wasmop.ValI32)
	case 2:
		if len(t.ArrayDims) < 2 {
			fail(line, col, "2-index access on %q requires a declared second dimension", name)
		}
		fc.emitExprAs(indices[0], wasmop.ValI32)
		fc.emitExprAs(t.ArrayDims[1], wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Mul)
		fc.emitExprAs(indices[1], wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Add)
	case 3:
		fc.emitExprAs(indices[0], wasmop.ValI32)
		fc.emitExprAs(indices[2], wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Mul)
		fc.emitExprAs(indices[1], wasmop.ValI32)
		fc.body.Byte(wasmop.OpI32Add)
	default:
		fail(line, col, "unsupported array index arity %d for %q", len(indices), name)
	}

	fc.body.Byte(wasmop.OpI32Const)
	fc.body.S32(int32(elemSize))
	fc.body.Byte(wasmop.OpI32Mul)
	fc.body.Byte(wasmop.OpI32Add)

	return elemWT, align
}

func (fc *funcCtx) emitArrayAccessExpr(ex *ast.ArrayAccess) byte {
	wt, align := fc.emitArrayAddress(ex.Name, ex.Indices, ex.Line, ex.Column)
	fc.emitTypedLoad(wt, align)
	return wt
}

func (fc *funcCtx) emitIfExprExpr(ex *ast.IfExpr, hint byte) byte {
	wt := fc.inferType(ex.Then, hint)
	if hint != 0 {
		wt = hint
	}
	fc.emitExprAs(ex.Cond, wasmop.ValI32)
	fc.body.Byte(wasmop.OpIf)
	fc.body.Byte(wt) // a value type doubles as a single-result blocktype in Wasm 1.0
	fc.emitExprAs(ex.Then, wt)
	fc.body.Byte(wasmop.OpElse)
	fc.emitExprAs(ex.Else, wt)
	fc.body.Byte(wasmop.OpEnd)
	return wt
}

func (fc *funcCtx) emitFuncRefExpr(ex *ast.FuncRef) byte {
	slot, ok := fc.g.tableSlot[ex.Name]
	if !ok {
		fail(ex.Line, ex.Column, "undefined function reference %q", ex.Name)
	}
	fc.body.Byte(wasmop.OpI32Const)
	fc.body.S32(int32(slot))
	return wasmop.ValI32
}

func (fc *funcCtx) emitFuncCallExpr(ex *ast.FuncCall, hint byte) byte {
	wt := fc.emitCallDispatch(ex.Name, ex.Args, false, ex.Line, ex.Column, hint)
	if wt == noValue {
		fail(ex.Line, ex.Column, "%q does not produce a value", ex.Name)
	}
	return wt
}

// emitCallDispatch implements spec.md §4.4's seven-priority call dispatch:
// vector constructors, scalar conversions, SIMD-namespaced ops, native
// single-opcode builtins, the wasm.* escape hatch, indirect calls through a
// function-typed variable, and finally a direct call.
func (fc *funcCtx) emitCallDispatch(name string, args []ast.Expr, isTail bool, line, col int, hint byte) byte {
	switch classifyCall(name, fc.localType) {
	case callVectorCtor:
		if isTail {
			fail(line, col, "tailcall to a vector constructor is not supported")
		}
		return fc.emitVectorCtor(name, args, line, col)
	case callScalarConv:
		if isTail {
			fail(line, col, "tailcall to a scalar conversion is not supported")
		}
		return fc.emitScalarConv(name, args, line, col)
	case callSimdNamespaced:
		if isTail {
			fail(line, col, "tailcall to a SIMD operation is not supported")
		}
		return fc.emitSimdNamespaced(name, args, line, col)
	case callNativeBuiltin:
		if isTail {
			fail(line, col, "tailcall to a builtin is not supported")
		}
		return fc.emitNativeBuiltin(name, args, hint, line, col)
	case callWasmEscape:
		if isTail {
			fail(line, col, "tailcall through the wasm.* escape hatch is not supported")
		}
		return fc.emitWasmEscape(name, args, hint, line, col)
	case callIndirect:
		return fc.emitIndirectCall(name, args, isTail, line, col)
	default:
		return fc.emitDirectDispatch(name, args, isTail, line, col)
	}
}

func allNumberLits(args []ast.Expr) bool {
	for _, a := range args {
		if _, ok := a.(*ast.NumberLit); !ok {
			return false
		}
	}
	return true
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func packV128Const(vecType string, lits []*ast.NumberLit) []byte {
	buf := make([]byte, 16)
	switch vecType {
	case "i32x4":
		for i, lit := range lits {
			n, _ := strconv.ParseInt(lit.Value, 10, 64)
			putLE32(buf[i*4:], uint32(int32(n)))
		}
	case "i64x2":
		for i, lit := range lits {
			n, _ := strconv.ParseInt(lit.Value, 10, 64)
			putLE64(buf[i*8:], uint64(n))
		}
	case "f32x4":
		for i, lit := range lits {
			f, _ := strconv.ParseFloat(lit.Value, 32)
			putLE32(buf[i*4:], math.Float32bits(float32(f)))
		}
	case "f64x2":
		for i, lit := range lits {
			f, _ := strconv.ParseFloat(lit.Value, 64)
			putLE64(buf[i*8:], math.Float64bits(f))
		}
	}
	return buf
}

func (fc *funcCtx) emitZeroV128() {
	fc.body.Byte(wasmop.PrefixFD)
	fc.body.U32(wasmop.SubV128Const)
	for i := 0; i < 16; i++ {
		fc.body.Byte(0)
	}
}

func (fc *funcCtx) emitVectorCtor(name string, args []ast.Expr, line, col int) byte {
	lc := laneCount(name)
	lt := laneType(name)

	if len(args) == lc && allNumberLits(args) {
		lits := make([]*ast.NumberLit, lc)
		for i, a := range args {
			lits[i] = a.(*ast.NumberLit)
		}
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(wasmop.SubV128Const)
		fc.body.RawBytes(packV128Const(name, lits))
		return wasmop.ValV128
	}
	if len(args) == 1 {
		fc.emitExprAs(args[0], lt)
		sub, _ := simdSplatOp(name)
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(sub)
		return wasmop.ValV128
	}
	if len(args) == lc {
		fc.emitZeroV128()
		sub, _ := simdReplaceLaneOp(name)
		for i, a := range args {
			fc.emitExprAs(a, lt)
			fc.body.Byte(wasmop.PrefixFD)
			fc.body.U32(sub)
			fc.body.Byte(byte(i))
		}
		return wasmop.ValV128
	}
	fail(line, col, "%s constructor takes 1 or %d arguments", name, lc)
	return wasmop.ValV128
}

func (fc *funcCtx) emitScalarConv(name string, args []ast.Expr, line, col int) byte {
	if len(args) != 1 {
		fail(line, col, "%s() takes exactly one argument", name)
	}
	to := valueType(name)
	fc.emitExprAs(args[0], to)
	return to
}

func (fc *funcCtx) emitSimdNamespaced(name string, args []ast.Expr, line, col int) byte {
	dot := strings.IndexByte(name, '.')
	ns, op := name[:dot], name[dot+1:]

	constLane := func(idx int) byte {
		lit, ok := args[idx].(*ast.NumberLit)
		if !ok {
			fail(line, col, "SIMD lane index must be a constant literal")
		}
		n, _ := strconv.ParseInt(lit.Value, 10, 64)
		return byte(n)
	}

	switch op {
	case "splat":
		if len(args) != 1 {
			fail(line, col, "%s takes exactly one argument", name)
		}
		fc.emitExprAs(args[0], laneType(ns))
		sub, _ := simdSplatOp(ns)
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(sub)
		return wasmop.ValV128
	case "extract_lane":
		if len(args) != 2 {
			fail(line, col, "%s takes a vector and a constant lane index", name)
		}
		fc.emitExprAs(args[0], wasmop.ValV128)
		lane := constLane(1)
		sub, _ := simdExtractLaneOp(ns)
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(sub)
		fc.body.Byte(lane)
		return laneType(ns)
	case "replace_lane":
		if len(args) != 3 {
			fail(line, col, "%s takes a vector, a constant lane index, and a value", name)
		}
		fc.emitExprAs(args[0], wasmop.ValV128)
		lane := constLane(1)
		fc.emitExprAs(args[2], laneType(ns))
		sub, _ := simdReplaceLaneOp(ns)
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(sub)
		fc.body.Byte(lane)
		return wasmop.ValV128
	default:
		if len(args) != 2 {
			fail(line, col, "%s takes exactly two vector arguments", name)
		}
		sub, ok := simdArith(ns, op)
		if !ok {
			fail(line, col, "unknown SIMD operation %q", name)
		}
		fc.emitExprAs(args[0], wasmop.ValV128)
		fc.emitExprAs(args[1], wasmop.ValV128)
		fc.body.Byte(wasmop.PrefixFD)
		fc.body.U32(sub)
		return wasmop.ValV128
	}
}

func (fc *funcCtx) emitNativeBuiltin(name string, args []ast.Expr, hint byte, line, col int) byte {
	switch name {
	case "memory_size":
		fc.body.Byte(wasmop.OpMemorySize)
		fc.body.Byte(0x00)
		return wasmop.ValI32
	case "memory_grow":
		fc.emitExprAs(args[0], wasmop.ValI32)
		fc.body.Byte(wasmop.OpMemoryGrow)
		fc.body.Byte(0x00)
		return wasmop.ValI32
	case "memory_copy":
		for _, a := range args {
			fc.emitExprAs(a, wasmop.ValI32)
		}
		fc.body.Byte(wasmop.PrefixFC)
		fc.body.U32(wasmop.SubMemoryCopy)
		fc.body.Byte(0x00)
		fc.body.Byte(0x00)
		return noValue
	case "memory_fill":
		for _, a := range args {
			fc.emitExprAs(a, wasmop.ValI32)
		}
		fc.body.Byte(wasmop.PrefixFC)
		fc.body.U32(wasmop.SubMemoryFill)
		fc.body.Byte(0x00)
		return noValue
	case "select":
		if len(args) != 3 {
			fail(line, col, "select() takes (cond, a, b)")
		}
		wt := fc.inferType(args[1], hint)
		fc.emitExprAs(args[1], wt)
		fc.emitExprAs(args[2], wt)
		fc.emitExprAs(args[0], wasmop.ValI32)
		fc.body.Byte(wasmop.OpSelect)
		return wt
	case "clz", "ctz", "popcnt":
		wt := fc.inferType(args[0], hint)
		if wt != wasmop.ValI64 {
			wt = wasmop.ValI32
		}
		fc.emitExprAs(args[0], wt)
		op, _ := intUnaryOp(name, wt)
		fc.body.Byte(op)
		return wt
	case "rotl", "rotr":
		wt := fc.inferType(args[0], hint)
		if wt != wasmop.ValI64 {
			wt = wasmop.ValI32
		}
		fc.emitExprAs(args[0], wt)
		fc.emitExprAs(args[1], wt)
		op, _ := intBinaryOp(name, wt)
		fc.body.Byte(op)
		return wt
	case "min", "max", "copysign":
		wt := fc.inferType(args[0], hint)
		if wt == wasmop.ValF32 || wt == wasmop.ValF64 {
			op, _ := binaryFloatOp(name, wt)
			fc.emitExprAs(args[0], wt)
			fc.emitExprAs(args[1], wt)
			fc.body.Byte(op)
			return wt
		}
		if name == "copysign" {
			fail(line, col, "copysign requires floating-point operands")
		}
		if wt != wasmop.ValI64 {
			wt = wasmop.ValI32
		}
		// No native integer min/max opcode exists; synthesise with select.
		ta := fc.allocAnonLocal(wt)
		tb := fc.allocAnonLocal(wt)
		fc.emitExprAs(args[0], wt)
		fc.body.Byte(wasmop.OpLocalSet)
		fc.body.U32(ta)
		fc.emitExprAs(args[1], wt)
		fc.body.Byte(wasmop.OpLocalSet)
		fc.body.U32(tb)
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(ta)
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(tb)
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(ta)
		fc.body.Byte(wasmop.OpLocalGet)
		fc.body.U32(tb)
		cmp := "lt"
		if name == "max" {
			cmp = "gt"
		}
		fc.body.Byte(intCompareOp(cmp, wt))
		fc.body.Byte(wasmop.OpSelect)
		return wt
	default: // sqrt, abs, floor, ceil, trunc, nearest
		wt := fc.inferType(args[0], hint)
		if wt != wasmop.ValF32 && wt != wasmop.ValF64 {
			wt = wasmop.ValF64
		}
		fc.emitExprAs(args[0], wt)
		op, ok := unaryFloatOp(name, wt)
		if !ok {
			fail(line, col, "unknown builtin %q", name)
		}
		fc.body.Byte(op)
		return wt
	}
}

func opSymbol(base string) string {
	switch base {
	case "lt":
		return "<"
	case "gt":
		return ">"
	case "le":
		return "<="
	case "ge":
		return ">="
	}
	return "=="
}

// emitWasmEscape implements the `wasm.*` namespace: raw opcodes the
// language has no surface syntax for (unsigned variants, bit reinterpret,
// sign extension, saturating truncation). The operand type is the first
// argument's inferred type, whatever type the caller expects back, so an
// unsuffixed integer literal there selects the i32 variant (the Open
// Question recorded in DESIGN.md).
func (fc *funcCtx) emitWasmEscape(name string, args []ast.Expr, hint byte, line, col int) byte {
	op := strings.TrimPrefix(name, "wasm.")
	wt := hint
	if len(args) > 0 {
		wt = fc.inferType(args[0], 0)
	}
	if wt == 0 {
		wt = wasmop.ValI32
	}

	switch op {
	case "div_u":
		fc.emitExprAs(args[0], wt)
		fc.emitExprAs(args[1], wt)
		if wt == wasmop.ValI64 {
			fc.body.Byte(wasmop.OpI64DivU)
		} else {
			fc.body.Byte(wasmop.OpI32DivU)
		}
		return wt
	case "rem_u":
		fc.emitExprAs(args[0], wt)
		fc.emitExprAs(args[1], wt)
		if wt == wasmop.ValI64 {
			fc.body.Byte(wasmop.OpI64RemU)
		} else {
			fc.body.Byte(wasmop.OpI32RemU)
		}
		return wt
	case "lt_u", "gt_u", "le_u", "ge_u":
		base := strings.TrimSuffix(op, "_u")
		fc.emitExprAs(args[0], wt)
		fc.emitExprAs(args[1], wt)
		fc.body.Byte(compareOp(opSymbol(base), wt, true))
		return wasmop.ValI32
	case "shr_u":
		fc.emitExprAs(args[0], wt)
		fc.emitExprAs(args[1], wt)
		if wt == wasmop.ValI64 {
			fc.body.Byte(wasmop.OpI64ShrU)
		} else {
			fc.body.Byte(wasmop.OpI32ShrU)
		}
		return wt
	case "extend8_s", "extend16_s":
		fc.emitExprAs(args[0], wt)
		is64 := wt == wasmop.ValI64
		if op == "extend8_s" {
			if is64 {
				fc.body.Byte(wasmop.OpI64Extend8S)
			} else {
				fc.body.Byte(wasmop.OpI32Extend8S)
			}
		} else {
			if is64 {
				fc.body.Byte(wasmop.OpI64Extend16S)
			} else {
				fc.body.Byte(wasmop.OpI32Extend16S)
			}
		}
		return wt
	case "extend32_s":
		fc.emitExprAs(args[0], wasmop.ValI64)
		fc.body.Byte(wasmop.OpI64Extend32S)
		return wasmop.ValI64
	case "reinterpret_i32":
		fc.emitExprAs(args[0], wasmop.ValI32)
		fc.body.Byte(wasmop.OpF32ReinterpretI32)
		return wasmop.ValF32
	case "reinterpret_i64":
		fc.emitExprAs(args[0], wasmop.ValI64)
		fc.body.Byte(wasmop.OpF64ReinterpretI64)
		return wasmop.ValF64
	case "reinterpret_f32":
		fc.emitExprAs(args[0], wasmop.ValF32)
		fc.body.Byte(wasmop.OpI32ReinterpretF32)
		return wasmop.ValI32
	case "reinterpret_f64":
		fc.emitExprAs(args[0], wasmop.ValF64)
		fc.body.Byte(wasmop.OpI64ReinterpretF64)
		return wasmop.ValI64
	case "convert_u":
		fc.emitExprAs(args[0], wt)
		if hint == wasmop.ValF32 {
			if wt == wasmop.ValI64 {
				fc.body.Byte(wasmop.OpF32ConvertI64U)
			} else {
				fc.body.Byte(wasmop.OpF32ConvertI32U)
			}
			return wasmop.ValF32
		}
		if wt == wasmop.ValI64 {
			fc.body.Byte(wasmop.OpF64ConvertI64U)
		} else {
			fc.body.Byte(wasmop.OpF64ConvertI32U)
		}
		return wasmop.ValF64
	case "trunc_sat_i32_s", "trunc_sat_i32_u", "trunc_sat_i64_s", "trunc_sat_i64_u":
		from := wasmop.ValF64
		if len(args) > 0 {
			from = fc.inferType(args[0], wasmop.ValF64)
			if from != wasmop.ValF32 && from != wasmop.ValF64 {
				from = wasmop.ValF64
			}
		}
		fc.emitExprAs(args[0], from)
		sub, result := truncSatOp(op, from)
		fc.body.Byte(wasmop.PrefixFC)
		fc.body.U32(sub)
		return result
	}
	fail(line, col, "unknown wasm.* escape %q", name)
	return wasmop.ValI32
}

func truncSatOp(op string, from byte) (uint32, byte) {
	is64From := from == wasmop.ValF64
	switch op {
	case "trunc_sat_i32_s":
		if is64From {
			return wasmop.SubI32TruncSatF64S, wasmop.ValI32
		}
		return wasmop.SubI32TruncSatF32S, wasmop.ValI32
	case "trunc_sat_i32_u":
		if is64From {
			return wasmop.SubI32TruncSatF64U, wasmop.ValI32
		}
		return wasmop.SubI32TruncSatF32U, wasmop.ValI32
	case "trunc_sat_i64_s":
		if is64From {
			return wasmop.SubI64TruncSatF64S, wasmop.ValI64
		}
		return wasmop.SubI64TruncSatF32S, wasmop.ValI64
	case "trunc_sat_i64_u":
		if is64From {
			return wasmop.SubI64TruncSatF64U, wasmop.ValI64
		}
		return wasmop.SubI64TruncSatF32U, wasmop.ValI64
	}
	return 0, wasmop.ValI32
}

// emitIndirectCall calls through a function-typed variable: its value is
// the callee's table slot, pushed last as call_indirect's operand.
func (fc *funcCtx) emitIndirectCall(name string, args []ast.Expr, isTail bool, line, col int) byte {
	t := fc.localType[name]
	if t == nil || t.Kind != ast.TypeFunction || t.FuncSig == nil {
		fail(line, col, "%q is not a function-typed value", name)
	}
	if len(args) != len(t.FuncSig.ParamTypes) {
		fail(line, col, "call to %q expects %d arguments, got %d", name, len(t.FuncSig.ParamTypes), len(args))
	}
	for i, a := range args {
		fc.emitExprAs(a, wasmTypeOf(t.FuncSig.ParamTypes[i]))
	}

	kind, idx, _, ok := fc.lookupVar(name)
	if !ok {
		fail(line, col, "undefined name %q", name)
	}
	if kind == varLocal {
		fc.body.Byte(wasmop.OpLocalGet)
	} else {
		fc.body.Byte(wasmop.OpGlobalGet)
	}
	fc.body.U32(idx)

	sig := fc.g.signatureOf(t.FuncSig.ParamTypes, t.FuncSig.ReturnType)
	sigID := fc.g.internSig(sig) // already registered by registerIndirectSigs; this is a lookup

	retType := t.FuncSig.ReturnType
	if isTail {
		if fc.retType == nil && retType != nil {
			fail(line, col, "tailcall to %q returns a value but the enclosing subroutine does not", name)
		}
		if fc.retType != nil && retType == nil {
			fail(line, col, "tailcall to %q returns no value but the enclosing function expects one", name)
		}
		if fc.retType != nil && retType != nil && wasmTypeOf(fc.retType) != wasmTypeOf(retType) {
			fail(line, col, "tailcall to %q has a different return type than the enclosing function", name)
		}
		fc.body.Byte(wasmop.OpReturnCallIndirect)
	} else {
		fc.body.Byte(wasmop.OpCallIndirect)
	}
	fc.body.U32(uint32(sigID))
	fc.body.U32(0)

	if retType != nil {
		return wasmTypeOf(retType)
	}
	return noValue
}

// emitDirectDispatch calls a plain function/subroutine/import by funcIndex,
// enforcing Testable Property #9: a tailcall's return type (or lack of
// one) must match the enclosing function/subroutine exactly.
func (fc *funcCtx) emitDirectDispatch(name string, args []ast.Expr, isTail bool, line, col int) byte {
	idx, ok := fc.g.funcIndex[name]
	if !ok {
		fail(line, col, "undefined function %q", name)
	}
	fi := fc.g.funcs[idx]

	var pts []*ast.TypeRef
	var retType *ast.TypeRef
	switch {
	case fi.fn != nil:
		pts = paramTypes(fi.fn.Params)
		retType = fi.fn.ReturnType
	case fi.sr != nil:
		pts = paramTypes(fi.sr.Params)
	default: // explicit/auto import: coerce args to the registered signature
		sig := fc.g.sigTable[fi.sigID]
		if len(args) != len(sig.params) {
			fail(line, col, "call to %q expects %d arguments, got %d", name, len(sig.params), len(args))
		}
		for i, a := range args {
			fc.emitExprAs(a, sig.params[i])
		}
		if isTail {
			fc.body.Byte(wasmop.OpReturnCall)
		} else {
			fc.body.Byte(wasmop.OpCall)
		}
		fc.body.U32(idx)
		if sig.hasRes {
			return sig.result
		}
		return noValue
	}

	if len(args) != len(pts) {
		fail(line, col, "call to %q expects %d arguments, got %d", name, len(pts), len(args))
	}
	for i, a := range args {
		fc.emitExprAs(a, wasmTypeOf(pts[i]))
	}

	if isTail {
		if fc.retType == nil && retType != nil {
			fail(line, col, "tailcall to %q returns a value but the enclosing subroutine does not", name)
		}
		if fc.retType != nil && retType == nil {
			fail(line, col, "tailcall to %q returns no value but the enclosing function expects one", name)
		}
		if fc.retType != nil && retType != nil && wasmTypeOf(fc.retType) != wasmTypeOf(retType) {
			fail(line, col, "tailcall to %q has a different return type than the enclosing function", name)
		}
		fc.body.Byte(wasmop.OpReturnCall)
	} else {
		fc.body.Byte(wasmop.OpCall)
	}
	fc.body.U32(idx)

	if retType != nil {
		return wasmTypeOf(retType)
	}
	return noValue
}
