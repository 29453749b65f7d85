package codegen

import "github.com/lhaig/forpasc/internal/wasmop"

// mathBuiltinArity lists the transcendental functions spec.md §4.4 step 3
// auto-imports under "math.<name>" when a program calls them without an
// explicit import declaration. All operate on f64, matching the type
// inference fallback's default float type.
var mathBuiltinArity = map[string]int{
	"sin": 1, "cos": 1, "ln": 1, "exp": 1,
	"pow": 2, "atan2": 2,
}

// nativeBuiltins names the single-opcode builtins available directly as
// `name(args)` calls, dispatch priority 4. copysign/min/max/select resolve
// by operand type at the call site; clz/ctz/popcnt/rotl/rotr are integer
// only.
var nativeBuiltins = map[string]bool{
	"sqrt": true, "abs": true, "floor": true, "ceil": true, "trunc": true,
	"nearest": true, "copysign": true, "min": true, "max": true, "select": true,
	"clz": true, "ctz": true, "popcnt": true, "rotl": true, "rotr": true,
	"memory_size": true, "memory_grow": true, "memory_copy": true, "memory_fill": true,
	"return": true,
}

// unaryFloatOp returns the opcode for a single-operand float builtin at
// the given wasm float type (ValF32 or ValF64), and whether one exists.
func unaryFloatOp(name string, t byte) (byte, bool) {
	is64 := t == wasmop.ValF64
	switch name {
	case "sqrt":
		if is64 {
			return wasmop.OpF64Sqrt, true
		}
		return wasmop.OpF32Sqrt, true
	case "abs":
		if is64 {
			return wasmop.OpF64Abs, true
		}
		return wasmop.OpF32Abs, true
	case "floor":
		if is64 {
			return wasmop.OpF64Floor, true
		}
		return wasmop.OpF32Floor, true
	case "ceil":
		if is64 {
			return wasmop.OpF64Ceil, true
		}
		return wasmop.OpF32Ceil, true
	case "trunc":
		if is64 {
			return wasmop.OpF64Trunc, true
		}
		return wasmop.OpF32Trunc, true
	case "nearest":
		if is64 {
			return wasmop.OpF64Nearest, true
		}
		return wasmop.OpF32Nearest, true
	}
	return 0, false
}

// binaryFloatOp returns the opcode for a two-operand float builtin.
func binaryFloatOp(name string, t byte) (byte, bool) {
	is64 := t == wasmop.ValF64
	switch name {
	case "copysign":
		if is64 {
			return wasmop.OpF64Copysign, true
		}
		return wasmop.OpF32Copysign, true
	case "min":
		if is64 {
			return wasmop.OpF64Min, true
		}
		return wasmop.OpF32Min, true
	case "max":
		if is64 {
			return wasmop.OpF64Max, true
		}
		return wasmop.OpF32Max, true
	}
	return 0, false
}

// intUnaryOp returns the opcode for clz/ctz/popcnt at the given int type.
func intUnaryOp(name string, t byte) (byte, bool) {
	is64 := t == wasmop.ValI64
	switch name {
	case "clz":
		if is64 {
			return wasmop.OpI64Clz, true
		}
		return wasmop.OpI32Clz, true
	case "ctz":
		if is64 {
			return wasmop.OpI64Ctz, true
		}
		return wasmop.OpI32Ctz, true
	case "popcnt":
		if is64 {
			return wasmop.OpI64Popcnt, true
		}
		return wasmop.OpI32Popcnt, true
	}
	return 0, false
}

// intBinaryOp returns the opcode for rotl/rotr at the given int type.
func intBinaryOp(name string, t byte) (byte, bool) {
	is64 := t == wasmop.ValI64
	switch name {
	case "rotl":
		if is64 {
			return wasmop.OpI64Rotl, true
		}
		return wasmop.OpI32Rotl, true
	case "rotr":
		if is64 {
			return wasmop.OpI64Rotr, true
		}
		return wasmop.OpI32Rotr, true
	}
	return 0, false
}

// intCompareOp returns the signed lt/gt comparison opcode used to synthesise
// integer min/max via select (no native integer min/max opcode exists).
func intCompareOp(op string, t byte) byte {
	is64 := t == wasmop.ValI64
	switch op {
	case "lt":
		if is64 {
			return wasmop.OpI64LtS
		}
		return wasmop.OpI32LtS
	case "gt":
		if is64 {
			return wasmop.OpI64GtS
		}
		return wasmop.OpI32GtS
	}
	return wasmop.OpI32LtS
}

// simdArith maps a SIMD-namespaced op name to its sub-opcode for one
// vector type, covering the arithmetic and comparison operations this
// compiler actually reaches (splat/extract_lane/replace_lane are handled
// separately because they need lane immediates).
func simdArith(vecType, op string) (uint32, bool) {
	table := map[string]map[string]uint32{
		"i32x4": {"add": wasmop.SubI32x4Add, "sub": wasmop.SubI32x4Sub, "mul": wasmop.SubI32x4Mul, "eq": wasmop.SubI32x4Eq},
		"i64x2": {"add": wasmop.SubI64x2Add, "sub": wasmop.SubI64x2Sub, "mul": wasmop.SubI64x2Mul},
		"f32x4": {"add": wasmop.SubF32x4Add, "sub": wasmop.SubF32x4Sub, "mul": wasmop.SubF32x4Mul, "div": wasmop.SubF32x4Div, "min": wasmop.SubF32x4Min, "max": wasmop.SubF32x4Max, "eq": wasmop.SubF32x4Eq},
		"f64x2": {"add": wasmop.SubF64x2Add, "sub": wasmop.SubF64x2Sub, "mul": wasmop.SubF64x2Mul, "div": wasmop.SubF64x2Div, "min": wasmop.SubF64x2Min, "max": wasmop.SubF64x2Max},
	}
	sub, ok := table[vecType][op]
	return sub, ok
}

func simdSplatOp(vecType string) (uint32, bool) {
	switch vecType {
	case "i32x4":
		return wasmop.SubI32x4Splat, true
	case "i64x2":
		return wasmop.SubI64x2Splat, true
	case "f32x4":
		return wasmop.SubF32x4Splat, true
	case "f64x2":
		return wasmop.SubF64x2Splat, true
	}
	return 0, false
}

func simdExtractLaneOp(vecType string) (uint32, bool) {
	switch vecType {
	case "i32x4":
		return wasmop.SubI32x4ExtractLane, true
	case "i64x2":
		return wasmop.SubI64x2ExtractLane, true
	case "f32x4":
		return wasmop.SubF32x4ExtractLane, true
	case "f64x2":
		return wasmop.SubF64x2ExtractLane, true
	}
	return 0, false
}

func simdReplaceLaneOp(vecType string) (uint32, bool) {
	switch vecType {
	case "i32x4":
		return wasmop.SubI32x4ReplaceLane, true
	case "i64x2":
		return wasmop.SubI64x2ReplaceLane, true
	case "f32x4":
		return wasmop.SubF32x4ReplaceLane, true
	case "f64x2":
		return wasmop.SubF64x2ReplaceLane, true
	}
	return 0, false
}
