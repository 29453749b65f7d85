package codegen

import (
	"strings"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/wasmop"
)

// signature is a deduplicated Wasm function signature: ordered parameter
// value types and an optional single result, keyed by a canonical string
// so identical signatures share one sigId (spec.md §3 index spaces).
type signature struct {
	params []byte
	result byte // 0 if hasResult is false
	hasRes bool
}

func (s signature) key() string {
	var b strings.Builder
	for _, p := range s.params {
		b.WriteByte(p)
		b.WriteByte(',')
	}
	b.WriteByte(':')
	if s.hasRes {
		b.WriteByte(s.result)
	}
	return b.String()
}

// isVectorType reports whether name is one of the four lane-typed vector
// type names the language exposes on top of the raw v128 value type.
func isVectorType(name string) bool {
	switch name {
	case "f64x2", "f32x4", "i32x4", "i64x2":
		return true
	}
	return false
}

func isScalarPrim(name string) bool {
	switch name {
	case "i32", "i64", "f32", "f64":
		return true
	}
	return false
}

// laneType returns the scalar value type stored in each lane of a vector
// type, used for extract_lane's inferred result type.
func laneType(vecType string) byte {
	switch vecType {
	case "f64x2":
		return wasmop.ValF64
	case "f32x4":
		return wasmop.ValF32
	case "i32x4":
		return wasmop.ValI32
	case "i64x2":
		return wasmop.ValI64
	}
	return wasmop.ValI32
}

func laneCount(vecType string) int {
	switch vecType {
	case "f64x2", "i64x2":
		return 2
	case "f32x4", "i32x4":
		return 4
	}
	return 0
}

// valueType maps a primitive or vector type name to its Wasm value-type
// byte. Arrays and function pointers both lower to i32 (spec.md §3).
func valueType(prim string) byte {
	switch prim {
	case "i32":
		return wasmop.ValI32
	case "i64":
		return wasmop.ValI64
	case "f32":
		return wasmop.ValF32
	case "f64":
		return wasmop.ValF64
	case "v128", "f64x2", "f32x4", "i32x4", "i64x2":
		return wasmop.ValV128
	default:
		return wasmop.ValI32
	}
}

// wasmTypeOf maps a declared TypeRef to its Wasm value type. Arrays,
// function-pointer params, and layout-typed params/locals are all
// pointers or table indices, hence i32.
func wasmTypeOf(t *ast.TypeRef) byte {
	if t == nil {
		return wasmop.ValI32
	}
	switch t.Kind {
	case ast.TypePrim:
		return valueType(t.Prim)
	case ast.TypeArray, ast.TypeFunction, ast.TypeLayout:
		return wasmop.ValI32
	default:
		return wasmop.ValI32
	}
}

// primNameOf returns the source-level type name carried by a TypeRef,
// used for type-inference bookkeeping (array element type, vector type).
func primNameOf(t *ast.TypeRef) string {
	if t == nil {
		return "i32"
	}
	switch t.Kind {
	case ast.TypePrim:
		return t.Prim
	case ast.TypeArray:
		return t.Prim
	default:
		return "i32"
	}
}
