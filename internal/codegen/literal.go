package codegen

import (
	"strconv"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/bytewriter"
	"github.com/lhaig/forpasc/internal/wasmop"
)

// emitNumberLitConst emits a literal (optionally negated) as a typed const
// opcode. Integer overflow from negating a literal that does not fit the
// target width is not checked, matching the open question spec.md §9
// flags and preserves unchanged.
func emitNumberLitConst(w *bytewriter.Writer, wt byte, lit *ast.NumberLit, negate bool) {
	switch wt {
	case wasmop.ValI32:
		n, _ := strconv.ParseInt(lit.Value, 10, 64)
		if negate {
			n = -n
		}
		w.Byte(wasmop.OpI32Const)
		w.S32(int32(n))
	case wasmop.ValI64:
		n, _ := strconv.ParseInt(lit.Value, 10, 64)
		if negate {
			n = -n
		}
		w.Byte(wasmop.OpI64Const)
		w.S64(n)
	case wasmop.ValF32:
		f, _ := strconv.ParseFloat(lit.Value, 32)
		if negate {
			f = -f
		}
		w.Byte(wasmop.OpF32Const)
		w.F32(float32(f))
	case wasmop.ValF64:
		f, _ := strconv.ParseFloat(lit.Value, 64)
		if negate {
			f = -f
		}
		w.Byte(wasmop.OpF64Const)
		w.F64(f)
	}
}

// inferLiteralType applies spec.md §4.4's type-inference fallback to a bare
// number literal: an explicit suffix or float syntax wins, otherwise bare
// integers default to i32 and nothing else appears as a bare literal.
func inferLiteralType(lit *ast.NumberLit) byte {
	if lit.Suffix != "" {
		return valueType(lit.Suffix)
	}
	if lit.IsFloat {
		return wasmop.ValF64
	}
	return wasmop.ValI32
}
