package codegen

import "github.com/lhaig/forpasc/internal/wasmop"

// arithOp selects the typed add/sub/mul/div opcode for compound assignment
// and for-loop step accumulation. Division on integer types is signed,
// matching spec.md §4.4's native-builtin dispatch default.
func arithOp(op string, wt byte) byte {
	switch wt {
	case wasmop.ValI64:
		switch op {
		case "+":
			return wasmop.OpI64Add
		case "-":
			return wasmop.OpI64Sub
		case "*":
			return wasmop.OpI64Mul
		case "/":
			return wasmop.OpI64DivS
		}
	case wasmop.ValF32:
		switch op {
		case "+":
			return wasmop.OpF32Add
		case "-":
			return wasmop.OpF32Sub
		case "*":
			return wasmop.OpF32Mul
		case "/":
			return wasmop.OpF32Div
		}
	case wasmop.ValF64:
		switch op {
		case "+":
			return wasmop.OpF64Add
		case "-":
			return wasmop.OpF64Sub
		case "*":
			return wasmop.OpF64Mul
		case "/":
			return wasmop.OpF64Div
		}
	default: // i32
		switch op {
		case "+":
			return wasmop.OpI32Add
		case "-":
			return wasmop.OpI32Sub
		case "*":
			return wasmop.OpI32Mul
		case "/":
			return wasmop.OpI32DivS
		}
	}
	return wasmop.OpNop
}

// compareOp selects the typed comparison opcode. unsigned only affects
// integer types; float comparisons have no signedness.
func compareOp(op string, wt byte, unsigned bool) byte {
	switch wt {
	case wasmop.ValI64:
		switch op {
		case "<":
			if unsigned {
				return wasmop.OpI64LtU
			}
			return wasmop.OpI64LtS
		case ">":
			if unsigned {
				return wasmop.OpI64GtU
			}
			return wasmop.OpI64GtS
		case "<=":
			if unsigned {
				return wasmop.OpI64LeU
			}
			return wasmop.OpI64LeS
		case ">=":
			if unsigned {
				return wasmop.OpI64GeU
			}
			return wasmop.OpI64GeS
		case "==":
			return wasmop.OpI64Eq
		case "!=":
			return wasmop.OpI64Ne
		}
	case wasmop.ValF32:
		switch op {
		case "<":
			return wasmop.OpF32Lt
		case ">":
			return wasmop.OpF32Gt
		case "<=":
			return wasmop.OpF32Le
		case ">=":
			return wasmop.OpF32Ge
		case "==":
			return wasmop.OpF32Eq
		case "!=":
			return wasmop.OpF32Ne
		}
	case wasmop.ValF64:
		switch op {
		case "<":
			return wasmop.OpF64Lt
		case ">":
			return wasmop.OpF64Gt
		case "<=":
			return wasmop.OpF64Le
		case ">=":
			return wasmop.OpF64Ge
		case "==":
			return wasmop.OpF64Eq
		case "!=":
			return wasmop.OpF64Ne
		}
	default: // i32
		switch op {
		case "<":
			if unsigned {
				return wasmop.OpI32LtU
			}
			return wasmop.OpI32LtS
		case ">":
			if unsigned {
				return wasmop.OpI32GtU
			}
			return wasmop.OpI32GtS
		case "<=":
			if unsigned {
				return wasmop.OpI32LeU
			}
			return wasmop.OpI32LeS
		case ">=":
			if unsigned {
				return wasmop.OpI32GeU
			}
			return wasmop.OpI32GeS
		case "==":
			return wasmop.OpI32Eq
		case "!=":
			return wasmop.OpI32Ne
		}
	}
	return wasmop.OpNop
}

// bitwiseOp selects the typed and/or/xor/shl/shr_s opcode for & | ^ << >>.
func bitwiseOp(op string, wt byte) byte {
	is64 := wt == wasmop.ValI64
	switch op {
	case "&":
		if is64 {
			return wasmop.OpI64And
		}
		return wasmop.OpI32And
	case "|":
		if is64 {
			return wasmop.OpI64Or
		}
		return wasmop.OpI32Or
	case "^":
		if is64 {
			return wasmop.OpI64Xor
		}
		return wasmop.OpI32Xor
	case "<<":
		if is64 {
			return wasmop.OpI64Shl
		}
		return wasmop.OpI32Shl
	case ">>":
		if is64 {
			return wasmop.OpI64ShrS
		}
		return wasmop.OpI32ShrS
	}
	return wasmop.OpNop
}

// storeOp and loadOp select the typed memory opcode; v128 load/store use
// the SIMD prefix and are emitted by the caller, which is why they are not
// represented here (no plain byte opcode exists for them).
func storeOp(wt byte) byte {
	switch wt {
	case wasmop.ValI64:
		return wasmop.OpI64Store
	case wasmop.ValF32:
		return wasmop.OpF32Store
	case wasmop.ValF64:
		return wasmop.OpF64Store
	default:
		return wasmop.OpI32Store
	}
}

func loadOp(wt byte) byte {
	switch wt {
	case wasmop.ValI64:
		return wasmop.OpI64Load
	case wasmop.ValF32:
		return wasmop.OpF32Load
	case wasmop.ValF64:
		return wasmop.OpF64Load
	default:
		return wasmop.OpI32Load
	}
}

// alignExp is the memarg alignment field, encoded as a log2 exponent (not
// a byte count) per the Wasm binary format: 2 for i32/f32, 3 for i64/f64,
// 4 for v128. spec.md §4.4 states the natural alignment as a byte count;
// this is the binary encoding of that same natural alignment.
func alignExp(wt byte) uint32 {
	switch wt {
	case wasmop.ValI64, wasmop.ValF64:
		return 3
	case wasmop.ValV128:
		return 4
	default:
		return 2
	}
}

func sizeofWasmType(wt byte) int {
	switch wt {
	case wasmop.ValI64, wasmop.ValF64:
		return 8
	case wasmop.ValV128:
		return 16
	default:
		return 4
	}
}
