// Package wasmop holds the Wasm 1.0 + SIMD-128 + tail-call byte constants
// used by the code generator (opcode emission), plus a byte->mnemonic
// table that no command currently reads (`forpasc dump` prints plain hex).
//
// Values are cross-checked against the wazero module/opcode tables
// retrieved for this project, not copied from them.
package wasmop

// Magic header and version every Wasm module begins with.
var (
	Magic   = []byte{0x00, 0x61, 0x73, 0x6D}
	Version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Section ids, in module emission order.
const (
	SecType     byte = 1
	SecImport   byte = 2
	SecFunction byte = 3
	SecTable    byte = 4
	SecMemory   byte = 5
	SecGlobal   byte = 6
	SecExport   byte = 7
	SecElement  byte = 9
	SecCode     byte = 10
)

// Value types (signed LEB128 byte values).
const (
	ValI32  byte = 0x7F
	ValI64  byte = 0x7E
	ValF32  byte = 0x7D
	ValF64  byte = 0x7C
	ValV128 byte = 0x7B
)

// BlockVoid is the empty blocktype byte.
const BlockVoid byte = 0x40

// Export/import kinds.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Reftype used for the funcref table.
const RefFunc byte = 0x70

// Control-flow opcodes (0x00-0x1B) plus the tail-call proposal's two
// opcodes, which the proposal slots at 0x12/0x13 (return_call /
// return_call_indirect), between call (0x10) and call_indirect (0x11)'s
// neighbours in the control range.
const (
	OpUnreachable        byte = 0x00
	OpNop                byte = 0x01
	OpBlock              byte = 0x02
	OpLoop               byte = 0x03
	OpIf                 byte = 0x04
	OpElse               byte = 0x05
	OpEnd                byte = 0x0B
	OpBr                 byte = 0x0C
	OpBrIf               byte = 0x0D
	OpReturn             byte = 0x0F
	OpCall               byte = 0x10
	OpCallIndirect       byte = 0x11
	OpReturnCall         byte = 0x12
	OpReturnCallIndirect byte = 0x13
	OpDrop               byte = 0x1A
	OpSelect             byte = 0x1B
)

// Variable access opcodes (0x20-0x24).
const (
	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpLocalTee  byte = 0x22
	OpGlobalGet byte = 0x23
	OpGlobalSet byte = 0x24
)

// Memory opcodes (0x28-0x40).
const (
	OpI32Load    byte = 0x28
	OpI64Load    byte = 0x29
	OpF32Load    byte = 0x2A
	OpF64Load    byte = 0x2B
	OpI32Store   byte = 0x36
	OpI64Store   byte = 0x37
	OpF32Store   byte = 0x38
	OpF64Store   byte = 0x39
	OpMemorySize byte = 0x3F
	OpMemoryGrow byte = 0x40
)

// Numeric constant opcodes (0x41-0x44).
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44
)

// Comparison opcodes (0x45-0x66).
const (
	OpI32Eqz byte = 0x45
	OpI32Eq  byte = 0x46
	OpI32Ne  byte = 0x47
	OpI32LtS byte = 0x48
	OpI32LtU byte = 0x49
	OpI32GtS byte = 0x4A
	OpI32GtU byte = 0x4B
	OpI32LeS byte = 0x4C
	OpI32LeU byte = 0x4D
	OpI32GeS byte = 0x4E
	OpI32GeU byte = 0x4F

	OpI64Eqz byte = 0x50
	OpI64Eq  byte = 0x51
	OpI64Ne  byte = 0x52
	OpI64LtS byte = 0x53
	OpI64LtU byte = 0x54
	OpI64GtS byte = 0x55
	OpI64GtU byte = 0x56
	OpI64LeS byte = 0x57
	OpI64LeU byte = 0x58
	OpI64GeS byte = 0x59
	OpI64GeU byte = 0x5A

	OpF32Eq byte = 0x5B
	OpF32Ne byte = 0x5C
	OpF32Lt byte = 0x5D
	OpF32Gt byte = 0x5E
	OpF32Le byte = 0x5F
	OpF32Ge byte = 0x60

	OpF64Eq byte = 0x61
	OpF64Ne byte = 0x62
	OpF64Lt byte = 0x63
	OpF64Gt byte = 0x64
	OpF64Le byte = 0x65
	OpF64Ge byte = 0x66
)

// Integer arithmetic/bitwise (0x67-0x8A).
const (
	OpI32Clz    byte = 0x67
	OpI32Ctz    byte = 0x68
	OpI32Popcnt byte = 0x69
	OpI32Add    byte = 0x6A
	OpI32Sub    byte = 0x6B
	OpI32Mul    byte = 0x6C
	OpI32DivS   byte = 0x6D
	OpI32DivU   byte = 0x6E
	OpI32RemS   byte = 0x6F
	OpI32RemU   byte = 0x70
	OpI32And    byte = 0x71
	OpI32Or     byte = 0x72
	OpI32Xor    byte = 0x73
	OpI32Shl    byte = 0x74
	OpI32ShrS   byte = 0x75
	OpI32ShrU   byte = 0x76
	OpI32Rotl   byte = 0x77
	OpI32Rotr   byte = 0x78

	OpI64Clz    byte = 0x79
	OpI64Ctz    byte = 0x7A
	OpI64Popcnt byte = 0x7B
	OpI64Add    byte = 0x7C
	OpI64Sub    byte = 0x7D
	OpI64Mul    byte = 0x7E
	OpI64DivS   byte = 0x7F
	OpI64DivU   byte = 0x80
	OpI64RemS   byte = 0x81
	OpI64RemU   byte = 0x82
	OpI64And    byte = 0x83
	OpI64Or     byte = 0x84
	OpI64Xor    byte = 0x85
	OpI64Shl    byte = 0x86
	OpI64ShrS   byte = 0x87
	OpI64ShrU   byte = 0x88
	OpI64Rotl   byte = 0x89
	OpI64Rotr   byte = 0x8A
)

// Float unary/binary (0x8B-0xA6).
const (
	OpF32Abs      byte = 0x8B
	OpF32Neg      byte = 0x8C
	OpF32Ceil     byte = 0x8D
	OpF32Floor    byte = 0x8E
	OpF32Trunc    byte = 0x8F
	OpF32Nearest  byte = 0x90
	OpF32Sqrt     byte = 0x91
	OpF32Add      byte = 0x92
	OpF32Sub      byte = 0x93
	OpF32Mul      byte = 0x94
	OpF32Div      byte = 0x95
	OpF32Min      byte = 0x96
	OpF32Max      byte = 0x97
	OpF32Copysign byte = 0x98

	OpF64Abs      byte = 0x99
	OpF64Neg      byte = 0x9A
	OpF64Ceil     byte = 0x9B
	OpF64Floor    byte = 0x9C
	OpF64Trunc    byte = 0x9D
	OpF64Nearest  byte = 0x9E
	OpF64Sqrt     byte = 0x9F
	OpF64Add      byte = 0xA0
	OpF64Sub      byte = 0xA1
	OpF64Mul      byte = 0xA2
	OpF64Div      byte = 0xA3
	OpF64Min      byte = 0xA4
	OpF64Max      byte = 0xA5
	OpF64Copysign byte = 0xA6
)

// Conversions (0xA7-0xC4).
const (
	OpI32WrapI64        byte = 0xA7
	OpI32TruncF32S      byte = 0xA8
	OpI32TruncF32U      byte = 0xA9
	OpI32TruncF64S      byte = 0xAA
	OpI32TruncF64U      byte = 0xAB
	OpI64ExtendI32S     byte = 0xAC
	OpI64ExtendI32U     byte = 0xAD
	OpI64TruncF32S      byte = 0xAE
	OpI64TruncF32U      byte = 0xAF
	OpI64TruncF64S      byte = 0xB0
	OpI64TruncF64U      byte = 0xB1
	OpF32ConvertI32S    byte = 0xB2
	OpF32ConvertI32U    byte = 0xB3
	OpF32ConvertI64S    byte = 0xB4
	OpF32ConvertI64U    byte = 0xB5
	OpF32DemoteF64      byte = 0xB6
	OpF64ConvertI32S    byte = 0xB7
	OpF64ConvertI32U    byte = 0xB8
	OpF64ConvertI64S    byte = 0xB9
	OpF64ConvertI64U    byte = 0xBA
	OpF64PromoteF32     byte = 0xBB
	OpI32ReinterpretF32 byte = 0xBC
	OpI64ReinterpretF64 byte = 0xBD
	OpF32ReinterpretI32 byte = 0xBE
	OpF64ReinterpretI64 byte = 0xBF
	OpI32Extend8S       byte = 0xC0
	OpI32Extend16S      byte = 0xC1
	OpI64Extend8S       byte = 0xC2
	OpI64Extend16S      byte = 0xC3
	OpI64Extend32S      byte = 0xC4
)

// PrefixFC introduces saturating truncation and bulk-memory operations; the
// sub-opcode follows as a u32 LEB128.
const PrefixFC byte = 0xFC

// Saturating truncation sub-opcodes (under 0xFC).
const (
	SubI32TruncSatF32S uint32 = 0
	SubI32TruncSatF32U uint32 = 1
	SubI32TruncSatF64S uint32 = 2
	SubI32TruncSatF64U uint32 = 3
	SubI64TruncSatF32S uint32 = 4
	SubI64TruncSatF32U uint32 = 5
	SubI64TruncSatF64S uint32 = 6
	SubI64TruncSatF64U uint32 = 7
	SubMemoryCopy      uint32 = 10
	SubMemoryFill      uint32 = 11
)

// PrefixFD introduces the SIMD-128 proposal; the sub-opcode follows as a
// u32 LEB128.
const PrefixFD byte = 0xFD

// SIMD sub-opcodes actually emitted by this compiler (the proposal defines
// many more; only the ones spec.md's builtin/namespaced dispatch reaches
// are named here).
const (
	SubV128Load         uint32 = 0
	SubV128Store        uint32 = 11
	SubV128Const        uint32 = 12
	SubI8x16Shuffle     uint32 = 13
	SubI32x4Splat       uint32 = 17
	SubI64x2Splat       uint32 = 18
	SubF32x4Splat       uint32 = 19
	SubF64x2Splat       uint32 = 20
	SubI32x4ExtractLane uint32 = 27
	SubI32x4ReplaceLane uint32 = 28
	SubI64x2ExtractLane uint32 = 29
	SubI64x2ReplaceLane uint32 = 30
	SubF32x4ExtractLane uint32 = 31
	SubF32x4ReplaceLane uint32 = 32
	SubF64x2ExtractLane uint32 = 33
	SubF64x2ReplaceLane uint32 = 34
	SubI32x4Eq          uint32 = 55
	SubI32x4Add         uint32 = 174
	SubI32x4Sub         uint32 = 177
	SubI32x4Mul         uint32 = 181
	SubI64x2Add         uint32 = 206
	SubI64x2Sub         uint32 = 209
	SubI64x2Mul         uint32 = 213
	SubF32x4Eq          uint32 = 65
	SubF32x4Add         uint32 = 228
	SubF32x4Sub         uint32 = 229
	SubF32x4Mul         uint32 = 230
	SubF32x4Div         uint32 = 231
	SubF32x4Min         uint32 = 232
	SubF32x4Max         uint32 = 233
	SubF64x2Eq          uint32 = 71
	SubF64x2Add         uint32 = 240
	SubF64x2Sub         uint32 = 241
	SubF64x2Mul         uint32 = 242
	SubF64x2Div         uint32 = 243
	SubF64x2Min         uint32 = 244
	SubF64x2Max         uint32 = 245
)

// Mnemonics maps an opcode byte (outside the 0xFC/0xFD prefix space) to its
// textual name. Nothing in the compiler or CLI reads it; `forpasc dump`
// prints plain hex.
var Mnemonics = map[byte]string{
	OpUnreachable: "unreachable", OpNop: "nop", OpBlock: "block", OpLoop: "loop",
	OpIf: "if", OpElse: "else", OpEnd: "end", OpBr: "br", OpBrIf: "br_if",
	OpReturn: "return", OpCall: "call", OpCallIndirect: "call_indirect",
	OpReturnCall: "return_call", OpReturnCallIndirect: "return_call_indirect",
	OpDrop: "drop", OpSelect: "select",
	OpLocalGet: "local.get", OpLocalSet: "local.set", OpLocalTee: "local.tee",
	OpGlobalGet: "global.get", OpGlobalSet: "global.set",
	OpI32Load: "i32.load", OpI64Load: "i64.load", OpF32Load: "f32.load", OpF64Load: "f64.load",
	OpI32Store: "i32.store", OpI64Store: "i64.store", OpF32Store: "f32.store", OpF64Store: "f64.store",
	OpMemorySize: "memory.size", OpMemoryGrow: "memory.grow",
	OpI32Const: "i32.const", OpI64Const: "i64.const", OpF32Const: "f32.const", OpF64Const: "f64.const",
	OpI32Eqz: "i32.eqz", OpI32Eq: "i32.eq", OpI32Ne: "i32.ne",
	OpI32LtS: "i32.lt_s", OpI32GtS: "i32.gt_s", OpI32LeS: "i32.le_s", OpI32GeS: "i32.ge_s",
	OpI32Add: "i32.add", OpI32Sub: "i32.sub", OpI32Mul: "i32.mul",
	OpI32DivS: "i32.div_s", OpI32DivU: "i32.div_u", OpI32RemS: "i32.rem_s", OpI32RemU: "i32.rem_u",
	OpI32And: "i32.and", OpI32Or: "i32.or", OpI32Xor: "i32.xor",
	OpI32Shl: "i32.shl", OpI32ShrS: "i32.shr_s", OpI32ShrU: "i32.shr_u",
	OpI32Rotl: "i32.rotl", OpI32Rotr: "i32.rotr",
	OpI32Clz: "i32.clz", OpI32Ctz: "i32.ctz", OpI32Popcnt: "i32.popcnt",
	OpI64Add: "i64.add", OpI64Sub: "i64.sub", OpI64Mul: "i64.mul",
	OpI64DivS: "i64.div_s", OpI64RemS: "i64.rem_s",
	OpF64Add: "f64.add", OpF64Sub: "f64.sub", OpF64Mul: "f64.mul", OpF64Div: "f64.div",
	OpF64Sqrt: "f64.sqrt", OpF64Min: "f64.min", OpF64Max: "f64.max", OpF64Copysign: "f64.copysign",
	OpF64Floor: "f64.floor", OpF64Ceil: "f64.ceil", OpF64Trunc: "f64.trunc", OpF64Nearest: "f64.nearest",
	OpF32Add: "f32.add", OpF32Sub: "f32.sub", OpF32Mul: "f32.mul", OpF32Div: "f32.div",
	OpI32WrapI64: "i32.wrap_i64", OpI64ExtendI32S: "i64.extend_i32_s", OpI64ExtendI32U: "i64.extend_i32_u",
	OpF64ConvertI64S: "f64.convert_i64_s", OpF64ConvertI32S: "f64.convert_i32_s",
	OpF32DemoteF64: "f32.demote_f64", OpF64PromoteF32: "f64.promote_f32",
	OpF32ConvertI32S: "f32.convert_i32_s", OpF32ConvertI64S: "f32.convert_i64_s",
}
