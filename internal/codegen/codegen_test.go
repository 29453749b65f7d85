package codegen

import (
	"testing"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/parser"
	"github.com/lhaig/forpasc/internal/wasmop"
	"github.com/stretchr/testify/require"
)

func mustGenerate(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	res, err := Generate(prog, opts)
	require.NoError(t, err)
	return res
}

// decodeUleb32 reads one unsigned LEB128 value starting at b[i], returning
// the value and the index just past it.
func decodeUleb32(b []byte, i int) (uint32, int) {
	var v uint32
	var shift uint
	for {
		v |= uint32(b[i]&0x7F) << shift
		done := b[i]&0x80 == 0
		i++
		if done {
			return v, i
		}
		shift += 7
	}
}

// sectionIDs walks the module past the magic/version header and returns the
// sequence of section ids encountered, in emission order.
func sectionIDs(t *testing.T, mod []byte) []byte {
	t.Helper()
	require.GreaterOrEqual(t, len(mod), 8)
	require.Equal(t, wasmop.Magic, mod[0:4])
	require.Equal(t, wasmop.Version, mod[4:8])
	var ids []byte
	i := 8
	for i < len(mod) {
		id := mod[i]
		i++
		size, next := decodeUleb32(mod, i)
		ids = append(ids, id)
		i = next + int(size)
	}
	return ids
}

// codeSectionBodies returns the raw per-function body bytes (locals header
// + instructions, no leading size prefix) in declaration order, for the
// single occurrence of the Code section.
func codeSectionBodies(t *testing.T, mod []byte) [][]byte {
	t.Helper()
	i := 8
	for i < len(mod) {
		id := mod[i]
		i++
		size, contentStart := decodeUleb32(mod, i)
		content := mod[contentStart : contentStart+int(size)]
		if id == wasmop.SecCode {
			return decodeBodies(content)
		}
		i = contentStart + int(size)
	}
	t.Fatal("no code section found")
	return nil
}

func decodeBodies(content []byte) [][]byte {
	count, i := decodeUleb32(content, 0)
	bodies := make([][]byte, 0, count)
	for n := uint32(0); n < count; n++ {
		size, next := decodeUleb32(content, i)
		bodies = append(bodies, content[next:next+int(size)])
		i = next + int(size)
	}
	return bodies
}

func containsSubsequence(hay, needle []byte) bool {
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestGenerateEmitsMagicAndVersion(t *testing.T) {
	res := mustGenerate(t, `const Limit: i32 := 10`, Options{})
	require.Equal(t, wasmop.Magic, res.Bytes[0:4])
	require.Equal(t, wasmop.Version, res.Bytes[4:8])
}

func TestGenerateSectionOrderSkipsUnusedSections(t *testing.T) {
	res := mustGenerate(t, `
const Limit: i32 := 10

export subroutine noop()
begin
end
`, Options{})
	ids := sectionIDs(t, res.Bytes)
	require.Equal(t, []byte{wasmop.SecType, wasmop.SecFunction, wasmop.SecGlobal, wasmop.SecExport, wasmop.SecCode}, ids)
}

// TestGenerateAccumulatorConventionByteExact hand-verifies the exact bytes
// emitted for the Fortran return-accumulator convention: writing the
// function's own name sets a hidden trailing local, which is read back
// right before the implicit end.
func TestGenerateAccumulatorConventionByteExact(t *testing.T) {
	res := mustGenerate(t, `
function add(a, b: i32): i32
begin
	add := a + b
end
`, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)

	want := []byte{
		0x01, 0x01, wasmop.ValI32, // one locals-run: 1 x i32 (the $_return local)
		wasmop.OpLocalGet, 0x00,
		wasmop.OpLocalGet, 0x01,
		wasmop.OpI32Add,
		wasmop.OpLocalSet, 0x02,
		wasmop.OpLocalGet, 0x02,
		wasmop.OpEnd,
	}
	require.Equal(t, want, bodies[0])
}

// TestGenerateVectorConstructorPacksConstant verifies the constant-args
// branch of vector construction packs a single v128.const immediate rather
// than a splat or replace_lane chain.
func TestGenerateVectorConstructorPacksConstant(t *testing.T) {
	res := mustGenerate(t, `
function makeVec(): i32x4
begin
	makeVec := i32x4(1, 2, 3, 4)
end
`, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)

	want := []byte{
		0x01, 0x01, wasmop.ValV128,
		wasmop.PrefixFD, 0x0C, // v128.const
		1, 0, 0, 0,
		2, 0, 0, 0,
		3, 0, 0, 0,
		4, 0, 0, 0,
		wasmop.OpLocalSet, 0x00,
		wasmop.OpLocalGet, 0x00,
		wasmop.OpEnd,
	}
	require.Equal(t, want, bodies[0])
}

// TestGeneratePowHalfLowersToSqrtNoImport covers Testable Property #10:
// `x ** 0.5` must lower straight to f64.sqrt, and the module must carry no
// math.pow import at all (no Import section, since nothing else needs one).
func TestGeneratePowHalfLowersToSqrtNoImport(t *testing.T) {
	res := mustGenerate(t, `
function root(x: f64): f64
begin
	root := x ** 0.5
end
`, Options{})
	ids := sectionIDs(t, res.Bytes)
	require.NotContains(t, ids, wasmop.SecImport)

	bodies := codeSectionBodies(t, res.Bytes)
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpF64Sqrt}))
}

// TestGeneratePowOtherExponentImportsMathPow is root's companion: any
// exponent other than the literal 0.5 must still synthesise the math.pow
// auto-import.
func TestGeneratePowOtherExponentImportsMathPow(t *testing.T) {
	res := mustGenerate(t, `
function square(x: f64): f64
begin
	square := x ** 2.0
end
`, Options{})
	ids := sectionIDs(t, res.Bytes)
	require.Contains(t, ids, wasmop.SecImport)

	bodies := codeSectionBodies(t, res.Bytes)
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpCall, 0x00}))
}

// TestGenerateForLoopAscendingTerminationIsInclusive covers the S3 worked
// example's exact bound: a default-step (+1) for loop from 0 to 5 must
// exit via an inclusive idx >= stop test, not the strict idx > stop that
// would run one extra iteration.
func TestGenerateForLoopAscendingTerminationIsInclusive(t *testing.T) {
	res := mustGenerate(t, `
subroutine countup()
var
	i: i32
begin
	for i := 0, 5
	end for
end
`, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpI32GeS}),
		"ascending for-loop must emit an inclusive >= termination test")
	require.False(t, containsSubsequence(bodies[0], []byte{wasmop.OpI32GtS}),
		"ascending for-loop must not emit a strict > termination test")
}

// TestGenerateForLoopDescendingTerminationIsInclusive is countup's
// companion for a negative constant step: termination must use an
// inclusive idx <= stop test.
func TestGenerateForLoopDescendingTerminationIsInclusive(t *testing.T) {
	res := mustGenerate(t, `
subroutine countdown()
var
	i: i32
begin
	for i := 5, 0, -1
	end for
end
`, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpI32LeS}),
		"descending for-loop must emit an inclusive <= termination test")
	require.False(t, containsSubsequence(bodies[0], []byte{wasmop.OpI32LtS}),
		"descending for-loop must not emit a strict < termination test")
}

// TestGenerateTailcallMismatchedReturnTypeFails covers Testable Property
// #9: a tailcall whose callee's return type differs from the enclosing
// function's must be rejected, never silently truncated/widened.
func TestGenerateTailcallMismatchedReturnTypeFails(t *testing.T) {
	prog, err := parser.Parse(`
function f(n: i32): i32
begin
	tailcall g(n)
end

function g(n: i32): f64
begin
	g := 1.0
end
`)
	require.NoError(t, err)
	_, err = Generate(prog, Options{})
	require.Error(t, err)
}

// TestGenerateTailcallSameReturnTypeSucceeds is the companion: a
// same-signature self-recursive tailcall lowers to return_call, never a
// plain call, and compiles without error.
func TestGenerateTailcallSameReturnTypeSucceeds(t *testing.T) {
	res := mustGenerate(t, `
function fact(n, acc: i32): i32
begin
	tailcall fact(n - 1, acc * n)
end
`, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpReturnCall, 0x00}))
	require.False(t, containsSubsequence(bodies[0], []byte{wasmop.OpCall, 0x00}))
}

// TestGenerateIndirectTableSortedByFuncIndex covers Testable Property #6:
// the indirect-call table's slot assignment must be deterministic, ordered
// by funcIndex regardless of declaration or reference order.
func TestGenerateIndirectTableSortedByFuncIndex(t *testing.T) {
	res := mustGenerate(t, `
subroutine runA()
begin
end

subroutine runB()
begin
end

subroutine dispatch(f: function())
begin
	call f()
end

subroutine main()
begin
	call dispatch(@runB)
	call dispatch(@runA)
end
`, Options{})
	require.NotNil(t, res.Table)
	require.Less(t, res.Table["runA"], res.Table["runB"])
	require.Less(t, res.Table["runB"], res.Table["dispatch"])
	require.Less(t, res.Table["dispatch"], res.Table["main"])
}

// TestGenerateAutoImportNotInTableUnlessReferenced covers the same
// indirect-call-table rule from the opposite direction: an auto-imported
// builtin (here math.pow, synthesised by a non-0.5 `**` exponent) must not
// occupy a table slot just because *some* indirect call exists elsewhere in
// the module -- only an explicit @name reference earns it one.
func TestGenerateAutoImportNotInTableUnlessReferenced(t *testing.T) {
	res := mustGenerate(t, `
subroutine cube()
var
	x: f64
begin
	x := 3.0 ** 3.0
end

subroutine dispatch(f: function())
begin
	call f()
end

subroutine main()
begin
	call dispatch(@cube)
end
`, Options{})
	require.NotNil(t, res.Table)
	_, inTable := res.Table["pow"]
	require.False(t, inTable, "auto-imported pow must not be seeded into the indirect-call table without an @pow reference")
	_, cubeInTable := res.Table["cube"]
	require.True(t, cubeInTable)
}

// TestGenerateArrayParamOwnsMemory covers the memory-ownership decision
// recorded in DESIGN.md: a program with an array parameter and no
// externally-supplied memory allocates and exports its own single-page
// memory.
func TestGenerateArrayParamOwnsMemory(t *testing.T) {
	res := mustGenerate(t, `
subroutine fill(buf: array i32)
var
	i: i32
begin
	buf[i] := 0
end
`, Options{})
	ids := sectionIDs(t, res.Bytes)
	require.Contains(t, ids, wasmop.SecMemory)
	require.Contains(t, ids, wasmop.SecExport)
}

// TestGenerateExternalMemoryImportsInsteadOfOwning is the companion: when
// the host supplies memory, the module imports env.memory and never emits
// its own Memory section, even for a program that never touches an array.
func TestGenerateExternalMemoryImportsInsteadOfOwning(t *testing.T) {
	res := mustGenerate(t, `
export subroutine noop()
begin
end
`, Options{HasExternalMemory: true})
	ids := sectionIDs(t, res.Bytes)
	require.Contains(t, ids, wasmop.SecImport)
	require.NotContains(t, ids, wasmop.SecMemory)
}

// TestGenerateNoMemoryWhenUnused: a program touching neither arrays nor
// external memory gets no memory section or import at all.
func TestGenerateNoMemoryWhenUnused(t *testing.T) {
	res := mustGenerate(t, `
export subroutine noop()
begin
end
`, Options{})
	ids := sectionIDs(t, res.Bytes)
	require.NotContains(t, ids, wasmop.SecMemory)
	require.NotContains(t, ids, wasmop.SecImport)
}

// TestGenerateNestedLayoutFieldIsAddressNotLoad exercises the
// resolveFieldPath decision recorded in DESIGN.md: referencing a
// nested-layout field bare yields its address, and assigning to it is
// rejected as a semantic error.
func TestGenerateNestedLayoutFieldIsAddressNotLoad(t *testing.T) {
	src := `
layout Point
	x, y: f64
end layout

layout Line
	from, to: layout Point
end layout

var ln: layout Line

function fromAddr(): i32
begin
	fromAddr := ln.from
end
`
	res := mustGenerate(t, src, Options{})
	bodies := codeSectionBodies(t, res.Bytes)
	require.Len(t, bodies, 1)
	// global.get (the Line global) with no load opcode anywhere in the body.
	require.True(t, containsSubsequence(bodies[0], []byte{wasmop.OpGlobalGet, 0x00}))
	require.False(t, containsSubsequence(bodies[0], []byte{wasmop.OpF64Load}))
}

func TestGenerateAssignToNestedLayoutFieldFails(t *testing.T) {
	prog, err := parser.Parse(`
layout Point
	x, y: f64
end layout

layout Line
	from, to: layout Point
end layout

var ln: layout Line

subroutine bad()
begin
	ln.from.x := 1.0
end
`)
	require.NoError(t, err)
	_, err = Generate(prog, Options{})
	require.NoError(t, err) // ln.from.x is a scalar leaf, this must succeed

	prog2, err := parser.Parse(`
layout Point
	x, y: f64
end layout

layout Line
	from, to: layout Point
end layout

var ln: layout Line

subroutine bad()
begin
	ln.from := ln.to
end
`)
	require.NoError(t, err)
	_, err = Generate(prog2, Options{})
	require.Error(t, err)
}

func TestAlignExpIsLog2Exponent(t *testing.T) {
	require.Equal(t, uint32(2), alignExp(wasmop.ValI32))
	require.Equal(t, uint32(2), alignExp(wasmop.ValF32))
	require.Equal(t, uint32(3), alignExp(wasmop.ValI64))
	require.Equal(t, uint32(3), alignExp(wasmop.ValF64))
	require.Equal(t, uint32(4), alignExp(wasmop.ValV128))
}

func TestClassifyCallPriorityOrder(t *testing.T) {
	fnType := &ast.TypeRef{Kind: ast.TypeFunction, FuncSig: &ast.FuncSigRef{}}
	scope := map[string]*ast.TypeRef{"callback": fnType}

	require.Equal(t, callVectorCtor, classifyCall("i32x4", scope))
	require.Equal(t, callScalarConv, classifyCall("f64", scope))
	require.Equal(t, callSimdNamespaced, classifyCall("i32x4.add", scope))
	require.Equal(t, callNativeBuiltin, classifyCall("sqrt", scope))
	require.Equal(t, callWasmEscape, classifyCall("wasm.div_u", scope))
	require.Equal(t, callIndirect, classifyCall("callback", scope))
	require.Equal(t, callDirect, classifyCall("someUserFunction", scope))
}
