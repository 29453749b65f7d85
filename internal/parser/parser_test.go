package parser

import (
	"testing"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	return prog
}

func TestParseConstAndVarDecl(t *testing.T) {
	prog := mustParse(t, `
const Pi: f64 := 3.14
var counter: i32 := 0
`)
	require.Len(t, prog.Items, 2)
	c, ok := prog.Items[0].(*ast.ConstDecl)
	require.True(t, ok)
	require.Equal(t, "Pi", c.Name)
	v, ok := prog.Items[1].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "counter", v.Name)
	require.True(t, v.Mutable)
}

func TestParseImportDottedName(t *testing.T) {
	prog := mustParse(t, `import math.sin(x: f64): f64`)
	imp := prog.Items[0].(*ast.ImportDecl)
	require.Equal(t, "math", imp.ModuleName)
	require.Equal(t, "sin", imp.Name)
	require.Len(t, imp.Params, 1)
	require.Equal(t, "f64", imp.Params[0].Type.Prim)
}

func TestParseParamGroupSharesType(t *testing.T) {
	prog := mustParse(t, `
function add(a, b: i32): i32
begin
	a := a + b
end
`)
	fn := prog.Items[0].(*ast.Function)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)
	require.Equal(t, "b", fn.Params[1].Name)
	require.Equal(t, "i32", fn.Params[0].Type.Prim)
	require.Equal(t, "i32", fn.Params[1].Type.Prim)
}

func TestParseParamGroupsSeparateTypes(t *testing.T) {
	prog := mustParse(t, `
function mix(a: i32, b: f64): f64
begin
	b := b + a
end
`)
	fn := prog.Items[0].(*ast.Function)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "i32", fn.Params[0].Type.Prim)
	require.Equal(t, "f64", fn.Params[1].Type.Prim)
}

func TestParseSubroutineNoReturnType(t *testing.T) {
	prog := mustParse(t, `
export subroutine main()
begin
	call log(1)
end
`)
	sr := prog.Items[0].(*ast.Subroutine)
	require.True(t, sr.Exported)
	require.Len(t, sr.Body, 1)
	_, ok := sr.Body[0].(*ast.Call)
	require.True(t, ok)
}

func TestParseLayoutDecl(t *testing.T) {
	prog := mustParse(t, `
layout Sphere packed
	x, y, z: f64
	radius: f64
end layout
`)
	l := prog.Items[0].(*ast.LayoutDecl)
	require.True(t, l.Packed)
	require.Len(t, l.Fields, 4)
	require.Equal(t, "radius", l.Fields[3].Name)
}

func TestParseElseIfChainSingleEnd(t *testing.T) {
	prog := mustParse(t, `
function classify(x: i32): i32
begin
	if (x < 0) then
		x := -1
	else if (x == 0) then
		x := 0
	else
		x := 1
	end if
end
`)
	fn := prog.Items[0].(*ast.Function)
	ifStmt := fn.Body[0].(*ast.If)
	require.True(t, ifStmt.ElseIsIf)
	nested, ok := ifStmt.Else[0].(*ast.If)
	require.True(t, ok)
	require.False(t, nested.ElseIsIf)
	require.Len(t, nested.Else, 1)
}

func TestParseForWhileDoWhile(t *testing.T) {
	prog := mustParse(t, `
subroutine loops()
begin
	for i := 0, 10, 2
		call log(i)
	end for
	while (true)
		break
	end while
	do
		call log(1)
	while (false)
end
`)
	sr := prog.Items[0].(*ast.Subroutine)
	require.Len(t, sr.Body, 3)
	forStmt := sr.Body[0].(*ast.For)
	require.Equal(t, "i", forStmt.Var)
	require.NotNil(t, forStmt.Step)
	_, ok := sr.Body[1].(*ast.While)
	require.True(t, ok)
	_, ok = sr.Body[2].(*ast.DoWhile)
	require.True(t, ok)
}

func TestParseArrayStoreAndAccess(t *testing.T) {
	prog := mustParse(t, `
subroutine fill(buf: array i32)
var
	i: i32
begin
	buf[i] := buf[i] + 1
end
`)
	sr := prog.Items[0].(*ast.Subroutine)
	store := sr.Body[0].(*ast.ArrayStore)
	require.Equal(t, "buf", store.Name)
	require.Equal(t, ":=", store.Op)
	bin := store.Value.(*ast.BinOp)
	_, ok := bin.Left.(*ast.ArrayAccess)
	require.True(t, ok)
}

func TestParseRightAssociativePower(t *testing.T) {
	// a ** b ** c must parse as a ** (b ** c)
	prog := mustParse(t, `
const X: f64 := 2.0 ** 3.0 ** 2.0
`)
	c := prog.Items[0].(*ast.ConstDecl)
	top := c.Init.(*ast.BinOp)
	require.Equal(t, "**", top.Op)
	_, leftIsNum := top.Left.(*ast.NumberLit)
	require.True(t, leftIsNum)
	right := top.Right.(*ast.BinOp)
	require.Equal(t, "**", right.Op)
}

func TestParseUnaryMinusBindsLooserThanPower(t *testing.T) {
	// -a ** b must parse as -(a ** b), matching Fortran/Python (-2**2 == -4),
	// not (-a) ** b.
	prog := mustParse(t, `
const X: f64 := -2.0 ** 2.0
`)
	c := prog.Items[0].(*ast.ConstDecl)
	neg := c.Init.(*ast.UnaryOp)
	require.Equal(t, "-", neg.Op)
	pow := neg.Operand.(*ast.BinOp)
	require.Equal(t, "**", pow.Op)
}

func TestParseSlashEqualsAsDivideAssignInStatement(t *testing.T) {
	prog := mustParse(t, `
subroutine halve(n: i32)
begin
	n /= 2
end
`)
	sr := prog.Items[0].(*ast.Subroutine)
	assign := sr.Body[0].(*ast.Assign)
	require.Equal(t, "/=", assign.Op)
}

func TestParseSlashEqualsAsNotEqualInExpression(t *testing.T) {
	prog := mustParse(t, `
function differs(a, b: i32): i32
begin
	a := if (a /= b) then 1 else 0
end
`)
	fn := prog.Items[0].(*ast.Function)
	assign := fn.Body[0].(*ast.Assign)
	ifExpr := assign.Value.(*ast.IfExpr)
	cmp := ifExpr.Cond.(*ast.BinOp)
	require.Equal(t, "/=", cmp.Op)
}

func TestParseTailCallAndFuncRef(t *testing.T) {
	prog := mustParse(t, `
function fact(n, acc: i32): i32
begin
	tailcall fact(n - 1, acc * n)
end

function apply(f: function(v: i32): i32, x: i32): i32
begin
	apply := f(x)
end
`)
	fn := prog.Items[0].(*ast.Function)
	_, ok := fn.Body[0].(*ast.TailCall)
	require.True(t, ok)

	apply := prog.Items[1].(*ast.Function)
	require.Equal(t, ast.TypeFunction, apply.Params[0].Type.Kind)
	require.Len(t, apply.Params[0].Type.FuncSig.ParamTypes, 1)
}

func TestParseVectorConstructorCall(t *testing.T) {
	prog := mustParse(t, `
const V: f64x2 := f64x2(1.0, 2.0)
`)
	c := prog.Items[0].(*ast.ConstDecl)
	call := c.Init.(*ast.FuncCall)
	require.Equal(t, "f64x2", call.Name)
	require.Len(t, call.Args, 2)
}

func TestParseUnexpectedTokenReturnsSyntaxError(t *testing.T) {
	_, err := Parse(`function ) broken`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "syntax error")
}

func TestParseUnclosedBlockReturnsSyntaxError(t *testing.T) {
	_, err := Parse(`
function f(): i32
begin
	f := 1
`)
	require.Error(t, err)
}
