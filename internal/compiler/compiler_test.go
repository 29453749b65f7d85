package compiler

import (
	"testing"

	"github.com/lhaig/forpasc/internal/wasmop"
	"github.com/stretchr/testify/require"
)

func TestCompileAccumulatorProgram(t *testing.T) {
	src := `
function accum(a, b, c: f64): f64
begin
  accum := a + b
  accum := accum + c
end
`
	res, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Bytes)
	require.Equal(t, wasmop.Magic, res.Bytes[0:4])
	require.Nil(t, res.Table)
	require.Nil(t, res.Layouts)
}

func TestCompileIndirectCallBuildsTable(t *testing.T) {
	src := `
function double(x: f64): f64 begin double := x * 2.0 end
function triple(x: f64): f64 begin triple := x * 3.0 end
function apply(f: function(x: f64): f64, x: f64): f64
begin  apply := f(x)  end
`
	res, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), res.Table["double"])
	require.Equal(t, uint32(1), res.Table["triple"])
	require.Equal(t, uint32(2), res.Table["apply"])
}

func TestCompileTailcallEmitsReturnCallOpcode(t *testing.T) {
	src := `
function countdown(n: i32): i32
begin
  if (n <= 0) then countdown := 0
  else tailcall countdown(n - 1)
  end if
end
`
	res, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)
	require.Contains(t, res.Bytes, wasmop.OpReturnCall)
}

func TestCompileLayoutSideTableMatchesSphereExample(t *testing.T) {
	src := `
layout Sphere
  cx, cy, cz: f64
  radius: f64
  id: i32
end layout

export subroutine touch()
begin
end
`
	res, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Layouts)

	sphere := res.Layouts["Sphere"]
	require.NotNil(t, sphere)
	require.Equal(t, 40, sphere.Size)
	require.Equal(t, 8, sphere.Align)

	offsets := map[string]int{}
	for _, f := range sphere.Fields {
		offsets[f.Name] = f.Offset
	}
	require.Equal(t, 0, offsets["cx"])
	require.Equal(t, 8, offsets["cy"])
	require.Equal(t, 16, offsets["cz"])
	require.Equal(t, 24, offsets["radius"])
	require.Equal(t, 32, offsets["id"])
}

func TestCompileSyntaxErrorPropagatesNoPartialOutput(t *testing.T) {
	src := `function broken(: f64 begin end`
	res, err := Compile(src, Imports{}, nil)
	require.Error(t, err)
	require.Nil(t, res)
}

func TestCompileUsesCacheOnSecondCall(t *testing.T) {
	src := `function f(): i32 begin f := 42 end`
	cache, err := OpenCache("")
	require.NoError(t, err)
	defer cache.Close()

	res1, err := Compile(src, Imports{}, cache)
	require.NoError(t, err)
	stats, err := cache.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries)

	res2, err := Compile(src, Imports{}, cache)
	require.NoError(t, err)
	require.Equal(t, res1.Bytes, res2.Bytes)

	stats, err = cache.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries, "a cache hit must not grow the table")
}

func TestCompileDifferentImportsGetDifferentCacheEntries(t *testing.T) {
	src := `function f(): i32 begin f := 42 end`
	cache, err := OpenCache("")
	require.NoError(t, err)
	defer cache.Close()

	_, err = Compile(src, Imports{}, cache)
	require.NoError(t, err)
	_, err = Compile(src, Imports{Hosts: map[string]HostFunc{"log": {Arity: 1}}}, cache)
	require.NoError(t, err)

	stats, err := cache.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.Entries)
}

func TestCacheKeyDeterministicRegardlessOfMapOrder(t *testing.T) {
	im1 := Imports{Hosts: map[string]HostFunc{"a": {Arity: 1}, "b": {Arity: 2}}}
	im2 := Imports{Hosts: map[string]HostFunc{"b": {Arity: 2}, "a": {Arity: 1}}}

	_, h1 := cacheKey("source", im1)
	_, h2 := cacheKey("source", im2)
	require.Equal(t, h1, h2)
}

func TestDumpReturnsHexOfCompileBytes(t *testing.T) {
	src := `function f(): i32 begin f := 42 end`
	res, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)

	hexStr, err := Dump(src, Imports{}, nil)
	require.NoError(t, err)
	require.Len(t, hexStr, len(res.Bytes)*2)
}

func TestParseReturnsProgramAndLayouts(t *testing.T) {
	src := `
layout Point
  x, y: f64
end layout

function f(): i32 begin f := 1 end
`
	prog, layouts, err := Parse(src)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Items)
	require.Contains(t, layouts, "Point")
}

func TestParseNoLayoutsReturnsEmptyMap(t *testing.T) {
	prog, layouts, err := Parse(`function f(): i32 begin f := 1 end`)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Items)
	require.Empty(t, layouts)
}

func TestStripPragmaRemovesLeadingRequiresLine(t *testing.T) {
	src := "#requires engine >= \"1.0.0\"\nfunction f(): i32 begin f := 1 end"
	rest, constraint, err := stripPragma(src)
	require.NoError(t, err)
	require.NotNil(t, constraint)
	require.NotContains(t, rest, "#requires")
	require.Contains(t, rest, "function f")
}

func TestStripPragmaAbsentReturnsSourceUnchanged(t *testing.T) {
	src := `function f(): i32 begin f := 1 end`
	rest, constraint, err := stripPragma(src)
	require.NoError(t, err)
	require.Nil(t, constraint)
	require.Equal(t, src, rest)
}

func TestCheckEngineRequirementSatisfiedSucceeds(t *testing.T) {
	src := "#requires engine >= \"1.0.0\"\nfunction f(): i32 begin f := 1 end"
	_, err := Compile(src, Imports{}, nil)
	require.NoError(t, err)
}

func TestCheckEngineRequirementUnsatisfiedFails(t *testing.T) {
	src := "#requires engine >= \"9.0.0\"\nfunction f(): i32 begin f := 1 end"
	_, err := Compile(src, Imports{}, nil)
	require.Error(t, err)
}

func TestValidateFeaturesAcceptsKnownNames(t *testing.T) {
	names, err := ValidateFeatures("tail-call,simd128")
	require.NoError(t, err)
	require.Equal(t, []string{"simd128", "tail-call"}, names)
}

func TestValidateFeaturesEmptyStringIsNoFeatures(t *testing.T) {
	names, err := ValidateFeatures("  ")
	require.NoError(t, err)
	require.Nil(t, names)
}

func TestValidateFeaturesRejectsUnknownName(t *testing.T) {
	_, err := ValidateFeatures("simd128,vectorize-everything")
	require.Error(t, err)
}
