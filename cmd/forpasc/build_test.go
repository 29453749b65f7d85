package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplaceExtSwapsExtension(t *testing.T) {
	require.Equal(t, "hello.wasm", replaceExt("hello.fp", ".wasm"))
	require.Equal(t, "dir/hello.wasm", replaceExt("dir/hello.fp", ".wasm"))
}

func TestReplaceExtNoExistingExtension(t *testing.T) {
	require.Equal(t, "hello.wasm", replaceExt("hello", ".wasm"))
}

func TestParseImportsFlagEmptyIsZeroValue(t *testing.T) {
	im, err := parseImportsFlag("")
	require.NoError(t, err)
	require.Nil(t, im.Memory)
	require.Nil(t, im.Hosts)
}

func TestParseImportsFlagParsesHostsAndMemory(t *testing.T) {
	im, err := parseImportsFlag(`{"memory": {"min": 1, "max": 4, "hasMax": true}, "hosts": {"log": 1, "add": 2}}`)
	require.NoError(t, err)
	require.NotNil(t, im.Memory)
	require.Equal(t, uint32(1), im.Memory.Min)
	require.Equal(t, uint32(4), im.Memory.Max)
	require.True(t, im.Memory.HasMax)
	require.Equal(t, 1, im.Hosts["log"].Arity)
	require.Equal(t, 2, im.Hosts["add"].Arity)
}

func TestParseImportsFlagRejectsInvalidJSON(t *testing.T) {
	_, err := parseImportsFlag("{not json")
	require.Error(t, err)
}

func TestRunBuildWritesWasmFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.fp")
	require.NoError(t, os.WriteFile(src, []byte(`function f(): i32 begin f := 1 end`), 0o644))

	buildImportsFlag = ""
	buildOutFlag = ""
	cachePathFlag = ""

	err := runBuild(buildCmd, []string{src})
	require.NoError(t, err)

	out := filepath.Join(dir, "prog.wasm")
	bytes, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, bytes)
}
