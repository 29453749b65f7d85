// Package compiler joins lexer -> parser -> layout -> codegen into the
// driver entry points spec.md §6 names: Compile, Parse, Dump. It also owns
// the two pieces of ambient infrastructure that sit above codegen but
// below the CLI: the JIT-stability cache (cache.go) and engine/feature
// negotiation (features.go).
//
// Run -- "run(source, imports?) -> host-resolved exports" in spec.md §6 --
// is explicitly out of scope: this package only ever produces module
// bytes, never executes them. An embedder wanting Run wires Compile's
// output into a Wasm runtime of its own choosing (wazero, wasmtime-go,
// ...), the same boundary the teacher draws between its own Compile
// (parse -> check -> lower -> rustbe) and Build (which shells out to
// cargo rather than owning execution itself).
package compiler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/codegen"
	"github.com/lhaig/forpasc/internal/layout"
	"github.com/lhaig/forpasc/internal/parser"
)

// MemoryImport marks that the host supplies a pre-allocated memory to
// import, per spec.md §6's "__memory (or top-level memory)" imports-object
// field. Min/Max are carried through for an embedder's own reference;
// codegen itself always imports it as env.memory regardless of their
// values, since spec.md does not give the generated module a second
// memory-naming convention to pick between.
type MemoryImport struct {
	Min uint32
	Max uint32
	HasMax bool
}

// HostFunc is a host-supplied function reduced to the one fact codegen
// needs: its call arity. Neither Go nor the CLI has a live function value
// to introspect across the compile boundary, so the caller states the
// arity directly instead of the compiler deriving it by reflection.
type HostFunc struct {
	Arity int
}

// Imports mirrors spec.md §6's imports object shape. Hosts keys are
// already dotted/flattened by the caller (spec.md's "nested objects
// become dotted keys" rule is a property of whatever produced the
// original nested object -- a tagged-template host, say -- not something
// this package re-derives).
type Imports struct {
	Memory *MemoryImport
	Hosts  map[string]HostFunc
}

func (im Imports) toOptions() codegen.Options {
	opts := codegen.Options{HasExternalMemory: im.Memory != nil}
	if len(im.Hosts) > 0 {
		opts.HostImports = make(map[string]int, len(im.Hosts))
		for name, fn := range im.Hosts {
			opts.HostImports[name] = fn.Arity
		}
	}
	return opts
}

// Result carries the module bytes plus spec.md §6's two host-visible side
// tables. Table is nil unless at least one indirect call could be
// emitted; Layouts is nil unless any layout declarations existed.
type Result struct {
	Bytes   []byte
	Table   map[string]uint32
	Layouts map[string]*layout.Layout
}

// Compile runs the full pipeline -- strip pragma, parse, codegen -- and
// returns the emitted module plus its side tables, matching spec.md §6's
// "compile(source, imports?) -> bytes". cache may be nil, in which case
// every call recompiles; a non-nil cache is consulted first and written
// after a miss, keyed on (source, imports) exactly as SPEC_FULL.md §3
// specifies.
func Compile(source string, imports Imports, cache *Cache) (*Result, error) {
	body, constraint, err := stripPragma(source)
	if err != nil {
		return nil, err
	}
	if err := checkEngineRequirement(constraint); err != nil {
		return nil, err
	}

	sourceHash, importsHash := cacheKey(body, imports)

	if cache != nil {
		hit, err := cache.lookup(sourceHash, importsHash)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			return decodeCached(hit)
		}
	}

	prog, err := parser.Parse(body)
	if err != nil {
		return nil, err
	}
	genRes, err := codegen.Generate(prog, imports.toOptions())
	if err != nil {
		return nil, err
	}

	result := &Result{Bytes: genRes.Bytes, Table: genRes.Table, Layouts: genRes.Layouts}

	if cache != nil {
		tableJSON, layoutsJSON, err := encodeSideTables(result)
		if err != nil {
			return nil, err
		}
		if err := cache.store(sourceHash, importsHash, result.Bytes, tableJSON, layoutsJSON); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Parse runs the lexer/parser and layout computation only -- no codegen,
// no cache -- matching spec.md §6's "parse(source) -> AST plus serialised
// layout table".
func Parse(source string) (*ast.Program, map[string]*layout.Layout, error) {
	body, constraint, err := stripPragma(source)
	if err != nil {
		return nil, nil, err
	}
	if err := checkEngineRequirement(constraint); err != nil {
		return nil, nil, err
	}

	prog, err := parser.Parse(body)
	if err != nil {
		return nil, nil, err
	}

	var decls []*ast.LayoutDecl
	for _, item := range prog.Items {
		if ld, ok := item.(*ast.LayoutDecl); ok {
			decls = append(decls, ld)
		}
	}
	layouts, err := layout.Compute(decls)
	if err != nil {
		return nil, nil, err
	}
	return prog, layouts, nil
}

// Dump runs Compile and hex-encodes the module bytes, matching spec.md
// §6's "dump(source) -> hex string of the compiled module".
func Dump(source string, imports Imports, cache *Cache) (string, error) {
	res, err := Compile(source, imports, cache)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(res.Bytes), nil
}

func encodeSideTables(res *Result) (tableJSON, layoutsJSON string, err error) {
	if res.Table != nil {
		b, err := json.Marshal(res.Table)
		if err != nil {
			return "", "", fmt.Errorf("encode table: %w", err)
		}
		tableJSON = string(b)
	}
	if res.Layouts != nil {
		b, err := json.Marshal(res.Layouts)
		if err != nil {
			return "", "", fmt.Errorf("encode layouts: %w", err)
		}
		layoutsJSON = string(b)
	}
	return tableJSON, layoutsJSON, nil
}

func decodeCached(hit *cachedResult) (*Result, error) {
	res := &Result{Bytes: hit.Bytes}
	if hit.TableJSON != "" {
		if err := json.Unmarshal([]byte(hit.TableJSON), &res.Table); err != nil {
			return nil, fmt.Errorf("decode cached table: %w", err)
		}
	}
	if hit.LayoutsJSON != "" {
		if err := json.Unmarshal([]byte(hit.LayoutsJSON), &res.Layouts); err != nil {
			return nil, fmt.Errorf("decode cached layouts: %w", err)
		}
	}
	return res, nil
}
