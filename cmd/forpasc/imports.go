package main

import (
	"encoding/json"
	"fmt"

	"github.com/lhaig/forpasc/internal/compiler"
)

// importsSpec is the --imports flag's JSON shape. The CLI never has a
// live host function value to hand across the process boundary, so
// spec.md §6's imports object shape is reduced to what a command-line
// invocation can actually carry: host function arities, and whether a
// memory is supplied at all.
type importsSpec struct {
	Memory *struct {
		Min    uint32 `json:"min"`
		Max    uint32 `json:"max"`
		HasMax bool   `json:"hasMax"`
	} `json:"memory"`
	Hosts map[string]int `json:"hosts"`
}

func parseImportsFlag(raw string) (compiler.Imports, error) {
	if raw == "" {
		return compiler.Imports{}, nil
	}

	var spec importsSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return compiler.Imports{}, fmt.Errorf("--imports: %w", err)
	}

	var im compiler.Imports
	if spec.Memory != nil {
		im.Memory = &compiler.MemoryImport{Min: spec.Memory.Min, Max: spec.Memory.Max, HasMax: spec.Memory.HasMax}
	}
	if len(spec.Hosts) > 0 {
		im.Hosts = make(map[string]compiler.HostFunc, len(spec.Hosts))
		for name, arity := range spec.Hosts {
			im.Hosts[name] = compiler.HostFunc{Arity: arity}
		}
	}
	return im, nil
}
