package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
)

// EngineVersion is this compiler's own Wasm feature-surface version: the
// SIMD-128 and tail-call extensions codegen always emits, versioned so a
// module can state a minimum it requires via the #requires engine pragma
// below. It is not a Wasm version and never changes what bytes codegen
// produces -- it only gates whether Compile refuses to run at all.
var EngineVersion = version.Must(version.NewVersion("1.2.0"))

// supportedFeatures names the proposal flags --features accepts. Both are
// unconditional in codegen's output (there is no opt-out), so validating
// --features only catches a typo or an unsupported proposal name before
// any CLI command runs; it never toggles codegen.
var supportedFeatures = map[string]bool{
	"simd128":   true,
	"tail-call": true,
}

// ValidateFeatures parses a comma-separated --features list, rejecting
// any name this compiler does not implement, and returns the recognised
// names sorted for a deterministic `version` command banner.
func ValidateFeatures(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if !supportedFeatures[name] {
			return nil, fmt.Errorf("unsupported feature %q (supported: simd128, tail-call)", name)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// pragmaPattern matches the optional `#requires engine CMP "X.Y.Z"` header
// line, e.g. `#requires engine >= "1.2.0"`.
var pragmaPattern = regexp.MustCompile(`^#requires\s+engine\s*(>=|<=|==|>|<)\s*"([^"]+)"\s*$`)

// stripPragma removes a leading #requires engine pragma, if it is the
// first non-blank line of source, and parses it into a version
// constraint. This is comment syntax stripped by the driver, not grammar
// the lexer/parser ever see -- SPEC_FULL.md §3 is explicit that this does
// not change any spec.md grammar rule. Absent, it returns source
// unchanged and a nil constraint.
func stripPragma(source string) (rest string, constraint *version.Constraints, err error) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := pragmaPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return source, nil, nil
		}
		c, cerr := version.NewConstraint(m[1] + " " + m[2])
		if cerr != nil {
			return "", nil, fmt.Errorf("invalid #requires engine pragma: %w", cerr)
		}
		rest = strings.Join(append(append([]string{}, lines[:i]...), lines[i+1:]...), "\n")
		return rest, &c, nil
	}
	return source, nil, nil
}

// checkEngineRequirement fails Compile/Parse before the lexer ever runs
// when a module declares a minimum engine version this build does not
// satisfy.
func checkEngineRequirement(constraint *version.Constraints) error {
	if constraint == nil {
		return nil
	}
	if !constraint.Check(EngineVersion) {
		return fmt.Errorf("module requires engine %s, this compiler targets %s", constraint, EngineVersion)
	}
	return nil
}
