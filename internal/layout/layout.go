// Package layout computes record layouts for `layout` declarations:
// per-field byte offsets, and the layout's own size and alignment, per
// spec.md §3's offset/align rules. Compiled values of layout type are
// pointers (i32) into linear memory; layout computation happens once,
// ahead of code generation, the way the code generator's "classify items"
// pre-scan does for every other index table.
package layout

import (
	"fmt"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/diagnostic"
)

// Field is one computed field of a layout: its byte offset within the
// record, its size, and (for scalar fields) the primitive type name, or
// (for nested fields) the nested layout's name.
type Field struct {
	Name         string
	Offset       int
	Size         int
	Align        int
	Prim         string // "" if NestedLayout is set
	NestedLayout string // "" if Prim is set
}

// Layout is the fully computed descriptor for one `layout` declaration.
type Layout struct {
	Name   string
	Packed bool
	Fields []Field
	Size   int
	Align  int
}

// FieldByName looks up a field by name, returning (field, true) if found.
func (l *Layout) FieldByName(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var primSize = map[string]int{
	"i32": 4, "i64": 8, "f32": 4, "f64": 8,
	"v128": 16, "f64x2": 16, "f32x4": 16, "i32x4": 16, "i64x2": 16,
}

var primAlign = primSize // every primitive this language supports is self-aligned

// Sizeof returns the byte size of a primitive or vector type name.
func Sizeof(prim string) (int, bool) {
	n, ok := primSize[prim]
	return n, ok
}

// roundUp rounds n up to the next multiple of align (align must be >= 1).
func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// Compute computes layouts for decls in declaration order. A layout field
// of TypeLayout kind must name a layout already computed earlier in decls
// (no forward references, matching the single-pass pipeline's "already
// seen" invariant for every other index table).
func Compute(decls []*ast.LayoutDecl) (map[string]*Layout, error) {
	out := make(map[string]*Layout, len(decls))

	for _, decl := range decls {
		l := &Layout{Name: decl.Name, Packed: decl.Packed}

		running := 0
		maxAlign := 1

		for _, f := range decl.Fields {
			var size, align int
			var prim, nested string

			switch f.Type.Kind {
			case ast.TypePrim:
				n, ok := Sizeof(f.Type.Prim)
				if !ok {
					return nil, &diagnostic.SemanticError{
						Message: fmt.Sprintf("layout %q: field %q has unsupported type %q", decl.Name, f.Name, f.Type.Prim),
						Line:    f.Line, Column: f.Column,
					}
				}
				size, align, prim = n, n, f.Type.Prim

			case ast.TypeLayout:
				nestedLayout, ok := out[f.Type.LayoutName]
				if !ok {
					return nil, &diagnostic.SemanticError{
						Message: fmt.Sprintf("layout %q: field %q references undeclared layout %q", decl.Name, f.Name, f.Type.LayoutName),
						Line:    f.Line, Column: f.Column,
					}
				}
				size, align, nested = nestedLayout.Size, nestedLayout.Align, f.Type.LayoutName

			default:
				return nil, &diagnostic.SemanticError{
					Message: fmt.Sprintf("layout %q: field %q must be a primitive, vector, or layout type", decl.Name, f.Name),
					Line:    f.Line, Column: f.Column,
				}
			}

			if decl.Packed {
				align = 1
			}

			offset := roundUp(running, align)
			running = offset + size
			if align > maxAlign {
				maxAlign = align
			}

			l.Fields = append(l.Fields, Field{
				Name: f.Name, Offset: offset, Size: size, Align: align,
				Prim: prim, NestedLayout: nested,
			})
		}

		if decl.Packed {
			l.Align = 1
			l.Size = running
		} else {
			l.Align = maxAlign
			l.Size = roundUp(running, maxAlign)
		}

		out[decl.Name] = l
	}

	return out, nil
}
