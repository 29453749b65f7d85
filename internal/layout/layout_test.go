package layout

import (
	"testing"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/stretchr/testify/require"
)

func prim(name string) *ast.TypeRef { return &ast.TypeRef{Kind: ast.TypePrim, Prim: name} }

func field(name string, ty *ast.TypeRef) *ast.LayoutField {
	return &ast.LayoutField{Name: name, Type: ty}
}

func TestSphereLayoutMatchesScenario(t *testing.T) {
	decl := &ast.LayoutDecl{
		Name: "Sphere",
		Fields: []*ast.LayoutField{
			field("cx", prim("f64")),
			field("cy", prim("f64")),
			field("cz", prim("f64")),
			field("radius", prim("f64")),
			field("id", prim("i32")),
		},
	}

	layouts, err := Compute([]*ast.LayoutDecl{decl})
	require.NoError(t, err)

	sphere := layouts["Sphere"]
	require.Equal(t, 40, sphere.Size)
	require.Equal(t, 8, sphere.Align)

	want := map[string]int{"cx": 0, "cy": 8, "cz": 16, "radius": 24, "id": 32}
	for name, offset := range want {
		f, ok := sphere.FieldByName(name)
		require.True(t, ok, name)
		require.Equal(t, offset, f.Offset, name)
	}
}

func TestNonPackedLayoutMonotonicAndAligned(t *testing.T) {
	decl := &ast.LayoutDecl{
		Name: "Mixed",
		Fields: []*ast.LayoutField{
			field("flag", prim("i32")),
			field("big", prim("f64")),
			field("small", prim("i32")),
		},
	}
	layouts, err := Compute([]*ast.LayoutDecl{decl})
	require.NoError(t, err)
	m := layouts["Mixed"]

	for i := 1; i < len(m.Fields); i++ {
		prev, cur := m.Fields[i-1], m.Fields[i]
		require.LessOrEqual(t, prev.Offset+prev.Size, cur.Offset)
		require.Zero(t, cur.Offset%cur.Align)
	}
	// flag:i32 @0 size4, big:f64 must round up to 8 -> @8, small:i32 @16
	require.Equal(t, 0, m.Fields[0].Offset)
	require.Equal(t, 8, m.Fields[1].Offset)
	require.Equal(t, 16, m.Fields[2].Offset)
	require.Equal(t, 24, m.Size) // padded to align 8
	require.Equal(t, 8, m.Align)
}

func TestPackedLayoutHasNoPadding(t *testing.T) {
	decl := &ast.LayoutDecl{
		Name:   "Packed",
		Packed: true,
		Fields: []*ast.LayoutField{
			field("flag", prim("i32")),
			field("big", prim("f64")),
			field("small", prim("i32")),
		},
	}
	layouts, err := Compute([]*ast.LayoutDecl{decl})
	require.NoError(t, err)
	p := layouts["Packed"]

	require.Equal(t, 1, p.Align)
	require.Equal(t, 16, p.Size) // 4 + 8 + 4, no padding

	for i := 1; i < len(p.Fields); i++ {
		prev, cur := p.Fields[i-1], p.Fields[i]
		require.Equal(t, prev.Offset+prev.Size, cur.Offset)
	}
}

func TestNestedLayoutField(t *testing.T) {
	point := &ast.LayoutDecl{
		Name: "Point",
		Fields: []*ast.LayoutField{
			field("x", prim("f64")),
			field("y", prim("f64")),
		},
	}
	line := &ast.LayoutDecl{
		Name: "Line",
		Fields: []*ast.LayoutField{
			field("from", &ast.TypeRef{Kind: ast.TypeLayout, LayoutName: "Point"}),
			field("to", &ast.TypeRef{Kind: ast.TypeLayout, LayoutName: "Point"}),
		},
	}

	layouts, err := Compute([]*ast.LayoutDecl{point, line})
	require.NoError(t, err)
	l := layouts["Line"]
	require.Equal(t, 32, l.Size)
	from, _ := l.FieldByName("from")
	to, _ := l.FieldByName("to")
	require.Equal(t, 0, from.Offset)
	require.Equal(t, 16, to.Offset)
	require.Equal(t, "Point", to.NestedLayout)
}

func TestUndeclaredNestedLayoutIsSemanticError(t *testing.T) {
	decl := &ast.LayoutDecl{
		Name: "Bad",
		Fields: []*ast.LayoutField{
			field("p", &ast.TypeRef{Kind: ast.TypeLayout, LayoutName: "Missing"}),
		},
	}
	_, err := Compute([]*ast.LayoutDecl{decl})
	require.Error(t, err)
	_, ok := err.(*diagnostic.SemanticError)
	require.True(t, ok)
}
