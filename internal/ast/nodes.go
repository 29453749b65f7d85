// Package ast defines the tagged-variant AST the parser builds and the
// code generator consumes read-only. Every node records its source
// position for diagnostics.
package ast

// Node is implemented by every AST node.
type Node interface {
	Pos() (line, col int)
}

// Item is implemented by every top-level declaration.
type Item interface {
	Node
	itemNode()
}

// Stmt is implemented by every statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression.
type Expr interface {
	Node
	exprNode()
}

// Program is the root of a parsed source file.
type Program struct {
	Items []Item
}

func (p *Program) Pos() (int, int) { return 1, 1 }

// TypeKind distinguishes the four param/local type shapes spec.md §4.3's
// paramType grammar allows.
type TypeKind int

const (
	TypePrim TypeKind = iota
	TypeArray
	TypeFunction
	TypeLayout
)

// TypeRef describes a declared type: a primitive, an array of a primitive,
// a function pointer signature, or a named layout.
type TypeRef struct {
	Kind TypeKind

	Prim string // TypePrim / element type for TypeArray: "i32","i64","f32","f64", or a vector type name

	ArrayDims []Expr // TypeArray only; nil means no declared dims (flat pointer)

	FuncSig *FuncSigRef // TypeFunction only

	LayoutName string // TypeLayout only

	Line, Column int
}

func (t *TypeRef) Pos() (int, int) { return t.Line, t.Column }

// FuncSigRef is the abstract signature carried by a `function(...)` param
// type: an ordered parameter type list and an optional return type,
// written with the same surface syntax as a real function's header.
type FuncSigRef struct {
	ParamTypes []*TypeRef
	ReturnType *TypeRef // nil if no return type
}

// Param is a function/subroutine parameter or a `var` local declaration.
type Param struct {
	Name   string
	Type   *TypeRef
	Line   int
	Column int
}

func (p *Param) Pos() (int, int) { return p.Line, p.Column }

// ConstDecl declares a module-level immutable global.
type ConstDecl struct {
	Name   string
	Type   *TypeRef
	Init   Expr
	Line   int
	Column int
}

func (c *ConstDecl) Pos() (int, int) { return c.Line, c.Column }
func (c *ConstDecl) itemNode()       {}

// VarDecl declares a module-level mutable global.
type VarDecl struct {
	Name    string
	Type    *TypeRef
	Mutable bool
	Init    Expr // nil if uninitialised (zero value)
	Line    int
	Column  int
}

func (v *VarDecl) Pos() (int, int) { return v.Line, v.Column }
func (v *VarDecl) itemNode()       {}

// Function declares a value-returning procedure. Name may contain dots
// (namespaced export name, e.g. "vec.add").
type Function struct {
	Name       string
	Params     []*Param
	ReturnType *TypeRef
	Locals     []*Param
	Body       []Stmt
	Exported   bool
	Line       int
	Column     int
}

func (f *Function) Pos() (int, int) { return f.Line, f.Column }
func (f *Function) itemNode()       {}

// Subroutine declares a procedure with no return value.
type Subroutine struct {
	Name     string
	Params   []*Param
	Locals   []*Param
	Body     []Stmt
	Exported bool
	Line     int
	Column   int
}

func (s *Subroutine) Pos() (int, int) { return s.Line, s.Column }
func (s *Subroutine) itemNode()       {}

// ImportDecl explicitly imports a host or module function.
type ImportDecl struct {
	Name       string
	ModuleName string
	Params     []*Param
	ReturnType *TypeRef // nil for no return
	InterpIdx  int       // -1 if not an interpolation sentinel import
	Line       int
	Column     int
}

func (i *ImportDecl) Pos() (int, int) { return i.Line, i.Column }
func (i *ImportDecl) itemNode()       {}

// LayoutField is one field of a layout declaration.
type LayoutField struct {
	Name   string
	Type   *TypeRef
	Line   int
	Column int
}

// LayoutDecl declares a record type with computed field offsets.
type LayoutDecl struct {
	Name   string
	Packed bool
	Fields []*LayoutField
	Line   int
	Column int
}

func (l *LayoutDecl) Pos() (int, int) { return l.Line, l.Column }
func (l *LayoutDecl) itemNode()       {}

// --- Statements ---

// Assign is `name (op) expr` where op is one of := += -= *= /=.
type Assign struct {
	Name   string // may be a dotted layout-field path
	Op     string
	Value  Expr
	Line   int
	Column int
}

func (a *Assign) Pos() (int, int) { return a.Line, a.Column }
func (a *Assign) stmtNode()       {}

// ArrayStore is `name[indices] (op) expr`.
type ArrayStore struct {
	Name    string
	Indices []Expr
	Op      string
	Value   Expr
	Line    int
	Column  int
}

func (a *ArrayStore) Pos() (int, int) { return a.Line, a.Column }
func (a *ArrayStore) stmtNode()       {}

// If is an if/then/else statement; ElseIsIf marks that Else holds a single
// nested *If produced by "else if" so only the outermost If consumes the
// closing "end if".
type If struct {
	Cond       Expr
	Then       []Stmt
	Else       []Stmt
	ElseIsIf   bool
	Line       int
	Column     int
}

func (i *If) Pos() (int, int) { return i.Line, i.Column }
func (i *If) stmtNode()       {}

// For is `for name := start, stop[, step] ... end for`.
type For struct {
	Var    string
	Start  Expr
	Stop   Expr
	Step   Expr // nil if absent (defaults to +1)
	Body   []Stmt
	Line   int
	Column int
}

func (f *For) Pos() (int, int) { return f.Line, f.Column }
func (f *For) stmtNode()       {}

// While is `while (cond) ... end while`.
type While struct {
	Cond   Expr
	Body   []Stmt
	Line   int
	Column int
}

func (w *While) Pos() (int, int) { return w.Line, w.Column }
func (w *While) stmtNode()       {}

// DoWhile is `do ... while (cond)`.
type DoWhile struct {
	Body   []Stmt
	Cond   Expr
	Line   int
	Column int
}

func (d *DoWhile) Pos() (int, int) { return d.Line, d.Column }
func (d *DoWhile) stmtNode()       {}

// Break exits the nearest enclosing loop.
type Break struct {
	Line   int
	Column int
}

func (b *Break) Pos() (int, int) { return b.Line, b.Column }
func (b *Break) stmtNode()       {}

// Call is a `call name(args)` statement (result, if any, is discarded).
type Call struct {
	Name   string
	Args   []Expr
	Line   int
	Column int
}

func (c *Call) Pos() (int, int) { return c.Line, c.Column }
func (c *Call) stmtNode()       {}

// TailCall is a `tailcall name(args)` statement.
type TailCall struct {
	Name   string
	Args   []Expr
	Line   int
	Column int
}

func (t *TailCall) Pos() (int, int) { return t.Line, t.Column }
func (t *TailCall) stmtNode()       {}

// --- Expressions ---

// NumberLit is a numeric literal; boolean literals lower to NumberLit with
// Suffix "i32" and Value "0"/"1" (spec.md §3).
type NumberLit struct {
	Value   string
	IsFloat bool
	Suffix  string // "", "i32", "i64", "f32", "f64"
	Line    int
	Column  int
}

func (n *NumberLit) Pos() (int, int) { return n.Line, n.Column }
func (n *NumberLit) exprNode()       {}

// Ident is a (possibly dotted) identifier reference.
type Ident struct {
	Name   string
	Line   int
	Column int
}

func (i *Ident) Pos() (int, int) { return i.Line, i.Column }
func (i *Ident) exprNode()       {}

// BinOp is a binary expression.
type BinOp struct {
	Op     string
	Left   Expr
	Right  Expr
	Line   int
	Column int
}

func (b *BinOp) Pos() (int, int) { return b.Line, b.Column }
func (b *BinOp) exprNode()       {}

// UnaryOp is a prefix unary expression: -, not, ~ (`@name` is a FuncRef).
type UnaryOp struct {
	Op      string
	Operand Expr
	Line    int
	Column  int
}

func (u *UnaryOp) Pos() (int, int) { return u.Line, u.Column }
func (u *UnaryOp) exprNode()       {}

// FuncCall is `name(args)`, also used for vector constructors, scalar
// conversions, SIMD-namespaced calls, builtins, and the wasm.* escape
// hatch — the code generator resolves dispatch priority by name shape.
type FuncCall struct {
	Name   string
	Args   []Expr
	Line   int
	Column int
}

func (f *FuncCall) Pos() (int, int) { return f.Line, f.Column }
func (f *FuncCall) exprNode()       {}

// FuncRef is `@name`: a function-reference expression (table index).
type FuncRef struct {
	Name   string
	Line   int
	Column int
}

func (f *FuncRef) Pos() (int, int) { return f.Line, f.Column }
func (f *FuncRef) exprNode()       {}

// ArrayAccess is `name[indices]`, supporting the 1-D/2-D/3-index-stride
// addressing forms spec.md §4.4 describes.
type ArrayAccess struct {
	Name    string
	Indices []Expr
	Line    int
	Column  int
}

func (a *ArrayAccess) Pos() (int, int) { return a.Line, a.Column }
func (a *ArrayAccess) exprNode()       {}

// IfExpr is the ternary form `if (cond) then a else b`.
type IfExpr struct {
	Cond   Expr
	Then   Expr
	Else   Expr
	Line   int
	Column int
}

func (i *IfExpr) Pos() (int, int) { return i.Line, i.Column }
func (i *IfExpr) exprNode()       {}
