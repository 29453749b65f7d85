// Package parser implements the recursive-descent declaration/statement
// parser and Pratt expression parser described in spec.md §4.3. The first
// syntax error aborts the parse: there is no error recovery, matching the
// language's "first error aborts" contract. `expect` panics with a
// *diagnostic.SyntaxError which Parse recovers at the package boundary —
// the same bailout-panic idiom go/parser uses internally for the same
// single-error contract.
package parser

import (
	"fmt"
	"strings"

	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/lhaig/forpasc/internal/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenises and parses source into a Program. It returns the first
// *diagnostic.SyntaxError encountered, with no partial output.
func Parse(source string) (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*diagnostic.SyntaxError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()

	p := &parser{tokens: lexer.New(source).Tokenize()}
	prog = p.parseProgram()
	return prog, nil
}

func (p *parser) fail(format string, args ...interface{}) {
	tok := p.current()
	panic(&diagnostic.SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	})
}

func (p *parser) current() lexer.Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) lexer.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) checkKind(k lexer.Kind) bool {
	return p.current().Kind == k
}

func (p *parser) checkKW(word string) bool {
	t := p.current()
	return t.Kind == lexer.KW && t.Lexeme == word
}

func (p *parser) checkOp(op string) bool {
	t := p.current()
	return t.Kind == lexer.OP && t.Lexeme == op
}

func (p *parser) checkPunc(punc string) bool {
	t := p.current()
	return t.Kind == lexer.PUNC && t.Lexeme == punc
}

func (p *parser) expect(k lexer.Kind) lexer.Token {
	if !p.checkKind(k) {
		p.fail("expected %s, got %s %q", k, p.current().Kind, p.current().Lexeme)
	}
	return p.advance()
}

func (p *parser) expectKW(word string) lexer.Token {
	if !p.checkKW(word) {
		p.fail("expected %q, got %s %q", word, p.current().Kind, p.current().Lexeme)
	}
	return p.advance()
}

func (p *parser) expectOp(op string) lexer.Token {
	if !p.checkOp(op) {
		p.fail("expected %q, got %s %q", op, p.current().Kind, p.current().Lexeme)
	}
	return p.advance()
}

func (p *parser) expectPunc(punc string) lexer.Token {
	if !p.checkPunc(punc) {
		p.fail("expected %q, got %s %q", punc, p.current().Kind, p.current().Lexeme)
	}
	return p.advance()
}

func (p *parser) expectAssignOp() string {
	t := p.current()
	if t.Kind != lexer.OP {
		p.fail("expected assignment operator, got %s %q", t.Kind, t.Lexeme)
	}
	switch t.Lexeme {
	case ":=", "+=", "-=", "*=", "/=":
		p.advance()
		return t.Lexeme
	}
	p.fail("expected assignment operator, got %q", t.Lexeme)
	return ""
}

// --- Program / top-level items ---

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.checkKind(lexer.EOF) {
		prog.Items = append(prog.Items, p.parseItem())
	}
	return prog
}

func (p *parser) parseItem() ast.Item {
	switch {
	case p.checkKW("const"):
		return p.parseConstDecl()
	case p.checkKW("var"):
		return p.parseVarDecl()
	case p.checkKW("import"):
		return p.parseImportDecl()
	case p.checkKW("layout"):
		return p.parseLayoutDecl()
	case p.checkKW("export"):
		p.advance()
		switch {
		case p.checkKW("function"):
			fn := p.parseFunction()
			fn.Exported = true
			return fn
		case p.checkKW("subroutine"):
			sr := p.parseSubroutine()
			sr.Exported = true
			return sr
		default:
			p.fail("expected function or subroutine after 'export'")
		}
	case p.checkKW("function"):
		return p.parseFunction()
	case p.checkKW("subroutine"):
		return p.parseSubroutine()
	default:
		p.fail("unexpected token %s %q at top level", p.current().Kind, p.current().Lexeme)
	}
	return nil
}

func (p *parser) parseConstDecl() *ast.ConstDecl {
	tok := p.expectKW("const")
	name := p.expect(lexer.ID)
	p.expectPunc(":")
	ty := p.parseParamType()
	p.expectOp(":=")
	init := p.parseExpression()
	return &ast.ConstDecl{Name: name.Lexeme, Type: ty, Init: init, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseVarDecl() *ast.VarDecl {
	tok := p.expectKW("var")
	name := p.expect(lexer.ID)
	p.expectPunc(":")
	ty := p.parseParamType()
	var init ast.Expr
	if p.checkOp(":=") {
		p.advance()
		init = p.parseExpression()
	}
	return &ast.VarDecl{Name: name.Lexeme, Type: ty, Mutable: true, Init: init, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseImportDecl() *ast.ImportDecl {
	tok := p.expectKW("import")
	dotted := p.expect(lexer.ID)
	p.expectPunc("(")
	var params []*ast.Param
	if !p.checkPunc(")") {
		params = p.parseParamGroups()
	}
	p.expectPunc(")")
	var ret *ast.TypeRef
	if p.checkPunc(":") {
		p.advance()
		ret = p.parseParamType()
	}

	moduleName, name := splitDotted(dotted.Lexeme)
	return &ast.ImportDecl{
		Name: name, ModuleName: moduleName, Params: params, ReturnType: ret,
		InterpIdx: -1, Line: tok.Line, Column: tok.Column,
	}
}

func splitDotted(s string) (moduleName, name string) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return "", s
	}
	return s[:idx], s[idx+1:]
}

func (p *parser) parseLayoutDecl() *ast.LayoutDecl {
	tok := p.expectKW("layout")
	name := p.expect(lexer.ID)
	packed := false
	if p.checkKW("packed") {
		p.advance()
		packed = true
	}

	var fields []*ast.LayoutField
	for !p.checkKW("end") {
		group := p.parseParamGroup()
		for _, pr := range group {
			fields = append(fields, &ast.LayoutField{Name: pr.Name, Type: pr.Type, Line: pr.Line, Column: pr.Column})
		}
		if p.checkPunc(",") {
			p.advance()
		}
	}
	p.expectKW("end")
	p.expectKW("layout")

	return &ast.LayoutDecl{Name: name.Lexeme, Packed: packed, Fields: fields, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseFunction() *ast.Function {
	tok := p.expectKW("function")
	name := p.expect(lexer.ID)
	p.expectPunc("(")
	var params []*ast.Param
	if !p.checkPunc(")") {
		params = p.parseParamGroups()
	}
	p.expectPunc(")")
	p.expectPunc(":")
	retType := p.parseParamType()

	var locals []*ast.Param
	if p.checkKW("var") {
		locals = p.parseVarBlock()
	}

	p.expectKW("begin")
	body := p.parseBlock("end")
	p.expectKW("end")

	return &ast.Function{
		Name: name.Lexeme, Params: params, ReturnType: retType, Locals: locals,
		Body: body, Line: tok.Line, Column: tok.Column,
	}
}

func (p *parser) parseSubroutine() *ast.Subroutine {
	tok := p.expectKW("subroutine")
	name := p.expect(lexer.ID)
	p.expectPunc("(")
	var params []*ast.Param
	if !p.checkPunc(")") {
		params = p.parseParamGroups()
	}
	p.expectPunc(")")

	var locals []*ast.Param
	if p.checkKW("var") {
		locals = p.parseVarBlock()
	}

	p.expectKW("begin")
	body := p.parseBlock("end")
	p.expectKW("end")

	return &ast.Subroutine{Name: name.Lexeme, Params: params, Locals: locals, Body: body, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseVarBlock() []*ast.Param {
	p.expectKW("var")
	var locals []*ast.Param
	for !p.checkKW("begin") && !p.checkKind(lexer.EOF) {
		locals = append(locals, p.parseParamGroup()...)
		if p.checkPunc(",") {
			p.advance()
		}
	}
	return locals
}

// --- Param groups: "x, y: T" shares T; disambiguated from the next group
// by a two-token lookahead after each comma. ---

func (p *parser) parseParamGroups() []*ast.Param {
	var all []*ast.Param
	all = append(all, p.parseParamGroup()...)
	for p.checkPunc(",") {
		p.advance()
		all = append(all, p.parseParamGroup()...)
	}
	return all
}

func (p *parser) parseParamGroup() []*ast.Param {
	var names []lexer.Token
	names = append(names, p.expect(lexer.ID))
	for p.checkPunc(",") && p.groupContinuesAfterComma() {
		p.advance()
		names = append(names, p.expect(lexer.ID))
	}
	p.expectPunc(":")
	ty := p.parseParamType()

	params := make([]*ast.Param, len(names))
	for i, n := range names {
		params[i] = &ast.Param{Name: n.Lexeme, Type: ty, Line: n.Line, Column: n.Column}
	}
	return params
}

// groupContinuesAfterComma implements spec.md §4.3's lookahead rule: at a
// comma, peek ", ID ," or ", ID :" to decide whether the comma joins the
// current name group (sharing its type) or separates two groups.
func (p *parser) groupContinuesAfterComma() bool {
	next := p.peekAt(1)
	if next.Kind != lexer.ID {
		return false
	}
	after := p.peekAt(2)
	return (after.Kind == lexer.PUNC && after.Lexeme == ",") || (after.Kind == lexer.PUNC && after.Lexeme == ":")
}

func (p *parser) parseParamType() *ast.TypeRef {
	tok := p.current()
	switch {
	case p.checkKW("function"):
		p.advance()
		sig := p.parseFuncSigRef()
		return &ast.TypeRef{Kind: ast.TypeFunction, FuncSig: sig, Line: tok.Line, Column: tok.Column}
	case p.checkKW("layout"):
		p.advance()
		name := p.expect(lexer.ID)
		return &ast.TypeRef{Kind: ast.TypeLayout, LayoutName: name.Lexeme, Line: tok.Line, Column: tok.Column}
	case p.checkKW("array"):
		p.advance()
		var dims []ast.Expr
		if p.checkPunc("(") {
			p.advance()
			dims = p.parseExprList()
			p.expectPunc(")")
		}
		prim := p.expectPrimType()
		return &ast.TypeRef{Kind: ast.TypeArray, Prim: prim, ArrayDims: dims, Line: tok.Line, Column: tok.Column}
	default:
		prim := p.expectPrimType()
		return &ast.TypeRef{Kind: ast.TypePrim, Prim: prim, Line: tok.Line, Column: tok.Column}
	}
}

func (p *parser) expectPrimType() string {
	tok := p.current()
	if tok.Kind != lexer.KW || !lexer.IsTypeKeyword(tok.Lexeme) {
		p.fail("expected a type name, got %s %q", tok.Kind, tok.Lexeme)
	}
	p.advance()
	return tok.Lexeme
}

func (p *parser) parseFuncSigRef() *ast.FuncSigRef {
	p.expectPunc("(")
	var paramTypes []*ast.TypeRef
	if !p.checkPunc(")") {
		for _, pr := range p.parseParamGroups() {
			paramTypes = append(paramTypes, pr.Type)
		}
	}
	p.expectPunc(")")
	var ret *ast.TypeRef
	if p.checkPunc(":") {
		p.advance()
		ret = p.parseParamType()
	}
	return &ast.FuncSigRef{ParamTypes: paramTypes, ReturnType: ret}
}

// --- Statements ---

func (p *parser) atStop(words ...string) bool {
	t := p.current()
	if t.Kind != lexer.KW {
		return false
	}
	for _, w := range words {
		if t.Lexeme == w {
			return true
		}
	}
	return false
}

func (p *parser) parseBlock(stopWords ...string) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atStop(stopWords...) && !p.checkKind(lexer.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *parser) parseStmt() ast.Stmt {
	switch {
	case p.checkKW("if"):
		return p.parseIf()
	case p.checkKW("for"):
		return p.parseFor()
	case p.checkKW("while"):
		return p.parseWhile()
	case p.checkKW("do"):
		return p.parseDoWhile()
	case p.checkKW("break"):
		tok := p.advance()
		return &ast.Break{Line: tok.Line, Column: tok.Column}
	case p.checkKW("tailcall"):
		return p.parseTailCall()
	case p.checkKW("call"):
		return p.parseCall()
	case p.checkKind(lexer.ID):
		return p.parseAssignOrArrayStore()
	default:
		p.fail("unexpected token %s %q in statement", p.current().Kind, p.current().Lexeme)
	}
	return nil
}

func (p *parser) parseIf() *ast.If {
	tok := p.expectKW("if")
	p.expectPunc("(")
	cond := p.parseExpression()
	p.expectPunc(")")
	p.expectKW("then")
	thenBody := p.parseBlock("else", "end")

	var elseBody []ast.Stmt
	elseIsIf := false
	if p.checkKW("else") {
		p.advance()
		if p.checkKW("if") {
			inner := p.parseIf()
			elseBody = []ast.Stmt{inner}
			elseIsIf = true
		} else {
			elseBody = p.parseBlock("end")
		}
	}

	if !elseIsIf {
		p.expectKW("end")
		if p.checkKW("if") {
			p.advance()
		}
	}

	return &ast.If{Cond: cond, Then: thenBody, Else: elseBody, ElseIsIf: elseIsIf, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseFor() *ast.For {
	tok := p.expectKW("for")
	name := p.expect(lexer.ID)
	p.expectOp(":=")
	start := p.parseExpression()
	p.expectPunc(",")
	stop := p.parseExpression()
	var step ast.Expr
	if p.checkPunc(",") {
		p.advance()
		step = p.parseExpression()
	}
	body := p.parseBlock("end")
	p.expectKW("end")
	p.expectKW("for")
	return &ast.For{Var: name.Lexeme, Start: start, Stop: stop, Step: step, Body: body, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseWhile() *ast.While {
	tok := p.expectKW("while")
	p.expectPunc("(")
	cond := p.parseExpression()
	p.expectPunc(")")
	body := p.parseBlock("end")
	p.expectKW("end")
	p.expectKW("while")
	return &ast.While{Cond: cond, Body: body, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseDoWhile() *ast.DoWhile {
	tok := p.expectKW("do")
	body := p.parseBlock("while")
	p.expectKW("while")
	p.expectPunc("(")
	cond := p.parseExpression()
	p.expectPunc(")")
	return &ast.DoWhile{Body: body, Cond: cond, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseCall() *ast.Call {
	tok := p.expectKW("call")
	name := p.expect(lexer.ID)
	p.expectPunc("(")
	args := p.parseExprListOptional()
	p.expectPunc(")")
	return &ast.Call{Name: name.Lexeme, Args: args, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseTailCall() *ast.TailCall {
	tok := p.expectKW("tailcall")
	name := p.expect(lexer.ID)
	p.expectPunc("(")
	args := p.parseExprListOptional()
	p.expectPunc(")")
	return &ast.TailCall{Name: name.Lexeme, Args: args, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseAssignOrArrayStore() ast.Stmt {
	name := p.expect(lexer.ID)
	if p.checkPunc("[") {
		p.advance()
		indices := p.parseExprList()
		p.expectPunc("]")
		op := p.expectAssignOp()
		value := p.parseExpression()
		return &ast.ArrayStore{Name: name.Lexeme, Indices: indices, Op: op, Value: value, Line: name.Line, Column: name.Column}
	}
	op := p.expectAssignOp()
	value := p.parseExpression()
	return &ast.Assign{Name: name.Lexeme, Op: op, Value: value, Line: name.Line, Column: name.Column}
}

// --- Expressions: Pratt parser over spec.md §4.3's binding-power table ---

const (
	precNone  = 0
	precOr    = 2
	precAnd   = 4
	precCmp   = 6
	precBOr   = 8
	precBXor  = 10
	precBAnd  = 12
	precShift = 14
	precAdd   = 16
	precMul   = 18
	precPow   = 22
)

func tokenPrecedence(t lexer.Token) int {
	if t.Kind == lexer.KW {
		switch t.Lexeme {
		case "or":
			return precOr
		case "and":
			return precAnd
		case "mod":
			return precMul
		}
		return precNone
	}
	if t.Kind == lexer.OP {
		switch t.Lexeme {
		case "==", "/=", "<", ">", "<=", ">=":
			return precCmp
		case "|":
			return precBOr
		case "^":
			return precBXor
		case "&":
			return precBAnd
		case "<<", ">>":
			return precShift
		case "+", "-":
			return precAdd
		case "*", "/":
			return precMul
		case "**":
			return precPow
		}
	}
	return precNone
}

func (p *parser) parseExpression() ast.Expr {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec := tokenPrecedence(p.current())
		if prec == precNone || prec < minPrec {
			break
		}
		opTok := p.advance()
		nextMin := prec + 1
		if opTok.Lexeme == "**" {
			nextMin = prec // right-associative: recurse at the same bp
		}
		right := p.parseBinary(nextMin)
		left = &ast.BinOp{Op: opTok.Lexeme, Left: left, Right: right, Line: opTok.Line, Column: opTok.Column}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	tok := p.current()
	switch {
	case tok.Kind == lexer.OP && tok.Lexeme == "-":
		p.advance()
		return &ast.UnaryOp{Op: "-", Operand: p.parseBinary(precPow - 1), Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.OP && tok.Lexeme == "~":
		p.advance()
		return &ast.UnaryOp{Op: "~", Operand: p.parseBinary(precPow - 1), Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.OP && tok.Lexeme == "@":
		p.advance()
		name := p.expect(lexer.ID)
		return &ast.FuncRef{Name: name.Lexeme, Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.KW && tok.Lexeme == "not":
		p.advance()
		return &ast.UnaryOp{Op: "not", Operand: p.parseBinary(precPow - 1), Line: tok.Line, Column: tok.Column}
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch {
	case tok.Kind == lexer.NUM:
		p.advance()
		return &ast.NumberLit{Value: tok.Lexeme, IsFloat: tok.IsFloat, Suffix: tok.TypeSuffix, Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.KW && tok.Lexeme == "true":
		p.advance()
		return &ast.NumberLit{Value: "1", Suffix: "i32", Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.KW && tok.Lexeme == "false":
		p.advance()
		return &ast.NumberLit{Value: "0", Suffix: "i32", Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.KW && tok.Lexeme == "if":
		return p.parseIfExpr()
	case tok.Kind == lexer.KW && lexer.IsTypeKeyword(tok.Lexeme):
		p.advance()
		p.expectPunc("(")
		args := p.parseExprListOptional()
		p.expectPunc(")")
		return &ast.FuncCall{Name: tok.Lexeme, Args: args, Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.ID:
		p.advance()
		if p.checkPunc("(") {
			p.advance()
			args := p.parseExprListOptional()
			p.expectPunc(")")
			return &ast.FuncCall{Name: tok.Lexeme, Args: args, Line: tok.Line, Column: tok.Column}
		}
		if p.checkPunc("[") {
			p.advance()
			indices := p.parseExprList()
			p.expectPunc("]")
			return &ast.ArrayAccess{Name: tok.Lexeme, Indices: indices, Line: tok.Line, Column: tok.Column}
		}
		return &ast.Ident{Name: tok.Lexeme, Line: tok.Line, Column: tok.Column}
	case tok.Kind == lexer.PUNC && tok.Lexeme == "(":
		p.advance()
		expr := p.parseExpression()
		p.expectPunc(")")
		return expr
	default:
		p.fail("unexpected token %s %q in expression", tok.Kind, tok.Lexeme)
	}
	return nil
}

func (p *parser) parseIfExpr() *ast.IfExpr {
	tok := p.expectKW("if")
	p.expectPunc("(")
	cond := p.parseExpression()
	p.expectPunc(")")
	p.expectKW("then")
	thenE := p.parseExpression()
	p.expectKW("else")
	elseE := p.parseExpression()
	return &ast.IfExpr{Cond: cond, Then: thenE, Else: elseE, Line: tok.Line, Column: tok.Column}
}

func (p *parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpression()}
	for p.checkPunc(",") {
		p.advance()
		exprs = append(exprs, p.parseExpression())
	}
	return exprs
}

func (p *parser) parseExprListOptional() []ast.Expr {
	if p.checkPunc(")") {
		return nil
	}
	return p.parseExprList()
}
