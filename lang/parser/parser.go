// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package parser implements a recursive-descent / Pratt parser for the Wabbit
// language.
//
// Design overview:
//
//   - Statements are parsed with straightforward recursive descent.
//   - Expressions are parsed with a Pratt (top-down operator precedence) table.
//   - Errors are collected rather than aborting; after the first error inside
//     a statement the parser skips to the next semicolon or closing brace so
//     that subsequent statements can still be parsed.
//   - Comments produced by the lexer are silently skipped.
package parser

import (
	"strconv"

	"github.com/doctaphred/dabeaz-compilers/lang/ast"
	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/lexer"
	"github.com/doctaphred/dabeaz-compilers/lang/token"
)

// ---------------------------------------------------------------------------
// Precedence levels (Pratt)
// ---------------------------------------------------------------------------

type precedence int

const (
	precLowest precedence = iota // base
	precOr                       // ||
	precAnd                      // &&
	precEquality                 // == !=
	precRelational               // < <= > >=
	precAdd                      // + -
	precMul                      // * /
	precPrefix                   // -x +x !x `x ^x
)

// infixPrecedence maps a token type to its infix binding power.
// All binary operators are left-associative.
var infixPrecedence = map[token.Type]precedence{
	token.OR:    precOr,
	token.AND:   precAnd,
	token.EQ:    precEquality,
	token.NEQ:   precEquality,
	token.LT:    precRelational,
	token.LTE:   precRelational,
	token.GT:    precRelational,
	token.GTE:   precRelational,
	token.PLUS:  precAdd,
	token.MINUS: precAdd,
	token.STAR:  precMul,
	token.SLASH: precMul,
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// Parser holds the mutable state for a single parse run.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token // current token
	peek token.Token // lookahead token

	errs diag.List
}

// newParser initialises a Parser from source text.
func newParser(filename, source string) *Parser {
	p := &Parser{
		lex: lexer.New(filename, source),
	}
	// Prime cur and peek, skipping comments.
	p.advance()
	p.advance()
	return p
}

// Parse is the public entry point.  It tokenises source, runs the parser,
// and returns the program AST together with all diagnostics collected by
// the lexer and the parser.
func Parse(filename, source string) (*ast.Program, diag.List) {
	p := newParser(filename, source)
	prog := p.parseProgram()
	var errs diag.List
	for _, d := range p.lex.Errors() {
		errs.Add(d)
	}
	for _, d := range p.errs {
		errs.Add(d)
	}
	return prog, errs
}

// ---------------------------------------------------------------------------
// Token navigation helpers
// ---------------------------------------------------------------------------

// advance reads the next non-comment token from the lexer into cur/peek.
func (p *Parser) advance() {
	p.cur = p.peek
	for {
		p.peek = p.lex.NextToken()
		if p.peek.Type != token.COMMENT {
			break
		}
	}
}

// expect consumes the current token if it matches typ, otherwise records an
// error and does NOT consume the token.
func (p *Parser) expect(typ token.Type) (token.Token, bool) {
	if p.cur.Type == typ {
		tok := p.cur
		p.advance()
		return tok, true
	}
	p.errorf(p.cur.Pos, "expected %s, got %s (%q)", typ, p.cur.Type, p.cur.Literal)
	return p.cur, false
}

// curIs returns true if the current token has the given type.
func (p *Parser) curIs(typ token.Type) bool { return p.cur.Type == typ }

// peekIs returns true if the lookahead token has the given type.
func (p *Parser) peekIs(typ token.Type) bool { return p.peek.Type == typ }

// skipTo advances past tokens until one of the given types (or EOF) is the
// current token.  Used for error recovery.
func (p *Parser) skipTo(types ...token.Type) {
	for p.cur.Type != token.EOF {
		for _, t := range types {
			if p.cur.Type == t {
				return
			}
		}
		p.advance()
	}
}

// recover skips to the end of the current statement and past its terminator
// so the next statement can be parsed cleanly.
func (p *Parser) recover() {
	p.skipTo(token.SEMICOLON, token.RBRACE)
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
}

// errorf records a parse error at the given position.
func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.errs.Add(diag.Errorf(pos, diag.ParseError, format, args...))
}

// ---------------------------------------------------------------------------
// Program and statements
// ---------------------------------------------------------------------------

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		} else {
			p.recover()
			// A closing brace with no open block ends nothing at top
			// level; step over it so the loop makes progress.
			if p.curIs(token.RBRACE) {
				p.advance()
			}
		}
	}
	return prog
}

// parseStatement dispatches on the current token.  Returns nil when the
// statement could not be parsed; callers are responsible for recovery.
func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.PRINT:
		return p.parsePrintStmt()
	case token.CONST:
		return p.parseConstDecl()
	case token.VAR:
		return p.parseVarDecl()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FUNC:
		return p.parseFuncDecl()
	case token.IMPORT:
		return p.parseImportFuncDecl()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.IDENT:
		if p.peekIs(token.ASSIGN) {
			return p.parseNameAssign()
		}
		return p.parseExprOrStoreStmt()
	default:
		return p.parseExprOrStoreStmt()
	}
}

func (p *Parser) parsePrintStmt() ast.Statement {
	tok := p.cur
	p.advance() // 'print'
	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.PrintStmt{Token: tok, Value: value}
}

// parseConstDecl parses: const name [type] = expr ;
// The initializer is mandatory; the type annotation is not.
func (p *Parser) parseConstDecl() ast.Statement {
	tok := p.cur
	p.advance() // 'const'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}

	var typ *ast.TypeName
	if p.cur.Type.IsTypeName() {
		typ = &ast.TypeName{Token: p.cur, Name: p.cur.Literal}
		p.advance()
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil
	}
	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.ConstDecl{
		Token:   tok,
		Name:    nameTok.Literal,
		NameTok: nameTok,
		Type:    typ,
		Value:   value,
	}
}

// parseVarDecl parses: var name type [= expr] ;
// The type annotation is mandatory; the initializer is not.
func (p *Parser) parseVarDecl() ast.Statement {
	tok := p.cur
	p.advance() // 'var'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}

	if !p.cur.Type.IsTypeName() {
		p.errorf(p.cur.Pos, "expected type name after 'var %s', got %s (%q)",
			nameTok.Literal, p.cur.Type, p.cur.Literal)
		return nil
	}
	typ := &ast.TypeName{Token: p.cur, Name: p.cur.Literal}
	p.advance()

	var value ast.Expression
	if p.curIs(token.ASSIGN) {
		p.advance()
		value = p.parseExpression(precLowest)
		if value == nil {
			return nil
		}
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.VarDecl{
		Token:   tok,
		Name:    nameTok.Literal,
		NameTok: nameTok,
		Type:    typ,
		Value:   value,
	}
}

// parseNameAssign parses: name = expr ;
// The caller has verified that cur is IDENT and peek is '='.
func (p *Parser) parseNameAssign() ast.Statement {
	target := &ast.Name{Token: p.cur, Value: p.cur.Literal}
	p.advance() // name
	assignTok := p.cur
	p.advance() // '='
	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.AssignStmt{Token: assignTok, Target: target, Value: value}
}

// parseExprOrStoreStmt parses either an expression statement or a memory
// store.  A store looks like an expression statement whose expression is a
// memory load followed by '=':
//
//	`addr = expr ;
func (p *Parser) parseExprOrStoreStmt() ast.Statement {
	first := p.cur
	expr := p.parseExpression(precLowest)
	if expr == nil {
		return nil
	}

	if p.curIs(token.ASSIGN) {
		if _, ok := expr.(*ast.MemLoad); !ok {
			p.errorf(p.cur.Pos, "cannot assign to %s", expr.String())
			return nil
		}
		assignTok := p.cur
		p.advance() // '='
		value := p.parseExpression(precLowest)
		if value == nil {
			return nil
		}
		if _, ok := p.expect(token.SEMICOLON); !ok {
			return nil
		}
		return &ast.AssignStmt{Token: assignTok, Target: expr, Value: value}
	}

	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.ExprStmt{Token: first, Expr: expr}
}

func (p *Parser) parseIfStmt() ast.Statement {
	tok := p.cur
	p.advance() // 'if'
	cond := p.parseExpression(precLowest)
	if cond == nil {
		return nil
	}
	then, ok := p.parseBlock()
	if !ok {
		return nil
	}
	var els []ast.Statement
	if p.curIs(token.ELSE) {
		p.advance()
		els, ok = p.parseBlock()
		if !ok {
			return nil
		}
	}
	return &ast.IfStmt{Token: tok, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() ast.Statement {
	tok := p.cur
	p.advance() // 'while'
	cond := p.parseExpression(precLowest)
	if cond == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.WhileStmt{Token: tok, Cond: cond, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Statement {
	tok := p.cur
	p.advance() // 'return'
	value := p.parseExpression(precLowest)
	if value == nil {
		return nil
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.ReturnStmt{Token: tok, Value: value}
}

// parseFuncDecl parses: func name ( params ) [type] { body }
func (p *Parser) parseFuncDecl() ast.Statement {
	tok := p.cur
	p.advance() // 'func'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	params, ok := p.parseParamList()
	if !ok {
		return nil
	}
	var ret *ast.TypeName
	if p.cur.Type.IsTypeName() {
		ret = &ast.TypeName{Token: p.cur, Name: p.cur.Literal}
		p.advance()
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.FuncDecl{
		Token:      tok,
		Name:       nameTok.Literal,
		NameTok:    nameTok,
		Params:     params,
		ReturnType: ret,
		Body:       body,
	}
}

// parseImportFuncDecl parses: import func name ( params ) [type] ;
func (p *Parser) parseImportFuncDecl() ast.Statement {
	tok := p.cur
	p.advance() // 'import'

	if _, ok := p.expect(token.FUNC); !ok {
		return nil
	}
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	params, ok := p.parseParamList()
	if !ok {
		return nil
	}
	var ret *ast.TypeName
	if p.cur.Type.IsTypeName() {
		ret = &ast.TypeName{Token: p.cur, Name: p.cur.Literal}
		p.advance()
	}
	if _, ok := p.expect(token.SEMICOLON); !ok {
		return nil
	}
	return &ast.ImportFuncDecl{
		Token:      tok,
		Name:       nameTok.Literal,
		NameTok:    nameTok,
		Params:     params,
		ReturnType: ret,
	}
}

// parseParamList parses: ( [name type {, name type}] )
func (p *Parser) parseParamList() ([]ast.Param, bool) {
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil, false
	}
	var params []ast.Param
	if p.curIs(token.RPAREN) {
		p.advance()
		return params, true
	}
	for {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil, false
		}
		if !p.cur.Type.IsTypeName() {
			p.errorf(p.cur.Pos, "expected type name for parameter %q, got %s (%q)",
				nameTok.Literal, p.cur.Type, p.cur.Literal)
			return nil, false
		}
		typ := &ast.TypeName{Token: p.cur, Name: p.cur.Literal}
		p.advance()
		params = append(params, ast.Param{Token: nameTok, Name: nameTok.Literal, Type: typ})

		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, ok := p.expect(token.RPAREN); !ok {
		return nil, false
	}
	return params, true
}

// parseBlock parses: { statements }
// Recovery inside a block skips to the next semicolon or closing brace, so
// one bad statement does not take the rest of the block with it.
func (p *Parser) parseBlock() ([]ast.Statement, bool) {
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil, false
	}
	stmts := []ast.Statement{}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		} else {
			p.recover()
		}
	}
	if _, ok := p.expect(token.RBRACE); !ok {
		return nil, false
	}
	return stmts, true
}

// ---------------------------------------------------------------------------
// Expressions (Pratt)
// ---------------------------------------------------------------------------

// parseExpression parses an expression with at least the given binding
// power.  Returns nil after recording an error.
func (p *Parser) parseExpression(min precedence) ast.Expression {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		prec, ok := infixPrecedence[p.cur.Type]
		if !ok || prec <= min {
			return left
		}
		opTok := p.cur
		p.advance()
		right := p.parseExpression(prec)
		if right == nil {
			return nil
		}
		left = &ast.InfixExpr{
			Token: opTok,
			Op:    opTok.Literal,
			Left:  left,
			Right: right,
		}
	}
}

// parsePrefix parses a unary operator application or a primary expression.
func (p *Parser) parsePrefix() ast.Expression {
	switch p.cur.Type {
	case token.PLUS, token.MINUS, token.BANG:
		tok := p.cur
		p.advance()
		operand := p.parsePrefix()
		if operand == nil {
			return nil
		}
		return &ast.PrefixExpr{Token: tok, Op: tok.Literal, Operand: operand}

	case token.DEREF:
		tok := p.cur
		p.advance()
		addr := p.parsePrefix()
		if addr == nil {
			return nil
		}
		return &ast.MemLoad{Token: tok, Addr: addr}

	case token.CARET:
		tok := p.cur
		p.advance()
		size := p.parsePrefix()
		if size == nil {
			return nil
		}
		return &ast.MemGrow{Token: tok, Size: size}
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, names, calls, and parenthesised expressions.
func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Type {
	case token.INT:
		tok := p.cur
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid integer literal %q", tok.Literal)
			return nil
		}
		p.advance()
		return &ast.IntegerLit{Token: tok, Value: v}

	case token.FLOAT:
		tok := p.cur
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid float literal %q", tok.Literal)
			return nil
		}
		p.advance()
		return &ast.FloatLit{Token: tok, Value: v}

	case token.TRUE, token.FALSE:
		tok := p.cur
		p.advance()
		return &ast.BoolLit{Token: tok, Value: tok.Type == token.TRUE}

	case token.IDENT:
		tok := p.cur
		if p.peekIs(token.LPAREN) {
			return p.parseCall()
		}
		p.advance()
		return &ast.Name{Token: tok, Value: tok.Literal}

	case token.LPAREN:
		p.advance()
		expr := p.parseExpression(precLowest)
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return nil
		}
		return expr
	}

	p.errorf(p.cur.Pos, "expected an expression, got %s (%q)", p.cur.Type, p.cur.Literal)
	return nil
}

// parseCall parses: name ( [expr {, expr}] )
// The caller has verified that cur is IDENT and peek is '('.
func (p *Parser) parseCall() ast.Expression {
	nameTok := p.cur
	p.advance() // name
	p.advance() // '('

	var args []ast.Expression
	if !p.curIs(token.RPAREN) {
		for {
			arg := p.parseExpression(precLowest)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, ok := p.expect(token.RPAREN); !ok {
		return nil
	}
	return &ast.CallExpr{Token: nameTok, Func: nameTok.Literal, Args: args}
}
