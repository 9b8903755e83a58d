// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ast defines the Abstract Syntax Tree for the Wabbit language.
//
// Design overview:
//
//   - All AST nodes implement the Node interface via TokenLiteral and String.
//   - Expressions and Statements each have a marker interface that embeds
//     Node to enable type-safe dispatch; the variant set is closed.
//   - The tree is position-annotated via token.Token so error messages can
//     reference source locations.
//   - Every expression carries a type slot filled in by the semantic
//     checker; it is nil until the checker has run.
package ast

import (
	"bytes"
	"strings"

	"github.com/doctaphred/dabeaz-compilers/lang/token"
	"github.com/doctaphred/dabeaz-compilers/lang/types"
)

// ---------------------------------------------------------------------------
// Core interfaces
// ---------------------------------------------------------------------------

// Node is the base interface that every AST node must implement.
type Node interface {
	// TokenLiteral returns the literal value of the token that originated this
	// node. Used primarily for debugging and testing.
	TokenLiteral() string

	// String returns a human-readable, parenthesised representation of the node
	// suitable for unit tests and debug output.
	String() string

	// Pos returns the source position of the token that originated this node.
	Pos() token.Position
}

// Expression is a marker interface for all expression nodes.
// Every Expression is also a Node and carries the type resolved by the
// semantic checker.
type Expression interface {
	Node
	expressionNode()

	// Type returns the type the checker resolved for this expression, or nil
	// before checking.
	Type() *types.Type

	// SetType records the checker's resolved type.
	SetType(*types.Type)
}

// Statement is a marker interface for all statement nodes.
// Every Statement is also a Node.
type Statement interface {
	Node
	statementNode()
}

// typed is embedded in every expression node; it holds the slot the semantic
// checker fills in.
type typed struct {
	typ *types.Type
}

func (t *typed) Type() *types.Type      { return t.typ }
func (t *typed) SetType(ty *types.Type) { t.typ = ty }

// ---------------------------------------------------------------------------
// Program is the root of every parse tree
// ---------------------------------------------------------------------------

// Program is the top-level AST node. It holds the ordered mix of top-level
// declarations and statements found in a source file.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Position{}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteByte('\n')
	}
	return out.String()
}

// ---------------------------------------------------------------------------
// Type annotations
// ---------------------------------------------------------------------------

// TypeName is a type annotation appearing in a declaration: int or float.
type TypeName struct {
	Token token.Token // the 'int' or 'float' token
	Name  string
}

func (t *TypeName) TokenLiteral() string { return t.Token.Literal }
func (t *TypeName) Pos() token.Position  { return t.Token.Pos }
func (t *TypeName) String() string       { return t.Name }

// Param represents a single parameter in a function signature.
type Param struct {
	Token token.Token // the IDENT token of the name
	Name  string
	Type  *TypeName
}

func (p *Param) String() string { return p.Name + " " + p.Type.Name }

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// IntegerLit is a decimal integer literal: 42.
type IntegerLit struct {
	typed
	Token token.Token
	Value int64
}

func (e *IntegerLit) expressionNode()      {}
func (e *IntegerLit) TokenLiteral() string { return e.Token.Literal }
func (e *IntegerLit) Pos() token.Position  { return e.Token.Pos }
func (e *IntegerLit) String() string       { return e.Token.Literal }

// FloatLit is a floating point literal: 3.14, 1., .5.
type FloatLit struct {
	typed
	Token token.Token
	Value float64
}

func (e *FloatLit) expressionNode()      {}
func (e *FloatLit) TokenLiteral() string { return e.Token.Literal }
func (e *FloatLit) Pos() token.Position  { return e.Token.Pos }
func (e *FloatLit) String() string       { return e.Token.Literal }

// BoolLit is one of the literals true or false.
type BoolLit struct {
	typed
	Token token.Token
	Value bool
}

func (e *BoolLit) expressionNode()      {}
func (e *BoolLit) TokenLiteral() string { return e.Token.Literal }
func (e *BoolLit) Pos() token.Position  { return e.Token.Pos }
func (e *BoolLit) String() string       { return e.Token.Literal }

// Name is a reference to a declared symbol.
type Name struct {
	typed
	Token token.Token
	Value string
}

func (e *Name) expressionNode()      {}
func (e *Name) TokenLiteral() string { return e.Token.Literal }
func (e *Name) Pos() token.Position  { return e.Token.Pos }
func (e *Name) String() string       { return e.Value }

// PrefixExpr is a unary operator application: -x, +x, !x.
type PrefixExpr struct {
	typed
	Token   token.Token // the operator token
	Op      string
	Operand Expression
}

func (e *PrefixExpr) expressionNode()      {}
func (e *PrefixExpr) TokenLiteral() string { return e.Token.Literal }
func (e *PrefixExpr) Pos() token.Position  { return e.Token.Pos }
func (e *PrefixExpr) String() string {
	return "(" + e.Op + e.Operand.String() + ")"
}

// InfixExpr is a binary operator application: x + y, a < b, p && q.
type InfixExpr struct {
	typed
	Token token.Token // the operator token
	Op    string
	Left  Expression
	Right Expression
}

func (e *InfixExpr) expressionNode()      {}
func (e *InfixExpr) TokenLiteral() string { return e.Token.Literal }
func (e *InfixExpr) Pos() token.Position  { return e.Token.Pos }
func (e *InfixExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

// CallExpr is a function call: square(4).
type CallExpr struct {
	typed
	Token token.Token // the IDENT token of the callee
	Func  string
	Args  []Expression
}

func (e *CallExpr) expressionNode()      {}
func (e *CallExpr) TokenLiteral() string { return e.Token.Literal }
func (e *CallExpr) Pos() token.Position  { return e.Token.Pos }
func (e *CallExpr) String() string {
	var out bytes.Buffer
	out.WriteString(e.Func)
	out.WriteString("(")
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString(")")
	return out.String()
}

// MemLoad reads one int from linear memory: `addr.
// It also appears as the target of an assignment, in which case it is a
// store rather than a load.
type MemLoad struct {
	typed
	Token token.Token // the '`' token
	Addr  Expression
}

func (e *MemLoad) expressionNode()      {}
func (e *MemLoad) TokenLiteral() string { return e.Token.Literal }
func (e *MemLoad) Pos() token.Position  { return e.Token.Pos }
func (e *MemLoad) String() string       { return "(`" + e.Addr.String() + ")" }

// MemGrow extends linear memory by the given number of bytes and evaluates
// to the new total size: ^size.
type MemGrow struct {
	typed
	Token token.Token // the '^' token
	Size  Expression
}

func (e *MemGrow) expressionNode()      {}
func (e *MemGrow) TokenLiteral() string { return e.Token.Literal }
func (e *MemGrow) Pos() token.Position  { return e.Token.Pos }
func (e *MemGrow) String() string       { return "(^" + e.Size.String() + ")" }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// PrintStmt writes one value, formatted by type, to the host output.
type PrintStmt struct {
	Token token.Token // 'print'
	Value Expression
}

func (s *PrintStmt) statementNode()       {}
func (s *PrintStmt) TokenLiteral() string { return s.Token.Literal }
func (s *PrintStmt) Pos() token.Position  { return s.Token.Pos }
func (s *PrintStmt) String() string       { return "print " + s.Value.String() + ";" }

// AssignStmt stores a value into a name or a memory location.
// Target is either *Name or *MemLoad.
type AssignStmt struct {
	Token  token.Token // the '=' token
	Target Expression
	Value  Expression
}

func (s *AssignStmt) statementNode()       {}
func (s *AssignStmt) TokenLiteral() string { return s.Token.Literal }
func (s *AssignStmt) Pos() token.Position  { return s.Token.Pos }
func (s *AssignStmt) String() string {
	return s.Target.String() + " = " + s.Value.String() + ";"
}

// ConstDecl declares an immutable binding: const pi float = 3.14159;
// The type annotation is optional; when absent the checker infers it from
// the initializer.
type ConstDecl struct {
	Token token.Token // 'const'
	Name  string
	NameTok token.Token
	Type  *TypeName // nil when inferred
	Value Expression
}

func (s *ConstDecl) statementNode()       {}
func (s *ConstDecl) TokenLiteral() string { return s.Token.Literal }
func (s *ConstDecl) Pos() token.Position  { return s.Token.Pos }
func (s *ConstDecl) String() string {
	var out bytes.Buffer
	out.WriteString("const ")
	out.WriteString(s.Name)
	if s.Type != nil {
		out.WriteString(" ")
		out.WriteString(s.Type.Name)
	}
	out.WriteString(" = ")
	out.WriteString(s.Value.String())
	out.WriteString(";")
	return out.String()
}

// VarDecl declares a mutable binding: var tau float; var x int = 4;
// The initializer is optional; when absent the variable starts at zero.
type VarDecl struct {
	Token token.Token // 'var'
	Name  string
	NameTok token.Token
	Type  *TypeName
	Value Expression // nil when absent
}

func (s *VarDecl) statementNode()       {}
func (s *VarDecl) TokenLiteral() string { return s.Token.Literal }
func (s *VarDecl) Pos() token.Position  { return s.Token.Pos }
func (s *VarDecl) String() string {
	var out bytes.Buffer
	out.WriteString("var ")
	out.WriteString(s.Name)
	out.WriteString(" ")
	out.WriteString(s.Type.Name)
	if s.Value != nil {
		out.WriteString(" = ")
		out.WriteString(s.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

// IfStmt is a two-armed conditional; the else arm may be empty.
type IfStmt struct {
	Token token.Token // 'if'
	Cond  Expression
	Then  []Statement
	Else  []Statement // nil when absent
}

func (s *IfStmt) statementNode()       {}
func (s *IfStmt) TokenLiteral() string { return s.Token.Literal }
func (s *IfStmt) Pos() token.Position  { return s.Token.Pos }
func (s *IfStmt) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(s.Cond.String())
	out.WriteString(" ")
	out.WriteString(blockString(s.Then))
	if s.Else != nil {
		out.WriteString(" else ")
		out.WriteString(blockString(s.Else))
	}
	return out.String()
}

// WhileStmt loops while the condition holds.
type WhileStmt struct {
	Token token.Token // 'while'
	Cond  Expression
	Body  []Statement
}

func (s *WhileStmt) statementNode()       {}
func (s *WhileStmt) TokenLiteral() string { return s.Token.Literal }
func (s *WhileStmt) Pos() token.Position  { return s.Token.Pos }
func (s *WhileStmt) String() string {
	return "while " + s.Cond.String() + " " + blockString(s.Body)
}

// ReturnStmt returns a value from the enclosing function.
type ReturnStmt struct {
	Token token.Token // 'return'
	Value Expression
}

func (s *ReturnStmt) statementNode()       {}
func (s *ReturnStmt) TokenLiteral() string { return s.Token.Literal }
func (s *ReturnStmt) Pos() token.Position  { return s.Token.Pos }
func (s *ReturnStmt) String() string       { return "return " + s.Value.String() + ";" }

// ExprStmt evaluates an expression for its effect and discards the result.
type ExprStmt struct {
	Token token.Token // first token of the expression
	Expr  Expression
}

func (s *ExprStmt) statementNode()       {}
func (s *ExprStmt) TokenLiteral() string { return s.Token.Literal }
func (s *ExprStmt) Pos() token.Position  { return s.Token.Pos }
func (s *ExprStmt) String() string       { return s.Expr.String() + ";" }

// FuncDecl is a user-defined function.  The return type annotation may be
// absent, in which case the function returns no value.
type FuncDecl struct {
	Token      token.Token // 'func'
	Name       string
	NameTok    token.Token
	Params     []Param
	ReturnType *TypeName // nil for void
	Body       []Statement
}

func (s *FuncDecl) statementNode()       {}
func (s *FuncDecl) TokenLiteral() string { return s.Token.Literal }
func (s *FuncDecl) Pos() token.Position  { return s.Token.Pos }
func (s *FuncDecl) String() string {
	var out bytes.Buffer
	out.WriteString("func ")
	out.WriteString(s.Name)
	out.WriteString("(")
	parts := make([]string, len(s.Params))
	for i := range s.Params {
		parts[i] = s.Params[i].String()
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString(")")
	if s.ReturnType != nil {
		out.WriteString(" ")
		out.WriteString(s.ReturnType.Name)
	}
	out.WriteString(" ")
	out.WriteString(blockString(s.Body))
	return out.String()
}

// ImportFuncDecl declares an externally provided function:
// import func _printi(x int) int;
type ImportFuncDecl struct {
	Token      token.Token // 'import'
	Name       string
	NameTok    token.Token
	Params     []Param
	ReturnType *TypeName // nil for void
}

func (s *ImportFuncDecl) statementNode()       {}
func (s *ImportFuncDecl) TokenLiteral() string { return s.Token.Literal }
func (s *ImportFuncDecl) Pos() token.Position  { return s.Token.Pos }
func (s *ImportFuncDecl) String() string {
	var out bytes.Buffer
	out.WriteString("import func ")
	out.WriteString(s.Name)
	out.WriteString("(")
	parts := make([]string, len(s.Params))
	for i := range s.Params {
		parts[i] = s.Params[i].String()
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString(")")
	if s.ReturnType != nil {
		out.WriteString(" ")
		out.WriteString(s.ReturnType.Name)
	}
	out.WriteString(";")
	return out.String()
}

func blockString(stmts []Statement) string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range stmts {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}
