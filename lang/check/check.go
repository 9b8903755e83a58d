// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package check implements the semantic checker for the Wabbit language.
//
// Design overview:
//
//   - Checking runs in two passes.  The first pass hoists function and
//     import declarations into the module scope so that calls may appear
//     before the callee's definition.  The second pass checks statements
//     in source order.
//   - Every expression node is annotated with its resolved type; name and
//     call nodes are additionally resolved to symbols in the Info maps.
//   - There is no implicit conversion.  Mixing int and float in a single
//     operation is a type error.
//   - After the first error inside a statement the checker abandons that
//     statement and moves on to the next one.
package check

import (
	"github.com/doctaphred/dabeaz-compilers/lang/ast"
	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/token"
	"github.com/doctaphred/dabeaz-compilers/lang/types"
)

// Info carries the results of a check run: resolved symbols, storage slot
// assignments, and the shape of the implicit entry point.
type Info struct {
	// Module is the module-level scope holding globals and functions.
	Module *types.Scope

	// Uses maps Name and CallExpr nodes to the symbols they resolve to.
	Uses map[ast.Node]*types.Symbol

	// Defs maps declaration statements to the symbols they introduce.
	Defs map[ast.Node]*types.Symbol

	// Locals lists, per function, its parameter and local symbols in slot
	// order (parameters first).
	Locals map[*ast.FuncDecl][]*types.Symbol

	// NumGlobals is the number of module-level storage slots.
	NumGlobals int

	// HasTopLevel reports whether the program has executable top-level
	// statements, which form the body of the implicit main function.
	HasTopLevel bool

	// MainFunc is the explicitly declared main function, when present.
	MainFunc *ast.FuncDecl
}

// Check runs semantic analysis over the program.  The AST is annotated in
// place; the returned Info describes symbols and storage layout for code
// generation.
func Check(prog *ast.Program) (*Info, diag.List) {
	c := &checker{
		info: &Info{
			Uses:   make(map[ast.Node]*types.Symbol),
			Defs:   make(map[ast.Node]*types.Symbol),
			Locals: make(map[*ast.FuncDecl][]*types.Symbol),
		},
		moduleDeclared: make(map[string]bool),
	}
	c.scope = types.NewScope(nil)
	c.info.Module = c.scope

	c.declareFunctions(prog)
	for _, stmt := range prog.Statements {
		c.checkStmt(stmt)
	}
	c.info.NumGlobals = c.numGlobals
	return c.info, c.errs
}

// ---------------------------------------------------------------------------
// Checker state
// ---------------------------------------------------------------------------

type checker struct {
	info *Info
	errs diag.List

	scope          *types.Scope
	moduleDeclared map[string]bool // all module-level names, for uniqueness
	numGlobals     int

	fn *funcCtx // non-nil while inside a function body
}

// funcCtx tracks the function currently being checked.  Parameters and
// locals share a single per-function namespace even when they are declared
// in nested blocks.
type funcCtx struct {
	decl     *ast.FuncDecl
	result   *types.Type
	declared map[string]bool
	locals   []*types.Symbol // params first, then locals, in slot order
}

func (c *checker) errorf(pos token.Position, kind diag.Kind, format string, args ...interface{}) {
	c.errs.Add(diag.Errorf(pos, kind, format, args...))
}

// ---------------------------------------------------------------------------
// Pass 1: hoist function declarations
// ---------------------------------------------------------------------------

// declareFunctions enters every function and import declaration into the
// module scope, and diagnoses an explicit main that collides with the
// implicit one formed by top-level statements.
func (c *checker) declareFunctions(prog *ast.Program) {
	var mainDecl *ast.FuncDecl
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			sig := c.signatureOf(s.Params, s.ReturnType)
			sym := &types.Symbol{
				Name:   s.Name,
				Kind:   types.SymFunc,
				Type:   sig.Result,
				Sig:    sig,
				Global: true,
			}
			if c.moduleDeclared[s.Name] {
				c.errorf(s.NameTok.Pos, diag.NameError, "%q redeclared at module scope", s.Name)
				continue
			}
			c.moduleDeclared[s.Name] = true
			c.scope.Define(sym)
			c.info.Defs[s] = sym
			if s.Name == "main" {
				mainDecl = s
			}
		case *ast.ImportFuncDecl:
			sig := c.signatureOf(s.Params, s.ReturnType)
			sym := &types.Symbol{
				Name:   s.Name,
				Kind:   types.SymImport,
				Type:   sig.Result,
				Sig:    sig,
				Global: true,
			}
			if c.moduleDeclared[s.Name] {
				c.errorf(s.NameTok.Pos, diag.NameError, "%q redeclared at module scope", s.Name)
				continue
			}
			c.moduleDeclared[s.Name] = true
			c.scope.Define(sym)
			c.info.Defs[s] = sym
		case *ast.ConstDecl, *ast.VarDecl:
			// Globals are declared in source order during pass 2.
		default:
			c.info.HasTopLevel = true
		}
	}
	if mainDecl != nil {
		if c.info.HasTopLevel {
			c.errorf(mainDecl.NameTok.Pos, diag.NameError,
				"function main conflicts with top-level statements, which already form main")
		} else {
			c.info.MainFunc = mainDecl
		}
	}
}

// signatureOf resolves the annotated types of a parameter list and return
// annotation into a Signature.  A nil return annotation means void.
func (c *checker) signatureOf(params []ast.Param, ret *ast.TypeName) *types.Signature {
	sig := &types.Signature{Result: types.Void}
	for _, p := range params {
		sig.Params = append(sig.Params, c.resolveType(p.Type))
	}
	if ret != nil {
		sig.Result = c.resolveType(ret)
	}
	return sig
}

// resolveType maps a type annotation to a type, falling back to int after
// diagnosing an unknown name.
func (c *checker) resolveType(tn *ast.TypeName) *types.Type {
	t, ok := types.FromName(tn.Name)
	if !ok {
		c.errorf(tn.Pos(), diag.TypeError, "unknown type %q", tn.Name)
		return types.Int
	}
	return t
}

// ---------------------------------------------------------------------------
// Pass 2: statements
// ---------------------------------------------------------------------------

// checkStmt checks one statement.  Returns false when a diagnostic was
// recorded and the rest of the enclosing block should be skipped.
func (c *checker) checkStmt(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.PrintStmt:
		return c.checkPrint(s)
	case *ast.ConstDecl:
		return c.checkConstDecl(s)
	case *ast.VarDecl:
		return c.checkVarDecl(s)
	case *ast.AssignStmt:
		return c.checkAssign(s)
	case *ast.IfStmt:
		return c.checkIf(s)
	case *ast.WhileStmt:
		return c.checkWhile(s)
	case *ast.ReturnStmt:
		return c.checkReturn(s)
	case *ast.ExprStmt:
		return c.checkExpr(s.Expr) != nil
	case *ast.FuncDecl:
		if c.fn != nil {
			c.errorf(s.Pos(), diag.NameError, "function declarations must appear at module scope")
			return false
		}
		c.checkFuncBody(s)
		return true
	case *ast.ImportFuncDecl:
		if c.fn != nil {
			c.errorf(s.Pos(), diag.NameError, "import declarations must appear at module scope")
			return false
		}
		return c.checkImportParams(s)
	}
	return true
}

func (c *checker) checkPrint(s *ast.PrintStmt) bool {
	t := c.checkExpr(s.Value)
	if t == nil {
		return false
	}
	if t == types.Void {
		c.errorf(s.Value.Pos(), diag.TypeError, "cannot print a void value")
		return false
	}
	return true
}

func (c *checker) checkConstDecl(s *ast.ConstDecl) bool {
	vt := c.checkExpr(s.Value)
	if vt == nil {
		return false
	}
	if vt == types.Void {
		c.errorf(s.Value.Pos(), diag.TypeError, "const %s initialized with a void value", s.Name)
		return false
	}
	declType := vt
	if s.Type != nil {
		declType = c.resolveType(s.Type)
		if declType != vt {
			c.errorf(s.Value.Pos(), diag.TypeError,
				"const %s declared %s but initialized with %s", s.Name, declType, vt)
			return false
		}
	}
	sym := c.define(s.Name, s.NameTok, types.SymConst, declType)
	if sym == nil {
		return false
	}
	c.info.Defs[s] = sym
	return true
}

func (c *checker) checkVarDecl(s *ast.VarDecl) bool {
	declType := c.resolveType(s.Type)
	if s.Value != nil {
		vt := c.checkExpr(s.Value)
		if vt == nil {
			return false
		}
		if vt != declType {
			c.errorf(s.Value.Pos(), diag.TypeError,
				"var %s declared %s but initialized with %s", s.Name, declType, vt)
			return false
		}
	}
	sym := c.define(s.Name, s.NameTok, types.SymVar, declType)
	if sym == nil {
		return false
	}
	c.info.Defs[s] = sym
	return true
}

func (c *checker) checkAssign(s *ast.AssignStmt) bool {
	switch target := s.Target.(type) {
	case *ast.Name:
		sym, ok := c.scope.Lookup(target.Value)
		if !ok {
			c.errorf(target.Pos(), diag.NameError, "undefined name %q", target.Value)
			return false
		}
		if !sym.Kind.IsAssignable() {
			c.errorf(target.Pos(), diag.NameError, "cannot assign to %s %q", sym.Kind, sym.Name)
			return false
		}
		vt := c.checkExpr(s.Value)
		if vt == nil {
			return false
		}
		if vt != sym.Type {
			c.errorf(s.Value.Pos(), diag.TypeError,
				"cannot assign %s to %q of type %s", vt, sym.Name, sym.Type)
			return false
		}
		target.SetType(sym.Type)
		c.info.Uses[target] = sym
		return true

	case *ast.MemLoad:
		at := c.checkExpr(target.Addr)
		if at == nil {
			return false
		}
		if at != types.Int {
			c.errorf(target.Addr.Pos(), diag.TypeError, "memory address must be int, got %s", at)
			return false
		}
		vt := c.checkExpr(s.Value)
		if vt == nil {
			return false
		}
		if vt != types.Int {
			c.errorf(s.Value.Pos(), diag.TypeError, "memory stores require int, got %s", vt)
			return false
		}
		target.SetType(types.Int)
		return true
	}
	c.errorf(s.Target.Pos(), diag.TypeError, "cannot assign to %s", s.Target.String())
	return false
}

func (c *checker) checkIf(s *ast.IfStmt) bool {
	t := c.checkExpr(s.Cond)
	if t == nil {
		return false
	}
	if t != types.Bool {
		c.errorf(s.Cond.Pos(), diag.TypeError, "if condition must be bool, got %s", t)
		return false
	}
	ok := c.checkBlock(s.Then)
	if s.Else != nil {
		ok = c.checkBlock(s.Else) && ok
	}
	return ok
}

func (c *checker) checkWhile(s *ast.WhileStmt) bool {
	t := c.checkExpr(s.Cond)
	if t == nil {
		return false
	}
	if t != types.Bool {
		c.errorf(s.Cond.Pos(), diag.TypeError, "while condition must be bool, got %s", t)
		return false
	}
	return c.checkBlock(s.Body)
}

func (c *checker) checkReturn(s *ast.ReturnStmt) bool {
	if c.fn == nil {
		c.errorf(s.Pos(), diag.ReturnError, "return outside a function")
		return false
	}
	vt := c.checkExpr(s.Value)
	if vt == nil {
		return false
	}
	name := c.fn.decl.Name
	if c.fn.result == types.Void {
		c.errorf(s.Value.Pos(), diag.TypeError, "function %s returns no value", name)
		return false
	}
	if vt != c.fn.result {
		c.errorf(s.Value.Pos(), diag.TypeError,
			"cannot return %s from function %s returning %s", vt, name, c.fn.result)
		return false
	}
	return true
}

// checkBlock checks the statements of a nested block in a fresh scope.
// Checking stops at the first statement that fails.
func (c *checker) checkBlock(stmts []ast.Statement) bool {
	outer := c.scope
	c.scope = types.NewScope(outer)
	defer func() { c.scope = outer }()
	for _, s := range stmts {
		if !c.checkStmt(s) {
			return false
		}
	}
	return true
}

// checkFuncBody checks a function declaration hoisted during pass 1.
// Duplicate declarations were already diagnosed; their bodies are skipped.
func (c *checker) checkFuncBody(fd *ast.FuncDecl) {
	sym, ok := c.info.Defs[fd]
	if !ok {
		return
	}
	fn := &funcCtx{
		decl:     fd,
		result:   sym.Sig.Result,
		declared: make(map[string]bool),
	}
	c.fn = fn
	outer := c.scope
	c.scope = types.NewScope(outer)

	for i, p := range fd.Params {
		if fn.declared[p.Name] {
			c.errorf(p.Token.Pos, diag.NameError,
				"duplicate parameter %q in function %s", p.Name, fd.Name)
			continue
		}
		psym := &types.Symbol{
			Name:  p.Name,
			Kind:  types.SymParam,
			Type:  sym.Sig.Params[i],
			Index: len(fn.locals),
		}
		fn.declared[p.Name] = true
		fn.locals = append(fn.locals, psym)
		c.scope.Define(psym)
	}

	for _, s := range fd.Body {
		if !c.checkStmt(s) {
			break
		}
	}

	if fn.result != types.Void && !blockReturns(fd.Body) {
		c.errorf(fd.NameTok.Pos, diag.ReturnError,
			"missing return in function %s returning %s", fd.Name, fn.result)
	}

	c.info.Locals[fd] = fn.locals
	c.scope = outer
	c.fn = nil
}

func (c *checker) checkImportParams(s *ast.ImportFuncDecl) bool {
	seen := make(map[string]bool)
	for _, p := range s.Params {
		if seen[p.Name] {
			c.errorf(p.Token.Pos, diag.NameError,
				"duplicate parameter %q in import %s", p.Name, s.Name)
			return false
		}
		seen[p.Name] = true
	}
	return true
}

// define introduces a const or var binding, assigning it a storage slot.
// Outside a function the binding is a global; inside, it joins the
// function's single local namespace regardless of block depth.
func (c *checker) define(name string, nameTok token.Token, kind types.SymbolKind, typ *types.Type) *types.Symbol {
	if c.fn != nil {
		if c.fn.declared[name] {
			c.errorf(nameTok.Pos, diag.NameError,
				"%q redeclared in function %s", name, c.fn.decl.Name)
			return nil
		}
		sym := &types.Symbol{Name: name, Kind: kind, Type: typ, Index: len(c.fn.locals)}
		c.fn.declared[name] = true
		c.fn.locals = append(c.fn.locals, sym)
		c.scope.Define(sym)
		return sym
	}
	if c.moduleDeclared[name] {
		c.errorf(nameTok.Pos, diag.NameError, "%q redeclared at module scope", name)
		return nil
	}
	sym := &types.Symbol{Name: name, Kind: kind, Type: typ, Global: true, Index: c.numGlobals}
	c.moduleDeclared[name] = true
	c.numGlobals++
	c.scope.Define(sym)
	return sym
}

// blockReturns reports whether every control path through the block ends in
// a return statement.
func blockReturns(stmts []ast.Statement) bool {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.ReturnStmt:
			return true
		case *ast.IfStmt:
			if s.Else != nil && blockReturns(s.Then) && blockReturns(s.Else) {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// checkExpr resolves and annotates the type of an expression.  Returns nil
// after recording a diagnostic.
func (c *checker) checkExpr(expr ast.Expression) *types.Type {
	switch e := expr.(type) {
	case *ast.IntegerLit:
		e.SetType(types.Int)
		return types.Int

	case *ast.FloatLit:
		e.SetType(types.Float)
		return types.Float

	case *ast.BoolLit:
		e.SetType(types.Bool)
		return types.Bool

	case *ast.Name:
		sym, ok := c.scope.Lookup(e.Value)
		if !ok {
			c.errorf(e.Pos(), diag.NameError, "undefined name %q", e.Value)
			return nil
		}
		if sym.Kind.IsCallable() {
			c.errorf(e.Pos(), diag.TypeError, "%s %q is not a value", sym.Kind, sym.Name)
			return nil
		}
		e.SetType(sym.Type)
		c.info.Uses[e] = sym
		return sym.Type

	case *ast.PrefixExpr:
		return c.checkPrefix(e)

	case *ast.InfixExpr:
		return c.checkInfix(e)

	case *ast.CallExpr:
		return c.checkCall(e)

	case *ast.MemLoad:
		at := c.checkExpr(e.Addr)
		if at == nil {
			return nil
		}
		if at != types.Int {
			c.errorf(e.Addr.Pos(), diag.TypeError, "memory address must be int, got %s", at)
			return nil
		}
		e.SetType(types.Int)
		return types.Int

	case *ast.MemGrow:
		st := c.checkExpr(e.Size)
		if st == nil {
			return nil
		}
		if st != types.Int {
			c.errorf(e.Size.Pos(), diag.TypeError, "memory size must be int, got %s", st)
			return nil
		}
		e.SetType(types.Int)
		return types.Int
	}
	c.errorf(expr.Pos(), diag.TypeError, "cannot check expression %s", expr.String())
	return nil
}

func (c *checker) checkPrefix(e *ast.PrefixExpr) *types.Type {
	t := c.checkExpr(e.Operand)
	if t == nil {
		return nil
	}
	switch e.Op {
	case "+", "-":
		if !t.IsNumeric() {
			c.errorf(e.Pos(), diag.TypeError, "invalid operand type %s for unary %s", t, e.Op)
			return nil
		}
		e.SetType(t)
		return t
	case "!":
		if t != types.Bool {
			c.errorf(e.Pos(), diag.TypeError, "invalid operand type %s for !", t)
			return nil
		}
		e.SetType(types.Bool)
		return types.Bool
	}
	c.errorf(e.Pos(), diag.TypeError, "unknown unary operator %s", e.Op)
	return nil
}

func (c *checker) checkInfix(e *ast.InfixExpr) *types.Type {
	lt := c.checkExpr(e.Left)
	if lt == nil {
		return nil
	}
	rt := c.checkExpr(e.Right)
	if rt == nil {
		return nil
	}

	switch e.Op {
	case "+", "-", "*", "/":
		if !lt.IsNumeric() {
			c.errorf(e.Left.Pos(), diag.TypeError, "invalid operand type %s for %s", lt, e.Op)
			return nil
		}
		if lt != rt {
			c.errorf(e.Pos(), diag.TypeError, "mismatched types %s and %s for %s", lt, rt, e.Op)
			return nil
		}
		e.SetType(lt)
		return lt

	case "<", "<=", ">", ">=":
		if !lt.IsNumeric() {
			c.errorf(e.Left.Pos(), diag.TypeError, "invalid operand type %s for %s", lt, e.Op)
			return nil
		}
		if lt != rt {
			c.errorf(e.Pos(), diag.TypeError, "mismatched types %s and %s for %s", lt, rt, e.Op)
			return nil
		}
		e.SetType(types.Bool)
		return types.Bool

	case "==", "!=":
		if lt == types.Void {
			c.errorf(e.Left.Pos(), diag.TypeError, "invalid operand type void for %s", e.Op)
			return nil
		}
		if lt != rt {
			c.errorf(e.Pos(), diag.TypeError, "mismatched types %s and %s for %s", lt, rt, e.Op)
			return nil
		}
		e.SetType(types.Bool)
		return types.Bool

	case "&&", "||":
		if lt != types.Bool || rt != types.Bool {
			c.errorf(e.Pos(), diag.TypeError,
				"invalid operand types %s and %s for %s", lt, rt, e.Op)
			return nil
		}
		e.SetType(types.Bool)
		return types.Bool
	}
	c.errorf(e.Pos(), diag.TypeError, "unknown operator %s", e.Op)
	return nil
}

func (c *checker) checkCall(e *ast.CallExpr) *types.Type {
	sym, ok := c.scope.Lookup(e.Func)
	if !ok {
		c.errorf(e.Pos(), diag.NameError, "undefined function %q", e.Func)
		return nil
	}
	if !sym.Kind.IsCallable() {
		c.errorf(e.Pos(), diag.TypeError, "%s %q is not a function", sym.Kind, sym.Name)
		return nil
	}
	sig := sym.Sig
	if len(e.Args) != len(sig.Params) {
		c.errorf(e.Pos(), diag.TypeError,
			"wrong number of arguments to %s: got %d, want %d",
			e.Func, len(e.Args), len(sig.Params))
		return nil
	}
	for i, arg := range e.Args {
		at := c.checkExpr(arg)
		if at == nil {
			return nil
		}
		if at != sig.Params[i] {
			c.errorf(arg.Pos(), diag.TypeError,
				"argument %d to %s: got %s, want %s", i+1, e.Func, at, sig.Params[i])
			return nil
		}
	}
	e.SetType(sig.Result)
	c.info.Uses[e] = sym
	return sig.Result
}
