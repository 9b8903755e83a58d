// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package irgen lowers a checked AST to stack-machine IR.
//
// Design overview:
//
//   - Generation consumes the symbol and slot information produced by the
//     checker; it never diagnoses errors of its own.  A program that checks
//     cleanly always lowers.
//   - Bools become integers: true is 1, false is 0.  Comparisons produce
//     integer results and logical operators are the bitwise integer ops,
//     which is exact on 0/1 operands.
//   - Globals are declared on the module; their initializers run in main,
//     interleaved with the top-level statements in source order, and
//     before the body of an explicit main.
//   - A local that shadows a global keeps the name spaces apart by taking a
//     dotted slot suffix, since IR instructions address variables by name.
package irgen

import (
	"fmt"

	"github.com/doctaphred/dabeaz-compilers/lang/ast"
	"github.com/doctaphred/dabeaz-compilers/lang/check"
	"github.com/doctaphred/dabeaz-compilers/lang/ir"
	"github.com/doctaphred/dabeaz-compilers/lang/types"
)

// Generate lowers a checked program to an IR module.  The program must have
// checked without errors.
func Generate(prog *ast.Program, info *check.Info) *ir.Module {
	g := &generator{
		b:        ir.NewBuilder(),
		info:     info,
		names:    make(map[*types.Symbol]string),
		atModule: make(map[string]bool),
	}
	for _, name := range info.Module.Names() {
		g.atModule[name] = true
	}

	// Imports and globals first so that function bodies can reference them.
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.ImportFuncDecl:
			sym := info.Defs[s]
			if sym == nil {
				continue
			}
			g.b.DeclareImport(s.Name, paramDecls(s.Params, sym.Sig), valType(sym.Sig.Result))
		case *ast.ConstDecl:
			if sym := info.Defs[s]; sym != nil && sym.Global {
				g.b.DeclareGlobal(sym.Name, valType(sym.Type))
			}
		case *ast.VarDecl:
			if sym := info.Defs[s]; sym != nil && sym.Global {
				g.b.DeclareGlobal(sym.Name, valType(sym.Type))
			}
		}
	}

	for _, stmt := range prog.Statements {
		if fd, ok := stmt.(*ast.FuncDecl); ok && fd != info.MainFunc {
			g.genFunc(fd)
		}
	}
	g.genMain(prog)
	return g.b.Module()
}

type generator struct {
	b    *ir.Builder
	info *check.Info

	names    map[*types.Symbol]string // IR name per symbol
	atModule map[string]bool          // module-level names, for shadow renames

	fn *funcState // non-nil while lowering a function body
}

// funcState tracks per-function lowering state: the function under
// construction and the synthetic locals used to drop unused values.
type funcState struct {
	irFn    *ir.Function
	dropInt bool
	dropFlt bool
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func (g *generator) genFunc(fd *ast.FuncDecl) {
	sym := g.info.Defs[fd]
	if sym == nil {
		return
	}
	irFn := g.b.StartFunction(fd.Name, paramDecls(fd.Params, sym.Sig), valType(sym.Sig.Result))
	g.fn = &funcState{irFn: irFn}
	g.genBlock(fd.Body)
	g.terminate(sym.Sig.Result)
	g.fn = nil
}

// genMain builds the entry point.  Global initializers and top-level
// statements are lowered together in source order; the body of an explicit
// main follows them.
func (g *generator) genMain(prog *ast.Program) {
	irFn := g.b.StartFunction(ir.EntryPoint, nil, ir.NoValue)
	g.fn = &funcState{irFn: irFn}

	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.ConstDecl:
			if sym := g.info.Defs[s]; sym != nil && sym.Global {
				g.genExpr(s.Value)
				g.b.EmitName(ir.STORE, sym.Name)
			}
		case *ast.VarDecl:
			if sym := g.info.Defs[s]; sym != nil && sym.Global && s.Value != nil {
				g.genExpr(s.Value)
				g.b.EmitName(ir.STORE, sym.Name)
			}
		case *ast.FuncDecl, *ast.ImportFuncDecl:
			// Already lowered.
		default:
			g.genStmt(stmt)
		}
	}

	if g.info.MainFunc != nil {
		g.genBlock(g.info.MainFunc.Body)
	}
	g.terminate(types.Void)
	g.fn = nil
}

// terminate appends the trailing RET of a void function.  Functions that
// return a value end in RET on every path already; the checker guarantees
// it.
func (g *generator) terminate(result *types.Type) {
	if result != types.Void {
		return
	}
	code := g.fn.irFn.Code
	if len(code) > 0 && code[len(code)-1].Op == ir.RET {
		return
	}
	g.b.Emit(ir.RET)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *generator) genBlock(stmts []ast.Statement) {
	for _, s := range stmts {
		g.genStmt(s)
	}
}

func (g *generator) genStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.PrintStmt:
		g.genExpr(s.Value)
		if s.Value.Type() == types.Float {
			g.b.Emit(ir.PRINTF)
		} else {
			g.b.Emit(ir.PRINTI)
		}

	case *ast.ConstDecl:
		g.genLocalDecl(g.info.Defs[s], s.Value)

	case *ast.VarDecl:
		g.genLocalDecl(g.info.Defs[s], s.Value)

	case *ast.AssignStmt:
		g.genAssign(s)

	case *ast.IfStmt:
		g.genExpr(s.Cond)
		g.b.Emit(ir.IF)
		g.genBlock(s.Then)
		if s.Else != nil {
			g.b.Emit(ir.ELSE)
			g.genBlock(s.Else)
		}
		g.b.Emit(ir.ENDIF)

	case *ast.WhileStmt:
		g.b.Emit(ir.LOOP)
		g.genExpr(s.Cond)
		g.b.Emit(ir.CBREAK)
		g.genBlock(s.Body)
		g.b.Emit(ir.ENDLOOP)

	case *ast.ReturnStmt:
		g.genExpr(s.Value)
		g.b.Emit(ir.RET)

	case *ast.ExprStmt:
		g.genExpr(s.Expr)
		g.drop(s.Expr.Type())
	}
}

// genLocalDecl declares a local slot and stores its initializer.
func (g *generator) genLocalDecl(sym *types.Symbol, init ast.Expression) {
	if sym == nil {
		return
	}
	name := g.symName(sym)
	if valType(sym.Type) == ir.F {
		g.b.EmitName(ir.LOCALF, name)
	} else {
		g.b.EmitName(ir.LOCALI, name)
	}
	if init != nil {
		g.genExpr(init)
		g.b.EmitName(ir.STORE, name)
	}
}

func (g *generator) genAssign(s *ast.AssignStmt) {
	switch target := s.Target.(type) {
	case *ast.Name:
		g.genExpr(s.Value)
		g.b.EmitName(ir.STORE, g.symName(g.info.Uses[target]))
	case *ast.MemLoad:
		g.genExpr(target.Addr)
		g.genExpr(s.Value)
		g.b.Emit(ir.POKEI)
	}
}

// drop discards a value left on the stack by an expression statement.  The
// IR has no pop instruction, so the value is stored into a synthetic local
// declared on first use.
func (g *generator) drop(t *types.Type) {
	switch {
	case t == types.Void:
	case t == types.Float:
		if !g.fn.dropFlt {
			g.b.EmitName(ir.LOCALF, ".drop.f")
			g.fn.dropFlt = true
		}
		g.b.EmitName(ir.STORE, ".drop.f")
	default:
		if !g.fn.dropInt {
			g.b.EmitName(ir.LOCALI, ".drop.i")
			g.fn.dropInt = true
		}
		g.b.EmitName(ir.STORE, ".drop.i")
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *generator) genExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntegerLit:
		g.b.EmitInt(ir.CONSTI, e.Value)

	case *ast.FloatLit:
		g.b.EmitFloat(ir.CONSTF, e.Value)

	case *ast.BoolLit:
		if e.Value {
			g.b.EmitInt(ir.CONSTI, 1)
		} else {
			g.b.EmitInt(ir.CONSTI, 0)
		}

	case *ast.Name:
		g.b.EmitName(ir.LOAD, g.symName(g.info.Uses[e]))

	case *ast.PrefixExpr:
		g.genPrefix(e)

	case *ast.InfixExpr:
		g.genExpr(e.Left)
		g.genExpr(e.Right)
		g.b.Emit(infixOp(e.Op, e.Left.Type()))

	case *ast.CallExpr:
		for _, arg := range e.Args {
			g.genExpr(arg)
		}
		g.b.EmitName(ir.CALL, e.Func)

	case *ast.MemLoad:
		g.genExpr(e.Addr)
		g.b.Emit(ir.PEEKI)

	case *ast.MemGrow:
		g.genExpr(e.Size)
		g.b.Emit(ir.GROWM)
	}
}

func (g *generator) genPrefix(e *ast.PrefixExpr) {
	switch e.Op {
	case "+":
		g.genExpr(e.Operand)
	case "-":
		if e.Type() == types.Float {
			g.b.EmitFloat(ir.CONSTF, 0)
			g.genExpr(e.Operand)
			g.b.Emit(ir.SUBF)
		} else {
			g.b.EmitInt(ir.CONSTI, 0)
			g.genExpr(e.Operand)
			g.b.Emit(ir.SUBI)
		}
	case "!":
		g.genExpr(e.Operand)
		g.b.EmitInt(ir.CONSTI, 1)
		g.b.Emit(ir.XORI)
	}
}

// infixOp selects the opcode for a binary operator given the operand type.
func infixOp(op string, operand *types.Type) ir.Op {
	flt := operand == types.Float
	switch op {
	case "+":
		return pick(flt, ir.ADDF, ir.ADDI)
	case "-":
		return pick(flt, ir.SUBF, ir.SUBI)
	case "*":
		return pick(flt, ir.MULF, ir.MULI)
	case "/":
		return pick(flt, ir.DIVF, ir.DIVI)
	case "<":
		return pick(flt, ir.LTF, ir.LTI)
	case "<=":
		return pick(flt, ir.LEF, ir.LEI)
	case ">":
		return pick(flt, ir.GTF, ir.GTI)
	case ">=":
		return pick(flt, ir.GEF, ir.GEI)
	case "==":
		return pick(flt, ir.EQF, ir.EQI)
	case "!=":
		return pick(flt, ir.NEF, ir.NEI)
	case "&&":
		return ir.ANDI
	case "||":
		return ir.ORI
	}
	panic(fmt.Sprintf("irgen: no opcode for operator %q", op))
}

func pick(flt bool, f, i ir.Op) ir.Op {
	if flt {
		return f
	}
	return i
}

// ---------------------------------------------------------------------------
// Names and types
// ---------------------------------------------------------------------------

// symName returns the IR name for a symbol.  Locals that shadow a
// module-level name are suffixed with their slot index so that LOAD and
// STORE resolve unambiguously.
func (g *generator) symName(sym *types.Symbol) string {
	if n, ok := g.names[sym]; ok {
		return n
	}
	n := sym.Name
	if !sym.Global && sym.Kind != types.SymParam && g.atModule[n] {
		n = fmt.Sprintf("%s.%d", n, sym.Index)
	}
	g.names[sym] = n
	return n
}

func paramDecls(params []ast.Param, sig *types.Signature) []ir.Decl {
	if len(params) == 0 {
		return nil
	}
	decls := make([]ir.Decl, len(params))
	for i, p := range params {
		decls[i] = ir.Decl{Name: p.Name, Type: valType(sig.Params[i])}
	}
	return decls
}

// valType maps a source type to its IR value class.  Bool lowers to the
// integer class.
func valType(t *types.Type) ir.ValType {
	switch t {
	case types.Float:
		return ir.F
	case types.Void, nil:
		return ir.NoValue
	}
	return ir.I
}
