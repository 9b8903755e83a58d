// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package check

import (
	"strings"
	"testing"

	"github.com/doctaphred/dabeaz-compilers/lang/ast"
	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
	"github.com/doctaphred/dabeaz-compilers/lang/types"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// mustCheck parses and checks source that is expected to be fully valid.
func mustCheck(t *testing.T, src string) (*ast.Program, *Info) {
	t.Helper()
	prog, perrs := parser.Parse("test.wb", src)
	if perrs.HasErrors() {
		t.Fatalf("unexpected parse errors:\n%s", perrs)
	}
	info, errs := Check(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected check errors:\n%s", errs)
	}
	return prog, info
}

// checkErrors parses and checks source, requiring at least one diagnostic.
func checkErrors(t *testing.T, src string) diag.List {
	t.Helper()
	prog, perrs := parser.Parse("test.wb", src)
	if perrs.HasErrors() {
		t.Fatalf("unexpected parse errors:\n%s", perrs)
	}
	_, errs := Check(prog)
	if !errs.HasErrors() {
		t.Fatalf("Check(%q): expected errors, got none", src)
	}
	return errs
}

// wantError asserts that checking src reports a diagnostic of the given
// kind whose message contains fragment.
func wantError(t *testing.T, src string, kind diag.Kind, fragment string) {
	t.Helper()
	errs := checkErrors(t, src)
	for _, d := range errs {
		if d.Kind == kind && strings.Contains(d.Msg, fragment) {
			return
		}
	}
	t.Errorf("Check(%q): no %s containing %q in:\n%s", src, kind, fragment, errs)
}

// ---------------------------------------------------------------------------
// Valid programs
// ---------------------------------------------------------------------------

func TestLiteralTypes(t *testing.T) {
	prog, _ := mustCheck(t, "print 42; print 3.5; print true;")
	wants := []*types.Type{types.Int, types.Float, types.Bool}
	for i, want := range wants {
		v := prog.Statements[i].(*ast.PrintStmt).Value
		if v.Type() != want {
			t.Errorf("statement %d: type = %v, want %v", i, v.Type(), want)
		}
	}
}

func TestArithmeticTypes(t *testing.T) {
	prog, _ := mustCheck(t, "print 2 + 3 * -4; print 2.0 - 3.0 / -4.0;")
	if got := prog.Statements[0].(*ast.PrintStmt).Value.Type(); got != types.Int {
		t.Errorf("int expression type = %v, want int", got)
	}
	if got := prog.Statements[1].(*ast.PrintStmt).Value.Type(); got != types.Float {
		t.Errorf("float expression type = %v, want float", got)
	}
}

func TestComparisonYieldsBool(t *testing.T) {
	prog, _ := mustCheck(t, "print 1 < 2; print 1.5 == 1.5; print true != false;")
	for i := range prog.Statements {
		v := prog.Statements[i].(*ast.PrintStmt).Value
		if v.Type() != types.Bool {
			t.Errorf("statement %d: type = %v, want bool", i, v.Type())
		}
	}
}

func TestConstInference(t *testing.T) {
	prog, info := mustCheck(t, "const pi = 3.14159; const n = 10; const yes = true;")
	wants := []*types.Type{types.Float, types.Int, types.Bool}
	for i, want := range wants {
		decl := prog.Statements[i].(*ast.ConstDecl)
		sym := info.Defs[decl]
		if sym == nil {
			t.Fatalf("no symbol for %s", decl.Name)
		}
		if sym.Type != want {
			t.Errorf("const %s: type = %v, want %v", decl.Name, sym.Type, want)
		}
		if sym.Kind != types.SymConst {
			t.Errorf("const %s: kind = %v, want const", decl.Name, sym.Kind)
		}
		if !sym.Global {
			t.Errorf("const %s should be global", decl.Name)
		}
	}
}

func TestGlobalSlotAssignment(t *testing.T) {
	prog, info := mustCheck(t, "var a int; var b float; const c = 1;")
	if info.NumGlobals != 3 {
		t.Fatalf("NumGlobals = %d, want 3", info.NumGlobals)
	}
	for i, stmt := range prog.Statements {
		var sym *types.Symbol
		switch s := stmt.(type) {
		case *ast.VarDecl:
			sym = info.Defs[s]
		case *ast.ConstDecl:
			sym = info.Defs[s]
		}
		if sym.Index != i {
			t.Errorf("global %s: Index = %d, want %d", sym.Name, sym.Index, i)
		}
	}
}

func TestFunctionLocals(t *testing.T) {
	src := `
func f(a int, b float) int {
    var x int = 1;
    const k = 2;
    return a + x + k;
}
`
	prog, info := mustCheck(t, src)
	fd := prog.Statements[0].(*ast.FuncDecl)
	locals := info.Locals[fd]
	if len(locals) != 4 {
		t.Fatalf("len(Locals) = %d, want 4", len(locals))
	}
	wantNames := []string{"a", "b", "x", "k"}
	wantKinds := []types.SymbolKind{types.SymParam, types.SymParam, types.SymVar, types.SymConst}
	for i, sym := range locals {
		if sym.Name != wantNames[i] || sym.Kind != wantKinds[i] || sym.Index != i {
			t.Errorf("local %d = {%s %s %d}, want {%s %s %d}",
				i, sym.Name, sym.Kind, sym.Index, wantNames[i], wantKinds[i], i)
		}
		if sym.Global {
			t.Errorf("local %s should not be global", sym.Name)
		}
	}
}

func TestForwardCall(t *testing.T) {
	src := `
func even(n int) int {
    if n == 0 { return 1; } else { return odd(n - 1); }
}
func odd(n int) int {
    if n == 0 { return 0; } else { return even(n - 1); }
}
print even(10);
`
	mustCheck(t, src)
}

func TestRecursiveCall(t *testing.T) {
	src := `
func fib(n int) int {
    if n < 2 { return 1; } else { return fib(n - 1) + fib(n - 2); }
}
print fib(10);
`
	prog, info := mustCheck(t, src)
	call := prog.Statements[1].(*ast.PrintStmt).Value.(*ast.CallExpr)
	if call.Type() != types.Int {
		t.Errorf("call type = %v, want int", call.Type())
	}
	if sym := info.Uses[call]; sym == nil || sym.Name != "fib" {
		t.Errorf("Uses[call] = %v, want fib", sym)
	}
}

func TestImportFuncCall(t *testing.T) {
	src := `
import func _printi(x int) int;
_printi(42);
`
	prog, info := mustCheck(t, src)
	call := prog.Statements[1].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	sym := info.Uses[call]
	if sym == nil || sym.Kind != types.SymImport {
		t.Errorf("Uses[call] = %v, want import symbol", sym)
	}
}

func TestMemoryOperations(t *testing.T) {
	src := `
var addr int = 0;
addr = ^100;
` + "`addr = 11;\nprint `addr;\n"
	prog, _ := mustCheck(t, src)
	grow := prog.Statements[1].(*ast.AssignStmt).Value.(*ast.MemGrow)
	if grow.Type() != types.Int {
		t.Errorf("grow type = %v, want int", grow.Type())
	}
	load := prog.Statements[3].(*ast.PrintStmt).Value.(*ast.MemLoad)
	if load.Type() != types.Int {
		t.Errorf("load type = %v, want int", load.Type())
	}
}

func TestBlockScopedVisibility(t *testing.T) {
	src := `
var x int = 1;
if x < 2 {
    var y int = 2;
    print y;
}
print x;
`
	mustCheck(t, src)
}

func TestImplicitMainDetection(t *testing.T) {
	_, info := mustCheck(t, "print 1;")
	if !info.HasTopLevel {
		t.Error("HasTopLevel should be true")
	}
	if info.MainFunc != nil {
		t.Error("MainFunc should be nil")
	}

	_, info = mustCheck(t, "func main() { print 1; }")
	if info.HasTopLevel {
		t.Error("HasTopLevel should be false")
	}
	if info.MainFunc == nil {
		t.Error("MainFunc should be set")
	}
}

func TestExplicitMainWithGlobals(t *testing.T) {
	src := `
var counter int;
func main() {
    counter = counter + 1;
    print counter;
}
`
	_, info := mustCheck(t, src)
	if info.MainFunc == nil {
		t.Error("MainFunc should be set")
	}
	if info.NumGlobals != 1 {
		t.Errorf("NumGlobals = %d, want 1", info.NumGlobals)
	}
}

func TestAssignToParam(t *testing.T) {
	mustCheck(t, "func f(x int) int { x = x + 1; return x; }")
}

// ---------------------------------------------------------------------------
// Name errors
// ---------------------------------------------------------------------------

func TestNameErrors(t *testing.T) {
	tests := []struct {
		src      string
		fragment string
	}{
		{"print x;", "undefined name"},
		{"x = 1;", "undefined name"},
		{"print f(1);", "undefined function"},
		{"var x int; var x int;", "redeclared at module scope"},
		{"const x = 1; var x int;", "redeclared at module scope"},
		{"func f() { } func f() { }", "redeclared at module scope"},
		{"var f int; func f() { }", "redeclared at module scope"},
		{"func f(a int, a int) int { return a; }", "duplicate parameter"},
		{"func f(x int) int { var x int; return x; }", "redeclared in function"},
		{"func f() int { if true { var y int = 1; } var y int; return y; }", "redeclared in function"},
		{"func main() { print 1; } print 2;", "conflicts with top-level statements"},
		{"func f() { func g() { } }", "must appear at module scope"},
		{"import func e(x int) int; var e int;", "redeclared at module scope"},
		{"const x = 1; x = 2;", "cannot assign to const"},
		{"func f() { } f = 1;", "cannot assign to func"},
	}
	for _, tt := range tests {
		wantError(t, tt.src, diag.NameError, tt.fragment)
	}
}

// Declaration order matters: a global may not be used before its
// declaration even though functions are hoisted.
func TestUseBeforeDeclaration(t *testing.T) {
	wantError(t, "print x; var x int;", diag.NameError, "undefined name")
}

func TestBlockLocalNotVisibleOutside(t *testing.T) {
	src := `
func f() int {
    if true {
        var y int = 1;
        print y;
    }
    return 0;
}
`
	prog, perrs := parser.Parse("test.wb", src)
	if perrs.HasErrors() {
		t.Fatalf("parse errors: %s", perrs)
	}
	if _, errs := Check(prog); errs.HasErrors() {
		t.Fatalf("check errors: %s", errs)
	}

	bad := `
func f() int {
    if true {
        var y int = 1;
    }
    return y;
}
`
	prog, _ = parser.Parse("test.wb", bad)
	_, errs := Check(prog)
	if !errs.HasErrors() {
		t.Fatal("expected undefined name error for y outside its block")
	}
}

// ---------------------------------------------------------------------------
// Type errors
// ---------------------------------------------------------------------------

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		src      string
		fragment string
	}{
		{"print 2 + 3.0;", "mismatched types int and float"},
		{"print 2.0 * 3;", "mismatched types float and int"},
		{"print true + false;", "invalid operand type bool"},
		{"print 1 < 2.0;", "mismatched types"},
		{"print true < false;", "invalid operand type bool"},
		{"print 1 == 1.0;", "mismatched types"},
		{"print 1 && 2;", "invalid operand types int and int"},
		{"print !3;", "invalid operand type int for !"},
		{"print -true;", "invalid operand type bool for unary -"},
		{"const x int = 3.5;", "declared int but initialized with float"},
		{"var x float = 1;", "declared float but initialized with int"},
		{"var x int = 1; x = 2.5;", "cannot assign float"},
		{"if 1 { print 1; }", "if condition must be bool"},
		{"while 1.5 { print 1; }", "while condition must be bool"},
		{"print `1.5;", "memory address must be int"},
		{"print ^2.5;", "memory size must be int"},
		{"`0 = 1.5;", "memory stores require int"},
		{"func f(x int) int { return x; } print f(1.5);", "argument 1 to f: got float, want int"},
		{"func f(x int) int { return x; } print f();", "wrong number of arguments"},
		{"func f(x int) int { return x; } print f(1, 2);", "wrong number of arguments"},
		{"func f() { print 1; } print f();", "cannot print a void value"},
		{"func f() { print 1; } const x = f();", "initialized with a void value"},
		{"func f() { return 1; }", "returns no value"},
		{"func f() int { return 1.5; }", "cannot return float from function f returning int"},
		{"var x int = 1; print x(3);", "is not a function"},
		{"func f() int { return 1; } print f + 1;", "is not a value"},
	}
	for _, tt := range tests {
		wantError(t, tt.src, diag.TypeError, tt.fragment)
	}
}

// ---------------------------------------------------------------------------
// Return errors
// ---------------------------------------------------------------------------

func TestReturnErrors(t *testing.T) {
	tests := []struct {
		src      string
		fragment string
	}{
		{"return 1;", "return outside a function"},
		{"func f() int { print 1; }", "missing return"},
		{"func f(n int) int { if n < 0 { return 0; } }", "missing return"},
		{"func f(n int) int { while n > 0 { return 1; } }", "missing return"},
	}
	for _, tt := range tests {
		wantError(t, tt.src, diag.ReturnError, tt.fragment)
	}
}

func TestAllPathsReturn(t *testing.T) {
	srcs := []string{
		"func f(n int) int { return n; }",
		"func f(n int) int { if n < 0 { return 0; } else { return 1; } }",
		"func f(n int) int { if n < 0 { return 0; } return 1; }",
		"func f(n int) int { if n < 0 { if n < -10 { return 0; } else { return 1; } } else { return 2; } }",
	}
	for _, src := range srcs {
		mustCheck(t, src)
	}
}

// ---------------------------------------------------------------------------
// Error containment
// ---------------------------------------------------------------------------

// One bad statement does not stop the checker from looking at the next
// top-level statement.
func TestCheckerContinuesAcrossStatements(t *testing.T) {
	errs := checkErrors(t, "print nope; print alsonope;")
	if len(errs) != 2 {
		t.Fatalf("got %d diagnostics, want 2:\n%s", len(errs), errs)
	}
}

// Within a single statement only the first error is reported.
func TestFirstErrorPerStatement(t *testing.T) {
	errs := checkErrors(t, "print nope + alsonope;")
	if len(errs) != 1 {
		t.Fatalf("got %d diagnostics, want 1:\n%s", len(errs), errs)
	}
}

func TestDiagnosticRendering(t *testing.T) {
	errs := checkErrors(t, "print missing;")
	got := errs[0].Error()
	want := `test.wb:1:7: NameError: undefined name "missing"`
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
