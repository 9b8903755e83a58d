// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package llvmgen

import (
	"strings"
	"testing"

	"github.com/doctaphred/dabeaz-compilers/lang/check"
	"github.com/doctaphred/dabeaz-compilers/lang/ir"
	"github.com/doctaphred/dabeaz-compilers/lang/irgen"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
)

func mustEmit(t *testing.T, src string) string {
	t.Helper()
	prog, errs := parser.Parse("test.wb", src)
	if errs.HasErrors() {
		t.Fatalf("parse errors:\n%s", errs)
	}
	info, errs := check.Check(prog)
	if errs.HasErrors() {
		t.Fatalf("check errors:\n%s", errs)
	}
	text, err := Emit(irgen.Generate(prog, info))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return text
}

func wantLines(t *testing.T, text string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(text, l) {
			t.Errorf("output is missing %q\n%s", l, text)
		}
	}
}

func TestRuntimeDeclarations(t *testing.T) {
	t.Run("print only", func(t *testing.T) {
		text := mustEmit(t, `print 1;`)
		wantLines(t, text,
			"declare void @_printi(i32)",
			"declare void @_printf(double)",
		)
		if strings.Contains(text, "@_peeki") {
			t.Error("memory runtime declared without memory use")
		}
	})
	t.Run("with memory", func(t *testing.T) {
		wantLines(t, mustEmit(t, "print ^64;"),
			"declare i32 @_peeki(i32)",
			"declare void @_pokei(i32, i32)",
			"declare i32 @_growm(i32)",
		)
	})
}

func TestImportDeclaration(t *testing.T) {
	text := mustEmit(t, `
		import func putd(x int) int;
		print putd(1);
	`)
	wantLines(t, text, "declare i32 @putd(i32)")
	// The preinstalled prints never get a second declare.
	if n := strings.Count(text, "declare void @_printi(i32)"); n != 1 {
		t.Errorf("_printi declared %d times, want 1", n)
	}
}

func TestGlobalDefinitions(t *testing.T) {
	wantLines(t, mustEmit(t, `
		var x int = 2;
		var y float;
		print x;
	`),
		"@x = global i32 0",
		"@y = global double 0x0000000000000000",
		"store i32 2, i32* @x",
	)
}

func TestArithmeticBody(t *testing.T) {
	text := mustEmit(t, `print 2 + 3 * -4;`)
	wantLines(t, text,
		"define void @main()",
		"mul i32",
		"add i32",
		"call void @_printi(i32",
		"ret void",
	)
	if !strings.Contains(text, "sub i32 0, 4") {
		t.Error("negation does not subtract from zero")
	}
}

func TestFloatBody(t *testing.T) {
	wantLines(t, mustEmit(t, `print 2.0 - 6.0 / 4.0;`),
		"fdiv double",
		"fsub double",
		"call void @_printf(double",
		"0x4018000000000000", // 6.0
	)
}

func TestFloatLiteralBits(t *testing.T) {
	wantLines(t, mustEmit(t, `print 0.5;`),
		"0x3FE0000000000000",
	)
}

func TestComparisonWidensToI32(t *testing.T) {
	text := mustEmit(t, `print 1 < 2;`)
	wantLines(t, text, "icmp slt i32 1, 2", "zext i1")
	wantLines(t, mustEmit(t, `print 2.5 > 2.6;`), "fcmp ogt double")
}

func TestParamsAndLocalsGetSlots(t *testing.T) {
	wantLines(t, mustEmit(t, `
		func add(a int, b float) float {
			var c float = b;
			return c;
		}
		print add(1, 0.5);
	`),
		"define double @add(i32 %a, double %b)",
		"%a.addr = alloca i32",
		"store i32 %a, i32* %a.addr",
		"%b.addr = alloca double",
		"%c.addr = alloca double",
		"store double 0x0000000000000000, double* %c.addr",
		"load double, double* %b.addr",
	)
}

func TestIfElseBlocks(t *testing.T) {
	text := mustEmit(t, `
		if 1 < 2 {
			print 1;
		} else {
			print 2;
		}
		print 3;
	`)
	wantLines(t, text,
		"icmp ne i32",
		"label %then.1, label %else.1",
		"then.1:",
		"else.1:",
		"endif.1:",
		"br label %endif.1",
	)
}

func TestIfWithoutElseSynthesizesBlock(t *testing.T) {
	text := mustEmit(t, `
		if 1 < 2 {
			print 1;
		}
		print 3;
	`)
	wantLines(t, text, "then.1:", "else.1:", "endif.1:")
}

func TestLoopBlocks(t *testing.T) {
	text := mustEmit(t, `
		var n int = 3;
		while n > 0 {
			n = n - 1;
		}
	`)
	wantLines(t, text,
		"br label %loop_hdr.1",
		"loop_hdr.1:",
		"icmp eq i32",
		"label %loop_end.1, label %loop_body.2",
		"loop_body.2:",
		"loop_end.1:",
	)
	// The body must branch back to the header.
	if strings.Count(text, "br label %loop_hdr.1") < 2 {
		t.Error("loop body does not branch back to its header")
	}
}

func TestCallArgumentOrder(t *testing.T) {
	wantLines(t, mustEmit(t, `
		func sub(a int, b int) int {
			return a - b;
		}
		print sub(7, 2);
	`),
		"call i32 @sub(i32 7, i32 2)",
		"ret i32",
	)
}

func TestMemoryOps(t *testing.T) {
	wantLines(t, mustEmit(t, "var a int = 0; `a = 7; print `a;"),
		"call void @_pokei(i32",
		"call i32 @_peeki(i32",
	)
}

func TestValueFunctionTailIsUnreachable(t *testing.T) {
	text := mustEmit(t, `
		func pick(c int) int {
			if c < 1 {
				return 1;
			} else {
				return 2;
			}
		}
		print pick(0);
	`)
	if !strings.Contains(text, "unreachable") {
		t.Error("value function whose arms all return lacks an unreachable tail")
	}
}

func TestSyntheticNamesAreSanitized(t *testing.T) {
	wantLines(t, mustEmit(t, `
		func f() int { return 1; }
		f();
	`),
		"%_drop_i.addr = alloca i32",
	)
}

func TestUnknownNameIsAnError(t *testing.T) {
	b := ir.NewBuilder()
	b.StartFunction(ir.EntryPoint, nil, ir.NoValue)
	b.EmitName(ir.LOAD, "ghost")
	b.Emit(ir.PRINTI)
	b.Emit(ir.RET)
	if _, err := Emit(b.Module()); err == nil {
		t.Error("emit succeeded with an unresolved name")
	}
}
