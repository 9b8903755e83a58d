// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package interp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/doctaphred/dabeaz-compilers/lang/check"
	"github.com/doctaphred/dabeaz-compilers/lang/ir"
	"github.com/doctaphred/dabeaz-compilers/lang/irgen"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
)

// compile lowers source through the whole frontend.
func compile(t *testing.T, src string) *ir.Module {
	t.Helper()
	prog, errs := parser.Parse("test.wb", src)
	if errs.HasErrors() {
		t.Fatalf("parse errors:\n%s", errs)
	}
	info, errs := check.Check(prog)
	if errs.HasErrors() {
		t.Fatalf("check errors:\n%s", errs)
	}
	return irgen.Generate(prog, info)
}

// run executes a program and returns its output.
func run(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(compile(t, src), Config{Output: &out})
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

// runErr executes a program expected to trap.
func runErr(t *testing.T, src string, cfg Config) error {
	t.Helper()
	if cfg.Output == nil {
		cfg.Output = &bytes.Buffer{}
	}
	m := New(compile(t, src), cfg)
	err := m.Run()
	if err == nil {
		t.Fatal("run succeeded, want error")
	}
	return err
}

func TestPrintPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", `print 2 + 3 * -4;`, "-10\n"},
		{"division", `print 7 / 2;`, "3\n"},
		{"float", `print 2.0 - 6.0 / 4.0;`, "0.5\n"},
		{"float accumulates", `print 0.1 + 0.2;`, "0.30000000000000004\n"},
		{"whole float", `print 1.5 * 2.0;`, "3\n"},
		{"bools are 0 or 1", `print true; print false; print 1 < 2;`, "1\n0\n1\n"},
		{"logic", `print true && !false; print false || false;`, "1\n0\n"},
		{"comparison chain", `print 3 <= 3; print 2.5 > 2.6; print 1 != 2;`, "1\n0\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, tt.src); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIfElse(t *testing.T) {
	got := run(t, `
		var x int = 3;
		if x < 5 {
			print 1;
		} else {
			print 2;
		}
		if x > 5 {
			print 3;
		}
	`)
	if got != "1\n" {
		t.Errorf("output = %q, want %q", got, "1\n")
	}
}

func TestWhileCountdown(t *testing.T) {
	got := run(t, `
		var n int = 3;
		while n > 0 {
			print n;
			n = n - 1;
		}
	`)
	if got != "3\n2\n1\n" {
		t.Errorf("output = %q, want %q", got, "3\n2\n1\n")
	}
}

func TestNestedLoops(t *testing.T) {
	got := run(t, `
		var total int = 0;
		var i int = 0;
		while i < 3 {
			var j int = 0;
			while j < 4 {
				total = total + 1;
				j = j + 1;
			}
			i = i + 1;
		}
		print total;
	`)
	if got != "12\n" {
		t.Errorf("output = %q, want %q", got, "12\n")
	}
}

func TestRecursion(t *testing.T) {
	got := run(t, `
		func fact(n int) int {
			if n < 2 {
				return 1;
			}
			return n * fact(n - 1);
		}
		print fact(5);
	`)
	if got != "120\n" {
		t.Errorf("output = %q, want %q", got, "120\n")
	}
}

func TestMutualCallsAndGlobals(t *testing.T) {
	got := run(t, `
		var calls int = 0;

		func bump() int {
			calls = calls + 1;
			return calls;
		}

		func twice() int {
			return bump() + bump();
		}

		print twice();
		print calls;
	`)
	if got != "3\n2\n" {
		t.Errorf("output = %q, want %q", got, "3\n2\n")
	}
}

func TestExplicitMainRuns(t *testing.T) {
	got := run(t, `
		var x int = 40;
		func main() {
			print x + 2;
		}
	`)
	if got != "42\n" {
		t.Errorf("output = %q, want %q", got, "42\n")
	}
}

func TestMemoryProgram(t *testing.T) {
	got := run(t, "var a int = 0;\n"+
		"print ^64;\n"+ // grow returns the new size
		"`a = 42;\n"+
		"`(a + 4) = 7;\n"+
		"print `a + `(a + 4);\n")
	if got != "64\n49\n" {
		t.Errorf("output = %q, want %q", got, "64\n49\n")
	}
}

func TestDivisionByZeroTraps(t *testing.T) {
	err := runErr(t, `
		var z int = 0;
		print 1 / z;
	`, Config{})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("err = %v, want ErrDivisionByZero", err)
	}
}

func TestStepLimit(t *testing.T) {
	err := runErr(t, `
		var x int = 0;
		while 0 < 1 {
			x = x + 1;
		}
	`, Config{StepLimit: 1000})
	if !errors.Is(err, ErrStepLimit) {
		t.Errorf("err = %v, want ErrStepLimit", err)
	}
}

func TestMemoryFaults(t *testing.T) {
	t.Run("out of bounds", func(t *testing.T) {
		err := runErr(t, "print `100;", Config{})
		if !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("err = %v, want ErrInvalidAddress", err)
		}
	})
	t.Run("over the limit", func(t *testing.T) {
		err := runErr(t, "print ^65536;", Config{MemoryLimit: 1024})
		if !errors.Is(err, ErrOutOfMemory) {
			t.Errorf("err = %v, want ErrOutOfMemory", err)
		}
	})
}

func TestPreinstalledPrintImports(t *testing.T) {
	got := run(t, `
		import func _printi(x int);
		import func _printf(x float);
		_printi(42);
		_printf(2.5);
	`)
	if got != "42\n2.5\n" {
		t.Errorf("output = %q, want %q", got, "42\n2.5\n")
	}
}

func TestUnresolvedImportTraps(t *testing.T) {
	err := runErr(t, `
		import func missing(x int) int;
		print missing(1);
	`, Config{})
	if !errors.Is(err, ErrUnresolvedImport) {
		t.Errorf("err = %v, want ErrUnresolvedImport", err)
	}
}

func TestHostFunctionRegistry(t *testing.T) {
	mod := compile(t, `
		import func double(x int) int;
		print double(21);
	`)
	var out bytes.Buffer
	m := New(mod, Config{Output: &out})
	m.Register("double", func(args []Value) (Value, error) {
		return IntVal(args[0].I * 2), nil
	})
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "42\n" {
		t.Errorf("output = %q, want %q", got, "42\n")
	}
}

func TestNoEntryPoint(t *testing.T) {
	m := New(ir.NewBuilder().Module(), Config{Output: &bytes.Buffer{}})
	if err := m.Run(); !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("err = %v, want ErrNoEntryPoint", err)
	}
}

func TestMemoryWords(t *testing.T) {
	mem := NewMemory(0)
	if _, err := mem.Grow(16); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if err := mem.WriteWord(8, -5); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := mem.ReadWord(8)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != -5 {
		t.Errorf("read back %d, want -5", v)
	}
	if _, err := mem.ReadWord(14); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("straddling read err = %v, want ErrInvalidAddress", err)
	}
	if err := mem.WriteWord(-1, 0); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("negative write err = %v, want ErrInvalidAddress", err)
	}
	if size := mem.Size(); size != 16 {
		t.Errorf("size = %d, want 16", size)
	}
}

func TestStepsAreCounted(t *testing.T) {
	var out bytes.Buffer
	m := New(compile(t, `print 1;`), Config{Output: &out})
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.Steps() == 0 {
		t.Error("Steps() = 0 after a run")
	}
}
