// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package math

import (
	"bytes"
	"testing"

	"github.com/doctaphred/dabeaz-compilers/lang/check"
	"github.com/doctaphred/dabeaz-compilers/lang/interp"
	"github.com/doctaphred/dabeaz-compilers/lang/irgen"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
)

func run(t *testing.T, src string) string {
	t.Helper()
	prog, errs := parser.Parse("test.wb", src)
	if errs.HasErrors() {
		t.Fatalf("parse errors:\n%s", errs)
	}
	info, errs := check.Check(prog)
	if errs.HasErrors() {
		t.Fatalf("check errors:\n%s", errs)
	}
	var out bytes.Buffer
	m := interp.New(irgen.Generate(prog, info), interp.Config{Output: &out})
	Install(m)
	if err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestFloatRoutines(t *testing.T) {
	got := run(t, `
		import func sqrt(x float) float;
		import func floor(x float) float;
		import func ceil(x float) float;
		import func pow(x float, y float) float;
		print sqrt(9.0);
		print floor(2.7);
		print ceil(2.1);
		print pow(2.0, 10.0);
	`)
	if got != "3\n2\n3\n1024\n" {
		t.Errorf("output = %q, want %q", got, "3\n2\n3\n1024\n")
	}
}

func TestIntRoutines(t *testing.T) {
	got := run(t, `
		import func absi(x int) int;
		import func mini(x int, y int) int;
		import func maxi(x int, y int) int;
		print absi(0 - 5);
		print mini(3, 7);
		print maxi(3, 7);
	`)
	if got != "5\n3\n7\n" {
		t.Errorf("output = %q, want %q", got, "5\n3\n7\n")
	}
}

func TestRoutinesComposeWithUserCode(t *testing.T) {
	got := run(t, `
		import func sqrt(x float) float;

		func hyp(a float, b float) float {
			return sqrt(a * a + b * b);
		}

		print hyp(3.0, 4.0);
	`)
	if got != "5\n" {
		t.Errorf("output = %q, want %q", got, "5\n")
	}
}
