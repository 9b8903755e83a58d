// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package compile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/interp"
)

// interpret compiles and runs a program, returning its print lines.
func interpret(t *testing.T, src string) string {
	t.Helper()
	res, err := Source("test.wb", src, Options{})
	require.NoError(t, err)
	require.False(t, res.Failed(), "diagnostics:\n%s", res.Diags)

	var out bytes.Buffer
	m := interp.New(res.Module, interp.Config{Output: &out})
	require.NoError(t, m.Run())
	return out.String()
}

func TestEndToEndPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"integer arithmetic",
			`print 2 + 3 * -4;`,
			"-10\n",
		},
		{
			"float arithmetic",
			`print 2.0 - 3.0 / -4.0;`,
			"2.75\n",
		},
		{
			"const and global",
			`const pi float = 3.14159; var tau float; tau = 2.0 * pi; print tau;`,
			"6.28318\n",
		},
		{
			"function calls",
			`func square(x int) int { return x*x; } print square(4); print square(10);`,
			"16\n100\n",
		},
		{
			"fibonacci",
			`func fib(n int) int {
				if n > 1 {
					return fib(n-1) + fib(n-2);
				} else {
					return 1;
				}
				return 0;
			}
			print fib(10);`,
			"89\n",
		},
		{
			"linear memory",
			"var memsize int = ^1000; const addr int = 500; `addr = 1234; print `addr + 10000;",
			"11234\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interpret(t, tt.src))
		})
	}
}

func TestRejectedPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"mixed arithmetic", `print 2 + 3.0;`, diag.TypeError},
		{"assignment to const", `const k int = 1; k = 2;`, diag.NameError},
		{"missing return", `func f() int { } print f();`, diag.ReturnError},
		{"undeclared name", `print nope;`, diag.NameError},
		{"arity mismatch", `func f(x int) int { return x; } print f(1, 2);`, diag.TypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Source("test.wb", tt.src, Options{})
			require.NoError(t, err)
			require.Len(t, res.Diags, 1, "diagnostics:\n%s", res.Diags)
			assert.Equal(t, tt.kind, res.Diags[0].Kind)
		})
	}
}

func TestDeterministicArtifacts(t *testing.T) {
	src := `
		var n int = 5;
		func fact(n int) int {
			if n < 2 { return 1; }
			return n * fact(n - 1);
		}
		print fact(n);
	`
	for _, mode := range []string{ModeWasm, ModeLLVM} {
		a, err := Source("test.wb", src, Options{Mode: mode})
		require.NoError(t, err)
		b, err := Source("test.wb", src, Options{Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, a.Wasm, b.Wasm, mode)
		assert.Equal(t, a.LLVM, b.LLVM, mode)
	}
}

func TestOptimizationPreservesOutput(t *testing.T) {
	src := `
		var x int = 2 + 3 * 4;
		print x * 2;
		print 1 < 2 && 3 < 4;
	`
	assert.Equal(t, interpret(t, src), func() string {
		res, err := Source("test.wb", src, Options{Optimize: true})
		require.NoError(t, err)
		var out bytes.Buffer
		m := interp.New(res.Module, interp.Config{Output: &out})
		require.NoError(t, m.Run())
		return out.String()
	}())
}
