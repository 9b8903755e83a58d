// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

// Package math provides host functions for the math routines Wabbit
// programs import.
//
// A program declares the routines it wants and the interpreter resolves
// them against this package at call time:
//
//	import func sqrt(x float) float;
//	print sqrt(2.0);
package math

import (
	"fmt"
	gomath "math"

	"github.com/doctaphred/dabeaz-compilers/lang/interp"
)

// Install registers every math routine on the machine. Routines a
// program does not import are inert.
func Install(m *interp.Machine) {
	m.Register("sqrt", float1(gomath.Sqrt))
	m.Register("floor", float1(gomath.Floor))
	m.Register("ceil", float1(gomath.Ceil))
	m.Register("pow", float2(gomath.Pow))
	m.Register("absi", int1(func(x int64) int64 {
		if x < 0 {
			return -x
		}
		return x
	}))
	m.Register("mini", int2(func(x, y int64) int64 {
		if x < y {
			return x
		}
		return y
	}))
	m.Register("maxi", int2(func(x, y int64) int64 {
		if x > y {
			return x
		}
		return y
	}))
}

func arity(args []interp.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("math: got %d arguments, want %d", len(args), n)
	}
	return nil
}

func float1(f func(float64) float64) interp.HostFunc {
	return func(args []interp.Value) (interp.Value, error) {
		if err := arity(args, 1); err != nil {
			return interp.Value{}, err
		}
		return interp.FloatVal(f(args[0].F)), nil
	}
}

func float2(f func(x, y float64) float64) interp.HostFunc {
	return func(args []interp.Value) (interp.Value, error) {
		if err := arity(args, 2); err != nil {
			return interp.Value{}, err
		}
		return interp.FloatVal(f(args[0].F, args[1].F)), nil
	}
}

func int1(f func(int64) int64) interp.HostFunc {
	return func(args []interp.Value) (interp.Value, error) {
		if err := arity(args, 1); err != nil {
			return interp.Value{}, err
		}
		return interp.IntVal(f(args[0].I)), nil
	}
}

func int2(f func(x, y int64) int64) interp.HostFunc {
	return func(args []interp.Value) (interp.Value, error) {
		if err := arity(args, 2); err != nil {
			return interp.Value{}, err
		}
		return interp.IntVal(f(args[0].I, args[1].I)), nil
	}
}
