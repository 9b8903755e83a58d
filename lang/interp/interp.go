// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The Wabbit compiler is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package interp executes IR modules directly.
//
// Design overview:
//
//   - The machine keeps a tagged value stack per call, a frame per active
//     function holding its locals, and one linear byte memory shared by
//     all frames.
//   - Structured control does not scan for its matching delimiter at run
//     time; the jump table for every function is computed once when the
//     machine is created.
//   - Imported functions resolve against a host registry.  _printi and
//     _printf are preinstalled; an unresolved import traps at call time.
//   - A step limit bounds the total instruction count so runaway loops
//     terminate with ErrStepLimit instead of hanging the host.
package interp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/doctaphred/dabeaz-compilers/lang/ir"
)

// ---- Error sentinels -------------------------------------------------------

// ErrStepLimit is returned when an execution exhausts its step budget.
var ErrStepLimit = errors.New("interp: step limit exceeded")

// ErrDivisionByZero is returned by DIVI when the divisor is zero.
var ErrDivisionByZero = errors.New("interp: division by zero")

// ErrStackUnderflow is returned when an instruction pops an empty stack.
// Verified modules never trigger it.
var ErrStackUnderflow = errors.New("interp: stack underflow")

// ErrUnresolvedImport is returned when a CALL targets an imported function
// with no registered host implementation.
var ErrUnresolvedImport = errors.New("interp: unresolved import")

// ErrNoEntryPoint is returned when the module has no main function.
var ErrNoEntryPoint = errors.New("interp: module has no main function")

// DefaultStepLimit bounds execution at one hundred million instructions.
const DefaultStepLimit uint64 = 100_000_000

// ---- Values ----------------------------------------------------------------

// Value is one operand stack slot, tagged with its IR value class.
type Value struct {
	T ir.ValType
	I int64
	F float64
}

// IntVal wraps an integer as a stack value.
func IntVal(v int64) Value { return Value{T: ir.I, I: v} }

// FloatVal wraps a float as a stack value.
func FloatVal(v float64) Value { return Value{T: ir.F, F: v} }

func (v Value) String() string {
	if v.T == ir.F {
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	}
	return strconv.FormatInt(v.I, 10)
}

// HostFunc is a native implementation of an imported function.  Args arrive
// in declaration order; the result is ignored for void imports.
type HostFunc func(args []Value) (Value, error)

// ---- Machine ---------------------------------------------------------------

// Config carries the tunable limits of a machine.  The zero value selects
// the defaults and writes program output to standard output.
type Config struct {
	Output      io.Writer
	StepLimit   uint64
	MemoryLimit int64
}

// Machine executes one IR module.
type Machine struct {
	mod   *ir.Module
	out   io.Writer
	mem   *Memory
	hosts map[string]HostFunc
	flow  map[*ir.Function]flowTable

	globals   map[string]Value
	steps     uint64
	stepLimit uint64
}

// New creates a machine for the module.  Control-flow targets are resolved
// here, once, for every function.
func New(mod *ir.Module, cfg Config) *Machine {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.StepLimit == 0 {
		cfg.StepLimit = DefaultStepLimit
	}
	m := &Machine{
		mod:       mod,
		out:       cfg.Output,
		mem:       NewMemory(cfg.MemoryLimit),
		hosts:     make(map[string]HostFunc),
		flow:      make(map[*ir.Function]flowTable),
		globals:   make(map[string]Value),
		stepLimit: cfg.StepLimit,
	}
	for _, g := range mod.Globals {
		m.globals[g.Name] = zeroValue(g.Type)
	}
	for _, fn := range mod.Funcs {
		m.flow[fn] = resolveFlow(fn)
	}
	m.Register("_printi", func(args []Value) (Value, error) {
		fmt.Fprintf(m.out, "%d\n", args[0].I)
		return Value{}, nil
	})
	m.Register("_printf", func(args []Value) (Value, error) {
		fmt.Fprintln(m.out, strconv.FormatFloat(args[0].F, 'g', -1, 64))
		return Value{}, nil
	})
	return m
}

// Register installs a host implementation for an imported function,
// replacing any previous one of the same name.
func (m *Machine) Register(name string, fn HostFunc) {
	m.hosts[name] = fn
}

// Memory exposes the machine's linear memory, chiefly for host functions
// and tests.
func (m *Machine) Memory() *Memory { return m.mem }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() uint64 { return m.steps }

// Run executes the module's main function.
func (m *Machine) Run() error {
	main, ok := m.mod.Function(ir.EntryPoint)
	if !ok || main.Imported {
		return ErrNoEntryPoint
	}
	_, err := m.call(main, nil)
	return err
}

func zeroValue(t ir.ValType) Value {
	if t == ir.F {
		return FloatVal(0)
	}
	return IntVal(0)
}

// ---- Control-flow resolution -----------------------------------------------

// flowTable maps the instruction index of a control opcode to the index
// execution continues at when the opcode transfers control:
//
//	IF      → first instruction of the false branch
//	ELSE    → past the matching ENDIF (taken when the then-arm falls through)
//	CBREAK  → past the matching ENDLOOP
//	ENDLOOP → the matching LOOP
type flowTable map[int]int

func resolveFlow(fn *ir.Function) flowTable {
	ft := make(flowTable)
	var ifs []int   // innermost IF (or ELSE once seen) awaiting its ENDIF
	var loops []int // open LOOP indexes
	for i, inst := range fn.Code {
		switch inst.Op {
		case ir.IF:
			ifs = append(ifs, i)
		case ir.ELSE:
			ft[ifs[len(ifs)-1]] = i + 1
			ifs[len(ifs)-1] = i
		case ir.ENDIF:
			ft[ifs[len(ifs)-1]] = i + 1
			ifs = ifs[:len(ifs)-1]
		case ir.LOOP:
			loops = append(loops, i)
		case ir.ENDLOOP:
			start := loops[len(loops)-1]
			loops = loops[:len(loops)-1]
			ft[i] = start
			// Resolve the CBREAKs of this loop; inner loops already
			// claimed theirs.
			for j := start + 1; j < i; j++ {
				if fn.Code[j].Op == ir.CBREAK {
					if _, done := ft[j]; !done {
						ft[j] = i + 1
					}
				}
			}
		}
	}
	return ft
}

// ---- Execution -------------------------------------------------------------

// frame is the execution state of one active function.
type frame struct {
	fn     *ir.Function
	stack  []Value
	locals map[string]Value
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return Value{}, fmt.Errorf("%w: in %s", ErrStackUnderflow, f.fn.Name)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (m *Machine) call(fn *ir.Function, args []Value) (Value, error) {
	f := &frame{fn: fn, locals: make(map[string]Value, len(fn.Params))}
	for i, p := range fn.Params {
		f.locals[p.Name] = args[i]
	}
	ft := m.flow[fn]

	pc := 0
	for pc < len(fn.Code) {
		m.steps++
		if m.steps > m.stepLimit {
			return Value{}, fmt.Errorf("%w: %d instructions", ErrStepLimit, m.stepLimit)
		}
		inst := fn.Code[pc]

		switch inst.Op {

		case ir.CONSTI:
			f.push(IntVal(inst.Int))
		case ir.CONSTF:
			f.push(FloatVal(inst.Float))

		case ir.ADDI, ir.SUBI, ir.MULI, ir.DIVI, ir.ANDI, ir.ORI, ir.XORI,
			ir.LTI, ir.LEI, ir.GTI, ir.GEI, ir.EQI, ir.NEI:
			y, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			x, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			r, err := intOp(inst.Op, x.I, y.I)
			if err != nil {
				return Value{}, fmt.Errorf("%w: in %s at %d", err, fn.Name, pc)
			}
			f.push(IntVal(r))

		case ir.ADDF, ir.SUBF, ir.MULF, ir.DIVF:
			y, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			x, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			f.push(FloatVal(floatOp(inst.Op, x.F, y.F)))

		case ir.LTF, ir.LEF, ir.GTF, ir.GEF, ir.EQF, ir.NEF:
			y, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			x, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			f.push(IntVal(floatCmp(inst.Op, x.F, y.F)))

		case ir.LOCALI:
			f.locals[inst.Name] = IntVal(0)
		case ir.LOCALF:
			f.locals[inst.Name] = FloatVal(0)

		case ir.LOAD:
			if v, ok := f.locals[inst.Name]; ok {
				f.push(v)
			} else {
				f.push(m.globals[inst.Name])
			}
		case ir.STORE:
			v, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			if _, ok := f.locals[inst.Name]; ok {
				f.locals[inst.Name] = v
			} else {
				m.globals[inst.Name] = v
			}

		case ir.PEEKI:
			addr, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			v, err := m.mem.ReadWord(addr.I)
			if err != nil {
				return Value{}, fmt.Errorf("%w: in %s at %d", err, fn.Name, pc)
			}
			f.push(IntVal(v))
		case ir.POKEI:
			v, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			addr, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			if err := m.mem.WriteWord(addr.I, v.I); err != nil {
				return Value{}, fmt.Errorf("%w: in %s at %d", err, fn.Name, pc)
			}
		case ir.GROWM:
			n, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			size, err := m.mem.Grow(n.I)
			if err != nil {
				return Value{}, fmt.Errorf("%w: in %s at %d", err, fn.Name, pc)
			}
			f.push(IntVal(size))

		case ir.IF:
			cond, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			if cond.I == 0 {
				pc = ft[pc]
				continue
			}
		case ir.ELSE:
			pc = ft[pc]
			continue
		case ir.ENDIF, ir.LOOP:
			// Markers only.
		case ir.CBREAK:
			cond, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			if cond.I == 0 {
				pc = ft[pc]
				continue
			}
		case ir.ENDLOOP:
			pc = ft[pc]
			continue

		case ir.CALL:
			callee, ok := m.mod.Function(inst.Name)
			if !ok {
				return Value{}, fmt.Errorf("interp: CALL of undefined function %q in %s at %d", inst.Name, fn.Name, pc)
			}
			args := make([]Value, len(callee.Params))
			for i := len(args) - 1; i >= 0; i-- {
				v, err := f.pop()
				if err != nil {
					return Value{}, err
				}
				args[i] = v
			}
			var ret Value
			var err error
			if callee.Imported {
				host, ok := m.hosts[inst.Name]
				if !ok {
					return Value{}, fmt.Errorf("%w: %q", ErrUnresolvedImport, inst.Name)
				}
				ret, err = host(args)
			} else {
				ret, err = m.call(callee, args)
			}
			if err != nil {
				return Value{}, err
			}
			if callee.Ret != ir.NoValue {
				f.push(ret)
			}

		case ir.RET:
			if fn.Ret != ir.NoValue {
				return f.pop()
			}
			return Value{}, nil

		case ir.PRINTI:
			v, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			fmt.Fprintf(m.out, "%d\n", v.I)
		case ir.PRINTF:
			v, err := f.pop()
			if err != nil {
				return Value{}, err
			}
			fmt.Fprintln(m.out, strconv.FormatFloat(v.F, 'g', -1, 64))

		default:
			return Value{}, fmt.Errorf("interp: unknown opcode %s in %s at %d", inst.Op, fn.Name, pc)
		}
		pc++
	}
	return Value{}, nil
}

// ---- Scalar operations -----------------------------------------------------

func intOp(op ir.Op, x, y int64) (int64, error) {
	b2i := func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	}
	switch op {
	case ir.ADDI:
		return x + y, nil
	case ir.SUBI:
		return x - y, nil
	case ir.MULI:
		return x * y, nil
	case ir.DIVI:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	case ir.ANDI:
		return x & y, nil
	case ir.ORI:
		return x | y, nil
	case ir.XORI:
		return x ^ y, nil
	case ir.LTI:
		return b2i(x < y), nil
	case ir.LEI:
		return b2i(x <= y), nil
	case ir.GTI:
		return b2i(x > y), nil
	case ir.GEI:
		return b2i(x >= y), nil
	case ir.EQI:
		return b2i(x == y), nil
	case ir.NEI:
		return b2i(x != y), nil
	}
	panic(fmt.Sprintf("interp: intOp called with %s", op))
}

func floatOp(op ir.Op, x, y float64) float64 {
	switch op {
	case ir.ADDF:
		return x + y
	case ir.SUBF:
		return x - y
	case ir.MULF:
		return x * y
	case ir.DIVF:
		return x / y
	}
	panic(fmt.Sprintf("interp: floatOp called with %s", op))
}

func floatCmp(op ir.Op, x, y float64) int64 {
	b2i := func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	}
	switch op {
	case ir.LTF:
		return b2i(x < y)
	case ir.LEF:
		return b2i(x <= y)
	case ir.GTF:
		return b2i(x > y)
	case ir.GEF:
		return b2i(x >= y)
	case ir.EQF:
		return b2i(x == y)
	case ir.NEF:
		return b2i(x != y)
	}
	panic(fmt.Sprintf("interp: floatCmp called with %s", op))
}
