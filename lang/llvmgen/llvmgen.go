// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package llvmgen emits an IR module as LLVM IR text for clang.
//
// Design overview:
//
//   - Wabbit ints (and bools) become i32; floats become double.
//   - Every parameter and local gets an alloca slot in the entry block;
//     LOAD and STORE become loads and stores against those slots, or
//     against module globals.
//   - The emitter replays the stack machine symbolically: each pushed
//     value is the text of an SSA register or literal, and each opcode
//     that pops operands emits the corresponding instruction.
//   - I/O and memory are external runtime calls (_printi, _printf,
//     _peeki, _pokei, _growm) linked from a small C runtime.
//   - Float literals are spelled as IEEE-754 bit patterns so the text
//     round-trips exactly.
package llvmgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/doctaphred/dabeaz-compilers/lang/ir"
)

// Emit renders a module as LLVM IR text.
func Emit(mod *ir.Module) (string, error) {
	e := &emitter{mod: mod}
	var out strings.Builder

	out.WriteString("declare void @_printi(i32)\n")
	out.WriteString("declare void @_printf(double)\n")
	if mod.HasMemory {
		out.WriteString("declare i32 @_peeki(i32)\n")
		out.WriteString("declare void @_pokei(i32, i32)\n")
		out.WriteString("declare i32 @_growm(i32)\n")
	}
	for _, imp := range mod.Imports {
		if imp.Name == "_printi" || imp.Name == "_printf" {
			continue
		}
		fmt.Fprintf(&out, "declare %s @%s(%s)\n", llType(imp.Ret), imp.Name, paramTypeList(imp))
	}
	out.WriteByte('\n')

	for _, g := range mod.Globals {
		if g.Type == ir.F {
			fmt.Fprintf(&out, "@%s = global double %s\n", g.Name, floatLit(0))
		} else {
			fmt.Fprintf(&out, "@%s = global i32 0\n", g.Name)
		}
	}
	if len(mod.Globals) > 0 {
		out.WriteByte('\n')
	}

	for _, fn := range mod.Funcs {
		text, err := e.function(fn)
		if err != nil {
			return "", err
		}
		out.WriteString(text)
		out.WriteByte('\n')
	}
	return out.String(), nil
}

type emitter struct {
	mod *ir.Module
}

// slot describes the alloca (or global) backing a variable.
type slot struct {
	ref string // %name.addr or @name
	typ ir.ValType
}

// fnEmitter carries the state of one function's emission.
type fnEmitter struct {
	mod  *ir.Module
	fn   *ir.Function
	body strings.Builder

	stack []string
	vars  map[string]slot

	tmp        int
	label      int
	terminated bool // current block already has a terminator

	ctrl []ctrlFrame
}

type ctrlFrame struct {
	isLoop  bool
	id      int
	sawElse bool
}

func (e *emitter) function(fn *ir.Function) (string, error) {
	f := &fnEmitter{mod: e.mod, fn: fn, vars: make(map[string]slot)}
	for _, g := range e.mod.Globals {
		f.vars[g.Name] = slot{ref: "@" + g.Name, typ: g.Type}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "define %s @%s(%s) {\nentry:\n", llType(fn.Ret), fn.Name, paramList(fn))

	// Stack slots for parameters and locals.
	for _, p := range fn.Params {
		ref := "%" + p.Name + ".addr"
		f.vars[p.Name] = slot{ref: ref, typ: p.Type}
		fmt.Fprintf(&out, "  %s = alloca %s\n", ref, llType(p.Type))
		fmt.Fprintf(&out, "  store %s %%%s, %s* %s\n", llType(p.Type), p.Name, llType(p.Type), ref)
	}
	for _, l := range fn.Locals() {
		ref := "%" + sanitize(l.Name) + ".addr"
		f.vars[l.Name] = slot{ref: ref, typ: l.Type}
		fmt.Fprintf(&out, "  %s = alloca %s\n", ref, llType(l.Type))
		fmt.Fprintf(&out, "  store %s %s, %s* %s\n", llType(l.Type), zeroLit(l.Type), llType(l.Type), ref)
	}

	for i, inst := range fn.Code {
		if err := f.instruction(i, inst); err != nil {
			return "", err
		}
	}
	if !f.terminated {
		if fn.Ret == ir.NoValue {
			f.line("ret void")
		} else {
			f.line("unreachable")
		}
	}
	out.WriteString(f.body.String())
	out.WriteString("}\n")
	return out.String(), nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (f *fnEmitter) line(format string, args ...interface{}) {
	fmt.Fprintf(&f.body, "  "+format+"\n", args...)
}

// startBlock closes the current block with a fallthrough branch when
// needed, then opens the named block.
func (f *fnEmitter) startBlock(name string) {
	if !f.terminated {
		f.line("br label %%%s", name)
	}
	fmt.Fprintf(&f.body, "%s:\n", name)
	f.terminated = false
}

func (f *fnEmitter) newTmp() string {
	f.tmp++
	return fmt.Sprintf("%%.t%d", f.tmp)
}

func (f *fnEmitter) push(v string)        { f.stack = append(f.stack, v) }
func (f *fnEmitter) pop() (string, error) {
	if len(f.stack) == 0 {
		return "", fmt.Errorf("llvmgen: stack underflow in %s", f.fn.Name)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *fnEmitter) pop2() (x, y string, err error) {
	y, err = f.pop()
	if err != nil {
		return
	}
	x, err = f.pop()
	return
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

var intBinOps = map[ir.Op]string{
	ir.ADDI: "add", ir.SUBI: "sub", ir.MULI: "mul", ir.DIVI: "sdiv",
	ir.ANDI: "and", ir.ORI: "or", ir.XORI: "xor",
}

var intCmpOps = map[ir.Op]string{
	ir.LTI: "slt", ir.LEI: "sle", ir.GTI: "sgt", ir.GEI: "sge",
	ir.EQI: "eq", ir.NEI: "ne",
}

var floatBinOps = map[ir.Op]string{
	ir.ADDF: "fadd", ir.SUBF: "fsub", ir.MULF: "fmul", ir.DIVF: "fdiv",
}

var floatCmpOps = map[ir.Op]string{
	ir.LTF: "olt", ir.LEF: "ole", ir.GTF: "ogt", ir.GEF: "oge",
	ir.EQF: "oeq", ir.NEF: "one",
}

func (f *fnEmitter) instruction(i int, inst ir.Instruction) error {
	if op, ok := intBinOps[inst.Op]; ok {
		return f.binary(op, "i32")
	}
	if op, ok := floatBinOps[inst.Op]; ok {
		return f.binary(op, "double")
	}
	if op, ok := intCmpOps[inst.Op]; ok {
		return f.compare("icmp", op, "i32")
	}
	if op, ok := floatCmpOps[inst.Op]; ok {
		return f.compare("fcmp", op, "double")
	}

	switch inst.Op {
	case ir.CONSTI:
		f.push(strconv.FormatInt(inst.Int, 10))
	case ir.CONSTF:
		f.push(floatLit(inst.Float))

	case ir.LOCALI, ir.LOCALF:
		// Slot already created in the entry block.

	case ir.LOAD:
		s, ok := f.vars[inst.Name]
		if !ok {
			return fmt.Errorf("llvmgen: LOAD of unknown name %q in %s at %d", inst.Name, f.fn.Name, i)
		}
		t := f.newTmp()
		f.line("%s = load %s, %s* %s", t, llType(s.typ), llType(s.typ), s.ref)
		f.push(t)
	case ir.STORE:
		s, ok := f.vars[inst.Name]
		if !ok {
			return fmt.Errorf("llvmgen: STORE to unknown name %q in %s at %d", inst.Name, f.fn.Name, i)
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.line("store %s %s, %s* %s", llType(s.typ), v, llType(s.typ), s.ref)

	case ir.PEEKI:
		addr, err := f.pop()
		if err != nil {
			return err
		}
		t := f.newTmp()
		f.line("%s = call i32 @_peeki(i32 %s)", t, addr)
		f.push(t)
	case ir.POKEI:
		addr, v, err := f.pop2()
		if err != nil {
			return err
		}
		f.line("call void @_pokei(i32 %s, i32 %s)", addr, v)
	case ir.GROWM:
		n, err := f.pop()
		if err != nil {
			return err
		}
		t := f.newTmp()
		f.line("%s = call i32 @_growm(i32 %s)", t, n)
		f.push(t)

	case ir.IF:
		cond, err := f.pop()
		if err != nil {
			return err
		}
		f.label++
		id := f.label
		f.ctrl = append(f.ctrl, ctrlFrame{id: id})
		t := f.newTmp()
		f.line("%s = icmp ne i32 %s, 0", t, cond)
		f.line("br i1 %s, label %%then.%d, label %%else.%d", t, id, id)
		f.startBlockRaw(fmt.Sprintf("then.%d", id))
	case ir.ELSE:
		top := &f.ctrl[len(f.ctrl)-1]
		top.sawElse = true
		if !f.terminated {
			f.line("br label %%endif.%d", top.id)
			f.terminated = true
		}
		f.startBlockRaw(fmt.Sprintf("else.%d", top.id))
	case ir.ENDIF:
		top := f.ctrl[len(f.ctrl)-1]
		f.ctrl = f.ctrl[:len(f.ctrl)-1]
		if !f.terminated {
			f.line("br label %%endif.%d", top.id)
			f.terminated = true
		}
		if !top.sawElse {
			f.startBlockRaw(fmt.Sprintf("else.%d", top.id))
			f.line("br label %%endif.%d", top.id)
			f.terminated = true
		}
		f.startBlockRaw(fmt.Sprintf("endif.%d", top.id))

	case ir.LOOP:
		f.label++
		id := f.label
		f.ctrl = append(f.ctrl, ctrlFrame{isLoop: true, id: id})
		f.startBlock(fmt.Sprintf("loop_hdr.%d", id))
	case ir.CBREAK:
		id := f.loopID()
		cond, err := f.pop()
		if err != nil {
			return err
		}
		f.label++
		bodyLabel := fmt.Sprintf("loop_body.%d", f.label)
		t := f.newTmp()
		f.line("%s = icmp eq i32 %s, 0", t, cond)
		f.line("br i1 %s, label %%loop_end.%d, label %%%s", t, id, bodyLabel)
		f.startBlockRaw(bodyLabel)
	case ir.ENDLOOP:
		top := f.ctrl[len(f.ctrl)-1]
		f.ctrl = f.ctrl[:len(f.ctrl)-1]
		if !f.terminated {
			f.line("br label %%loop_hdr.%d", top.id)
			f.terminated = true
		}
		f.startBlockRaw(fmt.Sprintf("loop_end.%d", top.id))

	case ir.CALL:
		callee, ok := f.mod.Function(inst.Name)
		if !ok {
			return fmt.Errorf("llvmgen: CALL of unknown function %q in %s at %d", inst.Name, f.fn.Name, i)
		}
		args := make([]string, len(callee.Params))
		for j := len(args) - 1; j >= 0; j-- {
			v, err := f.pop()
			if err != nil {
				return err
			}
			args[j] = llType(callee.Params[j].Type) + " " + v
		}
		argList := strings.Join(args, ", ")
		if callee.Ret == ir.NoValue {
			f.line("call void @%s(%s)", inst.Name, argList)
		} else {
			t := f.newTmp()
			f.line("%s = call %s @%s(%s)", t, llType(callee.Ret), inst.Name, argList)
			f.push(t)
		}

	case ir.RET:
		if f.fn.Ret == ir.NoValue {
			f.line("ret void")
		} else {
			v, err := f.pop()
			if err != nil {
				return err
			}
			f.line("ret %s %s", llType(f.fn.Ret), v)
		}
		f.terminated = true

	case ir.PRINTI:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.line("call void @_printi(i32 %s)", v)
	case ir.PRINTF:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.line("call void @_printf(double %s)", v)

	default:
		return fmt.Errorf("llvmgen: cannot emit %s in %s at %d", inst.Op, f.fn.Name, i)
	}
	return nil
}

// startBlockRaw opens a block that is always branched to explicitly.
func (f *fnEmitter) startBlockRaw(name string) {
	fmt.Fprintf(&f.body, "%s:\n", name)
	f.terminated = false
}

func (f *fnEmitter) binary(op, typ string) error {
	x, y, err := f.pop2()
	if err != nil {
		return err
	}
	t := f.newTmp()
	f.line("%s = %s %s %s, %s", t, op, typ, x, y)
	f.push(t)
	return nil
}

// compare emits the comparison and widens the i1 back to the i32 the stack
// machine expects.
func (f *fnEmitter) compare(cmp, pred, typ string) error {
	x, y, err := f.pop2()
	if err != nil {
		return err
	}
	c := f.newTmp()
	f.line("%s = %s %s %s %s, %s", c, cmp, pred, typ, x, y)
	t := f.newTmp()
	f.line("%s = zext i1 %s to i32", t, c)
	f.push(t)
	return nil
}

func (f *fnEmitter) loopID() int {
	for i := len(f.ctrl) - 1; i >= 0; i-- {
		if f.ctrl[i].isLoop {
			return f.ctrl[i].id
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// Types and literals
// ---------------------------------------------------------------------------

func llType(t ir.ValType) string {
	switch t {
	case ir.F:
		return "double"
	case ir.NoValue:
		return "void"
	}
	return "i32"
}

func zeroLit(t ir.ValType) string {
	if t == ir.F {
		return floatLit(0)
	}
	return "0"
}

// floatLit spells a double as its bit pattern, which LLVM parses exactly.
func floatLit(v float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}

func paramList(fn *ir.Function) string {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = llType(p.Type) + " %" + p.Name
	}
	return strings.Join(parts, ", ")
}

func paramTypeList(fn *ir.Function) string {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = llType(p.Type)
	}
	return strings.Join(parts, ", ")
}

// sanitize rewrites the dotted synthetic names the IR generator produces
// into identifiers LLVM accepts without quoting.
func sanitize(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
