// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package wasm emits an IR module as a binary WebAssembly module.
//
// Design overview:
//
//   - Wabbit ints (and bools) become i32; floats become f64.
//   - The host functions _printi(i32) and _printf(f64) occupy import
//     indices 0 and 1; the program's own imports follow.  PRINTI and
//     PRINTF lower to calls of those two.
//   - Structured IR control maps one-to-one onto wasm control: IF/ELSE/
//     ENDIF become if/else/end, and a LOOP becomes block(loop(...)) so
//     that CBREAK can branch out of the block and ENDLOOP can branch back
//     to the loop head.
//   - Linear memory is exported as "memory" whenever the program touches
//     it.  GROWM converts its byte count to 64 KiB pages, grows, and
//     leaves the new size in bytes on the stack.
package wasm

import (
	"fmt"
	"math"

	"github.com/doctaphred/dabeaz-compilers/lang/ir"
)

// Section ids in emission order.
const (
	secType   byte = 1
	secImport byte = 2
	secFunc   byte = 3
	secMemory byte = 5
	secGlobal byte = 6
	secExport byte = 7
	secCode   byte = 10
)

// Value types.
const (
	typeI32  byte = 0x7f
	typeF64  byte = 0x7c
	typeFunc byte = 0x60
)

// Opcodes.
const (
	opUnreachable byte = 0x00

	opBlock     byte = 0x02
	opLoop      byte = 0x03
	opIf        byte = 0x04
	opElse      byte = 0x05
	opEnd       byte = 0x0b
	opBr        byte = 0x0c
	opBrIf      byte = 0x0d
	opReturn    byte = 0x0f
	opCall      byte = 0x10
	opDrop      byte = 0x1a
	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Load   byte = 0x28
	opI32Store  byte = 0x36
	opMemSize   byte = 0x3f
	opMemGrow   byte = 0x40
	opI32Const  byte = 0x41
	opF64Const  byte = 0x44
	opI32Eqz    byte = 0x45
	opI32Eq     byte = 0x46
	opI32Ne     byte = 0x47
	opI32LtS    byte = 0x48
	opI32GtS    byte = 0x4a
	opI32LeS    byte = 0x4c
	opI32GeS    byte = 0x4e
	opF64Eq     byte = 0x61
	opF64Ne     byte = 0x62
	opF64Lt     byte = 0x63
	opF64Gt     byte = 0x64
	opF64Le     byte = 0x65
	opF64Ge     byte = 0x66
	opI32Add    byte = 0x6a
	opI32Sub    byte = 0x6b
	opI32Mul    byte = 0x6c
	opI32DivS   byte = 0x6d
	opI32And    byte = 0x71
	opI32Or     byte = 0x72
	opI32Xor    byte = 0x73
	opI32Shl    byte = 0x74
	opI32ShrU   byte = 0x78
	opF64Add    byte = 0xa0
	opF64Sub    byte = 0xa1
	opF64Mul    byte = 0xa2
	opF64Div    byte = 0xa3
)

const (
	blockVoid byte = 0x40
	pageSize       = 65536
)

// Emit encodes a module as a binary wasm module.
func Emit(mod *ir.Module) ([]byte, error) {
	e := &encoder{
		mod:       mod,
		typeIdx:   make(map[string]uint32),
		funcIdx:   make(map[string]uint32),
		globalIdx: make(map[string]uint32),
	}
	return e.module()
}

type encoder struct {
	mod *ir.Module

	types   [][]byte          // encoded signatures, deduplicated
	typeIdx map[string]uint32 // signature key to types index

	imports   []importEntry
	funcIdx   map[string]uint32 // function index space: imports then funcs
	globalIdx map[string]uint32
}

type importEntry struct {
	name   string
	params []ir.ValType
	ret    ir.ValType
}

func (e *encoder) module() ([]byte, error) {
	e.collectImports()
	for i, g := range e.mod.Globals {
		e.globalIdx[g.Name] = uint32(i)
	}

	out := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

	// Resolve every type index before the type section is frozen.
	importTypes := make([]uint32, len(e.imports))
	for i, imp := range e.imports {
		importTypes[i] = e.typeIndex(imp.params, imp.ret)
	}
	funcTypes := make([]uint32, len(e.mod.Funcs))
	for i, fn := range e.mod.Funcs {
		funcTypes[i] = e.typeIndex(paramTypes(fn), fn.Ret)
	}
	bodies := make([][]byte, len(e.mod.Funcs))
	for i, fn := range e.mod.Funcs {
		body, err := e.codeEntry(fn)
		if err != nil {
			return nil, err
		}
		bodies[i] = body
	}

	out = e.section(out, secType, e.typeSection())
	out = e.section(out, secImport, e.importSection(importTypes))
	out = e.section(out, secFunc, e.funcSection(funcTypes))
	if e.mod.HasMemory {
		out = e.section(out, secMemory, []byte{0x01, 0x00, 0x00}) // one memory, min 0 pages
	}
	out = e.section(out, secGlobal, e.globalSection())
	out = e.section(out, secExport, e.exportSection())
	out = e.section(out, secCode, e.codeSection(bodies))
	return out, nil
}

// collectImports places the print runtime at indices 0 and 1, then the
// program's own imports.  A program that declares _printi or _printf
// itself keeps its declaration in the runtime slot.
func (e *encoder) collectImports() {
	e.imports = []importEntry{
		{name: "_printi", params: []ir.ValType{ir.I}},
		{name: "_printf", params: []ir.ValType{ir.F}},
	}
	for _, imp := range e.mod.Imports {
		entry := importEntry{name: imp.Name, params: paramTypes(imp), ret: imp.Ret}
		switch imp.Name {
		case "_printi":
			e.imports[0] = entry
		case "_printf":
			e.imports[1] = entry
		default:
			e.imports = append(e.imports, entry)
		}
	}
	for i, imp := range e.imports {
		e.funcIdx[imp.name] = uint32(i)
	}
	for i, fn := range e.mod.Funcs {
		e.funcIdx[fn.Name] = uint32(len(e.imports) + i)
	}
}

func paramTypes(fn *ir.Function) []ir.ValType {
	if len(fn.Params) == 0 {
		return nil
	}
	types := make([]ir.ValType, len(fn.Params))
	for i, p := range fn.Params {
		types[i] = p.Type
	}
	return types
}

func valByte(t ir.ValType) byte {
	if t == ir.F {
		return typeF64
	}
	return typeI32
}

// typeIndex returns the index of a function signature in the type section,
// adding it on first use.
func (e *encoder) typeIndex(params []ir.ValType, ret ir.ValType) uint32 {
	enc := []byte{typeFunc}
	enc = appendUleb(enc, uint64(len(params)))
	key := ""
	for _, p := range params {
		enc = append(enc, valByte(p))
		key += p.String()
	}
	key += "->" + ret.String()
	if ret == ir.NoValue {
		enc = append(enc, 0x00)
	} else {
		enc = append(enc, 0x01, valByte(ret))
	}
	if idx, ok := e.typeIdx[key]; ok {
		return idx
	}
	idx := uint32(len(e.types))
	e.types = append(e.types, enc)
	e.typeIdx[key] = idx
	return idx
}

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

func (e *encoder) section(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendUleb(out, uint64(len(payload)))
	return append(out, payload...)
}

func (e *encoder) typeSection() []byte {
	var p []byte
	p = appendUleb(p, uint64(len(e.types)))
	for _, t := range e.types {
		p = append(p, t...)
	}
	return p
}

func (e *encoder) importSection(typeIdx []uint32) []byte {
	var p []byte
	p = appendUleb(p, uint64(len(e.imports)))
	for i, imp := range e.imports {
		p = appendName(p, "env")
		p = appendName(p, imp.name)
		p = append(p, 0x00) // function import
		p = appendUleb(p, uint64(typeIdx[i]))
	}
	return p
}

func (e *encoder) funcSection(typeIdx []uint32) []byte {
	var p []byte
	p = appendUleb(p, uint64(len(typeIdx)))
	for _, idx := range typeIdx {
		p = appendUleb(p, uint64(idx))
	}
	return p
}

func (e *encoder) globalSection() []byte {
	var p []byte
	p = appendUleb(p, uint64(len(e.mod.Globals)))
	for _, g := range e.mod.Globals {
		p = append(p, valByte(g.Type), 0x01) // mutable
		if g.Type == ir.F {
			p = append(p, opF64Const)
			p = appendF64(p, 0)
		} else {
			p = append(p, opI32Const)
			p = appendSleb(p, 0)
		}
		p = append(p, opEnd)
	}
	return p
}

func (e *encoder) exportSection() []byte {
	count := uint64(1)
	if e.mod.HasMemory {
		count++
	}
	var p []byte
	p = appendUleb(p, count)
	p = appendName(p, ir.EntryPoint)
	p = append(p, 0x00) // function export
	p = appendUleb(p, uint64(e.funcIdx[ir.EntryPoint]))
	if e.mod.HasMemory {
		p = appendName(p, "memory")
		p = append(p, 0x02, 0x00)
	}
	return p
}

func (e *encoder) codeSection(bodies [][]byte) []byte {
	var p []byte
	p = appendUleb(p, uint64(len(bodies)))
	for _, b := range bodies {
		p = appendUleb(p, uint64(len(b)))
		p = append(p, b...)
	}
	return p
}

func appendName(buf []byte, s string) []byte {
	buf = appendUleb(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendF64(buf []byte, v float64) []byte {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(bits>>(8*i)))
	}
	return buf
}

// ---------------------------------------------------------------------------
// Function bodies
// ---------------------------------------------------------------------------

type ctrlKind int

const (
	ctrlIf ctrlKind = iota
	ctrlLoop
)

// codeEntry encodes one function body: the locals vector followed by the
// instruction stream and the terminating end.
func (e *encoder) codeEntry(fn *ir.Function) ([]byte, error) {
	localIdx := make(map[string]uint32)
	for i, p := range fn.Params {
		localIdx[p.Name] = uint32(i)
	}
	locals := fn.Locals()
	for i, l := range locals {
		localIdx[l.Name] = uint32(len(fn.Params) + i)
	}

	var body []byte
	body = appendLocalsVector(body, locals)

	var ctrl []ctrlKind
	for i, inst := range fn.Code {
		var err error
		body, ctrl, err = e.instruction(body, ctrl, fn, i, inst, localIdx)
		if err != nil {
			return nil, err
		}
	}
	if fn.Ret != ir.NoValue {
		// Every path already returned; keep the function end well-typed.
		body = append(body, opUnreachable)
	}
	return append(body, opEnd), nil
}

// appendLocalsVector writes the run-length encoded local declarations,
// grouping consecutive locals of the same type.
func appendLocalsVector(body []byte, locals []ir.Decl) []byte {
	type group struct {
		count uint64
		typ   ir.ValType
	}
	var groups []group
	for _, l := range locals {
		if n := len(groups); n > 0 && groups[n-1].typ == l.Type {
			groups[n-1].count++
			continue
		}
		groups = append(groups, group{count: 1, typ: l.Type})
	}
	body = appendUleb(body, uint64(len(groups)))
	for _, g := range groups {
		body = appendUleb(body, g.count)
		body = append(body, valByte(g.typ))
	}
	return body
}

var simpleOps = map[ir.Op]byte{
	ir.ADDI: opI32Add, ir.SUBI: opI32Sub, ir.MULI: opI32Mul, ir.DIVI: opI32DivS,
	ir.ANDI: opI32And, ir.ORI: opI32Or, ir.XORI: opI32Xor,
	ir.LTI: opI32LtS, ir.LEI: opI32LeS, ir.GTI: opI32GtS, ir.GEI: opI32GeS,
	ir.EQI: opI32Eq, ir.NEI: opI32Ne,
	ir.ADDF: opF64Add, ir.SUBF: opF64Sub, ir.MULF: opF64Mul, ir.DIVF: opF64Div,
	ir.LTF: opF64Lt, ir.LEF: opF64Le, ir.GTF: opF64Gt, ir.GEF: opF64Ge,
	ir.EQF: opF64Eq, ir.NEF: opF64Ne,
	ir.RET: opReturn,
}

func (e *encoder) instruction(body []byte, ctrl []ctrlKind, fn *ir.Function, i int, inst ir.Instruction, localIdx map[string]uint32) ([]byte, []ctrlKind, error) {
	if op, ok := simpleOps[inst.Op]; ok {
		return append(body, op), ctrl, nil
	}

	switch inst.Op {
	case ir.CONSTI:
		body = append(body, opI32Const)
		body = appendSleb(body, int64(int32(inst.Int)))
	case ir.CONSTF:
		body = append(body, opF64Const)
		body = appendF64(body, inst.Float)

	case ir.LOCALI, ir.LOCALF:
		// Declared in the locals vector; no code.

	case ir.LOAD, ir.STORE:
		var err error
		body, err = e.variableAccess(body, fn, i, inst, localIdx)
		if err != nil {
			return nil, nil, err
		}

	case ir.PEEKI:
		body = append(body, opI32Load, 0x02, 0x00) // align 4, offset 0
	case ir.POKEI:
		body = append(body, opI32Store, 0x02, 0x00)
	case ir.GROWM:
		// Byte count to pages, grow, then recompute the size in bytes.
		body = append(body, opI32Const)
		body = appendSleb(body, pageSize-1)
		body = append(body, opI32Add)
		body = append(body, opI32Const)
		body = appendSleb(body, 16)
		body = append(body, opI32ShrU)
		body = append(body, opMemGrow, 0x00, opDrop)
		body = append(body, opMemSize, 0x00)
		body = append(body, opI32Const)
		body = appendSleb(body, 16)
		body = append(body, opI32Shl)

	case ir.IF:
		body = append(body, opIf, blockVoid)
		ctrl = append(ctrl, ctrlIf)
	case ir.ELSE:
		body = append(body, opElse)
	case ir.ENDIF:
		body = append(body, opEnd)
		ctrl = ctrl[:len(ctrl)-1]
	case ir.LOOP:
		body = append(body, opBlock, blockVoid, opLoop, blockVoid)
		ctrl = append(ctrl, ctrlLoop)
	case ir.CBREAK:
		// Exit the loop's enclosing block when the condition is zero.
		body = append(body, opI32Eqz, opBrIf)
		body = appendUleb(body, uint64(breakDepth(ctrl)))
	case ir.ENDLOOP:
		body = append(body, opBr, 0x00, opEnd, opEnd)
		ctrl = ctrl[:len(ctrl)-1]

	case ir.CALL:
		idx, ok := e.funcIdx[inst.Name]
		if !ok {
			return nil, nil, fmt.Errorf("wasm: CALL of unknown function %q in %s at %d", inst.Name, fn.Name, i)
		}
		body = append(body, opCall)
		body = appendUleb(body, uint64(idx))

	case ir.PRINTI:
		body = append(body, opCall)
		body = appendUleb(body, uint64(e.funcIdx["_printi"]))
	case ir.PRINTF:
		body = append(body, opCall)
		body = appendUleb(body, uint64(e.funcIdx["_printf"]))

	default:
		return nil, nil, fmt.Errorf("wasm: cannot encode %s in %s at %d", inst.Op, fn.Name, i)
	}
	return body, ctrl, nil
}

// breakDepth computes the label depth of the innermost loop's enclosing
// block, counting the if labels opened since the loop.
func breakDepth(ctrl []ctrlKind) int {
	depth := 0
	for i := len(ctrl) - 1; i >= 0; i-- {
		if ctrl[i] == ctrlLoop {
			return depth + 1
		}
		depth++
	}
	return depth + 1
}

func (e *encoder) variableAccess(body []byte, fn *ir.Function, i int, inst ir.Instruction, localIdx map[string]uint32) ([]byte, error) {
	if idx, ok := localIdx[inst.Name]; ok {
		if inst.Op == ir.LOAD {
			body = append(body, opLocalGet)
		} else {
			body = append(body, opLocalSet)
		}
		return appendUleb(body, uint64(idx)), nil
	}
	if idx, ok := e.globalIdx[inst.Name]; ok {
		if inst.Op == ir.LOAD {
			body = append(body, opGlobalGet)
		} else {
			body = append(body, opGlobalSet)
		}
		return appendUleb(body, uint64(idx)), nil
	}
	return nil, fmt.Errorf("wasm: %s of unknown name %q in %s at %d", inst.Op, inst.Name, fn.Name, i)
}
