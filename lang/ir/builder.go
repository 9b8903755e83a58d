// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

// Builder for assembling IR modules one function at a time.
package ir

// Builder accumulates instructions for one function at a time and collects
// the finished functions into a module.
type Builder struct {
	mod *Module
	fn  *Function
}

// NewBuilder creates a builder with an empty module.
func NewBuilder() *Builder {
	return &Builder{mod: &Module{}}
}

// Module returns the module built so far.
func (b *Builder) Module() *Module { return b.mod }

// DeclareImport records an imported function signature.
func (b *Builder) DeclareImport(name string, params []Decl, ret ValType) *Function {
	fn := &Function{Name: name, Params: params, Ret: ret, Imported: true}
	b.mod.Imports = append(b.mod.Imports, fn)
	return fn
}

// DeclareGlobal records a module-level storage slot.
func (b *Builder) DeclareGlobal(name string, typ ValType) {
	b.mod.Globals = append(b.mod.Globals, Decl{Name: name, Type: typ})
}

// StartFunction begins a new function; subsequent Emit calls append to it.
func (b *Builder) StartFunction(name string, params []Decl, ret ValType) *Function {
	b.fn = &Function{Name: name, Params: params, Ret: ret}
	b.mod.Funcs = append(b.mod.Funcs, b.fn)
	return b.fn
}

// Emit appends a no-operand instruction to the current function.
func (b *Builder) Emit(op Op) {
	b.fn.Code = append(b.fn.Code, Instruction{Op: op})
	switch op {
	case PEEKI, POKEI, GROWM:
		b.mod.HasMemory = true
	}
}

// EmitInt appends an instruction with an integer immediate.
func (b *Builder) EmitInt(op Op, v int64) {
	b.fn.Code = append(b.fn.Code, Instruction{Op: op, Int: v})
}

// EmitFloat appends an instruction with a float immediate.
func (b *Builder) EmitFloat(op Op, v float64) {
	b.fn.Code = append(b.fn.Code, Instruction{Op: op, Float: v})
}

// EmitName appends an instruction that references a variable or function by
// name.
func (b *Builder) EmitName(op Op, name string) {
	b.fn.Code = append(b.fn.Code, Instruction{Op: op, Name: name})
}
