// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package types defines the Wabbit type system and the symbol table used by
// the semantic checker.
//
// Design principles:
//   - The type set is closed: int, float, bool, void
//   - No implicit numeric conversion anywhere; 2 + 3.0 is a type error
//   - Types are package-level singletons, comparable by pointer
//   - Scopes form a tree; the checker holds the active path as a stack
package types

import "fmt"

// Kind identifies one of the four Wabbit types.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindBool
)

var kindNames = [...]string{
	KindVoid:  "void",
	KindInt:   "int",
	KindFloat: "float",
	KindBool:  "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Type is a Wabbit type.  The four package-level instances below are the
// only values; comparison by pointer equality is valid.
type Type struct {
	kind Kind
}

// The singleton type instances.
var (
	Void  = &Type{kind: KindVoid}
	Int   = &Type{kind: KindInt}
	Float = &Type{kind: KindFloat}
	Bool  = &Type{kind: KindBool}
)

// Kind returns the type's kind.
func (t *Type) Kind() Kind { return t.kind }

// String returns the source-level name of the type.
func (t *Type) String() string { return t.kind.String() }

// Equals reports whether two types are the same type.
func (t *Type) Equals(other *Type) bool { return t == other }

// IsNumeric reports whether the type supports arithmetic operators.
func (t *Type) IsNumeric() bool { return t == Int || t == Float }

// FromName maps a source-level annotation to a type.  Only "int" and
// "float" are writable annotations; ok is false for anything else.
func FromName(name string) (*Type, bool) {
	switch name {
	case "int":
		return Int, true
	case "float":
		return Float, true
	}
	return nil, false
}
