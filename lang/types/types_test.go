// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

import (
	"testing"
)

// ---- Primitive type tests --------------------------------------------------

func TestPrimitiveKinds(t *testing.T) {
	cases := []struct {
		typ      *Type
		wantKind Kind
		wantStr  string
	}{
		{Void, KindVoid, "void"},
		{Int, KindInt, "int"},
		{Float, KindFloat, "float"},
		{Bool, KindBool, "bool"},
	}
	for _, tc := range cases {
		t.Run(tc.wantStr, func(t *testing.T) {
			if tc.typ.Kind() != tc.wantKind {
				t.Errorf("Kind() = %v, want %v", tc.typ.Kind(), tc.wantKind)
			}
			if tc.typ.String() != tc.wantStr {
				t.Errorf("String() = %q, want %q", tc.typ.String(), tc.wantStr)
			}
		})
	}
}

func TestTypeEquals(t *testing.T) {
	if !Int.Equals(Int) {
		t.Error("Int.Equals(Int) should be true")
	}
	if Int.Equals(Float) {
		t.Error("Int.Equals(Float) should be false")
	}
	if Bool.Equals(Void) {
		t.Error("Bool.Equals(Void) should be false")
	}
}

func TestIsNumeric(t *testing.T) {
	if !Int.IsNumeric() || !Float.IsNumeric() {
		t.Error("int and float should be numeric")
	}
	if Bool.IsNumeric() || Void.IsNumeric() {
		t.Error("bool and void should not be numeric")
	}
}

func TestFromName(t *testing.T) {
	cases := []struct {
		name   string
		want   *Type
		wantOK bool
	}{
		{"int", Int, true},
		{"float", Float, true},
		{"bool", nil, false},
		{"void", nil, false},
		{"u64", nil, false},
		{"", nil, false},
	}
	for _, tc := range cases {
		got, ok := FromName(tc.name)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("FromName(%q) = (%v, %v), want (%v, %v)",
				tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

// ---- Symbol tests ----------------------------------------------------------

func TestSymbolKindStrings(t *testing.T) {
	cases := []struct {
		kind SymbolKind
		want string
	}{
		{SymConst, "const"},
		{SymVar, "var"},
		{SymFunc, "func"},
		{SymParam, "param"},
		{SymImport, "import"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestSymbolKindPredicates(t *testing.T) {
	if !SymFunc.IsCallable() || !SymImport.IsCallable() {
		t.Error("func and import symbols should be callable")
	}
	if SymVar.IsCallable() || SymConst.IsCallable() {
		t.Error("var and const symbols should not be callable")
	}
	if !SymVar.IsAssignable() || !SymParam.IsAssignable() {
		t.Error("var and param symbols should be assignable")
	}
	if SymConst.IsAssignable() || SymFunc.IsAssignable() {
		t.Error("const and func symbols should not be assignable")
	}
}

func TestSignatureString(t *testing.T) {
	cases := []struct {
		sig  *Signature
		want string
	}{
		{&Signature{Result: Void}, "()"},
		{&Signature{Params: []*Type{Int}, Result: Int}, "(int) int"},
		{&Signature{Params: []*Type{Int, Float}, Result: Float}, "(int, float) float"},
		{&Signature{Params: []*Type{Float}, Result: Void}, "(float)"},
	}
	for _, tc := range cases {
		if got := tc.sig.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

// ---- Scope tests -----------------------------------------------------------

func TestScopeDefineAndLookup(t *testing.T) {
	global := NewScope(nil)
	if !global.IsGlobal() {
		t.Error("scope with nil parent should be global")
	}

	sym := &Symbol{Name: "pi", Kind: SymConst, Type: Float, Global: true}
	if !global.Define(sym) {
		t.Fatal("Define(pi) should succeed")
	}
	if global.Define(&Symbol{Name: "pi", Kind: SymVar, Type: Int}) {
		t.Error("redefining pi at the same level should fail")
	}

	got, ok := global.Lookup("pi")
	if !ok || got != sym {
		t.Errorf("Lookup(pi) = (%v, %v), want original symbol", got, ok)
	}
	if _, ok := global.Lookup("tau"); ok {
		t.Error("Lookup(tau) should fail")
	}
}

func TestScopeNesting(t *testing.T) {
	global := NewScope(nil)
	global.Define(&Symbol{Name: "g", Kind: SymVar, Type: Int, Global: true})

	local := NewScope(global)
	if local.IsGlobal() {
		t.Error("nested scope should not be global")
	}
	if local.Parent() != global {
		t.Error("Parent() should return the enclosing scope")
	}
	local.Define(&Symbol{Name: "x", Kind: SymVar, Type: Float})

	// Outer names are visible from the inner scope.
	if _, ok := local.Lookup("g"); !ok {
		t.Error("inner scope should see outer g")
	}
	// Inner names are not visible from the outer scope.
	if _, ok := global.Lookup("x"); ok {
		t.Error("outer scope should not see inner x")
	}
	// LookupLocal does not walk outward.
	if _, ok := local.LookupLocal("g"); ok {
		t.Error("LookupLocal should not see outer g")
	}
}

func TestScopeShadowing(t *testing.T) {
	global := NewScope(nil)
	outer := &Symbol{Name: "x", Kind: SymVar, Type: Int, Global: true}
	global.Define(outer)

	local := NewScope(global)
	inner := &Symbol{Name: "x", Kind: SymParam, Type: Float}
	if !local.Define(inner) {
		t.Fatal("shadowing in a nested scope should succeed")
	}
	got, _ := local.Lookup("x")
	if got != inner {
		t.Error("Lookup should find the innermost binding")
	}
	got, _ = global.Lookup("x")
	if got != outer {
		t.Error("outer scope should still see its own binding")
	}
}

func TestScopeNamesOrder(t *testing.T) {
	s := NewScope(nil)
	for _, name := range []string{"c", "a", "b"} {
		s.Define(&Symbol{Name: name, Kind: SymVar, Type: Int})
	}
	got := s.Names()
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
