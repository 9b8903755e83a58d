// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

// Package diag defines the positioned diagnostics shared by all compiler
// phases.
//
// A diagnostic renders as "path:line:col: Kind: message", one per line on
// stderr.  Phases accumulate diagnostics instead of aborting so a single
// run can report several independent errors.
package diag

import (
	"fmt"
	"strings"

	"github.com/doctaphred/dabeaz-compilers/lang/token"
)

// Kind classifies a diagnostic by the phase and failure that produced it.
type Kind int

const (
	LexError Kind = iota
	ParseError
	NameError
	TypeError
	ReturnError
	EmitError
)

var kindNames = [...]string{
	LexError:    "LexError",
	ParseError:  "ParseError",
	NameError:   "NameError",
	TypeError:   "TypeError",
	ReturnError: "ReturnError",
	EmitError:   "EmitError",
}

// String returns the user-visible name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Diagnostic is a single positioned compiler error.
type Diagnostic struct {
	Pos  token.Position
	Kind Kind
	Msg  string
}

// Error implements the error interface with the canonical rendering.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Msg)
}

// Errorf constructs a diagnostic with a formatted message.
func Errorf(pos token.Position, kind Kind, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Pos: pos, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// List accumulates diagnostics across a phase.
type List []*Diagnostic

// Add appends a diagnostic and returns it.
func (l *List) Add(d *Diagnostic) *Diagnostic {
	*l = append(*l, d)
	return d
}

// HasErrors reports whether any diagnostic was recorded.
func (l List) HasErrors() bool { return len(l) > 0 }

// String renders all diagnostics, one per line.
func (l List) String() string {
	var b strings.Builder
	for _, d := range l {
		b.WriteString(d.Error())
		b.WriteByte('\n')
	}
	return b.String()
}
