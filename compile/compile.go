// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package compile drives source through the full pipeline and collects
// the artifacts and diagnostics of a single compilation.
//
// The phase packages under lang/ are pure transformations; this package
// sequences them, stops on the first failing phase, and shapes the
// outcome for the CLI and for machine consumers.
package compile

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/doctaphred/dabeaz-compilers/lang/check"
	"github.com/doctaphred/dabeaz-compilers/lang/diag"
	"github.com/doctaphred/dabeaz-compilers/lang/ir"
	"github.com/doctaphred/dabeaz-compilers/lang/irgen"
	"github.com/doctaphred/dabeaz-compilers/lang/llvmgen"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
	"github.com/doctaphred/dabeaz-compilers/lang/wasm"
)

// Target modes accepted by Options.Mode.
const (
	ModeInterp = "interp"
	ModeWasm   = "wasm"
	ModeLLVM   = "llvm"
)

// ValidMode reports whether mode names a known target.
func ValidMode(mode string) bool {
	switch mode {
	case ModeInterp, ModeWasm, ModeLLVM:
		return true
	}
	return false
}

// Options selects the target and optional passes of one compilation.
type Options struct {
	Mode     string // ModeInterp, ModeWasm or ModeLLVM; "" means ModeInterp
	Optimize bool   // run constant folding before emission
}

// Result is the outcome of one compilation.
type Result struct {
	Path   string
	Mode   string
	Diags  diag.List
	Module *ir.Module // nil when a frontend phase failed

	Wasm []byte // ModeWasm only
	LLVM string // ModeLLVM only
}

// Failed reports whether the source was rejected.
func (r *Result) Failed() bool { return r.Diags.HasErrors() }

// File reads and compiles one source file.
func File(path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}
	return Source(path, string(src), opts)
}

// Source compiles source text through parse, check, IR generation and
// the selected backend. Diagnostics land in the result; the error return
// is reserved for failures of the compiler itself.
func Source(path, source string, opts Options) (*Result, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeInterp
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("compile: unknown mode %q", mode)
	}
	res := &Result{Path: path, Mode: mode}

	prog, errs := parser.Parse(path, source)
	if errs.HasErrors() {
		res.Diags = errs
		return res, nil
	}
	info, errs := check.Check(prog)
	if errs.HasErrors() {
		res.Diags = errs
		return res, nil
	}

	mod := irgen.Generate(prog, info)
	if verrs := ir.Verify(mod); len(verrs) > 0 {
		return nil, errors.Errorf("compile: generated IR failed verification: %s", verrs[0].Error())
	}
	if opts.Optimize {
		ir.Optimize(mod)
	}
	res.Module = mod

	switch mode {
	case ModeWasm:
		bin, err := wasm.Emit(mod)
		if err != nil {
			return nil, errors.Wrap(err, "emit wasm")
		}
		res.Wasm = bin
	case ModeLLVM:
		text, err := llvmgen.Emit(mod)
		if err != nil {
			return nil, errors.Wrap(err, "emit llvm")
		}
		res.LLVM = text
	}
	return res, nil
}

// JSONResult is the machine-readable form of a Result.
type JSONResult struct {
	Success     bool             `json:"success"`
	Mode        string           `json:"mode"`
	Wasm        string           `json:"wasm,omitempty"` // hex-encoded module
	LLVM        string           `json:"llvm,omitempty"`
	Diagnostics []JSONDiagnostic `json:"diagnostics,omitempty"`
}

// JSONDiagnostic is one positioned error in the JSON result.
type JSONDiagnostic struct {
	Pos     string `json:"pos"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JSON shapes the result for --json output.
func (r *Result) JSON() *JSONResult {
	out := &JSONResult{
		Success: !r.Failed(),
		Mode:    r.Mode,
		LLVM:    r.LLVM,
	}
	if len(r.Wasm) > 0 {
		out.Wasm = hex.EncodeToString(r.Wasm)
	}
	for _, d := range r.Diags {
		out.Diagnostics = append(out.Diagnostics, JSONDiagnostic{
			Pos:     d.Pos.String(),
			Kind:    d.Kind.String(),
			Message: d.Msg,
		})
	}
	return out
}
