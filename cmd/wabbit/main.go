// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.
//
// The Wabbit compiler is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command wabbit is the Wabbit language compiler.
//
// Usage:
//
//	wabbit [flags] <source.wb>
//
// The default mode interprets the program and prints its output. The
// wasm and llvm modes write a compiled artifact next to the source file
// (or to --output). A wabbit.toml next to the source provides defaults;
// command-line flags override it.
//
// Exit status is 0 on success, 1 when the program is rejected or traps,
// and 2 on usage or I/O errors.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/doctaphred/dabeaz-compilers/compile"
	"github.com/doctaphred/dabeaz-compilers/lang/interp"
	"github.com/doctaphred/dabeaz-compilers/lang/ir"
	"github.com/doctaphred/dabeaz-compilers/lang/lexer"
	"github.com/doctaphred/dabeaz-compilers/lang/parser"
	stdmath "github.com/doctaphred/dabeaz-compilers/stdlib/math"
)

const version = "0.1.0"

var (
	modeFlag = cli.StringFlag{
		Name:  "mode, m",
		Usage: "target: interp, wasm or llvm",
	}
	outputFlag = cli.StringFlag{
		Name:  "output, o",
		Usage: "output file for wasm and llvm modes",
	}
	optimizeFlag = cli.BoolFlag{
		Name:  "optimize",
		Usage: "fold constant expressions before emission",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "write the compile result as JSON on stdout",
	}
	noColorFlag = cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable colored diagnostics",
	}
	dumpFlag = cli.StringFlag{
		Name:  "dump",
		Usage: "print an intermediate form and exit: tokens, ast or ir",
	}
	stepLimitFlag = cli.Uint64Flag{
		Name:  "step-limit",
		Usage: "interpreter instruction budget (0 means the default)",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "wabbit"
	app.Usage = "compiler for the Wabbit programming language"
	app.Version = version
	app.ArgsUsage = "<source.wb>"
	app.Flags = []cli.Flag{
		modeFlag,
		outputFlag,
		optimizeFlag,
		jsonFlag,
		noColorFlag,
		dumpFlag,
		stepLimitFlag,
		configFileFlag,
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// settings is the merge of wabbit.toml and the command line.
type settings struct {
	compile.Config
	JSONOut bool
	Dump    string
}

func loadSettings(ctx *cli.Context, sourcePath string) (*settings, error) {
	s := &settings{}
	file := ctx.GlobalString(configFileFlag.Name)
	if file == "" {
		file = compile.FindConfig(sourcePath)
	}
	if file != "" {
		if err := compile.LoadConfig(file, &s.Config); err != nil {
			return nil, err
		}
	}

	// Flags override the file.
	if ctx.GlobalIsSet("mode") || ctx.GlobalIsSet("m") {
		s.Build.Mode = ctx.GlobalString("mode")
	}
	if ctx.GlobalIsSet("output") || ctx.GlobalIsSet("o") {
		s.Build.Output = ctx.GlobalString("output")
	}
	if ctx.GlobalBool(optimizeFlag.Name) {
		s.Build.Optimize = true
	}
	if ctx.GlobalIsSet(stepLimitFlag.Name) {
		s.Build.StepLimit = ctx.GlobalUint64(stepLimitFlag.Name)
	}
	if ctx.GlobalBool(noColorFlag.Name) {
		s.Diagnostics.Color = compile.ColorNever
	}
	s.JSONOut = s.Diagnostics.JSON || ctx.GlobalBool(jsonFlag.Name)
	s.Dump = ctx.GlobalString(dumpFlag.Name)

	if s.Build.Mode == "" {
		s.Build.Mode = compile.ModeInterp
	}
	if !compile.ValidMode(s.Build.Mode) {
		return nil, fmt.Errorf("unknown mode %q", s.Build.Mode)
	}
	return s, nil
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		cli.ShowAppHelp(ctx)
		return cli.NewExitError("wabbit: expected exactly one source file", 2)
	}
	sourcePath := ctx.Args().First()

	s, err := loadSettings(ctx, sourcePath)
	if err != nil {
		return cli.NewExitError("wabbit: "+err.Error(), 2)
	}

	if s.Dump != "" {
		return dump(sourcePath, s)
	}

	res, err := compile.File(sourcePath, compile.Options{
		Mode:     s.Build.Mode,
		Optimize: s.Build.Optimize,
	})
	if err != nil {
		return cli.NewExitError("wabbit: "+err.Error(), 2)
	}

	if s.JSONOut {
		out, err := json.MarshalIndent(res.JSON(), "", "  ")
		if err != nil {
			return cli.NewExitError("wabbit: "+err.Error(), 2)
		}
		fmt.Println(string(out))
		if res.Failed() {
			return cli.NewExitError("", 1)
		}
	} else if res.Failed() {
		compile.NewPrinter(os.Stderr, s.Diagnostics.Color).Print(res.Diags)
		return cli.NewExitError("", 1)
	}

	switch res.Mode {
	case compile.ModeInterp:
		m := interp.New(res.Module, interp.Config{
			Output:    os.Stdout,
			StepLimit: s.Build.StepLimit,
		})
		stdmath.Install(m)
		if err := m.Run(); err != nil {
			return cli.NewExitError("wabbit: "+err.Error(), 1)
		}
	case compile.ModeWasm:
		if err := writeArtifact(outputPath(sourcePath, s, ".wasm"), res.Wasm); err != nil {
			return cli.NewExitError("wabbit: "+err.Error(), 2)
		}
	case compile.ModeLLVM:
		if err := writeArtifact(outputPath(sourcePath, s, ".ll"), []byte(res.LLVM)); err != nil {
			return cli.NewExitError("wabbit: "+err.Error(), 2)
		}
	}
	return nil
}

// outputPath picks the artifact destination: the explicit output setting,
// or the source path with its extension swapped.
func outputPath(sourcePath string, s *settings, ext string) string {
	if s.Build.Output != "" {
		return s.Build.Output
	}
	base := strings.TrimSuffix(sourcePath, ".wb")
	return base + ext
}

func writeArtifact(path string, data []byte) error {
	return errors.Wrap(os.WriteFile(path, data, 0644), "write "+path)
}

// dump prints an intermediate form for debugging.
func dump(sourcePath string, s *settings) error {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return cli.NewExitError("wabbit: "+err.Error(), 2)
	}
	source := string(src)

	switch s.Dump {
	case "tokens":
		l := lexer.New(sourcePath, source)
		for _, tok := range l.Tokenize() {
			fmt.Printf("%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
		}
		if errs := l.Errors(); errs.HasErrors() {
			compile.NewPrinter(os.Stderr, s.Diagnostics.Color).Print(errs)
			return cli.NewExitError("", 1)
		}
	case "ast":
		prog, errs := parser.Parse(sourcePath, source)
		if errs.HasErrors() {
			compile.NewPrinter(os.Stderr, s.Diagnostics.Color).Print(errs)
			return cli.NewExitError("", 1)
		}
		spew.Fdump(os.Stdout, prog)
	case "ir":
		res, err := compile.Source(sourcePath, source, compile.Options{
			Optimize: s.Build.Optimize,
		})
		if err != nil {
			return cli.NewExitError("wabbit: "+err.Error(), 2)
		}
		if res.Failed() {
			compile.NewPrinter(os.Stderr, s.Diagnostics.Color).Print(res.Diags)
			return cli.NewExitError("", 1)
		}
		fmt.Print(ir.Disassemble(res.Module))
	default:
		return cli.NewExitError(fmt.Sprintf("wabbit: unknown dump stage %q", s.Dump), 2)
	}
	return nil
}
