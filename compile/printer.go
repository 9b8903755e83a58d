// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package compile

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/doctaphred/dabeaz-compilers/lang/diag"
)

// Color modes accepted by NewPrinter.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var kindColors = map[diag.Kind]*color.Color{
	diag.LexError:    color.New(color.FgRed, color.Bold),
	diag.ParseError:  color.New(color.FgRed, color.Bold),
	diag.NameError:   color.New(color.FgMagenta, color.Bold),
	diag.TypeError:   color.New(color.FgMagenta, color.Bold),
	diag.ReturnError: color.New(color.FgMagenta, color.Bold),
	diag.EmitError:   color.New(color.FgYellow, color.Bold),
}

func init() {
	// The printer decides per writer; override the package's global
	// stdout detection.
	for _, c := range kindColors {
		c.EnableColor()
	}
}

// Printer renders diagnostics one per line in the canonical
// "path:line:col: Kind: message" form, coloring the kind when the
// destination is a terminal.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter builds a printer for w. mode is ColorAuto, ColorAlways or
// ColorNever; anything else disables color.
func NewPrinter(w io.Writer, mode string) *Printer {
	p := &Printer{w: w}
	switch mode {
	case ColorAlways:
		p.color = true
	case ColorAuto, "":
		if f, ok := w.(*os.File); ok {
			p.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return p
}

// Print renders every diagnostic in the list.
func (p *Printer) Print(diags diag.List) {
	for _, d := range diags {
		kind := d.Kind.String()
		if p.color {
			if c, ok := kindColors[d.Kind]; ok {
				kind = c.Sprint(kind)
			}
		}
		fmt.Fprintf(p.w, "%s: %s: %s\n", d.Pos, kind, d.Msg)
	}
}
