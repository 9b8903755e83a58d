// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

// Human-readable IR dumps.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Disassemble renders a module as tabulated text, one table per function,
// for debugging and the compiler's --dump ir output.
func Disassemble(m *Module) string {
	var out strings.Builder

	for _, imp := range m.Imports {
		fmt.Fprintf(&out, "import func %s\n", imp.Signature())
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&out, "global %s %s\n", g.Name, g.Type)
	}
	if len(m.Imports)+len(m.Globals) > 0 {
		out.WriteByte('\n')
	}

	for _, fn := range m.Funcs {
		fmt.Fprintf(&out, "func %s\n", fn.Signature())
		table := tablewriter.NewWriter(&out)
		table.SetHeader([]string{"idx", "op", "operand"})
		table.SetBorder(false)
		table.SetColumnSeparator(" ")
		for i, inst := range fn.Code {
			table.Append([]string{strconv.Itoa(i), inst.Op.String(), operandString(inst)})
		}
		table.Render()
		out.WriteByte('\n')
	}
	return out.String()
}

func operandString(inst Instruction) string {
	switch inst.Op {
	case CONSTI:
		return strconv.FormatInt(inst.Int, 10)
	case CONSTF:
		return strconv.FormatFloat(inst.Float, 'g', -1, 64)
	case LOCALI, LOCALF, GLOBALI, GLOBALF, LOAD, STORE, CALL:
		return inst.Name
	}
	return ""
}
