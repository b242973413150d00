// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// WriteOutput writes the assembled image to a file. The PRG format
// prefixes the image with its two-byte little-endian load address; the
// raw format omits the header. When nothing was emitted, no file is
// written and a warning is reported.
func (a *Assembler) WriteOutput(path string, format OutputFormat) error {
	if a.lowestAddr > a.highestAddr {
		a.warningf("no output generated")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()

	return a.WriteOutputTo(f, format)
}

// WriteOutputTo writes the assembled image to a writer.
func (a *Assembler) WriteOutputTo(w io.Writer, format OutputFormat) error {
	start, code := a.Output()
	if code == nil {
		return nil
	}

	if format == OutputPRG {
		header := []byte{byte(start), byte(start >> 8)}
		if _, err := w.Write(header); err != nil {
			return errors.Wrap(err, "write output")
		}
	}

	_, err := w.Write(code)
	return errors.Wrap(err, "write output")
}

// WriteSymbols writes a VICE-compatible symbol file: one line per
// defined symbol, sorted by (value, name).
func (a *Assembler) WriteSymbols(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create symbol file")
	}
	defer f.Close()

	return a.WriteSymbolsTo(f)
}

// WriteSymbolsTo writes the VICE symbol lines to a writer.
func (a *Assembler) WriteSymbolsTo(w io.Writer) error {
	for _, sym := range a.symbols.sortedDefined() {
		_, err := fmt.Fprintf(w, "al C:%04X .%s\n", uint16(sym.value), sym.displayName)
		if err != nil {
			return errors.Wrap(err, "write symbol file")
		}
	}
	return nil
}

// WriteListing writes a plain-text assembly listing: one record per
// assembled line with its address, up to four emitted bytes per row,
// an optional cycle column, and the original source text, followed by
// the symbol table.
func (a *Assembler) WriteListing(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create listing file")
	}
	defer f.Close()

	return a.WriteListingTo(f)
}

// WriteListingTo writes the listing to a writer.
func (a *Assembler) WriteListingTo(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("; ASM64 Listing File\n")
	sb.WriteString("; Generated from assembled source\n")
	sb.WriteString(";\n")
	if a.showCycles {
		sb.WriteString("; Address  Bytes         Cycles  Source\n")
		sb.WriteString("; -------  ----------    ------  ------\n")
	} else {
		sb.WriteString("; Address  Bytes         Source\n")
		sb.WriteString("; -------  ----------    ------\n")
	}
	sb.WriteString("\n")

	for _, line := range a.lines {
		a.writeListingLine(&sb, line)
	}

	sb.WriteString("\n; Symbol Table\n")
	sb.WriteString("; ------------\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return errors.Wrap(err, "write listing file")
	}
	return a.WriteSymbolsTo(w)
}

func (a *Assembler) writeListingLine(sb *strings.Builder, line *assembledLine) {
	stmt := line.stmt

	if stmt.typ == stmtEmpty && line.source == "" {
		return
	}

	// An origin line repositions the PC without emitting; showing an
	// address or stale bytes for it would mislead.
	isOrg := stmt.typ == stmtDirective && stmt.dir.name == "org"

	if (line.byteCount > 0 && !isOrg) || stmt.typ == stmtLabel {
		fmt.Fprintf(sb, "%04X  ", line.address)
	} else {
		sb.WriteString("      ")
	}

	var hex strings.Builder
	if !isOrg {
		n := line.byteCount
		if n > 4 {
			n = 4
		}
		for i := 0; i < n; i++ {
			fmt.Fprintf(&hex, "%02X ", line.bytes[i])
		}
	}
	fmt.Fprintf(sb, "%-12s", hex.String())

	if a.showCycles {
		switch {
		case line.cycles > 0 && line.pagePenalty:
			fmt.Fprintf(sb, "  %2d+   ", line.cycles)
		case line.cycles > 0:
			fmt.Fprintf(sb, "  %2d    ", line.cycles)
		default:
			sb.WriteString("        ")
		}
	}

	switch {
	case line.source != "":
		fmt.Fprintf(sb, "  %s", line.source)
	case stmt.typ == stmtInstruction:
		fmt.Fprintf(sb, "  %s", stmt.inst.mnemonic)
	}
	sb.WriteString("\n")

	// Continuation rows for long data lines, four bytes each.
	if line.byteCount > 4 && !isOrg {
		for pos := 4; pos < line.byteCount; pos += 4 {
			fmt.Fprintf(sb, "%04X  ", line.address+uint16(pos))
			var cont strings.Builder
			n := line.byteCount - pos
			if n > 4 {
				n = 4
			}
			for i := 0; i < n; i++ {
				fmt.Fprintf(&cont, "%02X ", line.bytes[pos+i])
			}
			fmt.Fprintf(sb, "%-12s", cont.String())
			if a.showCycles {
				sb.WriteString("        ")
			}
			sb.WriteString("\n")
		}
	}
}
