// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"

	"github.com/beevik/prefixtree/v2"
)

type directiveHandler func(a *Assembler, stmt *statement)

// Directive names and their aliases live in one prefix tree, mapping
// each name to its handler. Full names always match; an unambiguous
// prefix of a single name is accepted as well, anything else reports
// the directive as unknown.
var directiveTree = prefixtree.New[directiveHandler]()

func addDirective(fn directiveHandler, names ...string) {
	for _, name := range names {
		directiveTree.Add(name, fn)
	}
}

func init() {
	addDirective((*Assembler).directiveByte, "byte", "by", "db", "08")
	addDirective((*Assembler).directiveWord, "word", "wo", "dw", "16")
	addDirective((*Assembler).directiveText, "text", "tx")
	addDirective((*Assembler).directivePet, "pet")
	addDirective((*Assembler).directiveScr, "scr")
	addDirective((*Assembler).directiveNull, "null")
	addDirective((*Assembler).directiveFill, "fill", "fi")
	addDirective((*Assembler).directiveSkip, "skip", "res")
	addDirective((*Assembler).directiveAlign, "align")
	addDirective((*Assembler).directiveOrg, "org")
	addDirective((*Assembler).directiveBinary, "binary", "bin")
	addDirective((*Assembler).directiveBasic, "basic")
	addDirective((*Assembler).directivePseudoPC, "pseudopc")
	addDirective((*Assembler).directiveRealPC, "realpc")
	addDirective((*Assembler).directiveCPU, "cpu")
	addDirective((*Assembler).directiveZone, "zone", "zn")
	addDirective((*Assembler).directiveError, "error")
	addDirective((*Assembler).directiveWarn, "warn", "warning")

	// Handled structurally during pass 1; stray occurrences are inert.
	addDirective((*Assembler).directiveNop,
		"source", "src", "include",
		"macro", "endmacro", "endm",
		"for", "while", "end")
}

func (a *Assembler) assembleDirective(stmt *statement) {
	fn, err := directiveTree.FindValue(stmt.dir.name)
	if err != nil {
		a.warningf("unknown directive !%s ignored", stmt.dir.name)
		return
	}
	fn(a, stmt)
}

func (a *Assembler) directiveNop(stmt *statement) {
}

// evalArg evaluates one directive argument in the current context.
func (a *Assembler) evalArg(stmt *statement, i int) evalResult {
	return stmt.dir.args[i].eval(a.evalContext())
}

func (a *Assembler) directiveByte(stmt *statement) {
	for i := range stmt.dir.args {
		result := a.evalArg(stmt, i)
		if a.pass == 2 {
			if !result.defined {
				a.errorf("undefined symbol in !byte directive")
				return
			}
			if result.value < -128 || result.value > 255 {
				a.warningf("byte value $%X truncated", result.value)
			}
			a.emitByte(byte(result.value))
		} else {
			a.advancePC(1)
		}
	}
}

func (a *Assembler) directiveWord(stmt *statement) {
	for i := range stmt.dir.args {
		result := a.evalArg(stmt, i)
		if a.pass == 2 {
			if !result.defined {
				a.errorf("undefined symbol in !word directive")
				return
			}
			a.emitWord(uint16(result.value))
		} else {
			a.advancePC(2)
		}
	}
}

func (a *Assembler) directiveText(stmt *statement) {
	if !stmt.dir.hasStr {
		a.errorf("!text requires a string argument")
		return
	}
	if a.pass == 2 {
		a.emitBytes(stmt.dir.str)
	} else {
		a.advancePC(len(stmt.dir.str))
	}
}

func (a *Assembler) directivePet(stmt *statement) {
	if !stmt.dir.hasStr {
		a.errorf("!pet requires a string argument")
		return
	}
	if a.pass == 2 {
		for _, c := range stmt.dir.str {
			a.emitByte(asciiToPetscii(c))
		}
	} else {
		a.advancePC(len(stmt.dir.str))
	}
}

func (a *Assembler) directiveScr(stmt *statement) {
	if !stmt.dir.hasStr {
		a.errorf("!scr requires a string argument")
		return
	}
	if a.pass == 2 {
		for _, c := range stmt.dir.str {
			a.emitByte(asciiToScreencode(c))
		}
	} else {
		a.advancePC(len(stmt.dir.str))
	}
}

func (a *Assembler) directiveNull(stmt *statement) {
	if !stmt.dir.hasStr {
		a.errorf("!null requires a string argument")
		return
	}
	if a.pass == 2 {
		a.emitBytes(stmt.dir.str)
		a.emitByte(0x00)
	} else {
		a.advancePC(len(stmt.dir.str) + 1)
	}
}

func (a *Assembler) directiveFill(stmt *statement) {
	if len(stmt.dir.args) < 1 {
		a.errorf("!fill requires count argument")
		return
	}

	count := a.evalArg(stmt, 0)
	if !count.defined {
		a.errorf("!fill count must be constant")
		return
	}
	if count.value < 0 || count.value > 65536 {
		a.errorf("!fill count out of range")
		return
	}

	var fill byte
	if len(stmt.dir.args) >= 2 {
		value := a.evalArg(stmt, 1)
		if a.pass == 2 && !value.defined {
			a.errorf("!fill value must be defined")
			return
		}
		fill = byte(value.value)
	}

	if a.pass == 2 {
		for i := int32(0); i < count.value; i++ {
			a.emitByte(fill)
		}
	} else {
		a.advancePC(int(count.value))
	}
}

func (a *Assembler) directiveSkip(stmt *statement) {
	if len(stmt.dir.args) < 1 {
		a.errorf("!skip requires count argument")
		return
	}

	count := a.evalArg(stmt, 0)
	if !count.defined {
		a.errorf("!skip count must be constant")
		return
	}
	if count.value < 0 || count.value > 65536 {
		a.errorf("!skip count out of range")
		return
	}

	// Advances the PC without touching memory, in both passes.
	a.advancePC(int(count.value))
}

func (a *Assembler) directiveAlign(stmt *statement) {
	if len(stmt.dir.args) < 1 {
		a.errorf("!align requires alignment argument")
		return
	}

	align := a.evalArg(stmt, 0)
	if !align.defined {
		a.errorf("!align value must be constant")
		return
	}
	if align.value <= 0 || align.value > 65536 {
		a.errorf("!align value out of range")
		return
	}
	if align.value&(align.value-1) != 0 {
		a.warningf("!align value %d is not a power of 2", align.value)
	}

	remainder := int32(a.pc) % align.value
	padding := int32(0)
	if remainder != 0 {
		padding = align.value - remainder
	}

	var fill byte
	if len(stmt.dir.args) >= 2 {
		value := a.evalArg(stmt, 1)
		if a.pass == 2 && !value.defined {
			a.errorf("!align fill value must be defined")
			return
		}
		fill = byte(value.value)
	}

	if a.pass == 2 {
		for i := int32(0); i < padding; i++ {
			a.emitByte(fill)
		}
	} else {
		a.advancePC(int(padding))
	}
}

func (a *Assembler) directiveOrg(stmt *statement) {
	if len(stmt.dir.args) < 1 {
		a.errorf("org directive requires address")
		return
	}
	result := a.evalArg(stmt, 0)
	if !result.defined {
		a.errorf("org address must be constant")
		return
	}
	a.setPC(uint16(result.value))
}

func (a *Assembler) directiveBinary(stmt *statement) {
	if !stmt.dir.hasStr {
		a.errorf("!binary requires a filename argument")
		return
	}

	length, offset := 0, 0
	if len(stmt.dir.args) >= 1 {
		r := a.evalArg(stmt, 0)
		if !r.defined {
			a.errorf("!binary size must be constant")
			return
		}
		length = int(r.value)
	}
	if len(stmt.dir.args) >= 2 {
		r := a.evalArg(stmt, 1)
		if !r.defined {
			a.errorf("!binary offset must be constant")
			return
		}
		offset = int(r.value)
	}

	a.includeBinary(string(stmt.dir.str), offset, length)
}

// directiveBasic emits a BASIC stub: a one-line program whose SYS
// statement jumps into the machine code.
//
// Layout at the current PC:
//
//	link word -> end marker
//	line number (default 10)
//	SYS token $9E
//	target address as ASCII digits
//	$00 end of line, $00 $00 end of program
//
// When no address is given the stub targets the byte just after itself,
// which requires settling whether the printed address has 4 or 5
// digits; one extra round decides it.
func (a *Assembler) directiveBasic(stmt *statement) {
	lineNumber := int32(10)
	sysAddr := 0
	explicit := false

	if len(stmt.dir.args) >= 1 {
		r := a.evalArg(stmt, 0)
		if a.pass == 2 && !r.defined {
			a.errorf("!basic line number must be constant")
			return
		}
		lineNumber = r.value
	}
	if len(stmt.dir.args) >= 2 {
		r := a.evalArg(stmt, 1)
		if a.pass == 2 && !r.defined {
			a.errorf("!basic SYS address must be constant")
			return
		}
		sysAddr = int(r.value)
		explicit = true
	}

	startPC := int(a.pc)

	if !explicit {
		const baseSize = 2 + 2 + 1 + 1 + 2 // link + line + SYS + null + end
		for digits := 4; digits <= 5; digits++ {
			addr := startPC + baseSize + digits
			needed := 4
			if addr >= 10000 {
				needed = 5
			}
			sysAddr = addr
			if needed == digits {
				break
			}
		}
	}

	digits := strconv.Itoa(sysAddr)
	totalSize := 2 + 2 + 1 + len(digits) + 1 + 2
	linkAddr := startPC + totalSize - 2

	if a.pass == 2 {
		a.emitWord(uint16(linkAddr))
		a.emitWord(uint16(lineNumber))
		a.emitByte(0x9e) // SYS
		a.emitBytes([]byte(digits))
		a.emitByte(0x00)
		a.emitWord(0x0000)
	} else {
		a.advancePC(totalSize)
	}
}

func (a *Assembler) directivePseudoPC(stmt *statement) {
	if len(stmt.dir.args) < 1 {
		a.errorf("!pseudopc requires an address")
		return
	}
	result := a.evalArg(stmt, 0)
	if !result.defined {
		a.errorf("!pseudopc address must be a defined value")
		return
	}
	a.pseudoPCStart(uint16(result.value))
}

func (a *Assembler) directiveRealPC(stmt *statement) {
	a.pseudoPCEnd()
}

func (a *Assembler) directiveCPU(stmt *statement) {
	var name string
	switch {
	case stmt.dir.hasStr:
		name = string(stmt.dir.str)
	case len(stmt.dir.args) >= 1 && stmt.dir.args[0].typ == exprSymbol:
		name = stmt.dir.args[0].symbol
	case len(stmt.dir.args) >= 1 && stmt.dir.args[0].typ == exprNumber:
		name = strconv.Itoa(int(stmt.dir.args[0].number))
	}

	if name == "" {
		a.errorf("!cpu requires a CPU type (6502, 6510, or 65c02)")
		return
	}
	if err := a.SetCPU(name); err != nil {
		a.errorf("unknown CPU type: %s", name)
	}
}

func (a *Assembler) directiveZone(stmt *statement) {
	var name string
	switch {
	case stmt.dir.hasStr:
		name = string(stmt.dir.str)
	case len(stmt.dir.args) >= 1 && stmt.dir.args[0].typ == exprSymbol:
		name = stmt.dir.args[0].symbol
	}

	if name == "" {
		a.zoneCounter++
		name = "_zone_" + strconv.Itoa(a.zoneCounter)
	}
	a.zone = name
}

func (a *Assembler) directiveError(stmt *statement) {
	if stmt.dir.hasStr {
		a.errorf("%s", string(stmt.dir.str))
	} else {
		a.errorf("user error")
	}
}

func (a *Assembler) directiveWarn(stmt *statement) {
	if stmt.dir.hasStr {
		a.warningf("%s", string(stmt.dir.str))
	} else {
		a.warningf("user warning")
	}
}
