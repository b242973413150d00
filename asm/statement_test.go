// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/beevik/asm64/cpu"
)

type parseFixture struct {
	p    *parser
	syms *symbolTable
	cpu  cpu.CPU
}

func newParseFixture(source string) *parseFixture {
	f := &parseFixture{
		syms: newSymbolTable(64),
		cpu:  cpu.CPU6510,
	}
	f.p = newParser(newLexer(source, "test"), f.syms, &f.cpu)
	return f
}

func parseOne(t *testing.T, source string) *statement {
	t.Helper()
	return newParseFixture(source).p.parseLine()
}

func TestParseEmptyLine(t *testing.T) {
	stmt := parseOne(t, "")
	if stmt.typ != stmtEmpty {
		t.Errorf("got %d, want empty", stmt.typ)
	}
	stmt = parseOne(t, "   ; only a comment")
	if stmt.typ != stmtEmpty {
		t.Errorf("comment line: got %d, want empty", stmt.typ)
	}
}

func TestParseLabels(t *testing.T) {
	stmt := parseOne(t, "start:")
	if stmt.typ != stmtLabel || stmt.label == nil || stmt.label.name != "start" {
		t.Fatalf("start: not parsed as label: %+v", stmt)
	}

	stmt = parseOne(t, "start")
	if stmt.typ != stmtLabel || stmt.label == nil {
		t.Fatal("bare identifier line must be a label")
	}

	stmt = parseOne(t, ".local:")
	if stmt.label == nil || !stmt.label.local {
		t.Error(".local must set the local flag")
	}

	stmt = parseOne(t, "-")
	if stmt.label == nil || !stmt.label.anonBack {
		t.Error("'-' line must be an anonymous backward label")
	}

	stmt = parseOne(t, "+")
	if stmt.label == nil || !stmt.label.anonFwd {
		t.Error("'+' line must be an anonymous forward label")
	}
}

func TestParseLabelWithInstruction(t *testing.T) {
	stmt := parseOne(t, "loop: dex")
	if stmt.typ != stmtInstruction || stmt.inst.mnemonic != "DEX" {
		t.Fatalf("instruction not parsed: %+v", stmt)
	}
	if stmt.label == nil || stmt.label.name != "loop" {
		t.Error("label not attached")
	}

	// No colon needed when an instruction follows.
	stmt = parseOne(t, "loop dex")
	if stmt.typ != stmtInstruction || stmt.label == nil {
		t.Error("label without colon followed by instruction")
	}

	// Anonymous label glued to the mnemonic.
	stmt = parseOne(t, "-lda #$01")
	if stmt.typ != stmtInstruction || stmt.inst.mnemonic != "LDA" {
		t.Fatalf("-lda: instruction not parsed: %+v", stmt)
	}
	if stmt.label == nil || !stmt.label.anonBack {
		t.Error("-lda: anonymous backward label not attached")
	}
	if stmt.inst.mode != cpu.IMM {
		t.Errorf("-lda #$01: mode %s, want immediate", stmt.inst.mode.Name())
	}
}

func TestParseAssignment(t *testing.T) {
	stmt := parseOne(t, "border = $d020")
	if stmt.typ != stmtAssignment || stmt.assign.name != "border" {
		t.Fatalf("assignment not parsed: %+v", stmt)
	}
	if stmt.assign.value == nil {
		t.Fatal("assignment value missing")
	}

	stmt = parseOne(t, "broken =")
	if stmt.typ != stmtError {
		t.Error("assignment without value must be an error statement")
	}
}

func TestParseDirective(t *testing.T) {
	stmt := parseOne(t, "!byte 1, 2, 3")
	if stmt.typ != stmtDirective || stmt.dir.name != "byte" {
		t.Fatalf("directive not parsed: %+v", stmt)
	}
	if len(stmt.dir.args) != 3 {
		t.Errorf("got %d args, want 3", len(stmt.dir.args))
	}

	stmt = parseOne(t, `!text "hello"`)
	if !stmt.dir.hasStr || string(stmt.dir.str) != "hello" {
		t.Error("string argument not captured")
	}

	stmt = parseOne(t, `!binary "sprites.bin", 64, 2`)
	if !stmt.dir.hasStr || len(stmt.dir.args) != 2 {
		t.Error("mixed string and expression arguments")
	}

	stmt = parseOne(t, "!macro add16 addr, value")
	if stmt.dir.name != "macro" || len(stmt.dir.args) != 3 {
		t.Fatalf("!macro args: %+v", stmt.dir)
	}
	for i, want := range []string{"add16", "addr", "value"} {
		if stmt.dir.args[i].typ != exprSymbol || stmt.dir.args[i].symbol != want {
			t.Errorf("macro arg %d: %+v, want %s", i, stmt.dir.args[i], want)
		}
	}
}

func TestParseOrigin(t *testing.T) {
	stmt := parseOne(t, "*=$0801")
	if stmt.typ != stmtDirective || stmt.dir.name != "org" {
		t.Fatalf("*= not lowered to org: %+v", stmt)
	}
	if len(stmt.dir.args) != 1 {
		t.Fatal("org argument missing")
	}

	stmt = parseOne(t, "* $0801")
	if stmt.typ != stmtError {
		t.Error("'*' without '=' must be an error")
	}
}

func TestParseMacroCall(t *testing.T) {
	stmt := parseOne(t, "+setcolor $d020, 2")
	if stmt.typ != stmtMacroCall || stmt.call.name != "setcolor" {
		t.Fatalf("macro call not parsed: %+v", stmt)
	}
	if len(stmt.call.args) != 2 || stmt.call.args[0] != "$d020" || stmt.call.args[1] != "2" {
		t.Errorf("macro args: %v", stmt.call.args)
	}
}

func TestParseUnknownIdentifier(t *testing.T) {
	stmt := parseOne(t, "start frobnicate #1")
	if stmt.typ != stmtError {
		t.Errorf("unknown word must produce an error statement: %+v", stmt)
	}

	// A lone unknown word reads as a label, not an error.
	stmt = parseOne(t, "frobnicate")
	if stmt.typ != stmtLabel {
		t.Errorf("bare unknown word must be a label: %+v", stmt)
	}
}

//
// addressing modes
//

func checkMode(t *testing.T, source string, mode cpu.Mode, opcode byte, size byte) {
	t.Helper()
	stmt := parseOne(t, source)
	if stmt.typ != stmtInstruction {
		t.Fatalf("%q: not an instruction: %+v", source, stmt)
	}
	if stmt.inst.mode != mode {
		t.Errorf("%q: mode %s, want %s", source, stmt.inst.mode.Name(), mode.Name())
	}
	if stmt.inst.opcode != opcode {
		t.Errorf("%q: opcode %02X, want %02X", source, stmt.inst.opcode, opcode)
	}
	if stmt.inst.size != size {
		t.Errorf("%q: size %d, want %d", source, stmt.inst.size, size)
	}
}

func TestAddressingModes(t *testing.T) {
	checkMode(t, "lda #$20", cpu.IMM, 0xa9, 2)
	checkMode(t, "lda $20", cpu.ZPG, 0xa5, 2)
	checkMode(t, "lda $2000", cpu.ABS, 0xad, 3)
	checkMode(t, "lda $20,x", cpu.ZPX, 0xb5, 2)
	checkMode(t, "lda $2000,X", cpu.ABX, 0xbd, 3)
	checkMode(t, "lda $2000,y", cpu.ABY, 0xb9, 3)
	checkMode(t, "ldx $20,y", cpu.ZPY, 0xb6, 2)
	checkMode(t, "lda ($20,X)", cpu.IDX, 0xa1, 2)
	checkMode(t, "lda ($20),Y", cpu.IDY, 0xb1, 2)
	checkMode(t, "jmp ($1234)", cpu.IND, 0x6c, 3)
	checkMode(t, "rts", cpu.IMP, 0x60, 1)
	checkMode(t, "asl", cpu.ACC, 0x0a, 1)
	checkMode(t, "asl a", cpu.ACC, 0x0a, 1)
	checkMode(t, "asl A", cpu.ACC, 0x0a, 1)
	checkMode(t, "asl $20", cpu.ZPG, 0x06, 2)
	checkMode(t, "bne *", cpu.REL, 0xd0, 2)
}

func TestStoreHasNoImmediate(t *testing.T) {
	// STA has no immediate form; '#' makes the statement an error.
	stmt := parseOne(t, "sta #$10")
	if stmt.typ != stmtError {
		t.Errorf("sta #: want error, got %+v", stmt)
	}
}

func TestForwardReferenceFallsBackToAbsolute(t *testing.T) {
	// An unknown operand cannot choose zero page; the absolute form
	// pins a 3-byte size for pass 2.
	checkMode(t, "lda zp_later", cpu.ABS, 0xad, 3)
	checkMode(t, "lda fwd,x", cpu.ABX, 0xbd, 3)
}

func TestKnownZeroPageSymbol(t *testing.T) {
	f := newParseFixture("lda zp")
	f.syms.define("zp", 0x42, symConstant|symZeropage, "test", 1)
	stmt := f.p.parseLine()
	if stmt.inst.mode != cpu.ZPG || stmt.inst.opcode != 0xa5 {
		t.Errorf("known zp symbol: mode %s opcode %02X", stmt.inst.mode.Name(), stmt.inst.opcode)
	}
}

func TestCPUGatingInParser(t *testing.T) {
	f := newParseFixture("lax $20\nlax $20")
	stmt := f.p.parseLine()
	if stmt.typ != stmtInstruction {
		t.Fatalf("lax on 6510 must parse: %+v", stmt)
	}

	f.cpu = cpu.CPU6502
	stmt = f.p.parseLine()
	if stmt.typ != stmtError {
		t.Error("lax on 6502 must be rejected")
	}
}

func TestJMPIndirectKeepsAbsoluteSize(t *testing.T) {
	// Even a zero-page operand keeps (ind) at 3 bytes; there is no
	// 2-byte indirect jump.
	checkMode(t, "jmp ($20)", cpu.IND, 0x6c, 3)
}

func TestTrailingGarbageConsumed(t *testing.T) {
	f := newParseFixture("nop )(\nrts")
	stmt := f.p.parseLine()
	if stmt.typ != stmtInstruction || stmt.inst.mnemonic != "NOP" {
		t.Fatalf("first line: %+v", stmt)
	}
	stmt = f.p.parseLine()
	if stmt.typ != stmtInstruction || stmt.inst.mnemonic != "RTS" {
		t.Errorf("second line must still parse: %+v", stmt)
	}
}
