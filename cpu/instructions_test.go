// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "testing"

func TestLookup(t *testing.T) {
	set := GetInstructionSet()

	cases := []struct {
		name   string
		mode   Mode
		opcode byte
		length byte
	}{
		{"LDA", IMM, 0xa9, 2},
		{"LDA", ZPG, 0xa5, 2},
		{"LDA", ABS, 0xad, 3},
		{"lda", IDY, 0xb1, 2},
		{"STA", IDX, 0x81, 2},
		{"JMP", IND, 0x6c, 3},
		{"BNE", REL, 0xd0, 2},
		{"ASL", ACC, 0x0a, 1},
		{"RTS", IMP, 0x60, 1},
		{"LAX", ZPY, 0xb7, 2},
		{"SLO", IDY, 0x13, 2},
	}

	for _, c := range cases {
		inst := set.Find(c.name, c.mode)
		if inst == nil {
			t.Errorf("%s %s: not found", c.name, c.mode.Name())
			continue
		}
		if inst.Opcode != c.opcode {
			t.Errorf("%s %s: opcode %02X, want %02X", c.name, c.mode.Name(), inst.Opcode, c.opcode)
		}
		if inst.Length != c.length {
			t.Errorf("%s %s: length %d, want %d", c.name, c.mode.Name(), inst.Length, c.length)
		}
	}
}

func TestInvalidPairings(t *testing.T) {
	set := GetInstructionSet()

	cases := []struct {
		name string
		mode Mode
	}{
		{"STA", IMM},
		{"JMP", ZPG},
		{"RTS", ABS},
		{"LDX", ZPX},
		{"NOP", ABS},
	}

	for _, c := range cases {
		if inst := set.Find(c.name, c.mode); inst != nil {
			t.Errorf("%s %s: unexpectedly found opcode %02X", c.name, c.mode.Name(), inst.Opcode)
		}
	}
}

func TestAliases(t *testing.T) {
	set := GetInstructionSet()

	pairs := []struct {
		alias, canon string
	}{
		{"DCM", "DCP"},
		{"ISB", "ISC"},
		{"INS", "ISC"},
		{"ASO", "SLO"},
		{"LSE", "SRE"},
		{"SHA", "AHX"},
		{"LAR", "LAS"},
		{"KIL", "JAM"},
		{"HLT", "JAM"},
	}

	for _, p := range pairs {
		av := set.GetInstructions(p.alias)
		cv := set.GetInstructions(p.canon)
		if len(av) == 0 || len(av) != len(cv) {
			t.Errorf("alias %s: %d variants, canonical %s has %d", p.alias, len(av), p.canon, len(cv))
			continue
		}
		for i := range av {
			if av[i].Opcode != cv[i].Opcode || av[i].Mode != cv[i].Mode {
				t.Errorf("alias %s variant %d differs from %s", p.alias, i, p.canon)
			}
		}
	}
}

func TestCPUGating(t *testing.T) {
	set := GetInstructionSet()

	if !set.Allowed("LDA", CPU6502) || !set.Allowed("LDA", CPU6510) || !set.Allowed("LDA", CPU65C02) {
		t.Error("LDA should be allowed on every CPU")
	}
	if set.Allowed("LAX", CPU6502) {
		t.Error("LAX should be rejected on 6502")
	}
	if !set.Allowed("LAX", CPU6510) {
		t.Error("LAX should be allowed on 6510")
	}
	if set.Allowed("SLO", CPU65C02) {
		t.Error("SLO should be rejected on 65c02")
	}
	if set.Allowed("XYZ", CPU6510) {
		t.Error("unknown mnemonic should never be allowed")
	}
}

func TestModeSizes(t *testing.T) {
	set := GetInstructionSet()

	// Every table entry's length must equal its addressing mode's size.
	for name, variants := range set.variants {
		for _, inst := range variants {
			if inst.Length != inst.Mode.Size() {
				t.Errorf("%s %s: length %d does not match mode size %d",
					name, inst.Mode.Name(), inst.Length, inst.Mode.Size())
			}
		}
	}
}

func TestParseCPU(t *testing.T) {
	cases := []struct {
		name string
		want CPU
		ok   bool
	}{
		{"6502", CPU6502, true},
		{"6510", CPU6510, true},
		{"65c02", CPU65C02, true},
		{"65C02", CPU65C02, true},
		{"z80", CPU6510, false},
	}
	for _, c := range cases {
		got, ok := ParseCPU(c.name)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseCPU(%q) = %v, %v", c.name, got, ok)
		}
	}
}
