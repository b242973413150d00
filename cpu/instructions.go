// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu holds the 6502/6510 instruction data tables used by the
// assembler. It describes instructions; it does not execute them.
package cpu

import "strings"

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMP Mode = iota // Implied (no operand)
	ACC             // Accumulator
	IMM             // Immediate
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	REL             // Relative
)

var modeName = []string{
	"implied",
	"accumulator",
	"immediate",
	"zero page",
	"zero page,X",
	"zero page,Y",
	"absolute",
	"absolute,X",
	"absolute,Y",
	"indirect",
	"(indirect,X)",
	"(indirect),Y",
	"relative",
}

var modeSize = []byte{1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 2, 2, 2}

// Name returns a human-readable name for the addressing mode.
func (m Mode) Name() string {
	if int(m) < len(modeName) {
		return modeName[m]
	}
	return "unknown"
}

// Size returns the total instruction size (opcode + operand) for the
// addressing mode, in bytes.
func (m Mode) Size() byte {
	if int(m) < len(modeSize) {
		return modeSize[m]
	}
	return 0
}

// CPU selects the processor variant being assembled for. It affects only
// which mnemonics are accepted, not how accepted ones are encoded.
type CPU byte

// Supported processor variants. The 6510 found in the Commodore 64 is the
// default and accepts the undocumented opcodes.
const (
	CPU6502 CPU = iota
	CPU6510
	CPU65C02
)

// ParseCPU interprets a CPU name as used by the !cpu directive.
func ParseCPU(name string) (CPU, bool) {
	switch strings.ToLower(name) {
	case "6502":
		return CPU6502, true
	case "6510":
		return CPU6510, true
	case "65c02":
		return CPU65C02, true
	}
	return CPU6510, false
}

// Name returns the canonical name of the CPU variant.
func (c CPU) Name() string {
	switch c {
	case CPU6502:
		return "6502"
	case CPU65C02:
		return "65c02"
	default:
		return "6510"
	}
}

// AllowsIllegal reports whether the CPU accepts undocumented opcodes.
func (c CPU) AllowsIllegal() bool {
	return c == CPU6510
}

// An Instruction describes one (mnemonic, addressing mode) pairing: its
// opcode value, total length, base cycle cost, the extra cycle charged on
// a page crossing, and whether it is an undocumented 6510 operation.
type Instruction struct {
	Name     string // all-caps mnemonic
	Mode     Mode   // addressing mode
	Opcode   byte   // hexadecimal opcode value
	Length   byte   // combined size of opcode and operand, in bytes
	Cycles   byte   // number of CPU cycles to execute the instruction
	BPCycles byte   // additional cycles if a page boundary is crossed
	Illegal  bool   // undocumented 6510 operation
}

// Instruction data for each (mnemonic, mode) pair.
type opcodeData struct {
	name     string
	mode     Mode
	opcode   byte
	length   byte
	cycles   byte
	bpcycles byte
	illegal  bool
}

// All valid (mnemonic, mode) pairs. Official opcodes first, then the
// common undocumented 6510 opcodes with their alias mnemonics.
var data = []opcodeData{
	{"ADC", IMM, 0x69, 2, 2, 0, false},
	{"ADC", ZPG, 0x65, 2, 3, 0, false},
	{"ADC", ZPX, 0x75, 2, 4, 0, false},
	{"ADC", ABS, 0x6d, 3, 4, 0, false},
	{"ADC", ABX, 0x7d, 3, 4, 1, false},
	{"ADC", ABY, 0x79, 3, 4, 1, false},
	{"ADC", IDX, 0x61, 2, 6, 0, false},
	{"ADC", IDY, 0x71, 2, 5, 1, false},

	{"AND", IMM, 0x29, 2, 2, 0, false},
	{"AND", ZPG, 0x25, 2, 3, 0, false},
	{"AND", ZPX, 0x35, 2, 4, 0, false},
	{"AND", ABS, 0x2d, 3, 4, 0, false},
	{"AND", ABX, 0x3d, 3, 4, 1, false},
	{"AND", ABY, 0x39, 3, 4, 1, false},
	{"AND", IDX, 0x21, 2, 6, 0, false},
	{"AND", IDY, 0x31, 2, 5, 1, false},

	{"ASL", ACC, 0x0a, 1, 2, 0, false},
	{"ASL", ZPG, 0x06, 2, 5, 0, false},
	{"ASL", ZPX, 0x16, 2, 6, 0, false},
	{"ASL", ABS, 0x0e, 3, 6, 0, false},
	{"ASL", ABX, 0x1e, 3, 7, 0, false},

	{"BCC", REL, 0x90, 2, 2, 1, false},
	{"BCS", REL, 0xb0, 2, 2, 1, false},
	{"BEQ", REL, 0xf0, 2, 2, 1, false},
	{"BMI", REL, 0x30, 2, 2, 1, false},
	{"BNE", REL, 0xd0, 2, 2, 1, false},
	{"BPL", REL, 0x10, 2, 2, 1, false},
	{"BVC", REL, 0x50, 2, 2, 1, false},
	{"BVS", REL, 0x70, 2, 2, 1, false},

	{"BIT", ZPG, 0x24, 2, 3, 0, false},
	{"BIT", ABS, 0x2c, 3, 4, 0, false},

	{"BRK", IMP, 0x00, 1, 7, 0, false},

	{"CLC", IMP, 0x18, 1, 2, 0, false},
	{"CLD", IMP, 0xd8, 1, 2, 0, false},
	{"CLI", IMP, 0x58, 1, 2, 0, false},
	{"CLV", IMP, 0xb8, 1, 2, 0, false},

	{"CMP", IMM, 0xc9, 2, 2, 0, false},
	{"CMP", ZPG, 0xc5, 2, 3, 0, false},
	{"CMP", ZPX, 0xd5, 2, 4, 0, false},
	{"CMP", ABS, 0xcd, 3, 4, 0, false},
	{"CMP", ABX, 0xdd, 3, 4, 1, false},
	{"CMP", ABY, 0xd9, 3, 4, 1, false},
	{"CMP", IDX, 0xc1, 2, 6, 0, false},
	{"CMP", IDY, 0xd1, 2, 5, 1, false},

	{"CPX", IMM, 0xe0, 2, 2, 0, false},
	{"CPX", ZPG, 0xe4, 2, 3, 0, false},
	{"CPX", ABS, 0xec, 3, 4, 0, false},

	{"CPY", IMM, 0xc0, 2, 2, 0, false},
	{"CPY", ZPG, 0xc4, 2, 3, 0, false},
	{"CPY", ABS, 0xcc, 3, 4, 0, false},

	{"DEC", ZPG, 0xc6, 2, 5, 0, false},
	{"DEC", ZPX, 0xd6, 2, 6, 0, false},
	{"DEC", ABS, 0xce, 3, 6, 0, false},
	{"DEC", ABX, 0xde, 3, 7, 0, false},

	{"DEX", IMP, 0xca, 1, 2, 0, false},
	{"DEY", IMP, 0x88, 1, 2, 0, false},

	{"EOR", IMM, 0x49, 2, 2, 0, false},
	{"EOR", ZPG, 0x45, 2, 3, 0, false},
	{"EOR", ZPX, 0x55, 2, 4, 0, false},
	{"EOR", ABS, 0x4d, 3, 4, 0, false},
	{"EOR", ABX, 0x5d, 3, 4, 1, false},
	{"EOR", ABY, 0x59, 3, 4, 1, false},
	{"EOR", IDX, 0x41, 2, 6, 0, false},
	{"EOR", IDY, 0x51, 2, 5, 1, false},

	{"INC", ZPG, 0xe6, 2, 5, 0, false},
	{"INC", ZPX, 0xf6, 2, 6, 0, false},
	{"INC", ABS, 0xee, 3, 6, 0, false},
	{"INC", ABX, 0xfe, 3, 7, 0, false},

	{"INX", IMP, 0xe8, 1, 2, 0, false},
	{"INY", IMP, 0xc8, 1, 2, 0, false},

	{"JMP", ABS, 0x4c, 3, 3, 0, false},
	{"JMP", IND, 0x6c, 3, 5, 0, false},

	{"JSR", ABS, 0x20, 3, 6, 0, false},

	{"LDA", IMM, 0xa9, 2, 2, 0, false},
	{"LDA", ZPG, 0xa5, 2, 3, 0, false},
	{"LDA", ZPX, 0xb5, 2, 4, 0, false},
	{"LDA", ABS, 0xad, 3, 4, 0, false},
	{"LDA", ABX, 0xbd, 3, 4, 1, false},
	{"LDA", ABY, 0xb9, 3, 4, 1, false},
	{"LDA", IDX, 0xa1, 2, 6, 0, false},
	{"LDA", IDY, 0xb1, 2, 5, 1, false},

	{"LDX", IMM, 0xa2, 2, 2, 0, false},
	{"LDX", ZPG, 0xa6, 2, 3, 0, false},
	{"LDX", ZPY, 0xb6, 2, 4, 0, false},
	{"LDX", ABS, 0xae, 3, 4, 0, false},
	{"LDX", ABY, 0xbe, 3, 4, 1, false},

	{"LDY", IMM, 0xa0, 2, 2, 0, false},
	{"LDY", ZPG, 0xa4, 2, 3, 0, false},
	{"LDY", ZPX, 0xb4, 2, 4, 0, false},
	{"LDY", ABS, 0xac, 3, 4, 0, false},
	{"LDY", ABX, 0xbc, 3, 4, 1, false},

	{"LSR", ACC, 0x4a, 1, 2, 0, false},
	{"LSR", ZPG, 0x46, 2, 5, 0, false},
	{"LSR", ZPX, 0x56, 2, 6, 0, false},
	{"LSR", ABS, 0x4e, 3, 6, 0, false},
	{"LSR", ABX, 0x5e, 3, 7, 0, false},

	{"NOP", IMP, 0xea, 1, 2, 0, false},

	{"ORA", IMM, 0x09, 2, 2, 0, false},
	{"ORA", ZPG, 0x05, 2, 3, 0, false},
	{"ORA", ZPX, 0x15, 2, 4, 0, false},
	{"ORA", ABS, 0x0d, 3, 4, 0, false},
	{"ORA", ABX, 0x1d, 3, 4, 1, false},
	{"ORA", ABY, 0x19, 3, 4, 1, false},
	{"ORA", IDX, 0x01, 2, 6, 0, false},
	{"ORA", IDY, 0x11, 2, 5, 1, false},

	{"PHA", IMP, 0x48, 1, 3, 0, false},
	{"PHP", IMP, 0x08, 1, 3, 0, false},
	{"PLA", IMP, 0x68, 1, 4, 0, false},
	{"PLP", IMP, 0x28, 1, 4, 0, false},

	{"ROL", ACC, 0x2a, 1, 2, 0, false},
	{"ROL", ZPG, 0x26, 2, 5, 0, false},
	{"ROL", ZPX, 0x36, 2, 6, 0, false},
	{"ROL", ABS, 0x2e, 3, 6, 0, false},
	{"ROL", ABX, 0x3e, 3, 7, 0, false},

	{"ROR", ACC, 0x6a, 1, 2, 0, false},
	{"ROR", ZPG, 0x66, 2, 5, 0, false},
	{"ROR", ZPX, 0x76, 2, 6, 0, false},
	{"ROR", ABS, 0x6e, 3, 6, 0, false},
	{"ROR", ABX, 0x7e, 3, 7, 0, false},

	{"RTI", IMP, 0x40, 1, 6, 0, false},
	{"RTS", IMP, 0x60, 1, 6, 0, false},

	{"SBC", IMM, 0xe9, 2, 2, 0, false},
	{"SBC", ZPG, 0xe5, 2, 3, 0, false},
	{"SBC", ZPX, 0xf5, 2, 4, 0, false},
	{"SBC", ABS, 0xed, 3, 4, 0, false},
	{"SBC", ABX, 0xfd, 3, 4, 1, false},
	{"SBC", ABY, 0xf9, 3, 4, 1, false},
	{"SBC", IDX, 0xe1, 2, 6, 0, false},
	{"SBC", IDY, 0xf1, 2, 5, 1, false},

	{"SEC", IMP, 0x38, 1, 2, 0, false},
	{"SED", IMP, 0xf8, 1, 2, 0, false},
	{"SEI", IMP, 0x78, 1, 2, 0, false},

	{"STA", ZPG, 0x85, 2, 3, 0, false},
	{"STA", ZPX, 0x95, 2, 4, 0, false},
	{"STA", ABS, 0x8d, 3, 4, 0, false},
	{"STA", ABX, 0x9d, 3, 5, 0, false},
	{"STA", ABY, 0x99, 3, 5, 0, false},
	{"STA", IDX, 0x81, 2, 6, 0, false},
	{"STA", IDY, 0x91, 2, 6, 0, false},

	{"STX", ZPG, 0x86, 2, 3, 0, false},
	{"STX", ZPY, 0x96, 2, 4, 0, false},
	{"STX", ABS, 0x8e, 3, 4, 0, false},

	{"STY", ZPG, 0x84, 2, 3, 0, false},
	{"STY", ZPX, 0x94, 2, 4, 0, false},
	{"STY", ABS, 0x8c, 3, 4, 0, false},

	{"TAX", IMP, 0xaa, 1, 2, 0, false},
	{"TAY", IMP, 0xa8, 1, 2, 0, false},
	{"TSX", IMP, 0xba, 1, 2, 0, false},
	{"TXA", IMP, 0x8a, 1, 2, 0, false},
	{"TXS", IMP, 0x9a, 1, 2, 0, false},
	{"TYA", IMP, 0x98, 1, 2, 0, false},

	// Undocumented 6510 opcodes

	{"LAX", ZPG, 0xa7, 2, 3, 0, true},
	{"LAX", ZPY, 0xb7, 2, 4, 0, true},
	{"LAX", ABS, 0xaf, 3, 4, 0, true},
	{"LAX", ABY, 0xbf, 3, 4, 1, true},
	{"LAX", IDX, 0xa3, 2, 6, 0, true},
	{"LAX", IDY, 0xb3, 2, 5, 1, true},

	{"SAX", ZPG, 0x87, 2, 3, 0, true},
	{"SAX", ZPY, 0x97, 2, 4, 0, true},
	{"SAX", ABS, 0x8f, 3, 4, 0, true},
	{"SAX", IDX, 0x83, 2, 6, 0, true},

	{"DCP", ZPG, 0xc7, 2, 5, 0, true},
	{"DCP", ZPX, 0xd7, 2, 6, 0, true},
	{"DCP", ABS, 0xcf, 3, 6, 0, true},
	{"DCP", ABX, 0xdf, 3, 7, 0, true},
	{"DCP", ABY, 0xdb, 3, 7, 0, true},
	{"DCP", IDX, 0xc3, 2, 8, 0, true},
	{"DCP", IDY, 0xd3, 2, 8, 0, true},

	{"ISC", ZPG, 0xe7, 2, 5, 0, true},
	{"ISC", ZPX, 0xf7, 2, 6, 0, true},
	{"ISC", ABS, 0xef, 3, 6, 0, true},
	{"ISC", ABX, 0xff, 3, 7, 0, true},
	{"ISC", ABY, 0xfb, 3, 7, 0, true},
	{"ISC", IDX, 0xe3, 2, 8, 0, true},
	{"ISC", IDY, 0xf3, 2, 8, 0, true},

	{"SLO", ZPG, 0x07, 2, 5, 0, true},
	{"SLO", ZPX, 0x17, 2, 6, 0, true},
	{"SLO", ABS, 0x0f, 3, 6, 0, true},
	{"SLO", ABX, 0x1f, 3, 7, 0, true},
	{"SLO", ABY, 0x1b, 3, 7, 0, true},
	{"SLO", IDX, 0x03, 2, 8, 0, true},
	{"SLO", IDY, 0x13, 2, 8, 0, true},

	{"RLA", ZPG, 0x27, 2, 5, 0, true},
	{"RLA", ZPX, 0x37, 2, 6, 0, true},
	{"RLA", ABS, 0x2f, 3, 6, 0, true},
	{"RLA", ABX, 0x3f, 3, 7, 0, true},
	{"RLA", ABY, 0x3b, 3, 7, 0, true},
	{"RLA", IDX, 0x23, 2, 8, 0, true},
	{"RLA", IDY, 0x33, 2, 8, 0, true},

	{"SRE", ZPG, 0x47, 2, 5, 0, true},
	{"SRE", ZPX, 0x57, 2, 6, 0, true},
	{"SRE", ABS, 0x4f, 3, 6, 0, true},
	{"SRE", ABX, 0x5f, 3, 7, 0, true},
	{"SRE", ABY, 0x5b, 3, 7, 0, true},
	{"SRE", IDX, 0x43, 2, 8, 0, true},
	{"SRE", IDY, 0x53, 2, 8, 0, true},

	{"RRA", ZPG, 0x67, 2, 5, 0, true},
	{"RRA", ZPX, 0x77, 2, 6, 0, true},
	{"RRA", ABS, 0x6f, 3, 6, 0, true},
	{"RRA", ABX, 0x7f, 3, 7, 0, true},
	{"RRA", ABY, 0x7b, 3, 7, 0, true},
	{"RRA", IDX, 0x63, 2, 8, 0, true},
	{"RRA", IDY, 0x73, 2, 8, 0, true},

	{"ANC", IMM, 0x0b, 2, 2, 0, true},
	{"ANC2", IMM, 0x2b, 2, 2, 0, true},
	{"ALR", IMM, 0x4b, 2, 2, 0, true},
	{"ARR", IMM, 0x6b, 2, 2, 0, true},
	{"XAA", IMM, 0x8b, 2, 2, 0, true},

	{"AHX", ABY, 0x9f, 3, 5, 0, true},
	{"AHX", IDY, 0x93, 2, 6, 0, true},

	{"TAS", ABY, 0x9b, 3, 5, 0, true},
	{"SHX", ABY, 0x9e, 3, 5, 0, true},
	{"SHY", ABX, 0x9c, 3, 5, 0, true},
	{"LAS", ABY, 0xbb, 3, 4, 1, true},

	{"USB", IMM, 0xeb, 2, 2, 0, true},

	{"DOP", IMM, 0x80, 2, 2, 0, true},
	{"DOP", ZPG, 0x04, 2, 3, 0, true},
	{"DOP", ZPX, 0x14, 2, 4, 0, true},
	{"TOP", ABS, 0x0c, 3, 4, 0, true},
	{"TOP", ABX, 0x1c, 3, 4, 1, true},

	{"JAM", IMP, 0x02, 1, 0, 0, true},
}

// Alternate mnemonics found in the wild. Each alias shares every variant
// of its canonical mnemonic.
var aliases = map[string]string{
	"DCM": "DCP",
	"ISB": "ISC",
	"INS": "ISC",
	"ASO": "SLO",
	"LSE": "SRE",
	"ASR": "ALR",
	"ANE": "XAA",
	"SHA": "AHX",
	"SHS": "TAS",
	"SXA": "SHX",
	"SYA": "SHY",
	"LAR": "LAS",
	"KIL": "JAM",
	"HLT": "JAM",
}

// An InstructionSet defines all instructions the assembler can encode,
// indexed by mnemonic.
type InstructionSet struct {
	variants map[string][]*Instruction
}

// GetInstructions returns all instruction variants whose mnemonic matches
// the provided string. Lookup is case-insensitive.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

// Find returns the instruction variant matching the mnemonic and
// addressing mode, or nil if the pairing does not exist.
func (s *InstructionSet) Find(name string, mode Mode) *Instruction {
	for _, inst := range s.GetInstructions(name) {
		if inst.Mode == mode {
			return inst
		}
	}
	return nil
}

// IsMnemonic reports whether the string names an instruction.
func (s *InstructionSet) IsMnemonic(name string) bool {
	return len(s.GetInstructions(name)) > 0
}

// IsIllegal reports whether the mnemonic is an undocumented operation.
// All variants of a mnemonic share the flag.
func (s *InstructionSet) IsIllegal(name string) bool {
	v := s.GetInstructions(name)
	return len(v) > 0 && v[0].Illegal
}

// Allowed reports whether the mnemonic is accepted under the CPU variant.
func (s *InstructionSet) Allowed(name string, c CPU) bool {
	v := s.GetInstructions(name)
	if len(v) == 0 {
		return false
	}
	return !v[0].Illegal || c.AllowsIllegal()
}

// Create the instruction set from the data tables.
func newInstructionSet() *InstructionSet {
	set := &InstructionSet{variants: make(map[string][]*Instruction)}

	for _, d := range data {
		inst := &Instruction{
			Name:     d.name,
			Mode:     d.mode,
			Opcode:   d.opcode,
			Length:   d.length,
			Cycles:   d.cycles,
			BPCycles: d.bpcycles,
			Illegal:  d.illegal,
		}
		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}

	for alias, canon := range aliases {
		set.variants[alias] = set.variants[canon]
	}

	return set
}

var instructionSet *InstructionSet

// GetInstructionSet returns the shared instruction set. It is built
// lazily on first use.
func GetInstructionSet() *InstructionSet {
	if instructionSet == nil {
		instructionSet = newInstructionSet()
	}
	return instructionSet
}
