// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/asm64/cpu"
)

type statementType byte

const (
	stmtEmpty statementType = iota
	stmtLabel
	stmtInstruction
	stmtDirective
	stmtAssignment
	stmtMacroCall
	stmtError
)

// A labelInfo describes a label attached to a statement. The three
// anonymous/local flags are mutually exclusive.
type labelInfo struct {
	name     string
	local    bool // starts with '.'
	anonFwd  bool // '+' label
	anonBack bool // '-' label
}

// An instructionInfo carries a parsed instruction with its committed
// encoding choice.
type instructionInfo struct {
	mnemonic    string // upper-cased
	mode        cpu.Mode
	operand     *expr
	opcode      byte
	size        byte
	cycles      byte
	pagePenalty bool
}

// A directiveInfo carries a parsed '!' directive: its name without the
// bang, its expression arguments, and an optional string argument.
type directiveInfo struct {
	name   string
	args   []*expr
	str    []byte
	hasStr bool
}

type assignmentInfo struct {
	name  string
	value *expr
}

type macroCallInfo struct {
	name string
	args []string
}

// A statement is one parsed logical line.
type statement struct {
	typ    statementType
	line   int
	file   string
	label  *labelInfo
	inst   instructionInfo
	dir    directiveInfo
	assign assignmentInfo
	call   macroCallInfo
	errMsg string
}

//
// statement parser
//

// A parser reconstructs statements from the token stream of one source
// buffer. The driver creates a fresh parser per source context (top
// file, include, macro expansion, loop body) and shares its own symbol
// table and PC with it.
type parser struct {
	lex     *lexer
	symbols *symbolTable
	set     *cpu.InstructionSet
	cpuType *cpu.CPU // shared with the driver so !cpu takes effect mid-source
	current token
	pc      uint16
	pass    int
}

func newParser(lex *lexer, symbols *symbolTable, cpuType *cpu.CPU) *parser {
	p := &parser{
		lex:     lex,
		symbols: symbols,
		set:     cpu.GetInstructionSet(),
		cpuType: cpuType,
		pc:      0x0801, // C64 BASIC start
		pass:    1,
	}
	p.advance()
	return p
}

func (p *parser) advance() {
	p.current = p.lex.next()
}

func (p *parser) check(typ tokenType) bool {
	return p.current.typ == typ
}

func (p *parser) match(typ tokenType) bool {
	if p.check(typ) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) atLineEnd() bool {
	return p.check(tokEOL) || p.check(tokEOF)
}

func (p *parser) atEOF() bool {
	return p.check(tokEOF)
}

func (p *parser) setPC(pc uint16) {
	p.pc = pc
}

func (p *parser) setPass(pass int) {
	p.pass = pass
}

func (p *parser) newStatement(typ statementType, line int) *statement {
	return &statement{typ: typ, line: line, file: p.lex.filename}
}

func (p *parser) errorStatement(line int, msg string) *statement {
	stmt := p.newStatement(stmtError, line)
	stmt.errMsg = msg
	return stmt
}

// isMnemonic reports whether a token names an instruction.
func (p *parser) isMnemonic(tok token) bool {
	return tok.typ == tokIdentifier && p.set.IsMnemonic(tok.text)
}

//
// operand parsing
//

// An operandInfo captures the shape of a parsed operand before the
// addressing mode is chosen.
type operandInfo struct {
	expr       *expr
	hasHash    bool // '#' prefix
	hasXIndex  bool // ',X' suffix
	hasYIndex  bool // ',Y' suffix
	isIndirect bool // '(...)' wrapper
}

func (p *parser) parseExpr() *expr {
	ep := newExprParser(p.lex, p.current)
	e := ep.parse()
	p.current = ep.current
	return e
}

// Grammar:
//
//	operand := '#' expression
//	         | '(' expression [',' 'X'] ')' [',' 'Y']
//	         | expression [',' ('X' | 'Y')]
//	         | empty
func (p *parser) parseOperand() operandInfo {
	var info operandInfo

	if p.match(tokHash) {
		info.hasHash = true
	}

	switch {
	case p.match(tokLeftParen):
		info.isIndirect = true
		info.expr = p.parseExpr()

		if p.match(tokComma) {
			if p.check(tokIdentifier) && strings.EqualFold(p.current.text, "X") {
				info.hasXIndex = true
				p.advance()
			}
		}
		p.match(tokRightParen)
		if p.match(tokComma) {
			if p.check(tokIdentifier) && strings.EqualFold(p.current.text, "Y") {
				info.hasYIndex = true
				p.advance()
			}
		}

	case !p.atLineEnd():
		info.expr = p.parseExpr()
		if p.match(tokComma) {
			if p.check(tokIdentifier) {
				switch {
				case strings.EqualFold(p.current.text, "X"):
					info.hasXIndex = true
					p.advance()
				case strings.EqualFold(p.current.text, "Y"):
					info.hasYIndex = true
					p.advance()
				}
			}
		}
	}

	return info
}

//
// addressing-mode selection
//

var branchMnemonics = map[string]bool{
	"BCC": true, "BCS": true, "BEQ": true, "BMI": true,
	"BNE": true, "BPL": true, "BVC": true, "BVS": true,
}

var accumulatorMnemonics = map[string]bool{
	"ASL": true, "LSR": true, "ROL": true, "ROR": true,
}

func isBranch(mnemonic string) bool {
	return branchMnemonics[strings.ToUpper(mnemonic)]
}

// detectMode chooses an addressing mode from the operand shape, the
// mnemonic's capabilities, and whether the operand value is known. An
// unknown value never selects a zero-page form; pass 1 commits the
// absolute size instead.
func detectMode(set *cpu.InstructionSet, mnemonic string, o operandInfo, value int32, valueKnown bool) cpu.Mode {
	if isBranch(mnemonic) {
		return cpu.REL
	}
	if o.hasHash {
		return cpu.IMM
	}

	if o.expr == nil {
		if accumulatorMnemonics[strings.ToUpper(mnemonic)] &&
			set.Find(mnemonic, cpu.ACC) != nil {
			return cpu.ACC
		}
		return cpu.IMP
	}

	// A bare 'A' operand selects accumulator mode for the shift/rotate
	// instructions.
	if o.expr.typ == exprSymbol && strings.EqualFold(o.expr.symbol, "A") &&
		accumulatorMnemonics[strings.ToUpper(mnemonic)] {
		return cpu.ACC
	}

	if o.isIndirect {
		switch {
		case o.hasXIndex:
			return cpu.IDX
		case o.hasYIndex:
			return cpu.IDY
		default:
			return cpu.IND
		}
	}

	zp := valueKnown && value >= 0 && value <= 0xff

	if o.hasXIndex {
		if zp && set.Find(mnemonic, cpu.ZPX) != nil {
			return cpu.ZPX
		}
		return cpu.ABX
	}
	if o.hasYIndex {
		if zp && set.Find(mnemonic, cpu.ZPY) != nil {
			return cpu.ZPY
		}
		return cpu.ABY
	}
	if zp && set.Find(mnemonic, cpu.ZPG) != nil {
		return cpu.ZPG
	}
	return cpu.ABS
}

//
// instruction parsing
//

func (p *parser) parseInstruction(mnemonic string, line int) *statement {
	mnemonic = strings.ToUpper(mnemonic)

	if !p.set.Allowed(mnemonic, *p.cpuType) {
		return p.errorStatement(line,
			"illegal opcode '"+mnemonic+"' not allowed for CPU "+p.cpuType.Name())
	}

	stmt := p.newStatement(stmtInstruction, line)
	stmt.inst.mnemonic = mnemonic

	operand := p.parseOperand()
	stmt.inst.operand = operand.expr

	var value int32
	valueKnown := false
	if operand.expr != nil {
		result := operand.expr.eval(&evalContext{
			symbols: p.symbols,
			pc:      p.pc,
			pass:    p.pass,
		})
		value, valueKnown = result.value, result.defined
	}

	mode := detectMode(p.set, mnemonic, operand, value, valueKnown)
	stmt.inst.mode = mode

	inst := p.set.Find(mnemonic, mode)
	if inst == nil && !valueKnown && p.pass == 1 {
		// Forward reference with no matching form: fall back to the
		// absolute encoding, pinning the size for pass 2.
		if abs := p.set.Find(mnemonic, cpu.ABS); abs != nil {
			stmt.inst.mode = cpu.ABS
			inst = abs
		}
	}
	if inst == nil {
		return p.errorStatement(line, "invalid addressing mode for instruction "+mnemonic)
	}

	stmt.inst.opcode = inst.Opcode
	stmt.inst.size = inst.Length
	stmt.inst.cycles = inst.Cycles
	stmt.inst.pagePenalty = inst.BPCycles != 0
	return stmt
}

//
// directive parsing
//

func (p *parser) parseDirective(line int) *statement {
	stmt := p.newStatement(stmtDirective, line)
	stmt.dir.name = strings.ToLower(strings.TrimPrefix(p.current.text, "!"))
	p.advance()

	// The arguments of !macro are bare identifiers: the macro name
	// followed by parameter names, comma- or space-separated.
	isMacro := stmt.dir.name == "macro"

	for !p.atLineEnd() {
		switch {
		case p.check(tokString):
			stmt.dir.str = p.current.str
			stmt.dir.hasStr = true
			p.advance()

		case isMacro && p.check(tokIdentifier):
			stmt.dir.args = append(stmt.dir.args, exprSym(p.current.text))
			p.advance()
			p.match(tokComma)
			continue

		default:
			if e := p.parseExpr(); e != nil {
				stmt.dir.args = append(stmt.dir.args, e)
			}
		}

		if !p.match(tokComma) {
			break
		}
	}

	return stmt
}

//
// assignment parsing
//

func (p *parser) parseAssignment(name string, line int) *statement {
	stmt := p.newStatement(stmtAssignment, line)
	stmt.assign.name = name
	p.advance() // '='
	stmt.assign.value = p.parseExpr()
	if stmt.assign.value == nil {
		return p.errorStatement(line, "assignment requires a value")
	}
	return stmt
}

//
// macro call parsing
//

func (p *parser) parseMacroCall(line int) *statement {
	stmt := p.newStatement(stmtMacroCall, line)
	stmt.call.name = strings.TrimPrefix(p.current.text, "+")
	p.advance()

	for !p.atLineEnd() {
		stmt.call.args = append(stmt.call.args, p.current.text)
		p.advance()
		if !p.match(tokComma) {
			break
		}
	}

	return stmt
}

//
// line parsing
//

// parseLine parses one logical line into a statement. Trailing tokens
// after the parsed construct are consumed silently.
func (p *parser) parseLine() *statement {
	line := p.current.line

	if p.atLineEnd() {
		stmt := p.newStatement(stmtEmpty, line)
		p.match(tokEOL)
		return stmt
	}

	if p.check(tokError) {
		stmt := p.errorStatement(line, p.current.text)
		p.advance()
		p.finishLine()
		return stmt
	}

	var stmt *statement
	var label *labelInfo

	// A leading identifier-like token may be a label, an assignment
	// target, or an instruction mnemonic. A leading '-' operator can
	// only have come from a glued form like "-lda"; it marks an
	// anonymous backward label ahead of the statement proper.
	if p.check(tokIdentifier) || p.check(tokLocal) ||
		p.check(tokAnonFwd) || p.check(tokAnonBack) || p.check(tokMinus) {

		saved := p.current
		name := saved.text
		p.advance()

		switch {
		case p.check(tokColon):
			p.advance()
			label = labelFromToken(saved, name)

		case p.check(tokEQ):
			stmt = p.parseAssignment(name, line)

		case p.isMnemonic(saved):
			stmt = p.parseInstruction(name, line)

		default:
			// Label without colon: either alone on the line or
			// followed by the statement proper.
			label = labelFromToken(saved, name)
		}
	}

	if stmt == nil && !p.atLineEnd() {
		switch {
		case p.check(tokDirective):
			stmt = p.parseDirective(line)

		case p.check(tokMacroCall):
			stmt = p.parseMacroCall(line)

		case p.check(tokIdentifier):
			name := p.current.text
			if p.isMnemonic(p.current) {
				p.advance()
				stmt = p.parseInstruction(name, line)
			} else {
				stmt = p.errorStatement(line, "unknown instruction or directive: "+name)
				p.advance()
			}

		case p.check(tokStar):
			// Origin: *= expression, lowered to the org directive.
			p.advance()
			if p.match(tokEQ) {
				stmt = p.newStatement(stmtDirective, line)
				stmt.dir.name = "org"
				if e := p.parseExpr(); e != nil {
					stmt.dir.args = append(stmt.dir.args, e)
				}
			} else {
				stmt = p.errorStatement(line, "expected '=' after '*'")
			}

		case p.check(tokError):
			stmt = p.errorStatement(line, p.current.text)
			p.advance()
		}
	}

	if stmt == nil {
		if label != nil {
			stmt = p.newStatement(stmtLabel, line)
		} else {
			stmt = p.newStatement(stmtEmpty, line)
		}
	}
	stmt.label = label

	p.finishLine()
	return stmt
}

func (p *parser) finishLine() {
	for !p.atLineEnd() {
		p.advance()
	}
	p.match(tokEOL)
}

func labelFromToken(tok token, name string) *labelInfo {
	return &labelInfo{
		name:     name,
		local:    tok.typ == tokLocal,
		anonFwd:  tok.typ == tokAnonFwd,
		anonBack: tok.typ == tokAnonBack || tok.typ == tokMinus,
	}
}
