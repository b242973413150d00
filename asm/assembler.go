// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/beevik/asm64/cpu"
)

// ErrAssembly is returned by AssembleFile and AssembleString when the
// source contained errors. The individual problems are available through
// Diagnostics.
var ErrAssembly = errors.New("assembly failed")

const (
	memorySize = 0x10000
	defaultOrg = 0x0801 // C64 BASIC program start

	maxErrors          = 100
	maxWarnings        = 100
	maxIncludeDepth    = 32
	maxMacroDepth      = 32
	maxCondDepth       = 64
	maxLoopDepth       = 64
	maxWhileIterations = 100000
)

// OutputFormat selects the shape of the written program image.
type OutputFormat byte

const (
	// OutputPRG prefixes the image with a two-byte load address.
	OutputPRG OutputFormat = iota
	// OutputRaw writes the bare image.
	OutputRaw
)

// A Diagnostic is one reported error or warning.
type Diagnostic struct {
	File    string
	Line    int
	Level   string // "error" or "warning"
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Level, d.Message)
}

// An assembledLine is one statement that survived pass 1, together with
// everything pass 2 and the listing writer need to replay it.
type assembledLine struct {
	stmt        *statement
	address     uint16 // virtual PC at the start of the line
	source      string // original source text, "" for generated lines
	zone        string // zone active when the line was first assembled
	byteCount   int    // bytes emitted in pass 2 (capped at 8)
	bytes       [8]byte
	cycles      byte
	pagePenalty bool
}

// A condEntry is one level of the conditional-assembly stack.
type condEntry struct {
	parentActive bool
	active       bool
	elseSeen     bool
	file         string
	line         int
}

// An includeEntry records where an include was entered from.
type includeEntry struct {
	file string
	line int
}

// An Assembler drives the full two-pass assembly. It owns all mutable
// state; the lexer, expression machinery and opcode tables below it are
// pure functions over their inputs. A single Assembler is reusable:
// each AssembleFile/AssembleString resets it first.
type Assembler struct {
	memory  []byte
	written []bool

	pc          uint16 // virtual PC, used by labels and branch targets
	realPC      uint16 // physical output PC, diverges under !pseudopc
	inPseudoPC  bool
	org         uint16
	lowestAddr  uint16
	highestAddr uint16

	symbols     *symbolTable
	anon        *anonLabels
	zone        string // current zone for local-label mangling; "" = none
	zoneCounter int

	macros             *macroTable
	macroDepth         int
	macroUniqueCounter int
	loopDepth          int

	includeDepth   int
	includeStack   []includeEntry
	includePaths   []string
	cmdlineDefines []string

	condStack []condEntry

	cpuType cpu.CPU
	pass    int

	errorCount   int
	warningCount int
	diags        []Diagnostic

	lines []*assembledLine

	currentFile string
	currentLine int

	verbose    bool
	showCycles bool
	out        io.Writer
}

// New creates an assembler ready for use.
func New() *Assembler {
	a := &Assembler{
		memory:  make([]byte, memorySize),
		written: make([]bool, memorySize),
		out:     os.Stderr,
	}
	a.Reset()
	return a
}

// Reset returns the assembler to its initial state, clearing the memory
// image, symbols, zones, stacks and diagnostics. Include search paths
// are kept, and command-line symbol definitions are re-applied.
func (a *Assembler) Reset() {
	for i := range a.memory {
		a.memory[i] = 0
		a.written[i] = false
	}

	a.symbols = newSymbolTable(1024)
	a.anon = newAnonLabels()
	a.macros = newMacroTable()
	a.lines = nil
	a.diags = nil
	a.condStack = a.condStack[:0]
	a.includeStack = a.includeStack[:0]

	a.pc = defaultOrg
	a.realPC = defaultOrg
	a.org = defaultOrg
	a.lowestAddr = 0xffff
	a.highestAddr = 0
	a.inPseudoPC = false
	a.zone = ""
	a.zoneCounter = 0
	a.macroDepth = 0
	a.macroUniqueCounter = 0
	a.loopDepth = 0
	a.includeDepth = 0
	a.cpuType = cpu.CPU6510
	a.pass = 1
	a.errorCount = 0
	a.warningCount = 0
	a.currentFile = ""
	a.currentLine = 0

	for _, def := range a.cmdlineDefines {
		a.applyDefine(def)
	}
}

//
// configuration
//

// SetVerbose enables progress output on the assembler's writer.
func (a *Assembler) SetVerbose(v bool) {
	a.verbose = v
}

// SetShowCycles enables the cycle-count column in listings.
func (a *Assembler) SetShowCycles(v bool) {
	a.showCycles = v
}

// SetOutput redirects diagnostic and verbose output. The default is
// standard error.
func (a *Assembler) SetOutput(w io.Writer) {
	a.out = w
}

// SetCPU selects the processor variant by name (6502, 6510 or 65c02).
func (a *Assembler) SetCPU(name string) error {
	c, ok := cpu.ParseCPU(name)
	if !ok {
		return errors.Errorf("unknown CPU type: %s", name)
	}
	a.cpuType = c
	return nil
}

// AddIncludePath appends a directory to the include search list.
func (a *Assembler) AddIncludePath(path string) {
	a.includePaths = append(a.includePaths, path)
}

// AddIncludePathsFromEnv appends every non-empty element of a delimited
// environment variable to the include search list.
func (a *Assembler) AddIncludePathsFromEnv(name, delimiter string) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	for _, path := range strings.Split(value, delimiter) {
		if path != "" {
			a.AddIncludePath(path)
		}
	}
}

// DefineSymbol registers a command-line symbol definition of the form
// NAME[=VALUE]. The value parses as hex with a '$' or '0x' prefix,
// binary with '%', otherwise decimal; a missing value defaults to 1.
// Definitions survive Reset and are re-applied on each assembly.
func (a *Assembler) DefineSymbol(definition string) error {
	name := definition
	if i := strings.IndexByte(definition, '='); i >= 0 {
		name = definition[:i]
	}
	if name == "" {
		return errors.Errorf("invalid symbol definition '%s'", definition)
	}

	a.cmdlineDefines = append(a.cmdlineDefines, definition)
	if a.applyDefine(definition) == nil {
		return errors.Errorf("invalid symbol definition '%s'", definition)
	}
	return nil
}

func (a *Assembler) applyDefine(definition string) *symbol {
	name := definition
	var value int32 = 1

	if i := strings.IndexByte(definition, '='); i >= 0 {
		name = definition[:i]
		val := definition[i+1:]
		var v int64
		switch {
		case strings.HasPrefix(val, "$"):
			v, _ = strconv.ParseInt(val[1:], 16, 64)
		case strings.HasPrefix(val, "%"):
			v, _ = strconv.ParseInt(val[1:], 2, 64)
		case strings.HasPrefix(val, "0x") || strings.HasPrefix(val, "0X"):
			v, _ = strconv.ParseInt(val[2:], 16, 64)
		default:
			v, _ = strconv.ParseInt(val, 10, 64)
		}
		value = int32(v)
	}

	return a.symbols.define(name, value, symConstant, "<command-line>", 0)
}

//
// diagnostics
//

func (a *Assembler) errorf(format string, args ...any) {
	if a.errorCount >= maxErrors {
		return
	}
	a.report("error", format, args...)
	a.errorCount++
}

func (a *Assembler) warningf(format string, args ...any) {
	if a.warningCount >= maxWarnings {
		return
	}
	a.report("warning", format, args...)
	a.warningCount++
}

func (a *Assembler) report(level, format string, args ...any) {
	file := a.currentFile
	if file == "" {
		file = "<input>"
	}
	d := Diagnostic{
		File:    file,
		Line:    a.currentLine,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}
	a.diags = append(a.diags, d)
	fmt.Fprintln(a.out, d)
}

// Diagnostics returns all errors and warnings reported so far, in the
// order they were produced.
func (a *Assembler) Diagnostics() []Diagnostic {
	return a.diags
}

// ErrorCount returns the number of errors reported.
func (a *Assembler) ErrorCount() int {
	return a.errorCount
}

// WarningCount returns the number of warnings reported.
func (a *Assembler) WarningCount() int {
	return a.warningCount
}

// IncludeTrace renders the active include stack, innermost first, for
// diagnostic display. It returns "" outside of any include.
func (a *Assembler) IncludeTrace() string {
	var sb strings.Builder
	for i := len(a.includeStack) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "  included from %s:%d\n",
			a.includeStack[i].file, a.includeStack[i].line)
	}
	return sb.String()
}

func (a *Assembler) logf(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintln(a.out)
	}
}

//
// code emission
//

// emitByte writes one byte at the physical output position and advances
// both PCs. Under !pseudopc the physical position is realPC while
// labels continue to see the virtual pc.
func (a *Assembler) emitByte(b byte) {
	addr := a.pc
	if a.inPseudoPC {
		addr = a.realPC
	}

	if addr < a.lowestAddr {
		a.lowestAddr = addr
	}
	if addr > a.highestAddr {
		a.highestAddr = addr
	}

	a.memory[addr] = b
	a.written[addr] = true

	a.pc++
	a.realPC++
}

func (a *Assembler) emitWord(w uint16) {
	a.emitByte(byte(w))
	a.emitByte(byte(w >> 8))
}

func (a *Assembler) emitBytes(b []byte) {
	for _, v := range b {
		a.emitByte(v)
	}
}

// setPC repositions the virtual PC; outside !pseudopc the physical PC
// follows.
func (a *Assembler) setPC(pc uint16) {
	a.pc = pc
	if !a.inPseudoPC {
		a.realPC = pc
	}
	if a.pass == 1 && len(a.lines) == 0 {
		a.org = pc
	}
}

// advancePC moves both PCs without writing memory. Pass 1 reserves
// space this way; !skip uses it in both passes.
func (a *Assembler) advancePC(count int) {
	a.pc += uint16(count)
	a.realPC += uint16(count)
}

// outputPC is the physical address the next byte would be written to.
func (a *Assembler) outputPC() uint16 {
	if a.inPseudoPC {
		return a.realPC
	}
	return a.pc
}

func isZeropage(v int32) bool {
	return v >= 0 && v <= 0xff
}

// branchOffset computes the two's-complement displacement of target
// from the address after a branch at pc. ok is false when the target
// lies outside -128..+127.
func branchOffset(target, pc uint16) (byte, bool) {
	diff := int32(target) - (int32(pc) + 2)
	if diff < -128 || diff > 127 {
		return 0, false
	}
	return byte(diff), true
}

func (a *Assembler) evalContext() *evalContext {
	return &evalContext{
		symbols: a.symbols,
		anon:    a.anon,
		pc:      a.pc,
		pass:    a.pass,
		zone:    a.zone,
	}
}

//
// label handling
//

// defineLabel commits a label at the current virtual PC. Non-local
// global labels also rebind the zone to their own name.
func (a *Assembler) defineLabel(label *labelInfo) {
	flags := symDefined
	if isZeropage(int32(a.pc)) {
		flags |= symZeropage
	}

	switch {
	case label.anonFwd:
		a.anon.defineForward(a.pc, a.currentFile, a.currentLine)

	case label.anonBack:
		a.anon.defineBackward(a.pc, a.currentFile, a.currentLine)

	case label.local:
		mangled := mangleLocal(label.name, a.zone)
		a.symbols.define(mangled, int32(a.pc), flags|symLocal,
			a.currentFile, a.currentLine)

	default:
		a.symbols.define(label.name, int32(a.pc), flags,
			a.currentFile, a.currentLine)
		a.zone = label.name
	}
}

//
// statement assembly
//

func (a *Assembler) assembleStatement(stmt *statement) {
	a.currentLine = stmt.line

	if stmt.label != nil {
		if a.pass == 1 {
			a.defineLabel(stmt.label)
		} else if !stmt.label.local && !stmt.label.anonFwd && !stmt.label.anonBack {
			// Pass 2 replays still track zones for local resolution.
			a.zone = stmt.label.name
		}
	}

	switch stmt.typ {
	case stmtEmpty, stmtLabel:
		// nothing to assemble

	case stmtInstruction:
		a.assembleInstruction(stmt)

	case stmtDirective:
		a.assembleDirective(stmt)

	case stmtAssignment:
		a.assembleAssignment(stmt)

	case stmtMacroCall:
		// Calls are expanded during pass 1 and never stored.
		a.errorf("unexpected macro call")

	case stmtError:
		a.errorf("%s", stmt.errMsg)
	}
}

func (a *Assembler) assembleInstruction(stmt *statement) {
	info := &stmt.inst

	if info.mode == cpu.ACC || info.mode == cpu.IMP {
		if a.pass == 2 {
			a.emitByte(info.opcode)
		} else {
			a.advancePC(1)
		}
		return
	}

	var value int32
	defined := true
	if info.operand != nil {
		result := info.operand.eval(a.evalContext())
		value, defined = result.value, result.defined
		if a.pass == 2 && !defined {
			a.errorf("undefined symbol in operand")
			return
		}
	}

	if info.mode == cpu.REL {
		if a.pass == 2 {
			offset, ok := branchOffset(uint16(value), a.pc)
			if !ok {
				a.errorf("branch target out of range")
				return
			}
			a.emitByte(info.opcode)
			a.emitByte(offset)
		} else {
			a.advancePC(2)
		}
		return
	}

	// Pass 2 may re-select a zero-page form now that the value is
	// known, but only when the opcode swap keeps the committed size.
	// Sizes were fixed in pass 1; changing one would move every label
	// behind it.
	if a.pass == 2 && defined && isZeropage(value) {
		var zpMode cpu.Mode
		switch info.mode {
		case cpu.ABS:
			zpMode = cpu.ZPG
		case cpu.ABX:
			zpMode = cpu.ZPX
		case cpu.ABY:
			zpMode = cpu.ZPY
		default:
			zpMode = info.mode
		}
		if zpMode != info.mode {
			set := cpu.GetInstructionSet()
			if inst := set.Find(info.mnemonic, zpMode); inst != nil && inst.Length == info.size {
				info.mode = zpMode
				info.opcode = inst.Opcode
				info.cycles = inst.Cycles
				info.pagePenalty = inst.BPCycles != 0
			}
		}
	}

	if a.pass == 2 {
		a.emitByte(info.opcode)
		switch info.size {
		case 2:
			a.emitByte(byte(value))
		case 3:
			a.emitWord(uint16(value))
		}
	} else {
		a.advancePC(int(info.size))
	}
}

// Assignments define constants in pass 1 outside loops; inside loops
// and in pass 2 they force-update so reassignment and replay work.
func (a *Assembler) assembleAssignment(stmt *statement) {
	result := stmt.assign.value.eval(a.evalContext())

	var flags symbolFlags
	if a.pass == 2 || a.inLoop() {
		flags = symDefined | symForceUpdate
	} else {
		flags = symConstant
	}
	if result.defined && isZeropage(result.value) {
		flags |= symZeropage
	}

	if a.symbols.define(stmt.assign.name, result.value, flags,
		a.currentFile, a.currentLine) == nil {
		a.errorf("cannot redefine constant '%s'", stmt.assign.name)
	}
}

//
// statement classification
//

func isConditionalDirective(stmt *statement) bool {
	if stmt.typ != stmtDirective {
		return false
	}
	switch stmt.dir.name {
	case "if", "ifdef", "ifndef", "else", "endif":
		return true
	}
	return false
}

func isSourceDirective(stmt *statement) bool {
	if stmt.typ != stmtDirective {
		return false
	}
	switch stmt.dir.name {
	case "source", "src", "include":
		return true
	}
	return false
}

func isLoopDirective(stmt *statement) bool {
	return stmt.typ == stmtDirective &&
		(stmt.dir.name == "for" || stmt.dir.name == "while")
}

func isMacroDirective(stmt *statement) bool {
	return stmt.typ == stmtDirective && stmt.dir.name == "macro"
}

//
// conditional assembly
//

func (a *Assembler) isActive() bool {
	if len(a.condStack) == 0 {
		return true
	}
	return a.condStack[len(a.condStack)-1].active
}

func (a *Assembler) condIf(condition bool) {
	if len(a.condStack) >= maxCondDepth {
		a.errorf("!if nesting too deep (max %d)", maxCondDepth)
		return
	}
	parent := a.isActive()
	a.condStack = append(a.condStack, condEntry{
		parentActive: parent,
		active:       parent && condition,
		file:         a.currentFile,
		line:         a.currentLine,
	})
}

func (a *Assembler) condElse() {
	if len(a.condStack) == 0 {
		a.errorf("!else without matching !if")
		return
	}
	entry := &a.condStack[len(a.condStack)-1]
	if entry.elseSeen {
		a.errorf("duplicate !else for !if at %s:%d", entry.file, entry.line)
		return
	}
	entry.elseSeen = true
	if entry.parentActive {
		entry.active = !entry.active
	}
}

func (a *Assembler) condEndif() {
	if len(a.condStack) == 0 {
		a.errorf("!endif without matching !if")
		return
	}
	a.condStack = a.condStack[:len(a.condStack)-1]
}

// symbolNameArg extracts the symbol name of an !ifdef/!ifndef argument,
// given either as a bare identifier or a string.
func symbolNameArg(stmt *statement) string {
	if stmt.dir.hasStr {
		return string(stmt.dir.str)
	}
	if len(stmt.dir.args) > 0 && stmt.dir.args[0].typ == exprSymbol {
		return stmt.dir.args[0].symbol
	}
	return ""
}

// processConditional updates the conditional stack. It runs for every
// conditional directive, even inside inactive blocks, so nesting stays
// balanced.
func (a *Assembler) processConditional(stmt *statement) {
	switch stmt.dir.name {
	case "if":
		if len(stmt.dir.args) < 1 {
			a.errorf("!if requires a condition expression")
			a.condIf(false)
			return
		}
		result := stmt.dir.args[0].eval(a.evalContext())
		// Undefined means a forward reference; treat as false.
		a.condIf(result.defined && result.value != 0)

	case "ifdef":
		name := symbolNameArg(stmt)
		if name == "" {
			a.errorf("!ifdef requires a symbol name")
			a.condIf(false)
			return
		}
		a.condIf(a.symbols.isDefined(name))

	case "ifndef":
		name := symbolNameArg(stmt)
		if name == "" {
			a.errorf("!ifndef requires a symbol name")
			a.condIf(false)
			return
		}
		a.condIf(!a.symbols.isDefined(name))

	case "else":
		a.condElse()

	case "endif":
		a.condEndif()
	}
}

//
// pseudo-PC
//

func (a *Assembler) pseudoPCStart(addr uint16) {
	if a.inPseudoPC {
		a.errorf("nested !pseudopc not allowed")
		return
	}
	a.realPC = a.pc
	a.inPseudoPC = true
	a.pc = addr
}

func (a *Assembler) pseudoPCEnd() {
	if !a.inPseudoPC {
		a.errorf("!realpc without matching !pseudopc")
		return
	}
	a.pc = a.realPC
	a.inPseudoPC = false
}

//
// includes
//

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// findInclude resolves an include filename: first as a sibling of the
// including file, then against each configured search path in order,
// then against the working directory.
func (a *Assembler) findInclude(filename string) (string, bool) {
	if a.currentFile != "" {
		path := filepath.Join(filepath.Dir(a.currentFile), filename)
		if fileExists(path) {
			return path, true
		}
	}
	for _, dir := range a.includePaths {
		path := filepath.Join(dir, filename)
		if fileExists(path) {
			return path, true
		}
	}
	if fileExists(filename) {
		return filename, true
	}
	return "", false
}

func (a *Assembler) includeFile(filename string) {
	if a.includeDepth >= maxIncludeDepth {
		a.errorf("include nesting too deep (max %d)", maxIncludeDepth)
		return
	}

	path, ok := a.findInclude(filename)
	if !ok {
		a.errorf("cannot find include file: %s", filename)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		a.errorf("cannot read include file: %s", path)
		return
	}

	a.includeStack = append(a.includeStack, includeEntry{a.currentFile, a.currentLine})
	a.includeDepth++

	a.processSource(string(content), path, true)

	a.includeDepth--
	a.includeStack = a.includeStack[:len(a.includeStack)-1]
}

// includeBinary splices raw bytes from a binary file into the image.
// A length of 0 means the rest of the file.
func (a *Assembler) includeBinary(filename string, offset, length int) {
	path, ok := a.findInclude(filename)
	if !ok {
		a.errorf("cannot find binary file: %s", filename)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		a.errorf("cannot read binary file: %s", path)
		return
	}

	if offset < 0 || offset > len(data) {
		a.errorf("binary offset %d out of range (file size %d)", offset, len(data))
		return
	}

	end := len(data)
	if length > 0 && offset+length < end {
		end = offset + length
	}

	if a.pass == 2 {
		a.emitBytes(data[offset:end])
	} else {
		a.advancePC(end - offset)
	}
}

//
// line storage
//

func (a *Assembler) addLine(stmt *statement, address uint16, source string) *assembledLine {
	line := &assembledLine{
		stmt:    stmt,
		address: address,
		source:  source,
		zone:    a.zone,
	}
	if stmt.typ == stmtInstruction {
		line.cycles = stmt.inst.cycles
		line.pagePenalty = stmt.inst.pagePenalty
	}
	a.lines = append(a.lines, line)
	return line
}

// sourceLineText extracts a trimmed copy of a numbered line for the
// listing file.
func sourceLineText(source string, lineNo int) string {
	pos := 0
	for n := 1; n < lineNo && pos < len(source); pos++ {
		if source[pos] == '\n' {
			n++
		}
	}
	end := pos
	for end < len(source) && source[end] != '\n' {
		end++
	}
	return strings.TrimSpace(source[pos:end])
}

//
// pass 1
//

// processSource lexes, parses and pass-1-assembles one source buffer.
// It is re-entered for includes (capture=true) and for macro expansions
// and loop bodies (capture=false, which also disables !source and
// listing-text capture). All driver state is shared across re-entries.
func (a *Assembler) processSource(source, filename string, capture bool) {
	lex := newLexer(source, filename)
	p := newParser(lex, a.symbols, &a.cpuType)
	p.setPass(a.pass)

	savedFile := a.currentFile
	a.currentFile = filename
	defer func() { a.currentFile = savedFile }()

	for !p.atEOF() {
		linePC := a.pc
		p.setPC(a.pc)

		stmt := p.parseLine()
		a.currentLine = stmt.line

		// Conditional directives always run so nesting stays balanced
		// even in skipped regions.
		if isConditionalDirective(stmt) {
			a.processConditional(stmt)
			continue
		}
		if !a.isActive() {
			continue
		}

		if isSourceDirective(stmt) {
			if !capture {
				continue
			}
			if !stmt.dir.hasStr {
				a.errorf("!source requires a filename argument")
			} else {
				a.includeFile(string(stmt.dir.str))
			}
			continue
		}

		if isMacroDirective(stmt) {
			a.processMacroDef(stmt, p)
			continue
		}

		if isLoopDirective(stmt) {
			a.processLoop(stmt, p)
			continue
		}

		if stmt.typ == stmtMacroCall {
			a.expandMacro(stmt.call.name, stmt.call.args)
			continue
		}

		var text string
		if capture {
			text = sourceLineText(source, stmt.line)
		}
		a.addLine(stmt, linePC, text)

		a.assembleStatement(stmt)

		if a.errorCount >= maxErrors {
			break
		}
	}
}

func (a *Assembler) pass1(source, filename string) {
	a.pass = 1
	a.pc = a.org
	a.realPC = a.org

	a.processSource(source, filename, true)

	if len(a.condStack) > 0 {
		entry := a.condStack[len(a.condStack)-1]
		a.errorf("unterminated !if (started at %s:%d)", entry.file, entry.line)
	}
}

//
// pass 2
//

func (a *Assembler) pass2() {
	a.pass = 2
	a.pc = a.org
	a.realPC = a.org
	a.inPseudoPC = false
	a.zone = ""
	a.macroUniqueCounter = 0
	a.anon.resetPass()

	for _, line := range a.lines {
		stmt := line.stmt
		a.currentFile = stmt.file
		a.currentLine = stmt.line

		// Restore the virtual PC; the physical PC keeps tracking the
		// replayed emissions on its own.
		a.pc = line.address
		startPC := a.outputPC()

		a.zone = line.zone

		// Anonymous labels are per-pass; re-record definitions so
		// backward references resolve against pass-2 state.
		if stmt.label != nil {
			switch {
			case stmt.label.anonFwd:
				a.anon.defineForward(a.pc, a.currentFile, stmt.line)
			case stmt.label.anonBack:
				a.anon.defineBackward(a.pc, a.currentFile, stmt.line)
			}
		}

		a.assembleStatement(stmt)

		// Capture the first emitted bytes for the listing.
		endPC := a.outputPC()
		count := int(endPC - startPC)
		if count > len(line.bytes) {
			count = len(line.bytes)
		}
		if count > 0 {
			line.byteCount = count
			for i := 0; i < count; i++ {
				line.bytes[i] = a.memory[startPC+uint16(i)]
			}
		}

		if stmt.typ == stmtInstruction {
			line.cycles = stmt.inst.cycles
			line.pagePenalty = stmt.inst.pagePenalty
		}

		if a.errorCount >= maxErrors {
			break
		}
	}
}

//
// assembly entry points
//

// AssembleString resets the assembler and runs both passes over the
// given source text. It returns ErrAssembly when any error diagnostic
// was reported; the (possibly partial) image remains inspectable.
func (a *Assembler) AssembleString(source, filename string) error {
	a.Reset()

	a.logf("Pass 1: parsing and symbol collection")
	a.pass1(source, filename)
	if a.errorCount == 0 {
		a.logf("Pass 1: %d lines, %d symbols defined", len(a.lines), a.symbols.count)

		a.logf("Pass 2: code generation")
		a.pass2()
		if a.errorCount == 0 && a.lowestAddr <= a.highestAddr {
			a.logf("Pass 2: generated %d bytes ($%04X-$%04X)",
				int(a.highestAddr)-int(a.lowestAddr)+1, a.lowestAddr, a.highestAddr)
		}
	}

	if a.errorCount > 0 {
		return ErrAssembly
	}
	return nil
}

// AssembleFile reads and assembles a source file.
func (a *Assembler) AssembleFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read source")
	}
	return a.AssembleString(string(content), path)
}

// Output returns the load address and the assembled byte image, the
// slice of memory between the lowest and highest written addresses. The
// slice is empty when nothing was emitted.
func (a *Assembler) Output() (start uint16, code []byte) {
	if a.lowestAddr > a.highestAddr {
		return a.org, nil
	}
	return a.lowestAddr, a.memory[a.lowestAddr : int(a.highestAddr)+1]
}
