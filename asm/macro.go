// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// A macroDef holds one registered macro: its parameter names and the raw
// source text of its body.
type macroDef struct {
	name   string
	params []string
	body   string
	file   string
	line   int
}

// A macroTable maps lower-cased macro names to definitions.
type macroTable struct {
	macros map[string]*macroDef
}

func newMacroTable() *macroTable {
	return &macroTable{macros: make(map[string]*macroDef)}
}

func (t *macroTable) lookup(name string) *macroDef {
	return t.macros[strings.ToLower(name)]
}

func (t *macroTable) define(m *macroDef) bool {
	key := strings.ToLower(m.name)
	if _, exists := t.macros[key]; exists {
		return false
	}
	t.macros[key] = m
	return true
}

//
// textual substitution
//

func isWordChar(c byte) bool {
	return isAlnum(c)
}

// substituteWords replaces whole-word, case-insensitive occurrences of
// each name with the corresponding value. Word boundaries are identifier
// boundaries; anything that is not a word is copied through unchanged.
func substituteWords(body string, names, values []string) string {
	var out strings.Builder
	out.Grow(len(body))

	for i := 0; i < len(body); {
		c := body[i]
		if !isAlpha(c) || (i > 0 && isWordChar(body[i-1])) {
			out.WriteByte(c)
			i++
			continue
		}

		j := i
		for j < len(body) && isWordChar(body[j]) {
			j++
		}
		word := body[i:j]

		replaced := false
		for k, name := range names {
			if strings.EqualFold(word, name) {
				out.WriteString(values[k])
				replaced = true
				break
			}
		}
		if !replaced {
			out.WriteString(word)
		}
		i = j
	}

	return out.String()
}

//
// body capture
//

// Find the offset of the first character of the line containing pos.
func lineStartOffset(src string, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// Find the offset just past the line starting at pos, including its
// newline when present.
func lineEndOffset(src string, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	if pos < len(src) {
		pos++
	}
	return pos
}

// collectBody captures the raw source lines of a macro or loop body up
// to the matching terminator, tracking nesting of the opener directives.
// The statements parsed along the way are discarded; only the text is
// kept, because the body is re-lexed at each expansion.
func collectBody(p *parser, openers, closers []string) (string, bool) {
	var body strings.Builder
	depth := 1

	for !p.atEOF() {
		start := lineStartOffset(p.lex.src, p.current.start)
		end := lineEndOffset(p.lex.src, start)

		stmt := p.parseLine()

		if stmt.typ == stmtDirective {
			if containsName(openers, stmt.dir.name) {
				depth++
			} else if containsName(closers, stmt.dir.name) {
				depth--
				if depth == 0 {
					return body.String(), true
				}
			}
		}

		body.WriteString(p.lex.src[start:end])
	}

	return "", false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

//
// macro registration and expansion
//

// processMacroDef registers a macro from its !macro statement, capturing
// the body through the statement parser until !endmacro / !endm.
func (a *Assembler) processMacroDef(stmt *statement, p *parser) {
	var name string
	var params []string

	if stmt.dir.hasStr {
		name = string(stmt.dir.str)
		for _, arg := range stmt.dir.args {
			if arg.typ == exprSymbol {
				params = append(params, arg.symbol)
			}
		}
	} else if len(stmt.dir.args) > 0 && stmt.dir.args[0].typ == exprSymbol {
		name = stmt.dir.args[0].symbol
		for _, arg := range stmt.dir.args[1:] {
			if arg.typ == exprSymbol {
				params = append(params, arg.symbol)
			}
		}
	}

	if name == "" {
		a.errorf("!macro requires a name")
		return
	}

	body, ok := collectBody(p, []string{"macro"}, []string{"endmacro", "endm"})
	if !ok {
		a.errorf("unterminated macro '%s'", name)
		return
	}

	m := &macroDef{
		name:   name,
		params: params,
		body:   body,
		file:   a.currentFile,
		line:   a.currentLine,
	}
	if !a.macros.define(m) {
		a.errorf("macro '%s' already defined", name)
	}
}

// expandMacro substitutes arguments into the macro body and assembles
// the expanded text inline. Each expansion runs under a fresh zone
// named after the expansion's unique id, so local labels inside the
// body stay private to that expansion. The id counter is reset at the
// start of pass 2 so both passes generate identical zone names.
func (a *Assembler) expandMacro(name string, args []string) {
	m := a.macros.lookup(name)
	if m == nil {
		a.errorf("undefined macro '%s'", name)
		return
	}

	if len(args) != len(m.params) {
		a.errorf("macro '%s' expects %d arguments, got %d",
			name, len(m.params), len(args))
		return
	}

	if a.macroDepth >= maxMacroDepth {
		a.errorf("macro expansion too deep (max %d)", maxMacroDepth)
		return
	}

	a.macroUniqueCounter++
	id := a.macroUniqueCounter

	expanded := substituteWords(m.body, m.params, args)

	savedZone := a.zone
	a.zone = fmt.Sprintf("_macro_%d", id)
	a.macroDepth++

	a.processSource(expanded, "<"+name+">", false)

	a.macroDepth--
	a.zone = savedZone
}

//
// compile-time loops
//

func (a *Assembler) inLoop() bool {
	return a.loopDepth > 0
}

// processLoop handles a !for or !while statement: the body is captured
// up to the matching !end and executed immediately.
func (a *Assembler) processLoop(stmt *statement, p *parser) {
	switch stmt.dir.name {
	case "for":
		if len(stmt.dir.args) < 3 {
			a.errorf("!for requires variable, start, and end")
			collectBody(p, []string{"for", "while"}, []string{"end"})
			return
		}
		if stmt.dir.args[0].typ != exprSymbol {
			a.errorf("!for requires a variable name")
			collectBody(p, []string{"for", "while"}, []string{"end"})
			return
		}
		varName := stmt.dir.args[0].symbol

		start := stmt.dir.args[1].eval(a.evalContext())
		end := stmt.dir.args[2].eval(a.evalContext())
		if !start.defined || !end.defined {
			a.errorf("!for start and end must be defined values")
			collectBody(p, []string{"for", "while"}, []string{"end"})
			return
		}

		body, ok := collectBody(p, []string{"for", "while"}, []string{"end"})
		if !ok {
			a.errorf("unterminated !for loop")
			return
		}
		a.runFor(varName, start.value, end.value, body)

	case "while":
		if len(stmt.dir.args) < 1 {
			a.errorf("!while requires a condition expression")
			collectBody(p, []string{"for", "while"}, []string{"end"})
			return
		}
		cond := stmt.dir.args[0].clone()

		body, ok := collectBody(p, []string{"for", "while"}, []string{"end"})
		if !ok {
			a.errorf("unterminated !while loop")
			return
		}
		a.runWhile(cond, body)
	}
}

// runFor binds the loop variable to each integer of [start, end],
// stepping +1 or -1 by the order of the bounds. The variable is
// substituted textually into the body and also defined as a symbol so
// it remains visible to expressions.
func (a *Assembler) runFor(varName string, start, end int32, body string) {
	if a.loopDepth >= maxLoopDepth {
		a.errorf("loop nesting too deep (max %d)", maxLoopDepth)
		return
	}

	step := int32(1)
	if start > end {
		step = -1
	}

	label := "<for " + varName + ">"
	for i := start; ; i += step {
		if step > 0 && i > end || step < 0 && i < end {
			break
		}

		expanded := substituteWords(body, []string{varName}, []string{strconv.Itoa(int(i))})

		a.symbols.define(varName, i, symDefined|symForceUpdate,
			a.currentFile, a.currentLine)

		a.loopDepth++
		a.processSource(expanded, label, false)
		a.loopDepth--

		if a.errorCount >= maxErrors {
			break
		}
	}
}

// runWhile re-evaluates the condition before each iteration, with a
// safety cap on the iteration count.
func (a *Assembler) runWhile(cond *expr, body string) {
	if a.loopDepth >= maxLoopDepth {
		a.errorf("loop nesting too deep (max %d)", maxLoopDepth)
		return
	}

	iterations := 0
	for iterations < maxWhileIterations {
		result := cond.eval(a.evalContext())
		if !result.defined {
			a.errorf("undefined symbol in !while condition")
			return
		}
		if result.value == 0 {
			return
		}

		a.loopDepth++
		a.processSource(body, "<while>", false)
		a.loopDepth--

		iterations++
		if a.errorCount >= maxErrors {
			return
		}
	}

	a.errorf("!while loop exceeded maximum iterations (%d)", maxWhileIterations)
}
