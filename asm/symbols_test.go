// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "testing"

func TestSymbolDefineLookup(t *testing.T) {
	syms := newSymbolTable(16)

	if syms.define("start", 0x0801, 0, "test", 1) == nil {
		t.Fatal("define failed")
	}

	sym := syms.lookup("start")
	if sym == nil || sym.value != 0x0801 {
		t.Fatal("lookup failed")
	}
	if sym.flags&symDefined == 0 {
		t.Error("define must set the DEFINED flag")
	}

	// Case-insensitive lookup returns the same symbol.
	if syms.lookup("START") != sym || syms.lookup("Start") != sym {
		t.Error("lookup must be case-insensitive")
	}

	if syms.lookup("other") != nil {
		t.Error("unknown name should not resolve")
	}
}

func TestSymbolOverwrite(t *testing.T) {
	syms := newSymbolTable(16)

	syms.define("v", 1, 0, "test", 1)
	if syms.define("v", 2, 0, "test", 2) == nil {
		t.Fatal("non-constant overwrite must succeed")
	}
	if syms.lookup("v").value != 2 {
		t.Error("overwrite did not update the value")
	}
	if syms.count != 1 {
		t.Errorf("count %d, want 1", syms.count)
	}
}

func TestConstantSemantics(t *testing.T) {
	syms := newSymbolTable(16)

	syms.define("c", 10, symConstant, "test", 1)

	// Redefinition without force fails and leaves the value alone.
	if syms.define("c", 20, symDefined, "test", 2) != nil {
		t.Error("constant redefinition must fail")
	}
	if syms.lookup("c").value != 10 {
		t.Error("failed redefinition must not change the value")
	}

	// Force-update succeeds and clears the constant flag.
	sym := syms.define("c", 30, symDefined|symForceUpdate, "test", 3)
	if sym == nil || sym.value != 30 {
		t.Fatal("force-update must succeed")
	}
	if sym.flags&symConstant != 0 {
		t.Error("force-update must clear the CONSTANT flag")
	}
	if sym.flags&symForceUpdate != 0 {
		t.Error("the FORCE_UPDATE flag must not persist")
	}

	// After the force, plain redefinition works.
	if syms.define("c", 40, symDefined, "test", 4) == nil {
		t.Error("redefinition after force-update must succeed")
	}
}

func TestSymbolReference(t *testing.T) {
	syms := newSymbolTable(16)

	sym := syms.reference("later", "test", 1)
	if sym == nil || sym.flags&symReferenced == 0 {
		t.Fatal("reference must create a REFERENCED entry")
	}
	if sym.flags&symDefined != 0 {
		t.Error("referenced-only symbol must not be DEFINED")
	}

	syms.define("later", 5, 0, "test", 2)
	if sym.value != 5 || sym.flags&symDefined == 0 {
		t.Error("define must update the referenced entry in place")
	}
}

func TestSortedDefined(t *testing.T) {
	syms := newSymbolTable(4) // tiny table forces chain collisions

	syms.define("delta", 0x3000, 0, "test", 1)
	syms.define("alpha", 0x1000, 0, "test", 2)
	syms.define("bravo", 0x2000, 0, "test", 3)
	syms.define("charlie", 0x2000, 0, "test", 4)
	syms.reference("undefined", "test", 5)

	sorted := syms.sortedDefined()
	want := []string{"alpha", "bravo", "charlie", "delta"}
	if len(sorted) != len(want) {
		t.Fatalf("got %d symbols, want %d", len(sorted), len(want))
	}
	for i, name := range want {
		if sorted[i].displayName != name {
			t.Errorf("position %d: got %s, want %s", i, sorted[i].displayName, name)
		}
	}
}

func TestMangleLocal(t *testing.T) {
	if got := mangleLocal(".loop", "irq"); got != "irq.loop" {
		t.Errorf("got %q, want %q", got, "irq.loop")
	}
	if got := mangleLocal(".loop", ""); got != "_global.loop" {
		t.Errorf("got %q, want %q", got, "_global.loop")
	}
}

func TestAnonBackward(t *testing.T) {
	anon := newAnonLabels()
	anon.defineBackward(0x1000, "test", 1)
	anon.defineBackward(0x1020, "test", 2)
	anon.defineBackward(0x1040, "test", 3)

	cases := []struct {
		count int
		addr  uint16
		ok    bool
	}{
		{1, 0x1040, true},
		{2, 0x1020, true},
		{3, 0x1000, true},
		{4, 0, false},
		{0, 0, false},
	}
	for _, c := range cases {
		addr, ok := anon.resolveBackward(c.count)
		if ok != c.ok || addr != c.addr {
			t.Errorf("resolveBackward(%d) = %04X, %v; want %04X, %v",
				c.count, addr, ok, c.addr, c.ok)
		}
	}
}

func TestAnonForwardCursor(t *testing.T) {
	anon := newAnonLabels()
	anon.defineForward(0x1000, "test", 1)
	anon.defineForward(0x1020, "test", 2)

	if addr, ok := anon.resolveForward(1); !ok || addr != 0x1000 {
		t.Errorf("resolveForward(1) = %04X, %v", addr, ok)
	}
	if addr, ok := anon.resolveForward(2); !ok || addr != 0x1020 {
		t.Errorf("resolveForward(2) = %04X, %v", addr, ok)
	}

	anon.advanceForward()
	if addr, ok := anon.resolveForward(1); !ok || addr != 0x1020 {
		t.Errorf("after advance, resolveForward(1) = %04X, %v", addr, ok)
	}

	anon.advanceForward()
	if _, ok := anon.resolveForward(1); ok {
		t.Error("cursor past the end must not resolve")
	}
}

func TestAnonResetPass(t *testing.T) {
	anon := newAnonLabels()
	anon.defineForward(0x1000, "test", 1)
	anon.defineBackward(0x2000, "test", 2)
	anon.advanceForward()

	anon.resetPass()

	// Forward definitions survive the pass boundary; the cursor and
	// the backward list do not.
	if addr, ok := anon.resolveForward(1); !ok || addr != 0x1000 {
		t.Error("forward list must be preserved across passes")
	}
	if _, ok := anon.resolveBackward(1); ok {
		t.Error("backward list must be cleared between passes")
	}
}
