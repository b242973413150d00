// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// asciiToPetscii converts one ASCII byte to PETSCII as used by the !pet
// directive. Letters fold to the uppercase PETSCII range 0x41-0x5A,
// space/punctuation/digits in 0x20-0x3F pass through, and a handful of
// punctuation characters have fixed mappings. Anything else, including
// control codes and bytes above 0x7F, passes through unchanged.
func asciiToPetscii(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c
	}
	if c >= 'a' && c <= 'z' {
		return c - 0x20
	}

	switch c {
	case '@':
		return 0x40
	case '[':
		return 0x5b
	case '\\':
		return 0x5c // British pound
	case ']':
		return 0x5d
	case '^':
		return 0x5e // up arrow
	case '_':
		return 0xa4
	case '`':
		return 0x27
	case '{':
		return 0x5b
	case '|':
		return 0x7c
	case '}':
		return 0x5d
	case '~':
		return 0x7e
	}
	return c
}

// Screen codes are the VIC-II character indices written directly into
// screen RAM: '@' is 0, A-Z are 1-26, space and punctuation keep their
// ASCII positions in 0x20-0x3F, and control codes display as '?' except
// NUL, which maps to a space.
var asciiToScreencodeTable = [128]byte{
	// 0x00-0x0F
	0x20, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	// 0x10-0x1F
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f, 0x3f,
	// 0x20-0x2F: space and punctuation
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27,
	0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f,
	// 0x30-0x3F: digits and punctuation
	0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37,
	0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f,
	// 0x40-0x5F: @, A-Z, [, \, ], ^, _
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
	0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
	// 0x60-0x7F: lowercase folds to uppercase, DEL is '?'
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
	0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x3f,
}

// asciiToScreencode converts one ASCII byte to a C64 screen code as used
// by the !scr directive.
func asciiToScreencode(c byte) byte {
	if c < 128 {
		return asciiToScreencodeTable[c]
	}
	return c & 0x7f
}
