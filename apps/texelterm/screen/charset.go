// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/charset.go
// Summary: G0-G3 charset designation and DEC special graphics mapping.

package screen

// Charset identifies a designated character set.
type Charset int

const (
	CharsetASCII Charset = iota
	CharsetDECSpecialGraphics
	CharsetUK
)

type charsetState struct {
	slots  [4]Charset
	active int
}

func defaultCharsets() charsetState {
	return charsetState{}
}

func (c charsetState) translate(r rune) rune {
	switch c.slots[c.active] {
	case CharsetDECSpecialGraphics:
		if m, ok := decSpecialGraphics[r]; ok {
			return m
		}
	case CharsetUK:
		if r == '#' {
			return '£'
		}
	}
	return r
}

var decSpecialGraphics = map[rune]rune{
	'`': '◆', 'a': '▒', 'b': '␉', 'c': '␌', 'd': '␍', 'e': '␊',
	'f': '°', 'g': '±', 'h': '␤', 'i': '␋', 'j': '┘', 'k': '┐',
	'l': '┌', 'm': '└', 'n': '┼', 'o': '⎺', 'p': '⎻', 'q': '─',
	'r': '⎼', 's': '⎽', 't': '├', 'u': '┤', 'v': '┴', 'w': '┬',
	'x': '│', 'y': '≤', 'z': '≥', '{': 'π', '|': '≠', '}': '£',
	'~': '·',
}

// DesignateCharset assigns cs to slot G0..G3.
func (b *Buffer) DesignateCharset(slot int, cs Charset) {
	b.mutate(func() {
		if slot < 0 || slot > 3 {
			b.log.Warn("screen: charset slot out of range", "slot", slot)
			return
		}
		b.charsets.slots[slot] = cs
	})
}

// InvokeCharset makes slot the active GL set (SI/SO, LS2/LS3).
func (b *Buffer) InvokeCharset(slot int) {
	b.mutate(func() {
		if slot < 0 || slot > 3 {
			b.log.Warn("screen: charset slot out of range", "slot", slot)
			return
		}
		b.charsets.active = slot
	})
}
