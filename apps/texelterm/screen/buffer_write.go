// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_write.go
// Summary: Character placement with deferred auto-wrap and wide runes.
// Usage: Part of Buffer; Write is the entry point for printable text.

package screen

import "github.com/mattn/go-runewidth"

// Write places printable text at the cursor using the current style.
// Control runes are ignored; the decoder routes them to their own operations.
func (b *Buffer) Write(text string) {
	if text == "" {
		return
	}
	b.mutate(func() {
		for _, r := range text {
			if r < 0x20 || r == 0x7f {
				continue
			}
			b.placeRune(r)
		}
		b.touch()
	})
}

// placeRune puts one rune at the cursor. A rune landing in the last column
// leaves the wrap pending; the next rune then soft-wraps the line.
func (b *Buffer) placeRune(r rune) {
	r = b.charsets.translate(r)
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if w > 1 && b.width < 2 {
		w = 1
	}

	if b.wrapPending {
		b.wrapPending = false
		if b.modes.AutoWrap {
			b.softWrap()
		}
	}
	if w == 2 && b.cursorX == b.width-1 {
		if !b.modes.AutoWrap {
			return
		}
		b.line(b.cursorY).Cells[b.cursorX] = blank(b.style)
		b.softWrap()
	}

	l := b.line(b.cursorY)
	x := b.cursorX
	if b.modes.Insert {
		shiftRight(l.Cells, x, w, b.style)
	}
	b.splitWideAt(l, x)
	if w == 2 {
		b.splitWideAt(l, x+1)
	}
	l.Cells[x] = Cell{Rune: r, Style: b.style, Wide: w == 2}
	if w == 2 {
		l.Cells[x+1] = Cell{Rune: 0, Style: b.style}
	}

	if x+w >= b.width {
		b.cursorX = b.width - 1
		b.wrapPending = b.modes.AutoWrap
		return
	}
	b.cursorX = x + w
}

// softWrap tags the current line as wrapped and continues on the next one.
func (b *Buffer) softWrap() {
	b.line(b.cursorY).Wrapped = true
	b.cursorX = 0
	b.index()
}

// splitWideAt blanks the other half of a wide rune about to be overwritten.
func (b *Buffer) splitWideAt(l *Line, x int) {
	if x < 0 || x >= len(l.Cells) {
		return
	}
	c := l.Cells[x]
	if c.Wide && x+1 < len(l.Cells) {
		l.Cells[x+1] = blank(c.Style)
	}
	if c.Rune == 0 && x > 0 && l.Cells[x-1].Wide {
		l.Cells[x-1] = blank(l.Cells[x-1].Style)
	}
}

// shiftRight moves cells from x on n columns to the right, dropping what
// falls off the end, and blanks the gap.
func shiftRight(cells []Cell, x, n int, st Style) {
	if x >= len(cells) {
		return
	}
	if n > len(cells)-x {
		n = len(cells) - x
	}
	copy(cells[x+n:], cells[x:len(cells)-n])
	b := blank(st)
	for i := x; i < x+n; i++ {
		cells[i] = b
	}
}

// shiftLeft removes n cells at x, pulling the rest left and blanking the tail.
func shiftLeft(cells []Cell, x, n int, st Style) {
	if x >= len(cells) {
		return
	}
	if n > len(cells)-x {
		n = len(cells) - x
	}
	copy(cells[x:], cells[x+n:])
	b := blank(st)
	for i := len(cells) - n; i < len(cells); i++ {
		cells[i] = b
	}
}
