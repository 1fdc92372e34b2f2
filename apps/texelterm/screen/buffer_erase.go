// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_erase.go
// Summary: Erase operations - display, line, and character erasing.
// Usage: Part of Buffer.

package screen

// EraseInLine handles EL: 0 erases from the cursor to the end of the line,
// 1 from the start to the cursor, 2 the whole line.
func (b *Buffer) EraseInLine(arg int) {
	b.mutate(func() {
		if !b.eraseLine(b.cursorY, arg) {
			b.log.Warn("screen: ignoring erase in line", "arg", arg)
		}
	})
}

func (b *Buffer) eraseLine(y, arg int) bool {
	l := b.line(y)
	switch arg {
	case 0:
		l.fill(b.cursorX, b.width, b.style)
		l.Wrapped = false
	case 1:
		l.fill(0, b.cursorX+1, b.style)
	case 2:
		l.fill(0, b.width, b.style)
		l.Wrapped = false
	default:
		return false
	}
	b.wrapPending = false
	b.touch()
	return true
}

// EraseInDisplay handles ED: 0 erases from the cursor to the end of the
// screen, 1 from the start to the cursor, 2 the whole screen, 3 the
// scrollback.
func (b *Buffer) EraseInDisplay(arg int) {
	b.mutate(func() {
		switch arg {
		case 0:
			b.eraseLine(b.cursorY, 0)
			for y := b.cursorY + 1; y < b.height; y++ {
				b.eraseLine(y, 2)
			}
		case 1:
			for y := 0; y < b.cursorY; y++ {
				b.eraseLine(y, 2)
			}
			b.eraseLine(b.cursorY, 1)
		case 2:
			for y := 0; y < b.height; y++ {
				b.eraseLine(y, 2)
			}
		case 3:
			if !b.inAlt {
				b.history.Clear()
				b.touch()
			}
		default:
			b.log.Warn("screen: ignoring erase in display", "arg", arg)
		}
	})
}

// EraseCharacters handles ECH: blanks n cells from the cursor without
// moving it.
func (b *Buffer) EraseCharacters(n int) {
	if !b.validCount("erase characters", &n) {
		return
	}
	b.mutate(func() {
		l := b.line(b.cursorY)
		b.splitWideAt(l, b.cursorX)
		end := min(b.cursorX+n, b.width)
		if end < b.width && l.Cells[end].Rune == 0 && l.Cells[end-1].Wide {
			l.Cells[end] = blank(l.Cells[end].Style)
		}
		l.fill(b.cursorX, end, b.style)
		b.wrapPending = false
		b.touch()
	})
}
