// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_edit.go
// Summary: Line and character insertion/deletion within the scrolling region.
// Usage: Part of Buffer.

package screen

// InsertLines handles IL: inserts n blank lines at the cursor row, pushing
// lines below toward the bottom margin. No-op outside the region.
func (b *Buffer) InsertLines(n int) {
	if !b.validCount("insert lines", &n) {
		return
	}
	b.mutate(func() {
		if b.cursorY < b.top || b.cursorY >= b.bottom {
			return
		}
		top := b.top
		b.top = b.cursorY
		b.scrollDown(n)
		b.top = top
		b.cursorX = 0
		b.wrapPending = false
	})
}

// DeleteLines handles DL: removes n lines at the cursor row, pulling lines
// below up and blanking at the bottom margin. No-op outside the region.
// Deleted lines never enter the scrollback.
func (b *Buffer) DeleteLines(n int) {
	if !b.validCount("delete lines", &n) {
		return
	}
	b.mutate(func() {
		if b.cursorY < b.top || b.cursorY >= b.bottom {
			return
		}
		lines := b.lines()
		if n > b.bottom-b.cursorY {
			n = b.bottom - b.cursorY
		}
		copy(lines[b.cursorY:b.bottom-n], lines[b.cursorY+n:b.bottom])
		for y := b.bottom - n; y < b.bottom; y++ {
			lines[y] = newLine(b.width, b.style)
		}
		b.cursorX = 0
		b.wrapPending = false
		b.touch()
	})
}

// InsertCharacters handles ICH: shifts the rest of the line right by n.
func (b *Buffer) InsertCharacters(n int) {
	if !b.validCount("insert characters", &n) {
		return
	}
	b.mutate(func() {
		l := b.line(b.cursorY)
		b.splitWideAt(l, b.cursorX)
		shiftRight(l.Cells, b.cursorX, n, b.style)
		b.wrapPending = false
		b.touch()
	})
}

// DeleteCharacters handles DCH: removes n cells at the cursor, shifting the
// rest of the line left.
func (b *Buffer) DeleteCharacters(n int) {
	if !b.validCount("delete characters", &n) {
		return
	}
	b.mutate(func() {
		l := b.line(b.cursorY)
		b.splitWideAt(l, b.cursorX)
		shiftLeft(l.Cells, b.cursorX, n, b.style)
		l.Wrapped = false
		b.wrapPending = false
		b.touch()
	})
}

// Fill writes r over the whole screen (DECALN uses 'E').
func (b *Buffer) Fill(r rune) {
	b.mutate(func() {
		for _, l := range b.lines() {
			for x := range l.Cells {
				l.Cells[x] = Cell{Rune: r, Style: DefaultStyle}
			}
			l.Wrapped = false
		}
		b.top, b.bottom = 0, b.height
		b.cursorX, b.cursorY = 0, 0
		b.wrapPending = false
		b.touch()
	})
}
