// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_cursor.go
// Summary: Cursor motion, positioning and save/restore.
// Usage: Part of Buffer. Coordinates are 0-based.

package screen

// CursorUp moves the cursor up n rows, stopping at the top margin when the
// cursor starts inside the scrolling region.
func (b *Buffer) CursorUp(n int) {
	if !b.validCount("cursor up", &n) {
		return
	}
	b.mutate(func() {
		limit := 0
		if b.cursorY >= b.top {
			limit = b.top
		}
		b.setCursor(b.cursorX, max(b.cursorY-n, limit))
	})
}

// CursorDown moves the cursor down n rows, stopping at the bottom margin
// when the cursor starts inside the scrolling region.
func (b *Buffer) CursorDown(n int) {
	if !b.validCount("cursor down", &n) {
		return
	}
	b.mutate(func() {
		limit := b.height - 1
		if b.cursorY < b.bottom {
			limit = b.bottom - 1
		}
		b.setCursor(b.cursorX, min(b.cursorY+n, limit))
	})
}

// CursorForward moves the cursor right n columns.
func (b *Buffer) CursorForward(n int) {
	if !b.validCount("cursor forward", &n) {
		return
	}
	b.mutate(func() { b.setCursor(b.cursorX+n, b.cursorY) })
}

// CursorBackward moves the cursor left n columns.
func (b *Buffer) CursorBackward(n int) {
	if !b.validCount("cursor backward", &n) {
		return
	}
	b.mutate(func() { b.setCursor(b.cursorX-n, b.cursorY) })
}

// CursorPosition moves the cursor to (row, col). In origin mode the row is
// relative to the scrolling region and confined to it.
func (b *Buffer) CursorPosition(row, col int) {
	b.mutate(func() { b.setCursor(col, b.originRow(row)) })
}

// CursorColumn moves the cursor to col on the current row (CHA/HPA).
func (b *Buffer) CursorColumn(col int) {
	b.mutate(func() { b.setCursor(col, b.cursorY) })
}

// CursorRow moves the cursor to row keeping the column (VPA).
func (b *Buffer) CursorRow(row int) {
	b.mutate(func() { b.setCursor(b.cursorX, b.originRow(row)) })
}

func (b *Buffer) originRow(row int) int {
	if !b.modes.Origin {
		return row
	}
	row += b.top
	if row >= b.bottom {
		row = b.bottom - 1
	}
	if row < b.top {
		row = b.top
	}
	return row
}

// setCursor clamps and applies a cursor position.
func (b *Buffer) setCursor(x, y int) {
	x = clamp(x, 0, b.width-1)
	y = clamp(y, 0, b.height-1)
	if x != b.cursorX || y != b.cursorY {
		b.wrapPending = false
	}
	b.cursorX, b.cursorY = x, y
	b.touch()
}

// SaveCursor snapshots position, style, auto-wrap, origin mode and charset
// mapping (DECSC). Main and alternate screens have separate slots.
func (b *Buffer) SaveCursor() {
	b.mutate(b.saveCursor)
}

func (b *Buffer) saveCursor() {
	s := savedCursor{
		x:        b.cursorX,
		y:        b.cursorY,
		style:    b.style,
		autoWrap: b.modes.AutoWrap,
		origin:   b.modes.Origin,
		charsets: b.charsets,
		valid:    true,
	}
	if b.inAlt {
		b.savedAlt = s
	} else {
		b.savedMain = s
	}
}

// RestoreCursor restores the DECSC snapshot. Without one it homes the
// cursor and resets rendition, like xterm.
func (b *Buffer) RestoreCursor() {
	b.mutate(b.restoreCursor)
}

func (b *Buffer) restoreCursor() {
	s := b.savedMain
	if b.inAlt {
		s = b.savedAlt
	}
	if !s.valid {
		s = savedCursor{style: DefaultStyle, autoWrap: true, charsets: defaultCharsets()}
	}
	b.style = s.style
	b.modes.AutoWrap = s.autoWrap
	b.modes.Origin = s.origin
	b.charsets = s.charsets
	b.wrapPending = false
	b.cursorX = clamp(s.x, 0, b.width-1)
	b.cursorY = clamp(s.y, 0, b.height-1)
	if b.modes.Origin {
		b.cursorY = clamp(b.cursorY, b.top, b.bottom-1)
	}
	b.touch()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
