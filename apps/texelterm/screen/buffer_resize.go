// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_resize.go
// Summary: Resize with logical-line reflow for the main screen.
// Usage: Part of Buffer.
// Notes: Absolute row numbers are not preserved across a reflow.

package screen

// Resize changes the grid size. The main screen re-wraps soft-wrapped
// logical lines to the new width and keeps the cursor on the same logical
// position; rows that no longer fit flow into the scrollback. The alternate
// screen is truncated or padded.
func (b *Buffer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b.mutate(func() {
		if width == b.width && height == b.height {
			return
		}
		if b.inAlt {
			b.alt = resizeGrid(b.alt, width, height, b.style)
			x, y := b.reflowMain(b.savedMain.x, b.savedMain.y, width, height)
			b.savedMain.x, b.savedMain.y = x, y
			b.cursorX = clamp(b.cursorX, 0, width-1)
			b.cursorY = clamp(b.cursorY, 0, height-1)
		} else {
			b.cursorX, b.cursorY = b.reflowMain(b.cursorX, b.cursorY, width, height)
		}
		b.width, b.height = width, height
		b.top, b.bottom = 0, height
		b.wrapPending = false
		b.resetTabStops()
		b.touch()
	})
}

func resizeGrid(lines []*Line, width, height int, st Style) []*Line {
	out := make([]*Line, height)
	for y := range out {
		if y < len(lines) {
			out[y] = fitLine(lines[y], width, st)
			continue
		}
		out[y] = newLine(width, st)
	}
	return out
}

func fitLine(l *Line, width int, st Style) *Line {
	cells := make([]Cell, width)
	n := copy(cells, l.Cells)
	nl := &Line{Cells: cells, Wrapped: l.Wrapped && n == len(l.Cells)}
	nl.fill(n, width, st)
	if width > 0 && cells[width-1].Wide {
		cells[width-1] = blank(cells[width-1].Style)
	}
	return nl
}

// reflowMain rebuilds history and main screen for the new size and returns
// the new cursor position for the given old one.
func (b *Buffer) reflowMain(cx, cy, width, height int) (int, int) {
	var all []*Line
	for i := 0; i < b.history.Len(); i++ {
		all = append(all, b.history.At(i))
	}
	histLen := len(all)
	last := cy
	for y := len(b.main) - 1; y > cy; y-- {
		if !b.main[y].IsBlank() || b.main[y-1].Wrapped {
			last = y
			break
		}
	}
	for y := 0; y <= last && y < len(b.main); y++ {
		all = append(all, b.main[y])
	}
	cursorRow := histLen + cy

	var out []*Line
	newCursorRow, newCursorX := 0, 0
	for i := 0; i < len(all); {
		// Gather one logical line.
		var cells []Cell
		cursorOff := -1
		j := i
		for ; j < len(all); j++ {
			l := all[j]
			if j == cursorRow {
				cursorOff = len(cells) + cx
			}
			if l.Wrapped && j+1 < len(all) {
				cells = append(cells, l.Cells...)
				continue
			}
			cells = append(cells, trimBlankTail(l.Cells)...)
			break
		}
		for cursorOff >= len(cells) {
			cells = append(cells, blank(DefaultStyle))
		}
		rows, cr, cc := wrapCells(cells, width, cursorOff)
		if cursorOff >= 0 {
			newCursorRow, newCursorX = len(out)+cr, cc
		}
		out = append(out, rows...)
		i = j + 1
	}

	start := len(out) - height
	if start < 0 {
		start = 0
	}
	if newCursorRow < start {
		start = newCursorRow
	}
	if newCursorRow-start >= height {
		start = newCursorRow - height + 1
	}

	hist := newScrollback(b.history.Cap())
	hist.dropped = b.history.dropped
	for _, l := range out[:start] {
		hist.Push(l)
	}
	b.history = hist

	screenLines := make([]*Line, height)
	for y := 0; y < height; y++ {
		if start+y < len(out) {
			screenLines[y] = out[start+y]
		} else {
			screenLines[y] = newLine(width, DefaultStyle)
		}
	}
	b.main = screenLines
	return clamp(newCursorX, 0, width-1), clamp(newCursorRow-start, 0, height-1)
}

// wrapCells splits a logical line into physical lines of the given width,
// never splitting a wide rune. It returns where cursorOff lands.
func wrapCells(cells []Cell, width, cursorOff int) (rows []*Line, cursorRow, cursorCol int) {
	if cursorOff > 0 && cursorOff < len(cells) && cells[cursorOff].Rune == 0 && cells[cursorOff-1].Wide {
		cursorOff--
	}
	cur := &Line{Cells: make([]Cell, 0, width)}
	for i := 0; i < len(cells); i++ {
		c := cells[i]
		need := 1
		if c.Wide {
			need = 2
		}
		if len(cur.Cells)+need > width && len(cur.Cells) > 0 {
			cur.Wrapped = true
			rows = append(rows, cur)
			cur = &Line{Cells: make([]Cell, 0, width)}
		}
		if i == cursorOff {
			cursorRow, cursorCol = len(rows), len(cur.Cells)
		}
		cur.Cells = append(cur.Cells, c)
		if c.Wide {
			i++
			cont := Cell{Style: c.Style}
			if i < len(cells) {
				cont = cells[i]
			}
			if width > 1 {
				cur.Cells = append(cur.Cells, cont)
			} else {
				cur.Cells[len(cur.Cells)-1].Wide = false
			}
		}
	}
	rows = append(rows, cur)
	for _, r := range rows {
		pad := width - len(r.Cells)
		for ; pad > 0; pad-- {
			r.Cells = append(r.Cells, blank(DefaultStyle))
		}
	}
	return rows, cursorRow, cursorCol
}

func trimBlankTail(cells []Cell) []Cell {
	n := len(cells)
	for n > 0 && cells[n-1].Rune == ' ' && cells[n-1].Style.BG == DefaultBG {
		n--
	}
	return cells[:n]
}
