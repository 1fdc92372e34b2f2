// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_scroll.go
// Summary: Line feeds, index operations and scrolling within margins.
// Usage: Part of Buffer.

package screen

// index moves the cursor down one row, scrolling the region when the cursor
// sits on its bottom margin.
func (b *Buffer) index() {
	b.wrapPending = false
	switch {
	case b.cursorY == b.bottom-1:
		b.scrollUp(1)
	case b.cursorY < b.height-1:
		b.cursorY++
	}
	b.touch()
}

// reverseIndex moves the cursor up one row, scrolling the region down when
// the cursor sits on its top margin.
func (b *Buffer) reverseIndex() {
	b.wrapPending = false
	switch {
	case b.cursorY == b.top:
		b.scrollDown(1)
	case b.cursorY > 0:
		b.cursorY--
	}
	b.touch()
}

// scrollUp shifts the region up by n lines. On the main screen with the
// region anchored at the top, departing lines enter the scrollback.
func (b *Buffer) scrollUp(n int) {
	size := b.bottom - b.top
	if n > size {
		n = size
	}
	if n <= 0 {
		return
	}
	lines := b.lines()
	toHistory := !b.inAlt && b.top == 0
	for i := 0; i < n; i++ {
		if toHistory {
			b.history.Push(lines[b.top+i])
		}
	}
	copy(lines[b.top:b.bottom-n], lines[b.top+n:b.bottom])
	for y := b.bottom - n; y < b.bottom; y++ {
		lines[y] = newLine(b.width, b.style)
	}
	b.touch()
}

// scrollDown shifts the region down by n lines, inserting blanks at the top.
func (b *Buffer) scrollDown(n int) {
	size := b.bottom - b.top
	if n > size {
		n = size
	}
	if n <= 0 {
		return
	}
	lines := b.lines()
	copy(lines[b.top+n:b.bottom], lines[b.top:b.bottom-n])
	for y := b.top; y < b.top+n; y++ {
		lines[y] = newLine(b.width, b.style)
	}
	b.touch()
}

// NewLine handles LF, VT and FF. With line-feed/new-line mode it also
// returns the carriage.
func (b *Buffer) NewLine() {
	b.mutate(func() {
		b.index()
		if b.modes.LineFeedNewLine {
			b.cursorX = 0
		}
	})
}

// Index handles IND.
func (b *Buffer) Index() {
	b.mutate(b.index)
}

// ReverseIndex handles RI.
func (b *Buffer) ReverseIndex() {
	b.mutate(b.reverseIndex)
}

// NextLine handles NEL: carriage return plus index.
func (b *Buffer) NextLine() {
	b.mutate(func() {
		b.cursorX = 0
		b.index()
	})
}

// CarriageReturn moves the cursor to the first column.
func (b *Buffer) CarriageReturn() {
	b.mutate(func() {
		b.wrapPending = false
		b.cursorX = 0
		b.touch()
	})
}

// Backspace moves the cursor one column left without erasing.
func (b *Buffer) Backspace() {
	b.mutate(func() {
		b.wrapPending = false
		if b.cursorX > 0 {
			b.cursorX--
		}
		b.touch()
	})
}

// Tab advances the cursor to the n-th next tab stop.
func (b *Buffer) Tab(n int) {
	if n < 1 {
		n = 1
	}
	b.mutate(func() {
		b.wrapPending = false
		for ; n > 0; n-- {
			x := b.cursorX + 1
			for x < b.width-1 && !b.tabStops[x] {
				x++
			}
			if x > b.width-1 {
				x = b.width - 1
			}
			b.cursorX = x
		}
		b.touch()
	})
}

// BackTab moves the cursor to the n-th previous tab stop.
func (b *Buffer) BackTab(n int) {
	if n < 1 {
		n = 1
	}
	b.mutate(func() {
		b.wrapPending = false
		for ; n > 0; n-- {
			x := b.cursorX - 1
			for x > 0 && !b.tabStops[x] {
				x--
			}
			if x < 0 {
				x = 0
			}
			b.cursorX = x
		}
		b.touch()
	})
}

// SetTabStop sets a tab stop at the cursor column (HTS).
func (b *Buffer) SetTabStop() {
	b.mutate(func() { b.tabStops[b.cursorX] = true })
}

// ClearTabStop clears the stop at the cursor (mode 0) or all stops (mode 3).
func (b *Buffer) ClearTabStop(mode int) {
	b.mutate(func() {
		switch mode {
		case 0:
			delete(b.tabStops, b.cursorX)
		case 3:
			b.tabStops = make(map[int]bool)
		default:
			b.log.Warn("screen: ignoring tab clear", "mode", mode)
		}
	})
}

// ScrollUp handles SU.
func (b *Buffer) ScrollUp(n int) {
	if !b.validCount("scroll up", &n) {
		return
	}
	b.mutate(func() {
		b.wrapPending = false
		b.scrollUp(n)
	})
}

// ScrollDown handles SD.
func (b *Buffer) ScrollDown(n int) {
	if !b.validCount("scroll down", &n) {
		return
	}
	b.mutate(func() {
		b.wrapPending = false
		b.scrollDown(n)
	})
}

// SetScrollingRegion handles DECSTBM. top and bottom are 1-based inclusive
// as decoded; 0 selects the default edge. Invalid regions are ignored.
func (b *Buffer) SetScrollingRegion(top, bottom int) {
	b.mutate(func() {
		t, bt := top, bottom
		if t <= 0 {
			t = 1
		}
		if bt <= 0 || bt > b.height {
			bt = b.height
		}
		if t >= bt {
			b.log.Warn("screen: ignoring invalid scrolling region", "top", top, "bottom", bottom, "height", b.height)
			return
		}
		b.top, b.bottom = t-1, bt
		b.wrapPending = false
		b.cursorX = 0
		if b.modes.Origin {
			b.cursorY = b.top
		} else {
			b.cursorY = 0
		}
		b.touch()
	})
}

// validCount normalizes a repeat count: 0 means 1, negatives are logged and
// rejected.
func (b *Buffer) validCount(op string, n *int) bool {
	if *n < 0 {
		b.log.Warn("screen: ignoring negative count", "op", op, "n", *n)
		return false
	}
	if *n == 0 {
		*n = 1
	}
	return true
}
