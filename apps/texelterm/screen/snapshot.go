// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/snapshot.go
// Summary: Read-side copies of buffer content for the UI loop and scrapers.
// Usage: Taken briefly under the content lock; safe to use afterwards.

package screen

import "strings"

// Snapshot is an immutable copy of buffer content.
type Snapshot struct {
	Width, Height    int
	CursorX, CursorY int
	AlternateScreen  bool
	// FirstRow is the absolute row number of Lines[0].
	FirstRow int64
	// Lines holds scrollback followed by the screen rows on the main screen,
	// or only the screen rows on the alternate screen.
	Lines []Line
	// ScreenStart is the index in Lines of screen row 0.
	ScreenStart int
}

// Snapshot copies the whole buffer.
func (b *Buffer) Snapshot() Snapshot {
	return b.SnapshotFrom(-1)
}

// SnapshotFrom copies content starting at absolute row from (clamped to the
// oldest retained line). On the alternate screen only screen rows are
// returned and from is ignored.
func (b *Buffer) SnapshotFrom(from int64) (s Snapshot) {
	b.read(func() {
		s = Snapshot{
			Width:           b.width,
			Height:          b.height,
			CursorX:         b.cursorX,
			CursorY:         b.cursorY,
			AlternateScreen: b.inAlt,
		}
		if b.inAlt {
			s.FirstRow = 0
			for _, l := range b.alt {
				s.Lines = append(s.Lines, l.clone())
			}
			return
		}
		first := b.history.firstAbs()
		if from < first {
			from = first
		}
		s.FirstRow = from
		histLen := int64(b.history.Len())
		for i := from - first; i < histLen; i++ {
			s.Lines = append(s.Lines, b.history.At(int(i)).clone())
		}
		s.ScreenStart = len(s.Lines)
		screenFrom := int64(0)
		if from > first+histLen {
			screenFrom = from - first - histLen
			s.ScreenStart = -int(screenFrom)
		}
		for y := screenFrom; y < int64(b.height); y++ {
			s.Lines = append(s.Lines, b.main[y].clone())
		}
	})
	return s
}

// CursorLine describes the logical line under the cursor.
type CursorLine struct {
	// Text is the logical line across soft wraps, trailing blanks removed.
	Text string
	// Offset is the cursor position in runes within Text's cells; it may
	// exceed len(Text) when the cursor sits past the last non-blank cell.
	Offset int
	// Row is the cursor's absolute row; Start and End are the absolute
	// rows of the first and last physical lines of the logical line.
	Row        int64
	Start, End int64
}

// Prefix returns the text before the cursor.
func (c CursorLine) Prefix() string {
	r := []rune(c.Text)
	if c.Offset >= len(r) {
		return c.Text + strings.Repeat(" ", c.Offset-len(r))
	}
	return string(r[:c.Offset])
}

// CursorLine returns the logical line containing the cursor.
func (b *Buffer) CursorLine() (cl CursorLine) {
	b.read(func() {
		lines := b.lines()
		start := b.cursorY
		for start > 0 && lines[start-1].Wrapped {
			start--
		}
		end := b.cursorY
		for end < len(lines)-1 && lines[end].Wrapped {
			end++
		}
		var sb strings.Builder
		offset := 0
		for y := start; y <= end; y++ {
			for x, c := range lines[y].Cells {
				if y == b.cursorY && x == b.cursorX {
					offset = len([]rune(sb.String()))
				}
				if c.Rune == 0 {
					continue
				}
				sb.WriteRune(c.Rune)
			}
		}
		full := sb.String()
		cl.Text = strings.TrimRight(full, " ")
		cl.Offset = offset
		cl.Row, cl.Start, cl.End = b.absRow(b.cursorY), b.absRow(start), b.absRow(end)
		if b.wrapPending && b.cursorY == end {
			cl.Offset = len([]rune(full))
		}
	})
	return cl
}

// Text returns the snapshot as plain text, soft-wrapped lines joined and
// trailing blank lines dropped.
func (s Snapshot) Text() string {
	var sb strings.Builder
	pending := 0
	for _, l := range s.Lines {
		t := l.Text()
		if l.Wrapped {
			t = cellText(l.Cells)
		}
		if t == "" && !l.Wrapped {
			pending++
			continue
		}
		for ; pending > 0; pending-- {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
		if !l.Wrapped {
			pending++
		}
	}
	return sb.String()
}
