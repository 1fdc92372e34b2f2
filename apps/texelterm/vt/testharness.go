// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/vt/testharness.go
// Summary: Test harness wiring Decoder, Controller and a screen.Buffer.
// Usage: Used by test files to send sequences and verify buffer state.

package vt

import (
	"bytes"
	"testing"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

// TestHarness feeds byte sequences through the full decode path.
type TestHarness struct {
	Buf     *screen.Buffer
	Ctrl    *Controller
	Dec     *Decoder
	Replies bytes.Buffer
	Titles  []string
	Markers []string
	Bells   int
}

// NewTestHarness creates a harness with a width x height buffer.
func NewTestHarness(width, height int, opts ...screen.Option) *TestHarness {
	h := &TestHarness{Buf: screen.NewBuffer(width, height, opts...)}
	h.Ctrl = NewController(h.Buf,
		WithReply(&h.Replies),
		WithTitle(func(s string) { h.Titles = append(h.Titles, s) }),
		WithShellMarker(func(s string) { h.Markers = append(h.Markers, s) }),
		WithBell(func() { h.Bells++ }),
	)
	h.Dec = NewDecoder(h.Ctrl, nil)
	return h
}

// SendSeq feeds raw bytes, control sequences included.
func (h *TestHarness) SendSeq(seq string) {
	h.Dec.WriteString(seq)
}

// Cell returns the screen cell at (x, y), or the zero Cell out of bounds.
func (h *TestHarness) Cell(x, y int) screen.Cell {
	l, ok := h.Buf.Line(y)
	if !ok || x < 0 || x >= len(l.Cells) {
		return screen.Cell{}
	}
	return l.Cells[x]
}

// AssertRune verifies that a cell contains the expected rune.
func (h *TestHarness) AssertRune(t *testing.T, x, y int, expected rune) {
	t.Helper()
	if got := h.Cell(x, y).Rune; got != expected {
		t.Errorf("Cell[%d,%d] rune: expected %q, got %q\n%s", x, y, expected, got, h.Buf.Dump())
	}
}

// AssertText verifies a run of cells starting at (x, y).
func (h *TestHarness) AssertText(t *testing.T, x, y int, expected string) {
	t.Helper()
	for i, r := range []rune(expected) {
		h.AssertRune(t, x+i, y, r)
	}
}

// AssertLine verifies the full text of row y, trailing blanks removed.
func (h *TestHarness) AssertLine(t *testing.T, y int, expected string) {
	t.Helper()
	if got := h.Buf.LineText(y); got != expected {
		t.Errorf("Line %d: expected %q, got %q\n%s", y, expected, got, h.Buf.Dump())
	}
}

// AssertBlank verifies that a cell is blank.
func (h *TestHarness) AssertBlank(t *testing.T, x, y int) {
	t.Helper()
	if r := h.Cell(x, y).Rune; r != ' ' && r != 0 {
		t.Errorf("Cell[%d,%d] should be blank, got %q", x, y, r)
	}
}

// AssertCursor verifies the cursor position.
func (h *TestHarness) AssertCursor(t *testing.T, x, y int) {
	t.Helper()
	gx, gy := h.Buf.Cursor()
	if gx != x || gy != y {
		t.Errorf("Cursor position: expected (%d,%d), got (%d,%d)", x, y, gx, gy)
	}
}

// AssertScrollRegion verifies the region as 0-based top, exclusive bottom.
func (h *TestHarness) AssertScrollRegion(t *testing.T, top, bottom int) {
	t.Helper()
	gt, gb := h.Buf.ScrollingRegion()
	if gt != top || gb != bottom {
		t.Errorf("Scroll region: expected [%d,%d), got [%d,%d)", top, bottom, gt, gb)
	}
}

// FillRows writes one text per row starting at the top, leaving the cursor
// after the last text.
func (h *TestHarness) FillRows(rows ...string) {
	h.SendSeq("\x1b[H")
	for i, r := range rows {
		if i > 0 {
			h.SendSeq("\r\n")
		}
		h.SendSeq(r)
	}
}
