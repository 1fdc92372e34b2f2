// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/vt/erase_test.go
// Summary: Erase, insert and delete sequences through the full decode path.
// Notes: Rows are filled with "ABCDEFGHIJ" on a 10x5 screen unless stated.

package vt

import "testing"

var fullRows = []string{"ABCDEFGHIJ", "ABCDEFGHIJ", "ABCDEFGHIJ", "ABCDEFGHIJ", "ABCDEFGHIJ"}

func TestEraseSequences(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*TestHarness)
		seq    string
		verify func(*testing.T, *TestHarness)
	}{
		{
			name:  "ED 0 - erase from cursor to end",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[3;6H") },
			seq:   "\x1b[J",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 1, "ABCDEFGHIJ")
				h.AssertLine(t, 2, "ABCDE")
				h.AssertLine(t, 3, "")
				h.AssertLine(t, 4, "")
				h.AssertCursor(t, 5, 2)
			},
		},
		{
			name:  "ED 1 - erase from start to cursor",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[3;6H") },
			seq:   "\x1b[1J",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "")
				h.AssertLine(t, 1, "")
				h.AssertLine(t, 2, "      GHIJ")
				h.AssertLine(t, 3, "ABCDEFGHIJ")
			},
		},
		{
			name:  "ED 2 - erase display keeps cursor",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[3;6H") },
			seq:   "\x1b[2J",
			verify: func(t *testing.T, h *TestHarness) {
				for y := 0; y < 5; y++ {
					h.AssertLine(t, y, "")
				}
				h.AssertCursor(t, 5, 2)
			},
		},
		{
			name:  "ED with invalid argument is ignored",
			setup: func(h *TestHarness) { h.FillRows(fullRows...) },
			seq:   "\x1b[7J",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABCDEFGHIJ")
				h.AssertLine(t, 4, "ABCDEFGHIJ")
			},
		},
		{
			name:  "EL 0",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;4H") },
			seq:   "\x1b[K",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABC")
				h.AssertLine(t, 1, "ABCDEFGHIJ")
			},
		},
		{
			name:  "EL 1",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;4H") },
			seq:   "\x1b[1K",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "    EFGHIJ")
			},
		},
		{
			name:  "EL 2",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;4H") },
			seq:   "\x1b[2K",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "")
				h.AssertCursor(t, 3, 0)
			},
		},
		{
			name:  "EL with invalid argument is ignored",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;4H") },
			seq:   "\x1b[5K",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABCDEFGHIJ")
			},
		},
		{
			name:  "ECH",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;3H") },
			seq:   "\x1b[3X",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "AB   FGHIJ")
				h.AssertCursor(t, 2, 0)
			},
		},
		{
			name:  "ECH past the right edge",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;8H") },
			seq:   "\x1b[50X",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABCDEFG")
			},
		},
		{
			name:  "ICH",
			setup: func(h *TestHarness) { h.SendSeq("ABCDEFGH\x1b[1;4H") },
			seq:   "\x1b[2@",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABC  DEFGH")
				h.AssertCursor(t, 3, 0)
			},
		},
		{
			name:  "ICH pushes cells off the edge",
			setup: func(h *TestHarness) { h.FillRows(fullRows...); h.SendSeq("\x1b[1;1H") },
			seq:   "\x1b[3@",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "   ABCDEFG")
			},
		},
		{
			name:  "DCH",
			setup: func(h *TestHarness) { h.SendSeq("ABCDEFGH\x1b[1;3H") },
			seq:   "\x1b[3P",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "ABFGH")
				h.AssertCursor(t, 2, 0)
			},
		},
		{
			name:  "IL",
			setup: func(h *TestHarness) { h.FillRows("A", "B", "C", "D", "E"); h.SendSeq("\x1b[2;3H") },
			seq:   "\x1b[2L",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "A")
				h.AssertLine(t, 1, "")
				h.AssertLine(t, 2, "")
				h.AssertLine(t, 3, "B")
				h.AssertLine(t, 4, "C")
				h.AssertCursor(t, 0, 1)
			},
		},
		{
			name:  "DL",
			setup: func(h *TestHarness) { h.FillRows("A", "B", "C", "D", "E"); h.SendSeq("\x1b[2;1H") },
			seq:   "\x1b[2M",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 0, "A")
				h.AssertLine(t, 1, "D")
				h.AssertLine(t, 2, "E")
				h.AssertLine(t, 3, "")
				if n := h.Buf.HistoryLen(); n != 0 {
					t.Errorf("deleted lines must not enter history, got %d", n)
				}
			},
		},
		{
			name: "IL outside the scrolling region is a no-op",
			setup: func(h *TestHarness) {
				h.FillRows("A", "B", "C", "D", "E")
				h.SendSeq("\x1b[2;4r\x1b[5;1H")
			},
			seq: "\x1b[L",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 3, "D")
				h.AssertLine(t, 4, "E")
			},
		},
		{
			name: "DL inside the scrolling region stops at the bottom margin",
			setup: func(h *TestHarness) {
				h.FillRows("A", "B", "C", "D", "E")
				h.SendSeq("\x1b[2;4r\x1b[2;1H")
			},
			seq: "\x1b[M",
			verify: func(t *testing.T, h *TestHarness) {
				h.AssertLine(t, 1, "C")
				h.AssertLine(t, 2, "D")
				h.AssertLine(t, 3, "")
				h.AssertLine(t, 4, "E")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestHarness(10, 5)
			if tt.setup != nil {
				tt.setup(h)
			}
			h.SendSeq(tt.seq)
			tt.verify(t, h)
		})
	}
}

func TestEraseScrollback(t *testing.T) {
	h := NewTestHarness(10, 3)
	h.SendSeq("1\r\n2\r\n3\r\n4\r\n5")
	if n := h.Buf.HistoryLen(); n != 2 {
		t.Fatalf("history: expected 2, got %d", n)
	}
	h.SendSeq("\x1b[3J")
	if n := h.Buf.HistoryLen(); n != 0 {
		t.Errorf("history after ED 3: expected 0, got %d", n)
	}
	h.AssertLine(t, 0, "3")
}
