// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/blocks/blocks_test.go
// Summary: Document markers, block offsets, the block model and the scraper.

package blocks

import (
	"math/rand"
	"testing"
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
)

func TestRangeMarkerAdjustment(t *testing.T) {
	testCases := []struct {
		name      string
		greedy    bool
		start     int
		end       int
		edit      func(d *Document)
		wantStart int
		wantEnd   int
	}{
		{"insert before", false, 2, 4, func(d *Document) { d.Insert(0, "xx") }, 4, 6},
		{"insert at start stays outside", false, 2, 4, func(d *Document) { d.Insert(2, "x") }, 3, 5},
		{"insert inside extends", false, 2, 4, func(d *Document) { d.Insert(3, "xyz") }, 2, 7},
		{"insert at end not greedy", false, 2, 4, func(d *Document) { d.Insert(4, "x") }, 2, 4},
		{"insert at end greedy", true, 2, 4, func(d *Document) { d.Insert(4, "xy") }, 2, 6},
		{"insert after", true, 2, 4, func(d *Document) { d.Insert(5, "x") }, 2, 4},
		{"delete before", false, 2, 4, func(d *Document) { d.Delete(0, 1) }, 1, 3},
		{"delete overlapping start", false, 2, 4, func(d *Document) { d.Delete(1, 3) }, 1, 2},
		{"delete whole range", false, 2, 4, func(d *Document) { d.Delete(1, 5) }, 1, 1},
		{"delete after", false, 2, 4, func(d *Document) { d.Delete(4, 6) }, 2, 4},
		{"replace inside", false, 1, 5, func(d *Document) { d.Replace(2, 4, "abcd") }, 1, 7},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDocument()
			d.Append("0123456789")
			m := d.CreateMarker(tc.start, tc.end, tc.greedy)
			tc.edit(d)
			if m.Start() != tc.wantStart || m.End() != tc.wantEnd {
				t.Fatalf("marker = [%d,%d), want [%d,%d)", m.Start(), m.End(), tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestEmptyGreedyMarkerGrows(t *testing.T) {
	d := NewDocument()
	m := d.CreateMarker(0, 0, true)
	d.Insert(0, "abc")
	if m.Start() != 0 || m.End() != 3 {
		t.Fatalf("marker = [%d,%d), want [0,3)", m.Start(), m.End())
	}
	m.Dispose()
	d.Insert(0, "zz")
	if m.Start() != 0 || m.End() != 3 || m.IsValid() {
		t.Fatalf("disposed marker moved: [%d,%d) valid=%v", m.Start(), m.End(), m.IsValid())
	}
}

func TestBlockOffsetsHoldUnderEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDocument()
	d.Append("previous output\n")
	b := newCommandBlock(d, shellintegration.CommandStarted{Prompt: "user@host:~$ ", Command: "make test"})
	b.setOutput("ok\n", nil)
	d.Append("trailing")

	for i := 0; i < 500; i++ {
		n := d.Len()
		p := rng.Intn(n + 1)
		if rng.Intn(2) == 0 {
			d.Insert(p, "ab"[:1+rng.Intn(2)])
		} else {
			d.Delete(p, p+rng.Intn(4))
		}
		s, cs, out, e := b.StartOffset(), b.CommandStartOffset(), b.OutputStartOffset(), b.EndOffset()
		if !(0 <= s && s <= cs && cs <= out && out <= e && e <= d.Len()) {
			t.Fatalf("step %d: offsets %d <= %d <= %d <= %d (len %d) violated", i, s, cs, out, e, d.Len())
		}
	}
}

func TestBlockDerivedFlags(t *testing.T) {
	d := NewDocument()
	b := newCommandBlock(d, shellintegration.CommandStarted{Prompt: "$ ", Command: "ls"})
	if !b.WithPrompt() || !b.WithCommand() || b.WithOutput() {
		t.Fatalf("flags prompt=%v command=%v output=%v", b.WithPrompt(), b.WithCommand(), b.WithOutput())
	}
	if b.CommandStartOffset() != 2 || b.OutputStartOffset() != 5 {
		t.Fatalf("offsets %d/%d, want 2/5", b.CommandStartOffset(), b.OutputStartOffset())
	}
	b.setOutput("a.txt", nil)
	if !b.WithOutput() || b.Output() != "a.txt" || b.Text() != "$ ls\na.txt" {
		t.Fatalf("output %q text %q", b.Output(), b.Text())
	}
	if b.IsFinalized() || b.ExitCode() != shellintegration.UnknownExitCode {
		t.Fatalf("fresh block finalized=%v exit=%d", b.IsFinalized(), b.ExitCode())
	}
}

// writeLines emulates output followed by CR LF for each line.
func writeLines(buf *screen.Buffer, lines ...string) {
	for _, l := range lines {
		buf.Write(l)
		buf.CarriageReturn()
		buf.NewLine()
	}
}

func TestModelGitStatus(t *testing.T) {
	buf := screen.NewBuffer(40, 5)
	var finalized []*CommandBlock
	m := NewModel(buf, WithFinalized(func(b *CommandBlock) { finalized = append(finalized, b) }))

	writeLines(buf, "$ git status")
	m.CommandStarted(shellintegration.CommandStarted{Prompt: "$ ", Command: "git status"}, buf.AbsoluteCursorRow())
	writeLines(buf, "On branch main")
	m.ContentChanged()
	writeLines(buf, "nothing to commit")
	m.ContentChanged()
	m.CommandFinished(shellintegration.CommandFinished{Command: "git status", ExitCode: 0, Duration: 120 * time.Millisecond})

	blocks := m.Blocks()
	if len(blocks) != 1 || len(finalized) != 1 {
		t.Fatalf("blocks=%d finalized=%d, want 1/1", len(blocks), len(finalized))
	}
	b := blocks[0]
	if !b.IsFinalized() || !b.WithCommand() {
		t.Fatalf("finalized=%v withCommand=%v", b.IsFinalized(), b.WithCommand())
	}
	if b.ExitCode() != 0 || b.Duration() != 120*time.Millisecond {
		t.Fatalf("exit=%d duration=%v", b.ExitCode(), b.Duration())
	}
	if got, want := b.Output(), "On branch main\nnothing to commit"; got != want {
		t.Fatalf("output %q, want %q", got, want)
	}
	if m.Open() != nil {
		t.Fatalf("block still open")
	}

	// Content after finalization belongs to nobody.
	writeLines(buf, "$ ")
	m.ContentChanged()
	if b.Output() != "On branch main\nnothing to commit" {
		t.Fatalf("finalized block changed: %q", b.Output())
	}
}

func TestModelFinishedBeforePrompt(t *testing.T) {
	buf := screen.NewBuffer(40, 5)
	m := NewModel(buf)

	buf.Write("$ ls")
	m.CommandStarted(shellintegration.CommandStarted{Prompt: "$ ", Command: "ls"}, buf.AbsoluteCursorRow()+1)
	buf.CarriageReturn()
	buf.NewLine()
	writeLines(buf, "a.txt")
	buf.Write("$ ")
	m.ContentChanged()
	if got := m.Open().Output(); got != "a.txt\n$" {
		t.Fatalf("open output %q", got)
	}
	m.CommandFinishedBefore(shellintegration.CommandFinished{Command: "ls", ExitCode: shellintegration.UnknownExitCode}, buf.AbsoluteCursorRow())

	b := m.Blocks()[0]
	if !b.IsFinalized() || b.Output() != "a.txt" {
		t.Fatalf("finalized=%v output=%q", b.IsFinalized(), b.Output())
	}
}

func TestModelSecondStartFinalizesOpenBlock(t *testing.T) {
	buf := screen.NewBuffer(20, 4)
	m := NewModel(buf)
	first := m.CommandStarted(shellintegration.CommandStarted{Prompt: "$ ", Command: "sleep 1"}, 0)
	second := m.CommandStarted(shellintegration.CommandStarted{Prompt: "$ ", Command: "ls"}, 0)
	if !first.IsFinalized() || first.ExitCode() != shellintegration.UnknownExitCode {
		t.Fatalf("first finalized=%v exit=%d", first.IsFinalized(), first.ExitCode())
	}
	if second.IsFinalized() || m.Open() != second {
		t.Fatalf("second block not open")
	}
	if second.StartOffset() != first.EndOffset() {
		t.Fatalf("blocks not adjacent: %d vs %d", second.StartOffset(), first.EndOffset())
	}
}

func TestModelEndMarkerFinalizes(t *testing.T) {
	buf := screen.NewBuffer(30, 5)
	m := NewModel(buf, WithEndMarker("<<END>>"))
	m.CommandStarted(shellintegration.CommandStarted{Prompt: "> ", Command: "build"}, buf.AbsoluteCursorRow())
	writeLines(buf, "compiling", "<<END>>")
	m.ContentChanged()
	b := m.Blocks()[0]
	if !b.IsFinalized() || b.Output() != "compiling" || b.ExitCode() != shellintegration.UnknownExitCode {
		t.Fatalf("finalized=%v output=%q exit=%d", b.IsFinalized(), b.Output(), b.ExitCode())
	}
	m.CommandFinished(shellintegration.CommandFinished{Command: "build", ExitCode: 3})
	if b.ExitCode() != shellintegration.UnknownExitCode {
		t.Fatalf("late finish changed exit code to %d", b.ExitCode())
	}
}

func TestModelMaxBlocks(t *testing.T) {
	buf := screen.NewBuffer(20, 4)
	m := NewModel(buf, WithMaxBlocks(2))
	for _, cmd := range []string{"a", "b", "c"} {
		m.CommandStarted(shellintegration.CommandStarted{Prompt: "$ ", Command: cmd}, 0)
		m.CommandFinished(shellintegration.CommandFinished{Command: cmd})
	}
	blocks := m.Blocks()
	if len(blocks) != 2 || blocks[0].Command != "b" {
		t.Fatalf("retained %d blocks, first %q", len(blocks), blocks[0].Command)
	}
	if blocks[0].StartOffset() != 0 || m.Document().Text() != "$ b\n$ c\n" {
		t.Fatalf("document %q start %d", m.Document().Text(), blocks[0].StartOffset())
	}
}

func textLine(s string, wrapped bool) screen.Line {
	l := screen.Line{Wrapped: wrapped}
	for _, r := range s {
		l.Cells = append(l.Cells, screen.Cell{Rune: r, Style: screen.DefaultStyle})
	}
	return l
}

func snapshotOf(lines ...screen.Line) screen.Snapshot {
	return screen.Snapshot{Width: 40, Height: len(lines), Lines: lines}
}

func TestScrape(t *testing.T) {
	testCases := []struct {
		name      string
		snap      screen.Snapshot
		from      int64
		marker    string
		wantText  string
		wantFound bool
	}{
		{
			name:      "marker stripped",
			snap:      snapshotOf(textLine("total 0", false), textLine("drwx...", false), textLine("<<MARKER>>", false), textLine("", false)),
			marker:    "<<MARKER>>",
			wantText:  "total 0\ndrwx...",
			wantFound: true,
		},
		{
			name:      "marker across hard break",
			snap:      snapshotOf(textLine("done", false), textLine("<<MAR", false), textLine("KER>>", false)),
			marker:    "<<MARKER>>",
			wantText:  "done",
			wantFound: true,
		},
		{
			name:     "marker absent",
			snap:     snapshotOf(textLine("partial   ", false), textLine("", false), textLine("", false)),
			marker:   "<<MARKER>>",
			wantText: "partial",
		},
		{
			name:     "soft wrap joined",
			snap:     snapshotOf(textLine("abc", true), textLine("def", false)),
			wantText: "abcdef",
		},
		{
			name:     "inner blank lines kept",
			snap:     snapshotOf(textLine("a", false), textLine("", false), textLine("b", false), textLine("", false)),
			wantText: "a\n\nb",
		},
		{
			name: "from row skips earlier lines",
			snap: func() screen.Snapshot {
				s := snapshotOf(textLine("$ ls", false), textLine("file", false))
				s.FirstRow = 10
				return s
			}(),
			from:     11,
			wantText: "file",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Scrape(tc.snap, tc.from, tc.marker)
			if res.Text != tc.wantText || res.EndMarkerFound != tc.wantFound {
				t.Fatalf("got %q found=%v, want %q found=%v", res.Text, res.EndMarkerFound, tc.wantText, tc.wantFound)
			}
		})
	}
}

func TestScrapeStyles(t *testing.T) {
	bold := screen.Style{FG: screen.StandardColor(1), BG: screen.DefaultBG, Attr: screen.AttrBold}
	l := textLine("ok fail", false)
	for i := 3; i < 7; i++ {
		l.Cells[i].Style = bold
	}
	res := Scrape(snapshotOf(textLine("x", false), l), 0, "")
	if len(res.Styles) != 1 {
		t.Fatalf("styles = %+v, want one range", res.Styles)
	}
	if r := res.Styles[0]; r.Start != 5 || r.End != 9 || r.Style != bold {
		t.Fatalf("range = %+v, want [5,9) bold", r)
	}

	res = Scrape(snapshotOf(l, textLine("<<E>>", false)), 0, "<<E>>")
	if res.Text != "ok fail" || len(res.Styles) != 1 || res.Styles[0].End != 7 {
		t.Fatalf("clipped text %q styles %+v", res.Text, res.Styles)
	}
	res = Scrape(snapshotOf(textLine("ok <<E>>", false)), 0, "<<E>>")
	if res.Text != "ok" || len(res.Styles) != 0 {
		t.Fatalf("text %q styles %+v", res.Text, res.Styles)
	}
}
