// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer.go
// Summary: Screen buffer state, content lock and change notification.
// Usage: Mutated by the vt controller on the decode path, read by the UI loop.
// Notes: Notifications are fired only after the content lock is released.

package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

const (
	defaultHistorySize = 5000
	tabWidth           = 8
)

// Notifier receives content-changed notifications. It is always invoked
// outside the content lock.
type Notifier interface {
	ContentChanged()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

// ContentChanged calls f.
func (f NotifierFunc) ContentChanged() { f() }

// Option configures a Buffer.
type Option func(*Buffer)

// WithHistorySize bounds the scrollback.
func WithHistorySize(lines int) Option {
	return func(b *Buffer) { b.history = newScrollback(lines) }
}

// WithNotifier sets the content-changed receiver.
func WithNotifier(n Notifier) Option {
	return func(b *Buffer) { b.notifier = n }
}

// WithLogger sets the logger used for ignored operations.
func WithLogger(l pslog.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// MouseMode selects which mouse events the application asked for.
type MouseMode int

const (
	MouseNone MouseMode = iota
	MouseX10
	MouseNormal
	MouseButtonMotion
	MouseAnyMotion
)

// MouseFormat selects the mouse report encoding.
type MouseFormat int

const (
	MouseFormatDefault MouseFormat = iota
	MouseFormatUTF8
	MouseFormatSGR
	MouseFormatURXVT
)

// Modes holds the terminal mode flags.
type Modes struct {
	Insert          bool
	LineFeedNewLine bool
	AppCursorKeys   bool
	Origin          bool
	AutoWrap        bool
	CursorVisible   bool
	CursorBlinking  bool
	BracketedPaste  bool
	FocusReporting  bool
	MouseMode       MouseMode
	MouseFormat     MouseFormat
}

func defaultModes() Modes {
	return Modes{AutoWrap: true, CursorVisible: true}
}

// savedCursor is the DECSC snapshot.
type savedCursor struct {
	x, y     int
	style    Style
	autoWrap bool
	origin   bool
	charsets charsetState
	valid    bool
}

// Buffer owns the grid, scrollback, cursor, scrolling region and style
// state of one terminal. All access goes through the content lock.
type Buffer struct {
	mu sync.Mutex

	width, height int
	main          []*Line
	alt           []*Line
	inAlt         bool
	history       *scrollback

	cursorX, cursorY int
	wrapPending      bool

	// Scrolling region, 0-based, bottom exclusive.
	top, bottom int

	style    Style
	modes    Modes
	charsets charsetState
	tabStops map[int]bool

	savedMain, savedAlt savedCursor

	notifier Notifier
	changed  bool
	log      pslog.Logger
}

// NewBuffer creates a buffer of the given size.
func NewBuffer(width, height int, opts ...Option) *Buffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := &Buffer{
		width:   width,
		height:  height,
		history: newScrollback(defaultHistorySize),
		log:     pslog.Ctx(context.Background()),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resetLocked()
	b.changed = false
	return b
}

// SetNotifier replaces the content-changed receiver.
func (b *Buffer) SetNotifier(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifier = n
}

// mutate runs fn under the content lock and fires the change notification
// after the lock has been released.
func (b *Buffer) mutate(fn func()) {
	var n Notifier
	func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		fn()
		if b.changed {
			b.changed = false
			n = b.notifier
		}
	}()
	if n != nil {
		n.ContentChanged()
	}
}

// read runs fn under the content lock.
func (b *Buffer) read(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

func (b *Buffer) touch() { b.changed = true }

func (b *Buffer) resetLocked() {
	b.main = makeLines(b.width, b.height, DefaultStyle)
	b.alt = nil
	b.inAlt = false
	b.cursorX, b.cursorY = 0, 0
	b.wrapPending = false
	b.top, b.bottom = 0, b.height
	b.style = DefaultStyle
	b.modes = defaultModes()
	b.charsets = defaultCharsets()
	b.savedMain, b.savedAlt = savedCursor{}, savedCursor{}
	b.resetTabStops()
	b.touch()
}

func (b *Buffer) resetTabStops() {
	b.tabStops = make(map[int]bool)
	for i := 0; i < b.width; i += tabWidth {
		b.tabStops[i] = true
	}
}

func makeLines(width, height int, st Style) []*Line {
	lines := make([]*Line, height)
	for i := range lines {
		lines[i] = newLine(width, st)
	}
	return lines
}

// lines returns the active grid.
func (b *Buffer) lines() []*Line {
	if b.inAlt {
		return b.alt
	}
	return b.main
}

func (b *Buffer) line(y int) *Line {
	return b.lines()[y]
}

// Reset performs a full terminal reset (RIS). History is kept.
func (b *Buffer) Reset() {
	b.mutate(b.resetLocked)
}

// Size returns the grid dimensions.
func (b *Buffer) Size() (width, height int) {
	b.read(func() { width, height = b.width, b.height })
	return
}

// Cursor returns the cursor position (0-based).
func (b *Buffer) Cursor() (x, y int) {
	b.read(func() { x, y = b.cursorX, b.cursorY })
	return
}

// ScrollingRegion returns the region as 0-based top inclusive, bottom exclusive.
func (b *Buffer) ScrollingRegion() (top, bottom int) {
	b.read(func() { top, bottom = b.top, b.bottom })
	return
}

// CurrentStyle returns the style applied to newly written cells.
func (b *Buffer) CurrentStyle() (st Style) {
	b.read(func() { st = b.style })
	return
}

// Modes returns a copy of the mode flags.
func (b *Buffer) Modes() (m Modes) {
	b.read(func() { m = b.modes })
	return
}

// IsAlternateScreen reports whether the alternate buffer is active.
func (b *Buffer) IsAlternateScreen() (alt bool) {
	b.read(func() { alt = b.inAlt })
	return
}

// HistoryLen returns the number of retained scrollback lines.
func (b *Buffer) HistoryLen() (n int) {
	b.read(func() { n = b.history.Len() })
	return
}

// HistoryLine returns a copy of the i-th oldest scrollback line.
func (b *Buffer) HistoryLine(i int) (l Line, ok bool) {
	b.read(func() {
		if hl := b.history.At(i); hl != nil {
			l, ok = hl.clone(), true
		}
	})
	return
}

// Line returns a copy of screen row y of the active grid.
func (b *Buffer) Line(y int) (l Line, ok bool) {
	b.read(func() {
		if y >= 0 && y < b.height {
			l, ok = b.line(y).clone(), true
		}
	})
	return
}

// LineText returns the text of screen row y without trailing blanks.
func (b *Buffer) LineText(y int) string {
	l, ok := b.Line(y)
	if !ok {
		return ""
	}
	return l.Text()
}

// AbsoluteCursorRow returns the cursor row counted from the first line ever
// written to the main screen, stable while lines scroll into history.
func (b *Buffer) AbsoluteCursorRow() (row int64) {
	b.read(func() { row = b.absRow(b.cursorY) })
	return
}

func (b *Buffer) absRow(y int) int64 {
	if b.inAlt {
		return int64(y)
	}
	return b.history.firstAbs() + int64(b.history.Len()) + int64(y)
}

// Dump renders the screen as text with a cursor marker, for diagnostics.
func (b *Buffer) Dump() string {
	var sb strings.Builder
	b.read(func() {
		fmt.Fprintf(&sb, "size=%dx%d cursor=(%d,%d) region=[%d,%d) alt=%v history=%d\n",
			b.width, b.height, b.cursorX, b.cursorY, b.top, b.bottom, b.inAlt, b.history.Len())
		for y, l := range b.lines() {
			marker := " "
			if y == b.cursorY {
				marker = ">"
			}
			wrap := ""
			if l.Wrapped {
				wrap = " \\"
			}
			fmt.Fprintf(&sb, "%s%3d|%s|%s\n", marker, y, cellText(l.Cells), wrap)
		}
	})
	return sb.String()
}
