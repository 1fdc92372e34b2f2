// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/vt/controller.go
// Summary: Applies decoded terminal operations to a screen buffer.
// Usage: NewController(buf, WithReply(pty), WithShellMarker(fn)).
// Notes: Replies are written outside the content lock.

package vt

import (
	"context"
	"fmt"
	"io"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"pkt.systems/pslog"
)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithReply sets where device status and attribute answers are written,
// normally the connector's input side.
func WithReply(w io.Writer) ControllerOption {
	return func(c *Controller) { c.reply = w }
}

// WithTitle sets the title callback.
func WithTitle(fn func(string)) ControllerOption {
	return func(c *Controller) { c.onTitle = fn }
}

// WithShellMarker sets the shell-integration marker callback.
func WithShellMarker(fn func(string)) ControllerOption {
	return func(c *Controller) { c.onMarker = fn }
}

// WithBell sets the bell callback.
func WithBell(fn func()) ControllerOption {
	return func(c *Controller) { c.onBell = fn }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l pslog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller implements Handler on top of a screen.Buffer.
type Controller struct {
	buf *screen.Buffer
	log pslog.Logger

	reply    io.Writer
	onTitle  func(string)
	onMarker func(string)
	onBell   func()
}

var _ Handler = (*Controller)(nil)

// NewController creates a controller driving buf.
func NewController(buf *screen.Buffer, opts ...ControllerOption) *Controller {
	c := &Controller{buf: buf, log: pslog.Ctx(context.Background())}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Buffer returns the driven buffer.
func (c *Controller) Buffer() *screen.Buffer { return c.buf }

func (c *Controller) Write(text string)    { c.buf.Write(text) }
func (c *Controller) NewLine()             { c.buf.NewLine() }
func (c *Controller) CarriageReturn()      { c.buf.CarriageReturn() }
func (c *Controller) Backspace()           { c.buf.Backspace() }
func (c *Controller) Tab(n int)            { c.buf.Tab(n) }
func (c *Controller) BackTab(n int)        { c.buf.BackTab(n) }
func (c *Controller) Index()               { c.buf.Index() }
func (c *Controller) ReverseIndex()        { c.buf.ReverseIndex() }
func (c *Controller) NextLine()            { c.buf.NextLine() }
func (c *Controller) CursorUp(n int)       { c.buf.CursorUp(n) }
func (c *Controller) CursorDown(n int)     { c.buf.CursorDown(n) }
func (c *Controller) CursorForward(n int)  { c.buf.CursorForward(n) }
func (c *Controller) CursorBackward(n int) { c.buf.CursorBackward(n) }
func (c *Controller) CursorColumn(col int) { c.buf.CursorColumn(col) }
func (c *Controller) CursorRow(row int)    { c.buf.CursorRow(row) }
func (c *Controller) SaveCursor()          { c.buf.SaveCursor() }
func (c *Controller) RestoreCursor()       { c.buf.RestoreCursor() }

func (c *Controller) CursorPosition(row, col int) { c.buf.CursorPosition(row, col) }

func (c *Controller) EraseInLine(arg int)     { c.buf.EraseInLine(arg) }
func (c *Controller) EraseInDisplay(arg int)  { c.buf.EraseInDisplay(arg) }
func (c *Controller) EraseCharacters(n int)   { c.buf.EraseCharacters(n) }
func (c *Controller) InsertLines(n int)       { c.buf.InsertLines(n) }
func (c *Controller) DeleteLines(n int)       { c.buf.DeleteLines(n) }
func (c *Controller) InsertCharacters(n int)  { c.buf.InsertCharacters(n) }
func (c *Controller) DeleteCharacters(n int)  { c.buf.DeleteCharacters(n) }
func (c *Controller) ScrollUp(n int)          { c.buf.ScrollUp(n) }
func (c *Controller) ScrollDown(n int)        { c.buf.ScrollDown(n) }
func (c *Controller) SetTabStop()             { c.buf.SetTabStop() }
func (c *Controller) ClearTabStop(mode int)   { c.buf.ClearTabStop(mode) }
func (c *Controller) ScreenAlignment()        { c.buf.Fill('E') }
func (c *Controller) Reset()                  { c.buf.Reset() }
func (c *Controller) InvokeCharset(slot int)  { c.buf.InvokeCharset(slot) }

func (c *Controller) SetGraphicRendition(p []int)        { c.buf.SetGraphicRendition(p) }
func (c *Controller) SetScrollingRegion(top, bottom int) { c.buf.SetScrollingRegion(top, bottom) }

func (c *Controller) DesignateCharset(slot int, cs screen.Charset) {
	c.buf.DesignateCharset(slot, cs)
}

func (c *Controller) SetMode(mode screen.Mode, on bool) {
	c.log.Trace("vt: mode", "mode", mode.String(), "on", on)
	c.buf.SetMode(mode, on)
}

func (c *Controller) Bell() {
	if c.onBell != nil {
		c.onBell()
	}
}

// DeviceStatusReport answers DSR 5 (status) and DSR 6 (cursor position).
func (c *Controller) DeviceStatusReport(n int) {
	switch n {
	case 5:
		c.send("\x1b[0n")
	case 6:
		x, y := c.buf.Cursor()
		c.send(fmt.Sprintf("\x1b[%d;%dR", y+1, x+1))
	default:
		c.log.Debug("vt: unhandled device status request", "request", n)
	}
}

// DeviceAttributes answers primary DA as a VT220 with ANSI color and
// secondary DA with a fixed firmware version.
func (c *Controller) DeviceAttributes(secondary bool) {
	if secondary {
		c.send("\x1b[>1;10;0c")
		return
	}
	c.send("\x1b[?62;22c")
}

func (c *Controller) SetTitle(title string) {
	if c.onTitle != nil {
		c.onTitle(title)
	}
}

func (c *Controller) ShellMarker(payload string) {
	if c.onMarker == nil {
		c.log.Debug("vt: shell marker without listener", "payload", payload)
		return
	}
	c.onMarker(payload)
}

func (c *Controller) send(s string) {
	if c.reply == nil {
		return
	}
	if _, err := io.WriteString(c.reply, s); err != nil {
		c.log.Warn("vt: reply write failed", "error", err)
	}
}
