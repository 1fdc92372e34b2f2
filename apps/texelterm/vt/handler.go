// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/vt/handler.go
// Summary: Decoded terminal operation receiver.
// Usage: Implemented by Controller; called by Decoder or any external decoder.
// Notes: Coordinates are 0-based; counts of 0 mean the default of 1.

package vt

import "github.com/framegrace/texelshell/apps/texelterm/screen"

// Handler receives pre-decoded terminal operations.
type Handler interface {
	Write(text string)
	NewLine()
	CarriageReturn()
	Backspace()
	Tab(n int)
	BackTab(n int)
	Bell()
	Index()
	ReverseIndex()
	NextLine()

	CursorUp(n int)
	CursorDown(n int)
	CursorForward(n int)
	CursorBackward(n int)
	CursorPosition(row, col int)
	CursorColumn(col int)
	CursorRow(row int)
	SaveCursor()
	RestoreCursor()

	EraseInLine(arg int)
	EraseInDisplay(arg int)
	EraseCharacters(n int)
	InsertLines(n int)
	DeleteLines(n int)
	InsertCharacters(n int)
	DeleteCharacters(n int)
	ScrollUp(n int)
	ScrollDown(n int)
	// SetScrollingRegion takes 1-based inclusive margins; 0 selects the
	// default edge.
	SetScrollingRegion(top, bottom int)
	SetTabStop()
	ClearTabStop(mode int)

	SetMode(mode screen.Mode, on bool)
	SetGraphicRendition(params []int)
	DesignateCharset(slot int, cs screen.Charset)
	InvokeCharset(slot int)
	ScreenAlignment()
	Reset()

	DeviceStatusReport(n int)
	DeviceAttributes(secondary bool)
	SetTitle(title string)
	// ShellMarker receives the payload of a shell-integration OSC, without
	// the OSC number.
	ShellMarker(payload string)
}
