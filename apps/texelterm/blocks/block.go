// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/blocks/block.go
// Summary: CommandBlock, one prompt/command/output unit anchored in a Document.
// Notes: Only the outer range is stored. The command and output offsets are
//        derived from the immutable prompt and command lengths and clamped
//        to the range, so they cannot drift when the range is adjusted.

package blocks

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
)

// StyleRange is a styled span of block output, relative to the output start.
type StyleRange struct {
	Start, End int
	Style      screen.Style
}

// CommandBlock is a command with its prompt and captured output.
type CommandBlock struct {
	ID          uuid.UUID
	Prompt      string
	Command     string
	RightPrompt string
	StartedAt   time.Time

	doc      *Document
	marker   *RangeMarker
	exitCode int
	duration time.Duration
	styles   []StyleRange
}

func newCommandBlock(doc *Document, ev shellintegration.CommandStarted) *CommandBlock {
	header := ev.Prompt + ev.Command + "\n"
	start := doc.Append(header)
	return &CommandBlock{
		ID:          uuid.New(),
		Prompt:      ev.Prompt,
		Command:     ev.Command,
		RightPrompt: ev.RightPrompt,
		StartedAt:   ev.At,
		doc:         doc,
		marker:      doc.CreateMarker(start, doc.Len(), true),
		exitCode:    shellintegration.UnknownExitCode,
	}
}

func (b *CommandBlock) StartOffset() int { return b.marker.Start() }

func (b *CommandBlock) EndOffset() int { return b.marker.End() }

// CommandStartOffset is where the command text begins.
func (b *CommandBlock) CommandStartOffset() int {
	return min(b.StartOffset()+utf8.RuneCountInString(b.Prompt), b.EndOffset())
}

// OutputStartOffset is where captured output begins, after the command's
// line break.
func (b *CommandBlock) OutputStartOffset() int {
	n := utf8.RuneCountInString(b.Prompt) + utf8.RuneCountInString(b.Command) + 1
	return min(b.StartOffset()+n, b.EndOffset())
}

func (b *CommandBlock) WithPrompt() bool {
	return b.Prompt != "" && b.CommandStartOffset() > b.StartOffset()
}

func (b *CommandBlock) WithCommand() bool {
	return b.Command != "" && b.OutputStartOffset() > b.CommandStartOffset()
}

func (b *CommandBlock) WithOutput() bool {
	return b.EndOffset() > b.OutputStartOffset()
}

// IsFinalized reports whether the block stopped accepting output.
func (b *CommandBlock) IsFinalized() bool {
	return !b.marker.IsGreedyToRight()
}

// ExitCode is UnknownExitCode until the command finished with a known status.
func (b *CommandBlock) ExitCode() int { return b.exitCode }

func (b *CommandBlock) Duration() time.Duration { return b.duration }

// Text returns the whole block.
func (b *CommandBlock) Text() string {
	return b.doc.Slice(b.StartOffset(), b.EndOffset())
}

// Output returns the captured output.
func (b *CommandBlock) Output() string {
	return b.doc.Slice(b.OutputStartOffset(), b.EndOffset())
}

// Styles returns the non-default style spans of the output.
func (b *CommandBlock) Styles() []StyleRange {
	out := make([]StyleRange, len(b.styles))
	copy(out, b.styles)
	return out
}

func (b *CommandBlock) setOutput(text string, styles []StyleRange) {
	b.doc.Replace(b.OutputStartOffset(), b.EndOffset(), text)
	b.styles = styles
}

func (b *CommandBlock) finalize(exitCode int, d time.Duration) {
	b.marker.SetGreedyToRight(false)
	b.exitCode = exitCode
	b.duration = d
}
