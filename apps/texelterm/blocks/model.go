// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/blocks/model.go
// Summary: Drives CommandBlock lifecycle from boundary events and content
//          updates.
// Usage: Not safe for concurrent use; the session calls it from the UI loop.

package blocks

import (
	"context"
	"time"

	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
)

// SnapshotSource is the read side of the screen buffer used for scraping.
type SnapshotSource interface {
	SnapshotFrom(absRow int64) screen.Snapshot
}

// Option configures a Model.
type Option func(*Model)

// WithEndMarker finalizes the open block when marker shows up in its output.
func WithEndMarker(marker string) Option {
	return func(m *Model) { m.scraper = NewOutputScraper(marker) }
}

// WithMaxBlocks bounds the number of retained blocks; 0 keeps all of them.
func WithMaxBlocks(n int) Option {
	return func(m *Model) { m.maxBlocks = n }
}

// WithFinalized registers a callback run for every block that finalizes.
func WithFinalized(fn func(*CommandBlock)) Option {
	return func(m *Model) { m.onFinalized = fn }
}

func WithLogger(l pslog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// Model owns the output document and its blocks.
type Model struct {
	src         SnapshotSource
	doc         *Document
	blocks      []*CommandBlock
	open        *CommandBlock
	origin      int64
	limit       int64
	scraper     *OutputScraper
	maxBlocks   int
	onFinalized func(*CommandBlock)
	log         pslog.Logger
}

// NewModel returns a model scraping output from src.
func NewModel(src SnapshotSource, opts ...Option) *Model {
	m := &Model{
		src:     src,
		doc:     NewDocument(),
		limit:   -1,
		scraper: NewOutputScraper(""),
		log:     pslog.Ctx(context.Background()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Document() *Document { return m.doc }

// Blocks returns the retained blocks, oldest first.
func (m *Model) Blocks() []*CommandBlock {
	out := make([]*CommandBlock, len(m.blocks))
	copy(out, m.blocks)
	return out
}

// Open returns the block still receiving output, or nil.
func (m *Model) Open() *CommandBlock { return m.open }

// CommandStarted opens a block whose output starts at absolute row origin.
// An open block is finalized first with an unknown exit code.
func (m *Model) CommandStarted(ev shellintegration.CommandStarted, origin int64) *CommandBlock {
	if m.open != nil {
		m.log.Warn("block still open at command start", "block", m.open.ID.String())
		m.finalize(shellintegration.UnknownExitCode, 0)
	}
	b := newCommandBlock(m.doc, ev)
	m.blocks = append(m.blocks, b)
	m.open = b
	m.origin = origin
	m.log.Debug("block opened", "block", b.ID.String(), "command", ev.Command, "origin", origin)
	m.trim()
	return b
}

// ContentChanged rescrapes the open block's output. Updates from the
// alternate screen are ignored so full-screen programs do not replace it.
func (m *Model) ContentChanged() {
	if m.open == nil {
		return
	}
	snap := m.src.SnapshotFrom(m.origin)
	if snap.AlternateScreen {
		return
	}
	if m.limit >= 0 {
		keep := int(max(m.limit-snap.FirstRow, 0))
		if keep < len(snap.Lines) {
			snap.Lines = snap.Lines[:keep]
		}
	}
	res := m.scraper.Scrape(snap, m.origin)
	m.open.setOutput(res.Text, res.Styles)
	if res.EndMarkerFound {
		m.log.Debug("end marker found", "block", m.open.ID.String())
		m.finalize(shellintegration.UnknownExitCode, 0)
	}
}

// CommandFinished takes a last scrape and finalizes the open block.
func (m *Model) CommandFinished(ev shellintegration.CommandFinished) {
	if m.open == nil {
		m.log.Debug("command finished without open block", "command", ev.Command)
		return
	}
	if ev.Command != "" && ev.Command != m.open.Command {
		m.log.Warn("finished command does not match block", "block", m.open.ID.String(), "command", ev.Command, "expected", m.open.Command)
	}
	m.ContentChanged()
	if m.open == nil {
		return
	}
	m.finalize(ev.ExitCode, ev.Duration)
}

// CommandFinishedBefore is CommandFinished with the output cut at absolute
// row end, for sources that see the end only once the next prompt is on
// screen.
func (m *Model) CommandFinishedBefore(ev shellintegration.CommandFinished, end int64) {
	if m.open != nil {
		m.limit = end
	}
	m.CommandFinished(ev)
}

func (m *Model) finalize(exitCode int, d time.Duration) {
	b := m.open
	m.open = nil
	m.limit = -1
	b.finalize(exitCode, d)
	m.log.Debug("block finalized", "block", b.ID.String(), "exit_code", exitCode, "duration", d)
	if m.onFinalized != nil {
		m.onFinalized(b)
	}
}

// trim drops the oldest finalized blocks beyond the retention bound.
func (m *Model) trim() {
	if m.maxBlocks <= 0 {
		return
	}
	for len(m.blocks) > m.maxBlocks && m.blocks[0] != m.open {
		b := m.blocks[0]
		m.blocks = m.blocks[1:]
		m.doc.Delete(0, m.blocks[0].StartOffset())
		b.marker.Dispose()
	}
}
