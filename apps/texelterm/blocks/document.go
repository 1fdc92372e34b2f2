// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/blocks/document.go
// Summary: Rune document with self-adjusting range markers.
// Usage: Owned by Model; only touched from the UI loop.
// Notes: Offsets are rune indices. Insertion at a marker's start stays
//        outside it; insertion at its end extends it only when the marker
//        is greedy to the right; deleted spans collapse into the deletion
//        point.

package blocks

// Document holds block text and the markers anchored to it.
type Document struct {
	text    []rune
	markers []*RangeMarker
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Len returns the document length in runes.
func (d *Document) Len() int { return len(d.text) }

// Text returns the whole document.
func (d *Document) Text() string { return string(d.text) }

// Slice returns the text in [start, end), clamped to the document.
func (d *Document) Slice(start, end int) string {
	start = clampOffset(start, len(d.text))
	end = clampOffset(end, len(d.text))
	if start >= end {
		return ""
	}
	return string(d.text[start:end])
}

// Append inserts s at the end and returns the offset it starts at.
func (d *Document) Append(s string) int {
	at := len(d.text)
	d.Insert(at, s)
	return at
}

// Insert places s at offset.
func (d *Document) Insert(offset int, s string) {
	r := []rune(s)
	if len(r) == 0 {
		return
	}
	offset = clampOffset(offset, len(d.text))
	d.text = append(d.text[:offset], append(r, d.text[offset:]...)...)
	for _, m := range d.markers {
		m.inserted(offset, len(r))
	}
}

// Delete removes [start, end).
func (d *Document) Delete(start, end int) {
	start = clampOffset(start, len(d.text))
	end = clampOffset(end, len(d.text))
	if start >= end {
		return
	}
	d.text = append(d.text[:start], d.text[end:]...)
	for _, m := range d.markers {
		m.deleted(start, end)
	}
}

// Replace swaps [start, end) for s.
func (d *Document) Replace(start, end int, s string) {
	d.Delete(start, end)
	d.Insert(start, s)
}

// CreateMarker anchors a new marker to [start, end).
func (d *Document) CreateMarker(start, end int, greedyRight bool) *RangeMarker {
	start = clampOffset(start, len(d.text))
	end = clampOffset(end, len(d.text))
	if end < start {
		end = start
	}
	m := &RangeMarker{doc: d, start: start, end: end, greedyRight: greedyRight, valid: true}
	d.markers = append(d.markers, m)
	return m
}

func (d *Document) release(m *RangeMarker) {
	for i, x := range d.markers {
		if x == m {
			d.markers = append(d.markers[:i], d.markers[i+1:]...)
			return
		}
	}
}

func clampOffset(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// RangeMarker is a [start, end) range that follows document edits.
type RangeMarker struct {
	doc         *Document
	start, end  int
	greedyRight bool
	valid       bool
}

func (m *RangeMarker) Start() int { return m.start }

func (m *RangeMarker) End() int { return m.end }

// IsValid reports whether the marker is still attached.
func (m *RangeMarker) IsValid() bool { return m.valid }

// IsGreedyToRight reports whether insertions at the end extend the range.
func (m *RangeMarker) IsGreedyToRight() bool { return m.greedyRight }

// SetGreedyToRight changes the right-edge behaviour.
func (m *RangeMarker) SetGreedyToRight(greedy bool) { m.greedyRight = greedy }

// Dispose detaches the marker; its offsets stop changing.
func (m *RangeMarker) Dispose() {
	if !m.valid {
		return
	}
	m.valid = false
	m.doc.release(m)
}

func (m *RangeMarker) inserted(at, n int) {
	switch {
	case at < m.start:
		m.start += n
		m.end += n
	case at == m.start && m.start == m.end:
		if m.greedyRight {
			m.end += n
		} else {
			m.start += n
			m.end += n
		}
	case at == m.start:
		m.start += n
		m.end += n
	case at < m.end:
		m.end += n
	case at == m.end && m.greedyRight:
		m.end += n
	}
}

func (m *RangeMarker) deleted(start, end int) {
	shift := func(p int) int {
		switch {
		case p <= start:
			return p
		case p >= end:
			return p - (end - start)
		}
		return start
	}
	m.start = shift(m.start)
	m.end = shift(m.end)
}
