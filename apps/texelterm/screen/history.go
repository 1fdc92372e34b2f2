// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/history.go
// Summary: Bounded scrollback ring for lines scrolled off the main screen.
// Usage: Owned by Buffer; only touched under the content lock.

package screen

// scrollback is a fixed-capacity circular buffer of lines. When full, the
// oldest line is dropped.
type scrollback struct {
	lines      []*Line
	head, size int
	// dropped counts every line ever evicted, so absolute row numbers stay
	// stable while the ring rotates.
	dropped int64
}

func newScrollback(capacity int) *scrollback {
	if capacity < 0 {
		capacity = 0
	}
	return &scrollback{lines: make([]*Line, capacity)}
}

func (s *scrollback) Len() int { return s.size }

func (s *scrollback) Cap() int { return len(s.lines) }

// Push appends a line, evicting the oldest one when at capacity.
func (s *scrollback) Push(l *Line) {
	if len(s.lines) == 0 {
		s.dropped++
		return
	}
	idx := (s.head + s.size) % len(s.lines)
	s.lines[idx] = l
	if s.size < len(s.lines) {
		s.size++
		return
	}
	s.head = (s.head + 1) % len(s.lines)
	s.dropped++
}

// Pop removes and returns the newest line, or nil.
func (s *scrollback) Pop() *Line {
	if s.size == 0 {
		return nil
	}
	idx := (s.head + s.size - 1) % len(s.lines)
	l := s.lines[idx]
	s.lines[idx] = nil
	s.size--
	return l
}

// At returns the i-th oldest retained line.
func (s *scrollback) At(i int) *Line {
	if i < 0 || i >= s.size {
		return nil
	}
	return s.lines[(s.head+i)%len(s.lines)]
}

// Clear drops every retained line.
func (s *scrollback) Clear() {
	s.dropped += int64(s.size)
	for i := range s.lines {
		s.lines[i] = nil
	}
	s.head, s.size = 0, 0
}

// firstAbs is the absolute row number of At(0).
func (s *scrollback) firstAbs() int64 {
	return s.dropped
}
