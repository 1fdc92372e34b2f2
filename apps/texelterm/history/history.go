// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/history/history.go
// Summary: In-memory ordered command history seeded from the shell.
// Usage: The session seeds it once from the command_history marker and adds
//        every finished command; Search feeds completion and the CLI.
// Notes: The set keeps one entry per command; re-adding moves it to the end.

package history

import (
	"strings"
	"sync"
)

// Set is an ordered set of commands, oldest first.
type Set struct {
	mu      sync.Mutex
	order   []string
	index   map[string]int
	seeded  bool
	maxSize int
}

// NewSet returns an empty set holding at most maxSize entries (0 = unbounded).
func NewSet(maxSize int) *Set {
	return &Set{index: make(map[string]int), maxSize: maxSize}
}

// Seed loads the shell's history dump. Only the first call has an effect;
// commands added before seeding stay newest.
func (s *Set) Seed(dump string) bool {
	entries := ParseDump(dump)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		return false
	}
	s.seeded = true
	existing := s.order
	s.order = nil
	s.index = make(map[string]int)
	for _, e := range entries {
		s.addLocked(e)
	}
	for _, e := range existing {
		s.addLocked(e)
	}
	return true
}

// Add appends cmd, moving it to the end if already present.
func (s *Set) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(cmd)
}

func (s *Set) addLocked(cmd string) {
	if i, ok := s.index[cmd]; ok {
		s.order = append(s.order[:i], s.order[i+1:]...)
		s.reindex(i)
	}
	s.order = append(s.order, cmd)
	s.index[cmd] = len(s.order) - 1
	if s.maxSize > 0 && len(s.order) > s.maxSize {
		drop := len(s.order) - s.maxSize
		for _, c := range s.order[:drop] {
			delete(s.index, c)
		}
		s.order = append([]string(nil), s.order[drop:]...)
		s.reindex(0)
	}
}

func (s *Set) reindex(from int) {
	for i := from; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Entries returns the commands, oldest first.
func (s *Set) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Search returns up to limit commands containing query, newest first.
func (s *Set) Search(query string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(s.order[i], query) {
			out = append(out, s.order[i])
		}
	}
	return out
}

// ParseDump splits a history dump into commands. It understands plain
// lines (fc -ln), bash `history` numbering and zsh extended history
// (": <epoch>:<elapsed>;cmd"). Bash timestamp comments are skipped.
func ParseDump(dump string) []string {
	var out []string
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimRight(line, "\r")
		if cmd, ok := parseLine(line); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func parseLine(line string) (string, bool) {
	if strings.HasPrefix(line, ": ") {
		if i := strings.IndexByte(line, ';'); i > 0 && isZshStamp(line[2:i]) {
			line = line[i+1:]
		}
	}
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 1 && trimmed[0] == '#' && allDigits(trimmed[1:]) {
		return "", false
	}
	if n := leadingDigits(trimmed); n > 0 && n < len(trimmed) && (trimmed[n] == ' ' || trimmed[n] == '*') {
		trimmed = strings.TrimSpace(strings.TrimLeft(trimmed[n:], "*"))
	}
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func isZshStamp(s string) bool {
	epoch, elapsed, ok := strings.Cut(s, ":")
	return ok && allDigits(epoch) && allDigits(elapsed)
}

func allDigits(s string) bool {
	return s != "" && leadingDigits(s) == len(s)
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
