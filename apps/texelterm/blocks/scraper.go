// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/blocks/scraper.go
// Summary: Extracts styled command output from buffer snapshots.
// Usage: Model scrapes from a block's origin row on every content change.
// Notes: Blank line tails are trimmed, soft-wrapped rows are joined and hard
//        breaks are only written once a non-empty line follows them.

package blocks

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

// ScrapeResult is the text extracted from a snapshot.
type ScrapeResult struct {
	Text           string
	Styles         []StyleRange
	EndMarkerFound bool
}

// OutputScraper turns buffer rows into block output.
type OutputScraper struct {
	endMarker string
	pattern   *regexp.Regexp
}

// NewOutputScraper returns a scraper that stops at endMarker. An empty
// marker disables detection.
func NewOutputScraper(endMarker string) *OutputScraper {
	s := &OutputScraper{endMarker: endMarker}
	if endMarker != "" {
		s.pattern = markerPattern(endMarker)
	}
	return s
}

// markerPattern matches marker with an optional hard break between any two
// of its characters, since the marker may straddle a line end.
func markerPattern(marker string) *regexp.Regexp {
	parts := make([]string, 0, utf8.RuneCountInString(marker))
	for _, r := range marker {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return regexp.MustCompile(strings.Join(parts, `\n?`))
}

// Scrape concatenates snapshot rows starting at absolute row fromRow. On the
// alternate screen every screen row is used.
func Scrape(snap screen.Snapshot, fromRow int64, endMarker string) ScrapeResult {
	return NewOutputScraper(endMarker).Scrape(snap, fromRow)
}

func (s *OutputScraper) Scrape(snap screen.Snapshot, fromRow int64) ScrapeResult {
	start := 0
	if !snap.AlternateScreen {
		start = int(max(fromRow-snap.FirstRow, 0))
	}
	var (
		sb      strings.Builder
		styles  []StyleRange
		pending int
		offset  int
	)
	for i := start; i < len(snap.Lines); i++ {
		l := snap.Lines[i]
		cells := l.Cells
		if !l.Wrapped {
			cells = trimBlank(cells)
		}
		if len(cells) == 0 && !l.Wrapped {
			pending++
			continue
		}
		for ; pending > 0; pending-- {
			sb.WriteByte('\n')
			offset++
		}
		for _, c := range cells {
			if c.Rune == 0 {
				continue
			}
			sb.WriteRune(c.Rune)
			if !c.Style.IsDefault() {
				styles = addStyle(styles, offset, c.Style)
			}
			offset++
		}
		if !l.Wrapped {
			pending++
		}
	}
	res := ScrapeResult{Text: sb.String(), Styles: styles}
	if s.pattern != nil {
		if loc := s.pattern.FindStringIndex(res.Text); loc != nil {
			text := strings.TrimRightFunc(res.Text[:loc[0]], unicode.IsSpace)
			res.Text = text
			res.Styles = clipStyles(res.Styles, utf8.RuneCountInString(text))
			res.EndMarkerFound = true
		}
	}
	return res
}

func trimBlank(cells []screen.Cell) []screen.Cell {
	end := len(cells)
	for end > 0 && (cells[end-1].Rune == ' ' || cells[end-1].Rune == 0) {
		end--
	}
	return cells[:end]
}

func addStyle(styles []StyleRange, at int, st screen.Style) []StyleRange {
	if n := len(styles); n > 0 && styles[n-1].End == at && styles[n-1].Style == st {
		styles[n-1].End++
		return styles
	}
	return append(styles, StyleRange{Start: at, End: at + 1, Style: st})
}

func clipStyles(styles []StyleRange, limit int) []StyleRange {
	out := styles[:0]
	for _, r := range styles {
		if r.Start >= limit {
			break
		}
		r.End = min(r.End, limit)
		out = append(out, r)
	}
	return out
}
