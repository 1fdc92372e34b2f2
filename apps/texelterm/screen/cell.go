// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/cell.go
// Summary: Cell, color and style types stored in the screen buffer.
// Usage: Shared by the buffer, the controller and the output scraper.

package screen

import "strings"

// Attribute is a bit set of SGR text attributes.
type Attribute uint16

const (
	AttrBold Attribute = 1 << iota
	AttrFaint
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrHidden
	AttrStrike
)

var attrNames = []struct {
	attr Attribute
	name string
}{
	{AttrBold, "bold"},
	{AttrFaint, "faint"},
	{AttrItalic, "italic"},
	{AttrUnderline, "underline"},
	{AttrBlink, "blink"},
	{AttrReverse, "reverse"},
	{AttrHidden, "hidden"},
	{AttrStrike, "strike"},
}

// String returns a human-readable representation of the attribute flags.
func (a Attribute) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, n := range attrNames {
		if a&n.attr != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// ColorMode defines the type of color stored.
type ColorMode int

const (
	ColorModeDefault  ColorMode = iota // Default terminal color
	ColorModeStandard                  // The 16 ANSI colors
	ColorMode256                       // 256-color palette
	ColorModeRGB                       // 24-bit "true" color
)

// Color represents a color in one of the supported modes.
type Color struct {
	Mode    ColorMode
	Value   uint8 // Palette index for Standard (0-15) and 256-mode
	R, G, B uint8 // RGB mode only
}

// Predefined default colors.
var (
	DefaultFG = Color{Mode: ColorModeDefault}
	DefaultBG = Color{Mode: ColorModeDefault}
)

// StandardColor returns one of the 16 ANSI colors.
func StandardColor(i int) Color {
	return Color{Mode: ColorModeStandard, Value: uint8(i)}
}

// PaletteColor returns a 256-color palette entry.
func PaletteColor(i int) Color {
	return Color{Mode: ColorMode256, Value: uint8(i)}
}

// RGBColor returns a truecolor value.
func RGBColor(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, R: r, G: g, B: b}
}

// Style is the rendition applied to written cells.
type Style struct {
	FG   Color
	BG   Color
	Attr Attribute
}

// DefaultStyle is the rendition after SGR 0.
var DefaultStyle = Style{FG: DefaultFG, BG: DefaultBG}

// IsDefault reports whether the style carries no rendition at all.
func (s Style) IsDefault() bool {
	return s == DefaultStyle
}

// Cell represents a single character cell on the screen.
type Cell struct {
	Rune  rune
	Style Style
	// Wide marks the first cell of a 2-column rune. The second cell holds
	// Rune 0 and is skipped when extracting text.
	Wide bool
}

// blank returns an erased cell carrying the background of st.
func blank(st Style) Cell {
	return Cell{Rune: ' ', Style: Style{FG: DefaultFG, BG: st.BG}}
}

// Line is one physical row of the grid.
type Line struct {
	Cells []Cell
	// Wrapped is set when the logical line continues on the next physical
	// line because the cursor auto-wrapped, as opposed to a hard newline.
	Wrapped bool
}

func newLine(width int, st Style) *Line {
	l := &Line{Cells: make([]Cell, width)}
	l.fill(0, width, st)
	return l
}

func (l *Line) fill(from, to int, st Style) {
	if from < 0 {
		from = 0
	}
	if to > len(l.Cells) {
		to = len(l.Cells)
	}
	b := blank(st)
	for x := from; x < to; x++ {
		l.Cells[x] = b
	}
}

func (l *Line) clone() Line {
	cells := make([]Cell, len(l.Cells))
	copy(cells, l.Cells)
	return Line{Cells: cells, Wrapped: l.Wrapped}
}

// Text returns the line content with trailing blanks removed.
func (l Line) Text() string {
	return strings.TrimRight(cellText(l.Cells), " ")
}

// IsBlank reports whether the line holds only spaces.
func (l Line) IsBlank() bool {
	for _, c := range l.Cells {
		if c.Rune != ' ' && c.Rune != 0 {
			return false
		}
	}
	return true
}

func cellText(cells []Cell) string {
	var sb strings.Builder
	sb.Grow(len(cells))
	for _, c := range cells {
		if c.Rune == 0 {
			continue
		}
		sb.WriteRune(c.Rune)
	}
	return sb.String()
}
