// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/txfmt/chroma.go
// Summary: Highlights command lines with Chroma's shell lexer.

package txfmt

import (
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/framegrace/texelshell/apps/texelterm/blocks"
	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

const defaultStyleName = "catppuccin-mocha"

// chromaStyle resolves a style name to a Chroma style, falling back to the default.
func chromaStyle(name string) *chroma.Style {
	if name == "" {
		name = defaultStyleName
	}
	return styles.Get(name)
}

// HighlightCommand returns style ranges, in runes, for a shell command line.
// Tokens drawn in the style's base text color get no range.
func HighlightCommand(command, styleName string) []blocks.StyleRange {
	if command == "" {
		return nil
	}
	lexer := lexers.Get("bash")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	tokens, err := chroma.Tokenise(lexer, nil, command)
	if err != nil {
		return nil
	}
	style := chromaStyle(styleName)
	base := style.Get(chroma.Text).Colour

	var out []blocks.StyleRange
	pos := 0
	for _, tok := range tokens {
		if tok.Type == chroma.EOFType {
			break
		}
		n := utf8.RuneCountInString(tok.Value)
		if st, ok := resolveTokenStyle(style.Get(tok.Type), base); ok && n > 0 {
			if last := len(out) - 1; last >= 0 && out[last].End == pos && out[last].Style == st {
				out[last].End += n
			} else {
				out = append(out, blocks.StyleRange{Start: pos, End: pos + n, Style: st})
			}
		}
		pos += n
	}
	// The lexer may append a newline the command did not have.
	total := utf8.RuneCountInString(command)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Start >= total {
			out = out[:i]
			continue
		}
		out[i].End = min(out[i].End, total)
	}
	return out
}

// resolveTokenStyle maps a Chroma entry to a cell style. It reports false
// when the entry adds nothing over the base text.
func resolveTokenStyle(entry chroma.StyleEntry, base chroma.Colour) (screen.Style, bool) {
	st := screen.DefaultStyle
	if entry.Bold == chroma.Yes {
		st.Attr |= screen.AttrBold
	}
	if entry.Italic == chroma.Yes {
		st.Attr |= screen.AttrItalic
	}
	if entry.Underline == chroma.Yes {
		st.Attr |= screen.AttrUnderline
	}
	if entry.Colour.IsSet() && entry.Colour != base {
		st.FG = screen.RGBColor(entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue())
	}
	return st, !st.IsDefault()
}
