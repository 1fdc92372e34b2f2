// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_sgr.go
// Summary: Select Graphic Rendition handling.
// Usage: Part of Buffer.

package screen

// SetGraphicRendition applies SGR parameters to the current style. An empty
// parameter list resets the rendition.
func (b *Buffer) SetGraphicRendition(params []int) {
	b.mutate(func() {
		if len(params) == 0 {
			b.style = DefaultStyle
			return
		}
		for i := 0; i < len(params); i++ {
			p := params[i]
			switch {
			case p == 0:
				b.style = DefaultStyle
			case p == 1:
				b.style.Attr |= AttrBold
			case p == 2:
				b.style.Attr |= AttrFaint
			case p == 3:
				b.style.Attr |= AttrItalic
			case p == 4:
				b.style.Attr |= AttrUnderline
			case p == 5 || p == 6:
				b.style.Attr |= AttrBlink
			case p == 7:
				b.style.Attr |= AttrReverse
			case p == 8:
				b.style.Attr |= AttrHidden
			case p == 9:
				b.style.Attr |= AttrStrike
			case p == 22:
				b.style.Attr &^= AttrBold | AttrFaint
			case p == 23:
				b.style.Attr &^= AttrItalic
			case p == 24:
				b.style.Attr &^= AttrUnderline
			case p == 25:
				b.style.Attr &^= AttrBlink
			case p == 27:
				b.style.Attr &^= AttrReverse
			case p == 28:
				b.style.Attr &^= AttrHidden
			case p == 29:
				b.style.Attr &^= AttrStrike
			case p >= 30 && p <= 37:
				b.style.FG = StandardColor(p - 30)
			case p == 38:
				c, used, ok := extendedColor(params[i+1:])
				i += used
				if ok {
					b.style.FG = c
				}
			case p == 39:
				b.style.FG = DefaultFG
			case p >= 40 && p <= 47:
				b.style.BG = StandardColor(p - 40)
			case p == 48:
				c, used, ok := extendedColor(params[i+1:])
				i += used
				if ok {
					b.style.BG = c
				}
			case p == 49:
				b.style.BG = DefaultBG
			case p >= 90 && p <= 97:
				b.style.FG = StandardColor(p - 90 + 8)
			case p >= 100 && p <= 107:
				b.style.BG = StandardColor(p - 100 + 8)
			default:
				b.log.Debug("screen: ignoring SGR parameter", "param", p)
			}
		}
	})
}

// extendedColor parses the arguments following 38/48. It returns the number
// of parameters consumed.
func extendedColor(args []int) (Color, int, bool) {
	if len(args) == 0 {
		return Color{}, 0, false
	}
	switch args[0] {
	case 5:
		if len(args) < 2 {
			return Color{}, len(args), false
		}
		return PaletteColor(args[1]), 2, true
	case 2:
		if len(args) < 4 {
			return Color{}, len(args), false
		}
		return RGBColor(uint8(args[1]), uint8(args[2]), uint8(args[3])), 4, true
	}
	return Color{}, 1, false
}
