// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/screen/buffer_modes.go
// Summary: ANSI and DEC private mode handling, including the alternate screen.
// Usage: Part of Buffer.

package screen

// Mode identifies a settable terminal mode.
type Mode int

const (
	ModeInsert Mode = iota + 1
	ModeLineFeedNewLine
	ModeAppCursorKeys
	ModeOrigin
	ModeAutoWrap
	ModeCursorBlinking
	ModeCursorVisible
	ModeMouseX10
	ModeMouseNormal
	ModeMouseButtonMotion
	ModeMouseAnyMotion
	ModeFocusReporting
	ModeMouseFormatUTF8
	ModeMouseFormatSGR
	ModeMouseFormatURXVT
	ModeAlternateScreen           // DECSET 47
	ModeAlternateScreenClear      // DECSET 1047
	ModeAlternateScreenSaveCursor // DECSET 1049
	ModeBracketedPaste
)

var modeNames = map[Mode]string{
	ModeInsert:                    "insert",
	ModeLineFeedNewLine:           "lnm",
	ModeAppCursorKeys:             "decckm",
	ModeOrigin:                    "decom",
	ModeAutoWrap:                  "decawm",
	ModeCursorBlinking:            "cursor-blink",
	ModeCursorVisible:             "dectcem",
	ModeMouseX10:                  "mouse-x10",
	ModeMouseNormal:               "mouse-normal",
	ModeMouseButtonMotion:         "mouse-button",
	ModeMouseAnyMotion:            "mouse-any",
	ModeFocusReporting:            "focus",
	ModeMouseFormatUTF8:           "mouse-utf8",
	ModeMouseFormatSGR:            "mouse-sgr",
	ModeMouseFormatURXVT:          "mouse-urxvt",
	ModeAlternateScreen:           "altscreen-47",
	ModeAlternateScreenClear:      "altscreen-1047",
	ModeAlternateScreenSaveCursor: "altscreen-1049",
	ModeBracketedPaste:            "bracketed-paste",
}

// String returns the mode's short name.
func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

// SetMode sets or resets a mode.
func (b *Buffer) SetMode(m Mode, on bool) {
	b.mutate(func() { b.setMode(m, on) })
}

func (b *Buffer) setMode(m Mode, on bool) {
	switch m {
	case ModeInsert:
		b.modes.Insert = on
	case ModeLineFeedNewLine:
		b.modes.LineFeedNewLine = on
	case ModeAppCursorKeys:
		b.modes.AppCursorKeys = on
	case ModeOrigin:
		b.modes.Origin = on
		if on {
			b.setCursor(0, b.top)
		} else {
			b.setCursor(0, 0)
		}
	case ModeAutoWrap:
		b.modes.AutoWrap = on
		if !on {
			b.wrapPending = false
		}
	case ModeCursorBlinking:
		b.modes.CursorBlinking = on
	case ModeCursorVisible:
		b.modes.CursorVisible = on
	case ModeMouseX10:
		b.setMouseMode(MouseX10, on)
	case ModeMouseNormal:
		b.setMouseMode(MouseNormal, on)
	case ModeMouseButtonMotion:
		b.setMouseMode(MouseButtonMotion, on)
	case ModeMouseAnyMotion:
		b.setMouseMode(MouseAnyMotion, on)
	case ModeFocusReporting:
		b.modes.FocusReporting = on
	case ModeMouseFormatUTF8:
		b.setMouseFormat(MouseFormatUTF8, on)
	case ModeMouseFormatSGR:
		b.setMouseFormat(MouseFormatSGR, on)
	case ModeMouseFormatURXVT:
		b.setMouseFormat(MouseFormatURXVT, on)
	case ModeAlternateScreen:
		b.switchScreen(on, false, false)
	case ModeAlternateScreenClear:
		b.switchScreen(on, true, false)
	case ModeAlternateScreenSaveCursor:
		b.switchScreen(on, true, true)
	case ModeBracketedPaste:
		b.modes.BracketedPaste = on
	default:
		b.log.Warn("screen: ignoring unknown mode", "mode", int(m), "on", on)
		return
	}
	b.touch()
}

func (b *Buffer) setMouseMode(mode MouseMode, on bool) {
	if on {
		b.modes.MouseMode = mode
	} else if b.modes.MouseMode == mode {
		b.modes.MouseMode = MouseNone
	}
}

func (b *Buffer) setMouseFormat(f MouseFormat, on bool) {
	if on {
		b.modes.MouseFormat = f
	} else if b.modes.MouseFormat == f {
		b.modes.MouseFormat = MouseFormatDefault
	}
}

// switchScreen enters or leaves the alternate screen. clear blanks the
// alternate grid on entry; saveCursor performs DECSC/DECRC around the switch
// as mode 1049 does.
func (b *Buffer) switchScreen(enter, clear, saveCursor bool) {
	if enter == b.inAlt {
		return
	}
	if enter {
		if saveCursor {
			b.saveCursor()
		}
		if b.alt == nil || clear {
			b.alt = makeLines(b.width, b.height, b.style)
		}
		b.inAlt = true
	} else {
		b.inAlt = false
		if saveCursor {
			b.restoreCursor()
		}
	}
	b.top, b.bottom = 0, b.height
	b.wrapPending = false
	b.cursorX = clamp(b.cursorX, 0, b.width-1)
	b.cursorY = clamp(b.cursorY, 0, b.height-1)
}
