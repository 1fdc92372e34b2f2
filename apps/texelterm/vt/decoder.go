// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/vt/decoder.go
// Summary: Maps sequences tokenized by the x/ansi parser onto Handler calls.
// Usage: Session reader goroutine writes PTY output into the Decoder.
// Notes: Covers what shells and line-oriented programs emit; DCS, APC, PM
//        and SOS payloads are dropped.

package vt

import (
	"context"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"pkt.systems/pslog"
)

// ShellMarkerOSC is the OSC number carrying shell-integration markers.
const ShellMarkerOSC = 1341

const (
	maxParamValue = 65535
	// Large enough for a hex-encoded shell history dump.
	maxOSCLength = 1 << 20
)

// Decoder turns a byte stream into Handler calls. It is not safe for
// concurrent use; one goroutine owns it.
type Decoder struct {
	h      Handler
	log    pslog.Logger
	parser *ansi.Parser
	text   strings.Builder
}

// NewDecoder creates a decoder delivering operations to h.
func NewDecoder(h Handler, log pslog.Logger) *Decoder {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	d := &Decoder{h: h, log: log, parser: ansi.NewParser()}
	d.parser.SetDataSize(maxOSCLength)
	d.parser.SetHandler(ansi.Handler{
		Print:     d.print,
		Execute:   d.execute,
		HandleCsi: d.csi,
		HandleEsc: d.esc,
		HandleOsc: d.osc,
		HandleDcs: func(cmd ansi.Cmd, _ ansi.Params, _ []byte) {
			d.flushText()
			d.log.Trace("vt: DCS dropped", "final", string(rune(cmd.Final())))
		},
	})
	return d
}

// Write decodes p. It never fails; malformed input is skipped. Sequences
// and UTF-8 runes may be split across writes.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.parser.Advance(b)
	}
	d.flushText()
	return len(p), nil
}

// WriteString decodes s.
func (d *Decoder) WriteString(s string) {
	_, _ = d.Write([]byte(s))
}

func (d *Decoder) flushText() {
	if d.text.Len() == 0 {
		return
	}
	s := d.text.String()
	d.text.Reset()
	d.h.Write(s)
}

func (d *Decoder) print(r rune) {
	d.text.WriteRune(r)
}

func (d *Decoder) execute(b byte) {
	d.flushText()
	switch b {
	case '\n', '\v', '\f':
		d.h.NewLine()
	case '\r':
		d.h.CarriageReturn()
	case '\b':
		d.h.Backspace()
	case '\t':
		d.h.Tab(1)
	case 0x07:
		d.h.Bell()
	case 0x0e:
		d.h.InvokeCharset(1)
	case 0x0f:
		d.h.InvokeCharset(0)
	case 0x84:
		d.h.Index()
	case 0x85:
		d.h.NextLine()
	case 0x88:
		d.h.SetTabStop()
	case 0x8d:
		d.h.ReverseIndex()
	}
}

func (d *Decoder) esc(cmd ansi.Cmd) {
	d.flushText()
	final := cmd.Final()
	switch inter := cmd.Intermediate(); inter {
	case 0:
	case '(', ')', '*', '+':
		d.designate(int(inter-'('), final)
		return
	case '#':
		if final == '8' {
			d.h.ScreenAlignment()
		}
		return
	default:
		d.log.Debug("vt: unhandled ESC sequence", "intermediate", string(rune(inter)), "final", string(rune(final)))
		return
	}
	switch final {
	case '7':
		d.h.SaveCursor()
	case '8':
		d.h.RestoreCursor()
	case 'D':
		d.h.Index()
	case 'E':
		d.h.NextLine()
	case 'H':
		d.h.SetTabStop()
	case 'M':
		d.h.ReverseIndex()
	case 'c':
		d.h.Reset()
	case 'n':
		d.h.InvokeCharset(2)
	case 'o':
		d.h.InvokeCharset(3)
	case '=', '>', '\\':
	default:
		d.log.Debug("vt: unhandled ESC sequence", "final", string(rune(final)))
	}
}

func (d *Decoder) designate(slot int, final byte) {
	switch final {
	case '0':
		d.h.DesignateCharset(slot, screen.CharsetDECSpecialGraphics)
	case 'A':
		d.h.DesignateCharset(slot, screen.CharsetUK)
	case 'B':
		d.h.DesignateCharset(slot, screen.CharsetASCII)
	default:
		d.log.Debug("vt: unsupported charset", "slot", slot, "charset", string(rune(final)))
	}
}

// param returns parameter i, or def when it is missing or zero.
func param(params ansi.Params, i, def int) int {
	v, _, ok := params.Param(i, def)
	if !ok || v == 0 {
		return def
	}
	return min(v, maxParamValue)
}

// values flattens parameters, sub-parameters included, with missing ones
// read as zero.
func values(params ansi.Params) []int {
	out := make([]int, 0, len(params))
	params.ForEach(0, func(_, p int, _ bool) {
		out = append(out, min(p, maxParamValue))
	})
	return out
}

func (d *Decoder) csi(cmd ansi.Cmd, params ansi.Params) {
	d.flushText()
	h := d.h
	final, private := cmd.Final(), cmd.Prefix()
	if inter := cmd.Intermediate(); inter != 0 {
		d.log.Debug("vt: unhandled CSI with intermediate", "intermediate", string(rune(inter)), "final", string(rune(final)))
		return
	}
	if private != 0 && private != '?' && final != 'c' {
		d.log.Debug("vt: unhandled private CSI", "private", string(rune(private)), "final", string(rune(final)))
		return
	}
	switch final {
	case '@':
		h.InsertCharacters(param(params, 0, 1))
	case 'A':
		h.CursorUp(param(params, 0, 1))
	case 'B', 'e':
		h.CursorDown(param(params, 0, 1))
	case 'C', 'a':
		h.CursorForward(param(params, 0, 1))
	case 'D':
		h.CursorBackward(param(params, 0, 1))
	case 'E':
		h.CursorDown(param(params, 0, 1))
		h.CarriageReturn()
	case 'F':
		h.CursorUp(param(params, 0, 1))
		h.CarriageReturn()
	case 'G', '`':
		h.CursorColumn(param(params, 0, 1) - 1)
	case 'H', 'f':
		h.CursorPosition(param(params, 0, 1)-1, param(params, 1, 1)-1)
	case 'I':
		h.Tab(param(params, 0, 1))
	case 'J':
		h.EraseInDisplay(param(params, 0, 0))
	case 'K':
		h.EraseInLine(param(params, 0, 0))
	case 'L':
		h.InsertLines(param(params, 0, 1))
	case 'M':
		h.DeleteLines(param(params, 0, 1))
	case 'P':
		h.DeleteCharacters(param(params, 0, 1))
	case 'S':
		h.ScrollUp(param(params, 0, 1))
	case 'T':
		h.ScrollDown(param(params, 0, 1))
	case 'X':
		h.EraseCharacters(param(params, 0, 1))
	case 'Z':
		h.BackTab(param(params, 0, 1))
	case 'd':
		h.CursorRow(param(params, 0, 1) - 1)
	case 'g':
		h.ClearTabStop(param(params, 0, 0))
	case 'h', 'l':
		d.modes(private == '?', values(params), final == 'h')
	case 'm':
		h.SetGraphicRendition(values(params))
	case 'n':
		h.DeviceStatusReport(param(params, 0, 0))
	case 'c':
		h.DeviceAttributes(private == '>')
	case 'r':
		h.SetScrollingRegion(param(params, 0, 0), param(params, 1, 0))
	case 's':
		h.SaveCursor()
	case 'u':
		h.RestoreCursor()
	default:
		d.log.Debug("vt: unhandled CSI", "final", string(rune(final)), "params", values(params))
	}
}

var ansiModes = map[int]screen.Mode{
	4:  screen.ModeInsert,
	20: screen.ModeLineFeedNewLine,
}

var decModes = map[int]screen.Mode{
	1:    screen.ModeAppCursorKeys,
	6:    screen.ModeOrigin,
	7:    screen.ModeAutoWrap,
	9:    screen.ModeMouseX10,
	12:   screen.ModeCursorBlinking,
	25:   screen.ModeCursorVisible,
	47:   screen.ModeAlternateScreen,
	1000: screen.ModeMouseNormal,
	1002: screen.ModeMouseButtonMotion,
	1003: screen.ModeMouseAnyMotion,
	1004: screen.ModeFocusReporting,
	1005: screen.ModeMouseFormatUTF8,
	1006: screen.ModeMouseFormatSGR,
	1015: screen.ModeMouseFormatURXVT,
	1047: screen.ModeAlternateScreenClear,
	1049: screen.ModeAlternateScreenSaveCursor,
	2004: screen.ModeBracketedPaste,
}

func (d *Decoder) modes(dec bool, params []int, on bool) {
	table := ansiModes
	if dec {
		table = decModes
	}
	for _, p := range params {
		if m, ok := table[p]; ok {
			d.h.SetMode(m, on)
			continue
		}
		d.log.Debug("vt: unhandled mode", "mode", p, "private", dec, "on", on)
	}
}

func (d *Decoder) osc(cmd int, data []byte) {
	d.flushText()
	_, payload, _ := strings.Cut(string(data), ";")
	switch cmd {
	case 0, 2:
		d.h.SetTitle(payload)
	case ShellMarkerOSC:
		d.h.ShellMarker(payload)
	default:
		d.log.Debug("vt: unhandled OSC", "command", cmd)
	}
}
