// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/keys/keys.go
// Summary: Encodes tcell key events into the bytes a shell expects.
// Usage: Session key-binding injection; Parse turns names such as "ctrl+l"
//        or "alt+left" from configuration into events.

package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

var tildeKeys = map[tcell.Key]int{
	tcell.KeyInsert: 2,
	tcell.KeyDelete: 3,
	tcell.KeyPgUp:   5,
	tcell.KeyPgDn:   6,
	tcell.KeyF5:     15,
	tcell.KeyF6:     17,
	tcell.KeyF7:     18,
	tcell.KeyF8:     19,
	tcell.KeyF9:     20,
	tcell.KeyF10:    21,
	tcell.KeyF11:    23,
	tcell.KeyF12:    24,
}

var cursorKeys = map[tcell.Key]byte{
	tcell.KeyUp:    'A',
	tcell.KeyDown:  'B',
	tcell.KeyRight: 'C',
	tcell.KeyLeft:  'D',
	tcell.KeyHome:  'H',
	tcell.KeyEnd:   'F',
}

var ss3Keys = map[tcell.Key]byte{
	tcell.KeyF1: 'P',
	tcell.KeyF2: 'Q',
	tcell.KeyF3: 'R',
	tcell.KeyF4: 'S',
}

// modifierParam returns the xterm modifier parameter, or 0 without modifiers.
func modifierParam(m tcell.ModMask) int {
	p := 0
	if m&tcell.ModShift != 0 {
		p |= 1
	}
	if m&tcell.ModAlt != 0 {
		p |= 2
	}
	if m&tcell.ModCtrl != 0 {
		p |= 4
	}
	if p == 0 {
		return 0
	}
	return p + 1
}

// Encode returns the byte sequence for ev. appCursor selects application
// cursor key mode (DECCKM).
func Encode(ev *tcell.EventKey, appCursor bool) []byte {
	key := ev.Key()
	mods := ev.Modifiers()
	mp := modifierParam(mods)

	if final, ok := cursorKeys[key]; ok {
		switch {
		case mp != 0:
			return []byte("\x1b[1;" + strconv.Itoa(mp) + string(final))
		case appCursor:
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}
	if final, ok := ss3Keys[key]; ok {
		if mp != 0 {
			return []byte("\x1b[1;" + strconv.Itoa(mp) + string(final))
		}
		return []byte{0x1b, 'O', final}
	}
	if code, ok := tildeKeys[key]; ok {
		if mp != 0 {
			return []byte(fmt.Sprintf("\x1b[%d;%d~", code, mp))
		}
		return []byte(fmt.Sprintf("\x1b[%d~", code))
	}

	var out []byte
	switch key {
	case tcell.KeyBacktab:
		return []byte("\x1b[Z")
	case tcell.KeyEnter:
		out = []byte{'\r'}
	case tcell.KeyBackspace2:
		out = []byte{0x7f}
	case tcell.KeyRune:
		r := ev.Rune()
		if mods&tcell.ModCtrl != 0 {
			if c, ok := ctrlByte(r); ok {
				out = []byte{c}
				break
			}
		}
		out = utf8.AppendRune(nil, r)
	default:
		if key < 0x20 || key == 0x7f {
			out = []byte{byte(key)}
		}
	}
	if out != nil && mods&tcell.ModAlt != 0 {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// ctrlByte maps a rune to its control code, as terminals do for Ctrl+rune.
func ctrlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1, true
	case r >= '@' && r <= '_':
		return byte(r - '@'), true
	case r == ' ':
		return 0, true
	}
	return 0, false
}

var namedKeys = map[string]tcell.Key{
	"enter":     tcell.KeyEnter,
	"tab":       tcell.KeyTab,
	"backtab":   tcell.KeyBacktab,
	"esc":       tcell.KeyEsc,
	"escape":    tcell.KeyEsc,
	"backspace": tcell.KeyBackspace2,
	"delete":    tcell.KeyDelete,
	"insert":    tcell.KeyInsert,
	"home":      tcell.KeyHome,
	"end":       tcell.KeyEnd,
	"pgup":      tcell.KeyPgUp,
	"pgdn":      tcell.KeyPgDn,
	"up":        tcell.KeyUp,
	"down":      tcell.KeyDown,
	"left":      tcell.KeyLeft,
	"right":     tcell.KeyRight,
}

// Parse reads a key description such as "ctrl+c", "alt+b", "shift+up" or
// "f5" into an event.
func Parse(spec string) (*tcell.EventKey, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	name := parts[len(parts)-1]
	if name == "" {
		return nil, fmt.Errorf("parse key %q: missing key name", spec)
	}
	mods := tcell.ModNone
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			mods |= tcell.ModCtrl
		case "alt", "meta":
			mods |= tcell.ModAlt
		case "shift":
			mods |= tcell.ModShift
		default:
			return nil, fmt.Errorf("parse key %q: unknown modifier %q", spec, p)
		}
	}

	if k, ok := namedKeys[name]; ok {
		return tcell.NewEventKey(k, 0, mods), nil
	}
	if name == "space" {
		name = " "
	}
	if len(name) > 1 && name[0] == 'f' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 12 {
			return tcell.NewEventKey(tcell.KeyF1+tcell.Key(n-1), 0, mods), nil
		}
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || size != len(name) {
		return nil, fmt.Errorf("parse key %q: unknown key %q", spec, name)
	}
	if mods&tcell.ModCtrl != 0 && r >= 'a' && r <= 'z' {
		return tcell.NewEventKey(tcell.KeyCtrlA+tcell.Key(r-'a'), 0, mods), nil
	}
	return tcell.NewEventKey(tcell.KeyRune, r, mods), nil
}
