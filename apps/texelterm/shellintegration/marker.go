// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/marker.go
// Summary: Shell-integration marker payload parsing and formatting.
// Usage: Payloads arrive without the OSC number, e.g.
//        "command_finished;command=6c73;exit_code=30;duration=3132".
// Notes: Keyed values are hex-encoded UTF-8; a value that is not valid hex
//        (or decodes to invalid UTF-8) is taken verbatim. Numeric fields
//        fall back to the raw text when the decoded value is not a number.

package shellintegration

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformedMarker is returned for payloads that cannot be interpreted.
var ErrMalformedMarker = errors.New("shellintegration: malformed marker")

// Marker names emitted by the integration scripts.
const (
	MarkerInitialized        = "initialized"
	MarkerPromptStateUpdated = "prompt_state_updated"
	MarkerCommandStarted     = "command_started"
	MarkerCommandFinished    = "command_finished"
	MarkerGeneratorFinished  = "generator_finished"
	MarkerCommandHistory     = "command_history"
)

// Marker is a parsed shell-integration payload.
type Marker struct {
	Name       string
	Positional []string
	Values     map[string]string
	Raw        map[string]string
}

// Value returns the decoded value for key, or "".
func (m Marker) Value(key string) string {
	return m.Values[key]
}

// Has reports whether key was present.
func (m Marker) Has(key string) bool {
	_, ok := m.Values[key]
	return ok
}

// Int returns the integer value for key, or def when key is absent or
// empty. The decoded value is tried first, then the raw text, so
// "exit_code=30" reads as 0 and "exit_code=10" as 10.
func (m Marker) Int(key string, def int) (int, error) {
	n, err := m.number(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 0) })
	return int(n), err
}

// Uint is Int for unsigned identifiers.
func (m Marker) Uint(key string) (uint64, error) {
	n, err := m.number(key, 0, func(s string) (int64, error) {
		u, err := strconv.ParseUint(s, 10, 63)
		return int64(u), err
	})
	return uint64(n), err
}

func (m Marker) number(key string, def int, parse func(string) (int64, error)) (int64, error) {
	if m.Value(key) == "" {
		return int64(def), nil
	}
	for _, v := range []string{m.Value(key), m.Raw[key]} {
		if n, err := parse(strings.TrimSpace(v)); err == nil {
			return n, nil
		}
	}
	return int64(def), fmt.Errorf("%w: %s %q", ErrMalformedMarker, key, m.Raw[key])
}

// ParseMarker parses a marker payload.
func ParseMarker(payload string) (Marker, error) {
	parts := strings.Split(payload, ";")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Marker{}, fmt.Errorf("%w: empty event name in %q", ErrMalformedMarker, payload)
	}
	m := Marker{Name: name, Values: make(map[string]string), Raw: make(map[string]string)}
	for _, arg := range parts[1:] {
		key, value, keyed := strings.Cut(arg, "=")
		if !keyed || key == "" {
			m.Positional = append(m.Positional, arg)
			continue
		}
		m.Values[key] = decodeValue(value)
		m.Raw[key] = value
	}
	return m, nil
}

func decodeValue(v string) string {
	if v == "" {
		return ""
	}
	b, err := hex.DecodeString(v)
	if err != nil || !utf8.Valid(b) {
		return v
	}
	return string(b)
}

// FormatMarker builds a payload with hex-encoded values from key/value
// pairs. A trailing key without a value is ignored.
func FormatMarker(name string, kv ...string) string {
	var sb strings.Builder
	sb.WriteString(name)
	for i := 0; i+1 < len(kv); i += 2 {
		sb.WriteByte(';')
		sb.WriteString(kv[i])
		sb.WriteByte('=')
		sb.WriteString(hex.EncodeToString([]byte(kv[i+1])))
	}
	return sb.String()
}
