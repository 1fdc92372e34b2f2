// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/session/charset.go
// Summary: Transcodes between the session charset and UTF-8.

package session

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// codec is nil for UTF-8 sessions.
type codec struct {
	name string
	enc  encoding.Encoding
	out  *encoding.Encoder
}

func newCodec(name string) (*codec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return &codec{name: name, enc: enc, out: enc.NewEncoder()}, nil
}

// reader decodes shell output to UTF-8.
func (c *codec) reader(r io.Reader) io.Reader {
	if c == nil {
		return r
	}
	return transform.NewReader(r, c.enc.NewDecoder())
}

// encode converts UTF-8 input to the session charset. Unrepresentable
// runes are an error. Not safe for concurrent use.
func (c *codec) encode(p []byte) ([]byte, error) {
	if c == nil {
		return p, nil
	}
	out, err := c.out.Bytes(p)
	if err != nil {
		return nil, fmt.Errorf("encode input as %s: %w", c.name, err)
	}
	return out, nil
}
