// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package txfmt renders command blocks as ANSI text for line-oriented
// output, re-applying the styles captured from the screen.
package txfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/framegrace/texelshell/apps/texelterm/blocks"
	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

const sgrReset = "\x1b[0m"

// Options controls block rendering.
type Options struct {
	// Color enables SGR sequences. Without it only text is written.
	Color bool
	// Style names the Chroma style for the command line; empty uses the default.
	Style string
	// Status appends a line with the exit code and duration.
	Status bool
}

// SGR returns the sequence selecting st from a reset state.
func SGR(st screen.Style) string {
	if st.IsDefault() {
		return sgrReset
	}
	params := []string{"0"}
	attrs := []struct {
		attr screen.Attribute
		code string
	}{
		{screen.AttrBold, "1"},
		{screen.AttrFaint, "2"},
		{screen.AttrItalic, "3"},
		{screen.AttrUnderline, "4"},
		{screen.AttrBlink, "5"},
		{screen.AttrReverse, "7"},
		{screen.AttrHidden, "8"},
		{screen.AttrStrike, "9"},
	}
	for _, a := range attrs {
		if st.Attr&a.attr != 0 {
			params = append(params, a.code)
		}
	}
	params = appendColor(params, st.FG, 30)
	params = appendColor(params, st.BG, 40)
	return "\x1b[" + strings.Join(params, ";") + "m"
}

// appendColor adds the parameters for c; base is 30 for foreground and 40
// for background.
func appendColor(params []string, c screen.Color, base int) []string {
	switch c.Mode {
	case screen.ColorModeStandard:
		if c.Value < 8 {
			return append(params, strconv.Itoa(base+int(c.Value)))
		}
		return append(params, strconv.Itoa(base+60+int(c.Value-8)))
	case screen.ColorMode256:
		return append(params, strconv.Itoa(base+8), "5", strconv.Itoa(int(c.Value)))
	case screen.ColorModeRGB:
		return append(params, strconv.Itoa(base+8), "2",
			strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B)))
	}
	return params
}

// Styled renders text with the given rune ranges. Ranges must be sorted and
// must not overlap.
func Styled(text string, ranges []blocks.StyleRange) string {
	if len(ranges) == 0 {
		return text
	}
	var sb strings.Builder
	runes := []rune(text)
	pos := 0
	for _, r := range ranges {
		start := min(max(r.Start, pos), len(runes))
		end := min(r.End, len(runes))
		if start >= end {
			continue
		}
		sb.WriteString(string(runes[pos:start]))
		sb.WriteString(SGR(r.Style))
		sb.WriteString(string(runes[start:end]))
		sb.WriteString(sgrReset)
		pos = end
	}
	sb.WriteString(string(runes[pos:]))
	return sb.String()
}

// WriteBlock renders b: prompt and highlighted command, then its output.
// The block must not change while it is written.
func WriteBlock(w io.Writer, b *blocks.CommandBlock, opts Options) error {
	command := b.Command
	output := b.Output()
	if opts.Color {
		command = Styled(command, HighlightCommand(command, opts.Style))
		output = Styled(output, b.Styles())
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", b.Prompt, command); err != nil {
		return err
	}
	if output != "" {
		if _, err := fmt.Fprintf(w, "%s\n", output); err != nil {
			return err
		}
	}
	if opts.Status {
		if _, err := fmt.Fprintln(w, Status(b)); err != nil {
			return err
		}
	}
	return nil
}

// Status summarizes how a block ended.
func Status(b *blocks.CommandBlock) string {
	if !b.IsFinalized() {
		return "[running]"
	}
	code := "?"
	if b.ExitCode() >= 0 {
		code = strconv.Itoa(b.ExitCode())
	}
	return fmt.Sprintf("[exit %s, %s]", code, b.Duration())
}
