// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/shellintegration_test.go
// Summary: Marker parsing, integration source and heuristic tracker tests.

package shellintegration

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

// recorder collects events in arrival order.
type recorder struct {
	events []any
}

func (r *recorder) listener() ListenerFuncs {
	return ListenerFuncs{
		Initialized:       func(e Initialized) { r.events = append(r.events, e) },
		PromptState:       func(e PromptState) { r.events = append(r.events, e) },
		CommandStarted:    func(e CommandStarted) { r.events = append(r.events, e) },
		CommandFinished:   func(e CommandFinished) { r.events = append(r.events, e) },
		GeneratorFinished: func(e GeneratorFinished) { r.events = append(r.events, e) },
		History:           func(e HistoryReceived) { r.events = append(r.events, e) },
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func cursorAt(text string, offset int) screen.CursorLine {
	return screen.CursorLine{Text: strings.TrimRight(text, " "), Offset: offset}
}

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		verify  func(*testing.T, Marker)
		wantErr bool
	}{
		{
			name:    "positional argument",
			payload: "initialized;bash",
			verify: func(t *testing.T, m Marker) {
				if m.Name != MarkerInitialized || len(m.Positional) != 1 || m.Positional[0] != "bash" {
					t.Errorf("got %+v", m)
				}
			},
		},
		{
			name:    "hex values",
			payload: "command_finished;command=6c73202d6c61;exit_code=30;duration=313230",
			verify: func(t *testing.T, m Marker) {
				if m.Value("command") != "ls -la" || m.Value("exit_code") != "0" || m.Value("duration") != "120" {
					t.Errorf("got %+v", m.Values)
				}
			},
		},
		{
			name:    "non-hex value is kept verbatim",
			payload: "prompt_state_updated;current_directory=/home/me",
			verify: func(t *testing.T, m Marker) {
				if got := m.Value("current_directory"); got != "/home/me" {
					t.Errorf("got %q", got)
				}
			},
		},
		{
			name:    "hex decoding to invalid UTF-8 is kept verbatim",
			payload: "x;v=ff",
			verify: func(t *testing.T, m Marker) {
				if got := m.Value("v"); got != "ff" {
					t.Errorf("got %q", got)
				}
			},
		},
		{
			name:    "empty value",
			payload: "prompt_state_updated;git_branch=",
			verify: func(t *testing.T, m Marker) {
				if !m.Has("git_branch") || m.Value("git_branch") != "" {
					t.Errorf("got %+v", m.Values)
				}
			},
		},
		{
			name:    "raw numbers survive hex decoding",
			payload: "generator_finished;request_id=1234;exit_code=10;duration=3132",
			verify: func(t *testing.T, m Marker) {
				if id, err := m.Uint("request_id"); err != nil || id != 1234 {
					t.Errorf("request_id: got %d, %v", id, err)
				}
				if code, err := m.Int("exit_code", UnknownExitCode); err != nil || code != 10 {
					t.Errorf("exit_code: got %d, %v", code, err)
				}
				if ms, err := m.Int("duration", 0); err != nil || ms != 12 {
					t.Errorf("duration: got %d, %v", ms, err)
				}
				if code, err := m.Int("missing", UnknownExitCode); err != nil || code != UnknownExitCode {
					t.Errorf("missing: got %d, %v", code, err)
				}
			},
		},
		{
			name:    "non-numeric value is rejected",
			payload: FormatMarker(MarkerCommandFinished, "exit_code", "zero"),
			verify: func(t *testing.T, m Marker) {
				if _, err := m.Int("exit_code", 0); !errors.Is(err, ErrMalformedMarker) {
					t.Errorf("expected ErrMalformedMarker, got %v", err)
				}
			},
		},
		{
			name:    "empty name",
			payload: ";command=6c73",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMarker(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMarker) {
					t.Fatalf("expected ErrMalformedMarker, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.verify(t, m)
		})
	}
}

func TestFormatMarkerRoundTrip(t *testing.T) {
	payload := FormatMarker(MarkerGeneratorFinished, "request_id", "7", "result", "main\ndev ✓", "exit_code", "0")
	m, err := ParseMarker(payload)
	if err != nil {
		t.Fatal(err)
	}
	if m.Value("result") != "main\ndev ✓" || m.Value("request_id") != "7" {
		t.Errorf("got %+v", m.Values)
	}
	if strings.ContainsAny(payload, "\n\x07\x1b") {
		t.Errorf("payload must be OSC safe: %q", payload)
	}
}

func TestIntegrationSource(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := NewIntegrationSource(rec.listener(), WithClock(clock.now))

	src.HandleMarker("initialized;bash")
	src.HandleMarker(FormatMarker(MarkerPromptStateUpdated,
		"current_directory", "/src/app", "git_branch", "main", "right_prompt", "[12:00]"))
	src.ContentChanged(cursorAt("me@box:/src/app$ ", 17))
	src.ContentChanged(cursorAt("me@box:/src/app$ git status", 27))
	src.HandleMarker(FormatMarker(MarkerCommandStarted, "command", "git status"))
	src.ContentChanged(cursorAt("On branch main", 14))
	src.HandleMarker(FormatMarker(MarkerCommandFinished, "command", "git status", "exit_code", "0", "duration", "120"))
	src.HandleMarker(FormatMarker(MarkerGeneratorFinished, "request_id", "3", "result", "main", "exit_code", "0"))
	src.HandleMarker(FormatMarker(MarkerCommandHistory, "history_string", "  1  ls\n  2  pwd\n"))

	if len(rec.events) != 6 {
		t.Fatalf("expected 6 events, got %d: %+v", len(rec.events), rec.events)
	}
	if ev := rec.events[0].(Initialized); ev.Shell != "bash" {
		t.Errorf("initialized: %+v", ev)
	}
	if ev := rec.events[1].(PromptState); ev.CurrentDirectory != "/src/app" || ev.GitBranch != "main" {
		t.Errorf("prompt state: %+v", ev)
	}
	started := rec.events[2].(CommandStarted)
	if started.Prompt != "me@box:/src/app$ " || started.Command != "git status" || started.RightPrompt != "[12:00]" {
		t.Errorf("command started: %+v", started)
	}
	if !started.At.Equal(clock.t) {
		t.Errorf("start time: %v", started.At)
	}
	finished := rec.events[3].(CommandFinished)
	if finished.ExitCode != 0 || finished.Duration != 120*time.Millisecond || finished.Command != "git status" {
		t.Errorf("command finished: %+v", finished)
	}
	if ev := rec.events[4].(GeneratorFinished); ev.RequestID != 3 || ev.Output != "main" {
		t.Errorf("generator finished: %+v", ev)
	}
	if ev := rec.events[5].(HistoryReceived); !strings.Contains(ev.History, "pwd") {
		t.Errorf("history: %+v", ev)
	}
}

func TestIntegrationSourceDropsMalformed(t *testing.T) {
	rec := &recorder{}
	src := NewIntegrationSource(rec.listener())
	src.HandleMarker("")
	src.HandleMarker(FormatMarker(MarkerCommandFinished, "exit_code", "zero"))
	src.HandleMarker(FormatMarker(MarkerGeneratorFinished, "request_id", "next"))
	src.HandleMarker("generator_finished;request_id=;exit_code=30")
	src.HandleMarker("command_started")
	src.HandleMarker("some_future_event;x=1")
	if len(rec.events) != 0 {
		t.Errorf("expected no events, got %+v", rec.events)
	}
}

func TestIntegrationSourceRawNumbers(t *testing.T) {
	rec := &recorder{}
	src := NewIntegrationSource(rec.listener())
	src.HandleMarker("command_finished;command=6c73;exit_code=10;duration=250")
	src.HandleMarker("generator_finished;request_id=1234;result=6d61696e;exit_code=1")
	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %+v", rec.events)
	}
	if ev := rec.events[0].(CommandFinished); ev.ExitCode != 10 || ev.Duration != 250*time.Millisecond {
		t.Errorf("command finished: %+v", ev)
	}
	if ev := rec.events[1].(GeneratorFinished); ev.RequestID != 1234 || ev.ExitCode != 1 || ev.Output != "main" {
		t.Errorf("generator finished: %+v", ev)
	}
}

func TestIntegrationSourcePromptFallsBackToFirstLine(t *testing.T) {
	rec := &recorder{}
	src := NewIntegrationSource(rec.listener())
	src.HandleMarker(FormatMarker(MarkerPromptStateUpdated, "current_directory", "/"))
	src.ContentChanged(cursorAt("% ", 2))
	src.ContentChanged(cursorAt("% echo hi", 9))
	// The shell expanded an alias; the typed text no longer matches.
	src.HandleMarker(FormatMarker(MarkerCommandStarted, "command", "echo hi --color"))
	started := rec.events[1].(CommandStarted)
	if started.Prompt != "% " {
		t.Errorf("prompt: got %q", started.Prompt)
	}
}

func TestSourceOutputBounds(t *testing.T) {
	// A command line wrapped over rows 5 to 7 with the cursor on row 6.
	line := screen.CursorLine{Text: "$ make all", Offset: 4, Row: 6, Start: 5, End: 7}
	tests := []struct {
		name    string
		src     Source
		origin  int64
		end     int64
		bounded bool
	}{
		{name: "integration", src: NewIntegrationSource(ListenerFuncs{}), origin: 6},
		{name: "heuristic", src: NewCommandManager(ListenerFuncs{}), origin: 8, end: 5, bounded: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.OutputOrigin(line); got != tt.origin {
				t.Errorf("origin: got %d, want %d", got, tt.origin)
			}
			end, bounded := tt.src.OutputEnd(line)
			if bounded != tt.bounded || (bounded && end != tt.end) {
				t.Errorf("end: got %d/%v, want %d/%v", end, bounded, tt.end, tt.bounded)
			}
		})
	}
}

// TestHeuristicTiming covers a full prompt, command, prompt cycle.
func TestHeuristicTiming(t *testing.T) {
	rec := &recorder{}
	clock := &fakeClock{t: time.Unix(5000, 0)}
	m := NewCommandManager(rec.listener(), WithClock(clock.now))

	const prompt = "user@host:~$ "
	m.ContentChanged(cursorAt(prompt, len(prompt)))
	if m.Prompt() != prompt {
		t.Fatalf("prompt guess: %q", m.Prompt())
	}
	m.ContentChanged(cursorAt(prompt, len(prompt)))
	m.ContentChanged(cursorAt(prompt+"sleep 1", len(prompt)+7))
	m.InputSent([]byte("\r"))
	if m.State() != StateCommandRunning {
		t.Fatalf("state after Enter: %v", m.State())
	}

	clock.advance(250 * time.Millisecond)
	m.ContentChanged(cursorAt("", 0))
	m.ContentChanged(cursorAt("partial output", 14))
	clock.advance(750 * time.Millisecond)
	m.ContentChanged(cursorAt(prompt, len(prompt)))

	if m.State() != StateIdle {
		t.Fatalf("state after prompt returned: %v", m.State())
	}
	if len(rec.events) != 3 {
		t.Fatalf("expected 3 events, got %+v", rec.events)
	}
	if _, ok := rec.events[0].(Initialized); !ok {
		t.Errorf("first event: %+v", rec.events[0])
	}
	started := rec.events[1].(CommandStarted)
	if started.Prompt != prompt || started.Command != "sleep 1" {
		t.Errorf("started: %+v", started)
	}
	finished := rec.events[2].(CommandFinished)
	if finished.ExitCode != UnknownExitCode || finished.Command != "sleep 1" {
		t.Errorf("finished: %+v", finished)
	}
	if d := finished.Duration - time.Second; d < -10*time.Millisecond || d > 10*time.Millisecond {
		t.Errorf("duration %v outside tolerance", finished.Duration)
	}
}

func TestHeuristicPromptRevision(t *testing.T) {
	rec := &recorder{}
	m := NewCommandManager(rec.listener())
	m.ContentChanged(cursorAt("Last login: today", 17))
	m.ContentChanged(cursorAt("$ ", 2))
	if m.Prompt() != "$ " {
		t.Fatalf("prompt should be revised, got %q", m.Prompt())
	}
	if len(rec.events) != 0 {
		t.Errorf("revision must not initialize: %+v", rec.events)
	}
	m.ContentChanged(cursorAt("$ ", 2))
	m.ContentChanged(cursorAt("$ ", 2))
	if len(rec.events) != 1 {
		t.Errorf("initialized must fire once, got %+v", rec.events)
	}
}

func TestHeuristicCommandSent(t *testing.T) {
	rec := &recorder{}
	m := NewCommandManager(rec.listener())
	m.CommandSent("ls")
	if m.State() != StateIdle {
		t.Fatal("no prompt guessed yet: the command must not start")
	}
	m.ContentChanged(cursorAt("> ", 2))
	m.InputSent([]byte("\r"))
	if m.State() != StateIdle {
		t.Fatal("empty command line must not start a run")
	}
	m.CommandSent("make test")
	run, ok := m.Run()
	if !ok || run.Command != "make test" || run.Prompt != "> " {
		t.Errorf("run: %+v %v", run, ok)
	}
	if m.SupportsGenerators() {
		t.Error("heuristic source cannot run generators")
	}
}

func TestDetectShell(t *testing.T) {
	tests := map[string]ShellType{
		"/bin/bash":              ShellBash,
		"/usr/bin/zsh":           ShellZsh,
		"-zsh":                   ShellZsh,
		"/opt/homebrew/fish":     ShellFish,
		"C:/ps/pwsh.exe":         ShellPwsh,
		"/bin/sh":                ShellOther,
		"/usr/local/bin/nushell": ShellOther,
	}
	for path, want := range tests {
		if got := DetectShell(path); got != want {
			t.Errorf("DetectShell(%q) = %q, want %q", path, got, want)
		}
	}
	prefixes := map[ShellType]string{
		ShellBash: "\x05\x15", ShellZsh: "\x05\x15", ShellFish: "\x05\x15",
		ShellPwsh: "\x1b", ShellOther: "\x15",
	}
	for sh, want := range prefixes {
		if got := sh.ClearLinePrefix(); got != want {
			t.Errorf("%s clear prefix: %q, want %q", sh, got, want)
		}
	}
}

func TestInstall(t *testing.T) {
	dir := t.TempDir()

	l, err := Install(dir, ShellBash)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Args) != 3 || l.Args[0] != "--rcfile" {
		t.Fatalf("bash args: %v", l.Args)
	}
	data, err := os.ReadFile(l.Args[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), GeneratorFunction) || !strings.Contains(string(data), "1341") {
		t.Error("bash script missing generator function or marker")
	}

	l, err = Install(dir, ShellZsh)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Env) == 0 || l.Env[0] != "ZDOTDIR="+filepath.Join(dir, "zsh") {
		t.Fatalf("zsh env: %v", l.Env)
	}
	for _, f := range []string{".zshenv", ".zshrc"} {
		if _, err := os.Stat(filepath.Join(dir, "zsh", f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}

	l, err = Install(dir, ShellFish)
	if err != nil || len(l.Args) != 0 || len(l.Env) != 0 {
		t.Errorf("fish should have no launch changes: %+v %v", l, err)
	}
}
