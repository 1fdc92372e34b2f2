// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/integration.go
// Summary: Explicit-protocol boundary source driven by OSC markers.
// Usage: Selected for shells with an integration script (bash, zsh).
// Notes: The prompt text is taken from the screen: the last non-empty
//        cursor line seen at the prompt, minus the command that follows it.

package shellintegration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"pkt.systems/pslog"
)

// IntegrationSource turns shell-integration markers into Listener events.
type IntegrationSource struct {
	mu       sync.Mutex
	listener Listener
	log      pslog.Logger
	now      func() time.Time

	atPrompt    bool
	firstLine   string
	lastLine    string
	rightPrompt string
}

var _ Source = (*IntegrationSource)(nil)

// SourceOption configures a boundary source.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	log pslog.Logger
	now func() time.Time
}

// WithLogger sets the source logger.
func WithLogger(l pslog.Logger) SourceOption {
	return func(o *sourceOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SourceOption {
	return func(o *sourceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []SourceOption) sourceOptions {
	o := sourceOptions{log: pslog.Ctx(context.Background()), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewIntegrationSource creates a source bound to l.
func NewIntegrationSource(l Listener, opts ...SourceOption) *IntegrationSource {
	o := buildOptions(opts)
	return &IntegrationSource{
		listener: l,
		log:      o.log.With("source", "integration"),
		now:      o.now,
	}
}

func (s *IntegrationSource) Kind() string { return "integration" }

func (s *IntegrationSource) SupportsGenerators() bool { return true }

func (s *IntegrationSource) InputSent([]byte) {}

func (s *IntegrationSource) CommandSent(string) {}

// OutputOrigin is the cursor row: command_started arrives after the shell
// moved past the command line.
func (s *IntegrationSource) OutputOrigin(line screen.CursorLine) int64 { return line.Row }

// OutputEnd defers to the cursor; command_finished arrives before the
// next prompt is drawn.
func (s *IntegrationSource) OutputEnd(screen.CursorLine) (int64, bool) { return 0, false }

// ContentChanged tracks the prompt line while the shell waits for input.
func (s *IntegrationSource) ContentChanged(line screen.CursorLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.atPrompt || line.Text == "" {
		return
	}
	if s.firstLine == "" {
		s.firstLine = line.Prefix()
	}
	s.lastLine = line.Text
}

// HandleMarker parses payload and emits the matching event. Malformed or
// unknown markers are logged and dropped.
func (s *IntegrationSource) HandleMarker(payload string) {
	m, err := ParseMarker(payload)
	if err != nil {
		s.log.Warn("shellintegration: dropping marker", "error", err)
		return
	}
	emit, err := s.apply(m)
	if err != nil {
		s.log.Warn("shellintegration: dropping marker", "marker", m.Name, "error", err)
		return
	}
	if emit != nil {
		emit()
	}
}

// apply updates state under the lock and returns the event delivery to run
// after release.
func (s *IntegrationSource) apply(m Marker) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.listener
	switch m.Name {
	case MarkerInitialized:
		ev := Initialized{Shell: m.Value("shell")}
		if ev.Shell == "" && len(m.Positional) > 0 {
			ev.Shell = m.Positional[0]
		}
		s.armPrompt()
		return func() { l.OnInitialized(ev) }, nil

	case MarkerPromptStateUpdated:
		ev := PromptState{
			CurrentDirectory: m.Value("current_directory"),
			GitBranch:        m.Value("git_branch"),
			VirtualEnv:       m.Value("virtual_env"),
			CondaEnv:         m.Value("conda_env"),
			RightPrompt:      m.Value("right_prompt"),
		}
		s.rightPrompt = ev.RightPrompt
		s.armPrompt()
		return func() { l.OnPromptState(ev) }, nil

	case MarkerCommandStarted:
		if !m.Has("command") {
			return nil, fmt.Errorf("%w: command_started without command", ErrMalformedMarker)
		}
		ev := CommandStarted{
			Prompt:      s.promptFor(m.Value("command")),
			Command:     m.Value("command"),
			RightPrompt: s.rightPrompt,
			At:          s.now(),
		}
		s.atPrompt = false
		return func() { l.OnCommandStarted(ev) }, nil

	case MarkerCommandFinished:
		code, err := m.Int("exit_code", UnknownExitCode)
		if err != nil {
			return nil, err
		}
		ms, err := m.Int("duration", 0)
		if err != nil {
			return nil, err
		}
		ev := CommandFinished{
			Command:  m.Value("command"),
			ExitCode: code,
			Duration: time.Duration(ms) * time.Millisecond,
		}
		s.armPrompt()
		return func() { l.OnCommandFinished(ev) }, nil

	case MarkerGeneratorFinished:
		if m.Value("request_id") == "" {
			return nil, fmt.Errorf("%w: generator_finished without request_id", ErrMalformedMarker)
		}
		id, err := m.Uint("request_id")
		if err != nil {
			return nil, err
		}
		code, err := m.Int("exit_code", UnknownExitCode)
		if err != nil {
			return nil, err
		}
		ev := GeneratorFinished{RequestID: id, Output: m.Value("result"), ExitCode: code}
		return func() { l.OnGeneratorFinished(ev) }, nil

	case MarkerCommandHistory:
		ev := HistoryReceived{History: m.Value("history_string")}
		return func() { l.OnHistory(ev) }, nil
	}
	s.log.Debug("shellintegration: unknown marker", "marker", m.Name)
	return nil, nil
}

func (s *IntegrationSource) armPrompt() {
	s.atPrompt = true
	s.firstLine = ""
	s.lastLine = ""
}

// promptFor derives the prompt from the screen lines seen at the prompt.
func (s *IntegrationSource) promptFor(command string) string {
	last := strings.TrimRight(s.lastLine, " ")
	if command != "" && strings.HasSuffix(last, command) {
		if p := strings.TrimSuffix(last, command); p != "" {
			return p
		}
	}
	return s.firstLine
}
