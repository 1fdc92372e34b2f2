// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/heuristic.go
// Summary: Prompt-guessing boundary source for shells without integration.
// Usage: Selected when the shell has no script or integration is disabled.
// Notes: Exit codes are never known on this path.

package shellintegration

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"pkt.systems/pslog"
)

// CommandState is the heuristic tracker state.
type CommandState int

const (
	StateIdle CommandState = iota
	StateCommandRunning
)

func (s CommandState) String() string {
	if s == StateCommandRunning {
		return "command-running"
	}
	return "idle"
}

// CommandRun is a command observed on the heuristic path.
type CommandRun struct {
	Prompt  string
	Command string
	Start   time.Time
}

// CommandManager guesses the prompt from the cursor line and detects command
// boundaries from Enter presses and the prompt reappearing.
type CommandManager struct {
	mu       sync.Mutex
	listener Listener
	log      pslog.Logger
	now      func() time.Time

	state         CommandState
	prompt        string
	confirmations int
	initialized   bool
	line          screen.CursorLine
	run           *CommandRun
}

var _ Source = (*CommandManager)(nil)

// NewCommandManager creates a heuristic source bound to l.
func NewCommandManager(l Listener, opts ...SourceOption) *CommandManager {
	o := buildOptions(opts)
	return &CommandManager{
		listener: l,
		log:      o.log.With("source", "heuristic"),
		now:      o.now,
	}
}

func (m *CommandManager) Kind() string { return "heuristic" }

func (m *CommandManager) SupportsGenerators() bool { return false }

// OutputOrigin is the row after the command line, wrapped rows included.
// Enter is seen before the shell echoes the newline.
func (m *CommandManager) OutputOrigin(line screen.CursorLine) int64 { return line.End + 1 }

// OutputEnd is the first row of the prompt that came back; the prompt is
// not output.
func (m *CommandManager) OutputEnd(line screen.CursorLine) (int64, bool) { return line.Start, true }

func (m *CommandManager) HandleMarker(payload string) {
	m.log.Debug("shellintegration: marker ignored by heuristic source", "payload", payload)
}

// State returns the current state.
func (m *CommandManager) State() CommandState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Prompt returns the current prompt guess.
func (m *CommandManager) Prompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompt
}

// Run returns the running command, if any.
func (m *CommandManager) Run() (CommandRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return CommandRun{}, false
	}
	return *m.run, true
}

// ContentChanged revises the prompt guess while idle and detects the prompt
// coming back while a command runs.
func (m *CommandManager) ContentChanged(line screen.CursorLine) {
	var emit func()
	func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.line = line
		switch m.state {
		case StateIdle:
			emit = m.trackPrompt(line)
		case StateCommandRunning:
			emit = m.checkFinished(line)
		}
	}()
	if emit != nil {
		emit()
	}
}

func (m *CommandManager) trackPrompt(line screen.CursorLine) func() {
	candidate := line.Prefix()
	if strings.TrimSpace(candidate) == "" {
		return nil
	}
	if m.prompt == "" || !strings.HasPrefix(line.Prefix(), m.prompt) {
		if m.prompt != candidate {
			m.log.Trace("shellintegration: prompt guess revised", "prompt", candidate)
		}
		m.prompt = candidate
		m.confirmations = 0
		return nil
	}
	m.confirmations++
	if m.initialized {
		return nil
	}
	m.initialized = true
	l := m.listener
	return func() { l.OnInitialized(Initialized{}) }
}

func (m *CommandManager) checkFinished(line screen.CursorLine) func() {
	if m.run == nil || line.Text == "" {
		return nil
	}
	if strings.TrimRight(line.Text, " ") != strings.TrimRight(m.run.Prompt, " ") {
		return nil
	}
	ev := CommandFinished{
		Command:  m.run.Command,
		ExitCode: UnknownExitCode,
		Duration: m.now().Sub(m.run.Start),
	}
	m.run = nil
	m.state = StateIdle
	l := m.listener
	return func() { l.OnCommandFinished(ev) }
}

// InputSent starts a command run when the input contains Enter.
func (m *CommandManager) InputSent(data []byte) {
	if !bytes.ContainsRune(data, '\r') {
		return
	}
	m.start(func() string {
		p := strings.TrimRight(m.prompt, " ")
		if !strings.HasPrefix(m.line.Text, p) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(m.line.Text, p))
	})
}

// CommandSent starts a command run for a programmatically sent command.
func (m *CommandManager) CommandSent(command string) {
	m.start(func() string { return strings.TrimSpace(command) })
}

func (m *CommandManager) start(command func() string) {
	var emit func()
	func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state != StateIdle {
			return
		}
		cmd := command()
		if m.prompt == "" || cmd == "" {
			return
		}
		run := &CommandRun{Prompt: m.prompt, Command: cmd, Start: m.now()}
		m.run = run
		m.state = StateCommandRunning
		ev := CommandStarted{Prompt: run.Prompt, Command: run.Command, At: run.Start}
		l := m.listener
		emit = func() { l.OnCommandStarted(ev) }
	}()
	if emit != nil {
		emit()
	}
}
