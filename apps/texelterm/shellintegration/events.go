// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/events.go
// Summary: Boundary events, the Listener that receives them and the Source
//          abstraction over the heuristic and explicit paths.

package shellintegration

import (
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/screen"
)

// UnknownExitCode is reported when the exit status cannot be observed.
const UnknownExitCode = -1

// Initialized reports that the shell is ready to receive commands.
type Initialized struct {
	Shell string
}

// PromptState carries the shell context published before each prompt.
type PromptState struct {
	CurrentDirectory string
	GitBranch        string
	VirtualEnv       string
	CondaEnv         string
	RightPrompt      string
}

// CommandStarted reports that the shell began executing a command line.
type CommandStarted struct {
	Prompt      string
	Command     string
	RightPrompt string
	At          time.Time
}

// CommandFinished reports the end of the running command.
type CommandFinished struct {
	Command  string
	ExitCode int
	Duration time.Duration
}

// GeneratorFinished carries the result of an introspection request.
type GeneratorFinished struct {
	RequestID uint64
	Output    string
	ExitCode  int
}

// HistoryReceived carries the shell's history dump.
type HistoryReceived struct {
	History string
}

// Listener receives boundary events. A session binds exactly one listener
// to its source at construction.
type Listener interface {
	OnInitialized(Initialized)
	OnPromptState(PromptState)
	OnCommandStarted(CommandStarted)
	OnCommandFinished(CommandFinished)
	OnGeneratorFinished(GeneratorFinished)
	OnHistory(HistoryReceived)
}

// ListenerFuncs implements Listener with optional callbacks.
type ListenerFuncs struct {
	Initialized       func(Initialized)
	PromptState       func(PromptState)
	CommandStarted    func(CommandStarted)
	CommandFinished   func(CommandFinished)
	GeneratorFinished func(GeneratorFinished)
	History           func(HistoryReceived)
}

func (l ListenerFuncs) OnInitialized(e Initialized) {
	if l.Initialized != nil {
		l.Initialized(e)
	}
}

func (l ListenerFuncs) OnPromptState(e PromptState) {
	if l.PromptState != nil {
		l.PromptState(e)
	}
}

func (l ListenerFuncs) OnCommandStarted(e CommandStarted) {
	if l.CommandStarted != nil {
		l.CommandStarted(e)
	}
}

func (l ListenerFuncs) OnCommandFinished(e CommandFinished) {
	if l.CommandFinished != nil {
		l.CommandFinished(e)
	}
}

func (l ListenerFuncs) OnGeneratorFinished(e GeneratorFinished) {
	if l.GeneratorFinished != nil {
		l.GeneratorFinished(e)
	}
}

func (l ListenerFuncs) OnHistory(e HistoryReceived) {
	if l.History != nil {
		l.History(e)
	}
}

// Source infers command boundaries for one session and reports them to its
// Listener.
type Source interface {
	// ContentChanged is called after buffer content changed with the
	// logical line under the cursor.
	ContentChanged(line screen.CursorLine)
	// InputSent reports raw bytes typed or injected into the shell.
	InputSent(data []byte)
	// CommandSent reports a command line transmitted programmatically.
	CommandSent(command string)
	// HandleMarker receives an explicit shell-integration payload.
	HandleMarker(payload string)
	// OutputOrigin returns the absolute row where the output of a command
	// starting now begins, given the logical line under the cursor.
	OutputOrigin(line screen.CursorLine) int64
	// OutputEnd returns the row before which the output of a command
	// finishing now stops. ok is false when output runs up to the cursor.
	OutputEnd(line screen.CursorLine) (row int64, ok bool)
	// SupportsGenerators reports whether introspection requests can run.
	SupportsGenerators() bool
	// Kind names the source for logs.
	Kind() string
}
