// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/execqueue/manager.go
// Summary: Single-writer queue for commands, generators and key bindings
//          sent to one shell.
// Usage: The session forwards boundary events (Initialized, CommandStarted,
//        CommandFinished, GeneratorFinished) and callers enqueue work.
// Notes: Every queued item takes a sequence number. A command about to be
//        sent cancels the generators queued before it. Generators cannot be
//        cancelled once transmitted. All decisions happen inside a one-slot
//        section with a bounded wait; writes and result resolution run after
//        the section is released, in decision order. A boundary event that
//        cannot enter the section is kept and applied ahead of the next one.

package execqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
)

var (
	// ErrBusy is returned when the section could not be entered in time.
	ErrBusy = errors.New("execqueue: busy")
	// ErrGeneratorsUnsupported fails generators on shells without integration.
	ErrGeneratorsUnsupported = errors.New("execqueue: generators need shell integration")
	// ErrProtocol fails a generator whose completion did not match it.
	ErrProtocol = errors.New("execqueue: protocol error")
)

// DefaultLockTimeout bounds the wait for the manager section.
const DefaultLockTimeout = 3 * time.Second

// State is the manager's view of the shell.
type State int

const (
	StateUninitialized State = iota
	StateIdle
	StateCommandRunning
	StateGeneratorRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateCommandRunning:
		return "command_running"
	case StateGeneratorRunning:
		return "generator_running"
	}
	return "unknown"
}

// KeyBinding is raw input injected ahead of queued commands.
type KeyBinding struct {
	Bytes       []byte
	Description string
}

type queuedCommand struct {
	seq  uint64
	text string
}

// Option configures a Manager.
type Option func(*Manager)

func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lockTimeout = d
		}
	}
}

func WithLogger(l pslog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithDump supplies the screen dump logged when the section times out.
func WithDump(fn func() string) Option {
	return func(m *Manager) { m.dump = fn }
}

// WithGenerators enables or disables generator execution.
func WithGenerators(enabled bool) Option {
	return func(m *Manager) { m.generators = enabled }
}

// WithCommandSent registers a callback run after a queued command was
// written to the shell.
func WithCommandSent(fn func(cmd string)) Option {
	return func(m *Manager) { m.onSent = fn }
}

// Manager serializes everything written to the shell.
type Manager struct {
	sem         chan struct{}
	lockTimeout time.Duration
	w           io.Writer
	shell       shellintegration.ShellType
	generators  bool
	dump        func() string
	onSent      func(string)
	log         pslog.Logger

	// guarded by sem
	state    State
	seq      uint64
	nextID   uint64
	tickets  uint64
	commands []queuedCommand
	pending  []*Generator
	keys     []KeyBinding
	running  *Generator

	writeMu   sync.Mutex
	writeTurn *sync.Cond
	serving   uint64 // guarded by writeMu

	backlogMu sync.Mutex
	backlog   []deferredEvent
	retrying  bool
}

type deferredEvent struct {
	op string
	fn func(fx *effects)
}

// NewManager returns a manager writing to w for the given shell.
func NewManager(w io.Writer, shell shellintegration.ShellType, opts ...Option) *Manager {
	m := &Manager{
		sem:         make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		w:           w,
		shell:       shell,
		generators:  true,
		log:         pslog.Ctx(context.Background()),
	}
	m.writeTurn = sync.NewCond(&m.writeMu)
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "execqueue")
	return m
}

// effects collects what a section decided to do once released.
type effects struct {
	writes   []write
	resolved []resolution
	ticket   uint64
}

type write struct {
	data []byte
	what string
	text string
	gen  *Generator
}

type resolution struct {
	gen    *Generator
	result Result
}

func (fx *effects) send(data []byte, what string, gen *Generator) {
	fx.writes = append(fx.writes, write{data: data, what: what, gen: gen})
}

func (fx *effects) sendCommand(cmd string, data []byte) {
	fx.writes = append(fx.writes, write{data: data, what: "command", text: cmd})
}

func (fx *effects) resolve(g *Generator, r Result) {
	g.status = genDone
	fx.resolved = append(fx.resolved, resolution{gen: g, result: r})
}

// section runs fn with exclusive access to the queue state.
func (m *Manager) section(op string, fn func(fx *effects)) error {
	timer := time.NewTimer(m.lockTimeout)
	defer timer.Stop()
	select {
	case m.sem <- struct{}{}:
	case <-timer.C:
		dump := ""
		if m.dump != nil {
			dump = m.dump()
		}
		m.log.Warn("execution lock timeout", "op", op, "timeout", m.lockTimeout, "screen", dump)
		return fmt.Errorf("%w: %s", ErrBusy, op)
	}
	var fx effects
	func() {
		defer func() { <-m.sem }()
		for _, ev := range m.takeBacklog() {
			m.log.Debug("applying deferred event", "op", ev.op)
			ev.fn(&fx)
		}
		fn(&fx)
		if len(fx.writes) > 0 {
			fx.ticket = m.tickets
			m.tickets++
		}
	}()
	m.apply(&fx)
	return nil
}

func (m *Manager) apply(fx *effects) {
	for _, r := range fx.resolved {
		r.gen.resolve(r.result)
	}
	if len(fx.writes) == 0 {
		return
	}
	// Wait for the writes of earlier sections; a blocked write holds up
	// later writes but not later decisions.
	m.writeMu.Lock()
	for m.serving != fx.ticket {
		m.writeTurn.Wait()
	}
	var failed, sent []write
	for _, w := range fx.writes {
		if _, err := m.w.Write(w.data); err != nil {
			m.log.Error("write to shell failed", "what", w.what, "err", err)
			failed = append(failed, w)
			continue
		}
		m.log.Trace("sent to shell", "what", w.what, "bytes", len(w.data))
		if w.what == "command" {
			sent = append(sent, w)
		}
	}
	m.serving++
	m.writeTurn.Broadcast()
	m.writeMu.Unlock()
	for _, w := range failed {
		m.transmitFailed(w)
	}
	if m.onSent != nil {
		for _, w := range sent {
			m.onSent(w.text)
		}
	}
}

// transmitFailed rolls the state back after an unsent command or generator.
func (m *Manager) transmitFailed(w write) {
	_ = m.section("transmit failed", func(fx *effects) {
		switch {
		case w.gen != nil && m.running == w.gen:
			m.running = nil
			m.state = StateIdle
			fx.resolve(w.gen, Failed{Err: fmt.Errorf("transmit generator %d: write failed", w.gen.ID)})
		case w.gen == nil && w.what == "command" && m.state == StateCommandRunning:
			m.state = StateIdle
		default:
			return
		}
		m.pump(fx)
	})
}

// State returns the current state.
func (m *Manager) State() State {
	var s State
	if err := m.section("state", func(*effects) { s = m.state }); err != nil {
		return StateUninitialized
	}
	return s
}

// EnqueueCommand queues an interactive command line.
func (m *Manager) EnqueueCommand(cmd string) error {
	return m.section("enqueue command", func(fx *effects) {
		m.seq++
		m.commands = append(m.commands, queuedCommand{seq: m.seq, text: cmd})
		m.log.Debug("command queued", "seq", m.seq, "state", m.state.String())
		m.pump(fx)
	})
}

// EnqueueGenerator queues an introspection command. The returned generator
// may already be resolved, for example when a command is running.
func (m *Manager) EnqueueGenerator(cmd string) (*Generator, error) {
	if !m.generators {
		g := newGenerator(0, 0, cmd)
		g.status = genDone
		g.resolve(Failed{Err: ErrGeneratorsUnsupported})
		return g, nil
	}
	var g *Generator
	err := m.section("enqueue generator", func(fx *effects) {
		m.seq++
		m.nextID++
		g = newGenerator(m.nextID, m.seq, cmd)
		if m.state == StateCommandRunning {
			m.log.Debug("generator cancelled, command running", "request_id", g.ID)
			fx.resolve(g, Cancelled{Reason: "command running"})
			return
		}
		m.pending = append(m.pending, g)
		m.pump(fx)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// EnqueueKeyBinding queues raw input. It is flushed as soon as the shell
// is idle.
func (m *Manager) EnqueueKeyBinding(kb KeyBinding) error {
	return m.section("enqueue key binding", func(fx *effects) {
		m.seq++
		m.keys = append(m.keys, kb)
		m.pump(fx)
	})
}

// Cancel cancels g if it has not been transmitted yet.
func (m *Manager) Cancel(g *Generator) (bool, error) {
	ok := false
	err := m.section("cancel generator", func(fx *effects) {
		if g.status != genQueued {
			return
		}
		fx.resolve(g, Cancelled{Reason: "cancelled"})
		ok = true
	})
	return ok, err
}

// Initialized marks the shell ready.
func (m *Manager) Initialized() {
	m.event("initialized", func(fx *effects) {
		if m.state != StateUninitialized {
			m.log.Debug("shell initialized again", "state", m.state.String())
			return
		}
		m.state = StateIdle
		m.pump(fx)
	})
}

// CommandStarted records a command the shell began running, typed or sent.
func (m *Manager) CommandStarted() {
	m.event("command started", func(fx *effects) {
		switch m.state {
		case StateIdle:
			m.state = StateCommandRunning
		case StateCommandRunning:
		default:
			m.log.Warn("command started in unexpected state", "state", m.state.String())
		}
	})
}

// CommandFinished returns to Idle after a command.
func (m *Manager) CommandFinished() {
	m.event("command finished", func(fx *effects) {
		if m.state != StateCommandRunning {
			m.log.Warn("command finished in unexpected state", "state", m.state.String())
			return
		}
		m.state = StateIdle
		m.pump(fx)
	})
}

// GeneratorFinished resolves the running generator.
func (m *Manager) GeneratorFinished(ev shellintegration.GeneratorFinished) {
	m.event("generator finished", func(fx *effects) {
		if m.state != StateGeneratorRunning || m.running == nil {
			m.log.Warn("generator finished in unexpected state", "state", m.state.String(), "request_id", ev.RequestID)
			return
		}
		g := m.running
		m.running = nil
		m.state = StateIdle
		if g.ID != ev.RequestID {
			m.log.Warn("generator id mismatch", "request_id", ev.RequestID, "expected", g.ID)
			fx.resolve(g, Failed{Err: fmt.Errorf("%w: completion for request %d, expected %d", ErrProtocol, ev.RequestID, g.ID)})
		} else {
			fx.resolve(g, Completed{Output: ev.Output, ExitCode: ev.ExitCode})
		}
		m.pump(fx)
	})
}

// event applies a boundary event. On timeout the event is kept for the
// next section and a retry is started; boundary events are never dropped.
func (m *Manager) event(op string, fn func(fx *effects)) {
	err := m.section(op, fn)
	if err == nil {
		return
	}
	m.backlogMu.Lock()
	m.backlog = append(m.backlog, deferredEvent{op: op, fn: fn})
	start := !m.retrying
	m.retrying = true
	m.backlogMu.Unlock()
	m.log.Warn("event deferred", "op", op, "err", err)
	if start {
		go m.retryBacklog()
	}
}

func (m *Manager) retryBacklog() {
	for {
		if err := m.section("deferred events", func(*effects) {}); err == nil {
			return
		}
	}
}

// takeBacklog hands the deferred events to the section being entered.
func (m *Manager) takeBacklog() []deferredEvent {
	m.backlogMu.Lock()
	defer m.backlogMu.Unlock()
	evs := m.backlog
	m.backlog = nil
	m.retrying = false
	return evs
}

// pump moves the queue forward from the current state.
func (m *Manager) pump(fx *effects) {
	switch m.state {
	case StateUninitialized:
		m.cancelBefore(m.firstCommandSeq(), "shell not initialized", fx)
	case StateIdle:
		for _, kb := range m.keys {
			fx.send(kb.Bytes, "key binding", nil)
		}
		m.keys = nil
		if len(m.commands) > 0 {
			c := m.commands[0]
			m.commands = m.commands[1:]
			m.cancelBefore(c.seq, "superseded by command", fx)
			fx.sendCommand(c.text, m.commandBytes(c.text))
			m.state = StateCommandRunning
			m.log.Debug("command sent", "seq", c.seq)
			return
		}
		for len(m.pending) > 0 {
			g := m.pending[0]
			m.pending = m.pending[1:]
			if g.status != genQueued {
				continue
			}
			g.status = genSent
			m.running = g
			m.state = StateGeneratorRunning
			fx.send(m.generatorBytes(g), "generator", g)
			m.log.Debug("generator sent", "request_id", g.ID)
			return
		}
	}
}

func (m *Manager) firstCommandSeq() uint64 {
	if len(m.commands) == 0 {
		return ^uint64(0)
	}
	return m.commands[0].seq
}

// cancelBefore cancels queued generators with a sequence number below seq.
func (m *Manager) cancelBefore(seq uint64, reason string, fx *effects) {
	kept := m.pending[:0]
	for _, g := range m.pending {
		if g.status == genQueued && g.seq < seq {
			m.log.Debug("generator cancelled", "request_id", g.ID, "reason", reason)
			fx.resolve(g, Cancelled{Reason: reason})
			continue
		}
		kept = append(kept, g)
	}
	m.pending = kept
}

func (m *Manager) commandBytes(cmd string) []byte {
	return []byte(m.shell.ClearLinePrefix() + cmd + "\r")
}

func (m *Manager) generatorBytes(g *Generator) []byte {
	line := shellintegration.GeneratorFunction + " " + strconv.FormatUint(g.ID, 10) + " " + shellescape.Quote(g.Command)
	return []byte(m.shell.ClearLinePrefix() + line + "\r")
}
