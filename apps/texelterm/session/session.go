// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/session/session.go
// Summary: Wires a shell connector to the screen buffer, boundary source,
//          execution queue, block model, history and event bus.
// Usage: s, _ := New(conn, cfg, WithJournal(j)); go s.Run(ctx); s.RunCommand("ls")
// Notes: Block model, history and bus delivery run on the UI loop. The
//        decode goroutine waits on the loop after every shell marker so a
//        finished block is final before more output is decoded.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/blocks"
	"github.com/framegrace/texelshell/apps/texelterm/eventbus"
	"github.com/framegrace/texelshell/apps/texelterm/execqueue"
	"github.com/framegrace/texelshell/apps/texelterm/history"
	"github.com/framegrace/texelshell/apps/texelterm/keys"
	"github.com/framegrace/texelshell/apps/texelterm/screen"
	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
	"github.com/framegrace/texelshell/apps/texelterm/vt"
	"github.com/framegrace/texelshell/config"
	"github.com/framegrace/texelshell/internal/uiloop"
)

// Config holds the per-session settings.
type Config struct {
	Shell           shellintegration.ShellType
	Integration     string
	Charset         string
	Cols            int
	Rows            int
	HistoryLines    int
	MaxBlocks       int
	EndMarker       string
	KeyBindings     map[string]string
	HistoryEntries  int
	LockTimeout     time.Duration
	FinalizeTimeout time.Duration
}

// ConfigFrom derives the session settings for a planned shell.
func ConfigFrom(cfg config.Config, plan Plan) Config {
	integration := config.IntegrationHeuristic
	if plan.Integration || cfg.Shell.Integration == config.IntegrationExplicit {
		integration = config.IntegrationExplicit
	}
	return Config{
		Shell:           plan.Shell,
		Integration:     integration,
		Charset:         cfg.Shell.Charset,
		Cols:            cfg.Terminal.Cols,
		Rows:            cfg.Terminal.Rows,
		HistoryLines:    cfg.Terminal.HistoryLines,
		MaxBlocks:       cfg.Terminal.MaxBlocks,
		EndMarker:       cfg.Terminal.EndMarker,
		KeyBindings:     cfg.Terminal.KeyBindings,
		HistoryEntries:  cfg.History.MaxEntries,
		LockTimeout:     cfg.Execution.LockTimeout,
		FinalizeTimeout: cfg.Execution.FinalizeTimeout,
	}
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l pslog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLoop shares an existing UI loop. The caller runs it; otherwise the
// session runs its own loop inside Run.
func WithLoop(l *uiloop.Loop) Option {
	return func(s *Session) { s.loop = l }
}

// WithJournal records finished commands and seeds the history from it.
func WithJournal(j *history.Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithOutputTap copies raw shell output to w before it is decoded, for
// callers that render the shell themselves.
func WithOutputTap(w io.Writer) Option {
	return func(s *Session) { s.tap = w }
}

// Session is one shell process and everything derived from its output.
type Session struct {
	id    string
	cfg   Config
	log   pslog.Logger
	conn  Connector
	codec *codec
	tap   io.Writer

	wmu sync.Mutex

	buf     *screen.Buffer
	ctrl    *vt.Controller
	dec     *vt.Decoder
	source  shellintegration.Source
	queue   *execqueue.Manager
	model   *blocks.Model
	hist    *history.Set
	journal *history.Journal
	bus     *eventbus.Bus

	loop    *uiloop.Loop
	ownLoop bool
	pending atomic.Bool

	// UI loop only.
	cwd string

	exitCode atomic.Int64
}

// New builds a session around conn. Run starts processing.
func New(conn Connector, cfg Config, opts ...Option) (*Session, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("session: invalid size %dx%d", cfg.Cols, cfg.Rows)
	}
	cd, err := newCodec(cfg.Charset)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		log:   pslog.Ctx(context.Background()),
		conn:  conn,
		codec: cd,
	}
	s.exitCode.Store(shellintegration.UnknownExitCode)
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id)
	if s.loop == nil {
		s.loop = uiloop.New(s.log)
		s.ownLoop = true
	}

	s.buf = screen.NewBuffer(cfg.Cols, cfg.Rows,
		screen.WithHistorySize(cfg.HistoryLines),
		screen.WithNotifier(screen.NotifierFunc(s.notify)),
		screen.WithLogger(s.log),
	)
	s.bus = eventbus.New(s.id, s.loop, s.log)
	s.ctrl = vt.NewController(s.buf,
		vt.WithReply(shellWriter{s}),
		vt.WithTitle(s.bus.OnTitleChanged),
		vt.WithShellMarker(s.handleMarker),
		vt.WithControllerLogger(s.log),
	)
	s.dec = vt.NewDecoder(s.ctrl, s.log)

	l := listener{s}
	srcOpts := []shellintegration.SourceOption{shellintegration.WithLogger(s.log)}
	switch cfg.Integration {
	case config.IntegrationExplicit:
		s.source = shellintegration.NewIntegrationSource(l, srcOpts...)
	case config.IntegrationHeuristic:
		s.source = shellintegration.NewCommandManager(l, srcOpts...)
	default:
		if cfg.Shell.HasIntegration() {
			s.source = shellintegration.NewIntegrationSource(l, srcOpts...)
		} else {
			s.source = shellintegration.NewCommandManager(l, srcOpts...)
		}
	}

	s.queue = execqueue.NewManager(shellWriter{s}, cfg.Shell,
		execqueue.WithLockTimeout(cfg.LockTimeout),
		execqueue.WithGenerators(s.source.SupportsGenerators()),
		execqueue.WithDump(s.buf.Dump),
		execqueue.WithCommandSent(s.source.CommandSent),
		execqueue.WithLogger(s.log),
	)
	s.model = blocks.NewModel(s.buf,
		blocks.WithEndMarker(cfg.EndMarker),
		blocks.WithMaxBlocks(cfg.MaxBlocks),
		blocks.WithFinalized(s.blockFinalized),
		blocks.WithLogger(s.log),
	)
	s.hist = history.NewSet(cfg.HistoryEntries)
	if s.journal != nil {
		cmds, err := s.journal.Commands(context.Background(), cfg.HistoryEntries)
		if err != nil {
			s.log.Warn("history journal unreadable", "err", err)
		}
		for _, c := range cmds {
			s.hist.Add(c)
		}
	}
	s.log.Info("session created", "shell", string(cfg.Shell), "source", s.source.Kind(), "cols", cfg.Cols, "rows", cfg.Rows)
	return s, nil
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Buffer() *screen.Buffer      { return s.buf }
func (s *Session) Bus() *eventbus.Bus          { return s.bus }
func (s *Session) Loop() *uiloop.Loop          { return s.loop }
func (s *Session) History() *history.Set       { return s.hist }
func (s *Session) SourceKind() string          { return s.source.Kind() }
func (s *Session) QueueState() execqueue.State { return s.queue.State() }
func (s *Session) Model() *blocks.Model        { return s.model }
func (s *Session) SupportsGenerators() bool    { return s.source.SupportsGenerators() }

// ExitCode returns the shell's exit code once Run returned.
func (s *Session) ExitCode() int { return int(s.exitCode.Load()) }

// Run decodes shell output until the shell exits or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if s.ownLoop {
		g.Go(func() error { return s.loop.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return s.readLoop()
	})
	g.Go(func() error {
		code, err := s.conn.Wait()
		s.exitCode.Store(int64(code))
		if err != nil {
			return fmt.Errorf("wait for shell: %w", err)
		}
		s.log.Info("shell exited", "exit_code", code)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.conn.Close()
	})
	err := g.Wait()
	if errors.Is(err, fs.ErrClosed) {
		err = nil
	}
	return err
}

func (s *Session) readLoop() error {
	r := s.codec.reader(s.conn)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if s.tap != nil {
				if _, werr := s.tap.Write(buf[:n]); werr != nil {
					s.log.Debug("output tap write failed", "err", werr)
				}
			}
			_, _ = s.dec.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read shell output: %w", err)
		}
	}
}

// notify runs after the buffer lock is released; repeated changes before
// the loop catches up collapse into one update.
func (s *Session) notify() {
	if s.pending.Swap(true) {
		return
	}
	if !s.loop.Post(s.contentChanged) {
		s.pending.Store(false)
	}
}

func (s *Session) contentChanged() {
	s.pending.Store(false)
	s.source.ContentChanged(s.buf.CursorLine())
	s.model.ContentChanged()
	s.bus.OnContentChanged()
}

func (s *Session) handleMarker(payload string) {
	s.source.HandleMarker(payload)
	if err := s.loop.Invoke(func() {}, s.cfg.FinalizeTimeout); err != nil {
		s.log.Warn("waiting for ui loop after shell marker", "err", err)
	}
}

func (s *Session) blockFinalized(b *blocks.CommandBlock) {
	s.hist.Add(b.Command)
	if s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FinalizeTimeout)
		defer cancel()
		_, err := s.journal.Record(ctx, history.Entry{
			Session:   s.id,
			Command:   b.Command,
			ExitCode:  b.ExitCode(),
			Duration:  b.Duration(),
			Directory: s.cwd,
			StartedAt: b.StartedAt,
		})
		if err != nil {
			s.log.Warn("history journal record failed", "block", b.ID.String(), "err", err)
		}
	}
	s.bus.OnBlockFinalized(b)
}

type shellWriter struct{ s *Session }

func (w shellWriter) Write(p []byte) (int, error) { return w.s.write(p) }

func (s *Session) write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	data, err := s.codec.encode(p)
	if err != nil {
		return 0, err
	}
	if _, err := s.conn.Write(data); err != nil {
		return 0, fmt.Errorf("write to shell: %w", err)
	}
	return len(p), nil
}

// SendInput forwards typed bytes to the shell.
func (s *Session) SendInput(p []byte) error {
	if _, err := s.write(p); err != nil {
		return err
	}
	s.source.InputSent(p)
	return nil
}

// RunCommand queues cmd for execution at the next prompt.
func (s *Session) RunCommand(cmd string) error {
	return s.queue.EnqueueCommand(cmd)
}

// RunGenerator queues an introspection request.
func (s *Session) RunGenerator(cmd string) (*execqueue.Generator, error) {
	return s.queue.EnqueueGenerator(cmd)
}

// CancelGenerator cancels g if it was not transmitted yet.
func (s *Session) CancelGenerator(g *execqueue.Generator) (bool, error) {
	return s.queue.Cancel(g)
}

// SendKeys injects a key binding. name is looked up in the configured
// bindings first and otherwise parsed as a key spec like "ctrl+l".
func (s *Session) SendKeys(name string) error {
	spec, ok := s.cfg.KeyBindings[name]
	if !ok {
		spec = name
	}
	ev, err := keys.Parse(spec)
	if err != nil {
		return err
	}
	data := keys.Encode(ev, s.buf.Modes().AppCursorKeys)
	if len(data) == 0 {
		return fmt.Errorf("key %q has no encoding", spec)
	}
	return s.queue.EnqueueKeyBinding(execqueue.KeyBinding{Bytes: data, Description: name})
}

// Resize changes the screen and terminal size.
func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("session: invalid size %dx%d", cols, rows)
	}
	s.buf.Resize(cols, rows)
	if err := s.conn.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize terminal: %w", err)
	}
	return nil
}

// Blocks returns the retained blocks, read on the UI loop.
func (s *Session) Blocks() ([]*blocks.CommandBlock, error) {
	var out []*blocks.CommandBlock
	if err := s.loop.Invoke(func() { out = s.model.Blocks() }, s.cfg.FinalizeTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

// listener receives boundary events. Off-loop callers are marshalled onto
// the UI loop; the output origin is taken at the moment of the event.
type listener struct{ s *Session }

func (l listener) post(what string, fn func()) {
	if !l.s.loop.Post(fn) {
		l.s.log.Debug("boundary event after loop stop", "event", what)
	}
}

func (l listener) OnInitialized(ev shellintegration.Initialized) {
	s := l.s
	l.post("initialized", func() {
		s.log.Info("shell initialized", "shell", ev.Shell, "source", s.source.Kind())
		s.queue.Initialized()
		s.bus.OnInitialized(ev)
	})
}

func (l listener) OnPromptState(ev shellintegration.PromptState) {
	s := l.s
	l.post("prompt state", func() {
		s.cwd = ev.CurrentDirectory
		s.bus.OnPromptState(ev)
	})
}

func (l listener) OnCommandStarted(ev shellintegration.CommandStarted) {
	s := l.s
	origin := s.source.OutputOrigin(s.buf.CursorLine())
	l.post("command started", func() {
		s.queue.CommandStarted()
		s.model.CommandStarted(ev, origin)
		s.bus.OnCommandStarted(ev)
	})
}

func (l listener) OnCommandFinished(ev shellintegration.CommandFinished) {
	s := l.s
	end, bounded := s.source.OutputEnd(s.buf.CursorLine())
	l.post("command finished", func() {
		if bounded {
			s.model.CommandFinishedBefore(ev, end)
		} else {
			s.model.CommandFinished(ev)
		}
		s.queue.CommandFinished()
		s.bus.OnCommandFinished(ev)
	})
}

func (l listener) OnGeneratorFinished(ev shellintegration.GeneratorFinished) {
	s := l.s
	l.post("generator finished", func() {
		s.queue.GeneratorFinished(ev)
		s.bus.OnGeneratorFinished(ev)
	})
}

func (l listener) OnHistory(ev shellintegration.HistoryReceived) {
	s := l.s
	l.post("history", func() {
		if s.hist.Seed(ev.History) {
			s.log.Debug("history seeded", "entries", s.hist.Len())
		}
	})
}
