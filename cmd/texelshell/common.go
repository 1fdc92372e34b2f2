// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelshell/common.go
// Summary: Shared setup for commands: config, logger, journal, session.

package main

import (
	"context"
	"fmt"
	"io"

	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/history"
	"github.com/framegrace/texelshell/apps/texelterm/session"
	"github.com/framegrace/texelshell/config"
)

// exitError carries a process exit code without an error message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// env is what a session-running command needs.
type env struct {
	cfg     config.Config
	log     pslog.Logger
	journal *history.Journal
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// setup loads configuration, builds the configured logger (falling back to
// logOut) and opens the history journal when one is configured.
func setup(ctx context.Context, cfgPath string, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, closer, err := config.NewLogger(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: logger, closers: []io.Closer{closer}}
	if cfg.History.Database != "" {
		j, err := history.OpenJournal(cfg.History.Database, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.journal = j
		e.closers = append(e.closers, j)
	}
	pslog.Ctx(ctx).Debug("config loaded", "integration", cfg.Shell.Integration, "journal", cfg.History.Database)
	return e, nil
}

// startSession launches the configured shell under a PTY.
func (e *env) startSession(cols, rows int, opts ...session.Option) (*session.Session, error) {
	state, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	plan, err := session.PlanShell(e.cfg.Shell, state)
	if err != nil {
		return nil, err
	}
	scfg := session.ConfigFrom(e.cfg, plan)
	if cols > 0 && rows > 0 {
		scfg.Cols, scfg.Rows = cols, rows
	}
	conn, err := session.StartPTY(plan, scfg.Cols, scfg.Rows)
	if err != nil {
		return nil, err
	}
	opts = append([]session.Option{session.WithLogger(e.log)}, opts...)
	if e.journal != nil {
		opts = append(opts, session.WithJournal(e.journal))
	}
	s, err := session.New(conn, scfg, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}
