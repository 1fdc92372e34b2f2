// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelshell/run.go
// Summary: Interactive session: the shell draws on the user's terminal while
//          blocks and history are tracked in the background.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/eventbus"
	"github.com/framegrace/texelshell/apps/texelterm/session"
	"github.com/framegrace/texelshell/config"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start an interactive shell session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), *cfgPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runInteractive(ctx context.Context, cfgPath string, in io.Reader, out io.Writer) error {
	state, err := config.StateDir()
	if err != nil {
		return err
	}
	// The terminal belongs to the shell; logs go to a file.
	logOut, err := openRunLog(filepath.Join(state, "texelshell.log"))
	if err != nil {
		return err
	}
	defer logOut.Close()
	e, err := setup(ctx, cfgPath, logOut)
	if err != nil {
		return err
	}
	defer e.Close()

	inFile, isTTY := in.(*os.File)
	isTTY = isTTY && term.IsTerminal(int(inFile.Fd()))
	cols, rows := 0, 0
	if isTTY {
		if w, h, err := term.GetSize(int(inFile.Fd())); err == nil {
			cols, rows = w, h
		}
	}

	s, err := e.startSession(cols, rows, session.WithOutputTap(out))
	if err != nil {
		return err
	}
	logger := e.log.With("session", s.ID())
	s.Bus().Subscribe(func(ev eventbus.Event) {
		if ev.Type == eventbus.EventBlockFinalized {
			logger.Info("block finished", "command", ev.Block.Command, "exit_code", ev.Block.ExitCode(), "duration", ev.Block.Duration())
		}
	})

	if isTTY {
		old, err := term.MakeRaw(int(inFile.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(inFile.Fd()), old) }()

		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				w, h, err := term.GetSize(int(inFile.Fd()))
				if err != nil {
					continue
				}
				if err := s.Resize(w, h); err != nil {
					logger.Warn("resize failed", "err", err)
				}
			}
		}()
	}

	go forwardInput(in, s, logger)
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if code := s.ExitCode(); code > 0 {
		return exitError{code: code}
	}
	return nil
}

func forwardInput(in io.Reader, s *session.Session, logger pslog.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if werr := s.SendInput(append([]byte(nil), buf[:n]...)); werr != nil {
				logger.Debug("input dropped", "err", werr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func openRunLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return f, nil
}
