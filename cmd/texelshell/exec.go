// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelshell/exec.go
// Summary: Runs one command in a fresh shell session and prints its block.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/framegrace/texelshell/apps/texelterm/eventbus"
	"github.com/framegrace/texelshell/apps/texelterm/txfmt"
)

// promptWait bounds the wait for a visible first prompt; a shell with an
// empty prompt gets the command after it.
const promptWait = 2 * time.Second

type execOptions struct {
	timeout time.Duration
	color   string
	style   string
	status  bool
}

func newExecCmd(cfgPath *string) *cobra.Command {
	var opts execOptions
	cmd := &cobra.Command{
		Use:   "exec -- COMMAND [ARG...]",
		Short: "Run a command in a new shell session and print its block",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execCommand(cmd.Context(), *cfgPath, strings.Join(args, " "), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up when the block has not finished by then")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "colorize output: auto, always or never")
	cmd.Flags().StringVar(&opts.style, "style", "", "chroma style for the command line")
	cmd.Flags().BoolVar(&opts.status, "status", false, "print exit code and duration after the output")
	return cmd
}

func useColor(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("invalid --color %q", mode)
}

func execCommand(ctx context.Context, cfgPath, command string, out io.Writer, opts execOptions) error {
	color, err := useColor(opts.color, out)
	if err != nil {
		return err
	}
	e, err := setup(ctx, cfgPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.startSession(0, 0)
	if err != nil {
		return err
	}
	var (
		once      sync.Once
		rendered  bytes.Buffer
		renderErr error
		exitCode  int
	)
	done := make(chan struct{})
	prompt := newPromptWatch(s.SourceKind() == "integration", func() string { return s.Buffer().CursorLine().Text })
	s.Bus().Subscribe(func(ev eventbus.Event) {
		prompt.observe(ev)
		if ev.Type != eventbus.EventBlockFinalized {
			return
		}
		once.Do(func() {
			exitCode = ev.Block.ExitCode()
			renderErr = txfmt.WriteBlock(&rendered, ev.Block, txfmt.Options{Color: color, Style: opts.style, Status: opts.status})
			close(done)
		})
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(runCtx) }()

	timer := time.NewTimer(opts.timeout)
	defer timer.Stop()
	// Typeahead is echoed ahead of the prompt and would leave the block
	// without one.
	select {
	case <-prompt.ready:
	case <-time.After(promptWait):
		e.log.Debug("no prompt seen, sending command anyway")
	case err := <-runErr:
		if err == nil {
			err = errors.New("shell exited before showing a prompt")
		}
		return err
	}
	if err := s.RunCommand(command); err != nil {
		cancel()
		<-runErr
		return err
	}
	select {
	case <-done:
	case err := <-runErr:
		if err == nil {
			err = errors.New("shell exited before the command finished")
		}
		return err
	case <-timer.C:
		cancel()
		<-runErr
		return fmt.Errorf("command did not finish within %s", opts.timeout)
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		e.log.Debug("session ended with error", "err", err)
	}
	if renderErr != nil {
		return renderErr
	}
	if _, err := out.Write(rendered.Bytes()); err != nil {
		return err
	}
	if exitCode > 0 {
		return exitError{code: exitCode}
	}
	return nil
}

// promptWatch closes ready once the first prompt is on screen. Heuristic
// sessions only report Initialized after seeing one; integrated shells
// announce the prompt state before drawing it.
type promptWatch struct {
	explicit bool
	cursor   func() string
	armed    bool
	ready    chan struct{}
	once     sync.Once
}

func newPromptWatch(explicit bool, cursor func() string) *promptWatch {
	return &promptWatch{explicit: explicit, cursor: cursor, ready: make(chan struct{})}
}

// observe is called with every bus event, in delivery order.
func (w *promptWatch) observe(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.EventInitialized:
		if !w.explicit {
			w.fire()
		}
	case eventbus.EventPromptStateUpdated:
		w.armed = true
	case eventbus.EventContentChanged:
		if w.armed && strings.TrimSpace(w.cursor()) != "" {
			w.fire()
		}
	}
}

func (w *promptWatch) fire() {
	w.once.Do(func() { close(w.ready) })
}
