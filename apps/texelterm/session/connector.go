// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/session/connector.go
// Summary: Shell process connectors; the PTY connector starts the shell
//          under a pseudo terminal.
// Usage: plan, _ := PlanShell(cfg.Shell, stateDir); conn, _ := StartPTY(plan, 80, 24)

package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
	"github.com/framegrace/texelshell/config"
)

// Connector is the byte pipe to one shell process.
type Connector interface {
	io.Reader
	io.Writer
	Resize(cols, rows int) error
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	Close() error
}

// Plan describes how to launch a shell.
type Plan struct {
	Path        string
	Args        []string
	Env         []string
	Shell       shellintegration.ShellType
	Integration bool
}

// PlanShell resolves the shell executable and, when integration is wanted
// and available, installs the integration scripts under stateDir.
func PlanShell(cfg config.ShellConfig, stateDir string) (Plan, error) {
	path := cfg.Path
	if path == "" {
		path = os.Getenv("SHELL")
	}
	if path == "" {
		path = "/bin/sh"
	}
	p := Plan{
		Path:  path,
		Args:  append([]string(nil), cfg.Args...),
		Shell: shellintegration.DetectShell(path),
	}
	term := cfg.Term
	if term == "" {
		term = "xterm-256color"
	}
	p.Env = append(p.Env, "TERM="+term)

	switch cfg.Integration {
	case config.IntegrationHeuristic:
		return p, nil
	case config.IntegrationAuto:
		if !p.Shell.HasIntegration() {
			return p, nil
		}
	}
	launch, err := shellintegration.Install(stateDir, p.Shell)
	if err != nil {
		return Plan{}, fmt.Errorf("install shell integration: %w", err)
	}
	p.Integration = p.Shell.HasIntegration()
	if len(p.Args) == 0 {
		p.Args = launch.Args
	}
	p.Env = append(p.Env, launch.Env...)
	return p, nil
}

// PTYConnector runs the shell under a pseudo terminal.
type PTYConnector struct {
	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
	closeErr  error
}

var _ Connector = (*PTYConnector)(nil)

// StartPTY launches plan with the given window size.
func StartPTY(plan Plan, cols, rows int) (*PTYConnector, error) {
	cmd := exec.Command(plan.Path, plan.Args...)
	cmd.Env = append(os.Environ(), plan.Env...)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", plan.Path, err)
	}
	return &PTYConnector{cmd: cmd, ptmx: ptmx}, nil
}

func (c *PTYConnector) Read(p []byte) (int, error) {
	n, err := c.ptmx.Read(p)
	// Linux reports EIO on the master once the child side is gone.
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (c *PTYConnector) Write(p []byte) (int, error) { return c.ptmx.Write(p) }

func (c *PTYConnector) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	return pty.Setsize(c.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

func (c *PTYConnector) Wait() (int, error) {
	err := c.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	}
	return shellintegration.UnknownExitCode, err
}

// Close closes the terminal and asks the shell to terminate.
func (c *PTYConnector) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ptmx.Close()
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Signal(syscall.SIGTERM)
		}
	})
	return c.closeErr
}
