// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config_test.go
// Summary: Exercises loading, validation and writing of configuration.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	state := t.TempDir()
	t.Setenv("TEXELSHELL_STATE", state)

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("config_version = %d", cfg.ConfigVersion)
	}
	if cfg.Shell.Integration != IntegrationAuto {
		t.Fatalf("integration = %q", cfg.Shell.Integration)
	}
	if cfg.Terminal.Cols != 80 || cfg.Terminal.Rows != 24 {
		t.Fatalf("size = %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Execution.LockTimeout != 3*time.Second {
		t.Fatalf("lock timeout = %v", cfg.Execution.LockTimeout)
	}
	if want := filepath.Join(state, "history.db"); cfg.History.Database != want {
		t.Fatalf("database = %q, want %q", cfg.History.Database, want)
	}
	if cfg.Terminal.KeyBindings["clear"] != "ctrl+l" {
		t.Fatalf("key bindings = %v", cfg.Terminal.KeyBindings)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TEXELSHELL_STATE", t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Terminal.Cols != 80 {
		t.Fatalf("cols = %d", cfg.Terminal.Cols)
	}
}

func TestLoadMergesFile(t *testing.T) {
	t.Setenv("TEXELSHELL_STATE", t.TempDir())
	path := filepath.Join(t.TempDir(), "texelshell.yaml")
	body := `config_version: 1
shell:
  integration: heuristic
terminal:
  cols: 120
execution:
  lock_timeout: 500ms
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Shell.Integration != IntegrationHeuristic {
		t.Fatalf("integration = %q", cfg.Shell.Integration)
	}
	if cfg.Terminal.Cols != 120 || cfg.Terminal.Rows != 24 {
		t.Fatalf("size = %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Execution.LockTimeout != 500*time.Millisecond {
		t.Fatalf("lock timeout = %v", cfg.Execution.LockTimeout)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("TEXELSHELL_STATE", t.TempDir())
	t.Setenv("TEXELSHELL_LOGGING_LEVEL", "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	t.Setenv("TEXELSHELL_STATE", t.TempDir())
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing version", "terminal:\n  cols: 100\n", "config_version is required"},
		{"future version", "config_version: 9\n", "unsupported config_version 9"},
		{"bad integration", "config_version: 1\nshell:\n  integration: magic\n", "shell.integration"},
		{"bad size", "config_version: 1\nterminal:\n  rows: 0\n", "terminal size"},
		{"bad level", "config_version: 1\nlogging:\n  level: loud\n", "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "texelshell.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestWriteDefaultAndSave(t *testing.T) {
	t.Setenv("TEXELSHELL_STATE", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "texelshell.yaml")

	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("written = %q", written)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	cfg.Terminal.MaxBlocks = 5
	cfg.Execution.FinalizeTimeout = 2 * time.Second
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Terminal.MaxBlocks != 5 || reloaded.Execution.FinalizeTimeout != 2*time.Second {
		t.Fatalf("reloaded = %+v", reloaded.Terminal)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(LoggingConfig{Level: "info", Mode: "structured"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}

	if _, _, err := NewLogger(LoggingConfig{Level: "info", Mode: "xml"}, &buf); err == nil {
		t.Fatalf("expected mode error")
	}

	file := filepath.Join(t.TempDir(), "logs", "texelshell.log")
	logger, closer, err = NewLogger(LoggingConfig{Level: "debug", File: file}, &buf)
	if err != nil {
		t.Fatalf("file logger: %v", err)
	}
	logger.Debug("to file")
	closer.Close()
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("file = %q", data)
	}
}
