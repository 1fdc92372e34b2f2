// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/logging.go
// Summary: Builds the process logger from the logging section.

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

func parseLevel(level string) (pslog.Options, error) {
	var opts pslog.Options
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "", "info":
		opts.MinLevel = pslog.InfoLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	default:
		return opts, fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", level)
	}
	return opts, nil
}

// LoggerOptions maps the logging section onto pslog options.
func LoggerOptions(cfg LoggingConfig) (pslog.Options, error) {
	opts, err := parseLevel(cfg.Level)
	if err != nil {
		return opts, err
	}
	switch strings.ToLower(cfg.Mode) {
	case "", "console":
		opts.Mode = pslog.ModeConsole
	case "structured", "json":
		opts.Mode = pslog.ModeStructured
	default:
		return opts, fmt.Errorf("logging.mode must be console or structured; got %q", cfg.Mode)
	}
	return opts, nil
}

// NewLogger builds a logger writing to the configured file, or to fallback
// when no file is set. The returned closer releases the file.
func NewLogger(cfg LoggingConfig, fallback io.Writer) (pslog.Logger, io.Closer, error) {
	opts, err := LoggerOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return pslog.NewWithOptions(fallback, opts), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	opts.NoColor = true
	return pslog.NewWithOptions(f, opts), f, nil
}
