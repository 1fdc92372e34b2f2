// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/types.go
// Summary: Typed configuration for texelshell.

package config

import "time"

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Config is the top-level configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Shell         ShellConfig     `mapstructure:"shell" yaml:"shell"`
	Terminal      TerminalConfig  `mapstructure:"terminal" yaml:"terminal"`
	Execution     ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	History       HistoryConfig   `mapstructure:"history" yaml:"history"`
	Logging       LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// Integration modes for ShellConfig.Integration.
const (
	IntegrationAuto      = "auto"
	IntegrationExplicit  = "integration"
	IntegrationHeuristic = "heuristic"
)

// ShellConfig selects the shell process and how its boundaries are found.
type ShellConfig struct {
	Path        string   `mapstructure:"path" yaml:"path"`
	Args        []string `mapstructure:"args" yaml:"args"`
	Integration string   `mapstructure:"integration" yaml:"integration"`
	Charset     string   `mapstructure:"charset" yaml:"charset"`
	Term        string   `mapstructure:"term" yaml:"term"`
}

// TerminalConfig sizes the screen buffer and the block model.
type TerminalConfig struct {
	Cols         int               `mapstructure:"cols" yaml:"cols"`
	Rows         int               `mapstructure:"rows" yaml:"rows"`
	HistoryLines int               `mapstructure:"history_lines" yaml:"history_lines"`
	MaxBlocks    int               `mapstructure:"max_blocks" yaml:"max_blocks"`
	EndMarker    string            `mapstructure:"end_marker" yaml:"end_marker"`
	KeyBindings  map[string]string `mapstructure:"key_bindings" yaml:"key_bindings"`
}

// ExecutionConfig bounds waits on the execution queue and block finalization.
type ExecutionConfig struct {
	LockTimeout     time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	FinalizeTimeout time.Duration `mapstructure:"finalize_timeout" yaml:"finalize_timeout"`
}

// HistoryConfig controls the command history.
type HistoryConfig struct {
	MaxEntries int    `mapstructure:"max_entries" yaml:"max_entries"`
	Database   string `mapstructure:"database" yaml:"database"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Mode  string `mapstructure:"mode" yaml:"mode"`
	File  string `mapstructure:"file" yaml:"file"`
}
