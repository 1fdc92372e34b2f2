// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/shell.go
// Summary: Shell kinds, their line-clearing prefixes and integration support.

package shellintegration

import (
	"path/filepath"
	"strings"
)

// ShellType identifies the shell family running in a session.
type ShellType string

const (
	ShellBash  ShellType = "bash"
	ShellZsh   ShellType = "zsh"
	ShellFish  ShellType = "fish"
	ShellPwsh  ShellType = "pwsh"
	ShellOther ShellType = "other"
)

// DetectShell maps a shell executable path to its type.
func DetectShell(path string) ShellType {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimPrefix(name, "-")
	switch name {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	case "pwsh", "powershell":
		return ShellPwsh
	}
	return ShellOther
}

// ClearLinePrefix returns the bytes that discard whatever the user has typed
// at the prompt before a programmatic command is sent.
func (s ShellType) ClearLinePrefix() string {
	switch s {
	case ShellBash, ShellZsh, ShellFish:
		return "\x05\x15" // Ctrl-E, Ctrl-U
	case ShellPwsh:
		return "\x1b"
	}
	return "\x15"
}

// HasIntegration reports whether an integration script ships for s.
func (s ShellType) HasIntegration() bool {
	return s == ShellBash || s == ShellZsh
}
