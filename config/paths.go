// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/paths.go
// Summary: Path helpers for texelshell configuration and state.

package config

import (
	"os"
	"path/filepath"
)

const configName = "texelshell.yaml"

// Root returns the configuration directory.
func Root() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "texelshell"), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, configName), nil
}

// StateDir holds the history journal and installed integration scripts.
// TEXELSHELL_STATE overrides it.
func StateDir() (string, error) {
	if dir, ok := os.LookupEnv("TEXELSHELL_STATE"); ok && dir != "" {
		return dir, nil
	}
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "state"), nil
}
