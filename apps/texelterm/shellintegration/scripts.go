// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/shellintegration/scripts.go
// Summary: Embedded integration scripts and their installation for a shell.
// Usage: The PTY connector calls Install before starting the shell and
//        applies the returned arguments and environment.

package shellintegration

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed scripts/bash.sh scripts/zshenv.zsh scripts/zshrc.zsh
var scripts embed.FS

// GeneratorFunction is the shell function that runs introspection requests.
const GeneratorFunction = "__texel_run_generator"

// Script returns the embedded script for name.
func Script(name string) ([]byte, error) {
	return scripts.ReadFile("scripts/" + name)
}

// Launch describes how to start a shell with integration loaded.
type Launch struct {
	Args []string
	Env  []string
}

// Install writes the integration files for shell under dir and returns the
// launch adjustments. Shells without integration get an empty Launch.
func Install(dir string, shell ShellType) (Launch, error) {
	switch shell {
	case ShellBash:
		path := filepath.Join(dir, "bash", "texelshell.bashrc")
		if err := writeScript(path, "bash.sh"); err != nil {
			return Launch{}, err
		}
		return Launch{Args: []string{"--rcfile", path, "-i"}}, nil
	case ShellZsh:
		zdot := filepath.Join(dir, "zsh")
		if err := writeScript(filepath.Join(zdot, ".zshenv"), "zshenv.zsh"); err != nil {
			return Launch{}, err
		}
		if err := writeScript(filepath.Join(zdot, ".zshrc"), "zshrc.zsh"); err != nil {
			return Launch{}, err
		}
		env := []string{"ZDOTDIR=" + zdot}
		if user, ok := os.LookupEnv("ZDOTDIR"); ok {
			env = append(env, "TEXEL_USER_ZDOTDIR="+user)
		}
		return Launch{Args: []string{"-i"}, Env: env}, nil
	}
	return Launch{}, nil
}

func writeScript(path, name string) error {
	data, err := Script(name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
