// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelshell/version.go
// Summary: Prints build version information.

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func buildVersion() (module, version string) {
	module, version = "github.com/framegrace/texelshell", "(devel)"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return module, version
	}
	if info.Main.Path != "" {
		module = info.Main.Path
	}
	if info.Main.Version != "" {
		version = info.Main.Version
	}
	return module, version
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			module, version := buildVersion()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", module, version)
			return err
		},
	}
}
