// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelshell/history.go
// Summary: Searches the command history journal.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/framegrace/texelshell/apps/texelterm/history"
	"github.com/framegrace/texelshell/config"
)

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var limit int
	var commandsOnly bool
	cmd := &cobra.Command{
		Use:   "history [QUERY]",
		Short: "Search recorded commands, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.History.Database == "" {
				return errors.New("history.database is not configured")
			}
			j, err := history.OpenJournal(cfg.History.Database, nil)
			if err != nil {
				return err
			}
			defer j.Close()
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			entries, err := j.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries, commandsOnly)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	cmd.Flags().BoolVar(&commandsOnly, "commands", false, "print only the command lines")
	return cmd
}

func printHistory(w io.Writer, entries []history.Entry, commandsOnly bool) error {
	if commandsOnly {
		for _, e := range entries {
			if _, err := fmt.Fprintln(w, e.Command); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tEXIT\tDURATION\tDIRECTORY\tCOMMAND")
	for _, e := range entries {
		code := "?"
		if e.ExitCode >= 0 {
			code = fmt.Sprint(e.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), code, e.Duration, e.Directory,
			strings.ReplaceAll(e.Command, "\n", " "))
	}
	return tw.Flush()
}
