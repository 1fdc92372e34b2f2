// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/history/history_test.go
// Summary: History set ordering, dump parsing and the SQLite journal.

package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseDump(t *testing.T) {
	testCases := []struct {
		name string
		dump string
		want []string
	}{
		{"plain", "ls -la\ncd /tmp\n\n", []string{"ls -la", "cd /tmp"}},
		{"bash numbered", "    1  ls\n    2* git status\n", []string{"ls", "git status"}},
		{"bash timestamps", "#1700000000\nmake\n", []string{"make"}},
		{"zsh extended", ": 1700000000:0;echo hi\n: 1700000001:3;sleep 3\n", []string{"echo hi", "sleep 3"}},
		{"leading digits kept", "7z x archive.7z\n", []string{"7z x archive.7z"}},
		{"crlf", "pwd\r\nwhoami\r\n", []string{"pwd", "whoami"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseDump(tc.dump); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseDump = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSetOrdering(t *testing.T) {
	s := NewSet(0)
	s.Add("ls")
	s.Add("pwd")
	s.Add("ls")
	s.Add("   ")
	if got, want := s.Entries(), []string{"pwd", "ls"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %q, want %q", got, want)
	}
}

func TestSetSeedOnce(t *testing.T) {
	s := NewSet(0)
	s.Add("typed early")
	if !s.Seed("a\nb\ntyped early\n") {
		t.Fatalf("first seed rejected")
	}
	if s.Seed("c\n") {
		t.Fatalf("second seed accepted")
	}
	if got, want := s.Entries(), []string{"a", "b", "typed early"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %q, want %q", got, want)
	}
}

func TestSetBoundAndSearch(t *testing.T) {
	s := NewSet(3)
	for _, c := range []string{"git add", "ls", "git commit", "git push"} {
		s.Add(c)
	}
	if got, want := s.Entries(), []string{"ls", "git commit", "git push"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %q, want %q", got, want)
	}
	if got, want := s.Search("git", 1), []string{"git push"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("search = %q, want %q", got, want)
	}
	s.Add("ls")
	if got, want := s.Search("", 0), []string{"ls", "git push", "git commit"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("search = %q, want %q", got, want)
	}
}

func TestJournalRecordAndSearch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history", "journal.db")
	j, err := OpenJournal(dbPath, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	ctx := context.Background()
	start := time.Unix(1700000000, 0)
	for i, cmd := range []string{"docker run nginx", "ls -la", "docker ps"} {
		e, err := j.Record(ctx, Entry{Session: "s1", Command: cmd, ExitCode: i, Duration: 120 * time.Millisecond, Directory: "/srv", StartedAt: start.Add(time.Duration(i) * time.Second)})
		if err != nil {
			t.Fatalf("record %q: %v", cmd, err)
		}
		if e.ID == 0 {
			t.Fatalf("record %q: id not set", cmd)
		}
	}

	got, err := j.Search(ctx, "docker", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Command != "docker ps" || got[1].Command != "docker run nginx" {
		t.Fatalf("search docker = %+v", got)
	}
	if got[0].ExitCode != 2 || got[0].Duration != 120*time.Millisecond || got[0].Directory != "/srv" || !got[0].StartedAt.Equal(start.Add(2*time.Second)) {
		t.Fatalf("entry fields = %+v", got[0])
	}

	short, err := j.Search(ctx, "-l", 10)
	if err != nil || len(short) != 1 || short[0].Command != "ls -la" {
		t.Fatalf("short search = %+v, %v", short, err)
	}

	cmds, err := j.Commands(ctx, 10)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if want := []string{"docker run nginx", "ls -la", "docker ps"}; !reflect.DeepEqual(cmds, want) {
		t.Fatalf("commands = %q, want %q", cmds, want)
	}
}

func TestJournalReopenKeepsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	j, err := OpenJournal(dbPath, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := j.Record(ctx, Entry{Session: "s1", Command: "make test", StartedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j, err = OpenJournal(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Search(ctx, "make", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("search after reopen = %+v, %v", got, err)
	}
}

func TestJournalClosed(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := j.Record(context.Background(), Entry{Command: "ls"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("record after close: %v", err)
	}
	if _, err := j.Search(context.Background(), "ls", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("search after close: %v", err)
	}
	if err := j.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second close: %v", err)
	}
}
