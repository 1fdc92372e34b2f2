// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/history/journal.go
// Summary: SQLite journal of finished commands with substring search.
//
// Records every finished command block with its exit code, duration and
// working directory. Search uses an FTS5 trigram index so any substring of
// a command matches; queries shorter than a trigram fall back to LIKE.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by a journal after Close.
var ErrClosed = errors.New("history: journal closed")

// Entry is one recorded command.
type Entry struct {
	ID        int64
	Session   string
	Command   string
	ExitCode  int
	Duration  time.Duration
	Directory string
	StartedAt time.Time
}

const journalSchemaVersion = 1

const journalSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS commands (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session TEXT NOT NULL,
    started INTEGER NOT NULL,     -- UnixNano
    command TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    directory TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_commands_started ON commands(started);
`

const journalFTSSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS commands_fts USING fts5(
    command,
    content='commands',
    content_rowid='id',
    tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS commands_ai AFTER INSERT ON commands BEGIN
    INSERT INTO commands_fts(rowid, command) VALUES (new.id, new.command);
END;

CREATE TRIGGER IF NOT EXISTS commands_ad AFTER DELETE ON commands BEGIN
    INSERT INTO commands_fts(commands_fts, rowid, command) VALUES ('delete', old.id, old.command);
END;
`

// Journal persists finished commands.
type Journal struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
	log    pslog.Logger
}

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string, logger pslog.Logger) (*Journal, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	if err := migrateJournal(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(journalFTSSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal search schema: %w", err)
	}
	return &Journal{db: db, log: logger.With("journal", path)}, nil
}

// migrateJournal rebuilds the search index when the schema version changes.
func migrateJournal(db *sql.DB, logger pslog.Logger) error {
	var version int
	if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read journal schema version: %w", err)
	}
	if version == journalSchemaVersion {
		return nil
	}
	logger.Info("migrating history journal", "from", version, "to", journalSchemaVersion)
	for _, stmt := range []string{
		"DROP TRIGGER IF EXISTS commands_ai",
		"DROP TRIGGER IF EXISTS commands_ad",
		"DROP TABLE IF EXISTS commands_fts",
		"DELETE FROM schema_version",
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("journal migration %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", journalSchemaVersion); err != nil {
		return fmt.Errorf("write journal schema version: %w", err)
	}
	if _, err := db.Exec(journalFTSSchema); err != nil {
		return fmt.Errorf("create journal search schema: %w", err)
	}
	if _, err := db.Exec("INSERT INTO commands_fts(rowid, command) SELECT id, command FROM commands"); err != nil {
		return fmt.Errorf("rebuild journal search index: %w", err)
	}
	return nil
}

// Record stores a finished command and returns it with its id set.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.Command) == "" {
		return e, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return e, ErrClosed
	}
	res, err := j.db.ExecContext(ctx,
		"INSERT INTO commands (session, started, command, exit_code, duration_ms, directory) VALUES (?, ?, ?, ?, ?, ?)",
		e.Session, e.StartedAt.UnixNano(), e.Command, e.ExitCode, e.Duration.Milliseconds(), e.Directory)
	if err != nil {
		return e, fmt.Errorf("record command: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return e, fmt.Errorf("record command id: %w", err)
	}
	j.log.Trace("command recorded", "id", e.ID, "exit_code", e.ExitCode)
	return e, nil
}

// Search returns up to limit entries whose command contains query, newest
// first. An empty query lists the most recent entries.
func (j *Journal) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}
	const cols = "c.id, c.session, c.started, c.command, c.exit_code, c.duration_ms, c.directory"
	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case query == "":
		rows, err = j.db.QueryContext(ctx, "SELECT "+cols+" FROM commands c ORDER BY c.id DESC LIMIT ?", limit)
	case len(query) < 3:
		pattern := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", "\\%"), "_", "\\_") + "%"
		rows, err = j.db.QueryContext(ctx, "SELECT "+cols+" FROM commands c WHERE c.command LIKE ? ESCAPE '\\' ORDER BY c.id DESC LIMIT ?", pattern, limit)
	default:
		quoted := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
		rows, err = j.db.QueryContext(ctx, "SELECT "+cols+" FROM commands_fts JOIN commands c ON c.id = commands_fts.rowid WHERE commands_fts MATCH ? ORDER BY c.id DESC LIMIT ?", quoted, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started int64
			ms      int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &started, &e.Command, &e.ExitCode, &ms, &e.Directory); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.StartedAt = time.Unix(0, started)
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Commands returns recorded command texts, oldest first, for seeding a Set.
func (j *Journal) Commands(ctx context.Context, limit int) ([]string, error) {
	entries, err := j.Search(ctx, "", limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e.Command
	}
	return out, nil
}

// Close closes the database. Further calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.closed = true
	return j.db.Close()
}
