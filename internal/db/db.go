// Package db persists triggers in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/linkerlin/mentiondigest/internal/types"
)

// DB wraps a *sql.DB with trigger operations.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS triggers (
  id TEXT PRIMARY KEY,
  handler TEXT NOT NULL,
  schedule TEXT NOT NULL,
  timezone TEXT NOT NULL,
  next_run TEXT,
  last_run TEXT,
  last_result TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triggers_handler ON triggers(handler);
CREATE INDEX IF NOT EXISTS idx_triggers_next_run ON triggers(next_run);
`

// Open opens (or creates) the SQLite database at the given path.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps delete-then-insert and run updates from racing.
	sqldb.SetMaxOpenConns(1)
	if _, err := sqldb.Exec(schema); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db: sqldb}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// ReplaceTriggers deletes every trigger bound to handler and inserts t in the
// same transaction. It returns how many triggers were removed.
func (d *DB) ReplaceTriggers(ctx context.Context, handler string, t types.Trigger) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM triggers WHERE handler = ?`, handler)
	if err != nil {
		return 0, fmt.Errorf("delete triggers: %w", err)
	}
	removed, _ := res.RowsAffected()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO triggers (id, handler, schedule, timezone, next_run, last_run, last_result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Handler, t.Schedule, t.Timezone,
		formatTime(t.NextRun), formatTime(t.LastRun), t.LastResult,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trigger: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

// DeleteTriggers removes every trigger bound to handler.
func (d *DB) DeleteTriggers(ctx context.Context, handler string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM triggers WHERE handler = ?`, handler)
	if err != nil {
		return 0, fmt.Errorf("delete triggers: %w", err)
	}
	return res.RowsAffected()
}

// ListTriggers returns all triggers ordered by handler.
func (d *DB) ListTriggers(ctx context.Context) ([]types.Trigger, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, handler, schedule, timezone, next_run, last_run, last_result, created_at
		FROM triggers ORDER BY handler, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTriggers(rows)
}

// GetDueTriggers returns triggers whose next run is at or before now.
func (d *DB) GetDueTriggers(ctx context.Context, now time.Time) ([]types.Trigger, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, handler, schedule, timezone, next_run, last_run, last_result, created_at
		FROM triggers
		WHERE next_run IS NOT NULL AND next_run <= ?
		ORDER BY next_run`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTriggers(rows)
}

// UpdateTriggerRun records a finished run and the next scheduled run.
func (d *DB) UpdateTriggerRun(ctx context.Context, id string, lastRun time.Time, result string, nextRun *time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE triggers SET last_run = ?, last_result = ?, next_run = ? WHERE id = ?`,
		lastRun.UTC().Format(time.RFC3339), result, formatTime(nextRun), id,
	)
	return err
}

// Times are stored as UTC RFC3339 so string comparison orders them.
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// parseTime reads a stored timestamp. Unparseable values are logged and
// read as unset, so a corrupt next_run disables the trigger instead of
// making it due on every poll.
func parseTime(id, column string, s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		slog.Error("corrupt trigger timestamp", "trigger", id, "column", column, "value", *s, "err", err)
		return nil
	}
	return &t
}

func scanTriggers(rows *sql.Rows) ([]types.Trigger, error) {
	var triggers []types.Trigger
	for rows.Next() {
		var t types.Trigger
		var nextRun, lastRun, lastResult *string
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Handler, &t.Schedule, &t.Timezone,
			&nextRun, &lastRun, &lastResult, &createdAt); err != nil {
			return nil, err
		}
		if lastResult != nil {
			t.LastResult = *lastResult
		}
		t.NextRun = parseTime(t.ID, "next_run", nextRun)
		t.LastRun = parseTime(t.ID, "last_run", lastRun)
		if ca := parseTime(t.ID, "created_at", &createdAt); ca != nil {
			t.CreatedAt = *ca
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}
