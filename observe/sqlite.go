package observe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists invocation events to a local audit database.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("audit sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS invocations (
  id TEXT PRIMARY KEY,
  tool TEXT NOT NULL,
  status TEXT NOT NULL,
  error_kind TEXT,
  message TEXT,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  attempts INTEGER NOT NULL DEFAULT 0,
  attributes TEXT,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at DESC);
`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Emit(ctx context.Context, event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	event.Normalize()
	if event.Tool == "" {
		return nil
	}
	var attrs any
	if len(event.Attributes) > 0 {
		b, err := json.Marshal(event.Attributes)
		if err == nil {
			attrs = string(b)
		}
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO invocations (id, tool, status, error_kind, message, duration_ms, attempts, attributes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		event.ID,
		event.Tool,
		string(event.Status),
		event.ErrorKind,
		event.Message,
		event.DurationMs,
		event.Attempts,
		attrs,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, tool, status, error_kind, message, duration_ms, attempts, attributes, created_at
FROM invocations ORDER BY created_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e         Event
			status    string
			errorKind sql.NullString
			message   sql.NullString
			attrs     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Tool, &status, &errorKind, &message, &e.DurationMs, &e.Attempts, &attrs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		e.Status = Status(status)
		e.ErrorKind = errorKind.String
		e.Message = message.String
		if attrs.Valid && attrs.String != "" {
			_ = json.Unmarshal([]byte(attrs.String), &e.Attributes)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.Timestamp = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
