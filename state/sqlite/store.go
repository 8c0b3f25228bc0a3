package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dbxmcp/dbxmcp/state"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultBusyTimeout = 5 * time.Second
	defaultLimit       = 50
)

type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
	maxOpenConn int
}

type Option func(*Store)

func WithBusyTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) Option {
	return func(s *Store) {
		s.enableWAL = enabled
	}
}

func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConn = n
		}
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	s := &Store{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
		maxOpenConn: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConn)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s.db = db
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if s.busyTimeout > 0 {
		ms := int(s.busyTimeout / time.Millisecond)
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}
	if s.enableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable wal: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) SaveCursor(ctx context.Context, record state.CursorRecord) error {
	if record.Handle == "" {
		return fmt.Errorf("handle is required")
	}
	if record.Cursor == "" {
		return fmt.Errorf("cursor is required")
	}
	now := time.Now().UTC()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	metaRaw, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	const q = `
INSERT INTO cursors (handle, tool, cursor, metadata, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(handle) DO UPDATE SET
  tool=excluded.tool,
  cursor=excluded.cursor,
  metadata=excluded.metadata,
  updated_at=excluded.updated_at;`

	_, err = s.db.ExecContext(ctx, q,
		record.Handle,
		record.Tool,
		record.Cursor,
		string(metaRaw),
		record.CreatedAt.Format(time.RFC3339Nano),
		record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

func (s *Store) LoadCursor(ctx context.Context, handle string) (state.CursorRecord, error) {
	const q = `
SELECT handle, tool, cursor, metadata, created_at, updated_at
FROM cursors WHERE handle = ?;`

	row := s.db.QueryRowContext(ctx, q, handle)
	record, err := scanCursor(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return state.CursorRecord{}, state.ErrNotFound
	}
	if err != nil {
		return state.CursorRecord{}, fmt.Errorf("failed to load cursor: %w", err)
	}
	return record, nil
}

func (s *Store) ListCursors(ctx context.Context, query state.ListCursorsQuery) ([]state.CursorRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if query.Tool != "" {
		const q = `
SELECT handle, tool, cursor, metadata, created_at, updated_at
FROM cursors WHERE tool = ? ORDER BY updated_at DESC LIMIT ?;`
		rows, err = s.db.QueryContext(ctx, q, query.Tool, limit)
	} else {
		const q = `
SELECT handle, tool, cursor, metadata, created_at, updated_at
FROM cursors ORDER BY updated_at DESC LIMIT ?;`
		rows, err = s.db.QueryContext(ctx, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}
	defer rows.Close()

	var out []state.CursorRecord
	for rows.Next() {
		record, err := scanCursor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cursor: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCursor(ctx context.Context, handle string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE handle = ?;`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return state.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanCursor(scan func(dest ...any) error) (state.CursorRecord, error) {
	var (
		record    state.CursorRecord
		metaRaw   sql.NullString
		createdAt string
		updatedAt string
	)
	if err := scan(&record.Handle, &record.Tool, &record.Cursor, &metaRaw, &createdAt, &updatedAt); err != nil {
		return state.CursorRecord{}, err
	}
	if metaRaw.Valid && metaRaw.String != "" {
		_ = json.Unmarshal([]byte(metaRaw.String), &record.Metadata)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		record.CreatedAt = &ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		record.UpdatedAt = &ts
	}
	return record, nil
}
