package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dbxmcp/dbxmcp/state"
)

const (
	defaultTTL    = 24 * time.Hour
	defaultLimit  = 50
	defaultPrefix = "dbxmcp"
)

type Store struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*Store)

func WithPassword(password string) Option {
	return func(s *Store) {
		s.password = password
	}
}

func WithDB(db int) Option {
	return func(s *Store) {
		s.db = db
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	s := &Store{
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = goredis.NewClient(&goredis.Options{
			Addr:     s.addr,
			Password: s.password,
			DB:       s.db,
		})
	}

	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return s, nil
}

func (s *Store) cursorKey(handle string) string {
	return s.prefix + ":cursor:" + handle
}

func (s *Store) toolIndexKey(tool string) string {
	return s.prefix + ":cursors:tool:" + tool
}

func (s *Store) allIndexKey() string {
	return s.prefix + ":cursors:all"
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

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	score := float64(record.UpdatedAt.UnixNano())
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.cursorKey(record.Handle), raw, s.ttl)
	pipe.ZAdd(ctx, s.allIndexKey(), goredis.Z{Score: score, Member: record.Handle})
	pipe.Expire(ctx, s.allIndexKey(), s.ttl)
	if record.Tool != "" {
		pipe.ZAdd(ctx, s.toolIndexKey(record.Tool), goredis.Z{Score: score, Member: record.Handle})
		pipe.Expire(ctx, s.toolIndexKey(record.Tool), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

func (s *Store) LoadCursor(ctx context.Context, handle string) (state.CursorRecord, error) {
	raw, err := s.client.Get(ctx, s.cursorKey(handle)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return state.CursorRecord{}, state.ErrNotFound
	}
	if err != nil {
		return state.CursorRecord{}, fmt.Errorf("failed to load cursor: %w", err)
	}
	var record state.CursorRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return state.CursorRecord{}, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return record, nil
}

func (s *Store) ListCursors(ctx context.Context, query state.ListCursorsQuery) ([]state.CursorRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	index := s.allIndexKey()
	if query.Tool != "" {
		index = s.toolIndexKey(query.Tool)
	}

	handles, err := s.client.ZRevRange(ctx, index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}

	out := make([]state.CursorRecord, 0, len(handles))
	for _, handle := range handles {
		record, err := s.LoadCursor(ctx, handle)
		if errors.Is(err, state.ErrNotFound) {
			// Expired entry still indexed; drop it lazily.
			s.client.ZRem(ctx, index, handle)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Store) DeleteCursor(ctx context.Context, handle string) error {
	record, err := s.LoadCursor(ctx, handle)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.cursorKey(handle))
	pipe.ZRem(ctx, s.allIndexKey(), handle)
	if record.Tool != "" {
		pipe.ZRem(ctx, s.toolIndexKey(record.Tool), handle)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
