package state

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("state: not found")

type ListCursorsQuery struct {
	Tool  string
	Limit int
}

// Store persists resume cursors across server restarts so a truncated
// result can be picked up by a later session.
type Store interface {
	SaveCursor(ctx context.Context, record CursorRecord) error
	LoadCursor(ctx context.Context, handle string) (CursorRecord, error)
	ListCursors(ctx context.Context, query ListCursorsQuery) ([]CursorRecord, error)
	DeleteCursor(ctx context.Context, handle string) error

	Close() error
}
