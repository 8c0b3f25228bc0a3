package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dbxmcp/dbxmcp/state"
)

// HybridStore writes cursors through to a durable store and serves reads
// from a faster cache when one is configured.
type HybridStore struct {
	durable state.Store
	cache   state.Store
}

func New(durable state.Store, cache state.Store) (*HybridStore, error) {
	if durable == nil {
		return nil, fmt.Errorf("durable store is required")
	}
	return &HybridStore{
		durable: durable,
		cache:   cache,
	}, nil
}

func (h *HybridStore) SaveCursor(ctx context.Context, record state.CursorRecord) error {
	if err := h.durable.SaveCursor(ctx, record); err != nil {
		return err
	}
	if h.cache != nil {
		if err := h.cache.SaveCursor(ctx, record); err != nil {
			slog.Warn("hybrid store cache SaveCursor failed", "err", err)
		}
	}
	return nil
}

func (h *HybridStore) LoadCursor(ctx context.Context, handle string) (state.CursorRecord, error) {
	if h.cache != nil {
		record, err := h.cache.LoadCursor(ctx, handle)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, state.ErrNotFound) {
			slog.Warn("hybrid store cache LoadCursor failed", "err", err)
		}
	}

	record, err := h.durable.LoadCursor(ctx, handle)
	if err != nil {
		return state.CursorRecord{}, err
	}
	if h.cache != nil {
		if err := h.cache.SaveCursor(ctx, record); err != nil {
			slog.Warn("hybrid store cache backfill SaveCursor failed", "err", err)
		}
	}
	return record, nil
}

func (h *HybridStore) ListCursors(ctx context.Context, query state.ListCursorsQuery) ([]state.CursorRecord, error) {
	return h.durable.ListCursors(ctx, query)
}

func (h *HybridStore) DeleteCursor(ctx context.Context, handle string) error {
	if h.cache != nil {
		if err := h.cache.DeleteCursor(ctx, handle); err != nil && !errors.Is(err, state.ErrNotFound) {
			slog.Warn("hybrid store cache DeleteCursor failed", "err", err)
		}
	}
	return h.durable.DeleteCursor(ctx, handle)
}

func (h *HybridStore) Close() error {
	var firstErr error
	if h.cache != nil {
		if err := h.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.durable != nil {
		if err := h.durable.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
