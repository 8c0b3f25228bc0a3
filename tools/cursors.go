package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dbxmcp/dbxmcp/state"
)

func init() {
	MustRegisterTool("list_resume_cursors", NewListResumeCursors)
	MustRegisterTool("get_resume_cursor", NewGetResumeCursor)
	MustRegisterTool("delete_resume_cursor", NewDeleteResumeCursor)
}

// cursorStore holds the resume cursors the server persisted for truncated
// results, keyed by invocation ID. Configured at startup; nil when the
// server runs without a store.
var cursorStore state.Store

// SetCursorStore wires the persisted-cursor store the cursor tools read from.
func SetCursorStore(s state.Store) { cursorStore = s }

func cursorStoreOrErr() (state.Store, error) {
	if cursorStore == nil {
		return nil, fmt.Errorf("no cursor store is configured")
	}
	return cursorStore, nil
}

func loadCursorRecord(ctx context.Context, invocationID string) (state.CursorRecord, error) {
	store, err := cursorStoreOrErr()
	if err != nil {
		return state.CursorRecord{}, err
	}
	rec, err := store.LoadCursor(ctx, invocationID)
	if errors.Is(err, state.ErrNotFound) {
		return state.CursorRecord{}, fmt.Errorf("no resume cursor stored for invocation %s", invocationID)
	}
	return rec, err
}

func shapeCursorRecord(rec state.CursorRecord) map[string]any {
	out := map[string]any{
		"invocation_id": rec.Handle,
		"tool":          rec.Tool,
		"resume_cursor": rec.Cursor,
	}
	if rec.UpdatedAt != nil {
		out["updated_at"] = rec.UpdatedAt
	}
	return out
}

func NewListResumeCursors() Tool {
	type args struct {
		Tool  string `json:"tool,omitempty"`
		Limit int    `json:"limit,omitempty"`
	}
	return NewFuncTool(
		"list_resume_cursors",
		"List resume cursors persisted from truncated results, newest first.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool":  map[string]any{"type": "string", "description": "Only cursors produced by this tool"},
				"limit": map[string]any{"type": "integer", "description": "Maximum cursors to return", "minimum": 1},
			},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_resume_cursors")
			if err != nil {
				return nil, err
			}
			store, err := cursorStoreOrErr()
			if err != nil {
				return nil, err
			}
			records, err := store.ListCursors(ctx, state.ListCursorsQuery{Tool: in.Tool, Limit: in.Limit})
			if err != nil {
				return nil, err
			}
			shaped := make([]map[string]any, 0, len(records))
			for _, rec := range records {
				shaped = append(shaped, shapeCursorRecord(rec))
			}
			return map[string]any{
				"cursors": shaped,
				"count":   len(shaped),
			}, nil
		},
	)
}

func NewGetResumeCursor() Tool {
	type args struct {
		InvocationID string `json:"invocation_id"`
	}
	return NewFuncTool(
		"get_resume_cursor",
		"Look up the resume cursor persisted for a previous invocation.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"invocation_id": map[string]any{"type": "string", "description": "The invocation ID that produced the truncated result"},
			},
			"required": []string{"invocation_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_resume_cursor")
			if err != nil {
				return nil, err
			}
			rec, err := loadCursorRecord(ctx, in.InvocationID)
			if err != nil {
				return nil, err
			}
			return shapeCursorRecord(rec), nil
		},
	)
}

func NewDeleteResumeCursor() Tool {
	type args struct {
		InvocationID string `json:"invocation_id"`
	}
	return NewFuncTool(
		"delete_resume_cursor",
		"Discard the resume cursor persisted for a previous invocation.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"invocation_id": map[string]any{"type": "string", "description": "The invocation ID whose cursor should be discarded"},
			},
			"required": []string{"invocation_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_resume_cursor")
			if err != nil {
				return nil, err
			}
			store, err := cursorStoreOrErr()
			if err != nil {
				return nil, err
			}
			if err := store.DeleteCursor(ctx, in.InvocationID); err != nil {
				if errors.Is(err, state.ErrNotFound) {
					return nil, fmt.Errorf("no resume cursor stored for invocation %s", in.InvocationID)
				}
				return nil, err
			}
			return map[string]any{"invocation_id": in.InvocationID, "status": "deleted"}, nil
		},
	)
}
