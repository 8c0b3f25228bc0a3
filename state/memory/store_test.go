package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dbxmcp/dbxmcp/state"
)

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SaveCursor(ctx, state.CursorRecord{Handle: "inv-1", Tool: "list_jobs", Cursor: "list:a"}); err != nil {
		t.Fatalf("SaveCursor failed: %v", err)
	}
	got, err := s.LoadCursor(ctx, "inv-1")
	if err != nil {
		t.Fatalf("LoadCursor failed: %v", err)
	}
	if got.Cursor != "list:a" || got.CreatedAt == nil {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := s.DeleteCursor(ctx, "inv-1"); err != nil {
		t.Fatalf("DeleteCursor failed: %v", err)
	}
	if _, err := s.LoadCursor(ctx, "inv-1"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveValidation(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SaveCursor(ctx, state.CursorRecord{Cursor: "x"}); err == nil {
		t.Fatalf("expected error for missing handle")
	}
	if err := s.SaveCursor(ctx, state.CursorRecord{Handle: "h"}); err == nil {
		t.Fatalf("expected error for missing cursor")
	}
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		err := s.SaveCursor(ctx, state.CursorRecord{
			Handle:    "inv-" + string(rune('a'+i)),
			Tool:      "list_jobs",
			Cursor:    "list:x",
			UpdatedAt: &ts,
		})
		if err != nil {
			t.Fatalf("SaveCursor failed: %v", err)
		}
	}

	out, err := s.ListCursors(ctx, state.ListCursorsQuery{Tool: "list_jobs", Limit: 2})
	if err != nil {
		t.Fatalf("ListCursors failed: %v", err)
	}
	if len(out) != 2 || out[0].Handle != "inv-c" {
		t.Fatalf("unexpected ordering: %+v", out)
	}
}
