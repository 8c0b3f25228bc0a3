package observe

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteSinkRoundTrip(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	events := []Event{
		{ID: "inv-1", Tool: "list_clusters", Status: StatusCompleted, DurationMs: 12, Timestamp: time.Now().Add(-2 * time.Second)},
		{ID: "inv-2", Tool: "execute_statement", Status: StatusFailed, ErrorKind: "rate_limited", Message: "too many requests", Attempts: 4, Timestamp: time.Now()},
	}
	for _, e := range events {
		if err := sink.Emit(ctx, e); err != nil {
			t.Fatalf("Emit(%s): %v", e.ID, err)
		}
	}

	got, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != "inv-2" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
	if got[0].ErrorKind != "rate_limited" || got[0].Attempts != 4 {
		t.Fatalf("failure fields not persisted: %+v", got[0])
	}
}

func TestSQLiteSinkRequiresPath(t *testing.T) {
	if _, err := NewSQLiteSink(" "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestAsyncSinkForwards(t *testing.T) {
	var seen []Event
	done := make(chan struct{})
	inner := SinkFunc(func(_ context.Context, e Event) error {
		seen = append(seen, e)
		if len(seen) == 2 {
			close(done)
		}
		return nil
	})

	async := NewAsyncSink(inner, 8)
	ctx := context.Background()
	async.Emit(ctx, Event{ID: "a", Tool: "list_jobs"})
	async.Emit(ctx, Event{ID: "b", Tool: "list_jobs"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("events not forwarded")
	}
	async.Close()

	if seen[0].Status != StatusStarted {
		t.Fatalf("Normalize should default status, got %q", seen[0].Status)
	}
}
