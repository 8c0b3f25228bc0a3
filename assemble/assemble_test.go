package assemble

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dbxmcp/dbxmcp/retry"
)

type notFoundErr struct{}

func (notFoundErr) Error() string { return "statement not found" }
func (notFoundErr) HTTPStatusCode() int { return 404 }

type serverErr struct{}

func (serverErr) Error() string { return "internal error" }
func (serverErr) HTTPStatusCode() int { return 500 }

// fakeChunks serves a statement split into fixed chunks.
type fakeChunks struct {
	chunks  [][][]any
	fetches int
	failAt  int // chunk index that always fails; -1 for none
	failErr error
}

func (f *fakeChunks) FetchChunk(_ context.Context, _ string, chunkIndex int) ([][]any, error) {
	f.fetches++
	if f.failErr != nil && chunkIndex == f.failAt {
		return nil, f.failErr
	}
	if chunkIndex < 0 || chunkIndex >= len(f.chunks) {
		return nil, notFoundErr{}
	}
	return f.chunks[chunkIndex], nil
}

func makeChunks(sizes ...int) [][][]any {
	chunks := make([][][]any, len(sizes))
	n := 0
	for ci, size := range sizes {
		rows := make([][]any, size)
		for i := range rows {
			rows[i] = []any{fmt.Sprintf("row-%d", n)}
			n++
		}
		chunks[ci] = rows
	}
	return chunks
}

func fastOpts() Options {
	return Options{Policy: retry.Policy{
		MaxAttempts:    2,
		InitialDelay:   time.Millisecond,
		MaxDelay:       time.Millisecond,
		Multiplier:     2,
		JitterFraction: 0,
	}}
}

func firstOf(f *fakeChunks, id string) FirstResult {
	total := 0
	for _, c := range f.chunks {
		total += len(c)
	}
	return FirstResult{
		StatementID:     id,
		Rows:            f.chunks[0],
		TotalChunkCount: len(f.chunks),
		TotalRowCount:   int64(total),
	}
}

func TestStatementAllChunksInOrder(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(3, 3, 3, 3, 3), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Complete || res.Truncated {
		t.Errorf("complete=%v truncated=%v, want complete", res.Complete, res.Truncated)
	}
	if len(res.Items) != 15 {
		t.Fatalf("items = %d, want 15", len(res.Items))
	}
	for i, row := range res.Items {
		if want := fmt.Sprintf("row-%d", i); row[0] != want {
			t.Fatalf("items[%d] = %v, want %s", i, row[0], want)
		}
	}
}

func TestStatementSingleChunkShortCircuits(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(4), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.fetches != 0 {
		t.Errorf("fetches = %d, want 0", fake.fetches)
	}
	if !res.Complete || len(res.Items) != 4 {
		t.Errorf("complete=%v items=%d", res.Complete, len(res.Items))
	}
}

func TestStatement250RowsComplete(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(100, 100, 50), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{MaxItems: 1000}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 250 || !res.Complete || res.Truncated {
		t.Errorf("items=%d complete=%v truncated=%v, want 250/complete", len(res.Items), res.Complete, res.Truncated)
	}
	if res.TotalKnown != 250 {
		t.Errorf("totalKnown = %d, want 250", res.TotalKnown)
	}
}

func TestStatementItemCapTruncatesWithResumableCursor(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(100, 100, 50), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{MaxItems: 150}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 150 || !res.Truncated || res.Complete {
		t.Fatalf("items=%d truncated=%v complete=%v, want 150 truncated", len(res.Items), res.Truncated, res.Complete)
	}

	cursor, err := DecodeStatementCursor(res.Cursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if cursor.NextChunkIndex != 1 || cursor.RowOffset != 50 {
		t.Errorf("cursor = %+v, want chunk 1 offset 50", cursor)
	}

	rest, err := ResumeStatement(context.Background(), fake, cursor, Limits{MaxItems: 1000}, fastOpts())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !rest.Complete {
		t.Error("resumed result not complete")
	}

	var all []string
	for _, row := range append(append([][]any{}, res.Items...), rest.Items...) {
		all = append(all, row[0].(string))
	}
	want := make([]string, 250)
	for i := range want {
		want[i] = fmt.Sprintf("row-%d", i)
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("reassembled rows mismatch (-want +got):\n%s", diff)
	}
}

func TestStatementFirstChunkTruncationResumes(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(100, 50), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{MaxItems: 40}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 40 || !res.Truncated {
		t.Fatalf("items=%d truncated=%v, want 40 truncated", len(res.Items), res.Truncated)
	}

	cursor, err := DecodeStatementCursor(res.Cursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if cursor.NextChunkIndex != 0 || cursor.RowOffset != 40 {
		t.Fatalf("cursor = %+v, want chunk 0 offset 40", cursor)
	}

	rest, err := ResumeStatement(context.Background(), fake, cursor, Limits{MaxItems: 1000}, fastOpts())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !rest.Complete || len(rest.Items) != 110 {
		t.Fatalf("complete=%v items=%d, want complete 110", rest.Complete, len(rest.Items))
	}

	var all []string
	for _, row := range append(append([][]any{}, res.Items...), rest.Items...) {
		all = append(all, row[0].(string))
	}
	want := make([]string, 150)
	for i := range want {
		want[i] = fmt.Sprintf("row-%d", i)
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("reassembled rows mismatch (-want +got):\n%s", diff)
	}
}

func TestStatementByteCap(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(10, 10), failAt: -1}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{MaxItems: 1000, MaxBytes: 40}, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated || res.Complete {
		t.Errorf("truncated=%v complete=%v, want truncated", res.Truncated, res.Complete)
	}
	if res.Bytes <= 40 && len(res.Items) == 20 {
		t.Error("byte cap had no effect")
	}
	if res.Cursor == "" {
		t.Error("truncated result missing cursor")
	}
}

func TestStatementStaleCursor(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(5, 5), failAt: 1, failErr: notFoundErr{}}
	cursor := StatementCursor{StatementID: "gone", NextChunkIndex: 1, TotalChunks: 2}
	_, err := ResumeStatement(context.Background(), fake, cursor, Limits{}, fastOpts())
	var ce *retry.ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != retry.KindStaleCursor {
		t.Fatalf("err = %v, want stale_cursor", err)
	}
	if fake.fetches != 1 {
		t.Errorf("fetches = %d, want 1 (no retry on stale cursor)", fake.fetches)
	}
}

func TestStatementFailureDiscardsPartials(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(5, 5, 5), failAt: 2, failErr: serverErr{}}
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{}, fastOpts())
	if err == nil {
		t.Fatal("expected error")
	}
	if res != nil {
		t.Error("partial result returned without best-effort mode")
	}
}

func TestStatementBestEffortKeepsPartials(t *testing.T) {
	fake := &fakeChunks{chunks: makeChunks(5, 5, 5), failAt: 2, failErr: serverErr{}}
	opts := fastOpts()
	opts.BestEffort = true
	res, err := Statement(context.Background(), fake, firstOf(fake, "s1"), Limits{}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 10 {
		t.Errorf("items = %d, want 10", len(res.Items))
	}
	if res.Err == nil || res.Err.Kind != retry.KindServerError {
		t.Errorf("attached err = %v, want server_error", res.Err)
	}
	if res.FailedAt != 2 {
		t.Errorf("failedAt = %d, want 2", res.FailedAt)
	}
}

// pagedSource serves n items in pages of pageSize, with numeric page tokens.
type pagedSource struct {
	items    []map[string]any
	pageSize int
	calls    int
	failOn   string
	failErr  error
}

func newPagedSource(n, pageSize int) *pagedSource {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"id": fmt.Sprintf("item-%d", i)}
	}
	return &pagedSource{items: items, pageSize: pageSize}
}

func (s *pagedSource) fetch(_ context.Context, token string, _ int) (Page, error) {
	s.calls++
	if s.failErr != nil && token == s.failOn {
		return Page{}, s.failErr
	}
	start := 0
	if token != "" {
		if _, err := fmt.Sscanf(token, "t%d", &start); err != nil {
			return Page{}, &badTokenErr{}
		}
	}
	if start >= len(s.items) {
		return Page{}, &badTokenErr{}
	}
	end := start + s.pageSize
	if end > len(s.items) {
		end = len(s.items)
	}
	page := Page{Items: s.items[start:end], TotalKnown: int64(len(s.items))}
	if end < len(s.items) {
		page.NextPageToken = fmt.Sprintf("t%d", end)
	}
	return page, nil
}

type badTokenErr struct{}

func (*badTokenErr) Error() string { return "invalid page token" }
func (*badTokenErr) HTTPStatusCode() int { return 400 }

func TestListingExhaustsSource(t *testing.T) {
	src := newPagedSource(25, 10)
	res, err := Listing(context.Background(), "clusters", src.fetch, 100, nil, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Complete || res.Truncated || len(res.Items) != 25 {
		t.Errorf("complete=%v truncated=%v items=%d", res.Complete, res.Truncated, len(res.Items))
	}
	if res.TotalKnown != 25 {
		t.Errorf("totalKnown = %d, want 25", res.TotalKnown)
	}
}

func TestListingCapThenResumeNoGapsNoDuplicates(t *testing.T) {
	src := newPagedSource(25, 10)
	res, err := Listing(context.Background(), "clusters", src.fetch, 10, nil, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 10 || !res.Truncated || res.Complete {
		t.Fatalf("items=%d truncated=%v complete=%v, want 10 truncated", len(res.Items), res.Truncated, res.Complete)
	}

	cursor, err := DecodeListingCursor(res.Cursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	rest, err := Listing(context.Background(), "clusters", src.fetch, 100, &cursor, fastOpts())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(rest.Items) != 15 || !rest.Complete {
		t.Fatalf("resumed items=%d complete=%v, want 15 complete", len(rest.Items), rest.Complete)
	}

	seen := map[string]bool{}
	for _, item := range append(append([]map[string]any{}, res.Items...), rest.Items...) {
		id := item["id"].(string)
		if seen[id] {
			t.Fatalf("duplicate item %s", id)
		}
		seen[id] = true
	}
	if len(seen) != 25 {
		t.Errorf("reconstructed %d distinct items, want 25", len(seen))
	}
}

func TestListingStaleToken(t *testing.T) {
	src := newPagedSource(5, 10)
	cursor := ListingCursor{ResourceKind: "clusters", PageToken: "t9999"}
	_, err := Listing(context.Background(), "clusters", src.fetch, 10, &cursor, fastOpts())
	var ce *retry.ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != retry.KindStaleCursor {
		t.Fatalf("err = %v, want stale_cursor", err)
	}
}

func TestListingBestEffort(t *testing.T) {
	src := newPagedSource(25, 10)
	src.failOn = "t10"
	src.failErr = serverErr{}
	opts := fastOpts()
	opts.BestEffort = true
	res, err := Listing(context.Background(), "jobs", src.fetch, 100, nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 10 {
		t.Errorf("items = %d, want 10", len(res.Items))
	}
	if res.Err == nil || res.Err.Kind != retry.KindServerError {
		t.Errorf("attached err = %v, want server_error", res.Err)
	}
}

func TestClampListingLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 100},
		{-5, 100},
		{42, 42},
		{1000, 1000},
		{5000, 1000},
	}
	for _, tt := range tests {
		if got := ClampListingLimit(tt.in); got != tt.want {
			t.Errorf("ClampListingLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	sc := StatementCursor{StatementID: "abc", NextChunkIndex: 3, RowOffset: 17, TotalChunks: 9}
	got, err := DecodeStatementCursor(sc.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != sc {
		t.Errorf("round trip = %+v, want %+v", got, sc)
	}

	lc := ListingCursor{ResourceKind: "tables", PageToken: "tok"}
	gotL, err := DecodeListingCursor(lc.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotL != lc {
		t.Errorf("round trip = %+v, want %+v", gotL, lc)
	}

	if _, err := DecodeStatementCursor("list:abc"); err == nil {
		t.Error("statement decoder accepted a listing cursor")
	}
	if _, err := DecodeListingCursor("garbage"); err == nil {
		t.Error("listing decoder accepted garbage")
	}
}
