// Package assemble walks paged or chunked remote results in order and
// produces a single bounded result. Fetches go through the retry coordinator;
// caps on item count and byte size bound memory, and a truncated result
// carries a cursor the caller can use to resume.
package assemble

import (
	"context"
	"encoding/json"

	"github.com/dbxmcp/dbxmcp/retry"
)

const (
	// DefaultMaxItems bounds statement assembly when the caller does not say.
	DefaultMaxItems = 1_000_000
	// DefaultMaxBytes bounds accumulated row bytes (256 MiB).
	DefaultMaxBytes = 256 << 20

	// ListingDefaultMaxItems is the per-call default for resource listings.
	ListingDefaultMaxItems = 100
	// ListingMaxItems is the hard ceiling a caller cannot exceed.
	ListingMaxItems = 1000
)

// Limits caps how much one assembly operation may accumulate.
type Limits struct {
	MaxItems int
	MaxBytes int64
}

func (l Limits) normalized() Limits {
	if l.MaxItems <= 0 {
		l.MaxItems = DefaultMaxItems
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	return l
}

// Options tune one assembly operation.
type Options struct {
	Policy retry.Policy
	// BestEffort returns the partial result with the failure attached instead
	// of discarding accumulated items when a fetch fails terminally.
	BestEffort bool
}

// Result accumulates one assembly operation's output. A Result belongs to a
// single operation and is never shared across concurrent calls.
type Result[T any] struct {
	Items      []T
	Cursor     string
	Complete   bool
	Truncated  bool
	TotalKnown int64
	Bytes      int64

	// Set only in best-effort mode when a fetch failed terminally.
	Err      *retry.ClassifiedError
	FailedAt int
}

// ChunkFetcher fetches one chunk of a statement's result set.
type ChunkFetcher interface {
	FetchChunk(ctx context.Context, statementID string, chunkIndex int) ([][]any, error)
}

// FirstResult is the initial statement response: the first chunk plus the
// manifest describing the whole result.
type FirstResult struct {
	StatementID     string
	Rows            [][]any
	TotalChunkCount int
	TotalRowCount   int64
}

// Page is one page of a resource listing.
type Page struct {
	Items         []map[string]any
	NextPageToken string
	TotalKnown    int64
}

// PageFunc fetches one page of a listing. An empty pageToken means the first
// page; pageSize is a hint the remote may ignore.
type PageFunc func(ctx context.Context, pageToken string, pageSize int) (Page, error)

func rowBytes(row []any) int64 {
	b, err := json.Marshal(row)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
