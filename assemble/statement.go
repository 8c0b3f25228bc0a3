package assemble

import (
	"context"
	"fmt"

	"github.com/dbxmcp/dbxmcp/retry"
)

// Statement walks every chunk named by the manifest in order, starting from
// the first chunk already in hand, and returns the bounded concatenation.
func Statement(ctx context.Context, fetcher ChunkFetcher, first FirstResult, limits Limits, opts Options) (*Result[[]any], error) {
	walk := stmtWalk{
		fetcher:     fetcher,
		statementID: first.StatementID,
		totalChunks: max(first.TotalChunkCount, 1),
		limits:      limits.normalized(),
		opts:        opts,
	}
	walk.result = &Result[[]any]{TotalKnown: first.TotalRowCount}

	if !walk.append(first.Rows, 0, 0) {
		return walk.result, nil
	}
	if first.TotalChunkCount <= 1 {
		walk.result.Complete = true
		return walk.result, nil
	}
	return walk.run(ctx, 1, 0)
}

// ResumeStatement continues a truncated assembly from the cursor's position.
// A cursor naming a statement that no longer exists fails with a terminal
// stale-cursor error.
func ResumeStatement(ctx context.Context, fetcher ChunkFetcher, cursor StatementCursor, limits Limits, opts Options) (*Result[[]any], error) {
	walk := stmtWalk{
		fetcher:     fetcher,
		statementID: cursor.StatementID,
		totalChunks: cursor.TotalChunks,
		limits:      limits.normalized(),
		opts:        opts,
		resuming:    true,
	}
	walk.result = &Result[[]any]{}
	return walk.run(ctx, cursor.NextChunkIndex, cursor.RowOffset)
}

type stmtWalk struct {
	fetcher     ChunkFetcher
	statementID string
	totalChunks int
	limits      Limits
	opts        Options
	resuming    bool
	result      *Result[[]any]
}

func (w *stmtWalk) run(ctx context.Context, startChunk, rowOffset int) (*Result[[]any], error) {
	for chunkIndex := startChunk; chunkIndex < w.totalChunks; chunkIndex++ {
		rows, _, err := retry.DoValue(ctx, w.opts.Policy, func(ctx context.Context) ([][]any, error) {
			return w.fetcher.FetchChunk(ctx, w.statementID, chunkIndex)
		})
		skip := 0
		if chunkIndex == startChunk {
			skip = rowOffset
		}
		if err != nil {
			return w.fail(chunkIndex, skip, err)
		}
		if skip > len(rows) {
			skip = len(rows)
		}
		if !w.append(rows[skip:], chunkIndex, skip) {
			return w.result, nil
		}
	}
	w.result.Complete = true
	return w.result, nil
}

// append adds rows from one chunk, stopping at the item or byte cap. It
// returns false once the walk must stop; the result then carries the cursor
// for the first row not taken.
func (w *stmtWalk) append(rows [][]any, chunkIndex, baseOffset int) bool {
	for i, row := range rows {
		if len(w.result.Items) >= w.limits.MaxItems {
			w.truncateAt(chunkIndex, baseOffset+i)
			return false
		}
		w.result.Items = append(w.result.Items, row)
		w.result.Bytes += rowBytes(row)
		if w.result.Bytes > w.limits.MaxBytes {
			w.truncateAt(chunkIndex, baseOffset+i+1)
			// The byte cap may land exactly on the final row of the final
			// chunk, in which case nothing remains and the result is whole.
			if chunkIndex == w.totalChunks-1 && i == len(rows)-1 {
				w.result.Truncated = false
				w.result.Cursor = ""
				w.result.Complete = true
			}
			return false
		}
	}
	return true
}

func (w *stmtWalk) truncateAt(chunkIndex, rowOffset int) {
	w.result.Truncated = true
	w.result.Cursor = StatementCursor{
		StatementID:    w.statementID,
		NextChunkIndex: chunkIndex,
		RowOffset:      rowOffset,
		TotalChunks:    w.totalChunks,
	}.Encode()
}

func (w *stmtWalk) fail(chunkIndex, rowOffset int, err error) (*Result[[]any], error) {
	ce := retry.Classify(err)
	if ce.Kind == retry.KindNotFound {
		stale := &retry.ClassifiedError{
			Kind:       retry.KindStaleCursor,
			HTTPStatus: ce.HTTPStatus,
			Message:    fmt.Sprintf("statement %s no longer exists; restart the assembly", w.statementID),
			Cause:      ce,
		}
		return nil, stale
	}
	if w.opts.BestEffort {
		w.truncateAt(chunkIndex, rowOffset)
		w.result.Err = ce
		w.result.FailedAt = chunkIndex
		return w.result, nil
	}
	return nil, ce
}
