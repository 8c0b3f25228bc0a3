package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dbxmcp/dbxmcp/assemble"
	"github.com/dbxmcp/dbxmcp/dbx"
	"github.com/dbxmcp/dbxmcp/metrics"
	"github.com/dbxmcp/dbxmcp/retry"
)

func init() {
	MustRegisterTool("execute_statement", NewExecuteStatement)
	MustRegisterTool("get_statement", NewGetStatement)
	MustRegisterTool("fetch_statement_result", NewFetchStatementResult)
	MustRegisterTool("cancel_statement_execution", NewCancelStatementExecution)
	MustRegisterTool("execute_statements_batch", NewExecuteStatementsBatch)
}

// batchRowCap bounds per-statement rows in batch mode; individual statements
// use the assembler defaults.
const batchRowCap = 100

type executeStatementArgs struct {
	WarehouseID string `json:"warehouse_id" jsonschema:"description=The SQL warehouse ID to execute the statement on"`
	Statement   string `json:"statement" jsonschema:"description=The SQL statement to execute"`
	Catalog     string `json:"catalog,omitempty" jsonschema:"description=The catalog to use"`
	Schema      string `json:"schema,omitempty" jsonschema:"description=The schema to use"`
	WaitTimeout string `json:"wait_timeout,omitempty" jsonschema:"description=Time to wait for results (e.g. '30s'). Use '0s' for async execution. Default is '10s'"`
	RowLimit    int64  `json:"row_limit,omitempty" jsonschema:"description=Maximum number of rows the warehouse should produce"`
	MaxRows     int    `json:"max_rows,omitempty" jsonschema:"description=Cap on rows assembled into this response; a truncated response carries a resume cursor"`
	MaxBytes    int64  `json:"max_bytes,omitempty" jsonschema:"description=Cap on result bytes assembled into this response"`
	BestEffort  bool   `json:"best_effort,omitempty" jsonschema:"description=Return rows fetched so far with the failure attached instead of discarding them"`
}

func NewExecuteStatement() Tool {
	return NewFuncTool(
		"execute_statement",
		"Execute a SQL statement on a SQL warehouse and return results.",
		schemaFor[executeStatementArgs](),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[executeStatementArgs](args, "execute_statement")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return executeOneStatement(ctx, c, in)
		},
	)
}

func NewGetStatement() Tool {
	type getArgs struct {
		StatementID string `json:"statement_id" jsonschema:"description=The statement ID returned from execute_statement"`
		MaxRows     int    `json:"max_rows,omitempty" jsonschema:"description=Cap on rows assembled into this response"`
		MaxBytes    int64  `json:"max_bytes,omitempty" jsonschema:"description=Cap on result bytes assembled into this response"`
		BestEffort  bool   `json:"best_effort,omitempty" jsonschema:"description=Return rows fetched so far with the failure attached instead of discarding them"`
	}
	return NewFuncTool(
		"get_statement",
		"Get the status and results of a SQL statement execution.",
		schemaFor[getArgs](),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[getArgs](args, "get_statement")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			resp, err := callAPI(ctx, func(ctx context.Context) (*dbx.StatementResponse, error) {
				return c.GetStatement(ctx, in.StatementID)
			})
			if err != nil {
				return nil, err
			}
			return shapeStatementResponse(ctx, c, resp, assemble.Limits{MaxItems: in.MaxRows, MaxBytes: in.MaxBytes}, in.BestEffort)
		},
	)
}

func NewFetchStatementResult() Tool {
	type fetchArgs struct {
		ResumeCursor string `json:"resume_cursor,omitempty" jsonschema:"description=The cursor returned by a truncated statement result"`
		InvocationID string `json:"invocation_id,omitempty" jsonschema:"description=Look the cursor up from the store by the invocation that produced the truncated result"`
		MaxRows      int    `json:"max_rows,omitempty" jsonschema:"description=Cap on rows assembled into this response"`
		MaxBytes     int64  `json:"max_bytes,omitempty" jsonschema:"description=Cap on result bytes assembled into this response"`
	}
	return NewFuncTool(
		"fetch_statement_result",
		"Continue fetching rows from a truncated statement result using its resume cursor, or an invocation ID whose cursor was persisted.",
		schemaFor[fetchArgs](),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[fetchArgs](args, "fetch_statement_result")
			if err != nil {
				return nil, err
			}
			raw := in.ResumeCursor
			if raw == "" && in.InvocationID != "" {
				rec, err := loadCursorRecord(ctx, in.InvocationID)
				if err != nil {
					return nil, err
				}
				raw = rec.Cursor
			}
			if raw == "" {
				return nil, fmt.Errorf("fetch_statement_result: resume_cursor or invocation_id is required")
			}
			cursor, err := assemble.DecodeStatementCursor(raw)
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			res, err := assemble.ResumeStatement(ctx, c, cursor,
				assemble.Limits{MaxItems: in.MaxRows, MaxBytes: in.MaxBytes},
				assemble.Options{Policy: apiPolicy})
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"statement_id": cursor.StatementID,
				"result":       shapeAssembled(res),
			}
			return out, nil
		},
	)
}

func NewCancelStatementExecution() Tool {
	type cancelArgs struct {
		StatementID string `json:"statement_id" jsonschema:"description=The statement ID to cancel"`
	}
	return NewFuncTool(
		"cancel_statement_execution",
		"Cancel an executing SQL statement.",
		schemaFor[cancelArgs](),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[cancelArgs](args, "cancel_statement_execution")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.CancelStatement(ctx, in.StatementID)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "cancelled", "statement_id": in.StatementID}, nil
		},
	)
}

type batchArgs struct {
	WarehouseID string   `json:"warehouse_id" jsonschema:"description=The SQL warehouse ID to execute statements on"`
	Statements  []string `json:"statements" jsonschema:"description=Array of SQL statements to execute sequentially"`
	Catalog     string   `json:"catalog,omitempty" jsonschema:"description=The catalog to use"`
	Schema      string   `json:"schema,omitempty" jsonschema:"description=The schema to use"`
	WaitTimeout string   `json:"wait_timeout,omitempty" jsonschema:"description=Time to wait for results per statement. Default is '10s'"`
	RowLimit    int64    `json:"row_limit,omitempty" jsonschema:"description=Maximum number of rows to return per statement"`
}

func NewExecuteStatementsBatch() Tool {
	return NewFuncTool(
		"execute_statements_batch",
		"Execute multiple SQL statements sequentially in a single operation (batch execution).",
		schemaFor[batchArgs](),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[batchArgs](args, "execute_statements_batch")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}

			results := make([]map[string]any, 0, len(in.Statements))
			succeeded := 0
			for idx, statement := range in.Statements {
				one, err := executeOneStatement(ctx, c, executeStatementArgs{
					WarehouseID: in.WarehouseID,
					Statement:   statement,
					Catalog:     in.Catalog,
					Schema:      in.Schema,
					WaitTimeout: in.WaitTimeout,
					RowLimit:    in.RowLimit,
					MaxRows:     batchRowCap,
				})
				if err != nil {
					// Later statements may not depend on this one; keep going.
					results = append(results, map[string]any{
						"statement_index": idx,
						"statement":       statement,
						"status":          "failed",
						"error":           err.Error(),
					})
					continue
				}
				one["statement_index"] = idx
				one["statement"] = statement
				one["batch_status"] = "success"
				succeeded++
				results = append(results, one)
			}

			return map[string]any{
				"warehouse_id": in.WarehouseID,
				"total":        len(in.Statements),
				"successful":   succeeded,
				"failed":       len(in.Statements) - succeeded,
				"results":      results,
			}, nil
		},
	)
}

func executeOneStatement(ctx context.Context, c *dbx.Client, in executeStatementArgs) (map[string]any, error) {
	waitTimeout := in.WaitTimeout
	if waitTimeout == "" {
		waitTimeout = "10s"
	}
	resp, err := callAPI(ctx, func(ctx context.Context) (*dbx.StatementResponse, error) {
		return c.ExecuteStatement(ctx, dbx.ExecuteStatementRequest{
			Statement:   in.Statement,
			WarehouseID: in.WarehouseID,
			Catalog:     in.Catalog,
			Schema:      in.Schema,
			WaitTimeout: waitTimeout,
			RowLimit:    in.RowLimit,
		})
	})
	if err != nil {
		return nil, err
	}
	return shapeStatementResponse(ctx, c, resp, assemble.Limits{MaxItems: in.MaxRows, MaxBytes: in.MaxBytes}, in.BestEffort)
}

// shapeStatementResponse reshapes a statement response, walking any extra
// chunks through the assembler instead of inlining only the first chunk.
func shapeStatementResponse(ctx context.Context, fetcher assemble.ChunkFetcher, resp *dbx.StatementResponse, limits assemble.Limits, bestEffort bool) (map[string]any, error) {
	out := map[string]any{
		"statement_id": resp.StatementID,
	}
	if resp.Status != nil {
		out["status"] = resp.Status.State
	}
	if resp.Result == nil {
		return out, nil
	}

	first := assemble.FirstResult{
		StatementID: resp.StatementID,
		Rows:        resp.Result.DataArray,
	}
	if resp.Manifest != nil {
		first.TotalChunkCount = resp.Manifest.TotalChunkCount
		first.TotalRowCount = resp.Manifest.TotalRowCount
	}
	if first.TotalChunkCount < 1 {
		first.TotalChunkCount = 1
	}

	res, err := assemble.Statement(ctx, fetcher, first, limits, assemble.Options{Policy: apiPolicy, BestEffort: bestEffort})
	if err != nil {
		return nil, err
	}
	out["result"] = shapeAssembled(res)
	if resp.Manifest != nil {
		out["manifest"] = map[string]any{
			"schema":            resp.Manifest.Schema,
			"total_row_count":   resp.Manifest.TotalRowCount,
			"total_chunk_count": resp.Manifest.TotalChunkCount,
		}
	}
	return out, nil
}

func shapeAssembled(res *assemble.Result[[]any]) map[string]any {
	metrics.AssembledRows.Add(float64(len(res.Items)))
	shaped := map[string]any{
		"row_count":  len(res.Items),
		"data_array": res.Items,
		"truncated":  res.Truncated,
	}
	if res.Cursor != "" {
		shaped["resume_cursor"] = res.Cursor
	}
	if res.Err != nil {
		shaped["error"] = errorDetail(res.Err, nil)
		shaped["failed_at_chunk"] = res.FailedAt
	}
	return shaped
}

func errorDetail(ce *retry.ClassifiedError, history retry.History) map[string]any {
	detail := map[string]any{
		"kind":    string(ce.Kind),
		"message": ce.Message,
	}
	if ce.HTTPStatus > 0 {
		detail["httpStatus"] = ce.HTTPStatus
	}
	if g := ce.Guidance(); g != "" {
		detail["guidance"] = g
	}
	if history == nil {
		history = ce.History
	}
	if len(history) > 0 {
		attempts := make([]map[string]any, 0, len(history))
		for _, a := range history {
			entry := map[string]any{
				"attempt": a.Number,
				"delayMs": a.Delay.Milliseconds(),
			}
			if a.Err != nil {
				entry["kind"] = string(a.Err.Kind)
				entry["message"] = a.Err.Message
			}
			attempts = append(attempts, entry)
		}
		detail["retryHistory"] = attempts
	}
	return detail
}
