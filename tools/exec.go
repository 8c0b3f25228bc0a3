package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dbxmcp/dbxmcp/assemble"
	"github.com/dbxmcp/dbxmcp/dbx"
	"github.com/dbxmcp/dbxmcp/metrics"
	"github.com/dbxmcp/dbxmcp/retry"
)

// Client accessors are variables so tests can point the tools at a fake.
var (
	workspaceClient = dbx.Workspace
	accountClient   = dbx.Account
)

var apiPolicy = retry.DefaultPolicy()

// callAPI wraps one remote call in the retry coordinator.
func callAPI[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	v, history, err := retry.DoValue(ctx, apiPolicy, op)
	for _, a := range history {
		if a.Err != nil {
			metrics.RetryAttemptsTotal.WithLabelValues(string(a.Err.Kind)).Inc()
		}
	}
	return v, err
}

// listArgs is the common pagination surface of every list_* tool.
type listArgs struct {
	MaxResults int    `json:"max_results,omitempty"`
	PageToken  string `json:"page_token,omitempty"`
}

// listProperties returns the schema fragment shared by list_* tools.
func listProperties(extra map[string]any) map[string]any {
	props := map[string]any{
		"max_results": map[string]any{
			"type":        "integer",
			"description": "Maximum number of items to return. Defaults to 100, capped at 1000.",
			"minimum":     1,
			"maximum":     assemble.ListingMaxItems,
		},
		"page_token": map[string]any{
			"type":        "string",
			"description": "Opaque cursor from a previous truncated call to resume the listing.",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// listSchema builds the full input schema for a list_* tool.
func listSchema(extra map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": listProperties(extra),
	}
}

// runListing walks a paged list endpoint through the assembler and reshapes
// the outcome into the tool's response map.
func runListing(ctx context.Context, c *dbx.Client, kind, path, itemsKey string, base url.Values, args listArgs) (map[string]any, error) {
	return runPagedListing(ctx, kind, itemsKey, c.Pager(path, itemsKey, base), args)
}

// runPagedListing is runListing for endpoints whose page function is not the
// standard token pager.
func runPagedListing(ctx context.Context, kind, itemsKey string, fn assemble.PageFunc, args listArgs) (map[string]any, error) {
	var resume *assemble.ListingCursor
	if args.PageToken != "" {
		cursor, err := assemble.DecodeListingCursor(args.PageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page_token: %w", err)
		}
		resume = &cursor
	}

	res, err := assemble.Listing(ctx, kind, fn, args.MaxResults, resume, assemble.Options{Policy: apiPolicy})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		itemsKey:    res.Items,
		"count":     len(res.Items),
		"truncated": res.Truncated,
	}
	if res.TotalKnown > 0 {
		out["total_count"] = res.TotalKnown
	}
	if res.Cursor != "" {
		out["next_page_token"] = res.Cursor
	}
	return out, nil
}

func decodeArgs[T any](args json.RawMessage, name string) (T, error) {
	var in T
	if len(args) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return in, fmt.Errorf("invalid %s args: %w", name, err)
	}
	return in, nil
}
