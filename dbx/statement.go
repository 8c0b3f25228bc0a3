package dbx

import (
	"context"
	"fmt"
	"net/http"
)

const statementsPath = "/api/2.0/sql/statements"

// ExecuteStatementRequest mirrors the statement execution API request body.
type ExecuteStatementRequest struct {
	Statement   string `json:"statement"`
	WarehouseID string `json:"warehouse_id"`
	Catalog     string `json:"catalog,omitempty"`
	Schema      string `json:"schema,omitempty"`
	WaitTimeout string `json:"wait_timeout,omitempty"`
	RowLimit    int64  `json:"row_limit,omitempty"`
}

type StatementStatus struct {
	State string `json:"state"`
}

type ResultManifest struct {
	Schema          map[string]any `json:"schema,omitempty"`
	TotalChunkCount int            `json:"total_chunk_count"`
	TotalRowCount   int64          `json:"total_row_count"`
}

type ResultChunk struct {
	ChunkIndex int     `json:"chunk_index"`
	RowOffset  int64   `json:"row_offset"`
	RowCount   int64   `json:"row_count"`
	DataArray  [][]any `json:"data_array"`
}

type StatementResponse struct {
	StatementID string           `json:"statement_id"`
	Status      *StatementStatus `json:"status,omitempty"`
	Manifest    *ResultManifest  `json:"manifest,omitempty"`
	Result      *ResultChunk     `json:"result,omitempty"`
}

func (c *Client) ExecuteStatement(ctx context.Context, req ExecuteStatementRequest) (*StatementResponse, error) {
	var out StatementResponse
	if err := c.Post(ctx, statementsPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStatement(ctx context.Context, statementID string) (*StatementResponse, error) {
	var out StatementResponse
	if err := c.Get(ctx, statementsPath+"/"+statementID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelStatement(ctx context.Context, statementID string) error {
	return c.Do(ctx, http.MethodPost, statementsPath+"/"+statementID+"/cancel", nil, nil, nil)
}

// FetchChunk retrieves one result chunk by index. It satisfies the
// assembler's chunk fetcher contract.
func (c *Client) FetchChunk(ctx context.Context, statementID string, chunkIndex int) ([][]any, error) {
	var out ResultChunk
	path := fmt.Sprintf("%s/%s/result/chunks/%d", statementsPath, statementID, chunkIndex)
	if err := c.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.DataArray, nil
}
