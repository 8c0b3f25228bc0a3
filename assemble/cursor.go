package assemble

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// StatementCursor marks a resumable position in a statement's chunk sequence.
// RowOffset skips rows already consumed from NextChunkIndex when the item cap
// fell mid-chunk.
type StatementCursor struct {
	StatementID    string `json:"statementId"`
	NextChunkIndex int    `json:"nextChunkIndex"`
	RowOffset      int    `json:"rowOffset,omitempty"`
	TotalChunks    int    `json:"totalChunks"`
}

// ListingCursor marks a resumable position in a paged resource listing.
type ListingCursor struct {
	ResourceKind string `json:"resourceKind"`
	PageToken    string `json:"pageToken"`
}

const (
	statementCursorPrefix = "stmt:"
	listingCursorPrefix   = "list:"
)

func (c StatementCursor) Encode() string {
	raw, _ := json.Marshal(c)
	return statementCursorPrefix + base64.RawURLEncoding.EncodeToString(raw)
}

func (c ListingCursor) Encode() string {
	raw, _ := json.Marshal(c)
	return listingCursorPrefix + base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeStatementCursor parses an opaque cursor produced by Encode.
func DecodeStatementCursor(s string) (StatementCursor, error) {
	var c StatementCursor
	body, ok := strings.CutPrefix(s, statementCursorPrefix)
	if !ok {
		return c, fmt.Errorf("not a statement cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if c.StatementID == "" || c.NextChunkIndex < 0 || c.TotalChunks < 1 {
		return c, fmt.Errorf("malformed cursor: missing statement position")
	}
	return c, nil
}

// DecodeListingCursor parses an opaque cursor produced by Encode.
func DecodeListingCursor(s string) (ListingCursor, error) {
	var c ListingCursor
	body, ok := strings.CutPrefix(s, listingCursorPrefix)
	if !ok {
		return c, fmt.Errorf("not a listing cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("malformed cursor: %w", err)
	}
	if c.PageToken == "" {
		return c, fmt.Errorf("malformed cursor: missing page token")
	}
	return c, nil
}
