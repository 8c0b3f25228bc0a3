package state

import "time"

// CursorRecord ties an opaque resume cursor to the invocation that
// produced it.
type CursorRecord struct {
	Handle    string         `json:"handle"`
	Tool      string         `json:"tool"`
	Cursor    string         `json:"cursor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}
