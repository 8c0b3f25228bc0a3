package types

import "time"

// ToolDefinition describes one remote procedure in the tool catalog.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// TextContent is the single content block shape the server emits.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// CallToolResult is the outward result of one tool invocation.
type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// RetryAttempt is one entry of an exhausted operation's attempt history,
// serialized for the caller.
type RetryAttempt struct {
	Attempt int    `json:"attempt"`
	DelayMs int64  `json:"delayMs"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// ErrorDetail is the outward error schema: kind, human message, actionable
// guidance, and for exhausted retries the full attempt history.
type ErrorDetail struct {
	Kind         string         `json:"kind"`
	Message      string         `json:"message"`
	HTTPStatus   int            `json:"httpStatus,omitempty"`
	Guidance     string         `json:"guidance,omitempty"`
	RetryHistory []RetryAttempt `json:"retryHistory,omitempty"`
}

// Invocation is the per-call metadata recorded for observability.
type Invocation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	IsError    bool      `json:"isError"`
	ErrorKind  string    `json:"errorKind,omitempty"`
}
