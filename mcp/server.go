package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dbxmcp/dbxmcp/metrics"
	"github.com/dbxmcp/dbxmcp/observe"
	"github.com/dbxmcp/dbxmcp/retry"
	"github.com/dbxmcp/dbxmcp/state"
	"github.com/dbxmcp/dbxmcp/tools"
	"github.com/dbxmcp/dbxmcp/types"
)

const (
	serverName      = "dbxmcp"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"

	maxLineBytes = 16 * 1024 * 1024
)

// Server speaks JSON-RPC 2.0 over newline-delimited messages, the way MCP
// stdio transports do.
type Server struct {
	in        io.Reader
	out       io.Writer
	logger    *slog.Logger
	selection []string
	sink      observe.Sink
	cursors   state.Store
	tracer    trace.Tracer

	writeMu sync.Mutex
}

type Option func(*Server)

// WithSelection restricts the served catalog to the named tools and
// "@bundle" expansions.
func WithSelection(selection []string) Option {
	return func(s *Server) {
		s.selection = selection
	}
}

func WithSink(sink observe.Sink) Option {
	return func(s *Server) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithCursorStore persists resume cursors produced by truncated results and
// exposes them to the cursor tools for later retrieval.
func WithCursorStore(store state.Store) Option {
	return func(s *Server) {
		s.cursors = store
		tools.SetCursorStore(store)
	}
}

func NewServer(in io.Reader, out io.Writer, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		in:     in,
		out:    out,
		logger: logger,
		sink:   observe.NoopSink{},
		tracer: otel.Tracer("github.com/dbxmcp/dbxmcp/mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Serve reads requests until the input closes or the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	s.logger.Info("server started", "tools", len(tools.ToolNames()))

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			})
			continue
		}

		if strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		resp := s.dispatch(ctx, req)
		s.writeResponse(resp)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (s *Server) writeResponse(resp jsonRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "err", err)
		return
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		s.logger.Error("write response", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	base := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		base.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
		}
		return base

	case "ping":
		base.Result = map[string]any{}
		return base

	case "tools/list":
		defs, err := tools.Definitions(s.selection)
		if err != nil {
			base.Error = &rpcError{Code: -32603, Message: err.Error()}
			return base
		}
		base.Result = map[string]any{"tools": defs}
		return base

	case "tools/call":
		return s.handleToolCall(ctx, req, base)

	default:
		base.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return base
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req jsonRPCRequest, base jsonRPCResponse) jsonRPCResponse {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		base.Error = &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		return base
	}
	if params.Name == "" {
		base.Error = &rpcError{Code: -32602, Message: "tool name is required"}
		return base
	}

	invocationID := uuid.NewString()
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "tools/call",
		trace.WithAttributes(
			attribute.String("tool.name", params.Name),
			attribute.String("invocation.id", invocationID),
		))
	defer span.End()

	_ = s.sink.Emit(ctx, observe.Event{
		ID:        invocationID,
		Tool:      params.Name,
		Status:    observe.StatusStarted,
		Timestamp: started.UTC(),
	})

	raw, err := tools.ExecuteTool(ctx, params.Name, params.Arguments)
	duration := time.Since(started)
	metrics.InvocationDuration.WithLabelValues(params.Name).Observe(duration.Seconds())

	if err != nil {
		ce := retry.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ce.Kind))
		metrics.InvocationsTotal.WithLabelValues(params.Name, "error").Inc()
		metrics.ErrorsTotal.WithLabelValues(params.Name, string(ce.Kind)).Inc()
		_ = s.sink.Emit(ctx, observe.Event{
			ID:         invocationID,
			Tool:       params.Name,
			Status:     observe.StatusFailed,
			ErrorKind:  string(ce.Kind),
			Message:    ce.Message,
			DurationMs: duration.Milliseconds(),
			Attempts:   len(ce.History),
		})

		base.Result = errorCallResult(ce)
		return base
	}

	metrics.InvocationsTotal.WithLabelValues(params.Name, "ok").Inc()
	_ = s.sink.Emit(ctx, observe.Event{
		ID:         invocationID,
		Tool:       params.Name,
		Status:     observe.StatusCompleted,
		DurationMs: duration.Milliseconds(),
	})
	s.persistCursors(ctx, invocationID, params.Name, raw)

	text, err := renderResult(raw)
	if err != nil {
		base.Error = &rpcError{Code: -32603, Message: "serialize result: " + err.Error()}
		return base
	}
	base.Result = types.CallToolResult{Content: []types.TextContent{types.NewTextContent(text)}}
	return base
}

// errorCallResult renders a classified failure as an in-band tool error so
// the caller sees structured detail instead of a bare protocol fault.
func errorCallResult(ce *retry.ClassifiedError) types.CallToolResult {
	detail := types.ErrorDetail{
		Kind:       string(ce.Kind),
		Message:    ce.Message,
		HTTPStatus: ce.HTTPStatus,
		Guidance:   ce.Guidance(),
	}
	for _, a := range ce.History {
		attempt := types.RetryAttempt{
			Attempt: a.Number,
			DelayMs: a.Delay.Milliseconds(),
		}
		if a.Err != nil {
			attempt.Kind = string(a.Err.Kind)
			attempt.Message = a.Err.Message
		}
		detail.RetryHistory = append(detail.RetryHistory, attempt)
	}

	text, err := renderResult(map[string]any{"error": detail})
	if err != nil {
		text = ce.Error()
	}
	return types.CallToolResult{
		Content: []types.TextContent{types.NewTextContent(text)},
		IsError: true,
	}
}

func renderResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// persistCursors stores any resume cursor found in the result so a later
// session can continue a truncated assembly.
func (s *Server) persistCursors(ctx context.Context, invocationID, tool string, raw any) {
	if s.cursors == nil {
		return
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return
	}
	cursor := findCursor(m)
	if cursor == "" {
		return
	}
	err := s.cursors.SaveCursor(ctx, state.CursorRecord{
		Handle: invocationID,
		Tool:   tool,
		Cursor: cursor,
	})
	if err != nil {
		s.logger.Warn("persist resume cursor", "tool", tool, "err", err)
	}
}

func findCursor(m map[string]any) string {
	for _, key := range []string{"resume_cursor", "next_page_token"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			if cursor := findCursor(nested); cursor != "" {
				return cursor
			}
		}
	}
	return ""
}
