package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/dbxmcp/dbxmcp/state"
	"github.com/dbxmcp/dbxmcp/state/memory"
	"github.com/dbxmcp/dbxmcp/tools"
)

var registerEchoOnce sync.Once

// echo_value is registered once for the whole test package; it returns its
// arguments plus a canned resume cursor.
func registerEchoTool(t *testing.T) {
	t.Helper()
	registerEchoOnce.Do(func() {
		tools.MustRegisterTool("echo_value", func() tools.Tool {
			return tools.NewFuncTool(
				"echo_value",
				"Echo arguments back for tests.",
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value": map[string]any{"type": "string"},
					},
				},
				func(_ context.Context, args json.RawMessage) (any, error) {
					var in struct {
						Value string `json:"value"`
					}
					_ = json.Unmarshal(args, &in)
					return map[string]any{
						"value":         in.Value,
						"resume_cursor": "list:echo-token",
					}, nil
				},
			)
		})
	})
}

func runServer(t *testing.T, input string, opts ...Option) []jsonRPCResponse {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(strings.NewReader(input), &out, nil, opts...)
	if err := srv.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var responses []jsonRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func callResult(t *testing.T, resp jsonRPCResponse) (text string, isError bool) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal call result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected one text content block, got %+v", result.Content)
	}
	return result.Content[0].Text, result.IsError
}

func TestInitializeHandshake(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	result := responses[0].Result.(map[string]any)
	if result["protocolVersion"] != protocolVersion {
		t.Fatalf("protocolVersion = %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != serverName {
		t.Fatalf("serverInfo.name = %v", info["name"])
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n"
	responses := runServer(t, input)
	if len(responses) != 1 {
		t.Fatalf("notifications must not be answered, got %d responses", len(responses))
	}
}

func TestParseErrorResponse(t *testing.T) {
	responses := runServer(t, "not json\n")
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != -32700 {
		t.Fatalf("expected parse error, got %+v", responses)
	}
}

func TestMethodNotFound(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`+"\n")
	if responses[0].Error == nil || responses[0].Error.Code != -32601 {
		t.Fatalf("expected method-not-found, got %+v", responses[0])
	}
}

func TestToolsListHonorsSelection(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n",
		WithSelection([]string{"@compute"}))
	result := responses[0].Result.(map[string]any)
	defs := result["tools"].([]any)
	if len(defs) != 5 {
		t.Fatalf("expected the 5 compute tools, got %d", len(defs))
	}
	for _, d := range defs {
		name := d.(map[string]any)["name"].(string)
		if !strings.Contains(name, "cluster") {
			t.Fatalf("unexpected tool in selection: %s", name)
		}
	}
}

func TestToolsCallRendersIndentedJSON(t *testing.T) {
	registerEchoTool(t)
	input := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo_value","arguments":{"value":"hi"}}}` + "\n"
	responses := runServer(t, input)

	text, isError := callResult(t, responses[0])
	if isError {
		t.Fatalf("unexpected error result: %s", text)
	}
	if !strings.Contains(text, "\n  \"value\": \"hi\"") {
		t.Fatalf("result should be indented JSON, got %q", text)
	}
}

func TestToolsCallPersistsResumeCursor(t *testing.T) {
	registerEchoTool(t)
	store := memory.New()
	input := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo_value","arguments":{}}}` + "\n"
	runServer(t, input, WithCursorStore(store))

	records, err := store.ListCursors(context.Background(), state.ListCursorsQuery{Tool: "echo_value"})
	if err != nil {
		t.Fatalf("ListCursors: %v", err)
	}
	if len(records) != 1 || records[0].Cursor != "list:echo-token" {
		t.Fatalf("cursor not persisted: %+v", records)
	}
}

func TestToolsCallUnknownToolIsInBandError(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}` + "\n"
	responses := runServer(t, input)

	if responses[0].Error != nil {
		t.Fatalf("tool failures must be in-band results, got protocol error %+v", responses[0].Error)
	}
	text, isError := callResult(t, responses[0])
	if !isError {
		t.Fatalf("expected isError result")
	}
	var payload struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("error text should be JSON: %v", err)
	}
	if payload.Error.Kind != "unknown" {
		t.Fatalf("kind = %q", payload.Error.Kind)
	}
	if !strings.Contains(payload.Error.Message, "no_such_tool") {
		t.Fatalf("message should name the tool: %q", payload.Error.Message)
	}
}

func TestToolsCallMissingName(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{}}` + "\n"
	responses := runServer(t, input)
	if responses[0].Error == nil || responses[0].Error.Code != -32602 {
		t.Fatalf("expected invalid-params error, got %+v", responses[0])
	}
}
