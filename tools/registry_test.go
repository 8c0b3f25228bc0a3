package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/dbxmcp/dbxmcp/dbx"
)

func TestBuiltinsRegistered(t *testing.T) {
	names := ToolNames()
	if len(names) == 0 {
		t.Fatalf("expected registered tools")
	}
	for _, want := range []string{"execute_statement", "list_clusters", "list_jobs", "list_catalogs"} {
		if !slices.Contains(names, want) {
			t.Fatalf("expected %s to be registered, got %v", want, names)
		}
	}

	bundleNames := BundleNames()
	for _, want := range []string{"sql", "compute", "workspace", "account"} {
		if !slices.Contains(bundleNames, want) {
			t.Fatalf("expected bundle %s, got %v", want, bundleNames)
		}
	}
}

func TestRegisterToolValidation(t *testing.T) {
	if err := RegisterTool("", func() Tool { return nil }); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := RegisterTool("no_factory", nil); err == nil {
		t.Fatalf("expected error for nil factory")
	}
	if err := RegisterTool("list_clusters", NewListClusters); err == nil {
		t.Fatalf("expected error for duplicate registration")
	}
}

func TestDefinitionsSelection(t *testing.T) {
	all, err := Definitions(nil)
	if err != nil {
		t.Fatalf("Definitions: %v", err)
	}
	if len(all) != len(ToolNames()) {
		t.Fatalf("empty selection should return the full catalog: got %d want %d", len(all), len(ToolNames()))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Fatalf("definitions not sorted: %s before %s", all[i-1].Name, all[i].Name)
		}
	}

	sql, err := Definitions([]string{"@sql"})
	if err != nil {
		t.Fatalf("Definitions(@sql): %v", err)
	}
	for _, d := range sql {
		if !strings.Contains(d.Name, "statement") && !strings.Contains(d.Name, "warehouse") && !strings.Contains(d.Name, "cursor") {
			t.Fatalf("unexpected tool %s in @sql bundle", d.Name)
		}
	}

	if _, err := Definitions([]string{"@no_such_bundle"}); err == nil {
		t.Fatalf("expected error for unknown bundle")
	}
	if _, err := Definitions([]string{"no_such_tool"}); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

func TestExecuteToolRejectsBadInput(t *testing.T) {
	_, err := ExecuteTool(context.Background(), "get_cluster", json.RawMessage(`{"cluster_id": 42}`))
	if err == nil {
		t.Fatalf("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "cluster_id") {
		t.Fatalf("error should name the offending property: %v", err)
	}
}

func TestExecuteToolUnknownTool(t *testing.T) {
	_, err := ExecuteTool(context.Background(), "does_not_exist", nil)
	if err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

// withFakeWorkspace points the tools at an httptest server for the duration
// of one test.
func withFakeWorkspace(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	prev := workspaceClient
	workspaceClient = func() (*dbx.Client, error) {
		return dbx.NewClient(dbx.Config{Host: srv.URL, Token: "test-token"})
	}
	t.Cleanup(func() { workspaceClient = prev })
}

func TestExecuteToolEndToEnd(t *testing.T) {
	withFakeWorkspace(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.1/clusters/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cluster_id"); got != "abc-123" {
			t.Errorf("cluster_id = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"cluster_id": "abc-123", "state": "RUNNING"})
	}))

	out, err := ExecuteTool(context.Background(), "get_cluster", json.RawMessage(`{"cluster_id":"abc-123"}`))
	if err != nil {
		t.Fatalf("ExecuteTool: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if m["state"] != "RUNNING" {
		t.Fatalf("state = %v", m["state"])
	}
}
