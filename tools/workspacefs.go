package tools

import (
	"context"
	"encoding/json"
	"net/url"
)

func init() {
	MustRegisterTool("list_workspace_objects", NewListWorkspaceObjects)
	MustRegisterTool("get_workspace_object_status", NewGetWorkspaceObjectStatus)
	MustRegisterTool("export_workspace_object", NewExportWorkspaceObject)
	MustRegisterTool("delete_workspace_object", NewDeleteWorkspaceObject)
	MustRegisterTool("mkdirs_workspace", NewMkdirsWorkspace)
}

func workspacePathSchema(desc string, extra map[string]any) map[string]any {
	props := map[string]any{
		"path": map[string]any{"type": "string", "description": desc},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"path"},
	}
}

type workspacePathArgs struct {
	Path string `json:"path"`
}

func NewListWorkspaceObjects() Tool {
	return NewFuncTool(
		"list_workspace_objects",
		"List notebooks, directories, and files at a workspace path.",
		workspacePathSchema("The workspace path to list (e.g. /Users/me)", nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[workspacePathArgs](raw, "list_workspace_objects")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Get(ctx, "/api/2.0/workspace/list", url.Values{"path": {in.Path}}, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			objects, _ := out["objects"].([]any)
			return map[string]any{
				"path":    in.Path,
				"objects": objects,
				"count":   len(objects),
			}, nil
		},
	)
}

func NewGetWorkspaceObjectStatus() Tool {
	return NewFuncTool(
		"get_workspace_object_status",
		"Get the status of a workspace object (type, language, modification time).",
		workspacePathSchema("The workspace object path", nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[workspacePathArgs](raw, "get_workspace_object_status")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/workspace/get-status", url.Values{"path": {in.Path}}, &out)
				return out, err
			})
		},
	)
}

func NewExportWorkspaceObject() Tool {
	type args struct {
		Path   string `json:"path"`
		Format string `json:"format,omitempty"`
	}
	return NewFuncTool(
		"export_workspace_object",
		"Export a notebook or file from the workspace. Content is returned base64-encoded.",
		workspacePathSchema("The workspace object path to export", map[string]any{
			"format": map[string]any{
				"type":        "string",
				"description": "Export format: SOURCE, HTML, JUPYTER, or DBC. Defaults to SOURCE.",
				"enum":        []string{"SOURCE", "HTML", "JUPYTER", "DBC"},
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "export_workspace_object")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			format := in.Format
			if format == "" {
				format = "SOURCE"
			}
			q := url.Values{"path": {in.Path}, "format": {format}}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/workspace/export", q, &out)
				return out, err
			})
		},
	)
}

func NewDeleteWorkspaceObject() Tool {
	type args struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive,omitempty"`
	}
	return NewFuncTool(
		"delete_workspace_object",
		"Delete a workspace object, optionally recursively.",
		workspacePathSchema("The workspace object path to delete", map[string]any{
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Delete directories and their contents recursively",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_workspace_object")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"path": in.Path, "recursive": in.Recursive}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/workspace/delete", body, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "deleted", "path": in.Path}, nil
		},
	)
}

func NewMkdirsWorkspace() Tool {
	return NewFuncTool(
		"mkdirs_workspace",
		"Create a workspace directory, including any missing parents.",
		workspacePathSchema("The directory path to create", nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[workspacePathArgs](raw, "mkdirs_workspace")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/workspace/mkdirs", map[string]any{"path": in.Path}, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "created", "path": in.Path}, nil
		},
	)
}
