package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

func init() {
	MustRegisterTool("list_dbfs_files", NewListDBFSFiles)
	MustRegisterTool("get_dbfs_file_status", NewGetDBFSFileStatus)
	MustRegisterTool("read_dbfs_file", NewReadDBFSFile)
	MustRegisterTool("delete_dbfs_path", NewDeleteDBFSPath)
}

func NewListDBFSFiles() Tool {
	return NewFuncTool(
		"list_dbfs_files",
		"List files and directories at a DBFS path.",
		workspacePathSchema("The DBFS path to list (e.g. dbfs:/tmp)", nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[workspacePathArgs](raw, "list_dbfs_files")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Get(ctx, "/api/2.0/dbfs/list", url.Values{"path": {in.Path}}, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			files, _ := out["files"].([]any)
			return map[string]any{
				"path":  in.Path,
				"files": files,
				"count": len(files),
			}, nil
		},
	)
}

func NewGetDBFSFileStatus() Tool {
	return NewFuncTool(
		"get_dbfs_file_status",
		"Get the status of a DBFS file or directory.",
		workspacePathSchema("The DBFS path", nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[workspacePathArgs](raw, "get_dbfs_file_status")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/dbfs/get-status", url.Values{"path": {in.Path}}, &out)
				return out, err
			})
		},
	)
}

func NewReadDBFSFile() Tool {
	type args struct {
		Path   string `json:"path"`
		Offset int64  `json:"offset,omitempty"`
		Length int64  `json:"length,omitempty"`
	}
	return NewFuncTool(
		"read_dbfs_file",
		"Read a range of a DBFS file. Data is returned base64-encoded, at most 1 MiB per call.",
		workspacePathSchema("The DBFS file path to read", map[string]any{
			"offset": map[string]any{
				"type":        "integer",
				"description": "Byte offset to read from. Defaults to 0.",
			},
			"length": map[string]any{
				"type":        "integer",
				"description": "Number of bytes to read. Defaults to 1048576 (1 MiB), which is also the maximum.",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "read_dbfs_file")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			length := in.Length
			if length <= 0 || length > 1<<20 {
				length = 1 << 20
			}
			q := url.Values{}
			q.Set("path", in.Path)
			q.Set("offset", strconv.FormatInt(in.Offset, 10))
			q.Set("length", strconv.FormatInt(length, 10))
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/dbfs/read", q, &out)
				return out, err
			})
		},
	)
}

func NewDeleteDBFSPath() Tool {
	type args struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive,omitempty"`
	}
	return NewFuncTool(
		"delete_dbfs_path",
		"Delete a DBFS file or directory.",
		workspacePathSchema("The DBFS path to delete", map[string]any{
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Delete directories and their contents recursively",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_dbfs_path")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"path": in.Path, "recursive": in.Recursive}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/dbfs/delete", body, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "deleted", "path": in.Path}, nil
		},
	)
}
