package tools

import (
	"context"
	"encoding/json"
)

func init() {
	MustRegisterTool("list_repos", NewListRepos)
	MustRegisterTool("get_repo", NewGetRepo)
	MustRegisterTool("create_repo", NewCreateRepo)
	MustRegisterTool("update_repo", NewUpdateRepo)
	MustRegisterTool("delete_repo", NewDeleteRepo)
}

func NewListRepos() Tool {
	return NewFuncTool(
		"list_repos",
		"List Git repos linked to the workspace.",
		listSchema(nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](raw, "list_repos")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return runListing(ctx, c, "repos", "/api/2.0/repos", "repos", nil, in)
		},
	)
}

func NewGetRepo() Tool {
	type args struct {
		RepoID string `json:"repo_id"`
	}
	return NewFuncTool(
		"get_repo",
		"Get details of a repo, including its current branch and commit.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_id": map[string]any{"type": "string", "description": "The repo ID"},
			},
			"required": []string{"repo_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_repo")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/repos/"+in.RepoID, nil, &out)
				return out, err
			})
		},
	)
}

func NewCreateRepo() Tool {
	type args struct {
		URL      string `json:"url"`
		Provider string `json:"provider"`
		Path     string `json:"path,omitempty"`
	}
	return NewFuncTool(
		"create_repo",
		"Clone a Git repository into the workspace.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Git repository URL"},
				"provider": map[string]any{
					"type":        "string",
					"description": "Git provider, e.g. gitHub, gitLab, azureDevOpsServices",
				},
				"path": map[string]any{"type": "string", "description": "Workspace path for the repo, e.g. /Repos/user/name"},
			},
			"required": []string{"url", "provider"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "create_repo")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"url": in.URL, "provider": in.Provider}
			if in.Path != "" {
				body["path"] = in.Path
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Post(ctx, "/api/2.0/repos", body, &out)
				return out, err
			})
		},
	)
}

func NewDeleteRepo() Tool {
	type args struct {
		RepoID string `json:"repo_id"`
	}
	return NewFuncTool(
		"delete_repo",
		"Delete a repo from the workspace.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_id": map[string]any{"type": "string", "description": "The repo ID"},
			},
			"required": []string{"repo_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_repo")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Delete(ctx, "/api/2.0/repos/"+in.RepoID, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"repo_id": in.RepoID, "status": "deleted"}, nil
		},
	)
}

func NewUpdateRepo() Tool {
	type args struct {
		RepoID string `json:"repo_id"`
		Branch string `json:"branch,omitempty"`
		Tag    string `json:"tag,omitempty"`
	}
	return NewFuncTool(
		"update_repo",
		"Check out a branch or tag in a repo.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo_id": map[string]any{"type": "string", "description": "The repo ID"},
				"branch":  map[string]any{"type": "string", "description": "Branch to check out"},
				"tag":     map[string]any{"type": "string", "description": "Tag to check out"},
			},
			"required": []string{"repo_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "update_repo")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{}
			if in.Branch != "" {
				body["branch"] = in.Branch
			}
			if in.Tag != "" {
				body["tag"] = in.Tag
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Patch(ctx, "/api/2.0/repos/"+in.RepoID, body, &out)
				return out, err
			})
		},
	)
}
