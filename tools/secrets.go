package tools

import (
	"context"
	"encoding/json"
	"net/url"
)

func init() {
	MustRegisterTool("list_secret_scopes", NewListSecretScopes)
	MustRegisterTool("list_secrets", NewListSecrets)
	MustRegisterTool("put_secret", NewPutSecret)
	MustRegisterTool("delete_secret", NewDeleteSecret)
}

func NewListSecretScopes() Tool {
	return NewFuncTool(
		"list_secret_scopes",
		"List secret scopes in the workspace.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Get(ctx, "/api/2.0/secrets/scopes/list", nil, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			scopes, _ := out["scopes"].([]any)
			return map[string]any{
				"scopes": scopes,
				"count":  len(scopes),
			}, nil
		},
	)
}

func NewListSecrets() Tool {
	type args struct {
		Scope string `json:"scope"`
	}
	return NewFuncTool(
		"list_secrets",
		"List secret keys in a scope. Secret values are never returned.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scope": map[string]any{"type": "string", "description": "The secret scope name"},
			},
			"required": []string{"scope"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_secrets")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Get(ctx, "/api/2.0/secrets/list", url.Values{"scope": {in.Scope}}, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			secrets, _ := out["secrets"].([]any)
			return map[string]any{
				"scope":   in.Scope,
				"secrets": secrets,
				"count":   len(secrets),
			}, nil
		},
	)
}

func NewPutSecret() Tool {
	type args struct {
		Scope       string `json:"scope"`
		Key         string `json:"key"`
		StringValue string `json:"string_value"`
	}
	return NewFuncTool(
		"put_secret",
		"Create or update a secret in a scope.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scope":        map[string]any{"type": "string", "description": "The secret scope name"},
				"key":          map[string]any{"type": "string", "description": "The secret key"},
				"string_value": map[string]any{"type": "string", "description": "The secret value"},
			},
			"required": []string{"scope", "key", "string_value"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "put_secret")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{
				"scope":        in.Scope,
				"key":          in.Key,
				"string_value": in.StringValue,
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/secrets/put", body, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"scope": in.Scope, "key": in.Key, "status": "written"}, nil
		},
	)
}

func NewDeleteSecret() Tool {
	type args struct {
		Scope string `json:"scope"`
		Key   string `json:"key"`
	}
	return NewFuncTool(
		"delete_secret",
		"Delete a secret from a scope.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scope": map[string]any{"type": "string", "description": "The secret scope name"},
				"key":   map[string]any{"type": "string", "description": "The secret key"},
			},
			"required": []string{"scope", "key"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_secret")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"scope": in.Scope, "key": in.Key}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/secrets/delete", body, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"scope": in.Scope, "key": in.Key, "status": "deleted"}, nil
		},
	)
}
