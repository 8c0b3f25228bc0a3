package tools

import (
	"context"
	"encoding/json"
)

func init() {
	MustRegisterTool("list_serving_endpoints", NewListServingEndpoints)
	MustRegisterTool("get_serving_endpoint", NewGetServingEndpoint)
	MustRegisterTool("query_serving_endpoint", NewQueryServingEndpoint)
}

func NewListServingEndpoints() Tool {
	return NewFuncTool(
		"list_serving_endpoints",
		"List model serving endpoints in the workspace.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Get(ctx, "/api/2.0/serving-endpoints", nil, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			endpoints, _ := out["endpoints"].([]any)
			return map[string]any{
				"endpoints": endpoints,
				"count":     len(endpoints),
			}, nil
		},
	)
}

func NewGetServingEndpoint() Tool {
	type args struct {
		Name string `json:"name"`
	}
	return NewFuncTool(
		"get_serving_endpoint",
		"Get details of a model serving endpoint.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "The serving endpoint name"},
			},
			"required": []string{"name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_serving_endpoint")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/serving-endpoints/"+in.Name, nil, &out)
				return out, err
			})
		},
	)
}

func NewQueryServingEndpoint() Tool {
	type args struct {
		Name   string         `json:"name"`
		Inputs map[string]any `json:"inputs"`
	}
	return NewFuncTool(
		"query_serving_endpoint",
		"Send a query payload to a model serving endpoint and return its response.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "The serving endpoint name"},
				"inputs": map[string]any{
					"type":        "object",
					"description": "Request payload forwarded to the endpoint as-is",
				},
			},
			"required": []string{"name", "inputs"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "query_serving_endpoint")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Post(ctx, "/serving-endpoints/"+in.Name+"/invocations", in.Inputs, &out)
				return out, err
			})
		},
	)
}
