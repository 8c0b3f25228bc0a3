package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

func init() {
	MustRegisterTool("list_clusters", NewListClusters)
	MustRegisterTool("get_cluster", NewGetCluster)
	MustRegisterTool("create_cluster", NewCreateCluster)
	MustRegisterTool("start_cluster", NewStartCluster)
	MustRegisterTool("terminate_cluster", NewTerminateCluster)
}

func NewListClusters() Tool {
	schema := map[string]any{
		"type":       "object",
		"properties": listProperties(nil),
	}
	return NewFuncTool(
		"list_clusters",
		"List all clusters in the workspace.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](args, "list_clusters")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return runListing(ctx, c, "clusters", "/api/2.1/clusters/list", "clusters", nil, in)
		},
	)
}

func NewGetCluster() Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cluster_id": map[string]any{"type": "string", "description": "The cluster ID"},
		},
		"required": []string{"cluster_id"},
	}
	return NewFuncTool(
		"get_cluster",
		"Get details of a specific cluster.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[struct {
				ClusterID string `json:"cluster_id"`
			}](args, "get_cluster")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				query := url.Values{"cluster_id": {in.ClusterID}}
				if err := c.Get(ctx, "/api/2.1/clusters/get", query, &out); err != nil {
					return nil, err
				}
				return out, nil
			})
		},
	)
}

func NewCreateCluster() Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cluster_name":  map[string]any{"type": "string", "description": "Name for the cluster"},
			"spark_version": map[string]any{"type": "string", "description": "Spark version"},
			"node_type_id":  map[string]any{"type": "string", "description": "Node type"},
			"num_workers":   map[string]any{"type": "integer", "description": "Number of workers"},
			"autoscale": map[string]any{
				"type":        "object",
				"description": "Autoscale configuration",
				"properties": map[string]any{
					"min_workers": map[string]any{"type": "integer"},
					"max_workers": map[string]any{"type": "integer"},
				},
			},
		},
		"required": []string{"cluster_name", "spark_version", "node_type_id"},
	}
	return NewFuncTool(
		"create_cluster",
		"Create a new cluster.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var body map[string]any
			if err := json.Unmarshal(args, &body); err != nil {
				return nil, fmt.Errorf("invalid create_cluster args: %w", err)
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				if err := c.Post(ctx, "/api/2.1/clusters/create", body, &out); err != nil {
					return nil, err
				}
				out["status"] = "created"
				return out, nil
			})
		},
	)
}

func NewStartCluster() Tool {
	return newClusterAction("start_cluster", "Start a terminated cluster.", "/api/2.1/clusters/start", "starting")
}

func NewTerminateCluster() Tool {
	return newClusterAction("terminate_cluster", "Terminate a running cluster.", "/api/2.1/clusters/delete", "terminating")
}

func newClusterAction(name, description, path, status string) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cluster_id": map[string]any{"type": "string", "description": "The cluster ID"},
		},
		"required": []string{"cluster_id"},
	}
	return NewFuncTool(name, description, schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[struct {
				ClusterID string `json:"cluster_id"`
			}](args, name)
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				body := map[string]any{"cluster_id": in.ClusterID}
				if err := c.Post(ctx, path, body, nil); err != nil {
					return nil, err
				}
				return map[string]any{"status": status, "cluster_id": in.ClusterID}, nil
			})
		},
	)
}
