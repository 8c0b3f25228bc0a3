package tools

import (
	"context"
	"encoding/json"
)

func init() {
	MustRegisterTool("list_pipelines", NewListPipelines)
	MustRegisterTool("get_pipeline", NewGetPipeline)
	MustRegisterTool("start_pipeline_update", NewStartPipelineUpdate)
	MustRegisterTool("stop_pipeline", NewStopPipeline)
}

func NewListPipelines() Tool {
	return NewFuncTool(
		"list_pipelines",
		"List Delta Live Tables pipelines in the workspace.",
		listSchema(nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](raw, "list_pipelines")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return runListing(ctx, c, "pipelines", "/api/2.0/pipelines", "statuses", nil, in)
		},
	)
}

type pipelineIDArgs struct {
	PipelineID string `json:"pipeline_id"`
}

func pipelineIDSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pipeline_id": map[string]any{"type": "string", "description": "The pipeline ID"},
		},
		"required": []string{"pipeline_id"},
	}
}

func NewGetPipeline() Tool {
	return NewFuncTool(
		"get_pipeline",
		"Get details of a pipeline, including its latest updates.",
		pipelineIDSchema(),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[pipelineIDArgs](raw, "get_pipeline")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/pipelines/"+in.PipelineID, nil, &out)
				return out, err
			})
		},
	)
}

func NewStartPipelineUpdate() Tool {
	type args struct {
		PipelineID  string `json:"pipeline_id"`
		FullRefresh bool   `json:"full_refresh,omitempty"`
	}
	schema := pipelineIDSchema()
	schema["properties"].(map[string]any)["full_refresh"] = map[string]any{
		"type":        "boolean",
		"description": "Reset all tables before the update",
	}
	return NewFuncTool(
		"start_pipeline_update",
		"Start an update of a pipeline.",
		schema,
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "start_pipeline_update")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"full_refresh": in.FullRefresh}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Post(ctx, "/api/2.0/pipelines/"+in.PipelineID+"/updates", body, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			out["status"] = "update_started"
			out["pipeline_id"] = in.PipelineID
			return out, nil
		},
	)
}

func NewStopPipeline() Tool {
	return NewFuncTool(
		"stop_pipeline",
		"Stop a running pipeline update.",
		pipelineIDSchema(),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[pipelineIDArgs](raw, "stop_pipeline")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.0/pipelines/"+in.PipelineID+"/stop", map[string]any{}, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "stopping", "pipeline_id": in.PipelineID}, nil
		},
	)
}
