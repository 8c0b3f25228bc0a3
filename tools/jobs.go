package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

func init() {
	MustRegisterTool("list_jobs", NewListJobs)
	MustRegisterTool("get_job", NewGetJob)
	MustRegisterTool("run_job_now", NewRunJobNow)
	MustRegisterTool("list_job_runs", NewListJobRuns)
	MustRegisterTool("get_job_run", NewGetJobRun)
	MustRegisterTool("delete_job", NewDeleteJob)
}

func NewListJobs() Tool {
	type args struct {
		listArgs
		Name string `json:"name,omitempty"`
	}
	return NewFuncTool(
		"list_jobs",
		"List all jobs in the Databricks workspace.",
		listSchema(map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Filter jobs by name",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_jobs")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			base := url.Values{}
			if in.Name != "" {
				base.Set("name", in.Name)
			}
			return runListing(ctx, c, "jobs", "/api/2.2/jobs/list", "jobs", base, in.listArgs)
		},
	)
}

func NewGetJob() Tool {
	type args struct {
		JobID int64 `json:"job_id"`
	}
	return NewFuncTool(
		"get_job",
		"Get details of a specific job.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{
					"type":        "integer",
					"description": "The job ID",
				},
			},
			"required": []string{"job_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_job")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			q := url.Values{"job_id": {strconv.FormatInt(in.JobID, 10)}}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.2/jobs/get", q, &out)
				return out, err
			})
		},
	)
}

func NewRunJobNow() Tool {
	type args struct {
		JobID        int64             `json:"job_id"`
		JobParams    map[string]string `json:"job_parameters,omitempty"`
		NotebookPara map[string]string `json:"notebook_params,omitempty"`
	}
	return NewFuncTool(
		"run_job_now",
		"Trigger a job to run immediately.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{
					"type":        "integer",
					"description": "The job ID to run",
				},
				"job_parameters": map[string]any{
					"type":        "object",
					"description": "Job-level parameters for the run",
					"additionalProperties": map[string]any{
						"type": "string",
					},
				},
				"notebook_params": map[string]any{
					"type":        "object",
					"description": "Notebook task parameters for the run",
					"additionalProperties": map[string]any{
						"type": "string",
					},
				},
			},
			"required": []string{"job_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "run_job_now")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"job_id": in.JobID}
			if len(in.JobParams) > 0 {
				body["job_parameters"] = in.JobParams
			}
			if len(in.NotebookPara) > 0 {
				body["notebook_params"] = in.NotebookPara
			}
			out, err := callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var resp map[string]any
				err := c.Post(ctx, "/api/2.2/jobs/run-now", body, &resp)
				return resp, err
			})
			if err != nil {
				return nil, err
			}
			out["status"] = "triggered"
			out["job_id"] = in.JobID
			return out, nil
		},
	)
}

func NewListJobRuns() Tool {
	type args struct {
		listArgs
		JobID      int64 `json:"job_id,omitempty"`
		ActiveOnly bool  `json:"active_only,omitempty"`
	}
	return NewFuncTool(
		"list_job_runs",
		"List runs for a job, most recent first.",
		listSchema(map[string]any{
			"job_id": map[string]any{
				"type":        "integer",
				"description": "Filter runs to a single job ID",
			},
			"active_only": map[string]any{
				"type":        "boolean",
				"description": "Only include active (queued or running) runs",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_job_runs")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			base := url.Values{}
			if in.JobID != 0 {
				base.Set("job_id", strconv.FormatInt(in.JobID, 10))
			}
			if in.ActiveOnly {
				base.Set("active_only", "true")
			}
			return runListing(ctx, c, "job_runs", "/api/2.2/jobs/runs/list", "runs", base, in.listArgs)
		},
	)
}

func NewGetJobRun() Tool {
	type args struct {
		RunID int64 `json:"run_id"`
	}
	return NewFuncTool(
		"get_job_run",
		"Get details of a specific job run, including task states.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"run_id": map[string]any{
					"type":        "integer",
					"description": "The run ID",
				},
			},
			"required": []string{"run_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_job_run")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			q := url.Values{"run_id": {strconv.FormatInt(in.RunID, 10)}}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.2/jobs/runs/get", q, &out)
				return out, err
			})
		},
	)
}

func NewDeleteJob() Tool {
	type args struct {
		JobID int64 `json:"job_id"`
	}
	return NewFuncTool(
		"delete_job",
		"Delete a job.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{
					"type":        "integer",
					"description": "The job ID to delete",
				},
			},
			"required": []string{"job_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_job")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, "/api/2.2/jobs/delete", map[string]any{"job_id": in.JobID}, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "deleted", "job_id": in.JobID}, nil
		},
	)
}
