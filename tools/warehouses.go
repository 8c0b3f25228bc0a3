package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func init() {
	MustRegisterTool("list_warehouses", NewListWarehouses)
	MustRegisterTool("get_warehouse", NewGetWarehouse)
	MustRegisterTool("start_warehouse", NewStartWarehouse)
	MustRegisterTool("stop_warehouse", NewStopWarehouse)
}

func NewListWarehouses() Tool {
	return NewFuncTool(
		"list_warehouses",
		"List all SQL warehouses in the workspace.",
		listSchema(nil),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](args, "list_warehouses")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return runListing(ctx, c, "warehouses", "/api/2.0/sql/warehouses", "warehouses", nil, in)
		},
	)
}

func NewGetWarehouse() Tool {
	return NewFuncTool(
		"get_warehouse",
		"Get details of a specific SQL warehouse.",
		warehouseIDSchema("The warehouse ID"),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[warehouseIDArgs](args, "get_warehouse")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.0/sql/warehouses/"+in.WarehouseID, nil, &out)
				return out, err
			})
		},
	)
}

func NewStartWarehouse() Tool {
	return newWarehouseAction("start_warehouse", "Start a stopped SQL warehouse.", "start", "starting")
}

func NewStopWarehouse() Tool {
	return newWarehouseAction("stop_warehouse", "Stop a running SQL warehouse.", "stop", "stopping")
}

type warehouseIDArgs struct {
	WarehouseID string `json:"warehouse_id"`
}

func warehouseIDSchema(desc string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"warehouse_id": map[string]any{"type": "string", "description": desc},
		},
		"required": []string{"warehouse_id"},
	}
}

func newWarehouseAction(name, description, action, status string) Tool {
	return NewFuncTool(
		name,
		description,
		warehouseIDSchema("The warehouse ID"),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[warehouseIDArgs](args, name)
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			path := fmt.Sprintf("/api/2.0/sql/warehouses/%s/%s", in.WarehouseID, action)
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Post(ctx, path, map[string]any{}, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": status, "warehouse_id": in.WarehouseID}, nil
		},
	)
}
