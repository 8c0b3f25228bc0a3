package tools

import (
	"context"
	"encoding/json"
	"net/url"
)

func init() {
	MustRegisterTool("list_catalogs", NewListCatalogs)
	MustRegisterTool("get_catalog", NewGetCatalog)
	MustRegisterTool("create_catalog", NewCreateCatalog)
	MustRegisterTool("delete_catalog", NewDeleteCatalog)
	MustRegisterTool("list_schemas", NewListSchemas)
	MustRegisterTool("get_schema", NewGetSchema)
	MustRegisterTool("create_schema", NewCreateSchema)
	MustRegisterTool("delete_schema", NewDeleteSchema)
	MustRegisterTool("list_tables", NewListTables)
	MustRegisterTool("get_table", NewGetTable)
	MustRegisterTool("delete_table", NewDeleteTable)
}

func NewListCatalogs() Tool {
	return NewFuncTool(
		"list_catalogs",
		"List all catalogs in the Unity Catalog metastore.",
		listSchema(nil),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](args, "list_catalogs")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return runListing(ctx, c, "catalogs", "/api/2.1/unity-catalog/catalogs", "catalogs", nil, in)
		},
	)
}

func NewGetCatalog() Tool {
	type args struct {
		Name string `json:"name"`
	}
	return NewFuncTool(
		"get_catalog",
		"Get details of a specific catalog.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "The catalog name"},
			},
			"required": []string{"name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_catalog")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.1/unity-catalog/catalogs/"+in.Name, nil, &out)
				return out, err
			})
		},
	)
}

func NewCreateCatalog() Tool {
	type args struct {
		Name    string `json:"name"`
		Comment string `json:"comment,omitempty"`
	}
	return NewFuncTool(
		"create_catalog",
		"Create a new catalog in the Unity Catalog metastore.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":    map[string]any{"type": "string", "description": "The catalog name"},
				"comment": map[string]any{"type": "string", "description": "Optional comment"},
			},
			"required": []string{"name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "create_catalog")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"name": in.Name}
			if in.Comment != "" {
				body["comment"] = in.Comment
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Post(ctx, "/api/2.1/unity-catalog/catalogs", body, &out)
				return out, err
			})
		},
	)
}

func NewDeleteCatalog() Tool {
	type args struct {
		Name  string `json:"name"`
		Force bool   `json:"force,omitempty"`
	}
	return NewFuncTool(
		"delete_catalog",
		"Delete a catalog. Set force to also drop non-empty catalogs.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string", "description": "The catalog name"},
				"force": map[string]any{"type": "boolean", "description": "Drop even if the catalog is not empty"},
			},
			"required": []string{"name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_catalog")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			query := url.Values{}
			if in.Force {
				query.Set("force", "true")
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Delete(ctx, "/api/2.1/unity-catalog/catalogs/"+in.Name, query)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"name": in.Name, "status": "deleted"}, nil
		},
	)
}

func NewListSchemas() Tool {
	type args struct {
		listArgs
		CatalogName string `json:"catalog_name"`
	}
	return NewFuncTool(
		"list_schemas",
		"List schemas in a catalog.",
		listSchema(map[string]any{
			"catalog_name": map[string]any{
				"type":        "string",
				"description": "The parent catalog name",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_schemas")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			base := url.Values{"catalog_name": {in.CatalogName}}
			return runListing(ctx, c, "schemas", "/api/2.1/unity-catalog/schemas", "schemas", base, in.listArgs)
		},
	)
}

func NewGetSchema() Tool {
	type args struct {
		FullName string `json:"full_name"`
	}
	return NewFuncTool(
		"get_schema",
		"Get details of a schema.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"full_name": map[string]any{
					"type":        "string",
					"description": "Fully qualified schema name (catalog.schema)",
				},
			},
			"required": []string{"full_name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_schema")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.1/unity-catalog/schemas/"+in.FullName, nil, &out)
				return out, err
			})
		},
	)
}

func NewCreateSchema() Tool {
	type args struct {
		Name        string `json:"name"`
		CatalogName string `json:"catalog_name"`
		Comment     string `json:"comment,omitempty"`
	}
	return NewFuncTool(
		"create_schema",
		"Create a schema in a catalog.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":         map[string]any{"type": "string", "description": "The schema name"},
				"catalog_name": map[string]any{"type": "string", "description": "The parent catalog name"},
				"comment":      map[string]any{"type": "string", "description": "Optional comment"},
			},
			"required": []string{"name", "catalog_name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "create_schema")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			body := map[string]any{"name": in.Name, "catalog_name": in.CatalogName}
			if in.Comment != "" {
				body["comment"] = in.Comment
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Post(ctx, "/api/2.1/unity-catalog/schemas", body, &out)
				return out, err
			})
		},
	)
}

func NewDeleteSchema() Tool {
	type args struct {
		FullName string `json:"full_name"`
	}
	return NewFuncTool(
		"delete_schema",
		"Delete a schema.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"full_name": map[string]any{
					"type":        "string",
					"description": "Fully qualified schema name (catalog.schema)",
				},
			},
			"required": []string{"full_name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_schema")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Delete(ctx, "/api/2.1/unity-catalog/schemas/"+in.FullName, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"full_name": in.FullName, "status": "deleted"}, nil
		},
	)
}

func NewListTables() Tool {
	type args struct {
		listArgs
		CatalogName string `json:"catalog_name"`
		SchemaName  string `json:"schema_name"`
	}
	return NewFuncTool(
		"list_tables",
		"List tables in a schema.",
		listSchema(map[string]any{
			"catalog_name": map[string]any{
				"type":        "string",
				"description": "The parent catalog name",
			},
			"schema_name": map[string]any{
				"type":        "string",
				"description": "The parent schema name",
			},
		}),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "list_tables")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			base := url.Values{
				"catalog_name": {in.CatalogName},
				"schema_name":  {in.SchemaName},
			}
			return runListing(ctx, c, "tables", "/api/2.1/unity-catalog/tables", "tables", base, in.listArgs)
		},
	)
}

func NewGetTable() Tool {
	type args struct {
		FullName string `json:"full_name"`
	}
	return NewFuncTool(
		"get_table",
		"Get details of a table, including its columns.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"full_name": map[string]any{
					"type":        "string",
					"description": "Fully qualified table name (catalog.schema.table)",
				},
			},
			"required": []string{"full_name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_table")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, "/api/2.1/unity-catalog/tables/"+in.FullName, nil, &out)
				return out, err
			})
		},
	)
}

func NewDeleteTable() Tool {
	type args struct {
		FullName string `json:"full_name"`
	}
	return NewFuncTool(
		"delete_table",
		"Delete a table.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"full_name": map[string]any{
					"type":        "string",
					"description": "Fully qualified table name (catalog.schema.table)",
				},
			},
			"required": []string{"full_name"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "delete_table")
			if err != nil {
				return nil, err
			}
			c, err := workspaceClient()
			if err != nil {
				return nil, err
			}
			_, err = callAPI(ctx, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, c.Delete(ctx, "/api/2.1/unity-catalog/tables/"+in.FullName, nil)
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"full_name": in.FullName, "status": "deleted"}, nil
		},
	)
}
