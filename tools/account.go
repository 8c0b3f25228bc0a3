package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dbxmcp/dbxmcp/assemble"
	"github.com/dbxmcp/dbxmcp/dbx"
)

func init() {
	MustRegisterTool("list_account_workspaces", NewListAccountWorkspaces)
	MustRegisterTool("get_account_workspace", NewGetAccountWorkspace)
	MustRegisterTool("list_account_metastores", NewListAccountMetastores)
	MustRegisterTool("list_account_users", NewListAccountUsers)
	MustRegisterTool("list_account_groups", NewListAccountGroups)
	MustRegisterTool("list_account_service_principals", NewListAccountServicePrincipals)
}

func accountPath(accountID, suffix string) string {
	return fmt.Sprintf("/api/2.0/accounts/%s/%s", accountID, suffix)
}

func NewListAccountWorkspaces() Tool {
	return NewFuncTool(
		"list_account_workspaces",
		"List all workspaces in the Databricks account.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			c, err := accountClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) ([]map[string]any, error) {
				var out []map[string]any
				err := c.Get(ctx, accountPath(c.AccountID(), "workspaces"), nil, &out)
				return out, err
			})
		},
	)
}

func NewGetAccountWorkspace() Tool {
	type args struct {
		WorkspaceID string `json:"workspace_id"`
	}
	return NewFuncTool(
		"get_account_workspace",
		"Get details of a workspace in the Databricks account.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace_id": map[string]any{"type": "string", "description": "The workspace ID"},
			},
			"required": []string{"workspace_id"},
		},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[args](raw, "get_account_workspace")
			if err != nil {
				return nil, err
			}
			c, err := accountClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, accountPath(c.AccountID(), "workspaces/"+in.WorkspaceID), nil, &out)
				return out, err
			})
		},
	)
}

func NewListAccountMetastores() Tool {
	return NewFuncTool(
		"list_account_metastores",
		"List Unity Catalog metastores in the Databricks account.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			c, err := accountClient()
			if err != nil {
				return nil, err
			}
			return callAPI(ctx, func(ctx context.Context) (map[string]any, error) {
				var out map[string]any
				err := c.Get(ctx, accountPath(c.AccountID(), "metastores"), nil, &out)
				return out, err
			})
		},
	)
}

func NewListAccountUsers() Tool {
	return newAccountSCIMList("list_account_users", "List users in the Databricks account.", "Users")
}

func NewListAccountGroups() Tool {
	return newAccountSCIMList("list_account_groups", "List groups in the Databricks account.", "Groups")
}

func NewListAccountServicePrincipals() Tool {
	return newAccountSCIMList("list_account_service_principals", "List service principals in the Databricks account.", "ServicePrincipals")
}

func newAccountSCIMList(name, description, resource string) Tool {
	return NewFuncTool(
		name,
		description,
		listSchema(nil),
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			in, err := decodeArgs[listArgs](raw, name)
			if err != nil {
				return nil, err
			}
			c, err := accountClient()
			if err != nil {
				return nil, err
			}
			return runPagedListing(ctx, resource, "resources", scimPager(c, resource), in)
		},
	)
}

// scimPager adapts SCIM's 1-based startIndex/count pagination to the page
// function contract; the page token carries the next start index.
func scimPager(c *dbx.Client, resource string) assemble.PageFunc {
	return func(ctx context.Context, token string, pageSize int) (assemble.Page, error) {
		start := 1
		if token != "" {
			n, err := strconv.Atoi(token)
			if err != nil || n < 1 {
				return assemble.Page{}, fmt.Errorf("invalid scim start index %q", token)
			}
			start = n
		}
		query := url.Values{"startIndex": {strconv.Itoa(start)}}
		if pageSize > 0 {
			query.Set("count", strconv.Itoa(pageSize))
		}
		var resp struct {
			Resources    []map[string]any `json:"Resources"`
			TotalResults int64            `json:"totalResults"`
		}
		if err := c.Get(ctx, accountPath(c.AccountID(), "scim/v2/"+resource), query, &resp); err != nil {
			return assemble.Page{}, err
		}
		page := assemble.Page{Items: resp.Resources, TotalKnown: resp.TotalResults}
		if next := start + len(resp.Resources); len(resp.Resources) > 0 && int64(next) <= resp.TotalResults {
			page.NextPageToken = strconv.Itoa(next)
		}
		return page, nil
	}
}
