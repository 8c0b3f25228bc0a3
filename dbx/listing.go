package dbx

import (
	"context"
	"net/url"
	"strconv"

	"github.com/dbxmcp/dbxmcp/assemble"
)

// Pager builds a page fetcher over one of the list endpoints. itemsKey names
// the response field holding the page's items; base carries filter params and
// is cloned per call. The endpoints all speak page_token/max_results and
// return next_page_token.
func (c *Client) Pager(path, itemsKey string, base url.Values) assemble.PageFunc {
	return func(ctx context.Context, pageToken string, pageSize int) (assemble.Page, error) {
		query := url.Values{}
		for k, vs := range base {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}
		if pageSize > 0 {
			query.Set("max_results", strconv.Itoa(pageSize))
		}

		var raw map[string]any
		if err := c.Get(ctx, path, query, &raw); err != nil {
			return assemble.Page{}, err
		}

		page := assemble.Page{}
		if items, ok := raw[itemsKey].([]any); ok {
			page.Items = make([]map[string]any, 0, len(items))
			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					page.Items = append(page.Items, m)
				}
			}
		}
		if token, ok := raw["next_page_token"].(string); ok {
			page.NextPageToken = token
		}
		if total, ok := raw["total_count"].(float64); ok {
			page.TotalKnown = int64(total)
		}
		return page, nil
	}
}
