// Package dbx is the thin client layer over the Databricks REST API. It owns
// the process-wide workspace and account handles, both lazily initialized
// behind a once-barrier and never mutated afterwards, so concurrent tool
// invocations share them without locking.
package dbx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const userAgent = "dbxmcp/1.0"

// Client talks to one Databricks host. Safe for concurrent use.
type Client struct {
	host      string
	token     string
	accountID string
	http      *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validateWorkspace(); err != nil {
		return nil, err
	}
	return newClient(cfg.Host, cfg.Token, "", cfg), nil
}

func NewAccountClient(cfg Config) (*Client, error) {
	if err := cfg.validateAccount(); err != nil {
		return nil, err
	}
	return newClient(cfg.accountHost(), cfg.Token, cfg.AccountID, cfg), nil
}

func newClient(host, token, accountID string, cfg Config) *Client {
	return &Client{
		host:      strings.TrimRight(host, "/"),
		token:     token,
		accountID: accountID,
		http: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// AccountID is set only on account-level clients.
func (c *Client) AccountID() string { return c.accountID }

func (c *Client) Host() string { return c.host }

// Do performs one API call and decodes the JSON response into out (which may
// be nil for endpoints with empty responses). Non-2xx responses come back as
// *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFrom(resp, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	return c.Do(ctx, http.MethodDelete, path, query, nil, nil)
}

func apiErrorFrom(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{
		Status:     resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
		RetryAfter: parseRetryAfter(resp.Header),
	}
	var body struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.ErrorCode != "" {
			apiErr.Code = body.ErrorCode
		}
		if body.Message != "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// Process-wide handles, initialized once on first use (the read-mostly
// replacement for ad hoc shared client globals).
var (
	workspaceOnce sync.Once
	workspaceC    *Client
	workspaceErr  error

	accountOnce sync.Once
	accountC    *Client
	accountErr  error
)

// Workspace returns the shared workspace-level client.
func Workspace() (*Client, error) {
	workspaceOnce.Do(func() {
		workspaceC, workspaceErr = NewClient(ConfigFromEnv())
	})
	return workspaceC, workspaceErr
}

// Account returns the shared account-level client. It fails with a clear
// message when DATABRICKS_ACCOUNT_ID is unset.
func Account() (*Client, error) {
	accountOnce.Do(func() {
		accountC, accountErr = NewAccountClient(ConfigFromEnv())
	})
	return accountC, accountErr
}
