package opsmapsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"opsmap/internal/assist"
	"opsmap/internal/domain"
)

// Client is a minimal client for the opsmap hosted backend.
type Client struct {
	BaseURL     string
	BearerToken string
	// TokenSource, when set, is called per request and takes precedence over BearerToken.
	TokenSource func(ctx context.Context) (string, error)
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ListWorkspaces returns the workspaces owned by the token subject.
func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var resp struct {
		Items []domain.Workspace `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/workspaces", nil, &resp)
	return resp.Items, err
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (domain.Workspace, error) {
	var resp domain.Workspace
	err := c.do(ctx, http.MethodGet, "v0/workspaces/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// PutWorkspace creates or replaces a workspace.
func (c *Client) PutWorkspace(ctx context.Context, ws domain.Workspace) (domain.Workspace, error) {
	var resp domain.Workspace
	err := c.do(ctx, http.MethodPut, "v0/workspaces/"+url.PathEscape(ws.ID), ws, &resp)
	return resp, err
}

func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/workspaces/"+url.PathEscape(id), nil, nil)
}

// Assist forwards a generation request.
func (c *Client) Assist(ctx context.Context, req assist.Request) (assist.Response, error) {
	var resp assist.Response
	err := c.do(ctx, http.MethodPost, "v0/assist", req, &resp)
	return resp, err
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	err := c.do(ctx, http.MethodGet, "v0/health", nil, &resp)
	return resp, err
}

// DevLogin exchanges a user id for a bearer token on servers that allow it.
func (c *Client) DevLogin(ctx context.Context, userID string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, "v0/auth/dev/login", map[string]any{"user_id": userID}, &resp)
	return resp.AccessToken, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	token := c.BearerToken
	if c.TokenSource != nil {
		if token, err = c.TokenSource(ctx); err != nil {
			return fmt.Errorf("fetch token: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
