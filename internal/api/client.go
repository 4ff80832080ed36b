package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// DefaultClientTimeout bounds every request made by Client.
const DefaultClientTimeout = 30 * time.Second

// Client talks to a diagram server. It implements storage.Store, so a sync
// coordinator can persist to a remote server the same way it persists locally.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the server at baseURL. A zero timeout
// uses DefaultClientTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

var _ storage.Store = (*Client)(nil)

// Close is a no-op.
func (c *Client) Close() error { return nil }

// List fetches every diagram.
func (c *Client) List(ctx context.Context) ([]*storage.Diagram, error) {
	var out []*storage.Diagram
	if err := c.do(ctx, http.MethodGet, "/api/core/diagrams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create creates a diagram.
func (c *Client) Create(ctx context.Context, in storage.NewDiagram) (*storage.Diagram, error) {
	var out storage.Diagram
	if err := c.do(ctx, http.MethodPost, "/api/core/diagrams", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a diagram. Unknown ids return storage.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*storage.Diagram, error) {
	var out storage.Diagram
	if err := c.do(ctx, http.MethodGet, diagramPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sync sends a partial update.
func (c *Client) Sync(ctx context.Context, id string, payload storage.SyncPayload) (*storage.Diagram, error) {
	var out storage.Diagram
	if err := c.do(ctx, http.MethodPut, diagramPath(id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a diagram.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, diagramPath(id), nil, nil)
}

// Default fetches the starter document.
func (c *Client) Default(ctx context.Context) (*DefaultDiagram, error) {
	var out DefaultDiagram
	if err := c.do(ctx, http.MethodGet, "/api/core/diagrams/default", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate asks the server to validate an AST, or a diagram when nodes are given.
func (c *Client) Validate(ctx context.Context, ast *schema.SchemaAST, nodes []graph.Node, edges []graph.Edge) (schema.ValidationResult, error) {
	var out schema.ValidationResult
	err := c.do(ctx, http.MethodPost, "/api/core/validate", ValidateRequest{AST: ast, Nodes: nodes, Edges: edges}, &out)
	return out, err
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 onto storage.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	return nil
}

func diagramPath(id string) string {
	return "/api/core/diagrams/" + id
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status bool            `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if !envelope.Status {
		return errors.New(envelope.Error)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
