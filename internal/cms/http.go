package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ludexcms/ludex/internal/core"
)

// HTTPClient implements Client against the content API over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient creates a client for the content API at baseURL.
// apiKey may be empty for unauthenticated deployments.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// AddDocument creates a document record.
func (c *HTTPClient) AddDocument(ctx context.Context, doc core.Entity) error {
	return c.post(ctx, "/api/documents", doc)
}

// AddUpdateLog creates an update log record.
func (c *HTTPClient) AddUpdateLog(ctx context.Context, log core.Entity) error {
	return c.post(ctx, "/api/update-logs", log)
}

// ListDocuments returns all document records.
func (c *HTTPClient) ListDocuments(ctx context.Context) ([]core.Entity, error) {
	return c.list(ctx, "/api/documents")
}

// ListUpdateLogs returns all update log records.
func (c *HTTPClient) ListUpdateLogs(ctx context.Context) ([]core.Entity, error) {
	return c.list(ctx, "/api/update-logs")
}

func (c *HTTPClient) post(ctx context.Context, path string, payload core.Entity) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("cms api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cms api: %s returned %d: %s", path, resp.StatusCode, readErrorBody(resp.Body))
	}

	return nil
}

func (c *HTTPClient) list(ctx context.Context, path string) ([]core.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("cms api: %s returned %d: %s", path, resp.StatusCode, readErrorBody(resp.Body))
	}

	var records []core.Entity
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return records, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// readErrorBody returns a truncated response body for error messages.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "(no body)"
	}
	return string(data)
}
