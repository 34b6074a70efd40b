// Package backend is the HTTP client for the labeling server: dataset image
// lists, cluster and index lifecycle, and caption embeddings.
package backend

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

	"golang.org/x/time/rate"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 << 20

// Client talks to the labeling server. Requests are paced by a rate limiter
// and are not retried.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRateLimit sets the request rate. Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Dataset is the server's description of a dataset's image stack.
type Dataset struct {
	Paths       []string `json:"paths"`
	Identifiers []string `json:"identifiers"`
}

// ImageEntry is one row of a dataset's image list. Idx is the frame index.
type ImageEntry struct {
	Idx  int    `json:"idx"`
	Path string `json:"path"`
}

// ClusterStatus carries the raw facts the lifecycle reducer derives a
// cluster status from.
type ClusterStatus struct {
	HasCluster bool `json:"has_cluster"`
	Started    bool `json:"started"`
	Ready      bool `json:"ready"`
}

// DatasetInfo fetches the ordered image locations of a dataset.
func (c *Client) DatasetInfo(ctx context.Context, name string) (Dataset, error) {
	var ds Dataset
	err := c.do(ctx, http.MethodGet, "/api/dataset/"+url.PathEscape(name), nil, &ds)
	return ds, err
}

// Results fetches the image list an image view renders.
func (c *Client) Results(ctx context.Context, name string) ([]ImageEntry, error) {
	var entries []ImageEntry
	if err := c.do(ctx, http.MethodGet, "/api/get_results/"+url.PathEscape(name), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// StartCluster asks the server to start a compute cluster and returns its id.
func (c *Client) StartCluster(ctx context.Context) (string, error) {
	var resp struct {
		ClusterID string `json:"cluster_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/start_cluster", struct{}{}, &resp); err != nil {
		return "", err
	}
	if resp.ClusterID == "" {
		return "", fmt.Errorf("backend: start_cluster returned no cluster_id")
	}
	return resp.ClusterID, nil
}

// ClusterStatus polls a cluster.
func (c *Client) ClusterStatus(ctx context.Context, clusterID string) (ClusterStatus, error) {
	var st ClusterStatus
	err := c.do(ctx, http.MethodGet, "/api/cluster/"+url.PathEscape(clusterID), nil, &st)
	return st, err
}

// CreateIndex starts an index build for dataset on the given cluster and
// returns the index id.
func (c *Client) CreateIndex(ctx context.Context, dataset, clusterID string) (string, error) {
	body := struct {
		ClusterID string `json:"cluster_id"`
	}{clusterID}
	var resp struct {
		IndexID string `json:"index_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/create_index/"+url.PathEscape(dataset), body, &resp); err != nil {
		return "", err
	}
	if resp.IndexID == "" {
		return "", fmt.Errorf("backend: create_index returned no index_id")
	}
	return resp.IndexID, nil
}

// IndexStatus reports whether an index has finished building.
func (c *Client) IndexStatus(ctx context.Context, indexID string) (bool, error) {
	var resp struct {
		HasIndex bool `json:"has_index"`
	}
	err := c.do(ctx, http.MethodGet, "/api/index/"+url.PathEscape(indexID), nil, &resp)
	return resp.HasIndex, err
}

// GenerateTextEmbedding embeds a caption query. The embedding is opaque to
// the client.
func (c *Client) GenerateTextEmbedding(ctx context.Context, text string) (string, error) {
	body := struct {
		Text string `json:"text"`
	}{text}
	var resp struct {
		Embedding string `json:"embedding"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/generate_text_embedding_v2", body, &resp); err != nil {
		return "", err
	}
	return resp.Embedding, nil
}

// do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend: rate limiter wait failed: %w", err)
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("backend: request cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("backend: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(truncate(string(body), 200)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("backend: failed to parse %s response: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
