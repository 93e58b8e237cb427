package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultK matches the knowledge-base service's default result count.
const DefaultK = 3

// Client queries the knowledge-base search service over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	slog.Info("Creating search client", "endpoint", endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("search endpoint cannot be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Search queries the backend for the k most similar documents.
func (c *Client) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k < 1 {
		k = DefaultK
	}

	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("Search backend unreachable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		slog.Warn("Search backend returned server error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search request rejected: status %d: %s", resp.StatusCode, data)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	slog.Debug("Search completed", "query", query, "results", len(sr.Results))
	return sr.Results, nil
}
