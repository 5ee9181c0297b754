// Package display implements the HTTP transport to the physical split-flap
// board. The core only depends on the narrow SendLayout surface.
package display

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	apiKeyHeader   = "X-Vestaboard-Read-Write-Key"
)

// Client posts frames to the board's read-write API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// SendLayout pushes one grid of character codes to the board.
func (c *Client) SendLayout(ctx context.Context, characterCodes [][]int) error {
	body, err := json.Marshal(characterCodes)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build display request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send layout: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("display returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
