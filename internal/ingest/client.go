// Package ingest keeps the local corpus in sync with the upstream member-
// messages API and publishes fresh snapshots for the ask pipeline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

// messagesResponse mirrors the upstream API payload.
type messagesResponse struct {
	Total int                   `json:"total"`
	Items []store.MessageRecord `json:"items"`
}

// Client fetches message records from the upstream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchMessages retrieves the full corpus from the upstream API.
func (c *Client) FetchMessages(ctx context.Context) ([]store.MessageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messages API returned status %d", resp.StatusCode)
	}

	var payload messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode messages response: %w", err)
	}
	return payload.Items, nil
}
