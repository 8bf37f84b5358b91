package subscription

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// defaultFetchTimeout bounds one status fetch so a slow billing backend
// cannot stall page loads.
const defaultFetchTimeout = 10 * time.Second

// Client fetches subscription status from the billing backend. Every
// failure mode degrades to "no status" (nil snapshot): the account UI
// renders the free tier rather than an error page.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given backend base URL. An empty base
// URL disables fetching entirely; every call returns no status.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultFetchTimeout,
		},
	}
}

// FetchStatus performs the authenticated status GET. A missing bearer token
// short-circuits to no status without a network call.
func (c *Client) FetchStatus(ctx context.Context, bearerToken string) *Status {
	if c.baseURL == "" || bearerToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/subscription/status", nil)
	if err != nil {
		slog.Error("Failed to build subscription status request", "error", err)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Subscription status fetch failed, rendering no status", "error", err)
		return nil
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("Failed to close subscription response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Subscription backend returned non-OK status, rendering no status",
			"status_code", resp.StatusCode)
		return nil
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		slog.Warn("Failed to decode subscription status, rendering no status", "error", err)
		return nil
	}

	return &status
}
