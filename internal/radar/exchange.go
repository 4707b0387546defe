package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 10 * time.Second

// ExchangeClient is a thin HTTP wrapper over the exchange's events endpoint,
// kept in the same shape as the ancestor CLI's gamma.Client: a *http.Client
// plus a configurable base URL, one method per concern, every failure
// wrapped with fmt.Errorf("...: %w", err).
type ExchangeClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewExchangeClient builds an ExchangeClient against baseURL (e.g.
// https://gamma-api.polymarket.com).
func NewExchangeClient(baseURL string) *ExchangeClient {
	return &ExchangeClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
	}
}

// eventsEnvelope accepts either a bare JSON array or {"data": [...]}, per
// SPEC_FULL §6's note that the exchange may wrap its response either way.
type eventsEnvelope struct {
	Data []RawEvent `json:"data"`
}

// Search issues one query against {baseURL}/events with
// active=true,closed=false,archived=false and returns the raw events.
// HTTP failures, non-2xx statuses and JSON decode failures are all returned
// as errors — the caller (Scan) is responsible for degrading them to an
// empty list per SPEC_FULL §4.1's failure semantics.
func (c *ExchangeClient) Search(ctx context.Context, query string, limit int) ([]RawEvent, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("archived", "false")
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/events?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("radar: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("radar: fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("radar: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("radar: read response: %w", err)
	}

	var events []RawEvent
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}

	var wrapped eventsEnvelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("radar: decode response: %w", err)
	}
	return wrapped.Data, nil
}
