package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// PostSource fetches the most recent posts for a social handle. It is a
// narrow interface (following the ancestor CLI's preference for small
// interfaces at I/O boundaries, e.g. gamma.Client, telegram.Bot) so the
// production scraper can be swapped for a fake in tests.
type PostSource interface {
	FetchRecent(ctx context.Context, handle string, n int) ([]Post, error)
}

// NewsSource fetches entries from a single feed URL.
type NewsSource interface {
	FetchFeed(ctx context.Context, feedURL string, maxEntries int) ([]NewsEntry, error)
}

// GofeedNewsSource parses RSS/Atom feeds with mmcdole/gofeed, chosen as the
// ecosystem equivalent of Python's feedparser (see DESIGN.md: no RSS
// library appears anywhere in the retrieved example corpus).
type GofeedNewsSource struct {
	parser *gofeed.Parser
}

// NewGofeedNewsSource builds a GofeedNewsSource.
func NewGofeedNewsSource() *GofeedNewsSource {
	return &GofeedNewsSource{parser: gofeed.NewParser()}
}

// FetchFeed parses feedURL and returns up to maxEntries entries.
func (s *GofeedNewsSource) FetchFeed(ctx context.Context, feedURL string, maxEntries int) ([]NewsEntry, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("listener: parse feed %s: %w", feedURL, err)
	}

	entries := feed.Items
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	out := make([]NewsEntry, 0, len(entries))
	for _, item := range entries {
		out = append(out, NewsEntry{
			Link:    item.Link,
			Title:   item.Title,
			Summary: item.Description,
		})
	}
	return out, nil
}

// wireTweets is the per-handle fetch response, per SPEC_FULL §6's "Social
// post source" external interface: {"tweets": [{"link", "text", ...}]}.
type wireTweets struct {
	Tweets []struct {
		Link string `json:"link"`
		Text string `json:"text"`
	} `json:"tweets"`
}

// HTTPPostSource fetches recent posts for a handle from a configurable
// scraping backend (e.g. a self-hosted Nitter-compatible instance), kept in
// the same *http.Client-wrapper shape as radar.ExchangeClient.
type HTTPPostSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPPostSource builds an HTTPPostSource against baseURL; requests go
// to {baseURL}/{handle}/tweets.
func NewHTTPPostSource(baseURL string) *HTTPPostSource {
	return &HTTPPostSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// FetchRecent fetches the n most recent posts for handle.
func (s *HTTPPostSource) FetchRecent(ctx context.Context, handle string, n int) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/%s/tweets?count=%d", s.baseURL, handle, n)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("listener: build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listener: fetch posts for %s: %w", handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listener: unexpected status code %d for %s", resp.StatusCode, handle)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("listener: read response: %w", err)
	}

	var wire wireTweets
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("listener: decode response for %s: %w", handle, err)
	}

	out := make([]Post, 0, len(wire.Tweets))
	for _, t := range wire.Tweets {
		out = append(out, Post{Link: t.Link, Text: t.Text})
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
