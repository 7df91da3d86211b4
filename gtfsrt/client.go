package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/bluele/gcache"
)

// Client fetches GTFS-RT protobuf feeds over HTTP. Decoded feeds are kept
// in a short-lived cache so that several consumers polling the same URL
// share one download.
type Client struct {
	httpClient *http.Client
	cache      gcache.Cache
}

// NewClient creates a client with the given request timeout and cache TTL.
// A zero TTL disables caching.
func NewClient(timeout, cacheTTL time.Duration) *Client {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if cacheTTL > 0 {
		c.cache = gcache.New(16).LRU().Expiration(cacheTTL).Build()
	}
	return c
}

// Fetch fetches a single GTFS-RT feed from a URL and returns raw protobuf bytes.
// Returns nil if url is empty (allows optional feeds).
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch GTFS Realtime data: HTTP %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// FetchFeed fetches and decodes a feed, serving a cached copy while it is fresh.
func (c *Client) FetchFeed(ctx context.Context, url string) (*gtfsrtpb.FeedMessage, error) {
	if c.cache != nil {
		if v, err := c.cache.Get(url); err == nil {
			if fm, ok := v.(*gtfsrtpb.FeedMessage); ok {
				return fm, nil
			}
		}
	}
	data, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	fm, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode feed from %s: %w", url, err)
	}
	if c.cache != nil {
		_ = c.cache.Set(url, fm)
	}
	return fm, nil
}
