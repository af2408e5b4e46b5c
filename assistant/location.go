package assistant

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultIPLookupURL = "https://api.ipify.org?format=text"

// ipCache resolves the public IP once per process and serves the cached
// value afterwards. Lookup failures are not cached, so a later call may
// retry.
type ipCache struct {
	url  string
	http *http.Client

	mu sync.Mutex
	ip string
}

func newIPCache(url string) *ipCache {
	if url == "" {
		url = defaultIPLookupURL
	}
	return &ipCache{
		url:  url,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup returns the public IP, or "" when it cannot be determined.
// The fetch runs outside the lock so concurrent dispatches never block
// on each other's network round-trip.
func (c *ipCache) Lookup(ctx context.Context) string {
	c.mu.Lock()
	cached := c.ip
	c.mu.Unlock()
	if cached != "" {
		return cached
	}

	ip := c.fetch(ctx)
	if ip == "" {
		return ""
	}

	c.mu.Lock()
	c.ip = ip
	c.mu.Unlock()
	return ip
}

func (c *ipCache) fetch(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("public ip lookup", "err", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("public ip lookup", "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("public ip lookup", "err", err)
		return ""
	}

	return strings.TrimSpace(string(body))
}
