// internal/storage/httpsrc/client.go
package httpsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northwalk/floormap/internal/storage"
)

// maxAssetSize caps a single response body.
const maxAssetSize = 32 << 20

// Client fetches floor documents and assets from the kiosk web server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface check
var _ storage.Source = (*Client)(nil)

// New creates a new asset client. baseURL points at the asset root, e.g.
// "http://kiosk.local/assets".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Init is a no-op; the server is contacted lazily.
func (c *Client) Init() error {
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Healthcheck checks if the asset server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/"+storage.FloorKey("ground-floor"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Fetch downloads key relative to the base URL.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	if !storage.ValidKey(key) {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s returned status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", key, maxAssetSize)
	}
	return data, nil
}
