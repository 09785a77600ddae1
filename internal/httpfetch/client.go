// Package httpfetch provides the shared HTTP client used to download remote
// project documents and cache validation files.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single download when the caller sets none.
const DefaultTimeout = 30 * time.Second

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

// Client downloads small documents over HTTP. It never retries: a failed
// fetch is surfaced to the caller, which decides how to degrade.
type Client struct {
	rc *resty.Client
}

// New creates a client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		})
	return &Client{rc: rc}
}

// Get downloads url and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	res, err := c.rc.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("get %s: %w: %s", url, ErrStatus, res.Status())
	}
	return res.Bytes(), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.rc.Close()
}
