// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests against the magazine CDN, classifying
// the response: a 2xx is a found page, a "no such page" status is the
// discovery termination signal, and anything else is a transport error.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/RichardJRL/pocketmagstopdf/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "pocketmagstopdf/1.0 (https://github.com/RichardJRL/pocketmagstopdf)"
)

// Client fetches magazine pages via HTTP.
type Client struct {
	client *http.Client
	wait   core.WaitPolicy
	log    *slog.Logger
}

// New creates a Client with a sensible timeout. The wait policy elapses
// fully before every request; pass core.NoWait{} for no delay.
func New(wait core.WaitPolicy, log *slog.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: defaultTimeout},
		wait:   wait,
		log:    log,
	}
}

// WithTransport replaces the underlying transport. Used by tests.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.client.Transport = rt
	return c
}

// Fetch retrieves the bytes at url. The three outcomes are:
//
//   - found: 2xx, body returned
//   - not found: 404/410, Found=false and no error (expected during discovery)
//   - transport error: network failure or any other status
func (c *Client) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	c.wait.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &core.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &core.TransportError{URL: url, Err: err}
		}
		c.log.Debug("fetched", slog.String("url", url), slog.Int("bytes", len(body)))
		return &core.FetchResult{URL: url, StatusCode: resp.StatusCode, Found: true, Body: body}, nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		c.log.Debug("not found", slog.String("url", url), slog.Int("status", resp.StatusCode))
		return &core.FetchResult{URL: url, StatusCode: resp.StatusCode, Found: false}, nil

	default:
		return nil, &core.TransportError{URL: url, StatusCode: resp.StatusCode}
	}
}
