// Package fetch provides the HTTP client used by lookup commands.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher wraps an HTTP client with the defaults lookup commands want:
// a timeout, a user agent, and JSON decoding.
type Fetcher struct {
	client *resty.Client
}

// New creates a Fetcher.
func New() *Fetcher {
	c := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "selfbot")
	return &Fetcher{client: c}
}

// JSON fetches url and decodes the response body into out.
// A non-2xx status is an error.
func (f *Fetcher) JSON(ctx context.Context, url string, out any) error {
	resp, err := f.client.R().SetContext(ctx).SetResult(out).Get(url)
	if err != nil {
		return fmt.Errorf("couldn't fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("couldn't fetch %s: status %d", url, resp.StatusCode())
	}
	return nil
}

// Get fetches url and returns the status code and raw body.
func (f *Fetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, nil, fmt.Errorf("couldn't fetch %s: %w", url, err)
	}
	return resp.StatusCode(), resp.Body(), nil
}
