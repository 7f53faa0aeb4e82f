package feed

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTPClient returns the client shared by all feed fetches. Deadlines are
// set per request from the source timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
}

func NewFetcher(client *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Run downloads the whole feed body. The source timeout bounds connecting,
// waiting for headers and reading the body.
func (f *Fetcher) Run(ctx context.Context, source Source) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, source.GetTimeout(f.timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}
