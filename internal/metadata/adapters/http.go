package adapters

import (
	"context"
	"net/http"
	"time"
)

// HTTPAdapter is a pass-through adapter for plain http(s):// URIs. The IPFS
// and Arweave adapters embed one to perform the actual request once they
// have rewritten the URI; DataAdapter needs none.
type HTTPAdapter struct {
	client *http.Client
}

func NewHTTPAdapter(cfg Config) (Adapter, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAdapter{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.poolSizeOrDefault(),
				MaxIdleConnsPerHost: cfg.poolSizeOrDefault(),
			},
		},
	}, nil
}

func (c Config) poolSizeOrDefault() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return 100
}

func (a *HTTPAdapter) do(ctx context.Context, method, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", "offchain-metadata-pipeline/1.0")
	return a.client.Do(req)
}

func (a *HTTPAdapter) Send(ctx context.Context, uri string) (*http.Response, error) {
	return a.do(ctx, http.MethodGet, uri)
}

func (a *HTTPAdapter) Head(ctx context.Context, uri string) (*http.Response, error) {
	return a.do(ctx, http.MethodHead, uri)
}
