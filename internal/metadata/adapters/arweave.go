package adapters

import (
	"context"
	"net/http"
	"strings"
)

// ArweaveAdapter rewrites ar:// URIs to an Arweave gateway before
// delegating to an embedded HTTPAdapter.
type ArweaveAdapter struct {
	http    *HTTPAdapter
	gateway string
}

func NewArweaveAdapter(cfg Config) (Adapter, error) {
	gateway := "https://arweave.net/"
	if len(cfg.HostPrefixes) > 0 {
		gateway = cfg.HostPrefixes[0]
	}
	h, err := NewHTTPAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return &ArweaveAdapter{http: h.(*HTTPAdapter), gateway: gateway}, nil
}

func (a *ArweaveAdapter) rewrite(uri string) string {
	rest := strings.TrimPrefix(uri, "ar://")
	if strings.HasSuffix(a.gateway, "/") && strings.HasPrefix(rest, "/") {
		rest = rest[1:]
	}
	return a.gateway + rest
}

func (a *ArweaveAdapter) Send(ctx context.Context, uri string) (*http.Response, error) {
	return a.http.Send(ctx, a.rewrite(uri))
}

func (a *ArweaveAdapter) Head(ctx context.Context, uri string) (*http.Response, error) {
	return a.http.Head(ctx, a.rewrite(uri))
}
