package adapters

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
)

// IPFSAdapter rewrites ipfs:// and https://.../ipfs/... URIs against a
// rotating set of gateways before delegating to an embedded HTTPAdapter.
type IPFSAdapter struct {
	http     *HTTPAdapter
	gateways []string
	// Rotate picks a gateway index in [0, n). Defaults to a random choice;
	// tests inject a deterministic function instead, per the pipeline's
	// documented non-determinism in gateway selection.
	Rotate func(n int) int
}

// NewIPFSAdapter constructs an IPFS adapter. cfg.HostPrefixes is the
// gateway list; every entry must end in "/" or construction fails.
func NewIPFSAdapter(cfg Config) (Adapter, error) {
	gateways := cfg.HostPrefixes
	if len(gateways) == 0 {
		gateways = []string{"https://gateway.pinata.cloud/ipfs/"}
	}
	for _, g := range gateways {
		if !strings.HasSuffix(g, "/") {
			return nil, fmt.Errorf("ipfs gateway %q must have a trailing slash", g)
		}
	}
	h, err := NewHTTPAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return &IPFSAdapter{
		http:     h.(*HTTPAdapter),
		gateways: gateways,
		Rotate:   rand.Intn,
	}, nil
}

func (a *IPFSAdapter) pickGateway() string {
	if len(a.gateways) == 1 {
		return a.gateways[0]
	}
	return a.gateways[a.Rotate(len(a.gateways))]
}

// BuildRequestURL rewrites an ipfs:// or .../ipfs/... URI against gateway.
// This is the byte-exact rewrite rule spec.md §4.1 and §8 pin down: no run
// of two or more consecutive "/" may appear after the scheme in the
// result.
func BuildRequestURL(gateway, requestURI string) string {
	switch {
	case strings.HasPrefix(requestURI, "ipfs://"):
		rest := strings.TrimPrefix(requestURI, "ipfs://")
		var host, path string
		if idx := strings.Index(rest, "/"); idx >= 0 {
			host, path = rest[:idx], rest[idx:]
		} else {
			host = rest
		}
		url := gateway
		if host != "ipfs" {
			url += joinNoDup(url, host, false)
		}
		if path != "" {
			url += joinNoDup(url, path, true)
		}
		return url
	case strings.HasPrefix(requestURI, "https://") && strings.Contains(requestURI, "ipfs"):
		path := extractPathAfterHost(requestURI)
		path = strings.TrimPrefix(path, "/")
		path = strings.TrimPrefix(path, "ipfs/")
		return gateway + path
	default:
		return gateway + requestURI
	}
}

// joinNoDup returns the piece to append to url so the join never produces
// "//". pieceIsPath indicates piece already starts with "/".
func joinNoDup(url, piece string, pieceIsPath bool) string {
	if strings.HasSuffix(url, "/") && strings.HasPrefix(piece, "/") {
		return piece[1:]
	}
	return piece
}

func extractPathAfterHost(uri string) string {
	rest := strings.TrimPrefix(uri, "https://")
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[idx:]
	}
	return ""
}

func (a *IPFSAdapter) Send(ctx context.Context, uri string) (*http.Response, error) {
	return a.http.Send(ctx, BuildRequestURL(a.pickGateway(), uri))
}

func (a *IPFSAdapter) Head(ctx context.Context, uri string) (*http.Response, error) {
	return a.http.Head(ctx, BuildRequestURL(a.pickGateway(), uri))
}
