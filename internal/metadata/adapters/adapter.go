// Package adapters translates logical metadata URIs (ipfs://, ar://,
// data:, https://) into concrete HTTP requests, or into an inline decode
// for schemes that need no network at all.
package adapters

import (
	"context"
	"net/http"
)

// Adapter knows how to turn a logical URI into a response. Send performs a
// GET; Head performs a HEAD for MIME/size probing. DataAdapter additionally
// implements InlineDecode and never touches the network.
type Adapter interface {
	Send(ctx context.Context, uri string) (*http.Response, error)
	Head(ctx context.Context, uri string) (*http.Response, error)
}

// InlineDecoder is implemented by adapters (currently only the data: URI
// adapter) that resolve a URI without any network I/O.
type InlineDecoder interface {
	InlineDecode(uri string) (mimeType string, body []byte, ok bool)
}

// Config describes how to construct and mount one adapter. MountPrefixes
// are the URI prefixes the registry dispatches on; HostPrefixes (for
// gateway-backed adapters) are the candidate rewrite targets.
type Config struct {
	MountPrefixes []string
	HostPrefixes  []string
	PoolSize      int
	MaxRetries    int
	Timeout       int // seconds
	New           func(cfg Config) (Adapter, error)
}

// Registry holds (prefix -> adapter) bindings and resolves a URI to its
// adapter by longest matching prefix.
type Registry struct {
	bindings []binding
}

type binding struct {
	prefix  string
	adapter Adapter
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Mount registers adapter under every prefix in prefixes.
func (r *Registry) Mount(adapter Adapter, prefixes []string) {
	for _, p := range prefixes {
		r.bindings = append(r.bindings, binding{prefix: p, adapter: adapter})
	}
}

// Resolve returns the adapter bound to the longest prefix of uri, or nil if
// none matches.
func (r *Registry) Resolve(uri string) Adapter {
	var best binding
	found := false
	for _, b := range r.bindings {
		if len(uri) >= len(b.prefix) && uri[:len(b.prefix)] == b.prefix {
			if !found || len(b.prefix) > len(best.prefix) {
				best = b
				found = true
			}
		}
	}
	if !found {
		return nil
	}
	return best.adapter
}
