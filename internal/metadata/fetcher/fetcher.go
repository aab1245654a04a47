// Package fetcher provides the uniform fetch API over scheme adapters:
// MIME/size probing and content retrieval. Each operation has one
// context-aware method, called by both the worker-pool and the fan-out
// pipeline backends.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ourzora/offchain/internal/metadata/adapters"
)

const defaultMaxBytes = 100 << 20 // 100MB safety cap on content reads.

// contentCache is the subset of cache.Cache that FetchContent needs. Defined
// here rather than importing the cache package directly, so fetcher has no
// dependency on the cache's Redis client.
type contentCache interface {
	Get(ctx context.Context, uri string) (any, bool)
	Set(ctx context.Context, uri string, payload any) error
}

// Fetcher is the single entry point the pipeline and parsers use to reach
// into whatever transport a URI's scheme implies.
type Fetcher struct {
	registry   *adapters.Registry
	httpClient *http.Client
	cache      contentCache
	Timeout    time.Duration
	MaxRetries int
}

// New constructs a Fetcher with no adapters mounted; call RegisterAdapter
// (or adapters.Mount against Registry()) to wire scheme handling, as the
// pipeline does with adapters.DefaultConfigs().
func New() *Fetcher {
	return &Fetcher{
		registry:   adapters.NewRegistry(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		Timeout:    10 * time.Second,
	}
}

// Registry exposes the underlying adapter registry for mounting.
func (f *Fetcher) Registry() *adapters.Registry {
	return f.registry
}

// SetCache attaches a content cache in front of FetchContent. A nil cache
// (the default) disables caching entirely.
func (f *Fetcher) SetCache(c contentCache) {
	f.cache = c
}

// RegisterAdapter mounts adapter under prefix, matching the reference
// pipeline's mount_adapter(adapter, url_prefixes) call.
func (f *Fetcher) RegisterAdapter(adapter adapters.Adapter, prefix string) {
	f.registry.Mount(adapter, []string{prefix})
}

// FetchMimeTypeAndSize issues a HEAD against uri; if the status is >= 300,
// it retries with GET. On success it returns the content-type stripped of
// parameters (e.g. "application/json; charset=utf-8" -> "application/json")
// and the content-length, defaulting size to 0 when absent.
func (f *Fetcher) FetchMimeTypeAndSize(ctx context.Context, uri string) (string, int64, error) {
	adapter := f.registry.Resolve(uri)

	if decoder, ok := adapter.(adapters.InlineDecoder); ok {
		mimeType, body, decoded := decoder.InlineDecode(uri)
		if !decoded {
			return "", 0, fmt.Errorf("malformed inline uri: %s", uri)
		}
		return stripMimeParams(mimeType), int64(len(body)), nil
	}

	resp, err := f.head(ctx, adapter, uri)
	if err != nil || resp.StatusCode >= 300 {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = f.send(ctx, adapter, uri)
		if err != nil {
			return "", 0, err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("fetch mime/size: %s returned status %d", uri, resp.StatusCode)
	}

	contentType := stripMimeParams(resp.Header.Get("Content-Type"))
	size := int64(0)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		fmt.Sscanf(cl, "%d", &size)
	}
	return contentType, size, nil
}

// FetchContent issues a GET against uri and returns either a decoded JSON
// object (when the body begins with '{') or the raw text. When a cache is
// attached via SetCache, a hit short-circuits the network entirely and a
// fresh fetch is written back on success.
func (f *Fetcher) FetchContent(ctx context.Context, uri string) (any, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(ctx, uri); ok {
			return cached, nil
		}
	}

	adapter := f.registry.Resolve(uri)

	if decoder, ok := adapter.(adapters.InlineDecoder); ok {
		_, body, decoded := decoder.InlineDecode(uri)
		if !decoded {
			return nil, fmt.Errorf("malformed inline uri: %s", uri)
		}
		parsed, err := parseBody(body)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	}

	resp, err := f.send(ctx, adapter, uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch content: %s returned status %d", uri, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxBytes))
	if err != nil {
		return nil, err
	}
	parsed, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		// Best-effort: a cache write failure must never fail a fetch that
		// otherwise succeeded.
		_ = f.cache.Set(ctx, uri, parsed)
	}
	return parsed, nil
}

func parseBody(body []byte) (any, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var v map[string]any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return trimmed, nil
}

func (f *Fetcher) head(ctx context.Context, adapter adapters.Adapter, uri string) (*http.Response, error) {
	if adapter != nil {
		return adapter.Head(ctx, uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return nil, err
	}
	return f.httpClient.Do(req)
}

func (f *Fetcher) send(ctx context.Context, adapter adapters.Adapter, uri string) (*http.Response, error) {
	if adapter != nil {
		return adapter.Send(ctx, uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	return f.httpClient.Do(req)
}

func stripMimeParams(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return mediaType
}
