package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DataAdapter decodes data: URIs inline per RFC 2397, performing no network
// I/O. It satisfies Adapter (so the registry can mount it like any other
// adapter) but callers should prefer InlineDecode directly.
type DataAdapter struct{}

func NewDataAdapter(Config) (Adapter, error) {
	return &DataAdapter{}, nil
}

// InlineDecode parses "data:<mime>[;base64],<payload>". When the payload is
// marked base64 it is decoded; otherwise it is treated as a URL-encoded
// literal.
func (a *DataAdapter) InlineDecode(uri string) (string, []byte, bool) {
	rest := strings.TrimPrefix(uri, "data:")
	if rest == uri {
		return "", nil, false
	}
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", nil, false
	}
	header, payload := rest[:comma], rest[comma+1:]

	mimeType := header
	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		isBase64 = true
		mimeType = strings.TrimSuffix(header, ";base64")
	}
	if mimeType == "" {
		mimeType = "text/plain;charset=US-ASCII"
	}

	if isBase64 {
		body, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, false
		}
		return mimeType, body, true
	}

	unescaped, err := url.QueryUnescape(payload)
	if err != nil {
		unescaped = payload
	}
	return mimeType, []byte(unescaped), true
}

func (a *DataAdapter) response(uri string) (*http.Response, error) {
	mimeType, body, ok := a.InlineDecode(uri)
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
	resp.Header.Set("Content-Type", mimeType)
	resp.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	return resp, nil
}

func (a *DataAdapter) Send(_ context.Context, uri string) (*http.Response, error) {
	return a.response(uri)
}

func (a *DataAdapter) Head(_ context.Context, uri string) (*http.Response, error) {
	return a.response(uri)
}
