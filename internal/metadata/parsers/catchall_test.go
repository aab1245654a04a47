package parsers

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"net/http"
	"testing"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/fetcher"
)

// mimeTableAdapter answers HEAD/GET probes with a canned mime type and size
// per URI, so media-probe behavior can be tested without the network.
type mimeTableAdapter struct {
	byURI map[string]struct {
		mime string
		size int64
	}
}

func (a *mimeTableAdapter) Head(_ context.Context, uri string) (*http.Response, error) {
	entry, ok := a.byURI[uri]
	if !ok {
		return &http.Response{StatusCode: 404, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	h := http.Header{}
	h.Set("Content-Type", entry.mime)
	h.Set("Content-Length", itoa(entry.size))
	return &http.Response{StatusCode: 200, Header: h, Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

func (a *mimeTableAdapter) Send(ctx context.Context, uri string) (*http.Response, error) {
	return a.Head(ctx, uri)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	buf := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

func newTestFetcher(entries map[string]struct {
	mime string
	size int64
}) *fetcher.Fetcher {
	f := fetcher.New()
	f.RegisterAdapter(&mimeTableAdapter{byURI: entries}, "https://")
	return f
}

func testToken(t *testing.T, uri string) *metadata.Token {
	t.Helper()
	tok, err := metadata.NewToken("0xabc", big.NewInt(1), "", &uri)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestDefaultCatchallParserExtractsCanonicalFields(t *testing.T) {
	uri := "https://example.com/1.json"
	f := newTestFetcher(map[string]struct {
		mime string
		size int64
	}{
		uri: {"application/json", 10},
		"https://example.com/img.png": {"image/png", 1024},
	})
	deps := Deps{Fetcher: f}
	p := NewDefaultCatchallParser(deps)

	raw := map[string]any{
		"name":        "nyx",
		"description": "a token",
		"image":       "https://example.com/img.png",
		"attributes": []any{
			map[string]any{"trait_type": "background", "value": "blue"},
		},
	}
	token := testToken(t, uri)

	if !p.ShouldParse(context.Background(), token, raw) {
		t.Fatal("expected catchall parser to claim a token with a uri and payload")
	}
	m, err := p.Parse(context.Background(), token, raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name == nil || *m.Name != "nyx" {
		t.Fatalf("unexpected name: %v", m.Name)
	}
	if m.Image == nil || m.Image.URI != "https://example.com/img.png" {
		t.Fatalf("unexpected image: %v", m.Image)
	}
	if *m.Image.MimeType != "image/png" {
		t.Fatalf("unexpected image mime type: %v", *m.Image.MimeType)
	}
	if len(m.Attributes) != 1 || *m.Attributes[0].TraitType != "background" {
		t.Fatalf("unexpected attributes: %+v", m.Attributes)
	}
}

func TestDefaultCatchallParserContentMimeOverridesImage(t *testing.T) {
	uri := "https://example.com/1.json"
	imageURI := "https://example.com/img.png"
	contentURI := "https://example.com/anim.mp4"
	f := newTestFetcher(map[string]struct {
		mime string
		size int64
	}{
		uri:        {"application/json", 10},
		imageURI:   {"image/png", 1024},
		contentURI: {"video/mp4", 2048},
	})
	deps := Deps{Fetcher: f}
	p := NewDefaultCatchallParser(deps)

	raw := map[string]any{
		"name":          "nyx",
		"image":         imageURI,
		"animation_url": contentURI,
	}
	token := testToken(t, uri)

	m, err := p.Parse(context.Background(), token, raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.MimeType == nil || *m.MimeType != "video/mp4" {
		t.Fatalf("expected content mime type to win over image, got %v", m.MimeType)
	}
}

func TestDefaultCatchallParserRejectsNonObjectPayload(t *testing.T) {
	f := newTestFetcher(nil)
	deps := Deps{Fetcher: f}
	p := NewDefaultCatchallParser(deps)
	token := testToken(t, "https://example.com/1.json")

	if _, err := p.Parse(context.Background(), token, "not a json object"); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}

func TestDefaultCatchallParserMergesPropertiesAttributesAndTraits(t *testing.T) {
	f := newTestFetcher(nil)
	deps := Deps{Fetcher: f}
	p := NewDefaultCatchallParser(deps)
	token := testToken(t, "https://example.com/1.json")

	raw := map[string]any{
		"properties": map[string]any{"rarity": "legendary"},
		"attributes": []any{map[string]any{"trait_type": "eyes", "value": "green"}},
		"traits":     []any{map[string]any{"trait_type": "hat", "value": "none"}},
	}
	m, err := p.Parse(context.Background(), token, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Attributes) != 3 {
		t.Fatalf("expected attributes merged from all three sources, got %d", len(m.Attributes))
	}
}
