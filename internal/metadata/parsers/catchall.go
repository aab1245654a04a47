package parsers

import (
	"context"
	"fmt"

	"github.com/ourzora/offchain/internal/metadata"
)

// DefaultCatchallParser does a best-effort extraction pass on any payload
// shape. It always claims a token once a URI and raw payload are present,
// and must therefore be registered last.
type DefaultCatchallParser struct {
	deps Deps
}

func NewDefaultCatchallParser(deps Deps) *DefaultCatchallParser {
	return &DefaultCatchallParser{deps: deps}
}

func (p *DefaultCatchallParser) Name() string                          { return "DefaultCatchallParser" }
func (p *DefaultCatchallParser) Stratum() Stratum                      { return StratumCatchall }
func (p *DefaultCatchallParser) Standard() metadata.MetadataStandard   { return metadata.StandardUnknown }

func (p *DefaultCatchallParser) ShouldParse(_ context.Context, token *metadata.Token, rawData any) bool {
	return token.URI != nil && *token.URI != "" && rawData != nil
}

func (p *DefaultCatchallParser) Parse(ctx context.Context, token *metadata.Token, rawData any) (*metadata.Metadata, error) {
	raw, ok := rawData.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("catch-all parser requires a JSON object payload, got %T", rawData)
	}

	mimeType, _, err := p.deps.Fetcher.FetchMimeTypeAndSize(ctx, *token.URI)
	if err != nil {
		mimeType = ""
	}

	image := mediaDetails(ctx, p.deps, raw, "image", []string{"image", "image_url", "imageUrl"}, "image_details")
	content := mediaDetails(ctx, p.deps, raw, "content", []string{"animation_url", "animation"}, "animation_details")

	if image != nil && image.MimeType != nil && *image.MimeType != "" {
		mimeType = *image.MimeType
	}
	if content != nil && content.MimeType != nil && *content.MimeType != "" {
		mimeType = *content.MimeType
	}

	var mimePtr *string
	if mimeType != "" {
		mimePtr = &mimeType
	}

	return &metadata.Metadata{
		Token:      token,
		RawData:    raw,
		Attributes: extractAttributes(raw),
		Name:       stringField(raw, "name"),
		Description: stringField(raw, "description"),
		MimeType:   mimePtr,
		Image:      image,
		Content:    content,
	}, nil
}

// stringField returns raw[key] as a *string only if it is actually a
// string; any other JSON type (or absence) yields nil.
func stringField(raw map[string]any, key string) *string {
	if v, ok := raw[key].(string); ok {
		return &v
	}
	return nil
}

// firstStringField returns the first key in keys present in raw as a
// string.
func firstStringField(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractAttributes merges attribute-like entries from three possible raw
// shapes: "properties" (object, key -> value-or-{description,type}),
// "attributes" (array of {trait_type, value, display_type}), and "traits"
// (same shape as attributes). Missing sources contribute nothing.
func extractAttributes(raw map[string]any) []metadata.Attribute {
	var attrs []metadata.Attribute

	if props, ok := raw["properties"].(map[string]any); ok {
		for key, value := range props {
			k := key
			switch v := value.(type) {
			case string:
				attrs = append(attrs, metadata.Attribute{TraitType: &k, Value: &v})
			case map[string]any:
				var valPtr, dispPtr *string
				if d, ok := v["description"].(string); ok {
					valPtr = &d
				}
				if t, ok := v["type"].(string); ok {
					dispPtr = &t
				}
				attrs = append(attrs, metadata.Attribute{TraitType: &k, Value: valPtr, DisplayType: dispPtr})
			}
		}
	}

	attrs = append(attrs, extractAttributeList(raw, "attributes")...)
	attrs = append(attrs, extractAttributeList(raw, "traits")...)

	return attrs
}

func extractAttributeList(raw map[string]any, key string) []metadata.Attribute {
	list, ok := raw[key].([]any)
	if !ok {
		return nil
	}
	var out []metadata.Attribute
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, metadata.Attribute{
			TraitType:   stringField(entry, "trait_type"),
			Value:       stringifyValue(entry["value"]),
			DisplayType: stringField(entry, "display_type"),
		})
	}
	return out
}

// stringifyValue renders an attribute value as a string regardless of its
// original JSON type, matching the canonical model's "value is always
// stringified" rule.
func stringifyValue(v any) *string {
	if v == nil {
		return nil
	}
	s := fmt.Sprintf("%v", v)
	return &s
}

// mediaDetails resolves a MediaDetails from the first present of
// candidateKeys, probing MIME/size via the fetcher and letting a sibling
// "<key>_details" object override size/sha256 when present. Probe failures
// are swallowed, matching spec.md's error-handling policy for media probes.
func mediaDetails(ctx context.Context, deps Deps, raw map[string]any, _ string, candidateKeys []string, detailsKey string) *metadata.MediaDetails {
	uri := firstStringField(raw, candidateKeys)
	if uri == "" {
		return nil
	}
	details := &metadata.MediaDetails{URI: uri}
	if mimeType, size, err := deps.Fetcher.FetchMimeTypeAndSize(ctx, uri); err == nil {
		details.MimeType = &mimeType
		details.Size = &size
	}
	if overrides, ok := raw[detailsKey].(map[string]any); ok {
		if sz, ok := overrides["size"]; ok {
			if f, ok := toInt64(sz); ok {
				details.Size = &f
			}
		}
		if sha, ok := overrides["sha256"].(string); ok {
			details.SHA256 = &sha
		}
	}
	return details
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
