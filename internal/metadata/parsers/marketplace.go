package parsers

import (
	"context"

	"github.com/ourzora/offchain/internal/metadata"
)

// MarketplaceStandardParser handles the common NFT-marketplace metadata
// shape: a flat JSON object with "attributes", "external_url",
// "background_color", "animation_url", and "youtube_url" fields.
type MarketplaceStandardParser struct {
	deps Deps
}

func NewMarketplaceStandardParser(deps Deps) *MarketplaceStandardParser {
	return &MarketplaceStandardParser{deps: deps}
}

func (p *MarketplaceStandardParser) Name() string                        { return "MarketplaceStandardParser" }
func (p *MarketplaceStandardParser) Stratum() Stratum                    { return StratumSchema }
func (p *MarketplaceStandardParser) Standard() metadata.MetadataStandard { return metadata.StandardMarketplace }

func (p *MarketplaceStandardParser) ShouldParse(_ context.Context, _ *metadata.Token, rawData any) bool {
	raw, ok := rawData.(map[string]any)
	if !ok {
		return false
	}
	_, hasBG := raw["background_color"]
	_, hasYT := raw["youtube_url"]
	return hasBG || hasYT
}

func (p *MarketplaceStandardParser) Parse(ctx context.Context, token *metadata.Token, rawData any) (*metadata.Metadata, error) {
	raw := rawData.(map[string]any)

	mimeType, _, err := p.deps.Fetcher.FetchMimeTypeAndSize(ctx, *token.URI)
	if err != nil {
		mimeType = ""
	}

	var attrs []metadata.Attribute
	if list, ok := raw["attributes"].([]any); ok {
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			attrs = append(attrs, metadata.Attribute{
				TraitType:   stringField(entry, "trait_type"),
				Value:       stringifyValue(entry["value"]),
				DisplayType: stringField(entry, "display_type"),
			})
		}
	}

	var image *metadata.MediaDetails
	if uri := firstStringField(raw, []string{"image", "image_data"}); uri != "" {
		image = &metadata.MediaDetails{URI: uri}
		if mt, sz, err := p.deps.Fetcher.FetchMimeTypeAndSize(ctx, uri); err == nil {
			image.MimeType = &mt
			image.Size = &sz
		}
	}

	var content *metadata.MediaDetails
	if uri := firstStringField(raw, []string{"animation_url"}); uri != "" {
		content = &metadata.MediaDetails{URI: uri}
		if mt, sz, err := p.deps.Fetcher.FetchMimeTypeAndSize(ctx, uri); err == nil {
			content.MimeType = &mt
			content.Size = &sz
		}
	}

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
		Token:            token,
		RawData:          raw,
		Attributes:       attrs,
		Name:             stringField(raw, "name"),
		Description:      stringField(raw, "description"),
		MimeType:         mimePtr,
		Image:            image,
		Content:          content,
		AdditionalFields: additionalFields(raw),
	}, nil
}

func additionalFields(raw map[string]any) []metadata.MetadataField {
	var fields []metadata.MetadataField
	add := func(key, description string) {
		v, ok := raw[key]
		if !ok {
			return
		}
		fields = append(fields, metadata.MetadataField{
			FieldName:   key,
			Type:        metadata.FieldTypeText,
			Description: description,
			Value:       v,
		})
	}
	add("external_url", "A URL that appears alongside the asset and links back to its origin site.")
	add("background_color", "Background color of the item. Must be a six-character hexadecimal without a pre-pended #.")
	add("animation_url", "A URL to a multi-media attachment for the item.")
	add("youtube_url", "A URL to a YouTube video.")
	return fields
}
