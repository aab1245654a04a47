package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ourzora/offchain/internal/metadata"
)

// ExampleCollectionParser is a worked example of a collection-specific
// parser: it claims a fixed set of contract addresses and resolves media
// and attributes via dedicated on-chain view functions rather than a
// generic JSON payload. Concrete collection parsers are treated as
// external collaborators and intentionally out of scope for this
// framework; this one exists only to exercise the collection stratum end
// to end.
type ExampleCollectionParser struct {
	deps      Deps
	addresses []string
}

// NewExampleCollectionParser registers for the given (lowercased) contract
// addresses.
func NewExampleCollectionParser(deps Deps, addresses []string) *ExampleCollectionParser {
	lowered := make([]string, len(addresses))
	for i, a := range addresses {
		lowered[i] = strings.ToLower(a)
	}
	return &ExampleCollectionParser{deps: deps, addresses: lowered}
}

func (p *ExampleCollectionParser) Name() string                        { return "ExampleCollectionParser" }
func (p *ExampleCollectionParser) Stratum() Stratum                    { return StratumCollection }
func (p *ExampleCollectionParser) Standard() metadata.MetadataStandard { return metadata.StandardCollection }
func (p *ExampleCollectionParser) Addresses() []string                 { return p.addresses }

func (p *ExampleCollectionParser) ShouldParse(_ context.Context, token *metadata.Token, _ any) bool {
	addr := strings.ToLower(token.CollectionAddress)
	for _, a := range p.addresses {
		if a == addr {
			return true
		}
	}
	return false
}

// Parse fetches an on-chain SVG image (via a hypothetical
// "imageSVG(uint256)" view) and a flat list of on-chain attribute strings
// (via "attributeList(uint256)"), bypassing the raw JSON payload entirely —
// the pattern most real punk/generative-art collection parsers follow.
func (p *ExampleCollectionParser) Parse(ctx context.Context, token *metadata.Token, _ any) (*metadata.Metadata, error) {
	svgResults, err := p.deps.Contract.SingleAddressSingleFnManyArgs(
		ctx, token.CollectionAddress, "imageSVG(uint256)", []string{"string"},
		[][]any{{token.TokenID}}, "latest",
	)
	if err != nil {
		return nil, fmt.Errorf("fetching on-chain image: %w", err)
	}
	var image *metadata.MediaDetails
	if len(svgResults) > 0 && svgResults[0] != nil {
		svg, _ := svgResults[0].(string)
		mt := "image/svg+xml"
		size := int64(len(svg))
		image = &metadata.MediaDetails{URI: token.String(), MimeType: &mt, Size: &size}
	}

	attrResults, err := p.deps.Contract.SingleAddressSingleFnManyArgs(
		ctx, token.CollectionAddress, "attributeList(uint256)", []string{"string"},
		[][]any{{token.TokenID}}, "latest",
	)
	if err != nil {
		return nil, fmt.Errorf("fetching on-chain attributes: %w", err)
	}
	var attrs []metadata.Attribute
	if len(attrResults) > 0 && attrResults[0] != nil {
		raw, _ := attrResults[0].(string)
		for _, trait := range strings.Split(raw, ",") {
			trait = strings.TrimSpace(trait)
			if trait == "" {
				continue
			}
			t := trait
			attrs = append(attrs, metadata.Attribute{TraitType: &t})
		}
	}

	return &metadata.Metadata{
		Token:      token,
		RawData:    map[string]any{},
		Attributes: attrs,
		Image:      image,
	}, nil
}
