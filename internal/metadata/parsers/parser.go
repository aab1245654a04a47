// Package parsers implements the stratified interpreter set that turns a
// fetched raw payload into canonical Metadata: collection-specific parsers,
// schema-shape parsers, and a catch-all that always claims the token.
package parsers

import (
	"context"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/contract"
	"github.com/ourzora/offchain/internal/metadata/fetcher"
)

// Stratum orders dispatch: collection parsers run first, then schema
// parsers, then catch-all parsers last.
type Stratum int

const (
	StratumCollection Stratum = iota
	StratumSchema
	StratumCatchall
)

// Parser is the narrow capability every parser variant implements. There is
// no reflection-based dispatch: the registry holds a closed set of these
// and the pipeline iterates it as a plain slice.
type Parser interface {
	// Name is the parser's registry-unique identifier.
	Name() string
	// Stratum reports which stratum this parser belongs to.
	Stratum() Stratum
	// Standard is the tag stamped onto any Metadata this parser produces.
	Standard() metadata.MetadataStandard
	// ShouldParse reports whether this parser claims the token.
	ShouldParse(ctx context.Context, token *metadata.Token, rawData any) bool
	// Parse extracts canonical Metadata from rawData. Only called when
	// ShouldParse returned true.
	Parse(ctx context.Context, token *metadata.Token, rawData any) (*metadata.Metadata, error)
}

// CollectionAddresses is implemented by collection-stratum parsers to
// declare which contract addresses (lowercased) they claim.
type CollectionAddresses interface {
	Addresses() []string
}

// Deps bundles the shared, re-entrant collaborators every parser is
// constructed with: a fetcher for media probes and content retrieval, and a
// contract caller for any on-chain reads a collection parser needs.
type Deps struct {
	Fetcher  *fetcher.Fetcher
	Contract *contract.Caller
}
