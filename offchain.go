// Package offchain is the public surface of the metadata resolution
// pipeline: a Pipeline constructor, Run/AsyncRun, and a GetTokenMetadata
// convenience function that builds a default pipeline and resolves a
// single token. Everything else lives under internal/ since spec.md §1
// treats the concrete collection-parser set, logging configuration, and
// package metadata as external concerns, not part of the core.
package offchain

import (
	"context"
	"math/big"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/cache"
	"github.com/ourzora/offchain/internal/metadata/pipeline"
)

type (
	Token                   = metadata.Token
	Metadata                = metadata.Metadata
	MediaDetails            = metadata.MediaDetails
	Attribute               = metadata.Attribute
	MetadataField           = metadata.MetadataField
	MetadataProcessingError = metadata.MetadataProcessingError
	Result                  = metadata.Result
	Pipeline                = pipeline.Pipeline
	Option                  = pipeline.Option
	SelectorFunc            = pipeline.SelectorFunc
	Cache                   = cache.Cache
)

var (
	NewToken    = metadata.NewToken
	NewPipeline = pipeline.New
	NewCache    = cache.New
)

// WithRPCURL, WithFetcher, WithContractCaller, WithParsers,
// WithAdapterConfigs, WithCollectionAddresses, WithCache, WithRPCMaxRetries,
// WithRPCBackoff, WithRPCChunkSize, WithIPFSGateways, and WithArweaveGateway
// configure a Pipeline; re-exported so callers never need to import the
// internal package directly.
var (
	WithRPCURL              = pipeline.WithRPCURL
	WithFetcher             = pipeline.WithFetcher
	WithContractCaller      = pipeline.WithContractCaller
	WithParsers             = pipeline.WithParsers
	WithAdapterConfigs      = pipeline.WithAdapterConfigs
	WithCollectionAddresses = pipeline.WithCollectionAddresses
	WithCache               = pipeline.WithCache
	WithRPCMaxRetries       = pipeline.WithRPCMaxRetries
	WithRPCBackoff          = pipeline.WithRPCBackoff
	WithRPCChunkSize        = pipeline.WithRPCChunkSize
	WithIPFSGateways        = pipeline.WithIPFSGateways
	WithArweaveGateway      = pipeline.WithArweaveGateway
)

// GetTokenMetadata constructs a default Pipeline and resolves a single
// token, matching the reference library's get_token_metadata convenience
// function.
func GetTokenMetadata(ctx context.Context, collectionAddress string, tokenID *big.Int, chainIdentifier string, uri *string) (Result, error) {
	p, err := pipeline.New()
	if err != nil {
		return Result{}, err
	}
	token, err := metadata.NewToken(collectionAddress, tokenID, chainIdentifier, uri)
	if err != nil {
		return Result{}, err
	}
	return p.FetchTokenMetadata(ctx, token, nil), nil
}
