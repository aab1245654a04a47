// Package pipeline implements the per-batch orchestrator: URI acquisition,
// content fetch, parser dispatch, and the two concurrency backends (a
// bounded worker pool and a cooperative fan-out) that drive it over many
// tokens at once.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/adapters"
	"github.com/ourzora/offchain/internal/metadata/cache"
	"github.com/ourzora/offchain/internal/metadata/contract"
	"github.com/ourzora/offchain/internal/metadata/fetcher"
	"github.com/ourzora/offchain/internal/metadata/parsers"
	"github.com/ourzora/offchain/internal/metadata/rpc"
)

// SelectorFunc picks one result out of several candidates gathered for a
// single token (used when more than one parser could plausibly claim it).
type SelectorFunc func([]metadata.Result) metadata.Result

// Pipeline orchestrates per-token metadata resolution across a batch of
// tokens. Constructed once and reused for the lifetime of the process.
type Pipeline struct {
	Contract *contract.Caller
	Fetcher  *fetcher.Fetcher
	Parsers  []parsers.Parser
}

// Option configures a Pipeline at construction time.
type Option func(*config)

type config struct {
	contract       *contract.Caller
	fetcher        *fetcher.Fetcher
	parserList     []parsers.Parser
	adapterConfigs []adapters.Config
	rpcURL         string

	collectionAddresses []string
	cache               *cache.Cache

	rpcMaxRetries *int
	rpcMinBackoff *time.Duration
	rpcMaxBackoff *time.Duration
	rpcChunkSize  *int

	ipfsGateways   []string
	arweaveGateway string
}

func WithContractCaller(c *contract.Caller) Option { return func(cfg *config) { cfg.contract = c } }
func WithFetcher(f *fetcher.Fetcher) Option         { return func(cfg *config) { cfg.fetcher = f } }
func WithParsers(p []parsers.Parser) Option         { return func(cfg *config) { cfg.parserList = p } }
func WithAdapterConfigs(a []adapters.Config) Option { return func(cfg *config) { cfg.adapterConfigs = a } }
func WithRPCURL(url string) Option                  { return func(cfg *config) { cfg.rpcURL = url } }

// WithCollectionAddresses makes New register the example collection parser
// against this address list, ahead of the marketplace-standard and
// catch-all parsers in dispatch order. A nil or empty list leaves the
// collection stratum empty.
func WithCollectionAddresses(addresses []string) Option {
	return func(cfg *config) { cfg.collectionAddresses = addresses }
}

// WithCache attaches a content cache in front of the default Fetcher's
// FetchContent. Has no effect when combined with WithFetcher, since the
// caller is then responsible for the Fetcher's cache wiring.
func WithCache(c *cache.Cache) Option { return func(cfg *config) { cfg.cache = c } }

// WithRPCMaxRetries overrides the default contract RPC client's retry count.
func WithRPCMaxRetries(n int) Option { return func(cfg *config) { cfg.rpcMaxRetries = &n } }

// WithRPCBackoff overrides the default contract RPC client's exponential
// backoff bounds.
func WithRPCBackoff(min, max time.Duration) Option {
	return func(cfg *config) { cfg.rpcMinBackoff = &min; cfg.rpcMaxBackoff = &max }
}

// WithRPCChunkSize overrides how many eth_call params the contract caller
// groups into one JSON-RPC batch request before splitting into concurrent
// sub-batches.
func WithRPCChunkSize(n int) Option { return func(cfg *config) { cfg.rpcChunkSize = &n } }

// WithIPFSGateways overrides the default adapter set's IPFS gateway
// rotation list.
func WithIPFSGateways(gateways []string) Option {
	return func(cfg *config) { cfg.ipfsGateways = gateways }
}

// WithArweaveGateway overrides the default adapter set's Arweave gateway.
func WithArweaveGateway(gateway string) Option {
	return func(cfg *config) { cfg.arweaveGateway = gateway }
}

// New builds a Pipeline. With no options it wires the default HTTP/IPFS/
// Arweave/data adapters, the default catch-all and marketplace-standard
// parsers, and a contract caller against the public mainnet endpoint.
func New(opts ...Option) (*Pipeline, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	f := cfg.fetcher
	if f == nil {
		f = fetcher.New()
		adapterConfigs := cfg.adapterConfigs
		if adapterConfigs == nil {
			adapterConfigs = adapters.DefaultConfigs(cfg.ipfsGateways, cfg.arweaveGateway)
		}
		if err := adapters.Mount(f.Registry(), adapterConfigs); err != nil {
			return nil, fmt.Errorf("mounting adapters: %w", err)
		}
		if cfg.cache != nil {
			f.SetCache(cfg.cache)
		}
	}

	caller := cfg.contract
	if caller == nil {
		client := rpc.New(cfg.rpcURL)
		if cfg.rpcMaxRetries != nil {
			client.MaxRetries = *cfg.rpcMaxRetries
		}
		if cfg.rpcMinBackoff != nil {
			client.MinBackoff = *cfg.rpcMinBackoff
		}
		if cfg.rpcMaxBackoff != nil {
			client.MaxBackoff = *cfg.rpcMaxBackoff
		}
		caller = contract.New(client)
		if cfg.rpcChunkSize != nil {
			caller.ChunkSize = *cfg.rpcChunkSize
		}
	}

	parserList := cfg.parserList
	if parserList == nil {
		deps := parsers.Deps{Fetcher: f, Contract: caller}
		registry := parsers.NewRegistry()
		if len(cfg.collectionAddresses) > 0 {
			if err := registry.Register(parsers.NewExampleCollectionParser(deps, cfg.collectionAddresses)); err != nil {
				return nil, fmt.Errorf("registering collection parser: %w", err)
			}
		}
		if err := registry.Register(parsers.NewMarketplaceStandardParser(deps)); err != nil {
			return nil, fmt.Errorf("registering marketplace parser: %w", err)
		}
		if err := registry.Register(parsers.NewDefaultCatchallParser(deps)); err != nil {
			return nil, fmt.Errorf("registering catch-all parser: %w", err)
		}
		parserList = registry.All()
	}

	return &Pipeline{Contract: caller, Fetcher: f, Parsers: parserList}, nil
}

// FetchTokenURI resolves a token's metadata URI via an on-chain view call
// (default "tokenURI(uint256)").
func (p *Pipeline) FetchTokenURI(ctx context.Context, token *metadata.Token, functionSig string) (*string, error) {
	if functionSig == "" {
		functionSig = "tokenURI(uint256)"
	}
	results, err := p.Contract.SingleAddressSingleFnManyArgs(
		ctx, token.CollectionAddress, functionSig, []string{"string"},
		[][]any{{token.TokenID}}, "latest",
	)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == nil {
		return nil, nil
	}
	uri, ok := results[0].(string)
	if !ok {
		return nil, nil
	}
	return &uri, nil
}

// FetchTokenMetadata resolves one token end to end: acquire its URI if
// missing via an on-chain call, fetch its raw content, dispatch to parsers
// in stratified order, and return either the first Metadata produced or,
// with selectorFn set, the selector's choice among every candidate
// gathered.
func (p *Pipeline) FetchTokenMetadata(ctx context.Context, token *metadata.Token, selectorFn SelectorFunc) metadata.Result {
	var candidates []metadata.Result

	if token.URI == nil {
		uri, err := p.FetchTokenURI(ctx, token, "")
		if err != nil {
			msg := fmt.Sprintf("%s Failed to fetch token uri. %s", token.String(), err.Error())
			log.Print(msg)
			candidates = append(candidates, metadata.FromError(metadata.FromTokenAndError(token, "FetchError", fmt.Errorf("%s", msg))))
		} else {
			token.URI = uri
		}
	}

	return p.resolveFromURI(ctx, token, selectorFn, candidates)
}

// fetchTokenMetadataFromURI resolves one token using only the URI already
// present on it: no on-chain tokenURI call is attempted. Used by AsyncRun,
// which per its contract requires callers to supply token.URI up front.
func (p *Pipeline) fetchTokenMetadataFromURI(ctx context.Context, token *metadata.Token, selectorFn SelectorFunc) metadata.Result {
	if token.URI == nil {
		msg := fmt.Sprintf("%s Missing token uri.", token.String())
		return metadata.FromError(metadata.FromTokenAndError(token, "MissingURI", fmt.Errorf("%s", msg)))
	}
	return p.resolveFromURI(ctx, token, selectorFn, nil)
}

// resolveFromURI fetches raw content for token.URI (if set) and dispatches
// it to parsers in stratified order, appending to any candidates already
// gathered (e.g. a failed URI lookup).
func (p *Pipeline) resolveFromURI(ctx context.Context, token *metadata.Token, selectorFn SelectorFunc, candidates []metadata.Result) metadata.Result {
	var rawData any
	if token.URI != nil && *token.URI != "" {
		data, err := p.Fetcher.FetchContent(ctx, *token.URI)
		if err != nil {
			msg := fmt.Sprintf("%s Failed to parse token uri: %s. %s", token.String(), *token.URI, err.Error())
			log.Print(msg)
			candidates = append(candidates, metadata.FromError(metadata.FromTokenAndError(token, "FetchError", fmt.Errorf("%s", msg))))
		} else {
			rawData = data
		}
	}

	for _, parser := range p.Parsers {
		if !parser.ShouldParse(ctx, token, rawData) {
			continue
		}
		result := p.applyParser(ctx, parser, token, rawData)
		if result.Metadata != nil && selectorFn == nil {
			return result
		}
		candidates = append(candidates, result)
	}

	if len(candidates) == 0 {
		candidates = append(candidates, metadata.FromError(metadata.FromTokenAndError(
			token, "NoParsersFound", fmt.Errorf("%s No parsers found.", token.String()),
		)))
	}

	if selectorFn != nil {
		return selectorFn(candidates)
	}
	return candidates[0]
}

func (p *Pipeline) applyParser(ctx context.Context, parser parsers.Parser, token *metadata.Token, rawData any) (result metadata.Result) {
	defer func() {
		// A parser panic (e.g. a bad type assertion in a collection
		// parser's decode path) becomes a ProcessingError candidate rather
		// than aborting the whole batch.
		if r := recover(); r != nil {
			result = metadata.FromError(metadata.FromTokenAndError(token, "ParserPanic", fmt.Errorf("%v", r)))
		}
	}()
	m, err := parser.Parse(ctx, token, rawData)
	if err != nil {
		return metadata.FromError(metadata.FromTokenAndError(token, fmt.Sprintf("%T", err), err))
	}
	if m == nil {
		return metadata.FromError(metadata.FromTokenAndError(token, "NoParsersFound", fmt.Errorf("%s No parsers found.", token.String())))
	}
	standard := parser.Standard()
	m.Standard = &standard
	return metadata.FromMetadata(m)
}
