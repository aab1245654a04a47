package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ourzora/offchain/internal/metadata"
)

const chunkSize = 15

// Run resolves metadata for every token in tokens, preserving input order.
// With parallelize, tokens are dispatched across a bounded worker pool
// sized per spec (min(N, 2*NumCPU+1)), chunked into batches of 15 to bound
// burst concurrency against upstream gateways. Without it, tokens are
// resolved one at a time.
func (p *Pipeline) Run(ctx context.Context, tokens []*metadata.Token, parallelize bool, selectorFn SelectorFunc) []metadata.Result {
	if len(tokens) == 0 {
		return nil
	}
	if !parallelize {
		results := make([]metadata.Result, len(tokens))
		for i, t := range tokens {
			results[i] = p.FetchTokenMetadata(ctx, t, selectorFn)
		}
		return results
	}
	return runParallel(ctx, tokens, chunkSize, func(ctx context.Context, t *metadata.Token) metadata.Result {
		return p.FetchTokenMetadata(ctx, t, selectorFn)
	})
}

// AsyncRun is the cooperative fan-out backend: every token is submitted at
// once via an errgroup, with no explicit chunking — the runtime scheduler
// is relied on instead of a bounded pool. Output remains index-aligned with
// the input.
// AsyncRun differs from Run in that it requires token.URI to be set up
// front: a missing URI yields a MissingURI error result for that token
// rather than falling back to an on-chain tokenURI lookup.
func (p *Pipeline) AsyncRun(ctx context.Context, tokens []*metadata.Token, selectorFn SelectorFunc) ([]metadata.Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	results := make([]metadata.Result, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tokens {
		i, t := i, t
		g.Go(func() error {
			results[i] = p.fetchTokenMetadataFromURI(gctx, t, selectorFn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
