package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"testing"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/adapters"
	"github.com/ourzora/offchain/internal/metadata/fetcher"
	"github.com/ourzora/offchain/internal/metadata/parsers"
)

// offlineAdapter always fails, so tests never touch the network; it stands
// in for a real transport whenever content-fetch behavior itself isn't what
// a test is exercising.
type offlineAdapter struct{}

func (offlineAdapter) Send(context.Context, string) (*http.Response, error) {
	return nil, fmt.Errorf("offline in test")
}

func (offlineAdapter) Head(context.Context, string) (*http.Response, error) {
	return nil, fmt.Errorf("offline in test")
}

// stubParser lets each test script exactly what ShouldParse/Parse do,
// including panicking, to exercise the pipeline's dispatch and recovery
// behavior without a real parser implementation.
type stubParser struct {
	name       string
	stratum    parsers.Stratum
	shouldFn   func(*metadata.Token, any) bool
	parseFn    func(*metadata.Token, any) (*metadata.Metadata, error)
	panicValue any
}

func (s *stubParser) Name() string                        { return s.name }
func (s *stubParser) Stratum() parsers.Stratum             { return s.stratum }
func (s *stubParser) Standard() metadata.MetadataStandard  { return metadata.StandardUnknown }
func (s *stubParser) ShouldParse(_ context.Context, t *metadata.Token, raw any) bool {
	return s.shouldFn(t, raw)
}
func (s *stubParser) Parse(_ context.Context, t *metadata.Token, raw any) (*metadata.Metadata, error) {
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	return s.parseFn(t, raw)
}

func newTestToken(t *testing.T) *metadata.Token {
	t.Helper()
	tok, err := metadata.NewToken("0xabc", big.NewInt(1), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	uri := "https://example.com/1.json"
	tok.URI = &uri
	return tok
}

func testPipeline(parserList []parsers.Parser) *Pipeline {
	f := fetcher.New()
	f.RegisterAdapter(offlineAdapter{}, "https://")
	return &Pipeline{Fetcher: f, Parsers: parserList}
}

func TestFetchTokenMetadataReturnsFirstMatchingParserResult(t *testing.T) {
	always := &stubParser{
		name: "always", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			name := "won"
			return &metadata.Metadata{Token: tok, Name: &name}, nil
		},
	}
	never := &stubParser{
		name: "never", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return false },
	}
	p := testPipeline([]parsers.Parser{always, never})
	token := newTestToken(t)
	// rawData is irrelevant since FetchContent will fail against the
	// offline adapter; the parser dispatch loop should still run
	// on whatever rawData ends up being (nil), which "always" ignores.

	result := p.FetchTokenMetadata(context.Background(), token, nil)
	if result.IsError() {
		t.Fatalf("expected a metadata result, got error: %v", result.Error)
	}
	if *result.Metadata.Name != "won" {
		t.Fatalf("unexpected name: %s", *result.Metadata.Name)
	}
}

func TestFetchTokenMetadataParserErrorBecomesCandidateNotCrash(t *testing.T) {
	failing := &stubParser{
		name: "failing", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(*metadata.Token, any) (*metadata.Metadata, error) {
			return nil, fmt.Errorf("boom")
		},
	}
	p := testPipeline([]parsers.Parser{failing})
	token := newTestToken(t)

	result := p.FetchTokenMetadata(context.Background(), token, nil)
	if !result.IsError() {
		t.Fatal("expected parser error to surface as a ProcessingError candidate")
	}
}

func TestFetchTokenMetadataParserPanicBecomesCandidateNotCrash(t *testing.T) {
	panicking := &stubParser{
		name: "panicking", stratum: parsers.StratumCatchall,
		shouldFn:   func(*metadata.Token, any) bool { return true },
		panicValue: "unexpected type assertion failure",
	}
	p := testPipeline([]parsers.Parser{panicking})
	token := newTestToken(t)
	// Content that decodes inline, so the fetch step adds no error candidate
	// ahead of the parser's.
	p.Fetcher.RegisterAdapter(&adapters.DataAdapter{}, "data:")
	uri := `data:application/json,{"name":"nyx"}`
	token.URI = &uri

	var result metadata.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("pipeline should recover from a parser panic, but it propagated: %v", r)
			}
		}()
		result = p.FetchTokenMetadata(context.Background(), token, nil)
	}()

	if !result.IsError() {
		t.Fatal("expected parser panic to surface as a ProcessingError candidate")
	}
	if result.Error.ErrorType != "ParserPanic" {
		t.Fatalf("unexpected error type: %s", result.Error.ErrorType)
	}
}

func TestFetchTokenMetadataNoParsersFoundWhenNoneClaim(t *testing.T) {
	never := &stubParser{
		name: "never", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return false },
	}
	p := testPipeline([]parsers.Parser{never})
	token := newTestToken(t)
	// Content that decodes inline, so the fetch step adds no error candidate
	// and the only outcome left is that no parser claims the token.
	p.Fetcher.RegisterAdapter(&adapters.DataAdapter{}, "data:")
	uri := `data:application/json,{"name":"nyx"}`
	token.URI = &uri

	result := p.FetchTokenMetadata(context.Background(), token, nil)
	if !result.IsError() {
		t.Fatal("expected a synthesized error result")
	}
	if result.Error.ErrorType != "NoParsersFound" {
		t.Fatalf("unexpected error type: %s", result.Error.ErrorType)
	}
}

func TestFetchTokenMetadataSelectorFnSeesAllCandidates(t *testing.T) {
	first := &stubParser{
		name: "first", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			name := "first"
			return &metadata.Metadata{Token: tok, Name: &name}, nil
		},
	}
	second := &stubParser{
		name: "second", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			name := "second"
			return &metadata.Metadata{Token: tok, Name: &name}, nil
		},
	}
	p := testPipeline([]parsers.Parser{first, second})
	token := newTestToken(t)
	// Content that decodes inline, so the fetch step adds no error candidate
	// and the selector sees exactly the two parser results.
	p.Fetcher.RegisterAdapter(&adapters.DataAdapter{}, "data:")
	uri := `data:application/json,{"name":"nyx"}`
	token.URI = &uri

	var seen int
	selector := func(candidates []metadata.Result) metadata.Result {
		seen = len(candidates)
		return candidates[len(candidates)-1]
	}
	result := p.FetchTokenMetadata(context.Background(), token, selector)
	if seen != 2 {
		t.Fatalf("expected selector to see both candidates, saw %d", seen)
	}
	if *result.Metadata.Name != "second" {
		t.Fatalf("expected selector's chosen candidate to be returned, got %s", *result.Metadata.Name)
	}
}

func TestNewDefaultParserListIsRegistryOrdered(t *testing.T) {
	p, err := New(WithCollectionAddresses([]string{"0xcollection"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Parsers) != 3 {
		t.Fatalf("expected 3 default parsers (collection, marketplace, catchall), got %d", len(p.Parsers))
	}
	if p.Parsers[0].Stratum() != parsers.StratumCollection {
		t.Fatalf("expected collection parser first, got stratum %v", p.Parsers[0].Stratum())
	}
	if p.Parsers[1].Stratum() != parsers.StratumSchema {
		t.Fatalf("expected schema parser second, got stratum %v", p.Parsers[1].Stratum())
	}
	if p.Parsers[2].Stratum() != parsers.StratumCatchall {
		t.Fatalf("expected catchall parser last, got stratum %v", p.Parsers[2].Stratum())
	}
}

func TestNewWithoutCollectionAddressesOmitsCollectionParser(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Parsers) != 2 {
		t.Fatalf("expected 2 default parsers (marketplace, catchall), got %d", len(p.Parsers))
	}
	for _, parser := range p.Parsers {
		if parser.Stratum() == parsers.StratumCollection {
			t.Fatal("expected no collection parser when no addresses configured")
		}
	}
}

func TestRunEmptyTokensReturnsNil(t *testing.T) {
	p := testPipeline(nil)
	if got := p.Run(context.Background(), nil, false, nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := p.Run(context.Background(), nil, true, nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestRunPreservesOrderWhenParallelized(t *testing.T) {
	always := &stubParser{
		name: "always", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			name := tok.TokenID.String()
			return &metadata.Metadata{Token: tok, Name: &name}, nil
		},
	}
	p := testPipeline([]parsers.Parser{always})

	var tokens []*metadata.Token
	for i := 0; i < 40; i++ {
		tok, err := metadata.NewToken("0xabc", big.NewInt(int64(i)), "", nil)
		if err != nil {
			t.Fatal(err)
		}
		uri := "https://example.com/1.json"
		tok.URI = &uri
		tokens = append(tokens, tok)
	}

	results := p.Run(context.Background(), tokens, true, nil)
	if len(results) != len(tokens) {
		t.Fatalf("expected %d results, got %d", len(tokens), len(results))
	}
	for i, r := range results {
		if r.IsError() {
			t.Fatalf("unexpected error at index %d: %v", i, r.Error)
		}
		if *r.Metadata.Name != fmt.Sprintf("%d", i) {
			t.Fatalf("expected results in input order, index %d got name %s", i, *r.Metadata.Name)
		}
	}
}

func TestAsyncRunIsIndexAligned(t *testing.T) {
	always := &stubParser{
		name: "always", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			name := tok.TokenID.String()
			return &metadata.Metadata{Token: tok, Name: &name}, nil
		},
	}
	p := testPipeline([]parsers.Parser{always})

	var tokens []*metadata.Token
	for i := 0; i < 20; i++ {
		tok, err := metadata.NewToken("0xabc", big.NewInt(int64(i)), "", nil)
		if err != nil {
			t.Fatal(err)
		}
		uri := "https://example.com/1.json"
		tok.URI = &uri
		tokens = append(tokens, tok)
	}

	results, err := p.AsyncRun(context.Background(), tokens, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if *r.Metadata.Name != fmt.Sprintf("%d", i) {
			t.Fatalf("expected index-aligned results, index %d got name %s", i, *r.Metadata.Name)
		}
	}
}

func TestAsyncRunMissingURIShortCircuitsWithoutOnChainLookup(t *testing.T) {
	never := &stubParser{
		name: "never", stratum: parsers.StratumCatchall,
		shouldFn: func(*metadata.Token, any) bool { return true },
		parseFn: func(tok *metadata.Token, _ any) (*metadata.Metadata, error) {
			t.Fatal("parser should not run when the URI is missing")
			return nil, nil
		},
	}
	p := testPipeline([]parsers.Parser{never})
	// No Contract configured: if AsyncRun attempted an on-chain lookup like
	// Run does, this would panic on a nil pointer dereference instead of
	// short-circuiting.
	tok, err := metadata.NewToken("0xabc", big.NewInt(1), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := p.AsyncRun(context.Background(), []*metadata.Token{tok}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].IsError() {
		t.Fatal("expected a MissingURI error result")
	}
	if results[0].Error.ErrorType != "MissingURI" {
		t.Fatalf("unexpected error type: %s", results[0].Error.ErrorType)
	}
}
