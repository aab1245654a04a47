// Command offchain resolves metadata for a single NFT from the command
// line: offchain <collection-address> <token-id> [chain-identifier] [uri].
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ourzora/offchain"
	"github.com/ourzora/offchain/internal/config"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: offchain <collection-address> <token-id> [chain-identifier] [uri]")
		os.Exit(2)
	}

	cfg := config.Load()
	cfg.ConfigureLogging()

	collectionAddress := os.Args[1]
	tokenID, ok := new(big.Int).SetString(os.Args[2], 10)
	if !ok {
		log.Fatalf("invalid token id: %s", os.Args[2])
	}

	chainIdentifier := ""
	if len(os.Args) > 3 {
		chainIdentifier = os.Args[3]
	}
	var uri *string
	if len(os.Args) > 4 {
		uri = &os.Args[4]
	}

	opts := []offchain.Option{
		offchain.WithRPCURL(cfg.RPCProviderURL),
		offchain.WithRPCMaxRetries(cfg.RPCMaxRetries),
		offchain.WithRPCBackoff(time.Duration(cfg.RPCMinBackoffSec)*time.Second, time.Duration(cfg.RPCMaxBackoffSec)*time.Second),
		offchain.WithRPCChunkSize(cfg.RPCChunkSize),
		offchain.WithIPFSGateways(cfg.IPFSGateways),
		offchain.WithArweaveGateway(cfg.ArweaveGateway),
	}
	contentCache, err := offchain.NewCache(cfg.RedisURL, "offchain")
	if err != nil {
		log.Fatalf("constructing cache: %v", err)
	}
	opts = append(opts, offchain.WithCache(contentCache))

	p, err := offchain.NewPipeline(opts...)
	if err != nil {
		log.Fatalf("constructing pipeline: %v", err)
	}

	token, err := offchain.NewToken(collectionAddress, tokenID, chainIdentifier, uri)
	if err != nil {
		log.Fatalf("invalid token: %v", err)
	}

	result := p.FetchTokenMetadata(context.Background(), token, nil)

	out, err := json.MarshalIndent(resultToJSON(result), "", "  ")
	if err != nil {
		log.Fatalf("encoding result: %v", err)
	}
	fmt.Println(string(out))
}

func resultToJSON(r offchain.Result) any {
	if r.IsError() {
		return map[string]any{
			"error_type":    r.Error.ErrorType,
			"error_message": r.Error.ErrorMessage,
		}
	}
	return map[string]any{
		"name":        r.Metadata.Name,
		"description": r.Metadata.Description,
		"mime_type":   r.Metadata.MimeType,
		"image":       r.Metadata.Image,
		"content":     r.Metadata.Content,
		"attributes":  r.Metadata.Attributes,
	}
}
