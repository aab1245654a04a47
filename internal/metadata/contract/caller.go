// Package contract implements efficient, batched eth_call reads against an
// EVM JSON-RPC endpoint: selector computation, ABI encoding of arguments,
// and ABI decoding of return values, all delegated to go-ethereum rather
// than hand-rolled byte-padding.
package contract

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ourzora/offchain/internal/metadata/rpc"
)

// DefaultChunkSize bounds how many calls get grouped into a single
// JSON-RPC batch request before the client starts splitting into
// concurrent sub-batches, unless a Caller overrides it.
const DefaultChunkSize = 500

// Caller performs view-function calls against one or more EVM chains
// through an injected rpc.Client.
type Caller struct {
	RPC *rpc.Client
	// ChunkSize bounds how many calls get grouped into a single JSON-RPC
	// batch request before the client starts splitting into concurrent
	// sub-batches.
	ChunkSize int
}

func New(client *rpc.Client) *Caller {
	return &Caller{RPC: client, ChunkSize: DefaultChunkSize}
}

func (c *Caller) chunkSizeOrDefault() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// SingleAddressSingleFnManyArgs calls one function on one address with many
// different argument tuples, returning one decoded result per entry,
// aligned with args. Individual call failures decode to nil rather than
// failing the batch.
func (c *Caller) SingleAddressSingleFnManyArgs(
	ctx context.Context,
	address, functionSig string,
	returnTypes []string,
	args [][]any,
	blockTag string,
) ([]any, error) {
	if blockTag == "" {
		blockTag = "latest"
	}
	paramSets := make([][]any, len(args))
	for i, a := range args {
		data, err := EncodeCall(functionSig, a)
		if err != nil {
			return nil, fmt.Errorf("encoding call %d: %w", i, err)
		}
		paramSets[i] = []any{map[string]any{"to": address, "data": data}, blockTag}
	}

	responses, err := c.RPC.CallBatchChunked(ctx, "eth_call", paramSets, c.chunkSizeOrDefault())
	if err != nil {
		return nil, err
	}
	results := make([]any, len(responses))
	for i, resp := range responses {
		results[i] = decodeResponse(resp, returnTypes)
	}
	return results, nil
}

// SingleAddressManyFnsManyArgs calls many distinct functions (possibly with
// distinct argument tuples) on one address, returning a map keyed by
// function signature.
func (c *Caller) SingleAddressManyFnsManyArgs(
	ctx context.Context,
	address string,
	functionSigs []string,
	returnTypes [][]string,
	args [][]any,
	blockTag string,
) (map[string]any, error) {
	if len(functionSigs) != len(args) || len(args) != len(returnTypes) {
		return nil, fmt.Errorf("function signatures, return types, and args must all be the same length")
	}
	if blockTag == "" {
		blockTag = "latest"
	}
	paramSets := make([][]any, len(args))
	for i, a := range args {
		data, err := EncodeCall(functionSigs[i], a)
		if err != nil {
			return nil, fmt.Errorf("encoding call %d: %w", i, err)
		}
		paramSets[i] = []any{map[string]any{"to": address, "data": data}, blockTag}
	}

	responses, err := c.RPC.CallBatchChunked(ctx, "eth_call", paramSets, c.chunkSizeOrDefault())
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(functionSigs))
	for i, sig := range functionSigs {
		out[sig] = decodeResponse(responses[i], returnTypes[i])
	}
	return out, nil
}

// Selector computes the 4-byte function selector for a signature like
// "tokenURI(uint256)": the first 4 bytes of Keccak256(signature).
func Selector(functionSig string) []byte {
	return crypto.Keccak256([]byte(functionSig))[:4]
}

// argTypesFromSig extracts the comma-separated type list from the
// parenthesized portion of a signature, e.g. "balanceOf(address,uint256)"
// -> ["address", "uint256"].
func argTypesFromSig(functionSig string) []string {
	start := strings.Index(functionSig, "(")
	end := strings.LastIndex(functionSig, ")")
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	inner := functionSig[start+1 : end]
	if inner == "" {
		return nil
	}
	return strings.Split(inner, ",")
}

// EncodeCall builds the eth_call "data" hex string: selector + ABI-encoded
// args.
func EncodeCall(functionSig string, args []any) (string, error) {
	selector := Selector(functionSig)

	typeNames := argTypesFromSig(functionSig)
	if len(typeNames) == 0 {
		return "0x" + hex.EncodeToString(selector), nil
	}
	if len(typeNames) != len(args) {
		return "", fmt.Errorf("expected %d args for %s, got %d", len(typeNames), functionSig, len(args))
	}

	arguments, err := buildArguments(typeNames)
	if err != nil {
		return "", err
	}
	converted, err := convertArgs(arguments, args)
	if err != nil {
		return "", err
	}
	packed, err := arguments.PackValues(converted)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(append(selector, packed...)), nil
}

func buildArguments(typeNames []string) (gethabi.Arguments, error) {
	arguments := make(gethabi.Arguments, len(typeNames))
	for i, t := range typeNames {
		abiType, err := gethabi.NewType(strings.TrimSpace(t), "", nil)
		if err != nil {
			return nil, fmt.Errorf("unsupported abi type %q: %w", t, err)
		}
		arguments[i] = gethabi.Argument{Type: abiType}
	}
	return arguments, nil
}

// convertArgs coerces loosely-typed Go values (string addresses, int64
// token ids, etc.) into the concrete Go types go-ethereum's abi package
// expects for each ABI type.
func convertArgs(arguments gethabi.Arguments, args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		t := arguments[i].Type
		converted, err := convertArg(t, arg)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out[i] = converted
	}
	return out, nil
}

func convertArg(t gethabi.Type, v any) (any, error) {
	switch t.T {
	case gethabi.AddressTy:
		switch val := v.(type) {
		case common.Address:
			return val, nil
		case string:
			return common.HexToAddress(val), nil
		}
	case gethabi.UintTy, gethabi.IntTy:
		switch val := v.(type) {
		case *big.Int:
			return val, nil
		case int64:
			return big.NewInt(val), nil
		case int:
			return big.NewInt(int64(val)), nil
		case string:
			n, ok := new(big.Int).SetString(val, 10)
			if !ok {
				return nil, fmt.Errorf("cannot parse %q as integer", val)
			}
			return n, nil
		}
	case gethabi.BoolTy:
		if val, ok := v.(bool); ok {
			return val, nil
		}
	case gethabi.StringTy:
		if val, ok := v.(string); ok {
			return val, nil
		}
	case gethabi.BytesTy, gethabi.FixedBytesTy:
		switch val := v.(type) {
		case []byte:
			return val, nil
		case string:
			return []byte(val), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to abi type %s", v, t.String())
}

// decodeResponse ABI-decodes an eth_call result against returnTypes. Any
// failure (RPC error, empty result, decode error) yields nil rather than
// propagating, so one bad call never sinks its siblings in a batch.
func decodeResponse(resp rpc.Response, returnTypes []string) any {
	if resp.Error != nil {
		return nil
	}
	var hexResult string
	if err := json.Unmarshal(resp.Result, &hexResult); err != nil {
		return nil
	}
	if len(hexResult) <= 2 {
		return nil
	}
	data, err := hex.DecodeString(strings.TrimPrefix(hexResult, "0x"))
	if err != nil {
		return nil
	}

	arguments, err := buildArguments(returnTypes)
	if err != nil {
		return nil
	}
	values, err := arguments.UnpackValues(data)
	if err != nil {
		return nil
	}

	if len(returnTypes) == 1 || len(values) == 1 {
		return values[0]
	}
	if len(returnTypes) < len(values) {
		return values[:len(returnTypes)]
	}
	return values
}
