// Package metadata defines the canonical data model shared by every stage
// of the resolution pipeline: the token identity, the normalized metadata
// record, and the error shape emitted when a token cannot be resolved.
package metadata

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// DefaultChainIdentifier is used by tokens that do not specify one.
const DefaultChainIdentifier = "ETHEREUM-MAINNET"

const dataURIJSONPrefix = "data:application/json;base64,"

var chainIdentifierPattern = regexp.MustCompile(`^[A-Z]+-[A-Z]+$`)

// Token uniquely identifies an NFT and optionally carries its resolved
// metadata URI.
type Token struct {
	ChainIdentifier   string
	CollectionAddress string
	TokenID           *big.Int
	URI               *string
}

// NewToken builds a Token, defaulting ChainIdentifier and normalizing a
// malformed data: JSON URI per the base64 re-escape rule. Returns an error
// if ChainIdentifier does not match ^[A-Z]+-[A-Z]+$.
func NewToken(collectionAddress string, tokenID *big.Int, chainIdentifier string, uri *string) (*Token, error) {
	if chainIdentifier == "" {
		chainIdentifier = DefaultChainIdentifier
	}
	if !chainIdentifierPattern.MatchString(chainIdentifier) {
		return nil, fmt.Errorf("invalid chain_identifier %q: must match %s", chainIdentifier, chainIdentifierPattern.String())
	}

	t := &Token{
		ChainIdentifier:   chainIdentifier,
		CollectionAddress: collectionAddress,
		TokenID:           tokenID,
		URI:               uri,
	}
	if uri != nil {
		normalized, err := normalizeDataURI(*uri)
		if err != nil {
			return nil, err
		}
		t.URI = &normalized
	}
	return t, nil
}

// String renders the triple used in log and error messages throughout the
// pipeline: "(CHAIN-COLLECTION-TOKENID)".
func (t *Token) String() string {
	return fmt.Sprintf("(%s-%s-%s)", t.ChainIdentifier, t.CollectionAddress, t.TokenID.String())
}

// normalizeDataURI re-escapes a data:application/json;base64,<payload> URI
// whose decoded payload fails to parse as JSON. The escape takes each
// non-ASCII byte of the decoded payload and replaces it with \xNN, then
// re-encodes to base64 and reattaches the prefix. Any other URI shape
// passes through untouched.
func normalizeDataURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, dataURIJSONPrefix) {
		return uri, nil
	}
	payload := uri[len(dataURIJSONPrefix):]
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Not valid base64 at all; leave it for the fetcher/adapter to
		// fail on later rather than guessing at intent here.
		return uri, nil
	}
	if json.Valid(decoded) {
		return uri, nil
	}
	escaped := escapeNonASCII(decoded)
	reencoded := base64.StdEncoding.EncodeToString(escaped)
	return dataURIJSONPrefix + reencoded, nil
}

func escapeNonASCII(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		if c < 0x80 {
			buf.WriteByte(c)
		} else {
			fmt.Fprintf(&buf, "\\x%02X", c)
		}
	}
	return buf.Bytes()
}
