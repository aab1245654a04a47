package parsers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ourzora/offchain/internal/metadata"
	"github.com/ourzora/offchain/internal/metadata/contract"
	"github.com/ourzora/offchain/internal/metadata/rpc"
)

// abiEncodeString ABI-encodes s as a single dynamic "string" return value,
// matching what go-ethereum's Arguments.UnpackValues expects to decode.
func abiEncodeString(s string) string {
	data := []byte(s)
	padded := make([]byte, ((len(data)+31)/32)*32)
	copy(padded, data)
	length := make([]byte, 32)
	length[31] = byte(len(data))
	offset := make([]byte, 32)
	offset[31] = 32
	out := append(offset, length...)
	out = append(out, padded...)
	return "0x" + hexEncode(out)
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}

func TestExampleCollectionParserShouldParseMatchesLowercasedAddress(t *testing.T) {
	p := NewExampleCollectionParser(Deps{}, []string{"0xABCDEF"})
	token, err := metadata.NewToken("0xabcdef", big.NewInt(1), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !p.ShouldParse(context.Background(), token, nil) {
		t.Fatal("expected case-insensitive address match")
	}

	other, err := metadata.NewToken("0x111111", big.NewInt(1), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.ShouldParse(context.Background(), other, nil) {
		t.Fatal("expected non-matching address to be declined")
	}
}

func TestExampleCollectionParserResolvesSVGAndAttributesOnChain(t *testing.T) {
	svg := "<svg></svg>"
	attrList := "red,shiny"
	imageSelector := "0x" + hexEncode(contract.Selector("imageSVG(uint256)"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []rpc.Request
		json.NewDecoder(r.Body).Decode(&batch)
		resps := make([]rpc.Response, len(batch))
		for i, req := range batch {
			var result string
			if m, ok := req.Params[0].(map[string]any); ok {
				data, _ := m["data"].(string)
				if strings.HasPrefix(data, imageSelector) {
					result = abiEncodeString(svg)
				} else {
					result = abiEncodeString(attrList)
				}
			}
			raw, _ := json.Marshal(result)
			resps[i] = rpc.Response{ID: req.ID, Result: raw}
		}
		json.NewEncoder(w).Encode(resps)
	}))
	defer srv.Close()

	caller := contract.New(rpc.New(srv.URL))
	deps := Deps{Contract: caller}
	p := NewExampleCollectionParser(deps, []string{"0xabc"})
	token, err := metadata.NewToken("0xabc", big.NewInt(1), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	m, err := p.Parse(context.Background(), token, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Image == nil || m.Image.MimeType == nil || *m.Image.MimeType != "image/svg+xml" {
		t.Fatalf("unexpected image: %v", m.Image)
	}
	if len(m.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d: %+v", len(m.Attributes), m.Attributes)
	}
	if *m.Attributes[0].TraitType != "red" || *m.Attributes[1].TraitType != "shiny" {
		t.Fatalf("unexpected attributes: %+v", m.Attributes)
	}
}
