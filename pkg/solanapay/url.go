package solanapay

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const Scheme = "solana"

// WalletUniversalLinkTemplates maps wallet names to universal-link prefixes.
// The full solana: URL is percent-encoded and appended, for platforms that
// cannot deep-link the scheme directly.
var WalletUniversalLinkTemplates = map[string]string{
	"phantom":  "https://phantom.app/ul/browse/",
	"solflare": "https://solflare.com/ul/v1/browse/",
}

// Request carries the fields of one payment request URL.
type Request struct {
	Recipient solana.PublicKey
	Amount    decimal.Decimal
	SPLToken  *solana.PublicKey // nil for native SOL
	Reference solana.PublicKey
	Label     string
	Message   string
	Memo      string
}

// EncodeURL renders the wire-format payment URL:
//
//	solana:<recipient>?amount=<decimal>&reference=<base58>&label=..&message=..&memo=..&spl-token=<mint>
//
// Parameter order is fixed for wallet compatibility; empty fields are omitted.
func EncodeURL(req Request) string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString(":")
	b.WriteString(req.Recipient.String())

	params := make([]string, 0, 6)
	if !req.Amount.IsZero() {
		params = append(params, "amount="+req.Amount.String())
	}
	params = append(params, "reference="+req.Reference.String())
	if req.Label != "" {
		params = append(params, "label="+url.QueryEscape(req.Label))
	}
	if req.Message != "" {
		params = append(params, "message="+url.QueryEscape(req.Message))
	}
	if req.Memo != "" {
		params = append(params, "memo="+url.QueryEscape(req.Memo))
	}
	if req.SPLToken != nil {
		params = append(params, "spl-token="+req.SPLToken.String())
	}

	if len(params) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(params, "&"))
	}
	return b.String()
}

// ParseURL decodes a payment URL back into a Request, validating keys and the
// amount. It is the inverse of EncodeURL.
func ParseURL(raw string) (Request, error) {
	rest, ok := strings.CutPrefix(raw, Scheme+":")
	if !ok {
		return Request{}, fmt.Errorf("not a %s: URL: %s", Scheme, raw)
	}

	var query string
	if idx := strings.Index(rest, "?"); idx >= 0 {
		rest, query = rest[:idx], rest[idx+1:]
	}

	recipient, err := solana.PublicKeyFromBase58(rest)
	if err != nil {
		return Request{}, fmt.Errorf("invalid recipient: %w", err)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Request{}, fmt.Errorf("invalid query string: %w", err)
	}

	req := Request{
		Recipient: recipient,
		Label:     values.Get("label"),
		Message:   values.Get("message"),
		Memo:      values.Get("memo"),
	}

	if amt := values.Get("amount"); amt != "" {
		req.Amount, err = decimal.NewFromString(amt)
		if err != nil {
			return Request{}, fmt.Errorf("invalid amount: %w", err)
		}
		if req.Amount.IsNegative() {
			return Request{}, fmt.Errorf("negative amount: %s", amt)
		}
	}

	if ref := values.Get("reference"); ref != "" {
		req.Reference, err = solana.PublicKeyFromBase58(ref)
		if err != nil {
			return Request{}, fmt.Errorf("invalid reference: %w", err)
		}
	}

	if mint := values.Get("spl-token"); mint != "" {
		pk, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			return Request{}, fmt.Errorf("invalid spl-token: %w", err)
		}
		req.SPLToken = &pk
	}

	return req, nil
}

// HostedRedirectURL builds the HTTPS fan-out page URL carrying the same
// fields as query parameters, for platforms that cannot open solana: links.
func HostedRedirectURL(base string, req Request) string {
	values := url.Values{}
	values.Set("recipient", req.Recipient.String())
	if !req.Amount.IsZero() {
		values.Set("amount", req.Amount.String())
	}
	values.Set("reference", req.Reference.String())
	if req.Label != "" {
		values.Set("label", req.Label)
	}
	if req.Message != "" {
		values.Set("message", req.Message)
	}
	if req.SPLToken != nil {
		values.Set("token", req.SPLToken.String())
	}
	return strings.TrimSuffix(base, "/") + "/pay?" + values.Encode()
}

// WalletUniversalLinks renders the per-wallet universal links embedding the
// percent-encoded primary URL.
func WalletUniversalLinks(req Request) map[string]string {
	payURL := EncodeURL(req)
	links := make(map[string]string, len(WalletUniversalLinkTemplates))
	for wallet, prefix := range WalletUniversalLinkTemplates {
		links[wallet] = prefix + url.QueryEscape(payURL)
	}
	return links
}
