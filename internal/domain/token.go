package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type TokenCode string
type SolanaClusterType string

const (
	TokenSOL  TokenCode = "SOL"
	TokenUSDC TokenCode = "USDC"
	TokenUSDT TokenCode = "USDT"

	SolanaClusterTypeDevnet  SolanaClusterType = "devnet"
	SolanaClusterTypeTestnet SolanaClusterType = "testnet"
	SolanaClusterTypeMainnet SolanaClusterType = "mainnet-beta"
)

// TokenInfo describes one accepted settlement token on one cluster. Mint is
// nil for native SOL.
type TokenInfo struct {
	Code     TokenCode
	Decimals int
	Mint     *solana.PublicKey
}

func (t TokenInfo) IsNative() bool {
	return t.Mint == nil
}

// TokenRegistry is the fixed, compiled-in table of accepted tokens per
// cluster, optionally overridden by the mint_addresses config section.
type TokenRegistry struct {
	cluster SolanaClusterType
	tokens  map[TokenCode]TokenInfo
}

var defaultMints = map[SolanaClusterType]map[TokenCode]string{
	SolanaClusterTypeMainnet: {
		TokenUSDC: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenUSDT: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	},
	SolanaClusterTypeDevnet: {
		TokenUSDC: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
	},
	SolanaClusterTypeTestnet: {},
}

var tokenDecimals = map[TokenCode]int{
	TokenSOL:  9,
	TokenUSDC: 6,
	TokenUSDT: 6,
}

// NewTokenRegistry builds the registry for one cluster. Entries in overrides
// (cluster -> token code -> mint address) replace the compiled-in mints.
func NewTokenRegistry(cluster SolanaClusterType, overrides map[string]map[string]string) (*TokenRegistry, error) {
	mints, ok := defaultMints[cluster]
	if !ok {
		return nil, fmt.Errorf("unsupported cluster type: %s", cluster)
	}

	tokens := map[TokenCode]TokenInfo{
		TokenSOL: {Code: TokenSOL, Decimals: tokenDecimals[TokenSOL]},
	}
	for code, mint := range mints {
		pk, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			return nil, fmt.Errorf("invalid mint address for %s on %s: %w", code, cluster, err)
		}
		tokens[code] = TokenInfo{Code: code, Decimals: tokenDecimals[code], Mint: &pk}
	}

	if clusterOverrides, ok := overrides[string(cluster)]; ok {
		for code, mint := range clusterOverrides {
			tokenCode := TokenCode(code)
			decimals, ok := tokenDecimals[tokenCode]
			if !ok {
				return nil, fmt.Errorf("unknown token code in mint overrides: %s", code)
			}
			pk, err := solana.PublicKeyFromBase58(mint)
			if err != nil {
				return nil, fmt.Errorf("invalid mint override for %s on %s: %w", code, cluster, err)
			}
			tokens[tokenCode] = TokenInfo{Code: tokenCode, Decimals: decimals, Mint: &pk}
		}
	}

	return &TokenRegistry{cluster: cluster, tokens: tokens}, nil
}

func (r *TokenRegistry) Cluster() SolanaClusterType {
	return r.cluster
}

// Get returns the token info for a code, or an error when the token is not
// accepted on this cluster.
func (r *TokenRegistry) Get(code TokenCode) (TokenInfo, error) {
	info, ok := r.tokens[code]
	if !ok {
		return TokenInfo{}, fmt.Errorf("token %s not configured on cluster %s", code, r.cluster)
	}
	return info, nil
}

// GetByMint resolves a mint address back to a token.
func (r *TokenRegistry) GetByMint(mint solana.PublicKey) (TokenInfo, bool) {
	for _, info := range r.tokens {
		if info.Mint != nil && info.Mint.Equals(mint) {
			return info, true
		}
	}
	return TokenInfo{}, false
}

// Codes lists the accepted token codes on this cluster.
func (r *TokenRegistry) Codes() []TokenCode {
	codes := make([]TokenCode, 0, len(r.tokens))
	for code := range r.tokens {
		codes = append(codes, code)
	}
	return codes
}
