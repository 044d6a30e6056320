package domain

// SignatureInfo is one entry of a getSignaturesForAddress response.
type SignatureInfo struct {
	Signature          string      `json:"signature"`
	Slot               uint64      `json:"slot"`
	Err                interface{} `json:"err"`
	Memo               *string     `json:"memo"`
	BlockTime          *int64      `json:"blockTime"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Failed reports whether the transaction carries an explicit on-chain error.
func (s SignatureInfo) Failed() bool {
	return s.Err != nil
}

// ParsedTransaction is the flattened view of a jsonParsed getTransaction
// response that payment validation needs: account keys and balance deltas.
type ParsedTransaction struct {
	Signature         string
	Slot              uint64
	BlockTime         *int64
	Fee               uint64
	Err               interface{}
	AccountKeys       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	Memo              string
}

// TokenBalance is one pre/post token balance entry of a parsed transaction.
type TokenBalance struct {
	AccountIndex int    `json:"accountIndex"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Amount       UITokenAmount `json:"uiTokenAmount"`
}

type UITokenAmount struct {
	Amount         string `json:"amount"` // raw units as decimal string
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// SolanaVersion is the getVersion response, used by health checks.
type SolanaVersion struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}
