package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/pkg/config"
)

// SolanaClient is a thin JSON-RPC client against one cluster endpoint. It
// covers exactly what payment monitoring needs: signature discovery for a
// reference key, parsed transaction fetch, and a few health probes.
type SolanaClient struct {
	endpoint   string
	commitment string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewSolanaClient(cfg config.SolanaConfig, logger zerolog.Logger) (*SolanaClient, error) {
	endpoint, ok := cfg.RPCURLs[cfg.Cluster]
	if !ok {
		return nil, fmt.Errorf("no RPC URL configured for cluster: %s", cfg.Cluster)
	}

	commitment := cfg.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SolanaClient{
		endpoint:   endpoint,
		commitment: commitment,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *SolanaClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error().
			Str("method", method).
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("RPC request failed")
		return fmt.Errorf("RPC request failed with status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to parse %s result: %w", method, err)
		}
	}
	return nil
}

// GetSignaturesForAddress returns transaction signatures referencing the
// given key, newest first, constrained to signatures newer than until (the
// caller's high-water mark).
func (c *SolanaClient) GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, until *solana.Signature, limit int) ([]domain.SignatureInfo, error) {
	opts := map[string]interface{}{
		"commitment": c.commitment,
	}
	if limit > 0 {
		opts["limit"] = limit
	}
	if until != nil {
		opts["until"] = until.String()
	}

	var infos []domain.SignatureInfo
	if err := c.call(ctx, "getSignaturesForAddress", []interface{}{address.String(), opts}, &infos); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("address", address.String()).
		Int("signature_count", len(infos)).
		Msg("Fetched signatures for address")
	return infos, nil
}

type parsedAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type parsedInstruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}

type getTransactionResult struct {
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      struct {
		Err               interface{}           `json:"err"`
		Fee               uint64                `json:"fee"`
		PreBalances       []uint64              `json:"preBalances"`
		PostBalances      []uint64              `json:"postBalances"`
		PreTokenBalances  []domain.TokenBalance `json:"preTokenBalances"`
		PostTokenBalances []domain.TokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys  []parsedAccountKey  `json:"accountKeys"`
			Instructions []parsedInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetParsedTransaction fetches a transaction in jsonParsed encoding. A nil
// result with nil error means the transaction is not yet available at the
// configured commitment; callers retry on the next tick.
func (c *SolanaClient) GetParsedTransaction(ctx context.Context, signature solana.Signature) (*domain.ParsedTransaction, error) {
	opts := map[string]interface{}{
		"encoding":                       "jsonParsed",
		"commitment":                     c.commitment,
		"maxSupportedTransactionVersion": 0,
	}

	var raw json.RawMessage
	if err := c.call(ctx, "getTransaction", []interface{}{signature.String(), opts}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var result getTransactionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse transaction %s: %w", signature, err)
	}

	tx := &domain.ParsedTransaction{
		Signature:         signature.String(),
		Slot:              result.Slot,
		BlockTime:         result.BlockTime,
		Fee:               result.Meta.Fee,
		Err:               result.Meta.Err,
		PreBalances:       result.Meta.PreBalances,
		PostBalances:      result.Meta.PostBalances,
		PreTokenBalances:  result.Meta.PreTokenBalances,
		PostTokenBalances: result.Meta.PostTokenBalances,
	}

	tx.AccountKeys = make([]string, len(result.Transaction.Message.AccountKeys))
	for i, key := range result.Transaction.Message.AccountKeys {
		tx.AccountKeys[i] = key.Pubkey
	}

	for _, inst := range result.Transaction.Message.Instructions {
		if inst.Program == "spl-memo" {
			var memo string
			if err := json.Unmarshal(inst.Parsed, &memo); err == nil {
				tx.Memo = memo
			}
		}
	}

	return tx, nil
}

// GetBalance returns the lamport balance of an account.
func (c *SolanaClient) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	opts := map[string]interface{}{"commitment": c.commitment}
	if err := c.call(ctx, "getBalance", []interface{}{address.String(), opts}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetSlot returns the current slot at the configured commitment.
func (c *SolanaClient) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	opts := map[string]interface{}{"commitment": c.commitment}
	if err := c.call(ctx, "getSlot", []interface{}{opts}, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// GetVersion returns the node version, used by readiness checks.
func (c *SolanaClient) GetVersion(ctx context.Context) (*domain.SolanaVersion, error) {
	var version domain.SolanaVersion
	if err := c.call(ctx, "getVersion", nil, &version); err != nil {
		return nil, err
	}
	return &version, nil
}
