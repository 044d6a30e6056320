package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywatch/paywatch/pkg/config"
	"github.com/paywatch/paywatch/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SolanaClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewSolanaClient(config.SolanaConfig{
		Cluster: "devnet",
		RPCURLs: map[string]string{"devnet": srv.URL},
		Timeout: 5 * time.Second,
	}, logger.New())
	require.NoError(t, err)
	return client, srv
}

func TestGetSignaturesForAddress(t *testing.T) {
	var gotMethod string
	var gotParams []json.RawMessage

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMethod = req.Method
		gotParams = req.Params

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[
			{"signature":"5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7","slot":100,"err":null,"memo":null,"blockTime":1700000000,"confirmationStatus":"finalized"}
		]}`))
	})

	ref := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	infos, err := client.GetSignaturesForAddress(context.Background(), ref, nil, 10)
	require.NoError(t, err)

	assert.Equal(t, "getSignaturesForAddress", gotMethod)
	require.Len(t, gotParams, 2)
	require.Len(t, infos, 1)
	assert.Equal(t, uint64(100), infos[0].Slot)
	assert.Equal(t, "finalized", infos[0].ConfirmationStatus)
	assert.False(t, infos[0].Failed())
}

func TestGetParsedTransaction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{
			"slot":200,
			"blockTime":1700000100,
			"meta":{
				"err":null,
				"fee":5000,
				"preBalances":[1000000000,0],
				"postBalances":[499995000,500000000],
				"preTokenBalances":[],
				"postTokenBalances":[]
			},
			"transaction":{
				"signatures":["5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"],
				"message":{
					"accountKeys":[
						{"pubkey":"mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW","signer":true,"writable":true},
						{"pubkey":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","signer":false,"writable":true}
					],
					"instructions":[{"program":"spl-memo","programId":"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr","parsed":"order-42"}]
				}
			}
		}}`))
	})

	sig := solana.Signature{}
	tx, err := client.GetParsedTransaction(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, uint64(200), tx.Slot)
	assert.Equal(t, uint64(5000), tx.Fee)
	assert.Equal(t, []string{
		"mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW",
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
	}, tx.AccountKeys)
	assert.Equal(t, "order-42", tx.Memo)
	assert.Nil(t, tx.Err)
}

func TestGetParsedTransactionNotYetAvailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	})

	tx, err := client.GetParsedTransaction(context.Background(), solana.Signature{})
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestCallSurfacesRPCError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"Node is behind"}}`))
	})

	_, err := client.GetSlot(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32005, rpcErr.Code)
	assert.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(&RPCError{Code: -32004, Message: "not available"}))
	assert.False(t, IsTransient(&RPCError{Code: -32602, Message: "invalid params"}))
	assert.True(t, IsTransient(errors.New("RPC request failed with status: 429 Too Many Requests")))
	assert.True(t, IsTransient(errors.New("RPC request failed with status: 503 Service Unavailable")))
	assert.False(t, IsTransient(errors.New("RPC request failed with status: 401 Unauthorized")))
	assert.True(t, IsTransient(errors.New("failed to parse JSON response: unexpected EOF")))
}

func TestNewSolanaClientUnknownCluster(t *testing.T) {
	_, err := NewSolanaClient(config.SolanaConfig{
		Cluster: "localnet",
		RPCURLs: map[string]string{"devnet": "http://localhost:8899"},
	}, logger.New())
	assert.Error(t, err)
}
