package transactionrepo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywatch/paywatch/internal/domain"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	tx := domain.Transaction{
		ID:            uuid.New().String(),
		InvoiceID:     uuid.New().String(),
		Signature:     solana.Signature{},
		Amount:        decimal.RequireFromString("2.5"),
		Token:         domain.TokenUSDC,
		FromAddress:   solana.MustPublicKeyFromBase58("mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW"),
		ToAddress:     solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		Status:        domain.TxStatusFinalized,
		Slot:          12345,
		Confirmations: 32,
		Fee:           decimal.RequireFromString("0.000005"),
		Memo:          "order-42",
		Metadata:      json.RawMessage(`{"slot":12345}`),
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
		UpdatedAt:     time.Date(2025, 6, 1, 12, 0, 2, 0, time.UTC),
	}

	got, err := rowToTransaction(transactionToRow(tx))
	require.NoError(t, err)

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.InvoiceID, got.InvoiceID)
	assert.Equal(t, tx.Signature, got.Signature)
	assert.True(t, tx.Amount.Equal(got.Amount))
	assert.Equal(t, tx.Token, got.Token)
	assert.Equal(t, tx.FromAddress, got.FromAddress)
	assert.Equal(t, tx.ToAddress, got.ToAddress)
	assert.Equal(t, tx.Status, got.Status)
	assert.Equal(t, tx.Slot, got.Slot)
	assert.Equal(t, tx.Confirmations, got.Confirmations)
	assert.True(t, tx.Fee.Equal(got.Fee))
	assert.Equal(t, tx.Memo, got.Memo)
	assert.Equal(t, tx.Metadata, got.Metadata)
	assert.True(t, tx.Timestamp.Equal(got.Timestamp))
}

func TestTransactionRowRoundTripEmptyOptionals(t *testing.T) {
	tx := domain.Transaction{
		ID:          uuid.New().String(),
		InvoiceID:   uuid.New().String(),
		Signature:   solana.Signature{},
		Amount:      decimal.RequireFromString("1"),
		Token:       domain.TokenSOL,
		FromAddress: solana.MustPublicKeyFromBase58("mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW"),
		ToAddress:   solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		Status:      domain.TxStatusConfirmed,
		Fee:         decimal.Zero,
		Timestamp:   time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	got, err := rowToTransaction(transactionToRow(tx))
	require.NoError(t, err)

	assert.Empty(t, got.Memo)
	assert.Nil(t, got.Metadata)
	assert.True(t, got.Fee.IsZero())
}
