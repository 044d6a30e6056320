package invoicerepo

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

func TestInvoiceRowRoundTrip(t *testing.T) {
	sig := solana.Signature{}
	wallet := solana.MustPublicKeyFromBase58("mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW")
	paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := paidAt.Add(time.Hour)

	invoice := domain.Invoice{
		ID:                   uuid.New().String(),
		Reference:            solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		Recipient:            wallet,
		Amount:               decimal.RequireFromString("2.5"),
		Token:                domain.TokenUSDC,
		Status:               domain.InvoiceStatusPaid,
		Label:                "Coffee Shop",
		Message:              "Order #42",
		Memo:                 "inv-42",
		PaymentURL:           "solana:" + wallet.String() + "?amount=2.5",
		TransactionSignature: &sig,
		CustomerWallet:       &wallet,
		Metadata:             json.RawMessage(`{"order":42}`),
		CreatedAt:            paidAt.Add(-time.Minute),
		UpdatedAt:            paidAt,
		PaidAt:               &paidAt,
		ExpiresAt:            &expiresAt,
	}

	got, err := rowToInvoice(invoiceToRow(invoice))
	require.NoError(t, err)

	assert.Equal(t, invoice.ID, got.ID)
	assert.Equal(t, invoice.Reference, got.Reference)
	assert.Equal(t, invoice.Recipient, got.Recipient)
	assert.True(t, invoice.Amount.Equal(got.Amount))
	assert.Equal(t, invoice.Token, got.Token)
	assert.Equal(t, invoice.Status, got.Status)
	assert.Equal(t, invoice.Label, got.Label)
	assert.Equal(t, invoice.Message, got.Message)
	assert.Equal(t, invoice.Memo, got.Memo)
	assert.Equal(t, invoice.PaymentURL, got.PaymentURL)
	require.NotNil(t, got.TransactionSignature)
	assert.Equal(t, *invoice.TransactionSignature, *got.TransactionSignature)
	require.NotNil(t, got.CustomerWallet)
	assert.Equal(t, *invoice.CustomerWallet, *got.CustomerWallet)
	assert.Equal(t, invoice.Metadata, got.Metadata)
	assert.True(t, invoice.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, invoice.UpdatedAt.Equal(got.UpdatedAt))
	require.NotNil(t, got.PaidAt)
	assert.True(t, invoice.PaidAt.Equal(*got.PaidAt))
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, invoice.ExpiresAt.Equal(*got.ExpiresAt))
}

func TestInvoiceRowRoundTripNilOptionals(t *testing.T) {
	invoice := domain.Invoice{
		ID:        uuid.New().String(),
		Reference: solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		Recipient: solana.MustPublicKeyFromBase58("mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW"),
		Amount:    decimal.RequireFromString("1"),
		Token:     domain.TokenSOL,
		Status:    domain.InvoiceStatusCreated,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	got, err := rowToInvoice(invoiceToRow(invoice))
	require.NoError(t, err)

	assert.Nil(t, got.TransactionSignature)
	assert.Nil(t, got.CustomerWallet)
	assert.Nil(t, got.PaidAt)
	assert.Nil(t, got.ExpiresAt)
	assert.Nil(t, got.Metadata)
	assert.Empty(t, got.Label)
}

func TestRowToInvoiceRejectsCorruptKeys(t *testing.T) {
	row := invoiceToRow(domain.Invoice{
		ID:        "inv-1",
		Reference: solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"),
		Recipient: solana.MustPublicKeyFromBase58("mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW"),
		Amount:    decimal.RequireFromString("1"),
	})
	row.Reference = "garbage"

	_, err := rowToInvoice(row)
	assert.Error(t, err)
}
