package domain

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
	TxStatusFinalized TransactionStatus = "finalized"
	TxStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TxStatusFinalized || s == TxStatusFailed
}

// Transaction is an observed on-chain transfer matched to an invoice.
// Signature is unique on-chain and acts as the dedup key: the monitor never
// records the same signature twice for the same invoice.
type Transaction struct {
	ID            string            `json:"id" db:"id"`
	InvoiceID     string            `json:"invoice_id" db:"invoice_id"`
	Signature     solana.Signature  `json:"signature" db:"signature"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Token         TokenCode         `json:"token" db:"token"`
	FromAddress   solana.PublicKey  `json:"from_address" db:"from_address"`
	ToAddress     solana.PublicKey  `json:"to_address" db:"to_address"`
	Status        TransactionStatus `json:"status" db:"status"`
	Slot          uint64            `json:"slot" db:"slot"`
	Confirmations int               `json:"confirmations" db:"confirmations"`
	Fee           decimal.Decimal   `json:"fee" db:"fee"`
	Memo          string            `json:"memo" db:"memo"`
	Metadata      json.RawMessage   `json:"metadata,omitempty" db:"metadata"`
	Timestamp     time.Time         `json:"timestamp" db:"timestamp"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// PaymentConfirmation is the ephemeral tuple handed to confirmed-payment
// subscribers at the moment an invoice reaches paid. It is never persisted.
type PaymentConfirmation struct {
	Invoice        Invoice          `json:"invoice"`
	Signature      solana.Signature `json:"signature"`
	CustomerWallet solana.PublicKey `json:"customer_wallet"`
	ActualAmount   decimal.Decimal  `json:"actual_amount"`
	Timestamp      time.Time        `json:"timestamp"`
}
