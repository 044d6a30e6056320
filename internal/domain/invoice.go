package domain

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusCreated   InvoiceStatus = "created"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusExpired   InvoiceStatus = "expired"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

// IsTerminal reports whether no further automatic transition can occur.
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// IsOpen reports whether the monitor should still scan for a payment.
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusCreated || s == InvoiceStatusPending
}

// Invoice is a payment request awaiting settlement. Reference is a freshly
// generated public key embedded in the payment URL; it is unique across all
// invoices ever created and never reused, so an on-chain transaction tagged
// with it belongs to exactly one invoice.
type Invoice struct {
	ID                   string            `json:"id" db:"id"`
	Reference            solana.PublicKey  `json:"reference" db:"reference"`
	Recipient            solana.PublicKey  `json:"recipient" db:"recipient"`
	Amount               decimal.Decimal   `json:"amount" db:"amount"`
	Token                TokenCode         `json:"token" db:"token"`
	Status               InvoiceStatus     `json:"status" db:"status"`
	Label                string            `json:"label" db:"label"`
	Message              string            `json:"message" db:"message"`
	Memo                 string            `json:"memo" db:"memo"`
	PaymentURL           string            `json:"payment_url" db:"payment_url"`
	TransactionSignature *solana.Signature `json:"transaction_signature,omitempty" db:"transaction_signature"`
	CustomerWallet       *solana.PublicKey `json:"customer_wallet,omitempty" db:"customer_wallet"`
	Metadata             json.RawMessage   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
	PaidAt               *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	ExpiresAt            *time.Time        `json:"expires_at,omitempty" db:"expires_at"`
}

// Expired reports whether the invoice carries a deadline that has passed.
func (i *Invoice) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
