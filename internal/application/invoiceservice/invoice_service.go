package invoiceservice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paywatch/paywatch/internal/domain"
)

var (
	ErrNotFound       = errors.New("invoice not found")
	ErrNotCancellable = errors.New("invoice is in a terminal state")
)

// CreateParams carries the merchant's input for a new invoice. Recipient is a
// base58 wallet address; ExpiresIn of zero means the invoice never expires.
type CreateParams struct {
	Recipient string           `json:"recipient"`
	Amount    decimal.Decimal  `json:"amount"`
	Token     domain.TokenCode `json:"token"`
	Label     string           `json:"label"`
	Message   string           `json:"message"`
	Memo      string           `json:"memo"`
	ExpiresIn time.Duration    `json:"expires_in"`
	Metadata  json.RawMessage  `json:"metadata,omitempty"`
}

// PaymentLinks bundles everything a checkout page needs to present one
// invoice: the raw payment URL plus hosted and wallet-specific variants.
type PaymentLinks struct {
	PaymentURL  string            `json:"payment_url"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	WalletLinks map[string]string `json:"wallet_links"`
}

type IInvoiceService interface {
	Create(ctx context.Context, params CreateParams) (*domain.Invoice, error)
	Get(ctx context.Context, id string) (*domain.Invoice, error)
	GetByReference(ctx context.Context, reference string) (*domain.Invoice, error)
	List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error)
	Cancel(ctx context.Context, id string) (*domain.Invoice, error)
	ListTransactions(ctx context.Context, invoiceID string) ([]domain.Transaction, error)
	Links(invoice *domain.Invoice) PaymentLinks
}
