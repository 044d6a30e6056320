package invoicerepo

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/paywatch/paywatch/internal/domain"
)

type IInvoiceRepository interface {
	Create(ctx context.Context, invoice domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	GetByReference(ctx context.Context, reference solana.PublicKey) (*domain.Invoice, error)
	List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error)
	LoadOpenInvoices(ctx context.Context, limit, offset int) ([]domain.Invoice, error)
	// MarkPaid sets status, paid_at, transaction_signature and customer_wallet
	// in a single write, and only when the invoice is still open.
	MarkPaid(ctx context.Context, id string, signature solana.Signature, payer solana.PublicKey, paidAt time.Time) error
	// UpdateStatus moves an open invoice to a non-paid status (expired,
	// cancelled, refunded, pending).
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error
}
