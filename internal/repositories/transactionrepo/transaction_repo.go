package transactionrepo

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/paywatch/paywatch/internal/domain"
)

type ITransactionRepository interface {
	Create(ctx context.Context, tx domain.Transaction) error
	// GetBySignature is the dedup lookup: has this signature already been
	// recorded for this invoice.
	GetBySignature(ctx context.Context, invoiceID string, signature solana.Signature) (*domain.Transaction, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]domain.Transaction, error)
}
