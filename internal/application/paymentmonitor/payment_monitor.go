package paymentmonitor

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/paywatch/paywatch/internal/domain"
)

// ChainClient is the chain-query capability the monitor polls. The real
// implementation is the Solana RPC client; tests plug in a deterministic fake.
type ChainClient interface {
	GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, until *solana.Signature, limit int) ([]domain.SignatureInfo, error)
	GetParsedTransaction(ctx context.Context, signature solana.Signature) (*domain.ParsedTransaction, error)
}

type MonitorStatus struct {
	IsMonitoring bool `json:"is_monitoring"`
}

// IPaymentMonitor drives open invoices to a terminal status exactly once by
// correlating on-chain transfers to invoices via their reference keys.
type IPaymentMonitor interface {
	// StartMonitoring begins the recurring scan. Idempotent.
	StartMonitoring()
	// StopMonitoring cancels the recurring scan. Idempotent. An in-flight
	// scan finishes but no further scan is scheduled.
	StopMonitoring()
	Status() MonitorStatus
	// CheckInvoicePayment runs a single on-demand check for one invoice and
	// reports whether a qualifying payment was found. Safe to call while the
	// periodic scan is running; a signature is never claimed twice. An
	// unknown invoice id yields (false, nil).
	CheckInvoicePayment(ctx context.Context, invoiceID string) (bool, error)
	// OnPaymentConfirmed registers a subscriber fired at most once per
	// invoice reaching paid, in registration order.
	OnPaymentConfirmed(fn func(domain.PaymentConfirmation))
	// OnPaymentFailed registers a subscriber fired at most once per invoice
	// on a hard, invoice-scoped failure.
	OnPaymentFailed(fn func(domain.Invoice, error))
}
