package paymentmonitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/paywatch/paywatch/internal/domain"
)

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]domain.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]domain.Invoice)}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := invoice
	return &copied, nil
}

func (r *fakeInvoiceRepo) GetByReference(_ context.Context, reference solana.PublicKey) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invoice := range r.invoices {
		if invoice.Reference.Equals(reference) {
			copied := invoice
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Invoice
	for _, invoice := range r.invoices {
		if status == nil || invoice.Status == *status {
			result = append(result, invoice)
		}
	}
	return result, nil
}

func (r *fakeInvoiceRepo) LoadOpenInvoices(_ context.Context, limit, offset int) ([]domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []domain.Invoice
	for _, invoice := range r.invoices {
		if invoice.Status.IsOpen() {
			open = append(open, invoice)
		}
	}
	// Stable order across calls, like the SQL repository's ORDER BY.
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	if offset >= len(open) {
		return nil, nil
	}
	end := offset + limit
	if end > len(open) {
		end = len(open)
	}
	return open[offset:end], nil
}

func (r *fakeInvoiceRepo) MarkPaid(_ context.Context, id string, signature solana.Signature, payer solana.PublicKey, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok || !invoice.Status.IsOpen() {
		return fmt.Errorf("invoice %s is not open", id)
	}
	invoice.Status = domain.InvoiceStatusPaid
	invoice.TransactionSignature = &signature
	invoice.CustomerWallet = &payer
	invoice.PaidAt = &paidAt
	invoice.UpdatedAt = paidAt
	r.invoices[id] = invoice
	return nil
}

func (r *fakeInvoiceRepo) UpdateStatus(_ context.Context, id string, status domain.InvoiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s not found", id)
	}
	if !invoice.Status.IsOpen() {
		return fmt.Errorf("invoice %s is not open", id)
	}
	invoice.Status = status
	invoice.UpdatedAt = time.Now()
	r.invoices[id] = invoice
	return nil
}

func (r *fakeInvoiceRepo) get(id string) domain.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id]
}

type fakeTxRepo struct {
	mu  sync.Mutex
	txs []domain.Transaction
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{}
}

func (r *fakeTxRepo) Create(_ context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.txs {
		if existing.InvoiceID == tx.InvoiceID && existing.Signature == tx.Signature {
			return fmt.Errorf("duplicate transaction %s for invoice %s", tx.Signature, tx.InvoiceID)
		}
	}
	r.txs = append(r.txs, tx)
	return nil
}

func (r *fakeTxRepo) GetBySignature(_ context.Context, invoiceID string, signature solana.Signature) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.InvoiceID == invoiceID && tx.Signature == signature {
			copied := tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeTxRepo) ListByInvoice(_ context.Context, invoiceID string) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Transaction
	for _, tx := range r.txs {
		if tx.InvoiceID == invoiceID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeTxRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

// fakeChain serves canned signatures per reference and parsed transactions
// per signature, with optional error injection.
type fakeChain struct {
	mu         sync.Mutex
	signatures map[solana.PublicKey][]domain.SignatureInfo
	parsed     map[solana.Signature]*domain.ParsedTransaction
	sigErr     error
	fetchErr   error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		signatures: make(map[solana.PublicKey][]domain.SignatureInfo),
		parsed:     make(map[solana.Signature]*domain.ParsedTransaction),
	}
}

func (c *fakeChain) addTransfer(reference solana.PublicKey, info domain.SignatureInfo, tx *domain.ParsedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Newest first, matching the RPC ordering.
	c.signatures[reference] = append([]domain.SignatureInfo{info}, c.signatures[reference]...)
	if tx != nil {
		sig := solana.MustSignatureFromBase58(info.Signature)
		c.parsed[sig] = tx
	}
}

func (c *fakeChain) GetSignaturesForAddress(_ context.Context, address solana.PublicKey, until *solana.Signature, limit int) ([]domain.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sigErr != nil {
		return nil, c.sigErr
	}

	infos := c.signatures[address]
	if until == nil {
		return append([]domain.SignatureInfo{}, infos...), nil
	}
	var newer []domain.SignatureInfo
	for _, info := range infos {
		if info.Signature == until.String() {
			break
		}
		newer = append(newer, info)
	}
	return newer, nil
}

func (c *fakeChain) GetParsedTransaction(_ context.Context, signature solana.Signature) (*domain.ParsedTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.parsed[signature], nil
}
