package paymentmonitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/infrastructure/rpc"
	"github.com/paywatch/paywatch/internal/repositories/invoicerepo"
	"github.com/paywatch/paywatch/internal/repositories/transactionrepo"
	"github.com/paywatch/paywatch/pkg/config"
	"github.com/paywatch/paywatch/pkg/currency"
)

const (
	defaultPollingInterval = 5 // seconds
	defaultSignatureLimit  = 100
	loadBatchSize          = 100
)

type paymentMonitor struct {
	invoiceRepo invoicerepo.IInvoiceRepository
	txRepo      transactionrepo.ITransactionRepository
	chain       ChainClient
	tokens      *domain.TokenRegistry
	config      config.MonitorConfig
	logger      zerolog.Logger
	amounts     *currency.AmountUtils

	mu      sync.Mutex // run state and subscriber lists
	running bool
	cancel  context.CancelFunc

	scanning atomic.Bool // gate: at most one scan in flight

	// claimMu serializes payment claims between the periodic scan and manual
	// checks: once a signature is claimed for an invoice, no other path may
	// claim it. The notified maps live under it.
	claimMu           sync.Mutex
	confirmedNotified map[string]bool
	failedNotified    map[string]bool

	cursorMu sync.Mutex
	cursors  map[solana.PublicKey]solana.Signature // high-water mark per reference

	confirmedSubs []func(domain.PaymentConfirmation)
	failedSubs    []func(domain.Invoice, error)
}

func New(
	invoiceRepo invoicerepo.IInvoiceRepository,
	txRepo transactionrepo.ITransactionRepository,
	chain ChainClient,
	tokens *domain.TokenRegistry,
	cfg config.MonitorConfig,
	logger zerolog.Logger,
) IPaymentMonitor {
	return &paymentMonitor{
		invoiceRepo:       invoiceRepo,
		txRepo:            txRepo,
		chain:             chain,
		tokens:            tokens,
		config:            cfg,
		logger:            logger,
		amounts:           currency.NewAmountUtils(),
		confirmedNotified: make(map[string]bool),
		failedNotified:    make(map[string]bool),
		cursors:           make(map[solana.PublicKey]solana.Signature),
	}
}

func (m *paymentMonitor) StartMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	interval := m.config.PollingInterval
	if interval <= 0 {
		interval = defaultPollingInterval
	}

	m.logger.Info().Int("polling_interval", interval).Msg("Starting payment monitor")
	go m.run(ctx, time.Duration(interval)*time.Second)
}

func (m *paymentMonitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	m.cancel()
	m.cancel = nil
	m.running = false
	m.logger.Info().Msg("Payment monitor stopped")
}

func (m *paymentMonitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MonitorStatus{IsMonitoring: m.running}
}

func (m *paymentMonitor) OnPaymentConfirmed(fn func(domain.PaymentConfirmation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmedSubs = append(m.confirmedSubs, fn)
}

func (m *paymentMonitor) OnPaymentFailed(fn func(domain.Invoice, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedSubs = append(m.failedSubs, fn)
}

func (m *paymentMonitor) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.scanning.CompareAndSwap(false, true) {
				m.logger.Debug().Msg("Scan still in progress, skipping tick")
				continue
			}
			m.scan(ctx)
			m.scanning.Store(false)
		}
	}
}

// scan processes every open invoice once. Failures are isolated per invoice:
// one invoice's error never aborts the others.
func (m *paymentMonitor) scan(ctx context.Context) {
	// Snapshot the open set before touching any invoice: paying or expiring
	// an invoice mid-batch shrinks the open result set, and paginating over a
	// shrinking set would skip invoices this tick.
	var open []domain.Invoice
	for offset := 0; ; offset += loadBatchSize {
		batch, err := m.invoiceRepo.LoadOpenInvoices(ctx, loadBatchSize, offset)
		if err != nil {
			m.logger.Error().Err(err).Msg("Failed to load open invoices")
			return
		}
		open = append(open, batch...)
		if len(batch) < loadBatchSize {
			break
		}
	}

	for _, invoice := range open {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := m.processInvoice(ctx, invoice); err != nil {
			m.logger.Error().
				Str("invoice_id", invoice.ID).
				Err(err).
				Msg("Invoice check failed")
			m.dispatchFailed(invoice, err)
		}
	}
}

func (m *paymentMonitor) CheckInvoicePayment(ctx context.Context, invoiceID string) (bool, error) {
	invoice, err := m.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if invoice == nil {
		return false, nil
	}
	return m.processInvoice(ctx, *invoice)
}

// processInvoice runs one check cycle for one invoice. It returns whether the
// invoice is (now) paid. A non-nil error is a hard, invoice-scoped failure;
// transient infra errors are logged and swallowed so the next tick retries.
func (m *paymentMonitor) processInvoice(ctx context.Context, invoice domain.Invoice) (bool, error) {
	now := time.Now()

	if invoice.Status.IsTerminal() {
		return invoice.Status == domain.InvoiceStatusPaid, nil
	}

	// Expiry wins over any late-arriving payment.
	if invoice.Expired(now) {
		if err := m.invoiceRepo.UpdateStatus(ctx, invoice.ID, domain.InvoiceStatusExpired); err != nil {
			m.logger.Error().Str("invoice_id", invoice.ID).Err(err).Msg("Failed to mark invoice expired")
			return false, nil
		}
		m.dropCursor(invoice.Reference)
		m.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice expired")
		return false, nil
	}

	// Restart safety: an invoice that already carries a signature was claimed
	// before; never reprocess or re-announce it.
	if invoice.TransactionSignature != nil {
		return invoice.Status == domain.InvoiceStatusPaid, nil
	}

	token, err := m.tokens.Get(invoice.Token)
	if err != nil {
		return false, fmt.Errorf("invoice %s has unsupported token: %w", invoice.ID, err)
	}

	if invoice.Status == domain.InvoiceStatusCreated {
		if err := m.invoiceRepo.UpdateStatus(ctx, invoice.ID, domain.InvoiceStatusPending); err != nil {
			m.logger.Warn().Str("invoice_id", invoice.ID).Err(err).Msg("Failed to mark invoice pending")
		}
	}

	limit := m.config.SignatureLimit
	if limit <= 0 {
		limit = defaultSignatureLimit
	}

	cursor := m.cursor(invoice.Reference)
	infos, err := m.chain.GetSignaturesForAddress(ctx, invoice.Reference, cursor, limit)
	if err != nil {
		if rpc.IsTransient(err) {
			m.logger.Warn().Str("invoice_id", invoice.ID).Err(err).Msg("Transient error fetching signatures, will retry")
			return false, nil
		}
		return false, fmt.Errorf("signature scan failed for invoice %s: %w", invoice.ID, err)
	}

	// Newest first on the wire; process oldest first so the cursor only ever
	// moves forward over fully handled signatures.
	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]

		signature, err := solana.SignatureFromBase58(info.Signature)
		if err != nil {
			return false, fmt.Errorf("malformed signature %q for invoice %s: %w", info.Signature, invoice.ID, err)
		}

		if info.Failed() {
			m.setCursor(invoice.Reference, signature)
			return false, fmt.Errorf("transaction %s referencing invoice %s failed on-chain", info.Signature, invoice.ID)
		}

		// Dedup by signature against the store, not monitor memory alone: a
		// fresh monitor after a restart must not double-process.
		existing, err := m.txRepo.GetBySignature(ctx, invoice.ID, signature)
		if err != nil {
			m.logger.Warn().Str("invoice_id", invoice.ID).Err(err).Msg("Dedup lookup failed, will retry")
			return false, nil
		}
		if existing != nil {
			// A recorded transaction against a still-open invoice means the
			// paid transition failed after the row was written; finish the
			// claim from the persisted row rather than skipping the signature.
			paid, err := m.resumeClaim(ctx, invoice, existing)
			m.setCursor(invoice.Reference, signature)
			if err != nil {
				m.logger.Warn().
					Str("invoice_id", invoice.ID).
					Str("signature", info.Signature).
					Err(err).
					Msg("Failed to resume recorded payment, will retry")
				return false, nil
			}
			if paid {
				return true, nil
			}
			continue
		}

		parsed, err := m.chain.GetParsedTransaction(ctx, signature)
		if err != nil {
			if rpc.IsTransient(err) {
				m.logger.Warn().
					Str("invoice_id", invoice.ID).
					Str("signature", info.Signature).
					Err(err).
					Msg("Transient error fetching transaction, will retry")
				return false, nil
			}
			return false, fmt.Errorf("failed to fetch transaction %s for invoice %s: %w", info.Signature, invoice.ID, err)
		}
		if parsed == nil {
			// Not yet available at commitment; cursor stays put so the next
			// tick retries this signature.
			return false, nil
		}

		observed := matchTransfer(invoice, token, parsed, m.amounts)
		if observed == nil {
			// Wrong recipient, token or amount: not a match for this invoice,
			// not an error either.
			m.setCursor(invoice.Reference, signature)
			continue
		}

		paid, err := m.claimPayment(ctx, invoice, info, signature, parsed, token, observed)
		m.setCursor(invoice.Reference, signature)
		if err != nil {
			m.logger.Error().
				Str("invoice_id", invoice.ID).
				Str("signature", info.Signature).
				Err(err).
				Msg("Failed to record matched payment, will retry")
			return false, nil
		}
		if paid {
			return true, nil
		}
	}

	return false, nil
}

// claimPayment atomically records a matched transfer: transaction row,
// invoice paid transition and notified flag move together under claimMu, so a
// concurrent manual check and scan can never both claim the same signature.
// The confirmed callback fires outside the lock.
func (m *paymentMonitor) claimPayment(
	ctx context.Context,
	invoice domain.Invoice,
	info domain.SignatureInfo,
	signature solana.Signature,
	parsed *domain.ParsedTransaction,
	token domain.TokenInfo,
	observed *observedTransfer,
) (bool, error) {
	m.claimMu.Lock()

	// The store is the source of truth; reload before claiming.
	fresh, err := m.invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		m.claimMu.Unlock()
		return false, err
	}
	if fresh == nil || !fresh.Status.IsOpen() {
		m.claimMu.Unlock()
		return fresh != nil && fresh.Status == domain.InvoiceStatusPaid, nil
	}
	if fresh.Expired(time.Now()) {
		m.claimMu.Unlock()
		return false, nil
	}

	txStatus := domain.TxStatusConfirmed
	if info.ConfirmationStatus == "finalized" {
		txStatus = domain.TxStatusFinalized
	}

	timestamp := time.Now()
	if parsed.BlockTime != nil {
		timestamp = time.Unix(*parsed.BlockTime, 0)
	}

	metadata, err := json.Marshal(parsed)
	if err != nil {
		m.logger.Warn().Str("invoice_id", invoice.ID).Err(err).Msg("Failed to marshal transaction metadata")
		metadata = json.RawMessage("{}")
	}

	record := domain.Transaction{
		ID:            uuid.New().String(),
		InvoiceID:     invoice.ID,
		Signature:     signature,
		Amount:        observed.Amount,
		Token:         invoice.Token,
		FromAddress:   observed.Payer,
		ToAddress:     invoice.Recipient,
		Status:        txStatus,
		Slot:          parsed.Slot,
		Confirmations: 1,
		Fee:           m.amounts.RawToHuman(int64(parsed.Fee), solDecimals),
		Memo:          parsed.Memo,
		Metadata:      metadata,
		Timestamp:     timestamp,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := m.txRepo.Create(ctx, record); err != nil {
		m.claimMu.Unlock()
		return false, err
	}

	paidAt := time.Now()
	if err := m.invoiceRepo.MarkPaid(ctx, invoice.ID, signature, observed.Payer, paidAt); err != nil {
		m.claimMu.Unlock()
		return false, err
	}

	alreadyNotified := m.confirmedNotified[invoice.ID]
	m.confirmedNotified[invoice.ID] = true
	m.claimMu.Unlock()

	m.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("signature", signature.String()).
		Str("amount", observed.Amount.String()).
		Str("token", string(invoice.Token)).
		Str("payer", observed.Payer.String()).
		Msg("Payment confirmed")

	if !alreadyNotified {
		paid := *fresh
		paid.Status = domain.InvoiceStatusPaid
		paid.TransactionSignature = &signature
		paid.CustomerWallet = &observed.Payer
		paid.PaidAt = &paidAt
		paid.UpdatedAt = paidAt

		m.dispatchConfirmed(domain.PaymentConfirmation{
			Invoice:        paid,
			Signature:      signature,
			CustomerWallet: observed.Payer,
			ActualAmount:   observed.Amount,
			Timestamp:      timestamp,
		})
	}

	return true, nil
}

// resumeClaim finishes a claim whose paid transition was lost: the
// transaction row exists but the invoice is still open, as after a store
// error or crash between the two writes. Same locking and notification
// discipline as claimPayment, driven from the persisted row.
func (m *paymentMonitor) resumeClaim(ctx context.Context, invoice domain.Invoice, record *domain.Transaction) (bool, error) {
	m.claimMu.Lock()

	fresh, err := m.invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		m.claimMu.Unlock()
		return false, err
	}
	if fresh == nil || !fresh.Status.IsOpen() {
		m.claimMu.Unlock()
		return fresh != nil && fresh.Status == domain.InvoiceStatusPaid, nil
	}

	paidAt := time.Now()
	if err := m.invoiceRepo.MarkPaid(ctx, invoice.ID, record.Signature, record.FromAddress, paidAt); err != nil {
		m.claimMu.Unlock()
		return false, err
	}

	alreadyNotified := m.confirmedNotified[invoice.ID]
	m.confirmedNotified[invoice.ID] = true
	m.claimMu.Unlock()

	m.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("signature", record.Signature.String()).
		Str("amount", record.Amount.String()).
		Msg("Payment confirmed from recorded transaction")

	if !alreadyNotified {
		paid := *fresh
		paid.Status = domain.InvoiceStatusPaid
		signature := record.Signature
		payer := record.FromAddress
		paid.TransactionSignature = &signature
		paid.CustomerWallet = &payer
		paid.PaidAt = &paidAt
		paid.UpdatedAt = paidAt

		m.dispatchConfirmed(domain.PaymentConfirmation{
			Invoice:        paid,
			Signature:      record.Signature,
			CustomerWallet: record.FromAddress,
			ActualAmount:   record.Amount,
			Timestamp:      record.Timestamp,
		})
	}

	return true, nil
}

func (m *paymentMonitor) dispatchConfirmed(confirmation domain.PaymentConfirmation) {
	m.mu.Lock()
	subs := make([]func(domain.PaymentConfirmation), len(m.confirmedSubs))
	copy(subs, m.confirmedSubs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(confirmation)
	}
}

func (m *paymentMonitor) dispatchFailed(invoice domain.Invoice, cause error) {
	m.claimMu.Lock()
	if m.failedNotified[invoice.ID] {
		m.claimMu.Unlock()
		return
	}
	m.failedNotified[invoice.ID] = true
	m.claimMu.Unlock()

	m.mu.Lock()
	subs := make([]func(domain.Invoice, error), len(m.failedSubs))
	copy(subs, m.failedSubs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(invoice, cause)
	}
}

func (m *paymentMonitor) cursor(reference solana.PublicKey) *solana.Signature {
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	if sig, ok := m.cursors[reference]; ok {
		return &sig
	}
	return nil
}

func (m *paymentMonitor) setCursor(reference solana.PublicKey, signature solana.Signature) {
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	m.cursors[reference] = signature
}

func (m *paymentMonitor) dropCursor(reference solana.PublicKey) {
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	delete(m.cursors, reference)
}
