package invoiceservice

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/repositories/invoicerepo"
	"github.com/paywatch/paywatch/internal/repositories/transactionrepo"
	"github.com/paywatch/paywatch/pkg/config"
	"github.com/paywatch/paywatch/pkg/solanapay"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type invoiceService struct {
	invoiceRepo invoicerepo.IInvoiceRepository
	txRepo      transactionrepo.ITransactionRepository
	tokens      *domain.TokenRegistry
	config      config.MonitorConfig
	logger      zerolog.Logger
}

func New(
	invoiceRepo invoicerepo.IInvoiceRepository,
	txRepo transactionrepo.ITransactionRepository,
	tokens *domain.TokenRegistry,
	cfg config.MonitorConfig,
	logger zerolog.Logger,
) IInvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		txRepo:      txRepo,
		tokens:      tokens,
		config:      cfg,
		logger:      logger,
	}
}

func (s *invoiceService) Create(ctx context.Context, params CreateParams) (*domain.Invoice, error) {
	recipient, err := solana.PublicKeyFromBase58(params.Recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", params.Amount)
	}
	token, err := s.tokens.Get(params.Token)
	if err != nil {
		return nil, err
	}
	if params.ExpiresIn < 0 {
		return nil, fmt.Errorf("expires_in must not be negative")
	}

	reference, err := solanapay.GenerateReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reference: %w", err)
	}

	label := params.Label
	if label == "" {
		label = s.config.Label
	}

	now := time.Now()
	invoice := domain.Invoice{
		ID:        uuid.New().String(),
		Reference: reference,
		Recipient: recipient,
		Amount:    params.Amount,
		Token:     params.Token,
		Status:    domain.InvoiceStatusCreated,
		Label:     label,
		Message:   params.Message,
		Memo:      params.Memo,
		Metadata:  params.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.ExpiresIn > 0 {
		expiresAt := now.Add(params.ExpiresIn)
		invoice.ExpiresAt = &expiresAt
	}

	invoice.PaymentURL = solanapay.EncodeURL(solanapay.Request{
		Recipient: recipient,
		Amount:    params.Amount,
		SPLToken:  token.Mint,
		Reference: reference,
		Label:     label,
		Message:   params.Message,
		Memo:      params.Memo,
	})

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to persist invoice: %w", err)
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID).
		Str("reference", reference.String()).
		Str("amount", params.Amount.String()).
		Str("token", string(params.Token)).
		Msg("Invoice created")

	return &invoice, nil
}

func (s *invoiceService) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrNotFound
	}
	return invoice, nil
}

func (s *invoiceService) GetByReference(ctx context.Context, reference string) (*domain.Invoice, error) {
	key, err := solana.PublicKeyFromBase58(reference)
	if err != nil {
		return nil, fmt.Errorf("invalid reference: %w", err)
	}
	invoice, err := s.invoiceRepo.GetByReference(ctx, key)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrNotFound
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.invoiceRepo.List(ctx, status, limit, offset)
}

func (s *invoiceService) Cancel(ctx context.Context, id string) (*domain.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status.IsTerminal() {
		return nil, ErrNotCancellable
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, domain.InvoiceStatusCancelled); err != nil {
		return nil, err
	}

	s.logger.Info().Str("invoice_id", id).Msg("Invoice cancelled")
	return s.Get(ctx, id)
}

func (s *invoiceService) ListTransactions(ctx context.Context, invoiceID string) ([]domain.Transaction, error) {
	if _, err := s.Get(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.txRepo.ListByInvoice(ctx, invoiceID)
}

func (s *invoiceService) Links(invoice *domain.Invoice) PaymentLinks {
	req := solanapay.Request{
		Recipient: invoice.Recipient,
		Amount:    invoice.Amount,
		Reference: invoice.Reference,
		Label:     invoice.Label,
		Message:   invoice.Message,
		Memo:      invoice.Memo,
	}
	if token, err := s.tokens.Get(invoice.Token); err == nil {
		req.SPLToken = token.Mint
	}

	links := PaymentLinks{
		PaymentURL:  invoice.PaymentURL,
		WalletLinks: solanapay.WalletUniversalLinks(req),
	}
	if s.config.RedirectBaseURL != "" {
		links.RedirectURL = solanapay.HostedRedirectURL(s.config.RedirectBaseURL, req)
	}
	return links
}
