package invoicerepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"

	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/infrastructure/database"
)

type invoiceRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IInvoiceRepository {
	return &invoiceRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

const invoiceColumns = `id, reference, recipient, amount, token, status, label, message, memo,
	payment_url, transaction_signature, customer_wallet, metadata, created_at, updated_at, paid_at, expires_at`

// invoiceRow mirrors the invoices table. Keys and signatures are stored as
// base58 text so rows stay readable and round-trip losslessly.
type invoiceRow struct {
	ID                   string
	Reference            string
	Recipient            string
	Amount               string
	Token                string
	Status               string
	Label                sql.NullString
	Message              sql.NullString
	Memo                 sql.NullString
	PaymentURL           string
	TransactionSignature sql.NullString
	CustomerWallet       sql.NullString
	Metadata             pqtype.NullRawMessage
	CreatedAt            time.Time
	UpdatedAt            time.Time
	PaidAt               sql.NullTime
	ExpiresAt            sql.NullTime
}

func (r *invoiceRepositoryImpl) Create(ctx context.Context, invoice domain.Invoice) error {
	row := invoiceToRow(invoice)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		row.ID, row.Reference, row.Recipient, row.Amount, row.Token, row.Status,
		row.Label, row.Message, row.Memo, row.PaymentURL,
		row.TransactionSignature, row.CustomerWallet, row.Metadata,
		row.CreatedAt, row.UpdatedAt, row.PaidAt, row.ExpiresAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Failed to create invoice")
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

func (r *invoiceRepositoryImpl) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return r.scanOne(row, "id", id)
}

func (r *invoiceRepositoryImpl) GetByReference(ctx context.Context, reference solana.PublicKey) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE reference = $1`, reference.String())
	return r.scanOne(row, "reference", reference.String())
}

func (r *invoiceRepositoryImpl) List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, string(*status), limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	return r.queryMany(ctx, query, args...)
}

func (r *invoiceRepositoryImpl) LoadOpenInvoices(ctx context.Context, limit, offset int) ([]domain.Invoice, error) {
	return r.queryMany(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC, id ASC LIMIT $3 OFFSET $4`,
		string(domain.InvoiceStatusCreated), string(domain.InvoiceStatusPending), limit, offset)
}

func (r *invoiceRepositoryImpl) MarkPaid(ctx context.Context, id string, signature solana.Signature, payer solana.PublicKey, paidAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices
		SET status = $1, transaction_signature = $2, customer_wallet = $3, paid_at = $4, updated_at = NOW()
		WHERE id = $5 AND status IN ($6, $7)`,
		string(domain.InvoiceStatusPaid), signature.String(), payer.String(), paidAt,
		id, string(domain.InvoiceStatusCreated), string(domain.InvoiceStatusPending),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("invoice_id", id).Msg("Failed to mark invoice paid")
		return fmt.Errorf("failed to mark invoice %s paid: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark invoice %s paid: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice %s is not open", id)
	}

	return nil
}

func (r *invoiceRepositoryImpl) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	if status == domain.InvoiceStatusPaid {
		return fmt.Errorf("paid transitions must go through MarkPaid")
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`,
		string(status), id,
		string(domain.InvoiceStatusCreated), string(domain.InvoiceStatusPending),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("invoice_id", id).Str("status", string(status)).Msg("Failed to update invoice status")
		return fmt.Errorf("failed to update invoice %s status: %w", id, err)
	}

	return nil
}

func (r *invoiceRepositoryImpl) scanOne(row *sql.Row, field, value string) (*domain.Invoice, error) {
	var ir invoiceRow
	err := row.Scan(
		&ir.ID, &ir.Reference, &ir.Recipient, &ir.Amount, &ir.Token, &ir.Status,
		&ir.Label, &ir.Message, &ir.Memo, &ir.PaymentURL,
		&ir.TransactionSignature, &ir.CustomerWallet, &ir.Metadata,
		&ir.CreatedAt, &ir.UpdatedAt, &ir.PaidAt, &ir.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str(field, value).Msg("Failed to get invoice")
		return nil, fmt.Errorf("failed to get invoice by %s: %w", field, err)
	}

	invoice, err := rowToInvoice(ir)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepositoryImpl) queryMany(ctx context.Context, query string, args ...interface{}) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list invoices")
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var ir invoiceRow
		if err := rows.Scan(
			&ir.ID, &ir.Reference, &ir.Recipient, &ir.Amount, &ir.Token, &ir.Status,
			&ir.Label, &ir.Message, &ir.Memo, &ir.PaymentURL,
			&ir.TransactionSignature, &ir.CustomerWallet, &ir.Metadata,
			&ir.CreatedAt, &ir.UpdatedAt, &ir.PaidAt, &ir.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoice, err := rowToInvoice(ir)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func invoiceToRow(invoice domain.Invoice) invoiceRow {
	row := invoiceRow{
		ID:         invoice.ID,
		Reference:  invoice.Reference.String(),
		Recipient:  invoice.Recipient.String(),
		Amount:     invoice.Amount.String(),
		Token:      string(invoice.Token),
		Status:     string(invoice.Status),
		Label:      sql.NullString{String: invoice.Label, Valid: invoice.Label != ""},
		Message:    sql.NullString{String: invoice.Message, Valid: invoice.Message != ""},
		Memo:       sql.NullString{String: invoice.Memo, Valid: invoice.Memo != ""},
		PaymentURL: invoice.PaymentURL,
		Metadata:   pqtype.NullRawMessage{RawMessage: invoice.Metadata, Valid: invoice.Metadata != nil},
		CreatedAt:  invoice.CreatedAt,
		UpdatedAt:  invoice.UpdatedAt,
	}
	if invoice.TransactionSignature != nil {
		row.TransactionSignature = sql.NullString{String: invoice.TransactionSignature.String(), Valid: true}
	}
	if invoice.CustomerWallet != nil {
		row.CustomerWallet = sql.NullString{String: invoice.CustomerWallet.String(), Valid: true}
	}
	if invoice.PaidAt != nil {
		row.PaidAt = sql.NullTime{Time: *invoice.PaidAt, Valid: true}
	}
	if invoice.ExpiresAt != nil {
		row.ExpiresAt = sql.NullTime{Time: *invoice.ExpiresAt, Valid: true}
	}
	return row
}

func rowToInvoice(row invoiceRow) (domain.Invoice, error) {
	reference, err := solana.PublicKeyFromBase58(row.Reference)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("invalid reference in invoice %s: %w", row.ID, err)
	}
	recipient, err := solana.PublicKeyFromBase58(row.Recipient)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("invalid recipient in invoice %s: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("invalid amount in invoice %s: %w", row.ID, err)
	}

	invoice := domain.Invoice{
		ID:         row.ID,
		Reference:  reference,
		Recipient:  recipient,
		Amount:     amount,
		Token:      domain.TokenCode(row.Token),
		Status:     domain.InvoiceStatus(row.Status),
		Label:      row.Label.String,
		Message:    row.Message.String,
		Memo:       row.Memo.String,
		PaymentURL: row.PaymentURL,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.Metadata.Valid {
		invoice.Metadata = row.Metadata.RawMessage
	}
	if row.TransactionSignature.Valid {
		sig, err := solana.SignatureFromBase58(row.TransactionSignature.String)
		if err != nil {
			return domain.Invoice{}, fmt.Errorf("invalid signature in invoice %s: %w", row.ID, err)
		}
		invoice.TransactionSignature = &sig
	}
	if row.CustomerWallet.Valid {
		wallet, err := solana.PublicKeyFromBase58(row.CustomerWallet.String)
		if err != nil {
			return domain.Invoice{}, fmt.Errorf("invalid customer wallet in invoice %s: %w", row.ID, err)
		}
		invoice.CustomerWallet = &wallet
	}
	if row.PaidAt.Valid {
		paidAt := row.PaidAt.Time
		invoice.PaidAt = &paidAt
	}
	if row.ExpiresAt.Valid {
		expiresAt := row.ExpiresAt.Time
		invoice.ExpiresAt = &expiresAt
	}
	return invoice, nil
}
