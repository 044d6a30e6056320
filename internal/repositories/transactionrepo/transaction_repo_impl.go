package transactionrepo

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

type transactionRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ITransactionRepository {
	return &transactionRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

const transactionColumns = `id, invoice_id, signature, amount, token, from_address, to_address,
	status, slot, confirmations, fee, memo, metadata, timestamp, created_at, updated_at`

type transactionRow struct {
	ID            string
	InvoiceID     string
	Signature     string
	Amount        string
	Token         string
	FromAddress   string
	ToAddress     string
	Status        string
	Slot          int64
	Confirmations int32
	Fee           string
	Memo          sql.NullString
	Metadata      pqtype.NullRawMessage
	Timestamp     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *transactionRepositoryImpl) Create(ctx context.Context, tx domain.Transaction) error {
	row := transactionToRow(tx)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		row.ID, row.InvoiceID, row.Signature, row.Amount, row.Token,
		row.FromAddress, row.ToAddress, row.Status, row.Slot, row.Confirmations,
		row.Fee, row.Memo, row.Metadata, row.Timestamp, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("signature", row.Signature).Msg("Failed to create transaction")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *transactionRepositoryImpl) GetBySignature(ctx context.Context, invoiceID string, signature solana.Signature) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE invoice_id = $1 AND signature = $2`,
		invoiceID, signature.String())

	var tr transactionRow
	err := scanTransaction(row.Scan, &tr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("invoice_id", invoiceID).Str("signature", signature.String()).Msg("Failed to get transaction by signature")
		return nil, fmt.Errorf("failed to get transaction by signature: %w", err)
	}

	tx, err := rowToTransaction(tr)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepositoryImpl) ListByInvoice(ctx context.Context, invoiceID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE invoice_id = $1 ORDER BY timestamp ASC`,
		invoiceID)
	if err != nil {
		r.logger.Err(err).Str("invoice_id", invoiceID).Msg("Failed to list transactions")
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tr transactionRow
		if err := scanTransaction(rows.Scan, &tr); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx, err := rowToTransaction(tr)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(scan func(...interface{}) error, tr *transactionRow) error {
	return scan(
		&tr.ID, &tr.InvoiceID, &tr.Signature, &tr.Amount, &tr.Token,
		&tr.FromAddress, &tr.ToAddress, &tr.Status, &tr.Slot, &tr.Confirmations,
		&tr.Fee, &tr.Memo, &tr.Metadata, &tr.Timestamp, &tr.CreatedAt, &tr.UpdatedAt,
	)
}

func transactionToRow(tx domain.Transaction) transactionRow {
	return transactionRow{
		ID:            tx.ID,
		InvoiceID:     tx.InvoiceID,
		Signature:     tx.Signature.String(),
		Amount:        tx.Amount.String(),
		Token:         string(tx.Token),
		FromAddress:   tx.FromAddress.String(),
		ToAddress:     tx.ToAddress.String(),
		Status:        string(tx.Status),
		Slot:          int64(tx.Slot),
		Confirmations: int32(tx.Confirmations),
		Fee:           tx.Fee.String(),
		Memo:          sql.NullString{String: tx.Memo, Valid: tx.Memo != ""},
		Metadata:      pqtype.NullRawMessage{RawMessage: tx.Metadata, Valid: tx.Metadata != nil},
		Timestamp:     tx.Timestamp,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

func rowToTransaction(row transactionRow) (domain.Transaction, error) {
	signature, err := solana.SignatureFromBase58(row.Signature)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid signature in transaction %s: %w", row.ID, err)
	}
	from, err := solana.PublicKeyFromBase58(row.FromAddress)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid from address in transaction %s: %w", row.ID, err)
	}
	to, err := solana.PublicKeyFromBase58(row.ToAddress)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid to address in transaction %s: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount in transaction %s: %w", row.ID, err)
	}
	fee, err := decimal.NewFromString(row.Fee)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid fee in transaction %s: %w", row.ID, err)
	}

	tx := domain.Transaction{
		ID:            row.ID,
		InvoiceID:     row.InvoiceID,
		Signature:     signature,
		Amount:        amount,
		Token:         domain.TokenCode(row.Token),
		FromAddress:   from,
		ToAddress:     to,
		Status:        domain.TransactionStatus(row.Status),
		Slot:          uint64(row.Slot),
		Confirmations: int(row.Confirmations),
		Fee:           fee,
		Memo:          row.Memo.String,
		Timestamp:     row.Timestamp,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.Metadata.Valid {
		tx.Metadata = row.Metadata.RawMessage
	}
	return tx, nil
}
