package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

var (
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentNotRefundable      = errors.New("payment is not in a refundable state")
	ErrInsufficientRefundBalance = errors.New("refund amount exceeds remaining balance")
)

// RefundRepository holds *sql.DB rather than DBTX because creating a refund
// spans a transaction: the balance check and the insert must see the payment
// row under the same lock.
type RefundRepository struct {
	db *sql.DB
}

func NewRefundRepository(db *sql.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create validates ownership, payment state, and the remaining refundable
// balance, then inserts the refund. The payment row is locked for the
// duration of the transaction so concurrent refunds against the same payment
// serialize and can never jointly exceed the payment amount.
func (r *RefundRepository) Create(ctx context.Context, refund *entity.Refund) error {
	notesJSON, err := serializeNotes(refund.Notes)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var merchantID, status, currency string
	var amount int64
	err = tx.QueryRowContext(ctx,
		`SELECT merchant_id, status, amount, currency FROM payments WHERE id = ? FOR UPDATE`,
		refund.PaymentID,
	).Scan(&merchantID, &status, &amount, &currency)
	if err == sql.ErrNoRows {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if merchantID != refund.MerchantID {
		return ErrPaymentNotFound
	}
	if entity.PaymentStatus(status) != entity.PaymentStatusSuccess {
		return ErrPaymentNotRefundable
	}

	var refunded int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE payment_id = ?`,
		refund.PaymentID,
	).Scan(&refunded)
	if err != nil {
		return err
	}
	if refund.Amount > amount-refunded {
		return ErrInsufficientRefundBalance
	}

	refund.Currency = currency
	_, err = tx.ExecContext(ctx,
		`INSERT INTO refunds (id, payment_id, merchant_id, amount, currency, status, notes_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		refund.ID,
		refund.PaymentID,
		refund.MerchantID,
		refund.Amount,
		refund.Currency,
		refund.Status,
		notesJSON,
		refund.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RefundRepository) ListByPayment(ctx context.Context, paymentID string) ([]*entity.Refund, error) {
	query := `
		SELECT id, payment_id, merchant_id, amount, currency, status, notes_json, created_at
		FROM refunds
		WHERE payment_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := make([]*entity.Refund, 0)
	for rows.Next() {
		item := &entity.Refund{}
		var notesJSON string
		if err := rows.Scan(
			&item.ID,
			&item.PaymentID,
			&item.MerchantID,
			&item.Amount,
			&item.Currency,
			&item.Status,
			&notesJSON,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		notes, err := parseNotes(notesJSON)
		if err != nil {
			return nil, err
		}
		item.Notes = notes
		refunds = append(refunds, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refunds, nil
}
