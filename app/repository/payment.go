package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

var ErrPaymentAlreadyExists = errors.New("payment already exists")

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, merchant_id, amount, currency, method,
			vpa, card_network, card_last4,
			status, error_code, error_description,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.MerchantID,
		payment.Amount,
		payment.Currency,
		string(payment.Method),
		nullableStringValue(payment.VPA),
		nullableStringValue(payment.CardNetwork),
		nullableStringValue(payment.CardLast4),
		string(payment.Status),
		nullableStringValue(payment.ErrorCode),
		nullableStringValue(payment.ErrorDescription),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*entity.Payment, error) {
	query := selectPaymentColumns + ` WHERE id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*entity.Payment, error) {
	query := selectPaymentColumns + ` WHERE merchant_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// MarkTerminal applies the one permitted state transition, conditioned on the
// payment still being in processing. It returns false when no row matched,
// which callers treat as a duplicate delivery rather than an error.
func (r *PaymentRepository) MarkTerminal(ctx context.Context, id string, status entity.PaymentStatus, errorCode, errorDescription *string, now time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = ?, error_code = ?, error_description = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(status),
		nullableStringValue(errorCode),
		nullableStringValue(errorDescription),
		now,
		id,
		string(entity.PaymentStatusProcessing),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

const selectPaymentColumns = `
	SELECT id, order_id, merchant_id, amount, currency, method,
		vpa, card_network, card_last4,
		status, error_code, error_description,
		created_at, updated_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var method, status string
	var vpa sql.NullString
	var cardNetwork sql.NullString
	var cardLast4 sql.NullString
	var errorCode sql.NullString
	var errorDescription sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.MerchantID,
		&payment.Amount,
		&payment.Currency,
		&method,
		&vpa,
		&cardNetwork,
		&cardLast4,
		&status,
		&errorCode,
		&errorDescription,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.Method = entity.PaymentMethod(method)
	payment.Status = entity.PaymentStatus(status)
	payment.VPA = stringPtrFromNull(vpa)
	payment.CardNetwork = stringPtrFromNull(cardNetwork)
	payment.CardLast4 = stringPtrFromNull(cardLast4)
	payment.ErrorCode = stringPtrFromNull(errorCode)
	payment.ErrorDescription = stringPtrFromNull(errorDescription)

	return nil
}
