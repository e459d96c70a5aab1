package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

var ErrOrderAlreadyExists = errors.New("order already exists")

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	notesJSON, err := serializeNotes(order.Notes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, merchant_id, amount, currency, receipt, notes_json, status, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.MerchantID,
		order.Amount,
		order.Currency,
		nullableStringValue(order.Receipt),
		notesJSON,
		order.Status,
		order.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT id, merchant_id, amount, currency, receipt, notes_json, status, created_at
		FROM orders
		WHERE id = ?
	`

	order := &entity.Order{}
	var receipt sql.NullString
	var notesJSON string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.MerchantID,
		&order.Amount,
		&order.Currency,
		&receipt,
		&notesJSON,
		&order.Status,
		&order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	order.Receipt = stringPtrFromNull(receipt)
	notes, err := parseNotes(notesJSON)
	if err != nil {
		return nil, err
	}
	order.Notes = notes

	return order, nil
}
