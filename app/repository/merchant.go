package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/A91A1214/Build-Payment-Gateway/app/entity"
)

var (
	ErrMerchantNotFound      = errors.New("merchant not found")
	ErrMerchantAlreadyExists = errors.New("merchant already exists")
)

type MerchantRepository struct {
	db DBTX
}

func NewMerchantRepository(db DBTX) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) Create(ctx context.Context, merchant *entity.Merchant) error {
	query := `
		INSERT INTO merchants (
			id, name, email, api_key, api_secret, webhook_url, is_active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		merchant.ID,
		merchant.Name,
		merchant.Email,
		merchant.APIKey,
		merchant.APISecret,
		nullableStringValue(merchant.WebhookURL),
		merchant.IsActive,
		merchant.CreatedAt,
		merchant.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrMerchantAlreadyExists
		}
		return err
	}

	return nil
}

func (r *MerchantRepository) FindByID(ctx context.Context, id string) (*entity.Merchant, error) {
	return r.findBy(ctx, "id = ?", id)
}

func (r *MerchantRepository) FindByEmail(ctx context.Context, email string) (*entity.Merchant, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *MerchantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*entity.Merchant, error) {
	return r.findBy(ctx, "api_key = ?", apiKey)
}

func (r *MerchantRepository) UpdateWebhookURL(ctx context.Context, id string, webhookURL *string) (*entity.Merchant, error) {
	query := `UPDATE merchants SET webhook_url = ?, updated_at = NOW() WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, nullableStringValue(webhookURL), id)
	if err != nil {
		return nil, err
	}
	if _, err := result.RowsAffected(); err != nil {
		return nil, err
	}

	merchant, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	return merchant, nil
}

func (r *MerchantRepository) findBy(ctx context.Context, condition string, arg interface{}) (*entity.Merchant, error) {
	query := `
		SELECT id, name, email, api_key, api_secret, webhook_url, is_active, created_at, updated_at
		FROM merchants
		WHERE ` + condition + `
		LIMIT 1
	`

	merchant := &entity.Merchant{}
	var webhookURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&merchant.ID,
		&merchant.Name,
		&merchant.Email,
		&merchant.APIKey,
		&merchant.APISecret,
		&webhookURL,
		&merchant.IsActive,
		&merchant.CreatedAt,
		&merchant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	merchant.WebhookURL = stringPtrFromNull(webhookURL)
	return merchant, nil
}
