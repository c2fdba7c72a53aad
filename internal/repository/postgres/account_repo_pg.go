package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/macroforge/license-backend/internal/domain"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByKey(ctx context.Context, accountKey string) (*domain.Account, error) {
	const query = `
        SELECT account_key, display_name, email, active, expires_at, created_at, updated_at
        FROM license_account
        WHERE account_key = $1
    `
	var account domain.Account
	if err := r.db.GetContext(ctx, &account, query, accountKey); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	const query = `
        INSERT INTO license_account (account_key, display_name, email, active, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING account_key, display_name, email, active, expires_at, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, account.AccountKey, account.DisplayName, account.Email, account.Active, account.ExpiresAt)
	var stored domain.Account
	if err := row.StructScan(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *AccountRepository) SetActive(ctx context.Context, accountKey string, active bool) (*domain.Account, error) {
	const query = `
        UPDATE license_account
        SET active = $2, updated_at = NOW()
        WHERE account_key = $1
        RETURNING account_key, display_name, email, active, expires_at, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, accountKey, active)
	var account domain.Account
	if err := row.StructScan(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) SetExpiry(ctx context.Context, accountKey string, expiresAt *time.Time) (*domain.Account, error) {
	const query = `
        UPDATE license_account
        SET expires_at = $2, updated_at = NOW()
        WHERE account_key = $1
        RETURNING account_key, display_name, email, active, expires_at, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, accountKey, expiresAt)
	var account domain.Account
	if err := row.StructScan(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, accountKey string) error {
	const query = `DELETE FROM license_account WHERE account_key = $1`
	result, err := r.db.ExecContext(ctx, query, accountKey)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	const query = `
        SELECT account_key, display_name, email, active, expires_at, created_at, updated_at
        FROM license_account
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	accounts := []domain.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, limit, offset); err != nil {
		return nil, err
	}
	return accounts, nil
}
