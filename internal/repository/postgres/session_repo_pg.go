package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/macroforge/license-backend/internal/domain"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	const query = `
        INSERT INTO license_session (token, account_key, client_fingerprint, created_at, expires_at,
                                     last_activity_at, last_full_check_at, cached_account_active, cached_account_expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, token, account_key, client_fingerprint, created_at, expires_at,
                  last_activity_at, last_full_check_at, cached_account_active, cached_account_expires_at
    `
	row := r.db.QueryRowxContext(ctx, query,
		session.Token,
		session.AccountKey,
		session.ClientFingerprint,
		session.CreatedAt,
		session.ExpiresAt,
		session.LastActivityAt,
		session.LastFullCheckAt,
		session.CachedAccountActive,
		session.CachedAccountExpiresAt,
	)
	var stored domain.Session
	if err := row.StructScan(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `
        SELECT id, token, account_key, client_fingerprint, created_at, expires_at,
               last_activity_at, last_full_check_at, cached_account_active, cached_account_expires_at
        FROM license_session
        WHERE token = $1
    `
	var session domain.Session
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	const query = `
        UPDATE license_session
        SET expires_at = $2,
            last_activity_at = $3,
            last_full_check_at = $4,
            cached_account_active = $5,
            cached_account_expires_at = $6
        WHERE token = $1
    `
	_, err := r.db.ExecContext(ctx, query,
		session.Token,
		session.ExpiresAt,
		session.LastActivityAt,
		session.LastFullCheckAt,
		session.CachedAccountActive,
		session.CachedAccountExpiresAt,
	)
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM license_session WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

func (r *SessionRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	const query = `DELETE FROM license_session WHERE token = ANY($1)`
	_, err := r.db.ExecContext(ctx, query, pq.Array(tokens))
	return err
}

func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountKey string) (int64, error) {
	const query = `DELETE FROM license_session WHERE account_key = $1`
	result, err := r.db.ExecContext(ctx, query, accountKey)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *SessionRepository) ListByAccount(ctx context.Context, accountKey string) ([]domain.Session, error) {
	const query = `
        SELECT id, token, account_key, client_fingerprint, created_at, expires_at,
               last_activity_at, last_full_check_at, cached_account_active, cached_account_expires_at
        FROM license_session
        WHERE account_key = $1
        ORDER BY created_at
    `
	sessions := []domain.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, accountKey); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Session, error) {
	const query = `
        SELECT id, token, account_key, client_fingerprint, created_at, expires_at,
               last_activity_at, last_full_check_at, cached_account_active, cached_account_expires_at
        FROM license_session
        WHERE expires_at <= $1
        ORDER BY expires_at
        LIMIT $2
    `
	sessions := []domain.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, before, limit); err != nil {
		return nil, err
	}
	return sessions, nil
}
