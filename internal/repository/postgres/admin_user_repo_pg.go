package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/macroforge/license-backend/internal/domain"
)

type AdminUserRepository struct {
	db *sqlx.DB
}

func NewAdminUserRepo(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	const query = `
        SELECT id, email, full_name, password_hash, password_salt, created_at, updated_at
        FROM admin_user
        WHERE email = $1
    `
	var admin domain.AdminUser
	if err := r.db.GetContext(ctx, &admin, query, email); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminUserRepository) Create(ctx context.Context, email string, fullName *string, passwordHash, passwordSalt []byte) (*domain.AdminUser, error) {
	const query = `
        INSERT INTO admin_user (email, full_name, password_hash, password_salt)
        VALUES ($1, $2, $3, $4)
        RETURNING id, email, full_name, password_hash, password_salt, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, email, fullName, passwordHash, passwordSalt)
	var admin domain.AdminUser
	if err := row.StructScan(&admin); err != nil {
		return nil, err
	}
	return &admin, nil
}
