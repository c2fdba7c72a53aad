package ports

import (
	"context"

	"github.com/macroforge/license-backend/internal/domain"
)

type AdminUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	Create(ctx context.Context, email string, fullName *string, passwordHash, passwordSalt []byte) (*domain.AdminUser, error)
}
