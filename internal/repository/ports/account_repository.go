package ports

import (
	"context"
	"time"

	"github.com/macroforge/license-backend/internal/domain"
)

type AccountRepository interface {
	FindByKey(ctx context.Context, accountKey string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	SetActive(ctx context.Context, accountKey string, active bool) (*domain.Account, error)
	SetExpiry(ctx context.Context, accountKey string, expiresAt *time.Time) (*domain.Account, error)
	Delete(ctx context.Context, accountKey string) error
	List(ctx context.Context, limit, offset int) ([]domain.Account, error)
}
