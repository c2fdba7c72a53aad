package ports

import (
	"context"
	"time"

	"github.com/macroforge/license-backend/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, token string) error
	DeleteTokens(ctx context.Context, tokens []string) error
	DeleteByAccount(ctx context.Context, accountKey string) (int64, error)
	ListByAccount(ctx context.Context, accountKey string) ([]domain.Session, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Session, error)
}
