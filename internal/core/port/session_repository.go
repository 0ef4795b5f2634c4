package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// SessionRepository deals with auth session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.AuthSession) error
	GetByID(ctx context.Context, sessionID string) (*domain.AuthSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AuthSession, error)
	Save(ctx context.Context, session domain.AuthSession) error
}
