package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// UserRepository exposes persistence behavior for the auth-relevant user slice.
type UserRepository interface {
	GetByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Save(ctx context.Context, user domain.User) error
}
