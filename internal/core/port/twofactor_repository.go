package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// PendingTwoFactorRepository stores the short-lived records bridging a
// password-verified sign-in and the two-factor challenge.
type PendingTwoFactorRepository interface {
	Create(ctx context.Context, pending domain.PendingTwoFactor) error
	GetByID(ctx context.Context, id string) (*domain.PendingTwoFactor, error)
	Delete(ctx context.Context, id string) error
}

// RecoveryCodeRepository stores single-use recovery code hashes.
type RecoveryCodeRepository interface {
	Create(ctx context.Context, code domain.RecoveryCode) error
	ListByUser(ctx context.Context, userID string) ([]domain.RecoveryCode, error)
	MarkUsed(ctx context.Context, codeID string) error
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
