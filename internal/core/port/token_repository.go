package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// RefreshTokenRepository manages refresh token records.
//
// MarkRotated and MarkGraceUsed are conditional updates: they succeed for at
// most one caller per token, so two concurrent refresh calls racing on the
// same token cannot both observe the pre-transition state. The losing caller
// re-reads the token and lands in the grace/theft branch.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token domain.AuthRefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.AuthRefreshToken, error)
	MarkRotated(ctx context.Context, tokenID string, rotatedAt time.Time) (bool, error)
	MarkGraceUsed(ctx context.Context, tokenID string) (bool, error)
	RevokeBySession(ctx context.Context, sessionID string) (int, error)
}
