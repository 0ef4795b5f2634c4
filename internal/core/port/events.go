package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// EventPublisher publishes auth domain events to the message bus.
// Publication is fire-and-forget from the orchestrators' perspective; failure
// events are always published before the corresponding error surfaces.
type EventPublisher interface {
	PublishUserSignedIn(ctx context.Context, event domain.UserSignedInEvent) error
	PublishSignInFailed(ctx context.Context, event domain.SignInFailedEvent) error
	PublishAccountLockedOut(ctx context.Context, event domain.AccountLockedOutEvent) error
	PublishTwoFactorCompleted(ctx context.Context, event domain.TwoFactorCompletedEvent) error
	PublishTwoFactorFailed(ctx context.Context, event domain.TwoFactorFailedEvent) error
	PublishTwoFactorEnabled(ctx context.Context, event domain.TwoFactorEnabledEvent) error
	PublishTwoFactorDisabled(ctx context.Context, event domain.TwoFactorDisabledEvent) error
	PublishRecoveryCodeUsed(ctx context.Context, event domain.RecoveryCodeUsedEvent) error
	PublishRefreshTokenRotated(ctx context.Context, event domain.RefreshTokenRotatedEvent) error
	PublishRefreshTokenTheftDetected(ctx context.Context, event domain.RefreshTokenTheftDetectedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishAllSessionsRevoked(ctx context.Context, event domain.AllSessionsRevokedEvent) error
}
