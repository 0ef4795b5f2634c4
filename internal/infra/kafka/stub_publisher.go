package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments where no broker is running.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserSignedIn logs auth.user.signed_in events.
func (p *StubPublisher) PublishUserSignedIn(_ context.Context, event domain.UserSignedInEvent) error {
	payload := map[string]any{
		"session_id":  event.SessionID,
		"ip_address":  event.IPAddress,
		"user_agent":  event.UserAgent,
		"remember_me": event.RememberMe,
	}
	p.logEvent("auth.user.signed_in", event.UserID, event.SignedInAt, payload)
	return nil
}

// PublishSignInFailed logs auth.signin.failed events.
func (p *StubPublisher) PublishSignInFailed(_ context.Context, event domain.SignInFailedEvent) error {
	payload := map[string]any{
		"email":      event.Email,
		"ip_address": event.IPAddress,
	}
	p.logEvent("auth.signin.failed", event.UserID, event.FailedAt, payload)
	return nil
}

// PublishAccountLockedOut logs auth.account.locked_out events.
func (p *StubPublisher) PublishAccountLockedOut(_ context.Context, event domain.AccountLockedOutEvent) error {
	payload := map[string]any{
		"email":         event.Email,
		"lock_duration": event.LockDuration.String(),
	}
	p.logEvent("auth.account.locked_out", "", event.LockedAt, payload)
	return nil
}

// PublishTwoFactorCompleted logs auth.2fa.completed events.
func (p *StubPublisher) PublishTwoFactorCompleted(_ context.Context, event domain.TwoFactorCompletedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"method":     event.Method,
	}
	p.logEvent("auth.2fa.completed", event.UserID, event.CompletedAt, payload)
	return nil
}

// PublishTwoFactorFailed logs auth.2fa.failed events.
func (p *StubPublisher) PublishTwoFactorFailed(_ context.Context, event domain.TwoFactorFailedEvent) error {
	p.logEvent("auth.2fa.failed", event.UserID, event.FailedAt, nil)
	return nil
}

// PublishTwoFactorEnabled logs auth.2fa.enabled events.
func (p *StubPublisher) PublishTwoFactorEnabled(_ context.Context, event domain.TwoFactorEnabledEvent) error {
	p.logEvent("auth.2fa.enabled", event.UserID, event.EnabledAt, nil)
	return nil
}

// PublishTwoFactorDisabled logs auth.2fa.disabled events.
func (p *StubPublisher) PublishTwoFactorDisabled(_ context.Context, event domain.TwoFactorDisabledEvent) error {
	p.logEvent("auth.2fa.disabled", event.UserID, event.DisabledAt, nil)
	return nil
}

// PublishRecoveryCodeUsed logs auth.2fa.recovery_code_used events.
func (p *StubPublisher) PublishRecoveryCodeUsed(_ context.Context, event domain.RecoveryCodeUsedEvent) error {
	payload := map[string]any{
		"remaining_count": event.RemainingCount,
	}
	p.logEvent("auth.2fa.recovery_code_used", event.UserID, event.UsedAt, payload)
	return nil
}

// PublishRefreshTokenRotated logs auth.token.rotated events.
func (p *StubPublisher) PublishRefreshTokenRotated(_ context.Context, event domain.RefreshTokenRotatedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
	}
	p.logEvent("auth.token.rotated", event.UserID, event.RotatedAt, payload)
	return nil
}

// PublishRefreshTokenTheftDetected logs auth.token.theft_detected events.
func (p *StubPublisher) PublishRefreshTokenTheftDetected(_ context.Context, event domain.RefreshTokenTheftDetectedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"ip_address": event.IPAddress,
		"reason":     event.Reason,
	}
	p.logEvent("auth.token.theft_detected", event.UserID, event.DetectedAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"reason":     event.Reason,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

// PublishAllSessionsRevoked logs auth.session.revoked_all events.
func (p *StubPublisher) PublishAllSessionsRevoked(_ context.Context, event domain.AllSessionsRevokedEvent) error {
	payload := map[string]any{
		"reason":        event.Reason,
		"revoked_count": event.RevokedCount,
	}
	p.logEvent("auth.session.revoked_all", event.UserID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
