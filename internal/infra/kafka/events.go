package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserSignedIn publishes auth.user.signed_in events.
func (p *EventPublisher) PublishUserSignedIn(ctx context.Context, event domain.UserSignedInEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		SessionID  string         `json:"session_id"`
		IPAddress  string         `json:"ip_address,omitempty"`
		UserAgent  string         `json:"user_agent,omitempty"`
		RememberMe bool           `json:"remember_me"`
		SignedInAt time.Time      `json:"signed_in_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		SessionID:  event.SessionID,
		IPAddress:  event.IPAddress,
		UserAgent:  event.UserAgent,
		RememberMe: event.RememberMe,
		SignedInAt: event.SignedInAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.user.signed_in", event.UserID, event.SignedInAt, payload)
}

// PublishSignInFailed publishes auth.signin.failed events.
func (p *EventPublisher) PublishSignInFailed(ctx context.Context, event domain.SignInFailedEvent) error {
	payload := struct {
		Email     string         `json:"email"`
		UserID    string         `json:"user_id,omitempty"`
		IPAddress string         `json:"ip_address,omitempty"`
		FailedAt  time.Time      `json:"failed_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		Email:     event.Email,
		UserID:    event.UserID,
		IPAddress: event.IPAddress,
		FailedAt:  event.FailedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.signin.failed", event.UserID, event.FailedAt, payload)
}

// PublishAccountLockedOut publishes auth.account.locked_out events.
func (p *EventPublisher) PublishAccountLockedOut(ctx context.Context, event domain.AccountLockedOutEvent) error {
	payload := struct {
		Email           string         `json:"email"`
		LockedAt        time.Time      `json:"locked_at"`
		LockDurationSec int            `json:"lock_duration_seconds"`
		Metadata        map[string]any `json:"metadata,omitempty"`
	}{
		Email:           event.Email,
		LockedAt:        event.LockedAt.UTC(),
		LockDurationSec: int(event.LockDuration.Seconds()),
		Metadata:        event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.account.locked_out", "", event.LockedAt, payload)
}

// PublishTwoFactorCompleted publishes auth.2fa.completed events.
func (p *EventPublisher) PublishTwoFactorCompleted(ctx context.Context, event domain.TwoFactorCompletedEvent) error {
	payload := struct {
		UserID      string         `json:"user_id"`
		SessionID   string         `json:"session_id"`
		Method      string         `json:"method"`
		CompletedAt time.Time      `json:"completed_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		UserID:      event.UserID,
		SessionID:   event.SessionID,
		Method:      event.Method,
		CompletedAt: event.CompletedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.2fa.completed", event.UserID, event.CompletedAt, payload)
}

// PublishTwoFactorFailed publishes auth.2fa.failed events.
func (p *EventPublisher) PublishTwoFactorFailed(ctx context.Context, event domain.TwoFactorFailedEvent) error {
	payload := struct {
		UserID   string         `json:"user_id"`
		FailedAt time.Time      `json:"failed_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		FailedAt: event.FailedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.2fa.failed", event.UserID, event.FailedAt, payload)
}

// PublishTwoFactorEnabled publishes auth.2fa.enabled events.
func (p *EventPublisher) PublishTwoFactorEnabled(ctx context.Context, event domain.TwoFactorEnabledEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		EnabledAt time.Time      `json:"enabled_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		EnabledAt: event.EnabledAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.2fa.enabled", event.UserID, event.EnabledAt, payload)
}

// PublishTwoFactorDisabled publishes auth.2fa.disabled events.
func (p *EventPublisher) PublishTwoFactorDisabled(ctx context.Context, event domain.TwoFactorDisabledEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		DisabledAt time.Time      `json:"disabled_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		DisabledAt: event.DisabledAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.2fa.disabled", event.UserID, event.DisabledAt, payload)
}

// PublishRecoveryCodeUsed publishes auth.2fa.recovery_code_used events.
func (p *EventPublisher) PublishRecoveryCodeUsed(ctx context.Context, event domain.RecoveryCodeUsedEvent) error {
	payload := struct {
		UserID         string         `json:"user_id"`
		RemainingCount int            `json:"remaining_count"`
		UsedAt         time.Time      `json:"used_at"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		UserID:         event.UserID,
		RemainingCount: event.RemainingCount,
		UsedAt:         event.UsedAt.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.2fa.recovery_code_used", event.UserID, event.UsedAt, payload)
}

// PublishRefreshTokenRotated publishes auth.token.rotated events.
func (p *EventPublisher) PublishRefreshTokenRotated(ctx context.Context, event domain.RefreshTokenRotatedEvent) error {
	payload := struct {
		SessionID string         `json:"session_id"`
		UserID    string         `json:"user_id"`
		RotatedAt time.Time      `json:"rotated_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		RotatedAt: event.RotatedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.token.rotated", event.UserID, event.RotatedAt, payload)
}

// PublishRefreshTokenTheftDetected publishes auth.token.theft_detected events.
func (p *EventPublisher) PublishRefreshTokenTheftDetected(ctx context.Context, event domain.RefreshTokenTheftDetectedEvent) error {
	payload := struct {
		SessionID  string         `json:"session_id"`
		UserID     string         `json:"user_id"`
		IPAddress  string         `json:"ip_address,omitempty"`
		Reason     string         `json:"reason"`
		DetectedAt time.Time      `json:"detected_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		SessionID:  event.SessionID,
		UserID:     event.UserID,
		IPAddress:  event.IPAddress,
		Reason:     event.Reason,
		DetectedAt: event.DetectedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.token.theft_detected", event.UserID, event.DetectedAt, payload)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string         `json:"session_id"`
		UserID    string         `json:"user_id"`
		Reason    string         `json:"reason"`
		RevokedAt time.Time      `json:"revoked_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		Reason:    event.Reason,
		RevokedAt: event.RevokedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishAllSessionsRevoked publishes auth.session.revoked_all events.
func (p *EventPublisher) PublishAllSessionsRevoked(ctx context.Context, event domain.AllSessionsRevokedEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Reason       string         `json:"reason"`
		RevokedCount int            `json:"revoked_count"`
		RevokedAt    time.Time      `json:"revoked_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Reason:       event.Reason,
		RevokedCount: event.RevokedCount,
		RevokedAt:    event.RevokedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked_all", event.UserID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
