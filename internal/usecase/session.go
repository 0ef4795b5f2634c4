package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// SessionService owns the session and refresh-token state machine: rotation
// with a one-shot grace window, theft detection, and sign-out.
type SessionService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	sessions  port.SessionRepository
	tokens    port.RefreshTokenRepository
	publisher port.EventPublisher
	ids       port.IDGenerator
	issuer    *sessionIssuer

	now func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.RefreshTokenRepository,
	access port.AccessTokenIssuer,
	publisher port.EventPublisher,
	ids port.IDGenerator,
) *SessionService {
	return &SessionService{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		publisher: publisher,
		ids:       ids,
		issuer: &sessionIssuer{
			cfg:      cfg,
			sessions: sessions,
			tokens:   tokens,
			access:   access,
			ids:      ids,
		},
		now: time.Now,
	}
}

// RefreshResult carries the rotated token pair.
type RefreshResult struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// Refresh exchanges a refresh token for a fresh token pair.
//
// A token that has never been rotated rotates normally. A token that was
// already rotated may be redeemed exactly once more inside the grace window,
// tolerating client retries that missed the first response. Any further or
// later reuse is conclusive evidence of token leakage: the session and all
// its tokens are torn down before the error surfaces.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ipAddress string) (*RefreshResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	now := s.now().UTC()

	token, err := s.tokens.GetByHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if token.Revoked || token.IsExpired(now) {
		return nil, ErrUnauthorized
	}

	if !token.IsRotated() {
		won, err := s.tokens.MarkRotated(ctx, token.ID, now)
		if err != nil {
			return nil, fmt.Errorf("mark token rotated: %w", err)
		}
		if won {
			return s.rotate(ctx, *token, now)
		}

		// A concurrent refresh rotated this token first; re-read so the
		// reuse branches below see the written rotated_at.
		token, err = s.tokens.GetByHash(ctx, security.HashToken(refreshToken))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("reload refresh token: %w", err)
		}
	}

	if !token.GraceUsed && token.WithinGrace(now, s.cfg.JWT.GraceWindow) {
		won, err := s.tokens.MarkGraceUsed(ctx, token.ID)
		if err != nil {
			return nil, fmt.Errorf("mark grace used: %w", err)
		}
		if won {
			return s.rotate(ctx, *token, now)
		}
		// Two callers raced on the single grace allowance.
		return nil, s.handleTheft(ctx, *token, ipAddress, domain.TheftReasonDoubleGraceUse, now)
	}

	reason := domain.TheftReasonGracePeriodExpired
	if token.GraceUsed {
		reason = domain.TheftReasonDoubleGraceUse
	}

	return nil, s.handleTheft(ctx, *token, ipAddress, reason, now)
}

// rotate issues a fresh token pair bound to the token's session.
func (s *SessionService) rotate(ctx context.Context, token domain.AuthRefreshToken, now time.Time) (*RefreshResult, error) {
	session, err := s.sessions.GetByID(ctx, token.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !session.IsActive(now) {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	issued, err := s.issuer.issueForSession(ctx, *session, now)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishRefreshTokenRotated(ctx, domain.RefreshTokenRotatedEvent{
		EventID:   s.ids.NewRandomID(),
		SessionID: session.ID,
		UserID:    user.ID,
		RotatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("publish rotation event: %w", err)
	}

	return &RefreshResult{
		SessionID:    issued.SessionID,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, nil
}

// handleTheft tears down the compromised session and every token attached to
// it, publishes the detection event, and returns the error the caller sees.
// Only the session tied to the presented token is revoked; widening the blast
// radius to all of the user's sessions is a deliberate policy knob left off.
func (s *SessionService) handleTheft(ctx context.Context, token domain.AuthRefreshToken, ipAddress, reason string, now time.Time) error {
	userID := ""

	session, err := s.sessions.GetByID(ctx, token.SessionID)
	if err == nil {
		userID = session.UserID
		if session.Revoke() {
			if err := s.sessions.Save(ctx, *session); err != nil {
				return fmt.Errorf("revoke session: %w", err)
			}
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup session: %w", err)
	}

	if _, err := s.tokens.RevokeBySession(ctx, token.SessionID); err != nil {
		return fmt.Errorf("revoke session tokens: %w", err)
	}

	_ = s.publisher.PublishRefreshTokenTheftDetected(ctx, domain.RefreshTokenTheftDetectedEvent{
		EventID:    s.ids.NewRandomID(),
		SessionID:  token.SessionID,
		UserID:     userID,
		IPAddress:  ipAddress,
		Reason:     reason,
		DetectedAt: now,
	})

	return ErrUnauthorized
}

// SignOut revokes a single session and all of its refresh tokens. The
// operation is idempotent: a missing or already-revoked session is a no-op,
// token revocation and the event still happen.
func (s *SessionService) SignOut(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup session: %w", err)
	}

	if session != nil && session.Revoke() {
		if err := s.sessions.Save(ctx, *session); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	if _, err := s.tokens.RevokeBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session tokens: %w", err)
	}

	if err := s.publisher.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
		EventID:   s.ids.NewRandomID(),
		SessionID: sessionID,
		UserID:    userID,
		Reason:    domain.RevokeReasonLogout,
		RevokedAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("publish revocation event: %w", err)
	}

	return nil
}

// SignOutAll revokes every active session of the user. Already-revoked
// sessions are skipped entirely: no save, no token revocation, no count.
func (s *SessionService) SignOutAll(ctx context.Context, userID string) (int, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	revoked := 0
	for i := range sessions {
		if !sessions[i].Revoke() {
			continue
		}
		if err := s.sessions.Save(ctx, sessions[i]); err != nil {
			return revoked, fmt.Errorf("revoke session: %w", err)
		}
		if _, err := s.tokens.RevokeBySession(ctx, sessions[i].ID); err != nil {
			return revoked, fmt.Errorf("revoke session tokens: %w", err)
		}
		revoked++
	}

	if err := s.publisher.PublishAllSessionsRevoked(ctx, domain.AllSessionsRevokedEvent{
		EventID:      s.ids.NewRandomID(),
		UserID:       userID,
		Reason:       domain.RevokeReasonUserInitiated,
		RevokedCount: revoked,
		RevokedAt:    s.now().UTC(),
	}); err != nil {
		return revoked, fmt.Errorf("publish revocation event: %w", err)
	}

	return revoked, nil
}

// ListActive returns the user's sessions that are neither revoked nor expired.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.AuthSession, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now().UTC()
	active := sessions[:0]
	for _, session := range sessions {
		if session.IsActive(now) {
			active = append(active, session)
		}
	}

	return active, nil
}
