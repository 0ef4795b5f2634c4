package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/security"
)

// RoleUser is the only role this core ever places into access-token claims;
// richer role sets are the authorization service's concern.
const RoleUser = "ROLE_USER"

// IssuedTokens bundles the artifacts returned to a freshly authenticated client.
type IssuedTokens struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// sessionIssuer centralizes session and token issuance so that sign-in,
// two-factor completion, and refresh all mint identical artifacts.
type sessionIssuer struct {
	cfg      *config.AppConfig
	sessions port.SessionRepository
	tokens   port.RefreshTokenRepository
	access   port.AccessTokenIssuer
	ids      port.IDGenerator
}

// startSession creates a new session for the user and issues the initial
// refresh/access token pair.
func (i *sessionIssuer) startSession(ctx context.Context, user domain.User, ip, userAgent string, rememberMe bool, now time.Time) (*IssuedTokens, error) {
	ttl := i.cfg.Session.TTL
	if rememberMe {
		ttl = i.cfg.Session.RememberTTL
	}

	session := domain.AuthSession{
		ID:         i.ids.NewSortableID(),
		UserID:     user.ID,
		IPAddress:  ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		RememberMe: rememberMe,
	}

	if err := i.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return i.issueForSession(ctx, session, now)
}

// issueForSession mints a refresh/access token pair bound to an existing session.
func (i *sessionIssuer) issueForSession(ctx context.Context, session domain.AuthSession, now time.Time) (*IssuedTokens, error) {
	raw, err := security.GenerateSecureToken(security.OpaqueTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.AuthRefreshToken{
		ID:        i.ids.NewSortableID(),
		SessionID: session.ID,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(i.cfg.JWT.RefreshTokenTTL),
	}

	if err := i.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	accessToken, err := i.access.Issue(port.AccessTokenClaims{
		Subject:   session.UserID,
		JTI:       i.ids.NewRandomID(),
		SessionID: session.ID,
		Roles:     []string{RoleUser},
		IssuedAt:  now,
		ExpiresAt: now.Add(i.cfg.JWT.AccessTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &IssuedTokens{
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: raw,
	}, nil
}
