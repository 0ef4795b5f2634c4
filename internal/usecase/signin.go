package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// SignInService orchestrates the credential step of authentication: lockout
// gating, timing-safe password verification, and either direct session
// issuance or handoff to the two-factor challenge.
type SignInService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	pending   port.PendingTwoFactorRepository
	lockout   port.AccountLockoutService
	hasher    port.PasswordHasher
	publisher port.EventPublisher
	ids       port.IDGenerator
	issuer    *sessionIssuer

	now func() time.Time
}

// NewSignInService constructs a SignInService instance.
func NewSignInService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.RefreshTokenRepository,
	pending port.PendingTwoFactorRepository,
	lockout port.AccountLockoutService,
	hasher port.PasswordHasher,
	access port.AccessTokenIssuer,
	publisher port.EventPublisher,
	ids port.IDGenerator,
) *SignInService {
	return &SignInService{
		cfg:       cfg,
		users:     users,
		pending:   pending,
		lockout:   lockout,
		hasher:    hasher,
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

// SignInInput carries the sign-in command parameters threaded in from transport.
type SignInInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// SignInResult is the sign-in response value object. When TwoFactorRequired
// is set, only PendingSessionID is populated; no session or tokens exist yet.
type SignInResult struct {
	TwoFactorRequired bool
	PendingSessionID  string
	SessionID         string
	AccessToken       string
	RefreshToken      string
}

// SignIn validates credentials and either issues tokens or opens a pending
// two-factor challenge. Lockout counter mutations persist even when the
// command itself fails.
func (s *SignInService) SignIn(ctx context.Context, input SignInInput) (*SignInResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	locked, err := s.lockout.IsLocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		s.publishLockedOut(ctx, email)
		return nil, &AccountLockedError{RetryAfter: s.cfg.Lockout.Duration}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user == nil {
		// Burn the same hashing cost as a real verification so an absent
		// account is indistinguishable from a wrong password in timing.
		s.hasher.VerifyDummy(input.Password)
		return nil, s.handleFailure(ctx, email, "", input.IPAddress)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.handleFailure(ctx, email, user.ID, input.IPAddress)
	}

	if err := s.lockout.ClearFailures(ctx, email); err != nil {
		return nil, fmt.Errorf("clear lockout failures: %w", err)
	}

	now := s.now().UTC()

	if user.TwoFactorEnabled {
		pending := domain.PendingTwoFactor{
			ID:        s.ids.NewSortableID(),
			UserID:    user.ID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.TwoFactor.PendingTTL),
		}
		if err := s.pending.Create(ctx, pending); err != nil {
			return nil, fmt.Errorf("store pending two-factor: %w", err)
		}

		return &SignInResult{
			TwoFactorRequired: true,
			PendingSessionID:  pending.ID,
		}, nil
	}

	issued, err := s.issuer.startSession(ctx, *user, input.IPAddress, input.UserAgent, input.RememberMe, now)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishUserSignedIn(ctx, domain.UserSignedInEvent{
		EventID:    s.ids.NewRandomID(),
		UserID:     user.ID,
		SessionID:  issued.SessionID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		RememberMe: input.RememberMe,
		SignedInAt: now,
	}); err != nil {
		return nil, fmt.Errorf("publish signed-in event: %w", err)
	}

	return &SignInResult{
		SessionID:    issued.SessionID,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, nil
}

// handleFailure records the failed attempt, emits the corresponding events,
// and returns the error the command surfaces. The counter mutation persists
// by design even though the command fails.
func (s *SignInService) handleFailure(ctx context.Context, email, userID, ip string) error {
	crossed, err := s.lockout.RecordFailure(ctx, email)
	if err != nil {
		return fmt.Errorf("record lockout failure: %w", err)
	}

	// Observability is preserved before the error surfaces; a publisher
	// hiccup never masks the authentication outcome.
	_ = s.publisher.PublishSignInFailed(ctx, domain.SignInFailedEvent{
		EventID:   s.ids.NewRandomID(),
		Email:     email,
		UserID:    userID,
		IPAddress: ip,
		FailedAt:  s.now().UTC(),
	})

	if crossed {
		s.publishLockedOut(ctx, email)
		return &AccountLockedError{RetryAfter: s.cfg.Lockout.Duration}
	}

	return ErrInvalidCredentials
}

func (s *SignInService) publishLockedOut(ctx context.Context, email string) {
	_ = s.publisher.PublishAccountLockedOut(ctx, domain.AccountLockedOutEvent{
		EventID:      s.ids.NewRandomID(),
		Email:        email,
		LockedAt:     s.now().UTC(),
		LockDuration: s.cfg.Lockout.Duration,
	})
}
