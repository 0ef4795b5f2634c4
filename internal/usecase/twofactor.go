package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/repository"
)

var (
	totpCodePattern     = regexp.MustCompile(`^\d{6}$`)
	recoveryCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4}-[A-Za-z0-9]{4}$`)
)

type codeKind int

const (
	codeKindInvalid codeKind = iota
	codeKindTOTP
	codeKindRecovery
)

// classifyCode decides how a candidate two-factor code will be verified.
// Anything that is not exactly a 6-digit TOTP code or an XXXX-XXXX recovery
// code is rejected before any verifier or repository is consulted.
func classifyCode(code string) codeKind {
	switch {
	case totpCodePattern.MatchString(code):
		return codeKindTOTP
	case recoveryCodePattern.MatchString(code):
		return codeKindRecovery
	default:
		return codeKindInvalid
	}
}

// TwoFactorService orchestrates the two-factor lifecycle: setup, confirmation,
// sign-in completion, disable, and recovery-code regeneration.
type TwoFactorService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	sessions  port.SessionRepository
	pending   port.PendingTwoFactorRepository
	recovery  port.RecoveryCodeRepository
	totp      port.TOTPVerifier
	secrets   port.TwoFactorSecretGenerator
	encryptor port.TwoFactorSecretEncryptor
	codes     port.RecoveryCodeGenerator
	hasher    port.PasswordHasher
	publisher port.EventPublisher
	ids       port.IDGenerator
	issuer    *sessionIssuer

	now func() time.Time
}

// NewTwoFactorService constructs a TwoFactorService instance.
func NewTwoFactorService(
	cfg *config.AppConfig,
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.RefreshTokenRepository,
	pending port.PendingTwoFactorRepository,
	recovery port.RecoveryCodeRepository,
	totp port.TOTPVerifier,
	secrets port.TwoFactorSecretGenerator,
	encryptor port.TwoFactorSecretEncryptor,
	codes port.RecoveryCodeGenerator,
	hasher port.PasswordHasher,
	access port.AccessTokenIssuer,
	publisher port.EventPublisher,
	ids port.IDGenerator,
) *TwoFactorService {
	return &TwoFactorService{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		pending:   pending,
		recovery:  recovery,
		totp:      totp,
		secrets:   secrets,
		encryptor: encryptor,
		codes:     codes,
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

// CompleteInput carries the second sign-in step parameters.
type CompleteInput struct {
	PendingSessionID string
	Code             string
	IPAddress        string
	UserAgent        string
}

// CompleteResult is the completion response. RecoveryCodesRemaining and
// Warning are populated only when a recovery code was consumed.
type CompleteResult struct {
	SessionID              string
	AccessToken            string
	RefreshToken           string
	Method                 string
	RecoveryCodesRemaining *int
	Warning                string
}

// Complete finishes a two-factor sign-in: verifies the TOTP or recovery code
// against the pending challenge, issues a session, and consumes the pending
// record. The pending record is deleted only after token issuance so a crash
// in between never invalidates already-issued tokens.
func (s *TwoFactorService) Complete(ctx context.Context, input CompleteInput) (*CompleteResult, error) {
	kind := classifyCode(input.Code)
	if kind == codeKindInvalid {
		s.publishFailed(ctx, "", map[string]any{"reason": "malformed_code"})
		return nil, ErrInvalidTwoFactorCode
	}

	now := s.now().UTC()

	pending, err := s.pending.GetByID(ctx, input.PendingSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup pending two-factor: %w", err)
	}
	if pending.IsExpired(now) {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, pending.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	// An account that disabled two-factor mid-challenge fails identically to
	// an expired challenge.
	if !user.TwoFactorEnabled {
		return nil, ErrUnauthorized
	}

	var (
		method    string
		remaining int
	)

	switch kind {
	case codeKindTOTP:
		if err := s.verifyTOTP(ctx, user, input.Code); err != nil {
			return nil, err
		}
		method = domain.TwoFactorMethodTOTP

	case codeKindRecovery:
		remaining, err = s.consumeRecoveryCode(ctx, user.ID, input.Code)
		if err != nil {
			return nil, err
		}
		method = domain.TwoFactorMethodRecoveryCode
	}

	issued, err := s.issuer.startSession(ctx, *user, input.IPAddress, input.UserAgent, false, now)
	if err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, pending.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("delete pending two-factor: %w", err)
	}

	if err := s.publisher.PublishTwoFactorCompleted(ctx, domain.TwoFactorCompletedEvent{
		EventID:     s.ids.NewRandomID(),
		UserID:      user.ID,
		SessionID:   issued.SessionID,
		Method:      method,
		CompletedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("publish completion event: %w", err)
	}

	result := &CompleteResult{
		SessionID:    issued.SessionID,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		Method:       method,
	}

	if method == domain.TwoFactorMethodRecoveryCode {
		remainingCopy := remaining
		result.RecoveryCodesRemaining = &remainingCopy
		result.Warning = recoveryWarning(remaining, s.cfg.TwoFactor.RecoveryWarnThreshold)
	}

	return result, nil
}

// verifyTOTP decrypts the stored secret and checks the candidate code,
// publishing a failure event on every unsuccessful path.
func (s *TwoFactorService) verifyTOTP(ctx context.Context, user *domain.User, code string) error {
	if user.TwoFactorSecret == nil {
		s.publishFailed(ctx, user.ID, map[string]any{"reason": "missing_secret"})
		return ErrInvalidTwoFactorCode
	}

	secret, err := s.encryptor.Decrypt(*user.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("decrypt two-factor secret: %w", err)
	}

	if !s.totp.Verify(secret, code) {
		s.publishFailed(ctx, user.ID, map[string]any{"reason": "totp_mismatch"})
		return ErrInvalidTwoFactorCode
	}

	return nil
}

// consumeRecoveryCode scans the user's codes in stored order for the first
// unused hash matching the candidate, marks it used, and returns how many
// unused codes remain. Used codes with a matching value are skipped, never
// treated as a match. The linear scan over the small bounded set is
// deliberate: codes are stored only as salted hashes and must never be looked
// up by an index derived from the plaintext.
func (s *TwoFactorService) consumeRecoveryCode(ctx context.Context, userID, candidate string) (int, error) {
	codes, err := s.recovery.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list recovery codes: %w", err)
	}

	normalized := strings.ToUpper(candidate)

	matched := -1
	for i := range codes {
		if codes[i].Used {
			continue
		}
		ok, err := s.hasher.Verify(normalized, codes[i].CodeHash)
		if err != nil {
			return 0, fmt.Errorf("verify recovery code: %w", err)
		}
		if ok {
			matched = i
			break
		}
	}

	if matched < 0 {
		s.publishFailed(ctx, userID, map[string]any{"reason": "recovery_code_mismatch"})
		return 0, ErrInvalidTwoFactorCode
	}

	if err := s.recovery.MarkUsed(ctx, codes[matched].ID); err != nil {
		return 0, fmt.Errorf("consume recovery code: %w", err)
	}

	remaining := 0
	for i := range codes {
		if i != matched && !codes[i].Used {
			remaining++
		}
	}

	_ = s.publisher.PublishRecoveryCodeUsed(ctx, domain.RecoveryCodeUsedEvent{
		EventID:        s.ids.NewRandomID(),
		UserID:         userID,
		RemainingCount: remaining,
		UsedAt:         s.now().UTC(),
	})

	return remaining, nil
}

// recoveryWarning renders the low-inventory message, empty above the threshold.
func recoveryWarning(remaining, warnThreshold int) string {
	switch {
	case remaining == 0:
		return "All recovery codes have been used. Regenerate immediately."
	case remaining <= warnThreshold:
		return fmt.Sprintf("Only %d recovery code(s) remaining. Regenerate soon.", remaining)
	default:
		return ""
	}
}

// BeginSetup generates a fresh TOTP secret for the user, stores it encrypted,
// and returns the plaintext secret with its provisioning URL. Two-factor
// remains disabled until Confirm verifies a first code.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID string) (secret, otpauthURL string, err error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	secret, otpauthURL, err = s.secrets.Generate(user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate two-factor secret: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(secret)
	if err != nil {
		return "", "", fmt.Errorf("encrypt two-factor secret: %w", err)
	}

	user.TwoFactorSecret = &encrypted
	if err := s.users.Save(ctx, *user); err != nil {
		return "", "", fmt.Errorf("store user: %w", err)
	}

	return secret, otpauthURL, nil
}

// ConfirmResult carries the one-time plaintext recovery codes issued on enable.
type ConfirmResult struct {
	RecoveryCodes   []string
	SessionsRevoked int
}

// Confirm enables two-factor after verifying a first TOTP code against the
// stored secret, issues the initial recovery code batch, and revokes every
// other session so stolen cookies do not survive the security upgrade.
func (s *TwoFactorService) Confirm(ctx context.Context, userID, code, currentSessionID string) (*ConfirmResult, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if user.TwoFactorSecret == nil {
		return nil, ErrUnauthorized
	}

	secret, err := s.encryptor.Decrypt(*user.TwoFactorSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypt two-factor secret: %w", err)
	}
	if !s.totp.Verify(secret, code) {
		return nil, ErrUnauthorized
	}

	user.EnableTwoFactor()
	if err := s.users.Save(ctx, *user); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	plaintext, err := s.generateRecoveryCodes(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revokeOtherSessions(ctx, user.ID, currentSessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.publisher.PublishTwoFactorEnabled(ctx, domain.TwoFactorEnabledEvent{
		EventID:   s.ids.NewRandomID(),
		UserID:    user.ID,
		EnabledAt: now,
	}); err != nil {
		return nil, fmt.Errorf("publish enabled event: %w", err)
	}

	if revoked > 0 {
		_ = s.publisher.PublishAllSessionsRevoked(ctx, domain.AllSessionsRevokedEvent{
			EventID:      s.ids.NewRandomID(),
			UserID:       user.ID,
			Reason:       domain.RevokeReasonTwoFactorEnabled,
			RevokedCount: revoked,
			RevokedAt:    now,
		})
	}

	return &ConfirmResult{RecoveryCodes: plaintext, SessionsRevoked: revoked}, nil
}

// Disable turns two-factor off after verifying a TOTP or recovery code, and
// purges the secret and all recovery codes.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	switch classifyCode(code) {
	case codeKindTOTP:
		if err := s.verifyTOTP(ctx, user, code); err != nil {
			if errors.Is(err, ErrInvalidTwoFactorCode) {
				return ErrUnauthorized
			}
			return err
		}
	case codeKindRecovery:
		if _, err := s.consumeRecoveryCode(ctx, user.ID, code); err != nil {
			if errors.Is(err, ErrInvalidTwoFactorCode) {
				return ErrUnauthorized
			}
			return err
		}
	default:
		s.publishFailed(ctx, user.ID, map[string]any{"reason": "malformed_code"})
		return ErrUnauthorized
	}

	user.DisableTwoFactor()

	if _, err := s.recovery.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete recovery codes: %w", err)
	}
	if err := s.users.Save(ctx, *user); err != nil {
		return fmt.Errorf("store user: %w", err)
	}

	if err := s.publisher.PublishTwoFactorDisabled(ctx, domain.TwoFactorDisabledEvent{
		EventID:    s.ids.NewRandomID(),
		UserID:     user.ID,
		DisabledAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("publish disabled event: %w", err)
	}

	return nil
}

// RegenerateRecoveryCodes replaces the user's recovery codes inside a sudo
// window: the current session must be fresh enough to prove recent
// authentication. Returns the new plaintext codes, shown exactly once.
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, userID, currentSessionID string) ([]string, error) {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	session, err := s.sessions.GetByID(ctx, currentSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReauthRequired
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.now().UTC()
	if session.Revoked || session.Age(now) > s.cfg.TwoFactor.SudoWindow {
		return nil, ErrReauthRequired
	}

	if _, err := s.recovery.DeleteByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("delete recovery codes: %w", err)
	}

	return s.generateRecoveryCodes(ctx, user.ID)
}

// generateRecoveryCodes mints the configured batch, persisting salted hashes
// and returning the plaintext values.
func (s *TwoFactorService) generateRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	count := s.cfg.TwoFactor.RecoveryCodeCount
	plaintext := make([]string, 0, count)

	for i := 0; i < count; i++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}

		hash, err := s.hasher.Hash(code)
		if err != nil {
			return nil, fmt.Errorf("hash recovery code: %w", err)
		}

		if err := s.recovery.Create(ctx, domain.RecoveryCode{
			ID:       s.ids.NewSortableID(),
			UserID:   userID,
			CodeHash: hash,
		}); err != nil {
			return nil, fmt.Errorf("store recovery code: %w", err)
		}

		plaintext = append(plaintext, code)
	}

	return plaintext, nil
}

// revokeOtherSessions revokes every session of the user except the supplied
// one. Already-revoked sessions are left alone and not re-saved.
func (s *TwoFactorService) revokeOtherSessions(ctx context.Context, userID, keepSessionID string) (int, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	revoked := 0
	for i := range sessions {
		if sessions[i].ID == keepSessionID {
			continue
		}
		if !sessions[i].Revoke() {
			continue
		}
		if err := s.sessions.Save(ctx, sessions[i]); err != nil {
			return revoked, fmt.Errorf("revoke session: %w", err)
		}
		revoked++
	}

	return revoked, nil
}

func (s *TwoFactorService) userByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *TwoFactorService) publishFailed(ctx context.Context, userID string, metadata map[string]any) {
	_ = s.publisher.PublishTwoFactorFailed(ctx, domain.TwoFactorFailedEvent{
		EventID:  s.ids.NewRandomID(),
		UserID:   userID,
		FailedAt: s.now().UTC(),
		Metadata: metadata,
	})
}
