package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/repository"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "auth-test", Env: "test"},
		JWT: config.JWTSettings{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			GraceWindow:     time.Minute,
		},
		Session: config.SessionSettings{
			TTL:         15 * time.Minute,
			RememberTTL: 720 * time.Hour,
		},
		Lockout: config.LockoutSettings{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		TwoFactor: config.TwoFactorSettings{
			PendingTTL:            5 * time.Minute,
			SudoWindow:            5 * time.Minute,
			RecoveryCodeCount:     8,
			RecoveryWarnThreshold: 2,
		},
	}
}

type fakeUserRepository struct {
	users map[string]*domain.User

	getByEmailCalls int
	getByIDCalls    int
	saved           []domain.User
}

func newFakeUserRepository(users ...domain.User) *fakeUserRepository {
	repo := &fakeUserRepository{users: make(map[string]*domain.User)}
	for i := range users {
		userCopy := users[i]
		repo.users[userCopy.ID] = &userCopy
	}
	return repo
}

func (f *fakeUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.getByEmailCalls++
	for _, user := range f.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.getByIDCalls++
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (f *fakeUserRepository) Save(ctx context.Context, user domain.User) error {
	f.saved = append(f.saved, user)
	userCopy := user
	f.users[user.ID] = &userCopy
	return nil
}

type fakeSessionRepository struct {
	sessions map[string]*domain.AuthSession

	created []domain.AuthSession
	saved   []domain.AuthSession
}

func newFakeSessionRepository(sessions ...domain.AuthSession) *fakeSessionRepository {
	repo := &fakeSessionRepository{sessions: make(map[string]*domain.AuthSession)}
	for i := range sessions {
		sessionCopy := sessions[i]
		repo.sessions[sessionCopy.ID] = &sessionCopy
	}
	return repo
}

func (f *fakeSessionRepository) Create(ctx context.Context, session domain.AuthSession) error {
	f.created = append(f.created, session)
	sessionCopy := session
	f.sessions[session.ID] = &sessionCopy
	return nil
}

func (f *fakeSessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.AuthSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *session
	return &copy, nil
}

func (f *fakeSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuthSession, error) {
	result := make([]domain.AuthSession, 0)
	for _, session := range f.sessions {
		if session.UserID == userID {
			result = append(result, *session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeSessionRepository) Save(ctx context.Context, session domain.AuthSession) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return repository.ErrNotFound
	}
	f.saved = append(f.saved, session)
	sessionCopy := session
	f.sessions[session.ID] = &sessionCopy
	return nil
}

type fakeTokenRepository struct {
	tokens map[string]*domain.AuthRefreshToken

	created []domain.AuthRefreshToken
	// loseRotationRace makes MarkRotated report a lost race without mutating,
	// simulating a concurrent caller that won the conditional update.
	loseRotationRace bool
	// loseGraceRace does the same for MarkGraceUsed.
	loseGraceRace bool

	revokedSessions  []string
	revokeBySessionN int
}

func newFakeTokenRepository(tokens ...domain.AuthRefreshToken) *fakeTokenRepository {
	repo := &fakeTokenRepository{tokens: make(map[string]*domain.AuthRefreshToken)}
	for i := range tokens {
		tokenCopy := tokens[i]
		repo.tokens[tokenCopy.ID] = &tokenCopy
	}
	return repo
}

func (f *fakeTokenRepository) Create(ctx context.Context, token domain.AuthRefreshToken) error {
	f.created = append(f.created, token)
	tokenCopy := token
	f.tokens[token.ID] = &tokenCopy
	return nil
}

func (f *fakeTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			copy := *token
			if token.RotatedAt != nil {
				rotatedAt := *token.RotatedAt
				copy.RotatedAt = &rotatedAt
			}
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTokenRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.AuthRefreshToken, error) {
	result := make([]domain.AuthRefreshToken, 0)
	for _, token := range f.tokens {
		if token.SessionID == sessionID {
			result = append(result, *token)
		}
	}
	return result, nil
}

func (f *fakeTokenRepository) MarkRotated(ctx context.Context, tokenID string, rotatedAt time.Time) (bool, error) {
	if f.loseRotationRace {
		// The concurrent winner has already stamped rotated_at.
		if token, ok := f.tokens[tokenID]; ok && token.RotatedAt == nil {
			stamped := rotatedAt
			token.RotatedAt = &stamped
		}
		return false, nil
	}
	token, ok := f.tokens[tokenID]
	if !ok || token.RotatedAt != nil {
		return false, nil
	}
	stamped := rotatedAt
	token.RotatedAt = &stamped
	return true, nil
}

func (f *fakeTokenRepository) MarkGraceUsed(ctx context.Context, tokenID string) (bool, error) {
	if f.loseGraceRace {
		if token, ok := f.tokens[tokenID]; ok {
			token.GraceUsed = true
		}
		return false, nil
	}
	token, ok := f.tokens[tokenID]
	if !ok || token.GraceUsed {
		return false, nil
	}
	token.GraceUsed = true
	return true, nil
}

func (f *fakeTokenRepository) RevokeBySession(ctx context.Context, sessionID string) (int, error) {
	f.revokedSessions = append(f.revokedSessions, sessionID)
	count := 0
	for _, token := range f.tokens {
		if token.SessionID == sessionID && !token.Revoked {
			token.Revoked = true
			count++
		}
	}
	f.revokeBySessionN += count
	return count, nil
}

type fakePendingRepository struct {
	pending map[string]*domain.PendingTwoFactor

	created     []domain.PendingTwoFactor
	deleted     []string
	getByIDCall int
}

func newFakePendingRepository(records ...domain.PendingTwoFactor) *fakePendingRepository {
	repo := &fakePendingRepository{pending: make(map[string]*domain.PendingTwoFactor)}
	for i := range records {
		recordCopy := records[i]
		repo.pending[recordCopy.ID] = &recordCopy
	}
	return repo
}

func (f *fakePendingRepository) Create(ctx context.Context, pending domain.PendingTwoFactor) error {
	f.created = append(f.created, pending)
	pendingCopy := pending
	f.pending[pending.ID] = &pendingCopy
	return nil
}

func (f *fakePendingRepository) GetByID(ctx context.Context, id string) (*domain.PendingTwoFactor, error) {
	f.getByIDCall++
	pending, ok := f.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *pending
	return &copy, nil
}

func (f *fakePendingRepository) Delete(ctx context.Context, id string) error {
	if _, ok := f.pending[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.pending, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecoveryRepository struct {
	codes []domain.RecoveryCode

	listCalls     int
	markedUsed    []string
	deletedUsers  []string
	createdHashes []string
}

func (f *fakeRecoveryRepository) Create(ctx context.Context, code domain.RecoveryCode) error {
	f.codes = append(f.codes, code)
	f.createdHashes = append(f.createdHashes, code.CodeHash)
	return nil
}

func (f *fakeRecoveryRepository) ListByUser(ctx context.Context, userID string) ([]domain.RecoveryCode, error) {
	f.listCalls++
	result := make([]domain.RecoveryCode, 0)
	for _, code := range f.codes {
		if code.UserID == userID {
			result = append(result, code)
		}
	}
	return result, nil
}

func (f *fakeRecoveryRepository) MarkUsed(ctx context.Context, codeID string) error {
	for i := range f.codes {
		if f.codes[i].ID == codeID {
			f.codes[i].Used = true
			f.markedUsed = append(f.markedUsed, codeID)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRecoveryRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	f.deletedUsers = append(f.deletedUsers, userID)
	kept := f.codes[:0]
	deleted := 0
	for _, code := range f.codes {
		if code.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, code)
	}
	f.codes = kept
	return deleted, nil
}

type fakeLockoutService struct {
	locked    bool
	failures  int
	threshold int

	isLockedCalls int
	recordCalls   int
	clearCalls    int
}

func (f *fakeLockoutService) IsLocked(ctx context.Context, email string) (bool, error) {
	f.isLockedCalls++
	return f.locked, nil
}

func (f *fakeLockoutService) RecordFailure(ctx context.Context, email string) (bool, error) {
	f.recordCalls++
	f.failures++
	return f.threshold > 0 && f.failures == f.threshold, nil
}

func (f *fakeLockoutService) ClearFailures(ctx context.Context, email string) error {
	f.clearCalls++
	f.failures = 0
	return nil
}

// fakeHasher encodes passwords as "hash:<password>" so verification is a
// plain string comparison in tests.
type fakeHasher struct {
	verifyCalls      int
	verifyDummyCalls int
}

func (f *fakeHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (f *fakeHasher) Verify(password, encoded string) (bool, error) {
	f.verifyCalls++
	return encoded == "hash:"+password, nil
}

func (f *fakeHasher) VerifyDummy(password string) {
	f.verifyDummyCalls++
}

type fakeTOTPVerifier struct {
	secret string
	valid  string

	verifyCalls int
}

func (f *fakeTOTPVerifier) Verify(secret, code string) bool {
	f.verifyCalls++
	return secret == f.secret && code == f.valid
}

type fakeSecretGenerator struct {
	secret string
	url    string
}

func (f *fakeSecretGenerator) Generate(accountEmail string) (string, string, error) {
	return f.secret, f.url, nil
}

// fakeEncryptor prefixes plaintext so tests can tell encrypted values apart.
type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", fmt.Errorf("malformed ciphertext %q", ciphertext)
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fakeCodeGenerator struct {
	next int
}

func (f *fakeCodeGenerator) Generate() (string, error) {
	f.next++
	return fmt.Sprintf("CODE-%04d", f.next), nil
}

type fakeAccessIssuer struct {
	issued []port.AccessTokenClaims
}

func (f *fakeAccessIssuer) Issue(claims port.AccessTokenClaims) (string, error) {
	f.issued = append(f.issued, claims)
	return fmt.Sprintf("access-token-%d", len(f.issued)), nil
}

type fakeIDGenerator struct {
	sortable int
	random   int
}

func (f *fakeIDGenerator) NewSortableID() string {
	f.sortable++
	return fmt.Sprintf("id-%04d", f.sortable)
}

func (f *fakeIDGenerator) NewRandomID() string {
	f.random++
	return fmt.Sprintf("rid-%04d", f.random)
}

type fakePublisher struct {
	// order records every published event type in publish order, so tests
	// can assert cross-type sequencing.
	order []string

	signedIn     []domain.UserSignedInEvent
	signInFailed []domain.SignInFailedEvent
	lockedOut    []domain.AccountLockedOutEvent
	completed    []domain.TwoFactorCompletedEvent
	failed       []domain.TwoFactorFailedEvent
	enabled      []domain.TwoFactorEnabledEvent
	disabled     []domain.TwoFactorDisabledEvent
	recoveryUsed []domain.RecoveryCodeUsedEvent
	rotated      []domain.RefreshTokenRotatedEvent
	theft        []domain.RefreshTokenTheftDetectedEvent
	revoked      []domain.SessionRevokedEvent
	allRevoked   []domain.AllSessionsRevokedEvent
}

func (f *fakePublisher) PublishUserSignedIn(ctx context.Context, event domain.UserSignedInEvent) error {
	f.order = append(f.order, "user_signed_in")
	f.signedIn = append(f.signedIn, event)
	return nil
}

func (f *fakePublisher) PublishSignInFailed(ctx context.Context, event domain.SignInFailedEvent) error {
	f.order = append(f.order, "signin_failed")
	f.signInFailed = append(f.signInFailed, event)
	return nil
}

func (f *fakePublisher) PublishAccountLockedOut(ctx context.Context, event domain.AccountLockedOutEvent) error {
	f.order = append(f.order, "account_locked_out")
	f.lockedOut = append(f.lockedOut, event)
	return nil
}

func (f *fakePublisher) PublishTwoFactorCompleted(ctx context.Context, event domain.TwoFactorCompletedEvent) error {
	f.order = append(f.order, "two_factor_completed")
	f.completed = append(f.completed, event)
	return nil
}

func (f *fakePublisher) PublishTwoFactorFailed(ctx context.Context, event domain.TwoFactorFailedEvent) error {
	f.order = append(f.order, "two_factor_failed")
	f.failed = append(f.failed, event)
	return nil
}

func (f *fakePublisher) PublishTwoFactorEnabled(ctx context.Context, event domain.TwoFactorEnabledEvent) error {
	f.order = append(f.order, "two_factor_enabled")
	f.enabled = append(f.enabled, event)
	return nil
}

func (f *fakePublisher) PublishTwoFactorDisabled(ctx context.Context, event domain.TwoFactorDisabledEvent) error {
	f.order = append(f.order, "two_factor_disabled")
	f.disabled = append(f.disabled, event)
	return nil
}

func (f *fakePublisher) PublishRecoveryCodeUsed(ctx context.Context, event domain.RecoveryCodeUsedEvent) error {
	f.order = append(f.order, "recovery_code_used")
	f.recoveryUsed = append(f.recoveryUsed, event)
	return nil
}

func (f *fakePublisher) PublishRefreshTokenRotated(ctx context.Context, event domain.RefreshTokenRotatedEvent) error {
	f.order = append(f.order, "token_rotated")
	f.rotated = append(f.rotated, event)
	return nil
}

func (f *fakePublisher) PublishRefreshTokenTheftDetected(ctx context.Context, event domain.RefreshTokenTheftDetectedEvent) error {
	f.order = append(f.order, "theft_detected")
	f.theft = append(f.theft, event)
	return nil
}

func (f *fakePublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	f.order = append(f.order, "session_revoked")
	f.revoked = append(f.revoked, event)
	return nil
}

func (f *fakePublisher) PublishAllSessionsRevoked(ctx context.Context, event domain.AllSessionsRevokedEvent) error {
	f.order = append(f.order, "all_sessions_revoked")
	f.allRevoked = append(f.allRevoked, event)
	return nil
}
