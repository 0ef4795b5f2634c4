package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

var twoFactorNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type twoFactorFixture struct {
	service   *TwoFactorService
	users     *fakeUserRepository
	sessions  *fakeSessionRepository
	tokens    *fakeTokenRepository
	pending   *fakePendingRepository
	recovery  *fakeRecoveryRepository
	totp      *fakeTOTPVerifier
	hasher    *fakeHasher
	publisher *fakePublisher
}

func newTwoFactorFixture(t *testing.T, users ...domain.User) *twoFactorFixture {
	t.Helper()

	f := &twoFactorFixture{
		users:     newFakeUserRepository(users...),
		sessions:  newFakeSessionRepository(),
		tokens:    newFakeTokenRepository(),
		pending:   newFakePendingRepository(),
		recovery:  &fakeRecoveryRepository{},
		totp:      &fakeTOTPVerifier{secret: "JBSWY3DP", valid: "123456"},
		hasher:    &fakeHasher{},
		publisher: &fakePublisher{},
	}

	f.service = NewTwoFactorService(
		testConfig(),
		f.users, f.sessions, f.tokens, f.pending, f.recovery,
		f.totp,
		&fakeSecretGenerator{secret: "JBSWY3DP", url: "otpauth://totp/auth-test:alice@example.com"},
		fakeEncryptor{},
		&fakeCodeGenerator{},
		f.hasher,
		&fakeAccessIssuer{},
		f.publisher,
		&fakeIDGenerator{},
	)
	f.service.now = func() time.Time { return twoFactorNow }

	return f
}

func twoFactorUser() domain.User {
	secret := "enc:JBSWY3DP"
	return domain.User{
		ID:               "user-1",
		Email:            "alice@example.com",
		PasswordHash:     "hash:pw",
		TwoFactorEnabled: true,
		TwoFactorSecret:  &secret,
	}
}

func openChallenge(f *twoFactorFixture) domain.PendingTwoFactor {
	pending := domain.PendingTwoFactor{
		ID:        "pending-1",
		UserID:    "user-1",
		CreatedAt: twoFactorNow.Add(-time.Minute),
		ExpiresAt: twoFactorNow.Add(4 * time.Minute),
	}
	f.pending.pending[pending.ID] = &pending
	return pending
}

func seedRecoveryCodes(f *twoFactorFixture, plaintext ...string) {
	for i, code := range plaintext {
		f.recovery.codes = append(f.recovery.codes, domain.RecoveryCode{
			ID:       "rc-" + string(rune('a'+i)),
			UserID:   "user-1",
			CodeHash: "hash:" + code,
		})
	}
}

func TestCompleteWithValidTOTP(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	openChallenge(f)

	result, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "123456",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if result.Method != domain.TwoFactorMethodTOTP {
		t.Fatalf("method = %q, want totp", result.Method)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("incomplete issuance: %+v", result)
	}
	if result.RecoveryCodesRemaining != nil || result.Warning != "" {
		t.Fatal("TOTP completion must not report recovery inventory")
	}

	if len(f.pending.deleted) != 1 || f.pending.deleted[0] != "pending-1" {
		t.Fatalf("pending deletions = %v, want [pending-1]", f.pending.deleted)
	}
	if len(f.publisher.completed) != 1 {
		t.Fatalf("completed events = %d, want 1", len(f.publisher.completed))
	}
	if f.publisher.completed[0].Method != domain.TwoFactorMethodTOTP {
		t.Fatalf("event method = %q", f.publisher.completed[0].Method)
	}
}

func TestCompleteMalformedCodeTouchesNoCollaborators(t *testing.T) {
	malformed := []string{"A123456", "1234567", "12345", "XXAB1-CD23", "AB1C-D234X", ""}

	for _, code := range malformed {
		f := newTwoFactorFixture(t, twoFactorUser())
		openChallenge(f)

		_, err := f.service.Complete(context.Background(), CompleteInput{
			PendingSessionID: "pending-1",
			Code:             code,
		})
		if !errors.Is(err, ErrInvalidTwoFactorCode) {
			t.Fatalf("code %q: err = %v, want ErrInvalidTwoFactorCode", code, err)
		}

		if f.pending.getByIDCall != 0 {
			t.Fatalf("code %q: pending lookups = %d, want 0", code, f.pending.getByIDCall)
		}
		if f.users.getByIDCalls != 0 {
			t.Fatalf("code %q: user lookups = %d, want 0", code, f.users.getByIDCalls)
		}
		if f.totp.verifyCalls != 0 {
			t.Fatalf("code %q: totp verifications = %d, want 0", code, f.totp.verifyCalls)
		}
		if f.recovery.listCalls != 0 {
			t.Fatalf("code %q: recovery listings = %d, want 0", code, f.recovery.listCalls)
		}
		if len(f.publisher.failed) != 1 {
			t.Fatalf("code %q: failure events = %d, want 1", code, len(f.publisher.failed))
		}
	}
}

func TestCompleteWrongTOTP(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	openChallenge(f)

	_, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "654321",
	})
	if !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("err = %v, want ErrInvalidTwoFactorCode", err)
	}

	if len(f.publisher.failed) != 1 {
		t.Fatalf("failure events = %d, want 1", len(f.publisher.failed))
	}
	if len(f.sessions.created) != 0 {
		t.Fatal("no session may be created on failure")
	}
	// The challenge stays open for a retry.
	if len(f.pending.deleted) != 0 {
		t.Fatal("pending challenge must survive a failed attempt")
	}
}

func TestCompleteExpiredChallenge(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	pending := domain.PendingTwoFactor{
		ID:        "pending-1",
		UserID:    "user-1",
		CreatedAt: twoFactorNow.Add(-10 * time.Minute),
		ExpiresAt: twoFactorNow.Add(-5 * time.Minute),
	}
	f.pending.pending[pending.ID] = &pending

	_, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "123456",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCompleteUnknownChallenge(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())

	_, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "nope",
		Code:             "123456",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCompleteAfterTwoFactorDisabledMidChallenge(t *testing.T) {
	user := twoFactorUser()
	user.TwoFactorEnabled = false
	f := newTwoFactorFixture(t, user)
	openChallenge(f)

	_, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "123456",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCompleteWithRecoveryCode(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	openChallenge(f)
	seedRecoveryCodes(f, "AAAA-1111", "BBBB-2222", "CCCC-3333")

	result, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "aaaa-1111",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if result.Method != domain.TwoFactorMethodRecoveryCode {
		t.Fatalf("method = %q, want recovery_code", result.Method)
	}
	if result.RecoveryCodesRemaining == nil || *result.RecoveryCodesRemaining != 2 {
		t.Fatalf("remaining = %v, want 2", result.RecoveryCodesRemaining)
	}
	if result.Warning == "" {
		t.Fatal("expected low-inventory warning at 2 remaining")
	}

	if len(f.recovery.markedUsed) != 1 {
		t.Fatalf("codes consumed = %d, want 1", len(f.recovery.markedUsed))
	}
	if len(f.publisher.recoveryUsed) != 1 {
		t.Fatalf("recovery-used events = %d, want 1", len(f.publisher.recoveryUsed))
	}
	if f.publisher.recoveryUsed[0].RemainingCount != 2 {
		t.Fatalf("event remaining = %d, want 2", f.publisher.recoveryUsed[0].RemainingCount)
	}

	// The consumption event precedes the completion event.
	if want := []string{"recovery_code_used", "two_factor_completed"}; len(f.publisher.order) != 2 ||
		f.publisher.order[0] != want[0] || f.publisher.order[1] != want[1] {
		t.Fatalf("event order = %v, want %v", f.publisher.order, want)
	}
}

func TestCompleteLastRecoveryCodeWarnsUrgently(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	openChallenge(f)
	seedRecoveryCodes(f, "AAAA-1111")

	result, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "AAAA-1111",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if *result.RecoveryCodesRemaining != 0 {
		t.Fatalf("remaining = %d, want 0", *result.RecoveryCodesRemaining)
	}
	if result.Warning != "All recovery codes have been used. Regenerate immediately." {
		t.Fatalf("warning = %q", result.Warning)
	}
}

func TestCompleteUsedRecoveryCodeIsNeverAMatch(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	openChallenge(f)
	seedRecoveryCodes(f, "AAAA-1111", "BBBB-2222")
	f.recovery.codes[0].Used = true

	_, err := f.service.Complete(context.Background(), CompleteInput{
		PendingSessionID: "pending-1",
		Code:             "AAAA-1111",
	})
	if !errors.Is(err, ErrInvalidTwoFactorCode) {
		t.Fatalf("err = %v, want ErrInvalidTwoFactorCode", err)
	}
	if len(f.recovery.markedUsed) != 0 {
		t.Fatal("a used code must never be consumed again")
	}
}

func TestBeginSetupStoresEncryptedSecret(t *testing.T) {
	f := newTwoFactorFixture(t, domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: "hash:pw",
	})

	secret, url, err := f.service.BeginSetup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("BeginSetup returned error: %v", err)
	}
	if secret != "JBSWY3DP" {
		t.Fatalf("secret = %q", secret)
	}
	if url == "" {
		t.Fatal("missing provisioning URL")
	}

	if len(f.users.saved) != 1 {
		t.Fatalf("user saves = %d, want 1", len(f.users.saved))
	}
	saved := f.users.saved[0]
	if saved.TwoFactorEnabled {
		t.Fatal("setup must not enable two-factor yet")
	}
	if saved.TwoFactorSecret == nil || *saved.TwoFactorSecret != "enc:JBSWY3DP" {
		t.Fatalf("stored secret = %v, want encrypted form", saved.TwoFactorSecret)
	}
}

func TestConfirmEnablesAndRevokesOtherSessions(t *testing.T) {
	secret := "enc:JBSWY3DP"
	f := newTwoFactorFixture(t, domain.User{
		ID:              "user-1",
		Email:           "alice@example.com",
		PasswordHash:    "hash:pw",
		TwoFactorSecret: &secret,
	})
	f.sessions.sessions["current"] = &domain.AuthSession{
		ID: "current", UserID: "user-1",
		CreatedAt: twoFactorNow.Add(-time.Minute), ExpiresAt: twoFactorNow.Add(14 * time.Minute),
	}
	f.sessions.sessions["other"] = &domain.AuthSession{
		ID: "other", UserID: "user-1",
		CreatedAt: twoFactorNow.Add(-time.Hour), ExpiresAt: twoFactorNow.Add(13 * time.Minute),
	}

	result, err := f.service.Confirm(context.Background(), "user-1", "123456", "current")
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}

	if len(result.RecoveryCodes) != 8 {
		t.Fatalf("recovery codes = %d, want 8", len(result.RecoveryCodes))
	}
	if result.SessionsRevoked != 1 {
		t.Fatalf("sessions revoked = %d, want 1", result.SessionsRevoked)
	}

	if !f.sessions.sessions["other"].Revoked {
		t.Fatal("the other session must be revoked")
	}
	if f.sessions.sessions["current"].Revoked {
		t.Fatal("the current session must survive")
	}

	if len(f.publisher.enabled) != 1 {
		t.Fatalf("enabled events = %d, want 1", len(f.publisher.enabled))
	}
	if len(f.publisher.allRevoked) != 1 {
		t.Fatalf("bulk revocation events = %d, want 1", len(f.publisher.allRevoked))
	}
	if f.publisher.allRevoked[0].Reason != domain.RevokeReasonTwoFactorEnabled {
		t.Fatalf("revocation reason = %q", f.publisher.allRevoked[0].Reason)
	}

	// The persisted hashes correspond to the returned plaintext.
	if len(f.recovery.createdHashes) != 8 {
		t.Fatalf("stored hashes = %d, want 8", len(f.recovery.createdHashes))
	}
	if f.recovery.createdHashes[0] != "hash:"+result.RecoveryCodes[0] {
		t.Fatalf("hash %q does not match code %q", f.recovery.createdHashes[0], result.RecoveryCodes[0])
	}
}

func TestConfirmOnEnabledAccountRejected(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	seedRecoveryCodes(f, "AAAA-1111", "BBBB-2222")

	// A second enable would mint a fresh batch of recovery codes while the
	// original batch stays redeemable.
	_, err := f.service.Confirm(context.Background(), "user-1", "123456", "current")
	if !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("err = %v, want ErrTwoFactorAlreadyEnabled", err)
	}
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatal("ErrTwoFactorAlreadyEnabled must match ErrAccessDenied")
	}

	if f.totp.verifyCalls != 0 {
		t.Fatal("the code must not be inspected on an enabled account")
	}
	if len(f.users.saved) != 0 {
		t.Fatal("the user must not be re-saved")
	}
	if len(f.recovery.createdHashes) != 0 {
		t.Fatal("no new recovery codes may be minted")
	}
	if len(f.recovery.codes) != 2 {
		t.Fatalf("stored codes = %d, want the original 2", len(f.recovery.codes))
	}
	if len(f.publisher.order) != 0 {
		t.Fatalf("events published = %v, want none", f.publisher.order)
	}
}

func TestConfirmWrongCode(t *testing.T) {
	secret := "enc:JBSWY3DP"
	f := newTwoFactorFixture(t, domain.User{
		ID:              "user-1",
		Email:           "alice@example.com",
		TwoFactorSecret: &secret,
	})

	_, err := f.service.Confirm(context.Background(), "user-1", "000000", "current")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if len(f.users.saved) != 0 {
		t.Fatal("a failed confirmation must not mutate the user")
	}
}

func TestDisableWithTOTP(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	seedRecoveryCodes(f, "AAAA-1111")

	if err := f.service.Disable(context.Background(), "user-1", "123456"); err != nil {
		t.Fatalf("Disable returned error: %v", err)
	}

	saved := f.users.saved[len(f.users.saved)-1]
	if saved.TwoFactorEnabled {
		t.Fatal("two-factor must be disabled")
	}
	if saved.TwoFactorSecret != nil {
		t.Fatal("the stored secret must be discarded")
	}
	if len(f.recovery.deletedUsers) != 1 {
		t.Fatalf("recovery purges = %d, want 1", len(f.recovery.deletedUsers))
	}
	if len(f.publisher.disabled) != 1 {
		t.Fatalf("disabled events = %d, want 1", len(f.publisher.disabled))
	}
}

func TestDisableWhenNotEnabled(t *testing.T) {
	f := newTwoFactorFixture(t, domain.User{
		ID:    "user-1",
		Email: "alice@example.com",
	})

	err := f.service.Disable(context.Background(), "user-1", "123456")
	if !errors.Is(err, ErrTwoFactorNotEnabled) {
		t.Fatalf("err = %v, want ErrTwoFactorNotEnabled", err)
	}
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatal("ErrTwoFactorNotEnabled must match ErrAccessDenied")
	}
}

func TestDisableWrongCodeMapsToUnauthorized(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())

	if err := f.service.Disable(context.Background(), "user-1", "000000"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong totp: err = %v, want ErrUnauthorized", err)
	}
	if err := f.service.Disable(context.Background(), "user-1", "not-a-code"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("malformed: err = %v, want ErrUnauthorized", err)
	}
}

func TestRegenerateRecoveryCodesInsideSudoWindow(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	seedRecoveryCodes(f, "AAAA-1111", "BBBB-2222")
	f.sessions.sessions["fresh"] = &domain.AuthSession{
		ID: "fresh", UserID: "user-1",
		CreatedAt: twoFactorNow.Add(-2 * time.Minute), ExpiresAt: twoFactorNow.Add(13 * time.Minute),
	}

	codes, err := f.service.RegenerateRecoveryCodes(context.Background(), "user-1", "fresh")
	if err != nil {
		t.Fatalf("RegenerateRecoveryCodes returned error: %v", err)
	}
	if len(codes) != 8 {
		t.Fatalf("new codes = %d, want 8", len(codes))
	}
	if len(f.recovery.deletedUsers) != 1 {
		t.Fatal("old codes must be purged first")
	}
	// Old codes are gone; only the fresh batch remains.
	if len(f.recovery.codes) != 8 {
		t.Fatalf("stored codes = %d, want 8", len(f.recovery.codes))
	}
}

func TestRegenerateRecoveryCodesOutsideSudoWindow(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	f.sessions.sessions["stale"] = &domain.AuthSession{
		ID: "stale", UserID: "user-1",
		CreatedAt: twoFactorNow.Add(-6 * time.Minute), ExpiresAt: twoFactorNow.Add(9 * time.Minute),
	}

	_, err := f.service.RegenerateRecoveryCodes(context.Background(), "user-1", "stale")
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("err = %v, want ErrReauthRequired", err)
	}
	if len(f.recovery.deletedUsers) != 0 {
		t.Fatal("nothing may be purged outside the sudo window")
	}
}

func TestRegenerateRecoveryCodesRevokedSession(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorUser())
	f.sessions.sessions["revoked"] = &domain.AuthSession{
		ID: "revoked", UserID: "user-1",
		CreatedAt: twoFactorNow.Add(-time.Minute), ExpiresAt: twoFactorNow.Add(14 * time.Minute),
		Revoked:   true,
	}

	_, err := f.service.RegenerateRecoveryCodes(context.Background(), "user-1", "revoked")
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("err = %v, want ErrReauthRequired", err)
	}
}
