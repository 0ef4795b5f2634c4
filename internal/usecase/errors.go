package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are
	// incorrect. Unknown accounts produce the same error as wrong passwords
	// to prevent user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates sign-in is blocked by the lockout guard.
	// Raised as AccountLockedError, which carries the retry-after hint.
	ErrAccountLocked = errors.New("account locked")
	// ErrUnauthorized covers missing, expired, or mismatched sessions,
	// tokens, and pending two-factor challenges. The same error is returned
	// regardless of which check failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTwoFactorCode collapses malformed codes, wrong TOTP values,
	// and wrong or used recovery codes into one external signal.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrAccessDenied gates operations where the actor is identified but not
	// entitled to the feature.
	ErrAccessDenied = errors.New("access denied")

	// ErrTwoFactorNotEnabled is an access-denied variant for two-factor
	// management calls on accounts without two-factor enabled.
	ErrTwoFactorNotEnabled = fmt.Errorf("%w: two-factor authentication is not enabled", ErrAccessDenied)
	// ErrTwoFactorAlreadyEnabled is an access-denied variant raised when
	// Confirm is called on an account that already has two-factor enabled.
	// Enabling twice would mint a second recovery-code batch without
	// invalidating the first.
	ErrTwoFactorAlreadyEnabled = fmt.Errorf("%w: two-factor authentication is already enabled", ErrAccessDenied)
	// ErrReauthRequired is an access-denied variant raised when the sudo
	// window for a security-sensitive operation has expired.
	ErrReauthRequired = fmt.Errorf("%w: re-authentication required", ErrAccessDenied)
)

// AccountLockedError carries the cool-down hint alongside the lockout signal.
// Matches ErrAccountLocked under errors.Is.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter)
}

// Is reports whether the target matches the lockout sentinel.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
