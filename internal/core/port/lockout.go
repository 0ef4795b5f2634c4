package port

import "context"

// AccountLockoutService tracks failed sign-in attempts per identifier and
// exposes lock state with a cool-down window. Counter mutation is atomic per
// identifier at the store level.
type AccountLockoutService interface {
	IsLocked(ctx context.Context, email string) (bool, error)
	// RecordFailure increments the failure counter and returns true iff this
	// failure just crossed the lockout threshold.
	RecordFailure(ctx context.Context, email string) (bool, error)
	ClearFailures(ctx context.Context, email string) error
}
