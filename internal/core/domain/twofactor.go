package domain

import "time"

// Two-factor completion methods attached to TwoFactorCompletedEvent.
const (
	TwoFactorMethodTOTP         = "totp"
	TwoFactorMethodRecoveryCode = "recovery_code"
)

// PendingTwoFactor bridges a password-verified sign-in and the subsequent
// two-factor challenge. Consumed on successful completion, otherwise left
// to self-expire.
type PendingTwoFactor struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the pending challenge can no longer be completed.
func (p PendingTwoFactor) IsExpired(at time.Time) bool {
	return at.After(p.ExpiresAt)
}

// RecoveryCode is a single-use backup credential stored as a salted hash.
// Used codes are marked, never deleted; bulk deletion happens only on
// two-factor disable or regeneration.
type RecoveryCode struct {
	ID       string
	UserID   string
	CodeHash string
	Used     bool
}

// Consume marks the code as used.
// Returns true when the code transitioned from unused to used.
func (c *RecoveryCode) Consume() bool {
	if c.Used {
		return false
	}
	c.Used = true
	return true
}
