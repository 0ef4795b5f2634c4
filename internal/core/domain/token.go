package domain

import "time"

// Theft detection reasons attached to RefreshTokenTheftDetectedEvent.
const (
	TheftReasonDoubleGraceUse     = "double_grace_use"
	TheftReasonGracePeriodExpired = "grace_period_expired"
)

// AuthRefreshToken represents a persisted refresh token with rotation support.
// Only the SHA-256 hash of the opaque token value is ever stored.
type AuthRefreshToken struct {
	ID        string
	SessionID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	// RotatedAt is set when the token is superseded by a newer one. A token
	// moves active -> rotated -> revoked, never backwards.
	RotatedAt *time.Time
	// GraceUsed records whether the single post-rotation reuse allowance
	// has already been exercised.
	GraceUsed bool
}

// IsExpired reports whether the token has elapsed its validity window.
func (t AuthRefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsRotated reports whether the token has been superseded.
func (t AuthRefreshToken) IsRotated() bool {
	return t.RotatedAt != nil
}

// WithinGrace reports whether a reuse at the supplied moment still falls
// inside the rotation grace window.
func (t AuthRefreshToken) WithinGrace(at time.Time, window time.Duration) bool {
	if t.RotatedAt == nil {
		return false
	}
	return at.Sub(*t.RotatedAt) <= window
}

// MarkRotated records the moment the token was superseded.
// Returns true if the token transitioned from active to rotated.
func (t *AuthRefreshToken) MarkRotated(at time.Time) bool {
	if t.RotatedAt != nil {
		return false
	}
	timeCopy := at
	t.RotatedAt = &timeCopy
	return true
}

// MarkGraceUsed consumes the one-shot grace allowance.
// Returns true if the allowance was still available.
func (t *AuthRefreshToken) MarkGraceUsed() bool {
	if t.GraceUsed {
		return false
	}
	t.GraceUsed = true
	return true
}

// Revoke marks the token as revoked.
// Returns true if the token transitioned to the revoked state.
func (t *AuthRefreshToken) Revoke() bool {
	if t.Revoked {
		return false
	}
	t.Revoked = true
	return true
}
