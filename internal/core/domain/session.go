package domain

import "time"

// Session revocation reasons recorded on teardown paths.
const (
	RevokeReasonLogout           = "logout"
	RevokeReasonUserInitiated    = "user_initiated"
	RevokeReasonTheftDetected    = "theft_detected"
	RevokeReasonTwoFactorEnabled = "two_factor_enabled"
)

// AuthSession represents a persisted login session bound to a client device.
type AuthSession struct {
	ID         string
	UserID     string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RememberMe bool
	Revoked    bool
}

// IsActive reports whether the session is still valid (not revoked and not expired at the supplied moment).
func (s AuthSession) IsActive(at time.Time) bool {
	if s.Revoked {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Revoke marks the session as revoked. A revoked session never reactivates.
// Returns true when the session changed state, so callers can skip
// persisting sessions that were already revoked.
func (s *AuthSession) Revoke() bool {
	if s.Revoked {
		return false
	}
	s.Revoked = true
	return true
}

// Age returns how long ago the session was created, used for sudo-window checks.
func (s AuthSession) Age(at time.Time) time.Duration {
	return at.Sub(s.CreatedAt)
}
