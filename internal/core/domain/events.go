package domain

import "time"

// UserSignedInEvent represents the payload for auth.user.signed_in messages.
type UserSignedInEvent struct {
	EventID    string
	UserID     string
	SessionID  string
	IPAddress  string
	UserAgent  string
	RememberMe bool
	SignedInAt time.Time
	Metadata   map[string]any
}

// SignInFailedEvent represents the payload for auth.signin.failed messages.
// Email is the normalized identifier the attempt was made against; UserID is
// empty when no account exists (the dummy-hash path).
type SignInFailedEvent struct {
	EventID   string
	Email     string
	UserID    string
	IPAddress string
	FailedAt  time.Time
	Metadata  map[string]any
}

// AccountLockedOutEvent represents the payload for auth.account.locked_out messages.
type AccountLockedOutEvent struct {
	EventID      string
	Email        string
	LockedAt     time.Time
	LockDuration time.Duration
	Metadata     map[string]any
}

// TwoFactorCompletedEvent represents the payload for auth.2fa.completed messages.
// Method is "totp" or "recovery_code".
type TwoFactorCompletedEvent struct {
	EventID     string
	UserID      string
	SessionID   string
	Method      string
	CompletedAt time.Time
	Metadata    map[string]any
}

// TwoFactorFailedEvent represents the payload for auth.2fa.failed messages.
type TwoFactorFailedEvent struct {
	EventID  string
	UserID   string
	FailedAt time.Time
	Metadata map[string]any
}

// TwoFactorEnabledEvent represents the payload for auth.2fa.enabled messages.
type TwoFactorEnabledEvent struct {
	EventID   string
	UserID    string
	EnabledAt time.Time
	Metadata  map[string]any
}

// TwoFactorDisabledEvent represents the payload for auth.2fa.disabled messages.
type TwoFactorDisabledEvent struct {
	EventID    string
	UserID     string
	DisabledAt time.Time
	Metadata   map[string]any
}

// RecoveryCodeUsedEvent represents the payload for auth.2fa.recovery_code_used
// messages. Published before the matching TwoFactorCompletedEvent.
type RecoveryCodeUsedEvent struct {
	EventID        string
	UserID         string
	RemainingCount int
	UsedAt         time.Time
	Metadata       map[string]any
}

// RefreshTokenRotatedEvent represents the payload for auth.token.rotated messages.
type RefreshTokenRotatedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RotatedAt time.Time
	Metadata  map[string]any
}

// RefreshTokenTheftDetectedEvent represents the payload for
// auth.token.theft_detected messages. Reason is one of the Theft* constants.
type RefreshTokenTheftDetectedEvent struct {
	EventID    string
	SessionID  string
	UserID     string
	IPAddress  string
	Reason     string
	DetectedAt time.Time
	Metadata   map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	Reason    string
	RevokedAt time.Time
	Metadata  map[string]any
}

// AllSessionsRevokedEvent represents the payload for auth.session.revoked_all messages.
type AllSessionsRevokedEvent struct {
	EventID      string
	UserID       string
	Reason       string
	RevokedCount int
	RevokedAt    time.Time
	Metadata     map[string]any
}
