package domain

import "strings"

// User mirrors the auth-relevant slice of the persisted users table.
// Profile fields (initials, avatar, preferences) live in the user-service
// and are never touched by this core.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	TwoFactorEnabled bool
	// TwoFactorSecret holds the encrypted TOTP secret, nil until two-factor
	// setup has been started.
	TwoFactorSecret *string
}

// NormalizeEmail canonicalizes an email identifier for lookup and lockout keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnableTwoFactor flips the two-factor flag on.
// Returns true when the user transitioned from disabled to enabled.
func (u *User) EnableTwoFactor() bool {
	if u.TwoFactorEnabled {
		return false
	}
	u.TwoFactorEnabled = true
	return true
}

// DisableTwoFactor clears the two-factor flag and discards the stored secret.
func (u *User) DisableTwoFactor() {
	u.TwoFactorEnabled = false
	u.TwoFactorSecret = nil
}
