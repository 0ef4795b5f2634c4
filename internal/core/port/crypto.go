package port

import "time"

// PasswordHasher hashes and verifies secrets using the configured algorithm.
// VerifyDummy performs a comparison against a fixed placeholder hash with the
// same cost profile as a real verification and always reports a mismatch; the
// sign-in flow calls it when no account exists so that "no such user" and
// "wrong password" are indistinguishable in timing.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	VerifyDummy(password string)
}

// TOTPVerifier checks a time-based one-time code against a plaintext secret.
type TOTPVerifier interface {
	Verify(secret, code string) bool
}

// TwoFactorSecretGenerator produces a new TOTP secret and its provisioning URL.
type TwoFactorSecretGenerator interface {
	Generate(accountEmail string) (secret string, otpauthURL string, err error)
}

// TwoFactorSecretEncryptor protects TOTP secrets at rest.
type TwoFactorSecretEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// RecoveryCodeGenerator produces single-use recovery codes in displayable form.
type RecoveryCodeGenerator interface {
	Generate() (string, error)
}

// AccessTokenClaims carries the claim content the core supplies to the issuer.
// Issuer, audience, and signing details are the issuer's concern.
type AccessTokenClaims struct {
	Subject   string
	JTI       string
	SessionID string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessTokenIssuer builds signed bearer tokens from claim content.
type AccessTokenIssuer interface {
	Issue(claims AccessTokenClaims) (string, error)
}
