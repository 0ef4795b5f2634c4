package security

import (
	"crypto/rand"
	"fmt"
)

const (
	recoveryCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	recoveryCodeGroupSize = 4
)

// RecoveryCodeSource generates single-use recovery codes in the displayed
// XXXX-XXXX form. Codes are handed to the caller exactly once; only salted
// hashes are persisted.
type RecoveryCodeSource struct{}

// NewRecoveryCodeSource constructs a RecoveryCodeSource.
func NewRecoveryCodeSource() *RecoveryCodeSource {
	return &RecoveryCodeSource{}
}

// Generate returns a fresh recovery code.
func (s *RecoveryCodeSource) Generate() (string, error) {
	buf := make([]byte, recoveryCodeGroupSize*2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate recovery code: %w", err)
	}

	chars := make([]byte, len(buf))
	for i, b := range buf {
		chars[i] = recoveryCodeAlphabet[int(b)%len(recoveryCodeAlphabet)]
	}

	return fmt.Sprintf("%s-%s", chars[:recoveryCodeGroupSize], chars[recoveryCodeGroupSize:]), nil
}
