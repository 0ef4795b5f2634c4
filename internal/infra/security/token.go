package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	uuid "github.com/google/uuid"
)

// OpaqueTokenBytes is the entropy behind opaque refresh tokens. 32 bytes of
// raw base64url encode to exactly 43 characters, the shape clients assert on.
const OpaqueTokenBytes = 32

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates the SHA-256 hash of the provided value. Only hashes of
// opaque tokens are ever persisted.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// UUIDGenerator implements port.IDGenerator on top of google/uuid.
// Sortable ids are UUIDv7 (time-ordered); random ids are UUIDv4.
type UUIDGenerator struct{}

// NewUUIDGenerator constructs a UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewSortableID returns a time-sortable identifier.
func (g *UUIDGenerator) NewSortableID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewRandomID returns a random identifier for events and jti claims.
func (g *UUIDGenerator) NewRandomID() string {
	return uuid.NewString()
}
