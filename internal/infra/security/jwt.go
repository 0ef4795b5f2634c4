package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/social-platform-auth/internal/core/port"
)

var (
	// ErrInvalidAccessToken indicates the token is malformed or its
	// signature failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the token has elapsed its lifetime.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// AccessClaims augments registered claims with the session binding and roles.
type AccessClaims struct {
	Roles     []string `json:"roles,omitempty"`
	SessionID string   `json:"sid"`
	jwt.RegisteredClaims
}

// JWTIssuer signs access tokens with RS256 and a kid header.
// Implements port.AccessTokenIssuer.
type JWTIssuer struct {
	appName     string
	keyProvider KeyProvider
}

// NewJWTIssuer constructs a JWTIssuer. The app name doubles as issuer and
// audience, matching what the resource services validate against.
func NewJWTIssuer(appName string, keyProvider KeyProvider) *JWTIssuer {
	return &JWTIssuer{appName: appName, keyProvider: keyProvider}
}

// Issue signs a token from the supplied claim content.
func (i *JWTIssuer) Issue(claims port.AccessTokenClaims) (string, error) {
	full := AccessClaims{
		Roles:     claims.Roles,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    i.appName,
			Audience:  jwt.ClaimStrings{i.appName},
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			NotBefore: jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.JTI,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, full)
	token.Header["kid"] = i.keyProvider.SigningKID()

	signingKey, err := i.keyProvider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse validates an access token and returns its claims.
func (i *JWTIssuer) Parse(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		return i.keyProvider.GetVerificationKey(kid)
	}, jwt.WithIssuer(i.appName), jwt.WithAudience(i.appName))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
