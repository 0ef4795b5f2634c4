package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with the trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignInRequest defines the payload for the sign-in endpoint.
type SignInRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// SignInResponse describes a successful credential-only sign-in.
type SignInResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// TwoFactorPendingResponse is returned when sign-in requires a second factor.
type TwoFactorPendingResponse struct {
	TwoFactorRequired bool   `json:"two_factor_required"`
	PendingSessionID  string `json:"pending_session_id"`
}

// TwoFactorCompleteRequest defines the payload for the 2FA completion endpoint.
type TwoFactorCompleteRequest struct {
	PendingSessionID string `json:"pending_session_id" binding:"required"`
	Code             string `json:"code" binding:"required"`
}

// TwoFactorCompleteResponse describes a completed two-factor sign-in.
// RecoveryCodesRemaining and Warning appear only when a recovery code was
// consumed.
type TwoFactorCompleteResponse struct {
	SessionID              string `json:"session_id"`
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	TokenType              string `json:"token_type"`
	ExpiresIn              int    `json:"expires_in"`
	Method                 string `json:"method"`
	RecoveryCodesRemaining *int   `json:"recovery_codes_remaining,omitempty"`
	Warning                string `json:"warning,omitempty"`
}

// TwoFactorSetupResponse carries the freshly generated TOTP secret.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// TwoFactorConfirmRequest defines the payload to confirm a 2FA setup.
type TwoFactorConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorConfirmResponse returns the one-time plaintext recovery codes.
type TwoFactorConfirmResponse struct {
	RecoveryCodes   []string `json:"recovery_codes"`
	SessionsRevoked int      `json:"sessions_revoked"`
}

// TwoFactorDisableRequest defines the payload to disable 2FA.
type TwoFactorDisableRequest struct {
	Code string `json:"code" binding:"required"`
}

// RecoveryCodesResponse returns a regenerated batch of plaintext codes.
type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// TokenRefreshRequest represents the payload to rotate a refresh token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenRefreshResponse describes the rotated token pair.
type TokenRefreshResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SignOutAllResponse reports how many sessions were torn down.
type SignOutAllResponse struct {
	RevokedCount int `json:"revoked_count"`
}

// SessionSummary provides a compact view of an active session.
type SessionSummary struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	RememberMe bool      `json:"remember_me"`
	Current    bool      `json:"current"`
}

// SessionListResponse wraps the active session collection.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
