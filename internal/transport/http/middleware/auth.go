package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/infra/security"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// TokenParser validates a signed access token and returns its claims.
type TokenParser interface {
	Parse(token string) (*security.AccessClaims, error)
}

// RequireAuth validates the Authorization header and stores the authenticated
// user and session on the request context.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := parser.Parse(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case errors.Is(err, security.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(SessionIDKey, claims.SessionID)
		c.Set("claims", claims)
		c.Set("roles", claims.Roles)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = claims.Subject
			reqCtx.SessionID = claims.SessionID
		}

		c.Next()
	}
}

// AuthenticatedUser returns the user and session identifiers stored by
// RequireAuth.
func AuthenticatedUser(c *gin.Context) (userID, sessionID string) {
	if v, ok := c.Get(UserIDKey); ok {
		userID, _ = v.(string)
	}
	if v, ok := c.Get(SessionIDKey); ok {
		sessionID, _ = v.(string)
	}
	return userID, sessionID
}
