package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

const tokenTypeBearer = "Bearer"

// AuthHandler exposes the sign-in, two-factor completion, refresh, and
// sign-out endpoints.
type AuthHandler struct {
	signIn    *usecase.SignInService
	twoFactor *usecase.TwoFactorService
	sessions  *usecase.SessionService
	accessTTL time.Duration
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	signIn *usecase.SignInService,
	twoFactor *usecase.TwoFactorService,
	sessions *usecase.SessionService,
	accessTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		signIn:    signIn,
		twoFactor: twoFactor,
		sessions:  sessions,
		accessTTL: accessTTL,
	}
}

// RegisterRoutes binds the authentication routes. Sign-out endpoints require
// the supplied auth middleware; the rest are anonymous by nature.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	r.POST("/sign-in", h.handleSignIn)
	r.POST("/2fa/complete", h.handleTwoFactorComplete)
	r.POST("/refresh", h.handleRefresh)
	r.POST("/sign-out", authMiddleware, h.handleSignOut)
	r.POST("/sign-out-all", authMiddleware, h.handleSignOutAll)
}

func (h *AuthHandler) expiresIn() int {
	return int(h.accessTTL.Seconds())
}

func (h *AuthHandler) handleSignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sign-in payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.signIn.SignIn(c.Request.Context(), usecase.SignInInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  reqCtx.IP,
		UserAgent:  reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "sign-in failed")
		return
	}

	if result.TwoFactorRequired {
		c.JSON(http.StatusOK, TwoFactorPendingResponse{
			TwoFactorRequired: true,
			PendingSessionID:  result.PendingSessionID,
		})
		return
	}

	c.JSON(http.StatusOK, SignInResponse{
		SessionID:    result.SessionID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    h.expiresIn(),
	})
}

func (h *AuthHandler) handleTwoFactorComplete(c *gin.Context) {
	var req TwoFactorCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid completion payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.twoFactor.Complete(c.Request.Context(), usecase.CompleteInput{
		PendingSessionID: req.PendingSessionID,
		Code:             req.Code,
		IPAddress:        reqCtx.IP,
		UserAgent:        reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidTwoFactorCode, Status: http.StatusUnauthorized, Message: "invalid two-factor code"},
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"},
		}, http.StatusInternalServerError, "two-factor completion failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorCompleteResponse{
		SessionID:              result.SessionID,
		AccessToken:            result.AccessToken,
		RefreshToken:           result.RefreshToken,
		TokenType:              tokenTypeBearer,
		ExpiresIn:              h.expiresIn(),
		Method:                 result.Method,
		RecoveryCodesRemaining: result.RecoveryCodesRemaining,
		Warning:                result.Warning,
	})
}

func (h *AuthHandler) handleRefresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken, reqCtx.IP)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, TokenRefreshResponse{
		SessionID:    result.SessionID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    h.expiresIn(),
	})
}

func (h *AuthHandler) handleSignOut(c *gin.Context) {
	userID, sessionID := middleware.AuthenticatedUser(c)

	if err := h.sessions.SignOut(c.Request.Context(), sessionID, userID); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "sign-out failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

func (h *AuthHandler) handleSignOutAll(c *gin.Context) {
	userID, _ := middleware.AuthenticatedUser(c)

	revoked, err := h.sessions.SignOutAll(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "sign-out failed")
		return
	}

	c.JSON(http.StatusOK, SignOutAllResponse{RevokedCount: revoked})
}
