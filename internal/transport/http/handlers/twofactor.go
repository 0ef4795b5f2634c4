package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// TwoFactorHandler exposes the authenticated two-factor management endpoints.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
}

// NewTwoFactorHandler constructs TwoFactorHandler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

// RegisterRoutes binds the two-factor management routes. The group is expected
// to already carry the auth middleware.
func (h *TwoFactorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/setup", h.handleSetup)
	r.POST("/confirm", h.handleConfirm)
	r.POST("/disable", h.handleDisable)
	r.POST("/recovery-codes", h.handleRegenerateRecoveryCodes)
}

func (h *TwoFactorHandler) handleSetup(c *gin.Context) {
	userID, _ := middleware.AuthenticatedUser(c)

	secret, otpauthURL, err := h.twoFactor.BeginSetup(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"},
		}, http.StatusInternalServerError, "two-factor setup failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorSetupResponse{
		Secret:     secret,
		OTPAuthURL: otpauthURL,
	})
}

func (h *TwoFactorHandler) handleConfirm(c *gin.Context) {
	var req TwoFactorConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	userID, sessionID := middleware.AuthenticatedUser(c)

	result, err := h.twoFactor.Confirm(c.Request.Context(), userID, req.Code, sessionID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTwoFactorAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication is already enabled"},
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "invalid two-factor code"},
		}, http.StatusInternalServerError, "two-factor confirmation failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorConfirmResponse{
		RecoveryCodes:   result.RecoveryCodes,
		SessionsRevoked: result.SessionsRevoked,
	})
}

func (h *TwoFactorHandler) handleDisable(c *gin.Context) {
	var req TwoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid disable payload"))
		return
	}

	userID, _ := middleware.AuthenticatedUser(c)

	if err := h.twoFactor.Disable(c.Request.Context(), userID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusForbidden, Message: "two-factor authentication is not enabled"},
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "invalid two-factor code"},
		}, http.StatusInternalServerError, "two-factor disable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor authentication disabled"})
}

func (h *TwoFactorHandler) handleRegenerateRecoveryCodes(c *gin.Context) {
	userID, sessionID := middleware.AuthenticatedUser(c)

	codes, err := h.twoFactor.RegenerateRecoveryCodes(c.Request.Context(), userID, sessionID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrReauthRequired, Status: http.StatusForbidden, Message: "re-authentication required"},
			{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusForbidden, Message: "two-factor authentication is not enabled"},
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"},
		}, http.StatusInternalServerError, "recovery code regeneration failed")
		return
	}

	c.JSON(http.StatusOK, RecoveryCodesResponse{RecoveryCodes: codes})
}
