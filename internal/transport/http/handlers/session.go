package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// SessionHandler exposes the authenticated session inspection endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes binds the session routes. The group is expected to already
// carry the auth middleware.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.handleList)
}

func (h *SessionHandler) handleList(c *gin.Context) {
	userID, currentSessionID := middleware.AuthenticatedUser(c)

	sessions, err := h.sessions.ListActive(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "list sessions failed")
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:         session.ID,
			IPAddress:  session.IPAddress,
			UserAgent:  session.UserAgent,
			CreatedAt:  session.CreatedAt,
			ExpiresAt:  session.ExpiresAt,
			RememberMe: session.RememberMe,
			Current:    session.ID == currentSessionID,
		})
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: summaries})
}
