package handlers

import (
	"net/http"
	"time"

	"ai-artist-backend/internal/config"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/middleware"
	"ai-artist-backend/internal/models"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	cfg *config.Config
	log *logger.Logger
}

func NewSessionHandler(cfg *config.Config, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionHandler{cfg: cfg, log: log}
}

// CreateSession godoc
// @Summary     Start a session
// @Description Completes onboarding and issues a session token for the studio API
// @Tags        session
// @Produce     json
// @Success     201 {object} models.SessionResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /session [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	token, claims, err := middleware.IssueSessionToken(h.cfg, time.Now())
	if err != nil {
		h.log.Error("session token failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create session", Message: err.Error()})
		return
	}
	h.log.Info("session started", "session_id", claims.Subject)
	c.JSON(http.StatusCreated, models.SessionResponse{
		Token:     token,
		SessionID: claims.Subject,
		Onboarded: claims.Onboarded,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// DeleteSession godoc
// @Summary     End a session
// @Description Sessions are stateless; the client discards its token
// @Tags        session
// @Success     204
// @Router      /session [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
