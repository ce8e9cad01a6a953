package handlers

import (
	"net/http"

	"ai-artist-backend/internal/models"
	"ai-artist-backend/internal/preferences"
	"ai-artist-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PreferencesHandler struct {
	studio *services.Studio
}

func NewPreferencesHandler(studio *services.Studio) *PreferencesHandler {
	return &PreferencesHandler{studio: studio}
}

// GetPreferences godoc
// @Summary     Get preferences
// @Description Returns the saved defaults for new image requests
// @Tags        preferences
// @Produce     json
// @Security    Bearer
// @Success     200 {object} preferences.Preferences
// @Router      /preferences [get]
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.studio.Preferences())
}

// UpdatePreferences godoc
// @Summary     Save preferences
// @Description Validates and saves the defaults, then applies them to the image form
// @Tags        preferences
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.PreferencesRequest true "Preferences"
// @Success     200 {object} preferences.Preferences
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /preferences [put]
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var req models.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	prefs := preferences.Preferences{
		DefaultStyle:       req.DefaultStyle,
		DefaultQuality:     req.DefaultQuality,
		DefaultNumOutputs:  req.DefaultNumOutputs,
		DefaultAspectRatio: req.DefaultAspectRatio,
	}
	if err := h.studio.SavePreferences(prefs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.studio.Preferences())
}
