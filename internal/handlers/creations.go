package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ai-artist-backend/internal/media"
	"ai-artist-backend/internal/models"
	"ai-artist-backend/internal/services"
	"ai-artist-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

type CreationsHandler struct {
	studio *services.Studio
}

func NewCreationsHandler(studio *services.Studio) *CreationsHandler {
	return &CreationsHandler{studio: studio}
}

// ListCreations godoc
// @Summary     List creations
// @Description Returns every saved creation, newest first
// @Tags        creations
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.CreationListResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /creations [get]
func (h *CreationsHandler) ListCreations(c *gin.Context) {
	list, err := h.studio.Creations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CreationListResponse{Creations: list})
}

// SaveCreation godoc
// @Summary     Save a creation
// @Description Stores an image or video payload and returns the refreshed list
// @Tags        creations
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SaveCreationRequest true "Creation"
// @Success     201 {object} models.CreationListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /creations [post]
func (h *CreationsHandler) SaveCreation(c *gin.Context) {
	var req models.SaveCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	kind, err := workspace.ParseKind(req.Type)
	if err != nil {
		badRequest(c, "invalid creation type", err)
		return
	}

	list, err := h.studio.SaveCreation(c.Request.Context(), kind, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreationListResponse{Creations: list})
}

// ClearCreations godoc
// @Summary     Clear the workspace
// @Description Removes every creation. Requires confirm=true.
// @Tags        creations
// @Produce     json
// @Security    Bearer
// @Param       confirm query bool true "Confirm the irreversible clear"
// @Success     200 {object} models.CreationListResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /creations [delete]
func (h *CreationsHandler) ClearCreations(c *gin.Context) {
	if confirm, _ := strconv.ParseBool(c.Query("confirm")); !confirm {
		badRequest(c, "confirmation required", fmt.Errorf("clearing the workspace cannot be undone; pass confirm=true"))
		return
	}
	list, err := h.studio.ClearWorkspace(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CreationListResponse{Creations: list})
}

// DeleteCreation godoc
// @Summary     Delete a creation
// @Description Removes one creation; unknown ids are ignored
// @Tags        creations
// @Produce     json
// @Security    Bearer
// @Param       id path int true "Creation ID"
// @Success     200 {object} models.CreationListResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /creations/{id} [delete]
func (h *CreationsHandler) DeleteCreation(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}
	list, err := h.studio.DeleteCreation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CreationListResponse{Creations: list})
}

// DownloadCreation godoc
// @Summary     Download a creation
// @Description Returns the decoded file with a timestamped attachment name
// @Tags        creations
// @Produce     octet-stream
// @Security    Bearer
// @Param       id path int true "Creation ID"
// @Success     200 {file} binary
// @Failure     404 {object} models.ErrorResponse
// @Router      /creations/{id}/download [get]
func (h *CreationsHandler) DownloadCreation(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}
	creation, err := h.studio.Creation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	mimeType, data, err := media.ParseDataURI(creation.Payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "stored payload is unreadable", Message: err.Error()})
		return
	}

	name := media.DownloadName(string(creation.Kind), mimeType, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, mimeType, data)
}

// PublishCreation godoc
// @Summary     Publish a creation
// @Description Uploads a saved creation to the public bucket
// @Tags        creations
// @Produce     json
// @Security    Bearer
// @Param       id path int true "Creation ID"
// @Success     200 {object} models.PublishResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /creations/{id}/publish [post]
func (h *CreationsHandler) PublishCreation(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}
	res, err := h.studio.Publish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PublishResponse{ID: id, Path: res.Path, URL: res.URL})
}

// EditCreation godoc
// @Summary     Edit a creation
// @Description Loads a saved image into the image base slot
// @Tags        creations
// @Produce     json
// @Security    Bearer
// @Param       id path int true "Creation ID"
// @Success     200 {object} models.InputResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /creations/{id}/edit [post]
func (h *CreationsHandler) EditCreation(c *gin.Context) {
	id, ok := creationID(c)
	if !ok {
		return
	}
	in, err := h.studio.UseAsBase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InputResponse{Input: in})
}

func creationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid creation id", err)
		return 0, false
	}
	return id, true
}
