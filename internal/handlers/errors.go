package handlers

import (
	"errors"
	"net/http"

	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/models"
	"ai-artist-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError writes err using the error taxonomy's status mapping.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: err.Error(), Code: "not_found"})
		return
	}

	kind := generation.KindOf(err)
	msg := err.Error()
	var ge *generation.Error
	if errors.As(err, &ge) {
		msg = ge.Error()
	}

	status := http.StatusBadGateway
	switch kind {
	case generation.KindValidation, generation.KindCredentialRequired:
		status = http.StatusBadRequest
	case generation.KindBusy:
		status = http.StatusConflict
	case generation.KindCredentialExpired:
		status = http.StatusUnauthorized
	case generation.KindBlocked:
		status = http.StatusUnprocessableEntity
	case generation.KindStorage:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: string(kind), Message: msg, Code: "storage_error"})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: string(kind), Message: msg, Code: string(kind)})
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := models.ErrorResponse{Error: msg, Code: string(generation.KindValidation)}
	if err != nil {
		resp.Message = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
