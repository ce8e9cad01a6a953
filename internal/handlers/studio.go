package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"
	"ai-artist-backend/internal/models"
	"ai-artist-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// runner is the part of every controller the handlers drive uniformly.
type runner interface {
	Start(ctx context.Context) (string, error)
	Events() *generation.Broadcaster
	DismissError()
	Capability() string
}

// capability adapts one controller to the shared routes.
type capability struct {
	runner      runner
	snapshot    func() any
	setForm     func(c *gin.Context) error
	addInputs   func(role generation.Role, srcs []media.Source) ([]generation.Input, error)
	removeInput func(role generation.Role, id string) bool
	clearInputs func(role generation.Role)
}

type StudioHandler struct {
	studio       *services.Studio
	capabilities map[string]*capability
	// jobCtx outlives requests so a run continues after the client navigates
	// away; it is cancelled on shutdown.
	jobCtx    context.Context
	log       *logger.Logger
	keepAlive time.Duration
}

func NewStudioHandler(jobCtx context.Context, studio *services.Studio, log *logger.Logger) *StudioHandler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &StudioHandler{
		studio:    studio,
		jobCtx:    jobCtx,
		log:       log,
		keepAlive: 15 * time.Second,
	}
	h.capabilities = map[string]*capability{
		"image": {
			runner:   studio.Image,
			snapshot: func() any { return studio.Image.Snapshot() },
			setForm: func(c *gin.Context) error {
				var req models.ImageFormRequest
				if err := c.ShouldBindJSON(&req); err != nil {
					return err
				}
				return studio.Image.SetForm(req.Form())
			},
			addInputs: func(role generation.Role, srcs []media.Source) ([]generation.Input, error) {
				return studio.Image.AddInputs(role, srcs...)
			},
			removeInput: studio.Image.RemoveInput,
			clearInputs: studio.Image.ClearInputs,
		},
		"video": {
			runner:   studio.Video,
			snapshot: func() any { return studio.Video.Snapshot() },
			setForm: func(c *gin.Context) error {
				var req models.VideoFormRequest
				if err := c.ShouldBindJSON(&req); err != nil {
					return err
				}
				return studio.Video.SetForm(generation.VideoForm{Prompt: req.Prompt, AspectRatio: req.AspectRatio, Resolution: req.Resolution})
			},
			addInputs: func(role generation.Role, srcs []media.Source) ([]generation.Input, error) {
				return studio.Video.AddInputs(role, srcs...)
			},
			removeInput: studio.Video.RemoveInput,
			clearInputs: studio.Video.ClearInputs,
		},
		"decomposition": {
			runner:   studio.Decomposition,
			snapshot: func() any { return studio.Decomposition.Snapshot() },
			addInputs: func(role generation.Role, srcs []media.Source) ([]generation.Input, error) {
				if role != generation.RoleInput {
					return nil, unsupportedRole(role)
				}
				if len(srcs) != 1 {
					return nil, &generation.Error{Kind: generation.KindValidation, Message: "decomposition takes a single input image"}
				}
				in, err := studio.Decomposition.SetInput(srcs[0])
				if err != nil {
					return nil, err
				}
				return []generation.Input{in}, nil
			},
			removeInput: func(role generation.Role, _ string) bool {
				if role != generation.RoleInput || studio.Decomposition.Snapshot().Input == nil {
					return false
				}
				studio.Decomposition.ClearInput()
				return true
			},
			clearInputs: func(generation.Role) { studio.Decomposition.ClearInput() },
		},
		"composition": {
			runner:   studio.Composition,
			snapshot: func() any { return studio.Composition.Snapshot() },
			setForm: func(c *gin.Context) error {
				var req models.CompositionFormRequest
				if err := c.ShouldBindJSON(&req); err != nil {
					return err
				}
				studio.Composition.SetDirective(req.Directive)
				return nil
			},
			addInputs: func(role generation.Role, srcs []media.Source) ([]generation.Input, error) {
				if role != generation.RoleInput {
					return nil, unsupportedRole(role)
				}
				return studio.Composition.AddInputs(srcs...)
			},
			removeInput: func(role generation.Role, id string) bool {
				return role == generation.RoleInput && studio.Composition.RemoveInput(id)
			},
			clearInputs: func(generation.Role) { studio.Composition.ClearInputs() },
		},
	}
	return h
}

func unsupportedRole(role generation.Role) error {
	return &generation.Error{Kind: generation.KindValidation, Message: fmt.Sprintf("unsupported input role %q", role)}
}

// Register mounts the per-capability routes on api.
func (h *StudioHandler) Register(api *gin.RouterGroup) {
	for _, name := range services.Capabilities {
		g := api.Group("/" + name)
		cp := h.capabilities[name]
		g.GET("", h.withCapability(cp, h.GetState))
		g.PUT("/form", h.withCapability(cp, h.UpdateForm))
		g.POST("/inputs/:role", h.withCapability(cp, h.AddInputs))
		g.DELETE("/inputs/:role", h.withCapability(cp, h.RemoveInputs))
		g.POST("/generate", h.withCapability(cp, h.Generate))
		g.GET("/events", h.withCapability(cp, h.Events))
		g.DELETE("/error", h.withCapability(cp, h.DismissError))
		g.POST("/results/:index/save", h.withCapability(cp, h.SaveResult))
	}

	api.POST("/video/credential", h.SelectVideoCredential)
	api.POST("/image/revert-prompt", h.RevertPrompt)
	api.POST("/decomposition/results/:index/use", h.UseElement)
}

func (h *StudioHandler) withCapability(cp *capability, fn func(c *gin.Context, cp *capability)) gin.HandlerFunc {
	return func(c *gin.Context) { fn(c, cp) }
}

// GetState godoc
// @Summary     Get capability state
// @Description Returns form, inputs, busy flag, progress, error slot and results
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Success     200 {object} object
// @Router      /{capability} [get]
func (h *StudioHandler) GetState(c *gin.Context, cp *capability) {
	c.JSON(http.StatusOK, cp.snapshot())
}

// UpdateForm godoc
// @Summary     Update the request form
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       capability path string true "image | video | composition"
// @Success     200 {object} object
// @Failure     400 {object} models.ErrorResponse
// @Router      /{capability}/form [put]
func (h *StudioHandler) UpdateForm(c *gin.Context, cp *capability) {
	if cp.setForm == nil {
		badRequest(c, fmt.Sprintf("%s has no editable form", cp.runner.Capability()), nil)
		return
	}
	if err := cp.setForm(c); err != nil {
		var ge *generation.Error
		if errors.As(err, &ge) {
			respondError(c, err)
		} else {
			badRequest(c, "invalid request body", err)
		}
		return
	}
	c.JSON(http.StatusOK, cp.snapshot())
}

// AddInputs godoc
// @Summary     Upload input images
// @Description Adds images to a role. Files are read now and encoded when generation starts.
// @Tags        studio
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Param       role path string true "base | reference | input"
// @Param       files formData file true "Image files"
// @Success     201 {object} models.InputsResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /{capability}/inputs/{role} [post]
func (h *StudioHandler) AddInputs(c *gin.Context, cp *capability) {
	role := generation.Role(c.Param("role"))

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "failed to parse multipart form", err)
		return
	}

	var files []*multipart.FileHeader
	fieldNames := []string{"files", "file", "images", "image"}
	for _, fieldName := range fieldNames {
		if f := form.File[fieldName]; len(f) > 0 {
			files = f
			break
		}
	}
	if len(files) == 0 {
		badRequest(c, "no files uploaded", fmt.Errorf("please provide files with one of these field names: %v", fieldNames))
		return
	}

	srcs := make([]media.Source, 0, len(files))
	for _, fh := range files {
		src, err := media.FromFileHeader(fh)
		if err != nil {
			badRequest(c, "failed to read file", err)
			return
		}
		srcs = append(srcs, src)
	}
	added, err := cp.addInputs(role, srcs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.InputsResponse{Inputs: added})
}

// RemoveInputs godoc
// @Summary     Remove input images
// @Description Removes the input with the given id, or every input of the role when id is omitted
// @Tags        studio
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Param       role path string true "base | reference | input"
// @Param       id query string false "Input ID"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Router      /{capability}/inputs/{role} [delete]
func (h *StudioHandler) RemoveInputs(c *gin.Context, cp *capability) {
	role := generation.Role(c.Param("role"))
	id := c.Query("id")
	if id == "" {
		cp.clearInputs(role)
		c.Status(http.StatusNoContent)
		return
	}
	if !cp.removeInput(role, id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "input not found", Code: "not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Generate godoc
// @Summary     Start a generation
// @Description Validates and starts a run in the background; follow it on the events stream
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Success     202 {object} models.GenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /{capability}/generate [post]
func (h *StudioHandler) Generate(c *gin.Context, cp *capability) {
	runID, err := cp.runner.Start(h.jobCtx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.GenerateResponse{
		Capability: cp.runner.Capability(),
		RunID:      runID,
		Status:     "started",
	})
}

// Events godoc
// @Summary     Progress stream
// @Description Server-sent events carrying progress messages and state changes. The latest event is replayed on connect.
// @Tags        studio
// @Produce     text/event-stream
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Router      /{capability}/events [get]
func (h *StudioHandler) Events(c *gin.Context, cp *capability) {
	subID := uuid.NewString()
	events, err := cp.runner.Events().Subscribe(subID, 32)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "progress stream closed", Message: err.Error()})
		return
	}
	defer cp.runner.Events().Unsubscribe(subID)
	h.log.Debug("progress stream opened", "capability", cp.runner.Capability(), "subscriber", subID)
	defer h.log.Debug("progress stream closed", "capability", cp.runner.Capability(), "subscriber", subID)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if last, ok := cp.runner.Events().Last(); ok {
		c.SSEvent(string(last.Type), last)
		c.Writer.Flush()
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// DismissError godoc
// @Summary     Dismiss the error
// @Tags        studio
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Success     204
// @Router      /{capability}/error [delete]
func (h *StudioHandler) DismissError(c *gin.Context, cp *capability) {
	cp.runner.DismissError()
	c.Status(http.StatusNoContent)
}

// SaveResult godoc
// @Summary     Save a result
// @Description Stores a generated result in the workspace and returns the refreshed list
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       capability path string true "image | video | decomposition | composition"
// @Param       index path int true "Result index"
// @Success     201 {object} models.CreationListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /{capability}/results/{index}/save [post]
func (h *StudioHandler) SaveResult(c *gin.Context, cp *capability) {
	index, ok := resultIndex(c)
	if !ok {
		return
	}
	list, err := h.studio.SaveResult(c.Request.Context(), cp.runner.Capability(), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreationListResponse{Creations: list})
}

// SelectVideoCredential godoc
// @Summary     Select the video API key
// @Description Marks a key as chosen for video generation. An empty key keeps the server key.
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.VideoCredentialRequest false "Key"
// @Success     200 {object} models.CredentialResponse
// @Router      /video/credential [post]
func (h *StudioHandler) SelectVideoCredential(c *gin.Context) {
	var req models.VideoCredentialRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body", err)
			return
		}
	}
	h.studio.Video.SelectCredential(req.APIKey)
	c.JSON(http.StatusOK, models.CredentialResponse{CredentialReady: h.studio.Video.CredentialReady()})
}

// RevertPrompt godoc
// @Summary     Revert the expanded prompt
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.PromptResponse
// @Router      /image/revert-prompt [post]
func (h *StudioHandler) RevertPrompt(c *gin.Context) {
	reverted := h.studio.Image.RevertPrompt()
	c.JSON(http.StatusOK, models.PromptResponse{Prompt: h.studio.Image.Form().Prompt, Reverted: reverted})
}

// UseElement godoc
// @Summary     Edit an extracted object
// @Description Loads a decomposed element into the image base slot
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       index path int true "Element index"
// @Success     200 {object} models.InputResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /decomposition/results/{index}/use [post]
func (h *StudioHandler) UseElement(c *gin.Context) {
	index, ok := resultIndex(c)
	if !ok {
		return
	}
	in, err := h.studio.UseDecomposedElement(index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InputResponse{Input: in})
}

func resultIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "invalid result index", err)
		return 0, false
	}
	return index, true
}
