package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/config"
	"github.com/fleveque/review-jury/internal/middleware"
	"github.com/fleveque/review-jury/internal/model"
	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/session"
)

// APIHandler exposes the review pipeline as JSON under /api/v1. Like the
// page, it is stateless: clients send the encoded session with each call and
// keep the one returned.
type APIHandler struct {
	reviews  *service.ReviewService
	uploads  Uploads
	models   config.LLMConfig
	defaults []string
	logger   *zap.Logger
}

func NewAPIHandler(
	reviews *service.ReviewService,
	uploads Uploads,
	models config.LLMConfig,
	defaults []string,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		reviews:  reviews,
		uploads:  uploads,
		models:   models,
		defaults: defaults,
		logger:   logger,
	}
}

type addPersonaRequest struct {
	Session      string `json:"session"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type reviewRequest struct {
	// Input is text, {"text": ...}, {"image": path} or a list of such parts.
	Input       any      `json:"input"`
	TextModel   string   `json:"text_model"`
	VisionModel string   `json:"vision_model"`
	Personas    []string `json:"personas"`
	Session     string   `json:"session"`
	APIKey      string   `json:"api_key"`
}

type sectionResponse struct {
	Persona string `json:"persona"`
	Review  string `json:"review,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListPersonas returns the system personas, the default selection and the
// offered models.
// Route: GET /api/v1/personas
func (h *APIHandler) ListPersonas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"personas":      h.reviews.Personas(),
		"defaults":      h.defaults,
		"text_models":   h.models.TextModels,
		"vision_models": h.models.VisionModels,
	})
}

// AddPersona adds an ad-hoc persona to the given session and returns the new
// encoded session with the full list of selectable names.
// Route: POST /api/v1/personas
func (h *APIHandler) AddPersona(c *gin.Context) {
	var req addPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	sess, err := session.Decode(req.Session)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session"})
		return
	}

	updated, err := sess.AddPersona(req.Name, req.Description, req.SystemPrompt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"session": req.Session,
		})
		return
	}

	encoded, err := updated.Encode()
	if err != nil {
		h.logger.Error("failed to encode session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	name := updated.Personas[len(updated.Personas)-1].Name
	c.JSON(http.StatusOK, gin.H{
		"status":  "persona '" + name + "' added",
		"session": encoded,
		"choices": updated.Choices(h.reviews.Personas()),
	})
}

// Upload stores an image for a later review call and returns its path.
// Route: POST /api/v1/uploads (multipart field "file")
func (h *APIHandler) Upload(c *gin.Context) {
	path, err := h.uploads.save(c, "file")
	switch {
	case errors.Is(err, service.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, errBadUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("failed to store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	case path == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image": path})
}

// Review runs the selected personas. Validation failures return 4xx before
// any model call; per-persona model failures are reported in their section
// with a 200.
// Route: POST /api/v1/review
func (h *APIHandler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	// Uploads named by the request are spent whether or not the review runs.
	defer func() {
		for _, path := range service.ImagePaths(req.Input) {
			h.uploads.discard(path, h.logger)
		}
	}()

	sess, err := session.Decode(req.Session)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session"})
		return
	}
	textModel, err := h.models.ResolveTextModel(req.TextModel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visionModel, err := h.models.ResolveVisionModel(req.VisionModel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = middleware.APIKey(c)
	}

	result, err := h.reviews.Review(c.Request.Context(), service.Request{
		Input:       req.Input,
		APIKey:      apiKey,
		TextModel:   textModel,
		VisionModel: visionModel,
		Personas:    req.Personas,
		Session:     sess,
	})
	if err != nil {
		c.JSON(reviewErrorStatus(err), gin.H{
			"error":   err.Error(),
			"message": service.UserMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markdown": result.Markdown(),
		"sections": sections(result),
	})
}

func sections(result *model.ReviewResult) []sectionResponse {
	out := make([]sectionResponse, 0, len(result.Sections))
	for _, s := range result.Sections {
		resp := sectionResponse{Persona: s.Persona, Review: s.Review}
		if s.Err != nil {
			resp.Error = s.Err.Error()
		}
		out = append(out, resp)
	}
	return out
}

func reviewErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoPersonaSelected), service.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
