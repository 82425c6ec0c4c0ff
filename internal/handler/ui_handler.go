package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/config"
	"github.com/fleveque/review-jury/internal/middleware"
	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/session"
	"github.com/fleveque/review-jury/internal/web"
)

// UIHandler serves the single-page form. All per-user state travels in the
// form itself: the ad-hoc personas come back in the hidden session field on
// every submit, so nothing is kept on the server between requests.
type UIHandler struct {
	reviews  *service.ReviewService
	uploads  Uploads
	models   config.LLMConfig
	defaults []string
	markdown *web.Markdown
	logger   *zap.Logger
}

func NewUIHandler(
	reviews *service.ReviewService,
	uploads Uploads,
	models config.LLMConfig,
	defaults []string,
	markdown *web.Markdown,
	logger *zap.Logger,
) *UIHandler {
	return &UIHandler{
		reviews:  reviews,
		uploads:  uploads,
		models:   models,
		defaults: defaults,
		markdown: markdown,
		logger:   logger,
	}
}

// uiForm is the state posted back by the page.
type uiForm struct {
	session     session.Session
	selected    []string
	text        string
	textModel   string
	visionModel string

	adhocName        string
	adhocDescription string
	adhocPrompt      string
}

// Index renders the empty form with the default personas selected.
// Route: GET /
func (h *UIHandler) Index(c *gin.Context) {
	f := uiForm{
		selected:    h.defaults,
		textModel:   h.models.DefaultTextModel(),
		visionModel: h.models.DefaultVisionModel(),
	}
	h.render(c, http.StatusOK, f, func(*web.Page) {})
}

// AddPersona adds an ad-hoc persona to the posted session and re-renders the
// form with the extended selector.
// Route: POST /personas
func (h *UIHandler) AddPersona(c *gin.Context) {
	f, err := h.readForm(c)
	if err != nil {
		h.badSession(c, f, err)
		return
	}

	updated, err := f.session.AddPersona(f.adhocName, f.adhocDescription, f.adhocPrompt)
	if err != nil {
		h.render(c, http.StatusOK, f, func(p *web.Page) {
			p.Status = addPersonaFailure(err)
		})
		return
	}

	name := updated.Personas[len(updated.Personas)-1].Name
	f.session = updated
	f.adhocName, f.adhocDescription, f.adhocPrompt = "", "", ""

	h.logger.Info("ad-hoc persona added", zap.String("persona", name))
	h.render(c, http.StatusOK, f, func(p *web.Page) {
		p.Status = fmt.Sprintf("✅ Persona '%s' added!", name)
	})
}

// Review runs the selected personas over the posted text or image and renders
// the combined markdown below the form.
// Route: POST /review
func (h *UIHandler) Review(c *gin.Context) {
	f, err := h.readForm(c)
	if err != nil {
		h.badSession(c, f, err)
		return
	}

	output := h.review(c, f)

	html, err := h.markdown.Render(output)
	if err != nil {
		h.logger.Error("failed to render review", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render review")
		return
	}

	h.render(c, http.StatusOK, f, func(p *web.Page) {
		p.Output = html
	})
}

func (h *UIHandler) review(c *gin.Context, f uiForm) string {
	textModel, err := h.models.ResolveTextModel(f.textModel)
	if err != nil {
		return service.UserMessage(err)
	}
	visionModel, err := h.models.ResolveVisionModel(f.visionModel)
	if err != nil {
		return service.UserMessage(err)
	}

	imagePath, err := h.uploads.save(c, "image")
	if err != nil {
		return service.UserMessage(err)
	}
	defer h.uploads.discard(imagePath, h.logger)

	return h.reviews.UnifiedReview(c.Request.Context(), service.Request{
		Input:       service.InputPart{Text: f.text, Image: imagePath},
		APIKey:      middleware.APIKey(c),
		TextModel:   textModel,
		VisionModel: visionModel,
		Personas:    f.selected,
		Session:     f.session,
	})
}

func (h *UIHandler) readForm(c *gin.Context) (uiForm, error) {
	f := uiForm{
		selected:         c.PostFormArray("personas"),
		text:             c.PostForm("text"),
		textModel:        c.PostForm("text_model"),
		visionModel:      c.PostForm("vision_model"),
		adhocName:        c.PostForm("adhoc_name"),
		adhocDescription: c.PostForm("adhoc_description"),
		adhocPrompt:      c.PostForm("adhoc_prompt"),
	}

	sess, err := session.Decode(c.PostForm("session"))
	if err != nil {
		return f, err
	}
	f.session = sess
	return f, nil
}

func (h *UIHandler) badSession(c *gin.Context, f uiForm, err error) {
	h.logger.Warn("invalid session field", zap.Error(err))
	h.render(c, http.StatusBadRequest, f, func(p *web.Page) {
		p.Status = "❌ Your session could not be read; ad-hoc personas were reset"
	})
}

func (h *UIHandler) render(c *gin.Context, status int, f uiForm, fill func(*web.Page)) {
	encoded, err := f.session.Encode()
	if err != nil {
		h.logger.Error("failed to encode session", zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to encode session")
		return
	}

	page := web.Page{
		Personas:         web.Options(f.session.Choices(h.reviews.Personas()), f.selected...),
		TextModels:       web.Options(h.models.TextModels, f.textModel),
		VisionModels:     web.Options(h.models.VisionModels, f.visionModel),
		Session:          encoded,
		Text:             f.text,
		AdhocName:        f.adhocName,
		AdhocDescription: f.adhocDescription,
		AdhocPrompt:      f.adhocPrompt,
	}
	fill(&page)

	c.HTML(status, web.IndexTemplate, page)
}

func addPersonaFailure(err error) string {
	if errors.Is(err, session.ErrPersonaNameRequired) || errors.Is(err, session.ErrPersonaPromptRequired) {
		return "⚠️ Name and prompt must not be empty"
	}
	return "❌ " + err.Error()
}
