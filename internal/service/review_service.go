// Package service contains the review pipeline: input validation, persona
// resolution and one model call per selected persona.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/llm"
	"github.com/fleveque/review-jury/internal/model"
	"github.com/fleveque/review-jury/internal/session"
)

// ImageLoader reads the bytes behind an image path from the input.
type ImageLoader interface {
	Read(path string) ([]byte, error)
}

// Request is one review submission.
type Request struct {
	Input       any
	APIKey      string
	TextModel   string
	VisionModel string
	Personas    []string
	Session     session.Session
}

// ReviewService runs reviews against the configured LLM backend. It holds no
// per-user state: ad-hoc personas arrive with each Request.
type ReviewService struct {
	personas         []model.Persona
	factory          llm.Factory
	images           ImageLoader
	processor        *ImageProcessor
	imageInstruction string
	logger           *zap.Logger
}

// NewReviewService wires the system personas and the model backend together.
func NewReviewService(
	personas []model.Persona,
	factory llm.Factory,
	images ImageLoader,
	processor *ImageProcessor,
	imageInstruction string,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		personas:         personas,
		factory:          factory,
		images:           images,
		processor:        processor,
		imageInstruction: imageInstruction,
		logger:           logger,
	}
}

// Personas returns the system personas.
func (s *ReviewService) Personas() []model.Persona {
	out := make([]model.Persona, len(s.personas))
	copy(out, s.personas)
	return out
}

// Review validates the request and asks every selected persona for a review,
// in selection order. Only validation errors are returned; a failed model call
// is recorded in that persona's section and the remaining personas still run.
func (s *ReviewService) Review(ctx context.Context, req Request) (*model.ReviewResult, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if len(req.Personas) == 0 {
		return nil, ErrNoPersonaSelected
	}

	text, imagePath, err := ParseInput(req.Input)
	if err != nil {
		return nil, err
	}

	client, err := s.factory(req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	selected := s.resolve(req.Personas, req.Session)

	var image *PreparedImage
	var imageErr error
	if imagePath != "" {
		image, imageErr = s.loadImage(imagePath)
	}

	result := &model.ReviewResult{Sections: make([]model.ReviewSection, 0, len(selected))}
	for _, persona := range selected {
		section := model.ReviewSection{Persona: persona.Name}

		switch {
		case imagePath != "" && imageErr != nil:
			section.Err = imageErr
		case imagePath != "":
			section.Review, section.Err = s.call(client, persona, req.VisionModel, func() (string, error) {
				return client.ReviewImage(ctx, llm.ImageRequest{
					Model:     req.VisionModel,
					Prompt:    persona.SystemPrompt + s.imageInstruction,
					Image:     image.Data,
					MediaType: image.MediaType,
				})
			})
		default:
			section.Review, section.Err = s.call(client, persona, req.TextModel, func() (string, error) {
				return client.ReviewText(ctx, llm.TextRequest{
					Model:        req.TextModel,
					SystemPrompt: persona.SystemPrompt,
					Content:      text,
				})
			})
		}

		result.Sections = append(result.Sections, section)
	}

	return result, nil
}

// UnifiedReview runs Review and renders either the joined sections or the
// message for the validation error, so callers always get displayable text.
func (s *ReviewService) UnifiedReview(ctx context.Context, req Request) string {
	result, err := s.Review(ctx, req)
	if err != nil {
		return UserMessage(err)
	}
	return result.Markdown()
}

// resolve maps selected names to personas. Names that match nothing are
// skipped, matching what the selector could never have offered.
func (s *ReviewService) resolve(names []string, sess session.Session) []model.Persona {
	lookup := session.Merge(s.personas, sess.Personas)

	selected := make([]model.Persona, 0, len(names))
	for _, name := range names {
		p, ok := lookup[name]
		if !ok {
			s.logger.Warn("unknown persona selected", zap.String("persona", name))
			continue
		}
		selected = append(selected, p)
	}
	return selected
}

func (s *ReviewService) loadImage(path string) (*PreparedImage, error) {
	data, err := s.images.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return s.processor.Prepare(data)
}

// call runs one model request and logs its outcome.
func (s *ReviewService) call(client llm.Client, persona model.Persona, modelName string, fn func() (string, error)) (string, error) {
	start := time.Now()
	review, err := fn()

	fields := []zap.Field{
		zap.String("provider", client.ProviderName()),
		zap.String("model", modelName),
		zap.String("persona", persona.Name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		fields = append(fields, zap.Bool("api_error", llm.IsAPIError(err)), zap.Error(err))
		s.logger.Warn("persona review failed", fields...)
		return "", err
	}
	s.logger.Info("persona review complete", fields...)
	return review, nil
}
