// Package llm wraps the hosted language-model APIs used to produce persona
// reviews. Every backend answers the same two questions: review this text as
// this persona, and review this image with this prompt.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// TextRequest asks for a review of free text. SystemPrompt carries the persona.
type TextRequest struct {
	Model        string
	SystemPrompt string
	Content      string
}

// ImageRequest asks for a review of an image. Prompt is the persona prompt
// with the image instruction already appended.
type ImageRequest struct {
	Model     string
	Prompt    string
	Image     []byte
	MediaType string // e.g. "image/png"
}

// Client is implemented by every backend. Keep it small: one call per review,
// no streaming, no retries.
type Client interface {
	ReviewText(ctx context.Context, req TextRequest) (string, error)
	ReviewImage(ctx context.Context, req ImageRequest) (string, error)
	ProviderName() string
}

// APIError is a non-success answer from the remote API. Code and Message are
// the vendor's own values, passed through untouched.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string

	// messageOnly leaves Code out of Error(); it stays available to callers.
	messageOnly bool
}

func (e *APIError) Error() string {
	if e.Code != "" && !e.messageOnly {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.StatusCode)
}

// IsAPIError reports whether err carries a vendor error response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
