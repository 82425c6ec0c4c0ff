package service

import (
	"errors"
)

// Input and precondition errors abort a review before any remote call. Remote
// failures are not listed here: they stay inside the persona's section.
var (
	ErrInputConflict     = errors.New("do not submit text and an image at the same time; choose one of them")
	ErrInputMissing      = errors.New("please provide text or upload an image")
	ErrMissingCredential = errors.New("missing API key")
	ErrNoPersonaSelected = errors.New("no reviewer persona selected")
	ErrUnsupportedImage  = errors.New("unsupported image format")
	ErrImageTooLarge     = errors.New("image is too large")
)

// UserMessage turns an error returned by Review into the text shown in place
// of the review output.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "❌ Please enter your API key"
	case errors.Is(err, ErrNoPersonaSelected):
		return "❌ Please select at least one reviewer persona"
	case IsInputError(err):
		return "⚠️ Input error: " + err.Error()
	default:
		return "❌ " + err.Error()
	}
}

// IsInputError reports whether err came from validating the submitted content.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInputConflict) || errors.Is(err, ErrInputMissing)
}
