// Package session holds the ad-hoc personas a user creates while using the
// form. A Session is a plain value: handlers decode it from the request, derive
// a new one and send it back. Nothing is kept on the server.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fleveque/review-jury/internal/model"
)

var (
	ErrPersonaNameRequired   = errors.New("persona name must not be empty")
	ErrPersonaPromptRequired = errors.New("persona prompt must not be empty")
)

const defaultDescription = "Ad-hoc persona"

// Session is the client-held state of one form session.
type Session struct {
	Personas []model.Persona `json:"personas"`
}

// AddPersona returns a copy of s with the persona appended. s is never
// modified, so a rejected persona leaves the caller's session as it was.
func (s Session) AddPersona(name, description, prompt string) (Session, error) {
	name = strings.TrimSpace(name)
	prompt = strings.TrimSpace(prompt)
	description = strings.TrimSpace(description)

	if name == "" {
		return s, ErrPersonaNameRequired
	}
	if prompt == "" {
		return s, ErrPersonaPromptRequired
	}
	if description == "" {
		description = defaultDescription
	}

	personas := make([]model.Persona, len(s.Personas), len(s.Personas)+1)
	copy(personas, s.Personas)
	personas = append(personas, model.Persona{
		Name:         name,
		Description:  description,
		SystemPrompt: prompt,
	})
	return Session{Personas: personas}, nil
}

// Choices lists the selectable persona names: system personas first, then the
// session's own in the order they were added.
func (s Session) Choices(system []model.Persona) []string {
	names := model.Names(system)
	return append(names, model.Names(s.Personas)...)
}

// Merge builds the name lookup used to resolve a selection. Later entries win,
// so an ad-hoc persona shadows a system persona with the same name.
func Merge(system, adHoc []model.Persona) map[string]model.Persona {
	m := make(map[string]model.Persona, len(system)+len(adHoc))
	for _, p := range system {
		m[p.Name] = p
	}
	for _, p := range adHoc {
		m[p.Name] = p
	}
	return m
}

// Encode serializes the session for a hidden form field.
func (s Session) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a value produced by Encode. An empty string is an empty session.
func Decode(encoded string) (Session, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Session{}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return s, nil
}
