// Package model defines the core data types shared by the review pipeline.
package model

import "strings"

// Persona is a named system prompt representing one reviewer's voice.
// The yaml tags match the persona file; json tags are used by the API and the
// client-held session.
type Persona struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
}

// Names returns the persona names in order.
func Names(personas []Persona) []string {
	names := make([]string, 0, len(personas))
	for _, p := range personas {
		names = append(names, p.Name)
	}
	return names
}

const (
	sectionSeparator = "\n\n---\n\n"
	failurePrefix    = "❌ Review failed: "
)

// ReviewSection is one persona's review, or the error its remote call produced.
type ReviewSection struct {
	Persona string `json:"persona"`
	Review  string `json:"review,omitempty"`
	Err     error  `json:"-"`
}

// Failed reports whether the remote call for this persona failed.
func (s ReviewSection) Failed() bool {
	return s.Err != nil
}

// Body is the markdown shown under the persona heading.
func (s ReviewSection) Body() string {
	if s.Err != nil {
		return failurePrefix + s.Err.Error()
	}
	return s.Review
}

// Markdown renders the section with its persona heading.
func (s ReviewSection) Markdown() string {
	return "### 👤 " + s.Persona + "\n" + s.Body()
}

// ReviewResult holds the sections of one review, in selection order.
type ReviewResult struct {
	Sections []ReviewSection `json:"sections"`
}

// Markdown joins all sections with a horizontal rule.
func (r *ReviewResult) Markdown() string {
	parts := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		parts = append(parts, s.Markdown())
	}
	return strings.Join(parts, sectionSeparator)
}

// Failures counts the sections whose remote call failed.
func (r *ReviewResult) Failures() int {
	n := 0
	for _, s := range r.Sections {
		if s.Failed() {
			n++
		}
	}
	return n
}
