// Package roles loads the system reviewer personas.
package roles

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleveque/review-jury/internal/model"
)

//go:embed default_roles.yaml
var defaultRoles []byte

// ErrMalformed is returned when the persona source parses but is unusable.
var ErrMalformed = errors.New("malformed persona file")

// LoadAll reads the persona list from path, or the embedded defaults when path
// is empty. Any error means the process should not start.
func LoadAll(path string) ([]model.Persona, error) {
	data := defaultRoles
	if strings.TrimSpace(path) != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading personas %s: %w", path, err)
		}
	}

	personas, err := Parse(data)
	if err != nil {
		if path == "" {
			path = "embedded defaults"
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return personas, nil
}

// Parse decodes a YAML sequence of personas and validates it.
func Parse(data []byte) ([]model.Persona, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}

	var personas []model.Persona
	if err := yaml.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("decoding personas: %w", err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("%w: no personas defined", ErrMalformed)
	}

	seen := make(map[string]struct{}, len(personas))
	for i := range personas {
		p := &personas[i]
		p.Name = strings.TrimSpace(p.Name)
		p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
		p.Description = strings.TrimSpace(p.Description)

		if p.Name == "" {
			return nil, fmt.Errorf("%w: persona %d has no name", ErrMalformed, i+1)
		}
		if p.SystemPrompt == "" {
			return nil, fmt.Errorf("%w: persona %q has no system_prompt", ErrMalformed, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate persona %q", ErrMalformed, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	return personas, nil
}

// DefaultSelection returns the names of the first n personas, which the form
// pre-selects.
func DefaultSelection(personas []model.Persona, n int) []string {
	if n > len(personas) {
		n = len(personas)
	}
	return model.Names(personas[:n])
}
