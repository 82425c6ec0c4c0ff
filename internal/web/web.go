// Package web holds the HTML page served at "/" and the markdown renderer
// used for review output.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

// IndexTemplate is the template name handlers pass to c.HTML.
const IndexTemplate = "index.html"

// Templates parses the embedded page templates for gin's SetHTMLTemplate.
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}

// Option is one entry of a select element.
type Option struct {
	Value    string
	Selected bool
}

// Page is everything the index template renders. Form values are echoed back
// so that a submit keeps what the user typed, except the API key, which is
// never written into the page.
type Page struct {
	Personas     []Option
	TextModels   []Option
	VisionModels []Option

	// Session is the encoded ad-hoc persona list carried in a hidden field.
	Session string

	Text string

	AdhocName        string
	AdhocDescription string
	AdhocPrompt      string
	Status           string

	Output template.HTML
}

// Options marks every value found in selected.
func Options(values []string, selected ...string) []Option {
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[s] = struct{}{}
	}

	opts := make([]Option, 0, len(values))
	for _, v := range values {
		_, ok := set[v]
		opts = append(opts, Option{Value: v, Selected: ok})
	}
	return opts
}

// Markdown converts model output to HTML. Raw HTML in the source is dropped
// because the text comes from a remote model.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render returns HTML safe to place in the page as-is.
func (m *Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
