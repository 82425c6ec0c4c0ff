package service

import (
	"strings"
)

// InputPart is one element of a structured input: a text part, an image part,
// or both. Image holds a path the ImageLoader can read.
type InputPart struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// ParseInput normalizes raw form input into mutually exclusive text and image
// values. raw may be a plain string, an InputPart, a list of parts, or the same
// shapes decoded from JSON (map[string]any / []any).
func ParseInput(raw any) (text string, imagePath string, err error) {
	for _, part := range inputParts(raw) {
		if t := strings.TrimSpace(part.Text); t != "" {
			text = t
		}
		if part.Image != "" {
			imagePath = part.Image
		}
	}

	if text != "" && imagePath != "" {
		return "", "", ErrInputConflict
	}
	if text == "" && imagePath == "" {
		return "", "", ErrInputMissing
	}
	return text, imagePath, nil
}

// ImagePaths lists every image path named in raw, valid or not, so callers
// can clean up uploads after a rejected request.
func ImagePaths(raw any) []string {
	var paths []string
	for _, part := range inputParts(raw) {
		if part.Image != "" {
			paths = append(paths, part.Image)
		}
	}
	return paths
}

func inputParts(raw any) []InputPart {
	switch v := raw.(type) {
	case string:
		return []InputPart{{Text: v}}
	case InputPart:
		return []InputPart{v}
	case *InputPart:
		if v == nil {
			return nil
		}
		return []InputPart{*v}
	case []InputPart:
		return v
	case map[string]any:
		return []InputPart{partFromMap(v)}
	case map[string]string:
		return []InputPart{{Text: v["text"], Image: v["image"]}}
	case []any:
		var parts []InputPart
		for _, item := range v {
			// Only structured items count inside a list.
			if _, isText := item.(string); isText {
				continue
			}
			parts = append(parts, inputParts(item)...)
		}
		return parts
	default:
		return nil
	}
}

// partFromMap reads the text and image fields, ignoring values that aren't
// strings.
func partFromMap(m map[string]any) InputPart {
	var part InputPart
	if t, ok := m["text"].(string); ok {
		part.Text = t
	}
	if img, ok := m["image"].(string); ok {
		part.Image = img
	}
	return part
}
