package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidOutput means a reply could not be decoded; callers fall back to
// their deterministic path.
var ErrInvalidOutput = errors.New("model output is not valid JSON")

// ParseStructured decodes a JSON value from a model reply into out. It accepts
// the bare value, a markdown-fenced block, or the outermost {...} / [...]
// span inside surrounding prose.
func ParseStructured(raw string, out any) error {
	content := strings.TrimSpace(raw)
	if content == "" {
		return ErrInvalidOutput
	}

	candidates := []string{content, stripFences(content)}
	if span := outerSpan(content, '{', '}'); span != "" {
		candidates = append(candidates, span)
	}
	if span := outerSpan(content, '[', ']'); span != "" {
		candidates = append(candidates, span)
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), out); err == nil {
			return nil
		}
	}

	return ErrInvalidOutput
}

// stripFences removes a surrounding ``` block, with or without a language tag.
func stripFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	body := strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body)
}

func outerSpan(content string, open, close byte) string {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
