package categorization

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractError reports why a model response did not contain the structured payload.
type ExtractError struct {
	Reason  string
	Snippet string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("unusable model response: %s (%q)", e.Reason, e.Snippet)
}

const snippetLen = 80

func newExtractError(reason, text string) *ExtractError {
	snippet := strings.TrimSpace(text)
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen] + "..."
	}
	return &ExtractError{Reason: reason, Snippet: snippet}
}

// ExtractStructured pulls the JSON array out of free-form model text. Markdown
// fences and prose around the array are dropped; an object wrapping the array,
// as produced by strict schema modes, also works since only the outermost
// brackets are kept.
func ExtractStructured(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, newExtractError("empty response", text)
	}

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end <= start {
		return nil, newExtractError("no JSON array found", text)
	}

	payload := []byte(s[start : end+1])
	if !json.Valid(payload) {
		return nil, newExtractError("malformed JSON array", text)
	}
	return payload, nil
}
