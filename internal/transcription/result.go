package transcription

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The engine's result shape is polymorphic: a bare string, a single object
// with a text field, an array of chunk objects, or an object wrapping a
// chunks array. NormalizeResult resolves the variant once at the boundary
// and flattens it into a single string, concatenating chunk text fragments
// in order.

type resultChunk struct {
	Text      string     `json:"text"`
	Timestamp [2]float64 `json:"timestamp"`
}

type resultObject struct {
	Text   string        `json:"text"`
	Chunks []resultChunk `json:"chunks"`
}

// NormalizeResult flattens a raw engine response into one transcript string.
func NormalizeResult(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("empty engine response")
	}

	switch trimmed[0] {
	case '"':
		// Bare string
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("failed to decode string result: %w", err)
		}
		return strings.TrimSpace(text), nil

	case '[':
		// Array of chunk objects
		var chunks []resultChunk
		if err := json.Unmarshal(raw, &chunks); err != nil {
			return "", fmt.Errorf("failed to decode chunk array result: %w", err)
		}
		return joinChunks(chunks), nil

	case '{':
		// Single object: either a text field, a chunks array, or both.
		// Prefer chunks when present so overlapping metadata in text is not
		// duplicated.
		var obj resultObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("failed to decode object result: %w", err)
		}
		if len(obj.Chunks) > 0 {
			return joinChunks(obj.Chunks), nil
		}
		return strings.TrimSpace(obj.Text), nil

	default:
		return "", fmt.Errorf("unrecognized engine response shape: %.32s", trimmed)
	}
}

func joinChunks(chunks []resultChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
