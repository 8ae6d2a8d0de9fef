package transcription

import (
	"strings"
)

// TruncationMarker is appended to a cleaned transcript when the word cap
// is exceeded.
const TruncationMarker = "[transcript truncated]"

// CleanTranscript post-processes a normalized batch transcript. Chunked
// engines re-emit words at chunk boundaries because adjacent chunks
// overlap by the stride length; a word is dropped when the immediately
// following word is identical (case-insensitive). The heuristic only
// applies to single-word adjacent repeats, so "very very" loses a word
// while "w x w" is left alone. The cleaned word list is capped at maxWords
// with TruncationMarker appended when the cap is exceeded.
func CleanTranscript(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	cleaned := make([]string, 0, len(words))
	for i, word := range words {
		if i+1 < len(words) && strings.EqualFold(word, words[i+1]) {
			continue
		}
		cleaned = append(cleaned, word)
	}

	truncated := false
	if maxWords > 0 && len(cleaned) > maxWords {
		cleaned = cleaned[:maxWords]
		truncated = true
	}

	result := strings.Join(cleaned, " ")
	if truncated {
		result += " " + TruncationMarker
	}
	return result
}
