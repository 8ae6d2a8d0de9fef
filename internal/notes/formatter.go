// Package notes derives a templated study-notes document from a transcript
// using deterministic text heuristics. There is no learned summarization:
// key points are the first qualifying sentences and key terms are filtered
// unique words.
package notes

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// ErrEmptyTranscript is returned when generation is requested with no
// transcript text.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Term is a glossary entry.
type Term struct {
	Abbreviation string `json:"abbreviation"`
	Definition   string `json:"definition"`
}

// Document is a generated study-notes document. It is recomputed in full on
// every generation; there is no merging or diffing.
type Document struct {
	KeyPoints   []string  `json:"key_points"`
	KeyTerms    []string  `json:"key_terms"`
	Glossary    []Term    `json:"glossary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Options controls the text heuristics.
type Options struct {
	MaxKeyPoints      int // sentences kept as key points
	MinSentenceLength int // sentence fragments shorter than this are discarded
	MaxKeyTerms       int // unique long words kept as key terms
	MinTermLength     int // words of this length or shorter are not terms
}

// DefaultOptions returns the standard heuristics.
func DefaultOptions() Options {
	return Options{
		MaxKeyPoints:      8,
		MinSentenceLength: 10,
		MaxKeyTerms:       6,
		MinTermLength:     4,
	}
}

// stopWords are excluded from key-term extraction.
var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "their": true,
	"there": true, "these": true, "thing": true, "things": true,
	"think": true, "those": true, "where": true, "which": true,
	"while": true, "would": true, "could": true, "should": true,
	"because": true, "being": true, "before": true, "between": true,
	"other": true, "really": true, "going": true, "right": true,
}

// staticGlossary is a fixed abbreviation list emitted with every document.
// TODO: replace with extraction from the transcript once the engine exposes
// word-level confidence.
var staticGlossary = []Term{
	{Abbreviation: "e.g.", Definition: "for example"},
	{Abbreviation: "i.e.", Definition: "that is"},
	{Abbreviation: "etc.", Definition: "and so on"},
	{Abbreviation: "vs.", Definition: "versus"},
}

// Formatter generates study-notes documents from transcript text.
type Formatter struct {
	opts   Options
	logger *logger.Logger
}

// NewFormatter creates a notes formatter.
func NewFormatter(opts Options, logger *logger.Logger) *Formatter {
	if opts.MaxKeyPoints == 0 {
		opts = DefaultOptions()
	}
	return &Formatter{
		opts:   opts,
		logger: logger.Named("notes"),
	}
}

// Generate derives a study-notes document from the transcript. An empty or
// whitespace-only transcript is rejected.
func (f *Formatter) Generate(transcript string, now time.Time) (*Document, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	doc := &Document{
		KeyPoints:   f.keyPoints(transcript),
		KeyTerms:    f.keyTerms(transcript),
		Glossary:    append([]Term(nil), staticGlossary...),
		GeneratedAt: now,
	}

	f.logger.Debug("Generated study notes",
		logger.Int("key_points", len(doc.KeyPoints)),
		logger.Int("key_terms", len(doc.KeyTerms)))

	return doc, nil
}

// keyPoints returns the first qualifying sentences of the transcript in
// original order.
func (f *Formatter) keyPoints(transcript string) []string {
	sentences := splitSentences(transcript)

	points := make([]string, 0, f.opts.MaxKeyPoints)
	for _, sentence := range sentences {
		if len(sentence) < f.opts.MinSentenceLength {
			continue
		}
		points = append(points, sentence)
		if len(points) == f.opts.MaxKeyPoints {
			break
		}
	}
	return points
}

// keyTerms returns unique long words, in first-occurrence order, with stop
// words removed.
func (f *Formatter) keyTerms(transcript string) []string {
	seen := make(map[string]bool)
	terms := make([]string, 0, f.opts.MaxKeyTerms)

	for _, token := range strings.Fields(transcript) {
		word := strings.ToLower(strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len(word) <= f.opts.MinTermLength {
			continue
		}
		if stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
		if len(terms) == f.opts.MaxKeyTerms {
			break
		}
	}
	return terms
}

// splitSentences splits text on sentence-terminating punctuation and trims
// the fragments.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
