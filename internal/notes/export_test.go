package notes

import (
	"strings"
	"testing"
	"time"
)

func testDocument() *Document {
	return &Document{
		KeyPoints: []string{
			"Mitochondria produce cellular energy.",
			"Photosynthesis converts light into sugar.",
			"Enzymes lower activation energy.",
		},
		KeyTerms:    []string{"mitochondria", "photosynthesis", "enzymes"},
		Glossary:    append([]Term(nil), staticGlossary...),
		GeneratedAt: time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
	}
}

// numberedLines extracts the "1. ..." key point lines from a rendering.
func numberedLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 2 && trimmed[0] >= '1' && trimmed[0] <= '9' && trimmed[1] == '.' {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func TestRenderParity(t *testing.T) {
	doc := testDocument()

	text := RenderText(doc)
	markdown := RenderMarkdown(doc)

	// Both renderings carry the same key points in the same order
	textPoints := numberedLines(text)
	mdPoints := numberedLines(markdown)
	if len(textPoints) != len(doc.KeyPoints) {
		t.Fatalf("text rendering has %d key points, want %d", len(textPoints), len(doc.KeyPoints))
	}
	if len(mdPoints) != len(textPoints) {
		t.Fatalf("markdown has %d key points, text has %d", len(mdPoints), len(textPoints))
	}
	for i := range textPoints {
		if textPoints[i] != mdPoints[i] {
			t.Errorf("key point %d differs: text %q vs markdown %q", i, textPoints[i], mdPoints[i])
		}
	}

	// Same content in both: terms, glossary entries, timestamp
	for _, rendering := range []struct {
		name string
		body string
	}{{"text", text}, {"markdown", markdown}} {
		for _, term := range doc.KeyTerms {
			if !strings.Contains(rendering.body, term) {
				t.Errorf("%s rendering missing key term %q", rendering.name, term)
			}
		}
		for _, entry := range doc.Glossary {
			if !strings.Contains(rendering.body, entry.Abbreviation) || !strings.Contains(rendering.body, entry.Definition) {
				t.Errorf("%s rendering missing glossary entry %v", rendering.name, entry)
			}
		}
		if !strings.Contains(rendering.body, doc.GeneratedAt.Format(time.RFC1123)) {
			t.Errorf("%s rendering missing generation timestamp", rendering.name)
		}
	}
}

func TestRenderTextHeadings(t *testing.T) {
	text := RenderText(testDocument())

	for _, heading := range []string{"STUDY NOTES", "Key Points:", "Glossary:", "Key Terms:", "Generated:"} {
		if !strings.Contains(text, heading) {
			t.Errorf("text rendering missing heading %q", heading)
		}
	}
	if strings.Contains(text, "#") || strings.Contains(text, "**") {
		t.Error("text rendering must not contain Markdown syntax")
	}
}

func TestRenderMarkdownHeadings(t *testing.T) {
	markdown := RenderMarkdown(testDocument())

	for _, heading := range []string{"# Study Notes", "## Key Points", "## Glossary", "## Key Terms"} {
		if !strings.Contains(markdown, heading) {
			t.Errorf("markdown rendering missing heading %q", heading)
		}
	}
	if !strings.Contains(markdown, "- **e.g.**") {
		t.Error("glossary entries should be bold bullet items")
	}
}

func TestExportFilenames(t *testing.T) {
	date := time.Date(2026, 8, 25, 23, 59, 0, 0, time.UTC)

	if got := TranscriptFilename(date); got != "transcription-2026-08-25.txt" {
		t.Errorf("TranscriptFilename = %q", got)
	}
	if got := NotesFilename(date); got != "study-notes-2026-08-25.md" {
		t.Errorf("NotesFilename = %q", got)
	}
}
