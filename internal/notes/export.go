package notes

import (
	"fmt"
	"strings"
	"time"
)

// The plain-text and Markdown exports are built from the same document
// fields with the same sections in the same order: key points, then
// glossary and key terms, then the generation timestamp footer.

// TranscriptFilename returns the download filename for a raw transcript.
func TranscriptFilename(t time.Time) string {
	return fmt.Sprintf("transcription-%s.txt", t.Format("2006-01-02"))
}

// NotesFilename returns the download filename for a notes document.
func NotesFilename(t time.Time) string {
	return fmt.Sprintf("study-notes-%s.md", t.Format("2006-01-02"))
}

// RenderText renders the document as plain text, suitable for clipboard
// copy.
func RenderText(doc *Document) string {
	var b strings.Builder

	b.WriteString("STUDY NOTES\n\n")

	b.WriteString("Key Points:\n")
	for i, point := range doc.KeyPoints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, point)
	}

	b.WriteString("\nGlossary:\n")
	for _, term := range doc.Glossary {
		fmt.Fprintf(&b, "%s - %s\n", term.Abbreviation, term.Definition)
	}

	b.WriteString("\nKey Terms:\n")
	b.WriteString(strings.Join(doc.KeyTerms, ", "))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nGenerated: %s\n", doc.GeneratedAt.Format(time.RFC1123))

	return b.String()
}

// RenderMarkdown renders the document as a Markdown file.
func RenderMarkdown(doc *Document) string {
	var b strings.Builder

	b.WriteString("# Study Notes\n\n")

	b.WriteString("## Key Points\n\n")
	for i, point := range doc.KeyPoints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, point)
	}

	b.WriteString("\n## Glossary\n\n")
	for _, term := range doc.Glossary {
		fmt.Fprintf(&b, "- **%s** - %s\n", term.Abbreviation, term.Definition)
	}

	b.WriteString("\n## Key Terms\n\n")
	b.WriteString(strings.Join(doc.KeyTerms, ", "))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\n---\n*Generated: %s*\n", doc.GeneratedAt.Format(time.RFC1123))

	return b.String()
}
