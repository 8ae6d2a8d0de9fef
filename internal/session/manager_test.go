package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/notes"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/storage/sqlite"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/transcription"
	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// stubSession delivers scripted recognition events.
type stubSession struct {
	events    chan *transcription.LiveEvent
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *stubSession) Receive() (*transcription.LiveEvent, error) {
	select {
	case event := <-s.events:
		return event, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *stubSession) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// stubEngine serves one live session and a fixed batch result.
type stubEngine struct {
	mu      sync.Mutex
	session *stubSession

	batchText string
	batchErr  error
}

func (e *stubEngine) OpenLiveSession(ctx context.Context) (transcription.LiveSession, error) {
	session := &stubSession{
		events: make(chan *transcription.LiveEvent, 16),
		closed: make(chan struct{}),
	}
	e.mu.Lock()
	e.session = session
	e.mu.Unlock()
	return session, nil
}

func (e *stubEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return e.batchText, e.batchErr
}

func (e *stubEngine) live() *stubSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func newTestManager(t *testing.T, engine transcription.Engine) (*Manager, *sqlite.SegmentStorage) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "session.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	segments, err := sqlite.NewSegmentStorage(db)
	if err != nil {
		t.Fatalf("NewSegmentStorage: %v", err)
	}
	notesStore, err := sqlite.NewNotesStorage(db)
	if err != nil {
		t.Fatalf("NewNotesStorage: %v", err)
	}

	probe := func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	}
	formatter := notes.NewFormatter(notes.DefaultOptions(), logger.NewNop())

	manager := NewManager(
		engine,
		transcription.Config{MaxWords: 50000, MaxRestartFailures: 3},
		t.TempDir(),
		40*time.Minute,
		0,
		probe,
		formatter,
		nil, // no WebSocket hub in tests
		segments,
		notesStore,
		0, // no simulated notes delay
		logger.NewNop(),
	)
	return manager, segments
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDictationEndToEnd(t *testing.T) {
	engine := &stubEngine{}
	m, segments := newTestManager(t, engine)

	if err := m.StartDictation(context.Background()); err != nil {
		t.Fatalf("StartDictation: %v", err)
	}
	if !m.DictationActive() {
		t.Fatal("dictation should be active")
	}

	session := engine.live()
	session.events <- &transcription.LiveEvent{
		ResultIndex: 0,
		Results:     []transcription.RecognitionResult{{Text: "hello wor", Final: false}},
		Timestamp:   time.Now(),
	}
	waitFor(t, "interim text", func() bool { return m.Interim() == "hello wor" })

	session.events <- &transcription.LiveEvent{
		ResultIndex: 0,
		Results:     []transcription.RecognitionResult{{Text: "hello world", Final: true}},
		Timestamp:   time.Now().UTC(),
	}
	waitFor(t, "finalized transcript", func() bool { return m.Transcript() != "" })
	waitFor(t, "interim cleared by final", func() bool { return m.Interim() == "" })

	if err := m.StopDictation(); err != nil {
		t.Fatalf("StopDictation: %v", err)
	}
	if m.DictationActive() {
		t.Error("dictation should be inactive after stop")
	}

	// The finalized segment appears exactly once
	if count := strings.Count(m.Transcript(), "hello world"); count != 1 {
		t.Errorf("segment appears %d times in %q", count, m.Transcript())
	}
	if m.Interim() != "" {
		t.Errorf("interim text should be cleared on stop, got %q", m.Interim())
	}

	records, err := segments.GetSegmentsBySource("dictation", 10, 0)
	if err != nil {
		t.Fatalf("GetSegmentsBySource: %v", err)
	}
	if len(records) != 1 || records[0].Content != "hello world" {
		t.Errorf("stored dictation segments = %v", records)
	}
}

func TestBatchEndToEnd(t *testing.T) {
	engine := &stubEngine{batchText: "the the lecture covers enzymes"}
	m, segments := newTestManager(t, engine)

	upload, err := m.UploadAudio("lecture.wav", "audio/wav", 4, strings.NewReader("RIFF"))
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if current := m.CurrentUpload(); current == nil || current.ID != upload.ID {
		t.Fatal("upload should be staged")
	}

	text, err := m.Transcribe(context.Background())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "the lecture covers enzymes" {
		t.Errorf("transcript = %q", text)
	}
	if m.Transcript() != text {
		t.Errorf("batch result should replace the session transcript, got %q", m.Transcript())
	}

	records, err := segments.GetSegmentsBySource("upload", 10, 0)
	if err != nil {
		t.Fatalf("GetSegmentsBySource: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("stored upload segments = %v", records)
	}
}

func TestTranscribeWithoutUpload(t *testing.T) {
	m, _ := newTestManager(t, &stubEngine{})

	if _, err := m.Transcribe(context.Background()); !errors.Is(err, transcription.ErrNoUpload) {
		t.Errorf("expected ErrNoUpload, got %v", err)
	}
}

func TestGenerateNotesEmptyTranscript(t *testing.T) {
	m, _ := newTestManager(t, &stubEngine{})

	if _, err := m.GenerateNotes(context.Background()); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
	if m.Notes() != nil {
		t.Error("no document should exist after a rejected generation")
	}
}

func TestGenerateNotesAndExports(t *testing.T) {
	engine := &stubEngine{batchText: "Mitochondria produce cellular energy. Photosynthesis converts light into sugar."}
	m, _ := newTestManager(t, engine)

	if _, err := m.UploadAudio("lecture.wav", "audio/wav", 4, strings.NewReader("RIFF")); err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if _, err := m.Transcribe(context.Background()); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	doc, err := m.GenerateNotes(context.Background())
	if err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}
	if len(doc.KeyPoints) != 2 {
		t.Errorf("key points = %v", doc.KeyPoints)
	}
	if m.Notes() != doc {
		t.Error("Notes should return the generated document")
	}

	text, err := m.NotesText()
	if err != nil {
		t.Fatalf("NotesText: %v", err)
	}
	if !strings.Contains(text, "STUDY NOTES") {
		t.Errorf("plain text rendering = %q", text)
	}

	filename, markdown, err := m.ExportNotes()
	if err != nil {
		t.Fatalf("ExportNotes: %v", err)
	}
	if !strings.HasPrefix(filename, "study-notes-") || !strings.HasSuffix(filename, ".md") {
		t.Errorf("notes filename = %q", filename)
	}
	if !strings.Contains(markdown, "# Study Notes") {
		t.Errorf("markdown rendering = %q", markdown)
	}
	// Both renderings carry the same key points
	for _, point := range doc.KeyPoints {
		if !strings.Contains(text, point) || !strings.Contains(markdown, point) {
			t.Errorf("key point %q missing from a rendering", point)
		}
	}

	filename, content, err := m.ExportTranscript()
	if err != nil {
		t.Fatalf("ExportTranscript: %v", err)
	}
	if !strings.HasPrefix(filename, "transcription-") || !strings.HasSuffix(filename, ".txt") {
		t.Errorf("transcript filename = %q", filename)
	}
	if !strings.HasSuffix(content, "\n") {
		t.Error("transcript export should end with a newline")
	}
}

func TestExportsWithoutContent(t *testing.T) {
	m, _ := newTestManager(t, &stubEngine{})

	if _, _, err := m.ExportTranscript(); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
	if _, _, err := m.ExportNotes(); !errors.Is(err, ErrNoNotes) {
		t.Errorf("expected ErrNoNotes, got %v", err)
	}
	if _, err := m.NotesText(); !errors.Is(err, ErrNoNotes) {
		t.Errorf("expected ErrNoNotes, got %v", err)
	}
}

func TestClearTranscriptDropsNotes(t *testing.T) {
	engine := &stubEngine{batchText: "A transcript long enough to summarize."}
	m, _ := newTestManager(t, engine)

	if _, err := m.UploadAudio("lecture.wav", "audio/wav", 4, strings.NewReader("RIFF")); err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if _, err := m.Transcribe(context.Background()); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if _, err := m.GenerateNotes(context.Background()); err != nil {
		t.Fatalf("GenerateNotes: %v", err)
	}

	m.ClearTranscript()

	if m.Transcript() != "" || m.Interim() != "" {
		t.Error("transcript state should be empty after clear")
	}
	if m.Notes() != nil {
		t.Error("notes document should be dropped with the transcript")
	}
}

func TestClearUploadResetsTranscript(t *testing.T) {
	engine := &stubEngine{batchText: "Some transcript text here."}
	m, _ := newTestManager(t, engine)

	if _, err := m.UploadAudio("lecture.wav", "audio/wav", 4, strings.NewReader("RIFF")); err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}
	if _, err := m.Transcribe(context.Background()); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	m.ClearUpload()

	if m.CurrentUpload() != nil {
		t.Error("upload should be gone after clear")
	}
	if m.Transcript() != "" {
		t.Error("transcript derives from the cleared file and should be reset")
	}
}
