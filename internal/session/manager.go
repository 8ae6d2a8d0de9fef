// Package session owns the single in-memory transcription session: one
// authoritative transcript value, its ephemeral interim text, the staged
// upload, and the most recently generated notes document.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/notes"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/storage/sqlite"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/transcription"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/websocket"
	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// ErrNoNotes is returned when export is requested before notes were generated.
var ErrNoNotes = errors.New("no study notes have been generated yet")

// ErrEmptyTranscript is returned when an operation needs a non-empty transcript.
var ErrEmptyTranscript = errors.New("no transcript available yet")

// Manager coordinates the two transcription strategies and the notes
// formatter around a single transcript value. Exactly one transcript is
// visible to the notes formatter at a time; live dictation appends to it
// and batch transcription replaces it wholesale.
type Manager struct {
	id         string
	live       *transcription.LiveProcessor
	batch      *transcription.BatchProcessor
	formatter  *notes.Formatter
	wsServer   *websocket.Server
	segments   *sqlite.SegmentStorage
	notesStore *sqlite.NotesStorage
	logger     *logger.Logger
	notesDelay time.Duration

	mu         sync.RWMutex
	transcript string
	interim    string
	doc        *notes.Document
}

// NewManager creates a session manager and wires the strategy callbacks.
func NewManager(
	engine transcription.Engine,
	config transcription.Config,
	uploadDir string,
	maxDuration time.Duration,
	maxSize int64,
	probe transcription.DurationProber,
	formatter *notes.Formatter,
	wsServer *websocket.Server,
	segments *sqlite.SegmentStorage,
	notesStore *sqlite.NotesStorage,
	notesDelay time.Duration,
	log *logger.Logger,
) *Manager {
	m := &Manager{
		id:         uuid.NewString(),
		formatter:  formatter,
		wsServer:   wsServer,
		segments:   segments,
		notesStore: notesStore,
		logger:     log.Named("session"),
		notesDelay: notesDelay,
	}

	callbacks := transcription.Callbacks{
		OnTranscript: m.onTranscript,
		OnInterim:    m.onInterim,
		OnNotice:     m.onNotice,
	}

	var store transcription.SegmentStore
	if segments != nil {
		store = segments
	}
	m.live = transcription.NewLiveProcessor(engine, config, callbacks, store, log)
	m.batch = transcription.NewBatchProcessor(engine, config, uploadDir, maxDuration, maxSize, probe, log)

	return m
}

// ID returns the session identifier.
func (m *Manager) ID() string {
	return m.id
}

// onTranscript records the updated authoritative transcript and notifies
// clients. This is the host side of the completion callback contract: it
// fires on every finalized live segment and on batch completion/clear.
func (m *Manager) onTranscript(text string) {
	m.mu.Lock()
	m.transcript = text
	m.mu.Unlock()

	m.broadcast(websocket.MessageTypeTranscriptFinal, map[string]any{
		"session_id": m.id,
		"text":       text,
	})
}

func (m *Manager) onInterim(text string) {
	m.mu.Lock()
	m.interim = text
	m.mu.Unlock()

	m.broadcast(websocket.MessageTypeTranscriptInterim, map[string]any{
		"session_id": m.id,
		"text":       text,
	})
}

func (m *Manager) onNotice(level, message string) {
	m.broadcast(websocket.MessageTypeNotice, map[string]any{
		"session_id": m.id,
		"level":      level,
		"message":    message,
	})
}

func (m *Manager) broadcast(msgType string, data map[string]any) {
	if m.wsServer == nil {
		return
	}
	m.wsServer.Broadcast(&websocket.Message{Type: msgType, Data: data})
}

// StartDictation begins the live dictation strategy.
func (m *Manager) StartDictation(ctx context.Context) error {
	return m.live.Start(ctx)
}

// StopDictation ends the live dictation strategy.
func (m *Manager) StopDictation() error {
	return m.live.Stop()
}

// DictationActive reports whether live dictation is running.
func (m *Manager) DictationActive() bool {
	return m.live.Active()
}

// UploadAudio validates and stages an audio file for batch transcription.
func (m *Manager) UploadAudio(filename, mimeType string, size int64, r io.Reader) (*transcription.Upload, error) {
	return m.batch.Upload(filename, mimeType, size, r)
}

// CurrentUpload returns the staged upload, if any.
func (m *Manager) CurrentUpload() *transcription.Upload {
	return m.batch.Current()
}

// ClearUpload releases the staged upload and resets the transcript, since
// the batch strategy's transcript derives from the cleared file.
func (m *Manager) ClearUpload() {
	m.batch.Clear()
	m.ClearTranscript()
}

// Transcribe runs batch transcription on the staged upload and replaces
// the transcript wholesale with the cleaned result.
func (m *Manager) Transcribe(ctx context.Context) (string, error) {
	text, err := m.batch.Transcribe(ctx)
	if err != nil {
		m.onNotice("error", "Transcription failed. Please try again.")
		return "", err
	}

	if m.segments != nil {
		if _, storeErr := m.segments.StoreSegment("upload", text, time.Now().UTC()); storeErr != nil {
			m.logger.Error("Failed to store batch transcript", logger.Error(storeErr))
		}
	}

	m.onTranscript(text)
	return text, nil
}

// Transcript returns the authoritative transcript.
func (m *Manager) Transcript() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transcript
}

// Interim returns the ephemeral interim text.
func (m *Manager) Interim() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interim
}

// ClearTranscript discards the transcript, interim text, and any generated
// notes document.
func (m *Manager) ClearTranscript() {
	m.mu.Lock()
	m.transcript = ""
	m.interim = ""
	m.doc = nil
	m.mu.Unlock()

	m.broadcast(websocket.MessageTypeTranscriptCleared, map[string]any{
		"session_id": m.id,
	})
}

// GenerateNotes derives a fresh study-notes document from the transcript.
// The document is recomputed in full on every call.
func (m *Manager) GenerateNotes(ctx context.Context) (*notes.Document, error) {
	transcript := m.Transcript()
	if strings.TrimSpace(transcript) == "" {
		m.onNotice("warn", "Nothing to summarize yet. Record or upload audio first.")
		return nil, ErrEmptyTranscript
	}

	// Fixed simulated generation delay, carried over from the product
	// behavior so the UI can show progress.
	if m.notesDelay > 0 {
		select {
		case <-time.After(m.notesDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	doc, err := m.formatter.Generate(transcript, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to generate notes: %w", err)
	}

	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()

	if m.notesStore != nil {
		if _, err := m.notesStore.StoreNotes(doc, doc.GeneratedAt); err != nil {
			m.logger.Error("Failed to store notes document", logger.Error(err))
		}
	}

	m.broadcast(websocket.MessageTypeNotesGenerated, map[string]any{
		"session_id": m.id,
		"notes":      doc,
	})

	return doc, nil
}

// Notes returns the most recently generated notes document, or nil.
func (m *Manager) Notes() *notes.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc
}

// ExportTranscript returns the transcript download filename and content.
func (m *Manager) ExportTranscript() (string, string, error) {
	transcript := strings.TrimSpace(m.Transcript())
	if transcript == "" {
		return "", "", ErrEmptyTranscript
	}
	return notes.TranscriptFilename(time.Now()), transcript + "\n", nil
}

// ExportNotes returns the Markdown download filename and content for the
// current notes document.
func (m *Manager) ExportNotes() (string, string, error) {
	doc := m.Notes()
	if doc == nil {
		return "", "", ErrNoNotes
	}
	return notes.NotesFilename(doc.GeneratedAt), notes.RenderMarkdown(doc), nil
}

// NotesText returns the plain-text rendering of the current notes document
// (the clipboard representation).
func (m *Manager) NotesText() (string, error) {
	doc := m.Notes()
	if doc == nil {
		return "", ErrNoNotes
	}
	return notes.RenderText(doc), nil
}
