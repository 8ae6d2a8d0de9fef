package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/config"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/session"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/storage/sqlite"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/transcription"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/websocket"
	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 32 << 20

// Handler contains the API handlers
type Handler struct {
	appCtx     context.Context
	manager    *session.Manager
	segments   *sqlite.SegmentStorage
	notesStore *sqlite.NotesStorage
	wsServer   *websocket.Server
	config     *config.Config
	logger     *logger.Logger
}

// NewHandler creates a new API handler. appCtx is the application lifetime
// context: dictation sessions and batch engine calls outlive the HTTP
// request that starts them.
func NewHandler(appCtx context.Context, manager *session.Manager, segments *sqlite.SegmentStorage, notesStore *sqlite.NotesStorage, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		appCtx:     appCtx,
		manager:    manager,
		segments:   segments,
		notesStore: notesStore,
		wsServer:   wsServer,
		config:     cfg,
		logger:     log.Named("api-handler"),
	}
}

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// StartDictation starts the live dictation strategy
func (h *Handler) StartDictation(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StartDictation(h.appCtx); err != nil {
		h.logger.Error("Failed to start dictation", logger.Error(err))
		http.Error(w, "Failed to start dictation", http.StatusConflict)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": h.manager.ID(),
		"recording":  true,
	})
}

// StopDictation stops the live dictation strategy
func (h *Handler) StopDictation(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StopDictation(); err != nil {
		http.Error(w, "No dictation session running", http.StatusConflict)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": h.manager.ID(),
		"recording":  false,
		"transcript": h.manager.Transcript(),
	})
}

// UploadAudio accepts an audio file for batch transcription
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")

	upload, err := h.manager.UploadAudio(header.Filename, mimeType, header.Size, file)
	if err != nil {
		if transcription.IsValidationError(err) {
			h.logger.Info("Rejected upload",
				logger.String("filename", header.Filename),
				logger.String("mime_type", mimeType),
				logger.String("reason", err.Error()))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to stage upload", logger.Error(err))
		http.Error(w, "Failed to process upload", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"upload":           upload,
		"duration_seconds": upload.Duration.Seconds(),
	})
}

// ClearUpload removes the staged upload and resets the transcript
func (h *Handler) ClearUpload(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearUpload()
	WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// Transcribe runs batch transcription on the staged upload
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	// The engine call is awaited once with no cancellation tied to this
	// request; it continues if the client disconnects.
	text, err := h.manager.Transcribe(h.appCtx)
	if err != nil {
		switch {
		case errors.Is(err, transcription.ErrNoUpload):
			http.Error(w, "Upload an audio file first", http.StatusBadRequest)
		case errors.Is(err, transcription.ErrTranscriptionInProgress):
			http.Error(w, "Transcription already in progress", http.StatusConflict)
		default:
			h.logger.Error("Transcription failed", logger.Error(err))
			http.Error(w, "Transcription failed", http.StatusBadGateway)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"transcript": text,
	})
}

// GetTranscript returns the current transcript and interim text
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": h.manager.ID(),
		"transcript": h.manager.Transcript(),
		"interim":    h.manager.Interim(),
		"recording":  h.manager.DictationActive(),
	})
}

// ClearTranscript discards the transcript and any generated notes
func (h *Handler) ClearTranscript(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearTranscript()
	WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// GenerateNotes derives a study-notes document from the transcript
func (h *Handler) GenerateNotes(w http.ResponseWriter, r *http.Request) {
	doc, err := h.manager.GenerateNotes(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrEmptyTranscript) {
			http.Error(w, "No transcript available to summarize", http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to generate notes", logger.Error(err))
		http.Error(w, "Failed to generate notes", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, doc)
}

// GetNotes returns the most recently generated notes document
func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	doc := h.manager.Notes()
	if doc == nil {
		http.Error(w, "No notes generated yet", http.StatusNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// GetNotesText returns the plain-text (clipboard) rendering of the notes
func (h *Handler) GetNotesText(w http.ResponseWriter, r *http.Request) {
	text, err := h.manager.NotesText()
	if err != nil {
		http.Error(w, "No notes generated yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

// GetNotesHistory returns previously generated notes documents, newest first
func (h *Handler) GetNotesHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	records, err := h.notesStore.GetNotes(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve notes history", logger.Error(err))
		http.Error(w, "Failed to retrieve notes history", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"count":     len(records),
		"notes":     records,
	})
}

// ExportTranscript serves the transcript as a .txt attachment download
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	filename, content, err := h.manager.ExportTranscript()
	if err != nil {
		http.Error(w, "No transcript available to export", http.StatusBadRequest)
		return
	}
	serveDownload(w, filename, "text/plain; charset=utf-8", content)
}

// ExportNotes serves the notes document as a .md attachment download
func (h *Handler) ExportNotes(w http.ResponseWriter, r *http.Request) {
	filename, content, err := h.manager.ExportNotes()
	if err != nil {
		http.Error(w, "No notes generated yet", http.StatusBadRequest)
		return
	}
	serveDownload(w, filename, "text/markdown; charset=utf-8", content)
}

// GetSegments returns stored transcript segments with pagination
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)
	if limit > h.config.Storage.MaxSegmentsAPI {
		limit = h.config.Storage.MaxSegmentsAPI
	}

	var (
		records []*sqlite.SegmentRecord
		err     error
	)
	if source := r.URL.Query().Get("source"); source != "" {
		records, err = h.segments.GetSegmentsBySource(source, limit, offset)
	} else {
		records, err = h.segments.GetSegments(limit, offset)
	}
	if err != nil {
		h.logger.Error("Failed to retrieve segments", logger.Error(err))
		http.Error(w, "Failed to retrieve segments", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"count":     len(records),
		"segments":  records,
	})
}

// ClearSegments removes the stored segment history
func (h *Handler) ClearSegments(w http.ResponseWriter, r *http.Request) {
	if err := h.segments.ClearSegments(); err != nil {
		h.logger.Error("Failed to clear segments", logger.Error(err))
		http.Error(w, "Failed to clear segments", http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// Helper functions
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}

func serveDownload(w http.ResponseWriter, filename, contentType, content string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write([]byte(content))
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
