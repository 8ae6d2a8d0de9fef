package transcription

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// allowedMIMETypes is the upload allowlist: two MIME aliases for MP3 and
// two for WAV.
var allowedMIMETypes = map[string]bool{
	"audio/mp3":  true,
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/wave": true,
}

// AllowedMIMEType reports whether the declared media type is accepted.
func AllowedMIMEType(mimeType string) bool {
	return allowedMIMETypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// DurationProber determines the playable duration of a staged audio file.
type DurationProber func(path, mimeType string) (time.Duration, error)

// Upload describes an accepted audio file staged for batch transcription.
type Upload struct {
	ID       string        `json:"id"`
	Filename string        `json:"filename"`
	MIMEType string        `json:"mime_type"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"-"`
	Path     string        `json:"-"`
}

// BatchProcessor runs the batch file strategy: accept one validated audio
// upload at a time and submit it whole to the engine. At most one upload is
// staged; replacing or clearing it deletes the staged file so repeated
// uploads in one session do not leak disk.
type BatchProcessor struct {
	engine      Engine
	config      Config
	uploadDir   string
	maxDuration time.Duration
	maxSize     int64
	probe       DurationProber
	logger      *logger.Logger

	mu         sync.Mutex
	upload     *Upload
	inProgress bool
}

// NewBatchProcessor creates a new batch transcription processor.
func NewBatchProcessor(engine Engine, config Config, uploadDir string, maxDuration time.Duration, maxSize int64, probe DurationProber, logger *logger.Logger) *BatchProcessor {
	return &BatchProcessor{
		engine:      engine,
		config:      config,
		uploadDir:   uploadDir,
		maxDuration: maxDuration,
		maxSize:     maxSize,
		probe:       probe,
		logger:      logger.Named("batch"),
	}
}

// Upload validates and stages an audio file. The declared media type must
// be in the allowlist and the decoded duration must not exceed the ceiling.
// Validation failures are returned as *ValidationError before any engine
// call; the staged file is removed on every rejection path.
func (p *BatchProcessor) Upload(filename, mimeType string, size int64, r io.Reader) (*Upload, error) {
	if !AllowedMIMEType(mimeType) {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("unsupported file type %q: please upload an MP3 or WAV file", mimeType),
		}
	}
	if p.maxSize > 0 && size > p.maxSize {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("file is too large (%d bytes, limit %d)", size, p.maxSize),
		}
	}

	if err := os.MkdirAll(p.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(p.uploadDir, id+filepath.Ext(filename))

	staged, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	written, err := io.Copy(staged, r)
	closeErr := staged.Close()
	if err != nil || closeErr != nil {
		os.Remove(path)
		if err == nil {
			err = closeErr
		}
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	duration, err := p.probe(path, strings.ToLower(mimeType))
	if err != nil {
		os.Remove(path)
		return nil, &ValidationError{
			Reason: "could not read audio duration: the file appears to be corrupt",
		}
	}
	if duration > p.maxDuration {
		os.Remove(path)
		return nil, &ValidationError{
			Reason: fmt.Sprintf("audio is too long (%s): the limit is %d minutes",
				duration.Round(time.Second), int(p.maxDuration.Minutes())),
		}
	}

	upload := &Upload{
		ID:       id,
		Filename: filename,
		MIMEType: strings.ToLower(mimeType),
		Size:     written,
		Duration: duration,
		Path:     path,
	}

	p.mu.Lock()
	previous := p.upload
	p.upload = upload
	p.mu.Unlock()

	// Replacing an upload releases the previous staged file
	if previous != nil {
		if err := os.Remove(previous.Path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("Failed to remove replaced upload", logger.Error(err))
		}
	}

	p.logger.Info("Accepted audio upload",
		logger.String("id", id),
		logger.String("filename", filename),
		logger.String("mime_type", upload.MIMEType),
		logger.Duration("duration", duration))

	return upload, nil
}

// Current returns the staged upload, or nil when none is staged.
func (p *BatchProcessor) Current() *Upload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upload
}

// Clear removes the staged upload and releases its file.
func (p *BatchProcessor) Clear() {
	p.mu.Lock()
	upload := p.upload
	p.upload = nil
	p.mu.Unlock()

	if upload != nil {
		if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("Failed to remove cleared upload", logger.Error(err))
		}
		p.logger.Info("Cleared staged upload", logger.String("id", upload.ID))
	}
}

// Transcribe submits the staged upload to the engine, normalizes the
// polymorphic result, and post-processes it (chunk-boundary dedup and word
// cap). No retry is attempted: a failed engine call resets the in-progress
// flag and is reported as-is.
func (p *BatchProcessor) Transcribe(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.inProgress {
		p.mu.Unlock()
		return "", ErrTranscriptionInProgress
	}
	upload := p.upload
	if upload == nil {
		p.mu.Unlock()
		return "", ErrNoUpload
	}
	p.inProgress = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inProgress = false
		p.mu.Unlock()
	}()

	p.logger.Info("Starting batch transcription",
		logger.String("id", upload.ID),
		logger.String("filename", upload.Filename))

	start := time.Now()
	text, err := p.engine.Transcribe(ctx, upload.Path)
	if err != nil {
		p.logger.Error("Batch transcription failed", logger.Error(err))
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	cleaned := CleanTranscript(text, p.config.MaxWords)

	p.logger.Info("Batch transcription complete",
		logger.String("id", upload.ID),
		logger.Int("words", len(strings.Fields(cleaned))),
		logger.Duration("elapsed", time.Since(start)))

	return cleaned, nil
}

// InProgress reports whether a batch transcription is currently running.
func (p *BatchProcessor) InProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inProgress
}
