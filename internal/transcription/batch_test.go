package transcription

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

const fortyMinutes = 40 * time.Minute

func newTestBatch(t *testing.T, engine Engine, probe DurationProber) (*BatchProcessor, string) {
	t.Helper()
	dir := t.TempDir()
	p := NewBatchProcessor(engine, Config{MaxWords: 50000}, dir, fortyMinutes, 0, probe, logger.NewNop())
	return p, dir
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	probeCalled := false
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		probeCalled = true
		return 0, nil
	})

	_, err := p.Upload("lecture.ogg", "audio/ogg", 10, strings.NewReader("OggS"))
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MP3 or WAV") {
		t.Errorf("rejection reason should name the accepted formats: %q", err.Error())
	}
	if probeCalled {
		t.Error("type check must reject before the duration probe runs")
	}
	if files := stagedFiles(t, dir); len(files) != 0 {
		t.Errorf("nothing should be staged after a type rejection: %v", files)
	}
}

func TestUploadRejectsTooLong(t *testing.T) {
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return 41 * time.Minute, nil
	})

	_, err := p.Upload("lecture.wav", "audio/wav", 10, strings.NewReader("RIFF"))
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "too long") {
		t.Errorf("rejection reason = %q", err.Error())
	}
	if files := stagedFiles(t, dir); len(files) != 0 {
		t.Errorf("staged file must be released on rejection: %v", files)
	}
	if p.Current() != nil {
		t.Error("no upload should remain staged after rejection")
	}
}

func TestUploadRejectsCorruptFile(t *testing.T) {
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return 0, errors.New("not a RIFF file")
	})

	_, err := p.Upload("lecture.wav", "audio/wav", 10, strings.NewReader("garbage"))
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if files := stagedFiles(t, dir); len(files) != 0 {
		t.Errorf("staged file must be released on probe failure: %v", files)
	}
}

func TestUploadAcceptsAndStages(t *testing.T) {
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return 10 * time.Minute, nil
	})

	upload, err := p.Upload("Lecture 3.mp3", "audio/MPEG", 4, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if upload.MIMEType != "audio/mpeg" {
		t.Errorf("mime type should be normalized, got %q", upload.MIMEType)
	}
	if upload.Duration != 10*time.Minute {
		t.Errorf("duration = %v", upload.Duration)
	}
	if upload.Size != 4 {
		t.Errorf("size = %d", upload.Size)
	}
	if files := stagedFiles(t, dir); len(files) != 1 {
		t.Fatalf("expected one staged file, got %v", files)
	}
	if p.Current() == nil || p.Current().ID != upload.ID {
		t.Error("Current should return the staged upload")
	}
}

func TestUploadReplaceReleasesPrevious(t *testing.T) {
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	})

	first, err := p.Upload("a.wav", "audio/wav", 1, strings.NewReader("a"))
	if err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	second, err := p.Upload("b.wav", "audio/wav", 1, strings.NewReader("b"))
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}

	if _, err := os.Stat(first.Path); !os.IsNotExist(err) {
		t.Error("replaced upload's file should be removed")
	}
	if _, err := os.Stat(second.Path); err != nil {
		t.Errorf("current upload's file should exist: %v", err)
	}
	if files := stagedFiles(t, dir); len(files) != 1 {
		t.Errorf("exactly one file should be staged, got %v", files)
	}
}

func TestClearReleasesUpload(t *testing.T) {
	p, dir := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	})

	if _, err := p.Upload("a.wav", "audio/wav", 1, strings.NewReader("a")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	p.Clear()

	if p.Current() != nil {
		t.Error("Clear should drop the staged upload")
	}
	if files := stagedFiles(t, dir); len(files) != 0 {
		t.Errorf("Clear should remove the staged file: %v", files)
	}
	// Clearing again is a no-op
	p.Clear()
}

func TestTranscribeWithoutUpload(t *testing.T) {
	p, _ := newTestBatch(t, &fakeEngine{}, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	})

	if _, err := p.Transcribe(context.Background()); !errors.Is(err, ErrNoUpload) {
		t.Errorf("expected ErrNoUpload, got %v", err)
	}
}

func TestTranscribeCleansResult(t *testing.T) {
	engine := &fakeEngine{transcribeText: "the the lecture covers covers enzymes"}
	p, _ := newTestBatch(t, engine, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	})

	if _, err := p.Upload("a.wav", "audio/wav", 1, strings.NewReader("a")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, err := p.Transcribe(context.Background())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "the lecture covers enzymes" {
		t.Errorf("got %q", got)
	}
	if p.InProgress() {
		t.Error("in-progress flag must reset after completion")
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	engine := &fakeEngine{transcribeErr: errors.New("engine unavailable")}
	p, _ := newTestBatch(t, engine, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	})

	if _, err := p.Upload("a.wav", "audio/wav", 1, strings.NewReader("a")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, err := p.Transcribe(context.Background())
	if err == nil || !strings.Contains(err.Error(), "transcription failed") {
		t.Errorf("expected wrapped engine failure, got %v", err)
	}
	if p.InProgress() {
		t.Error("in-progress flag must reset after a failed call")
	}

	// The upload survives a failed attempt and can be retried
	if p.Current() == nil {
		t.Error("upload should remain staged after a failure")
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	p := NewBatchProcessor(&fakeEngine{}, Config{}, dir, fortyMinutes, 2, func(path, mimeType string) (time.Duration, error) {
		return time.Minute, nil
	}, logger.NewNop())

	_, err := p.Upload("a.wav", "audio/wav", 3, strings.NewReader("abc"))
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("rejection reason = %q", err.Error())
	}
}
