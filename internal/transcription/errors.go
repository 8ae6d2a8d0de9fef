package transcription

import (
	"errors"
	"fmt"
)

// Engine error codes, mirroring the recognition service's error vocabulary.
const (
	CodeNoSpeech          = "no-speech"
	CodeAudioCapture      = "audio-capture"
	CodeNotAllowed        = "not-allowed"
	CodeServiceNotAllowed = "service-not-allowed"
	CodeNetwork           = "network"
)

// ErrNoUpload is returned when Transcribe is called without an accepted upload.
var ErrNoUpload = errors.New("no audio file has been uploaded")

// ErrTranscriptionInProgress is returned when a batch transcription is already running.
var ErrTranscriptionInProgress = errors.New("transcription already in progress")

// EngineError is an error reported by the recognition engine with a code
// from its error vocabulary.
type EngineError struct {
	Code    string
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine error: %s", e.Code)
	}
	return fmt.Sprintf("engine error %s: %s", e.Code, e.Message)
}

// IsTransient reports whether the error is a non-fatal recognition error
// that the session should survive (logged only).
func IsTransient(err error) bool {
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		return false
	}
	switch engErr.Code {
	case CodeNoSpeech, CodeAudioCapture:
		return true
	}
	return false
}

// IsAccessError reports whether the error is fatal to the session:
// microphone permission denied or the recognition service refused access.
func IsAccessError(err error) bool {
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		return false
	}
	switch engErr.Code {
	case CodeNotAllowed, CodeServiceNotAllowed:
		return true
	}
	return false
}

// ValidationError is an upload rejection with a user-facing reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err is an upload validation rejection.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
