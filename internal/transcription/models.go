package transcription

import (
	"time"
)

// RecognitionResult is a single hypothesis delivered by the engine.
type RecognitionResult struct {
	Text  string // The recognized text
	Final bool   // Whether the engine will revise this hypothesis further
}

// LiveEvent represents one recognition event from a live dictation session.
// ResultIndex is monotonically increasing; Results holds the hypotheses at
// or after that index.
type LiveEvent struct {
	ResultIndex int
	Results     []RecognitionResult
	Timestamp   time.Time
}

// Config represents the configuration for the transcription engine
type Config struct {
	// Model and language settings
	Model    string
	Language string
	Task     string

	// Batch chunking parameters
	ChunkLengthSecs   int
	StrideLengthSecs  int
	TimestampGranular string

	// Live dictation settings
	DictationLanguage   string
	InterimResults      bool
	RestartDelayMs      int
	SessionIdleTimeoutS int
	MaxRestartFailures  int

	// Post-processing settings
	MaxWords int

	TimeoutSeconds int // HTTP timeout for engine requests
}

// Callbacks are invoked by processors as the authoritative transcript and
// its ephemeral interim text change. All callbacks are optional.
type Callbacks struct {
	// OnTranscript is called with the full updated transcript whenever the
	// authoritative value changes (every finalized live segment, batch
	// completion, and clear).
	OnTranscript func(text string)

	// OnInterim is called with the current not-yet-finalized hypothesis.
	OnInterim func(text string)

	// OnNotice surfaces a user-facing notice ("info", "warn", or "error").
	OnNotice func(level, message string)
}

func (c Callbacks) transcript(text string) {
	if c.OnTranscript != nil {
		c.OnTranscript(text)
	}
}

func (c Callbacks) interim(text string) {
	if c.OnInterim != nil {
		c.OnInterim(text)
	}
}

func (c Callbacks) notice(level, message string) {
	if c.OnNotice != nil {
		c.OnNotice(level, message)
	}
}
