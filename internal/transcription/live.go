package transcription

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// SegmentStore persists finalized transcript segments.
type SegmentStore interface {
	StoreSegment(source, content string, createdAt time.Time) (int64, error)
}

type liveState int

const (
	stateIdle liveState = iota
	stateActive
	stateStopping
)

// LiveProcessor runs the live dictation strategy: a continuous,
// interim-enabled recognition session that appends finalized segments to
// the transcript and restarts automatically on benign session ends. The
// explicit active/stopping state machine guarantees a pending restart
// cannot re-open a session after Stop.
type LiveProcessor struct {
	engine    Engine
	config    Config
	callbacks Callbacks
	store     SegmentStore
	logger    *logger.Logger

	mu             sync.Mutex
	state          liveState
	session        LiveSession
	transcript     string
	lastFinalIndex int

	wg sync.WaitGroup
}

// NewLiveProcessor creates a new live dictation processor. store may be nil
// when segment persistence is not wanted.
func NewLiveProcessor(engine Engine, config Config, callbacks Callbacks, store SegmentStore, logger *logger.Logger) *LiveProcessor {
	return &LiveProcessor{
		engine:         engine,
		config:         config,
		callbacks:      callbacks,
		store:          store,
		logger:         logger.Named("dictation"),
		lastFinalIndex: -1,
	}
}

// Start opens a recognition session and begins processing events.
func (p *LiveProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateIdle {
		p.mu.Unlock()
		return fmt.Errorf("dictation session already running")
	}
	p.mu.Unlock()

	session, err := p.engine.OpenLiveSession(ctx)
	if err != nil {
		if IsAccessError(err) {
			p.callbacks.notice("error", "Microphone access denied. Please allow microphone access and try again.")
		} else {
			p.callbacks.notice("error", "Could not start dictation session.")
		}
		return fmt.Errorf("failed to open live session: %w", err)
	}

	p.mu.Lock()
	p.state = stateActive
	p.session = session
	p.transcript = ""
	p.lastFinalIndex = -1
	p.mu.Unlock()

	p.logger.Info("Live dictation started",
		logger.String("language", p.config.DictationLanguage))

	p.wg.Add(1)
	go p.run(ctx, session)

	return nil
}

// Stop tears down the session. If the accumulated transcript is non-empty
// the caller is notified of completion; otherwise no speech was detected.
func (p *LiveProcessor) Stop() error {
	p.mu.Lock()
	if p.state != stateActive {
		p.mu.Unlock()
		return fmt.Errorf("no dictation session running")
	}
	p.state = stateStopping
	session := p.session
	p.mu.Unlock()

	if session != nil {
		session.Close()
	}
	p.wg.Wait()

	p.mu.Lock()
	transcript := p.transcript
	p.state = stateIdle
	p.session = nil
	p.mu.Unlock()

	// Interim text is ephemeral and discarded on stop
	p.callbacks.interim("")

	if transcript == "" {
		p.logger.Info("Dictation stopped with no speech detected")
		p.callbacks.notice("warn", "No speech detected.")
	} else {
		p.logger.Info("Dictation stopped", logger.Int("transcript_length", len(transcript)))
		p.callbacks.notice("info", "Dictation complete.")
	}

	return nil
}

// Transcript returns the accumulated transcript.
func (p *LiveProcessor) Transcript() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transcript
}

// Active reports whether a dictation session is currently running.
func (p *LiveProcessor) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateActive
}

// run processes recognition events until the session is stopped or a fatal
// error occurs.
func (p *LiveProcessor) run(ctx context.Context, session LiveSession) {
	defer p.wg.Done()

	restartFailures := 0

	for {
		event, err := session.Receive()
		if err != nil {
			if p.stopping() {
				return
			}

			switch {
			case err == io.EOF:
				// Benign session end; restart while still active.
				p.logger.Debug("Recognition session ended, restarting")

			case IsTransient(err):
				// no-speech / audio-capture are logged only
				p.logger.Debug("Transient recognition error", logger.Error(err))
				continue

			case IsAccessError(err):
				p.logger.Error("Recognition access error, forcing dictation off", logger.Error(err))
				p.callbacks.notice("error", "Speech recognition access was denied.")
				p.forceOff()
				return

			default:
				// Service errors are surfaced but non-fatal; fall through to
				// the restart path.
				p.logger.Warn("Recognition service error", logger.Error(err))
				p.callbacks.notice("warn", "Speech recognition hiccup, reconnecting.")
			}

			newSession, ok := p.restart(ctx, &restartFailures)
			if !ok {
				return
			}
			session = newSession
			continue
		}

		restartFailures = 0
		p.handleEvent(event)
	}
}

// handleEvent partitions results at or after the event's result index into
// final (append to transcript, notify) and interim (replace ephemeral text).
func (p *LiveProcessor) handleEvent(event *LiveEvent) {
	var interim string
	var appended []string
	var transcript string

	p.mu.Lock()
	for i, result := range event.Results {
		index := event.ResultIndex + i
		if result.Final {
			// Engines can re-emit overlapping finals; appending them again
			// would duplicate phrases in the transcript.
			if index <= p.lastFinalIndex {
				continue
			}
			p.transcript += result.Text + " "
			p.lastFinalIndex = index
			appended = append(appended, result.Text)
		} else {
			interim += result.Text
		}
	}
	transcript = p.transcript
	p.mu.Unlock()

	for _, segment := range appended {
		p.logger.Debug("Finalized segment", logger.String("text", segment))
		if p.store != nil {
			if _, err := p.store.StoreSegment("dictation", segment, event.Timestamp); err != nil {
				p.logger.Error("Failed to store segment", logger.Error(err))
			}
		}
		p.callbacks.transcript(transcript)
	}

	// Interim text is overwritten on every event; an event carrying only
	// finals clears the display.
	p.callbacks.interim(interim)
}

// restart re-opens a recognition session while the processor is still
// active. Restart errors are swallowed up to the configured failure limit.
func (p *LiveProcessor) restart(ctx context.Context, failures *int) (LiveSession, bool) {
	delay := time.Duration(p.config.RestartDelayMs) * time.Millisecond

	for {
		if p.stopping() {
			return nil, false
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		if p.stopping() {
			return nil, false
		}

		session, err := p.engine.OpenLiveSession(ctx)
		if err != nil {
			*failures++
			p.logger.Warn("Failed to restart recognition session",
				logger.Error(err),
				logger.Int("failures", *failures))
			if IsAccessError(err) || *failures >= p.config.MaxRestartFailures {
				p.callbacks.notice("error", "Speech recognition became unavailable.")
				p.forceOff()
				return nil, false
			}
			continue
		}

		p.mu.Lock()
		if p.state != stateActive {
			p.mu.Unlock()
			session.Close()
			return nil, false
		}
		p.session = session
		p.mu.Unlock()

		return session, true
	}
}

func (p *LiveProcessor) stopping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != stateActive
}

// forceOff clears the recording state after a fatal error.
func (p *LiveProcessor) forceOff() {
	p.mu.Lock()
	p.state = stateIdle
	p.session = nil
	p.mu.Unlock()
	p.callbacks.interim("")
}
