package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// Engine is the black-box speech-to-text service. Batch transcription
// submits a whole audio file; live dictation opens a long-lived session
// that delivers recognition events until closed.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	OpenLiveSession(ctx context.Context) (LiveSession, error)
}

// LiveSession is a single live dictation session. Receive blocks until the
// next recognition event; it returns io.EOF when the engine ends the
// session on its own (a benign interruption the caller may restart from).
type LiveSession interface {
	Receive() (*LiveEvent, error)
	Close() error
}

// EngineClient talks to the speech-to-text engine over HTTP and WebSocket.
type EngineClient struct {
	apiKey     string
	baseURL    string
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewEngineClient creates a new engine client. The base URL is resolved in
// order: explicit parameter, ENGINE_API_BASE environment variable, default.
func NewEngineClient(apiKey, baseURL string, config Config, logger *logger.Logger) *EngineClient {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		if env := os.Getenv("ENGINE_API_BASE"); env != "" {
			base = strings.TrimRight(env, "/")
		} else {
			base = "https://api.openai.com"
		}
	}

	if apiKey == "" {
		logger.Warn("Engine API key is empty - transcription will not work")
	}

	return &EngineClient{
		apiKey:  apiKey,
		baseURL: base,
		config:  config,
		logger:  logger.Named("engine"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe submits a whole audio file to the engine and returns the
// normalized transcript. There is no retry; a failed call is reported
// as-is to the caller.
func (c *EngineClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("engine API key is required for transcription")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", file.Name())
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	fields := map[string]string{
		"model":           c.config.Model,
		"language":        c.config.Language,
		"task":            c.config.Task,
		"timestamps":      c.config.TimestampGranular,
		"chunk_length_s":  strconv.Itoa(c.config.ChunkLengthSecs),
		"stride_length_s": strconv.Itoa(c.config.StrideLengthSecs),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	apiURL := c.baseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info("Submitting audio for batch transcription",
		logger.String("model", c.config.Model),
		logger.Int("chunk_length_s", c.config.ChunkLengthSecs),
		logger.Int("stride_length_s", c.config.StrideLengthSecs))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(respBody))
	}

	text, err := NormalizeResult(respBody)
	if err != nil {
		return "", fmt.Errorf("failed to normalize engine result: %w", err)
	}

	return text, nil
}

// OpenLiveSession creates a realtime dictation session and connects to its
// event stream.
func (c *EngineClient) OpenLiveSession(ctx context.Context) (LiveSession, error) {
	if c.apiKey == "" {
		return nil, &EngineError{Code: CodeServiceNotAllowed, Message: "engine API key is required"}
	}

	sessionID, clientSecret, err := c.createLiveSession(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Created live dictation session", logger.String("session_id", sessionID))

	wsURL := toWebSocketBase(c.baseURL) + "/v1/realtime/dictation?session_id=" + sessionID

	header := http.Header{}
	header.Set("Authorization", "Bearer "+clientSecret)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dictation session: %w", err)
	}

	return &liveWSSession{
		conn:        conn,
		idleTimeout: time.Duration(c.config.SessionIdleTimeoutS) * time.Second,
	}, nil
}

// createLiveSession requests a new dictation session from the engine.
func (c *EngineClient) createLiveSession(ctx context.Context) (string, string, error) {
	reqBody := map[string]any{
		"model":           c.config.Model,
		"language":        c.config.DictationLanguage,
		"interim_results": c.config.InterimResults,
		"continuous":      true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal session request: %w", err)
	}

	apiURL := c.baseURL + "/v1/realtime/dictation_sessions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read session response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", "", &EngineError{Code: CodeNotAllowed, Message: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("session creation returned status %d: %s", resp.StatusCode, string(body))
	}

	var session struct {
		ID           string `json:"id"`
		ClientSecret struct {
			Value string `json:"value"`
		} `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return "", "", fmt.Errorf("failed to parse session response: %w", err)
	}

	return session.ID, session.ClientSecret.Value, nil
}

// toWebSocketBase converts an http(s) base URL to the corresponding ws(s) URL.
func toWebSocketBase(httpBase string) string {
	b := strings.TrimRight(httpBase, "/")
	if strings.HasPrefix(b, "https://") {
		return "wss://" + strings.TrimPrefix(b, "https://")
	} else if strings.HasPrefix(b, "http://") {
		return "ws://" + strings.TrimPrefix(b, "http://")
	}
	return b
}

// liveWSSession adapts a WebSocket connection to the LiveSession interface.
type liveWSSession struct {
	conn        *websocket.Conn
	idleTimeout time.Duration
	mu          sync.Mutex
	closed      bool
}

// Receive reads and decodes the next recognition event. A session.ended
// message, a normal close, or engine silence past the idle timeout maps to
// io.EOF so callers can treat all three as a benign session end.
func (s *liveWSSession) Receive() (*LiveEvent, error) {
	for {
		if s.idleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, io.EOF
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}

		var event struct {
			Type        string `json:"type"`
			ResultIndex int    `json:"result_index"`
			Results     []struct {
				Text  string `json:"text"`
				Final bool   `json:"final"`
			} `json:"results"`
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			return nil, fmt.Errorf("failed to parse session event: %w", err)
		}

		switch event.Type {
		case "recognition.result":
			liveEvent := &LiveEvent{
				ResultIndex: event.ResultIndex,
				Timestamp:   time.Now().UTC(),
			}
			for _, r := range event.Results {
				liveEvent.Results = append(liveEvent.Results, RecognitionResult{
					Text:  r.Text,
					Final: r.Final,
				})
			}
			return liveEvent, nil

		case "session.ended":
			return nil, io.EOF

		case "error":
			return nil, &EngineError{Code: event.Error.Code, Message: event.Error.Message}

		default:
			// Ignore unknown event types (keepalives etc.)
		}
	}
}

func (s *liveWSSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
