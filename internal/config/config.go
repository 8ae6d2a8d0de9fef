package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Storage   StorageConfig   `toml:"storage"`   // Data persistence settings
	Engine    EngineConfig    `toml:"engine"`    // Speech-to-text engine settings
	Dictation DictationConfig `toml:"dictation"` // Live dictation settings
	Upload    UploadConfig    `toml:"upload"`    // Audio upload / batch transcription settings
	Notes     NotesConfig     `toml:"notes"`     // Study notes generation settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (filename generated as lectures-YYYY-MM-DD.db)
	UploadDir      string `toml:"upload_dir"`       // Directory where accepted audio uploads are staged
	MaxSegmentsAPI int    `toml:"max_segments_api"` // Maximum number of segments to return in the /segments API response
}

// EngineConfig contains settings for the speech-to-text engine service
type EngineConfig struct {
	APIKey  string `toml:"api_key"`  // API key for the engine service (ENGINE_API_KEY env var takes precedence)
	BaseURL string `toml:"base_url"` // Base URL of the engine service
	Model   string `toml:"model"`    // Model identifier (e.g., "whisper-large-v3")

	// Batch chunking parameters
	ChunkLengthSecs   int    `toml:"chunk_length_seconds"`  // Length of each audio chunk submitted to the engine
	StrideLengthSecs  int    `toml:"stride_length_seconds"` // Overlap between adjacent chunks
	TimestampGranular string `toml:"timestamps"`            // Timestamp granularity requested from the engine ("chunk" or "word")
	Language          string `toml:"language"`              // Transcription language (e.g., "english")
	Task              string `toml:"task"`                  // Engine task ("transcribe" or "translate")

	TimeoutSeconds int `toml:"timeout_seconds"` // HTTP timeout for engine requests in seconds
}

// DictationConfig contains settings for the live dictation strategy
type DictationConfig struct {
	Language            string `toml:"language"`             // Recognition language (e.g., "en-US")
	InterimResults      bool   `toml:"interim_results"`      // Whether the engine should emit interim hypotheses
	RestartDelayMs      int    `toml:"restart_delay_ms"`     // Delay before restarting a session that ended on its own
	SessionIdleTimeoutS int    `toml:"session_idle_timeout"` // Seconds of engine silence before the session is considered ended
	MaxRestartFailures  int    `toml:"max_restart_failures"` // Consecutive restart failures tolerated before giving up
}

// UploadConfig contains settings for the batch file strategy
type UploadConfig struct {
	MaxDurationMinutes int   `toml:"max_duration_minutes"` // Maximum accepted audio duration (default: 40)
	MaxSizeMB          int64 `toml:"max_size_mb"`          // Maximum accepted upload size in megabytes
	MaxWords           int   `toml:"max_words"`            // Word cap applied to cleaned transcripts (default: 50000)
}

// NotesConfig contains settings for study notes generation
type NotesConfig struct {
	MaxKeyPoints      int `toml:"max_key_points"`      // Number of key-point sentences kept (default: 8)
	MinSentenceLength int `toml:"min_sentence_length"` // Sentence fragments shorter than this are discarded (default: 10)
	MaxKeyTerms       int `toml:"max_key_terms"`       // Number of key terms kept (default: 6)
	MinTermLength     int `toml:"min_term_length"`     // Words of this length or shorter are not terms (default: 4)
	DelayMs           int `toml:"delay_ms"`            // Simulated generation delay in milliseconds
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return &config, nil
}

// LoadWithFallback loads configuration from the given path, or searches
// the conventional locations (configs/config.toml, config.toml) when the
// path is empty.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	candidates := []string{
		filepath.Join("configs", "config.toml"),
		"config.toml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}

	return nil, fmt.Errorf("no config file found (searched: %v)", candidates)
}

// applyDefaults fills in defaults for zero-valued settings
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = filepath.Join("data", "uploads")
	}
	if c.Storage.MaxSegmentsAPI == 0 {
		c.Storage.MaxSegmentsAPI = 500
	}
	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = "https://api.openai.com"
	}
	if c.Engine.Model == "" {
		c.Engine.Model = "whisper-large-v3"
	}
	if c.Engine.ChunkLengthSecs == 0 {
		c.Engine.ChunkLengthSecs = 30
	}
	if c.Engine.StrideLengthSecs == 0 {
		c.Engine.StrideLengthSecs = 5
	}
	if c.Engine.TimestampGranular == "" {
		c.Engine.TimestampGranular = "chunk"
	}
	if c.Engine.Language == "" {
		c.Engine.Language = "english"
	}
	if c.Engine.Task == "" {
		c.Engine.Task = "transcribe"
	}
	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = 120
	}
	if c.Dictation.Language == "" {
		c.Dictation.Language = "en-US"
	}
	if c.Dictation.RestartDelayMs == 0 {
		c.Dictation.RestartDelayMs = 250
	}
	if c.Dictation.SessionIdleTimeoutS == 0 {
		c.Dictation.SessionIdleTimeoutS = 60
	}
	if c.Dictation.MaxRestartFailures == 0 {
		c.Dictation.MaxRestartFailures = 5
	}
	if c.Upload.MaxDurationMinutes == 0 {
		c.Upload.MaxDurationMinutes = 40
	}
	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 200
	}
	if c.Upload.MaxWords == 0 {
		c.Upload.MaxWords = 50000
	}
	if c.Notes.MaxKeyPoints == 0 {
		c.Notes.MaxKeyPoints = 8
	}
	if c.Notes.MinSentenceLength == 0 {
		c.Notes.MinSentenceLength = 10
	}
	if c.Notes.MaxKeyTerms == 0 {
		c.Notes.MaxKeyTerms = 6
	}
	if c.Notes.MinTermLength == 0 {
		c.Notes.MinTermLength = 4
	}
}

// applyEnvOverrides applies environment variable overrides for secrets
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ENGINE_API_KEY"); key != "" {
		c.Engine.APIKey = key
	}
	if base := os.Getenv("ENGINE_API_BASE"); base != "" {
		c.Engine.BaseURL = base
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine model is required")
	}
	if c.Engine.StrideLengthSecs >= c.Engine.ChunkLengthSecs {
		return fmt.Errorf("stride length (%ds) must be shorter than chunk length (%ds)",
			c.Engine.StrideLengthSecs, c.Engine.ChunkLengthSecs)
	}
	if c.Upload.MaxDurationMinutes < 1 {
		return fmt.Errorf("invalid max upload duration: %d minutes", c.Upload.MaxDurationMinutes)
	}
	if c.Upload.MaxWords < 1 {
		return fmt.Errorf("invalid max word count: %d", c.Upload.MaxWords)
	}
	if c.Notes.MaxKeyPoints < 1 {
		return fmt.Errorf("invalid max key points: %d", c.Notes.MaxKeyPoints)
	}
	return nil
}
