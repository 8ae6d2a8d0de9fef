package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/api"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/audio"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/config"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/notes"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/session"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/storage/sqlite"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/transcription"
	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/websocket"
	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting lecture summarizer server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Daily database file
	today := time.Now().Format("2006-01-02")
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, fmt.Sprintf("lectures-%s.db", today))
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	db, err := sqlite.Open(dbPath, log)
	if err != nil {
		log.Error("Failed to open SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Using daily database", logger.String("path", dbPath))

	segmentStorage, err := sqlite.NewSegmentStorage(db)
	if err != nil {
		log.Error("Failed to create segment storage", logger.Error(err))
		os.Exit(1)
	}

	notesStorage, err := sqlite.NewNotesStorage(db)
	if err != nil {
		log.Error("Failed to create notes storage", logger.Error(err))
		os.Exit(1)
	}

	// WebSocket hub for transcript push
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transcriptionConfig := transcription.Config{
		Model:               cfg.Engine.Model,
		Language:            cfg.Engine.Language,
		Task:                cfg.Engine.Task,
		ChunkLengthSecs:     cfg.Engine.ChunkLengthSecs,
		StrideLengthSecs:    cfg.Engine.StrideLengthSecs,
		TimestampGranular:   cfg.Engine.TimestampGranular,
		DictationLanguage:   cfg.Dictation.Language,
		InterimResults:      cfg.Dictation.InterimResults,
		RestartDelayMs:      cfg.Dictation.RestartDelayMs,
		SessionIdleTimeoutS: cfg.Dictation.SessionIdleTimeoutS,
		MaxRestartFailures:  cfg.Dictation.MaxRestartFailures,
		MaxWords:            cfg.Upload.MaxWords,
		TimeoutSeconds:      cfg.Engine.TimeoutSeconds,
	}

	engine := transcription.NewEngineClient(cfg.Engine.APIKey, cfg.Engine.BaseURL, transcriptionConfig, log)

	formatter := notes.NewFormatter(notes.Options{
		MaxKeyPoints:      cfg.Notes.MaxKeyPoints,
		MinSentenceLength: cfg.Notes.MinSentenceLength,
		MaxKeyTerms:       cfg.Notes.MaxKeyTerms,
		MinTermLength:     cfg.Notes.MinTermLength,
	}, log)

	manager := session.NewManager(
		engine,
		transcriptionConfig,
		cfg.Storage.UploadDir,
		time.Duration(cfg.Upload.MaxDurationMinutes)*time.Minute,
		cfg.Upload.MaxSizeMB<<20,
		audio.ProbeDuration,
		formatter,
		wsServer,
		segmentStorage,
		notesStorage,
		time.Duration(cfg.Notes.DelayMs)*time.Millisecond,
		log,
	)

	handler := api.NewHandler(ctx, manager, segmentStorage, notesStorage, wsServer, cfg, log)
	router := api.NewRouter(handler, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop a live dictation session if one is running
	if manager.DictationActive() {
		if err := manager.StopDictation(); err != nil {
			log.Error("Error stopping dictation", logger.Error(err))
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
