package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rohanreddy-619/lecture-summarizer-ai/internal/config"
	"github.com/rohanreddy-619/lecture-summarizer-ai/pkg/logger"
)

// Router assembles the HTTP routes
type Router struct {
	handler *Handler
	config  *config.Config
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler: handler,
		config:  cfg,
		logger:  log.Named("router"),
	}
}

// Routes returns the assembled chi router
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(r.corsMiddleware)

	mux.Route("/api/v1", func(api chi.Router) {
		api.Get("/ws", r.handler.HandleWebSocket)

		api.Post("/dictation/start", r.handler.StartDictation)
		api.Post("/dictation/stop", r.handler.StopDictation)

		api.Post("/upload", r.handler.UploadAudio)
		api.Delete("/upload", r.handler.ClearUpload)
		api.Post("/transcribe", r.handler.Transcribe)

		api.Get("/transcript", r.handler.GetTranscript)
		api.Delete("/transcript", r.handler.ClearTranscript)

		api.Post("/notes", r.handler.GenerateNotes)
		api.Get("/notes", r.handler.GetNotes)
		api.Get("/notes/text", r.handler.GetNotesText)
		api.Get("/notes/history", r.handler.GetNotesHistory)

		api.Get("/export/transcript", r.handler.ExportTranscript)
		api.Get("/export/notes", r.handler.ExportNotes)

		api.Get("/segments", r.handler.GetSegments)
		api.Delete("/segments", r.handler.ClearSegments)
	})

	// Serve the web UI when a static directory is configured
	if r.config.Server.StaticFilesDir != "" {
		static := NewStaticFileHandler(r.config.Server.StaticFilesDir, r.logger)
		mux.Handle("/*", static)
	}

	return mux
}

// corsMiddleware applies the configured CORS policy
func (r *Router) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && r.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (r *Router) originAllowed(origin string) bool {
	for _, allowed := range r.config.Server.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
