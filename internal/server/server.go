package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

// sseFlushWriter wraps a ResponseWriter to flush after each write.
type sseFlushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw sseFlushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		fw.f.Flush()
	}
	return n, err
}

// Options configures a Server. The zero value serves without an admin API,
// without a proxy key and against the default upstream.
type Options struct {
	Client      *upstream.Client
	AdminAPIKey string
	// ProxyAPIKey, when set, is required on the public endpoints.
	ProxyAPIKey string
	ExtraModels []string
}

type Server struct {
	keys     credentials.KeyFetcher
	client   *upstream.Client
	mux      *http.ServeMux
	logger   zerolog.Logger
	adminKey string
	proxyKey string
	models   []modelMetadata
}

func New(logger zerolog.Logger, keys credentials.KeyFetcher, opts Options) *Server {
	client := opts.Client
	if client == nil {
		client = upstream.NewClient(upstream.NewHTTPClient(upstream.DefaultTimeout), upstream.DefaultBaseURL, upstream.WithLogger(logger))
	}

	s := &Server{
		keys:     keys,
		client:   client,
		mux:      http.NewServeMux(),
		logger:   logger,
		adminKey: opts.AdminAPIKey,
		proxyKey: opts.ProxyAPIKey,
		models:   supportedModels(opts.ExtraModels),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/chat/completions", s.accessMiddleware(s.chatCompletionsHandler))
	s.mux.HandleFunc("/v1/chat/completions/ws", s.accessMiddleware(s.websocketHandler))
	s.mux.HandleFunc("/v1/models", s.accessMiddleware(s.modelsHandler))
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/admin/credentials", s.adminMiddleware(s.credentialsHandler))
	s.mux.HandleFunc("/admin/credentials/status", s.adminMiddleware(s.credentialsStatusHandler))
	s.mux.HandleFunc("/", s.notFoundHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := modelsResponse{
		Object: "list",
		Data:   s.models,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode models response")
	}
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
