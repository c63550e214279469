package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rstiegler/cf1400-downloader/internal/config"
	"github.com/rstiegler/cf1400-downloader/internal/downloader"
	"github.com/rstiegler/cf1400-downloader/internal/metrics"
)

// Downloader is the operation surface the HTTP layer drives.
type Downloader interface {
	DownloadNext(ctx context.Context) downloader.Result
	NextPeriod(ctx context.Context) downloader.Period
}

// IDGenerator creates request identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Pinger is implemented by dependencies that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the download service.
type Server struct {
	router     chi.Router
	downloader Downloader
	ready      Pinger
	idGen      IDGenerator
	logger     *zap.Logger
}

// downloadTimeout bounds a single POST /download; one run probes at most a
// handful of candidates, each with its own timeout.
const downloadTimeout = 5 * time.Minute

// NewServer constructs a Server with middleware and routes. ready may be nil.
func NewServer(
	d Downloader,
	ready Pinger,
	idGen IDGenerator,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		downloader: d,
		ready:      ready,
		idGen:      idGen,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/health", s.healthz)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/download", s.download)
		r.Get("/next", s.next)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type downloadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), downloadTimeout)
	defer cancel()

	res := s.downloader.DownloadNext(ctx)
	if res.Success() {
		s.writeJSON(w, http.StatusOK, downloadResponse{Success: true, Filename: res.Filename})
		return
	}
	s.writeJSON(w, http.StatusOK, downloadResponse{Success: false, Message: res.Message()})
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	p := s.downloader.NextPeriod(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"year":    p.Year,
		"month":   p.Month,
		"quarter": p.Quarter(),
		"period":  p.String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
