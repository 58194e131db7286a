package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/server/handler"
	"github.com/alanyoungcy/surebet/internal/server/middleware"
	"github.com/alanyoungcy/surebet/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimit is the number of requests one client may make per minute.
	// Zero disables rate limiting.
	RateLimit int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Analyze   *handler.AnalyzeHandler
	Calculate *handler.CalculateHandler
	Records   *handler.RecordHandler
	Exports   *handler.ExportHandler
}

// Deps are the optional collaborators of the middleware chain.
type Deps struct {
	Hub     *ws.Hub
	Limiter domain.RateLimiter
	Metrics *metrics.Metrics
}

// Server is the HTTP + WebSocket API behind the surebet dashboard.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewHandler(cfg, handlers, deps, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Image analysis waits on OCR and the extraction collaborator.
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// NewHandler builds the routed and wrapped handler. Exposed for tests.
func NewHandler(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/analyze/text", handlers.Analyze.AnalyzeText)
	mux.HandleFunc("POST /api/analyze/image", handlers.Analyze.AnalyzeImage)

	mux.HandleFunc("POST /api/calculate/validate", handlers.Calculate.Validate)
	mux.HandleFunc("POST /api/calculate/stakes", handlers.Calculate.Stakes)

	mux.HandleFunc("GET /api/records", handlers.Records.List)
	mux.HandleFunc("POST /api/records", handlers.Records.Create)
	mux.HandleFunc("GET /api/records/summary", handlers.Records.Summary)
	mux.HandleFunc("GET /api/records/{id}", handlers.Records.Get)
	mux.HandleFunc("PUT /api/records/{id}", handlers.Records.Update)
	mux.HandleFunc("DELETE /api/records/{id}", handlers.Records.Delete)

	if handlers.Exports != nil {
		mux.HandleFunc("POST /api/exports", handlers.Exports.Create)
		mux.HandleFunc("GET /api/exports", handlers.Exports.List)
	}
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	// Innermost first: rate limit, auth, logging, CORS.
	var h http.Handler = mux
	h = middleware.RateLimit(deps.Limiter, cfg.RateLimit, time.Minute, logger)(h)
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	h = middleware.Logging(logger, deps.Metrics)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server: starting", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
