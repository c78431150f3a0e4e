// Package api serves the agent and course collaborators over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Server hosts the HTTP API.
type Server struct {
	cfg        config.Interface
	logger     *zap.Logger
	handlers   *Handlers
	httpServer *http.Server
	onShutdown func(ctx context.Context)
}

// NewServer creates a server for handlers. onShutdown runs after the HTTP
// listener has drained and releases everything the handlers depend on.
func NewServer(cfg config.Interface, logger *zap.Logger, handlers *Handlers, onShutdown func(ctx context.Context)) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger.Named("api"),
		handlers:   handlers,
		onShutdown: onShutdown,
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if t := s.cfg.Server().RequestTimeout; t > 0 {
		r.Use(middleware.Timeout(t))
	}
	r.Use(corsMiddleware(s.cfg.Server().AllowedOrigin))
	r.Use(requestLogger(s.logger))

	s.handlers.RegisterRoutes(r)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully: the listener
// first, then the session and browser resources via onShutdown.
func (s *Server) Run(ctx context.Context) error {
	defer observability.Sync()

	addr := s.cfg.Server().ListenAddr
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("address", addr))
		serveErr <- s.httpServer.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server ListenAndServe error", zap.Error(err))
			runErr = err
		}
	case <-ctx.Done():
		s.logger.Info("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if s.onShutdown != nil {
		s.onShutdown(shutdownCtx)
	}
	s.logger.Info("API server stopped.")
	return runErr
}

// corsMiddleware provides basic CORS support for the web client.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
