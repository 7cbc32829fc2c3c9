// Package api serves the HTTP interface of the daemon.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
)

// requestTimeout bounds every API request
const requestTimeout = 30 * time.Second

// Server is the HTTP API server. Every route is a thin translation onto a
// mediator request.
type Server struct {
	mediator       mediator.Mediator
	validate       *validator.Validate
	logger         *zap.Logger
	metricsHandler http.Handler
	httpServer     *http.Server
}

// NewServer creates a new API server
func NewServer(m mediator.Mediator, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		mediator: m,
		validate: validate,
		logger:   logger.Named("api"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetMetricsHandler mounts h at /metrics
func (s *Server) SetMetricsHandler(h http.Handler) { s.metricsHandler = h }

// Handler returns the chi router with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/{id}", s.handleGetUser)
		})

		r.Route("/resources", func(r chi.Router) {
			// Static tick-log routes must be declared before /{userId}
			r.Get("/tick-logs", s.handleTickLogs)
			r.Get("/tick-logs/recent", s.handleRecentTickLogs)
			r.Get("/tick-logs/user/{userId}", s.handleUserTickLogs)
			r.Get("/tick-logs/stats/{userId}", s.handleUserTickStats)
			r.Get("/{userId}", s.handleGetResources)
		})

		r.Route("/upgrades", func(r chi.Router) {
			r.Get("/queue/pending", s.handlePendingTasks)
			r.Get("/user/{userId}", s.handleUserTasks)
			// POST takes a user ID, GET and cancel take a task ID
			r.Post("/{id}", s.handleCreateUpgrade)
			r.Get("/{id}", s.handleGetTask)
			r.Post("/{id}/cancel", s.handleCancelTask)
		})
	})

	return r
}

// Start serves in the background
func (s *Server) Start() {
	s.httpServer.Handler = s.Handler()
	go func() {
		s.logger.Info("api server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
