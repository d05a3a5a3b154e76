// Package server provides the HTTP API for résumé imports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/db"
	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/server/ratelimit"
)

const (
	defaultFlowID     = "default"
	defaultSessionTTL = time.Hour
	pruneInterval     = time.Minute
	defaultMaxUpload  = 10 << 20
	applyTimeout      = 30 * time.Second
	// multipartOverhead allows for form boundaries and headers around the file part.
	multipartOverhead = 1 << 20
)

// SessionStore looks up sessions that are no longer held in memory.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*db.SessionRecord, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	manager     *importer.Manager
	store       SessionStore
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
	maxUpload   int64
	sessionTTL  time.Duration
}

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	// SessionTTL is how long finished sessions stay in memory.
	SessionTTL time.Duration
	// RateLimit overrides the environment-derived rate limit configuration.
	RateLimit *ratelimit.Config
}

// New creates a new server instance. store may be nil.
func New(cfg Config, manager *importer.Manager, store SessionStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	rateConfig := cfg.RateLimit
	if rateConfig == nil {
		rateConfig = ratelimit.LoadConfig()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}

	s := &Server{
		manager:     manager,
		store:       store,
		rateLimiter: ratelimit.NewLimiter(rateConfig),
		logger:      logger,
		maxUpload:   cfg.MaxUploadBytes,
		sessionTTL:  cfg.SessionTTL,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open until the session settles
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /imports", s.handleCreateImport)
	mux.HandleFunc("GET /imports/{id}", s.handleGetImport)
	mux.HandleFunc("GET /imports/{id}/events", s.handleImportEvents)
	mux.HandleFunc("POST /imports/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /imports/{id}/apply", s.handleApply)
	mux.HandleFunc("DELETE /imports/{id}", s.handleDiscard)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	pruneCtx, stopPruning := context.WithCancel(context.Background())
	defer stopPruning()
	go s.pruneSessions(pruneCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.start", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	s.logger.Info("server.shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.manager.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.logger.Info("server.stopped")
	return nil
}

func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.manager.Prune(s.sessionTTL); n > 0 {
				s.logger.Debug("server.sessions_pruned", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http.request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("http.encode_failed", zap.Error(err))
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string          `json:"error"`
	Failure    *importer.Error `json:"failure,omitempty"`
	RetryAfter int             `json:"retry_after,omitempty"`
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}

// writeError maps err to its HTTP status and writes it.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var importErr *importer.Error
	if errors.As(err, &importErr) {
		resp.Failure = importErr
	}
	s.jsonResponse(w, HTTPStatus(err), resp)
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets the X-RateLimit-* headers of a limited route.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
}

// rateLimitResponse writes 429 with Retry-After in whole seconds, rounded up.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	s.logger.Warn("http.rate_limited",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
		zap.Int("retry_after_s", retryAfter),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}
