// Package httpapi exposes the analysis engine over HTTP. It accepts either a
// raw RFC 5322 message or an already normalized JSON structure and returns
// the full threat report.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/parser"
)

// Server serves the analysis API
type Server struct {
	service     *core.AnalysisService
	logger      *zap.Logger
	listenAddr  string
	maxBodySize int64
	httpServer  *http.Server
}

// NewServer creates a new API server
func NewServer(service *core.AnalysisService, logger *zap.Logger, listenAddr string, maxBodySize int64) *Server {
	return &Server{
		service:     service,
		logger:      logger,
		listenAddr:  listenAddr,
		maxBodySize: maxBodySize,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/analyze", s.handleAnalyzeRaw)
	r.Post("/v1/analyze/json", s.handleAnalyzeJSON)

	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// ProcessEmail analyzes an email directly, bypassing HTTP
func (s *Server) ProcessEmail(ctx context.Context, email *core.ParsedEmail) (*core.Report, error) {
	return s.service.Analyze(ctx, email)
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID assigns every request a unique identifier for log correlation
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleAnalyzeRaw accepts a raw RFC 5322 message body
func (s *Server) handleAnalyzeRaw(w http.ResponseWriter, r *http.Request) {
	email, err := parser.Parse(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to parse message", err)
		return
	}
	s.analyze(w, r, email)
}

// handleAnalyzeJSON accepts an already normalized email structure
func (s *Server) handleAnalyzeJSON(w http.ResponseWriter, r *http.Request) {
	var email core.ParsedEmail
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err := dec.Decode(&email); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to decode request body", err)
		return
	}
	s.analyze(w, r, &email)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, email *core.ParsedEmail) {
	report, err := s.service.Analyze(r.Context(), email)
	if err != nil {
		var valErr *core.ValidationError
		if errors.As(err, &valErr) {
			s.writeError(w, r, http.StatusUnprocessableEntity, "invalid email structure", err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "analysis failed", err)
		return
	}

	s.logger.Info("analysis completed",
		zap.Any("request_id", r.Context().Value(requestIDKey)),
		zap.Float64("score", report.TotalScore),
		zap.String("level", string(report.ThreatLevel)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("failed to encode report", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.logger.Warn(msg,
		zap.Any("request_id", r.Context().Value(requestIDKey)),
		zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  msg,
		"detail": err.Error(),
	})
}
