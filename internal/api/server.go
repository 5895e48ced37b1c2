package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"accentid/internal/accent"
	"accentid/internal/config"
	"accentid/internal/logging"
	"accentid/internal/pipeline"
	"accentid/internal/services"
)

// Error kinds produced by the transport itself.
const (
	KindUnavailable  = "unavailable"
	KindUnauthorized = "unauthorized"
)

// RequestIDHeader carries a caller-chosen request id.
const RequestIDHeader = "X-Request-ID"

const maxRequestBody = 64 << 10

// Analyzer runs one analysis.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) (accent.Result, error)
}

// StatusFunc reports the runtime status served on /api/status.
type StatusFunc func(ctx context.Context) Status

// Server serves the analysis API.
type Server struct {
	bind     string
	token    string
	logger   *slog.Logger
	analyzer Analyzer
	status   StatusFunc
	slots    chan struct{}

	listener net.Listener
	server   *http.Server
}

// New builds a server bound to cfg.API.Bind.
func New(cfg *config.Config, analyzer Analyzer, status StatusFunc, logger *slog.Logger) *Server {
	limit := cfg.API.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	srv := &Server{
		bind:     strings.TrimSpace(cfg.API.Bind),
		token:    cfg.API.Token,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		analyzer: analyzer,
		status:   status,
		slots:    make(chan struct{}, limit),
	}
	// Read and write deadlines would cancel long analyses; request bodies are
	// capped by maxRequestBody and analyses by the fetch and transcode timeouts.
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler returns the routed handler, including authentication.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", authMiddleware(s.token, s.handleAnalyze))
	mux.HandleFunc("/api/status", authMiddleware(s.token, s.handleStatus))
	return mux
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down immediately.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, pipeline.KindInvalidRequest, "method not allowed", "")
		return
	}

	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx := services.WithRequestID(r.Context(), requestID)

	var req AnalyzeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		msg := "invalid request body"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("invalid request body: %v", err)
		}
		s.writeError(w, http.StatusBadRequest, pipeline.KindInvalidRequest, msg, requestID)
		return
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.writeError(w, http.StatusServiceUnavailable, KindUnavailable, "request cancelled while waiting for an analysis slot", requestID)
		return
	}

	result, err := s.analyzer.AnalyzeURL(ctx, req.URL)
	if err != nil {
		kind := pipeline.ErrorKind(err)
		s.writeError(w, StatusForKind(kind), kind, err.Error(), requestID)
		return
	}
	resp := FromResult(result, req.Distribution)
	resp.RequestID = requestID
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, pipeline.KindInvalidRequest, "method not allowed", "")
		return
	}
	var payload Status
	if s.status != nil {
		payload = s.status(r.Context())
	}
	if payload.Labels == nil {
		payload.Labels = LabelNames()
	}
	payload.MaxConcurrent = cap(s.slots)
	payload.InFlight = len(s.slots)
	s.writeJSON(w, http.StatusOK, payload)
}

// StatusForKind maps a pipeline error kind to an HTTP status.
func StatusForKind(kind string) int {
	switch kind {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindFetch:
		return http.StatusBadGateway
	case pipeline.KindNoAudioStream, pipeline.KindTranscode:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message, requestID string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, Kind: kind, RequestID: requestID})
}

// authMiddleware requires "Authorization: Bearer <token>" when token is set.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unauthorized", Kind: KindUnauthorized})
			return
		}
		next(w, r)
	}
}
