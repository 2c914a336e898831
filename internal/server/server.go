// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/rigchat/internal/completion"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the loopback address used when none is configured.
	DefaultAddr = "127.0.0.1:8765"

	// MaxRequestBodySize caps POST bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// ExportFilename is the attachment name served by GET /api/export.
	ExportFilename = "chat_history.json"

	shutdownTimeout = 10 * time.Second
)

// Session is the part of the session controller the HTTP surface drives.
type Session interface {
	SubmitUserTurn(ctx context.Context, text string, onDelta completion.DeltaFunc) (session.Reply, error)
	Reset(ctx context.Context) error
	ExportHistory(ctx context.Context) ([]byte, error)
	Transcript() []model.Message
}

// ============================================================================
// SERVER
// ============================================================================

// Server exposes a chat session over HTTP.
type Server struct {
	addr    string
	session Session
	logger  *slog.Logger
	router  chi.Router
	version string
}

// New creates a server for sess. An empty addr falls back to DefaultAddr.
func New(addr string, sess Session, logger *slog.Logger, version string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		addr:    addr,
		session: sess,
		logger:  logger,
		version: version,
	}
	s.router = s.routes()
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(SecurityHeadersMiddleware())

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/messages", s.handleMessages)
		api.Delete("/messages", s.handleReset)
		api.Post("/turns", s.handleTurn)
		api.Get("/export", s.handleExport)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_started", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("server_stopping")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// TurnRequest is the body of POST /api/turns.
type TurnRequest struct {
	Text string `json:"text"`
}

// TurnResponse is returned for a completed turn.
type TurnResponse struct {
	TurnID string `json:"turn_id"`
	Reply  string `json:"reply"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// Reply carries an answer that was produced but could not be saved.
	Reply string `json:"reply,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Messages int    `json:"messages"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Messages: len(s.session.Transcript()),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.session.Transcript()
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reply, err := s.session.SubmitUserTurn(r.Context(), req.Text, nil)
	if err != nil {
		status, body := turnErrorResponse(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("api_turn_failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		}
		writeError(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{TurnID: reply.TurnID, Reply: reply.Content})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reset(r.Context()); err != nil {
		s.logger.Error("api_reset_failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, storeErrorResponse(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.ExportHistory(r.Context())
	if err != nil {
		s.logger.Error("api_export_failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusInternalServerError, storeErrorResponse(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// ============================================================================
// ERROR MAPPING
// ============================================================================

// turnErrorResponse maps a turn failure to a status code and body.
func turnErrorResponse(err error) (int, ErrorResponse) {
	body := ErrorResponse{Kind: session.KindOf(err).String()}

	switch session.KindOf(err) {
	case session.EmptyInput:
		body.Error = "message text is empty"
		return http.StatusBadRequest, body
	case session.Busy:
		body.Error = "another turn is in progress"
		return http.StatusConflict, body
	case session.CompletionFailure:
		body.Error = "completion service failed"
		return http.StatusBadGateway, body
	case session.PersistenceFailure:
		body.Error = "conversation could not be saved"
		if errors.Is(err, storage.ErrCorruptData) {
			body.Error = "conversation history is corrupt; reset required"
		}
		if reply, ok := session.UnsavedReply(err); ok {
			body.Reply = reply
		}
		return http.StatusInternalServerError, body
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "turn failed"}
	}
}

// storeErrorResponse describes a reset or export failure.
func storeErrorResponse(err error) ErrorResponse {
	kind := storage.KindOf(err)
	msg := "conversation store unavailable"
	if kind == storage.CorruptData {
		msg = "conversation history is corrupt"
	}
	body := ErrorResponse{Error: msg}
	if kind != 0 {
		body.Kind = kind.String()
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	if strings.TrimSpace(body.Error) == "" {
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}
