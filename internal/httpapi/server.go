// Package httpapi exposes the question-answering pipeline over HTTP and a
// chat WebSocket for the chat UI.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Defaults for Options.
const (
	DefaultAskTimeout = 2 * time.Minute
	DefaultPongWait   = 60 * time.Second
)

// Asker answers one request.
type Asker interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Response
}

// StoreStatus reports graph store health.
type StoreStatus interface {
	Connected() bool
	Failures() int64
}

// Options configures the HTTP surface.
type Options struct {
	Pipeline Asker
	Store    StoreStatus
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	// MaxHistory is the number of turns a chat socket remembers. Default 10.
	MaxHistory int
	// AllowedOrigins restricts WebSocket upgrades. Empty allows all origins.
	AllowedOrigins []string
	// AskTimeout bounds one pipeline run, over HTTP or on the chat socket.
	AskTimeout time.Duration
	// PongWait is how long a chat socket may stay silent between frames.
	PongWait time.Duration
}

// Server serves the API.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 10
	}
	if opts.AskTimeout <= 0 {
		opts.AskTimeout = DefaultAskTimeout
	}
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /ws", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// httpServer leaves room after AskTimeout to write the answer.
func (s *Server) httpServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: s.opts.AskTimeout + writeWait,
		IdleTimeout:  120 * time.Second,
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := s.httpServer(addr)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

// ErrorBody is the JSON body of a failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// HealthBody is the /health response.
type HealthBody struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
}

// StatsBody is the /stats response.
type StatsBody struct {
	StoreConnected bool             `json:"store_connected"`
	StoreFailures  int64            `json:"store_failures"`
	Metrics        metrics.Snapshot `json:"metrics"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "message is required"})
		return
	}

	resp := s.ask(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

// ask runs one request under AskTimeout.
func (s *Server) ask(ctx context.Context, req pipeline.Request) pipeline.Response {
	ctx, cancel := context.WithTimeout(ctx, s.opts.AskTimeout)
	defer cancel()
	return s.opts.Pipeline.Run(ctx, req)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := HealthBody{Status: "ok", StoreConnected: true}
	if s.opts.Store != nil && !s.opts.Store.Connected() {
		body.Status = "degraded"
		body.StoreConnected = false
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var body StatsBody
	if s.opts.Store != nil {
		body.StoreConnected = s.opts.Store.Connected()
		body.StoreFailures = s.opts.Store.Failures()
	}
	if s.opts.Metrics != nil {
		body.Metrics = s.opts.Metrics.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.opts.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
