// Package server exposes the tool engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/metrics"
	"github.com/HerbHall/devicedesk/internal/tools"
	"github.com/HerbHall/devicedesk/internal/version"
)

// Options configures optional server behaviour.
type Options struct {
	// RateLimit is the sustained tool-call rate per second. Zero disables
	// rate limiting.
	RateLimit float64
	RateBurst int
	// JWTSecret enables HS256 bearer verification on tool routes.
	JWTSecret string
	Metrics   *metrics.Metrics
	// MCP, when set, is mounted at /mcp behind the same auth and rate limit.
	MCP http.Handler
	// Health reports storage reachability.
	Health func(context.Context) error
}

// Server is the devicedesk HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *tools.Engine
	logger     *zap.Logger
	mux        *http.ServeMux
	opts       Options
}

// New creates a new Server instance.
func New(addr string, engine *tools.Engine, logger *zap.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		engine: engine,
		logger: logger,
		mux:    mux,
		opts:   opts,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	guard := chain(
		rateLimit(s.opts.RateLimit, s.opts.RateBurst),
		authenticate([]byte(s.opts.JWTSecret), s.logger),
	)

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/tools", s.handleListTools)
	s.mux.Handle("POST /api/v1/tools/call", guard(http.HandlerFunc(s.handleCallTool)))
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	if s.opts.MCP != nil {
		s.mux.Handle("/mcp", guard(s.opts.MCP))
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.Method+" "+r.URL.Path, r.URL.Path)
	})
}

// Handler returns the root handler with request IDs, logging and panic
// recovery applied.
func (s *Server) Handler() http.Handler {
	return chain(requestID, recoverer(s.logger), accessLog(s.logger))(s.mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"service": version.Name,
		"version": version.Map(),
	})
}

type toolListResponse struct {
	Tools []tools.ToolInfo `json:"tools"`
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toolListResponse{Tools: s.engine.Tools()})
}

const maxRequestBody = 1 << 20

// handleCallTool accepts {"tool_name": "...", <arguments>} and returns the
// engine Response. "action_name" is accepted in place of "tool_name".
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !isJSON(ct) {
		UnsupportedMediaType(w, "request body must be application/json", r.URL.Path)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	if args == nil {
		BadRequest(w, "request body must be a JSON object", r.URL.Path)
		return
	}

	name, ok := toolName(args)
	if !ok {
		BadRequest(w, "tool_name is required and must be a string", r.URL.Path)
		return
	}

	resp := s.engine.Execute(r.Context(), name, args)
	writeJSON(w, resp.StatusCode, resp)
}

// toolName removes the routing keys from args and returns the tool name.
func toolName(args map[string]any) (string, bool) {
	raw, ok := args["tool_name"]
	if !ok {
		raw, ok = args["action_name"]
	}
	delete(args, "tool_name")
	delete(args, "action_name")
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	return name, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Devicedesk-Version", version.Short())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
