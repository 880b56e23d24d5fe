// Package api provides the HTTP endpoints served over the daemon socket.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/runger/suggestd/internal/metrics"
	"github.com/runger/suggestd/internal/model"
	"github.com/runger/suggestd/internal/release"
)

// Suggester serves suggestion requests. The manager implements it.
type Suggester interface {
	Suggest(req *model.SuggestRequest) *model.SuggestResponse
	Algorithms() []string
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusResponse is the response for /v1/status.
type StatusResponse struct {
	PID           int      `json:"pid"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Requests      int64    `json:"requests"`
	AvgLatencyMs  float64  `json:"avg_latency_ms"`
	Algorithms    []string `json:"algorithms"`
}

// Handler provides the HTTP handlers for the suggestion API.
type Handler struct {
	suggester  Suggester
	logger     *slog.Logger
	shutdownFn func()
	startTime  time.Time
}

// HandlerDependencies contains required dependencies for the handler.
type HandlerDependencies struct {
	Suggester Suggester
	Logger    *slog.Logger

	// ShutdownFn is invoked by POST /v1/shutdown (optional).
	ShutdownFn func()
}

// NewHandler creates a new API handler.
func NewHandler(deps HandlerDependencies) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{
		suggester:  deps.Suggester,
		logger:     deps.Logger,
		shutdownFn: deps.ShutdownFn,
		startTime:  time.Now(),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/suggestions", h.HandleSuggestions)
	mux.HandleFunc("POST /v1/debug/suggestions", h.HandleDebugSuggestions)
	mux.HandleFunc("GET /v1/status", h.HandleStatus)
	mux.HandleFunc("GET /debug/metrics", h.HandleMetrics)
	mux.HandleFunc("POST /v1/shutdown", h.HandleShutdown)
}

// HandleSuggestions serves the production endpoint: the internal response is
// projected onto the release reply before it leaves the process.
func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	resp := h.serve(req)
	h.writeJSON(w, http.StatusOK, release.Build(resp))
}

// HandleDebugSuggestions echoes the raw internal response, debug traces
// included.
func (h *Handler) HandleDebugSuggestions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	req.Debug = true
	h.writeJSON(w, http.StatusOK, h.serve(req))
}

// HandleStatus serves daemon liveness and inventory.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Requests:      metrics.Global.Requests.Load(),
		AvgLatencyMs:  metrics.Global.AverageLatencyMs(),
		Algorithms:    h.suggester.Algorithms(),
	})
}

// HandleMetrics dumps the counter snapshot.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, metrics.Global.Snapshot())
}

// HandleShutdown requests a graceful daemon shutdown.
func (h *Handler) HandleShutdown(w http.ResponseWriter, r *http.Request) {
	if h.shutdownFn == nil {
		h.writeError(w, http.StatusNotImplemented, "shutdown_unavailable", "Shutdown is not wired")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"shutting_down": true})
	go h.shutdownFn()
}

// decodeRequest parses the shared request body and applies the channel CGI
// parameter override.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*model.SuggestRequest, bool) {
	var req model.SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return nil, false
	}
	if channel := r.URL.Query().Get("channel"); channel != "" {
		req.Channel = model.DeviceChannel(channel)
	}
	return &req, true
}

// serve runs one request through the engine with an access log line.
func (h *Handler) serve(req *model.SuggestRequest) *model.SuggestResponse {
	requestID := uuid.NewString()
	start := time.Now()
	resp := h.suggester.Suggest(req)
	h.logger.Info("suggestion request",
		"request_id", requestID,
		"input_len", len(req.Input),
		"channel", string(req.Channel),
		"completions", len(resp.Completions),
		"success", resp.Success,
		"instant", resp.EnableInstant,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, errorCode, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
