package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

const version = "0.1.0"

// Handler contains shared dependencies for all ops HTTP handlers.
type Handler struct {
	deps Deps
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	OperatorID string `json:"operator_id"`
	Network    string `json:"network"`
	Uptime     string `json:"uptime"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:       "hedera-intel-agent",
		Version:    version,
		OperatorID: h.deps.OperatorID,
		Network:    h.deps.Network,
		Uptime:     time.Since(h.deps.StartedAt).Round(time.Second).String(),
	})
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string           `json:"status"` // "healthy" or "degraded"
	Version     string           `json:"version"`
	Connections int              `json:"connections"`
	Checks      map[string]Check `json:"checks"`
	Timestamp   string           `json:"timestamp"`
}

// Health handles the health check endpoint. Optional stores that are not
// configured do not degrade the agent.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	if h.deps.History != nil {
		start := time.Now()
		if err := h.deps.History.Ping(ctx); err != nil {
			checks["redis"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["redis"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["redis"] = Check{Status: "pass", Message: "not configured"}
	}

	if h.deps.Audit != nil {
		start := time.Now()
		if err := h.deps.Audit.Ping(ctx); err != nil {
			checks["database"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["database"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["database"] = Check{Status: "pass", Message: "not configured"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:      status,
		Version:     version,
		Connections: h.deps.Registry.Count(),
		Checks:      checks,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ConnectionsResponse represents the live connections listing.
type ConnectionsResponse struct {
	Connections []models.PeerConnection `json:"connections"`
	Count       int                     `json:"count"`
}

// Connections lists the registry's active peer connections.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Registry.Snapshot()
	h.JSON(w, http.StatusOK, ConnectionsResponse{
		Connections: snap,
		Count:       len(snap),
	})
}

// HistoryResponse represents the persisted connection audit listing.
type HistoryResponse struct {
	Connections []models.ConnectionRecord `json:"connections"`
}

// ConnectionHistory lists persisted connection audit records.
func (h *Handler) ConnectionHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.Audit == nil {
		h.Error(w, http.StatusNotFound, "connection history not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := h.deps.Audit.ListConnections(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if records == nil {
		records = []models.ConnectionRecord{}
	}
	h.JSON(w, http.StatusOK, HistoryResponse{Connections: records})
}

// MessagesResponse represents recent messages on one topic.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// TopicMessages returns recent history for a topic from Redis.
func (h *Handler) TopicMessages(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		h.Error(w, http.StatusNotFound, "message history not configured")
		return
	}

	topicID := chi.URLParam(r, "topic")
	limit := queryInt(r, "limit", 50)
	before, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)

	messages, err := h.deps.History.GetTopicMessages(r.Context(), topicID, limit, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "history read failed")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	h.JSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}
