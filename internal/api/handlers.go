// Package api exposes HTTP handlers for health checks and manual sync triggering.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/guddu1cse/health-sync-engine/internal/auth"
	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

// RequestPublisher emits manually triggered sync requests onto the bus.
type RequestPublisher interface {
	PublishSyncRequested(ctx context.Context, req domain.SyncRequest) error
}

// Handler coordinates HTTP requests with the event bus.
type Handler struct {
	publisher RequestPublisher
}

// NewHandler builds a Handler.
func NewHandler(publisher RequestPublisher) *Handler {
	return &Handler{publisher: publisher}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sync/trigger", h.trigger)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": "health-sync-engine",
	})
}

// TriggerSyncRequest is the manual trigger payload.
type TriggerSyncRequest struct {
	UserID        string `json:"userId"`
	Provider      string `json:"provider"`
	IsInitialSync bool   `json:"isInitialSync"`
}

// trigger validates the payload and enqueues a sync request. The sync itself
// runs through the same consumer path as bus-delivered requests, so
// per-connection ordering is preserved.
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeHealthSync) {
		writeError(w, http.StatusForbidden, "forbidden", "scope health:sync required")
		return
	}

	var req TriggerSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "userId is required")
		return
	}
	provider, ok := domain.ParseProvider(req.Provider)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown provider")
		return
	}

	err := h.publisher.PublishSyncRequested(r.Context(), domain.SyncRequest{
		UserID:        req.UserID,
		Provider:      provider,
		IsInitialSync: req.IsInitialSync,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "publish_failed", "could not enqueue sync request")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "sync request enqueued",
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
