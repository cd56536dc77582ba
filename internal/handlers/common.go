package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fastmal/roilabel/internal/gateway"
	"github.com/fastmal/roilabel/internal/selection"
	"github.com/fastmal/roilabel/internal/storage"
)

// recentEvents bounds the per-session event history served by the API
const recentEvents = 200

type Handler struct {
	sessionStore *storage.SessionStore
	gateway      selection.Gateway
}

// New creates the session API. Every session talks to the backend through gw.
func New(gw selection.Gateway) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		gateway:      gw,
	}
}

// Register mounts the API routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", h.HandleSessions)
	mux.HandleFunc("/api/sessions/{id}", h.HandleSessionDetail)
	mux.HandleFunc("GET /api/sessions/{id}/labels", h.HandleLabels)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.HandleEvents)
	mux.HandleFunc("POST /api/sessions/{id}/click", h.HandleClick)
	mux.HandleFunc("POST /api/sessions/{id}/image", h.HandleActiveImage)
	mux.HandleFunc("POST /api/sessions/{id}/shape-kind", h.HandleShapeKind)
	mux.HandleFunc("POST /api/sessions/{id}/drawings", h.HandleDrawingFinished)
	mux.HandleFunc("POST /api/sessions/{id}/persisted", h.HandleShapesPersisted)
	mux.HandleFunc("POST /api/sessions/{id}/refresh", h.HandleRefresh)
	mux.HandleFunc("GET /api/sessions/{id}/images/{image}", h.HandleImage)
	mux.HandleFunc("PUT /api/sessions/{id}/images/{image}/complete", h.HandleCompletion)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeFailure maps controller and gateway errors to status codes
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var backendErr *gateway.BackendError
	switch {
	case errors.Is(err, selection.ErrUnknownNode), errors.Is(err, gateway.ErrNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, selection.ErrParentInactive):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, selection.ErrNotPrimary),
		errors.Is(err, selection.ErrNotSecondary),
		errors.Is(err, selection.ErrUnsupportedLevel):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &backendErr), errors.Is(err, selection.ErrOffline):
		h.writeError(w, "Backend error: "+err.Error(), http.StatusBadGateway)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) imageIDOrError(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("image")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, fmt.Sprintf("Invalid image id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
