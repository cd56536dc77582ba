package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/selection"
	"github.com/fastmal/roilabel/internal/storage"
	"github.com/google/uuid"
)

// SessionView is the JSON form of an open dataset session
type SessionView struct {
	ID            string                   `json:"id"`
	DatasetID     int64                    `json:"dataset_id"`
	CreatedAt     time.Time                `json:"created_at"`
	ActiveImage   int64                    `json:"active_image,omitempty"`
	Mode          string                   `json:"mode"`
	Selection     selection.SelectionState `json:"selection"`
	Defaults      selection.ShapeDefaults  `json:"defaults"`
	PendingShapes int                      `json:"pending_shapes"`
	OwnerFilter   int64                    `json:"owner_filter,omitempty"`
	Annotated     []int64                  `json:"annotated"`
	InProgress    []int64                  `json:"in_progress"`
	Complete      []int64                  `json:"complete"`
	LastError     string                   `json:"last_error,omitempty"`
}

func newSessionView(s *storage.Session) SessionView {
	c := s.Controller
	state := c.State()
	idx := c.Index()
	view := SessionView{
		ID:            s.ID,
		DatasetID:     s.DatasetID,
		CreatedAt:     s.CreatedAt,
		ActiveImage:   c.ActiveImage(),
		Mode:          state.Mode().String(),
		Selection:     state,
		Defaults:      c.Defaults(),
		PendingShapes: c.Shapes().Len(),
		OwnerFilter:   c.OwnerFilter(),
		Annotated:     idx.ImagesWithAnyAnnotation(),
		InProgress:    idx.ImagesAnnotationInProgress(),
		Complete:      idx.ImagesMarkedComplete(),
	}
	if err := c.LastRefreshError(); err != nil {
		view.LastError = err.Error()
	}
	return view
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.sessionStore.List()
		sessionList := make([]SessionView, 0, len(sessions))
		for _, session := range sessions {
			sessionList = append(sessionList, newSessionView(session))
		}
		h.writeJSON(w, sessionList)
	case "POST":
		var request struct {
			DatasetID int64 `json:"dataset_id"`
		}
		if !h.decodeJSON(w, r, &request) {
			return
		}
		if request.DatasetID <= 0 {
			h.writeError(w, "dataset_id is required", http.StatusBadRequest)
			return
		}

		session, err := h.openSession(r, request.DatasetID)
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSONStatus(w, newSessionView(session), http.StatusCreated)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, newSessionView(session))
	case "DELETE":
		h.sessionStore.Delete(sessionID)
		slog.Info("Session closed", "session_id", sessionID, "dataset_id", session.DatasetID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	h.writeJSON(w, session.Events.Snapshot())
}

func (h *Handler) openSession(r *http.Request, datasetID int64) (*storage.Session, error) {
	sessionID := fmt.Sprintf("session_%s", uuid.New())
	logger := slog.Default().With("session_id", sessionID)

	recorder := &events.Recorder{Limit: recentEvents}
	bus := events.NewBus(logger)
	bus.OnAll(recorder.Publish)

	controller, err := selection.Open(r.Context(), h.gateway, bus, nil, datasetID, logger)
	if err != nil {
		return nil, err
	}

	session := &storage.Session{
		ID:         sessionID,
		DatasetID:  datasetID,
		CreatedAt:  time.Now(),
		Controller: controller,
		Events:     recorder,
	}
	h.sessionStore.Set(sessionID, session)
	return session, nil
}
