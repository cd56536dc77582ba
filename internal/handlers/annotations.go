package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/models"
	"github.com/fastmal/roilabel/internal/shapes"
)

// ImageView is the annotation status of one image
type ImageView struct {
	ImageID    int64  `json:"image_id"`
	Completion string `json:"completion"`
	Counts     []int  `json:"counts"`
	Summary    string `json:"summary"`
}

func (h *Handler) HandleDrawingFinished(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	var request struct {
		ProvisionalID string `json:"provisional_id"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.ProvisionalID == "" {
		request.ProvisionalID = shapes.NewProvisionalID()
	}

	c := session.Controller
	if err := c.DrawingFinished(request.ProvisionalID); err != nil {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}

	labelIDs, _ := c.Shapes().Pending(request.ProvisionalID)
	h.writeJSONStatus(w, map[string]any{
		"provisional_id": request.ProvisionalID,
		"text":           c.Defaults().Text,
		"labels":         labelIDs,
	}, http.StatusCreated)
}

func (h *Handler) HandleShapesPersisted(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	var request struct {
		Pairs []shapes.Pair `json:"pairs"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	links, err := session.Controller.ShapesPersisted(r.Context(), request.Pairs)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if links == nil {
		links = []models.ROILabelLink{}
	}
	h.writeJSON(w, map[string]any{"links": links})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	// async=true returns at once; the result shows up as a count update event
	if r.URL.Query().Get("async") == "true" {
		sessionID := session.ID
		session.Controller.RefreshAsync(context.WithoutCancel(r.Context()), 0, func(idx *annotation.Index, err error) {
			if err == nil {
				slog.Debug("Background refresh finished", "session_id", sessionID, "dataset_id", idx.DatasetID)
			}
		})
		h.writeJSONStatus(w, map[string]any{"status": "refreshing"}, http.StatusAccepted)
		return
	}

	if _, err := session.Controller.Refresh(r.Context(), 0); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, newSessionView(session))
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	imageID, ok := h.imageIDOrError(w, r)
	if !ok {
		return
	}

	c := session.Controller
	idx := c.Index()
	h.writeJSON(w, ImageView{
		ImageID:    imageID,
		Completion: idx.CompletionIndicator(imageID).String(),
		Counts:     idx.CountsFor(imageID),
		Summary:    c.ImageSummary(imageID, nil),
	})
}

func (h *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	imageID, ok := h.imageIDOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Complete bool `json:"complete"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}

	c := session.Controller
	if err := c.SetCompletion(r.Context(), imageID, request.Complete); err != nil {
		h.writeFailure(w, err)
		return
	}

	idx := c.Index()
	h.writeJSON(w, ImageView{
		ImageID:    imageID,
		Completion: idx.CompletionIndicator(imageID).String(),
		Counts:     idx.CountsFor(imageID),
		Summary:    c.ImageSummary(imageID, nil),
	})
}
