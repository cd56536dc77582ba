package handlers

import (
	"net/http"

	"github.com/fastmal/roilabel/internal/labels"
	"github.com/fastmal/roilabel/internal/selection"
)

// LabelView is one node of the label tree
type LabelView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Colour      string      `json:"colour"`
	StrokeColor int32       `json:"stroke_color"`
	Children    []LabelView `json:"children,omitempty"`
}

func newLabelView(l *labels.Label) LabelView {
	v := LabelView{
		ID:          l.ID,
		Name:        l.Name,
		Colour:      l.Colour.String(),
		StrokeColor: l.Colour.SignedInteger(),
	}
	for _, child := range l.Children {
		v.Children = append(v.Children, newLabelView(child))
	}
	return v
}

// transitionView is returned after every selection change
type transitionView struct {
	Mode      string                   `json:"mode"`
	Selection selection.SelectionState `json:"selection"`
	Defaults  selection.ShapeDefaults  `json:"defaults"`
}

func newTransitionView(c *selection.Controller) transitionView {
	state := c.State()
	return transitionView{
		Mode:      state.Mode().String(),
		Selection: state,
		Defaults:  c.Defaults(),
	}
}

func (h *Handler) HandleLabels(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	tree := session.Controller.Catalog().Labels()
	views := make([]LabelView, 0, len(tree))
	for _, l := range tree {
		views = append(views, newLabelView(l))
	}
	h.writeJSON(w, views)
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	var request struct {
		NodeID string `json:"node_id"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.NodeID == "" {
		h.writeError(w, "node_id is required", http.StatusBadRequest)
		return
	}

	if _, err := session.Controller.OnTreeNodeClicked(request.NodeID); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, newTransitionView(session.Controller))
}

func (h *Handler) HandleActiveImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	var request struct {
		ImageID int64 `json:"image_id"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.ImageID <= 0 {
		h.writeError(w, "image_id is required", http.StatusBadRequest)
		return
	}

	session.Controller.SetActiveImage(request.ImageID)
	h.writeJSON(w, newTransitionView(session.Controller))
}

func (h *Handler) HandleShapeKind(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	var request struct {
		Kind string `json:"kind"`
	}
	if !h.decodeJSON(w, r, &request) {
		return
	}
	if request.Kind == "" {
		h.writeError(w, "kind is required", http.StatusBadRequest)
		return
	}

	session.Controller.SetShapeKind(request.Kind)
	h.writeJSON(w, newTransitionView(session.Controller))
}
