// Package selection drives the label picker: which label is armed for
// drawing, which secondary labels ride along with it, and the refresh of
// the dataset annotation index that the list and thumbnail views read.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/labels"
	"github.com/fastmal/roilabel/internal/models"
	"github.com/fastmal/roilabel/internal/shapes"
)

var (
	ErrUnknownNode      = errors.New("unknown label node")
	ErrUnsupportedLevel = errors.New("unsupported label tree level")
	ErrNotPrimary       = errors.New("label is not a primary label")
	ErrNotSecondary     = errors.New("label is not a secondary label")
	// ErrParentInactive rejects a secondary toggle while a different
	// primary (or none) is active. Nothing changes.
	ErrParentInactive = errors.New("parent label is not active")
)

// Gateway is the part of the backend the controller calls
type Gateway interface {
	annotation.Fetcher
	SetCompletionTag(ctx context.Context, imageID int64, state bool) error
	LinkLabelsToROIs(ctx context.Context, links []models.ROILabelLink) error
}

// Deps are the collaborators of a Controller
type Deps struct {
	Catalog   *labels.Catalog
	Index     *annotation.Store
	Shapes    *shapes.LabelMap
	Publisher events.Publisher
	Tree      TreeView
	Gateway   Gateway
	Logger    *slog.Logger
}

type view struct {
	state    SelectionState
	defaults ShapeDefaults
	imageID  int64
}

// Controller owns the selection state of one dataset session
type Controller struct {
	catalog *labels.Catalog
	store   *annotation.Store
	shapes  *shapes.LabelMap
	pub     events.Publisher
	tree    TreeView
	gw      Gateway
	logger  *slog.Logger

	// mu serialises transitions, tree sync and publish
	mu          sync.Mutex
	primary     string
	secondaries map[string]struct{}
	defaults    ShapeDefaults
	shapeKind   string
	imageID     int64

	// published copy for readers, including event listeners
	current atomic.Pointer[view]

	ownerID atomic.Int64
}

// New wires a controller. Catalog and Index are required.
func New(d Deps) *Controller {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Tree == nil {
		d.Tree = noopTree{}
	}
	if d.Publisher == nil {
		d.Publisher = &events.Recorder{}
	}
	if d.Shapes == nil {
		d.Shapes = shapes.NewLabelMap(d.Logger)
	}

	c := &Controller{
		catalog:     d.Catalog,
		store:       d.Index,
		shapes:      d.Shapes,
		pub:         d.Publisher,
		tree:        d.Tree,
		gw:          d.Gateway,
		logger:      d.Logger,
		secondaries: make(map[string]struct{}),
		shapeKind:   DefaultShapeKind,
	}
	c.defaults = c.offDefaults()
	c.publishView()
	return c
}

// OnTreeNodeClicked dispatches a click on the label tree by the level of
// the clicked node
func (c *Controller) OnTreeNodeClicked(nodeID string) (ShapeDefaults, error) {
	node, ok := c.catalog.FindByID(nodeID)
	if !ok {
		c.logger.Warn("Ignoring click on unknown label node", "node_id", nodeID)
		return c.Defaults(), fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	switch node.Level() {
	case 1:
		return c.SelectPrimary(nodeID)
	case 2:
		return c.ToggleSecondary(nodeID)
	default:
		c.logger.Error("Ignoring click on label node at unsupported level", "node_id", nodeID, "level", node.Level())
		return c.Defaults(), fmt.Errorf("%w: %d", ErrUnsupportedLevel, node.Level())
	}
}

// SelectPrimary arms a primary label for drawing and clears any secondary
// selection. Selecting the off label disarms the drawing tool.
func (c *Controller) SelectPrimary(nodeID string) (ShapeDefaults, error) {
	node, ok := c.catalog.FindByID(nodeID)
	if !ok {
		return c.Defaults(), fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if node.Level() != 1 {
		return c.Defaults(), fmt.Errorf("%w: %s", ErrNotPrimary, nodeID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.secondaries)

	if node.IsOff() {
		c.primary = ""
		c.defaults = c.offDefaults()
		c.commit()
		c.pub.Publish(events.LabelDeselected, nil)
		c.logger.Debug("Label deselected")
		return c.defaults, nil
	}

	c.primary = node.ID
	c.defaults = ShapeDefaults{
		Text:        node.ID,
		StrokeColor: node.Colour.SignedInteger(),
		ShapeToDraw: c.shapeKind,
	}
	c.commit()
	c.pub.Publish(events.LabelSelected, events.SelectedPayload{ShapeKind: c.shapeKind})
	c.logger.Debug("Primary label selected", "label", node.ID, "shape", c.shapeKind)
	return c.defaults, nil
}

// ToggleSecondary activates or deactivates a secondary label. Activation is
// only allowed while the label's own parent is the active primary.
func (c *Controller) ToggleSecondary(nodeID string) (ShapeDefaults, error) {
	node, ok := c.catalog.FindByID(nodeID)
	if !ok {
		return c.Defaults(), fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if node.Level() != 2 {
		return c.Defaults(), fmt.Errorf("%w: %s", ErrNotSecondary, nodeID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, active := c.secondaries[nodeID]; active {
		delete(c.secondaries, nodeID)
	} else if node.ParentID == c.primary {
		c.secondaries[nodeID] = struct{}{}
	} else {
		c.logger.Info("Rejected secondary label, parent not active",
			"label", nodeID, "parent", node.ParentID, "active", c.primary)
		return c.defaults, fmt.Errorf("%w: %s needs %s", ErrParentInactive, nodeID, node.ParentID)
	}

	c.commit()
	c.pub.Publish(events.LabelSelected, events.SelectedPayload{ShapeKind: c.shapeKind})
	return c.defaults, nil
}

// SetActiveImage resets the selection to off when the viewer moves to
// another image. Recorded shape labels are kept.
func (c *Controller) SetActiveImage(imageID int64) ShapeDefaults {
	c.mu.Lock()
	defer c.mu.Unlock()

	if imageID == c.imageID {
		return c.defaults
	}

	c.imageID = imageID
	c.primary = ""
	clear(c.secondaries)
	c.defaults = c.offDefaults()
	c.commit()
	c.pub.Publish(events.LabelDeselected, nil)
	c.logger.Debug("Active image changed", "image_id", imageID)
	return c.defaults
}

// SetShapeKind records the shape tool the user picked. It applies to the
// next primary selection and is carried on selection events.
func (c *Controller) SetShapeKind(kind string) {
	if kind == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.shapeKind = kind
	if c.primary != "" {
		c.defaults.ShapeToDraw = kind
		c.publishView()
	}
}

// State returns a copy of the selection state
func (c *Controller) State() SelectionState {
	v := c.current.Load()
	return SelectionState{
		Primary:     v.state.Primary,
		Secondaries: append([]string(nil), v.state.Secondaries...),
	}
}

// Defaults returns the shape defaults of the last transition
func (c *Controller) Defaults() ShapeDefaults {
	return c.current.Load().defaults
}

// ActiveImage returns the image the selection belongs to
func (c *Controller) ActiveImage() int64 {
	return c.current.Load().imageID
}

// Catalog returns the label catalog of the session
func (c *Controller) Catalog() *labels.Catalog {
	return c.catalog
}

// Index returns the current annotation index
func (c *Controller) Index() *annotation.Index {
	return c.store.Current()
}

// Shapes returns the pending shape label map
func (c *Controller) Shapes() *shapes.LabelMap {
	return c.shapes
}

func (c *Controller) offDefaults() ShapeDefaults {
	return ShapeDefaults{
		Text:        "",
		StrokeColor: c.catalog.Off().Colour.SignedInteger(),
		ShapeToDraw: "",
	}
}

// commit mirrors the new state to the tree and to readers. Callers hold mu.
func (c *Controller) commit() {
	c.publishView()
	syncTree(c.tree, c.catalog, c.current.Load().state)
}

func (c *Controller) publishView() {
	c.current.Store(&view{
		state: SelectionState{
			Primary:     c.primary,
			Secondaries: c.catalog.OrderChildren(c.primary, c.secondaries),
		},
		defaults: c.defaults,
		imageID:  c.imageID,
	})
}
